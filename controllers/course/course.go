package controllers

import (
	"errors"
	"log"
	"time"

	"scw/config"
	"scw/database"
	"scw/middleware"
	"scw/models"
	courseModels "scw/models/course"
	"scw/utils"
	courseValidator "scw/validators/course"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ActiveCourse loads the configured active course. The deployment serves
// exactly one course, identified by COURSE_ID instead of an implicit
// first-row lookup.
func ActiveCourse(db *gorm.DB) (*courseModels.Course, error) {
	var course courseModels.Course
	if err := db.First(&course, config.AppConfig.CourseID).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// GetCourse returns the home payload: course info plus the caller's
// enrollment, group and role state.
func GetCourse(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	db := database.Database.Db

	course, err := ActiveCourse(db)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	isInstructor := user.IsInstructor || course.InstructorID == user.ID

	if !course.IsPublished && !isInstructor && !user.IsSuperuser {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Course is not published yet.", fiber.Map{
			"is_published": false,
		})
	}

	var enrolled int64
	db.Model(&courseModels.Enrollment{}).Where("course_id = ? AND user_id = ?", course.ID, user.ID).Count(&enrolled)

	group, err := courseModels.GroupForStudent(db, course.ID, user.ID)
	if err != nil {
		log.Printf("Error loading group for user %d: %v", user.ID, err)
	}

	// Groups that still have room and do not contain the caller
	type availableGroup struct {
		ID          uint `json:"id"`
		GroupNumber int  `json:"group_number"`
		MemberCount int  `json:"member_count"`
	}
	availableGroups := []availableGroup{}
	if enrolled > 0 && group == nil {
		var groups []courseModels.Group
		db.Where("course_id = ?", course.ID).Order("group_number asc").Find(&groups)
		for _, g := range groups {
			count, err := g.MemberCount(db)
			if err != nil {
				continue
			}
			if count < int64(course.MaxMembers) {
				availableGroups = append(availableGroups, availableGroup{
					ID:          g.ID,
					GroupNumber: g.GroupNumber,
					MemberCount: int(count),
				})
			}
		}
	}

	data := fiber.Map{
		"course":           course,
		"is_enrolled":      enrolled > 0,
		"is_instructor":    isInstructor,
		"user_group":       group,
		"available_groups": availableGroups,
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", data)
}

// Enroll registers the current user as a student of the active course.
func Enroll(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedEnroll").(*courseValidator.EnrollRequest)
	if !ok {
		reqData = &courseValidator.EnrollRequest{}
	}

	db := database.Database.Db

	course, err := ActiveCourse(db)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	if course.EnrollmentKey != "" && reqData.EnrollmentKey != course.EnrollmentKey {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Invalid enrollment key!", nil)
	}

	var enrollment courseModels.Enrollment
	err = db.Where(courseModels.Enrollment{UserID: user.ID, CourseID: course.ID}).
		FirstOrCreate(&enrollment).Error
	if err != nil {
		log.Printf("Error enrolling user %d: %v", user.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to enroll!", nil)
	}

	// Make sure the student has a notebook server account. Best effort, off
	// the request path.
	go utils.SyncHubUser(user.Username)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrolled successfully!", enrollment)
}

// CourseOverview returns modules and lessons with the caller's per-lesson
// progress and a pointer to the next incomplete lesson.
func CourseOverview(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	db := database.Database.Db

	course, err := ActiveCourse(db)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	if !course.IsPublished && !user.IsInstructor && !user.IsSuperuser {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Course is not published yet.", nil)
	}

	var modules []courseModels.Module
	db.Where("course_id = ?", course.ID).Order("order_index asc").Find(&modules)

	// Progress lookup for all lessons of the course
	progressByLesson := make(map[uint]*courseModels.LessonProgress)
	var progressRows []courseModels.LessonProgress
	db.Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("lesson_progresses.student_id = ? AND modules.course_id = ?", user.ID, course.ID).
		Find(&progressRows)
	for i := range progressRows {
		progressByLesson[progressRows[i].LessonID] = &progressRows[i]
	}

	type lessonData struct {
		ID          uint   `json:"id"`
		Title       string `json:"title"`
		LessonType  string `json:"lesson_type"`
		Order       int    `json:"order"`
		Duration    int    `json:"duration"`
		IsCompleted bool   `json:"is_completed"`
	}
	type moduleData struct {
		ID      uint         `json:"id"`
		Title   string       `json:"title"`
		Lessons []lessonData `json:"lessons"`
	}

	totalLessons := 0
	completedLessons := 0
	var continueLessonID uint

	modulesData := make([]moduleData, 0, len(modules))
	for _, module := range modules {
		var lessons []courseModels.Lesson
		db.Where("module_id = ?", module.ID).Order("order_index asc").Find(&lessons)

		lessonsData := make([]lessonData, 0, len(lessons))
		for _, lesson := range lessons {
			completed := false
			if progress, ok := progressByLesson[lesson.ID]; ok {
				completed = progress.IsCompleted
			}
			if completed {
				completedLessons++
			} else if continueLessonID == 0 {
				continueLessonID = lesson.ID
			}
			totalLessons++

			lessonsData = append(lessonsData, lessonData{
				ID:          lesson.ID,
				Title:       lesson.Title,
				LessonType:  lesson.LessonType,
				Order:       lesson.Order,
				Duration:    lesson.DurationMinutes,
				IsCompleted: completed,
			})
		}

		modulesData = append(modulesData, moduleData{
			ID:      module.ID,
			Title:   module.Title,
			Lessons: lessonsData,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course overview fetched successfully!", fiber.Map{
		"course_title":       course.Title,
		"modules":            modulesData,
		"total_lessons":      totalLessons,
		"completed_lessons":  completedLessons,
		"continue_lesson_id": continueLessonID,
	})
}

// UpdateSettings changes course configuration. Superuser only; also upserts
// the JupyterLab image record and verifies hub reachability when a domain is
// set.
func UpdateSettings(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedSettings").(*courseValidator.UpdateSettingsRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	course, err := ActiveCourse(db)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	if reqData.Title != "" {
		course.Title = reqData.Title
	}
	if reqData.Description != "" {
		course.Description = reqData.Description
	}
	if reqData.MaxMembers != nil {
		course.MaxMembers = *reqData.MaxMembers
	}
	if reqData.DifficultyLevel != nil {
		course.DifficultyLevel = *reqData.DifficultyLevel
	}
	if reqData.IsPublished != nil {
		course.IsPublished = *reqData.IsPublished
	}
	if reqData.DomainName != nil {
		course.DomainName = *reqData.DomainName
	}
	if reqData.EnrollmentKey != nil {
		course.EnrollmentKey = *reqData.EnrollmentKey
	}
	if reqData.StartDate != nil {
		if date, err := parseDate(*reqData.StartDate); err == nil {
			course.StartDate = date
		} else {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid start date!", nil)
		}
	}
	if reqData.EndDate != nil {
		if date, err := parseDate(*reqData.EndDate); err == nil {
			course.EndDate = date
		} else {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid end date!", nil)
		}
	}

	tx := db.Begin()

	if err := tx.Save(course).Error; err != nil {
		tx.Rollback()
		log.Printf("Error saving course settings: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update course settings!", nil)
	}

	if reqData.JupyterlabImage != nil && *reqData.JupyterlabImage != "" {
		var image courseModels.JupyterLabImage
		err := tx.Where(courseModels.JupyterLabImage{CourseID: course.ID}).First(&image).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			image = courseModels.JupyterLabImage{CourseID: course.ID, ImageName: *reqData.JupyterlabImage}
			err = tx.Create(&image).Error
		} else if err == nil {
			image.ImageName = *reqData.JupyterlabImage
			err = tx.Save(&image).Error
		}
		if err != nil {
			tx.Rollback()
			log.Printf("Error saving JupyterLab image: %v", err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update JupyterLab image!", nil)
		}
	}

	tx.Commit()

	if course.DomainName != "" {
		if err := utils.PingHub(); err != nil {
			log.Printf("Warning: JupyterHub not reachable: %v", err)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course settings updated successfully!", course)
}

// ChangeRole switches a user between student and instructor roles.
func ChangeRole(c *fiber.Ctx) error {
	var reqData struct {
		UserID  uint   `json:"user_id"`
		NewRole string `json:"new_role"`
	}
	if err := c.BodyParser(&reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	db := database.Database.Db

	var target models.User
	if err := db.Where("id = ? AND is_deleted = ?", reqData.UserID, false).First(&target).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found!", nil)
	}

	switch reqData.NewRole {
	case "instructor":
		target.IsInstructor = true
		target.IsStudent = false
	case "student":
		target.IsInstructor = false
		target.IsStudent = true
	default:
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Unknown role!", nil)
	}

	if err := db.Save(&target).Error; err != nil {
		log.Printf("Error changing role for user %d: %v", target.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to change role!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Role updated successfully!", fiber.Map{
		"user_id":       target.ID,
		"is_instructor": target.IsInstructor,
		"is_student":    target.IsStudent,
	})
}

// ListUsers returns every non-superuser account for the admin dashboard.
func ListUsers(c *fiber.Ctx) error {
	db := database.Database.Db

	var users []models.User
	if err := db.Where("is_superuser = ? AND is_deleted = ?", false, false).
		Order("created_at asc").Find(&users).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch users!", nil)
	}
	for i := range users {
		users[i].Password = ""
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Users fetched successfully!", fiber.Map{
		"users": users,
	})
}

func parseDate(value string) (*time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
