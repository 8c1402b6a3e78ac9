package submissionController

import (
	"log"
	"os"
	"time"

	"scw/config"
	"scw/database"
	"scw/middleware"
	"scw/models"
	courseModels "scw/models/course"
	"scw/utils"
	submissionValidator "scw/validators/submission"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SubmitExercise captures the caller's group workspace for a lesson as a new
// submission. The Submission row is created first; file copying is not
// transactional with it, so a partially collected submission keeps the row
// and whatever files made it across.
func SubmitExercise(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	lessonID, err := c.ParamsInt("lesson_id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid lesson id!", nil)
	}

	db := database.Database.Db

	var lesson courseModels.Lesson
	if err := db.First(&lesson, lessonID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	var exercise courseModels.Exercise
	if err := db.Where("lesson_id = ?", lesson.ID).First(&exercise).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Exercise not found!", nil)
	}

	var module courseModels.Module
	if err := db.First(&module, lesson.ModuleID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
	}

	var course courseModels.Course
	if err := db.First(&course, module.CourseID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	group, err := courseModels.GroupForStudent(db, course.ID, user.ID)
	if err != nil {
		log.Printf("Error resolving group for user %d: %v", user.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to submit exercise!", nil)
	}
	if group == nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "You are not in a group. Join a group before submitting.", nil)
	}

	// The end date itself is still a valid submission day.
	if course.DeadlinePassed(time.Now()) {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "The submission deadline has passed.", nil)
	}

	workDir := utils.GroupLessonDir(group.ID, lesson.Title)
	if _, err := os.Stat(workDir); os.IsNotExist(err) {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "No work found for this lesson. Open the exercise first.", nil)
	}

	submission := courseModels.Submission{
		ExerciseID: exercise.ID,
		StudentID:  user.ID,
	}
	if err := db.Create(&submission).Error; err != nil {
		log.Printf("Error creating submission: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to submit exercise!", nil)
	}

	fileCount, err := utils.CollectSubmissionFiles(db, &submission, group.ID, lesson.Title)
	if err != nil {
		log.Printf("Error collecting files for submission %d: %v", submission.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to submit exercise!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exercise submitted successfully!", fiber.Map{
		"submission_id": submission.ID,
		"submitted_at":  utils.FormatSubmittedAt(submission.SubmittedAt),
		"file_count":    fileCount,
	})
}

// groupOfStudent resolves a submitter to their group id, 0 when groupless.
func groupOfStudent(db *gorm.DB, courseID, studentID uint) uint {
	group, err := courseModels.GroupForStudent(db, courseID, studentID)
	if err != nil || group == nil {
		return 0
	}
	return group.ID
}

type submissionView struct {
	ID          uint        `json:"id"`
	GroupID     uint        `json:"group_id"`
	GroupNumber int         `json:"group_number"`
	StudentName string      `json:"student_name"`
	SubmittedAt string      `json:"submitted_at"`
	Score       *float64    `json:"score"`
	Passed      *bool       `json:"passed"`
	Feedback    string      `json:"feedback"`
	Files       []fiber.Map `json:"files"`
}

// ExerciseSubmissions lists the latest submission per group for one
// exercise, newest first. Groups are expected to submit through one member,
// but nothing stops each member submitting individually; showing only the
// most recent one per group resolves that deterministically. Students
// without a group share the sentinel group 0.
func ExerciseSubmissions(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	exerciseID, err := c.ParamsInt("exercise_id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid exercise id!", nil)
	}

	db := database.Database.Db

	var exercise courseModels.Exercise
	if err := db.First(&exercise, exerciseID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Exercise not found!", nil)
	}

	var lesson courseModels.Lesson
	if err := db.First(&lesson, exercise.LessonID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}
	var module courseModels.Module
	if err := db.First(&module, lesson.ModuleID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
	}
	if !module.CanEdit(user) {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You don't have permission to view these submissions!", nil)
	}

	var submissions []courseModels.Submission
	db.Where("exercise_id = ?", exercise.ID).Order("submitted_at desc").Find(&submissions)

	// Latest wins per group: submissions are newest-first, so the first one
	// seen for each group is the one kept.
	seen := make(map[uint]bool)
	views := []submissionView{}
	for i := range submissions {
		submission := &submissions[i]

		groupID := groupOfStudent(db, module.CourseID, submission.StudentID)
		if seen[groupID] {
			continue
		}
		seen[groupID] = true

		groupNumber := 0
		if groupID != 0 {
			var group courseModels.Group
			if err := db.First(&group, groupID).Error; err == nil {
				groupNumber = group.GroupNumber
			}
		}

		var student models.User
		studentName := ""
		if err := db.First(&student, submission.StudentID).Error; err == nil {
			studentName = student.FullName()
		}

		var files []courseModels.SubmissionFile
		db.Where("submission_id = ?", submission.ID).Find(&files)
		fileViews := make([]fiber.Map, 0, len(files))
		for _, f := range files {
			fileViews = append(fileViews, fiber.Map{
				"url":         utils.GetFileURL(f.File),
				"description": f.Description,
			})
		}

		views = append(views, submissionView{
			ID:          submission.ID,
			GroupID:     groupID,
			GroupNumber: groupNumber,
			StudentName: studentName,
			SubmittedAt: utils.FormatSubmittedAt(submission.SubmittedAt),
			Score:       submission.Score,
			Passed:      submission.Passed,
			Feedback:    submission.Feedback,
			Files:       fileViews,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Submissions fetched successfully!", fiber.Map{
		"exercise_id":    exercise.ID,
		"lesson_title":   lesson.Title,
		"maximum_points": exercise.MaximumPoints,
		"pass_points":    exercise.PassPoints,
		"submissions":    views,
	})
}

// GradeSubmission stores a score and feedback on a submission. Before the
// course end date only a superuser may grade; once it has passed, any
// instructor may.
func GradeSubmission(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	submissionID, err := c.ParamsInt("submission_id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid submission id!", nil)
	}

	reqData, ok := c.Locals("validatedGrade").(*submissionValidator.GradeRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var submission courseModels.Submission
	if err := db.First(&submission, submissionID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Submission not found!", nil)
	}

	var exercise courseModels.Exercise
	if err := db.First(&exercise, submission.ExerciseID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Exercise not found!", nil)
	}

	var course courseModels.Course
	if err := db.First(&course, config.AppConfig.CourseID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	if !course.DeadlinePassed(time.Now()) && !user.IsSuperuser {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Grading opens after the course end date.", nil)
	}

	submission.ApplyGrade(*reqData.Score, reqData.Feedback, &exercise)
	if err := db.Save(&submission).Error; err != nil {
		log.Printf("Error grading submission %d: %v", submission.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to grade submission!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Submission graded successfully!", fiber.Map{
		"submission_id": submission.ID,
		"score":         submission.Score,
		"passed":        submission.Passed,
		"feedback":      submission.Feedback,
	})
}

// SubmissionStatistics aggregates graded scores per group across every
// exercise of the course. Groups with no graded work report zeros.
func SubmissionStatistics(c *fiber.Ctx) error {
	db := database.Database.Db

	var course courseModels.Course
	if err := db.First(&course, config.AppConfig.CourseID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	var groups []courseModels.Group
	db.Where("course_id = ?", course.ID).Order("group_number asc").Find(&groups)

	type groupStats struct {
		GroupID      uint    `json:"group_id"`
		GroupNumber  int     `json:"group_number"`
		AverageScore float64 `json:"average_score"`
		MaxScore     float64 `json:"max_score"`
		GradedCount  int64   `json:"graded_count"`
	}

	stats := make([]groupStats, 0, len(groups))
	for _, group := range groups {
		row := groupStats{GroupID: group.ID, GroupNumber: group.GroupNumber}

		err := db.Model(&courseModels.Submission{}).
			Joins("JOIN group_members ON group_members.user_id = submissions.student_id").
			Joins("JOIN exercises ON exercises.id = submissions.exercise_id").
			Joins("JOIN lessons ON lessons.id = exercises.lesson_id").
			Joins("JOIN modules ON modules.id = lessons.module_id").
			Where("group_members.group_id = ? AND group_members.deleted_at IS NULL", group.ID).
			Where("modules.course_id = ? AND submissions.score IS NOT NULL", course.ID).
			Select("COALESCE(AVG(submissions.score), 0), COALESCE(MAX(submissions.score), 0), COUNT(*)").
			Row().Scan(&row.AverageScore, &row.MaxScore, &row.GradedCount)
		if err != nil {
			log.Printf("Error aggregating stats for group %d: %v", group.ID, err)
		}

		stats = append(stats, row)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Statistics fetched successfully!", fiber.Map{
		"course_id": course.ID,
		"groups":    stats,
	})
}

// SubmissionsDashboard summarizes per-exercise submission coverage for the
// instructor: how many groups have submitted and how many are still pending.
// Instructors see their own modules, superusers see everything.
func SubmissionsDashboard(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	db := database.Database.Db

	var course courseModels.Course
	if err := db.First(&course, config.AppConfig.CourseID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	var totalGroups int64
	db.Model(&courseModels.Group{}).Where("course_id = ?", course.ID).Count(&totalGroups)

	query := db.Model(&courseModels.Exercise{}).
		Select("exercises.id, lessons.title").
		Joins("JOIN lessons ON lessons.id = exercises.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", course.ID).
		Where("exercises.exercise_type = ?", courseModels.ExerciseJupyter).
		Where("lessons.deleted_at IS NULL AND modules.deleted_at IS NULL")
	if !user.IsSuperuser {
		query = query.Where("modules.instructor_id = ?", user.ID)
	}

	rows, err := query.Rows()
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch dashboard!", nil)
	}
	defer rows.Close()

	type exerciseRow struct {
		ExerciseID           uint   `json:"exercise_id"`
		LessonTitle          string `json:"lesson_title"`
		GroupsSubmitted      int64  `json:"groups_submitted"`
		GroupsPending        int64  `json:"groups_pending"`
		UngroupedSubmissions int64  `json:"ungrouped_submissions"`
	}
	exercises := []exerciseRow{}
	for rows.Next() {
		var row exerciseRow
		if err := rows.Scan(&row.ExerciseID, &row.LessonTitle); err != nil {
			continue
		}

		var submitted int64
		db.Model(&courseModels.Submission{}).
			Joins("JOIN group_members ON group_members.user_id = submissions.student_id").
			Where("submissions.exercise_id = ? AND group_members.deleted_at IS NULL", row.ExerciseID).
			Distinct("group_members.group_id").Count(&submitted)

		var ungrouped int64
		db.Model(&courseModels.Submission{}).
			Joins("LEFT JOIN group_members ON group_members.user_id = submissions.student_id AND group_members.deleted_at IS NULL").
			Where("submissions.exercise_id = ? AND group_members.id IS NULL", row.ExerciseID).
			Count(&ungrouped)

		row.GroupsSubmitted = submitted
		row.GroupsPending = totalGroups - submitted
		if row.GroupsPending < 0 {
			row.GroupsPending = 0
		}
		row.UngroupedSubmissions = ungrouped
		exercises = append(exercises, row)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Dashboard fetched successfully!", fiber.Map{
		"total_groups": totalGroups,
		"exercises":    exercises,
	})
}
