package controllers

import (
	"errors"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scw/database"
	"scw/middleware"
	"scw/models"
	courseModels "scw/models/course"
	"scw/utils"
	courseValidator "scw/validators/course"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateLesson appends an empty lesson to a module. The title gets a random
// suffix because titles must stay unique within a module; the instructor
// renames it on first save.
func CreateLesson(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	moduleID, err := c.ParamsInt("module_id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid module id!", nil)
	}

	db := database.Database.Db

	var module courseModels.Module
	if err := db.First(&module, moduleID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
	}
	if !module.CanEdit(user) {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You don't have permission to edit this module!", nil)
	}

	var maxOrder int
	db.Model(&courseModels.Lesson{}).Where("module_id = ?", module.ID).
		Select("COALESCE(MAX(order_index), 0)").Scan(&maxOrder)

	lesson := courseModels.Lesson{
		ModuleID:   module.ID,
		Title:      "New Lesson [" + uuid.NewString()[:8] + "]",
		Order:      maxOrder + 1,
		LessonType: courseModels.LessonReading,
	}
	if err := db.Create(&lesson).Error; err != nil {
		log.Printf("Error creating lesson: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create lesson!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson created successfully!", lesson)
}

// loadEditableLesson resolves lesson -> module and checks edit rights.
func loadEditableLesson(c *fiber.Ctx, db *gorm.DB, user *models.User) (*courseModels.Lesson, *courseModels.Module, bool) {
	lessonID, err := c.ParamsInt("lesson_id")
	if err != nil {
		middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid lesson id!", nil)
		return nil, nil, false
	}

	var lesson courseModels.Lesson
	if err := db.First(&lesson, lessonID).Error; err != nil {
		middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
		return nil, nil, false
	}

	var module courseModels.Module
	if err := db.First(&module, lesson.ModuleID).Error; err != nil {
		middleware.JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
		return nil, nil, false
	}
	if !module.CanEdit(user) {
		middleware.JsonResponse(c, fiber.StatusForbidden, false, "You don't have permission to edit this lesson!", nil)
		return nil, nil, false
	}
	return &lesson, &module, true
}

// GetLesson returns the instructor editing payload: the lesson plus its
// exercise and materials when it has them.
func GetLesson(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	db := database.Database.Db

	lesson, _, ok := loadEditableLesson(c, db, user)
	if !ok {
		return nil
	}

	data := fiber.Map{
		"lesson":    lesson,
		"video_url": utils.GetFileURL(lesson.VideoFile),
	}

	if lesson.LessonType == courseModels.LessonExercise {
		var exercise courseModels.Exercise
		if err := db.Where("lesson_id = ?", lesson.ID).First(&exercise).Error; err == nil {
			data["exercise"] = exercise
			data["exercise_file_url"] = utils.GetFileURL(exercise.File)
			data["reference_solution_url"] = utils.GetFileURL(exercise.ReferenceSolution)

			var materials []courseModels.ExerciseMaterial
			db.Where("exercise_id = ?", exercise.ID).Find(&materials)
			type materialData struct {
				ID          uint   `json:"id"`
				URL         string `json:"url"`
				Description string `json:"description"`
			}
			materialsData := make([]materialData, 0, len(materials))
			for _, m := range materials {
				materialsData = append(materialsData, materialData{
					ID:          m.ID,
					URL:         utils.GetFileURL(m.File),
					Description: m.Description,
				})
			}
			data["materials"] = materialsData
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson fetched successfully!", data)
}

// SaveLesson applies a multipart lesson edit: metadata fields, a possible
// rename, an optional video upload and an optional jupyter notebook plus
// materials. Directory renames run inside the transaction so a move failure
// aborts the save; workspace copies fan out only after the commit.
func SaveLesson(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	db := database.Database.Db

	lesson, module, ok := loadEditableLesson(c, db, user)
	if !ok {
		return nil
	}

	oldTitle := lesson.Title
	newTitle := strings.TrimSpace(c.FormValue("title", lesson.Title))
	if newTitle == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Lesson title cannot be empty!", nil)
	}

	if newTitle != oldTitle {
		var clash int64
		db.Model(&courseModels.Lesson{}).
			Where("module_id = ? AND title = ? AND id <> ?", lesson.ModuleID, newTitle, lesson.ID).
			Count(&clash)
		if clash > 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "A lesson with this title already exists in the module!", nil)
		}
	}

	if lessonType := c.FormValue("lesson_type"); lessonType != "" {
		switch lessonType {
		case courseModels.LessonVideo, courseModels.LessonReading, courseModels.LessonExercise:
			lesson.LessonType = lessonType
		default:
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Unknown lesson type!", nil)
		}
	}
	if duration := c.FormValue("duration"); duration != "" {
		minutes, err := strconv.Atoi(duration)
		if err != nil || minutes <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid duration!", nil)
		}
		lesson.DurationMinutes = minutes
	}
	if content := c.FormValue("lesson_content"); content != "" {
		lesson.LessonContent = content
	}

	// Video upload, tracked so the client can poll progress
	if videoFile, err := c.FormFile("video"); err == nil {
		uploadID := c.FormValue("upload_id")
		if uploadID == "" {
			uploadID = uuid.NewString()
		}
		utils.StartUploadProgress(uploadID, videoFile.Size)

		videoPath, err := utils.SaveUploadedVideo(videoFile, utils.MediaPath("lesson_videos"), uploadID)
		utils.FinishUploadProgress(uploadID)
		if err != nil {
			log.Printf("Error saving lesson video: %v", err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save video!", nil)
		}
		rel, err := utils.MediaRelative(videoPath)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save video!", nil)
		}
		lesson.VideoFile = rel
	}

	lesson.Title = newTitle

	tx := db.Begin()

	if err := tx.Save(lesson).Error; err != nil {
		tx.Rollback()
		log.Printf("Error saving lesson %d: %v", lesson.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save lesson!", nil)
	}

	// Directories are keyed by title, so a rename must move the canonical
	// tree and every group copy before the new title is committed.
	if newTitle != oldTitle {
		if err := utils.Provision.RenameLessonDirs(module.CourseID, oldTitle, newTitle); err != nil {
			tx.Rollback()
			log.Printf("Error renaming lesson directories: %v", err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to rename lesson directories!", nil)
		}
	}

	var exerciseID uint
	fanout := false
	if lesson.LessonType == courseModels.LessonExercise {
		id, changed, saved := saveExercisePayload(c, tx, lesson)
		if !saved {
			tx.Rollback()
			return nil
		}
		exerciseID = id
		fanout = changed
	}

	tx.Commit()

	// Workspace copies run after the commit so workers never see
	// uncommitted exercise rows.
	if fanout && exerciseID != 0 {
		utils.Provision.ScheduleExerciseFanout(exerciseID)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson saved successfully!", lesson)
}

// saveExercisePayload upserts the exercise row and handles the notebook and
// material uploads of an exercise lesson. Returns the exercise id and whether
// content changed in a way that requires re-provisioning group workspaces. On
// failure it writes the error response itself and reports ok=false so the
// caller rolls the transaction back.
func saveExercisePayload(c *fiber.Ctx, tx *gorm.DB, lesson *courseModels.Lesson) (uint, bool, bool) {
	var exercise courseModels.Exercise
	err := tx.Where("lesson_id = ?", lesson.ID).First(&exercise).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		exercise = courseModels.Exercise{LessonID: lesson.ID, ExerciseType: courseModels.ExerciseTraditional}
	} else if err != nil {
		middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load exercise!", nil)
		return 0, false, false
	}

	if exerciseType := c.FormValue("exercise_type"); exerciseType != "" {
		switch exerciseType {
		case courseModels.ExerciseTraditional, courseModels.ExerciseJupyter:
			exercise.ExerciseType = exerciseType
		default:
			middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Unknown exercise type!", nil)
			return 0, false, false
		}
	}
	if maxPoints := c.FormValue("maximum_points"); maxPoints != "" {
		points, err := strconv.Atoi(maxPoints)
		if err != nil || points < 0 {
			middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid maximum points!", nil)
			return 0, false, false
		}
		exercise.MaximumPoints = points
	}
	if passPoints := c.FormValue("pass_points"); passPoints != "" {
		points, err := strconv.Atoi(passPoints)
		if err != nil || points < 0 {
			middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid pass points!", nil)
			return 0, false, false
		}
		exercise.PassPoints = points
	}
	if hubURL := c.FormValue("jupyterhub_url"); hubURL != "" {
		exercise.JupyterhubURL = hubURL
	}

	contentChanged := false

	// The notebook keeps its original filename: the canonical tree is what
	// gets copied into group workspaces and students open it by name.
	if notebook, err := c.FormFile("jupyter_file"); err == nil {
		if !strings.HasSuffix(notebook.Filename, ".ipynb") {
			middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Jupyter notebook exercises must use .ipynb files!", nil)
			return 0, false, false
		}
		savedPath, err := utils.SaveUploadedFile(notebook, utils.ExerciseDir(lesson.Title))
		if err != nil {
			log.Printf("Error saving jupyter file: %v", err)
			middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save jupyter file!", nil)
			return 0, false, false
		}
		rel, err := utils.MediaRelative(savedPath)
		if err != nil {
			middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save jupyter file!", nil)
			return 0, false, false
		}
		exercise.File = rel
		contentChanged = true
	}

	if err := exercise.Validate(); err != nil {
		middleware.JsonResponse(c, fiber.StatusBadRequest, false, err.Error(), nil)
		return 0, false, false
	}
	if err := tx.Save(&exercise).Error; err != nil {
		log.Printf("Error saving exercise for lesson %d: %v", lesson.ID, err)
		middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save exercise!", nil)
		return 0, false, false
	}

	// Materials are replaced as a batch: new uploads drop the old set.
	if form, err := c.MultipartForm(); err == nil {
		files := form.File["materials"]
		if len(files) > 0 {
			if err := tx.Unscoped().Where("exercise_id = ?", exercise.ID).Delete(&courseModels.ExerciseMaterial{}).Error; err != nil {
				middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to replace materials!", nil)
				return 0, false, false
			}
			for _, file := range files {
				savedPath, err := utils.SaveUploadedFile(file, utils.ExerciseDir(lesson.Title))
				if err != nil {
					log.Printf("Error saving material %s: %v", file.Filename, err)
					middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save materials!", nil)
					return 0, false, false
				}
				rel, err := utils.MediaRelative(savedPath)
				if err != nil {
					middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save materials!", nil)
					return 0, false, false
				}
				material := courseModels.ExerciseMaterial{
					ExerciseID:  exercise.ID,
					File:        rel,
					Description: filepath.Base(file.Filename),
				}
				if err := tx.Create(&material).Error; err != nil {
					middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save materials!", nil)
					return 0, false, false
				}
			}
			contentChanged = true
		}
	}

	return exercise.ID, contentChanged && exercise.ExerciseType == courseModels.ExerciseJupyter, true
}

// deleteLessonCascade removes a lesson row and everything hanging off it.
// Hard deletes throughout: the (module, title) unique index must not keep a
// soft-deleted row that blocks reusing the title later.
func deleteLessonCascade(tx *gorm.DB, lesson *courseModels.Lesson) error {
	var exercise courseModels.Exercise
	err := tx.Where("lesson_id = ?", lesson.ID).First(&exercise).Error
	if err == nil {
		if err := tx.Unscoped().Where("exercise_id = ?", exercise.ID).Delete(&courseModels.ExerciseMaterial{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&exercise).Error; err != nil {
			return err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := tx.Unscoped().Where("lesson_id = ?", lesson.ID).Delete(&courseModels.LessonProgress{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Delete(lesson).Error
}

// DeleteLesson removes a lesson, its exercise data and its directories.
func DeleteLesson(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	db := database.Database.Db

	lesson, module, ok := loadEditableLesson(c, db, user)
	if !ok {
		return nil
	}

	tx := db.Begin()
	if err := deleteLessonCascade(tx, lesson); err != nil {
		tx.Rollback()
		log.Printf("Error deleting lesson %d: %v", lesson.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete lesson!", nil)
	}
	tx.Commit()

	if lesson.LessonType == courseModels.LessonExercise {
		utils.Provision.RemoveLessonDirs(module.CourseID, lesson.Title)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson deleted successfully!", nil)
}

// ReorderLessons updates lesson ordering within one module.
func ReorderLessons(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	moduleID, err := c.ParamsInt("module_id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid module id!", nil)
	}

	reqData, ok := c.Locals("validatedReorder").(*courseValidator.ReorderRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var module courseModels.Module
	if err := db.First(&module, moduleID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
	}
	if !module.CanEdit(user) {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You don't have permission to edit this module!", nil)
	}

	tx := db.Begin()
	for _, item := range reqData.Items {
		err := tx.Model(&courseModels.Lesson{}).
			Where("id = ? AND module_id = ?", item.ID, module.ID).
			Update("order_index", item.Order).Error
		if err != nil {
			tx.Rollback()
			log.Printf("Error reordering lesson %d: %v", item.ID, err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to reorder lessons!", nil)
		}
	}
	tx.Commit()

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson order updated successfully!", nil)
}

// LessonDetail returns the student view of a lesson and records the access.
func LessonDetail(c *fiber.Ctx) error {
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

	var module courseModels.Module
	if err := db.First(&module, lesson.ModuleID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
	}

	var course courseModels.Course
	if err := db.First(&course, module.CourseID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}
	if !course.IsPublished && !user.IsInstructor && !user.IsSuperuser {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Course is not published yet.", nil)
	}

	progress, err := courseModels.GetOrCreateProgress(db, user.ID, lesson.ID)
	if err != nil {
		log.Printf("Error tracking progress for lesson %d: %v", lesson.ID, err)
	}

	data := fiber.Map{
		"lesson":       lesson,
		"module_title": module.Title,
		"is_completed": progress != nil && progress.IsCompleted,
	}

	switch lesson.LessonType {
	case courseModels.LessonVideo:
		data["video_url"] = utils.GetFileURL(lesson.VideoFile)
	case courseModels.LessonExercise:
		attachExerciseDetail(db, data, &lesson, &course, user)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson fetched successfully!", data)
}

// attachExerciseDetail fills the exercise part of the student lesson view:
// exercise metadata, materials, the caller's group and the group's latest
// submission with any grade on it.
func attachExerciseDetail(db *gorm.DB, data fiber.Map, lesson *courseModels.Lesson, course *courseModels.Course, user *models.User) {
	var exercise courseModels.Exercise
	if err := db.Where("lesson_id = ?", lesson.ID).First(&exercise).Error; err != nil {
		return
	}

	data["exercise"] = exercise
	data["exercise_file_url"] = utils.GetFileURL(exercise.File)
	data["notebook_name"] = filepath.Base(exercise.File)
	data["deadline_passed"] = course.DeadlinePassed(time.Now())

	var materials []courseModels.ExerciseMaterial
	db.Where("exercise_id = ?", exercise.ID).Find(&materials)
	type materialData struct {
		URL         string `json:"url"`
		Description string `json:"description"`
	}
	materialsData := make([]materialData, 0, len(materials))
	for _, m := range materials {
		materialsData = append(materialsData, materialData{
			URL:         utils.GetFileURL(m.File),
			Description: m.Description,
		})
	}
	data["materials"] = materialsData

	group, err := courseModels.GroupForStudent(db, course.ID, user.ID)
	if err != nil || group == nil {
		data["group"] = nil
		return
	}
	data["group"] = group

	// Latest submission by any member of the group counts for everyone.
	var submission courseModels.Submission
	err = db.Joins("JOIN group_members ON group_members.user_id = submissions.student_id").
		Where("submissions.exercise_id = ? AND group_members.group_id = ?", exercise.ID, group.ID).
		Where("group_members.deleted_at IS NULL").
		Order("submissions.submitted_at desc").
		First(&submission).Error
	if err == nil {
		data["latest_submission"] = fiber.Map{
			"id":           submission.ID,
			"submitted_at": utils.FormatSubmittedAt(submission.SubmittedAt),
			"score":        submission.Score,
			"passed":       submission.Passed,
			"feedback":     submission.Feedback,
		}
	}
}

// CompleteLesson toggles the caller's completion state and returns the next
// lesson to continue with, crossing module boundaries when needed.
func CompleteLesson(c *fiber.Ctx) error {
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

	progress, err := courseModels.GetOrCreateProgress(db, user.ID, lesson.ID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update progress!", nil)
	}

	progress.IsCompleted = !progress.IsCompleted
	if progress.IsCompleted {
		now := time.Now()
		progress.CompletedAt = &now
	} else {
		progress.CompletedAt = nil
	}
	if err := db.Save(progress).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update progress!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress updated successfully!", fiber.Map{
		"is_completed":   progress.IsCompleted,
		"next_lesson_id": nextLessonID(db, &lesson),
	})
}

// nextLessonID finds the lesson after the given one: next order_index in the
// same module, otherwise the first lesson of the next module. Zero when the
// course is finished.
func nextLessonID(db *gorm.DB, lesson *courseModels.Lesson) uint {
	var next courseModels.Lesson
	err := db.Where("module_id = ? AND order_index > ?", lesson.ModuleID, lesson.Order).
		Order("order_index asc").First(&next).Error
	if err == nil {
		return next.ID
	}

	var module courseModels.Module
	if err := db.First(&module, lesson.ModuleID).Error; err != nil {
		return 0
	}
	var nextModule courseModels.Module
	err = db.Where("course_id = ? AND order_index > ?", module.CourseID, module.Order).
		Order("order_index asc").First(&nextModule).Error
	if err != nil {
		return 0
	}
	err = db.Where("module_id = ?", nextModule.ID).Order("order_index asc").First(&next).Error
	if err != nil {
		return 0
	}
	return next.ID
}
