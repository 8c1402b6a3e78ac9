package controllers

import (
	"log"

	"scw/database"
	"scw/middleware"
	"scw/models"
	courseModels "scw/models/course"
	"scw/utils"
	courseValidator "scw/validators/course"

	"github.com/gofiber/fiber/v2"
)

// publishLocked rejects structural edits once the course is published. It
// writes the 403 response itself and reports whether the caller must stop.
func publishLocked(c *fiber.Ctx, course *courseModels.Course) bool {
	if course.IsPublished {
		middleware.JsonResponse(c, fiber.StatusForbidden, false, "Course is published, structural changes are locked!", nil)
		return true
	}
	return false
}

// CreateModule creates a new module in the active course, owned by the
// calling instructor.
func CreateModule(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	db := database.Database.Db

	course, err := ActiveCourse(db)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}
	if publishLocked(c, course) {
		return nil
	}

	reqData, ok := c.Locals("validatedModule").(*courseValidator.CreateModuleRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	// Append at the end of the module list
	var maxOrder int
	db.Model(&courseModels.Module{}).Where("course_id = ?", course.ID).
		Select("COALESCE(MAX(order_index), 0)").Scan(&maxOrder)

	difficulty := reqData.DifficultyLevel
	if difficulty == 0 {
		difficulty = courseModels.DifficultyBeginner
	}

	module := courseModels.Module{
		CourseID:        course.ID,
		InstructorID:    user.ID,
		Title:           reqData.Title,
		Description:     reqData.Description,
		Order:           maxOrder + 1,
		DifficultyLevel: difficulty,
	}

	if err := db.Create(&module).Error; err != nil {
		log.Printf("Error creating module: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create module!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Module created successfully!", module)
}

// GetModule returns a module with its lessons, for the owning instructor or
// a superuser.
func GetModule(c *fiber.Ctx) error {
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
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You are not the instructor of this module!", nil)
	}

	var lessons []courseModels.Lesson
	db.Where("module_id = ?", module.ID).Order("order_index asc").Find(&lessons)

	type lessonData struct {
		ID           uint   `json:"id"`
		Title        string `json:"title"`
		LessonType   string `json:"lesson_type"`
		ExerciseType string `json:"exercise_type,omitempty"`
	}
	lessonsData := make([]lessonData, 0, len(lessons))
	for _, lesson := range lessons {
		data := lessonData{
			ID:         lesson.ID,
			Title:      lesson.Title,
			LessonType: lesson.LessonType,
		}
		if lesson.LessonType == courseModels.LessonExercise {
			var exercise courseModels.Exercise
			if err := db.Where("lesson_id = ?", lesson.ID).First(&exercise).Error; err == nil {
				data.ExerciseType = exercise.ExerciseType
			}
		}
		lessonsData = append(lessonsData, data)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Module fetched successfully!", fiber.Map{
		"module":  module,
		"lessons": lessonsData,
	})
}

// UpdateModule updates a module's title and description.
func UpdateModule(c *fiber.Ctx) error {
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

	var course courseModels.Course
	if err := db.First(&course, module.CourseID).Error; err == nil {
		if publishLocked(c, &course) {
			return nil
		}
	}

	reqData, ok := c.Locals("validatedModuleUpdate").(*courseValidator.UpdateModuleRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	module.Title = reqData.Title
	module.Description = reqData.Description

	if err := db.Save(&module).Error; err != nil {
		log.Printf("Error updating module %d: %v", module.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update module!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Module updated successfully!", module)
}

// DeleteModule removes a module and everything below it: lessons,
// exercises, materials and the exercise trees on disk.
func DeleteModule(c *fiber.Ctx) error {
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
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You don't have permission to delete this module!", nil)
	}

	var course courseModels.Course
	if err := db.First(&course, module.CourseID).Error; err == nil {
		if publishLocked(c, &course) {
			return nil
		}
	}

	var lessons []courseModels.Lesson
	db.Where("module_id = ?", module.ID).Find(&lessons)

	tx := db.Begin()
	for _, lesson := range lessons {
		if err := deleteLessonCascade(tx, &lesson); err != nil {
			tx.Rollback()
			log.Printf("Error deleting lesson %d: %v", lesson.ID, err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete module lessons!", nil)
		}
	}
	if err := tx.Delete(&module).Error; err != nil {
		tx.Rollback()
		log.Printf("Error deleting module %d: %v", module.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete module!", nil)
	}
	tx.Commit()

	// Directory cleanup happens after the delete commits; a failure here
	// only leaves stray files for the maintenance sweep.
	for _, lesson := range lessons {
		if lesson.LessonType == courseModels.LessonExercise {
			utils.Provision.RemoveLessonDirs(module.CourseID, lesson.Title)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Module deleted successfully!", nil)
}

// ListModules lists the course's modules with lesson counts. Superusers see
// all modules, instructors only their own.
func ListModules(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	db := database.Database.Db

	course, err := ActiveCourse(db)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	query := db.Where("course_id = ?", course.ID)
	if !user.IsSuperuser {
		query = query.Where("instructor_id = ?", user.ID)
	}

	var modules []courseModels.Module
	if err := query.Order("order_index asc").Find(&modules).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch modules!", nil)
	}

	type moduleWithCount struct {
		courseModels.Module
		LessonCount int64 `json:"lesson_count"`
	}
	modulesData := make([]moduleWithCount, len(modules))
	for i, module := range modules {
		var count int64
		db.Model(&courseModels.Lesson{}).Where("module_id = ?", module.ID).Count(&count)
		modulesData[i] = moduleWithCount{Module: module, LessonCount: count}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Modules fetched successfully!", fiber.Map{
		"modules": modulesData,
	})
}

// ReorderModules updates module ordering. Superuser only.
func ReorderModules(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedReorder").(*courseValidator.ReorderRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	course, err := ActiveCourse(db)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}
	if publishLocked(c, course) {
		return nil
	}

	tx := db.Begin()
	for _, item := range reqData.Items {
		err := tx.Model(&courseModels.Module{}).
			Where("id = ? AND course_id = ?", item.ID, course.ID).
			Update("order_index", item.Order).Error
		if err != nil {
			tx.Rollback()
			log.Printf("Error reordering module %d: %v", item.ID, err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to reorder modules!", nil)
		}
	}
	tx.Commit()

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Module order updated successfully!", nil)
}
