package controllers

import (
	"log"
	"os"
	"strings"

	"scw/database"
	"scw/middleware"
	"scw/models"
	courseModels "scw/models/course"
	"scw/utils"

	"github.com/gofiber/fiber/v2"
)

// loadEditableExercise resolves exercise -> lesson -> module and checks edit
// rights.
func loadEditableExercise(c *fiber.Ctx, user *models.User) (*courseModels.Exercise, *courseModels.Lesson, bool) {
	exerciseID, err := c.ParamsInt("exercise_id")
	if err != nil {
		middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid exercise id!", nil)
		return nil, nil, false
	}

	db := database.Database.Db

	var exercise courseModels.Exercise
	if err := db.First(&exercise, exerciseID).Error; err != nil {
		middleware.JsonResponse(c, fiber.StatusNotFound, false, "Exercise not found!", nil)
		return nil, nil, false
	}

	var lesson courseModels.Lesson
	if err := db.First(&lesson, exercise.LessonID).Error; err != nil {
		middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
		return nil, nil, false
	}

	var module courseModels.Module
	if err := db.First(&module, lesson.ModuleID).Error; err != nil {
		middleware.JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
		return nil, nil, false
	}
	if !module.CanEdit(user) {
		middleware.JsonResponse(c, fiber.StatusForbidden, false, "You don't have permission to edit this exercise!", nil)
		return nil, nil, false
	}
	return &exercise, &lesson, true
}

// UploadReferenceSolution attaches a solution notebook to an exercise. The
// solution lives outside the exercise tree so it is never provisioned into
// group workspaces.
func UploadReferenceSolution(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	exercise, _, ok := loadEditableExercise(c, user)
	if !ok {
		return nil
	}

	file, err := c.FormFile("reference_solution")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "No reference solution file provided!", nil)
	}
	if !strings.HasSuffix(file.Filename, ".ipynb") {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Reference solution must be a Jupyter notebook (.ipynb) file!", nil)
	}

	savedPath, err := utils.SaveUploadedFileUnique(file, utils.MediaPath("reference_solutions"))
	if err != nil {
		log.Printf("Error saving reference solution: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save reference solution!", nil)
	}
	rel, err := utils.MediaRelative(savedPath)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save reference solution!", nil)
	}

	exercise.ReferenceSolution = rel
	if err := database.Database.Db.Save(exercise).Error; err != nil {
		log.Printf("Error updating exercise %d: %v", exercise.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update exercise!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Reference solution uploaded successfully!", fiber.Map{
		"reference_solution_url": utils.GetFileURL(rel),
	})
}

// DeleteJupyterFile detaches the exercise notebook and removes it from the
// canonical tree. Already-provisioned group copies keep their files until the
// next fan-out replaces them.
func DeleteJupyterFile(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	exercise, _, ok := loadEditableExercise(c, user)
	if !ok {
		return nil
	}
	if exercise.File == "" {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Exercise has no jupyter file!", nil)
	}

	filePath := utils.MediaPath(exercise.File)
	exercise.File = ""
	if err := database.Database.Db.Save(exercise).Error; err != nil {
		log.Printf("Error updating exercise %d: %v", exercise.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update exercise!", nil)
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.Printf("Error removing jupyter file %s: %v", filePath, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Jupyter file deleted successfully!", nil)
}

// DeleteMaterial removes one material file from an exercise.
func DeleteMaterial(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	exercise, _, ok := loadEditableExercise(c, user)
	if !ok {
		return nil
	}

	materialID, err := c.ParamsInt("material_id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid material id!", nil)
	}

	db := database.Database.Db

	var material courseModels.ExerciseMaterial
	if err := db.Where("id = ? AND exercise_id = ?", materialID, exercise.ID).First(&material).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Material not found!", nil)
	}

	if err := db.Unscoped().Delete(&material).Error; err != nil {
		log.Printf("Error deleting material %d: %v", material.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete material!", nil)
	}

	if err := os.Remove(utils.MediaPath(material.File)); err != nil && !os.IsNotExist(err) {
		log.Printf("Error removing material file %s: %v", material.File, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Material deleted successfully!", nil)
}

// CheckUploadProgress reports the byte counters of an in-flight upload. A
// missing id means the upload finished or was never started.
func CheckUploadProgress(c *fiber.Ctx) error {
	uploadID := c.Params("upload_id")
	total, uploaded, ok := utils.GetUploadProgress(uploadID)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Upload not found!", nil)
	}

	progress := 0.0
	if total > 0 {
		progress = float64(uploaded) / float64(total) * 100
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Upload progress fetched successfully!", fiber.Map{
		"total":    total,
		"uploaded": uploaded,
		"progress": progress,
	})
}
