package courseRoutes

import (
	controllers "scw/controllers/course"
	"scw/middleware"
	courseValidator "scw/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminCourseRoutes registers the instructor and superuser surface for
// course structure, lessons and exercise files.
func SetupAdminCourseRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.JWTMiddleware)

	// Course settings and user administration
	adminGroup.Put("/course/settings", middleware.RequireSuperuser(), courseValidator.UpdateSettings(), controllers.UpdateSettings)
	adminGroup.Patch("/user/role", middleware.RequireSuperuser(), controllers.ChangeRole)
	adminGroup.Get("/users", middleware.RequireSuperuser(), controllers.ListUsers)

	// Module management
	moduleGroup := adminGroup.Group("/module", middleware.RequireInstructor())
	moduleGroup.Post("/", courseValidator.CreateModule(), controllers.CreateModule)
	moduleGroup.Get("/list", controllers.ListModules)
	moduleGroup.Patch("/reorder", middleware.RequireSuperuser(), courseValidator.Reorder(), controllers.ReorderModules)
	moduleGroup.Get("/:module_id", controllers.GetModule)
	moduleGroup.Put("/:module_id", courseValidator.UpdateModule(), controllers.UpdateModule)
	moduleGroup.Delete("/:module_id", controllers.DeleteModule)
	moduleGroup.Post("/:module_id/lesson", controllers.CreateLesson)
	moduleGroup.Patch("/:module_id/lesson/reorder", courseValidator.Reorder(), controllers.ReorderLessons)

	// Lesson editing
	lessonGroup := adminGroup.Group("/lesson", middleware.RequireInstructor())
	lessonGroup.Get("/:lesson_id", controllers.GetLesson)
	lessonGroup.Put("/:lesson_id", controllers.SaveLesson)
	lessonGroup.Delete("/:lesson_id", controllers.DeleteLesson)

	// Exercise files
	exerciseGroup := adminGroup.Group("/exercise", middleware.RequireInstructor())
	exerciseGroup.Post("/:exercise_id/solution", controllers.UploadReferenceSolution)
	exerciseGroup.Delete("/:exercise_id/file", controllers.DeleteJupyterFile)
	exerciseGroup.Delete("/:exercise_id/material/:material_id", controllers.DeleteMaterial)

	adminGroup.Get("/upload/progress/:upload_id", middleware.RequireInstructor(), controllers.CheckUploadProgress)
}
