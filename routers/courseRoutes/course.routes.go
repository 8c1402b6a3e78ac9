package courseRoutes

import (
	controllers "scw/controllers/course"
	submissionController "scw/controllers/submission"
	"scw/middleware"
	courseValidator "scw/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes registers the student-facing course surface.
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course", middleware.JWTMiddleware)

	courseGroup.Get("/", controllers.GetCourse)
	courseGroup.Post("/enroll", courseValidator.Enroll(), controllers.Enroll)
	courseGroup.Get("/overview", controllers.CourseOverview)

	courseGroup.Get("/lesson/:lesson_id", controllers.LessonDetail)
	courseGroup.Post("/lesson/:lesson_id/complete", controllers.CompleteLesson)
	courseGroup.Post("/lesson/:lesson_id/submit", submissionController.SubmitExercise)
}
