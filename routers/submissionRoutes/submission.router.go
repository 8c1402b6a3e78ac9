package submissionRoutes

import (
	submissionController "scw/controllers/submission"
	"scw/middleware"
	submissionValidator "scw/validators/submission"

	"github.com/gofiber/fiber/v2"
)

func SetupSubmissionRoutes(app *fiber.App) {
	submissionGroup := app.Group("/submission", middleware.JWTMiddleware, middleware.RequireInstructor())

	submissionGroup.Get("/dashboard", submissionController.SubmissionsDashboard)
	submissionGroup.Get("/statistics", submissionController.SubmissionStatistics)
	submissionGroup.Get("/exercise/:exercise_id", submissionController.ExerciseSubmissions)
	submissionGroup.Patch("/:submission_id/grade", submissionValidator.Grade(), submissionController.GradeSubmission)
}
