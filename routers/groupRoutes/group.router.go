package groupRoutes

import (
	controllers "scw/controllers/course"
	"scw/middleware"
	groupValidator "scw/validators/group"

	"github.com/gofiber/fiber/v2"
)

func SetupGroupRoutes(app *fiber.App) {
	groupGroup := app.Group("/group", middleware.JWTMiddleware)

	// Students pick their own group; everything else is instructor-side.
	groupGroup.Post("/join", groupValidator.Join(), controllers.JoinGroup)

	groupGroup.Post("/create", middleware.RequireInstructor(), controllers.CreateGroup)
	groupGroup.Get("/list", middleware.RequireInstructor(), controllers.ListGroups)
	groupGroup.Get("/:group_id/members", controllers.GetGroupMembers)
	groupGroup.Post("/:group_id/member", middleware.RequireInstructor(), groupValidator.Member(), controllers.AddGroupMember)
	groupGroup.Delete("/:group_id/member", middleware.RequireInstructor(), groupValidator.Member(), controllers.RemoveGroupMember)
	groupGroup.Delete("/:group_id", middleware.RequireInstructor(), controllers.DeleteGroup)
}
