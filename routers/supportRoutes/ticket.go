package supportRoutes

import (
	supportControllers "scw/controllers/support"
	"scw/middleware"
	supportValidators "scw/validators/support"

	"github.com/gofiber/fiber/v2"
)

func SetupSupportRoutes(app *fiber.App) {
	supportGroup := app.Group("/support", middleware.JWTMiddleware)

	supportGroup.Post("/ticket", supportValidators.CreateTicket(), supportControllers.CreateTicket)
	supportGroup.Get("/ticket/list", supportControllers.ListTickets)
	supportGroup.Patch("/ticket/:ticket_id", supportValidators.UpdateTicket(), supportControllers.UpdateTicket)
}
