package supportValidators

import (
	"strings"

	"scw/middleware"
	"scw/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// CreateTicketRequest holds the form fields of a new support ticket. The
// optional image arrives as a multipart file and is handled in the
// controller.
type CreateTicketRequest struct {
	Subject     string `json:"subject" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"required,min=5"`
}

// UpdateTicketRequest carries a status change, assignment and resolution
// notes.
type UpdateTicketRequest struct {
	Status          *string `json:"status" validate:"omitempty,oneof=open in_progress closed"`
	AssignedToID    *uint   `json:"assigned_to_id"`
	ResolutionNotes *string `json:"resolution_notes"`
}

func CreateTicket() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := &CreateTicketRequest{
			Subject:     strings.TrimSpace(c.FormValue("subject")),
			Description: strings.TrimSpace(c.FormValue("description")),
		}

		if err := validate.Struct(reqData); err != nil {
			errors := make(map[string]string)
			for _, fieldErr := range err.(validator.ValidationErrors) {
				switch fieldErr.Field() {
				case "Subject":
					errors["subject"] = "Subject must be between 3 and 255 characters!"
				case "Description":
					errors["description"] = "Description must be at least 5 characters long!"
				}
			}
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedTicket", reqData)
		return c.Next()
	}
}

func UpdateTicket() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(UpdateTicketRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"status": "Status must be one of: " + strings.Join([]string{models.TicketOpen, models.TicketInProgress, models.TicketClosed}, ", "),
			})
		}

		c.Locals("validatedTicketUpdate", reqData)
		return c.Next()
	}
}
