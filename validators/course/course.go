package courseValidator

import (
	"regexp"
	"strings"

	"scw/middleware"

	"github.com/gofiber/fiber/v2"
)

var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-_.]+[a-zA-Z0-9]$`)

// UpdateSettingsRequest is the validated course settings payload.
type UpdateSettingsRequest struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	MaxMembers      *int    `json:"max_members"`
	DifficultyLevel *int    `json:"difficulty_level"`
	IsPublished     *bool   `json:"is_published"`
	StartDate       *string `json:"start_date"` // YYYY-MM-DD
	EndDate         *string `json:"end_date"`   // YYYY-MM-DD
	DomainName      *string `json:"domain_name"`
	EnrollmentKey   *string `json:"enrollment_key"`
	JupyterlabImage *string `json:"jupyterlab_image"`
}

// EnrollRequest carries the optional enrollment key.
type EnrollRequest struct {
	EnrollmentKey string `json:"enrollment_key"`
}

func UpdateSettings() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(UpdateSettingsRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.MaxMembers != nil && *reqData.MaxMembers < 1 {
			errors["max_members"] = "Group capacity must be at least 1!"
		}
		if reqData.DifficultyLevel != nil && (*reqData.DifficultyLevel < 1 || *reqData.DifficultyLevel > 5) {
			errors["difficulty_level"] = "Difficulty level must be between 1 and 5!"
		}
		if reqData.DomainName != nil && *reqData.DomainName != "" && !domainPattern.MatchString(*reqData.DomainName) {
			errors["domain_name"] = "Invalid domain name format!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedSettings", reqData)
		return c.Next()
	}
}

func Enroll() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(EnrollRequest)

		// Body is optional when the course has no enrollment key
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}

		c.Locals("validatedEnroll", reqData)
		return c.Next()
	}
}

// CreateModuleRequest is the validated module creation payload.
type CreateModuleRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	DifficultyLevel int    `json:"difficulty_level"`
}

// UpdateModuleRequest is the validated module update payload.
type UpdateModuleRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func CreateModule() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreateModuleRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if strings.TrimSpace(reqData.Title) == "" {
			errors["title"] = "Title is required!"
		}
		if reqData.DifficultyLevel != 0 && (reqData.DifficultyLevel < 1 || reqData.DifficultyLevel > 5) {
			errors["difficulty_level"] = "Difficulty level must be between 1 and 5!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedModule", reqData)
		return c.Next()
	}
}

func UpdateModule() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(UpdateModuleRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if strings.TrimSpace(reqData.Title) == "" {
			return middleware.ValidationErrorResponse(c, map[string]string{"title": "Title is required!"})
		}

		c.Locals("validatedModuleUpdate", reqData)
		return c.Next()
	}
}

// ReorderRequest carries id/order pairs for modules or lessons.
type ReorderRequest struct {
	Items []ReorderItem `json:"items"`
}

type ReorderItem struct {
	ID    uint `json:"id"`
	Order int  `json:"order"`
}

func Reorder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ReorderRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if len(reqData.Items) == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{"items": "At least one item is required!"})
		}

		c.Locals("validatedReorder", reqData)
		return c.Next()
	}
}
