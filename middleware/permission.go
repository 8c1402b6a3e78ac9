package middleware

import (
	"scw/database"
	"scw/models"

	"github.com/gofiber/fiber/v2"
)

// CurrentUser loads the authenticated user set by JWTMiddleware.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return nil, fiber.ErrUnauthorized
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return nil, fiber.ErrUnauthorized
	}
	return &user, nil
}

// RequireRole returns a middleware that loads the current user, checks it
// against the given predicate and stores it in c.Locals("user").
func RequireRole(check func(*models.User) bool, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  false,
				"message": "Unauthorized: User not found",
				"data":    nil,
			})
		}

		if !check(user) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status":  false,
				"message": message,
				"data":    nil,
			})
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// RequireInstructor admits instructors and superusers.
func RequireInstructor() fiber.Handler {
	return RequireRole(func(u *models.User) bool {
		return u.IsInstructor || u.IsSuperuser
	}, "Only instructors can access this resource!")
}

// RequireStaff admits staff, instructors and superusers.
func RequireStaff() fiber.Handler {
	return RequireRole(func(u *models.User) bool {
		return u.IsStaff || u.IsInstructor || u.IsSuperuser
	}, "You do not have permission to access this resource!")
}

// RequireSuperuser admits superusers only.
func RequireSuperuser() fiber.Handler {
	return RequireRole(func(u *models.User) bool {
		return u.IsSuperuser
	}, "Only administrators can access this resource!")
}
