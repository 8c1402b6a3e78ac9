package groupValidator

import (
	"scw/middleware"

	"github.com/gofiber/fiber/v2"
)

// MemberRequest identifies the student to add or remove.
type MemberRequest struct {
	StudentID uint `json:"student_id"`
}

// JoinRequest identifies the group a student wants to join.
type JoinRequest struct {
	GroupID uint `json:"group_id"`
}

func Member() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(MemberRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if reqData.StudentID == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{"student_id": "Student ID is required!"})
		}

		c.Locals("validatedMember", reqData)
		return c.Next()
	}
}

func Join() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(JoinRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if reqData.GroupID == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{"group_id": "Group ID is required!"})
		}

		c.Locals("validatedJoin", reqData)
		return c.Next()
	}
}
