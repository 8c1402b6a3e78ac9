package supportControllers

import (
	"log"

	"scw/database"
	"scw/middleware"
	"scw/models"
	"scw/utils"
	supportValidators "scw/validators/support"

	"github.com/gofiber/fiber/v2"
)

// CreateTicket opens a support ticket for the current user, with an optional
// screenshot attached as multipart file "image".
func CreateTicket(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedTicket").(*supportValidators.CreateTicketRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	ticket := models.Ticket{
		UserID:      user.ID,
		Subject:     reqData.Subject,
		Description: reqData.Description,
		Status:      models.TicketOpen,
	}

	if imageFile, err := c.FormFile("image"); err == nil {
		savedPath, err := utils.SaveUploadedFileUnique(imageFile, utils.MediaPath("ticket_images"))
		if err != nil {
			log.Printf("Error saving ticket image: %v", err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save ticket image!", nil)
		}
		rel, err := utils.MediaRelative(savedPath)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save ticket image!", nil)
		}
		ticket.Image = rel
	}

	if err := database.Database.Db.Create(&ticket).Error; err != nil {
		log.Printf("Error creating ticket: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create ticket!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Ticket created successfully!", ticket)
}

// ListTickets returns the caller's tickets, or every ticket for staff and
// instructors, with pagination and an optional status filter.
func ListTickets(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&models.Ticket{}).Where("is_deleted = ?", false)
	if !user.CanManageTickets() {
		db = db.Where("user_id = ?", user.ID)
	}
	if status := c.Query("status"); status != "" {
		db = db.Where("status = ?", status)
	}

	var total int64
	db.Count(&total)

	var tickets []models.Ticket
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&tickets).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch tickets!", nil)
	}

	type ticketView struct {
		models.Ticket
		ImageURL string `json:"image_url"`
	}
	views := make([]ticketView, len(tickets))
	for i, t := range tickets {
		views[i] = ticketView{Ticket: t, ImageURL: utils.GetFileURL(t.Image)}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Tickets fetched successfully!", fiber.Map{
		"tickets": views,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// UpdateTicket changes status, assignment or resolution notes. Staff and
// instructors only; a new assignee gets notified by email.
func UpdateTicket(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	if !user.CanManageTickets() {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You don't have permission to update tickets!", nil)
	}

	ticketID, err := c.ParamsInt("ticket_id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid ticket id!", nil)
	}

	reqData, ok := c.Locals("validatedTicketUpdate").(*supportValidators.UpdateTicketRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var ticket models.Ticket
	if err := db.Where("id = ? AND is_deleted = ?", ticketID, false).First(&ticket).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Ticket not found!", nil)
	}

	if reqData.Status != nil {
		ticket.Status = *reqData.Status
	}
	if reqData.ResolutionNotes != nil {
		ticket.ResolutionNotes = *reqData.ResolutionNotes
	}

	var newAssignee *models.User
	if reqData.AssignedToID != nil {
		var assignee models.User
		if err := db.Where("id = ? AND is_deleted = ?", *reqData.AssignedToID, false).First(&assignee).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Assignee not found!", nil)
		}
		if !assignee.CanManageTickets() {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Tickets can only be assigned to staff or instructors!", nil)
		}
		changed := ticket.AssignedToID == nil || *ticket.AssignedToID != assignee.ID
		ticket.AssignedToID = &assignee.ID
		if changed {
			newAssignee = &assignee
		}
	}

	if err := db.Save(&ticket).Error; err != nil {
		log.Printf("Error updating ticket %d: %v", ticket.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update ticket!", nil)
	}

	if newAssignee != nil {
		utils.SendTicketAssignedEmail(newAssignee.FullName(), newAssignee.Email, ticket.Subject, ticket.ID)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Ticket updated successfully!", ticket)
}
