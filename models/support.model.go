package models

import "gorm.io/gorm"

const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketClosed     = "closed"
)

// Ticket is a support request raised by any user. AssignedToID may only
// reference staff or instructor accounts.
type Ticket struct {
	gorm.Model
	UserID          uint   `json:"user_id" gorm:"index;not null"`
	Subject         string `json:"subject" gorm:"not null"`
	Description     string `json:"description" gorm:"type:text"`
	Image           string `json:"image"` // path relative to media root
	Status          string `json:"status" gorm:"default:'open';index"`
	AssignedToID    *uint  `json:"assigned_to_id"`
	ResolutionNotes string `json:"resolution_notes" gorm:"type:text"`
	IsDeleted       bool   `gorm:"default:false"`
}
