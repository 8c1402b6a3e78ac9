package course

import "gorm.io/gorm"

// Enrollment tracks a student's enrollment in the course. A student holds at
// most one enrollment.
type Enrollment struct {
	gorm.Model
	UserID   uint    `json:"user_id" gorm:"uniqueIndex;not null"`
	CourseID uint    `json:"course_id" gorm:"index;not null"`
	Progress float64 `json:"progress" gorm:"default:0"` // completion percentage (0-100)
}
