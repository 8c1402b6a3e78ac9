package course

import (
	"scw/models"

	"gorm.io/gorm"
)

// Module represents a section within the course, owned by one instructor.
type Module struct {
	gorm.Model
	CourseID        uint   `json:"course_id" gorm:"index;not null"`
	InstructorID    uint   `json:"instructor_id" gorm:"index;not null"`
	Title           string `json:"title"`
	Description     string `json:"description" gorm:"type:text"`
	Order           int    `json:"order" gorm:"column:order_index;default:0"`
	DifficultyLevel int    `json:"difficulty_level" gorm:"default:1"`
}

// CanEdit reports whether a user may modify this module.
func (m *Module) CanEdit(user *models.User) bool {
	return user.IsSuperuser || user.ID == m.InstructorID
}
