package course

import (
	"time"

	"gorm.io/gorm"
)

// Difficulty levels shared by courses and modules.
const (
	DifficultyBeginner     = 1
	DifficultyIntermediate = 2
	DifficultyAdvanced     = 3
	DifficultyProfessional = 4
	DifficultyDemo         = 5
)

// Course represents the single active course of the deployment.
type Course struct {
	gorm.Model
	Title           string     `json:"title" gorm:"default:'Untitled Course'"`
	Description     string     `json:"description" gorm:"type:text"`
	InstructorID    uint       `json:"instructor_id" gorm:"uniqueIndex;not null"` // one course per instructor
	StartDate       *time.Time `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
	DifficultyLevel int        `json:"difficulty_level" gorm:"default:1"`
	MaxMembers      int        `json:"max_members" gorm:"default:1"` // group capacity
	IsPublished     bool       `json:"is_published" gorm:"default:false"`
	DomainName      string     `json:"domain_name"` // JupyterHub host for this course
	EnrollmentKey   string     `json:"-"`
}

// DeadlinePassed reports whether submissions are closed. The end date itself
// is still a valid submission day.
func (c *Course) DeadlinePassed(now time.Time) bool {
	if c.EndDate == nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	ey, em, ed := c.EndDate.Date()
	end := time.Date(ey, em, ed, 0, 0, 0, 0, now.Location())
	return today.After(end)
}
