package course

import "gorm.io/gorm"

const (
	LessonVideo    = "video"
	LessonReading  = "reading"
	LessonExercise = "exercise"
)

// Lesson belongs to a module. Titles are unique per module because the
// canonical exercise directory on disk is keyed by lesson title.
type Lesson struct {
	gorm.Model
	ModuleID        uint   `json:"module_id" gorm:"uniqueIndex:idx_module_title;not null"`
	Title           string `json:"title" gorm:"uniqueIndex:idx_module_title;not null"`
	Order           int    `json:"order" gorm:"column:order_index;default:0"`
	LessonType      string `json:"lesson_type" gorm:"default:'reading'"`
	DurationMinutes int    `json:"duration" gorm:"default:10"`
	VideoFile       string `json:"video_file"` // path relative to media root
	LessonContent   string `json:"lesson_content" gorm:"type:text"`
}
