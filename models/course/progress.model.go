package course

import (
	"time"

	"gorm.io/gorm"
)

// LessonProgress tracks one student's state for one lesson. Rows are created
// lazily the first time a lesson is viewed.
type LessonProgress struct {
	gorm.Model
	StudentID    uint       `json:"student_id" gorm:"uniqueIndex:idx_student_lesson;not null"`
	LessonID     uint       `json:"lesson_id" gorm:"uniqueIndex:idx_student_lesson;not null"`
	IsCompleted  bool       `json:"is_completed" gorm:"default:false;index"`
	CompletedAt  *time.Time `json:"completed_at"`
	LastAccessed time.Time  `json:"last_accessed" gorm:"autoUpdateTime"`
}

// GetOrCreateProgress upserts the (student, lesson) progress row.
func GetOrCreateProgress(db *gorm.DB, studentID, lessonID uint) (*LessonProgress, error) {
	var progress LessonProgress
	err := db.Where(LessonProgress{StudentID: studentID, LessonID: lessonID}).
		FirstOrCreate(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}
