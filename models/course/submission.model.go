package course

import (
	"time"

	"gorm.io/gorm"
)

// Submission is one student-submit action for an exercise. Score and
// feedback stay unset until an instructor grades it; Passed is derived from
// the exercise pass mark whenever a score is stored.
type Submission struct {
	gorm.Model
	ExerciseID  uint      `json:"exercise_id" gorm:"index:idx_exercise_student;not null"`
	StudentID   uint      `json:"student_id" gorm:"index:idx_exercise_student;not null"`
	SubmittedAt time.Time `json:"submitted_at" gorm:"index;autoCreateTime"`
	Score       *float64  `json:"score"`
	Passed      *bool     `json:"passed" gorm:"index"`
	Feedback    string    `json:"feedback" gorm:"type:text"`
}

// BeforeSave re-derives Passed from the exercise pass mark whenever a score
// is present, so writes that bypass ApplyGrade stay consistent.
func (s *Submission) BeforeSave(tx *gorm.DB) error {
	if s.Score == nil || s.ExerciseID == 0 {
		return nil
	}
	var exercise Exercise
	if err := tx.First(&exercise, s.ExerciseID).Error; err != nil {
		return err
	}
	passed := *s.Score >= float64(exercise.PassPoints)
	s.Passed = &passed
	return nil
}

// ApplyGrade stores a clamped score and feedback and derives the passed
// flag. Out-of-range scores are capped, not rejected.
func (s *Submission) ApplyGrade(score float64, feedback string, exercise *Exercise) {
	if score < 0 {
		score = 0
	}
	if score > float64(exercise.MaximumPoints) {
		score = float64(exercise.MaximumPoints)
	}
	passed := score >= float64(exercise.PassPoints)
	s.Score = &score
	s.Passed = &passed
	s.Feedback = feedback
}

// SubmissionFile is one physical file captured at submission time.
type SubmissionFile struct {
	gorm.Model
	SubmissionID uint   `json:"submission_id" gorm:"index;not null"`
	File         string `json:"file" gorm:"not null"` // path relative to media root
	Description  string `json:"description"`
}
