package course

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

const (
	ExerciseTraditional = "traditional"
	ExerciseJupyter     = "jupyter"
)

// Exercise is the one-to-one exercise payload of an exercise-type lesson.
type Exercise struct {
	gorm.Model
	LessonID          uint   `json:"lesson_id" gorm:"uniqueIndex;not null"`
	File              string `json:"file"`               // path relative to media root
	ReferenceSolution string `json:"reference_solution"` // path relative to media root
	ExerciseType      string `json:"exercise_type" gorm:"default:'traditional'"`
	MaximumPoints     int    `json:"maximum_points" gorm:"default:10"`
	PassPoints        int    `json:"pass_points" gorm:"default:0"`
	JupyterhubURL     string `json:"jupyterhub_url"`
}

// Validate enforces the exercise invariants before persistence.
func (e *Exercise) Validate() error {
	if e.ExerciseType == ExerciseJupyter && e.File != "" && !strings.HasSuffix(e.File, ".ipynb") {
		return errors.New("jupyter notebook exercises must use .ipynb files")
	}
	if e.ReferenceSolution != "" && !strings.HasSuffix(e.ReferenceSolution, ".ipynb") {
		return errors.New("reference solution must be a Jupyter notebook (.ipynb) file")
	}
	if e.MaximumPoints < e.PassPoints {
		return errors.New("maximum points must be greater than or equal to pass points")
	}
	return nil
}

// BeforeSave runs the invariant checks on every create and update.
func (e *Exercise) BeforeSave(tx *gorm.DB) error {
	return e.Validate()
}

// ExerciseMaterial is an auxiliary file attached to an exercise. The whole
// batch is replaced whenever new materials are uploaded.
type ExerciseMaterial struct {
	gorm.Model
	ExerciseID  uint   `json:"exercise_id" gorm:"index;not null"`
	File        string `json:"file" gorm:"not null"` // path relative to media root
	Description string `json:"description"`
}
