package course

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestApplyGradeDerivesPassed(t *testing.T) {
	exercise := Exercise{MaximumPoints: 10, PassPoints: 6}

	var s Submission
	s.ApplyGrade(7, "good work", &exercise)

	require.NotNil(t, s.Score)
	require.NotNil(t, s.Passed)
	assert.Equal(t, 7.0, *s.Score)
	assert.True(t, *s.Passed)
	assert.Equal(t, "good work", s.Feedback)

	s.ApplyGrade(5.5, "", &exercise)
	assert.False(t, *s.Passed)
}

func TestApplyGradeClampsScore(t *testing.T) {
	exercise := Exercise{MaximumPoints: 10, PassPoints: 6}

	var s Submission
	s.ApplyGrade(42, "", &exercise)
	assert.Equal(t, 10.0, *s.Score)
	assert.True(t, *s.Passed)

	s.ApplyGrade(-3, "", &exercise)
	assert.Equal(t, 0.0, *s.Score)
	assert.False(t, *s.Passed)
}

func TestApplyGradeExactPassMark(t *testing.T) {
	exercise := Exercise{MaximumPoints: 10, PassPoints: 6}

	var s Submission
	s.ApplyGrade(6, "", &exercise)
	assert.True(t, *s.Passed)
}

func TestSaveDerivesPassedWithoutApplyGrade(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Exercise{}, &Submission{}))

	exercise := Exercise{LessonID: 1, ExerciseType: ExerciseJupyter, File: "exercise_files/L/task.ipynb", MaximumPoints: 10, PassPoints: 6}
	require.NoError(t, db.Create(&exercise).Error)

	score := 7.0
	submission := Submission{ExerciseID: exercise.ID, StudentID: 10, Score: &score}
	require.NoError(t, db.Create(&submission).Error)
	require.NotNil(t, submission.Passed)
	assert.True(t, *submission.Passed)

	low := 4.0
	submission.Score = &low
	require.NoError(t, db.Save(&submission).Error)
	require.NotNil(t, submission.Passed)
	assert.False(t, *submission.Passed)

	// Ungraded rows stay untouched
	blank := Submission{ExerciseID: exercise.ID, StudentID: 11}
	require.NoError(t, db.Create(&blank).Error)
	assert.Nil(t, blank.Passed)
}

func TestDeadlinePassed(t *testing.T) {
	end := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	course := Course{EndDate: &end}

	// The end date itself is still open, even late in the day
	assert.False(t, course.DeadlinePassed(time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)))
	assert.False(t, course.DeadlinePassed(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)))
	assert.True(t, course.DeadlinePassed(time.Date(2026, 3, 16, 0, 0, 1, 0, time.UTC)))
}

func TestDeadlineWithoutEndDate(t *testing.T) {
	course := Course{}
	assert.False(t, course.DeadlinePassed(time.Now()))
}

func TestExerciseValidation(t *testing.T) {
	jupyter := Exercise{ExerciseType: ExerciseJupyter, File: "exercise_files/L/task.txt", MaximumPoints: 10}
	assert.Error(t, jupyter.Validate())

	jupyter.File = "exercise_files/L/task.ipynb"
	assert.NoError(t, jupyter.Validate())

	jupyter.ReferenceSolution = "solutions/answer.pdf"
	assert.Error(t, jupyter.Validate())

	jupyter.ReferenceSolution = "solutions/answer.ipynb"
	assert.NoError(t, jupyter.Validate())

	inverted := Exercise{ExerciseType: ExerciseTraditional, MaximumPoints: 5, PassPoints: 8}
	assert.Error(t, inverted.Validate())
}
