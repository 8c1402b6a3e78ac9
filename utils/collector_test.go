package utils

import (
	"path/filepath"
	"testing"

	courseModels "scw/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectSubmissionFilesCopiesNotebooksOnly(t *testing.T) {
	db := setupTestEnv(t)
	_, exercise := seedJupyterLesson(t, db, "Pandas Intro")

	group := courseModels.Group{CourseID: 1, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)

	workDir := GroupLessonDir(group.ID, "Pandas Intro")
	writeFile(t, filepath.Join(workDir, "task.ipynb"), "{\"cells\": []}")
	writeFile(t, filepath.Join(workDir, "extra", "analysis.ipynb"), "{}")
	writeFile(t, filepath.Join(workDir, "notes.txt"), "do not collect")
	writeFile(t, filepath.Join(workDir, "data", "input.csv"), "a,b\n")

	submission := courseModels.Submission{ExerciseID: exercise.ID, StudentID: 42}
	require.NoError(t, db.Create(&submission).Error)

	count, err := CollectSubmissionFiles(db, &submission, group.ID, "Pandas Intro")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	timestamp := submission.SubmittedAt.Format("20060102_150405")
	dst := SubmissionDir(group.ID, "Pandas Intro", timestamp)
	assert.FileExists(t, filepath.Join(dst, "task.ipynb"))
	assert.FileExists(t, filepath.Join(dst, "extra", "analysis.ipynb"))
	assert.NoFileExists(t, filepath.Join(dst, "notes.txt"))
	assert.NoFileExists(t, filepath.Join(dst, "data", "input.csv"))
}

func TestCollectSubmissionFilesStoresMediaRelativePaths(t *testing.T) {
	db := setupTestEnv(t)
	_, exercise := seedJupyterLesson(t, db, "Pandas Intro")

	group := courseModels.Group{CourseID: 1, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)

	writeFile(t, filepath.Join(GroupLessonDir(group.ID, "Pandas Intro"), "task.ipynb"), "{}")

	submission := courseModels.Submission{ExerciseID: exercise.ID, StudentID: 42}
	require.NoError(t, db.Create(&submission).Error)

	_, err := CollectSubmissionFiles(db, &submission, group.ID, "Pandas Intro")
	require.NoError(t, err)

	var files []courseModels.SubmissionFile
	require.NoError(t, db.Where("submission_id = ?", submission.ID).Find(&files).Error)
	require.Len(t, files, 1)

	assert.False(t, filepath.IsAbs(files[0].File))
	assert.FileExists(t, MediaPath(files[0].File))
	assert.Equal(t, "Submitted file: task.ipynb", files[0].Description)
}

func TestCollectSubmissionFilesEmptyWorkspace(t *testing.T) {
	db := setupTestEnv(t)
	_, exercise := seedJupyterLesson(t, db, "Pandas Intro")

	group := courseModels.Group{CourseID: 1, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)

	// Workspace exists but holds no notebooks
	writeFile(t, filepath.Join(GroupLessonDir(group.ID, "Pandas Intro"), "readme.txt"), "hello")

	submission := courseModels.Submission{ExerciseID: exercise.ID, StudentID: 42}
	require.NoError(t, db.Create(&submission).Error)

	count, err := CollectSubmissionFiles(db, &submission, group.ID, "Pandas Intro")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSuccessiveSubmissionsDoNotOverwrite(t *testing.T) {
	db := setupTestEnv(t)
	_, exercise := seedJupyterLesson(t, db, "Pandas Intro")

	group := courseModels.Group{CourseID: 1, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)

	writeFile(t, filepath.Join(GroupLessonDir(group.ID, "Pandas Intro"), "task.ipynb"), "{}")

	first := courseModels.Submission{ExerciseID: exercise.ID, StudentID: 42}
	require.NoError(t, db.Create(&first).Error)
	_, err := CollectSubmissionFiles(db, &first, group.ID, "Pandas Intro")
	require.NoError(t, err)

	second := courseModels.Submission{ExerciseID: exercise.ID, StudentID: 42}
	require.NoError(t, db.Create(&second).Error)
	// Force a distinct timestamp segment even within the same second
	second.SubmittedAt = second.SubmittedAt.Add(1e9)
	_, err = CollectSubmissionFiles(db, &second, group.ID, "Pandas Intro")
	require.NoError(t, err)

	firstDir := SubmissionDir(group.ID, "Pandas Intro", first.SubmittedAt.Format("20060102_150405"))
	secondDir := SubmissionDir(group.ID, "Pandas Intro", second.SubmittedAt.Format("20060102_150405"))
	assert.NotEqual(t, firstDir, secondDir)
	assert.FileExists(t, filepath.Join(firstDir, "task.ipynb"))
	assert.FileExists(t, filepath.Join(secondDir, "task.ipynb"))
}
