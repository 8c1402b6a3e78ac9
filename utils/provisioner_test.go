package utils

import (
	"os"
	"path/filepath"
	"testing"

	"scw/config"
	courseModels "scw/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestEnv(t *testing.T) *gorm.DB {
	t.Helper()

	dataRoot := t.TempDir()
	config.AppConfig = &config.Config{
		MediaRoot:         dataRoot,
		DataRoot:          dataRoot,
		ExerciseFilesRoot: filepath.Join(dataRoot, "exercise_files"),
		UserFilesRoot:     filepath.Join(dataRoot, "user_directories"),
		ProvisionWorkers:  2,
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&courseModels.Course{},
		&courseModels.Module{},
		&courseModels.Lesson{},
		&courseModels.Exercise{},
		&courseModels.Group{},
		&courseModels.GroupMember{},
		&courseModels.Submission{},
		&courseModels.SubmissionFile{},
	)
	require.NoError(t, err)
	return db
}

// seedJupyterLesson creates course -> module -> lesson -> jupyter exercise
// and writes a small canonical tree for the lesson.
func seedJupyterLesson(t *testing.T, db *gorm.DB, title string) (*courseModels.Lesson, *courseModels.Exercise) {
	t.Helper()

	course := courseModels.Course{Title: "Data Science", InstructorID: 1, MaxMembers: 3}
	require.NoError(t, db.Create(&course).Error)
	module := courseModels.Module{CourseID: course.ID, InstructorID: 1, Title: "Basics", Order: 1}
	require.NoError(t, db.Create(&module).Error)
	lesson := courseModels.Lesson{ModuleID: module.ID, Title: title, LessonType: courseModels.LessonExercise}
	require.NoError(t, db.Create(&lesson).Error)
	exercise := courseModels.Exercise{
		LessonID:     lesson.ID,
		File:         filepath.Join("exercise_files", title, "task.ipynb"),
		ExerciseType: courseModels.ExerciseJupyter,
	}
	require.NoError(t, db.Create(&exercise).Error)

	writeFile(t, filepath.Join(ExerciseDir(title), "task.ipynb"), "{\"cells\": []}")
	writeFile(t, filepath.Join(ExerciseDir(title), "data", "input.csv"), "a,b\n1,2\n")

	return &lesson, &exercise
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestProvisionGroupCopiesTree(t *testing.T) {
	db := setupTestEnv(t)
	_, exercise := seedJupyterLesson(t, db, "Pandas Intro")

	group := courseModels.Group{CourseID: 1, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)

	p := NewProvisioner(db, NewWorkerPool(1))
	require.NoError(t, p.ProvisionGroup(group.ID, exercise.ID))

	assert.FileExists(t, filepath.Join(GroupLessonDir(group.ID, "Pandas Intro"), "task.ipynb"))
	assert.FileExists(t, filepath.Join(GroupLessonDir(group.ID, "Pandas Intro"), "data", "input.csv"))
}

func TestProvisionGroupReplacesStudentWork(t *testing.T) {
	db := setupTestEnv(t)
	_, exercise := seedJupyterLesson(t, db, "Pandas Intro")

	group := courseModels.Group{CourseID: 1, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)

	// Pre-existing student scratch work in the destination
	writeFile(t, filepath.Join(GroupLessonDir(group.ID, "Pandas Intro"), "scratch.ipynb"), "{}")

	p := NewProvisioner(db, NewWorkerPool(1))
	require.NoError(t, p.ProvisionGroup(group.ID, exercise.ID))

	assert.NoFileExists(t, filepath.Join(GroupLessonDir(group.ID, "Pandas Intro"), "scratch.ipynb"))
	assert.FileExists(t, filepath.Join(GroupLessonDir(group.ID, "Pandas Intro"), "task.ipynb"))
}

func TestProvisionGroupMissingSourceIsNoop(t *testing.T) {
	db := setupTestEnv(t)
	_, exercise := seedJupyterLesson(t, db, "Pandas Intro")
	require.NoError(t, os.RemoveAll(ExerciseDir("Pandas Intro")))

	group := courseModels.Group{CourseID: 1, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)

	p := NewProvisioner(db, NewWorkerPool(1))
	assert.NoError(t, p.ProvisionGroup(group.ID, exercise.ID))
	assert.NoDirExists(t, GroupLessonDir(group.ID, "Pandas Intro"))
}

func TestProvisionGroupSkipsTraditionalExercises(t *testing.T) {
	db := setupTestEnv(t)
	_, exercise := seedJupyterLesson(t, db, "Pandas Intro")
	require.NoError(t, db.Model(exercise).Update("exercise_type", courseModels.ExerciseTraditional).Error)

	group := courseModels.Group{CourseID: 1, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)

	p := NewProvisioner(db, NewWorkerPool(1))
	assert.NoError(t, p.ProvisionGroup(group.ID, exercise.ID))
	assert.NoDirExists(t, GroupLessonDir(group.ID, "Pandas Intro"))
}

func TestProvisionGroupDeletedExerciseIsNoop(t *testing.T) {
	db := setupTestEnv(t)

	group := courseModels.Group{CourseID: 1, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)

	p := NewProvisioner(db, NewWorkerPool(1))
	assert.NoError(t, p.ProvisionGroup(group.ID, 9999))
}

func TestScheduleExerciseFanoutCoversAllGroups(t *testing.T) {
	db := setupTestEnv(t)
	_, exercise := seedJupyterLesson(t, db, "Pandas Intro")

	groupA := courseModels.Group{CourseID: 1, GroupNumber: 1}
	groupB := courseModels.Group{CourseID: 1, GroupNumber: 2}
	require.NoError(t, db.Create(&groupA).Error)
	require.NoError(t, db.Create(&groupB).Error)

	pool := NewWorkerPool(2)
	p := NewProvisioner(db, pool)
	p.ScheduleExerciseFanout(exercise.ID)
	pool.Shutdown()

	contentA, err := os.ReadFile(filepath.Join(GroupLessonDir(groupA.ID, "Pandas Intro"), "task.ipynb"))
	require.NoError(t, err)
	contentB, err := os.ReadFile(filepath.Join(GroupLessonDir(groupB.ID, "Pandas Intro"), "task.ipynb"))
	require.NoError(t, err)
	assert.Equal(t, contentA, contentB)
}

func TestScheduleGroupFanoutCoversAllJupyterExercises(t *testing.T) {
	db := setupTestEnv(t)
	seedJupyterLesson(t, db, "Pandas Intro")

	// Second jupyter lesson in the same module
	lesson := courseModels.Lesson{ModuleID: 1, Title: "NumPy Basics", LessonType: courseModels.LessonExercise}
	require.NoError(t, db.Create(&lesson).Error)
	exercise := courseModels.Exercise{LessonID: lesson.ID, File: "exercise_files/NumPy Basics/task.ipynb", ExerciseType: courseModels.ExerciseJupyter}
	require.NoError(t, db.Create(&exercise).Error)
	writeFile(t, filepath.Join(ExerciseDir("NumPy Basics"), "task.ipynb"), "{}")

	group := courseModels.Group{CourseID: 1, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)

	pool := NewWorkerPool(2)
	p := NewProvisioner(db, pool)
	p.ScheduleGroupFanout(group.ID)
	pool.Shutdown()

	assert.FileExists(t, filepath.Join(GroupLessonDir(group.ID, "Pandas Intro"), "task.ipynb"))
	assert.FileExists(t, filepath.Join(GroupLessonDir(group.ID, "NumPy Basics"), "task.ipynb"))
}

func TestRenameLessonDirsMovesCanonicalAndGroupTrees(t *testing.T) {
	db := setupTestEnv(t)
	_, exercise := seedJupyterLesson(t, db, "Old Title")

	group := courseModels.Group{CourseID: 1, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)

	p := NewProvisioner(db, NewWorkerPool(1))
	require.NoError(t, p.ProvisionGroup(group.ID, exercise.ID))

	// Student work sitting in the workspace must survive the rename
	writeFile(t, filepath.Join(GroupLessonDir(group.ID, "Old Title"), "work.ipynb"), "{}")

	require.NoError(t, p.RenameLessonDirs(1, "Old Title", "New Title"))

	assert.NoDirExists(t, ExerciseDir("Old Title"))
	assert.FileExists(t, filepath.Join(ExerciseDir("New Title"), "task.ipynb"))
	assert.NoDirExists(t, GroupLessonDir(group.ID, "Old Title"))
	assert.FileExists(t, filepath.Join(GroupLessonDir(group.ID, "New Title"), "work.ipynb"))
}

func TestRenameLessonDirsWithoutDirectoriesIsNoop(t *testing.T) {
	db := setupTestEnv(t)
	assert.NoError(t, NewProvisioner(db, NewWorkerPool(1)).RenameLessonDirs(1, "Ghost", "Phantom"))
}

func TestRemoveLessonDirs(t *testing.T) {
	db := setupTestEnv(t)
	_, exercise := seedJupyterLesson(t, db, "Pandas Intro")

	group := courseModels.Group{CourseID: 1, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)

	p := NewProvisioner(db, NewWorkerPool(1))
	require.NoError(t, p.ProvisionGroup(group.ID, exercise.ID))

	p.RemoveLessonDirs(1, "Pandas Intro")

	assert.NoDirExists(t, ExerciseDir("Pandas Intro"))
	assert.NoDirExists(t, GroupLessonDir(group.ID, "Pandas Intro"))
}
