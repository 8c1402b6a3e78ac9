package submissionController

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scw/config"
	"scw/database"
	"scw/middleware"
	"scw/models"
	courseModels "scw/models/course"
	"scw/utils"
	submissionValidator "scw/validators/submission"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	course   *courseModels.Course
	lesson   *courseModels.Lesson
	exercise *courseModels.Exercise
	student  *models.User
}

func setupSubmitTest(t *testing.T) *testEnv {
	t.Helper()

	dataRoot := t.TempDir()
	config.AppConfig = &config.Config{
		JWTKey:            "test-secret",
		CourseID:          1,
		MediaRoot:         dataRoot,
		DataRoot:          dataRoot,
		ExerciseFilesRoot: filepath.Join(dataRoot, "exercise_files"),
		UserFilesRoot:     filepath.Join(dataRoot, "user_directories"),
		ProvisionWorkers:  1,
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	database.RunMigrations(db)
	database.Database = database.DbInstance{Db: db}
	utils.Provision = utils.NewProvisioner(db, utils.NewWorkerPool(1))

	student := models.User{Username: "ada", Email: "ada@example.com", Password: "x", IsStudent: true}
	require.NoError(t, db.Create(&student).Error)

	course := courseModels.Course{Title: "Data Science", InstructorID: 99, MaxMembers: 3, IsPublished: true}
	require.NoError(t, db.Create(&course).Error)
	module := courseModels.Module{CourseID: course.ID, InstructorID: 99, Title: "Basics", Order: 1}
	require.NoError(t, db.Create(&module).Error)
	lesson := courseModels.Lesson{ModuleID: module.ID, Title: "Pandas Intro", LessonType: courseModels.LessonExercise}
	require.NoError(t, db.Create(&lesson).Error)
	exercise := courseModels.Exercise{LessonID: lesson.ID, ExerciseType: courseModels.ExerciseJupyter, MaximumPoints: 10, PassPoints: 6}
	require.NoError(t, db.Create(&exercise).Error)

	app := fiber.New()
	app.Post("/course/lesson/:lesson_id/submit", middleware.JWTMiddleware, SubmitExercise)

	return &testEnv{app: app, db: db, course: &course, lesson: &lesson, exercise: &exercise, student: &student}
}

func (e *testEnv) joinGroup(t *testing.T) *courseModels.Group {
	t.Helper()
	require.NoError(t, e.db.Create(&courseModels.Enrollment{UserID: e.student.ID, CourseID: e.course.ID}).Error)
	group := courseModels.Group{CourseID: e.course.ID, GroupNumber: 1}
	require.NoError(t, e.db.Create(&group).Error)
	require.NoError(t, e.db.Create(&courseModels.GroupMember{GroupID: group.ID, UserID: e.student.ID}).Error)
	return &group
}

func (e *testEnv) submit(t *testing.T) *http.Response {
	t.Helper()
	token, err := middleware.GenerateJWT(e.student.ID, e.student.Username, e.student.Email)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/course/lesson/1/submit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestSubmitWithoutGroupFails(t *testing.T) {
	env := setupSubmitTest(t)

	resp := env.submit(t)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["message"], "not in a group")
}

func TestSubmitAfterDeadlineFails(t *testing.T) {
	env := setupSubmitTest(t)
	env.joinGroup(t)

	yesterday := time.Now().AddDate(0, 0, -1)
	require.NoError(t, env.db.Model(env.course).Update("end_date", yesterday).Error)

	resp := env.submit(t)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["message"], "deadline")

	var count int64
	env.db.Model(&courseModels.Submission{}).Count(&count)
	assert.Zero(t, count)
}

func TestSubmitWithoutWorkspaceFails(t *testing.T) {
	env := setupSubmitTest(t)
	env.joinGroup(t)

	resp := env.submit(t)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["message"], "No work found")
}

func TestSubmitCollectsNotebooks(t *testing.T) {
	env := setupSubmitTest(t)
	group := env.joinGroup(t)

	workDir := utils.GroupLessonDir(group.ID, env.lesson.Title)
	require.NoError(t, os.MkdirAll(workDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "task.ipynb"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "notes.txt"), []byte("x"), 0644))

	resp := env.submit(t)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["file_count"])
	assert.NotEmpty(t, data["submitted_at"])

	var submission courseModels.Submission
	require.NoError(t, env.db.First(&submission).Error)
	assert.Equal(t, env.exercise.ID, submission.ExerciseID)
	assert.Equal(t, env.student.ID, submission.StudentID)
	assert.Nil(t, submission.Score)

	var fileCount int64
	env.db.Model(&courseModels.SubmissionFile{}).Where("submission_id = ?", submission.ID).Count(&fileCount)
	assert.Equal(t, int64(1), fileCount)
}

func TestGradeGateByEndDate(t *testing.T) {
	env := setupSubmitTest(t)

	instructor := models.User{Username: "prof", Email: "prof@example.com", Password: "x", IsInstructor: true}
	require.NoError(t, env.db.Create(&instructor).Error)
	admin := models.User{Username: "root", Email: "root@example.com", Password: "x", IsSuperuser: true}
	require.NoError(t, env.db.Create(&admin).Error)

	submission := courseModels.Submission{ExerciseID: env.exercise.ID, StudentID: env.student.ID}
	require.NoError(t, env.db.Create(&submission).Error)

	env.app.Patch("/submission/:submission_id/grade",
		middleware.JWTMiddleware, middleware.RequireInstructor(), submissionValidator.Grade(), GradeSubmission)

	grade := func(user *models.User) *http.Response {
		token, err := middleware.GenerateJWT(user.ID, user.Username, user.Email)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPatch, "/submission/1/grade",
			strings.NewReader(`{"score": 8, "feedback": "well done"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	// Course still running: instructors are locked out, superusers are not
	assert.Equal(t, fiber.StatusForbidden, grade(&instructor).StatusCode)
	assert.Equal(t, fiber.StatusOK, grade(&admin).StatusCode)

	yesterday := time.Now().AddDate(0, 0, -1)
	require.NoError(t, env.db.Model(env.course).Update("end_date", yesterday).Error)
	assert.Equal(t, fiber.StatusOK, grade(&instructor).StatusCode)

	var graded courseModels.Submission
	require.NoError(t, env.db.First(&graded, submission.ID).Error)
	require.NotNil(t, graded.Score)
	assert.Equal(t, 8.0, *graded.Score)
	require.NotNil(t, graded.Passed)
	assert.True(t, *graded.Passed)
}

func TestDashboardListsJupyterExercisesOnly(t *testing.T) {
	env := setupSubmitTest(t)

	reading := courseModels.Lesson{ModuleID: env.lesson.ModuleID, Title: "Pen and Paper", LessonType: courseModels.LessonExercise}
	require.NoError(t, env.db.Create(&reading).Error)
	traditional := courseModels.Exercise{LessonID: reading.ID, ExerciseType: courseModels.ExerciseTraditional, MaximumPoints: 10}
	require.NoError(t, env.db.Create(&traditional).Error)

	admin := models.User{Username: "root", Email: "root@example.com", Password: "x", IsSuperuser: true}
	require.NoError(t, env.db.Create(&admin).Error)

	env.app.Get("/submission/dashboard",
		middleware.JWTMiddleware, middleware.RequireInstructor(), SubmissionsDashboard)

	token, err := middleware.GenerateJWT(admin.ID, admin.Username, admin.Email)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/submission/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	rows := data["exercises"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, float64(env.exercise.ID), row["exercise_id"])
}

func TestSubmitOnEndDateSucceeds(t *testing.T) {
	env := setupSubmitTest(t)
	group := env.joinGroup(t)

	today := time.Now()
	require.NoError(t, env.db.Model(env.course).Update("end_date", today).Error)

	workDir := utils.GroupLessonDir(group.ID, env.lesson.Title)
	require.NoError(t, os.MkdirAll(workDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "task.ipynb"), []byte("{}"), 0644))

	resp := env.submit(t)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
