package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"scw/config"
	"scw/database"
	"scw/middleware"
	"scw/models"
	courseModels "scw/models/course"
	"scw/utils"
	courseValidator "scw/validators/course"
	groupValidator "scw/validators/group"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type publishEnv struct {
	app        *fiber.App
	db         *gorm.DB
	course     *courseModels.Course
	module     *courseModels.Module
	group      *courseModels.Group
	instructor *models.User
	superuser  *models.User
	student    *models.User
}

func setupPublishTest(t *testing.T) *publishEnv {
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

	instructor := models.User{Username: "grace", Email: "grace@example.com", Password: "x", IsInstructor: true}
	require.NoError(t, db.Create(&instructor).Error)
	superuser := models.User{Username: "root", Email: "root@example.com", Password: "x", IsSuperuser: true}
	require.NoError(t, db.Create(&superuser).Error)
	student := models.User{Username: "ada", Email: "ada@example.com", Password: "x", IsStudent: true}
	require.NoError(t, db.Create(&student).Error)

	course := courseModels.Course{Title: "Data Science", InstructorID: instructor.ID, MaxMembers: 3}
	require.NoError(t, db.Create(&course).Error)
	module := courseModels.Module{CourseID: course.ID, InstructorID: instructor.ID, Title: "Basics", Order: 1}
	require.NoError(t, db.Create(&module).Error)
	group := courseModels.Group{CourseID: course.ID, GroupNumber: 1}
	require.NoError(t, db.Create(&group).Error)
	require.NoError(t, db.Create(&courseModels.Enrollment{UserID: student.ID, CourseID: course.ID}).Error)

	app := fiber.New()
	app.Post("/admin/module", middleware.JWTMiddleware, middleware.RequireInstructor(), courseValidator.CreateModule(), CreateModule)
	app.Patch("/admin/module/reorder", middleware.JWTMiddleware, middleware.RequireSuperuser(), courseValidator.Reorder(), ReorderModules)
	app.Put("/admin/module/:module_id", middleware.JWTMiddleware, middleware.RequireInstructor(), courseValidator.UpdateModule(), UpdateModule)
	app.Delete("/admin/module/:module_id", middleware.JWTMiddleware, middleware.RequireInstructor(), DeleteModule)
	app.Post("/group/join", middleware.JWTMiddleware, groupValidator.Join(), JoinGroup)
	app.Post("/group/create", middleware.JWTMiddleware, middleware.RequireInstructor(), CreateGroup)
	app.Post("/group/:group_id/member", middleware.JWTMiddleware, middleware.RequireInstructor(), groupValidator.Member(), AddGroupMember)
	app.Delete("/group/:group_id", middleware.JWTMiddleware, middleware.RequireInstructor(), DeleteGroup)

	return &publishEnv{
		app: app, db: db,
		course: &course, module: &module, group: &group,
		instructor: &instructor, superuser: &superuser, student: &student,
	}
}

func (e *publishEnv) publish(t *testing.T) {
	t.Helper()
	require.NoError(t, e.db.Model(e.course).Update("is_published", true).Error)
}

func (e *publishEnv) request(t *testing.T, user *models.User, method, path string, payload interface{}) *http.Response {
	t.Helper()
	token, err := middleware.GenerateJWT(user.ID, user.Username, user.Email)
	require.NoError(t, err)

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestPublishLockBlocksStructuralEdits(t *testing.T) {
	env := setupPublishTest(t)
	env.publish(t)

	resp := env.request(t, env.instructor, http.MethodPost, "/admin/module", fiber.Map{"title": "Extra"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.request(t, env.instructor, http.MethodPut, "/admin/module/1", fiber.Map{"title": "Renamed"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.request(t, env.superuser, http.MethodPatch, "/admin/module/reorder", fiber.Map{
		"items": []fiber.Map{{"id": env.module.ID, "order": 1}},
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.request(t, env.instructor, http.MethodDelete, "/admin/module/1", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.request(t, env.instructor, http.MethodPost, "/group/create", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.request(t, env.instructor, http.MethodDelete, "/group/1", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Nothing slipped through
	var moduleCount, groupCount int64
	env.db.Model(&courseModels.Module{}).Count(&moduleCount)
	env.db.Model(&courseModels.Group{}).Count(&groupCount)
	assert.EqualValues(t, 1, moduleCount)
	assert.EqualValues(t, 1, groupCount)

	var module courseModels.Module
	require.NoError(t, env.db.First(&module, env.module.ID).Error)
	assert.Equal(t, "Basics", module.Title)
}

func TestPublishLockLeavesMembershipOpen(t *testing.T) {
	env := setupPublishTest(t)
	env.publish(t)

	resp := env.request(t, env.instructor, http.MethodPost, "/group/1/member", fiber.Map{
		"student_id": env.student.ID,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	other := models.User{Username: "alan", Email: "alan@example.com", Password: "x", IsStudent: true}
	require.NoError(t, env.db.Create(&other).Error)
	require.NoError(t, env.db.Create(&courseModels.Enrollment{UserID: other.ID, CourseID: env.course.ID}).Error)

	resp = env.request(t, &other, http.MethodPost, "/group/join", fiber.Map{"group_id": env.group.ID})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	count, err := env.group.MemberCount(env.db)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestUnpublishedCourseAllowsStructuralEdits(t *testing.T) {
	env := setupPublishTest(t)

	resp := env.request(t, env.instructor, http.MethodPost, "/admin/module", fiber.Map{"title": "Extra"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = env.request(t, env.instructor, http.MethodPost, "/group/create", nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = env.request(t, env.instructor, http.MethodDelete, "/group/1", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
