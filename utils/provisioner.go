package utils

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	courseModels "scw/models/course"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Provisioner mirrors canonical exercise trees into group workspaces. Copies
// are destructive refreshes: the destination is replaced wholesale, wiping
// any student work inside it. Instructors re-uploading exercise content reset
// student scratch space on purpose.
//
// Concurrent copies into the same group/lesson destination are serialized
// through a per-destination lock so overlapping re-uploads cannot interleave
// deletes and copies.
type Provisioner struct {
	db   *gorm.DB
	pool *WorkerPool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Provision is the process-wide provisioner, set up in main and in tests.
var Provision *Provisioner

// NewProvisioner builds a provisioner that dispatches copies on pool.
func NewProvisioner(db *gorm.DB, pool *WorkerPool) *Provisioner {
	return &Provisioner{
		db:    db,
		pool:  pool,
		locks: make(map[string]*sync.Mutex),
	}
}

func (p *Provisioner) lockFor(groupID uint, lessonTitle string) *sync.Mutex {
	key := fmt.Sprintf("group_%d/%s", groupID, lessonTitle)

	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[key] = lock
	}
	return lock
}

// ProvisionGroup copies one exercise's canonical tree into one group's
// workspace. Non-jupyter exercises and exercises deleted between scheduling
// and execution are silent no-ops; a missing canonical directory is a
// no-data condition, not an error.
func (p *Provisioner) ProvisionGroup(groupID, exerciseID uint) error {
	var exercise courseModels.Exercise
	err := p.db.First(&exercise, exerciseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if exercise.ExerciseType != courseModels.ExerciseJupyter {
		return nil
	}

	var lesson courseModels.Lesson
	if err := p.db.First(&lesson, exercise.LessonID).Error; err != nil {
		return err
	}

	return p.copyLessonTree(groupID, lesson.Title)
}

// copyLessonTree performs the destructive refresh of one destination. The
// new tree is staged next to the destination and renamed into place so a
// crash mid-copy cannot leave the workspace half-written.
func (p *Provisioner) copyLessonTree(groupID uint, lessonTitle string) error {
	lock := p.lockFor(groupID, lessonTitle)
	lock.Lock()
	defer lock.Unlock()

	src := ExerciseDir(lessonTitle)
	dst := GroupLessonDir(groupID, lessonTitle)

	if _, err := os.Stat(src); os.IsNotExist(err) {
		log.Printf("[PROVISIONER] Source directory does not exist, skipping: %s", src)
		return nil
	}

	if err := os.MkdirAll(GroupDir(groupID), 0755); err != nil {
		return err
	}

	staging := dst + ".staging-" + uuid.NewString()[:8]
	if err := CopyTree(src, staging); err != nil {
		os.RemoveAll(staging)
		return err
	}

	if err := os.RemoveAll(dst); err != nil {
		os.RemoveAll(staging)
		return err
	}
	if err := os.Rename(staging, dst); err != nil {
		os.RemoveAll(staging)
		return err
	}

	log.Printf("[PROVISIONER] Copied %s -> %s", src, dst)
	return nil
}

// ScheduleExerciseFanout queues one copy job per group currently enrolled in
// the exercise's course. Call it only after the transaction that changed the
// exercise has committed. Groups added later are not retroactively covered.
func (p *Provisioner) ScheduleExerciseFanout(exerciseID uint) {
	var exercise courseModels.Exercise
	if err := p.db.First(&exercise, exerciseID).Error; err != nil {
		log.Printf("[PROVISIONER] Exercise %d not found for fan-out: %v", exerciseID, err)
		return
	}

	var lesson courseModels.Lesson
	if err := p.db.First(&lesson, exercise.LessonID).Error; err != nil {
		log.Printf("[PROVISIONER] Lesson %d not found for fan-out: %v", exercise.LessonID, err)
		return
	}

	var module courseModels.Module
	if err := p.db.First(&module, lesson.ModuleID).Error; err != nil {
		log.Printf("[PROVISIONER] Module %d not found for fan-out: %v", lesson.ModuleID, err)
		return
	}

	var groupIDs []uint
	if err := p.db.Model(&courseModels.Group{}).Where("course_id = ?", module.CourseID).Pluck("id", &groupIDs).Error; err != nil {
		log.Printf("[PROVISIONER] Failed to list groups for course %d: %v", module.CourseID, err)
		return
	}

	for _, groupID := range groupIDs {
		groupID := groupID
		p.pool.Submit(func() {
			// Best effort: one group's failure must not abort the others.
			if err := p.ProvisionGroup(groupID, exerciseID); err != nil {
				log.Printf("[PROVISIONER] Error copying exercise %d into group %d: %v", exerciseID, groupID, err)
			}
		})
	}
}

// ScheduleGroupFanout queues copies of every jupyter exercise in the group's
// course into that one group. Used when a group is created or a student
// joins one.
func (p *Provisioner) ScheduleGroupFanout(groupID uint) {
	var group courseModels.Group
	if err := p.db.First(&group, groupID).Error; err != nil {
		log.Printf("[PROVISIONER] Group %d not found for fan-out: %v", groupID, err)
		return
	}

	var exerciseIDs []uint
	err := p.db.Model(&courseModels.Exercise{}).
		Joins("JOIN lessons ON lessons.id = exercises.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ? AND exercises.exercise_type = ?", group.CourseID, courseModels.ExerciseJupyter).
		Where("lessons.deleted_at IS NULL AND modules.deleted_at IS NULL").
		Pluck("exercises.id", &exerciseIDs).Error
	if err != nil {
		log.Printf("[PROVISIONER] Failed to list exercises for course %d: %v", group.CourseID, err)
		return
	}

	for _, exerciseID := range exerciseIDs {
		exerciseID := exerciseID
		p.pool.Submit(func() {
			if err := p.ProvisionGroup(groupID, exerciseID); err != nil {
				log.Printf("[PROVISIONER] Error copying exercise %d into group %d: %v", exerciseID, groupID, err)
			}
		})
	}
}

// RenameLessonDirs moves the canonical directory and every group copy from
// the old lesson title to the new one, preserving provisioned and submitted
// content. Any failure is returned so the enclosing lesson save can abort;
// leaving canonical and per-group trees under different names would make
// them unreachable.
func (p *Provisioner) RenameLessonDirs(courseID uint, oldTitle, newTitle string) error {
	oldDir := ExerciseDir(oldTitle)
	newDir := ExerciseDir(newTitle)

	if _, err := os.Stat(oldDir); err == nil {
		if err := MoveDir(oldDir, newDir); err != nil {
			return fmt.Errorf("renaming exercise directory: %w", err)
		}
		log.Printf("[PROVISIONER] Renamed exercise directory %s -> %s", oldDir, newDir)
	}

	var groupIDs []uint
	if err := p.db.Model(&courseModels.Group{}).Where("course_id = ?", courseID).Pluck("id", &groupIDs).Error; err != nil {
		return err
	}

	for _, groupID := range groupIDs {
		oldGroupDir := GroupLessonDir(groupID, oldTitle)
		if _, err := os.Stat(oldGroupDir); os.IsNotExist(err) {
			continue
		}
		newGroupDir := GroupLessonDir(groupID, newTitle)
		if err := MoveDir(oldGroupDir, newGroupDir); err != nil {
			return fmt.Errorf("renaming group directory for group %d: %w", groupID, err)
		}
		log.Printf("[PROVISIONER] Renamed group directory %s -> %s", oldGroupDir, newGroupDir)
	}
	return nil
}

// RemoveLessonDirs deletes the canonical tree and every group copy for a
// lesson. Used when a jupyter lesson is deleted; individual failures are
// logged and do not stop the cleanup.
func (p *Provisioner) RemoveLessonDirs(courseID uint, lessonTitle string) {
	var groupIDs []uint
	if err := p.db.Model(&courseModels.Group{}).Where("course_id = ?", courseID).Pluck("id", &groupIDs).Error; err != nil {
		log.Printf("[PROVISIONER] Failed to list groups for cleanup: %v", err)
	}

	for _, groupID := range groupIDs {
		dir := GroupLessonDir(groupID, lessonTitle)
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("[PROVISIONER] Error deleting group directory %s: %v", dir, err)
		}
	}

	if err := os.RemoveAll(ExerciseDir(lessonTitle)); err != nil {
		log.Printf("[PROVISIONER] Error deleting exercise directory %s: %v", ExerciseDir(lessonTitle), err)
	}
}
