package utils

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"scw/config"
	courseModels "scw/models/course"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// InitializeMaintenanceScheduler starts the nightly housekeeping jobs:
// sweeping stale upload-progress entries and removing workspace directories
// left behind by deleted groups. The returned cron must be stopped at
// shutdown.
func InitializeMaintenanceScheduler(db *gorm.DB) *cron.Cron {
	log.Println("[MAINTENANCE] Initializing maintenance scheduler...")

	c := cron.New()

	// Run daily at 3 AM
	c.AddFunc("0 3 * * *", func() {
		log.Println("[MAINTENANCE] Running daily maintenance...")
		pruned := PruneUploadProgress(uploadProgressTTL)
		if pruned > 0 {
			log.Printf("[MAINTENANCE] Pruned %d stale upload-progress entries", pruned)
		}
		CleanOrphanedWorkspaces(db)
	})

	c.Start()
	log.Println("[MAINTENANCE] Maintenance scheduler started - runs daily at 3 AM")
	return c
}

// CleanOrphanedWorkspaces deletes group_<id> workspace directories whose
// group row no longer exists. Individual deletion failures are logged and
// skipped.
func CleanOrphanedWorkspaces(db *gorm.DB) {
	entries, err := os.ReadDir(config.AppConfig.UserFilesRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[MAINTENANCE] Error reading workspace root: %v", err)
		}
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "group_") {
			continue
		}

		groupID, err := strconv.ParseUint(strings.TrimPrefix(entry.Name(), "group_"), 10, 64)
		if err != nil {
			continue
		}

		var count int64
		if err := db.Model(&courseModels.Group{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
			log.Printf("[MAINTENANCE] Error checking group %d: %v", groupID, err)
			continue
		}
		if count > 0 {
			continue
		}

		dir := filepath.Join(config.AppConfig.UserFilesRoot, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("[MAINTENANCE] Error removing orphaned workspace %s: %v", dir, err)
			continue
		}
		log.Printf("[MAINTENANCE] Removed orphaned workspace %s", dir)
	}
}
