package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	courseModels "scw/models/course"

	"gorm.io/gorm"
)

// CollectSubmissionFiles walks the group's workspace copy of a lesson and
// captures every notebook file into the submission destination, preserving
// relative sub-paths. One SubmissionFile row is written per copied file,
// with its path stored relative to the media root.
//
// The destination is namespaced by group, lesson and submission timestamp so
// successive submissions never overwrite each other. Copies do not
// participate in the enclosing database transaction; a failure mid-walk
// leaves the already-created Submission row and already-copied files in
// place.
func CollectSubmissionFiles(db *gorm.DB, submission *courseModels.Submission, groupID uint, lessonTitle string) (int, error) {
	src := GroupLessonDir(groupID, lessonTitle)
	timestamp := submission.SubmittedAt.Format("20060102_150405")
	dst := SubmissionDir(groupID, lessonTitle, timestamp)

	if err := os.MkdirAll(dst, 0755); err != nil {
		return 0, err
	}

	count := 0
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(info.Name(), ".ipynb") {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		destFile := filepath.Join(dst, rel)
		if err := CopyFile(path, destFile); err != nil {
			return err
		}

		mediaRel, err := MediaRelative(destFile)
		if err != nil {
			return err
		}

		file := courseModels.SubmissionFile{
			SubmissionID: submission.ID,
			File:         mediaRel,
			Description:  fmt.Sprintf("Submitted file: %s", rel),
		}
		if err := db.Create(&file).Error; err != nil {
			return err
		}

		count++
		return nil
	})
	return count, err
}

// FormatSubmittedAt renders a submission timestamp for API responses.
func FormatSubmittedAt(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
