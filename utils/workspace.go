package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"scw/config"
)

// Directory layout:
//
//	EXERCISE_FILES_ROOT/<lesson title>/...                                 canonical per-lesson tree
//	USER_FILES_ROOT/group_<id>/<lesson title>/...                          per-group workspace
//	DATA_ROOT/exercise_submissions/group_<id>/<lesson title>/<timestamp>/  collected submissions
//
// Lesson titles key the directories, so renaming a lesson renames trees on
// disk.

// ExerciseDir returns the canonical exercise tree for a lesson.
func ExerciseDir(lessonTitle string) string {
	return filepath.Join(config.AppConfig.ExerciseFilesRoot, lessonTitle)
}

// GroupDir returns a group's private workspace root.
func GroupDir(groupID uint) string {
	return filepath.Join(config.AppConfig.UserFilesRoot, fmt.Sprintf("group_%d", groupID))
}

// GroupLessonDir returns the provisioned copy of a lesson inside a group's
// workspace.
func GroupLessonDir(groupID uint, lessonTitle string) string {
	return filepath.Join(GroupDir(groupID), lessonTitle)
}

// SubmissionDir returns the destination for one collected submission.
func SubmissionDir(groupID uint, lessonTitle, timestamp string) string {
	return filepath.Join(
		config.AppConfig.DataRoot,
		"exercise_submissions",
		fmt.Sprintf("group_%d", groupID),
		lessonTitle,
		timestamp,
	)
}

// MediaPath resolves a media-root-relative reference to an absolute path.
func MediaPath(rel string) string {
	return filepath.Join(config.AppConfig.MediaRoot, rel)
}

// MediaRelative converts an absolute path into the media-root-relative form
// stored on file rows.
func MediaRelative(abs string) (string, error) {
	return filepath.Rel(config.AppConfig.MediaRoot, abs)
}

// GetFileURL maps a stored relative path to its servable URL.
func GetFileURL(rel string) string {
	if rel == "" {
		return ""
	}
	return "/media/" + filepath.ToSlash(rel)
}

// CopyFile copies a single file, creating parent directories as needed.
func CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyTree recursively copies the directory tree at src to dst.
func CopyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		}
		return CopyFile(path, target)
	})
}

// MoveDir renames a directory, falling back to copy-and-delete when the
// rename crosses filesystems.
func MoveDir(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}
