package utils

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"
)

// SaveUploadedFile stores an upload under destDir keeping its original
// filename. Exercise trees are keyed by filename, so uploads there must not
// be renamed.
func SaveUploadedFile(file *multipart.FileHeader, destDir string) (string, error) {
	return saveUpload(file, destDir, filepath.Base(file.Filename))
}

// SaveUploadedFileUnique stores an upload under destDir with a
// timestamp-derived name, for files where collisions must be avoided
// (videos, ticket images).
func SaveUploadedFileUnique(file *multipart.FileHeader, destDir string) (string, error) {
	ext := filepath.Ext(file.Filename)
	newFilename := time.Now().Format("20060102150405.000000") + ext
	return saveUpload(file, destDir, newFilename)
}

// SaveUploadedVideo stores a large upload with a timestamp-derived name and
// reports copy progress under uploadID while the bytes are written out.
func SaveUploadedVideo(file *multipart.FileHeader, destDir, uploadID string) (string, error) {
	ext := filepath.Ext(file.Filename)
	newFilename := time.Now().Format("20060102150405.000000") + ext

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}

	filePath := filepath.Join(destDir, newFilename)
	dst, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	counter := &progressWriter{id: uploadID, w: dst}
	if _, err := io.Copy(counter, src); err != nil {
		return "", err
	}

	return filePath, nil
}

type progressWriter struct {
	id      string
	w       io.Writer
	written int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	UpdateUploadProgress(p.id, p.written)
	return n, err
}

func saveUpload(file *multipart.FileHeader, destDir, name string) (string, error) {
	// Open the uploaded file
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	// Create destination directory if it doesn't exist
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}

	filePath := filepath.Join(destDir, name)

	// Create destination file
	dst, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	// Copy the file content
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return filePath, nil
}
