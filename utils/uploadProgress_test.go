package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUploadProgressLifecycle(t *testing.T) {
	StartUploadProgress("up-1", 1000)

	total, uploaded, ok := GetUploadProgress("up-1")
	assert.True(t, ok)
	assert.Equal(t, int64(1000), total)
	assert.Equal(t, int64(0), uploaded)

	UpdateUploadProgress("up-1", 400)
	_, uploaded, ok = GetUploadProgress("up-1")
	assert.True(t, ok)
	assert.Equal(t, int64(400), uploaded)

	FinishUploadProgress("up-1")
	_, _, ok = GetUploadProgress("up-1")
	assert.False(t, ok)
}

func TestUploadProgressUnknownID(t *testing.T) {
	_, _, ok := GetUploadProgress("nope")
	assert.False(t, ok)

	// Updating an unknown id must not create an entry
	UpdateUploadProgress("nope", 10)
	_, _, ok = GetUploadProgress("nope")
	assert.False(t, ok)
}

func TestPruneUploadProgress(t *testing.T) {
	StartUploadProgress("stale", 100)
	StartUploadProgress("fresh", 100)

	// Backdate the stale entry past the cutoff
	uploadProgress.Lock()
	uploadProgress.entries["stale"].updated = time.Now().Add(-time.Hour)
	uploadProgress.Unlock()

	pruned := PruneUploadProgress(30 * time.Minute)
	assert.Equal(t, 1, pruned)

	_, _, ok := GetUploadProgress("stale")
	assert.False(t, ok)
	_, _, ok = GetUploadProgress("fresh")
	assert.True(t, ok)

	FinishUploadProgress("fresh")
}
