package utils

import (
	"sync"
	"time"
)

// uploadProgressTTL is how long a finished or stalled upload entry stays
// pollable before the sweeper drops it.
const uploadProgressTTL = 30 * time.Minute

type uploadEntry struct {
	total    int64
	uploaded int64
	updated  time.Time
}

var uploadProgress = struct {
	sync.Mutex
	entries map[string]*uploadEntry
}{entries: make(map[string]*uploadEntry)}

// StartUploadProgress registers a new upload under a correlation id.
func StartUploadProgress(id string, total int64) {
	uploadProgress.Lock()
	defer uploadProgress.Unlock()
	uploadProgress.entries[id] = &uploadEntry{total: total, updated: time.Now()}
}

// UpdateUploadProgress records bytes received so far for an upload.
func UpdateUploadProgress(id string, uploaded int64) {
	uploadProgress.Lock()
	defer uploadProgress.Unlock()
	if entry, ok := uploadProgress.entries[id]; ok {
		entry.uploaded = uploaded
		entry.updated = time.Now()
	}
}

// GetUploadProgress returns the current counters for an upload id. ok is
// false when the id is unknown or already expired.
func GetUploadProgress(id string) (total, uploaded int64, ok bool) {
	uploadProgress.Lock()
	defer uploadProgress.Unlock()
	entry, ok := uploadProgress.entries[id]
	if !ok {
		return 0, 0, false
	}
	return entry.total, entry.uploaded, true
}

// FinishUploadProgress drops an upload entry once its response has been
// delivered.
func FinishUploadProgress(id string) {
	uploadProgress.Lock()
	defer uploadProgress.Unlock()
	delete(uploadProgress.entries, id)
}

// PruneUploadProgress removes entries idle for longer than maxAge and
// returns how many were dropped.
func PruneUploadProgress(maxAge time.Duration) int {
	uploadProgress.Lock()
	defer uploadProgress.Unlock()

	cutoff := time.Now().Add(-maxAge)
	pruned := 0
	for id, entry := range uploadProgress.entries {
		if entry.updated.Before(cutoff) {
			delete(uploadProgress.entries, id)
			pruned++
		}
	}
	return pruned
}
