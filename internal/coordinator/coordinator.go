// Package coordinator holds the in-process state that keeps the pipeline
// from fighting itself: per-document build locks and a provenance cache that
// distinguishes the daemon's own file writes from the user's.
package coordinator

import (
	"path/filepath"
	"sync"
)

// Coordinator is shared by the watcher, builders, and review sync. All
// methods are safe for concurrent use.
type Coordinator struct {
	buildMu  sync.Mutex
	inflight map[string]struct{}

	writeMu sync.Mutex
	writes  map[string]string // normalized path -> content hash
}

func New() *Coordinator {
	return &Coordinator{
		inflight: make(map[string]struct{}),
		writes:   make(map[string]string),
	}
}

// TryAcquire claims the build slot for a document. It returns false when a
// build for the same document is already in flight; the caller skips instead
// of waiting.
func (c *Coordinator) TryAcquire(docID string) bool {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	if _, busy := c.inflight[docID]; busy {
		return false
	}
	c.inflight[docID] = struct{}{}
	return true
}

// Release frees the build slot. Safe to call for an unheld ID.
func (c *Coordinator) Release(docID string) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	delete(c.inflight, docID)
}

// MarkSystemWrite records that the pipeline is about to write path with the
// given content hash. The watcher consults this to ignore the resulting
// filesystem event.
func (c *Coordinator) MarkSystemWrite(path, contentHash string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.writes[normalize(path)] = contentHash
}

// IsSystemWrite reports whether an observed change matches a recorded system
// write. A hash mismatch means the user edited the file after we wrote it,
// so the event is theirs.
func (c *Coordinator) IsSystemWrite(path, contentHash string) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	recorded, ok := c.writes[normalize(path)]
	return ok && recorded == contentHash
}

// ClearSystemWrite drops the provenance record for path, re-arming the
// watcher for future user edits.
func (c *Coordinator) ClearSystemWrite(path string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	delete(c.writes, normalize(path))
}

func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(path)
}
