package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// HandlePrefix marks strings issued by BlobRegistry
const HandlePrefix = "blob:"

// Blob is an in-memory object addressable through a revocable handle
type Blob struct {
	Handle    string
	Name      string
	MimeType  string
	Data      []byte
	CreatedAt time.Time
}

// BlobRegistry issues revocable display handles for in-memory content.
// Handles stay valid until Revoke is called; nothing is released implicitly.
type BlobRegistry struct {
	mu    sync.RWMutex
	blobs map[string]Blob
	now   func() time.Time
}

// NewBlobRegistry creates an empty registry
func NewBlobRegistry() *BlobRegistry {
	return &BlobRegistry{
		blobs: make(map[string]Blob),
		now:   time.Now,
	}
}

// Create registers data and returns a fresh handle for it
func (r *BlobRegistry) Create(name, mimeType string, data []byte) string {
	handle := HandlePrefix + uuid.NewString()
	r.mu.Lock()
	r.blobs[handle] = Blob{
		Handle:    handle,
		Name:      name,
		MimeType:  mimeType,
		Data:      data,
		CreatedAt: r.now(),
	}
	r.mu.Unlock()
	return handle
}

// Open returns the blob behind handle
func (r *BlobRegistry) Open(handle string) (Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	blob, ok := r.blobs[handle]
	return blob, ok
}

// Revoke releases handle and reports whether it was live
func (r *BlobRegistry) Revoke(handle string) bool {
	if handle == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blobs[handle]; !ok {
		return false
	}
	delete(r.blobs, handle)
	return true
}

// Len returns the number of live handles
func (r *BlobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
