// Package session holds the ordered image sequence of one editing session.
package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tendant/stopmotion-pipeline/internal/logging"
	"github.com/tendant/stopmotion-pipeline/internal/metrics"
	"github.com/tendant/stopmotion-pipeline/internal/storage"
	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
)

// Entry is one image in the sequence. ID is assigned at ingestion and never
// changes or gets reused; Preview is a handle in the store's blob registry.
type Entry struct {
	ID      string
	Image   pipeline.Image
	Preview string
}

// Store owns the ordered image sequence and the preview handle of every entry.
type Store struct {
	mu       sync.RWMutex
	entries  []*Entry
	previews *storage.BlobRegistry
	logger   *slog.Logger
	metrics  *metrics.Metrics
	newID    func() string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logging.NewComponentLogger(logger, "session") }
}

// WithMetrics records the sequence size.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates an empty store whose preview handles live in previews.
func NewStore(previews *storage.BlobRegistry, opts ...Option) *Store {
	s := &Store{
		previews: previews,
		logger:   logging.NewNop(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends one entry per file in input order and creates their preview
// handles. The whole batch is rejected on the first file whose media type is
// not accepted; nothing from that batch is admitted.
func (s *Store) Add(files []pipeline.Image) ([]Entry, error) {
	for _, file := range files {
		if !pipeline.IsAcceptedImageType(file.MimeType) {
			s.logger.Warn("rejecting upload batch",
				logging.String(logging.FieldFilename, file.Filename),
				logging.String("mime_type", file.MimeType),
				logging.Int("batch_size", len(files)),
			)
			return nil, &UnsupportedFormatError{Filename: file.Filename, MimeType: file.MimeType}
		}
	}

	added := make([]Entry, 0, len(files))
	s.mu.Lock()
	for _, file := range files {
		file.MimeType = pipeline.NormalizeMimeType(file.MimeType)
		entry := &Entry{
			ID:    s.newID(),
			Image: file,
		}
		entry.Preview = s.previews.Create(file.Filename, file.MimeType, file.Data)
		s.entries = append(s.entries, entry)
		added = append(added, *entry)
	}
	total := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetSessionImages(total)
	s.logger.Info("images added", logging.Int("added", len(added)), logging.Int("total", total))
	return added, nil
}

// Remove deletes the entry with id and revokes its preview handle. Unknown ids
// are ignored.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	entry := s.entries[idx]
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	total := len(s.entries)
	s.mu.Unlock()

	s.previews.Revoke(entry.Preview)
	s.metrics.SetSessionImages(total)
	s.logger.Debug("image removed", logging.String(logging.FieldEntryID, id), logging.Int("total", total))
}

// Reorder replaces the sequence order with ids, which must be a permutation
// of the current identities.
func (s *Store) Reorder(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) != len(s.entries) {
		return fmt.Errorf("%w: got %d identities, sequence has %d", ErrInvalidPermutation, len(ids), len(s.entries))
	}
	byID := make(map[string]*Entry, len(s.entries))
	for _, entry := range s.entries {
		byID[entry.ID] = entry
	}
	reordered := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		entry, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: unknown or repeated identity %q", ErrInvalidPermutation, id)
		}
		delete(byID, id)
		reordered = append(reordered, entry)
	}
	s.entries = reordered
	return nil
}

// Teardown revokes every preview handle. The sequence itself is kept so the
// call is safe to repeat.
func (s *Store) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := 0
	for _, entry := range s.entries {
		if s.previews.Revoke(entry.Preview) {
			revoked++
		}
		entry.Preview = ""
	}
	if revoked > 0 {
		s.logger.Debug("preview handles released", logging.Int("count", revoked))
	}
}

// Entries returns a snapshot of the sequence in order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	for i, entry := range s.entries {
		out[i] = *entry
	}
	return out
}

// IDs returns the identities in sequence order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.entries))
	for i, entry := range s.entries {
		ids[i] = entry.ID
	}
	return ids
}

// Len returns the sequence length.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns the entry with id.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return *s.entries[idx], true
	}
	return Entry{}, false
}

// At returns the entry at position idx.
func (s *Store) At(idx int) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx < 0 || idx >= len(s.entries) {
		return Entry{}, false
	}
	return *s.entries[idx], true
}

// PreviewHandle returns the preview handle of id, creating it again if it was
// released by Teardown.
func (s *Store) PreviewHandle(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	entry := s.entries[idx]
	if entry.Preview == "" {
		entry.Preview = s.previews.Create(entry.Image.Filename, entry.Image.MimeType, entry.Image.Data)
	}
	return entry.Preview, nil
}

// Source returns the image behind id; it satisfies the encode workflow's frame source.
func (s *Store) Source(id string) (pipeline.Image, error) {
	entry, ok := s.Get(id)
	if !ok {
		return pipeline.Image{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry.Image, nil
}

func (s *Store) indexLocked(id string) int {
	for i, entry := range s.entries {
		if entry.ID == id {
			return i
		}
	}
	return -1
}
