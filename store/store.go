// Package store holds the imported feeds. Each feed owns one immutable
// gtfs.FeedIndex; the store only ever adds or drops whole feeds.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/theoremus-urban-solutions/gtfs-explorer/gtfs"
)

// SourceType tells where a feed came from.
type SourceType string

const (
	SourceFile  SourceType = "file"
	SourceURL   SourceType = "url"
	SourceBytes SourceType = "bytes"
)

// Metadata describes the origin of a feed.
type Metadata struct {
	SourceType SourceType `json:"source_type"`
	SourceURL  string     `json:"source_url,omitempty"`
	Filename   string     `json:"filename,omitempty"`
	Size       int64      `json:"size_bytes,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// Feed is one imported dataset. Fields are set once by Add.
type Feed struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	ImportID   uuid.UUID       `json:"import_id"`
	ImportedAt time.Time       `json:"imported_at"`
	Metadata   Metadata        `json:"metadata"`
	Stats      gtfs.Stats      `json:"stats"`
	Index      *gtfs.FeedIndex `json:"-"`
}

// Store keeps feeds in insertion order. Ids start at 1 and are never reused
// until Clear.
type Store struct {
	mu     sync.RWMutex
	feeds  []*Feed
	nextID int
	now    func() time.Time
}

func New() *Store {
	return &Store{nextID: 1, now: time.Now}
}

// Add registers a fully built index and returns its feed id.
func (s *Store) Add(name string, idx *gtfs.FeedIndex, meta Metadata) int {
	return s.AddWithImportID(uuid.New(), name, idx, meta)
}

// AddWithImportID is Add for callers that already assigned an import id.
func (s *Store) AddWithImportID(importID uuid.UUID, name string, idx *gtfs.FeedIndex, meta Metadata) int {
	f := &Feed{
		Name:     name,
		ImportID: importID,
		Metadata: meta,
		Stats:    idx.Stats(),
		Index:    idx,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = s.nextID
	f.ImportedAt = s.now()
	s.nextID++
	s.feeds = append(s.feeds, f)
	return f.ID
}

// Remove drops feed id and reports whether it existed. Readers already
// holding the feed keep a valid, unchanged index.
func (s *Store) Remove(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.feeds {
		if f.ID == id {
			s.feeds = append(s.feeds[:i:i], s.feeds[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) Get(id int) (*Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.feeds {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// List returns a snapshot of the feeds in store order.
func (s *Store) List() []*Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Feed, len(s.feeds))
	copy(out, s.feeds)
	return out
}

// Scope returns the feeds a query should visit: all feeds when id is 0,
// otherwise just that feed (or none).
func (s *Store) Scope(id int) []*Feed {
	if id == 0 {
		return s.List()
	}
	if f, ok := s.Get(id); ok {
		return []*Feed{f}
	}
	return nil
}

// Clear drops every feed and restarts ids at 1.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds = nil
	s.nextID = 1
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.feeds)
}
