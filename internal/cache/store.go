package cache

import (
	"context"
	"errors"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/lyrics"
)

// Store is the lyric cache. It never returns errors to callers: any
// backend failure is logged and reported as a miss or a false result.
type Store struct {
	backend Backend
	now     func() time.Time
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

func (s *Store) Location() string {
	return s.backend.Location()
}

// Get returns the cached document for a track. The boolean is false when
// nothing is cached; a cached empty document comes back with true.
func (s *Store) Get(ctx context.Context, title, artist string) (lyrics.Document, bool) {
	key := Key(title, artist)
	if key == "" {
		return lyrics.Empty(), false
	}

	entry, err := s.load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			log.Warnf("%s read %s failed: %v", logging.Cache, key, err)
		}
		return lyrics.Empty(), false
	}

	if entry.Title != title || entry.Artist != artist {
		log.Debugf("%s %s: %v (stored %q/%q)", logging.Cache, key, ErrKeyMismatch, entry.Title, entry.Artist)
		return lyrics.Empty(), false
	}

	return entry.Document(), true
}

// Put stores doc under the track's key, replacing whatever was there.
func (s *Store) Put(ctx context.Context, title, artist string, doc lyrics.Document) bool {
	key := Key(title, artist)
	if key == "" {
		return false
	}

	data, err := encodeEntry(&Entry{
		Version:   entryVersion,
		Key:       key,
		Title:     title,
		Artist:    artist,
		CreatedAt: s.now().Unix(),
		Lines:     doc.Lines(),
	})
	if err != nil {
		log.Warnf("%s encode %s failed: %v", logging.Cache, key, err)
		return false
	}

	if err := s.backend.Save(ctx, key, data); err != nil {
		log.Warnf("%s write %s failed: %v", logging.Cache, key, err)
		return false
	}

	log.Debugf("%s stored %s (%d lines)", logging.Cache, key, doc.Len())
	return true
}

// Delete removes the entry for the track's key and reports whether one
// existed.
func (s *Store) Delete(ctx context.Context, title, artist string) bool {
	return s.DeleteKey(ctx, Key(title, artist))
}

func (s *Store) DeleteKey(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}

	existed, err := s.backend.Remove(ctx, key)
	if err != nil {
		log.Warnf("%s delete %s failed: %v", logging.Cache, key, err)
		return false
	}
	return existed
}

func (s *Store) Clear(ctx context.Context) bool {
	if err := s.backend.RemoveAll(ctx); err != nil {
		log.Warnf("%s clear failed: %v", logging.Cache, err)
		return false
	}
	return true
}

func (s *Store) TotalSizeBytes(ctx context.Context) int64 {
	size, err := s.backend.Size(ctx)
	if err != nil {
		log.Warnf("%s size failed: %v", logging.Cache, err)
		return 0
	}
	return size
}

// ListKeys returns every stored key in sorted order.
func (s *Store) ListKeys(ctx context.Context) []string {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		log.Warnf("%s list failed: %v", logging.Cache, err)
		return nil
	}
	sort.Strings(keys)
	return keys
}

// Entry loads the raw entry stored under key.
func (s *Store) Entry(ctx context.Context, key string) (*Entry, error) {
	return s.load(ctx, key)
}

// Entries returns every readable entry, skipping broken ones.
func (s *Store) Entries(ctx context.Context) []*Entry {
	var out []*Entry
	for _, key := range s.ListKeys(ctx) {
		entry, err := s.load(ctx, key)
		if err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out
}

type Stats struct {
	Entries  int
	Negative int
	Bytes    int64
}

// Stats counts readable entries, how many of them record a failed lookup
// and the backend's total size.
func (s *Store) Stats(ctx context.Context) Stats {
	st := Stats{Bytes: s.TotalSizeBytes(ctx)}
	for _, entry := range s.Entries(ctx) {
		st.Entries++
		if entry.IsNegative() {
			st.Negative++
		}
	}
	return st
}

// Prune removes entries that can no longer be decoded and returns how many
// were dropped.
func (s *Store) Prune(ctx context.Context) int {
	pruned := 0
	for _, key := range s.ListKeys(ctx) {
		_, err := s.load(ctx, key)
		if err == nil || !errors.Is(err, ErrCorrupt) {
			continue
		}
		if ok, _ := s.backend.Remove(ctx, key); ok {
			pruned++
		}
	}
	return pruned
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) load(ctx context.Context, key string) (*Entry, error) {
	data, err := s.backend.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return decodeEntry(data)
}
