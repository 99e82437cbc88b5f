package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"karolbroda.com/lyricsync/internal/lyrics"
)

type backendFactory func(t *testing.T) Backend

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"file": func(t *testing.T) Backend {
			b, err := NewFileBackend(t.TempDir())
			if err != nil {
				t.Fatalf("failed to create file backend: %v", err)
			}
			return b
		},
		"bolt": func(t *testing.T) Backend {
			b, err := NewBoltBackend(filepath.Join(t.TempDir(), "cache.db"), false)
			if err != nil {
				t.Fatalf("failed to create bolt backend: %v", err)
			}
			return b
		},
		"bolt-compressed": func(t *testing.T) Backend {
			b, err := NewBoltBackend(filepath.Join(t.TempDir(), "cache.db"), true)
			if err != nil {
				t.Fatalf("failed to create bolt backend: %v", err)
			}
			return b
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s *Store)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := NewStore(factory(t))
			defer s.Close()
			fn(t, s)
		})
	}
}

func threeLines() lyrics.Document {
	return lyrics.NewDocument([]lyrics.Line{
		{TimestampMillis: 0, Text: "one"},
		{TimestampMillis: 1500, Text: ""},
		{TimestampMillis: 4200, Text: "三"},
	})
}

func TestStoreRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		doc := threeLines()

		if !s.Put(ctx, "River", "Joni", doc) {
			t.Fatal("Put failed")
		}

		got, ok := s.Get(ctx, "River", "Joni")
		if !ok {
			t.Fatal("expected cache hit")
		}

		want := doc.Lines()
		lines := got.Lines()
		if len(lines) != len(want) {
			t.Fatalf("expected %d lines, got %d", len(want), len(lines))
		}
		for i := range want {
			if lines[i] != want[i] {
				t.Errorf("line %d = %+v, want %+v", i, lines[i], want[i])
			}
		}
	})
}

func TestStoreMissVersusCachedEmpty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		if _, ok := s.Get(ctx, "Unknown", "Nobody"); ok {
			t.Error("expected miss for unknown track")
		}

		if !s.Put(ctx, "Silence", "", lyrics.Empty()) {
			t.Fatal("Put of empty document failed")
		}

		doc, ok := s.Get(ctx, "Silence", "")
		if !ok {
			t.Fatal("expected cached empty document to be a hit")
		}
		if !doc.IsEmpty() {
			t.Errorf("expected empty document, got %d lines", doc.Len())
		}
	})
}

func TestStoreOverwrite(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		s.Put(ctx, "River", "Joni", lyrics.Empty())
		s.Put(ctx, "River", "Joni", threeLines())

		doc, ok := s.Get(ctx, "River", "Joni")
		if !ok || doc.Len() != 3 {
			t.Errorf("expected overwritten entry with 3 lines, got ok=%v len=%d", ok, doc.Len())
		}
	})
}

func TestStoreDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		if s.Delete(ctx, "River", "Joni") {
			t.Error("Delete of missing entry should return false")
		}

		s.Put(ctx, "River", "Joni", threeLines())
		if !s.Delete(ctx, "River", "Joni") {
			t.Error("Delete of existing entry should return true")
		}
		if _, ok := s.Get(ctx, "River", "Joni"); ok {
			t.Error("expected miss after delete")
		}
		if s.Delete(ctx, "River", "Joni") {
			t.Error("second Delete should return false")
		}
	})
}

func TestStoreClearListAndSize(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		if size := s.TotalSizeBytes(ctx); size != 0 {
			t.Errorf("expected empty cache size 0, got %d", size)
		}

		s.Put(ctx, "B Song", "X", threeLines())
		s.Put(ctx, "A Song", "", lyrics.Empty())

		keys := s.ListKeys(ctx)
		if len(keys) != 2 || keys[0] != "A_Song" || keys[1] != "B_Song-X" {
			t.Errorf("unexpected keys %v", keys)
		}
		if size := s.TotalSizeBytes(ctx); size <= 0 {
			t.Errorf("expected positive size, got %d", size)
		}
		if entries := s.Entries(ctx); len(entries) != 2 {
			t.Errorf("expected 2 entries, got %d", len(entries))
		}

		st := s.Stats(ctx)
		if st.Entries != 2 || st.Negative != 1 || st.Bytes != s.TotalSizeBytes(ctx) {
			t.Errorf("unexpected stats %+v", st)
		}

		if !s.Clear(ctx) {
			t.Fatal("Clear failed")
		}
		if keys := s.ListKeys(ctx); len(keys) != 0 {
			t.Errorf("expected no keys after clear, got %v", keys)
		}
		if _, ok := s.Get(ctx, "B Song", "X"); ok {
			t.Error("expected miss after clear")
		}
		if size := s.TotalSizeBytes(ctx); size != 0 {
			t.Errorf("expected size 0 after clear, got %d", size)
		}
	})
}

func TestStoreCollisionIsMiss(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		s.Put(ctx, "Hello World", "X", threeLines())

		if _, ok := s.Get(ctx, "Hello_World", "X"); ok {
			t.Error("colliding track should not read another track's entry")
		}
		if _, ok := s.Get(ctx, "Hello World", "X"); !ok {
			t.Error("original track should still hit")
		}

		s.Put(ctx, "Hello_World", "X", lyrics.Empty())
		if _, ok := s.Get(ctx, "Hello World", "X"); ok {
			t.Error("last write should own the key")
		}
	})
}

func TestStoreConcurrentDifferentKeys(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		titles := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

		var wg sync.WaitGroup
		for _, title := range titles {
			wg.Add(1)
			go func(title string) {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					s.Put(ctx, title, "artist", threeLines())
					s.Get(ctx, title, "artist")
				}
			}(title)
		}
		wg.Wait()

		for _, title := range titles {
			if doc, ok := s.Get(ctx, title, "artist"); !ok || doc.Len() != 3 {
				t.Errorf("entry %s damaged: ok=%v len=%d", title, ok, doc.Len())
			}
		}
	})
}

func TestFileBackendCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	s := NewStore(backend)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "River-Joni.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	if _, ok := s.Get(ctx, "River", "Joni"); ok {
		t.Error("corrupt entry should read as a miss")
	}
	if pruned := s.Prune(ctx); pruned != 1 {
		t.Errorf("expected 1 pruned entry, got %d", pruned)
	}
	if keys := s.ListKeys(ctx); len(keys) != 0 {
		t.Errorf("expected no keys after prune, got %v", keys)
	}
}

func TestFileBackendUnwritableDirIsBestEffort(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	s := NewStore(backend)
	ctx := context.Background()

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("failed to remove dir: %v", err)
	}

	if s.Put(ctx, "River", "Joni", threeLines()) {
		t.Error("Put into a missing directory should report failure")
	}
	if _, ok := s.Get(ctx, "River", "Joni"); ok {
		t.Error("expected miss")
	}
	if keys := s.ListKeys(ctx); keys != nil {
		t.Errorf("expected nil keys, got %v", keys)
	}
	if !s.Clear(ctx) {
		t.Error("clearing a missing directory should succeed")
	}
}

func TestFileBackendPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, _ := NewFileBackend(dir)
	NewStore(first).Put(ctx, "River", "Joni", threeLines())

	second, _ := NewFileBackend(dir)
	doc, ok := NewStore(second).Get(ctx, "River", "Joni")
	if !ok || doc.Len() != 3 {
		t.Errorf("expected entry from disk, ok=%v len=%d", ok, doc.Len())
	}
}

func TestFileBackendLongKey(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	title := strings.Repeat("夜", 90)
	key := Key(title, "")

	first, _ := NewFileBackend(dir)
	if !NewStore(first).Put(ctx, title, "", lyrics.Empty()) {
		t.Fatal("expected put of a long key to succeed")
	}

	second, _ := NewFileBackend(dir)
	store := NewStore(second)
	doc, ok := store.Get(ctx, title, "")
	if !ok || !doc.IsEmpty() {
		t.Fatalf("expected cached empty from disk, ok=%v len=%d", ok, doc.Len())
	}

	keys := store.ListKeys(ctx)
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("ListKeys() = %v, want [%s]", keys, key)
	}

	files, _ := os.ReadDir(dir)
	for _, f := range files {
		if len(f.Name()) > 255 {
			t.Errorf("file name too long: %d bytes", len(f.Name()))
		}
	}

	if !store.DeleteKey(ctx, key) {
		t.Error("expected delete by key to succeed")
	}
	if _, ok := store.Get(ctx, title, ""); ok {
		t.Error("expected miss after delete")
	}
}

func TestFileNameIsStableAndBounded(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "short", key: "River-Joni"},
		{name: "ascii", key: strings.Repeat("a", 300)},
		{name: "cjk", key: strings.Repeat("夜", 120)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fileName(tt.key)
			if len(got) > maxNameBytes {
				t.Errorf("fileName length %d exceeds %d", len(got), maxNameBytes)
			}
			if got != fileName(tt.key) {
				t.Error("fileName is not deterministic")
			}
			if len(tt.key) <= maxNameBytes && got != tt.key {
				t.Errorf("short key renamed to %q", got)
			}
			if !utf8.ValidString(got) {
				t.Errorf("fileName %q is not valid utf-8", got)
			}
		})
	}

	if fileName(strings.Repeat("a", 300)) == fileName(strings.Repeat("a", 301)) {
		t.Error("distinct long keys share a file name")
	}
}

func TestFileBackendLoadDoesNotResurrectRemoved(t *testing.T) {
	ctx := context.Background()
	b, _ := NewFileBackend(t.TempDir())
	store := NewStore(b)
	store.Put(ctx, "River", "Joni", threeLines())

	// a fresh instance over the same dir has an empty mirror
	fresh, _ := NewFileBackend(b.Location())
	read := fresh.readFile
	fresh.readFile = func(path string) ([]byte, error) {
		data, err := read(path)
		// the entry is deleted after the disk read but before the mirror fill
		fresh.Remove(ctx, Key("River", "Joni"))
		return data, err
	}

	if _, err := fresh.Load(ctx, Key("River", "Joni")); err != nil {
		t.Fatalf("first load should still return the bytes it read: %v", err)
	}

	fresh.readFile = read
	if _, err := fresh.Load(ctx, Key("River", "Joni")); err != ErrMiss {
		t.Errorf("expected ErrMiss after removal, got %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(Options{Backend: "memcached"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestOpenFileBackend(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Backend: "file", Dir: dir})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if s.Location() != filepath.Join(dir, "lyrics") {
		t.Errorf("unexpected location %q", s.Location())
	}
}

func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("LYRICSYNC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LYRICSYNC_TEST_REDIS_ADDR not set")
	}

	backend, err := NewRedisBackend(addr, "", 0, "lyricsync:test:", true)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	s := NewStore(backend)
	defer s.Close()
	ctx := context.Background()
	s.Clear(ctx)

	s.Put(ctx, "River", "Joni", threeLines())
	doc, ok := s.Get(ctx, "River", "Joni")
	if !ok || doc.Len() != 3 {
		t.Errorf("expected round trip through redis, ok=%v len=%d", ok, doc.Len())
	}
	if !s.Delete(ctx, "River", "Joni") {
		t.Error("expected delete to report existing entry")
	}
	s.Clear(ctx)
}
