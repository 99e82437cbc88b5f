package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	cacheDirName    = "lyricsync"
	lyricsCacheName = "lyrics"
	entryExt        = ".json"

	// leaves room for the extension and temp suffix under the usual
	// 255 byte file name limit
	maxNameBytes = 200
	hashedMark   = "~"
)

// FileBackend keeps one JSON file per key with an in-memory mirror of
// everything it has read or written.
type FileBackend struct {
	basePath string
	mu       sync.RWMutex
	memCache map[string][]byte
	// bumped by every write or removal so a slow disk read cannot
	// resurrect a key in the mirror
	gen uint64

	readFile func(string) ([]byte, error)
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		cacheDir, err := DefaultDirectory()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(cacheDir, lyricsCacheName)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &FileBackend{
		basePath: dir,
		memCache: make(map[string][]byte),
		readFile: os.ReadFile,
	}, nil
}

// DefaultDirectory is $XDG_CACHE_HOME/lyricsync or ~/.cache/lyricsync.
func DefaultDirectory() (string, error) {
	// xdg cache home takes priority
	xdgCache := os.Getenv("XDG_CACHE_HOME")
	if xdgCache != "" {
		return filepath.Join(xdgCache, cacheDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".cache", cacheDirName), nil
}

func (b *FileBackend) Location() string {
	return b.basePath
}

func (b *FileBackend) filePath(key string) string {
	return filepath.Join(b.basePath, fileName(key)+entryExt)
}

// fileName is the key itself when it fits, otherwise a rune-aligned
// prefix followed by a sha256 of the whole key. Keys never contain the
// mark, so hashed names cannot clash with plain ones.
func fileName(key string) string {
	if len(key) <= maxNameBytes {
		return key
	}

	sum := sha256.Sum256([]byte(key))
	suffix := hashedMark + hex.EncodeToString(sum[:])

	prefix := key[:maxNameBytes-len(suffix)]
	for len(prefix) > 0 && !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix + suffix
}

func (b *FileBackend) Load(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	data, ok := b.memCache[key]
	gen := b.gen
	b.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := b.readFile(b.filePath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrMiss
		}
		return nil, err
	}

	b.mu.Lock()
	if b.gen == gen {
		b.memCache[key] = data
	}
	b.mu.Unlock()

	return data, nil
}

func (b *FileBackend) Save(_ context.Context, key string, data []byte) error {
	if err := b.writeToDisk(key, data); err != nil {
		return err
	}

	b.mu.Lock()
	b.gen++
	b.memCache[key] = data
	b.mu.Unlock()

	return nil
}

// writeToDisk writes a temp file next to the target and renames it over,
// so readers never observe a partial entry.
func (b *FileBackend) writeToDisk(key string, data []byte) error {
	file, err := os.CreateTemp(b.basePath, fileName(key)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, b.filePath(key)); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}

func (b *FileBackend) Remove(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	b.gen++
	delete(b.memCache, key)
	b.mu.Unlock()

	err := os.Remove(b.filePath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (b *FileBackend) RemoveAll(_ context.Context) error {
	b.mu.Lock()
	b.gen++
	b.memCache = make(map[string][]byte)
	b.mu.Unlock()

	entries, err := os.ReadDir(b.basePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), entryExt) {
			continue
		}
		if err := os.Remove(filepath.Join(b.basePath, entry.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (b *FileBackend) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.basePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), entryExt) {
			continue
		}
		keys = append(keys, b.keyForFile(entry.Name()))
	}

	return keys, nil
}

// keyForFile recovers the key behind a file name. Hashed names are read
// back from the entry; an unreadable one falls back to the name, which
// still addresses the same file.
func (b *FileBackend) keyForFile(name string) string {
	base := strings.TrimSuffix(name, entryExt)
	if !strings.Contains(base, hashedMark) {
		return base
	}

	data, err := os.ReadFile(filepath.Join(b.basePath, name))
	if err != nil {
		return base
	}
	entry, err := decodeEntry(data)
	if err != nil || entry.Key == "" {
		return base
	}
	return entry.Key
}

func (b *FileBackend) Size(_ context.Context) (int64, error) {
	entries, err := os.ReadDir(b.basePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var total int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), entryExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}

	return total, nil
}

func (b *FileBackend) Close() error {
	return nil
}
