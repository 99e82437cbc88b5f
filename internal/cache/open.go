package cache

import (
	"fmt"
	"path/filepath"
)

type Options struct {
	Backend       string
	Dir           string
	Compression   bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open builds a Store over the backend named in opts: file (default),
// bolt or redis.
func Open(opts Options) (*Store, error) {
	switch opts.Backend {
	case "", "file":
		dir := opts.Dir
		if dir != "" {
			dir = filepath.Join(dir, lyricsCacheName)
		}
		backend, err := NewFileBackend(dir)
		if err != nil {
			return nil, err
		}
		return NewStore(backend), nil

	case "bolt":
		path := ""
		if opts.Dir != "" {
			path = filepath.Join(opts.Dir, "lyrics.db")
		}
		backend, err := NewBoltBackend(path, opts.Compression)
		if err != nil {
			return nil, err
		}
		return NewStore(backend), nil

	case "redis":
		backend, err := NewRedisBackend(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix, opts.Compression)
		if err != nil {
			return nil, err
		}
		return NewStore(backend), nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
