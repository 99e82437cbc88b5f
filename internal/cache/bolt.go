package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"karolbroda.com/lyricsync/internal/logging"
)

const bucketName = "lyrics"

// BoltBackend keeps every entry as one record in a single bbolt file,
// optionally gzip-compressed, mirrored in memory after first access.
type BoltBackend struct {
	db          *bolt.DB
	dbPath      string
	memCache    sync.Map
	compression bool
}

func NewBoltBackend(dbPath string, compression bool) (*BoltBackend, error) {
	if dbPath == "" {
		cacheDir, err := DefaultDirectory()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(cacheDir, "lyrics.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	log.Debugf("%s bolt cache opened at %s (compression: %v)", logging.Cache, dbPath, compression)

	return &BoltBackend{
		db:          db,
		dbPath:      dbPath,
		compression: compression,
	}, nil
}

func (b *BoltBackend) Location() string {
	return b.dbPath
}

func (b *BoltBackend) Load(_ context.Context, key string) ([]byte, error) {
	if v, ok := b.memCache.Load(key); ok {
		return v.([]byte), nil
	}

	var stored []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return ErrMiss
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return ErrMiss
		}
		// bolt memory is only valid inside the transaction
		stored = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	value := stored
	if b.compression {
		value, err = decompress(stored)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	b.memCache.Store(key, value)
	return value, nil
}

func (b *BoltBackend) Save(_ context.Context, key string, data []byte) error {
	stored := data
	if b.compression {
		var err error
		stored, err = compress(data)
		if err != nil {
			return err
		}
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("bucket %s missing", bucketName)
		}
		return bucket.Put([]byte(key), stored)
	})
	if err != nil {
		return err
	}

	b.memCache.Store(key, data)
	return nil
}

func (b *BoltBackend) Remove(_ context.Context, key string) (bool, error) {
	b.memCache.Delete(key)

	existed := false
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return nil
		}
		if bucket.Get([]byte(key)) == nil {
			return nil
		}
		existed = true
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return false, err
	}

	return existed, nil
}

func (b *BoltBackend) RemoveAll(_ context.Context) error {
	b.memCache.Range(func(k, _ any) bool {
		b.memCache.Delete(k)
		return true
	})

	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucketName)) != nil {
			if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

func (b *BoltBackend) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Size is the number of stored bytes across records, not the file size,
// since bbolt does not shrink its file after deletes.
func (b *BoltBackend) Size(_ context.Context) (int64, error) {
	var total int64
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			total += int64(len(k) + len(v))
			return nil
		})
	})
	return total, err
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}
