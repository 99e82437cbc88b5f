package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"karolbroda.com/lyricsync/internal/lyrics"
)

const entryVersion = 1

var (
	ErrMiss        = errors.New("cache miss")
	ErrCorrupt     = errors.New("cache corrupt")
	ErrKeyMismatch = errors.New("cache key belongs to another track")
)

// Entry is the persisted form of one document. An entry without lines
// records that a lookup found nothing.
type Entry struct {
	Version   int           `json:"version"`
	Key       string        `json:"key"`
	Title     string        `json:"title"`
	Artist    string        `json:"artist"`
	CreatedAt int64         `json:"createdAt"`
	Lines     []lyrics.Line `json:"lines"`
}

func (e *Entry) Document() lyrics.Document {
	return lyrics.NewDocument(e.Lines)
}

func (e *Entry) IsNegative() bool {
	return len(e.Lines) == 0
}

func encodeEntry(e *Entry) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if e.Version != entryVersion {
		return nil, fmt.Errorf("%w: version %d", ErrCorrupt, e.Version)
	}
	return &e, nil
}
