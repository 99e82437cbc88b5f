package track

import (
	"github.com/mitchellh/hashstructure/v2"
)

// Snapshot is a point-in-time view of what the player is doing.
type Snapshot struct {
	Title          string `json:"title"`
	Artist         string `json:"artist"`
	Album          string `json:"album,omitempty"`
	DurationMillis int64  `json:"duration_ms"`
	Playing        bool   `json:"playing"`
	PositionMillis int64  `json:"position_ms" hash:"ignore"`
}

func (s *Snapshot) IsValid() bool {
	if s == nil {
		return false
	}
	return s.Title != ""
}

// Fingerprint hashes every field except the playback position.
func (s Snapshot) Fingerprint() uint64 {
	hash, err := hashstructure.Hash(s, hashstructure.FormatV2, nil)
	if err != nil {
		// only reachable with unhashable field types
		panic(err)
	}
	return hash
}

// Equivalent reports whether two snapshots differ only in position.
func (s Snapshot) Equivalent(other Snapshot) bool {
	return s.Fingerprint() == other.Fingerprint()
}

// IsSameTrack compares the identity used to look lyrics up, ignoring
// play state and position.
func (s *Snapshot) IsSameTrack(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Title == other.Title &&
		s.Artist == other.Artist &&
		s.Album == other.Album &&
		s.DurationMillis == other.DurationMillis
}
