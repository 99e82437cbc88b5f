package player

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/track"
)

const (
	DefaultDebounce     = 2000 * time.Millisecond
	DefaultPollInterval = time.Second

	eventBuffer = 16
)

type State int

const (
	Idle State = iota
	Tracking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	default:
		return "unknown"
	}
}

type Origin int

const (
	FromEvent Origin = iota
	FromPoll
	FromReset
)

func (o Origin) String() string {
	switch o {
	case FromEvent:
		return "event"
	case FromPoll:
		return "poll"
	case FromReset:
		return "reset"
	default:
		return "unknown"
	}
}

// TrackChanged carries a newly published snapshot. A snapshot that is not
// valid means the session went away.
type TrackChanged struct {
	Snapshot track.Snapshot
	Origin   Origin
	At       time.Time
}

// SessionSource is the pull side of a media session.
type SessionSource interface {
	QueryActiveSession(ctx context.Context) (track.Snapshot, bool, error)
}

type TrackerOption func(*Tracker)

func WithDebounce(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.debounce = d
	}
}

func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// Tracker turns raw session snapshots into TrackChanged events. Pushed
// notifications and polled probes share the last published snapshot;
// probes are additionally held back for the debounce window after each
// publish.
type Tracker struct {
	mu          sync.Mutex
	debounce    time.Duration
	now         func() time.Time
	state       State
	last        track.Snapshot
	lastPublish time.Time

	positionMillis int64
	positionAt     time.Time

	events chan TrackChanged
}

func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		debounce: DefaultDebounce,
		now:      time.Now,
		events:   make(chan TrackChanged, eventBuffer),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Events() <-chan TrackChanged {
	return t.events
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Current returns the last published snapshot with its position
// extrapolated to now.
func (t *Tracker) Current() (track.Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Idle {
		return track.Snapshot{}, false
	}
	snap := t.last
	snap.PositionMillis = t.positionLocked()
	return snap, true
}

// Notify handles a pushed notification. It returns true if the snapshot
// was published.
func (t *Tracker) Notify(snap track.Snapshot) bool {
	return t.offer(snap, FromEvent)
}

// Observe handles a polled snapshot.
func (t *Tracker) Observe(snap track.Snapshot) bool {
	return t.offer(snap, FromPoll)
}

func (t *Tracker) offer(snap track.Snapshot, origin Origin) bool {
	if !snap.IsValid() {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()

	if t.state == Tracking && snap.Equivalent(t.last) {
		t.setPositionLocked(snap.PositionMillis, now)
		return false
	}

	if origin == FromPoll && !t.lastPublish.IsZero() && now.Sub(t.lastPublish) < t.debounce {
		log.Debugf("%s poll snapshot %q held back by debounce", logging.Tracker, snap.Title)
		return false
	}

	t.state = Tracking
	t.last = snap
	t.lastPublish = now
	t.setPositionLocked(snap.PositionMillis, now)

	log.Debugf("%s publishing %q by %q (%s)", logging.Tracker, snap.Title, snap.Artist, origin)
	t.emitLocked(TrackChanged{Snapshot: snap, Origin: origin, At: now})
	return true
}

// Seek records an out-of-band position report for the current track.
func (t *Tracker) Seek(positionMillis int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Idle {
		return
	}
	t.setPositionLocked(positionMillis, t.now())
}

// Reset drops back to Idle and tells listeners the session is gone.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Idle {
		return
	}

	now := t.now()
	t.state = Idle
	t.last = track.Snapshot{}
	t.lastPublish = time.Time{}
	t.positionMillis = 0
	t.positionAt = time.Time{}

	log.Debugf("%s session lost", logging.Tracker)
	t.emitLocked(TrackChanged{Origin: FromReset, At: now})
}

// Position extrapolates the last reported position while playing, bounded
// by the track duration when it is known.
func (t *Tracker) Position() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

func (t *Tracker) positionLocked() int64 {
	if t.state == Idle {
		return 0
	}

	pos := t.positionMillis
	if t.last.Playing && !t.positionAt.IsZero() {
		pos += t.now().Sub(t.positionAt).Milliseconds()
	}
	if t.last.DurationMillis > 0 && pos > t.last.DurationMillis {
		pos = t.last.DurationMillis
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

func (t *Tracker) setPositionLocked(positionMillis int64, at time.Time) {
	if positionMillis < 0 {
		positionMillis = 0
	}
	t.positionMillis = positionMillis
	t.positionAt = at
}

// emitLocked never blocks; when the buffer is full the oldest event is
// dropped.
func (t *Tracker) emitLocked(ev TrackChanged) {
	for {
		select {
		case t.events <- ev:
			return
		default:
		}
		select {
		case <-t.events:
		default:
		}
	}
}

// Poll probes src every interval until ctx is done. A probe that finds no
// session resets the tracker.
func (t *Tracker) Poll(ctx context.Context, src SessionSource, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.probe(ctx, src)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.probe(ctx, src)
		}
	}
}

func (t *Tracker) probe(ctx context.Context, src SessionSource) {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	snap, ok, err := src.QueryActiveSession(probeCtx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Debugf("%s probe failed: %v", logging.Tracker, err)
		t.Reset()
		return
	}
	if !ok {
		t.Reset()
		return
	}
	t.Observe(snap)
}
