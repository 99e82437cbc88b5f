package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"karolbroda.com/lyricsync/internal/track"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func river() track.Snapshot {
	return track.Snapshot{Title: "River", Artist: "Joni", Album: "Blue", DurationMillis: 240000, Playing: true}
}

func carey() track.Snapshot {
	return track.Snapshot{Title: "Carey", Artist: "Joni", Album: "Blue", DurationMillis: 180000, Playing: true}
}

func drain(ch <-chan TrackChanged) []TrackChanged {
	var out []TrackChanged
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestTrackerIgnoresInvalidSnapshots(t *testing.T) {
	tr := NewTracker()

	if tr.Notify(track.Snapshot{Artist: "Joni"}) {
		t.Error("snapshot without title should not be published")
	}
	if tr.State() != Idle {
		t.Errorf("expected idle, got %s", tr.State())
	}
}

func TestTrackerEventPathSuppressesEquivalent(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))

	if !tr.Notify(river()) {
		t.Fatal("first snapshot should be published")
	}
	if tr.State() != Tracking {
		t.Errorf("expected tracking, got %s", tr.State())
	}

	moved := river()
	moved.PositionMillis = 5000
	if tr.Notify(moved) {
		t.Error("position-only change should not be published")
	}

	paused := river()
	paused.Playing = false
	if !tr.Notify(paused) {
		t.Error("play state change should be published on the event path")
	}

	// the event path has no debounce
	if !tr.Notify(carey()) {
		t.Error("new track should be published immediately")
	}

	if got := len(drain(tr.Events())); got != 3 {
		t.Errorf("expected 3 events, got %d", got)
	}
}

func TestTrackerPollDebounce(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))

	if !tr.Observe(river()) {
		t.Fatal("first poll should be published")
	}
	drain(tr.Events())

	clock.Advance(100 * time.Millisecond)
	moved := river()
	moved.PositionMillis = 100
	if tr.Observe(moved) {
		t.Error("position-only change should not be published")
	}

	clock.Advance(100 * time.Millisecond)
	if tr.Observe(carey()) {
		t.Error("new track inside the debounce window should be suppressed")
	}

	if got := len(drain(tr.Events())); got != 0 {
		t.Errorf("expected no events inside window, got %d", got)
	}

	clock.Advance(1900 * time.Millisecond)
	if !tr.Observe(carey()) {
		t.Error("new track 2100ms after the last publish should be published")
	}

	events := drain(tr.Events())
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Snapshot.Title != "Carey" || events[0].Origin != FromPoll {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestTrackerPathsShareLastPublished(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))

	tr.Notify(river())
	clock.Advance(5 * time.Second)

	if tr.Observe(river()) {
		t.Error("poll should see the snapshot already published by an event")
	}

	tr.Notify(carey())
	clock.Advance(500 * time.Millisecond)
	if tr.Observe(river()) {
		t.Error("poll should be debounced against an event publish")
	}
}

func TestTrackerPositionExtrapolation(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))

	snap := river()
	snap.PositionMillis = 10000
	tr.Notify(snap)

	clock.Advance(1500 * time.Millisecond)
	if got := tr.Position(); got != 11500 {
		t.Errorf("expected 11500, got %d", got)
	}

	tr.Seek(60000)
	clock.Advance(500 * time.Millisecond)
	if got := tr.Position(); got != 60500 {
		t.Errorf("expected 60500 after seek, got %d", got)
	}

	clock.Advance(10 * time.Minute)
	if got := tr.Position(); got != snap.DurationMillis {
		t.Errorf("expected position clamped to %d, got %d", snap.DurationMillis, got)
	}
}

func TestTrackerPositionFrozenWhilePaused(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))

	snap := river()
	snap.Playing = false
	snap.PositionMillis = 3000
	tr.Notify(snap)

	clock.Advance(2 * time.Second)
	if got := tr.Position(); got != 3000 {
		t.Errorf("expected 3000 while paused, got %d", got)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.Reset()
	if got := len(drain(tr.Events())); got != 0 {
		t.Errorf("reset while idle should not emit, got %d", got)
	}

	tr.Notify(river())
	drain(tr.Events())

	tr.Reset()
	events := drain(tr.Events())
	if len(events) != 1 || events[0].Origin != FromReset || events[0].Snapshot.IsValid() {
		t.Errorf("expected a single reset event, got %+v", events)
	}
	if _, ok := tr.Current(); ok {
		t.Error("expected no current snapshot after reset")
	}

	if !tr.Observe(river()) {
		t.Error("poll right after reset should publish")
	}
}

func TestTrackerDropsOldestWhenFull(t *testing.T) {
	tr := NewTracker()

	for i := 0; i < eventBuffer+4; i++ {
		snap := river()
		snap.DurationMillis = int64(i + 1)
		tr.Notify(snap)
	}

	events := drain(tr.Events())
	if len(events) != eventBuffer {
		t.Fatalf("expected %d buffered events, got %d", eventBuffer, len(events))
	}
	if got := events[len(events)-1].Snapshot.DurationMillis; got != eventBuffer+4 {
		t.Errorf("expected newest event kept, got duration %d", got)
	}
}

type fakeSource struct {
	mu    sync.Mutex
	snap  track.Snapshot
	ok    bool
	err   error
	calls int
}

func (f *fakeSource) QueryActiveSession(context.Context) (track.Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.snap, f.ok, f.err
}

func TestTrackerPoll(t *testing.T) {
	src := &fakeSource{snap: river(), ok: true}
	tr := NewTracker()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Poll(ctx, src, 10*time.Millisecond)
		close(done)
	}()

	select {
	case ev := <-tr.Events():
		if ev.Snapshot.Title != "River" {
			t.Errorf("expected River, got %q", ev.Snapshot.Title)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for poll event")
	}

	src.mu.Lock()
	src.err = errors.New("player gone")
	src.mu.Unlock()

	select {
	case ev := <-tr.Events():
		if ev.Origin != FromReset {
			t.Errorf("expected reset event, got %s", ev.Origin)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reset event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poll did not stop after cancel")
	}
}
