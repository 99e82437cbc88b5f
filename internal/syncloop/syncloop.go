package syncloop

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/resolver"
	"karolbroda.com/lyricsync/internal/track"
)

const (
	DefaultTick = 500 * time.Millisecond

	updateBuffer = 16
)

var ErrAlreadyRunning = errors.New("sync loop already running")

type State int

const (
	NoTrack State = iota
	Resolving
	Active
)

func (s State) String() string {
	switch s {
	case NoTrack:
		return "no_track"
	case Resolving:
		return "resolving"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DisplayUpdate is what the presentation layer renders.
type DisplayUpdate struct {
	LineText       string          `json:"line_text"`
	LineIndex      int             `json:"line_index"`
	IsCurrentLine  bool            `json:"is_current_line"`
	State          State           `json:"state"`
	Track          track.Snapshot  `json:"track"`
	NoLyrics       bool            `json:"no_lyrics"`
	PositionMillis int64           `json:"position_ms"`
	Source         string          `json:"source,omitempty"`
	Document       lyrics.Document `json:"-"`
}

// Settings are read before every resolution and on every tick.
type Settings struct {
	EnableCache  bool
	AutoDownload bool
	OffsetMillis int64
}

type Resolver interface {
	Lookup(ctx context.Context, req resolver.Request) resolver.Result
}

type PositionSource interface {
	Position() int64
}

type Options struct {
	Resolver Resolver
	Position PositionSource
	Settings func() Settings
	Tick     time.Duration
}

// Status is a read-only copy of the loop state.
type Status struct {
	State              State
	Track              track.Snapshot
	Document           lyrics.Document
	Source             string
	LastPositionMillis int64
	LastLineIndex      int
}

type resolution struct {
	generation uint64
	result     resolver.Result
}

// Loop maps playback position onto the active lyric document. All state
// changes happen on the goroutine running Run.
type Loop struct {
	resolver Resolver
	position PositionSource
	settings func() Settings
	tick     time.Duration

	updates chan DisplayUpdate
	results chan resolution

	mu            sync.Mutex
	running       bool
	state         State
	active        track.Snapshot
	document      lyrics.Document
	source        string
	lastPosition  int64
	lastLineIndex int
	generation    uint64
	cancelResolve context.CancelFunc
}

func New(opts Options) *Loop {
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	settings := opts.Settings
	if settings == nil {
		settings = func() Settings {
			return Settings{EnableCache: true, AutoDownload: true}
		}
	}

	return &Loop{
		resolver:      opts.Resolver,
		position:      opts.Position,
		settings:      settings,
		tick:          tick,
		updates:       make(chan DisplayUpdate, updateBuffer),
		results:       make(chan resolution),
		document:      lyrics.Empty(),
		lastLineIndex: -1,
	}
}

// Updates is closed when Run returns.
func (l *Loop) Updates() <-chan DisplayUpdate {
	return l.updates
}

func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		State:              l.state,
		Track:              l.active,
		Document:           l.document,
		Source:             l.source,
		LastPositionMillis: l.lastPosition,
		LastLineIndex:      l.lastLineIndex,
	}
}

// Run consumes track changes until ctx is done, then cancels any pending
// resolution and closes Updates.
func (l *Loop) Run(ctx context.Context, events <-chan player.TrackChanged) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.running = true
	l.mu.Unlock()

	ticker := time.NewTicker(l.tick)
	defer l.teardown(ticker)

	log.Debugf("%s loop started, tick %s", logging.Sync, l.tick)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.handleTrackChanged(ctx, ev)
		case res := <-l.results:
			l.handleResolution(res)
		case <-ticker.C:
			l.handleTick()
		}
	}
}

func (l *Loop) teardown(ticker *time.Ticker) {
	ticker.Stop()

	l.mu.Lock()
	if l.cancelResolve != nil {
		l.cancelResolve()
		l.cancelResolve = nil
	}
	// any result still on its way carries a stale generation
	l.generation++
	l.mu.Unlock()

	close(l.updates)
	log.Debugf("%s loop stopped", logging.Sync)
}

func (l *Loop) handleTrackChanged(ctx context.Context, ev player.TrackChanged) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !ev.Snapshot.IsValid() {
		if l.state == NoTrack {
			return
		}
		l.supersedeLocked()
		l.state = NoTrack
		l.active = track.Snapshot{}
		l.source = ""
		log.Infof("%s no active track", logging.Sync)
		l.publishLocked(l.displayLocked(""))
		return
	}

	if l.state != NoTrack && l.active.IsSameTrack(&ev.Snapshot) {
		l.active = ev.Snapshot
		return
	}

	l.supersedeLocked()
	l.state = Resolving
	l.active = ev.Snapshot
	l.source = ""
	l.lastPosition = ev.Snapshot.PositionMillis

	gen := l.generation
	resolveCtx, cancel := context.WithCancel(ctx)
	l.cancelResolve = cancel

	settings := l.settings()
	req := resolver.Request{
		Title:    ev.Snapshot.Title,
		Artist:   ev.Snapshot.Artist,
		Album:    ev.Snapshot.Album,
		UseCache: settings.EnableCache,
		Network:  settings.AutoDownload,
	}

	log.Infof("%s resolving %q by %q", logging.Sync, req.Title, req.Artist)
	l.publishLocked(l.displayLocked(""))

	go func() {
		res := l.resolver.Lookup(resolveCtx, req)
		select {
		case l.results <- resolution{generation: gen, result: res}:
		case <-resolveCtx.Done():
		}
	}()
}

// supersedeLocked cancels the in-flight resolution and invalidates its
// result.
func (l *Loop) supersedeLocked() {
	if l.cancelResolve != nil {
		l.cancelResolve()
		l.cancelResolve = nil
	}
	l.generation++
	l.document = lyrics.Empty()
	l.lastLineIndex = -1
}

func (l *Loop) handleResolution(res resolution) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if res.generation != l.generation || l.state != Resolving {
		log.Debugf("%s discarding stale resolution", logging.Sync)
		return
	}

	if l.cancelResolve != nil {
		l.cancelResolve()
		l.cancelResolve = nil
	}

	l.state = Active
	l.document = res.result.Document
	l.source = res.result.Source
	l.lastLineIndex = -1
	if l.position != nil {
		l.lastPosition = l.position.Position()
	}

	if l.document.IsEmpty() {
		log.Infof("%s no lyrics for %q", logging.Sync, l.active.Title)
	} else {
		log.Infof("%s %d lines ready for %q (%s)", logging.Sync, l.document.Len(), l.active.Title, l.source)
	}

	l.publishLocked(l.displayLocked(""))
	l.advanceLocked()
}

func (l *Loop) handleTick() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Active {
		return
	}
	if l.active.Playing && l.position != nil {
		l.lastPosition = l.position.Position()
	}
	l.advanceLocked()
}

func (l *Loop) advanceLocked() {
	if l.document.IsEmpty() {
		return
	}

	at := l.lastPosition + l.settings().OffsetMillis
	index := l.document.LineIndexAtTime(at)
	if index == l.lastLineIndex {
		return
	}
	l.lastLineIndex = index

	text := ""
	if line, ok := l.document.Line(index); ok {
		text = line.Text
	}
	l.publishLocked(l.displayLocked(text))
}

func (l *Loop) displayLocked(text string) DisplayUpdate {
	return DisplayUpdate{
		LineText:       text,
		LineIndex:      l.lastLineIndex,
		IsCurrentLine:  l.lastLineIndex >= 0,
		State:          l.state,
		Track:          l.active,
		NoLyrics:       l.state == Active && l.document.IsEmpty(),
		PositionMillis: l.lastPosition,
		Source:         l.source,
		Document:       l.document,
	}
}

// publishLocked never blocks the loop; a slow reader loses the oldest
// update.
func (l *Loop) publishLocked(u DisplayUpdate) {
	for {
		select {
		case l.updates <- u:
			return
		default:
		}
		select {
		case <-l.updates:
		default:
		}
	}
}
