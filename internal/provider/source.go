package provider

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"karolbroda.com/lyricsync/internal/circuitbreaker"
	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/lyrics"
)

// Source wraps a Provider with a rate limiter and a circuit breaker and
// swallows every failure: callers only see empty results.
type Source struct {
	provider Provider
	limiter  *rate.Limiter
	breaker  *circuitbreaker.CircuitBreaker
}

type SourceConfig struct {
	RatePerSecond    float64
	Burst            int
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func NewSource(p Provider, cfg SourceConfig) *Source {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Source{
		provider: p,
		limiter:  rate.NewLimiter(limit, burst),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:      p.Name(),
			Threshold: cfg.BreakerThreshold,
			Cooldown:  cfg.BreakerCooldown,
		}),
	}
}

func (s *Source) Name() string {
	return s.provider.Name()
}

func (s *Source) BreakerState() circuitbreaker.State {
	return s.breaker.State()
}

// SearchCandidates returns the provider's matches, or nothing on any
// failure.
func (s *Source) SearchCandidates(ctx context.Context, title, artist string) []Candidate {
	var candidates []Candidate
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		candidates, err = s.provider.Search(ctx, title, artist)
		return err
	})
	if err != nil {
		s.logFailure("search", err)
		return nil
	}
	return candidates
}

// FetchLyricText returns the raw lyric text for a candidate id.
func (s *Source) FetchLyricText(ctx context.Context, id string) (string, bool) {
	var text string
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		text, err = s.provider.FetchLyricText(ctx, id)
		return err
	})
	if err != nil {
		s.logFailure("fetch", err)
		return "", false
	}
	return text, text != ""
}

// FetchByQuery searches, takes the first candidate and parses its text.
func (s *Source) FetchByQuery(ctx context.Context, title, artist string) (lyrics.Document, bool) {
	candidates := s.SearchCandidates(ctx, title, artist)
	if len(candidates) == 0 {
		log.Debugf("%s no candidates for %q / %q", logging.Provider(s.Name()), title, artist)
		return lyrics.Empty(), false
	}

	first := candidates[0]
	text, ok := s.FetchLyricText(ctx, first.ProviderTrackID)
	if !ok {
		return lyrics.Empty(), false
	}

	doc := lyrics.Parse(text)
	log.Debugf("%s %s - %s (id %s): %d lines", logging.Provider(s.Name()), first.Artist, first.Title, first.ProviderTrackID, doc.Len())
	return doc, true
}

// call runs fn under the limiter and breaker. Not-found answers count as
// success for the breaker.
func (s *Source) call(ctx context.Context, fn func(context.Context) error) error {
	if !s.breaker.Allow() {
		return circuitbreaker.ErrOpen
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	err := fn(ctx)
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		s.breaker.RecordSuccess()
	case ctx.Err() != nil:
		// cancelled by the caller, not the provider's fault
	default:
		s.breaker.RecordFailure()
	}
	return err
}

func (s *Source) logFailure(op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		log.Debugf("%s %s: nothing found", logging.Provider(s.Name()), op)
	case errors.Is(err, circuitbreaker.ErrOpen):
		log.Debugf("%s %s skipped: %v", logging.Provider(s.Name()), op, err)
	case errors.Is(err, context.Canceled):
		log.Debugf("%s %s cancelled", logging.Provider(s.Name()), op)
	default:
		log.Warnf("%s %s failed: %v", logging.Provider(s.Name()), op, err)
	}
}
