package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyricsync/internal/logging"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

var ErrOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calling a provider after Threshold consecutive
// failures, then lets a single probe through once Cooldown has passed.
type CircuitBreaker struct {
	name            string
	state           State
	failures        int
	threshold       int
	cooldown        time.Duration
	halfOpenTimeout time.Duration
	lastFailureTime time.Time
	halfOpenStart   time.Time
	now             func() time.Time
	mu              sync.Mutex
}

type Config struct {
	Name            string
	Threshold       int
	Cooldown        time.Duration
	HalfOpenTimeout time.Duration
}

func New(cfg Config) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.HalfOpenTimeout <= 0 {
		cfg.HalfOpenTimeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &CircuitBreaker{
		name:            cfg.Name,
		state:           StateClosed,
		threshold:       cfg.Threshold,
		cooldown:        cfg.Cooldown,
		halfOpenTimeout: cfg.HalfOpenTimeout,
		now:             time.Now,
	}
}

// Allow reports whether a request may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) >= cb.cooldown {
			cb.state = StateHalfOpen
			cb.halfOpenStart = cb.now()
			log.Infof("%s cooldown passed, probing", logging.Breaker(cb.name))
			return true
		}
		return false

	case StateHalfOpen:
		// a probe is already in flight
		if cb.now().Sub(cb.halfOpenStart) >= cb.halfOpenTimeout {
			cb.state = StateOpen
			cb.lastFailureTime = cb.now()
			log.Warnf("%s probe timed out, back to OPEN", logging.Breaker(cb.name))
		}
		return false

	default:
		return true
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		log.Infof("%s probe succeeded, CLOSED", logging.Breaker(cb.name))
	}
	cb.state = StateClosed
	cb.failures = 0
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		log.Warnf("%s probe failed, back to OPEN", logging.Breaker(cb.name))
	case StateClosed:
		if cb.failures >= cb.threshold {
			cb.state = StateOpen
			log.Warnf("%s %d consecutive failures, OPEN for %v", logging.Breaker(cb.name), cb.failures, cb.cooldown)
		}
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.lastFailureTime = time.Time{}
	cb.halfOpenStart = time.Time{}
}
