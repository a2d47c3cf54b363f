package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State represents circuit breaker state
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls fail fast until the cooldown elapses
	StateHalfOpen              // a limited number of probe calls are let through
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

type Config struct {
	FailureThreshold int           // consecutive failures before opening
	Cooldown         time.Duration // time spent open before probing
	ProbeSuccesses   int           // probe successes needed to close again
	MaxProbes        int           // concurrent probes allowed while half-open
	CallTimeout      time.Duration // per-call deadline applied by Do; zero disables it
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		ProbeSuccesses:   2,
		MaxProbes:        1,
		CallTimeout:      30 * time.Second,
	}
}

// StateListener is notified after every transition, outside the breaker lock.
type StateListener func(name string, from, to State)

// Breaker guards calls to a remote dependency.
type Breaker struct {
	mu        sync.Mutex
	name      string
	cfg       Config
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time
	now       func() time.Time
	logger    *zap.Logger
	onChange  StateListener
}

type Option func(*Breaker)

func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

func WithStateListener(fn StateListener) Option {
	return func(b *Breaker) { b.onChange = fn }
}

func NewBreaker(name string, cfg Config, logger *zap.Logger, opts ...Option) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.ProbeSuccesses <= 0 {
		cfg.ProbeSuccesses = 1
	}
	if cfg.MaxProbes <= 0 {
		cfg.MaxProbes = 1
	}

	b := &Breaker{
		name:   name,
		cfg:    cfg,
		state:  StateClosed,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Do runs fn under the breaker and the configured call timeout. A call the
// caller abandoned (context.Canceled) is not counted against the dependency.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.Allow(); err != nil {
		return err
	}

	callCtx := ctx
	if b.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.cfg.CallTimeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		b.release()
		return err
	}
	b.Record(err)
	return err
}

// Allow reserves a slot for one call or reports why none is available.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	var from State
	transitioned := false

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		from, transitioned = b.setState(StateHalfOpen), true
		b.probes = 1
	case StateHalfOpen:
		if b.probes >= b.cfg.MaxProbes {
			b.mu.Unlock()
			return ErrTooManyRequests
		}
		b.probes++
	}
	b.mu.Unlock()

	if transitioned {
		b.notify(from, StateHalfOpen)
	}
	return nil
}

// Record reports the outcome of a call admitted by Allow.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	from := b.state
	to := from

	if b.state == StateHalfOpen && b.probes > 0 {
		b.probes--
	}

	if err != nil {
		b.failures++
		b.successes = 0
		if b.state == StateHalfOpen || (b.state == StateClosed && b.failures >= b.cfg.FailureThreshold) {
			b.openedAt = b.now()
			to = StateOpen
		}
	} else {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.successes++
			if b.successes >= b.cfg.ProbeSuccesses {
				to = StateClosed
			}
		}
	}

	if to != from {
		b.setState(to)
	}
	b.mu.Unlock()

	if to != from {
		b.notify(from, to)
	}
}

func (b *Breaker) release() {
	b.mu.Lock()
	if b.state == StateHalfOpen && b.probes > 0 {
		b.probes--
	}
	b.mu.Unlock()
}

// setState must be called with the lock held; it returns the previous state.
func (b *Breaker) setState(to State) State {
	from := b.state
	b.state = to
	b.probes = 0
	if to == StateClosed || to == StateHalfOpen {
		b.successes = 0
	}
	if to == StateClosed {
		b.failures = 0
	}
	return from
}

func (b *Breaker) notify(from, to State) {
	b.logger.Warn("Circuit breaker state changed",
		zap.String("name", b.name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Name() string {
	return b.name
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.setState(StateClosed)
	b.mu.Unlock()
	if from != StateClosed {
		b.notify(from, StateClosed)
	}
}
