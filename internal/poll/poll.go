// Package poll runs a check repeatedly until it reports completion, with a
// bounded number of attempts, a growing delay between attempts and an
// overall deadline.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Defaults applied by New for zero-valued Config fields.
const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxInterval = 15 * time.Second
	DefaultMultiplier  = 1.5
	DefaultMaxAttempts = 120
	DefaultTimeout     = 10 * time.Minute
)

// Config bounds a polling loop.
type Config struct {
	// Interval is the delay before the second attempt (default: 2s)
	Interval time.Duration

	// MaxInterval caps the delay between attempts (default: 15s)
	MaxInterval time.Duration

	// Multiplier grows the delay after each attempt (default: 1.5).
	// 1 keeps a fixed interval.
	Multiplier float64

	// MaxAttempts is the maximum number of checks (default: 120)
	MaxAttempts int

	// Timeout bounds the total time spent polling (default: 10m)
	Timeout time.Duration
}

// Validate reports configuration values that cannot produce a bounded loop.
func (c Config) Validate() error {
	if c.Interval < 0 || c.MaxInterval < 0 || c.Timeout < 0 {
		return fmt.Errorf("poll durations must not be negative")
	}
	if c.Multiplier != 0 && c.Multiplier < 1 {
		return fmt.Errorf("poll multiplier must be >= 1, got %v", c.Multiplier)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("poll max attempts must not be negative, got %d", c.MaxAttempts)
	}
	if c.MaxInterval != 0 && c.Interval > c.MaxInterval {
		return fmt.Errorf("poll interval %s exceeds max interval %s", c.Interval, c.MaxInterval)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = DefaultMaxInterval
	}
	if c.MaxInterval < c.Interval {
		c.MaxInterval = c.Interval
	}
	if c.Multiplier == 0 {
		c.Multiplier = DefaultMultiplier
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// ErrExhausted is wrapped by the error Poll returns when the attempt or
// time bound is reached before the check reports completion.
var ErrExhausted = errors.New("polling bound exhausted")

// ExhaustedError carries the progress made before the bound was hit.
type ExhaustedError struct {
	Attempts int
	Elapsed  time.Duration
	Reason   string // "max attempts" or "timeout"
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s reached after %d attempts in %s", ErrExhausted, e.Reason, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

func (e *ExhaustedError) Unwrap() error { return ErrExhausted }

// CheckFunc performs one attempt. Returning done=true stops polling
// successfully; a non-nil error stops polling with that error.
type CheckFunc func(ctx context.Context, attempt int) (done bool, err error)

// Poller runs bounded polling loops.
type Poller struct {
	cfg Config
}

// New creates a Poller, filling zero-valued fields with defaults.
func New(cfg Config) *Poller {
	return &Poller{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (p *Poller) Config() Config {
	return p.cfg
}

// Poll calls check until it reports done, returns an error, or the bound is
// exhausted. The first check runs immediately. Cancellation of ctx is
// returned as the context's error, not as ErrExhausted. The returned count
// is the number of checks performed.
func (p *Poller) Poll(ctx context.Context, check CheckFunc) (int, error) {
	start := time.Now()
	deadline := start.Add(p.cfg.Timeout)
	pollCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	interval := p.cfg.Interval
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	exhausted := func(attempts int, reason string) error {
		return &ExhaustedError{Attempts: attempts, Elapsed: time.Since(start), Reason: reason}
	}

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		r := limiter.Reserve()
		delay := r.Delay()
		if time.Now().Add(delay).After(deadline) {
			r.Cancel()
			return attempt - 1, exhausted(attempt-1, "timeout")
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				r.Cancel()
				return attempt - 1, ctx.Err()
			case <-timer.C:
			}
		}

		done, err := check(pollCtx, attempt)
		if done && err == nil {
			return attempt, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return attempt, ctx.Err()
			}
			if pollCtx.Err() != nil {
				return attempt, exhausted(attempt, "timeout")
			}
			return attempt, err
		}

		next := p.nextInterval(interval)
		if next != interval {
			interval = next
			limiter.SetLimit(rate.Every(interval))
		}
	}

	return p.cfg.MaxAttempts, exhausted(p.cfg.MaxAttempts, "max attempts")
}

// nextInterval grows interval by the multiplier, capped at MaxInterval. The
// product is compared as a float so huge multipliers cannot overflow.
func (p *Poller) nextInterval(interval time.Duration) time.Duration {
	f := float64(interval) * p.cfg.Multiplier
	if f >= float64(p.cfg.MaxInterval) {
		return p.cfg.MaxInterval
	}
	return time.Duration(f)
}
