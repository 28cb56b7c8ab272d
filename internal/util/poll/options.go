package poll

import (
	"context"
	"time"
)

// DefaultDelay is the spacing between evaluations when WithDelay is not given.
const DefaultDelay = time.Second

// Config holds poll configuration.
type Config struct {
	Timeout    time.Duration
	Delay      time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	Message    string
	Name       string
	OnRetry    func(context.Context) error
	Observer   Observer

	success any
}

// Option is a functional option for poll configuration.
type Option func(*Config)

// Observer is notified about every attempt and the final outcome of a poll.
// It receives the poll's name, falling back to its message.
type Observer interface {
	ObserveAttempt(name string, attempt int, ok bool)
	ObserveDone(name string, elapsed time.Duration, err error)
}

// WithTimeout sets the wall-clock budget. It is mandatory.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithDelay sets the minimum spacing between evaluations.
func WithDelay(d time.Duration) Option {
	return func(c *Config) {
		c.Delay = d
	}
}

// WithBackoff multiplies the delay after every failed attempt, capped at max.
func WithBackoff(multiplier float64, maxDelay time.Duration) Option {
	return func(c *Config) {
		c.Multiplier = multiplier
		c.MaxDelay = maxDelay
	}
}

// WithMessage labels the poll in logs and in the timeout report.
func WithMessage(msg string) Option {
	return func(c *Config) {
		c.Message = msg
	}
}

// WithName sets a stable name reported to the Observer in place of the
// message. Use it when the message carries IDs or counts.
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithOnRetry runs fn after each failed attempt, before sleeping. An error
// from fn aborts the poll.
func WithOnRetry(fn func(context.Context) error) Option {
	return func(c *Config) {
		c.OnRetry = fn
	}
}

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		c.Observer = o
	}
}

// WithSuccess replaces the Truthy default. The policy type must match the
// check's result type.
func WithSuccess[T any](fn func(T) bool) Option {
	return func(c *Config) {
		c.success = fn
	}
}

func (c *Config) nextDelay(d time.Duration) time.Duration {
	if c.Multiplier <= 1 {
		return d
	}
	d = time.Duration(float64(d) * c.Multiplier)
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}
