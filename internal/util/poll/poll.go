package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// Result is a successful poll outcome.
type Result[T any] struct {
	Value    T
	Elapsed  time.Duration
	Attempts int
}

// Until evaluates check until the success policy accepts its value or the
// timeout elapses. An error from check, or from the OnRetry hook, is returned
// as-is without further attempts.
func Until[T any](ctx context.Context, check func(context.Context) (T, error), opts ...Option) (Result[T], error) {
	cfg := &Config{Delay: DefaultDelay}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Timeout <= 0 {
		return Result[T]{}, ErrNoTimeout
	}

	success := Truthy[T]
	if cfg.success != nil {
		fn, ok := cfg.success.(func(T) bool)
		if !ok {
			var zero T
			return Result[T]{}, fmt.Errorf("poll: success policy %T does not accept %T", cfg.success, zero)
		}
		success = fn
	}

	log := logr.FromContextOrDiscard(ctx).WithValues("poll", cfg.Message)
	delay := cfg.Delay
	start := time.Now()

	for attempt := 1; ; attempt++ {
		value, err := check(ctx)
		if err != nil {
			cfg.observeDone(time.Since(start), err)
			return Result[T]{}, err
		}

		ok := success(value)
		cfg.observeAttempt(attempt, ok)
		elapsed := time.Since(start)
		if ok {
			log.V(1).Info("condition met", "attempts", attempt, "elapsed", elapsed)
			cfg.observeDone(elapsed, nil)
			return Result[T]{Value: value, Elapsed: elapsed, Attempts: attempt}, nil
		}

		if elapsed >= cfg.Timeout {
			terr := &TimeoutError{
				Message:   cfg.Message,
				Timeout:   cfg.Timeout,
				Elapsed:   elapsed,
				Attempts:  attempt,
				LastValue: value,
			}
			cfg.observeDone(elapsed, terr)
			return Result[T]{}, terr
		}

		log.V(1).Info("condition not met", "attempt", attempt, "elapsed", elapsed, "value", value)

		if cfg.OnRetry != nil {
			if err := cfg.OnRetry(ctx); err != nil {
				cfg.observeDone(time.Since(start), err)
				return Result[T]{}, err
			}
		}

		// Never sleep past the deadline; the next attempt is the last one.
		wait := delay
		if remaining := cfg.Timeout - time.Since(start); remaining < wait {
			wait = max(remaining, 0)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			err := fmt.Errorf("%s: poll cancelled after %d attempts: %w", cfg.label(), attempt, ctx.Err())
			cfg.observeDone(time.Since(start), err)
			return Result[T]{}, err
		case <-timer.C:
		}

		delay = cfg.nextDelay(delay)
	}
}

// Condition is Until for boolean checks.
func Condition(ctx context.Context, check func(context.Context) (bool, error), opts ...Option) error {
	_, err := Until(ctx, check, opts...)
	return err
}

func (c *Config) label() string {
	if c.Message == "" {
		return "condition"
	}
	return c.Message
}

func (c *Config) name() string {
	if c.Name != "" {
		return c.Name
	}
	return c.label()
}

func (c *Config) observeAttempt(attempt int, ok bool) {
	if c.Observer != nil {
		c.Observer.ObserveAttempt(c.name(), attempt, ok)
	}
}

func (c *Config) observeDone(elapsed time.Duration, err error) {
	if c.Observer != nil {
		c.Observer.ObserveDone(c.name(), elapsed, err)
	}
}
