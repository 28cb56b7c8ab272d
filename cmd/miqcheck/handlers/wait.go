package handlers

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/imamik/miqcheck/internal/rest"
	"github.com/imamik/miqcheck/internal/util/poll"
)

// WaitOptions controls the wait command.
type WaitOptions struct {
	// Field is the attribute to watch.
	Field string
	// Equals, when set, is the value Field must reach. Otherwise any truthy
	// value ends the wait.
	Equals  string
	Timeout time.Duration
	Delay   time.Duration
	// Backoff multiplies the delay after each failed attempt when above 1,
	// capped at MaxDelay.
	Backoff  float64
	MaxDelay time.Duration
	// ReloadOnRetry reloads the resource from the retry hook instead of
	// inside the check.
	ReloadOnRetry bool
	JSON          bool
}

// WaitResult is the JSON form of a finished wait.
type WaitResult struct {
	Href     string  `json:"href"`
	Field    string  `json:"field"`
	Value    any     `json:"value"`
	Attempts int     `json:"attempts"`
	Elapsed  float64 `json:"elapsedSeconds"`
}

// Wait polls the resource at ref until opts.Field satisfies the condition.
func Wait(ctx context.Context, out io.Writer, g Globals, ref string, opts WaitOptions) error {
	if opts.Field == "" {
		return fmt.Errorf("a field to wait on is required")
	}
	return withSession(ctx, g, func(s *session) error {
		r := s.app.Client().ResourceAt(ref)
		if err := r.Reload(ctx, opts.Field); err != nil {
			return fmt.Errorf("failed to load %s: %w", ref, err)
		}

		res, err := poll.Until(ctx, fieldCheck(r, opts), waitOptions(s, r, ref, opts)...)
		if err != nil {
			return err
		}

		result := WaitResult{
			Href:     r.Href,
			Field:    opts.Field,
			Value:    res.Value,
			Attempts: res.Attempts,
			Elapsed:  res.Elapsed.Seconds(),
		}
		if opts.JSON {
			return writeJSON(out, result)
		}
		newPrinter(out).ok(fmt.Sprintf("%s %s=%v after %d attempt(s) in %s",
			ref, opts.Field, res.Value, res.Attempts, res.Elapsed.Round(time.Millisecond)))
		return nil
	})
}

func fieldCheck(r *rest.Resource, opts WaitOptions) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		if !opts.ReloadOnRetry {
			if err := r.Reload(ctx, opts.Field); err != nil {
				return nil, err
			}
		}
		return r.Get(opts.Field), nil
	}
}

func waitOptions(s *session, r *rest.Resource, ref string, opts WaitOptions) []poll.Option {
	message := fmt.Sprintf("%s %s", ref, opts.Field)
	if opts.Equals != "" {
		message += "=" + opts.Equals
	}
	out := []poll.Option{
		poll.WithTimeout(opts.Timeout),
		poll.WithDelay(opts.Delay),
		poll.WithMessage(message),
		poll.WithName("wait"),
		poll.WithObserver(s.recorder),
	}
	if opts.Equals != "" {
		out = append(out, poll.WithSuccess(func(any) bool {
			return r.String(opts.Field) == opts.Equals
		}))
	}
	if opts.Backoff > 1 {
		out = append(out, poll.WithBackoff(opts.Backoff, opts.MaxDelay))
	}
	if opts.ReloadOnRetry {
		out = append(out, poll.WithOnRetry(func(ctx context.Context) error {
			return r.Reload(ctx, opts.Field)
		}))
	}
	return out
}
