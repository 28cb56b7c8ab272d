package poll

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is matched by every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("timed out")

// ErrNoTimeout is returned when Until is called without a positive timeout.
var ErrNoTimeout = errors.New("poll: timeout must be positive")

// TimeoutError reports a check that never succeeded within its budget.
type TimeoutError struct {
	Message   string
	Timeout   time.Duration
	Elapsed   time.Duration
	Attempts  int
	LastValue any
}

func (e *TimeoutError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "condition"
	}
	return fmt.Sprintf("%s: timed out after %s (%d attempts, timeout %s, last value %v)",
		msg, e.Elapsed.Round(time.Millisecond), e.Attempts, e.Timeout, e.LastValue)
}

// Is makes errors.Is(err, ErrTimeout) hold.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IsTimeout reports whether err is or wraps a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
