package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the timing budgets of the appliance workflows.
// These values can be customized via environment variables.
type Timeouts struct {
	Requests          time.Duration // Budget for automation/provision requests to finish
	RequestsPoll      time.Duration // Delay between request state checks
	Task              time.Duration // Budget for an async task (e.g. VM scan)
	TaskPoll          time.Duration // Delay between task state checks
	Host              time.Duration // Budget for a host to appear or validate credentials
	HostPoll          time.Duration // Delay between host checks
	Drift             time.Duration // Budget for a drift history entry to appear
	DriftPoll         time.Duration // Delay between drift history checks
	Provision         time.Duration // Budget for a service order to provision
	ProvisionPoll     time.Duration // Delay between provision request checks
	HTTP              time.Duration // Per-request HTTP client timeout
	RetryMaxAttempts  int           // Retries of transient REST failures
	RetryInitialDelay time.Duration // Initial delay between REST retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - MIQ_TIMEOUT_REQUESTS (default: 45s), MIQ_POLL_REQUESTS (default: 5s)
//   - MIQ_TIMEOUT_TASK (default: 5m), MIQ_POLL_TASK (default: 5s)
//   - MIQ_TIMEOUT_HOST (default: 120s), MIQ_POLL_HOST (default: 10s)
//   - MIQ_TIMEOUT_DRIFT (default: 120s), MIQ_POLL_DRIFT (default: 20s)
//   - MIQ_TIMEOUT_PROVISION (default: 30m), MIQ_POLL_PROVISION (default: 30s)
//   - MIQ_TIMEOUT_HTTP (default: 60s)
//   - MIQ_RETRY_MAX_ATTEMPTS (default: 3)
//   - MIQ_RETRY_INITIAL_DELAY (default: 500ms)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Requests:          parseDuration("MIQ_TIMEOUT_REQUESTS", 45*time.Second),
		RequestsPoll:      parseDuration("MIQ_POLL_REQUESTS", 5*time.Second),
		Task:              parseDuration("MIQ_TIMEOUT_TASK", 5*time.Minute),
		TaskPoll:          parseDuration("MIQ_POLL_TASK", 5*time.Second),
		Host:              parseDuration("MIQ_TIMEOUT_HOST", 120*time.Second),
		HostPoll:          parseDuration("MIQ_POLL_HOST", 10*time.Second),
		Drift:             parseDuration("MIQ_TIMEOUT_DRIFT", 120*time.Second),
		DriftPoll:         parseDuration("MIQ_POLL_DRIFT", 20*time.Second),
		Provision:         parseDuration("MIQ_TIMEOUT_PROVISION", 30*time.Minute),
		ProvisionPoll:     parseDuration("MIQ_POLL_PROVISION", 30*time.Second),
		HTTP:              parseDuration("MIQ_TIMEOUT_HTTP", 60*time.Second),
		RetryMaxAttempts:  parseInt("MIQ_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: parseDuration("MIQ_RETRY_INITIAL_DELAY", 500*time.Millisecond),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}

	return i
}
