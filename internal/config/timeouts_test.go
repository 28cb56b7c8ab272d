package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var timeoutEnvVars = []string{
	"MIQ_TIMEOUT_REQUESTS", "MIQ_POLL_REQUESTS",
	"MIQ_TIMEOUT_TASK", "MIQ_POLL_TASK",
	"MIQ_TIMEOUT_HOST", "MIQ_POLL_HOST",
	"MIQ_TIMEOUT_DRIFT", "MIQ_POLL_DRIFT",
	"MIQ_TIMEOUT_PROVISION", "MIQ_POLL_PROVISION",
	"MIQ_TIMEOUT_HTTP", "MIQ_RETRY_MAX_ATTEMPTS", "MIQ_RETRY_INITIAL_DELAY",
}

func clearTimeoutEnvVars(t *testing.T) {
	t.Helper()
	for _, v := range timeoutEnvVars {
		t.Setenv(v, "")
	}
}

func TestLoadTimeouts_Defaults(t *testing.T) {
	clearTimeoutEnvVars(t)

	timeouts := LoadTimeouts()

	assert.Equal(t, 45*time.Second, timeouts.Requests)
	assert.Equal(t, 5*time.Second, timeouts.RequestsPoll)
	assert.Equal(t, 5*time.Minute, timeouts.Task)
	assert.Equal(t, 5*time.Second, timeouts.TaskPoll)
	assert.Equal(t, 120*time.Second, timeouts.Host)
	assert.Equal(t, 10*time.Second, timeouts.HostPoll)
	assert.Equal(t, 120*time.Second, timeouts.Drift)
	assert.Equal(t, 20*time.Second, timeouts.DriftPoll)
	assert.Equal(t, 30*time.Minute, timeouts.Provision)
	assert.Equal(t, 30*time.Second, timeouts.ProvisionPoll)
	assert.Equal(t, 60*time.Second, timeouts.HTTP)
	assert.Equal(t, 3, timeouts.RetryMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, timeouts.RetryInitialDelay)
}

func TestLoadTimeouts_EnvVars(t *testing.T) {
	clearTimeoutEnvVars(t)
	t.Setenv("MIQ_TIMEOUT_REQUESTS", "2m")
	t.Setenv("MIQ_POLL_DRIFT", "1s")
	t.Setenv("MIQ_RETRY_MAX_ATTEMPTS", "7")

	timeouts := LoadTimeouts()

	assert.Equal(t, 2*time.Minute, timeouts.Requests)
	assert.Equal(t, time.Second, timeouts.DriftPoll)
	assert.Equal(t, 7, timeouts.RetryMaxAttempts)
}

func TestLoadTimeouts_InvalidValuesFallBack(t *testing.T) {
	clearTimeoutEnvVars(t)
	t.Setenv("MIQ_TIMEOUT_TASK", "soon")
	t.Setenv("MIQ_TIMEOUT_HOST", "-5s")
	t.Setenv("MIQ_RETRY_MAX_ATTEMPTS", "many")

	timeouts := LoadTimeouts()

	assert.Equal(t, 5*time.Minute, timeouts.Task)
	assert.Equal(t, 120*time.Second, timeouts.Host)
	assert.Equal(t, 3, timeouts.RetryMaxAttempts)
}
