package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/miqcheck/internal/util/poll"
)

func TestRecorder_ObservesPoll(t *testing.T) {
	t.Parallel()
	r := NewRecorder()

	calls := 0
	_, err := poll.Until(context.Background(), func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	},
		poll.WithTimeout(time.Second),
		poll.WithDelay(time.Millisecond),
		poll.WithMessage("counter"),
		poll.WithObserver(r),
	)
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.attemptsTotal.WithLabelValues("counter", "false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.attemptsTotal.WithLabelValues("counter", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.pollsTotal.WithLabelValues("counter", ResultSuccess)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.pollDuration))
}

func TestRecorder_ObservesTimeout(t *testing.T) {
	t.Parallel()
	r := NewRecorder()

	err := poll.Condition(context.Background(), func(context.Context) (bool, error) {
		return false, nil
	},
		poll.WithTimeout(20*time.Millisecond),
		poll.WithDelay(5*time.Millisecond),
		poll.WithObserver(r),
	)
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(r.pollsTotal.WithLabelValues("condition", ResultTimeout)))
}

func TestResult(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ResultSuccess, Result(nil))
	assert.Equal(t, ResultTimeout, Result(&poll.TimeoutError{Message: "x"}))
	assert.Equal(t, ResultError, Result(errors.New("boom")))
}

func TestRecorder_Push(t *testing.T) {
	t.Parallel()
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, req.Body)
		mu.Lock()
		method, path, body = req.Method, req.URL.Path, buf.String()
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(gateway.Close)

	r := NewRecorder()
	r.ObserveDone("requests finished", 2*time.Second, nil)
	require.NoError(t, r.Push(context.Background(), gateway.URL, "e2e"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/e2e/instance/miqcheck", path)
	assert.NotEmpty(t, body)
}

func TestRecorder_PushRequiresURL(t *testing.T) {
	t.Parallel()
	assert.Error(t, NewRecorder().Push(context.Background(), "", "e2e"))
}
