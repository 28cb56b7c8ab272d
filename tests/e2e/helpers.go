//go:build e2e

package e2e

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/imamik/miqcheck/internal/appliance"
	"github.com/imamik/miqcheck/internal/logging"
)

// testContext returns a context carrying a test logger, cancelled with the
// test.
func testContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	log, sync, err := logging.New(testing.Verbose())
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	ctx, cancel := context.WithTimeout(logging.IntoContext(context.Background(), log), timeout)
	t.Cleanup(func() {
		cancel()
		sync()
	})
	return ctx
}

// requireVersion skips the test when the appliance does not satisfy
// constraint.
func requireVersion(t *testing.T, ctx context.Context, constraint string) {
	t.Helper()
	_, err := appliance.RequireVersion(ctx, sharedCtx.Client(), constraint)
	if errors.Is(err, appliance.ErrUnsupportedVersion) {
		t.Skipf("appliance version: %v", err)
	}
	if err != nil {
		t.Fatalf("failed to check appliance version: %v", err)
	}
}

// finalizers returns a Finalizers run when the test ends. Cleanup failures
// are logged, not fatal.
func finalizers(t *testing.T) *appliance.Finalizers {
	t.Helper()
	fin := &appliance.Finalizers{}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := fin.Run(ctx); err != nil {
			t.Logf("cleanup failed: %v", err)
		}
	})
	return fin
}
