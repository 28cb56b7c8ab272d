//go:build e2e

package e2e

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/miqcheck/internal/appliance"
	"github.com/imamik/miqcheck/internal/rest"
)

func pendingRequests(t *testing.T) []*rest.Resource {
	t.Helper()
	ctx := testContext(t, time.Minute)
	requireVersion(t, ctx, ">= 5.7")
	requests, err := sharedCtx.Appliance.CreatePendingRequests(ctx, 2)
	require.NoError(t, err)
	return requests
}

func TestCreateAutomationRequests(t *testing.T) {
	requests := pendingRequests(t)
	ctx := testContext(t, time.Minute)
	for _, req := range requests {
		got, err := sharedCtx.Client().Collection("requests").Get(ctx, req.ID())
		require.NoError(t, err)
		assert.Equal(t, "AutomationRequest", got.String("type"))
	}
}

func TestApproveRequests(t *testing.T) {
	for _, mode := range appliance.Modes {
		t.Run(mode.String(), func(t *testing.T) {
			requests := pendingRequests(t)
			ctx := testContext(t, 5*time.Minute)
			app := sharedCtx.Appliance

			require.NoError(t, app.ApproveRequests(ctx, mode, "I said so", requests))
			require.NoError(t, app.WaitForRequests(ctx, requests))
			for _, req := range requests {
				require.NoError(t, req.Reload(ctx))
				assert.Equal(t, "approved", req.String("approval_state"))
			}
		})
	}
}

func TestDenyRequests(t *testing.T) {
	for _, mode := range appliance.Modes {
		t.Run(mode.String(), func(t *testing.T) {
			requests := pendingRequests(t)
			ctx := testContext(t, 5*time.Minute)
			app := sharedCtx.Appliance

			require.NoError(t, app.DenyRequests(ctx, mode, "I said so", requests))
			require.NoError(t, app.WaitForRequests(ctx, requests))
			for _, req := range requests {
				require.NoError(t, req.Reload(ctx))
				assert.Equal(t, "denied", req.String("approval_state"))
			}
		})
	}
}

func TestEditRequests(t *testing.T) {
	for _, mode := range appliance.Modes {
		t.Run(mode.String(), func(t *testing.T) {
			requests := pendingRequests(t)
			ctx := testContext(t, time.Minute)
			body := map[string]any{"options": map[string]any{"arbitrary_key_allowed": "test_rest"}}

			require.NoError(t, sharedCtx.Appliance.EditRequests(ctx, mode, body, requests))
			for _, req := range requests {
				require.NoError(t, req.Reload(ctx))
				assert.Equal(t, "test_rest", req.Map("options")["arbitrary_key_allowed"])
			}
		})
	}
}
