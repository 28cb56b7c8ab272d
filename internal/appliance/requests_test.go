package appliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/miqcheck/internal/rest"
	testutil "github.com/imamik/miqcheck/internal/testing"
	"github.com/imamik/miqcheck/internal/util/poll"
)

func TestAutomationRequestsData(t *testing.T) {
	t.Parallel()

	data := AutomationRequestsData("vm-1", RequestsDataOptions{Approve: true})
	require.Len(t, data, 4)
	assert.Equal(t, "vm-1", data[0]["parameters"].(map[string]any)["vm_name"])
	assert.Equal(t, true, data[0]["requester"].(map[string]any)["auto_approve"])
	assert.NotContains(t, data[0], "options")

	data = AutomationRequestsData("vm-1", RequestsDataOptions{Count: 2, RequestsCollection: true})
	require.Len(t, data, 2)
	assert.Equal(t, map[string]any{"request_type": "automation"}, data[1]["options"])
	assert.Equal(t, false, data[1]["auto_approve"])
}

func finishAfter(reloads int) testutil.ReloadFunc {
	return func(rec map[string]any, n int) {
		if n >= reloads {
			rec["request_state"] = RequestStateFinished
		}
	}
}

func TestWaitForRequests(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	ctx := testutil.TestContext(t)
	fake.SetDefaults("automation_requests", map[string]any{"request_state": "pending"})
	fake.OnReload("automation_requests", finishAfter(3))

	requests, err := a.CreateAutomationRequests(ctx, "nonexistent_vm", 2)
	require.NoError(t, err)
	require.NoError(t, a.WaitForRequests(ctx, requests))
	for _, req := range requests {
		assert.Equal(t, RequestStateFinished, req.String("request_state"))
	}
}

func TestWaitForRequests_Timeout(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	a.timeouts.Requests = 30 * time.Millisecond
	ctx := testutil.TestContext(t)
	ids := fake.Seed("automation_requests", map[string]any{"request_state": "active"})

	req, err := a.Client().Collection("automation_requests").Get(ctx, ids[0])
	require.NoError(t, err)

	err = a.WaitForRequests(ctx, []*rest.Resource{req})
	require.Error(t, err)
	assert.True(t, poll.IsTimeout(err))
	assert.Contains(t, err.Error(), "requests finished")
}

func TestWaitForRequests_ReloadErrorStopsPolling(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	ctx := testutil.TestContext(t)
	ids := fake.Seed("automation_requests", map[string]any{"request_state": "active"})
	req, err := a.Client().Collection("automation_requests").Get(ctx, ids[0])
	require.NoError(t, err)

	req.Href = fake.Href("automation_requests", "999")

	err = a.WaitForRequests(ctx, []*rest.Resource{req})
	require.Error(t, err)
	assert.False(t, poll.IsTimeout(err))
	assert.True(t, rest.IsNotFound(err))
}

func pendingRequests(t *testing.T) (*Appliance, *testutil.FakeAppliance, []*rest.Resource) {
	t.Helper()
	a, fake := newTestAppliance(t)
	fake.SetDefaults("requests", map[string]any{
		"request_state":  RequestStatePending,
		"approval_state": "pending_approval",
		"type":           "AutomationRequest",
	})
	fake.OnReload("requests", func(rec map[string]any, _ int) {
		if rec["approval_state"] != "pending_approval" {
			rec["request_state"] = RequestStateFinished
		}
	})
	requests, err := a.CreatePendingRequests(testutil.TestContext(t), 2)
	require.NoError(t, err)
	return a, fake, requests
}

func TestCreatePendingRequests(t *testing.T) {
	t.Parallel()
	a, _, requests := pendingRequests(t)
	ctx := testutil.TestContext(t)

	for _, req := range requests {
		got, err := a.Client().Collection("requests").Get(ctx, req.ID())
		require.NoError(t, err)
		assert.Equal(t, "AutomationRequest", got.String("type"))
	}
}

func TestCreatePendingRequests_NotPending(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	fake.SetDefaults("requests", map[string]any{"request_state": "active"})

	_, err := a.CreatePendingRequests(testutil.TestContext(t), 2)
	assert.ErrorContains(t, err, `want "pending"`)
}

func TestApproveDenyRequests(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		state string
		run   func(a *Appliance, mode Mode, rs []*rest.Resource) error
	}{
		{name: "approve", state: "approved", run: func(a *Appliance, mode Mode, rs []*rest.Resource) error {
			return a.ApproveRequests(context.Background(), mode, "I said so", rs)
		}},
		{name: "deny", state: "denied", run: func(a *Appliance, mode Mode, rs []*rest.Resource) error {
			return a.DenyRequests(context.Background(), mode, "I said so", rs)
		}},
	}
	for _, tt := range tests {
		for _, mode := range Modes {
			t.Run(tt.name+"/"+mode.String(), func(t *testing.T) {
				t.Parallel()
				a, _, requests := pendingRequests(t)
				ctx := testutil.TestContext(t)

				require.NoError(t, tt.run(a, mode, requests))
				require.NoError(t, a.WaitForRequests(ctx, requests))
				for _, req := range requests {
					require.NoError(t, req.Reload(ctx))
					assert.Equal(t, tt.state, req.String("approval_state"))
					assert.Equal(t, "I said so", req.String("reason"))
				}
			})
		}
	}
}

func TestEditRequests(t *testing.T) {
	t.Parallel()
	for _, mode := range Modes {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()
			a, _, requests := pendingRequests(t)
			ctx := testutil.TestContext(t)

			body := map[string]any{"options": map[string]any{"arbitrary_key_allowed": "test_rest"}}
			require.NoError(t, a.EditRequests(ctx, mode, body, requests))
			for _, req := range requests {
				require.NoError(t, req.Reload(ctx))
				assert.Equal(t, "test_rest", req.Map("options")["arbitrary_key_allowed"])
			}
		})
	}
}

func TestWaitForRequest_Failed(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	ctx := testutil.TestContext(t)
	ids := fake.Seed("service_requests", map[string]any{
		"request_state": RequestStateFinished,
		"status":        "Error",
		"message":       "quota exceeded",
	})
	req, err := a.Client().Collection("service_requests").Get(ctx, ids[0])
	require.NoError(t, err)

	err = a.WaitForRequest(ctx, req, time.Second, time.Millisecond)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.ErrorContains(t, err, "quota exceeded")
}
