package appliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/imamik/miqcheck/internal/testing"
)

func TestGenerateNotifications(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	fake.SetDefaults("automation_requests", map[string]any{"request_state": "pending"})
	fake.OnReload("automation_requests", finishAfter(2))

	require.NoError(t, a.GenerateNotifications(testutil.TestContext(t)))
	assert.Equal(t, 2, fake.Len("automation_requests"))
}

func seedNotifications(fake *testutil.FakeAppliance) {
	fake.Seed("notifications",
		map[string]any{"seen": true, "text": "old"},
		map[string]any{"seen": false, "text": "first"},
		map[string]any{"seen": false, "text": "second"},
	)
}

func TestUnseenAndLatest(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	ctx := testutil.TestContext(t)
	seedNotifications(fake)

	unseen, err := a.Unseen(ctx)
	require.NoError(t, err)
	assert.Len(t, unseen, 2)

	latest, err := a.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "second", latest[0].String("text"))
	assert.Equal(t, "first", latest[1].String("text"))

	_, err = a.Latest(ctx, 5)
	assert.Error(t, err)
}

func TestMarkSeen(t *testing.T) {
	t.Parallel()
	for _, mode := range Modes {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()
			a, fake := newTestAppliance(t)
			ctx := testutil.TestContext(t)
			seedNotifications(fake)

			unseen, err := a.Unseen(ctx)
			require.NoError(t, err)
			require.NoError(t, a.MarkSeen(ctx, mode, unseen))

			left, err := a.Unseen(ctx)
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}
}

func TestMarkSeen_NotApplied(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	ctx := testutil.TestContext(t)
	seedNotifications(fake)
	fake.OnAction("notifications", "mark_as_seen", func(*testutil.FakeAppliance, map[string]any, map[string]any) map[string]any {
		return nil
	})

	unseen, err := a.Unseen(ctx)
	require.NoError(t, err)
	assert.ErrorContains(t, a.MarkSeen(ctx, FromDetail, unseen), "not marked as seen")
}

func TestDeleteNotifications(t *testing.T) {
	t.Parallel()
	for _, mode := range Modes {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()
			a, fake := newTestAppliance(t)
			ctx := testutil.TestContext(t)
			seedNotifications(fake)

			latest, err := a.Latest(ctx, 2)
			require.NoError(t, err)
			require.NoError(t, a.DeleteNotifications(ctx, mode, latest))
			assert.Equal(t, 1, fake.Len("notifications"))
			require.NoError(t, a.VerifyDeleted(ctx, "notifications", mode, latest))
		})
	}
}
