package appliance

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/miqcheck/internal/config"
	testutil "github.com/imamik/miqcheck/internal/testing"
	"github.com/imamik/miqcheck/internal/util/naming"
	"github.com/imamik/miqcheck/internal/util/poll"
)

// fakeHosts makes the fake appliance behave like a provider whose hosts
// show up after a refresh, validate credentials on edit and record a drift
// state per scan.
func fakeHosts(fake *testutil.FakeAppliance, hostName string) {
	fake.Seed("providers", map[string]any{"name": "vsphere"})
	fake.OnAction("providers", "refresh", func(f *testutil.FakeAppliance, _, _ map[string]any) map[string]any {
		f.Insert("hosts", map[string]any{
			"name":                  hostName,
			"authentication_status": "None",
			"drift_states":          []any{},
		})
		return nil
	})
	fake.OnAction("hosts", "edit", func(_ *testutil.FakeAppliance, rec, body map[string]any) map[string]any {
		for k, v := range body {
			if k != "credentials" {
				rec[k] = v
				continue
			}
			creds, _ := v.(map[string]any)
			if creds["userid"] != "" {
				rec["authentication_status"] = "Valid"
			} else {
				rec["authentication_status"] = "None"
			}
		}
		return maps.Clone(rec)
	})
	fake.OnAction("hosts", "scan", func(_ *testutil.FakeAppliance, rec, _ map[string]any) map[string]any {
		states, _ := rec["drift_states"].([]any)
		rec["drift_states"] = append(append([]any{}, states...), map[string]any{
			"timestamp": fmt.Sprintf("2017-06-01T10:00:%02dZ", len(states)),
			"data":      map[string]any{"name": rec["name"]},
		})
		return nil
	})
}

func driftConfig() *config.Config {
	return &config.Config{
		Credentials: map[string]config.Credential{
			"esxi": {Principal: "root", Secret: "secret"},
		},
		ManagementSystems: map[string]config.Provider{
			"vsphere55": {
				Name: "vsphere",
				Type: config.ProviderTypeInfra,
				Hosts: []config.Host{
					{Name: "esx-1", Type: "esxi", TestFleece: true, Credentials: "esxi"},
				},
			},
		},
	}
}

func TestWaitForHost_RefreshesProvider(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	fakeHosts(fake, "esx-1")

	host, err := a.WaitForHost(testutil.TestContext(t), "vsphere", "esx-1")
	require.NoError(t, err)
	assert.Equal(t, "esx-1", host.String("name"))
	assert.Contains(t, fake.Requests(), "POST /api/providers/1")
}

func TestWaitForHost_RefreshesProviderOnce(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	a.timeouts.Host = 50 * time.Millisecond
	fake.Seed("providers", map[string]any{"name": "vsphere"})
	var refreshes atomic.Int32
	fake.OnAction("providers", "refresh", func(*testutil.FakeAppliance, map[string]any, map[string]any) map[string]any {
		refreshes.Add(1)
		return nil
	})

	_, err := a.WaitForHost(testutil.TestContext(t), "vsphere", "esx-1")
	var terr *poll.TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Greater(t, terr.Attempts, 2)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestWaitForHost_UnknownProviderAborts(t *testing.T) {
	t.Parallel()
	a, _ := newTestAppliance(t)

	_, err := a.WaitForHost(testutil.TestContext(t), "missing", "esx-1")
	require.Error(t, err)
	assert.False(t, poll.IsTimeout(err))
	assert.ErrorContains(t, err, `failed to find provider "missing"`)
}

func TestWaitForHost_Timeout(t *testing.T) {
	t.Parallel()
	a, _ := newTestAppliance(t)
	a.timeouts.Host = 30 * time.Millisecond

	_, err := a.WaitForHost(testutil.TestContext(t), "", "esx-1")
	assert.True(t, poll.IsTimeout(err))
}

func TestEnsureCredentials(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	ctx := testutil.TestContext(t)
	fakeHosts(fake, "esx-1")

	host, err := a.WaitForHost(ctx, "vsphere", "esx-1")
	require.NoError(t, err)

	restore, err := a.EnsureCredentials(ctx, host, config.Credential{Principal: "root", Secret: "secret"})
	require.NoError(t, err)
	valid, err := a.HasValidCredentials(ctx, host)
	require.NoError(t, err)
	assert.True(t, valid)

	require.NoError(t, restore(ctx))
	valid, err = a.HasValidCredentials(ctx, host)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestEnsureCredentials_AlreadyValid(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	ctx := testutil.TestContext(t)
	ids := fake.Seed("hosts", map[string]any{"name": "esx-1", "authentication_status": "Valid"})

	host, err := a.Client().Collection("hosts").Get(ctx, ids[0])
	require.NoError(t, err)

	restore, err := a.EnsureCredentials(ctx, host, config.Credential{Principal: "root"})
	require.NoError(t, err)
	require.NoError(t, restore(ctx))
	assert.NotContains(t, fake.Requests(), "POST /api/hosts/"+ids[0])
}

func TestRunAnalysisAndRename(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	ctx := testutil.TestContext(t)
	fakeHosts(fake, "esx-1")

	host, err := a.WaitForHost(ctx, "vsphere", "esx-1")
	require.NoError(t, err)

	n, err := a.DriftHistory(ctx, host)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = a.RunAnalysis(ctx, host)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	restore, err := a.Rename(ctx, host)
	require.NoError(t, err)
	rec, _ := fake.Record("hosts", host.ID())
	assert.Equal(t, naming.DriftRename("esx-1"), rec["name"])

	n, err = a.RunAnalysis(ctx, host)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	equal, err := a.DriftResultsEqual(ctx, host, 0, 1)
	require.NoError(t, err)
	assert.False(t, equal)

	require.NoError(t, restore(ctx))
	rec, _ = fake.Record("hosts", host.ID())
	assert.Equal(t, "esx-1", rec["name"])
}

func TestRunAnalysis_NoNewState(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	a.timeouts.Drift = 30 * time.Millisecond
	ctx := testutil.TestContext(t)
	ids := fake.Seed("hosts", map[string]any{"name": "esx-1", "drift_states": []any{}})
	fake.OnAction("hosts", "scan", func(*testutil.FakeAppliance, map[string]any, map[string]any) map[string]any {
		return nil
	})

	host, err := a.Client().Collection("hosts").Get(ctx, ids[0])
	require.NoError(t, err)

	_, err = a.RunAnalysis(ctx, host)
	var terr *poll.TimeoutError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 0, terr.LastValue)
}

func TestDriftResultsEqual(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	ctx := testutil.TestContext(t)
	ids := fake.Seed("hosts", map[string]any{"name": "esx-1", "drift_states": []any{
		map[string]any{"timestamp": "2017-06-01T10:00:00Z", "data": map[string]any{"os": "esxi 6.0"}},
		map[string]any{"timestamp": "2017-06-01T11:00:00Z", "data": map[string]any{"os": "esxi 6.0"}},
		map[string]any{"timestamp": "2017-06-01T12:00:00Z", "data": map[string]any{"os": "esxi 6.5"}},
	}})
	host, err := a.Client().Collection("hosts").Get(ctx, ids[0])
	require.NoError(t, err)

	equal, err := a.DriftResultsEqual(ctx, host, 0, 1)
	require.NoError(t, err)
	assert.False(t, equal)

	equal, err = a.DriftResultsEqual(ctx, host, 1, 2)
	require.NoError(t, err)
	assert.True(t, equal)

	_, err = a.DriftResultsEqual(ctx, host, 0, 3)
	assert.ErrorContains(t, err, "out of range")
}

func TestDriftAnalysis(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	ctx := testutil.TestContext(t)
	fakeHosts(fake, "esx-1")
	cfg := driftConfig()

	targets := cfg.FleeceHosts()
	require.Len(t, targets, 1)

	var fin Finalizers
	require.NoError(t, a.DriftAnalysis(ctx, cfg, targets[0], &fin))
	assert.Equal(t, 2, fin.Len())

	rec, ok := fake.Record("hosts", "1")
	require.True(t, ok)
	assert.Equal(t, naming.DriftRename("esx-1"), rec["name"])
	assert.Len(t, rec["drift_states"], 2)

	require.NoError(t, fin.Run(context.Background()))
	rec, _ = fake.Record("hosts", "1")
	assert.Equal(t, "esx-1", rec["name"])
	assert.Equal(t, "None", rec["authentication_status"])
}

func TestDriftAnalysis_NoDrift(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	ctx := testutil.TestContext(t)
	fakeHosts(fake, "esx-1")
	fake.OnAction("hosts", "scan", func(_ *testutil.FakeAppliance, rec, _ map[string]any) map[string]any {
		states, _ := rec["drift_states"].([]any)
		rec["drift_states"] = append(append([]any{}, states...), map[string]any{
			"timestamp": fmt.Sprintf("2017-06-01T10:00:%02dZ", len(states)),
			"data":      map[string]any{"os": "esxi"},
		})
		return nil
	})
	cfg := driftConfig()

	var fin Finalizers
	err := a.DriftAnalysis(ctx, cfg, cfg.FleeceHosts()[0], &fin)
	assert.ErrorIs(t, err, ErrNoDrift)
	require.NoError(t, fin.Run(ctx))
}

func TestDriftAnalysis_UnknownCredentials(t *testing.T) {
	t.Parallel()
	a, fake := newTestAppliance(t)
	fakeHosts(fake, "esx-1")
	cfg := driftConfig()
	cfg.Credentials = nil

	var fin Finalizers
	err := a.DriftAnalysis(testutil.TestContext(t), cfg, cfg.FleeceHosts()[0], &fin)
	assert.ErrorContains(t, err, `unknown credentials "esxi"`)
	assert.Zero(t, fin.Len())
}
