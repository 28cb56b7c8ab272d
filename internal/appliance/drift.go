package appliance

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/go-logr/logr"
	"github.com/samber/lo"

	"github.com/imamik/miqcheck/internal/config"
	"github.com/imamik/miqcheck/internal/rest"
	"github.com/imamik/miqcheck/internal/util/naming"
	"github.com/imamik/miqcheck/internal/util/poll"
)

// ErrNoDrift is returned by DriftAnalysis when two analyses around a
// rename produced identical drift states.
var ErrNoDrift = errors.New("drift results are equal")

// Restore undoes a change made to the appliance.
type Restore func(ctx context.Context) error

func noRestore(context.Context) error { return nil }

// WaitForHost polls until the host named name exists. When providerName is
// set, the provider is refreshed after every miss.
func (a *Appliance) WaitForHost(ctx context.Context, providerName, name string) (*rest.Resource, error) {
	hosts := a.client.Collection(collHosts)
	find := func(ctx context.Context) (*rest.Resource, error) {
		found, err := hosts.FindBy(ctx, map[string]any{"name": name})
		if err != nil {
			return nil, fmt.Errorf("failed to look up host %q: %w", name, err)
		}
		if len(found) == 0 {
			return nil, nil
		}
		return found[0], nil
	}

	extra := []poll.Option{poll.WithName("host exists")}
	if providerName != "" {
		// A refresh runs for minutes on the appliance; one is enough.
		refreshed := false
		extra = append(extra, poll.WithOnRetry(func(ctx context.Context) error {
			if refreshed {
				return nil
			}
			refreshed = true
			return a.refreshProvider(ctx, providerName)
		}))
	}
	res, err := poll.Until(ctx, find,
		a.pollOptions(a.timeouts.Host, a.timeouts.HostPoll, fmt.Sprintf("host %s exists", name), extra...)...)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func (a *Appliance) refreshProvider(ctx context.Context, name string) error {
	provider, err := a.client.Collection(collProviders).GetBy(ctx, map[string]any{"name": name})
	if err != nil {
		return fmt.Errorf("failed to find provider %q: %w", name, err)
	}
	if _, err := provider.Action(ctx, "refresh", nil); err != nil {
		return fmt.Errorf("failed to refresh provider %q: %w", name, err)
	}
	return nil
}

// HasValidCredentials reports whether the appliance validated the host's
// credentials.
func (a *Appliance) HasValidCredentials(ctx context.Context, host *rest.Resource) (bool, error) {
	if err := host.Reload(ctx, "authentication_status"); err != nil {
		return false, fmt.Errorf("failed to reload host %s: %w", host.ID(), err)
	}
	return equalFold(host, "authentication_status", "Valid"), nil
}

// EnsureCredentials sets cred on the host unless it already has valid
// credentials, and waits for them to validate. The returned Restore clears
// the credentials again; it is a no-op when nothing was changed.
func (a *Appliance) EnsureCredentials(ctx context.Context, host *rest.Resource, cred config.Credential) (Restore, error) {
	valid, err := a.HasValidCredentials(ctx, host)
	if err != nil {
		return nil, err
	}
	if valid {
		return noRestore, nil
	}

	if _, err := host.Edit(ctx, credentialsBody(cred.Principal, cred.Secret)); err != nil {
		return nil, fmt.Errorf("failed to set credentials on host %s: %w", host.ID(), err)
	}
	restore := func(ctx context.Context) error {
		if _, err := host.Edit(ctx, credentialsBody("", "")); err != nil {
			return fmt.Errorf("failed to clear credentials on host %s: %w", host.ID(), err)
		}
		return nil
	}

	err = poll.Condition(ctx, func(ctx context.Context) (bool, error) {
		return a.HasValidCredentials(ctx, host)
	}, a.pollOptions(a.timeouts.Host, a.timeouts.HostPoll, "host credentials valid")...)
	if err != nil {
		return restore, err
	}
	return restore, nil
}

func credentialsBody(principal, secret string) map[string]any {
	return map[string]any{
		"credentials": map[string]any{
			"userid":   principal,
			"password": secret,
		},
	}
}

// DriftHistory returns the number of drift states recorded for the host.
func (a *Appliance) DriftHistory(ctx context.Context, host *rest.Resource) (int, error) {
	if err := host.Reload(ctx, "drift_states"); err != nil {
		return 0, fmt.Errorf("failed to reload host %s: %w", host.ID(), err)
	}
	return len(host.Slice("drift_states")), nil
}

// RunAnalysis starts SmartState analysis of the host and waits until its
// drift history has grown by one. It returns the new history length.
func (a *Appliance) RunAnalysis(ctx context.Context, host *rest.Resource) (int, error) {
	before, err := a.DriftHistory(ctx, host)
	if err != nil {
		return 0, err
	}
	if _, err := host.Scan(ctx); err != nil {
		return 0, fmt.Errorf("failed to start analysis of host %s: %w", host.ID(), err)
	}
	logr.FromContextOrDiscard(ctx).Info("analysis initiated", "host", host.String("name"), "drift_history", before)

	want := before + 1
	res, err := poll.Until(ctx, func(ctx context.Context) (int, error) {
		return a.DriftHistory(ctx, host)
	}, a.pollOptions(a.timeouts.Drift, a.timeouts.DriftPoll, fmt.Sprintf("drift history reaches %d", want),
		poll.WithName("drift history"),
		poll.WithSuccess(func(n int) bool { return n >= want }))...)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// Rename appends naming.DriftRenameSuffix to the host's name. The returned Restore
// puts the original name back.
func (a *Appliance) Rename(ctx context.Context, host *rest.Resource) (Restore, error) {
	original := host.String("name")
	if _, err := host.Edit(ctx, map[string]any{"name": naming.DriftRename(original)}); err != nil {
		return nil, fmt.Errorf("failed to rename host %s: %w", host.ID(), err)
	}
	return func(ctx context.Context) error {
		if _, err := host.Edit(ctx, map[string]any{"name": original}); err != nil {
			return fmt.Errorf("failed to restore name of host %s: %w", host.ID(), err)
		}
		return nil
	}, nil
}

// DriftResultsEqual compares the data of the i-th and j-th most recent
// drift states of the host.
func (a *Appliance) DriftResultsEqual(ctx context.Context, host *rest.Resource, i, j int) (bool, error) {
	if err := host.Reload(ctx, "drift_states"); err != nil {
		return false, fmt.Errorf("failed to reload host %s: %w", host.ID(), err)
	}
	states := lo.FilterMap(host.Slice("drift_states"), func(item any, _ int) (map[string]any, bool) {
		m, ok := item.(map[string]any)
		return m, ok
	})
	sort.SliceStable(states, func(x, y int) bool {
		return fmt.Sprint(states[x]["timestamp"]) > fmt.Sprint(states[y]["timestamp"])
	})
	for _, idx := range []int{i, j} {
		if idx < 0 || idx >= len(states) {
			return false, fmt.Errorf("drift state %d out of range (%d states)", idx, len(states))
		}
	}
	return reflect.DeepEqual(states[i]["data"], states[j]["data"]), nil
}

// DriftAnalysis runs the full drift check of one host: it waits for the
// host, makes sure it has credentials, analyses it, renames it, analyses
// it again and expects the two newest drift states to differ. Changes to
// the host are undone by fin.
func (a *Appliance) DriftAnalysis(ctx context.Context, cfg *config.Config, target config.HostTarget, fin *Finalizers) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("host", target.Host.Name)
	provider := cfg.ManagementSystems[target.ProviderKey]

	host, err := a.WaitForHost(ctx, provider.Name, target.Host.Name)
	if err != nil {
		return err
	}

	if target.Host.Credentials != "" {
		cred, ok := cfg.Credential(target.Host.Credentials)
		if !ok {
			return fmt.Errorf("host %s references unknown credentials %q", target.Host.Name, target.Host.Credentials)
		}
		restore, err := a.EnsureCredentials(ctx, host, cred)
		if restore != nil {
			fin.Add("clear host credentials", restore)
		}
		if err != nil {
			return err
		}
	}

	first, err := a.RunAnalysis(ctx, host)
	if err != nil {
		return err
	}
	log.V(1).Info("first analysis recorded", "drift_history", first)

	restore, err := a.Rename(ctx, host)
	if err != nil {
		return err
	}
	fin.Add("restore host name", restore)

	second, err := a.RunAnalysis(ctx, host)
	if err != nil {
		return err
	}
	log.V(1).Info("second analysis recorded", "drift_history", second)

	equal, err := a.DriftResultsEqual(ctx, host, 0, 1)
	if err != nil {
		return err
	}
	if equal {
		return fmt.Errorf("host %s: %w", target.Host.Name, ErrNoDrift)
	}
	return nil
}
