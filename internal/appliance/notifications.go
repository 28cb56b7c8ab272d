package appliance

import (
	"context"
	"fmt"
	"net/http"

	"github.com/imamik/miqcheck/internal/rest"
)

// GenerateNotifications creates two automation requests for a VM that does
// not exist and waits for them to finish. Each finished request leaves a
// notification behind.
func (a *Appliance) GenerateNotifications(ctx context.Context) error {
	requests, err := a.CreateAutomationRequests(ctx, "nonexistent_vm", 2)
	if err != nil {
		return err
	}
	return a.WaitForRequests(ctx, requests)
}

// Unseen returns the notifications not yet marked as seen.
func (a *Appliance) Unseen(ctx context.Context) ([]*rest.Resource, error) {
	found, err := a.client.Collection(collNotifications).FindBy(ctx, map[string]any{"seen": false})
	if err != nil {
		return nil, fmt.Errorf("failed to list unseen notifications: %w", err)
	}
	return found, nil
}

// Latest returns the n most recent notifications, newest first.
func (a *Appliance) Latest(ctx context.Context, n int) ([]*rest.Resource, error) {
	coll := a.client.Collection(collNotifications)
	if err := coll.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	return lastN(coll, n)
}

// MarkSeen marks the notifications as seen and checks the flag stuck.
func (a *Appliance) MarkSeen(ctx context.Context, mode Mode, notifications []*rest.Resource) error {
	switch mode {
	case FromDetail:
		for _, n := range notifications {
			if _, err := n.MarkAsSeen(ctx); err != nil {
				return fmt.Errorf("failed to mark notification %s as seen: %w", n.ID(), err)
			}
		}
	case FromCollection:
		if _, err := a.client.Collection(collNotifications).MarkAsSeen(ctx, notifications...); err != nil {
			return fmt.Errorf("failed to mark notifications as seen: %w", err)
		}
	default:
		return fmt.Errorf("unknown mode %v", mode)
	}

	for _, n := range notifications {
		if err := n.Reload(ctx); err != nil {
			return fmt.Errorf("failed to reload notification %s: %w", n.ID(), err)
		}
		if !n.Bool("seen") {
			return fmt.Errorf("notification %s not marked as seen", n.ID())
		}
	}
	return nil
}

// DeleteNotifications deletes the notifications with the delete action.
func (a *Appliance) DeleteNotifications(ctx context.Context, mode Mode, notifications []*rest.Resource) error {
	return a.deleteResources(ctx, collNotifications, mode, notifications, []string{http.MethodPost})
}

// lastN returns the last n cached resources of coll, the last one first.
func lastN(coll *rest.Collection, n int) ([]*rest.Resource, error) {
	out := make([]*rest.Resource, 0, n)
	for i := 1; i <= n; i++ {
		r, err := coll.Index(-i)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
