package appliance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/samber/lo"

	"github.com/imamik/miqcheck/internal/rest"
	"github.com/imamik/miqcheck/internal/util/async"
	"github.com/imamik/miqcheck/internal/util/poll"
)

// Request states and statuses reported by the appliance.
const (
	RequestStatePending  = "pending"
	RequestStateFinished = "finished"
	RequestStatusOk      = "Ok"
)

// ErrRequestFailed is returned when a request finished with a status other
// than Ok.
var ErrRequestFailed = errors.New("request failed")

// RequestsDataOptions shapes the bodies built by AutomationRequestsData.
type RequestsDataOptions struct {
	// Count is the number of bodies; zero means 4.
	Count int
	// RequestsCollection builds bodies for /api/requests instead of
	// /api/automation_requests.
	RequestsCollection bool
	// Approve sets auto_approve on the requester.
	Approve bool
}

// AutomationRequestsData builds automation request bodies that inspect
// object. The object need not exist; the request still runs.
func AutomationRequestsData(object string, opts RequestsDataOptions) []map[string]any {
	if opts.Count <= 0 {
		opts.Count = 4
	}
	return lo.Times(opts.Count, func(int) map[string]any {
		body := map[string]any{
			"uri_parts": map[string]any{
				"namespace": "System",
				"class":     "Request",
				"instance":  "InspectMe",
				"message":   "create",
			},
			"parameters": map[string]any{
				"vm_name": object,
				"vm_id":   object,
			},
			"requester": map[string]any{
				"auto_approve": opts.Approve,
			},
		}
		if opts.RequestsCollection {
			body["options"] = map[string]any{"request_type": "automation"}
			body["auto_approve"] = opts.Approve
		}
		return body
	})
}

// WaitForRequests polls until every request reports request_state
// "finished". All requests are reloaded concurrently on every attempt.
func (a *Appliance) WaitForRequests(ctx context.Context, requests []*rest.Resource) error {
	finished := func(ctx context.Context) (bool, error) {
		reloads := lo.Map(requests, func(req *rest.Resource, _ int) async.Task {
			return async.Task{
				Name: "failed to reload request " + req.Href,
				Func: func(ctx context.Context) error { return req.Reload(ctx) },
			}
		})
		if err := async.RunParallel(ctx, reloads); err != nil {
			return false, err
		}
		return lo.EveryBy(requests, func(req *rest.Resource) bool {
			return equalFold(req, "request_state", RequestStateFinished)
		}), nil
	}
	return poll.Condition(ctx, finished,
		a.pollOptions(a.timeouts.Requests, a.timeouts.RequestsPoll, "requests finished")...)
}

// WaitForRequest polls a single request until it finishes and then checks
// that its status is Ok.
func (a *Appliance) WaitForRequest(ctx context.Context, req *rest.Resource, timeout, delay time.Duration) error {
	if err := poll.Condition(ctx, func(ctx context.Context) (bool, error) {
		if err := req.Reload(ctx); err != nil {
			return false, fmt.Errorf("failed to reload request %s: %w", req.ID(), err)
		}
		return equalFold(req, "request_state", RequestStateFinished), nil
	}, a.pollOptions(timeout, delay, fmt.Sprintf("request %s finished", req.ID()),
		poll.WithName("request finished"))...); err != nil {
		return err
	}
	if status := req.String("status"); status != RequestStatusOk {
		return fmt.Errorf("%w: request %s ended with status %q: %s",
			ErrRequestFailed, req.ID(), status, req.String("message"))
	}
	return nil
}

// CreateAutomationRequests creates n auto-approved automation requests for
// object.
func (a *Appliance) CreateAutomationRequests(ctx context.Context, object string, n int) ([]*rest.Resource, error) {
	data := AutomationRequestsData(object, RequestsDataOptions{Count: n, Approve: true})
	created, err := a.client.Collection(collAutomationRequests).Create(ctx, data...)
	if err != nil {
		return nil, fmt.Errorf("failed to create automation requests: %w", err)
	}
	if len(created) != n {
		return nil, fmt.Errorf("created %d automation requests, want %d", len(created), n)
	}
	return created, nil
}

// CreatePendingRequests creates n automation requests through
// /api/requests without auto approval and checks they are pending.
func (a *Appliance) CreatePendingRequests(ctx context.Context, n int) ([]*rest.Resource, error) {
	data := AutomationRequestsData("nonexistent_vm", RequestsDataOptions{Count: n, RequestsCollection: true})
	created, err := a.client.Collection(collRequests).Create(ctx, data...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending requests: %w", err)
	}
	if len(created) != n {
		return nil, fmt.Errorf("created %d requests, want %d", len(created), n)
	}
	for _, req := range created {
		if state := req.String("request_state"); state != RequestStatePending {
			return nil, fmt.Errorf("request %s is %q, want %q", req.ID(), state, RequestStatePending)
		}
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("created pending requests", "ids", lo.Map(created, resourceID))
	return created, nil
}

// ApproveRequests approves the requests with reason.
func (a *Appliance) ApproveRequests(ctx context.Context, mode Mode, reason string, requests []*rest.Resource) error {
	return a.decide(ctx, mode, "approve", reason, requests)
}

// DenyRequests denies the requests with reason.
func (a *Appliance) DenyRequests(ctx context.Context, mode Mode, reason string, requests []*rest.Resource) error {
	return a.decide(ctx, mode, "deny", reason, requests)
}

func (a *Appliance) decide(ctx context.Context, mode Mode, action, reason string, requests []*rest.Resource) error {
	var err error
	switch mode {
	case FromDetail:
		for _, req := range requests {
			if _, err = req.Action(ctx, action, map[string]any{"reason": reason}); err != nil {
				break
			}
		}
	case FromCollection:
		coll := a.client.Collection(collRequests)
		if action == "approve" {
			_, err = coll.Approve(ctx, reason, requests...)
		} else {
			_, err = coll.Deny(ctx, reason, requests...)
		}
	default:
		err = fmt.Errorf("unknown mode %v", mode)
	}
	if err != nil {
		return fmt.Errorf("failed to %s requests %s: %w", action, mode, err)
	}
	return nil
}

// EditRequests applies body to every request. From the collection the
// requests are referenced alternately by id and by href.
func (a *Appliance) EditRequests(ctx context.Context, mode Mode, body map[string]any, requests []*rest.Resource) error {
	switch mode {
	case FromDetail:
		for _, req := range requests {
			if _, err := req.Edit(ctx, body); err != nil {
				return fmt.Errorf("failed to edit request %s: %w", req.ID(), err)
			}
		}
		return nil
	case FromCollection:
		coll := a.client.Collection(collRequests)
		refs := lo.Map(requests, func(req *rest.Resource, i int) map[string]any {
			if i%2 == 0 {
				return map[string]any{"id": req.ID()}
			}
			return map[string]any{"href": coll.Href() + "/" + req.ID()}
		})
		if _, err := coll.EditAll(ctx, body, refs...); err != nil {
			return fmt.Errorf("failed to edit requests from collection: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown mode %v", mode)
	}
}

func resourceID(r *rest.Resource, _ int) string {
	return r.ID()
}
