package appliance

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/samber/lo"

	"github.com/imamik/miqcheck/internal/rest"
)

// detailDeleteMethods alternates between a POSTed delete action and HTTP
// DELETE so both code paths of the API are exercised.
var detailDeleteMethods = []string{http.MethodPost, http.MethodDelete}

// DeleteResources deletes rs from collection, one by one or in a single
// collection action.
func (a *Appliance) DeleteResources(ctx context.Context, collection string, mode Mode, rs []*rest.Resource) error {
	return a.deleteResources(ctx, collection, mode, rs, detailDeleteMethods)
}

func (a *Appliance) deleteResources(ctx context.Context, collection string, mode Mode, rs []*rest.Resource, methods []string) error {
	switch mode {
	case FromDetail:
		for i, r := range rs {
			if err := r.Delete(ctx, methods[i%len(methods)]); err != nil {
				return fmt.Errorf("failed to delete %s %s: %w", collection, r.ID(), err)
			}
		}
		return nil
	case FromCollection:
		if err := a.client.Collection(collection).Delete(ctx, rs...); err != nil {
			return fmt.Errorf("failed to delete %d %s: %w", len(rs), collection, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown mode %v", mode)
	}
}

// VerifyDeleted deletes rs a second time and expects the appliance to
// answer RecordNotFound for every attempt.
func (a *Appliance) VerifyDeleted(ctx context.Context, collection string, mode Mode, rs []*rest.Resource) error {
	switch mode {
	case FromDetail:
		for _, r := range rs {
			if err := rest.ExpectError(r.Delete(ctx, http.MethodPost), rest.KlassRecordNotFound); err != nil {
				return fmt.Errorf("%s %s still deletable: %w", collection, r.ID(), err)
			}
		}
		return nil
	case FromCollection:
		err := a.client.Collection(collection).Delete(ctx, rs...)
		if err := rest.ExpectError(err, rest.KlassRecordNotFound); err != nil {
			return fmt.Errorf("%s still deletable: %w", collection, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown mode %v", mode)
	}
}

// DeleteAll removes rs in one collection action. API failures are logged
// and ignored since the resources may already be gone.
func (a *Appliance) DeleteAll(ctx context.Context, collection string, rs []*rest.Resource) error {
	if len(rs) == 0 {
		return nil
	}
	err := a.client.Collection(collection).Delete(ctx, rs...)
	if err == nil {
		return nil
	}
	var apiErr *rest.APIError
	var actionErr *rest.ActionError
	if errors.As(err, &apiErr) || errors.As(err, &actionErr) {
		logr.FromContextOrDiscard(ctx).Info("failed to delete resources, ignoring",
			"collection", collection, "count", len(rs), "error", err.Error())
		return nil
	}
	return fmt.Errorf("failed to delete %s: %w", collection, err)
}

// EditResources applies edits[i] to rs[i]. From the collection all edits go
// out in one request, each carrying the reference of its resource.
func (a *Appliance) EditResources(ctx context.Context, collection string, mode Mode, rs []*rest.Resource, edits []map[string]any) ([]*rest.Resource, error) {
	if len(rs) != len(edits) {
		return nil, fmt.Errorf("got %d edits for %d %s", len(edits), len(rs), collection)
	}
	switch mode {
	case FromDetail:
		edited := make([]*rest.Resource, 0, len(rs))
		for i, r := range rs {
			res, err := r.Edit(ctx, edits[i])
			if err != nil {
				return nil, fmt.Errorf("failed to edit %s %s: %w", collection, r.ID(), err)
			}
			edited = append(edited, res)
		}
		return edited, nil
	case FromCollection:
		bodies := lo.Map(rs, func(r *rest.Resource, i int) map[string]any {
			return lo.Assign(edits[i], r.Ref())
		})
		edited, err := a.client.Collection(collection).Edit(ctx, bodies...)
		if err != nil {
			return nil, fmt.Errorf("failed to edit %s from collection: %w", collection, err)
		}
		return edited, nil
	default:
		return nil, fmt.Errorf("unknown mode %v", mode)
	}
}
