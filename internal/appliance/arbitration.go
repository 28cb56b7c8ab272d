package appliance

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/imamik/miqcheck/internal/rest"
	"github.com/imamik/miqcheck/internal/util/naming"
)

// CreateArbitrationRules creates n inject rules matching the admin user.
func (a *Appliance) CreateArbitrationRules(ctx context.Context, n int) ([]*rest.Resource, error) {
	body := lo.Times(n, func(int) map[string]any {
		return map[string]any{
			"description": naming.ArbitrationRule(),
			"operation":   "inject",
			"expression": map[string]any{
				"EQUAL": map[string]any{"field": "User-userid", "value": "admin"},
			},
		}
	})
	return a.create(ctx, collArbitrationRules, body)
}

// CreateArbitrationSettings creates n arbitration settings.
func (a *Appliance) CreateArbitrationSettings(ctx context.Context, n int) ([]*rest.Resource, error) {
	body := lo.Times(n, func(int) map[string]any {
		name, displayName := naming.ArbitrationSetting()
		return map[string]any{
			"name":         name,
			"display_name": displayName,
		}
	})
	return a.create(ctx, collArbitrationSetting, body)
}

// DeleteArbitrationRules removes rules, tolerating rules a test already
// deleted.
func (a *Appliance) DeleteArbitrationRules(ctx context.Context, rules []*rest.Resource) error {
	return a.DeleteAll(ctx, collArbitrationRules, rules)
}

// DeleteArbitrationSettings removes settings, tolerating settings a test
// already deleted.
func (a *Appliance) DeleteArbitrationSettings(ctx context.Context, settings []*rest.Resource) error {
	return a.DeleteAll(ctx, collArbitrationSetting, settings)
}

// EditDescriptions gives every resource a fresh unique description and
// returns the edited resources together with the descriptions sent.
func (a *Appliance) EditDescriptions(ctx context.Context, collection string, mode Mode, rs []*rest.Resource) ([]*rest.Resource, []string, error) {
	descriptions := lo.Times(len(rs), func(int) string {
		return naming.EditedArbitrationRule()
	})
	edits := lo.Map(descriptions, func(d string, _ int) map[string]any {
		return map[string]any{"description": d}
	})
	edited, err := a.EditResources(ctx, collection, mode, rs, edits)
	if err != nil {
		return nil, nil, err
	}
	return edited, descriptions, nil
}

func (a *Appliance) create(ctx context.Context, collection string, body []map[string]any) ([]*rest.Resource, error) {
	created, err := a.client.Collection(collection).Create(ctx, body...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", collection, err)
	}
	if len(created) != len(body) {
		return nil, fmt.Errorf("created %d %s, want %d", len(created), collection, len(body))
	}
	return created, nil
}
