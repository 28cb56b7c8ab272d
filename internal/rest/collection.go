package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/samber/lo"
)

// Collection is /api/<name>. Reload caches the expanded resources.
type Collection struct {
	client *Client
	name   string

	resources []*Resource
	count     int
	subcount  int
	actions   []string
	loaded    bool
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Href returns the API path of the collection.
func (c *Collection) Href() string {
	return "/api/" + c.name
}

// Reload fetches the collection with all resources expanded.
func (c *Collection) Reload(ctx context.Context) error {
	data, err := c.client.request(ctx, http.MethodGet, c.Href(), url.Values{"expand": {"resources"}}, nil)
	if err != nil {
		return err
	}
	c.resources = c.decodeResources(data["resources"])
	c.count = intOf(data["count"], len(c.resources))
	c.subcount = intOf(data["subcount"], len(c.resources))
	c.actions = actionNames(data["actions"])
	c.loaded = true
	return nil
}

// All returns the cached resources, loading them first if needed.
func (c *Collection) All(ctx context.Context) ([]*Resource, error) {
	if !c.loaded {
		if err := c.Reload(ctx); err != nil {
			return nil, err
		}
	}
	return c.resources, nil
}

// Count is the total number of records reported by the last Reload.
func (c *Collection) Count() int {
	return c.count
}

// Subcount is the number of records returned by the last Reload.
func (c *Collection) Subcount() int {
	return c.subcount
}

// Actions lists the actions the last Reload advertised.
func (c *Collection) Actions() []string {
	return c.actions
}

// Index returns the i-th cached resource; negative indexes count from the
// end.
func (c *Collection) Index(i int) (*Resource, error) {
	n := len(c.resources)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, fmt.Errorf("index %d out of range for %s (%d resources)", i, c.name, n)
	}
	return c.resources[i], nil
}

// Get fetches one record by id.
func (c *Collection) Get(ctx context.Context, id string) (*Resource, error) {
	return c.client.Load(ctx, c.Href()+"/"+url.PathEscape(id))
}

// FindBy returns the records matching every attribute.
func (c *Collection) FindBy(ctx context.Context, attrs map[string]any) ([]*Resource, error) {
	query := url.Values{"expand": {"resources"}}
	for _, f := range filters(attrs) {
		query.Add("filter[]", f)
	}
	data, err := c.client.request(ctx, http.MethodGet, c.Href(), query, nil)
	if err != nil {
		return nil, err
	}
	return c.decodeResources(data["resources"]), nil
}

// GetBy returns the single record matching every attribute.
func (c *Collection) GetBy(ctx context.Context, attrs map[string]any) (*Resource, error) {
	found, err := c.FindBy(ctx, attrs)
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%s %v: %w", c.name, attrs, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%s %v: %w (%d)", c.name, attrs, ErrMultiple, len(found))
	}
}

// Options issues an OPTIONS request and returns the collection metadata
// (attributes, virtual attributes, relationships, subcollections).
func (c *Collection) Options(ctx context.Context) (map[string]any, error) {
	return c.client.request(ctx, http.MethodOptions, c.Href(), nil, nil)
}

// Action posts {"action": name, "resources": resources} and returns the
// results. When some results report failure the results are still
// returned together with an *ActionError.
func (c *Collection) Action(ctx context.Context, name string, resources ...map[string]any) ([]*Resource, error) {
	payload := map[string]any{"action": name}
	if len(resources) > 0 {
		payload["resources"] = resources
	}
	data, err := c.client.request(ctx, http.MethodPost, c.Href(), nil, payload)
	if err != nil {
		return nil, err
	}

	results := c.decodeResources(data["results"])
	failed := lo.Filter(results, func(r *Resource, _ int) bool { return !r.Success() })
	if len(failed) > 0 {
		return results, &ActionError{
			Action:   name,
			Messages: lo.Map(failed, func(r *Resource, _ int) string { return r.String("message") }),
		}
	}
	return results, nil
}

// Create creates one record per body.
func (c *Collection) Create(ctx context.Context, bodies ...map[string]any) ([]*Resource, error) {
	return c.Action(ctx, "create", bodies...)
}

// Edit applies each body; every body must identify its record by id or
// href.
func (c *Collection) Edit(ctx context.Context, bodies ...map[string]any) ([]*Resource, error) {
	return c.Action(ctx, "edit", bodies...)
}

// EditAll applies the same attributes to every referenced record.
func (c *Collection) EditAll(ctx context.Context, attrs map[string]any, refs ...map[string]any) ([]*Resource, error) {
	return c.Action(ctx, "edit", withShared(attrs, refs)...)
}

// Delete removes the given records in one request.
func (c *Collection) Delete(ctx context.Context, rs ...*Resource) error {
	_, err := c.Action(ctx, "delete", Refs(rs...)...)
	return err
}

// Query resolves references given by id, href or any identifying
// attribute into full records.
func (c *Collection) Query(ctx context.Context, refs ...map[string]any) ([]*Resource, error) {
	return c.Action(ctx, "query", refs...)
}

// Approve approves requests with a reason.
func (c *Collection) Approve(ctx context.Context, reason string, rs ...*Resource) ([]*Resource, error) {
	return c.Action(ctx, "approve", withShared(map[string]any{"reason": reason}, Refs(rs...))...)
}

// Deny denies requests with a reason.
func (c *Collection) Deny(ctx context.Context, reason string, rs ...*Resource) ([]*Resource, error) {
	return c.Action(ctx, "deny", withShared(map[string]any{"reason": reason}, Refs(rs...))...)
}

// MarkAsSeen marks notifications as seen.
func (c *Collection) MarkAsSeen(ctx context.Context, rs ...*Resource) ([]*Resource, error) {
	return c.Action(ctx, "mark_as_seen", Refs(rs...)...)
}

// Scan starts SmartState analysis of the given records.
func (c *Collection) Scan(ctx context.Context, rs ...*Resource) ([]*Resource, error) {
	return c.Action(ctx, "scan", Refs(rs...)...)
}

// Refs converts resources to their {"href": ...} references.
func Refs(rs ...*Resource) []map[string]any {
	return lo.Map(rs, func(r *Resource, _ int) map[string]any { return r.Ref() })
}

func withShared(shared map[string]any, refs []map[string]any) []map[string]any {
	return lo.Map(refs, func(ref map[string]any, _ int) map[string]any {
		return lo.Assign(shared, ref)
	})
}

func (c *Collection) decodeResources(raw any) []*Resource {
	items, _ := raw.([]any)
	out := make([]*Resource, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, newResource(c.client, m))
		}
	}
	return out
}

// filters renders attrs as filter[] expressions: strings are quoted,
// everything else is written as-is. Keys are sorted for stable URLs.
func filters(attrs map[string]any) []string {
	keys := lo.Keys(attrs)
	sort.Strings(keys)
	return lo.Map(keys, func(k string, _ int) string {
		switch v := attrs[k].(type) {
		case string:
			return fmt.Sprintf("%s='%s'", k, v)
		default:
			return fmt.Sprintf("%s=%v", k, v)
		}
	})
}

func actionNames(raw any) []string {
	items, _ := raw.([]any)
	var names []string
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return lo.Uniq(names)
}

func intOf(v any, fallback int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return fallback
}
