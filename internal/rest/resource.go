package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Resource is one record of a collection, or an action result.
type Resource struct {
	client *Client

	Href string
	Data map[string]any
}

func newResource(c *Client, data map[string]any) *Resource {
	href, _ := data["href"].(string)
	return &Resource{client: c, Href: href, Data: data}
}

// ID returns the record id as a string. The API serialises ids as strings
// or numbers depending on the version.
func (r *Resource) ID() string {
	return r.String("id")
}

// Get returns the raw attribute value.
func (r *Resource) Get(key string) any {
	return r.Data[key]
}

// String returns the attribute formatted as a string, "" when absent.
func (r *Resource) String(key string) string {
	switch v := r.Data[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int returns a numeric attribute. Numeric strings are accepted.
func (r *Resource) Int(key string) (int64, bool) {
	switch v := r.Data[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Bool returns a boolean attribute, false when absent.
func (r *Resource) Bool(key string) bool {
	switch v := r.Data[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Map returns a nested object attribute.
func (r *Resource) Map(key string) map[string]any {
	m, _ := r.Data[key].(map[string]any)
	return m
}

// Slice returns a list attribute.
func (r *Resource) Slice(key string) []any {
	s, _ := r.Data[key].([]any)
	return s
}

// Success reports the "success" flag of an action result. Plain records
// have no flag and count as successful.
func (r *Resource) Success() bool {
	v, ok := r.Data["success"].(bool)
	return !ok || v
}

// Ref returns the {"href": ...} form used to reference the resource in a
// collection action.
func (r *Resource) Ref() map[string]any {
	return map[string]any{"href": r.Href}
}

// Reload fetches the resource again, optionally asking for extra
// attributes.
func (r *Resource) Reload(ctx context.Context, attributes ...string) error {
	if r.Href == "" {
		return fmt.Errorf("resource has no href")
	}
	var query url.Values
	if len(attributes) > 0 {
		query = url.Values{"attributes": {strings.Join(attributes, ",")}}
	}
	data, err := r.client.request(ctx, http.MethodGet, r.Href, query, nil)
	if err != nil {
		return err
	}
	r.Data = data
	if href, ok := data["href"].(string); ok && href != "" {
		r.Href = href
	}
	return nil
}

// Action posts {"action": name, "resource": body} to the resource.
func (r *Resource) Action(ctx context.Context, name string, body map[string]any) (*Resource, error) {
	payload := map[string]any{"action": name}
	if body != nil {
		payload["resource"] = body
	}
	data, err := r.client.request(ctx, http.MethodPost, r.Href, nil, payload)
	if err != nil {
		return nil, err
	}
	res := newResource(r.client, data)
	if !res.Success() {
		return res, &ActionError{Action: name, Messages: []string{res.String("message")}}
	}
	return res, nil
}

// Edit changes attributes of the resource and returns the edited record.
func (r *Resource) Edit(ctx context.Context, attrs map[string]any) (*Resource, error) {
	return r.Action(ctx, "edit", attrs)
}

// Delete removes the resource with HTTP DELETE or with a POSTed delete
// action.
func (r *Resource) Delete(ctx context.Context, method string) error {
	switch method {
	case http.MethodDelete:
		_, err := r.client.request(ctx, http.MethodDelete, r.Href, nil, nil)
		return err
	case http.MethodPost, "":
		_, err := r.Action(ctx, "delete", nil)
		return err
	default:
		return fmt.Errorf("unsupported delete method %q", method)
	}
}

// Approve approves a request.
func (r *Resource) Approve(ctx context.Context, reason string) (*Resource, error) {
	return r.Action(ctx, "approve", map[string]any{"reason": reason})
}

// Deny denies a request.
func (r *Resource) Deny(ctx context.Context, reason string) (*Resource, error) {
	return r.Action(ctx, "deny", map[string]any{"reason": reason})
}

// MarkAsSeen marks a notification as seen.
func (r *Resource) MarkAsSeen(ctx context.Context) (*Resource, error) {
	return r.Action(ctx, "mark_as_seen", nil)
}

// Scan starts SmartState analysis of a VM or host.
func (r *Resource) Scan(ctx context.Context) (*Resource, error) {
	return r.Action(ctx, "scan", nil)
}

// Task loads the task referenced by an action result.
func (r *Resource) Task(ctx context.Context) (*Resource, error) {
	href := r.String("task_href")
	if href == "" {
		if id := r.String("task_id"); id != "" {
			href = "/api/tasks/" + id
		}
	}
	if href == "" {
		return nil, fmt.Errorf("action result carries no task: %v", r.Data)
	}
	return r.client.Load(ctx, href)
}
