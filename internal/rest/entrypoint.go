package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Upstream builds report a branch name instead of a version. They compare
// above every release.
var upstreamVersion = semver.MustParse("9999.0.0")

// Entrypoint is the answer of GET /api.
type Entrypoint struct {
	Data map[string]any
}

// Entrypoint fetches /api.
func (c *Client) Entrypoint(ctx context.Context) (*Entrypoint, error) {
	data, err := c.request(ctx, http.MethodGet, "/api", nil, nil)
	if err != nil {
		return nil, err
	}
	return &Entrypoint{Data: data}, nil
}

// ServerInfo returns the server_info block (version, build, appliance, ...).
func (e *Entrypoint) ServerInfo() map[string]any {
	return e.section("server_info")
}

// ProductInfo returns the product_info block (name, copyright, ...).
func (e *Entrypoint) ProductInfo() map[string]any {
	return e.section("product_info")
}

// Identity returns the identity of the authenticated user.
func (e *Entrypoint) Identity() map[string]any {
	return e.section("identity")
}

// Settings returns the user's settings.
func (e *Entrypoint) Settings() map[string]any {
	return e.section("settings")
}

// Collections returns the names of the advertised collections.
func (e *Entrypoint) Collections() []string {
	items, _ := e.Data["collections"].([]any)
	names := make([]string, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// Version parses server_info.version. Four-part appliance versions such
// as 5.7.0.17 are cut to their first three parts.
func (e *Entrypoint) Version() (*semver.Version, error) {
	raw, _ := e.ServerInfo()["version"].(string)
	return ParseVersion(raw)
}

// ParseVersion parses an appliance version string.
func ParseVersion(raw string) (*semver.Version, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "":
		return nil, fmt.Errorf("appliance reports no version")
	case "master", "upstream", "latest":
		return upstreamVersion, nil
	}

	parts := strings.SplitN(raw, ".", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	v, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		return nil, fmt.Errorf("invalid appliance version %q: %w", raw, err)
	}
	return v, nil
}

func (e *Entrypoint) section(key string) map[string]any {
	m, _ := e.Data[key].(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}
