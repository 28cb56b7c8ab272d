package handlers

import (
	"context"
	"fmt"
	"io"
)

// InfoResult is the JSON form of the info command.
type InfoResult struct {
	URL         string         `json:"url"`
	APIVersion  string         `json:"apiVersion"`
	Server      map[string]any `json:"server"`
	Product     map[string]any `json:"product"`
	Identity    map[string]any `json:"identity"`
	Collections []string       `json:"collections"`
}

// Info prints the entry point of the appliance: server and product info, the
// authenticated identity and the advertised collections.
func Info(ctx context.Context, out io.Writer, g Globals, jsonOutput bool) error {
	return withSession(ctx, g, func(s *session) error {
		ep, err := s.app.Client().Entrypoint(ctx)
		if err != nil {
			return fmt.Errorf("failed to read entry point: %w", err)
		}
		apiVersion, _ := ep.Data["version"].(string)
		result := InfoResult{
			URL:         s.app.Client().BaseURL(),
			APIVersion:  apiVersion,
			Server:      ep.ServerInfo(),
			Product:     ep.ProductInfo(),
			Identity:    ep.Identity(),
			Collections: ep.Collections(),
		}
		if jsonOutput {
			return writeJSON(out, result)
		}

		p := newPrinter(out)
		p.title(fmt.Sprintf("%s (API %s)", result.URL, result.APIVersion))
		p.section("Server")
		p.fields(result.Server)
		p.section("Product")
		p.fields(result.Product)
		p.section("Identity")
		p.fields(result.Identity)
		if v, err := ep.Version(); err == nil {
			fmt.Fprintf(out, "\nappliance version %s, %d collections\n", v, len(result.Collections))
		}
		return nil
	})
}
