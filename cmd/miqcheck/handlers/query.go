package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/imamik/miqcheck/internal/rest"
)

// QueryOptions controls the query command.
type QueryOptions struct {
	// Filters are key=value pairs every record must match.
	Filters []string
	// Attributes are printed per record; id is always shown.
	Attributes []string
	JSON       bool
}

// Query lists the records of a collection, optionally filtered.
func Query(ctx context.Context, out io.Writer, g Globals, collection string, opts QueryOptions) error {
	attrs, err := parseFilters(opts.Filters)
	if err != nil {
		return err
	}
	columns := opts.Attributes
	if len(columns) == 0 {
		columns = []string{"name"}
	}

	return withSession(ctx, g, func(s *session) error {
		coll := s.app.Client().Collection(collection)
		var found []*rest.Resource
		if len(attrs) > 0 {
			found, err = coll.FindBy(ctx, attrs)
		} else {
			found, err = coll.All(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", collection, err)
		}

		if opts.JSON {
			return writeJSON(out, lo.Map(found, func(r *rest.Resource, _ int) map[string]any {
				return lo.PickByKeys(r.Data, append([]string{"id", "href"}, columns...))
			}))
		}

		rows := lo.Map(found, func(r *rest.Resource, _ int) []string {
			return append([]string{r.ID()}, lo.Map(columns, func(c string, _ int) string {
				return r.String(c)
			})...)
		})
		p := newPrinter(out)
		p.table(append([]string{"id"}, columns...), rows)
		fmt.Fprintf(out, "%d %s\n", len(found), collection)
		return nil
	})
}

// parseFilters turns key=value pairs into FindBy attributes.
func parseFilters(raw []string) (map[string]any, error) {
	attrs := make(map[string]any, len(raw))
	for _, f := range raw {
		key, value, ok := strings.Cut(f, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", f)
		}
		attrs[strings.TrimSpace(key)] = value
	}
	return attrs, nil
}
