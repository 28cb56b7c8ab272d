package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/imamik/miqcheck/internal/rest"
)

// RequestsWait waits until every automation request in ids has finished.
// An id may also be a full href.
func RequestsWait(ctx context.Context, out io.Writer, g Globals, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("at least one request id is required")
	}
	return withSession(ctx, g, func(s *session) error {
		requests := lo.Map(ids, func(id string, _ int) *rest.Resource {
			if strings.Contains(id, "/") {
				return s.app.Client().ResourceAt(id)
			}
			return s.app.Client().ResourceAt("automation_requests/" + id)
		})
		if err := s.app.WaitForRequests(ctx, requests); err != nil {
			return err
		}

		p := newPrinter(out)
		failed := 0
		for _, req := range requests {
			status := req.String("status")
			line := fmt.Sprintf("request %s %s: %s", req.ID(), req.String("request_state"), status)
			if strings.EqualFold(status, "ok") {
				p.ok(line)
				continue
			}
			failed++
			p.fail(line)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d requests did not finish Ok", failed, len(requests))
		}
		return nil
	})
}
