//go:build e2e

package e2e

import (
	"github.com/imamik/miqcheck/internal/appliance"
	"github.com/imamik/miqcheck/internal/config"
	"github.com/imamik/miqcheck/internal/rest"
)

// SharedTestContext holds what every test needs, initialized by TestMain.
type SharedTestContext struct {
	Config    *config.Config
	Appliance *appliance.Appliance
}

// sharedCtx is the global shared test context.
var sharedCtx *SharedTestContext

// Client returns the shared REST client.
func (s *SharedTestContext) Client() *rest.Client {
	return s.Appliance.Client()
}
