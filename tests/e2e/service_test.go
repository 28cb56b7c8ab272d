//go:build e2e

package e2e

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/miqcheck/internal/appliance"
	"github.com/imamik/miqcheck/internal/util/naming"
)

func TestServiceOrder(t *testing.T) {
	keys := sharedCtx.Config.ProvisioningProviders()
	if only := os.Getenv("MIQ_SERVICE_PROVIDER"); only != "" {
		keys = []string{only}
	}
	if len(keys) == 0 {
		t.Skip("no provider configured for service orders")
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			provider, ok := sharedCtx.Config.ManagementSystems[key]
			if !ok {
				t.Fatalf("provider %q not configured", key)
			}
			if !provider.CanProvision() {
				t.Skipf("provider %q has no provisioning data", key)
			}
			ctx := testContext(t, sharedCtx.Appliance.Timeouts().Provision+5*time.Minute)
			fin := finalizers(t)

			item, request, err := sharedCtx.Appliance.ServiceOrder(ctx, provider, naming.VM(), fin)
			require.NoError(t, err)
			assert.Equal(t, appliance.RequestStatusOk, request.String("status"))
			t.Logf("catalog item %s provisioned by request %s", item.String("name"), request.ID())
		})
	}
}
