package appliance

import (
	"fmt"
	"net/http"

	"github.com/imamik/miqcheck/internal/config"
	"github.com/imamik/miqcheck/internal/rest"
)

// ClientOptions translates the appliance block and timeouts into REST
// client options. A token wins over a user name.
func ClientOptions(app config.Appliance, timeouts *config.Timeouts) []rest.ClientOption {
	opts := []rest.ClientOption{
		rest.WithHTTPClient(&http.Client{Timeout: timeouts.HTTP}),
		rest.WithRetries(timeouts.RetryMaxAttempts, timeouts.RetryInitialDelay),
	}
	if app.Token != "" {
		opts = append(opts, rest.WithToken(app.Token))
	} else {
		opts = append(opts, rest.WithBasicAuth(app.Username, app.Password))
	}
	if app.InsecureTLS {
		opts = append(opts, rest.WithInsecureTLS())
	}
	return opts
}

// Connect creates an Appliance for cfg. A nil timeouts uses
// config.LoadTimeouts.
func Connect(cfg *config.Config, timeouts *config.Timeouts, opts ...Option) (*Appliance, error) {
	if timeouts == nil {
		timeouts = config.LoadTimeouts()
	}
	client, err := rest.New(cfg.Appliance.URL, ClientOptions(cfg.Appliance, timeouts)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", cfg.Appliance.URL, err)
	}
	return New(client, timeouts, opts...), nil
}
