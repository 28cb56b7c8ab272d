package appliance

import (
	"fmt"
	"strings"
	"time"

	"github.com/imamik/miqcheck/internal/config"
	"github.com/imamik/miqcheck/internal/rest"
	"github.com/imamik/miqcheck/internal/util/poll"
)

// Collections used by the workflows.
const (
	collAutomationRequests = "automation_requests"
	collRequests           = "requests"
	collArbitrationRules   = "arbitration_rules"
	collArbitrationSetting = "arbitration_settings"
	collNotifications      = "notifications"
	collVMs                = "vms"
	collHosts              = "hosts"
	collProviders          = "providers"
	collServiceDialogs     = "service_dialogs"
	collServiceCatalogs    = "service_catalogs"
	collServiceTemplates   = "service_templates"
)

// Mode selects whether an action is posted to each resource or once to the
// collection.
type Mode int

const (
	// FromDetail posts the action to every resource separately.
	FromDetail Mode = iota
	// FromCollection posts one collection action referencing all resources.
	FromCollection
)

// Modes lists both modes, for table-driven tests.
var Modes = []Mode{FromDetail, FromCollection}

func (m Mode) String() string {
	switch m {
	case FromDetail:
		return "from_detail"
	case FromCollection:
		return "from_collection"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Appliance runs workflows against one appliance.
type Appliance struct {
	client   *rest.Client
	timeouts *config.Timeouts
	observer poll.Observer
}

// Option configures an Appliance.
type Option func(*Appliance)

// WithObserver reports every poll the workflows run to o.
func WithObserver(o poll.Observer) Option {
	return func(a *Appliance) {
		a.observer = o
	}
}

// New creates an Appliance. A nil timeouts uses config.LoadTimeouts.
func New(client *rest.Client, timeouts *config.Timeouts, opts ...Option) *Appliance {
	if timeouts == nil {
		timeouts = config.LoadTimeouts()
	}
	a := &Appliance{client: client, timeouts: timeouts}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Client returns the REST client.
func (a *Appliance) Client() *rest.Client {
	return a.client
}

// Timeouts returns the timing budgets in use.
func (a *Appliance) Timeouts() *config.Timeouts {
	return a.timeouts
}

func (a *Appliance) pollOptions(timeout, delay time.Duration, message string, extra ...poll.Option) []poll.Option {
	opts := []poll.Option{
		poll.WithTimeout(timeout),
		poll.WithDelay(delay),
		poll.WithMessage(message),
	}
	if a.observer != nil {
		opts = append(opts, poll.WithObserver(a.observer))
	}
	return append(opts, extra...)
}

func equalFold(r *rest.Resource, key, want string) bool {
	return strings.EqualFold(r.String(key), want)
}
