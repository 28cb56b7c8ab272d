package appliance

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/imamik/miqcheck/internal/rest"
)

// ErrUnsupportedVersion is returned by RequireVersion when the appliance is
// outside the constraint. Tests turn it into a skip.
var ErrUnsupportedVersion = errors.New("unsupported appliance version")

// RequireVersion checks the appliance version against constraint, for
// example ">= 5.7".
func RequireVersion(ctx context.Context, client *rest.Client, constraint string) (*semver.Version, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	ep, err := client.Entrypoint(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read appliance version: %w", err)
	}
	v, err := ep.Version()
	if err != nil {
		return nil, err
	}
	if !c.Check(v) {
		return v, fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, v, constraint)
	}
	return v, nil
}
