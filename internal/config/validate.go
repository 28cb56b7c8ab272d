package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	if c.Appliance.URL == "" {
		return fmt.Errorf("appliance.url is required (or set %s)", EnvURL)
	}
	u, err := url.Parse(c.Appliance.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("appliance.url %q must be an absolute http(s) URL", c.Appliance.URL)
	}
	if c.Appliance.Token == "" && c.Appliance.Username == "" {
		return fmt.Errorf("either appliance.token or appliance.username is required")
	}

	for key, p := range c.ManagementSystems {
		if err := c.validateProvider(key, p); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateProvider(key string, p Provider) error {
	switch p.Type {
	case ProviderTypeInfra, ProviderTypeCloud:
	default:
		return fmt.Errorf("management_systems.%s: type must be %q or %q, got %q",
			key, ProviderTypeInfra, ProviderTypeCloud, p.Type)
	}
	if p.Name == "" {
		return fmt.Errorf("management_systems.%s: name is required", key)
	}
	if p.CanProvision() && p.CatalogItemType == "" {
		return fmt.Errorf("management_systems.%s: catalog_item_type is required with provisioning", key)
	}

	for i, h := range p.Hosts {
		if h.Name == "" {
			return fmt.Errorf("management_systems.%s.hosts[%d]: name is required", key, i)
		}
		if h.Credentials != "" {
			if _, ok := c.Credentials[h.Credentials]; !ok {
				return fmt.Errorf("management_systems.%s.hosts[%d]: unknown credentials %q",
					key, i, h.Credentials)
			}
		}
	}
	return nil
}
