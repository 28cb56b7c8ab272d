package config

import (
	"sort"
)

// Provider types understood by the catalog workflows.
const (
	ProviderTypeInfra = "infra"
	ProviderTypeCloud = "cloud"
)

// Config holds the test-run configuration.
type Config struct {
	Appliance         Appliance             `yaml:"appliance"`
	Credentials       map[string]Credential `yaml:"credentials"`
	ManagementSystems map[string]Provider   `yaml:"management_systems"`
}

// Appliance describes how to reach the REST API.
type Appliance struct {
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Token       string `yaml:"token"`
	InsecureTLS bool   `yaml:"insecure_tls"`
}

// Credential is a principal/secret pair referenced by key from hosts.
type Credential struct {
	Principal string `yaml:"principal"`
	Secret    string `yaml:"secret"`
}

// Provider is one management system registered on the appliance.
type Provider struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	// CatalogItemType is the prov_type of catalog items provisioning on this
	// provider, e.g. "vmware" or "amazon". Required with Provisioning.
	CatalogItemType string       `yaml:"catalog_item_type"`
	Hosts           []Host       `yaml:"hosts"`
	Provisioning    Provisioning `yaml:"provisioning"`
}

// Host is a hypervisor host known to a provider.
type Host struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	TestFleece  bool   `yaml:"test_fleece"`
	Credentials string `yaml:"credentials"`
}

// Provisioning carries the values a catalog item needs to provision a VM.
// Infra providers use the template/host/datastore fields, cloud providers
// the image/instance fields.
type Provisioning struct {
	ProvisionType    string `yaml:"provision_type"`
	Template         string `yaml:"template"`
	Host             string `yaml:"host"`
	Datastore        string `yaml:"datastore"`
	ISOFile          string `yaml:"iso_file"`
	VLAN             string `yaml:"vlan"`
	Image            string `yaml:"image"`
	InstanceType     string `yaml:"instance_type"`
	GuestKeypair     string `yaml:"guest_keypair"`
	BootDiskSize     string `yaml:"boot_disk_size"`
	AvailabilityZone string `yaml:"availability_zone"`
	CloudNetwork     string `yaml:"cloud_network"`
}

// CanProvision reports whether the provider carries provisioning data.
func (p Provider) CanProvision() bool {
	return p.Provisioning != (Provisioning{})
}

// HostTarget identifies a host selected for SmartState analysis.
type HostTarget struct {
	ProviderKey string
	Host        Host
}

// ID returns "<provider>-<type>-<name>", usable as a subtest name.
func (h HostTarget) ID() string {
	return h.ProviderKey + "-" + h.Host.Type + "-" + h.Host.Name
}

// HostByName looks up a host of the given provider.
func (c *Config) HostByName(providerKey, name string) (Host, bool) {
	p, ok := c.ManagementSystems[providerKey]
	if !ok {
		return Host{}, false
	}
	for _, h := range p.Hosts {
		if h.Name == name {
			return h, true
		}
	}
	return Host{}, false
}

// FleeceHosts returns every host flagged with test_fleece, ordered by
// provider key so that test ordering is stable.
func (c *Config) FleeceHosts() []HostTarget {
	keys := make([]string, 0, len(c.ManagementSystems))
	for k := range c.ManagementSystems {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []HostTarget
	for _, k := range keys {
		for _, h := range c.ManagementSystems[k].Hosts {
			if h.TestFleece {
				out = append(out, HostTarget{ProviderKey: k, Host: h})
			}
		}
	}
	return out
}

// ProvidersOfType returns the keys of providers of the given type, sorted.
func (c *Config) ProvidersOfType(typ string) []string {
	var keys []string
	for k, p := range c.ManagementSystems {
		if p.Type == typ {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// ProvisioningProviders returns the keys of providers that can provision a
// service, sorted.
func (c *Config) ProvisioningProviders() []string {
	var keys []string
	for k, p := range c.ManagementSystems {
		if p.CanProvision() {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Credential returns the credential stored under key.
func (c *Config) Credential(key string) (Credential, bool) {
	cred, ok := c.Credentials[key]
	return cred, ok
}
