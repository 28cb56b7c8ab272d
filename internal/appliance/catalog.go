package appliance

import (
	"context"
	"fmt"

	"github.com/imamik/miqcheck/internal/config"
	"github.com/imamik/miqcheck/internal/rest"
	"github.com/imamik/miqcheck/internal/util/naming"
)

// provisionEntryPoint is the automate state machine catalog items start.
const provisionEntryPoint = "/Service/Provisioning/StateMachines/ServiceProvision_Template/CatalogItemInitialization"

// CreateDialog creates a service dialog with a single text box.
func (a *Appliance) CreateDialog(ctx context.Context) (*rest.Resource, error) {
	label := naming.DialogLabel()
	body := map[string]any{
		"label":       label,
		"description": "my dialog",
		"buttons":     "submit,cancel",
		"dialog_tabs": []any{map[string]any{
			"label": "tab_" + label,
			"dialog_groups": []any{map[string]any{
				"label": "group_" + label,
				"dialog_fields": []any{map[string]any{
					"name":  "service_name",
					"label": "Service name",
					"type":  "DialogFieldTextBox",
				}},
			}},
		}},
	}
	created, err := a.create(ctx, collServiceDialogs, []map[string]any{body})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// CreateCatalog creates an empty service catalog.
func (a *Appliance) CreateCatalog(ctx context.Context) (*rest.Resource, error) {
	body := map[string]any{
		"name":        naming.Catalog(),
		"description": "my catalog",
	}
	created, err := a.create(ctx, collServiceCatalogs, []map[string]any{body})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// ProvisioningData builds the provisioning section of a catalog item that
// provisions vmName on provider.
func ProvisioningData(provider config.Provider, vmName string) (map[string]any, error) {
	p := provider.Provisioning
	switch provider.Type {
	case config.ProviderTypeInfra:
		return map[string]any{
			"catalog": map[string]any{
				"catalog_name":   map[string]any{"name": p.Template, "provider": provider.Name},
				"vm_name":        vmName,
				"provision_type": p.ProvisionType,
			},
			"environment": map[string]any{
				"host_name":      map[string]any{"name": p.Host},
				"datastore_name": map[string]any{"name": p.Datastore},
			},
			"network": map[string]any{"vlan": p.VLAN},
		}, nil
	case config.ProviderTypeCloud:
		properties := map[string]any{
			"instance_type": p.InstanceType,
			"guest_keypair": p.GuestKeypair,
		}
		if p.BootDiskSize != "" {
			properties["boot_disk_size"] = p.BootDiskSize
		}
		return map[string]any{
			"catalog": map[string]any{
				"catalog_name": map[string]any{"name": p.Image, "provider": provider.Name},
				"vm_name":      vmName,
			},
			"properties": properties,
			"environment": map[string]any{
				"availability_zone": p.AvailabilityZone,
				"cloud_network":     p.CloudNetwork,
			},
		}, nil
	default:
		return nil, fmt.Errorf("provider %q has unsupported type %q", provider.Name, provider.Type)
	}
}

// CreateCatalogItem creates an atomic catalog item in catalog that
// provisions vmName on provider through dialog. The item is named after the
// dialog's label. The provider must name its catalog item type.
func (a *Appliance) CreateCatalogItem(ctx context.Context, provider config.Provider, vmName string, dialog, catalog *rest.Resource) (*rest.Resource, error) {
	if provider.CatalogItemType == "" {
		return nil, fmt.Errorf("provider %q has no catalog_item_type", provider.Name)
	}
	prov, err := ProvisioningData(provider, vmName)
	if err != nil {
		return nil, err
	}
	prov["dialog_id"] = dialog.ID()
	prov["fqname"] = provisionEntryPoint

	body := map[string]any{
		"name":                        dialog.String("label"),
		"description":                 "my catalog",
		"display":                     true,
		"service_type":                "atomic",
		"prov_type":                   provider.CatalogItemType,
		"service_template_catalog_id": catalog.ID(),
		"config_info": map[string]any{
			"provision": prov,
		},
	}
	created, err := a.create(ctx, collServiceTemplates, []map[string]any{body})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// OrderService orders the catalog item and waits for the resulting
// provision request to finish with status Ok.
func (a *Appliance) OrderService(ctx context.Context, item *rest.Resource) (*rest.Resource, error) {
	res, err := item.Action(ctx, "order", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to order catalog item %s: %w", item.ID(), err)
	}
	if res.Href == "" {
		return nil, fmt.Errorf("order of catalog item %s returned no request: %v", item.ID(), res.Data)
	}
	req, err := a.client.Load(ctx, res.Href)
	if err != nil {
		return nil, fmt.Errorf("failed to load provision request: %w", err)
	}
	if err := a.WaitForRequest(ctx, req, a.timeouts.Provision, a.timeouts.ProvisionPoll); err != nil {
		return req, err
	}
	return req, nil
}

// ServiceOrder builds a dialog, a catalog and a catalog item for provider,
// then orders the item. The created objects are deleted by fin.
func (a *Appliance) ServiceOrder(ctx context.Context, provider config.Provider, vmName string, fin *Finalizers) (item, request *rest.Resource, err error) {
	dialog, err := a.CreateDialog(ctx)
	if err != nil {
		return nil, nil, err
	}
	fin.Add("delete service dialog", a.deleter(collServiceDialogs, dialog))

	catalog, err := a.CreateCatalog(ctx)
	if err != nil {
		return nil, nil, err
	}
	fin.Add("delete service catalog", a.deleter(collServiceCatalogs, catalog))

	item, err = a.CreateCatalogItem(ctx, provider, vmName, dialog, catalog)
	if err != nil {
		return nil, nil, err
	}
	fin.Add("delete catalog item", a.deleter(collServiceTemplates, item))

	request, err = a.OrderService(ctx, item)
	return item, request, err
}

func (a *Appliance) deleter(collection string, rs ...*rest.Resource) func(context.Context) error {
	return func(ctx context.Context) error {
		return a.DeleteAll(ctx, collection, rs)
	}
}
