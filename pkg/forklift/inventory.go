package forklift

import (
	"context"
	"fmt"
)

// Provider types known to the inventory service.
const (
	ProviderTypeVSphere   = "vsphere"
	ProviderTypeOpenShift = "openshift"
)

// Provider is one inventory provider record.
type Provider struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// InventoryVM is one VM as the inventory service reports it.
type InventoryVM struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PowerState string `json:"powerState,omitempty"`
}

// InventoryObject is a named inventory record (network, datastore).
type InventoryObject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Providers lists the inventory providers of one type.
func (c *Client) Providers(ctx context.Context, providerType string) ([]Provider, error) {
	var providers []Provider
	url := fmt.Sprintf("%s/providers/%s", c.inventoryURL, providerType)
	if err := c.get(ctx, url, &providers); err != nil {
		return nil, fmt.Errorf("listing %s providers: %w", providerType, err)
	}
	return providers, nil
}

// ProviderUID resolves a provider name to its inventory UID.
func (c *Client) ProviderUID(ctx context.Context, providerType, name string) (string, error) {
	providers, err := c.Providers(ctx, providerType)
	if err != nil {
		return "", err
	}
	for _, p := range providers {
		if p.Name == name {
			return p.UID, nil
		}
	}
	return "", fmt.Errorf("provider %q of type %s: %w", name, providerType, ErrNotFound)
}

// VMs lists the migratable VMs of a provider.
func (c *Client) VMs(ctx context.Context, providerType, providerUID string) ([]InventoryVM, error) {
	var vms []InventoryVM
	url := fmt.Sprintf("%s/providers/%s/%s/vms?detail=4", c.inventoryURL, providerType, providerUID)
	if err := c.get(ctx, url, &vms); err != nil {
		return nil, fmt.Errorf("listing VMs of provider %s: %w", providerUID, err)
	}
	return vms, nil
}

// VMID resolves a VM name to its inventory ID within a provider.
func (c *Client) VMID(ctx context.Context, providerType, providerUID, vmName string) (string, error) {
	vms, err := c.VMs(ctx, providerType, providerUID)
	if err != nil {
		return "", err
	}
	for _, vm := range vms {
		if vm.Name == vmName {
			return vm.ID, nil
		}
	}
	return "", fmt.Errorf("VM %q in provider %s: %w", vmName, providerUID, ErrNotFound)
}

// Networks lists the source networks of a provider.
func (c *Client) Networks(ctx context.Context, providerType, providerUID string) ([]InventoryObject, error) {
	var networks []InventoryObject
	url := fmt.Sprintf("%s/providers/%s/%s/networks", c.inventoryURL, providerType, providerUID)
	if err := c.get(ctx, url, &networks); err != nil {
		return nil, fmt.Errorf("listing networks of provider %s: %w", providerUID, err)
	}
	return networks, nil
}

// NetworkID resolves a source network name to its inventory ID. An empty
// name selects the provider's first network.
func (c *Client) NetworkID(ctx context.Context, providerType, providerUID, name string) (string, error) {
	networks, err := c.Networks(ctx, providerType, providerUID)
	if err != nil {
		return "", err
	}
	if name == "" {
		if len(networks) == 0 {
			return "", fmt.Errorf("provider %s has no networks: %w", providerUID, ErrNotFound)
		}
		return networks[0].ID, nil
	}
	for _, n := range networks {
		if n.Name == name {
			return n.ID, nil
		}
	}
	return "", fmt.Errorf("network %q in provider %s: %w", name, providerUID, ErrNotFound)
}

// Datastores lists the source datastores of a provider.
func (c *Client) Datastores(ctx context.Context, providerType, providerUID string) ([]InventoryObject, error) {
	var stores []InventoryObject
	url := fmt.Sprintf("%s/providers/%s/%s/datastores", c.inventoryURL, providerType, providerUID)
	if err := c.get(ctx, url, &stores); err != nil {
		return nil, fmt.Errorf("listing datastores of provider %s: %w", providerUID, err)
	}
	return stores, nil
}

// VMDatastoreID returns the datastore backing the VM's first disk, which
// is what the storage map of a migration plan is keyed on.
func (c *Client) VMDatastoreID(ctx context.Context, providerType, providerUID, vmID string) (string, error) {
	var detail struct {
		Disks []struct {
			Datastore struct {
				ID string `json:"id"`
			} `json:"datastore"`
		} `json:"disks"`
	}
	url := fmt.Sprintf("%s/providers/%s/%s/vms/%s", c.inventoryURL, providerType, providerUID, vmID)
	if err := c.get(ctx, url, &detail); err != nil {
		return "", fmt.Errorf("retrieving VM %s: %w", vmID, err)
	}
	if len(detail.Disks) == 0 {
		return "", fmt.Errorf("VM %s has no disks: %w", vmID, ErrNotFound)
	}
	return detail.Disks[0].Datastore.ID, nil
}
