package forklift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Defaults for an MTV deployment provisioned the standard way: a vsphere
// provider named "vmware", the local cluster provider named "host".
const (
	DefaultSourceProvider      = "vmware"
	DefaultDestinationProvider = "host"
	DefaultNetworkType         = "pod"
	DefaultStorageClass        = "ocs-storagecluster-ceph-rbd"
)

// CreatedObject identifies a resource the cluster accepted.
type CreatedObject struct {
	Name string `json:"name"`
	UID  string `json:"uid"`
}

// Condition is one status condition of a forklift resource.
type Condition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// PlanInfo is the status of one migration plan.
type PlanInfo struct {
	Name       string
	UID        string
	Ready      bool
	Conditions []Condition
}

type crList struct {
	Items []crObject `json:"items"`
}

type crObject struct {
	Metadata CreatedObject `json:"metadata"`
	Status   struct {
		Conditions []Condition `json:"conditions"`
	} `json:"status"`
}

// CreateNetworkMap maps one source network onto a destination network
// type ("pod" or "multus"). The cluster assigns the map name from the
// source provider prefix.
func (c *Client) CreateNetworkMap(ctx context.Context, source, destination Provider, sourceNetworkID, destinationType string) (*CreatedObject, error) {
	if destinationType == "" {
		destinationType = DefaultNetworkType
	}

	entry := networkMapEntry{Source: idRef{ID: sourceNetworkID}}
	entry.Destination.Type = destinationType

	manifest := networkMapManifest{
		APIVersion: apiVersion,
		Kind:       "NetworkMap",
		Metadata: objectMeta{
			GenerateName: source.Name + "-",
			Namespace:    c.namespace,
		},
		Spec: networkMapSpec{
			Provider: providerPair{
				Source:      c.providerRef(source),
				Destination: c.providerRef(destination),
			},
			Map: []networkMapEntry{entry},
		},
	}

	created, err := c.create(ctx, "networkmaps", manifest)
	if err != nil {
		return nil, fmt.Errorf("creating network map: %w", err)
	}
	return created, nil
}

// CreateStorageMap maps one source datastore onto a destination storage
// class.
func (c *Client) CreateStorageMap(ctx context.Context, source, destination Provider, sourceDatastoreID, storageClass string) (*CreatedObject, error) {
	if storageClass == "" {
		storageClass = DefaultStorageClass
	}

	entry := storageMapEntry{Source: idRef{ID: sourceDatastoreID}}
	entry.Destination.StorageClass = storageClass

	manifest := storageMapManifest{
		APIVersion: apiVersion,
		Kind:       "StorageMap",
		Metadata: objectMeta{
			GenerateName: source.Name + "-",
			Namespace:    c.namespace,
		},
		Spec: storageMapSpec{
			Provider: providerPair{
				Source:      c.providerRef(source),
				Destination: c.providerRef(destination),
			},
			Map: []storageMapEntry{entry},
		},
	}

	created, err := c.create(ctx, "storagemaps", manifest)
	if err != nil {
		return nil, fmt.Errorf("creating storage map: %w", err)
	}
	return created, nil
}

// PlanRequest carries everything a Plan resource references.
type PlanRequest struct {
	Name        string
	Source      Provider
	Destination Provider
	NetworkMap  CreatedObject
	StorageMap  CreatedObject
	VMs         []PlanVM
	// TargetNamespace receives the migrated VMs. Empty selects the
	// client namespace.
	TargetNamespace string
}

// CreatePlan creates a Plan resource tying providers, maps and VMs
// together.
func (c *Client) CreatePlan(ctx context.Context, req PlanRequest) (*CreatedObject, error) {
	target := req.TargetNamespace
	if target == "" {
		target = c.namespace
	}

	manifest := planManifest{
		APIVersion: apiVersion,
		Kind:       "Plan",
		Metadata: objectMeta{
			Name:      req.Name,
			Namespace: c.namespace,
		},
		Spec: planSpecBody{
			Map: planMaps{
				Network: c.mapRef("NetworkMap", req.NetworkMap),
				Storage: c.mapRef("StorageMap", req.StorageMap),
			},
			Provider: providerPair{
				Source:      c.providerRef(req.Source),
				Destination: c.providerRef(req.Destination),
			},
			TargetNamespace: target,
			VMs:             req.VMs,
		},
	}

	created, err := c.create(ctx, "plans", manifest)
	if err != nil {
		return nil, fmt.Errorf("creating plan %q: %w", req.Name, err)
	}
	return created, nil
}

// StartMigration creates a Migration resource for an existing plan. The
// migration is owned by the plan so it is garbage collected with it.
func (c *Client) StartMigration(ctx context.Context, planName, planUID string) (*CreatedObject, error) {
	manifest := migrationManifest{
		APIVersion: apiVersion,
		Kind:       "Migration",
		Metadata: objectMeta{
			GenerateName: planName + "-",
			Namespace:    c.namespace,
			OwnerReferences: []ownerRef{{
				APIVersion: apiVersion,
				Kind:       "Plan",
				Name:       planName,
				UID:        planUID,
			}},
		},
	}
	manifest.Spec.Plan.Name = planName
	manifest.Spec.Plan.Namespace = c.namespace
	manifest.Spec.Plan.UID = planUID

	created, err := c.create(ctx, "migrations", manifest)
	if err != nil {
		return nil, fmt.Errorf("starting migration for plan %q: %w", planName, err)
	}
	return created, nil
}

// PlanByName finds a plan among the namespace's Plan resources.
func (c *Client) PlanByName(ctx context.Context, name string) (*PlanInfo, error) {
	var list crList
	if err := c.get(ctx, c.resourceURL("plans"), &list); err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}

	for _, item := range list.Items {
		if item.Metadata.Name != name {
			continue
		}
		return &PlanInfo{
			Name:       item.Metadata.Name,
			UID:        item.Metadata.UID,
			Ready:      conditionsReady(item.Status.Conditions),
			Conditions: item.Status.Conditions,
		}, nil
	}
	return nil, fmt.Errorf("migration plan %q: %w", name, ErrNotFound)
}

// ProvidersReady verifies the named Provider resources report a Ready
// condition. With no names it checks the default vmware and host pair.
func (c *Client) ProvidersReady(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = []string{DefaultSourceProvider, DefaultDestinationProvider}
	}

	var list crList
	if err := c.get(ctx, c.resourceURL("providers"), &list); err != nil {
		return fmt.Errorf("listing providers: %w", err)
	}

	ready := make(map[string]bool, len(list.Items))
	for _, item := range list.Items {
		ready[item.Metadata.Name] = conditionsReady(item.Status.Conditions)
	}

	var notReady []string
	for _, name := range names {
		if !ready[name] {
			notReady = append(notReady, name)
		}
	}
	if len(notReady) > 0 {
		return fmt.Errorf("the following providers are not ready: %s", strings.Join(notReady, ", "))
	}
	return nil
}

// MigrationPlanRequest is the high-level input for CreateMigrationPlan.
// Only the plan name and VM names are mandatory; everything else falls
// back to the standard MTV deployment defaults.
type MigrationPlanRequest struct {
	PlanName string
	VMNames  []string
	// SourceProvider is the vsphere provider name. Empty selects
	// "vmware".
	SourceProvider string
	// DestinationProvider is the openshift provider name. Empty selects
	// "host".
	DestinationProvider string
	// SourceNetwork is the source network name for the network map.
	// Empty selects the provider's first network.
	SourceNetwork string
	// DestinationNetworkType is "pod" or "multus". Empty selects "pod".
	DestinationNetworkType string
	// DestinationStorageClass receives the migrated disks.
	DestinationStorageClass string
}

// CreateMigrationPlan resolves names against the inventory, creates the
// network and storage maps and then the plan itself. VM IDs are looked
// up automatically, so callers only need names.
func (c *Client) CreateMigrationPlan(ctx context.Context, req MigrationPlanRequest) (*CreatedObject, error) {
	if req.PlanName == "" {
		return nil, errors.New("plan name is required")
	}
	if len(req.VMNames) == 0 {
		return nil, fmt.Errorf("no VMs provided for plan %q", req.PlanName)
	}
	if req.SourceProvider == "" {
		req.SourceProvider = DefaultSourceProvider
	}
	if req.DestinationProvider == "" {
		req.DestinationProvider = DefaultDestinationProvider
	}

	// 1. Resolve both providers in the inventory.
	sourceUID, err := c.ProviderUID(ctx, ProviderTypeVSphere, req.SourceProvider)
	if err != nil {
		return nil, err
	}
	source := Provider{UID: sourceUID, Name: req.SourceProvider}

	destinationUID, err := c.ProviderUID(ctx, ProviderTypeOpenShift, req.DestinationProvider)
	if err != nil {
		return nil, err
	}
	destination := Provider{UID: destinationUID, Name: req.DestinationProvider}

	// 2. Resolve the source network and every requested VM.
	networkID, err := c.NetworkID(ctx, ProviderTypeVSphere, sourceUID, req.SourceNetwork)
	if err != nil {
		return nil, err
	}

	vms := make([]PlanVM, 0, len(req.VMNames))
	for _, vmName := range req.VMNames {
		id, err := c.VMID(ctx, ProviderTypeVSphere, sourceUID, vmName)
		if err != nil {
			return nil, err
		}
		vms = append(vms, PlanVM{ID: id, Name: vmName})
	}

	// 3. The storage map is keyed on the datastore backing the first VM.
	datastoreID, err := c.VMDatastoreID(ctx, ProviderTypeVSphere, sourceUID, vms[0].ID)
	if err != nil {
		return nil, err
	}

	// 4. Create the maps, then the plan referencing them.
	networkMap, err := c.CreateNetworkMap(ctx, source, destination, networkID, req.DestinationNetworkType)
	if err != nil {
		return nil, err
	}
	storageMap, err := c.CreateStorageMap(ctx, source, destination, datastoreID, req.DestinationStorageClass)
	if err != nil {
		return nil, err
	}

	plan, err := c.CreatePlan(ctx, PlanRequest{
		Name:        req.PlanName,
		Source:      source,
		Destination: destination,
		NetworkMap:  *networkMap,
		StorageMap:  *storageMap,
		VMs:         vms,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Created migration plan",
		slog.String("plan", plan.Name),
		slog.String("uid", plan.UID),
		slog.Int("vms", len(vms)))
	return plan, nil
}

// StartMigrationByName starts a migration for a plan after verifying the
// plan exists and reports Ready.
func (c *Client) StartMigrationByName(ctx context.Context, planName string) (*CreatedObject, error) {
	plan, err := c.PlanByName(ctx, planName)
	if err != nil {
		return nil, err
	}
	if !plan.Ready {
		return nil, fmt.Errorf("migration plan %q is not ready", planName)
	}

	migration, err := c.StartMigration(ctx, plan.Name, plan.UID)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Started migration",
		slog.String("plan", planName),
		slog.String("migration", migration.Name))
	return migration, nil
}

func (c *Client) create(ctx context.Context, plural string, manifest any) (*CreatedObject, error) {
	var created struct {
		Metadata CreatedObject `json:"metadata"`
	}
	if err := c.post(ctx, c.resourceURL(plural), manifest, &created); err != nil {
		return nil, err
	}
	return &created.Metadata, nil
}

func (c *Client) providerRef(p Provider) resourceRef {
	return resourceRef{
		APIVersion: apiVersion,
		Kind:       "Provider",
		Name:       p.Name,
		Namespace:  c.namespace,
		UID:        p.UID,
	}
}

func (c *Client) mapRef(kind string, obj CreatedObject) resourceRef {
	return resourceRef{
		APIVersion: apiVersion,
		Kind:       kind,
		Name:       obj.Name,
		Namespace:  c.namespace,
		UID:        obj.UID,
	}
}

func conditionsReady(conditions []Condition) bool {
	for _, cond := range conditions {
		if cond.Type == "Ready" && cond.Status == "True" {
			return true
		}
	}
	return false
}
