// Package vsphere exposes the source-side inventory and lifecycle
// operations the migration agents need from vCenter. The client wraps a
// single authenticated session and keeps short-lived caches so repeated
// tool calls inside one run do not refetch the same inventory.
package vsphere

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"time"

	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"
)

const vmListCacheKey = "inventory"

// Config carries vCenter connection settings.
type Config struct {
	// URL is the SDK endpoint, e.g. "https://vcenter.example.com/sdk".
	// A bare hostname is accepted and normalized.
	URL      string
	Username string
	Password string
	// Insecure skips TLS certificate verification.
	Insecure bool
	// Datacenter scopes all lookups. Empty selects the default
	// datacenter, which fails when vCenter has more than one.
	Datacenter string
	// CacheTTL bounds how long read-only inventory answers are reused.
	// Zero disables caching.
	CacheTTL time.Duration
}

// Client is a connected vCenter session. It is safe for concurrent use.
type Client struct {
	logger  *slog.Logger
	vc      *govmomi.Client
	finder  *find.Finder
	vmNames *cache[[]string]
	details *cache[*VMDetails]
}

// NewClient connects to vCenter, authenticates and scopes the session to
// the configured datacenter.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("component", "vsphere"))

	u, err := soap.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing vCenter URL: %w", err)
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}

	vc, err := govmomi.NewClient(ctx, u, cfg.Insecure)
	if err != nil {
		return nil, fmt.Errorf("connecting to vCenter %s: %w", u.Host, err)
	}

	finder := find.NewFinder(vc.Client, true)
	var dc *object.Datacenter
	if cfg.Datacenter != "" {
		dc, err = finder.Datacenter(ctx, cfg.Datacenter)
	} else {
		dc, err = finder.DefaultDatacenter(ctx)
	}
	if err != nil {
		_ = vc.Logout(ctx)
		return nil, fmt.Errorf("resolving datacenter: %w", err)
	}
	finder.SetDatacenter(dc)

	logger.Info("Connected to vCenter",
		slog.String("host", u.Host),
		slog.String("datacenter", dc.Name()))

	return &Client{
		logger:  logger,
		vc:      vc,
		finder:  finder,
		vmNames: newCache[[]string](cfg.CacheTTL),
		details: newCache[*VMDetails](cfg.CacheTTL),
	}, nil
}

// Close terminates the vCenter session.
func (c *Client) Close(ctx context.Context) error {
	return c.vc.Logout(ctx)
}

// ListVMs returns the names of all virtual machines in the datacenter,
// sorted lexicographically.
func (c *Client) ListVMs(ctx context.Context) ([]string, error) {
	if names, ok := c.vmNames.Get(vmListCacheKey); ok {
		return names, nil
	}

	vms, err := c.finder.VirtualMachineList(ctx, "*")
	if err != nil {
		if isNotFound(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing VMs: %w", err)
	}

	names := make([]string, 0, len(vms))
	for _, vm := range vms {
		names = append(names, vm.Name())
	}
	sort.Strings(names)

	c.vmNames.Set(vmListCacheKey, names)
	return names, nil
}

// VMDetails returns the migration-relevant facts about one VM. The name
// must match exactly; an unknown name yields ErrVMNotFound.
func (c *Client) VMDetails(ctx context.Context, name string) (*VMDetails, error) {
	if cached, ok := c.details.Get(name); ok {
		return cached, nil
	}

	vm, err := c.FindVM(ctx, name)
	if err != nil {
		return nil, err
	}

	var props mo.VirtualMachine
	pc := property.DefaultCollector(c.vc.Client)
	if err := pc.RetrieveOne(ctx, vm.Reference(), []string{"summary", "config.hardware.device", "network"}, &props); err != nil {
		return nil, fmt.Errorf("retrieving properties of VM %q: %w", name, err)
	}

	details := &VMDetails{
		Name:            props.Summary.Config.Name,
		OperatingSystem: props.Summary.Config.GuestFullName,
		CPU:             int(props.Summary.Config.NumCpu),
		MemoryMB:        int(props.Summary.Config.MemorySizeMB),
		Disks:           []DiskInfo{},
		Networks:        []string{},
		PowerState:      string(props.Summary.Runtime.PowerState),
		ConnectionState: string(props.Summary.Runtime.ConnectionState),
		OverallStatus:   string(props.Summary.OverallStatus),
	}

	if props.Config != nil {
		for _, dev := range props.Config.Hardware.Device {
			disk, ok := dev.(*types.VirtualDisk)
			if !ok {
				continue
			}
			info := DiskInfo{CapacityGB: float64(disk.CapacityInKB) / (1024 * 1024)}
			if disk.DeviceInfo != nil {
				info.Label = disk.DeviceInfo.GetDescription().Label
			}
			details.Disks = append(details.Disks, info)
		}
	}

	for _, ref := range props.Network {
		netName, err := object.NewCommon(c.vc.Client, ref).ObjectName(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving network of VM %q: %w", name, err)
		}
		details.Networks = append(details.Networks, netName)
	}
	sort.Strings(details.Networks)

	c.details.Set(name, details)
	return details, nil
}

// PowerOn starts the VM and waits for the task to finish. Powering on an
// already running VM is not an error.
func (c *Client) PowerOn(ctx context.Context, name string) (string, error) {
	vm, err := c.FindVM(ctx, name)
	if err != nil {
		return "", err
	}

	state, err := vm.PowerState(ctx)
	if err != nil {
		return "", fmt.Errorf("reading power state of VM %q: %w", name, err)
	}
	if state == types.VirtualMachinePowerStatePoweredOn {
		return fmt.Sprintf("VM %q is already powered on.", name), nil
	}

	task, err := vm.PowerOn(ctx)
	if err == nil {
		err = task.Wait(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("powering on VM %q: %w", name, err)
	}

	c.details.Delete(name)
	c.logger.Info("Powered on VM", slog.String("vm", name))
	return fmt.Sprintf("VM %q powered on.", name), nil
}

// PowerOff stops the VM hard and waits for the task to finish. Powering
// off an already stopped VM is not an error.
func (c *Client) PowerOff(ctx context.Context, name string) (string, error) {
	vm, err := c.FindVM(ctx, name)
	if err != nil {
		return "", err
	}

	state, err := vm.PowerState(ctx)
	if err != nil {
		return "", fmt.Errorf("reading power state of VM %q: %w", name, err)
	}
	if state == types.VirtualMachinePowerStatePoweredOff {
		return fmt.Sprintf("VM %q is already powered off.", name), nil
	}

	task, err := vm.PowerOff(ctx)
	if err == nil {
		err = task.Wait(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("powering off VM %q: %w", name, err)
	}

	c.details.Delete(name)
	c.logger.Info("Powered off VM", slog.String("vm", name))
	return fmt.Sprintf("VM %q powered off.", name), nil
}

// CreateSnapshot takes a named snapshot of the VM. Memory is captured
// only for running VMs; quiescing is skipped since it requires guest
// tools.
func (c *Client) CreateSnapshot(ctx context.Context, vmName, snapshotName string) (string, error) {
	vm, err := c.FindVM(ctx, vmName)
	if err != nil {
		return "", err
	}

	state, err := vm.PowerState(ctx)
	if err != nil {
		return "", fmt.Errorf("reading power state of VM %q: %w", vmName, err)
	}
	memory := state == types.VirtualMachinePowerStatePoweredOn

	task, err := vm.CreateSnapshot(ctx, snapshotName, "", memory, false)
	if err == nil {
		err = task.Wait(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("creating snapshot %q of VM %q: %w", snapshotName, vmName, err)
	}

	c.logger.Info("Created snapshot",
		slog.String("vm", vmName),
		slog.String("snapshot", snapshotName))
	return fmt.Sprintf("Snapshot %q for VM %q created.", snapshotName, vmName), nil
}

// RevertSnapshot rolls the VM back to a named snapshot.
func (c *Client) RevertSnapshot(ctx context.Context, vmName, snapshotName string) (string, error) {
	vm, err := c.FindVM(ctx, vmName)
	if err != nil {
		return "", err
	}

	task, err := vm.RevertToSnapshot(ctx, snapshotName, false)
	if err == nil {
		err = task.Wait(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("reverting VM %q to snapshot %q: %w", vmName, snapshotName, err)
	}

	c.details.Delete(vmName)
	c.logger.Info("Reverted VM to snapshot",
		slog.String("vm", vmName),
		slog.String("snapshot", snapshotName))
	return fmt.Sprintf("VM %q reverted to snapshot %q.", vmName, snapshotName), nil
}

// Datastores returns capacity information for every datastore in the
// datacenter, sorted by name.
func (c *Client) Datastores(ctx context.Context) ([]DatastoreInfo, error) {
	stores, err := c.finder.DatastoreList(ctx, "*")
	if err != nil {
		if isNotFound(err) {
			return []DatastoreInfo{}, nil
		}
		return nil, fmt.Errorf("listing datastores: %w", err)
	}

	refs := make([]types.ManagedObjectReference, 0, len(stores))
	for _, ds := range stores {
		refs = append(refs, ds.Reference())
	}

	var props []mo.Datastore
	pc := property.DefaultCollector(c.vc.Client)
	if err := pc.Retrieve(ctx, refs, []string{"summary"}, &props); err != nil {
		return nil, fmt.Errorf("retrieving datastore capacities: %w", err)
	}

	infos := make([]DatastoreInfo, 0, len(props))
	for _, ds := range props {
		infos = append(infos, DatastoreInfo{
			Name:          ds.Summary.Name,
			CapacityBytes: ds.Summary.Capacity,
			FreeBytes:     ds.Summary.FreeSpace,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Networks returns the names of all networks in the datacenter, standard
// and distributed portgroups alike, sorted lexicographically.
func (c *Client) Networks(ctx context.Context) ([]string, error) {
	networks, err := c.finder.NetworkList(ctx, "*")
	if err != nil {
		if isNotFound(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing networks: %w", err)
	}

	names := make([]string, 0, len(networks))
	for _, n := range networks {
		names = append(names, path.Base(n.GetInventoryPath()))
	}
	sort.Strings(names)
	return names, nil
}

// FindVM resolves a virtual machine by exact name. Unknown names yield
// ErrVMNotFound.
func (c *Client) FindVM(ctx context.Context, name string) (*object.VirtualMachine, error) {
	vm, err := c.finder.VirtualMachine(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %q", ErrVMNotFound, name)
		}
		return nil, fmt.Errorf("looking up VM %q: %w", name, err)
	}
	return vm, nil
}

func isNotFound(err error) bool {
	var nf *find.NotFoundError
	return errors.As(err, &nf)
}
