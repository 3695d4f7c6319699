package vsphere

import (
	"context"
	"fmt"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/tools"
)

// Toolset returns the vCenter tools exposed to the migration agents.
// Handler errors become error observations for the model, so every failure
// message here is written to be actionable in a prompt.
func Toolset(c *Client) []tools.Tool {
	return []tools.Tool{
		{
			Name:        "list_vms",
			Description: "List the names of all virtual machines in the source vCenter datacenter.",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				names, err := c.ListVMs(ctx)
				if err != nil {
					return nil, fmt.Errorf("failed to list VMs: %w", err)
				}
				return names, nil
			},
		},
		{
			Name:        "retrieve_vm_details",
			Description: "Retrieve details of one virtual machine: operating system, CPU, memory, disks, networks, power state and health.",
			Parameters: map[string]agent.ParameterSpec{
				"vm_name": {Type: "string", Description: "Exact name of the virtual machine.", Required: true},
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				return c.VMDetails(ctx, stringArg(input, "vm_name"))
			},
		},
		{
			Name:        "vm_power",
			Description: "Power a virtual machine on or off and wait for the operation to finish.",
			Parameters: map[string]agent.ParameterSpec{
				"vm_name": {Type: "string", Description: "Exact name of the virtual machine.", Required: true},
				"state":   {Type: "string", Description: `Desired power state, "on" or "off".`, Required: true},
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				name := stringArg(input, "vm_name")
				switch state := stringArg(input, "state"); state {
				case "on":
					return c.PowerOn(ctx, name)
				case "off":
					return c.PowerOff(ctx, name)
				default:
					return nil, fmt.Errorf("unsupported power state %q, use \"on\" or \"off\"", state)
				}
			},
		},
		{
			Name:        "create_vm_snapshot",
			Description: "Create a named snapshot of a virtual machine, for rollback before a migration cutover.",
			Parameters: map[string]agent.ParameterSpec{
				"vm_name":       {Type: "string", Description: "Exact name of the virtual machine.", Required: true},
				"snapshot_name": {Type: "string", Description: "Name for the new snapshot.", Required: true},
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				return c.CreateSnapshot(ctx, stringArg(input, "vm_name"), stringArg(input, "snapshot_name"))
			},
		},
		{
			Name:        "revert_vm_snapshot",
			Description: "Revert a virtual machine to a previously created snapshot.",
			Parameters: map[string]agent.ParameterSpec{
				"vm_name":       {Type: "string", Description: "Exact name of the virtual machine.", Required: true},
				"snapshot_name": {Type: "string", Description: "Name of the snapshot to revert to.", Required: true},
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				return c.RevertSnapshot(ctx, stringArg(input, "vm_name"), stringArg(input, "snapshot_name"))
			},
		},
		{
			Name:        "list_datastores",
			Description: "List the datastores of the source datacenter with total and free capacity in bytes.",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				stores, err := c.Datastores(ctx)
				if err != nil {
					return nil, fmt.Errorf("failed to list datastores: %w", err)
				}
				return stores, nil
			},
		},
		{
			Name:        "list_networks",
			Description: "List the names of all networks and portgroups in the source datacenter.",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				networks, err := c.Networks(ctx)
				if err != nil {
					return nil, fmt.Errorf("failed to list networks: %w", err)
				}
				return networks, nil
			},
		},
	}
}

// stringArg reads a string parameter already validated by the registry
// schema. Missing or mistyped keys come back empty.
func stringArg(input map[string]any, key string) string {
	s, _ := input[key].(string)
	return s
}
