package forklift

import (
	"context"
	"fmt"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/tools"
)

// Toolset returns the MTV migration tools exposed to the agents.
func Toolset(c *Client) []tools.Tool {
	return []tools.Tool{
		{
			Name:        "list_migration_providers",
			Description: "List the migration providers registered in the MTV inventory, with their UIDs.",
			Parameters: map[string]agent.ParameterSpec{
				"provider_type": {Type: "string", Description: `Provider type, "vsphere" or "openshift". Defaults to "vsphere".`},
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				providerType, _ := input["provider_type"].(string)
				if providerType == "" {
					providerType = ProviderTypeVSphere
				}
				return c.Providers(ctx, providerType)
			},
		},
		{
			Name:        "create_migration_plan",
			Description: "Create a migration plan for the named VMs, including its network and storage maps. VM IDs are resolved from names automatically.",
			Parameters: map[string]agent.ParameterSpec{
				"name":     {Type: "string", Description: "Name for the migration plan.", Required: true},
				"vm_names": {Type: "array", Description: "Names of the VMs to migrate.", Required: true},
				"source":   {Type: "string", Description: `Source provider name. Defaults to "vmware".`},
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				vmNames, err := stringSlice(input["vm_names"])
				if err != nil {
					return nil, fmt.Errorf("vm_names: %w", err)
				}
				name, _ := input["name"].(string)
				source, _ := input["source"].(string)

				plan, err := c.CreateMigrationPlan(ctx, MigrationPlanRequest{
					PlanName:       name,
					VMNames:        vmNames,
					SourceProvider: source,
				})
				if err != nil {
					return nil, err
				}
				return fmt.Sprintf("Migration plan %q created with UID %s.", plan.Name, plan.UID), nil
			},
		},
		{
			Name:        "start_migration",
			Description: "Start the migration for an existing migration plan that reports Ready.",
			Parameters: map[string]agent.ParameterSpec{
				"plan_name": {Type: "string", Description: "Name of the migration plan to start.", Required: true},
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				planName, _ := input["plan_name"].(string)
				migration, err := c.StartMigrationByName(ctx, planName)
				if err != nil {
					return nil, err
				}
				return fmt.Sprintf("Migration %q started for plan %q.", migration.Name, planName), nil
			},
		},
	}
}

func stringSlice(value any) ([]string, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of strings, got %T", value)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected an array of strings, found %T element", item)
		}
		out = append(out, s)
	}
	return out, nil
}
