package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Tool{
		Name:        "list_vms",
		Description: "List all virtual machines in the inventory.",
		Handler: func(context.Context, map[string]any) (any, error) {
			return []string{"db-01", "web-01"}, nil
		},
	}))
	require.NoError(t, r.Register(Tool{
		Name:        "retrieve_vm_details",
		Description: "Retrieve configuration details for one virtual machine.",
		Parameters: map[string]agent.ParameterSpec{
			"vm_name": {Type: "string", Description: "Name of the virtual machine.", Required: true},
			"verbose": {Type: "boolean", Description: "Include disk and network detail."},
		},
		Handler: func(_ context.Context, input map[string]any) (any, error) {
			return map[string]any{"name": input["vm_name"]}, nil
		},
	}))
	return r
}

func TestRegistry_Register(t *testing.T) {
	t.Run("duplicate name fails", func(t *testing.T) {
		r := newTestRegistry(t)
		err := r.Register(Tool{
			Name:    "list_vms",
			Handler: func(context.Context, map[string]any) (any, error) { return nil, nil },
		})
		var dup *agent.DuplicateToolError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "list_vms", dup.Name)
	})

	t.Run("nil handler fails", func(t *testing.T) {
		r := NewRegistry(nil)
		err := r.Register(Tool{Name: "broken"})
		assert.ErrorContains(t, err, "handler must not be nil")
	})

	t.Run("empty name fails", func(t *testing.T) {
		r := NewRegistry(nil)
		err := r.Register(Tool{Handler: func(context.Context, map[string]any) (any, error) { return nil, nil }})
		assert.ErrorContains(t, err, "name must not be empty")
	})

	t.Run("unsupported parameter type fails at registration", func(t *testing.T) {
		r := NewRegistry(nil)
		err := r.Register(Tool{
			Name:       "bad_params",
			Parameters: map[string]agent.ParameterSpec{"size": {Type: "float"}},
			Handler:    func(context.Context, map[string]any) (any, error) { return nil, nil },
		})
		assert.ErrorContains(t, err, `unsupported type "float"`)
	})
}

func TestRegistry_DescriptorsOrderingIsStable(t *testing.T) {
	r := NewRegistry(nil)
	names := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	for _, name := range names {
		require.NoError(t, r.Register(Tool{
			Name:    name,
			Handler: func(context.Context, map[string]any) (any, error) { return nil, nil },
		}))
	}

	first := r.Descriptors()
	for i := 0; i < 10; i++ {
		again := r.Descriptors()
		require.Len(t, again, len(names))
		for j, d := range again {
			assert.Equal(t, first[j].Name, d.Name)
			assert.Equal(t, names[j], d.Name, "registration order must be preserved")
		}
	}
}

func TestRegistry_DescriptorsAreCopies(t *testing.T) {
	r := newTestRegistry(t)

	ds := r.Descriptors()
	ds[1].Parameters["vm_name"] = agent.ParameterSpec{Type: "integer"}
	ds[0].Name = "mutated"

	fresh := r.Descriptors()
	assert.Equal(t, "list_vms", fresh[0].Name)
	assert.Equal(t, "string", fresh[1].Parameters["vm_name"].Type)
}

func TestRegistry_Invoke(t *testing.T) {
	ctx := context.Background()

	t.Run("success carries the handler value", func(t *testing.T) {
		r := newTestRegistry(t)
		result, err := r.Invoke(ctx, "list_vms", nil)
		require.NoError(t, err)
		assert.Equal(t, agent.ToolStatusOK, result.Status)
		assert.Equal(t, []string{"db-01", "web-01"}, result.Value)
		assert.Equal(t, "list_vms", result.Name)
	})

	t.Run("unknown tool carries the known names", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Invoke(ctx, "list_vmss", nil)
		var unknown *agent.UnknownToolError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "list_vmss", unknown.Name)
		assert.Equal(t, []string{"list_vms", "retrieve_vm_details"}, unknown.Known)
	})

	t.Run("missing required parameter is named", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Invoke(ctx, "retrieve_vm_details", map[string]any{})
		var invalid *agent.InvalidToolInputError
		require.ErrorAs(t, err, &invalid)
		require.Len(t, invalid.Violations, 1)
		assert.Equal(t, "vm_name", invalid.Violations[0].Field)
		assert.Contains(t, err.Error(), "vm_name")
	})

	t.Run("every violation is listed, not just the first", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Invoke(ctx, "retrieve_vm_details", map[string]any{
			"verbose": "yes", // mistyped
			"extra":   1,     // not declared
		})
		var invalid *agent.InvalidToolInputError
		require.ErrorAs(t, err, &invalid)

		fields := make([]string, 0, len(invalid.Violations))
		for _, v := range invalid.Violations {
			fields = append(fields, v.Field)
		}
		assert.Contains(t, fields, "vm_name", "missing required field listed")
		assert.Contains(t, fields, "verbose", "mistyped field listed")
		assert.GreaterOrEqual(t, len(invalid.Violations), 3, "undeclared field listed too")
	})

	t.Run("handler error becomes an error result, not a Go error", func(t *testing.T) {
		r := NewRegistry(nil)
		require.NoError(t, r.Register(Tool{
			Name: "flaky",
			Handler: func(context.Context, map[string]any) (any, error) {
				return nil, fmt.Errorf("vCenter session expired")
			},
		}))

		result, err := r.Invoke(ctx, "flaky", nil)
		require.NoError(t, err)
		assert.Equal(t, agent.ToolStatusError, result.Status)
		assert.Equal(t, "vCenter session expired", result.ErrorMessage)
	})

	t.Run("panicking handler becomes an error result", func(t *testing.T) {
		r := NewRegistry(nil)
		require.NoError(t, r.Register(Tool{
			Name: "explosive",
			Handler: func(context.Context, map[string]any) (any, error) {
				panic("index out of range")
			},
		}))

		result, err := r.Invoke(ctx, "explosive", nil)
		require.NoError(t, err)
		assert.True(t, result.IsError())
		assert.Contains(t, result.ErrorMessage, "index out of range")
	})

	t.Run("integral float64 satisfies integer parameters", func(t *testing.T) {
		// JSON decoding yields float64 for every number; 2.0 must pass an
		// integer parameter, 2.5 must not.
		r := NewRegistry(nil)
		require.NoError(t, r.Register(Tool{
			Name:       "snapshot",
			Parameters: map[string]agent.ParameterSpec{"keep": {Type: "integer", Required: true}},
			Handler:    func(context.Context, map[string]any) (any, error) { return "ok", nil },
		}))

		_, err := r.Invoke(ctx, "snapshot", map[string]any{"keep": float64(2)})
		assert.NoError(t, err)

		_, err = r.Invoke(ctx, "snapshot", map[string]any{"keep": 2.5})
		var invalid *agent.InvalidToolInputError
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 25; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			result, err := r.Invoke(ctx, "retrieve_vm_details", map[string]any{"vm_name": "db-01"})
			if err != nil {
				errs <- err
				return
			}
			if result.IsError() {
				errs <- errors.New(result.ErrorMessage)
			}
		}()
		go func() {
			defer wg.Done()
			if len(r.Descriptors()) != 2 {
				errs <- errors.New("descriptor count changed")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent access: %v", err)
	}
}
