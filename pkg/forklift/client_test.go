package forklift

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

// fakeMTV serves the subset of the cluster and inventory APIs the client
// touches, and records every resource it is asked to create.
type fakeMTV struct {
	mu             sync.Mutex
	created        map[string][]map[string]any
	planNames      []string
	planReady      bool
	providersReady bool
}

func newFakeMTV() *fakeMTV {
	return &fakeMTV{
		created:        map[string][]map[string]any{},
		planReady:      true,
		providersReady: true,
	}
}

func (f *fakeMTV) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/v1/namespaces", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []map[string]any{
			{"metadata": map[string]any{"name": "default"}},
			{"metadata": map[string]any{"name": "openshift-mtv"}},
		}})
	})

	mux.HandleFunc("GET /providers/vsphere", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"uid": "src-uid", "name": "vmware", "type": "vsphere"},
		})
	})
	mux.HandleFunc("GET /providers/openshift", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"uid": "dst-uid", "name": "host", "type": "openshift"},
		})
	})
	mux.HandleFunc("GET /providers/vsphere/src-uid/vms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"id": "vm-101", "name": "db01", "powerState": "poweredOn"},
			{"id": "vm-102", "name": "web01", "powerState": "poweredOn"},
		})
	})
	mux.HandleFunc("GET /providers/vsphere/src-uid/vms/vm-101", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":    "vm-101",
			"disks": []map[string]any{{"datastore": map[string]any{"id": "datastore-55"}}},
		})
	})
	mux.HandleFunc("GET /providers/vsphere/src-uid/networks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"id": "network-7", "name": "VM Network"},
			{"id": "dvportgroup-9", "name": "DPG-Prod"},
		})
	})
	mux.HandleFunc("GET /providers/vsphere/src-uid/datastores", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"id": "datastore-55", "name": "LocalDS_0"},
		})
	})

	crBase := "/apis/forklift.konveyor.io/v1beta1/namespaces/openshift-mtv/"

	mux.HandleFunc("GET "+crBase+"providers", func(w http.ResponseWriter, r *http.Request) {
		status := "True"
		if !f.ready() {
			status = "False"
		}
		conditions := []map[string]any{{"type": "Ready", "status": status}}
		writeJSON(w, map[string]any{"items": []map[string]any{
			{"metadata": map[string]any{"name": "vmware", "uid": "src-uid"}, "status": map[string]any{"conditions": conditions}},
			{"metadata": map[string]any{"name": "host", "uid": "dst-uid"}, "status": map[string]any{"conditions": conditions}},
		}})
	})

	mux.HandleFunc("POST "+crBase+"networkmaps", func(w http.ResponseWriter, r *http.Request) {
		f.record(t, "networkmaps", r)
		writeJSON(w, map[string]any{"metadata": map[string]any{"name": "vmware-x1", "uid": "nm-uid"}})
	})
	mux.HandleFunc("POST "+crBase+"storagemaps", func(w http.ResponseWriter, r *http.Request) {
		f.record(t, "storagemaps", r)
		writeJSON(w, map[string]any{"metadata": map[string]any{"name": "vmware-x2", "uid": "sm-uid"}})
	})
	mux.HandleFunc("POST "+crBase+"plans", func(w http.ResponseWriter, r *http.Request) {
		body := f.record(t, "plans", r)
		name, _ := body["metadata"].(map[string]any)["name"].(string)
		f.mu.Lock()
		f.planNames = append(f.planNames, name)
		f.mu.Unlock()
		writeJSON(w, map[string]any{"metadata": map[string]any{"name": name, "uid": "plan-uid"}})
	})
	mux.HandleFunc("GET "+crBase+"plans", func(w http.ResponseWriter, r *http.Request) {
		status := "True"
		if !f.isPlanReady() {
			status = "False"
		}
		f.mu.Lock()
		items := make([]map[string]any, 0, len(f.planNames))
		for _, name := range f.planNames {
			items = append(items, map[string]any{
				"metadata": map[string]any{"name": name, "uid": "plan-uid"},
				"status": map[string]any{"conditions": []map[string]any{
					{"type": "Ready", "status": status},
				}},
			})
		}
		f.mu.Unlock()
		writeJSON(w, map[string]any{"items": items})
	})
	mux.HandleFunc("POST "+crBase+"migrations", func(w http.ResponseWriter, r *http.Request) {
		body := f.record(t, "migrations", r)
		generateName, _ := body["metadata"].(map[string]any)["generateName"].(string)
		writeJSON(w, map[string]any{"metadata": map[string]any{"name": generateName + "abc12", "uid": "mig-uid"}})
	})

	mux.HandleFunc("GET /forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		writeJSON(w, map[string]any{"message": "RBAC: access denied"})
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, map[string]any{"message": "unauthorized"})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func (f *fakeMTV) record(t *testing.T, plural string, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	f.mu.Lock()
	f.created[plural] = append(f.created[plural], body)
	f.mu.Unlock()
	return body
}

func (f *fakeMTV) lastCreated(t *testing.T, plural string) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.created[plural], "no %s created", plural)
	return f.created[plural][len(f.created[plural])-1]
}

func (f *fakeMTV) ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.providersReady
}

func (f *fakeMTV) isPlanReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.planReady
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, f *fakeMTV) *Client {
	t.Helper()
	server := f.server(t)
	return NewClient(Config{
		APIURL:       server.URL,
		InventoryURL: server.URL,
		Token:        testToken,
	}, nil)
}

// dig walks nested JSON objects.
func dig(t *testing.T, m map[string]any, keys ...string) any {
	t.Helper()
	var current any = m
	for _, key := range keys {
		obj, ok := current.(map[string]any)
		require.True(t, ok, "expected object before key %q", key)
		current = obj[key]
	}
	return current
}

func TestClientPing(t *testing.T) {
	c := newTestClient(t, newFakeMTV())
	assert.NoError(t, c.Ping(context.Background()))
}

func TestClientRejectedTokenSurfacesStatus(t *testing.T) {
	server := newFakeMTV().server(t)
	c := NewClient(Config{APIURL: server.URL, InventoryURL: server.URL, Token: "wrong"}, nil)

	err := c.Ping(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "unauthorized")
}

func TestClientNamespaces(t *testing.T) {
	c := newTestClient(t, newFakeMTV())

	namespaces, err := c.Namespaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "openshift-mtv"}, namespaces)

	missing, err := c.MissingNamespaces(context.Background(), []string{"openshift-mtv", "vm-target"})
	require.NoError(t, err)
	assert.Equal(t, []string{"vm-target"}, missing)
}

func TestClientProviderLookups(t *testing.T) {
	c := newTestClient(t, newFakeMTV())
	ctx := context.Background()

	providers, err := c.Providers(ctx, ProviderTypeVSphere)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, Provider{UID: "src-uid", Name: "vmware", Type: "vsphere"}, providers[0])

	uid, err := c.ProviderUID(ctx, ProviderTypeOpenShift, "host")
	require.NoError(t, err)
	assert.Equal(t, "dst-uid", uid)

	_, err = c.ProviderUID(ctx, ProviderTypeVSphere, "esx-legacy")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientInventoryVMs(t *testing.T) {
	c := newTestClient(t, newFakeMTV())
	ctx := context.Background()

	vms, err := c.VMs(ctx, ProviderTypeVSphere, "src-uid")
	require.NoError(t, err)
	require.Len(t, vms, 2)
	assert.Equal(t, "vm-101", vms[0].ID)

	id, err := c.VMID(ctx, ProviderTypeVSphere, "src-uid", "web01")
	require.NoError(t, err)
	assert.Equal(t, "vm-102", id)

	_, err = c.VMID(ctx, ProviderTypeVSphere, "src-uid", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientNetworkID(t *testing.T) {
	c := newTestClient(t, newFakeMTV())
	ctx := context.Background()

	id, err := c.NetworkID(ctx, ProviderTypeVSphere, "src-uid", "DPG-Prod")
	require.NoError(t, err)
	assert.Equal(t, "dvportgroup-9", id)

	// Empty name selects the provider's first network.
	id, err = c.NetworkID(ctx, ProviderTypeVSphere, "src-uid", "")
	require.NoError(t, err)
	assert.Equal(t, "network-7", id)

	_, err = c.NetworkID(ctx, ProviderTypeVSphere, "src-uid", "isolated")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientVMDatastoreID(t *testing.T) {
	c := newTestClient(t, newFakeMTV())

	id, err := c.VMDatastoreID(context.Background(), ProviderTypeVSphere, "src-uid", "vm-101")
	require.NoError(t, err)
	assert.Equal(t, "datastore-55", id)
}

func TestCreateMigrationPlan(t *testing.T) {
	fake := newFakeMTV()
	c := newTestClient(t, fake)

	plan, err := c.CreateMigrationPlan(context.Background(), MigrationPlanRequest{
		PlanName: "db-plan",
		VMNames:  []string{"db01", "web01"},
	})
	require.NoError(t, err)
	assert.Equal(t, &CreatedObject{Name: "db-plan", UID: "plan-uid"}, plan)

	networkMap := fake.lastCreated(t, "networkmaps")
	assert.Equal(t, "src-uid", dig(t, networkMap, "spec", "provider", "source", "uid"))
	assert.Equal(t, "dst-uid", dig(t, networkMap, "spec", "provider", "destination", "uid"))
	nmEntries, ok := dig(t, networkMap, "spec", "map").([]any)
	require.True(t, ok)
	require.Len(t, nmEntries, 1)
	assert.Equal(t, "network-7", dig(t, nmEntries[0].(map[string]any), "source", "id"))
	assert.Equal(t, "pod", dig(t, nmEntries[0].(map[string]any), "destination", "type"))

	storageMap := fake.lastCreated(t, "storagemaps")
	smEntries, ok := dig(t, storageMap, "spec", "map").([]any)
	require.True(t, ok)
	require.Len(t, smEntries, 1)
	assert.Equal(t, "datastore-55", dig(t, smEntries[0].(map[string]any), "source", "id"))
	assert.Equal(t, DefaultStorageClass, dig(t, smEntries[0].(map[string]any), "destination", "storageClass"))

	planBody := fake.lastCreated(t, "plans")
	assert.Equal(t, "db-plan", dig(t, planBody, "metadata", "name"))
	assert.Equal(t, "openshift-mtv", dig(t, planBody, "spec", "targetNamespace"))
	assert.Equal(t, "nm-uid", dig(t, planBody, "spec", "map", "network", "uid"))
	assert.Equal(t, "sm-uid", dig(t, planBody, "spec", "map", "storage", "uid"))
	vms, ok := dig(t, planBody, "spec", "vms").([]any)
	require.True(t, ok)
	require.Len(t, vms, 2)
	assert.Equal(t, "vm-101", vms[0].(map[string]any)["id"])
	assert.Equal(t, "db01", vms[0].(map[string]any)["name"])
}

func TestCreateMigrationPlanUnknownVM(t *testing.T) {
	c := newTestClient(t, newFakeMTV())

	_, err := c.CreateMigrationPlan(context.Background(), MigrationPlanRequest{
		PlanName: "db-plan",
		VMNames:  []string{"ghost"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `VM "ghost"`)
}

func TestCreateMigrationPlanRequiresVMs(t *testing.T) {
	c := newTestClient(t, newFakeMTV())

	_, err := c.CreateMigrationPlan(context.Background(), MigrationPlanRequest{PlanName: "empty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no VMs provided")
}

func TestStartMigrationByName(t *testing.T) {
	fake := newFakeMTV()
	c := newTestClient(t, fake)
	ctx := context.Background()

	_, err := c.CreateMigrationPlan(ctx, MigrationPlanRequest{
		PlanName: "db-plan",
		VMNames:  []string{"db01"},
	})
	require.NoError(t, err)

	migration, err := c.StartMigrationByName(ctx, "db-plan")
	require.NoError(t, err)
	assert.Equal(t, "db-plan-abc12", migration.Name)

	body := fake.lastCreated(t, "migrations")
	assert.Equal(t, "db-plan-", dig(t, body, "metadata", "generateName"))
	assert.Equal(t, "plan-uid", dig(t, body, "spec", "plan", "uid"))
	owners, ok := dig(t, body, "metadata", "ownerReferences").([]any)
	require.True(t, ok)
	require.Len(t, owners, 1)
	assert.Equal(t, "Plan", owners[0].(map[string]any)["kind"])
}

func TestStartMigrationPlanNotReady(t *testing.T) {
	fake := newFakeMTV()
	fake.planReady = false
	c := newTestClient(t, fake)
	ctx := context.Background()

	_, err := c.CreateMigrationPlan(ctx, MigrationPlanRequest{
		PlanName: "db-plan",
		VMNames:  []string{"db01"},
	})
	require.NoError(t, err)

	_, err = c.StartMigrationByName(ctx, "db-plan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}

func TestStartMigrationPlanMissing(t *testing.T) {
	c := newTestClient(t, newFakeMTV())

	_, err := c.StartMigrationByName(context.Background(), "never-created")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProvidersReady(t *testing.T) {
	fake := newFakeMTV()
	c := newTestClient(t, fake)

	assert.NoError(t, c.ProvidersReady(context.Background()))

	fake.mu.Lock()
	fake.providersReady = false
	fake.mu.Unlock()

	err := c.ProvidersReady(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
	assert.Contains(t, err.Error(), "vmware")
	assert.Contains(t, err.Error(), "host")
}

func TestAPIErrorCarriesBodyExcerpt(t *testing.T) {
	c := newTestClient(t, newFakeMTV())

	var out any
	err := c.get(context.Background(), c.apiURL+"/forbidden", &out)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "RBAC")
}
