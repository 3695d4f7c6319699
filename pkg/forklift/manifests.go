package forklift

// Wire shapes of the forklift.konveyor.io/v1beta1 resources this client
// creates. Only the fields the controller actually reads are modeled.

const apiVersion = "forklift.konveyor.io/v1beta1"

type objectMeta struct {
	Name            string     `json:"name,omitempty"`
	GenerateName    string     `json:"generateName,omitempty"`
	Namespace       string     `json:"namespace"`
	OwnerReferences []ownerRef `json:"ownerReferences,omitempty"`
}

type ownerRef struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	UID        string `json:"uid"`
}

// resourceRef points at another namespaced forklift resource.
type resourceRef struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	UID        string `json:"uid"`
}

type providerPair struct {
	Source      resourceRef `json:"source"`
	Destination resourceRef `json:"destination"`
}

type idRef struct {
	ID string `json:"id"`
}

type networkMapManifest struct {
	APIVersion string         `json:"apiVersion"`
	Kind       string         `json:"kind"`
	Metadata   objectMeta     `json:"metadata"`
	Spec       networkMapSpec `json:"spec"`
}

type networkMapSpec struct {
	Provider providerPair      `json:"provider"`
	Map      []networkMapEntry `json:"map"`
}

type networkMapEntry struct {
	Source      idRef `json:"source"`
	Destination struct {
		Type string `json:"type"`
	} `json:"destination"`
}

type storageMapManifest struct {
	APIVersion string         `json:"apiVersion"`
	Kind       string         `json:"kind"`
	Metadata   objectMeta     `json:"metadata"`
	Spec       storageMapSpec `json:"spec"`
}

type storageMapSpec struct {
	Provider providerPair      `json:"provider"`
	Map      []storageMapEntry `json:"map"`
}

type storageMapEntry struct {
	Source      idRef `json:"source"`
	Destination struct {
		StorageClass string `json:"storageClass"`
	} `json:"destination"`
}

// PlanVM identifies one VM inside a migration plan.
type PlanVM struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type planManifest struct {
	APIVersion string       `json:"apiVersion"`
	Kind       string       `json:"kind"`
	Metadata   objectMeta   `json:"metadata"`
	Spec       planSpecBody `json:"spec"`
}

type planSpecBody struct {
	Map             planMaps     `json:"map"`
	Provider        providerPair `json:"provider"`
	TargetNamespace string       `json:"targetNamespace"`
	VMs             []PlanVM     `json:"vms"`
}

type planMaps struct {
	Network resourceRef `json:"network"`
	Storage resourceRef `json:"storage"`
}

type migrationManifest struct {
	APIVersion string        `json:"apiVersion"`
	Kind       string        `json:"kind"`
	Metadata   objectMeta    `json:"metadata"`
	Spec       migrationSpec `json:"spec"`
}

type migrationSpec struct {
	Plan struct {
		Name      string `json:"name"`
		Namespace string `json:"namespace"`
		UID       string `json:"uid"`
	} `json:"plan"`
}
