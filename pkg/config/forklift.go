package config

import "time"

// ForkliftConfig holds Migration Toolkit for Virtualization connection
// settings. The connection is optional; with no API URL configured the
// forklift toolset is disabled.
type ForkliftConfig struct {
	// APIURL is the cluster API server, e.g. "https://api.cluster:6443".
	APIURL string `yaml:"api_url"`

	// InventoryURL is the forklift inventory route.
	InventoryURL string `yaml:"inventory_url"`

	// TokenEnv names the environment variable holding the bearer token.
	// The token itself never appears in configuration files.
	TokenEnv string `yaml:"token_env"`

	// Namespace hosts the forklift resources.
	Namespace string `yaml:"namespace"`

	// Insecure skips TLS certificate verification.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each API call.
	Timeout Duration `yaml:"timeout"`
}

// Enabled reports whether an MTV connection is configured.
func (c ForkliftConfig) Enabled() bool {
	return c.APIURL != ""
}

// DefaultForkliftConfig returns the MTV settings used when migsy.yaml
// omits the section. The connection stays disabled until an API URL is
// configured.
func DefaultForkliftConfig() ForkliftConfig {
	return ForkliftConfig{
		TokenEnv:  "MTV_TOKEN",
		Namespace: "openshift-mtv",
		Timeout:   Duration(30 * time.Second),
	}
}
