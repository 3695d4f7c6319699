package config

import "time"

// VSphereConfig holds vCenter connection settings. The connection is
// optional; with no URL configured the vsphere toolset and the
// inventory endpoints are disabled.
type VSphereConfig struct {
	// URL is the vCenter SDK endpoint, e.g. "https://vcenter.example.com/sdk".
	URL string `yaml:"url"`

	// Username authenticates the session.
	Username string `yaml:"username"`

	// PasswordEnv names the environment variable holding the password.
	// The password itself never appears in configuration files.
	PasswordEnv string `yaml:"password_env"`

	// Insecure skips TLS certificate verification.
	Insecure bool `yaml:"insecure"`

	// Datacenter scopes all inventory lookups.
	Datacenter string `yaml:"datacenter"`

	// CacheTTL bounds how long inventory answers are reused. Zero
	// disables caching.
	CacheTTL Duration `yaml:"cache_ttl"`
}

// Enabled reports whether a vCenter connection is configured.
func (c VSphereConfig) Enabled() bool {
	return c.URL != ""
}

// DefaultVSphereConfig returns the vCenter settings used when
// migsy.yaml omits the section. The connection stays disabled until a
// URL is configured.
func DefaultVSphereConfig() VSphereConfig {
	return VSphereConfig{
		PasswordEnv: "VSPHERE_PASSWORD",
		CacheTTL:    Duration(30 * time.Second),
	}
}
