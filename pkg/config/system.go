package config

// SystemConfig holds process-wide settings from the system section of
// migsy.yaml.
type SystemConfig struct {
	// ListenAddr is the HTTP API bind address.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel is the minimum log severity: debug, info, warn, error.
	LogLevel LogLevel `yaml:"log_level"`

	// LogFormat selects text (colorized, human-readable) or json logs.
	LogFormat LogFormat `yaml:"log_format"`

	// AuthTokenEnv names the environment variable holding the static API
	// bearer token. The token itself never appears in configuration files.
	// Empty leaves the API unauthenticated; the health endpoint is open
	// either way so probes keep working.
	AuthTokenEnv string `yaml:"auth_token_env"`
}

// DefaultSystemConfig returns the system settings used when migsy.yaml
// omits the section.
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		ListenAddr: ":8080",
		LogLevel:   LogLevelInfo,
		LogFormat:  LogFormatText,
	}
}
