package config

import (
	"log/slog"
	"strings"
)

// Toolset names a group of tools an agent may call. Toolsets are
// wired to live backends at startup; an agent only sees the tools of
// the toolsets listed in its configuration.
type Toolset string

const (
	// ToolsetVSphere exposes vCenter inventory tools (list VMs,
	// describe a VM, datastores, networks).
	ToolsetVSphere Toolset = "vsphere"

	// ToolsetForklift exposes Migration Toolkit for Virtualization
	// tools (providers, plans, plan status).
	ToolsetForklift Toolset = "forklift"
)

// IsValid reports whether the toolset name is known.
func (t Toolset) IsValid() bool {
	switch t {
	case ToolsetVSphere, ToolsetForklift:
		return true
	}
	return false
}

// ValidToolsets returns the accepted toolset names for error messages.
func ValidToolsets() string {
	return strings.Join([]string{string(ToolsetVSphere), string(ToolsetForklift)}, ", ")
}

// LLMProviderType identifies the API family a provider speaks.
type LLMProviderType string

const (
	// LLMProviderTypeOllama is the Ollama /api/generate protocol.
	LLMProviderTypeOllama LLMProviderType = "ollama"
)

// IsValid reports whether the provider type is supported.
func (t LLMProviderType) IsValid() bool {
	return t == LLMProviderTypeOllama
}

// OutputSchema names the structured-output contract enforced on an
// agent's final answer. The empty value means free-form text.
type OutputSchema string

const (
	// OutputSchemaNone accepts any final answer.
	OutputSchemaNone OutputSchema = ""

	// OutputSchemaTaskPlan requires a migration task plan document.
	OutputSchemaTaskPlan OutputSchema = "plan"

	// OutputSchemaVMDetails requires a single VM description document.
	OutputSchemaVMDetails OutputSchema = "vm"

	// OutputSchemaVMList requires a VM listing document.
	OutputSchemaVMList OutputSchema = "vms"
)

// IsValid reports whether the schema name is known.
func (s OutputSchema) IsValid() bool {
	switch s {
	case OutputSchemaNone, OutputSchemaTaskPlan, OutputSchemaVMDetails, OutputSchemaVMList:
		return true
	}
	return false
}

// ValidOutputSchemas returns the accepted schema names for error messages.
func ValidOutputSchemas() string {
	return strings.Join([]string{
		string(OutputSchemaTaskPlan),
		string(OutputSchemaVMDetails),
		string(OutputSchemaVMList),
	}, ", ")
}

// LogFormat selects the process log encoding.
type LogFormat string

const (
	// LogFormatText renders colorized human-readable logs.
	LogFormatText LogFormat = "text"

	// LogFormatJSON renders one JSON object per line.
	LogFormatJSON LogFormat = "json"
)

// IsValid reports whether the log format is known.
func (f LogFormat) IsValid() bool {
	switch f {
	case LogFormatText, LogFormatJSON:
		return true
	}
	return false
}

// LogLevel selects the minimum severity emitted by the process logger.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether the log level is known.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// Slog converts the configured level to its slog equivalent. Unknown
// values fall back to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HistoryDriver selects the run-history database backend.
type HistoryDriver string

const (
	// HistoryDriverSQLite stores history in an embedded SQLite file.
	HistoryDriverSQLite HistoryDriver = "sqlite"

	// HistoryDriverPostgres stores history in a PostgreSQL database.
	HistoryDriverPostgres HistoryDriver = "postgres"
)

// IsValid reports whether the driver name is known.
func (d HistoryDriver) IsValid() bool {
	switch d {
	case HistoryDriverSQLite, HistoryDriverPostgres:
		return true
	}
	return false
}
