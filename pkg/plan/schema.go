// Package plan holds the migration task-plan contract: the JSON schemas the
// planning agents must satisfy, strongly-typed task values, and helpers to
// dig the JSON out of model prose.
package plan

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Output schema names agents can declare in their configuration.
const (
	SchemaTaskPlan  = "plan"
	SchemaVMDetails = "vm"
	SchemaVMList    = "vms"
)

var schemaFiles = map[string]string{
	SchemaTaskPlan:  "schemas/task_plan.schema.json",
	SchemaVMDetails: "schemas/vm_details.schema.json",
	SchemaVMList:    "schemas/vm_list.schema.json",
}

// Validator holds the compiled output schemas. Compile once at startup;
// concurrent validation afterwards is safe.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the embedded schemas.
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	compiled := make(map[string]*jsonschema.Schema, len(schemaFiles))
	for name, file := range schemaFiles {
		raw, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", file, err)
		}
		url := "https://migsy.konveyor.local/" + file
		if err := c.AddResource(url, strings.NewReader(string(raw))); err != nil {
			return nil, fmt.Errorf("load schema %s: %w", file, err)
		}
		s, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", file, err)
		}
		compiled[name] = s
	}
	return &Validator{schemas: compiled}, nil
}

// KnownSchema reports whether name maps to an embedded schema.
func (v *Validator) KnownSchema(name string) bool {
	_, ok := v.schemas[name]
	return ok
}

// Validate checks raw JSON against the named schema. The returned error
// lists every leaf failure, not just the first, so it can be fed back to
// the model as one complete correction.
func (v *Validator) Validate(schemaName string, raw []byte) error {
	s, ok := v.schemas[schemaName]
	if !ok {
		return fmt.Errorf("unknown output schema %q", schemaName)
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("output is not valid JSON: %w", err)
	}
	if err := s.Validate(value); err != nil {
		return fmt.Errorf("output does not satisfy the %s schema: %s", schemaName, flattenError(err))
	}
	return nil
}

// ValidatePlan checks raw JSON against the task-plan schema.
func (v *Validator) ValidatePlan(raw []byte) error {
	return v.Validate(SchemaTaskPlan, raw)
}

// ValidateVMDetails checks raw JSON against the VM details schema.
func (v *Validator) ValidateVMDetails(raw []byte) error {
	return v.Validate(SchemaVMDetails, raw)
}

// AnswerValidator binds one named schema for checking model answers: it
// digs the JSON out of the answer text before validating.
type AnswerValidator struct {
	v      *Validator
	schema string
}

// ForSchema returns a validator for one named schema, suitable for wiring
// into an ExecutionContext. Fails fast on unknown names so misconfigured
// agents are caught at startup, not mid-run.
func (v *Validator) ForSchema(name string) (*AnswerValidator, error) {
	if !v.KnownSchema(name) {
		return nil, fmt.Errorf("unknown output schema %q", name)
	}
	return &AnswerValidator{v: v, schema: name}, nil
}

// ValidateAnswer extracts the JSON value from the answer text and validates
// it. The error message is phrased for the model.
func (a *AnswerValidator) ValidateAnswer(answer string) error {
	raw, err := ExtractJSON(answer)
	if err != nil {
		return fmt.Errorf("the answer must contain a JSON value satisfying the %s schema: %v", a.schema, err)
	}
	return a.v.Validate(a.schema, raw)
}

// flattenError renders every leaf of a validation error tree on one line
// per failure.
func flattenError(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}

	var leaves []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		loc := e.InstanceLocation
		if loc == "" {
			loc = "(root)"
		}
		leaves = append(leaves, fmt.Sprintf("%s: %s", loc, e.Message))
	}
	walk(ve)
	return strings.Join(leaves, "; ")
}
