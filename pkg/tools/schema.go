package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
)

// Parameter types accepted in tool declarations (JSON Schema scalar and
// container types).
var allowedParamTypes = map[string]bool{
	"string":  true,
	"integer": true,
	"number":  true,
	"boolean": true,
	"object":  true,
	"array":   true,
}

type propertySchema struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type objectSchema struct {
	Type                 string                    `json:"type"`
	Properties           map[string]propertySchema `json:"properties"`
	Required             []string                  `json:"required,omitempty"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

// compileParameterSchema turns a declared parameter map into a compiled
// draft 2020-12 object schema. additionalProperties is false so misspelled
// argument names come back as violations the model can correct.
func compileParameterSchema(toolName string, params map[string]agent.ParameterSpec) (*jsonschema.Schema, error) {
	spec := objectSchema{
		Type:       "object",
		Properties: make(map[string]propertySchema, len(params)),
	}
	for name, p := range params {
		if !allowedParamTypes[p.Type] {
			return nil, fmt.Errorf("parameter %q has unsupported type %q", name, p.Type)
		}
		spec.Properties[name] = propertySchema{Type: p.Type, Description: p.Description}
		if p.Required {
			spec.Required = append(spec.Required, name)
		}
	}
	sort.Strings(spec.Required)

	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal parameter schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	schemaURL := fmt.Sprintf("https://migsy.konveyor.local/tools/%s.schema.json", toolName)
	if err := c.AddResource(schemaURL, strings.NewReader(string(raw))); err != nil {
		return nil, fmt.Errorf("load parameter schema: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile parameter schema: %w", err)
	}
	return compiled, nil
}

// violations flattens a validation error tree into one entry per failed
// field: every missing or mistyped parameter, not just the first.
func violations(err error) []agent.FieldViolation {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []agent.FieldViolation{{Field: "input", Reason: err.Error()}}
	}

	var out []agent.FieldViolation
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		// Required-property failures attach to the object, not the missing
		// field; split them so each absent parameter is named.
		if missing := missingProperties(e.Message); len(missing) > 0 {
			for _, field := range missing {
				out = append(out, agent.FieldViolation{Field: field, Reason: "required parameter missing"})
			}
			return
		}
		field := strings.TrimPrefix(e.InstanceLocation, "/")
		if field == "" {
			field = "input"
		}
		out = append(out, agent.FieldViolation{Field: field, Reason: e.Message})
	}
	walk(ve)
	return out
}

// missingProperties extracts field names from a draft 2020-12 required
// failure message of the form: missing properties: 'a', 'b'.
func missingProperties(msg string) []string {
	const prefix = "missing properties"
	if !strings.HasPrefix(msg, prefix) {
		return nil
	}
	var fields []string
	rest := msg[len(prefix):]
	for {
		start := strings.IndexByte(rest, '\'')
		if start < 0 {
			break
		}
		rest = rest[start+1:]
		end := strings.IndexByte(rest, '\'')
		if end < 0 {
			break
		}
		fields = append(fields, rest[:end])
		rest = rest[end+1:]
	}
	return fields
}
