package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv expands {{.VAR}} references in configuration text using the
// process environment. This lets secrets such as database passwords
// reach DSNs without being written into migsy.yaml:
//
//	dsn: "postgres://migsy:{{.HISTORY_DB_PASSWORD}}@db:5432/migsy"
//
// Unknown variables expand to the empty string. On template errors the
// input is returned unchanged so a stray brace in an instructions block
// cannot take the whole configuration down; YAML parsing reports the
// real problem later.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("config").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok {
			env[name] = value
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, env); err != nil {
		return data
	}
	return buf.Bytes()
}
