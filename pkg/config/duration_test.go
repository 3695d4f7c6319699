package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    Duration
		wantErr string
	}{
		{
			name: "duration string",
			yaml: `value: 90s`,
			want: Duration(90 * time.Second),
		},
		{
			name: "compound duration string",
			yaml: `value: 1h30m`,
			want: Duration(90 * time.Minute),
		},
		{
			name: "zero string",
			yaml: `value: 0s`,
			want: Duration(0),
		},
		{
			name: "integer nanoseconds",
			yaml: `value: 1000000000`,
			want: Duration(time.Second),
		},
		{
			name:    "unparsable string",
			yaml:    `value: soon`,
			wantErr: "invalid duration",
		},
		{
			name:    "wrong type",
			yaml:    `value: [1, 2]`,
			wantErr: "invalid duration value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Value Duration `yaml:"value"`
			}
			err := yaml.Unmarshal([]byte(tt.yaml), &out)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Value)
		})
	}
}

func TestDurationMarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(struct {
		Value Duration `yaml:"value"`
	}{Value: Duration(5 * time.Minute)})

	require.NoError(t, err)
	assert.Equal(t, "value: 5m0s\n", string(out))
}

func TestDurationStd(t *testing.T) {
	d := Duration(30 * time.Second)
	assert.Equal(t, 30*time.Second, d.Std())
	assert.Equal(t, "30s", d.String())
}
