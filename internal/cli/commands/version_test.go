package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "release version", version: "0.1.0", want: "accessclone v0.1.0"},
		{name: "dev version", version: "dev", want: "accessclone vdev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := runCommand(t, NewVersionCommand(tt.version))
			require.NoError(t, err)
			assert.Contains(t, output, tt.want)
			assert.Contains(t, output, "Access-to-Postgres query compiler")
		})
	}
}

func TestVersionCommandMetadata(t *testing.T) {
	cmd := NewVersionCommand("test")
	assert.Equal(t, "version", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}
