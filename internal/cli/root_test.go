package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kentyler/accessclone-sub006/internal/cli/config"
)

func TestNewRootCmdMetadata(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "accessclone", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	flags := []string{"config", "queries-dir", "out-dir", "schema", "column-types", "workers", "verbose"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	subcommands := map[string]bool{}
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}
	for _, name := range []string{"version", "translate", "design", "stubs"} {
		assert.True(t, subcommands[name], "subcommand %q should be registered", name)
	}
}

// The root command compiles a descriptor end to end: config loads from the
// working directory, flags override it, and the translate subcommand writes
// DDL into the configured output directory.
func TestRootCmdTranslateEndToEnd(t *testing.T) {
	dir := t.TempDir()
	chdirT(t, dir)
	config.ResetConfig()

	queries := filepath.Join(dir, "defs")
	require.NoError(t, os.Mkdir(queries, 0o755))
	descriptor := `name: Customer List
sql: SELECT [First Name] & ' ' & [Last Name] AS FullName FROM Customers
`
	require.NoError(t, os.WriteFile(filepath.Join(queries, "customers.yaml"), []byte(descriptor), 0o644))
	require.NoError(t, os.WriteFile("accessclone.yaml", []byte("queries_dir: defs\nschema: legacy\n"), 0o644))

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"translate", "--schema", "app"})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(filepath.Join(dir, "out", "customer_list.sql"))
	require.NoError(t, err)
	// The flag wins over the schema in accessclone.yaml.
	assert.Contains(t, string(data), `CREATE OR REPLACE VIEW app."customer_list" AS`)
}

func TestRootCmdRejectsBadConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdirT(t, dir)
	config.ResetConfig()

	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema: [unclosed\n"), 0o644))

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config", path, "version"})
	require.Error(t, cmd.Execute())
}

// chdirT changes to dir for the duration of the test, restoring the
// original working directory on cleanup (stand-in for t.Chdir, Go 1.24+).
func chdirT(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Error(err)
		}
	})
}
