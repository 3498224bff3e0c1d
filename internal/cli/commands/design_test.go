package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kentyler/accessclone-sub006/pkg/design"
)

func TestNewDesignCommand(t *testing.T) {
	cmd := NewDesignCommand(staticConfig(nil))

	assert.Equal(t, "design [file.sql ...]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
}

func TestDesignCommandSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "orders.sql",
		`SELECT o.OrderID, o.Total FROM orders o WHERE o.Total > 100`)

	output, err := runCommand(t, NewDesignCommand(staticConfig(nil)), path)
	require.NoError(t, err)

	var m design.Model
	require.NoError(t, json.Unmarshal([]byte(output), &m))
	assert.True(t, m.Parseable)
	require.Len(t, m.Tables, 1)
	assert.Equal(t, "orders", m.Tables[0].Name)
	assert.Len(t, m.Fields, 2)
	assert.Equal(t, "o.Total > 100", m.Where)
}

func TestDesignCommandMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.sql", `SELECT id FROM items`)
	opaque := writeFile(t, dir, "opaque.sql",
		`WITH recent AS (SELECT * FROM orders) SELECT * FROM recent`)

	output, err := runCommand(t, NewDesignCommand(staticConfig(nil)), good, opaque)
	require.NoError(t, err)

	var models map[string]*design.Model
	require.NoError(t, json.Unmarshal([]byte(output), &models))
	require.Len(t, models, 2)
	assert.True(t, models[good].Parseable)
	require.NotNil(t, models[opaque])
	assert.False(t, models[opaque].Parseable)
	assert.Contains(t, models[opaque].SQL, "WITH recent")
}

func TestDesignCommandMissingFile(t *testing.T) {
	_, err := runCommand(t, NewDesignCommand(staticConfig(nil)), "does-not-exist.sql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}
