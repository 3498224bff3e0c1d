package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kentyler/accessclone-sub006/pkg/translate"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDescriptorsSingleAndList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_single.yaml", `name: Order Totals
kind: 0
sql: SELECT SUM(Total) FROM Orders
`)
	writeFile(t, dir, "a_list.yml", `queries:
  - name: Customer List
    sql: SELECT Name FROM Customers
  - name: Archive Orders
    kind: 80
    sql: SELECT * INTO OrderArchive FROM Orders
`)
	writeFile(t, dir, "notes.txt", "not a descriptor")

	descriptors, err := loadDescriptors(dir)
	require.NoError(t, err)
	require.Len(t, descriptors, 3)

	// Files are read in name order, list entries in document order.
	assert.Equal(t, "Customer List", descriptors[0].Name)
	assert.Equal(t, "Archive Orders", descriptors[1].Name)
	assert.Equal(t, translate.KindMakeTable, descriptors[1].Kind)
	assert.Equal(t, "Order Totals", descriptors[2].Name)
}

func TestLoadDescriptorsDeclaredParameters(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.yaml", `name: Orders By Day
sql: SELECT * FROM Orders WHERE OrderDate >= [Start Date]
parameters:
  - name: "[Start Date]"
    type: DateTime
`)

	descriptors, err := loadDescriptors(dir)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	require.Len(t, descriptors[0].Parameters, 1)
	assert.Equal(t, "[Start Date]", descriptors[0].Parameters[0].Name)
	assert.Equal(t, "DateTime", descriptors[0].Parameters[0].LegacyType)
}

func TestLoadDescriptorsMissingName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "anon.yaml", "sql: SELECT 1\n")

	_, err := loadDescriptors(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "descriptor has no name")
}

func TestLoadDescriptorsMissingDir(t *testing.T) {
	_, err := loadDescriptors(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read queries directory")
}

func TestLoadColumnTypes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "types.yaml", `Orders.Total: numeric(19,4)
orders.order_id: bigint
`)

	types, err := loadColumnTypes(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"orders.total":    "numeric(19,4)",
		"orders.order_id": "bigint",
	}, types)
}

func TestLoadColumnTypesEmptyPath(t *testing.T) {
	types, err := loadColumnTypes("")
	require.NoError(t, err)
	assert.Nil(t, types)
}
