package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add lot recall flag", "add_lot_recall_flag"},
		{"Add-Lot-Index", "add_lot_index"},
		{"ADD_SUPPLIER_TABLE", "add_supplier_table"},
		{"add__batch__notes", "add_batch_notes"},
		{"Batch Costs 2025", "batch_costs_2025"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersSequentially(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add lot recall flag", "Track recalled lots")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_lot_recall_flag.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_add_lot_recall_flag.down.sql"), first.DownPath)

	second, err := CreateMigration(dir, "index supplier", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add lot recall flag")
	assert.Contains(t, string(up), "Track recalled lots")
	assert.Contains(t, string(up), "Write your UP migration SQL here")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")
}

func TestCreateMigration_ContinuesAfterExistingVersions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000001_create_batch_inventory.up.sql", "000007_add_index.up.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	mf, err := CreateMigration(dir, "next", "")

	require.NoError(t, err)
	assert.Equal(t, "000008", mf.Version)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	t.Run("missing directory yields empty list", func(t *testing.T) {
		names, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("returns up migrations in version order", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"000002_b.up.sql", "000002_b.down.sql",
			"000001_a.up.sql", "000001_a.down.sql",
			"README.md",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
		}
		require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0o755))

		names, err := ListMigrations(dir)

		require.NoError(t, err)
		assert.Equal(t, []string{"000001_a", "000002_b"}, names)
	})
}

func TestParseVersion(t *testing.T) {
	v, ok := parseVersion("000042_add_thing")
	assert.True(t, ok)
	assert.Equal(t, uint64(42), v)

	_, ok = parseVersion("nounderscore")
	assert.False(t, ok)

	_, ok = parseVersion("abc_def")
	assert.False(t, ok)
}
