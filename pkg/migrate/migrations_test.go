package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/cookerz-backend/pkg/migrate"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one %s migration", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestOrdersMigrationEnforcesTotal(t *testing.T) {
	content := readMigration(t, "create_orders")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CONSTRAINT orders_total_check CHECK (total = subtotal + delivery_fee - discount)",
		"CREATE TABLE IF NOT EXISTS order_items",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"DROP TABLE IF EXISTS orders",
	} {
		require.Contains(t, content, sub)
	}
}

func TestSettingsMigrationIsSingleton(t *testing.T) {
	content := readMigration(t, "create_platform_settings")
	require.Contains(t, content, "CONSTRAINT platform_settings_singleton CHECK (id = 1)")
	require.Contains(t, content, "INSERT INTO platform_settings (id) VALUES (1)")
}

func TestReviewsMigrationOnePerOrder(t *testing.T) {
	content := readMigration(t, "create_reviews")
	require.Contains(t, content, "CONSTRAINT reviews_order_id_key UNIQUE (order_id)")
	require.Contains(t, content, "CHECK (rating BETWEEN 1 AND 5)")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Cooker Tags!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_cooker_tags.sql"))
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.Error(t, migrate.ValidateDir(dir), "empty directory")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestEmbeddedMatchesDisk(t *testing.T) {
	require.NoError(t, migrate.ValidateFS(migrate.Embedded(), "migrations"))

	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	embedded, err := fs.Glob(migrate.Embedded(), "migrations/*.sql")
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))
}

func TestValidateDirRejectsMisorderedSections(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x ();\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20250101000000_x.sql"), []byte(body), 0o644))
	require.ErrorContains(t, migrate.ValidateDir(dir), "Down before Up")

	body = "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20250101000000_x.sql"), []byte(body), 0o644))
	require.ErrorContains(t, migrate.ValidateDir(dir), "StatementBegin")
}
