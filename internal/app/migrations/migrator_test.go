package migrations

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/engnotes/internal/db"
)

func TestMigrator_UpIsIdempotent(t *testing.T) {
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()
	m := NewMigrator(database, zerolog.Nop())

	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Up(ctx))

	var versions int
	require.NoError(t, database.SQL.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 2, versions)

	for _, table := range []string{"degrees", "semesters", "subjects", "notes", "users"} {
		var n int
		err := database.SQL.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s", table)
	}
}

func TestSplitStatements(t *testing.T) {
	content := `
-- header comment
CREATE TABLE a (id TEXT);

-- only a comment;
CREATE INDEX idx_a ON a (id);
`
	stmts := splitStatements(content)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Contains(t, stmts[1], "CREATE INDEX idx_a")
}

func TestSplitStatements_SemicolonInComment(t *testing.T) {
	content := `
CREATE TABLE a (id TEXT);

-- ordered lists; kept in sync by the application
CREATE TABLE b (
    -- parent; indented comment
    id TEXT
);
`
	stmts := splitStatements(content)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (id TEXT)", stmts[0])
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE b ("), stmts[1])
	assert.NotContains(t, stmts[1], "kept in sync")
}

func TestSplitStatements_ShippedSchemas(t *testing.T) {
	for _, dir := range []string{"sql/sqlite", "sql/postgres"} {
		entries, err := migrationFiles.ReadDir(dir)
		require.NoError(t, err)
		for _, entry := range entries {
			content, err := migrationFiles.ReadFile(dir + "/" + entry.Name())
			require.NoError(t, err)
			for _, stmt := range splitStatements(string(content)) {
				assert.True(t, strings.HasPrefix(stmt, "CREATE "), "%s/%s: %q", dir, entry.Name(), stmt)
			}
		}
	}
}
