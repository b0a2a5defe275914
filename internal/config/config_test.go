package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func withoutDotEnv(t *testing.T) {
	t.Helper()
	prev := DotEnvFile
	DotEnvFile = ""
	t.Cleanup(func() { DotEnvFile = prev })
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	withoutDotEnv(t)
	path := writeConfig(t, `
server:
  port: "9090"
database:
  driver: sqlite
  path: /tmp/notes.db
jwt:
  secret: file-secret
redis:
  addr: localhost:6379
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/notes.db", cfg.Database.Path)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	// untouched defaults
	assert.Equal(t, "public/uploads/pdfs", cfg.Server.StoragePath)
	assert.Equal(t, "/uploads/pdfs", cfg.Server.PublicPath)
	assert.Equal(t, "token", cfg.JWT.CookieName)
	assert.Equal(t, "pdfFile", cfg.Upload.FieldName)
	assert.EqualValues(t, 10<<20, cfg.Upload.MaxSize)
	assert.Equal(t, "10m", cfg.Upload.OrphanGrace)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	withoutDotEnv(t)
	path := writeConfig(t, `
database:
  driver: sqlite
jwt:
  secret: file-secret
`)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("SERVER_MODE", "production")
	t.Setenv("UPLOAD_MAX_SIZE", "2048")
	t.Setenv("JWT_COOKIE_SECURE", "true")
	t.Setenv("SEED_DEMO_CATALOG", "true")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.True(t, cfg.IsProduction())
	assert.EqualValues(t, 2048, cfg.Upload.MaxSize)
	assert.True(t, cfg.JWT.CookieSecure)
	assert.True(t, cfg.Seed.DemoCatalog)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ADMIN_USERNAME=dotenv-admin\n"), 0o600))

	prev := DotEnvFile
	DotEnvFile = envFile
	t.Cleanup(func() { DotEnvFile = prev })
	// t.Setenv restores the variable after godotenv sets it
	t.Setenv("ADMIN_USERNAME", "")
	os.Unsetenv("ADMIN_USERNAME")

	path := writeConfig(t, "database:\n  driver: sqlite\njwt:\n  secret: s\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-admin", cfg.Admin.Username)
}

func TestLoadConfig_Invalid(t *testing.T) {
	withoutDotEnv(t)

	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "missing secret", content: "database:\n  driver: sqlite\n"},
		{name: "unknown driver", content: "database:\n  driver: mysql\njwt:\n  secret: s\n"},
		{name: "bad expiration", content: "database:\n  driver: sqlite\njwt:\n  secret: s\n  access_token_expiration: soon\n"},
		{name: "relative public path", content: "server:\n  public_path: uploads\ndatabase:\n  driver: sqlite\njwt:\n  secret: s\n"},
		{name: "bad env int", content: "database:\n  driver: sqlite\njwt:\n  secret: s\n", env: map[string]string{"UPLOAD_MAX_SIZE": "big"}},
		{name: "malformed yaml", content: "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			os.Unsetenv("JWT_SECRET")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestGetPostgresConnectionString(t *testing.T) {
	cfg := &Config{}
	cfg.Database.User = "u"
	cfg.Database.Password = "p"
	cfg.Database.Host = "db"
	cfg.Database.Port = "5432"
	cfg.Database.DBName = "engnotes"

	assert.Equal(t, "postgres://u:p@db:5432/engnotes?sslmode=disable", cfg.GetPostgresConnectionString())
}
