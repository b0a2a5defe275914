package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yigit/engnotes/internal/config"
	pkgAuth "github.com/yigit/engnotes/internal/pkg/auth"
	"github.com/yigit/engnotes/internal/pkg/cache"
	"github.com/yigit/engnotes/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Mode = "development"
	cfg.Server.StoragePath = t.TempDir()
	cfg.Server.PublicPath = "/uploads/pdfs"
	cfg.Server.LoginPath = "/login"
	cfg.Database.Driver = "sqlite"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessTokenExpiration = "1h"
	cfg.JWT.CookieName = "token"
	cfg.Upload.MaxSize = 1 << 20
	cfg.Upload.FieldName = "pdfFile"
	cfg.Admin.Username = "admin"
	cfg.Admin.Password = "adminpass1"
	cfg.Seed.DemoCatalog = true
	return cfg
}

func TestSetupCache_DisabledWithoutAddr(t *testing.T) {
	cfg := testConfig(t)
	assert.IsType(t, cache.NopCache{}, SetupCache(cfg, zerolog.Nop()))
}

func TestBuildDependenciesAndRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cost := pkgAuth.BcryptCost
	pkgAuth.BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { pkgAuth.BcryptCost = cost })

	cfg := testConfig(t)
	database := testutil.NewSQLiteDB(t)

	deps, err := BuildDependencies(cfg, database, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	SeedDefaults(ctx, deps)
	// seeding twice must not duplicate anything
	SeedDefaults(ctx, deps)

	degrees, err := deps.CatalogService.ListDegrees(ctx)
	require.NoError(t, err)
	assert.Len(t, degrees, 2)

	_, err = deps.AuthService.Login(ctx, "admin", "adminpass1")
	require.NoError(t, err)

	router := SetupRouter(cfg, deps, zerolog.Nop())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/degrees", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `engnotes_http_requests_total{method="GET",route="/ping",status="200"} 1`)
}
