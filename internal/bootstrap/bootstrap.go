package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/engnotes/internal/app/controllers"
	appMigrations "github.com/yigit/engnotes/internal/app/migrations"
	appRepos "github.com/yigit/engnotes/internal/app/repositories"
	appRoutes "github.com/yigit/engnotes/internal/app/routes"
	appServices "github.com/yigit/engnotes/internal/app/services"
	"github.com/yigit/engnotes/internal/config"
	"github.com/yigit/engnotes/internal/db"
	appMiddleware "github.com/yigit/engnotes/internal/middleware"
	pkgAuth "github.com/yigit/engnotes/internal/pkg/auth"
	"github.com/yigit/engnotes/internal/pkg/cache"
	"github.com/yigit/engnotes/internal/pkg/filestorage"
	"github.com/yigit/engnotes/internal/pkg/helpers"
	"github.com/yigit/engnotes/internal/pkg/logger"
	"github.com/yigit/engnotes/internal/pkg/metrics"
	"github.com/yigit/engnotes/internal/seed"
)

// DefaultConfigPath is used when no path is given.
const DefaultConfigPath = "configs/config.yaml"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config           *config.Config
	Database         *db.Database
	Repos            *appRepos.Repositories
	FileStorage      *filestorage.LocalStorage
	Cache            cache.Cache
	Metrics          *metrics.Metrics
	JWTService       *pkgAuth.JWTService
	CascadeService   *appServices.CascadeService
	CatalogService   *appServices.CatalogService
	ReconcileService *appServices.ReconcileService
	AuthService      *appServices.AuthService

	AuthController    *appControllers.AuthController
	CatalogController *appControllers.CatalogController
	AdminController   *appControllers.AdminController
	AuthMiddleware    *appMiddleware.AuthMiddleware
	Logger            zerolog.Logger
}

// Close releases the cache connection and the database.
func (d *Dependencies) Close() error {
	if rc, ok := d.Cache.(*cache.RedisCache); ok {
		if err := rc.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
	if d.Database != nil {
		return d.Database.Close()
	}
	return nil
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.Database, error) {
	lgr.Info().Str("driver", cfg.Database.Driver).Msg("Establishing database connection...")
	database, err := db.Open(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		database.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(database, lgr).Up(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return database, nil
}

// SetupCache connects to Redis when an address is configured. A Redis that
// cannot be reached disables caching instead of failing startup.
func SetupCache(cfg *config.Config, lgr zerolog.Logger) cache.Cache {
	if cfg.Redis.Addr == "" {
		lgr.Info().Msg("Redis not configured, catalog cache disabled")
		return cache.NopCache{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx, &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, helpers.ParseDuration(cfg.Redis.TTL, 5*time.Minute), lgr)
	if err != nil {
		lgr.Warn().Err(err).Msg("Redis unavailable, catalog cache disabled")
		return cache.NopCache{}
	}
	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Catalog cache connected")
	return rc
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.Database, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Database: database, Logger: lgr}

	deps.Repos = appRepos.NewRepositories(database)

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, cfg.Server.PublicPath)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.Cache = SetupCache(cfg, lgr)
	deps.Metrics = metrics.New()

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.CascadeService = appServices.NewCascadeService(
		deps.Repos.CatalogRepository,
		deps.FileStorage,
		deps.Metrics,
		lgr.With().Str("component", "cascade").Logger(),
	)
	deps.CatalogService = appServices.NewCatalogService(
		deps.Repos.CatalogRepository,
		deps.FileStorage,
		filestorage.NewPDFValidator(cfg.Upload.MaxSize),
		deps.CascadeService,
		deps.Cache,
		lgr.With().Str("component", "catalog").Logger(),
	)
	deps.ReconcileService = appServices.NewReconcileService(
		deps.Repos.CatalogRepository,
		deps.FileStorage,
		deps.CascadeService,
		deps.Cache,
		lgr.With().Str("component", "reconcile").Logger(),
	).WithBlobGracePeriod(helpers.ParseDuration(cfg.Upload.OrphanGrace, appServices.DefaultBlobGracePeriod))
	deps.AuthService = appServices.NewAuthService(deps.Repos.UserRepository, deps.JWTService, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.AuthService, cfg.JWT.CookieName, cfg.Server.LoginPath, lgr)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, appControllers.CookieConfig{
		Name:   cfg.JWT.CookieName,
		Secure: cfg.JWT.CookieSecure,
	}, lgr)
	deps.CatalogController = appControllers.NewCatalogController(deps.CatalogService, lgr)
	deps.AdminController = appControllers.NewAdminController(deps.CatalogService, deps.ReconcileService, cfg.Upload.FieldName, lgr)

	return deps, nil
}

// SeedDefaults creates the configured admin and the optional demo catalog.
// Failures are logged and never stop the server.
func SeedDefaults(ctx context.Context, deps *Dependencies) {
	if err := seed.CreateDefaultData(ctx, deps.Config, deps.AuthService, deps.CatalogService, deps.Logger); err != nil {
		deps.Logger.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr, deps.Metrics))
	// multipart bodies above this spill to temp files
	router.MaxMultipartMemory = 8 << 20

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.CatalogController,
		deps.AdminController,
		deps.AuthMiddleware,
	)

	router.Static(cfg.Server.PublicPath, cfg.Server.StoragePath)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	router.GET("/ping", func(c *gin.Context) {
		if err := deps.Database.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "database unavailable", "status": "error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
