package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appAuth "github.com/yigit/attendance/internal/app/auth"
	appControllers "github.com/yigit/attendance/internal/app/controllers"
	appMigrations "github.com/yigit/attendance/internal/app/migrations"
	"github.com/yigit/attendance/internal/app/models"
	appRepos "github.com/yigit/attendance/internal/app/repositories"
	appRoutes "github.com/yigit/attendance/internal/app/routes"
	appServices "github.com/yigit/attendance/internal/app/services"
	"github.com/yigit/attendance/internal/config"
	"github.com/yigit/attendance/internal/db"
	appMiddleware "github.com/yigit/attendance/internal/middleware"
	pkgAuth "github.com/yigit/attendance/internal/pkg/auth"
	"github.com/yigit/attendance/internal/pkg/filestorage"
	"github.com/yigit/attendance/internal/pkg/helpers"
	"github.com/yigit/attendance/internal/pkg/idgen"
	"github.com/yigit/attendance/internal/pkg/logger"
	"github.com/yigit/attendance/internal/pkg/parser"
	"github.com/yigit/attendance/internal/seed"
)

// Storage is the configured blob backend
type Storage struct {
	Blobs filestorage.BlobStore
	// Local is set when blobs live on disk and are served by the API.
	Local *filestorage.LocalStorage
	Redis *redis.Client
}

// Close releases the redis connection, if any.
func (s *Storage) Close() error {
	if s.Redis != nil {
		return s.Redis.Close()
	}
	return nil
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos          *appRepos.Repositories
	JWTService     *pkgAuth.JWTService
	AuthzService   *appAuth.AuthorizationService
	Parser         parser.Client
	AuthMiddleware *appMiddleware.AuthMiddleware

	AuthService         appServices.AuthService
	UniversityService   appServices.UniversityService
	ProgramService      appServices.ProgramService
	BranchService       appServices.BranchService
	YearService         appServices.YearService
	SectionFilesService appServices.SectionFilesService
	SectionService      appServices.SectionService
	StructureService    appServices.StructureService

	Controllers appRoutes.Controllers
	Pool        *pgxpool.Pool
	Logger      zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase connects, applies the embedded migrations and seeds an
// empty database.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	pool := database.Pool
	lgr.Info().Msg("Database connection successfully established.")

	migrator, closeMigrator := appMigrations.NewMigratorFromPool(pool, lgr)
	defer closeMigrator()
	if err := migrator.Up(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		pool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	admin := seed.Admin{Email: cfg.Seed.AdminEmail, Password: cfg.Seed.AdminPassword, FullName: cfg.Seed.AdminName}
	if err := seed.CreateDefaultData(ctx, appRepos.NewUserRepository(pool), idgen.UUIDGenerator{}, admin, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return pool, nil
}

// SetupStorage builds the blob store named by the config, wraps it with the
// redis signed-URL cache when enabled and makes sure both buckets exist.
func SetupStorage(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Storage, error) {
	storage := &Storage{}

	switch strings.ToLower(cfg.Storage.Driver) {
	case config.StorageDriverS3:
		s3Store, err := filestorage.NewS3Storage(ctx, filestorage.S3Config{
			Endpoint:     cfg.Storage.Endpoint,
			Region:       cfg.Storage.Region,
			AccessKey:    cfg.Storage.AccessKey,
			SecretKey:    cfg.Storage.SecretKey,
			UsePathStyle: cfg.Storage.UsePathStyle,
		}, lgr)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		storage.Blobs = s3Store
	default:
		baseURL := cfg.Storage.PublicBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:" + cfg.Server.Port + "/blobs"
		}
		local, err := filestorage.NewLocalStorage(cfg.Storage.LocalPath, baseURL, cfg.JWT.Secret, lgr)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		storage.Local = local
		storage.Blobs = local
	}

	for _, t := range models.FileTypes {
		if err := storage.Blobs.EnsureBucket(ctx, t.Bucket()); err != nil {
			return nil, fmt.Errorf("failed to ensure bucket %s: %w", t.Bucket(), err)
		}
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			lgr.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, signed URLs will not be cached")
			_ = rdb.Close()
		} else {
			storage.Redis = rdb
			storage.Blobs = filestorage.NewCachedStorage(storage.Blobs, rdb, cfg.Redis.KeyPrefix, lgr)
		}
	}

	lgr.Info().Str("driver", cfg.Storage.Driver).Bool("cache", storage.Redis != nil).Msg("Blob storage ready")
	return storage, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, pool *pgxpool.Pool, storage *Storage, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr, Pool: pool}
	ids := idgen.UUIDGenerator{}

	deps.Repos = appRepos.NewRepositories(pool)
	repos := deps.Repos

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})
	deps.AuthzService = appAuth.NewAuthorizationService(repos.UserRepository, repos.StructureRepository)
	deps.Parser = parser.NewHTTPClient(cfg.Parser.BaseURL, cfg.Parser.Timeout, lgr)
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.SectionFilesService = appServices.NewSectionFilesService(
		repos.SectionRepository,
		repos.FileRepository,
		storage.Blobs,
		ids,
		appServices.SectionFilesOptions{
			MaxFileSize:  cfg.Storage.MaxFileSize,
			SignedURLTTL: cfg.Storage.SignedURLTTL,
		},
		logger.Component("section-files"),
	)
	files := deps.SectionFilesService

	deps.AuthService = appServices.NewAuthService(repos.UserRepository, repos.TokenRepository, deps.JWTService, ids, lgr)
	deps.UniversityService = appServices.NewUniversityService(pool, repos.UniversityRepository, repos.UserRepository, deps.AuthzService, files, ids, lgr)
	deps.ProgramService = appServices.NewProgramService(repos.ProgramRepository, deps.AuthzService, files, ids, lgr)
	deps.BranchService = appServices.NewBranchService(repos.BranchRepository, deps.AuthzService, files, ids, lgr)
	deps.YearService = appServices.NewYearService(repos.YearRepository, repos.BranchRepository, repos.ProgramRepository, deps.AuthzService, files, ids, lgr)
	deps.SectionService = appServices.NewSectionService(repos.SectionRepository, files, deps.Parser, deps.AuthzService, lgr)
	deps.StructureService = appServices.NewStructureService(repos.StructureRepository, deps.AuthzService)

	deps.Controllers = appRoutes.Controllers{
		Auth:       appControllers.NewAuthController(deps.AuthService, cfg.Server.SecureCookies, lgr),
		University: appControllers.NewUniversityController(deps.UniversityService, lgr),
		Program:    appControllers.NewProgramController(deps.ProgramService),
		Branch:     appControllers.NewBranchController(deps.BranchService),
		Year:       appControllers.NewYearController(deps.YearService),
		Section:    appControllers.NewSectionController(deps.SectionService, lgr),
		Structure:  appControllers.NewStructureController(deps.StructureService),
		Pages:      appControllers.NewPageController(),
	}
	if storage.Local != nil {
		deps.Controllers.Blob = appControllers.NewBlobController(storage.Local)
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))
	router.MaxMultipartMemory = cfg.Storage.MaxFileSize
	if len(cfg.Server.TrustedProxies) > 0 {
		if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
			lgr.Warn().Err(err).Msg("Invalid trusted proxies, ignoring")
		}
	}

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})
	router.GET("/health", HealthHandler(deps.Pool, deps.Parser))

	return router
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports database and parser reachability. Only the database
// decides the status code; the parser is optional for most operations.
func HealthHandler(database Pinger, parserClient parser.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		checks := gin.H{"database": "ok", "parser": "ok"}
		if err := database.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			status, code = "unavailable", http.StatusServiceUnavailable
		}
		if parserClient != nil {
			if err := parserClient.Health(ctx); err != nil {
				checks["parser"] = err.Error()
			}
		}
		c.JSON(code, gin.H{"status": status, "checks": checks})
	}
}
