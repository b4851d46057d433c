package app

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/sm8ta/webike_registry/internal/adapter/events"
	"github.com/sm8ta/webike_registry/internal/adapter/handler/http"
	"github.com/sm8ta/webike_registry/internal/adapter/logger"
	"github.com/sm8ta/webike_registry/internal/adapter/postgres"
	"github.com/sm8ta/webike_registry/internal/adapter/prometheus"
	"github.com/sm8ta/webike_registry/internal/adapter/redis"
	"github.com/sm8ta/webike_registry/internal/adapter/storage"
	"github.com/sm8ta/webike_registry/internal/config"
	"github.com/sm8ta/webike_registry/internal/core/ports"
	"github.com/sm8ta/webike_registry/internal/core/services"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	promclient "github.com/prometheus/client_golang/prometheus"
	redisClient "github.com/redis/go-redis/v9"
)

const readHeaderTimeout = 10 * time.Second

type App struct {
	Config      *config.Container
	Logger      *logger.LoggerAdapter
	DB          *sqlx.DB
	RedisClient *redisClient.Client
	NATSConn    *nats.Conn
	Events      *events.Dispatcher
	HTTPRouter  *http.Router
	server      *nethttp.Server
}

func New(ctx context.Context, cfg *config.Container) (*App, error) {
	// Set logger
	loggerAdapter := logger.NewLoggerAdapter(logger.ConfigForEnv(cfg.App.Env, cfg.Log.Level, cfg.Log.Format))
	loggerAdapter.Info("Starting the application", map[string]interface{}{
		"app": cfg.App.Name,
		"env": cfg.App.Env,
	})

	a := &App{
		Config: cfg,
		Logger: loggerAdapter,
	}

	// Set redis
	a.RedisClient = redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := a.RedisClient.Ping(ctx).Result(); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	cacheAdapter := redis.NewRedisAdapter(a.RedisClient)

	// Connect DB and migrate
	db, err := postgres.Open(postgres.Options{
		Host:          cfg.DB.Host,
		Port:          cfg.DB.Port,
		User:          cfg.DB.User,
		Password:      cfg.DB.Password,
		Name:          cfg.DB.Name,
		SSLMode:       cfg.DB.SSLMode,
		MigrationsDir: cfg.DB.MigrationsDir,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.DB = db

	// Object storage
	objectStorage, err := newObjectStorage(cfg.Storage, loggerAdapter)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}

	// Events
	var sink events.Sink
	if cfg.NATS.URL != "" {
		conn, err := events.ConnectNATS(cfg.NATS.URL, cfg.App.Name)
		if err != nil {
			a.close()
			return nil, err
		}
		a.NATSConn = conn
		sink = events.NewNATSSink(conn, cfg.NATS.SubjectPrefix)
	} else {
		loggerAdapter.Warn("NATS_URL not set, domain events are only logged", nil)
		sink = events.NewLogSink(loggerAdapter)
	}
	a.Events = events.NewDispatcher(sink, loggerAdapter, cfg.NATS.QueueSize)

	// Validate
	validate := validator.New()

	// Observability
	metrics := prometheus.NewPrometheusAdapter(promclient.DefaultRegisterer)

	// Repositories
	bikeRepo := postgres.NewBikeRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	transferRepo := postgres.NewTransferRepository(db)
	rideRepo := postgres.NewRideRepository(db)
	contentRepo := postgres.NewContentRepository(db)

	// Services
	bikeService := services.NewBikeService(bikeRepo, profileRepo, loggerAdapter, validate, cacheAdapter, a.Events, objectStorage)
	lifecycleService := services.NewLifecycleService(bikeRepo, loggerAdapter, validate, cacheAdapter, a.Events)
	transferService := services.NewTransferService(transferRepo, bikeRepo, loggerAdapter, validate, cacheAdapter, a.Events)
	profileService := services.NewProfileService(profileRepo, bikeService, loggerAdapter, validate, cacheAdapter, a.Events)
	analyticsService := services.NewAnalyticsService(profileRepo, bikeRepo, loggerAdapter)
	rideService := services.NewRideService(rideRepo, loggerAdapter, validate)
	contentService := services.NewContentService(contentRepo, objectStorage, loggerAdapter, validate)

	// Token verification
	tokenService, err := newTokenService(ctx, cfg, loggerAdapter)
	if err != nil {
		a.close()
		return nil, err
	}

	// HTTP Handlers
	bikeHandler := http.NewBikeHandler(bikeService, lifecycleService, loggerAdapter, metrics)
	transferHandler := http.NewTransferHandler(transferService, loggerAdapter, metrics)
	profileHandler := http.NewProfileHandler(profileService, loggerAdapter, metrics)
	adminHandler := http.NewAdminHandler(profileService, loggerAdapter, metrics)
	rideHandler := http.NewRideHandler(rideService, loggerAdapter, metrics)
	contentHandler := http.NewContentHandler(contentService, loggerAdapter, metrics)
	analyticsHandler := http.NewAnalyticsHandler(analyticsService, loggerAdapter, metrics)

	// Init HTTP router
	router, err := http.NewRouter(
		cfg.HTTP,
		loggerAdapter.Zap(),
		tokenService,
		bikeHandler,
		transferHandler,
		profileHandler,
		adminHandler,
		rideHandler,
		contentHandler,
		analyticsHandler,
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}
	a.HTTPRouter = router

	a.server = &nethttp.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router.Engine(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return a, nil
}

func newObjectStorage(cfg *config.Storage, log ports.LoggerPort) (ports.ObjectStorage, error) {
	if cfg.Bucket == "" {
		log.Warn("STORAGE_BUCKET not set, using stub object storage", map[string]interface{}{
			"public_base_url": cfg.PublicBaseURL,
		})
		return storage.NewStubObjectStorage(cfg.PublicBaseURL), nil
	}
	s3Storage, err := storage.NewS3ObjectStorage(cfg)
	if err != nil {
		return nil, err
	}
	return s3Storage, nil
}

func newTokenService(ctx context.Context, cfg *config.Container, log ports.LoggerPort) (ports.TokenService, error) {
	if cfg.OIDC.IssuerURL != "" {
		log.Info("Verifying tokens with OIDC issuer", map[string]interface{}{
			"issuer": cfg.OIDC.IssuerURL,
		})
		oidcService, err := http.NewOIDCTokenService(ctx, cfg.OIDC, log)
		if err != nil {
			return nil, err
		}
		return oidcService, nil
	}
	if cfg.Token.Secret == "" {
		return nil, errors.New("TOKEN_SECRET or OIDC_ISSUER_URL must be set")
	}
	return http.NewJWTTokenService(cfg.Token.Secret, log), nil
}

// Run blocks until the HTTP server stops.
func (a *App) Run() error {
	a.Logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": a.server.Addr,
	})

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		a.Logger.Error("HTTP server error", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// Stops all services
func (a *App) Stop(ctx context.Context) error {
	a.Logger.Info("Shutting down gracefully...", nil)

	var shutdownErr error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", map[string]interface{}{
				"error": err.Error(),
			})
			shutdownErr = err
		}
	}

	if a.Events != nil {
		if err := a.Events.Close(ctx); err != nil {
			a.Logger.Error("Event dispatcher close error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	a.close()

	a.Logger.Info("Application stopped successfully", nil)
	_ = a.Logger.Sync()
	return shutdownErr
}

func (a *App) close() {
	if a.NATSConn != nil {
		if err := a.NATSConn.Drain(); err != nil {
			a.Logger.Error("NATS drain error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("Database close error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Redis close error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
