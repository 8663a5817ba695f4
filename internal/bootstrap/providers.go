package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/cache"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/config"
	appgrpc "gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/grpc"
	apphttp "gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/http"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/logger"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/middleware"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/nominatim"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/overpass"
	appredis "gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/redis"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/upstream"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/application"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily for config initialization.
// It returns the logger, a cleanup function (for syncing), and an error if creation fails.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	logger, err := zap.NewProduction()
	if err != nil {
		logger, err = zap.NewDevelopment()
		if err != nil {
			logger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger (production and development failed, falling back to example): %v\n", err)
		}
	}

	cleanup := func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return logger, cleanup, nil
}

// App struct is defined here for Wire to use.
type App struct {
	configProvider config.Provider
	logger         domain.Logger
	httpServer     *http.Server
	grpcServer     *appgrpc.Server
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	server *http.Server,
	grpcSrv *appgrpc.Server,
) (*App, func(), error) {
	app := &App{
		configProvider: cfgProvider,
		logger:         appLogger,
		httpServer:     server,
		grpcServer:     grpcSrv,
	}

	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
		if app.grpcServer != nil {
			app.grpcServer.GracefulStop()
		}
	}
	return app, cleanup, nil
}

// ConfigProvider provides the application configuration.
// appCtx bounds the lifetime of the hot-reload goroutines.
func ConfigProvider(appCtx context.Context, logger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, logger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	return logger.NewZapAdapter(cfgProvider, cfgProvider.Get().App.ServiceName)
}

// RedisClientProvider connects to Redis when cache.backend is "redis".
// With the memory backend it returns a nil client and a no-op cleanup.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	appCfg := cfgProvider.Get()
	if appCfg.Cache.Backend != config.CacheBackendRedis {
		return nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     appCfg.Redis.Address,
		Password: appCfg.Redis.Password,
		DB:       appCfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		appLogger.Error(context.Background(), "Failed to connect to Redis", "error", err.Error(), "address", appCfg.Redis.Address)
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", appCfg.Redis.Address, err)
	}
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	appLogger.Info(context.Background(), "Successfully connected to Redis", "address", appCfg.Redis.Address)
	return client, cleanup, nil
}

// CacheStoreProvider selects the cache backend. The memory store's sweeper
// runs until appCtx is cancelled.
func CacheStoreProvider(appCtx context.Context, cfgProvider config.Provider, appLogger domain.Logger, redisClient *redis.Client) domain.CacheStore {
	cacheCfg := cfgProvider.Get().Cache
	if redisClient != nil {
		appLogger.Info(appCtx, "Using Redis cache backend", "key_prefix", cacheCfg.KeyPrefix, "max_entries", cacheCfg.MaxEntries)
		return appredis.NewCacheStoreAdapter(redisClient, appLogger, cacheCfg.KeyPrefix, cacheCfg.MaxEntries)
	}

	store := cache.NewMemoryStore(cacheCfg.MaxEntries, appLogger)
	store.StartSweeper(appCtx, time.Duration(cacheCfg.SweepIntervalSeconds)*time.Second)
	appLogger.Info(appCtx, "Using in-memory cache backend", "max_entries", cacheCfg.MaxEntries)
	return store
}

// ReadinessCheckersProvider lists the dependencies probed by /ready.
func ReadinessCheckersProvider(redisClient *redis.Client, store domain.CacheStore) []apphttp.ReadinessChecker {
	if redisClient == nil {
		return nil
	}
	if checker, ok := store.(apphttp.ReadinessChecker); ok {
		return []apphttp.ReadinessChecker{checker}
	}
	return nil
}

// UpstreamHTTPClientProvider provides the HTTP client shared by the upstream adapters.
func UpstreamHTTPClientProvider(cfgProvider config.Provider) *http.Client {
	return upstream.NewHTTPClient(time.Duration(cfgProvider.Get().Upstream.HTTPTimeoutSeconds) * time.Second)
}

// GeocoderProvider provides the Nominatim geocoder.
func GeocoderProvider(cfgProvider config.Provider, appLogger domain.Logger, httpClient *http.Client) domain.Geocoder {
	return nominatim.NewClient(cfgProvider, appLogger, httpClient)
}

// POIProviderProvider provides the Overpass POI provider.
func POIProviderProvider(cfgProvider config.Provider, appLogger domain.Logger, httpClient *http.Client) domain.POIProvider {
	return overpass.NewClient(cfgProvider, appLogger, httpClient)
}

// HTTPHandlerProvider builds the routed, instrumented HTTP handler.
func HTTPHandlerProvider(searchService *application.SearchService, cfgProvider config.Provider, appLogger domain.Logger, checkers []apphttp.ReadinessChecker) http.Handler {
	router := apphttp.NewRouter(searchService, cfgProvider, appLogger, checkers...)
	return middleware.RequestIDMiddleware(middleware.AccessLogMiddleware(appLogger)(router))
}

// HTTPGracefulServerProvider provides a new HTTP server configured for graceful shutdown.
func HTTPGracefulServerProvider(cfgProvider config.Provider, handler http.Handler) *http.Server {
	appCfg := cfgProvider.Get()

	readTimeout := 10 * time.Second
	writeTimeout := 30 * time.Second
	idleTimeout := 60 * time.Second

	// Upstream calls run inside the handler, so the write timeout must outlast them.
	if appCfg.App.WriteTimeoutSeconds > 0 {
		writeTimeout = time.Duration(appCfg.App.WriteTimeoutSeconds) * time.Second
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// GRPCServerProvider provides the gRPC health server.
func GRPCServerProvider(appCtx context.Context, appLogger domain.Logger, cfgProvider config.Provider) *appgrpc.Server {
	return appgrpc.NewServer(appCtx, appLogger, cfgProvider)
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,

	// Infrastructure Adapters
	RedisClientProvider,
	CacheStoreProvider,
	ReadinessCheckersProvider,
	UpstreamHTTPClientProvider,
	GeocoderProvider,
	POIProviderProvider,

	// Application Services
	application.NewCategoryRegistry,
	wire.Bind(new(domain.CategoryRegistry), new(*application.CategoryRegistry)),
	application.NewQueryBuilder,
	application.NewGeocodeService,
	application.NewPOIService,
	application.NewSearchService,

	// Servers
	HTTPHandlerProvider,
	HTTPGracefulServerProvider,
	GRPCServerProvider,
	NewApp,
)
