package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "AFS"

// Cache backends selectable through cache.backend.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// ServerConfig holds server-related configurations.
// Note: Fields should be exported (start with uppercase) to be unmarshalled by Viper.
type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port" validate:"min=1,max=65535"`
	GRPCPort int `mapstructure:"grpc_port" validate:"min=0,max=65535"` // 0 disables the gRPC health server
}

// LogConfig holds logging-related configurations.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required"`
}

// AppConfig holds application-specific configurations.
type AppConfig struct {
	ServiceName            string `mapstructure:"service_name" validate:"required"`
	Version                string `mapstructure:"version"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"min=0"`
	WriteTimeoutSeconds    int    `mapstructure:"write_timeout_seconds" validate:"min=0"`
}

// UpstreamConfig holds the geocoding and POI provider settings.
type UpstreamConfig struct {
	NominatimBaseURL            string `mapstructure:"nominatim_base_url" validate:"required,url"`
	OverpassBaseURL             string `mapstructure:"overpass_base_url" validate:"required,url"`
	UserAgent                   string `mapstructure:"user_agent" validate:"required"` // Nominatim usage policy requires a real User-Agent
	NominatimEmail              string `mapstructure:"nominatim_email" validate:"omitempty,email"`
	HTTPTimeoutSeconds          int    `mapstructure:"http_timeout_seconds" validate:"min=1"`
	OverpassQueryTimeoutSeconds int    `mapstructure:"overpass_query_timeout_seconds" validate:"min=1"`
}

// CacheConfig holds the response cache settings.
type CacheConfig struct {
	Backend              string `mapstructure:"backend" validate:"oneof=memory redis"`
	TTLSeconds           int    `mapstructure:"ttl_seconds" validate:"min=0"`
	MaxEntries           int    `mapstructure:"max_entries" validate:"min=1"`
	SweepIntervalSeconds int    `mapstructure:"sweep_interval_seconds" validate:"min=0"` // 0 disables the periodic sweep
	KeyPrefix            string `mapstructure:"key_prefix"`
}

// RedisConfig holds Redis-related configurations, used when cache.backend is "redis".
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"` // Optional
	DB       int    `mapstructure:"db" validate:"min=0"`
}

// SearchConfig bounds the search parameters.
type SearchConfig struct {
	DefaultRadiusM int `mapstructure:"default_radius_m" validate:"gtefield=MinRadiusM,ltefield=MaxRadiusM"`
	MinRadiusM     int `mapstructure:"min_radius_m" validate:"min=1"`
	MaxRadiusM     int `mapstructure:"max_radius_m" validate:"gtefield=MinRadiusM"`
	DefaultLimit   int `mapstructure:"default_limit" validate:"min=1,ltefield=MaxLimit"`
	MaxLimit       int `mapstructure:"max_limit" validate:"min=1,max=100"`
}

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	App      AppConfig      `mapstructure:"app"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Search   SearchConfig   `mapstructure:"search"`
}

// Provider defines an interface for accessing application configuration.
// This allows for easy mocking in tests and decouples the app from Viper.
type Provider interface {
	Get() *Config
}

// Defaults returns the configuration used when neither file nor environment set a value.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{HTTPPort: 8000, GRPCPort: 0},
		Log:    LogConfig{Level: "info"},
		App: AppConfig{
			ServiceName:            "accessibility-finder",
			Version:                "0.1.0",
			ShutdownTimeoutSeconds: 30,
			WriteTimeoutSeconds:    30,
		},
		Upstream: UpstreamConfig{
			NominatimBaseURL:            "https://nominatim.openstreetmap.org/search",
			OverpassBaseURL:             "https://overpass-api.de/api/interpreter",
			UserAgent:                   "accessibility-finder/0.1.0",
			HTTPTimeoutSeconds:          20,
			OverpassQueryTimeoutSeconds: 25,
		},
		Cache: CacheConfig{
			Backend:              CacheBackendMemory,
			TTLSeconds:           120,
			MaxEntries:           512,
			SweepIntervalSeconds: 60,
			KeyPrefix:            "afs",
		},
		Redis: RedisConfig{Address: "localhost:6379"},
		Search: SearchConfig{
			DefaultRadiusM: 1500,
			MinRadiusM:     50,
			MaxRadiusM:     50000,
			DefaultLimit:   20,
			MaxLimit:       100,
		},
	}
}

// setDefaults registers every key of Defaults with viper so env-only overrides unmarshal.
func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.grpc_port", d.Server.GRPCPort)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("app.service_name", d.App.ServiceName)
	v.SetDefault("app.version", d.App.Version)
	v.SetDefault("app.shutdown_timeout_seconds", d.App.ShutdownTimeoutSeconds)
	v.SetDefault("app.write_timeout_seconds", d.App.WriteTimeoutSeconds)
	v.SetDefault("upstream.nominatim_base_url", d.Upstream.NominatimBaseURL)
	v.SetDefault("upstream.overpass_base_url", d.Upstream.OverpassBaseURL)
	v.SetDefault("upstream.user_agent", d.Upstream.UserAgent)
	v.SetDefault("upstream.nominatim_email", d.Upstream.NominatimEmail)
	v.SetDefault("upstream.http_timeout_seconds", d.Upstream.HTTPTimeoutSeconds)
	v.SetDefault("upstream.overpass_query_timeout_seconds", d.Upstream.OverpassQueryTimeoutSeconds)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.sweep_interval_seconds", d.Cache.SweepIntervalSeconds)
	v.SetDefault("cache.key_prefix", d.Cache.KeyPrefix)
	v.SetDefault("redis.address", d.Redis.Address)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("search.default_radius_m", d.Search.DefaultRadiusM)
	v.SetDefault("search.min_radius_m", d.Search.MinRadiusM)
	v.SetDefault("search.max_radius_m", d.Search.MaxRadiusM)
	v.SetDefault("search.default_limit", d.Search.DefaultLimit)
	v.SetDefault("search.max_limit", d.Search.MaxLimit)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Cache.Backend == CacheBackendRedis && strings.TrimSpace(c.Redis.Address) == "" {
		return fmt.Errorf("redis.address is required when cache.backend is %q", CacheBackendRedis)
	}
	return nil
}

// StaticProvider serves a fixed configuration. Used by tests and tools.
type StaticProvider struct {
	cfg *Config
}

// NewStaticProvider wraps cfg in a Provider.
func NewStaticProvider(cfg *Config) *StaticProvider {
	return &StaticProvider{cfg: cfg}
}

// Get returns the wrapped configuration.
func (s *StaticProvider) Get() *Config {
	return s.cfg
}

// viperProvider implements the Provider interface using Viper.
type viperProvider struct {
	config atomic.Pointer[Config]
	logger *zap.Logger // Using zap.Logger directly for config internal logging, not domain.Logger to avoid circular deps
}

// NewViperProvider creates and initializes a new configuration provider using Viper.
// It loads configuration from file and environment variables, and sets up hot-reloading.
// appCtx is the application lifecycle context used for graceful shutdown of background tasks.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(getEnv("VIPER_CONFIG_NAME", "config"))
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnv("VIPER_CONFIG_PATH", "/app/config"))
	v.AddConfigPath(".")

	// e.g., cache.ttl_seconds becomes AFS_CACHE_TTL_SECONDS
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			logger.Error("Failed to read config file", zap.Error(err))
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := load(v)
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err))
		return nil, err
	}

	p := &viperProvider{logger: logger}
	p.config.Store(cfg)

	// SIGHUP triggers a reload; an invalid reload keeps the previous config.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.String("goroutine_name", "SIGHUPConfigReloader"),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		defer signal.Stop(sigChan)
		for {
			select {
			case sig := <-sigChan:
				p.logger.Info("SIGHUP received, attempting to reload configuration...", zap.String("signal", sig.String()))
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
					continue
				}
				p.reload(v, "sighup")
			case <-appCtx.Done():
				p.logger.Info("SIGHUPConfigReloader goroutine shutting down due to context cancellation.")
				return
			}
		}
	}()

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("Panic recovered in OnConfigChange callback",
						zap.String("event_name", e.Name),
						zap.String("event_op", e.Op.String()),
						zap.Any("panic_info", r),
						zap.String("stacktrace", string(debug.Stack())),
					)
				}
			}()
			p.logger.Info("Config file changed", zap.String("name", e.Name), zap.String("op", e.Op.String()))
			p.reload(v, "file_change")
		})
		v.WatchConfig()
	}

	p.logger.Info("Configuration loaded successfully", zap.String("config_file_used", v.ConfigFileUsed()))
	return p, nil
}

func load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (p *viperProvider) reload(v *viper.Viper, trigger string) {
	newCfg, err := load(v)
	if err != nil {
		p.logger.Error("Rejected reloaded configuration", zap.String("trigger", trigger), zap.Error(err))
		return
	}
	p.config.Store(newCfg)
	p.logger.Info("Configuration reloaded successfully", zap.String("trigger", trigger))
}

// Get returns the current configuration.
func (p *viperProvider) Get() *Config {
	return p.config.Load()
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
