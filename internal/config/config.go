package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/straye-as/season-planning-api/internal/secrets"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	ERP       ERPConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
	Planning  PlanningConfig
	Metrics   MetricsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// RedisConfig configures the optional distributed season lock.
// When disabled, per-season serialization relies on database row locks alone.
type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	PoolSize int
	// LockTTL is the season lock expiry in seconds
	LockTTL int
	// LockWait is how long to retry obtaining a held lock, in milliseconds
	LockWait int
}

// ERPConfig holds configuration for the read-only MS SQL Server ERP purchase order feed
type ERPConfig struct {
	// Enabled controls whether the ERP connection is attempted
	Enabled bool
	// URL is the connection URL in format host:port/database
	URL      string
	User     string
	Password string
	// POView and GRNView name the views exposing purchase orders and receipts
	POView          string
	GRNView         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	// QueryTimeout is the default timeout for queries (seconds)
	QueryTimeout int
}

// AuthConfig configures request authentication
type AuthConfig struct {
	// JWTSecret is the HMAC key bearer tokens are signed with
	JWTSecret string
	Issuer    string
	Audience  string
	// APIKey authenticates service-to-service calls through the x-api-key header
	APIKey string
	// ApproverRoles may approve or reject budget adjustments
	ApproverRoles []string
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	// ArchiveOnLock writes a season snapshot to storage when a season is locked
	ArchiveOnLock bool
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	// "auto" uses environment in development, vault in staging/production
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins for CORS requests
	// Use "*" to allow all origins (not recommended for production)
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	// FrameOptions sets the X-Frame-Options header (DENY, SAMEORIGIN, or empty to disable)
	FrameOptions       string
	ContentTypeNosniff bool
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the default rate limit for unauthenticated requests (per IP)
	RequestsPerMinute int
	// RequestsPerMinuteAuth is the rate limit for authenticated requests (per user)
	RequestsPerMinuteAuth int
	WhitelistIPs          []string
	WhitelistPaths        []string
}

// SchedulerConfig controls background jobs. Cron expressions include a seconds field.
type SchedulerConfig struct {
	Enabled         bool
	RecalculateCron string
	AlertSweepCron  string
	ERPSyncCron     string
	// AuditCleanupCron prunes audit entries older than AuditRetentionDays
	AuditCleanupCron   string
	AuditRetentionDays int
	// JobTimeout bounds a single job run (seconds)
	JobTimeout int
}

// PlanningConfig holds the budget engine thresholds
type PlanningConfig struct {
	// HighUtilizationPercent raises an alert when committed/approved exceeds it
	HighUtilizationPercent float64
	// FulfillmentLagPercent raises an alert past the season midpoint when
	// received/committed is below it
	FulfillmentLagPercent float64
	// TrendIncreasingPercent and TrendDecreasingPercent classify the monthly
	// run-rate against the average monthly plan
	TrendIncreasingPercent float64
	TrendDecreasingPercent float64
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (e *ERPConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(e.ConnMaxLifetime) * time.Second
}

// QueryTimeoutDuration returns query timeout as duration
func (e *ERPConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(e.QueryTimeout) * time.Second
}

// LockTTLDuration returns the season lock expiry as duration
func (r *RedisConfig) LockTTLDuration() time.Duration {
	return time.Duration(r.LockTTL) * time.Second
}

// LockWaitDuration returns the season lock wait as duration
func (r *RedisConfig) LockWaitDuration() time.Duration {
	return time.Duration(r.LockWait) * time.Millisecond
}

// JobTimeoutDuration returns the job timeout as duration
func (s *SchedulerConfig) JobTimeoutDuration() time.Duration {
	return time.Duration(s.JobTimeout) * time.Second
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.APIKey == "" {
		cfg.Auth.APIKey = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}
	if v.GetBool("ERP_ENABLED") {
		cfg.ERP.Enabled = true
	}
	if addr := v.GetString("REDIS_ADDRESS"); addr != "" {
		cfg.Redis.Address = addr
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
// In development (or when secrets.source = "environment") secrets come from env vars,
// in staging/production (or secrets.source = "vault") from Azure Key Vault.
// Values explicitly set in the environment always win.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SecretSource(cfg.Secrets.Source),
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	if !provider.IsVaultEnabled() {
		logger.Info("Using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	logger.Info("Loading secrets from Azure Key Vault",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)
	applySecrets(ctx, cfg, provider)

	// Database name varies per environment and is never stored in the vault
	if defaultDB := os.Getenv("DEFAULT_DATABASE"); defaultDB != "" {
		cfg.Database.Name = defaultDB
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	logger.Info("Secrets loaded from vault successfully")
	return cfg, nil
}

// SecretGetter resolves a secret by vault name with an environment override
type SecretGetter interface {
	GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error)
}

// secretBinding maps a vault secret and env override onto a config field
type secretBinding struct {
	secretName string
	envName    string
	target     func(cfg *Config) *string
}

var secretBindings = []secretBinding{
	{"POSTGRES-MAIN-HOST", "DATABASE_HOST", func(c *Config) *string { return &c.Database.Host }},
	{"POSTGRES-MAIN-USER", "DATABASE_USER", func(c *Config) *string { return &c.Database.User }},
	{"POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD", func(c *Config) *string { return &c.Database.Password }},
	{"REDIS-PASSWORD", "REDIS_PASSWORD", func(c *Config) *string { return &c.Redis.Password }},
	{"JWT-SECRET", "JWT_SECRET", func(c *Config) *string { return &c.Auth.JWTSecret }},
	{"admin-api-key", "ADMIN_API_KEY", func(c *Config) *string { return &c.Auth.APIKey }},
	{"storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING", func(c *Config) *string { return &c.Storage.CloudConnectionString }},
	{"ERP-URL", "ERP_URL", func(c *Config) *string { return &c.ERP.URL }},
	{"ERP-USERNAME", "ERP_USER", func(c *Config) *string { return &c.ERP.User }},
	{"ERP-PASSWORD", "ERP_PASSWORD", func(c *Config) *string { return &c.ERP.Password }},
}

// applySecrets overlays every bound secret that resolves to a non-empty value
func applySecrets(ctx context.Context, cfg *Config, getter SecretGetter) {
	for _, b := range secretBindings {
		if value, err := getter.GetSecretOrEnv(ctx, b.secretName, b.envName); err == nil && value != "" {
			*b.target(cfg) = value
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Season Planning API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "season_planning")
	v.SetDefault("database.user", "planning_user")
	v.SetDefault("database.password", "planning_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 20)
	v.SetDefault("redis.lockTTL", 30)
	v.SetDefault("redis.lockWait", 2000)

	v.SetDefault("erp.enabled", false)
	v.SetDefault("erp.poView", "dbo.v_season_purchase_orders")
	v.SetDefault("erp.grnView", "dbo.v_season_goods_receipts")
	v.SetDefault("erp.maxOpenConns", 5)
	v.SetDefault("erp.maxIdleConns", 1)
	v.SetDefault("erp.connMaxLifetime", 300)
	v.SetDefault("erp.queryTimeout", 30)

	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.approverRoles", []string{"approver", "finance_lead"})

	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "season-archives")
	v.SetDefault("storage.archiveOnLock", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 240)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready", "/metrics"})

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.recalculateCron", "0 0 2 * * *") // 02:00 every night
	v.SetDefault("scheduler.alertSweepCron", "0 30 * * * *") // half past every hour
	v.SetDefault("scheduler.erpSyncCron", "0 15 * * * *")
	v.SetDefault("scheduler.auditCleanupCron", "0 0 4 * * 0") // Sundays at 04:00
	v.SetDefault("scheduler.auditRetentionDays", 730)
	v.SetDefault("scheduler.jobTimeout", 600)

	v.SetDefault("planning.highUtilizationPercent", 90)
	v.SetDefault("planning.fulfillmentLagPercent", 50)
	v.SetDefault("planning.trendIncreasingPercent", 80)
	v.SetDefault("planning.trendDecreasingPercent", 30)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
