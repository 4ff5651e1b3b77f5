// Package config loads and validates the Atrium backend configuration using
// Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the ATR_ prefix (e.g., ATR_DATABASE_HOST
// overrides database.host in the YAML). The same binary therefore runs with a
// config.yaml in local development and with pure environment variables in
// containerized deployments.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Provisioning ProvisioningConfig `mapstructure:"provisioning"`
	Deletion     DeletionConfig     `mapstructure:"deletion"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Audit        AuditConfig        `mapstructure:"audit"`
	Jobs         JobsConfig         `mapstructure:"jobs"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GetAddress returns the host:port the API server listens on.
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// GetDSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.User, c.Password, c.SSLMode)
}

// StorageConfig holds object-storage backend configuration.
type StorageConfig struct {
	DefaultBackend string             `mapstructure:"default_backend"`
	S3             S3StorageConfig    `mapstructure:"s3"`
	Local          LocalStorageConfig `mapstructure:"local"`
}

// S3StorageConfig holds S3-compatible storage configuration.
type S3StorageConfig struct {
	// Endpoint is the S3-compatible endpoint URL (optional, for MinIO and
	// other S3-compatible services).
	Endpoint string `mapstructure:"endpoint"`
	// Region buckets are created in.
	Region string `mapstructure:"region"`

	// Authentication method: "default", "static", or "assume_role".
	// - "default": AWS default credential chain (env vars, shared config, IAM role)
	// - "static": explicit access key and secret key
	// - "assume_role": assume an IAM role (optionally with external ID)
	AuthMethod string `mapstructure:"auth_method"`

	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	RoleARN         string `mapstructure:"role_arn"`
	RoleSessionName string `mapstructure:"role_session_name"`
	ExternalID      string `mapstructure:"external_id"`
}

// LocalStorageConfig holds filesystem storage configuration, used for
// development and tests.
type LocalStorageConfig struct {
	Path string `mapstructure:"path"`
}

// ProvisioningConfig holds defaults for the provisioning orchestrator. The
// boolean toggles are the default option values; per-call options override
// them.
type ProvisioningConfig struct {
	BucketPrefix         string `mapstructure:"bucket_prefix"`
	CreateUser           bool   `mapstructure:"create_user"`
	CreateSubscription   bool   `mapstructure:"create_subscription"`
	SendWelcomeEmail     bool   `mapstructure:"send_welcome_email"`
	SeedDropdowns        bool   `mapstructure:"seed_dropdowns"`
	CreateBucket         bool   `mapstructure:"create_bucket"`
	SendSaaSNotification bool   `mapstructure:"send_saas_notification"`
	InitializeAuditLog   bool   `mapstructure:"initialize_audit_log"`
	UseTransaction       bool   `mapstructure:"use_transaction"`
}

// DeletionConfig holds deletion orchestrator configuration.
type DeletionConfig struct {
	// RetentionDays is how long a scheduled bucket deletion waits before the
	// lifecycle rule expires the tenant's objects.
	RetentionDays int `mapstructure:"retention_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig configures the Prometheus side-channel listener.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// AuditConfig configures audit log export shippers. The database audit table
// is always written; shipping is additional best-effort export.
type AuditConfig struct {
	File    AuditFileConfig    `mapstructure:"file"`
	Webhook AuditWebhookConfig `mapstructure:"webhook"`
}

// AuditFileConfig configures the JSON-lines file shipper.
type AuditFileConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AuditWebhookConfig configures the HTTP webhook shipper.
type AuditWebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// JobsConfig holds background job configuration.
type JobsConfig struct {
	Sweeper SweeperConfig `mapstructure:"sweeper"`
}

// SweeperConfig configures the scheduled-deletion sweeper.
type SweeperConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	IntervalHours int  `mapstructure:"interval_hours"`
}

// Load reads configuration from the optional YAML file at configPath, layered
// over defaults and under ATR_-prefixed environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ATR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/atrium")
		if err := v.ReadInConfig(); err != nil {
			// A missing config file is fine; defaults plus env vars apply.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "atrium")
	v.SetDefault("database.user", "atrium")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	v.SetDefault("storage.default_backend", "s3")
	v.SetDefault("storage.s3.region", "ap-southeast-2")
	v.SetDefault("storage.s3.auth_method", "")
	v.SetDefault("storage.local.path", "./data/buckets")

	v.SetDefault("provisioning.bucket_prefix", "atrium")
	v.SetDefault("provisioning.create_user", true)
	v.SetDefault("provisioning.create_subscription", true)
	v.SetDefault("provisioning.send_welcome_email", true)
	v.SetDefault("provisioning.seed_dropdowns", true)
	v.SetDefault("provisioning.create_bucket", true)
	v.SetDefault("provisioning.send_saas_notification", true)
	v.SetDefault("provisioning.initialize_audit_log", true)
	v.SetDefault("provisioning.use_transaction", true)

	v.SetDefault("deletion.retention_days", 90)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.port", 9090)

	v.SetDefault("audit.file.enabled", false)
	v.SetDefault("audit.file.path", "./data/audit.log")
	v.SetDefault("audit.webhook.enabled", false)
	v.SetDefault("audit.webhook.timeout", "10s")

	v.SetDefault("jobs.sweeper.enabled", true)
	v.SetDefault("jobs.sweeper.interval_hours", 24)
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}

	switch c.Storage.DefaultBackend {
	case "s3":
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when the s3 backend is selected")
		}
	case "local":
		if c.Storage.Local.Path == "" {
			return fmt.Errorf("storage.local.path is required when the local backend is selected")
		}
	case "":
		return fmt.Errorf("storage.default_backend is required")
	}

	if c.Provisioning.BucketPrefix == "" {
		return fmt.Errorf("provisioning.bucket_prefix is required")
	}

	if c.Deletion.RetentionDays < 1 {
		return fmt.Errorf("deletion.retention_days must be at least 1, got %d", c.Deletion.RetentionDays)
	}

	if c.Audit.Webhook.Enabled && c.Audit.Webhook.URL == "" {
		return fmt.Errorf("audit.webhook.url is required when the webhook shipper is enabled")
	}

	if c.Telemetry.Metrics.Enabled {
		if c.Telemetry.Metrics.Port < 1 || c.Telemetry.Metrics.Port > 65535 {
			return fmt.Errorf("telemetry.metrics.port must be between 1 and 65535, got %d", c.Telemetry.Metrics.Port)
		}
		if c.Telemetry.Metrics.Port == c.Server.Port {
			return fmt.Errorf("telemetry.metrics.port must differ from server.port")
		}
	}

	return nil
}
