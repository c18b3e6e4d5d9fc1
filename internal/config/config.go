package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings sourced from environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Print    PrintConfig    `mapstructure:"print"`
	Sequence SequenceConfig `mapstructure:"sequence"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// WorkerConfig 后台 worker 设置。
type WorkerConfig struct {
	MetricsPort int `mapstructure:"metrics_port"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// PrintConfig 打印批次与渲染设置。
type PrintConfig struct {
	BatchSize         int           `mapstructure:"batch_size"`
	WarnThreshold     int           `mapstructure:"warn_threshold"`
	FallbackTimeout   time.Duration `mapstructure:"fallback_timeout"`
	PrinterDPI        float64       `mapstructure:"printer_dpi"`
	SnapGridMM        float64       `mapstructure:"snap_grid_mm"`
	WorkerConcurrency int           `mapstructure:"worker_concurrency"`
	DownloadLinkTTL   time.Duration `mapstructure:"download_link_ttl"`
}

// SequenceConfig 单号计数器设置。
type SequenceConfig struct {
	Name         string `mapstructure:"name"`
	DefaultValue int64  `mapstructure:"default_value"`
	SnapshotKey  string `mapstructure:"snapshot_key"`
}

// AdminConfig 管理接口设置。
type AdminConfig struct {
	Secret string `mapstructure:"secret"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("worker.metrics_port", 9091)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "labeldesk")
	v.SetDefault("database.user", "labeldesk")
	v.SetDefault("database.password", "labeldesk")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "labels")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("print.batch_size", 50)
	v.SetDefault("print.warn_threshold", 100)
	v.SetDefault("print.fallback_timeout", "60s")
	v.SetDefault("print.printer_dpi", 203)
	v.SetDefault("print.snap_grid_mm", 1)
	v.SetDefault("print.worker_concurrency", 4)
	v.SetDefault("print.download_link_ttl", "24h")
	v.SetDefault("sequence.name", "cipl")
	v.SetDefault("sequence.default_value", 0)
	v.SetDefault("sequence.snapshot_key", "sequence/cipl.json")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                 "API_PORT",
		"api.allowed_origins":      "API_ALLOWED_ORIGINS",
		"worker.metrics_port":      "WORKER_METRICS_PORT",
		"database.host":            "DATABASE_HOST",
		"database.port":            "DATABASE_PORT",
		"database.name":            "POSTGRES_DB",
		"database.user":            "POSTGRES_USER",
		"database.password":        "POSTGRES_PASSWORD",
		"database.sslmode":         "DATABASE_SSLMODE",
		"redis.host":               "REDIS_HOST",
		"redis.port":               "REDIS_PORT",
		"redis.password":           "REDIS_PASSWORD",
		"minio.endpoint":           "MINIO_ENDPOINT",
		"minio.public_endpoint":    "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":      "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":  "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":            "MINIO_USE_SSL",
		"minio.bucket":             "MINIO_BUCKET",
		"minio.region":             "MINIO_REGION",
		"minio.bucket_lookup":      "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket": "MINIO_AUTO_CREATE_BUCKET",
		"print.batch_size":         "PRINT_BATCH_SIZE",
		"print.warn_threshold":     "PRINT_WARN_THRESHOLD",
		"print.fallback_timeout":   "PRINT_FALLBACK_TIMEOUT",
		"print.printer_dpi":        "PRINT_PRINTER_DPI",
		"print.snap_grid_mm":       "PRINT_SNAP_GRID_MM",
		"print.worker_concurrency": "PRINT_WORKER_CONCURRENCY",
		"print.download_link_ttl":  "PRINT_DOWNLOAD_LINK_TTL",
		"sequence.name":            "SEQUENCE_NAME",
		"sequence.default_value":   "SEQUENCE_DEFAULT_VALUE",
		"sequence.snapshot_key":    "SEQUENCE_SNAPSHOT_KEY",
		"admin.secret":             "ADMIN_SECRET",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Print.BatchSize <= 0 {
		return errors.New("print batch size must be positive")
	}
	if cfg.Print.WarnThreshold < cfg.Print.BatchSize {
		return errors.New("print warn threshold must not be smaller than the batch size")
	}
	if cfg.Print.FallbackTimeout <= 0 {
		return errors.New("print fallback timeout must be positive")
	}
	if cfg.Print.PrinterDPI <= 0 {
		return errors.New("printer dpi must be positive")
	}
	if cfg.Sequence.Name == "" {
		return errors.New("sequence name is required")
	}
	if cfg.Sequence.DefaultValue < 0 {
		return errors.New("sequence default value must not be negative")
	}
	return nil
}
