package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store backend selectors.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	Env  string
	Port int

	Store       StoreConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Concurrency ConcurrencyConfig
	Audit       AuditConfig
	Absences    AbsenceConfig
	Import      ImportConfig
	Export      ExportConfig
	Maintenance MaintenanceConfig
}

// StoreConfig selects the persisted key-value backend.
type StoreConfig struct {
	Backend   string
	Namespace string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// ConcurrencyConfig tunes version tracking and advisory locks.
type ConcurrencyConfig struct {
	LockTimeout        time.Duration
	RecentModification time.Duration
	MaxRetries         int
	RetryBackoff       time.Duration
}

// AuditConfig controls audit log retention.
type AuditConfig struct {
	MaxEntries    int
	RetentionDays int
}

// AbsenceConfig bounds absence records and their rollback window.
type AbsenceConfig struct {
	RollbackWindow    time.Duration
	AcademicYearStart time.Month
	MinDurationHours  float64
	MaxDurationHours  float64
}

// ImportConfig bounds spreadsheet batch imports.
type ImportConfig struct {
	MaxRows       int
	MaxFileSize   int64
	AllowedMIMEs  []string
	PartialImport bool
}

// ExportConfig locates the on-disk export archive and its download tokens.
type ExportConfig struct {
	Dir         string
	TokenSecret string
	TokenTTL    time.Duration
}

// MaintenanceConfig drives background sweeps (lock cleanup, audit purge).
type MaintenanceConfig struct {
	SweepInterval time.Duration
	Workers       int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Store = StoreConfig{
		Backend:   v.GetString("STORE_BACKEND"),
		Namespace: v.GetString("STORE_NAMESPACE"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Concurrency = ConcurrencyConfig{
		LockTimeout:        parseDuration(v.GetString("LOCK_TIMEOUT"), 5*time.Minute),
		RecentModification: parseDuration(v.GetString("RECENT_MODIFICATION_WINDOW"), 30*time.Second),
		MaxRetries:         v.GetInt("OPTIMISTIC_MAX_RETRIES"),
		RetryBackoff:       parseDuration(v.GetString("OPTIMISTIC_RETRY_BACKOFF"), 50*time.Millisecond),
	}

	cfg.Audit = AuditConfig{
		MaxEntries:    v.GetInt("AUDIT_MAX_ENTRIES"),
		RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
	}

	month := time.Month(v.GetInt("ACADEMIC_YEAR_START_MONTH"))
	if month < time.January || month > time.December {
		month = time.September
	}
	cfg.Absences = AbsenceConfig{
		RollbackWindow:    parseDuration(v.GetString("ABSENCE_ROLLBACK_WINDOW"), 24*time.Hour),
		AcademicYearStart: month,
		MinDurationHours:  v.GetFloat64("ABSENCE_MIN_DURATION_HOURS"),
		MaxDurationHours:  v.GetFloat64("ABSENCE_MAX_DURATION_HOURS"),
	}

	maxFileSize := v.GetInt64("IMPORT_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 5 * 1024 * 1024
	}
	cfg.Import = ImportConfig{
		MaxRows:       v.GetInt("IMPORT_MAX_ROWS"),
		MaxFileSize:   maxFileSize,
		AllowedMIMEs:  splitAndTrim(v.GetString("IMPORT_ALLOWED_MIME_TYPES")),
		PartialImport: v.GetBool("IMPORT_PARTIAL"),
	}

	cfg.Export = ExportConfig{
		Dir:         v.GetString("EXPORT_DIR"),
		TokenSecret: v.GetString("EXPORT_TOKEN_SECRET"),
		TokenTTL:    parseDuration(v.GetString("EXPORT_TOKEN_TTL"), 24*time.Hour),
	}

	cfg.Maintenance = MaintenanceConfig{
		SweepInterval: parseDuration(v.GetString("MAINTENANCE_SWEEP_INTERVAL"), time.Minute),
		Workers:       v.GetInt("MAINTENANCE_WORKERS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("STORE_BACKEND", StoreMemory)
	v.SetDefault("STORE_NAMESPACE", "attendance")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "attendance_core")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LOCK_TIMEOUT", "5m")
	v.SetDefault("RECENT_MODIFICATION_WINDOW", "30s")
	v.SetDefault("OPTIMISTIC_MAX_RETRIES", 3)
	v.SetDefault("OPTIMISTIC_RETRY_BACKOFF", "50ms")

	v.SetDefault("AUDIT_MAX_ENTRIES", 10000)
	v.SetDefault("AUDIT_RETENTION_DAYS", 365)

	v.SetDefault("ABSENCE_ROLLBACK_WINDOW", "24h")
	v.SetDefault("ACADEMIC_YEAR_START_MONTH", int(time.September))
	v.SetDefault("ABSENCE_MIN_DURATION_HOURS", 0.5)
	v.SetDefault("ABSENCE_MAX_DURATION_HOURS", 8.0)

	v.SetDefault("IMPORT_MAX_ROWS", 500)
	v.SetDefault("IMPORT_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("IMPORT_ALLOWED_MIME_TYPES", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/vnd.ms-excel,text/csv")
	v.SetDefault("IMPORT_PARTIAL", false)

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_TOKEN_SECRET", "")
	v.SetDefault("EXPORT_TOKEN_TTL", "24h")

	v.SetDefault("MAINTENANCE_SWEEP_INTERVAL", "1m")
	v.SetDefault("MAINTENANCE_WORKERS", 1)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
