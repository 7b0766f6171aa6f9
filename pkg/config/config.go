package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Supported submission store backends.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendDynamoDB = "dynamodb"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store       StoreConfig
	Database    DatabaseConfig
	DynamoDB    DynamoDBConfig
	Redis       RedisConfig
	CORS        CORSConfig
	Log         LogConfig
	Leaderboard LeaderboardConfig
	Exports     ExportsConfig
}

// StoreConfig selects the document store holding submissions and rosters.
type StoreConfig struct {
	Backend string
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

// DynamoDBConfig points the DynamoDB adapter at its tables.
type DynamoDBConfig struct {
	Region           string
	Endpoint         string
	Profile          string
	SubmissionsTable string
	UsersTable       string
	ClassIndex       string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LeaderboardConfig tunes weekly aggregation.
type LeaderboardConfig struct {
	WeekDays     int
	ClassBonus   int
	Workers      int
	ClassTimeout time.Duration
	CacheTTL     time.Duration
	CatalogFile  string
	Classes      []string
}

// ExportsConfig configures asynchronous leaderboard exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{Backend: strings.ToLower(v.GetString("STORE_BACKEND"))}
	switch cfg.Store.Backend {
	case StoreBackendPostgres, StoreBackendDynamoDB:
	default:
		return nil, errors.New("STORE_BACKEND must be postgres or dynamodb")
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

	cfg.DynamoDB = DynamoDBConfig{
		Region:           v.GetString("DYNAMODB_REGION"),
		Endpoint:         v.GetString("DYNAMODB_ENDPOINT"),
		Profile:          v.GetString("DYNAMODB_PROFILE"),
		SubmissionsTable: v.GetString("DYNAMODB_SUBMISSIONS_TABLE"),
		UsersTable:       v.GetString("DYNAMODB_USERS_TABLE"),
		ClassIndex:       v.GetString("DYNAMODB_CLASS_INDEX"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_CACHE"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	weekDays := v.GetInt("LEADERBOARD_WEEK_DAYS")
	if weekDays <= 0 || weekDays > 7 {
		weekDays = 5
	}
	workers := v.GetInt("LEADERBOARD_WORKERS")
	if workers <= 0 {
		workers = 4
	}
	cfg.Leaderboard = LeaderboardConfig{
		WeekDays:     weekDays,
		ClassBonus:   v.GetInt("LEADERBOARD_CLASS_BONUS"),
		Workers:      workers,
		ClassTimeout: parseDuration(v.GetString("LEADERBOARD_CLASS_TIMEOUT"), 10*time.Second),
		CacheTTL:     parseDuration(v.GetString("LEADERBOARD_CACHE_TTL"), 5*time.Minute),
		CatalogFile:  v.GetString("LEADERBOARD_CATALOG_FILE"),
		Classes:      splitAndTrim(v.GetString("LEADERBOARD_CLASSES")),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_BACKEND", StoreBackendPostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "class_points")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("DYNAMODB_REGION", "eu-central-1")
	v.SetDefault("DYNAMODB_ENDPOINT", "")
	v.SetDefault("DYNAMODB_PROFILE", "")
	v.SetDefault("DYNAMODB_SUBMISSIONS_TABLE", "Submissions")
	v.SetDefault("DYNAMODB_USERS_TABLE", "Users")
	v.SetDefault("DYNAMODB_CLASS_INDEX", "class_id-index")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LEADERBOARD_WEEK_DAYS", 5)
	v.SetDefault("LEADERBOARD_CLASS_BONUS", 10)
	v.SetDefault("LEADERBOARD_WORKERS", 4)
	v.SetDefault("LEADERBOARD_CLASS_TIMEOUT", "10s")
	v.SetDefault("LEADERBOARD_CACHE_TTL", "5m")
	v.SetDefault("LEADERBOARD_CATALOG_FILE", "")
	v.SetDefault("LEADERBOARD_CLASSES", "class-10-A,class-10-B,class-9-A,class-9-B")

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)
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
