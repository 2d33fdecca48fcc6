package config

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Allotment AllotmentConfig
	Ledger    LedgerConfig
	Exports   ExportsConfig
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

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AllotmentConfig tunes the bulk allotment engine defaults. Per-call
// constraints override the gap and weights.
type AllotmentConfig struct {
	DefaultWeights     map[string]int
	DefaultMinGap      int
	GenderScopedTypes  []string
	Timezone           string
	CacheEnabled       bool
	CacheTTL           time.Duration
	MaxRequestsPerCall int
}

// LedgerConfig governs the booking ledger and its startup seeding.
type LedgerConfig struct {
	PersistenceEnabled bool
	SeedFile           string
	SeedFrom           string
	SeedWeeks          int
}

// ExportsConfig configures asynchronous schedule exports.
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Allotment = AllotmentConfig{
		DefaultWeights:     parseWeights(v.GetString("ALLOTMENT_DEFAULT_WEIGHTS")),
		DefaultMinGap:      v.GetInt("ALLOTMENT_DEFAULT_MIN_GAP"),
		GenderScopedTypes:  splitAndTrim(v.GetString("ALLOTMENT_GENDER_SCOPED_TYPES")),
		Timezone:           v.GetString("ALLOTMENT_TIMEZONE"),
		CacheEnabled:       v.GetBool("ENABLE_ALLOTMENT_CACHE"),
		CacheTTL:           parseDuration(v.GetString("ALLOTMENT_CACHE_TTL"), 10*time.Minute),
		MaxRequestsPerCall: v.GetInt("ALLOTMENT_MAX_REQUESTS"),
	}

	cfg.Ledger = LedgerConfig{
		PersistenceEnabled: v.GetBool("LEDGER_PERSISTENCE"),
		SeedFile:           v.GetString("LEDGER_SEED_FILE"),
		SeedFrom:           v.GetString("LEDGER_SEED_FROM"),
		SeedWeeks:          v.GetInt("LEDGER_SEED_WEEKS"),
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

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "smart_allotment")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "smart-allotment-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ALLOTMENT_DEFAULT_WEIGHTS", "admin:100,faculty:80,student:50")
	v.SetDefault("ALLOTMENT_DEFAULT_MIN_GAP", 0)
	v.SetDefault("ALLOTMENT_GENDER_SCOPED_TYPES", "hostel")
	v.SetDefault("ALLOTMENT_TIMEZONE", "UTC")
	v.SetDefault("ENABLE_ALLOTMENT_CACHE", false)
	v.SetDefault("ALLOTMENT_CACHE_TTL", "10m")
	v.SetDefault("ALLOTMENT_MAX_REQUESTS", 2000)

	v.SetDefault("LEDGER_PERSISTENCE", false)
	v.SetDefault("LEDGER_SEED_FILE", "")
	v.SetDefault("LEDGER_SEED_FROM", "")
	v.SetDefault("LEDGER_SEED_WEEKS", 1)

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

// parseWeights reads "category:score" pairs; malformed pairs are skipped.
func parseWeights(raw string) map[string]int {
	weights := make(map[string]int)
	for _, pair := range splitAndTrim(raw) {
		name, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		score, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		weights[strings.TrimSpace(name)] = score
	}
	return weights
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
