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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Worker    WorkerConfig
	Cache     CacheConfig
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

// JWTConfig holds the shared secret used to verify access tokens issued by the
// identity provider.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig holds the engine defaults applied to every run.
type SchedulerConfig struct {
	Seed                 int64
	RandomSeed           bool
	TieBreak             string
	PreferConflictFree   bool
	Distribution         string
	CollisionPolicy      string
	DefaultSectionMax    int
	Refinement           string
	MaxIterations        int
	InitialTemperature   float64
	CoolingRate          float64
	StudentClashPenalty  float64
	LecturerClashPenalty float64
	RoomClashPenalty     float64
	RunTimeout           time.Duration
}

// WorkerConfig tunes the asynchronous run queue.
type WorkerConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// CacheConfig controls caching of run views in Redis.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ExportsConfig configures rendered timetable exports and their download links.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

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
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Seed:                 v.GetInt64("SCHEDULER_SEED"),
		RandomSeed:           v.GetBool("SCHEDULER_RANDOM_SEED"),
		TieBreak:             v.GetString("SCHEDULER_TIE_BREAK"),
		PreferConflictFree:   v.GetBool("SCHEDULER_PREFER_CONFLICT_FREE"),
		Distribution:         v.GetString("SCHEDULER_DISTRIBUTION"),
		CollisionPolicy:      v.GetString("SCHEDULER_COLLISION_POLICY"),
		DefaultSectionMax:    v.GetInt("SCHEDULER_DEFAULT_SECTION_MAX"),
		Refinement:           v.GetString("SCHEDULER_REFINEMENT"),
		MaxIterations:        v.GetInt("SCHEDULER_MAX_ITERATIONS"),
		InitialTemperature:   v.GetFloat64("SCHEDULER_INITIAL_TEMPERATURE"),
		CoolingRate:          v.GetFloat64("SCHEDULER_COOLING_RATE"),
		StudentClashPenalty:  v.GetFloat64("SCHEDULER_STUDENT_CLASH_PENALTY"),
		LecturerClashPenalty: v.GetFloat64("SCHEDULER_LECTURER_CLASH_PENALTY"),
		RoomClashPenalty:     v.GetFloat64("SCHEDULER_ROOM_CLASH_PENALTY"),
		RunTimeout:           parseDuration(v.GetString("SCHEDULER_RUN_TIMEOUT"), 2*time.Minute),
	}

	cfg.Worker = WorkerConfig{
		Workers:    v.GetInt("WORKER_CONCURRENCY"),
		BufferSize: v.GetInt("WORKER_BUFFER_SIZE"),
		MaxRetries: v.GetInt("WORKER_RETRIES"),
		RetryDelay: parseDuration(v.GetString("WORKER_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		Retention:       parseDuration(v.GetString("EXPORTS_RETENTION"), 7*24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "block_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_SEED", 1)
	v.SetDefault("SCHEDULER_RANDOM_SEED", false)
	v.SetDefault("SCHEDULER_TIE_BREAK", "random")
	v.SetDefault("SCHEDULER_PREFER_CONFLICT_FREE", false)
	v.SetDefault("SCHEDULER_DISTRIBUTION", "shared")
	v.SetDefault("SCHEDULER_COLLISION_POLICY", "first_wins")
	v.SetDefault("SCHEDULER_DEFAULT_SECTION_MAX", 25)
	v.SetDefault("SCHEDULER_REFINEMENT", "annealing")
	v.SetDefault("SCHEDULER_MAX_ITERATIONS", 100)
	v.SetDefault("SCHEDULER_INITIAL_TEMPERATURE", 100.0)
	v.SetDefault("SCHEDULER_COOLING_RATE", 0.95)
	v.SetDefault("SCHEDULER_STUDENT_CLASH_PENALTY", 2.0)
	v.SetDefault("SCHEDULER_LECTURER_CLASH_PENALTY", 3.0)
	v.SetDefault("SCHEDULER_ROOM_CLASH_PENALTY", 3.0)
	v.SetDefault("SCHEDULER_RUN_TIMEOUT", "2m")

	v.SetDefault("WORKER_CONCURRENCY", 2)
	v.SetDefault("WORKER_BUFFER_SIZE", 32)
	v.SetDefault("WORKER_RETRIES", 1)
	v.SetDefault("WORKER_RETRY_DELAY", "2s")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("EXPORTS_RETENTION", "168h")
}

// isMissingFile reports whether viper failed because the explicit .env path
// does not exist. SetConfigFile bypasses ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
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
