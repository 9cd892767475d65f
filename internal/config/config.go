// internal/config/config.go
package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Artifact ArtifactConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

// ArtifactConfig configures the object store that keeps versioned
// model parameter blobs for audit and rollback.
type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// EngineConfig carries the numerical defaults for the forecasting and
// replenishment components. It is passed explicitly into each component
// at construction; nothing reads it as ambient state.
type EngineConfig struct {
	// History requirements for the statistics estimator.
	MinObservations int
	MaxGapDays      int
	ShortWindowDays int
	LongWindowDays  int

	// Model training.
	ModelFamily      string // "decomposition" or "ses"
	CVInitialDays    int
	CVPeriodDays     int
	CVHorizonDays    int
	StalenessDays    int
	TrainWorkerCount int

	// Replenishment.
	ServiceLevel       float64
	SupersedeThreshold float64 // relative change that supersedes an active trigger
}

// StalenessThreshold returns the model staleness cutoff as a duration.
func (c EngineConfig) StalenessThreshold() time.Duration {
	return time.Duration(c.StalenessDays) * 24 * time.Hour
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "forecast_engine")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_TTL_SECONDS", 300)
		viper.SetDefault("ARTIFACT_ENABLED", false)
		viper.SetDefault("ARTIFACT_ENDPOINT", "")
		viper.SetDefault("ARTIFACT_ACCESS_KEY", "")
		viper.SetDefault("ARTIFACT_SECRET_KEY", "")
		viper.SetDefault("ARTIFACT_BUCKET", "forecast-models")
		viper.SetDefault("ARTIFACT_USE_SSL", true)
		viper.SetDefault("ENGINE_MIN_OBSERVATIONS", 60)
		viper.SetDefault("ENGINE_MAX_GAP_DAYS", 7)
		viper.SetDefault("ENGINE_SHORT_WINDOW_DAYS", 90)
		viper.SetDefault("ENGINE_LONG_WINDOW_DAYS", 365)
		viper.SetDefault("ENGINE_MODEL_FAMILY", "decomposition")
		viper.SetDefault("ENGINE_CV_INITIAL_DAYS", 90)
		viper.SetDefault("ENGINE_CV_PERIOD_DAYS", 30)
		viper.SetDefault("ENGINE_CV_HORIZON_DAYS", 30)
		viper.SetDefault("ENGINE_STALENESS_DAYS", 90)
		viper.SetDefault("ENGINE_TRAIN_WORKERS", 4)
		viper.SetDefault("ENGINE_SERVICE_LEVEL", 0.95)
		viper.SetDefault("ENGINE_SUPERSEDE_THRESHOLD", 0.25)

		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				TTLSeconds:    viper.GetInt("CACHE_TTL_SECONDS"),
			},
			Artifact: ArtifactConfig{
				Enabled:   viper.GetBool("ARTIFACT_ENABLED"),
				Endpoint:  viper.GetString("ARTIFACT_ENDPOINT"),
				AccessKey: viper.GetString("ARTIFACT_ACCESS_KEY"),
				SecretKey: viper.GetString("ARTIFACT_SECRET_KEY"),
				Bucket:    viper.GetString("ARTIFACT_BUCKET"),
				UseSSL:    viper.GetBool("ARTIFACT_USE_SSL"),
			},
			Engine: EngineConfig{
				MinObservations:    viper.GetInt("ENGINE_MIN_OBSERVATIONS"),
				MaxGapDays:         viper.GetInt("ENGINE_MAX_GAP_DAYS"),
				ShortWindowDays:    viper.GetInt("ENGINE_SHORT_WINDOW_DAYS"),
				LongWindowDays:     viper.GetInt("ENGINE_LONG_WINDOW_DAYS"),
				ModelFamily:        viper.GetString("ENGINE_MODEL_FAMILY"),
				CVInitialDays:      viper.GetInt("ENGINE_CV_INITIAL_DAYS"),
				CVPeriodDays:       viper.GetInt("ENGINE_CV_PERIOD_DAYS"),
				CVHorizonDays:      viper.GetInt("ENGINE_CV_HORIZON_DAYS"),
				StalenessDays:      viper.GetInt("ENGINE_STALENESS_DAYS"),
				TrainWorkerCount:   viper.GetInt("ENGINE_TRAIN_WORKERS"),
				ServiceLevel:       viper.GetFloat64("ENGINE_SERVICE_LEVEL"),
				SupersedeThreshold: viper.GetFloat64("ENGINE_SUPERSEDE_THRESHOLD"),
			},
		}
	})

	return instance
}

// DefaultEngineConfig returns the engine defaults without touching the
// environment. Used by tests and by callers that construct components
// directly.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinObservations:    60,
		MaxGapDays:         7,
		ShortWindowDays:    90,
		LongWindowDays:     365,
		ModelFamily:        "decomposition",
		CVInitialDays:      90,
		CVPeriodDays:       30,
		CVHorizonDays:      30,
		StalenessDays:      90,
		TrainWorkerCount:   4,
		ServiceLevel:       0.95,
		SupersedeThreshold: 0.25,
	}
}
