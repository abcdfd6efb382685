package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the env file named by VERITAS_ENV (default .env) and then its
// .secret sidecar. Missing files are ignored; getters read os.Getenv.
func Load() error {
	envFile := os.Getenv("VERITAS_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	return intEnv("SERVER_PORT", 8080)
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func MigrationsPath() string {
	return stringEnv("MIGRATIONS_PATH", "migrations")
}

// APIKey is the bearer token required on /v1 routes. Empty disables auth.
func APIKey() string {
	return os.Getenv("VERITAS_API_KEY")
}

// NATSURL is empty when score-change notifications are disabled.
func NATSURL() string {
	return os.Getenv("NATS_URL")
}

// ScoringConfigPath points at an optional YAML file of scoring tunables.
func ScoringConfigPath() string {
	return os.Getenv("SCORING_CONFIG")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func OpenAIBaseURL() string {
	return os.Getenv("OPENAI_BASE_URL")
}

// EmbeddingProvider is one of openai, mock, none. Defaults to none.
func EmbeddingProvider() string {
	return stringEnv("EMBEDDING_PROVIDER", "none")
}

func EmbeddingAPIKey() string {
	if EmbeddingProvider() == "openai" {
		return OpenAIAPIKey()
	}
	return ""
}

// EmbeddingCacheSize is the number of embeddings kept in memory.
func EmbeddingCacheSize() int {
	return intEnv("EMBEDDING_CACHE_SIZE", 1024)
}

func RecomputeWorkers() int {
	return intEnv("RECOMPUTE_WORKERS", 4)
}

func RecomputeDebounce() time.Duration {
	return durationEnv("RECOMPUTE_DEBOUNCE", 2*time.Second)
}

func ConsensusInterval() time.Duration {
	return durationEnv("CONSENSUS_INTERVAL", 15*time.Minute)
}

func ResolverInterval() time.Duration {
	return durationEnv("RESOLVER_INTERVAL", time.Minute)
}

func LearningInterval() time.Duration {
	return durationEnv("LEARNING_INTERVAL", 24*time.Hour)
}

func ProbeTimeout() time.Duration {
	return durationEnv("PROBE_TIMEOUT", 3*time.Second)
}

func ProbeRetries() int {
	return intEnv("PROBE_RETRIES", 2)
}

// RateLimitRPS defaults to 100.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst defaults to 20.
func RateLimitBurst() int {
	return intEnv("RATE_LIMIT_BURST", 20)
}

// LogLevel is one of debug, info, warn, error.
func LogLevel() string {
	return stringEnv("LOG_LEVEL", "info")
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
