package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	MongoURI string
	DBName   string

	// ExternalURL is the address clients reach the service at; it becomes
	// the iss and aud claim of every token.
	ExternalURL string

	// Base64 Ed25519 seeds, one per token class. Left empty, ephemeral keys
	// are generated at startup and issued tokens die with the process.
	AccessTokenSeed  string
	RefreshTokenSeed string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// HashCost is the bcrypt work factor for stored credentials.
	HashCost int

	// CacheMaxSize bounds the in-process cache in accounting bytes.
	CacheMaxSize       int64
	CredentialCacheTTL time.Duration
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:           getEnvOrDefault("MONGO_URI", ""),
		DBName:             getEnvOrDefault("DB_NAME", "projectx"),
		ExternalURL:        getEnvOrDefault("EXTERNAL_URL", "http://localhost:8080"),
		AccessTokenSeed:    getEnvOrDefault("ACCESS_TOKEN_SEED", ""),
		RefreshTokenSeed:   getEnvOrDefault("REFRESH_TOKEN_SEED", ""),
		AccessTokenTTL:     getDurationEnv("ACCESS_TOKEN_TTL", 30, time.Minute),
		RefreshTokenTTL:    getDurationEnv("REFRESH_TOKEN_TTL", 3, 24*time.Hour),
		HashCost:           getIntEnv("HASH_COST", 10),
		CacheMaxSize:       getInt64Env("CACHE_MAX_SIZE", 50_000_000),
		CredentialCacheTTL: getDurationEnv("CREDENTIAL_CACHE_TTL", 60, time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
