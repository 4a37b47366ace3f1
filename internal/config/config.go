package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	DiscordToken  string
	CommandPrefix string

	DatabaseType string
	DatabaseURL  string

	GeminiAPIKey string
	GeminiModel  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HealthAddr string

	CacheRefreshSeconds      int
	JobWorkerCount           int
	YoutubeRequestsPerSecond float64
	CooldownSweepMinutes     int
	StatsWeeklyRetention     int
)

// Load reads the environment (and an optional .env file) into the package
// variables. Missing required settings terminate the process.
func Load() {
	if err := load(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
}

func load() error {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	DiscordToken = getEnv("DISCORD_BOT_TOKEN", "")
	CommandPrefix = getEnv("COMMAND_PREFIX", "!")

	DatabaseType = strings.ToLower(getEnv("DATABASE_TYPE", "sqlite"))
	DatabaseURL = getEnv("DATABASE_URL", "discora.db")

	GeminiAPIKey = getEnv("GEMINI_API_KEY", "")
	GeminiModel = getEnv("GEMINI_MODEL", "gemini-2.5-flash")

	RedisAddr = getEnv("REDIS_ADDR", "")
	RedisPassword = getEnv("REDIS_PASSWORD", "")
	RedisDB = getEnvInt("REDIS_DB", 0)

	HealthAddr = getEnv("HEALTH_ADDR", "")

	CacheRefreshSeconds = getEnvInt("CACHE_REFRESH_SECONDS", 10)
	JobWorkerCount = getEnvInt("JOB_WORKERS", 4)
	YoutubeRequestsPerSecond = getEnvFloat("YOUTUBE_REQUESTS_PER_SECOND", 2)
	CooldownSweepMinutes = getEnvInt("COOLDOWN_SWEEP_MINUTES", 10)
	StatsWeeklyRetention = getEnvInt("STATS_WEEKLY_RETENTION", 35)

	return validate()
}

func validate() error {
	if DiscordToken == "" || strings.Contains(DiscordToken, "YOUR_DISCORD_BOT_TOKEN") {
		return fmt.Errorf("DISCORD_BOT_TOKEN must be set")
	}
	switch DatabaseType {
	case "postgres", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unsupported DATABASE_TYPE %q (expected postgres, sqlite or sqlite3)", DatabaseType)
	}
	if DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if CacheRefreshSeconds <= 0 {
		CacheRefreshSeconds = 10
	}
	if JobWorkerCount <= 0 {
		JobWorkerCount = 1
	}
	if CooldownSweepMinutes <= 0 {
		CooldownSweepMinutes = 10
	}
	if StatsWeeklyRetention < 7 {
		StatsWeeklyRetention = 7
	}
	return nil
}

// AIModerationEnabled reports whether a usable Gemini key is configured.
func AIModerationEnabled() bool {
	return GeminiAPIKey != "" && !strings.Contains(GeminiAPIKey, "YOUR_GEMINI_API_KEY")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}
