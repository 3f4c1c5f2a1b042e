package config

import (
	"os"
	"strconv"
	"time"

	"github.com/scythe504/mafia-backend/internal"
)

type Config struct {
	Port        string
	AppEnv      string
	PublicURL   string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	Phases internal.PhaseDurations

	AbandonedRoomTTL time.Duration
	EndedRoomTTL     time.Duration
	SweepSchedule    string
}

func Load() Config {
	defaults := internal.DefaultPhaseDurations()
	return Config{
		Port:        getEnv("PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", "development"),
		PublicURL:   getEnv("PUBLIC_URL", "http://localhost:8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SessionTTL:    getEnvDuration("SESSION_TTL", 2*time.Hour),

		Phases: internal.PhaseDurations{
			DayDiscussion: getEnvSeconds("DAY_DISCUSSION_SECONDS", defaults.DayDiscussion),
			DayVoting:     getEnvSeconds("DAY_VOTING_SECONDS", defaults.DayVoting),
			Sleep:         getEnvSeconds("SLEEP_SECONDS", defaults.Sleep),
			Doctor:        getEnvSeconds("DOCTOR_SECONDS", defaults.Doctor),
			Mafia:         getEnvSeconds("MAFIA_SECONDS", defaults.Mafia),
			Execution:     getEnvSeconds("EXECUTION_SECONDS", defaults.Execution),
			Announcement:  getEnvSeconds("ANNOUNCEMENT_SECONDS", defaults.Announcement),
		},

		AbandonedRoomTTL: getEnvDuration("ABANDONED_ROOM_TTL", 30*time.Minute),
		EndedRoomTTL:     getEnvDuration("ENDED_ROOM_TTL", 10*time.Minute),
		SweepSchedule:    getEnv("SWEEP_SCHEDULE", "@every 1m"),
	}
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvSeconds reads a positive whole number of seconds.
func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if n := getEnvInt(key, 0); n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
