package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBDSN      string
	JWTSecret  string
	ServerPort string
	LogMode    string

	// CorsOrigins is passed as-is to the cors middleware.
	CorsOrigins string

	// BadgesFile points to an optional YAML badge catalog. Empty means built-in defaults.
	BadgesFile string

	// Location decides where a calendar day starts and ends for streaks and daily goals.
	Location *time.Location

	StreakMaxRetries int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	retries, err := strconv.Atoi(getEnv("STREAK_MAX_RETRIES", "5"))
	if err != nil || retries < 1 {
		return nil, fmt.Errorf("invalid STREAK_MAX_RETRIES %q", getEnv("STREAK_MAX_RETRIES", ""))
	}

	return &Config{
		DBDriver:         getEnv("DB_DRIVER", "postgres"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "learning_platform"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		DBDSN:            getEnv("DB_DSN", "engagement.db"),
		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogMode:          getEnv("LOG_MODE", "dev"),
		CorsOrigins:      getEnv("CORS_ORIGINS", "*"),
		BadgesFile:       getEnv("BADGES_FILE", ""),
		Location:         loc,
		StreakMaxRetries: retries,
	}, nil
}

// PostgresDSN builds the connection string for the postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
