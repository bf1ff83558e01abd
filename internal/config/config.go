// internal/config/config.go
package config

import (
	"os"
	"strconv"
)

// Config is the externally supplied surface: listening port, allowed
// websocket origin, backing-store addresses and match defaults. Everything
// comes from the environment; main loads .env via godotenv autoload.
type Config struct {
	Port            string
	SocketOrigin    string
	RedisAddr       string
	RedisDB         int
	DatabaseURL     string
	ProblemLanguage string
	RoundsPerMatch  int
}

// FromEnv reads the configuration, applying defaults that match local dev.
func FromEnv() Config {
	return Config{
		Port:            getEnv("PORT", "8000"),
		SocketOrigin:    getEnv("SOCKET_ORIGIN", "localhost:3000"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		ProblemLanguage: getEnv("PROBLEM_LANGUAGE", "javascript"),
		RoundsPerMatch:  getEnvInt("ROUNDS_PER_MATCH", 3),
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
