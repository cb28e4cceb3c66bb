// Package config loads server settings from environment variables, with an
// optional .env file for development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr         string // listen address, e.g. ":8080"
	DBPath       string // SQLite file path
	ClientOrigin string // allowed CORS origin for the web client
	CookieSecret string // HMAC key for the signed user_id cookie
}

// Load reads the configuration. A missing .env file is not an error;
// production sets real environment variables instead.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:         getEnv("ADDR", ":8080"),
		DBPath:       getEnv("DB_PATH", "courier.db"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "*"),
		CookieSecret: getEnv("COOKIE_SECRET", ""),
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
