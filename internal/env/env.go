// Package env reads configuration from the process environment, loading a
// local .env file first when one exists. Getters fall back to the supplied
// default when a variable is unset or unparsable.
package env

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Load pulls a .env file from the working directory into the process
// environment. Variables already set keep their values. A missing file is
// not an error.
func Load() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return errors.Wrap(err, "failed to load .env")
	}
	return nil
}

// String returns the value of key, or defaultValue when unset or empty.
func String(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Int returns key parsed as an integer.
func Int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Int64 returns key parsed as a 64-bit integer.
func Int64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Bool returns key parsed as a boolean. Accepts the strconv.ParseBool
// forms: 1, t, T, TRUE, true, True, 0, f, F, FALSE, false, False.
func Bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Duration returns key parsed as a time.Duration, e.g. "300ms" or "2h45m".
func Duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
