package utils

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gramsight/gramsight-backend/internal/logger"
)

func GetEnv(key, fallback string, log *logger.Logger) string {
	if val, ok := os.LookupEnv(key); ok && strings.TrimSpace(val) != "" {
		return val
	}
	if log != nil {
		log.Debug("ENV var not set, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

func GetEnvAsInt(key string, fallback int, log *logger.Logger) int {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		if log != nil {
			log.Warn("ENV var not an integer, using fallback", "key", key, "value", raw, "fallback", fallback)
		}
		return fallback
	}
	return val
}

func GetEnvAsBool(key string, fallback bool, log *logger.Logger) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		if log != nil {
			log.Warn("ENV var not a boolean, using fallback", "key", key, "value", raw, "fallback", fallback)
		}
		return fallback
	}
}

func GetEnvAsDuration(key string, fallback time.Duration, log *logger.Logger) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	val, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		if log != nil {
			log.Warn("ENV var not a duration, using fallback", "key", key, "value", raw, "fallback", fallback)
		}
		return fallback
	}
	return val
}
