package app

import (
	"time"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/utils"
)

type Config struct {
	Port           string
	AllowedOrigins string

	SweepProfileInterval   time.Duration
	SweepStoryInterval     time.Duration
	SweepBlurInterval      time.Duration
	SweepInsightInterval   time.Duration
	SweepEmbeddingInterval time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:           utils.GetEnv("PORT", "8080", log),
		AllowedOrigins: utils.GetEnv("ALLOWED_ORIGINS", "", log),

		SweepProfileInterval:   utils.GetEnvAsDuration("SWEEP_PROFILE_INTERVAL", 6*time.Hour, log),
		SweepStoryInterval:     utils.GetEnvAsDuration("SWEEP_STORY_INTERVAL", time.Hour, log),
		SweepBlurInterval:      utils.GetEnvAsDuration("SWEEP_BLUR_INTERVAL", 10*time.Minute, log),
		SweepInsightInterval:   utils.GetEnvAsDuration("SWEEP_INSIGHT_INTERVAL", 15*time.Minute, log),
		SweepEmbeddingInterval: utils.GetEnvAsDuration("SWEEP_EMBEDDING_INTERVAL", 15*time.Minute, log),
	}
}
