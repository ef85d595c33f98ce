package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/splitreel/splitreel/internal/engine"
)

// Config carries everything the binary reads from the environment,
// including the scoring guardrail policy. Thresholds live here so
// alternate policies never require touching the engine.
type Config struct {
	DBPath string
	Port   int

	MinImpressionsPerVariant int64
	MinConfidence            float64
	MinCtrDeltaPctPoints     float64
	MinScoreDelta            float64
	CTRWeight                float64
	QualityWeight            float64
}

// Load reads configuration from a .env file (if present) and the
// environment, falling back to defaults.
func Load() *Config {
	godotenv.Load()

	return &Config{
		DBPath:                   getEnv("SPLITREEL_DB_PATH", "./splitreel.db"),
		Port:                     getEnvAsInt("SPLITREEL_PORT", 8080),
		MinImpressionsPerVariant: int64(getEnvAsInt("SPLITREEL_MIN_IMPRESSIONS", 1500)),
		MinConfidence:            getEnvAsFloat("SPLITREEL_MIN_CONFIDENCE", 0.95),
		MinCtrDeltaPctPoints:     getEnvAsFloat("SPLITREEL_MIN_CTR_DELTA", 0.2),
		MinScoreDelta:            getEnvAsFloat("SPLITREEL_MIN_SCORE_DELTA", 0.02),
		CTRWeight:                getEnvAsFloat("SPLITREEL_CTR_WEIGHT", 0.7),
		QualityWeight:            getEnvAsFloat("SPLITREEL_QUALITY_WEIGHT", 0.3),
	}
}

// Scoring materializes the guardrail policy for engine calls.
func (c *Config) Scoring() engine.ScoringConfig {
	return engine.ScoringConfig{
		MinImpressionsPerVariant: c.MinImpressionsPerVariant,
		MinConfidence:            c.MinConfidence,
		MinCtrDeltaPctPoints:     c.MinCtrDeltaPctPoints,
		MinScoreDelta:            c.MinScoreDelta,
		Weights: engine.ScoreWeights{
			CTRWeight:     c.CTRWeight,
			QualityWeight: c.QualityWeight,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
