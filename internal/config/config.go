package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Environment string
	LogLevel    string

	Portfolio struct {
		InitialCapital float64
		MaxPositionPct float64
		MaxRiskPct     float64
	}

	Execution struct {
		FeeRate            float64
		TWAPWindowMinutes  int
		TWAPSliceMinutes   int
		VWAPLookbackDays   int
		ParticipationRate  float64
		VolatilityLookback int
		IcebergDisplaySize float64
	}

	Risk struct {
		MaxPositionSize    float64
		MaxDailyLoss       float64
		MaxDrawdownPercent float64
		CheckInterval      time.Duration
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}
}

func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),
	}

	cfg.Portfolio.InitialCapital = getEnvFloat("INITIAL_CAPITAL", 100000.0)
	cfg.Portfolio.MaxPositionPct = getEnvFloat("MAX_POSITION_PCT", 0.25)
	cfg.Portfolio.MaxRiskPct = getEnvFloat("MAX_RISK_PCT", 0.02)

	cfg.Execution.FeeRate = getEnvFloat("FEE_RATE", 0.001)
	cfg.Execution.TWAPWindowMinutes = getEnvInt("TWAP_WINDOW_MINUTES", 60)
	cfg.Execution.TWAPSliceMinutes = getEnvInt("TWAP_SLICE_MINUTES", 5)
	cfg.Execution.VWAPLookbackDays = getEnvInt("VWAP_LOOKBACK_DAYS", 30)
	cfg.Execution.ParticipationRate = getEnvFloat("PARTICIPATION_RATE", 0.10)
	cfg.Execution.VolatilityLookback = getEnvInt("VOLATILITY_LOOKBACK", 20)
	cfg.Execution.IcebergDisplaySize = getEnvFloat("ICEBERG_DISPLAY_SIZE", 100.0)

	cfg.Risk.MaxPositionSize = getEnvFloat("MAX_POSITION_SIZE", 10000.0)
	cfg.Risk.MaxDailyLoss = getEnvFloat("MAX_DAILY_LOSS", 5000.0)
	cfg.Risk.MaxDrawdownPercent = getEnvFloat("MAX_DRAWDOWN_PERCENT", 10.0)
	cfg.Risk.CheckInterval = getEnvDuration("RISK_CHECK_INTERVAL", 5*time.Minute)

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
