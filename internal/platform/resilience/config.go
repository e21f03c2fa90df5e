package resilience

import (
	"time"

	"github.com/granada-os/personalization/internal/platform/logging"
)

// CircuitBreakerConfig mirrors the <PREFIX>_CIRCUIT_* settings each outbound client reads.
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

var defaultCircuitBreakerConfig = CircuitBreakerConfig{
	Enabled:          true,
	FailureThreshold: 3,
	OpenTimeout:      30 * time.Second,
	HalfOpenMaxReq:   1,
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return defaultCircuitBreakerConfig
}

// NormalizeCircuitBreakerConfig replaces non-positive limits with defaults. Enabled is kept as given.
func NormalizeCircuitBreakerConfig(cfg CircuitBreakerConfig) CircuitBreakerConfig {
	cfg.FailureThreshold = positiveOr(cfg.FailureThreshold, defaultCircuitBreakerConfig.FailureThreshold)
	cfg.HalfOpenMaxReq = positiveOr(cfg.HalfOpenMaxReq, defaultCircuitBreakerConfig.HalfOpenMaxReq)
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaultCircuitBreakerConfig.OpenTimeout
	}
	return cfg
}

// LogStateChanges returns a StateChangeFunc that reports transitions at warn level.
// Recovering to closed is logged at info.
func LogStateChanges(logger *logging.Logger, dependency string) StateChangeFunc {
	if logger == nil {
		logger = logging.Default()
	}
	return func(name string, from, to CircuitState) {
		if to == CircuitStateClosed {
			logger.Info("circuit breaker recovered", "dependency", dependency, "name", name, "from", from)
			return
		}
		logger.Warn("circuit breaker state changed", "dependency", dependency, "name", name, "from", from, "to", to)
	}
}

func positiveOr(v, fallback int) int {
	if v < 1 {
		return fallback
	}
	return v
}
