// internal/workers/onboarding/wizard-load/config.go
package wizardload

import (
	"time"

	"seller-onboarding/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	w := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Timeout: config.GetDuration(w.Timeout),
	}
}
