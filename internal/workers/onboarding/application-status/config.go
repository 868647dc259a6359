// internal/workers/onboarding/application-status/config.go
package applicationstatus

import (
	"time"

	"seller-onboarding/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	w := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Timeout:      config.GetDuration(w.Timeout),
		PollInterval: config.GetDuration(cfg.Onboarding.PollInterval),
	}
}
