// internal/workers/payment/setup-collection/config.go
package setupcollection

import "time"

type Config struct {
	Timeout       time.Duration
	MaxJobsActive int
	AlertsEnabled bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       30 * time.Second,
		MaxJobsActive: 8,
		AlertsEnabled: true,
	}
}
