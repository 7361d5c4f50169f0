package config

import (
	"os"
	"path/filepath"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scheduling: SchedulingConfig{
			FrozenDays:          3,
			DefaultTeamCapacity: 1,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			RatePerSecond: 50,
			RateBurst:     100,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "buildplan.db"
	}
	return filepath.Join(home, ".buildplan", "buildplan.db")
}
