package config

// SchedulingConfig tunes the scheduling engine.
type SchedulingConfig struct {
	FrozenDays          int `json:"frozen_days"`           // Calendar days near today protected from rescheduling
	DefaultTeamCapacity int `json:"default_team_capacity"` // Slots assumed for teams with no record
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr          string  `json:"addr"`
	RatePerSecond float64 `json:"rate_per_second"` // Request rate limit; 0 disables
	RateBurst     int     `json:"rate_burst"`
}

// StoreConfig configures the SQLite database.
type StoreConfig struct {
	Path string `json:"path"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level string `json:"level"` // zerolog level name: debug, info, warn, error
}

// NotifyConfig configures outbound webhook notifications.
type NotifyConfig struct {
	WebhookURL string `json:"webhook_url"` // Empty disables notifications
}

// Config is the top-level configuration.
type Config struct {
	Scheduling SchedulingConfig `json:"scheduling"`
	Server     ServerConfig     `json:"server"`
	Store      StoreConfig      `json:"store"`
	Log        LogConfig        `json:"log"`
	Notify     NotifyConfig     `json:"notify"`
}
