package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LocalConfig holds local SQLite store settings.
type LocalConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// RemoteConfig holds remote store selection and settings.
type RemoteConfig struct {
	Type           string        `json:"type" mapstructure:"type"` // postgres, api, none
	TimeoutSeconds int           `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	Timeout        time.Duration `json:"-" mapstructure:"-"`
}

// SyncConfig holds sync queue and flush settings.
type SyncConfig struct {
	QueuePath         string `json:"queuePath" mapstructure:"queuePath"`
	MaxAttempts       int    `json:"maxAttempts" mapstructure:"maxAttempts"`
	InitialIntervalMs int    `json:"initialIntervalMs" mapstructure:"initialIntervalMs"`
	MaxIntervalMs     int    `json:"maxIntervalMs" mapstructure:"maxIntervalMs"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./playvault-logs")

	viper.SetDefault("local.path", "./playvault.db")

	viper.SetDefault("remote.type", "api")
	viper.SetDefault("remote.timeoutSeconds", 10)

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "playvault")

	viper.SetDefault("sync.queuePath", "./playvault-syncqueue.json")
	viper.SetDefault("sync.maxAttempts", 3)
	viper.SetDefault("sync.initialIntervalMs", 250)
	viper.SetDefault("sync.maxIntervalMs", 5000)

	viper.SetDefault("connectivity.probeIntervalSeconds", 15)

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.exportIntervalSeconds", 60)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "coachcore-metrics")
	viper.SetDefault("influx.bucket", "play_sync")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetConfigName("playvault.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetLocalConfig returns the local store settings.
func GetLocalConfig() LocalConfig {
	return LocalConfig{
		Path: viper.GetString("local.path"),
	}
}

// GetRemoteConfig returns the remote store settings.
func GetRemoteConfig() RemoteConfig {
	cfg := RemoteConfig{
		Type:           viper.GetString("remote.type"),
		TimeoutSeconds: viper.GetInt("remote.timeoutSeconds"),
	}
	cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	return cfg
}

// GetSyncConfig returns the sync queue settings.
func GetSyncConfig() SyncConfig {
	return SyncConfig{
		QueuePath:         viper.GetString("sync.queuePath"),
		MaxAttempts:       viper.GetInt("sync.maxAttempts"),
		InitialIntervalMs: viper.GetInt("sync.initialIntervalMs"),
		MaxIntervalMs:     viper.GetInt("sync.maxIntervalMs"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
