package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the application.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Explorer      ExplorerConfig      `yaml:"explorer"`
	RPC           RPCConfig           `yaml:"rpc"`
	Realtime      RealtimeConfig      `yaml:"realtime"`
	AutoRefresh   AutoRefreshConfig   `yaml:"autoRefresh"`
	TxCache       TxCacheConfig       `yaml:"txCache"`
	Preferences   PreferencesConfig   `yaml:"preferences"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Swagger       SwaggerConfig       `yaml:"swagger"`
}

// ServerConfig holds the server-specific configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
}

// DatabaseConfig holds the wallet repository configuration.
type DatabaseConfig struct {
	Path               string `yaml:"path"`
	MaxOpenConns       int    `yaml:"maxOpenConns"`
	MaxIdleConns       int    `yaml:"maxIdleConns"`
	PingTimeoutSeconds int    `yaml:"pingTimeoutSeconds"`
}

// AuthConfig holds the single-session auth configuration. The service mirrors
// the hosted product's model: one signed-in user per process.
type AuthConfig struct {
	APIKey    string `yaml:"apiKey"`
	UserID    string `yaml:"userId"`
	UserEmail string `yaml:"userEmail"`
}

// ExplorerConfig holds the configuration for the explorer edge-function client.
type ExplorerConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	RateLimit            int    `yaml:"rateLimit"`
	BurstLimit           int    `yaml:"burstLimit"`
}

// RPCConfig holds configuration for direct EVM RPC clients.
type RPCConfig struct {
	PreferDirectEVM          bool `yaml:"preferDirectEvm"`
	ConnectionTimeoutSeconds int  `yaml:"connectionTimeoutSeconds"`
	CallTimeoutSeconds       int  `yaml:"callTimeoutSeconds"`
}

// RealtimeConfig holds the push channel configuration.
type RealtimeConfig struct {
	Enabled                bool   `yaml:"enabled"`
	URL                    string `yaml:"url"`
	HandshakeTimeoutMillis int64  `yaml:"handshakeTimeoutMillis"`
}

// AutoRefreshConfig holds configuration for the periodic refresh loop.
type AutoRefreshConfig struct {
	IntervalSeconds int `yaml:"intervalSeconds"`
	MaxConcurrent   int `yaml:"maxConcurrent"`
}

// TxCacheConfig holds configuration for the per-wallet transaction cache.
type TxCacheConfig struct {
	TTLMinutes int `yaml:"ttlMinutes"`
}

// PreferencesConfig holds configuration for the persisted preference store.
type PreferencesConfig struct {
	Path string `yaml:"path"`
}

// NotificationsConfig holds configuration for the notification center.
type NotificationsConfig struct {
	BufferSize int `yaml:"bufferSize"`
}

// SwaggerConfig holds configuration for Swagger UI.
type SwaggerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
		logrus.Infof("Server port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/satotrack.db"
		logrus.Infof("Database path not set, defaulting to %s", cfg.Database.Path)
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 4
	}
	if cfg.Database.PingTimeoutSeconds == 0 {
		cfg.Database.PingTimeoutSeconds = 5
	}
	if cfg.Explorer.RequestTimeoutMillis == 0 {
		cfg.Explorer.RequestTimeoutMillis = 10000 // Default to 10 seconds
		logrus.Infof("Explorer.RequestTimeoutMillis not set, defaulting to %d ms", cfg.Explorer.RequestTimeoutMillis)
	}
	if cfg.Explorer.RateLimit == 0 {
		cfg.Explorer.RateLimit = 5
	}
	if cfg.Explorer.BurstLimit == 0 {
		cfg.Explorer.BurstLimit = 10
	}
	if cfg.RPC.ConnectionTimeoutSeconds == 0 {
		cfg.RPC.ConnectionTimeoutSeconds = 10
	}
	if cfg.RPC.CallTimeoutSeconds == 0 {
		cfg.RPC.CallTimeoutSeconds = 15
	}
	if cfg.Realtime.HandshakeTimeoutMillis == 0 {
		cfg.Realtime.HandshakeTimeoutMillis = 10000
	}
	if cfg.AutoRefresh.MaxConcurrent == 0 {
		cfg.AutoRefresh.MaxConcurrent = 4
	}
	if cfg.TxCache.TTLMinutes == 0 {
		cfg.TxCache.TTLMinutes = 30
		logrus.Infof("TxCache.TTLMinutes not set, defaulting to %d minutes", cfg.TxCache.TTLMinutes)
	}
	if cfg.Preferences.Path == "" {
		cfg.Preferences.Path = "data/preferences.yaml"
	}
	if cfg.Notifications.BufferSize == 0 {
		cfg.Notifications.BufferSize = 100
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}
