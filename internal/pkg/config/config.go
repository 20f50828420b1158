package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Microtemp *MicrotempConfig
	Mqtt      *MqttConfig
	Database  *DatabaseConfig

	LogLevel          string        `env:"LOG_LEVEL" envDefault:"INFO"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"400ms"`
	RefreshSchedule   string        `env:"REFRESH_SCHEDULE" envDefault:"*/30 * * * *"`
	StatusAddr        string        `env:"STATUS_ADDR" envDefault:"0.0.0.0:8000"`
}

type MicrotempConfig struct {
	BaseURL     string        `env:"MICROTEMP_BASE_URL" envDefault:"https://min.microtemp.no"`
	Username    string        `env:"MICROTEMP_USERNAME"`
	Password    string        `env:"MICROTEMP_PASSWORD"`
	FeedTimeout time.Duration `env:"MICROTEMP_FEED_TIMEOUT" envDefault:"15m"`
}

type MqttConfig struct {
	Host            string `env:"MQTT_HOST"`
	Port            int    `env:"MQTT_PORT" envDefault:"1883"`
	Username        string `env:"MQTT_USER"`
	Password        string `env:"MQTT_PASS"`
	ClientID        string `env:"MQTT_CLIENT_ID" envDefault:"microtemp-gateway"`
	DiscoveryPrefix string `env:"DISCOVERY_PREFIX" envDefault:"homeassistant"`
}

// DatabaseConfig is optional; an empty URL disables the state-history sink.
type DatabaseConfig struct {
	URL              string `env:"DATABASE_URL"`
	MigrationsFolder string `env:"MIGRATIONS_FOLDER" envDefault:"migrations"`
}

// FromEnv loads configuration from the environment. CLI flags parsed in cmd
// override individual values afterwards.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Microtemp: &MicrotempConfig{},
		Mqtt:      &MqttConfig{},
		Database:  &DatabaseConfig{},
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
