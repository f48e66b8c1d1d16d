package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config carries every tunable of the service. All values come from the
// environment (GOSSIP_* variables) with sensible defaults for local runs.
type Config struct {
	Server    ServerConfig
	Multicast MulticastConfig
	Translate TranslateConfig
}

type ServerConfig struct {
	ListenAddr       string
	Workers          int
	QueueSize        int
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	AckTimeout       time.Duration
}

type MulticastConfig struct {
	BaseAddr string
	Port     int
	TTL      int
}

type TranslateConfig struct {
	BaseURL string
	Enabled bool
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("LISTEN_ADDR", ":8000")
	v.SetDefault("WORKERS", 8)
	v.SetDefault("QUEUE_SIZE", 256)
	v.SetDefault("HANDSHAKE_TIMEOUT", time.Second)
	v.SetDefault("READ_TIMEOUT", 50*time.Millisecond)
	v.SetDefault("ACK_TIMEOUT", 3*time.Second)
	v.SetDefault("MULTICAST_BASE", "225.0.0.0")
	v.SetDefault("MULTICAST_PORT", 7080)
	v.SetDefault("MULTICAST_TTL", 1)
	v.SetDefault("TRANSLATE_URL", "https://api.mymemory.translated.net")
	v.SetDefault("TRANSLATE_ENABLED", true)

	v.SetEnvPrefix("GOSSIP")
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			ListenAddr:       v.GetString("LISTEN_ADDR"),
			Workers:          v.GetInt("WORKERS"),
			QueueSize:        v.GetInt("QUEUE_SIZE"),
			HandshakeTimeout: v.GetDuration("HANDSHAKE_TIMEOUT"),
			ReadTimeout:      v.GetDuration("READ_TIMEOUT"),
			AckTimeout:       v.GetDuration("ACK_TIMEOUT"),
		},
		Multicast: MulticastConfig{
			BaseAddr: v.GetString("MULTICAST_BASE"),
			Port:     v.GetInt("MULTICAST_PORT"),
			TTL:      v.GetInt("MULTICAST_TTL"),
		},
		Translate: TranslateConfig{
			BaseURL: v.GetString("TRANSLATE_URL"),
			Enabled: v.GetBool("TRANSLATE_ENABLED"),
		},
	}
	return cfg, nil
}
