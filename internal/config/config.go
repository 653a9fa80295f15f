package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Portal  PortalConfig  `envPrefix:"PORTAL_"`
	Session SessionConfig `envPrefix:"SESSION_"`
	Chat    ChatConfig    `envPrefix:"CHAT_"`
	Server  ServerConfig  `envPrefix:"SERVER_"`
}

// PortalConfig points the client at the campus portal backend.
type PortalConfig struct {
	BaseURL   string `env:"BASE_URL" envDefault:"http://localhost:8000/api"`
	WSBaseURL string `env:"WS_BASE_URL" envDefault:"ws://localhost:8000"`
}

// SessionConfig carries the identity of the signed-in user. Authentication
// happens elsewhere; the chat core only consumes the result.
type SessionConfig struct {
	UserID   string `env:"USER_ID" envDefault:"u-local"`
	UserName string `env:"USER_NAME" envDefault:"Local User"`
}

type ChatConfig struct {
	HistoryLimit int           `env:"HISTORY_LIMIT" envDefault:"100"`
	StagingDir   string        `env:"STAGING_DIR"`
	TypingQuiet  time.Duration `env:"TYPING_QUIET" envDefault:"1500ms"`
	TypingSlack  time.Duration `env:"TYPING_SLACK" envDefault:"2s"`
}

// ServerConfig configures the embedded development server (`quickchat serve`).
type ServerConfig struct {
	Addr string `env:"ADDR" envDefault:":8000"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
