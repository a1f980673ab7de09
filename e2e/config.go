package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// CHAT_SERVER_ADDR points at an already-running server; leave empty to
	// boot an in-process one on a random port.
	ServerAddr string `envconfig:"CHAT_SERVER_ADDR"`
	AdminLogin string `envconfig:"E2E_ADMIN_LOGIN" default:"root"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
