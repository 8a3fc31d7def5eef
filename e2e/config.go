package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_URL points at a running server; tests are skipped when unset
	ServerURL string `envconfig:"E2E_SERVER_URL"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_DEBUG_FRAMES dumps every frame sent and received
	DebugFrames bool   `envconfig:"E2E_DEBUG_FRAMES" default:"false"`
	Room        string `envconfig:"E2E_ROOM" default:"e2e-room"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
