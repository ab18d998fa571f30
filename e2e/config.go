package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_DEBUG_JSON dumps every envelope a node receives as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_RECONNECT_DELAY keeps the reconnect cycle short on a real clock
	ReconnectDelay time.Duration `envconfig:"E2E_RECONNECT_DELAY" default:"20ms"`
	DebounceDelay  time.Duration `envconfig:"E2E_DEBOUNCE_DELAY" default:"30ms"`
	WaitTimeout    time.Duration `envconfig:"E2E_WAIT_TIMEOUT" default:"5s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
