package internal

import (
	"event-bridge/errors"
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	SocketURL           string        `env:"BRIDGE_SOCKET_URL"`
	PageOrigin          string        `env:"BRIDGE_PAGE_ORIGIN"`
	SocketPath          string        `env:"BRIDGE_SOCKET_PATH,default=/ws/events" validate:"startswith=/"`
	SocketFallbackPort  int           `env:"BRIDGE_SOCKET_FALLBACK_PORT,default=8765" validate:"min=1,max=65535"`
	SessionScope        string        `env:"BRIDGE_SESSION_SCOPE"`
	ParticipantID       string        `env:"BRIDGE_PARTICIPANT_ID"`
	ReconnectBaseDelay  time.Duration `env:"BRIDGE_RECONNECT_BASE_DELAY,default=1s" validate:"gt=0"`
	ReconnectMaxDelay   time.Duration `env:"BRIDGE_RECONNECT_MAX_DELAY,default=30s" validate:"gtefield=ReconnectBaseDelay"`
	DialTimeout         time.Duration `env:"BRIDGE_DIAL_TIMEOUT,default=10s" validate:"gt=0"`
	DebounceDelay       time.Duration `env:"BRIDGE_DEBOUNCE_DELAY,default=150ms" validate:"gt=0"`
	HistoryCapacity     int           `env:"BRIDGE_HISTORY_CAPACITY,default=200" validate:"min=1"`
	DebugPort           int           `env:"BRIDGE_DEBUG_PORT,default=0" validate:"min=0,max=65535"`
	LogLevel            string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	RestartInterval     time.Duration `env:"RESTART_INTERVAL,default=2s" validate:"gt=0"`
	ShutdownGracePeriod time.Duration `env:"BRIDGE_SHUTDOWN_GRACE_PERIOD,default=5s" validate:"gt=0"`
}

var validate = validator.New()

// LoadConfig reads the process environment. Call godotenv.Load first to
// pick up a local .env file.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return nil
}
