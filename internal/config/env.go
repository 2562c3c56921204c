package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env is the process configuration read from the Nakama runtime environment.
type Env struct {
	GameConfigPath string        `env:"CARDSAGAINST_GAME_CONFIG" envDefault:"data/game_config.json"`
	DBPath         string        `env:"CARDSAGAINST_DB_PATH" envDefault:"data/cardsagainst.db"`
	TicketSecret   string        `env:"CARDSAGAINST_TICKET_SECRET"`
	TicketIssuer   string        `env:"CARDSAGAINST_TICKET_ISSUER" envDefault:"cardsagainst"`
	TicketTTL      time.Duration `env:"CARDSAGAINST_TICKET_TTL" envDefault:"2m"`
	OTelEnabled    bool          `env:"CARDSAGAINST_OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string        `env:"CARDSAGAINST_OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseEnvMap loads configuration from vars instead of the process
// environment. Nakama hands runtime modules their env this way.
func ParseEnvMap(target any, vars map[string]string) error {
	if err := env.ParseWithOptions(target, env.Options{Environment: vars}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
