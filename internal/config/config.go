package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"cardsagainst/internal/domain"
)

// GameConfig holds the lobby defaults shipped with the module.
type GameConfig struct {
	DeckID       string `json:"deck_id"`
	HandSize     int    `json:"hand_size"`
	WinningScore int    `json:"winning_score"`
	// TurnDurationSeconds of zero disables the turn timer.
	TurnDurationSeconds   int `json:"turn_duration_seconds"`
	FinishDelaySeconds    int `json:"finish_delay_seconds"`
	StartTurnDelaySeconds int `json:"start_turn_delay_seconds"`
	// RemovalGraceSeconds is how long a disconnected player keeps its seat.
	RemovalGraceSeconds int `json:"removal_grace_seconds"`
	TickRate            int `json:"tick_rate"`
}

// Default returns the configuration used when no file is available.
func Default() GameConfig {
	return GameConfig{
		DeckID:                "base",
		HandSize:              domain.DefaultHandSize,
		WinningScore:          10,
		FinishDelaySeconds:    int(domain.DefaultFinishDelay / time.Second),
		StartTurnDelaySeconds: int(domain.DefaultStartTurnDelay / time.Second),
		RemovalGraceSeconds:   60,
		TickRate:              5,
	}
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}
		c, err := ParseGameConfig(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the loaded configuration, or Default if none was loaded.
func GetGameConfig() GameConfig {
	if cfg == nil {
		return Default()
	}
	return *cfg
}

// ParseGameConfig decodes data on top of Default, so omitted keys keep their defaults.
func ParseGameConfig(data []byte) (GameConfig, error) {
	c := Default()
	if err := json.Unmarshal(data, &c); err != nil {
		return GameConfig{}, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return GameConfig{}, err
	}
	return c, nil
}

func (c GameConfig) Validate() error {
	if c.DeckID == "" {
		return fmt.Errorf("game config: deck_id is required")
	}
	if c.TickRate < 1 || c.TickRate > 60 {
		return fmt.Errorf("game config: tick_rate must be within 1..60, got %d", c.TickRate)
	}
	if c.RemovalGraceSeconds < 0 {
		return fmt.Errorf("game config: removal_grace_seconds must not be negative")
	}
	return c.LobbySettings(0).Validate()
}

// LobbySettings converts the defaults into settings for one game.
// A non-positive winningScore falls back to the configured one.
func (c GameConfig) LobbySettings(winningScore int) domain.LobbySettings {
	if winningScore <= 0 {
		winningScore = c.WinningScore
	}
	return domain.LobbySettings{
		TurnDuration:   time.Duration(c.TurnDurationSeconds) * time.Second,
		WinningScore:   winningScore,
		FinishDelay:    time.Duration(c.FinishDelaySeconds) * time.Second,
		StartTurnDelay: time.Duration(c.StartTurnDelaySeconds) * time.Second,
		HandSize:       c.HandSize,
	}
}

func (c GameConfig) RemovalGrace() time.Duration {
	return time.Duration(c.RemovalGraceSeconds) * time.Second
}
