package domain

import (
	"fmt"
	"time"
)

const (
	// DefaultHandSize is the number of punchline cards every player holds.
	DefaultHandSize = 10
	// DefaultFinishDelay is the pause between the winning pick and the finished state.
	DefaultFinishDelay = 5 * time.Second
	// DefaultStartTurnDelay is the pause between a pick and the next turn.
	DefaultStartTurnDelay = 5 * time.Second
)

// LobbySettings configures one game. It is immutable once the game starts.
type LobbySettings struct {
	TurnDuration   time.Duration // zero disables the turn timer
	WinningScore   int
	FinishDelay    time.Duration
	StartTurnDelay time.Duration
	HandSize       int
}

// DefaultLobbySettings returns settings with the stock delays and hand size.
func DefaultLobbySettings(winningScore int) LobbySettings {
	return LobbySettings{
		WinningScore:   winningScore,
		FinishDelay:    DefaultFinishDelay,
		StartTurnDelay: DefaultStartTurnDelay,
		HandSize:       DefaultHandSize,
	}
}

// Validate reports whether the settings can run a game.
func (s LobbySettings) Validate() error {
	switch {
	case s.WinningScore < 1:
		return fmt.Errorf("%w: winning score must be positive, got %d", ErrInvalidSettings, s.WinningScore)
	case s.HandSize < 1:
		return fmt.Errorf("%w: hand size must be positive, got %d", ErrInvalidSettings, s.HandSize)
	case s.TurnDuration < 0, s.FinishDelay < 0, s.StartTurnDelay < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidSettings)
	}
	return nil
}
