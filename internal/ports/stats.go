package ports

import (
	"context"
	"time"
)

// GameStats is the record written when a game starts.
type GameStats struct {
	GameID       string
	LobbyID      string
	DeckID       string
	PlayerCount  int
	WinningScore int
	TurnDuration time.Duration // zero when the game has no turn timer
	HandSize     int
	StartedAt    time.Time
}

// GameStatsStore persists game statistics.
type GameStatsStore interface {
	// RecordGameStarted stores one started game. Failures must not affect the running game.
	RecordGameStarted(ctx context.Context, stats GameStats) error
}
