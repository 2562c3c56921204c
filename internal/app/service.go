package app

import (
	"context"
	"fmt"
	"time"

	"cardsagainst/internal/domain"
	"cardsagainst/internal/ports"
)

// Service wires lobbies to their card source and stats store.
type Service struct {
	cards  ports.CardSource
	stats  ports.GameStatsStore
	logger ports.Logger
	now    func() time.Time
}

func NewService(cards ports.CardSource, stats ports.GameStatsStore, logger ports.Logger) *Service {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Service{
		cards:  cards,
		stats:  stats,
		logger: logger,
		now:    time.Now,
	}
}

// StartGame loads deckID and starts (or restarts) the game in p's lobby.
// A failure to record stats is logged and does not fail the start.
func (s *Service) StartGame(ctx context.Context, p *Player, settings domain.LobbySettings, deckID string) (*Game, error) {
	lobby := p.Lobby()
	if lobby == nil {
		return nil, domain.ErrUnknownPlayer
	}
	setups, err := s.cards.GetSetups(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("load setups of deck %q: %w", deckID, err)
	}
	punchlines, err := s.cards.GetPunchlines(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("load punchlines of deck %q: %w", deckID, err)
	}

	game, err := p.StartGame(settings, setups, punchlines)
	if err != nil {
		return nil, err
	}

	if s.stats != nil {
		stats := ports.GameStats{
			GameID:       game.ID,
			LobbyID:      lobby.ID,
			DeckID:       deckID,
			PlayerCount:  len(lobby.AllPlayers()),
			WinningScore: settings.WinningScore,
			TurnDuration: settings.TurnDuration,
			HandSize:     settings.HandSize,
			StartedAt:    s.now(),
		}
		if err := s.stats.RecordGameStarted(ctx, stats); err != nil {
			s.logger.Warn("lobby %s: record game %s: %v", lobby.ID, game.ID, err)
		}
	}
	return game, nil
}
