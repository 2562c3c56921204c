package ports

import (
	"context"

	"cardsagainst/internal/domain"
)

// CardSource materializes the decks a game is played with.
type CardSource interface {
	// GetSetups returns a fresh, shuffled setup deck for deckID.
	GetSetups(ctx context.Context, deckID string) (*domain.Deck[domain.SetupCard], error)
	// GetPunchlines returns a fresh, shuffled punchline deck for deckID.
	GetPunchlines(ctx context.Context, deckID string) (*domain.Deck[domain.PunchlineCard], error)
}
