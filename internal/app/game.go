package app

import (
	"github.com/google/uuid"

	"cardsagainst/internal/domain"
)

// Game is one run of a lobby, from start_game until the next start_game.
type Game struct {
	ID         string
	Setups     *domain.Deck[domain.SetupCard]
	Punchlines *domain.Deck[domain.PunchlineCard]
	Settings   domain.LobbySettings
	// Endless is set by ContinueGame; winning scores stop finishing the game.
	Endless bool
}

func newGame(settings domain.LobbySettings, setups *domain.Deck[domain.SetupCard], punchlines *domain.Deck[domain.PunchlineCard]) *Game {
	return &Game{
		ID:         uuid.NewString(),
		Setups:     setups,
		Punchlines: punchlines,
		Settings:   settings,
	}
}

// CardOnTable is a punchline submitted in the current round.
type CardOnTable struct {
	Card   domain.PunchlineCard
	Player *Player
	Open   bool
}
