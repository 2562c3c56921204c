package app

import (
	"time"

	"cardsagainst/internal/domain"
)

// Observer receives every lobby event addressed to one player.
type Observer interface {
	OwnerChanged(owner *Player)
	PlayerJoined(p *Player)
	PlayerLeft(p *Player)
	PlayerConnected(p *Player)
	PlayerDisconnected(p *Player)
	GameStarted(hand []domain.PunchlineCard)
	// TurnStarted carries card only when one was drawn to top up the hand.
	TurnStarted(setup domain.SetupCard, turnDuration time.Duration, lead *Player, turnCount int, card *domain.PunchlineCard)
	PlayerReady(p *Player)
	TableCardOpened(index int, entry *CardOnTable)
	TurnEnded(winner *Player, card domain.PunchlineCard)
	AllPlayersReady()
	GameFinished(winner *Player)
	Welcome()
	HandRefreshed(hand []domain.PunchlineCard)
	PlayerScoreChanged(p *Player)
}

// NopObserver drops every event. Disconnected players hold one.
type NopObserver struct{}

func (NopObserver) OwnerChanged(*Player)                    {}
func (NopObserver) PlayerJoined(*Player)                    {}
func (NopObserver) PlayerLeft(*Player)                      {}
func (NopObserver) PlayerConnected(*Player)                 {}
func (NopObserver) PlayerDisconnected(*Player)              {}
func (NopObserver) GameStarted([]domain.PunchlineCard)      {}
func (NopObserver) PlayerReady(*Player)                     {}
func (NopObserver) TableCardOpened(int, *CardOnTable)       {}
func (NopObserver) TurnEnded(*Player, domain.PunchlineCard) {}
func (NopObserver) AllPlayersReady()                        {}
func (NopObserver) GameFinished(*Player)                    {}
func (NopObserver) Welcome()                                {}
func (NopObserver) HandRefreshed([]domain.PunchlineCard)    {}
func (NopObserver) PlayerScoreChanged(*Player)              {}
func (NopObserver) TurnStarted(domain.SetupCard, time.Duration, *Player, int, *domain.PunchlineCard) {
}
