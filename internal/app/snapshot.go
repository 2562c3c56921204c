package app

import (
	"time"

	"cardsagainst/internal/domain"
)

// LobbySnapshot is everything a freshly connected client needs to render the lobby.
type LobbySnapshot struct {
	LobbyID      string
	Phase        domain.Phase
	TurnCount    int
	Players      []PlayerView
	Table        []TableView
	Hand         []domain.PunchlineCard
	Setup        *domain.SetupCard
	TurnDuration time.Duration
	LeadUUID     string
	OwnerUUID    string
	SelfUUID     string
	WinnerUUID   string
	SelectedCard *domain.PunchlineCard
}

// TableView hides the card of an entry until the lead opens it.
type TableView struct {
	Open bool
	Card *domain.PunchlineCard
}

// Snapshot renders the lobby as viewer sees it.
func (l *Lobby) Snapshot(viewer *Player) LobbySnapshot {
	snap := LobbySnapshot{
		LobbyID:   l.ID,
		Phase:     l.state.phase,
		TurnCount: l.turnCount,
		SelfUUID:  viewer.UUID,
		Hand:      viewer.Hand(),
	}
	for _, p := range l.AllPlayers() {
		snap.Players = append(snap.Players, viewOf(p))
	}
	for _, entry := range l.table {
		view := TableView{Open: entry.Open}
		if entry.Open {
			card := entry.Card
			view.Card = &card
		}
		snap.Table = append(snap.Table, view)
	}
	if setup, ok := l.Setup(); ok {
		snap.Setup = &setup
	}
	if l.game != nil {
		snap.TurnDuration = l.game.Settings.TurnDuration
	}
	if l.lead != nil {
		snap.LeadUUID = l.lead.UUID
	}
	if l.owner != nil {
		snap.OwnerUUID = l.owner.UUID
	}
	if l.state.winner != nil {
		snap.WinnerUUID = l.state.winner.UUID
	}
	if entry := l.CardOnTableOf(viewer); entry != nil {
		card := entry.Card
		snap.SelectedCard = &card
	}
	return snap
}
