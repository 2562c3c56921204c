package app

import (
	"time"

	"cardsagainst/internal/domain"
)

var _ Observer = (*Outbox)(nil)

// Outbox is an Observer that queues events for one player until the transport
// drains them.
type Outbox struct {
	player *Player
	events []Event
}

// NewOutbox returns an outbox for p. Welcome snapshots are taken from p's lobby.
func NewOutbox(p *Player) *Outbox {
	return &Outbox{player: p}
}

// Drain returns the queued events and empties the outbox.
func (o *Outbox) Drain() []Event {
	events := o.events
	o.events = nil
	return events
}

// Len is the number of queued events.
func (o *Outbox) Len() int { return len(o.events) }

func (o *Outbox) push(kind EventKind, payload any) {
	o.events = append(o.events, Event{Kind: kind, Payload: payload})
}

func (o *Outbox) OwnerChanged(owner *Player) {
	var id string
	if owner != nil {
		id = owner.UUID
	}
	o.push(EventOwnerChanged, OwnerChangedPayload{OwnerUUID: id})
}

func (o *Outbox) PlayerJoined(p *Player) {
	o.push(EventPlayerJoined, PlayerPayload{Player: viewOf(p)})
}

func (o *Outbox) PlayerLeft(p *Player) {
	o.push(EventPlayerLeft, PlayerPayload{Player: viewOf(p)})
}

func (o *Outbox) PlayerConnected(p *Player) {
	o.push(EventPlayerConnected, PlayerPayload{Player: viewOf(p)})
}

func (o *Outbox) PlayerDisconnected(p *Player) {
	o.push(EventPlayerDisconnected, PlayerPayload{Player: viewOf(p)})
}

func (o *Outbox) GameStarted(hand []domain.PunchlineCard) {
	o.push(EventGameStarted, HandPayload{Hand: hand})
}

func (o *Outbox) TurnStarted(setup domain.SetupCard, turnDuration time.Duration, lead *Player, turnCount int, card *domain.PunchlineCard) {
	payload := TurnStartedPayload{
		Setup:        setup,
		TurnDuration: turnDuration,
		TurnCount:    turnCount,
		Card:         card,
	}
	if lead != nil {
		payload.LeadUUID = lead.UUID
	}
	o.push(EventTurnStarted, payload)
}

func (o *Outbox) PlayerReady(p *Player) {
	o.push(EventPlayerReady, PlayerPayload{Player: viewOf(p)})
}

func (o *Outbox) TableCardOpened(index int, entry *CardOnTable) {
	o.push(EventTableCardOpened, TableCardOpenedPayload{Index: index, Card: entry.Card})
}

func (o *Outbox) TurnEnded(winner *Player, card domain.PunchlineCard) {
	o.push(EventTurnEnded, TurnEndedPayload{Winner: viewOf(winner), Card: card})
}

func (o *Outbox) AllPlayersReady() {
	o.push(EventAllPlayersReady, nil)
}

func (o *Outbox) GameFinished(winner *Player) {
	o.push(EventGameFinished, GameFinishedPayload{Winner: viewOf(winner)})
}

func (o *Outbox) Welcome() {
	lobby := o.player.Lobby()
	if lobby == nil {
		return
	}
	o.push(EventWelcome, WelcomePayload{Snapshot: lobby.Snapshot(o.player)})
}

func (o *Outbox) HandRefreshed(hand []domain.PunchlineCard) {
	o.push(EventHandRefreshed, HandPayload{Hand: hand})
}

func (o *Outbox) PlayerScoreChanged(p *Player) {
	o.push(EventPlayerScoreChanged, PlayerPayload{Player: viewOf(p)})
}
