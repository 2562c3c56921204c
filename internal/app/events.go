package app

import (
	"time"

	"cardsagainst/internal/domain"
)

// EventKind identifies emitted lobby events for Nakama dispatch.
type EventKind string

const (
	EventOwnerChanged       EventKind = "owner_changed"
	EventPlayerJoined       EventKind = "player_joined"
	EventPlayerLeft         EventKind = "player_left"
	EventPlayerConnected    EventKind = "player_connected"
	EventPlayerDisconnected EventKind = "player_disconnected"
	EventGameStarted        EventKind = "game_started"
	EventTurnStarted        EventKind = "turn_started"
	EventPlayerReady        EventKind = "player_ready"
	EventTableCardOpened    EventKind = "table_card_opened"
	EventTurnEnded          EventKind = "turn_ended"
	EventAllPlayersReady    EventKind = "all_players_ready"
	EventGameFinished       EventKind = "game_finished"
	EventWelcome            EventKind = "welcome"
	EventHandRefreshed      EventKind = "hand_refreshed"
	EventPlayerScoreChanged EventKind = "player_score_changed"
)

// Event is a lobby event captured for one recipient. Payloads are values, so a
// queued event does not change when the lobby moves on.
type Event struct {
	Kind    EventKind
	Payload any
}

// PlayerView is a player as other players see it.
type PlayerView struct {
	UUID      string
	Name      string
	Emoji     string
	Score     int
	Ready     bool
	Connected bool
}

func viewOf(p *Player) PlayerView {
	return PlayerView{
		UUID:      p.UUID,
		Name:      p.Name,
		Emoji:     p.Emoji,
		Score:     p.score,
		Ready:     p.ready,
		Connected: p.connected,
	}
}

type OwnerChangedPayload struct {
	OwnerUUID string // empty when nobody is connected
}

type PlayerPayload struct {
	Player PlayerView
}

type HandPayload struct {
	Hand []domain.PunchlineCard
}

type TurnStartedPayload struct {
	Setup        domain.SetupCard
	TurnDuration time.Duration
	LeadUUID     string
	TurnCount    int
	Card         *domain.PunchlineCard
}

type TableCardOpenedPayload struct {
	Index int
	Card  domain.PunchlineCard
}

type TurnEndedPayload struct {
	Winner PlayerView
	Card   domain.PunchlineCard
}

type GameFinishedPayload struct {
	Winner PlayerView
}

type WelcomePayload struct {
	Snapshot LobbySnapshot
}
