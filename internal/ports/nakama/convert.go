package nakama

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cardsagainst/internal/app"
	"cardsagainst/internal/domain"
)

// Wire types. Field names follow the web client, which expects camelCase.

type wireSetup struct {
	ID                  int    `json:"id"`
	Text                string `json:"text"`
	Case                string `json:"case"`
	StartsWithPunchline bool   `json:"startsWithPunchline"`
}

type wirePunchline struct {
	ID   int                    `json:"id"`
	Text []domain.PunchlineText `json:"text"`
}

type wirePlayer struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Score       int    `json:"score"`
	IsReady     bool   `json:"isReady"`
	IsConnected bool   `json:"isConnected"`
}

type wireTableCard struct {
	IsOpen bool           `json:"isOpen"`
	Card   *wirePunchline `json:"card,omitempty"`
}

type ownerChangedEvent struct {
	OwnerUUID string `json:"ownerUuid"`
}

type playerEvent struct {
	Player wirePlayer `json:"player"`
}

type handEvent struct {
	Hand []wirePunchline `json:"hand"`
}

type turnStartedEvent struct {
	Setup        wireSetup      `json:"setup"`
	TurnDuration int64          `json:"turnDuration"` // seconds, 0 without timer
	LeadUUID     string         `json:"leadUuid"`
	TurnCount    int            `json:"turnCount"`
	Card         *wirePunchline `json:"card,omitempty"`
}

type tableCardOpenedEvent struct {
	Index int           `json:"index"`
	Card  wirePunchline `json:"card"`
}

type turnEndedEvent struct {
	Winner wirePlayer    `json:"winner"`
	Card   wirePunchline `json:"card"`
}

type gameFinishedEvent struct {
	Winner wirePlayer `json:"winner"`
}

type welcomeEvent struct {
	LobbyID      string          `json:"lobbyId"`
	State        string          `json:"state"`
	TurnCount    int             `json:"turnCount"`
	Players      []wirePlayer    `json:"players"`
	Table        []wireTableCard `json:"table"`
	Hand         []wirePunchline `json:"hand"`
	Setup        *wireSetup      `json:"setup,omitempty"`
	TurnDuration int64           `json:"turnDuration"` // seconds
	LeadUUID     string          `json:"leadUuid,omitempty"`
	OwnerUUID    string          `json:"ownerUuid,omitempty"`
	SelfUUID     string          `json:"selfUuid"`
	WinnerUUID   string          `json:"winnerUuid,omitempty"`
	SelectedCard *wirePunchline  `json:"selectedCard,omitempty"`
}

type gameErrorEvent struct {
	Code    int    `json:"code"`
	Class   string `json:"class"`
	Message string `json:"message"`
}

// Client messages.

type startGameMessage struct {
	DeckID       string `json:"deckId"`
	WinningScore int    `json:"winningScore"`
	// TurnDuration in seconds; nil keeps the configured default, 0 disables the timer.
	TurnDuration *int `json:"turnDuration"`
}

type cardMessage struct {
	CardID int `json:"cardId"`
}

type tableIndexMessage struct {
	Index int `json:"index"`
}

func toWireSetup(c domain.SetupCard) wireSetup {
	return wireSetup{
		ID:                  c.ID,
		Text:                c.Text,
		Case:                string(c.Case),
		StartsWithPunchline: c.StartsWithPunchline,
	}
}

func toWirePunchline(c domain.PunchlineCard) wirePunchline {
	text := c.Text
	if text == nil {
		text = []domain.PunchlineText{}
	}
	return wirePunchline{ID: c.ID, Text: text}
}

func toWirePunchlinePtr(c *domain.PunchlineCard) *wirePunchline {
	if c == nil {
		return nil
	}
	w := toWirePunchline(*c)
	return &w
}

func toWirePunchlines(cards []domain.PunchlineCard) []wirePunchline {
	out := make([]wirePunchline, 0, len(cards))
	for _, c := range cards {
		out = append(out, toWirePunchline(c))
	}
	return out
}

func toWirePlayer(v app.PlayerView) wirePlayer {
	return wirePlayer{
		UUID:        v.UUID,
		Name:        v.Name,
		Emoji:       v.Emoji,
		Score:       v.Score,
		IsReady:     v.Ready,
		IsConnected: v.Connected,
	}
}

func toWelcome(s app.LobbySnapshot) welcomeEvent {
	ev := welcomeEvent{
		LobbyID:      s.LobbyID,
		State:        string(s.Phase),
		TurnCount:    s.TurnCount,
		Players:      make([]wirePlayer, 0, len(s.Players)),
		Table:        make([]wireTableCard, 0, len(s.Table)),
		Hand:         toWirePunchlines(s.Hand),
		TurnDuration: int64(s.TurnDuration / time.Second),
		LeadUUID:     s.LeadUUID,
		OwnerUUID:    s.OwnerUUID,
		SelfUUID:     s.SelfUUID,
		WinnerUUID:   s.WinnerUUID,
		SelectedCard: toWirePunchlinePtr(s.SelectedCard),
	}
	for _, p := range s.Players {
		ev.Players = append(ev.Players, toWirePlayer(p))
	}
	for _, t := range s.Table {
		ev.Table = append(ev.Table, wireTableCard{IsOpen: t.Open, Card: toWirePunchlinePtr(t.Card)})
	}
	if s.Setup != nil {
		setup := toWireSetup(*s.Setup)
		ev.Setup = &setup
	}
	return ev
}

// encodeEvent maps a queued lobby event onto its op code and JSON body.
func encodeEvent(ev app.Event) (int64, []byte, error) {
	var (
		op   int64
		body any
	)
	switch ev.Kind {
	case app.EventOwnerChanged:
		p := ev.Payload.(app.OwnerChangedPayload)
		op, body = OpOwnerChanged, ownerChangedEvent{OwnerUUID: p.OwnerUUID}
	case app.EventPlayerJoined:
		op, body = OpPlayerJoined, playerEvent{Player: toWirePlayer(ev.Payload.(app.PlayerPayload).Player)}
	case app.EventPlayerLeft:
		op, body = OpPlayerLeft, playerEvent{Player: toWirePlayer(ev.Payload.(app.PlayerPayload).Player)}
	case app.EventPlayerConnected:
		op, body = OpPlayerConnected, playerEvent{Player: toWirePlayer(ev.Payload.(app.PlayerPayload).Player)}
	case app.EventPlayerDisconnected:
		op, body = OpPlayerDisconnected, playerEvent{Player: toWirePlayer(ev.Payload.(app.PlayerPayload).Player)}
	case app.EventPlayerReady:
		op, body = OpPlayerReady, playerEvent{Player: toWirePlayer(ev.Payload.(app.PlayerPayload).Player)}
	case app.EventPlayerScoreChanged:
		op, body = OpPlayerScoreChanged, playerEvent{Player: toWirePlayer(ev.Payload.(app.PlayerPayload).Player)}
	case app.EventGameStarted:
		op, body = OpGameStarted, handEvent{Hand: toWirePunchlines(ev.Payload.(app.HandPayload).Hand)}
	case app.EventHandRefreshed:
		op, body = OpHandRefreshed, handEvent{Hand: toWirePunchlines(ev.Payload.(app.HandPayload).Hand)}
	case app.EventTurnStarted:
		p := ev.Payload.(app.TurnStartedPayload)
		op, body = OpTurnStarted, turnStartedEvent{
			Setup:        toWireSetup(p.Setup),
			TurnDuration: int64(p.TurnDuration / time.Second),
			LeadUUID:     p.LeadUUID,
			TurnCount:    p.TurnCount,
			Card:         toWirePunchlinePtr(p.Card),
		}
	case app.EventTableCardOpened:
		p := ev.Payload.(app.TableCardOpenedPayload)
		op, body = OpTableCardOpened, tableCardOpenedEvent{Index: p.Index, Card: toWirePunchline(p.Card)}
	case app.EventTurnEnded:
		p := ev.Payload.(app.TurnEndedPayload)
		op, body = OpTurnEnded, turnEndedEvent{Winner: toWirePlayer(p.Winner), Card: toWirePunchline(p.Card)}
	case app.EventAllPlayersReady:
		op, body = OpAllPlayersReady, struct{}{}
	case app.EventGameFinished:
		op, body = OpGameFinished, gameFinishedEvent{Winner: toWirePlayer(ev.Payload.(app.GameFinishedPayload).Winner)}
	case app.EventWelcome:
		op, body = OpWelcome, toWelcome(ev.Payload.(app.WelcomePayload).Snapshot)
	default:
		return 0, nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s: %w", ev.Kind, err)
	}
	return op, data, nil
}

// errorCode maps an engine error class onto the status code sent to clients.
func errorCode(class domain.ErrorClass) int {
	switch class {
	case domain.ClassAuthorization:
		return http.StatusForbidden
	case domain.ClassPrecondition:
		return http.StatusConflict
	case domain.ClassLookup:
		return http.StatusNotFound
	case domain.ClassProtocol:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
