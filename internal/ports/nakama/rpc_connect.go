package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"cardsagainst/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Runtime error codes, as gRPC status codes.
const (
	codeInvalidArgument = 3
	codeNotFound        = 5
	codeInternal        = 13
)

type connectRequest struct {
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	LobbyToken  string `json:"lobbyToken"`
	PlayerToken string `json:"playerToken"`
}

// ConnectResponse tells the client which match to join and with which ticket.
type ConnectResponse struct {
	LobbyToken  string `json:"lobbyToken"`
	MatchID     string `json:"matchId"`
	PlayerToken string `json:"playerToken"`
	PlayerUUID  string `json:"playerUuid"`
	Ticket      string `json:"ticket"`
}

// rpcConnect creates a lobby when no lobby token is given, seats the caller
// (or looks up a returning player by token) and issues a join ticket.
func (d *runtimeDeps) rpcConnect(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req connectRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", codeInvalidArgument)
	}
	if req.PlayerToken == "" && strings.TrimSpace(req.Name) == "" {
		return "", runtime.NewError("Name required", codeInvalidArgument)
	}

	lobbyToken := req.LobbyToken
	var matchID string
	if lobbyToken == "" {
		if req.PlayerToken != "" {
			return "", runtime.NewError("Lobby token required", codeInvalidArgument)
		}
		var err error
		lobbyToken, matchID, err = d.createLobby(ctx, nk)
		if err != nil {
			logger.Error("MatchCreate error: %v", err)
			return "", runtime.NewError("Internal error", codeInternal)
		}
	} else {
		// An empty id is a reservation whose match is still being created.
		id, ok := d.lobbies.Get(lobbyToken)
		if !ok || id == "" {
			return "", runtime.NewError("Lobby not found", codeNotFound)
		}
		matchID = id
	}

	signal, _ := json.Marshal(seatSignal{
		Name:        strings.TrimSpace(req.Name),
		Emoji:       req.Emoji,
		PlayerToken: req.PlayerToken,
	})
	raw, err := nk.MatchSignal(ctx, matchID, string(signal))
	if err != nil {
		// The match ended between lookup and signal.
		logger.Warn("MatchSignal %s error: %v", matchID, err)
		d.lobbies.Evict(lobbyToken)
		return "", runtime.NewError("Lobby not found", codeNotFound)
	}
	var seated seatResult
	if err := json.Unmarshal([]byte(raw), &seated); err != nil {
		logger.Error("MatchSignal %s returned %q: %v", matchID, raw, err)
		return "", runtime.NewError("Internal error", codeInternal)
	}
	if seated.Error != "" {
		return "", runtime.NewError(seated.Error, seated.Code)
	}

	ticket, err := d.tickets.Issue(app.Ticket{LobbyID: lobbyToken, PlayerToken: seated.PlayerToken})
	if err != nil {
		logger.Error("Failed to issue ticket: %v", err)
		return "", runtime.NewError("Internal error", codeInternal)
	}

	b, _ := json.Marshal(ConnectResponse{
		LobbyToken:  lobbyToken,
		MatchID:     matchID,
		PlayerToken: seated.PlayerToken,
		PlayerUUID:  seated.PlayerUUID,
		Ticket:      ticket,
	})
	return string(b), nil
}

// createLobby reserves a fresh lobby token before the match exists, so two
// RPCs can never end up sharing one.
func (d *runtimeDeps) createLobby(ctx context.Context, nk runtime.NakamaModule) (string, string, error) {
	token := newLobbyToken()
	for !d.lobbies.Add(token, "") {
		token = newLobbyToken()
	}
	matchID, err := nk.MatchCreate(ctx, MatchNameLobby, map[string]interface{}{paramLobbyToken: token})
	if err != nil {
		d.lobbies.Evict(token)
		return "", "", err
	}
	d.lobbies.Set(token, matchID)
	return token, matchID, nil
}
