package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cardsagainst/internal/app"
	"cardsagainst/internal/config"
	"cardsagainst/internal/domain"
	"cardsagainst/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const paramLobbyToken = "lobbyToken"

// runtimeDeps is shared by the connect RPC and every lobby match of the module.
type runtimeDeps struct {
	cfg       config.GameConfig
	service   *app.Service
	changelog ports.ChangelogSource
	tickets   *app.TicketService
	lobbies   *app.Registry[string, string] // lobby token -> match id
	tracer    trace.Tracer
	now       func() time.Time
}

func newRuntimeDeps(cfg config.GameConfig, cards ports.CardSource, stats ports.GameStatsStore, changelog ports.ChangelogSource, tickets *app.TicketService, logger ports.Logger) *runtimeDeps {
	return &runtimeDeps{
		cfg:       cfg,
		service:   app.NewService(cards, stats, logger),
		changelog: changelog,
		tickets:   tickets,
		lobbies:   app.NewRegistry[string, string](),
		tracer:    otel.Tracer(ServiceName),
		now:       time.Now,
	}
}

// seat is the live socket of a connected player.
type seat struct {
	presence runtime.Presence
	outbox   *app.Outbox
}

// MatchState holds the authoritative runtime state for one lobby match.
// The lobby is created when the first player is seated, who becomes its owner.
type MatchState struct {
	LobbyToken string
	Lobby      *app.Lobby
	Timers     *app.TimerQueue
	Evictor    *app.Evictor

	Seats   map[*app.Player]*seat
	Players map[string]*app.Player // user id -> player
	joining map[string]string      // user id -> player token, between join attempt and join

	label  string
	closed bool
}

// seatSignal is the MatchSignal payload sent by the connect RPC.
type seatSignal struct {
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	PlayerToken string `json:"playerToken,omitempty"`
}

type seatResult struct {
	PlayerToken string `json:"playerToken,omitempty"`
	PlayerUUID  string `json:"playerUuid,omitempty"`
	Error       string `json:"error,omitempty"`
	Code        int    `json:"code,omitempty"` // runtime error code when Error is set
}

type matchHandler struct {
	deps *runtimeDeps
}

func newLobbyToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	token, _ := params[paramLobbyToken].(string)
	if token == "" {
		token = newLobbyToken()
	}

	timers := app.NewTimerQueue(mh.deps.now())
	state := &MatchState{
		LobbyToken: token,
		Timers:     timers,
		Evictor:    app.NewEvictor(timers, mh.deps.cfg.RemovalGrace(), logger),
		Seats:      make(map[*app.Player]*seat),
		Players:    make(map[string]*app.Player),
		joining:    make(map[string]string),
	}
	state.Evictor.OnEvicted(func(l *app.Lobby, p *app.Player) {
		delete(state.Seats, p)
		if l.Empty() {
			logger.Info("MatchInit: lobby %s is empty, closing.", l.ID)
			state.closed = true
		}
	})

	label, err := buildLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to build label: %v", err)
	}
	state.label = label

	logger.Debug("MatchInit: lobby %s created.", token)
	return state, mh.deps.cfg.TickRate, label
}

// MatchSignal seats a player on behalf of the connect RPC. A known player token
// is answered with the same player so the RPC can issue a fresh ticket.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	s, ok := state.(*MatchState)
	if !ok {
		return state, signalError(13, "state not found")
	}
	if s.closed {
		return s, signalError(5, "lobby closed")
	}

	var sig seatSignal
	if err := json.Unmarshal([]byte(data), &sig); err != nil {
		return s, signalError(3, "invalid seat signal")
	}

	if sig.PlayerToken != "" {
		if s.Lobby == nil {
			return s, signalError(5, domain.ErrUnknownPlayer.Error())
		}
		p, found := s.Lobby.FindPlayer(sig.PlayerToken)
		if !found {
			return s, signalError(5, domain.ErrUnknownPlayer.Error())
		}
		return s, signalResult(seatResult{PlayerToken: p.Token, PlayerUUID: p.UUID})
	}

	name := strings.TrimSpace(sig.Name)
	if name == "" {
		return s, signalError(3, "name is required")
	}
	p := app.NewPlayer(name, sig.Emoji)
	if s.Lobby == nil {
		s.Lobby = app.NewLobby(s.LobbyToken, p, app.WithScheduler(s.Timers), app.WithLogger(logger))
	}
	s.Lobby.AddPlayer(p)
	// A player that never opens a socket loses the seat after the grace period.
	s.Evictor.Schedule(s.Lobby, p)
	logger.Info("MatchSignal: player %s seated in lobby %s.", p.UUID, s.LobbyToken)

	mh.flush(s, dispatcher, logger)
	mh.updateLabel(s, dispatcher, logger)
	return s, signalResult(seatResult{PlayerToken: p.Token, PlayerUUID: p.UUID})
}

func signalResult(res seatResult) string {
	b, _ := json.Marshal(res)
	return string(b)
}

func signalError(code int, message string) string {
	return signalResult(seatResult{Error: message, Code: code})
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	s, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if s.closed || s.Lobby == nil {
		return s, false, "lobby not found"
	}

	ticket, err := mh.deps.tickets.Verify(metadata[MetadataKeyTicket])
	if err != nil {
		logger.Warn("MatchJoinAttempt: user %s: %v", presence.GetUserId(), err)
		return s, false, "invalid ticket"
	}
	if ticket.LobbyID != s.LobbyToken {
		return s, false, "ticket is for another lobby"
	}
	if _, found := s.Lobby.FindPlayer(ticket.PlayerToken); !found {
		return s, false, domain.ErrUnknownPlayer.Error()
	}

	s.joining[presence.GetUserId()] = ticket.PlayerToken
	return s, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, presence := range presences {
		userID := presence.GetUserId()
		token, ok := s.joining[userID]
		delete(s.joining, userID)
		if !ok {
			logger.Warn("MatchJoin: user %s joined without a verified ticket.", userID)
			mh.kick(dispatcher, logger, presence)
			continue
		}
		p, found := s.Lobby.FindPlayer(token)
		if !found {
			logger.Warn("MatchJoin: player for user %s is gone.", userID)
			mh.kick(dispatcher, logger, presence)
			continue
		}

		s.Evictor.Cancel(p)
		outbox := app.NewOutbox(p)
		if err := p.Connect(outbox); err != nil {
			logger.Warn("MatchJoin: connect player %s: %v", p.UUID, err)
			mh.kick(dispatcher, logger, presence)
			continue
		}
		s.Seats[p] = &seat{presence: presence, outbox: outbox}
		s.Players[userID] = p
		logger.Debug("MatchJoin: user %s connected as player %s.", userID, p.UUID)
	}

	mh.flush(s, dispatcher, logger)
	mh.updateLabel(s, dispatcher, logger)
	return s
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, presence := range presences {
		p, ok := s.Players[presence.GetUserId()]
		if !ok {
			continue
		}
		st := s.Seats[p]
		if st == nil || st.presence.GetSessionId() != presence.GetSessionId() {
			// An older session of a player that already reconnected.
			continue
		}
		delete(s.Players, presence.GetUserId())
		delete(s.Seats, p)
		p.Disconnect()
		s.Evictor.Schedule(s.Lobby, p)
		logger.Debug("MatchLeave: player %s disconnected.", p.UUID)
	}

	mh.flush(s, dispatcher, logger)
	mh.updateLabel(s, dispatcher, logger)
	return s
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		return state
	}

	s.Timers.Advance(mh.deps.now())
	for _, msg := range messages {
		mh.handleMessage(ctx, s, dispatcher, logger, msg)
	}
	mh.flush(s, dispatcher, logger)

	if s.closed {
		logger.Info("MatchLoop: terminating lobby %s.", s.LobbyToken)
		mh.deps.lobbies.Evict(s.LobbyToken)
		return nil
	}
	mh.updateLabel(s, dispatcher, logger)
	return s
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	if s, ok := state.(*MatchState); ok {
		s.Timers.Clear()
		mh.deps.lobbies.Evict(s.LobbyToken)
	}
	return state
}

var opNames = map[int64]string{
	OpStartGame:      "start_game",
	OpMakeTurn:       "make_turn",
	OpOpenTableCard:  "open_table_card",
	OpPickTurnWinner: "pick_turn_winner",
	OpContinueGame:   "continue_game",
	OpRefreshHand:    "refresh_hand",
}

func (mh *matchHandler) handleMessage(ctx context.Context, s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	op := msg.GetOpCode()
	name, known := opNames[op]
	if !known {
		logger.Warn("MatchLoop: Unknown opcode received: %d", op)
		mh.sendError(dispatcher, logger, msg, fmt.Errorf("%w: unknown op code %d", domain.ErrInvalidState, op))
		return
	}
	p, ok := s.Players[msg.GetUserId()]
	if !ok {
		mh.sendError(dispatcher, logger, msg, domain.ErrUnknownPlayer)
		return
	}

	ctx, span := mh.deps.tracer.Start(ctx, "lobby."+name, trace.WithAttributes(
		attribute.String("lobby.token", s.LobbyToken),
		attribute.String("player.uuid", p.UUID),
		attribute.String("lobby.phase", string(s.Lobby.Phase())),
	))
	defer span.End()

	if err := mh.dispatch(ctx, s, p, op, msg.GetData()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		class := domain.Classify(err)
		if class == domain.ClassProtocol || class == domain.ClassInternal {
			logger.Error("MatchLoop: %s by player %s failed: %v", name, p.UUID, err)
		} else {
			logger.Warn("MatchLoop: %s by player %s rejected: %v", name, p.UUID, err)
		}
		mh.sendError(dispatcher, logger, s.Seats[p].presence, err)
	}
}

func (mh *matchHandler) dispatch(ctx context.Context, s *MatchState, p *app.Player, op int64, data []byte) error {
	switch op {
	case OpStartGame:
		var m startGameMessage
		if err := decodeMessage(data, &m); err != nil {
			return err
		}
		settings := mh.deps.cfg.LobbySettings(m.WinningScore)
		if m.TurnDuration != nil {
			settings.TurnDuration = time.Duration(*m.TurnDuration) * time.Second
		}
		deckID := m.DeckID
		if deckID == "" {
			deckID = mh.deps.cfg.DeckID
		}
		_, err := mh.deps.service.StartGame(ctx, p, settings, deckID)
		return err
	case OpMakeTurn:
		var m cardMessage
		if err := decodeMessage(data, &m); err != nil {
			return err
		}
		card, err := lookupPunchline(s.Lobby, "make_turn", m.CardID)
		if err != nil {
			return err
		}
		return p.MakeTurn(card)
	case OpOpenTableCard:
		var m tableIndexMessage
		if err := decodeMessage(data, &m); err != nil {
			return err
		}
		return p.OpenTableCard(m.Index)
	case OpPickTurnWinner:
		var m cardMessage
		if err := decodeMessage(data, &m); err != nil {
			return err
		}
		card, err := lookupPunchline(s.Lobby, "pick_turn_winner", m.CardID)
		if err != nil {
			return err
		}
		return p.PickTurnWinner(card)
	case OpContinueGame:
		return p.ContinueGame()
	case OpRefreshHand:
		return p.RefreshHand()
	}
	return fmt.Errorf("%w: unknown op code %d", domain.ErrInvalidState, op)
}

func decodeMessage(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: malformed message: %v", domain.ErrInvalidState, err)
	}
	return nil
}

// lookupPunchline resolves a card id against the running game's punchline deck.
func lookupPunchline(l *app.Lobby, op string, id int) (domain.PunchlineCard, error) {
	game := l.Game()
	if game == nil {
		return domain.PunchlineCard{}, &domain.InvalidStateError{Op: op, Phase: l.Phase()}
	}
	card, ok := game.Punchlines.CardByID(id)
	if !ok {
		return domain.PunchlineCard{}, fmt.Errorf("%w: %d", domain.ErrUnknownCard, id)
	}
	return card, nil
}

// flush sends every queued lobby event to its recipient, in seat order.
func (mh *matchHandler) flush(s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if s.Lobby == nil {
		return
	}
	for _, p := range s.Lobby.AllPlayers() {
		st, ok := s.Seats[p]
		if !ok {
			continue
		}
		for _, ev := range st.outbox.Drain() {
			op, data, err := encodeEvent(ev)
			if err != nil {
				logger.Error("flush: %v", err)
				continue
			}
			if err := dispatcher.BroadcastMessage(op, data, []runtime.Presence{st.presence}, nil, true); err != nil {
				logger.Warn("flush: send %s to player %s: %v", ev.Kind, p.UUID, err)
			}
		}
	}
}

// sendError sends a GameError event to a single presence.
func (mh *matchHandler) sendError(dispatcher runtime.MatchDispatcher, logger runtime.Logger, presence runtime.Presence, err error) {
	class := domain.Classify(err)
	payload := gameErrorEvent{
		Code:    errorCode(class),
		Class:   class.String(),
		Message: err.Error(),
	}
	bytes, mErr := json.Marshal(payload)
	if mErr != nil {
		logger.Error("Failed to marshal GameError: %v", mErr)
		return
	}
	if bErr := dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true); bErr != nil {
		logger.Warn("Cannot send error to %s: %v", presence.GetUserId(), bErr)
	}
}

func (mh *matchHandler) kick(dispatcher runtime.MatchDispatcher, logger runtime.Logger, presence runtime.Presence) {
	if err := dispatcher.MatchKick([]runtime.Presence{presence}); err != nil {
		logger.Warn("Cannot kick %s: %v", presence.GetUserId(), err)
	}
}

func buildLabel(s *MatchState) (string, error) {
	phase := domain.PhaseGathering
	players := 0
	if s.Lobby != nil {
		phase = s.Lobby.Phase()
		players = len(s.Lobby.AllPlayers())
	}
	label, err := structpb.NewStruct(map[string]interface{}{
		LabelKeyGame:    labelGame,
		LabelKeyLobby:   s.LobbyToken,
		LabelKeyPhase:   string(phase),
		LabelKeyPlayers: players,
		LabelKeyOpen:    phase == domain.PhaseGathering,
	})
	if err != nil {
		return "", err
	}
	b, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (mh *matchHandler) updateLabel(s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := buildLabel(s)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if label == s.label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	s.label = label
}
