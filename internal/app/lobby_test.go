package app

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"cardsagainst/internal/domain"
)

const (
	testSetups     = 10
	testPunchlines = 60
)

type table struct {
	lobby   *Lobby
	queue   *TimerQueue
	players []*Player
	boxes   []*Outbox
}

// newTable seats and connects one player per name. The first one owns the lobby.
func newTable(t *testing.T, names ...string) *table {
	t.Helper()
	queue := NewTimerQueue(time.Unix(1_700_000_000, 0))
	tb := &table{queue: queue}
	for _, name := range names {
		tb.players = append(tb.players, NewPlayer(name, ":)"))
	}
	tb.lobby = NewLobby("lobby-1", tb.players[0], WithScheduler(queue), WithRand(rand.New(rand.NewSource(3))))
	for _, p := range tb.players {
		tb.lobby.AddPlayer(p)
	}
	for _, p := range tb.players {
		box := NewOutbox(p)
		if err := p.Connect(box); err != nil {
			t.Fatalf("connect %s: %v", p.Name, err)
		}
		tb.boxes = append(tb.boxes, box)
	}
	return tb
}

func testDecks(seed int64) (*domain.Deck[domain.SetupCard], *domain.Deck[domain.PunchlineCard]) {
	rng := rand.New(rand.NewSource(seed))
	setups := make([]domain.SetupCard, 0, testSetups)
	for i := 1; i <= testSetups; i++ {
		setups = append(setups, domain.SetupCard{ID: 1000 + i, Text: "setup", Case: domain.CaseNominative})
	}
	punchlines := make([]domain.PunchlineCard, 0, testPunchlines)
	for i := 1; i <= testPunchlines; i++ {
		punchlines = append(punchlines, domain.PunchlineCard{ID: i, Text: []domain.PunchlineText{{Case: domain.CaseNominative, Forms: []string{"punchline"}}}})
	}
	return domain.NewDeck(setups, rng), domain.NewDeck(punchlines, rng)
}

func (tb *table) start(t *testing.T, settings domain.LobbySettings) *Game {
	t.Helper()
	setups, punchlines := testDecks(11)
	game, err := tb.players[0].StartGame(settings, setups, punchlines)
	if err != nil {
		t.Fatalf("start game error: %v", err)
	}
	return game
}

func (tb *table) advance(d time.Duration) {
	tb.queue.Advance(tb.queue.Now().Add(d))
}

func (tb *table) drainAll() {
	for _, box := range tb.boxes {
		box.Drain()
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// assertConservation checks that no card was created or lost.
func assertConservation(t *testing.T, l *Lobby) {
	t.Helper()
	g := l.Game()
	if g == nil {
		return
	}
	punchlines := g.Punchlines.DrawPileLen() + g.Punchlines.DiscardPileLen() + len(l.table)
	for _, p := range l.AllPlayers() {
		punchlines += len(p.hand)
	}
	for p := range l.grave {
		punchlines += len(p.hand)
	}
	if punchlines != testPunchlines {
		t.Fatalf("punchline cards = %d, want %d", punchlines, testPunchlines)
	}

	setups := g.Setups.DrawPileLen() + g.Setups.DiscardPileLen()
	if _, ok := l.Setup(); ok {
		setups++
	}
	if setups != testSetups {
		t.Fatalf("setup cards = %d, want %d", setups, testSetups)
	}
}

func TestChangeLeadRotation(t *testing.T) {
	tb := newTable(t, "A", "B", "C")
	a, b, c := tb.players[0], tb.players[1], tb.players[2]
	l := tb.lobby
	l.players = []*Player{a, b}
	l.lead = c

	if err := l.changeLead(); err != nil {
		t.Fatalf("change lead error: %v", err)
	}
	if l.Lead() != a {
		t.Fatalf("lead = %s, want A", l.Lead().Name)
	}
	if got := l.Players(); len(got) != 2 || got[0] != b || got[1] != c {
		t.Fatalf("players = %v, want [B C]", names(got))
	}
}

func TestChangeLeadEmptyQueue(t *testing.T) {
	tb := newTable(t, "A")
	l := tb.lobby
	l.lead = tb.players[0]
	l.players = nil

	if err := l.changeLead(); !errors.Is(err, domain.ErrNotEnoughPlayers) {
		t.Fatalf("err = %v, want ErrNotEnoughPlayers", err)
	}
	if l.Lead() != tb.players[0] {
		t.Fatal("lead changed on failed rotation")
	}
}

func TestStartGamePreconditions(t *testing.T) {
	tb := newTable(t, "egor", "anton")
	egor, anton := tb.players[0], tb.players[1]
	setups, punchlines := testDecks(1)

	if _, err := anton.StartGame(domain.DefaultLobbySettings(1), setups, punchlines); !errors.Is(err, domain.ErrPlayerNotOwner) {
		t.Fatalf("err = %v, want ErrPlayerNotOwner", err)
	}
	if _, err := egor.StartGame(domain.DefaultLobbySettings(0), setups, punchlines); !errors.Is(err, domain.ErrInvalidSettings) {
		t.Fatalf("err = %v, want ErrInvalidSettings", err)
	}
	if err := anton.MakeTurn(domain.PunchlineCard{ID: 1}); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
	if tb.lobby.Phase() != domain.PhaseGathering || tb.lobby.Game() != nil {
		t.Fatal("failed start mutated the lobby")
	}

	solo := newTable(t, "alone")
	if _, err := solo.players[0].StartGame(domain.DefaultLobbySettings(1), setups, punchlines); !errors.Is(err, domain.ErrNotEnoughPlayers) {
		t.Fatalf("err = %v, want ErrNotEnoughPlayers", err)
	}
}

func TestStartGameDealsHands(t *testing.T) {
	tb := newTable(t, "egor", "anton")
	tb.drainAll()
	tb.start(t, domain.DefaultLobbySettings(1))

	for i, p := range tb.players {
		if len(p.Hand()) != domain.DefaultHandSize {
			t.Fatalf("%s hand = %d, want %d", p.Name, len(p.Hand()), domain.DefaultHandSize)
		}
		got := kinds(tb.boxes[i].Drain())
		if len(got) != 2 || got[0] != EventGameStarted || got[1] != EventTurnStarted {
			t.Fatalf("%s events = %v, want [game_started turn_started]", p.Name, got)
		}
	}
	if tb.lobby.Lead() != tb.players[0] || tb.lobby.TurnCount() != 1 {
		t.Fatalf("lead = %v, turn = %d", tb.lobby.Lead(), tb.lobby.TurnCount())
	}
	assertConservation(t, tb.lobby)
}

func TestFullRound(t *testing.T) {
	tb := newTable(t, "egor", "anton")
	egor, anton := tb.players[0], tb.players[1]
	tb.start(t, domain.DefaultLobbySettings(1))

	card := anton.Hand()[0]
	if err := anton.MakeTurn(card); err != nil {
		t.Fatalf("make turn error: %v", err)
	}
	if tb.lobby.Phase() != domain.PhaseJudgement {
		t.Fatalf("phase = %s, want judgement", tb.lobby.Phase())
	}
	assertConservation(t, tb.lobby)

	if err := egor.OpenTableCard(0); err != nil {
		t.Fatalf("open table card error: %v", err)
	}
	if err := egor.PickTurnWinner(card); err != nil {
		t.Fatalf("pick turn winner error: %v", err)
	}
	if anton.Score() != 1 {
		t.Fatalf("anton score = %d, want 1", anton.Score())
	}
	if len(tb.lobby.Table()) != 0 {
		t.Fatalf("table = %d entries, want 0", len(tb.lobby.Table()))
	}
	assertConservation(t, tb.lobby)

	tb.advance(domain.DefaultFinishDelay - time.Second)
	if tb.lobby.Phase() != domain.PhaseJudgement {
		t.Fatalf("phase = %s before finish delay, want judgement", tb.lobby.Phase())
	}
	tb.advance(time.Second)
	if tb.lobby.Phase() != domain.PhaseFinished {
		t.Fatalf("phase = %s, want finished", tb.lobby.Phase())
	}
	if tb.lobby.Winner() != anton {
		t.Fatalf("winner = %v, want anton", tb.lobby.Winner())
	}
	if n := countKind(tb.boxes[0].Drain(), EventGameFinished); n != 1 {
		t.Fatalf("egor got %d game_finished events, want 1", n)
	}
	assertConservation(t, tb.lobby)
}

func TestInvalidSubmission(t *testing.T) {
	tb := newTable(t, "egor", "anton")
	anton := tb.players[1]
	tb.start(t, domain.DefaultLobbySettings(1))

	before := anton.Hand()
	err := anton.MakeTurn(domain.PunchlineCard{ID: testPunchlines + 1})
	if !errors.Is(err, domain.ErrCardNotInPlayerHand) {
		t.Fatalf("err = %v, want ErrCardNotInPlayerHand", err)
	}
	if len(anton.Hand()) != len(before) || len(tb.lobby.Table()) != 0 || anton.IsReady() {
		t.Fatal("invalid submission mutated hand or table")
	}
}

func TestLeadCannotSubmit(t *testing.T) {
	tb := newTable(t, "egor", "anton")
	egor := tb.players[0]
	tb.start(t, domain.DefaultLobbySettings(1))

	if err := egor.MakeTurn(egor.Hand()[0]); !errors.Is(err, domain.ErrLeadCannotSubmit) {
		t.Fatalf("err = %v, want ErrLeadCannotSubmit", err)
	}
}

func TestMakeTurnReplacesEarlierSubmission(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	anton := tb.players[1]
	tb.start(t, domain.DefaultLobbySettings(1))

	first, second := anton.Hand()[0], anton.Hand()[1]
	if err := anton.MakeTurn(first); err != nil {
		t.Fatalf("first make turn error: %v", err)
	}
	if err := anton.MakeTurn(second); err != nil {
		t.Fatalf("second make turn error: %v", err)
	}

	tableCards := tb.lobby.Table()
	if len(tableCards) != 1 || tableCards[0].Card.ID != second.ID {
		t.Fatalf("table = %+v, want only card %d", tableCards, second.ID)
	}
	hand := anton.Hand()
	if domain.IndexOfCard(hand, first.ID) < 0 || domain.IndexOfCard(hand, second.ID) >= 0 {
		t.Fatal("earlier submission was not returned to the hand")
	}
	if tb.lobby.Phase() != domain.PhaseTurns {
		t.Fatalf("phase = %s, want turns while yura is not ready", tb.lobby.Phase())
	}
	assertConservation(t, tb.lobby)
}

func TestRefreshHandGuard(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	anton := tb.players[1]
	tb.start(t, domain.DefaultLobbySettings(1))
	tb.drainAll()

	before := anton.Hand()
	if err := anton.RefreshHand(); err != nil {
		t.Fatalf("refresh hand error: %v", err)
	}
	if anton.Score() != -1 {
		t.Fatalf("score = %d, want -1", anton.Score())
	}
	after := anton.Hand()
	if len(after) != domain.DefaultHandSize {
		t.Fatalf("hand = %d, want %d", len(after), domain.DefaultHandSize)
	}
	for _, card := range before {
		if domain.IndexOfCard(after, card.ID) >= 0 {
			t.Fatalf("card %d survived the refresh", card.ID)
		}
	}
	events := tb.boxes[1].Drain()
	if countKind(events, EventHandRefreshed) != 1 || countKind(events, EventPlayerScoreChanged) != 1 {
		t.Fatalf("anton events = %v", kinds(events))
	}
	if n := countKind(tb.boxes[0].Drain(), EventHandRefreshed); n != 0 {
		t.Fatalf("egor got %d hand_refreshed events, want 0", n)
	}
	assertConservation(t, tb.lobby)

	if err := anton.MakeTurn(anton.Hand()[0]); err != nil {
		t.Fatalf("make turn error: %v", err)
	}
	if err := anton.RefreshHand(); !errors.Is(err, domain.ErrPlayerAlreadyReady) {
		t.Fatalf("err = %v, want ErrPlayerAlreadyReady", err)
	}
}

func TestRefreshHandScoreFloor(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	yura := tb.players[2]
	tb.start(t, domain.DefaultLobbySettings(1))

	if err := yura.RefreshHand(); err != nil {
		t.Fatalf("first refresh error: %v", err)
	}
	hand := yura.Hand()
	if err := yura.RefreshHand(); !errors.Is(err, domain.ErrScoreTooLow) {
		t.Fatalf("err = %v, want ErrScoreTooLow", err)
	}
	if yura.Score() != -1 || domain.IndexOfCard(yura.Hand(), hand[0].ID) < 0 {
		t.Fatal("rejected refresh mutated the player")
	}
}

func TestTurnTimerAutoSubmits(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	anton, yura := tb.players[1], tb.players[2]
	settings := domain.DefaultLobbySettings(3)
	settings.TurnDuration = 30 * time.Second
	tb.start(t, settings)

	if err := anton.MakeTurn(anton.Hand()[0]); err != nil {
		t.Fatalf("make turn error: %v", err)
	}
	tb.advance(settings.TurnDuration)

	if tb.lobby.Phase() != domain.PhaseJudgement {
		t.Fatalf("phase = %s, want judgement", tb.lobby.Phase())
	}
	if !yura.IsReady() || tb.lobby.CardOnTableOf(yura) == nil {
		t.Fatal("yura was not auto-submitted")
	}
	if len(tb.lobby.Table()) != 2 {
		t.Fatalf("table = %d entries, want 2", len(tb.lobby.Table()))
	}
	assertConservation(t, tb.lobby)
}

func TestTurnTimerSkipsDisconnectedPlayers(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	anton, yura := tb.players[1], tb.players[2]
	settings := domain.DefaultLobbySettings(3)
	settings.TurnDuration = 30 * time.Second
	tb.start(t, settings)

	yura.Disconnect()
	// yura is disconnected, so anton alone completes the quorum.
	if err := anton.MakeTurn(anton.Hand()[0]); err != nil {
		t.Fatalf("make turn error: %v", err)
	}
	if tb.lobby.Phase() != domain.PhaseJudgement {
		t.Fatalf("phase = %s, want judgement", tb.lobby.Phase())
	}
	if tb.lobby.CardOnTableOf(yura) != nil {
		t.Fatal("disconnected player was auto-submitted")
	}
}

func TestStaleTurnTimerIsIgnored(t *testing.T) {
	tb := newTable(t, "egor", "anton")
	anton := tb.players[1]
	settings := domain.DefaultLobbySettings(3)
	settings.TurnDuration = 30 * time.Second
	tb.start(t, settings)

	if err := anton.MakeTurn(anton.Hand()[0]); err != nil {
		t.Fatalf("make turn error: %v", err)
	}
	if tb.queue.Pending() != 0 {
		t.Fatalf("pending timers = %d, want 0 after quorum", tb.queue.Pending())
	}

	// A timer from a superseded phase must not end the judgement.
	stale := tb.lobby.state
	st := &lobbyState{phase: domain.PhaseTurns}
	tb.lobby.onTurnTimeout(st)
	if tb.lobby.state != stale || tb.lobby.Phase() != domain.PhaseJudgement {
		t.Fatal("stale timer changed the state")
	}
}

func TestOpenAndPickPreconditions(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	egor, anton, yura := tb.players[0], tb.players[1], tb.players[2]
	tb.start(t, domain.DefaultLobbySettings(3))

	card := anton.Hand()[0]
	if err := anton.MakeTurn(card); err != nil {
		t.Fatalf("anton make turn error: %v", err)
	}
	if err := yura.MakeTurn(yura.Hand()[0]); err != nil {
		t.Fatalf("yura make turn error: %v", err)
	}

	if err := anton.OpenTableCard(0); !errors.Is(err, domain.ErrPlayerNotLead) {
		t.Fatalf("err = %v, want ErrPlayerNotLead", err)
	}
	if err := egor.OpenTableCard(5); !errors.Is(err, domain.ErrTableCardNotFound) {
		t.Fatalf("err = %v, want ErrTableCardNotFound", err)
	}
	if err := egor.OpenTableCard(0); err != nil {
		t.Fatalf("open table card error: %v", err)
	}
	if err := egor.PickTurnWinner(card); !errors.Is(err, domain.ErrNotAllCardsOpened) {
		t.Fatalf("err = %v, want ErrNotAllCardsOpened", err)
	}
	if err := egor.OpenTableCard(1); err != nil {
		t.Fatalf("open table card error: %v", err)
	}
	if err := egor.PickTurnWinner(domain.PunchlineCard{ID: testPunchlines + 1}); !errors.Is(err, domain.ErrCardNotOnTable) {
		t.Fatalf("err = %v, want ErrCardNotOnTable", err)
	}
	if err := anton.PickTurnWinner(card); !errors.Is(err, domain.ErrPlayerNotLead) {
		t.Fatalf("err = %v, want ErrPlayerNotLead", err)
	}
	if anton.Score() != 0 {
		t.Fatal("rejected picks changed the score")
	}
}

func TestNextTurnAfterJudgement(t *testing.T) {
	tb := newTable(t, "egor", "anton")
	egor, anton := tb.players[0], tb.players[1]
	tb.start(t, domain.DefaultLobbySettings(3))

	card := anton.Hand()[0]
	if err := anton.MakeTurn(card); err != nil {
		t.Fatalf("make turn error: %v", err)
	}
	if err := egor.OpenTableCard(0); err != nil {
		t.Fatalf("open table card error: %v", err)
	}
	if err := egor.PickTurnWinner(card); err != nil {
		t.Fatalf("pick turn winner error: %v", err)
	}
	tb.drainAll()

	tb.advance(domain.DefaultStartTurnDelay)
	if tb.lobby.Phase() != domain.PhaseTurns || tb.lobby.TurnCount() != 2 {
		t.Fatalf("phase = %s turn = %d, want turns 2", tb.lobby.Phase(), tb.lobby.TurnCount())
	}
	if tb.lobby.Lead() != anton {
		t.Fatalf("lead = %s, want anton", tb.lobby.Lead().Name)
	}
	if len(anton.Hand()) != domain.DefaultHandSize {
		t.Fatalf("anton hand = %d, want topped up to %d", len(anton.Hand()), domain.DefaultHandSize)
	}

	antonEvents := tb.boxes[1].Drain()
	if len(antonEvents) != 1 || antonEvents[0].Payload.(TurnStartedPayload).Card == nil {
		t.Fatalf("anton events = %+v, want turn_started with a drawn card", antonEvents)
	}
	egorEvents := tb.boxes[0].Drain()
	if len(egorEvents) != 1 || egorEvents[0].Payload.(TurnStartedPayload).Card != nil {
		t.Fatalf("egor events = %+v, want turn_started without a card", egorEvents)
	}
	assertConservation(t, tb.lobby)
}

func TestWinnerLeavingBeforeFinishContinuesGame(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	egor, anton, yura := tb.players[0], tb.players[1], tb.players[2]
	tb.start(t, domain.DefaultLobbySettings(1))

	card := anton.Hand()[0]
	if err := anton.MakeTurn(card); err != nil {
		t.Fatalf("anton make turn error: %v", err)
	}
	if err := yura.MakeTurn(yura.Hand()[0]); err != nil {
		t.Fatalf("yura make turn error: %v", err)
	}
	for i := range tb.lobby.Table() {
		if err := egor.OpenTableCard(i); err != nil {
			t.Fatalf("open table card error: %v", err)
		}
	}
	if err := egor.PickTurnWinner(card); err != nil {
		t.Fatalf("pick turn winner error: %v", err)
	}
	if err := tb.lobby.RemovePlayer(anton); err != nil {
		t.Fatalf("remove player error: %v", err)
	}

	tb.advance(domain.DefaultFinishDelay)
	if tb.lobby.Phase() != domain.PhaseTurns {
		t.Fatalf("phase = %s, want turns", tb.lobby.Phase())
	}
	if tb.lobby.Lead() != yura {
		t.Fatalf("lead = %s, want yura", tb.lobby.Lead().Name)
	}
	assertConservation(t, tb.lobby)
}

func TestLeadLeavingAfterWinningPickFinishesGame(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	egor, anton := tb.players[0], tb.players[1]
	tb.start(t, domain.DefaultLobbySettings(1))

	card := anton.Hand()[0]
	if err := anton.MakeTurn(card); err != nil {
		t.Fatalf("anton make turn error: %v", err)
	}
	for i := range tb.lobby.Table() {
		if err := egor.OpenTableCard(i); err != nil {
			t.Fatalf("open table card error: %v", err)
		}
	}
	if err := egor.PickTurnWinner(card); err != nil {
		t.Fatalf("pick turn winner error: %v", err)
	}
	tb.drainAll()
	if err := tb.lobby.RemovePlayer(egor); err != nil {
		t.Fatalf("remove player error: %v", err)
	}
	if tb.lobby.Phase() != domain.PhaseJudgement {
		t.Fatalf("phase = %s right after the lead left, want judgement", tb.lobby.Phase())
	}

	tb.advance(domain.DefaultFinishDelay + domain.DefaultStartTurnDelay)
	if tb.lobby.Phase() != domain.PhaseFinished {
		t.Fatalf("phase = %s, want finished", tb.lobby.Phase())
	}
	if anton.Score() != 1 {
		t.Fatalf("anton score = %d, want 1", anton.Score())
	}
	if got := countKind(tb.boxes[1].Drain(), EventGameFinished); got != 1 {
		t.Fatalf("anton got %d game_finished events, want 1", got)
	}
	assertConservation(t, tb.lobby)
}

func TestReconnectAfterSubmittingKeepsHandSize(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	anton := tb.players[1]
	tb.start(t, domain.DefaultLobbySettings(3))

	if err := anton.MakeTurn(anton.Hand()[0]); err != nil {
		t.Fatalf("make turn error: %v", err)
	}
	anton.Disconnect()
	if err := anton.Connect(NewOutbox(anton)); err != nil {
		t.Fatalf("reconnect error: %v", err)
	}
	if got := len(anton.Hand()); got != domain.DefaultHandSize-1 {
		t.Fatalf("hand = %d cards, want %d while a card is on the table", got, domain.DefaultHandSize-1)
	}
	if tb.lobby.CardOnTableOf(anton) == nil {
		t.Fatal("submitted card left the table")
	}
	assertConservation(t, tb.lobby)
}

func TestReconnectResurrection(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	yura := tb.players[2]
	evictor := NewEvictor(tb.queue, 10*time.Second, nil)

	yura.Disconnect()
	evictor.Schedule(tb.lobby, yura)
	tb.advance(10 * time.Second)

	if !tb.lobby.InGrave(yura) || tb.lobby.Seated(yura) {
		t.Fatal("yura should be in the grave after the grace period")
	}
	for _, p := range tb.lobby.AllPlayers() {
		if p == yura {
			t.Fatal("yura still listed in all players")
		}
	}
	tb.drainAll()

	box := NewOutbox(yura)
	if err := yura.Connect(box); err != nil {
		t.Fatalf("reconnect error: %v", err)
	}
	if tb.lobby.InGrave(yura) || !tb.lobby.Seated(yura) {
		t.Fatal("yura was not resurrected")
	}
	if got := kinds(box.Drain()); len(got) != 1 || got[0] != EventWelcome {
		t.Fatalf("yura events = %v, want [welcome]", got)
	}
	for _, other := range tb.boxes[:2] {
		got := kinds(other.Drain())
		if len(got) != 2 || got[0] != EventPlayerJoined || got[1] != EventPlayerConnected {
			t.Fatalf("events = %v, want [player_joined player_connected]", got)
		}
	}
}

func TestReconnectWithinGraceKeepsSeat(t *testing.T) {
	tb := newTable(t, "egor", "anton")
	anton := tb.players[1]
	evictor := NewEvictor(tb.queue, 10*time.Second, nil)
	tb.start(t, domain.DefaultLobbySettings(1))

	anton.Disconnect()
	evictor.Schedule(tb.lobby, anton)
	tb.advance(5 * time.Second)
	if !evictor.Cancel(anton) {
		t.Fatal("expected a pending eviction")
	}
	if err := anton.Connect(NewOutbox(anton)); err != nil {
		t.Fatalf("reconnect error: %v", err)
	}
	tb.advance(10 * time.Second)

	if !tb.lobby.Seated(anton) || len(anton.Hand()) != domain.DefaultHandSize {
		t.Fatal("reconnect within grace lost state")
	}
}

func TestConnectUnknownPlayer(t *testing.T) {
	tb := newTable(t, "egor")
	stranger := NewPlayer("stranger", "?")
	if err := tb.lobby.Connect(stranger); !errors.Is(err, domain.ErrUnknownPlayer) {
		t.Fatalf("err = %v, want ErrUnknownPlayer", err)
	}
	if err := stranger.Connect(NewOutbox(stranger)); !errors.Is(err, domain.ErrUnknownPlayer) {
		t.Fatalf("err = %v, want ErrUnknownPlayer", err)
	}
}

func TestRemoveOwnerReassigns(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	egor, anton, yura := tb.players[0], tb.players[1], tb.players[2]
	anton.Disconnect()
	tb.drainAll()

	if err := tb.lobby.RemovePlayer(egor); err != nil {
		t.Fatalf("remove player error: %v", err)
	}
	if tb.lobby.Owner() != yura {
		t.Fatalf("owner = %v, want first connected player yura", tb.lobby.Owner())
	}
	got := kinds(tb.boxes[2].Drain())
	if len(got) != 2 || got[0] != EventOwnerChanged || got[1] != EventPlayerLeft {
		t.Fatalf("yura events = %v, want [owner_changed player_left]", got)
	}
	if err := tb.lobby.RemovePlayer(egor); !errors.Is(err, domain.ErrUnknownPlayer) {
		t.Fatalf("second removal err = %v, want ErrUnknownPlayer", err)
	}
}

func TestRemoveLeadVoidsRound(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	egor, anton, yura := tb.players[0], tb.players[1], tb.players[2]
	tb.start(t, domain.DefaultLobbySettings(3))

	card := anton.Hand()[0]
	if err := anton.MakeTurn(card); err != nil {
		t.Fatalf("make turn error: %v", err)
	}
	if err := tb.lobby.RemovePlayer(egor); err != nil {
		t.Fatalf("remove player error: %v", err)
	}

	if tb.lobby.Phase() != domain.PhaseTurns || tb.lobby.TurnCount() != 2 {
		t.Fatalf("phase = %s turn = %d, want turns 2", tb.lobby.Phase(), tb.lobby.TurnCount())
	}
	if tb.lobby.Lead() != anton {
		t.Fatalf("lead = %v, want anton", tb.lobby.Lead())
	}
	if domain.IndexOfCard(anton.Hand(), card.ID) < 0 || anton.IsReady() {
		t.Fatal("voided submission was not returned")
	}
	if len(tb.lobby.Table()) != 0 || yura.IsReady() {
		t.Fatal("voided round left state behind")
	}
	assertConservation(t, tb.lobby)
}

func TestRemoveLeadDuringJudgementVoidsRound(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	egor, anton, yura := tb.players[0], tb.players[1], tb.players[2]
	tb.start(t, domain.DefaultLobbySettings(3))

	for _, p := range []*Player{anton, yura} {
		if err := p.MakeTurn(p.Hand()[0]); err != nil {
			t.Fatalf("make turn error: %v", err)
		}
	}
	if tb.lobby.Phase() != domain.PhaseJudgement {
		t.Fatalf("phase = %s, want judgement", tb.lobby.Phase())
	}
	if err := tb.lobby.RemovePlayer(egor); err != nil {
		t.Fatalf("remove player error: %v", err)
	}
	if tb.lobby.Phase() != domain.PhaseTurns || tb.lobby.Lead() != anton {
		t.Fatalf("phase = %s lead = %v, want turns with anton", tb.lobby.Phase(), tb.lobby.Lead())
	}
	if len(anton.Hand()) != domain.DefaultHandSize || len(yura.Hand()) != domain.DefaultHandSize {
		t.Fatal("voided submissions were not returned")
	}
	assertConservation(t, tb.lobby)
}

func TestRemovalBelowMinimumAbortsGame(t *testing.T) {
	tb := newTable(t, "egor", "anton")
	anton := tb.players[1]
	tb.start(t, domain.DefaultLobbySettings(3))
	tb.drainAll()

	if err := tb.lobby.RemovePlayer(anton); err != nil {
		t.Fatalf("remove player error: %v", err)
	}
	if tb.lobby.Phase() != domain.PhaseGathering || tb.lobby.Game() != nil {
		t.Fatalf("phase = %s, want gathering without a game", tb.lobby.Phase())
	}
	if tb.lobby.TurnCount() != 0 || len(tb.players[0].Hand()) != 0 {
		t.Fatal("abort left game state behind")
	}
	if n := countKind(tb.boxes[0].Drain(), EventWelcome); n != 1 {
		t.Fatalf("egor got %d welcome events, want 1", n)
	}
}

func finishGame(t *testing.T, tb *table) {
	t.Helper()
	egor, anton := tb.players[0], tb.players[1]
	tb.start(t, domain.DefaultLobbySettings(1))
	card := anton.Hand()[0]
	if err := anton.MakeTurn(card); err != nil {
		t.Fatalf("make turn error: %v", err)
	}
	if err := egor.OpenTableCard(0); err != nil {
		t.Fatalf("open table card error: %v", err)
	}
	if err := egor.PickTurnWinner(card); err != nil {
		t.Fatalf("pick turn winner error: %v", err)
	}
	tb.advance(domain.DefaultFinishDelay)
	if tb.lobby.Phase() != domain.PhaseFinished {
		t.Fatalf("phase = %s, want finished", tb.lobby.Phase())
	}
}

func TestContinueGame(t *testing.T) {
	tb := newTable(t, "egor", "anton")
	egor, anton := tb.players[0], tb.players[1]
	finishGame(t, tb)

	if err := anton.ContinueGame(); !errors.Is(err, domain.ErrPlayerNotOwner) {
		t.Fatalf("err = %v, want ErrPlayerNotOwner", err)
	}
	if err := egor.ContinueGame(); err != nil {
		t.Fatalf("continue game error: %v", err)
	}
	if tb.lobby.Phase() != domain.PhaseTurns || !tb.lobby.Game().Endless {
		t.Fatalf("phase = %s endless = %t", tb.lobby.Phase(), tb.lobby.Game().Endless)
	}
	if tb.lobby.Lead() != anton || anton.Score() != 1 {
		t.Fatalf("lead = %v score = %d", tb.lobby.Lead(), anton.Score())
	}
	assertConservation(t, tb.lobby)

	// Further wins no longer finish the game.
	card := egor.Hand()[0]
	if err := egor.MakeTurn(card); err != nil {
		t.Fatalf("make turn error: %v", err)
	}
	if err := anton.OpenTableCard(0); err != nil {
		t.Fatalf("open table card error: %v", err)
	}
	if err := anton.PickTurnWinner(card); err != nil {
		t.Fatalf("pick turn winner error: %v", err)
	}
	tb.advance(domain.DefaultStartTurnDelay)
	if tb.lobby.Phase() != domain.PhaseTurns || tb.lobby.TurnCount() != 3 {
		t.Fatalf("phase = %s turn = %d, want turns 3", tb.lobby.Phase(), tb.lobby.TurnCount())
	}
}

func TestPlayAgain(t *testing.T) {
	tb := newTable(t, "egor", "anton")
	egor, anton := tb.players[0], tb.players[1]
	finishGame(t, tb)
	oldGame := tb.lobby.Game()

	setups, punchlines := testDecks(5)
	if _, err := anton.StartGame(domain.DefaultLobbySettings(2), setups, punchlines); !errors.Is(err, domain.ErrPlayerNotOwner) {
		t.Fatalf("err = %v, want ErrPlayerNotOwner", err)
	}
	if tb.lobby.Phase() != domain.PhaseFinished {
		t.Fatal("rejected replay left the finished phase")
	}

	game, err := egor.StartGame(domain.DefaultLobbySettings(2), setups, punchlines)
	if err != nil {
		t.Fatalf("play again error: %v", err)
	}
	if game == oldGame || game.ID == oldGame.ID {
		t.Fatal("play again reused the old game")
	}
	if tb.lobby.Phase() != domain.PhaseTurns || tb.lobby.TurnCount() != 1 {
		t.Fatalf("phase = %s turn = %d, want turns 1", tb.lobby.Phase(), tb.lobby.TurnCount())
	}
	if anton.Score() != 0 || len(anton.Hand()) != domain.DefaultHandSize {
		t.Fatalf("anton score = %d hand = %d", anton.Score(), len(anton.Hand()))
	}
	assertConservation(t, tb.lobby)
}

func TestSnapshotHidesClosedCards(t *testing.T) {
	tb := newTable(t, "egor", "anton", "yura")
	egor, anton, yura := tb.players[0], tb.players[1], tb.players[2]
	tb.start(t, domain.DefaultLobbySettings(3))

	card := anton.Hand()[0]
	if err := anton.MakeTurn(card); err != nil {
		t.Fatalf("make turn error: %v", err)
	}
	snap := tb.lobby.Snapshot(anton)
	if snap.SelectedCard == nil || snap.SelectedCard.ID != card.ID {
		t.Fatalf("selected card = %v, want %d", snap.SelectedCard, card.ID)
	}
	if len(snap.Table) != 1 || snap.Table[0].Card != nil {
		t.Fatal("closed table card leaked in snapshot")
	}
	if snap.LeadUUID != egor.UUID || snap.OwnerUUID != egor.UUID || snap.SelfUUID != anton.UUID {
		t.Fatalf("snapshot ids = %+v", snap)
	}
	if snap.Setup == nil || snap.Phase != domain.PhaseTurns || len(snap.Players) != 3 {
		t.Fatalf("snapshot = %+v", snap)
	}

	if err := yura.MakeTurn(yura.Hand()[0]); err != nil {
		t.Fatalf("make turn error: %v", err)
	}
	if err := egor.OpenTableCard(0); err != nil {
		t.Fatalf("open table card error: %v", err)
	}
	snap = tb.lobby.Snapshot(yura)
	if snap.Table[0].Card == nil || snap.Table[1].Card != nil {
		t.Fatalf("table = %+v, want first card open only", snap.Table)
	}
}

func names(players []*Player) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.Name)
	}
	return out
}
