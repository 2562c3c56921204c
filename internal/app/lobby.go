package app

import (
	"math/rand"
	"time"

	"cardsagainst/internal/domain"
	"cardsagainst/internal/ports"
)

// MinPlayersToStartGame is the smallest roster that can play a round: one lead
// and one player submitting a punchline.
const MinPlayersToStartGame = 2

// Lobby is one game room. It is not safe for concurrent use; the owning match
// loop serializes every call, including scheduler callbacks.
type Lobby struct {
	ID string

	players   []*Player
	lead      *Player
	owner     *Player
	table     []*CardOnTable
	grave     map[*Player]struct{}
	turnCount int
	game      *Game
	state     *lobbyState

	sched  Scheduler
	rng    *rand.Rand
	logger ports.Logger
}

type LobbyOption func(*Lobby)

func WithScheduler(s Scheduler) LobbyOption { return func(l *Lobby) { l.sched = s } }
func WithRand(r *rand.Rand) LobbyOption     { return func(l *Lobby) { l.rng = r } }
func WithLogger(lg ports.Logger) LobbyOption {
	return func(l *Lobby) { l.logger = lg }
}

// NewLobby creates a lobby in the gathering phase owned by owner.
// The owner still has to be seated with AddPlayer.
func NewLobby(id string, owner *Player, opts ...LobbyOption) *Lobby {
	l := &Lobby{
		ID:    id,
		owner: owner,
		grave: make(map[*Player]struct{}),
		state: &lobbyState{phase: domain.PhaseGathering},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.sched == nil {
		l.sched = NewTimerQueue(time.Now())
	}
	if l.rng == nil {
		l.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if l.logger == nil {
		l.logger = ports.NopLogger{}
	}
	return l
}

func (l *Lobby) Phase() domain.Phase { return l.state.phase }
func (l *Lobby) Lead() *Player       { return l.lead }
func (l *Lobby) Owner() *Player      { return l.owner }
func (l *Lobby) TurnCount() int      { return l.turnCount }
func (l *Lobby) Game() *Game         { return l.game }

// Setup is the prompt of the current round, if one is in play.
func (l *Lobby) Setup() (domain.SetupCard, bool) {
	if l.state.phase == domain.PhaseGathering {
		return domain.SetupCard{}, false
	}
	return l.state.setup, true
}

// Winner is the player picked in the current judgement or the game winner once finished.
func (l *Lobby) Winner() *Player { return l.state.winner }

// Table returns the submitted cards in table order.
func (l *Lobby) Table() []*CardOnTable {
	return append([]*CardOnTable(nil), l.table...)
}

// AllPlayers is the lead followed by the queued players.
func (l *Lobby) AllPlayers() []*Player {
	all := make([]*Player, 0, len(l.players)+1)
	if l.lead != nil {
		all = append(all, l.lead)
	}
	return append(all, l.players...)
}

// AllPlayersExcept is AllPlayers without p.
func (l *Lobby) AllPlayersExcept(p *Player) []*Player {
	all := l.AllPlayers()
	out := all[:0]
	for _, other := range all {
		if other != p {
			out = append(out, other)
		}
	}
	return out
}

// Players is the rotation queue, excluding the lead.
func (l *Lobby) Players() []*Player {
	return append([]*Player(nil), l.players...)
}

// Seated reports whether p is the lead or queued.
func (l *Lobby) Seated(p *Player) bool {
	if p == nil {
		return false
	}
	if p == l.lead {
		return true
	}
	for _, other := range l.players {
		if other == p {
			return true
		}
	}
	return false
}

// InGrave reports whether p was removed and can still be resurrected.
func (l *Lobby) InGrave(p *Player) bool {
	_, ok := l.grave[p]
	return ok
}

// Empty reports whether nobody is seated.
func (l *Lobby) Empty() bool { return l.lead == nil && len(l.players) == 0 }

// FindPlayer looks a seated or removed player up by token.
func (l *Lobby) FindPlayer(token string) (*Player, bool) {
	for _, p := range l.AllPlayers() {
		if p.Token == token {
			return p, true
		}
	}
	for p := range l.grave {
		if p.Token == token {
			return p, true
		}
	}
	return nil, false
}

// AddPlayer seats p at the back of the queue and announces it to everyone, p included.
func (l *Lobby) AddPlayer(p *Player) {
	p.lobby = l
	l.players = append(l.players, p)
	for _, other := range l.AllPlayers() {
		other.observer.PlayerJoined(p)
	}
}

// Connect seats p again if it was removed, tops its hand up when a game is
// running and announces the connection to the others.
func (l *Lobby) Connect(p *Player) error {
	if !l.Seated(p) {
		if !l.InGrave(p) {
			return domain.ErrUnknownPlayer
		}
		delete(l.grave, p)
		l.AddPlayer(p)
		l.logger.Info("lobby %s: player %s resurrected", l.ID, p.UUID)
	}
	if l.game != nil && l.state.phase != domain.PhaseGathering {
		// A card already on the table still counts towards the hand.
		handSize := l.game.Settings.HandSize
		if l.CardOnTableOf(p) != nil {
			handSize--
		}
		for len(p.hand) < handSize {
			card, err := l.game.Punchlines.Draw()
			if err != nil {
				l.logger.Warn("lobby %s: cannot top up hand of %s: %v", l.ID, p.UUID, err)
				break
			}
			p.hand = append(p.hand, card)
		}
	}
	if l.owner == nil {
		l.owner = p
		for _, other := range l.AllPlayersExcept(p) {
			other.observer.OwnerChanged(p)
		}
	}
	for _, other := range l.AllPlayersExcept(p) {
		other.observer.PlayerConnected(p)
	}
	return nil
}

// Disconnect announces that p went away. p stays seated.
func (l *Lobby) Disconnect(p *Player) {
	for _, other := range l.AllPlayersExcept(p) {
		other.observer.PlayerDisconnected(p)
	}
}

// RemovePlayer moves p to the grave. The order is fixed: lead slot, queue,
// ownership, table, grave, then the active phase reacts.
func (l *Lobby) RemovePlayer(p *Player) error {
	if !l.Seated(p) {
		return domain.ErrUnknownPlayer
	}
	wasLead := p == l.lead
	if wasLead {
		l.lead = nil
	}
	l.players = removePlayer(l.players, p)

	if p == l.owner {
		l.owner = nil
		for _, other := range l.AllPlayers() {
			if other.connected {
				l.owner = other
				break
			}
		}
		for _, other := range l.AllPlayers() {
			other.observer.OwnerChanged(l.owner)
		}
	}

	if entry := l.CardOnTableOf(p); entry != nil {
		l.removeTableEntry(entry)
		if l.game != nil {
			l.game.Punchlines.Dump(entry.Card)
		}
	}
	if l.game != nil && len(p.hand) > 0 {
		l.game.Punchlines.Dump(p.hand...)
	}
	p.hand = nil
	p.score = 0
	p.ready = false

	l.grave[p] = struct{}{}
	for _, other := range l.AllPlayers() {
		other.observer.PlayerLeft(p)
	}
	l.logger.Info("lobby %s: player %s removed (lead=%t, seated=%d)", l.ID, p.UUID, wasLead, len(l.AllPlayers()))

	return l.onPlayerRemoved(wasLead)
}

// CardOnTableOf returns p's submission this round, or nil.
func (l *Lobby) CardOnTableOf(p *Player) *CardOnTable {
	for _, entry := range l.table {
		if entry.Player == p {
			return entry
		}
	}
	return nil
}

func (l *Lobby) tableEntryOf(cardID int) *CardOnTable {
	for _, entry := range l.table {
		if entry.Card.ID == cardID {
			return entry
		}
	}
	return nil
}

func (l *Lobby) removeTableEntry(entry *CardOnTable) {
	for i, e := range l.table {
		if e == entry {
			l.table = append(l.table[:i], l.table[i+1:]...)
			return
		}
	}
}

// changeLead rotates the queue: the old lead goes to the back, the front becomes lead.
func (l *Lobby) changeLead() error {
	if len(l.players) == 0 {
		return domain.ErrNotEnoughPlayers
	}
	if l.lead != nil {
		l.players = append(l.players, l.lead)
	}
	l.lead = l.players[0]
	l.players = l.players[1:]
	return nil
}

// startTurn rotates the lead, draws the next setup and enters the turns phase.
func (l *Lobby) startTurn() error {
	if len(l.AllPlayers()) < MinPlayersToStartGame {
		return domain.ErrNotEnoughPlayers
	}
	if err := l.changeLead(); err != nil {
		return err
	}
	setup, err := l.game.Setups.Draw()
	if err != nil {
		return err
	}
	l.turnCount++

	st := &lobbyState{phase: domain.PhaseTurns, setup: setup}
	l.transitTo(st)
	duration := l.game.Settings.TurnDuration
	if duration > 0 {
		st.cancel = l.sched.Schedule(duration, func() { l.onTurnTimeout(st) })
	}

	for _, p := range l.AllPlayers() {
		p.ready = false
		var drawn *domain.PunchlineCard
		if len(p.hand) < l.game.Settings.HandSize {
			card, err := l.game.Punchlines.Draw()
			if err != nil {
				l.logger.Warn("lobby %s: cannot top up hand of %s: %v", l.ID, p.UUID, err)
			} else {
				p.hand = append(p.hand, card)
				drawn = &card
			}
		}
		p.observer.TurnStarted(setup, duration, l.lead, l.turnCount, drawn)
	}
	l.logger.Debug("lobby %s: turn %d started, lead %s", l.ID, l.turnCount, l.lead.UUID)
	return nil
}

// abortGame drops the running game and returns everyone to the gathering phase.
func (l *Lobby) abortGame(reason error) {
	l.logger.Warn("lobby %s: game aborted: %v", l.ID, reason)
	l.transitTo(&lobbyState{phase: domain.PhaseGathering})
	l.resetRoster()
	l.game = nil
	for _, p := range l.AllPlayers() {
		p.observer.Welcome()
	}
}

// resetRoster clears every per-game field of the lobby and its players.
func (l *Lobby) resetRoster() {
	l.table = nil
	l.turnCount = 0
	for _, p := range l.AllPlayers() {
		p.hand = nil
		p.score = 0
		p.ready = false
	}
}

func removePlayer(players []*Player, p *Player) []*Player {
	for i, other := range players {
		if other == p {
			return append(players[:i:i], players[i+1:]...)
		}
	}
	return players
}
