package app

import (
	"fmt"

	"cardsagainst/internal/domain"
)

// lobbyState is the active phase with only the fields that phase uses.
// Deferred callbacks capture the state they were scheduled for and bail out
// when it is no longer the active one.
type lobbyState struct {
	phase  domain.Phase
	setup  domain.SetupCard // turns, judgement, finished
	cancel CancelFunc       // turn timer or post-judgement task
	winner *Player          // judgement after a pick, finished
}

func (l *Lobby) transitTo(st *lobbyState) {
	if prev := l.state; prev != nil && prev.cancel != nil {
		prev.cancel()
		prev.cancel = nil
	}
	l.logger.Debug("lobby %s: %s -> %s", l.ID, l.state.phase, st.phase)
	l.state = st
}

func (l *Lobby) invalid(op string) error {
	err := &domain.InvalidStateError{Op: op, Phase: l.state.phase}
	l.logger.Warn("lobby %s: %v", l.ID, err)
	return err
}

// StartGame deals a new game. In the finished phase it resets the lobby first.
func (l *Lobby) StartGame(p *Player, settings domain.LobbySettings, setups *domain.Deck[domain.SetupCard], punchlines *domain.Deck[domain.PunchlineCard]) (*Game, error) {
	switch l.state.phase {
	case domain.PhaseGathering:
		return l.startGame(p, settings, setups, punchlines)
	case domain.PhaseFinished:
		return l.playAgain(p, settings, setups, punchlines)
	}
	return nil, l.invalid("start_game")
}

func (l *Lobby) MakeTurn(p *Player, card domain.PunchlineCard) error {
	if l.state.phase != domain.PhaseTurns {
		return l.invalid("make_turn")
	}
	return l.makeTurn(p, card)
}

func (l *Lobby) RefreshHand(p *Player) error {
	if l.state.phase != domain.PhaseTurns {
		return l.invalid("refresh_hand")
	}
	return l.refreshHand(p)
}

// EndTurn closes the turns phase early, auto-submitting for connected players.
func (l *Lobby) EndTurn() error {
	if l.state.phase != domain.PhaseTurns {
		return l.invalid("end_turn")
	}
	return l.endTurn()
}

func (l *Lobby) OpenTableCard(p *Player, index int) error {
	if l.state.phase != domain.PhaseJudgement {
		return l.invalid("open_table_card")
	}
	return l.openTableCard(p, index)
}

func (l *Lobby) PickTurnWinner(p *Player, card domain.PunchlineCard) error {
	if l.state.phase != domain.PhaseJudgement {
		return l.invalid("pick_turn_winner")
	}
	return l.pickTurnWinner(p, card)
}

func (l *Lobby) ContinueGame(p *Player) error {
	if l.state.phase != domain.PhaseFinished {
		return l.invalid("continue_game")
	}
	return l.continueGame(p)
}

func (l *Lobby) onPlayerRemoved(wasLead bool) error {
	switch l.state.phase {
	case domain.PhaseTurns:
		if wasLead {
			l.voidRound("lead left")
			return nil
		}
		return l.tryEndTurn()
	case domain.PhaseJudgement:
		// Once a winner is picked the round is decided and afterJudgement
		// takes over, lead or not.
		if l.state.winner != nil {
			return nil
		}
		if wasLead {
			l.voidRound("lead left")
			return nil
		}
		if len(l.table) == 0 {
			l.voidRound("no cards left on table")
		}
	}
	return nil
}

func (l *Lobby) startGame(p *Player, settings domain.LobbySettings, setups *domain.Deck[domain.SetupCard], punchlines *domain.Deck[domain.PunchlineCard]) (*Game, error) {
	if err := l.checkCanStart(p, settings); err != nil {
		return nil, err
	}
	if setups == nil || punchlines == nil {
		return nil, fmt.Errorf("%w: both decks are required", domain.ErrInvalidSettings)
	}
	all := l.AllPlayers()
	if setups.Total() == 0 {
		return nil, fmt.Errorf("%w: setup deck is empty", domain.ErrInvalidSettings)
	}
	if need := settings.HandSize * len(all); punchlines.Total() < need {
		return nil, fmt.Errorf("%w: punchline deck has %d cards, %d players need %d", domain.ErrInvalidSettings, punchlines.Total(), len(all), need)
	}

	l.game = newGame(settings, setups, punchlines)
	for _, pl := range all {
		hand, err := punchlines.DrawN(settings.HandSize)
		if err != nil {
			l.abortGame(err)
			return nil, err
		}
		pl.hand = append(pl.hand, hand...)
		pl.observer.GameStarted(pl.Hand())
	}
	if err := l.startTurn(); err != nil {
		l.abortGame(err)
		return nil, err
	}
	l.logger.Info("lobby %s: game %s started with %d players", l.ID, l.game.ID, len(all))
	return l.game, nil
}

func (l *Lobby) checkCanStart(p *Player, settings domain.LobbySettings) error {
	if p != l.owner {
		return domain.ErrPlayerNotOwner
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if len(l.AllPlayers()) < MinPlayersToStartGame {
		return domain.ErrNotEnoughPlayers
	}
	return nil
}

func (l *Lobby) playAgain(p *Player, settings domain.LobbySettings, setups *domain.Deck[domain.SetupCard], punchlines *domain.Deck[domain.PunchlineCard]) (*Game, error) {
	if err := l.checkCanStart(p, settings); err != nil {
		return nil, err
	}
	l.resetRoster()
	l.game = nil
	l.transitTo(&lobbyState{phase: domain.PhaseGathering})
	return l.startGame(p, settings, setups, punchlines)
}

func (l *Lobby) makeTurn(p *Player, card domain.PunchlineCard) error {
	if !l.Seated(p) {
		return domain.ErrUnknownPlayer
	}
	if p == l.lead {
		return domain.ErrLeadCannotSubmit
	}
	idx := domain.IndexOfCard(p.hand, card.ID)
	if idx < 0 {
		return domain.ErrCardNotInPlayerHand
	}
	l.putCardOnTable(p, p.hand[idx])
	return l.tryEndTurn()
}

// putCardOnTable records p's submission, returning any earlier one to p's hand.
func (l *Lobby) putCardOnTable(p *Player, card domain.PunchlineCard) {
	if prev := l.CardOnTableOf(p); prev != nil {
		l.removeTableEntry(prev)
		p.hand = append(p.hand, prev.Card)
	}
	p.hand = domain.RemoveCard(p.hand, card.ID)
	l.table = append(l.table, &CardOnTable{Card: card, Player: p})
	p.ready = true
	for _, other := range l.AllPlayers() {
		other.observer.PlayerReady(p)
	}
}

// tryEndTurn ends the turn once every connected non-lead player is ready.
func (l *Lobby) tryEndTurn() error {
	for _, p := range l.players {
		if p.connected && !p.ready {
			return nil
		}
	}
	return l.endTurn()
}

func (l *Lobby) onTurnTimeout(st *lobbyState) {
	if l.state != st {
		return
	}
	st.cancel = nil
	l.logger.Debug("lobby %s: turn %d timed out", l.ID, l.turnCount)
	if err := l.endTurn(); err != nil {
		l.logger.Error("lobby %s: end turn on timeout: %v", l.ID, err)
	}
}

func (l *Lobby) endTurn() error {
	st := l.state
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	for _, p := range l.players {
		if p.connected && !p.ready && len(p.hand) > 0 {
			l.putCardOnTable(p, p.hand[l.rng.Intn(len(p.hand))])
		}
	}
	l.rng.Shuffle(len(l.table), func(i, j int) {
		l.table[i], l.table[j] = l.table[j], l.table[i]
	})
	for _, p := range l.AllPlayers() {
		p.observer.AllPlayersReady()
	}
	if l.lead == nil {
		return domain.ErrVotingUnsupported
	}
	if len(l.table) == 0 {
		l.voidRound("no cards submitted")
		return nil
	}
	l.transitTo(&lobbyState{phase: domain.PhaseJudgement, setup: st.setup})
	return nil
}

func (l *Lobby) refreshHand(p *Player) error {
	if !l.Seated(p) {
		return domain.ErrUnknownPlayer
	}
	if p.ready {
		return domain.ErrPlayerAlreadyReady
	}
	if p.score < 0 {
		return domain.ErrScoreTooLow
	}
	hand, err := l.game.Punchlines.DrawN(l.game.Settings.HandSize)
	if err != nil {
		return err
	}
	l.game.Punchlines.Dump(p.hand...)
	p.hand = hand
	p.score--
	p.observer.HandRefreshed(p.Hand())
	for _, other := range l.AllPlayers() {
		other.observer.PlayerScoreChanged(p)
	}
	return nil
}

func (l *Lobby) openTableCard(p *Player, index int) error {
	if p != l.lead {
		return domain.ErrPlayerNotLead
	}
	if index < 0 || index >= len(l.table) {
		return domain.ErrTableCardNotFound
	}
	entry := l.table[index]
	entry.Open = true
	for _, other := range l.AllPlayers() {
		other.observer.TableCardOpened(index, entry)
	}
	return nil
}

func (l *Lobby) pickTurnWinner(p *Player, card domain.PunchlineCard) error {
	if p != l.lead {
		return domain.ErrPlayerNotLead
	}
	st := l.state
	if st.winner != nil {
		return l.invalid("pick_turn_winner")
	}
	for _, entry := range l.table {
		if !entry.Open {
			return domain.ErrNotAllCardsOpened
		}
	}
	entry := l.tableEntryOf(card.ID)
	if entry == nil {
		return domain.ErrCardNotOnTable
	}

	winner := entry.Player
	winner.score++
	st.winner = winner
	for _, other := range l.AllPlayers() {
		other.observer.TurnEnded(winner, entry.Card)
	}
	for _, e := range l.table {
		l.game.Punchlines.Dump(e.Card)
	}
	l.table = nil

	delay := l.game.Settings.StartTurnDelay
	if l.reachedWinningScore(winner) {
		delay = l.game.Settings.FinishDelay
	}
	st.cancel = l.sched.Schedule(delay, func() { l.afterJudgement(st) })
	return nil
}

func (l *Lobby) reachedWinningScore(p *Player) bool {
	return !l.game.Endless && l.Seated(p) && p.score >= l.game.Settings.WinningScore
}

// afterJudgement runs once the post-pick delay elapsed. The finish condition is
// evaluated again since the winner may have left in the meantime.
func (l *Lobby) afterJudgement(st *lobbyState) {
	if l.state != st {
		return
	}
	st.cancel = nil
	if l.reachedWinningScore(st.winner) {
		l.finishGame(st)
		return
	}
	l.game.Setups.Dump(st.setup)
	if err := l.startTurn(); err != nil {
		l.abortGame(err)
	}
}

func (l *Lobby) finishGame(st *lobbyState) {
	for _, p := range l.AllPlayers() {
		p.observer.GameFinished(st.winner)
	}
	l.transitTo(&lobbyState{phase: domain.PhaseFinished, setup: st.setup, winner: st.winner})
	l.logger.Info("lobby %s: game %s finished, winner %s", l.ID, l.game.ID, st.winner.UUID)
}

func (l *Lobby) continueGame(p *Player) error {
	if p != l.owner {
		return domain.ErrPlayerNotOwner
	}
	if len(l.AllPlayers()) < MinPlayersToStartGame {
		return domain.ErrNotEnoughPlayers
	}
	l.game.Endless = true
	l.game.Setups.Dump(l.state.setup)
	if err := l.startTurn(); err != nil {
		l.abortGame(err)
		return err
	}
	return nil
}

// voidRound cancels the current round: submissions go back to their owners
// and a new turn starts with the next lead. Everyone gets a fresh snapshot.
func (l *Lobby) voidRound(reason string) {
	l.logger.Info("lobby %s: round %d voided: %s", l.ID, l.turnCount, reason)
	for _, entry := range l.table {
		entry.Player.hand = append(entry.Player.hand, entry.Card)
	}
	l.table = nil
	l.game.Setups.Dump(l.state.setup)
	if err := l.startTurn(); err != nil {
		l.abortGame(err)
		return
	}
	for _, p := range l.AllPlayers() {
		p.observer.Welcome()
	}
}
