package app

import (
	"time"

	"cardsagainst/internal/ports"
)

// Evictor removes disconnected players once their grace period runs out.
// A reconnect within the period cancels the removal.
type Evictor struct {
	sched     Scheduler
	grace     time.Duration
	logger    ports.Logger
	pending   map[string]CancelFunc
	onEvicted func(l *Lobby, p *Player)
}

func NewEvictor(sched Scheduler, grace time.Duration, logger ports.Logger) *Evictor {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Evictor{
		sched:   sched,
		grace:   grace,
		logger:  logger,
		pending: make(map[string]CancelFunc),
	}
}

// OnEvicted registers fn to run after each removal, e.g. to drop empty lobbies.
func (e *Evictor) OnEvicted(fn func(l *Lobby, p *Player)) {
	e.onEvicted = fn
}

// Schedule arms the removal of p, replacing any earlier one.
func (e *Evictor) Schedule(l *Lobby, p *Player) {
	e.Cancel(p)
	e.pending[p.Token] = e.sched.Schedule(e.grace, func() {
		delete(e.pending, p.Token)
		if err := l.RemovePlayer(p); err != nil {
			e.logger.Warn("lobby %s: evict player %s: %v", l.ID, p.UUID, err)
		}
		if e.onEvicted != nil {
			e.onEvicted(l, p)
		}
	})
}

// Cancel disarms a pending removal. It reports whether one was pending.
func (e *Evictor) Cancel(p *Player) bool {
	cancel, ok := e.pending[p.Token]
	if !ok {
		return false
	}
	cancel()
	delete(e.pending, p.Token)
	return true
}

func (e *Evictor) Pending(p *Player) bool {
	_, ok := e.pending[p.Token]
	return ok
}
