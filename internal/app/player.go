package app

import (
	"strings"

	"github.com/google/uuid"

	"cardsagainst/internal/domain"
)

// Player is a seat in a lobby. Its identity survives disconnects and removal,
// so a reconnect with the same token resumes the same Player.
type Player struct {
	UUID  string
	Token string
	Name  string
	Emoji string

	hand      []domain.PunchlineCard
	score     int
	ready     bool
	connected bool
	observer  Observer
	lobby     *Lobby
}

// NewPlayer creates a disconnected player with a fresh uuid and an 8 character token.
func NewPlayer(name, emoji string) *Player {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return &Player{
		UUID:     id,
		Token:    token,
		Name:     name,
		Emoji:    emoji,
		observer: NopObserver{},
	}
}

func (p *Player) Hand() []domain.PunchlineCard {
	return append([]domain.PunchlineCard(nil), p.hand...)
}

func (p *Player) Score() int      { return p.score }
func (p *Player) IsReady() bool   { return p.ready }
func (p *Player) Connected() bool { return p.connected }
func (p *Player) Lobby() *Lobby   { return p.lobby }

// Connect attaches obs and replays the lobby to it. A player removed after its
// grace period is resurrected from the grave.
func (p *Player) Connect(obs Observer) error {
	if p.lobby == nil {
		return domain.ErrUnknownPlayer
	}
	if err := p.lobby.Connect(p); err != nil {
		return err
	}
	if obs == nil {
		obs = NopObserver{}
	}
	p.connected = true
	p.observer = obs
	obs.Welcome()
	return nil
}

// Disconnect detaches the observer. Removal is left to the grace period scheduler.
func (p *Player) Disconnect() {
	p.observer = NopObserver{}
	p.connected = false
	if p.lobby != nil {
		p.lobby.Disconnect(p)
	}
}

func (p *Player) StartGame(settings domain.LobbySettings, setups *domain.Deck[domain.SetupCard], punchlines *domain.Deck[domain.PunchlineCard]) (*Game, error) {
	if p.lobby == nil {
		return nil, domain.ErrUnknownPlayer
	}
	return p.lobby.StartGame(p, settings, setups, punchlines)
}

func (p *Player) MakeTurn(card domain.PunchlineCard) error {
	if p.lobby == nil {
		return domain.ErrUnknownPlayer
	}
	return p.lobby.MakeTurn(p, card)
}

func (p *Player) OpenTableCard(index int) error {
	if p.lobby == nil {
		return domain.ErrUnknownPlayer
	}
	return p.lobby.OpenTableCard(p, index)
}

func (p *Player) PickTurnWinner(card domain.PunchlineCard) error {
	if p.lobby == nil {
		return domain.ErrUnknownPlayer
	}
	return p.lobby.PickTurnWinner(p, card)
}

func (p *Player) ContinueGame() error {
	if p.lobby == nil {
		return domain.ErrUnknownPlayer
	}
	return p.lobby.ContinueGame(p)
}

func (p *Player) RefreshHand() error {
	if p.lobby == nil {
		return domain.ErrUnknownPlayer
	}
	return p.lobby.RefreshHand(p)
}
