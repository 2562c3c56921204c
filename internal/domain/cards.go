package domain

// TextCase is the grammatical case a setup expects its punchline in.
type TextCase string

const (
	CaseNominative    TextCase = "nom"
	CaseGenitive      TextCase = "gen"
	CaseDative        TextCase = "dat"
	CaseAccusative    TextCase = "acc"
	CaseInstrumental  TextCase = "inst"
	CasePrepositional TextCase = "prep"
)

// SetupCard is the prompt card read by the lead.
type SetupCard struct {
	ID                  int
	Text                string
	Case                TextCase
	StartsWithPunchline bool
}

// CardID implements Card.
func (c SetupCard) CardID() int { return c.ID }

// PunchlineText is one rendering of a punchline for a set of grammatical forms.
type PunchlineText struct {
	Case  TextCase `json:"case"`
	Forms []string `json:"forms"`
}

// PunchlineCard is played by non-lead players to complete a setup.
type PunchlineCard struct {
	ID   int
	Text []PunchlineText
}

// CardID implements Card.
func (c PunchlineCard) CardID() int { return c.ID }

// Card is the set of card kinds a Deck can hold.
type Card interface {
	SetupCard | PunchlineCard
	CardID() int
}

// IndexOfCard returns the position of the card with the given id, or -1.
func IndexOfCard[C Card](cards []C, id int) int {
	for i, c := range cards {
		if c.CardID() == id {
			return i
		}
	}
	return -1
}

// RemoveCard returns cards without the first card matching id.
func RemoveCard[C Card](cards []C, id int) []C {
	idx := IndexOfCard(cards, id)
	if idx < 0 {
		return cards
	}
	out := make([]C, 0, len(cards)-1)
	out = append(out, cards[:idx]...)
	return append(out, cards[idx+1:]...)
}
