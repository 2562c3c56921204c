package domain

import (
	"math/rand"
	"time"
)

// Deck is a two-pile card pool. Cards are drawn from the draw pile; returned
// cards go to the discard pile, which is shuffled back in once the draw pile
// runs out.
type Deck[C Card] struct {
	draw    []C
	discard []C
	byID    map[int]C
	rng     *rand.Rand
}

// NewDeck builds a shuffled deck from cards. rng may be nil to use a time-seeded default.
func NewDeck[C Card](cards []C, rng *rand.Rand) *Deck[C] {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	d := &Deck[C]{
		draw: append([]C(nil), cards...),
		byID: make(map[int]C, len(cards)),
		rng:  rng,
	}
	for _, c := range cards {
		d.byID[c.CardID()] = c
	}
	d.shuffle(d.draw)
	return d
}

// Draw pops one card. An empty draw pile is replaced by the shuffled discard pile.
func (d *Deck[C]) Draw() (C, error) {
	if len(d.draw) == 0 {
		d.draw, d.discard = d.discard, nil
		d.shuffle(d.draw)
	}
	if len(d.draw) == 0 {
		var zero C
		return zero, ErrDeckExhausted
	}
	last := len(d.draw) - 1
	card := d.draw[last]
	d.draw = d.draw[:last]
	return card, nil
}

// DrawN draws n cards. On failure the cards drawn so far are discarded again.
func (d *Deck[C]) DrawN(n int) ([]C, error) {
	out := make([]C, 0, n)
	for i := 0; i < n; i++ {
		card, err := d.Draw()
		if err != nil {
			d.Dump(out...)
			return nil, err
		}
		out = append(out, card)
	}
	return out, nil
}

// Dump puts cards on the discard pile.
func (d *Deck[C]) Dump(cards ...C) {
	d.discard = append(d.discard, cards...)
}

// CardByID looks up a card from the set the deck was built with.
func (d *Deck[C]) CardByID(id int) (C, bool) {
	c, ok := d.byID[id]
	return c, ok
}

// Total is the number of distinct cards the deck was built with.
func (d *Deck[C]) Total() int { return len(d.byID) }

// DrawPileLen is the number of cards left to draw before a reshuffle.
func (d *Deck[C]) DrawPileLen() int { return len(d.draw) }

// DiscardPileLen is the number of cards waiting on the discard pile.
func (d *Deck[C]) DiscardPileLen() int { return len(d.discard) }

func (d *Deck[C]) shuffle(cards []C) {
	d.rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
}
