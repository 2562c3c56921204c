package sqlite

import (
	"encoding/json"
	"fmt"

	"cardsagainst/internal/domain"
)

type deckFile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Setups []struct {
		Text                string `json:"text"`
		Case                string `json:"case"`
		StartsWithPunchline bool   `json:"startsWithPunchline"`
	} `json:"setups"`
	Punchlines []struct {
		Text []domain.PunchlineText `json:"text"`
	} `json:"punchlines"`
}

var knownCases = map[domain.TextCase]bool{
	domain.CaseNominative:    true,
	domain.CaseGenitive:      true,
	domain.CaseDative:        true,
	domain.CaseAccusative:    true,
	domain.CaseInstrumental:  true,
	domain.CasePrepositional: true,
}

// ParseDeckFile decodes a JSON deck file into a DeckImport.
func ParseDeckFile(data []byte) (DeckImport, error) {
	var f deckFile
	if err := json.Unmarshal(data, &f); err != nil {
		return DeckImport{}, fmt.Errorf("decode deck file: %w", err)
	}
	deck := DeckImport{ID: f.ID, Name: f.Name}
	for i, s := range f.Setups {
		textCase := domain.TextCase(s.Case)
		if textCase == "" {
			textCase = domain.CaseNominative
		}
		if !knownCases[textCase] {
			return DeckImport{}, fmt.Errorf("setup %d: unknown case %q", i, s.Case)
		}
		if s.Text == "" {
			return DeckImport{}, fmt.Errorf("setup %d: text is required", i)
		}
		deck.Setups = append(deck.Setups, domain.SetupCard{
			Text:                s.Text,
			Case:                textCase,
			StartsWithPunchline: s.StartsWithPunchline,
		})
	}
	for i, p := range f.Punchlines {
		if len(p.Text) == 0 {
			return DeckImport{}, fmt.Errorf("punchline %d: text is required", i)
		}
		for _, t := range p.Text {
			if !knownCases[t.Case] || len(t.Forms) == 0 {
				return DeckImport{}, fmt.Errorf("punchline %d: bad form %q", i, t.Case)
			}
		}
		deck.Punchlines = append(deck.Punchlines, domain.PunchlineCard{Text: p.Text})
	}
	return deck, nil
}
