// Package main loads card decks and release notes from JSON files into the SQLite store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cardsagainst/internal/config"
	"cardsagainst/internal/storage/sqlite"
)

func main() {
	var env config.Env
	if err := config.ParseEnv(&env); err != nil {
		config.Exitf("Error: %v", err)
	}

	var deckPath, changelogPath string
	flag.StringVar(&deckPath, "deck", "data/decks/base.json", "deck file to import")
	flag.StringVar(&changelogPath, "changelog", "data/changelog.json", "changelog file to import, empty to skip")
	flag.StringVar(&env.DBPath, "db", env.DBPath, "sqlite database path")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(deckPath)
	if err != nil {
		config.Exitf("Error: read deck: %v", err)
	}
	deck, err := sqlite.ParseDeckFile(data)
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	store, err := sqlite.Open(env.DBPath)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	defer store.Close()

	switch err := store.ImportDeck(ctx, deck); {
	case errors.Is(err, sqlite.ErrAlreadyExists):
		fmt.Printf("Deck %q already imported, skipping\n", deck.ID)
	case err != nil:
		store.Close()
		config.Exitf("Error: %v", err)
	default:
		fmt.Printf("Imported deck %q: %d setups, %d punchlines into %s\n", deck.ID, len(deck.Setups), len(deck.Punchlines), env.DBPath)
	}

	if changelogPath == "" {
		return
	}
	data, err = os.ReadFile(changelogPath)
	if err != nil {
		store.Close()
		config.Exitf("Error: read changelog: %v", err)
	}
	entries, err := sqlite.ParseChangelogFile(data)
	if err != nil {
		store.Close()
		config.Exitf("Error: %v", err)
	}
	added, err := store.ImportChangelog(ctx, entries)
	if err != nil {
		store.Close()
		config.Exitf("Error: %v", err)
	}
	fmt.Printf("Imported %d of %d changelog entries\n", added, len(entries))
}
