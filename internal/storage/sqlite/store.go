// Package sqlite provides the SQLite-backed card source and game stats store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"cardsagainst/internal/domain"
	"cardsagainst/internal/platform/storage/sqlitemigrate"
	"cardsagainst/internal/ports"
	"cardsagainst/internal/storage/sqlite/migrations"
)

var (
	// ErrDeckNotFound is returned when a deck has no cards of the requested kind.
	ErrDeckNotFound = errors.New("deck not found")
	// ErrAlreadyExists is returned on duplicate deck or game ids.
	ErrAlreadyExists = errors.New("record already exists")
)

var (
	_ ports.CardSource      = (*Store)(nil)
	_ ports.GameStatsStore  = (*Store)(nil)
	_ ports.ChangelogSource = (*Store)(nil)
)

// Store persists decks and game statistics in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// DeckImport is a deck to be loaded into the store. Card ids are assigned on insert.
type DeckImport struct {
	ID         string
	Name       string
	Setups     []domain.SetupCard
	Punchlines []domain.PunchlineCard
}

const dateLayout = "2006-01-02"

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetSetups returns a freshly shuffled setup deck.
func (s *Store) GetSetups(ctx context.Context, deckID string) (*domain.Deck[domain.SetupCard], error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, text, text_case, starts_with_punchline FROM setup_cards WHERE deck_id = ? ORDER BY id`,
		deckID,
	)
	if err != nil {
		return nil, fmt.Errorf("query setup cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.SetupCard
	for rows.Next() {
		var (
			card     domain.SetupCard
			textCase string
		)
		if err := rows.Scan(&card.ID, &card.Text, &textCase, &card.StartsWithPunchline); err != nil {
			return nil, fmt.Errorf("scan setup card: %w", err)
		}
		card.Case = domain.TextCase(textCase)
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setup cards: %w", err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: %q has no setup cards", ErrDeckNotFound, deckID)
	}
	return domain.NewDeck(cards, nil), nil
}

// GetPunchlines returns a freshly shuffled punchline deck.
func (s *Store) GetPunchlines(ctx context.Context, deckID string) (*domain.Deck[domain.PunchlineCard], error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, forms_json FROM punchline_cards WHERE deck_id = ? ORDER BY id`,
		deckID,
	)
	if err != nil {
		return nil, fmt.Errorf("query punchline cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.PunchlineCard
	for rows.Next() {
		var (
			card  domain.PunchlineCard
			forms string
		)
		if err := rows.Scan(&card.ID, &forms); err != nil {
			return nil, fmt.Errorf("scan punchline card: %w", err)
		}
		if err := json.Unmarshal([]byte(forms), &card.Text); err != nil {
			return nil, fmt.Errorf("decode punchline card %d: %w", card.ID, err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate punchline cards: %w", err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: %q has no punchline cards", ErrDeckNotFound, deckID)
	}
	return domain.NewDeck(cards, nil), nil
}

// RecordGameStarted inserts one game_stats row.
func (s *Store) RecordGameStarted(ctx context.Context, stats ports.GameStats) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(stats.GameID) == "" {
		return fmt.Errorf("game id is required")
	}
	startedAt := stats.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO game_stats (
		   game_id,
		   lobby_id,
		   deck_id,
		   player_count,
		   winning_score,
		   turn_duration_ms,
		   hand_size,
		   started_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.GameID,
		stats.LobbyID,
		stats.DeckID,
		stats.PlayerCount,
		stats.WinningScore,
		stats.TurnDuration.Milliseconds(),
		stats.HandSize,
		toMillis(startedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("game %s: %w", stats.GameID, ErrAlreadyExists)
		}
		return fmt.Errorf("record game stats: %w", err)
	}
	return nil
}

// CountGames returns how many games were started with deckID. An empty deckID counts all games.
func (s *Store) CountGames(ctx context.Context, deckID string) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM game_stats`
	var args []any
	if deckID != "" {
		query += ` WHERE deck_id = ?`
		args = append(args, deckID)
	}
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}

// ImportDeck stores a deck and all of its cards in one transaction.
func (s *Store) ImportDeck(ctx context.Context, deck DeckImport) (err error) {
	if err := s.check(ctx); err != nil {
		return err
	}
	deckID := strings.TrimSpace(deck.ID)
	if deckID == "" {
		return fmt.Errorf("deck id is required")
	}
	if len(deck.Setups) == 0 || len(deck.Punchlines) == 0 {
		return fmt.Errorf("deck %q needs setup and punchline cards", deckID)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	name := strings.TrimSpace(deck.Name)
	if name == "" {
		name = deckID
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO decks (id, name, created_at) VALUES (?, ?, ?)`,
		deckID, name, toMillis(time.Now()),
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("deck %q: %w", deckID, ErrAlreadyExists)
		}
		return fmt.Errorf("insert deck: %w", err)
	}

	for _, card := range deck.Setups {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO setup_cards (deck_id, text, text_case, starts_with_punchline) VALUES (?, ?, ?, ?)`,
			deckID, card.Text, string(card.Case), card.StartsWithPunchline,
		); err != nil {
			return fmt.Errorf("insert setup card: %w", err)
		}
	}
	for _, card := range deck.Punchlines {
		var forms []byte
		forms, err = json.Marshal(card.Text)
		if err != nil {
			return fmt.Errorf("encode punchline card: %w", err)
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO punchline_cards (deck_id, forms_json) VALUES (?, ?)`,
			deckID, string(forms),
		); err != nil {
			return fmt.Errorf("insert punchline card: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// ImportChangelog appends entries in order. Entries already present with the
// same version and text are skipped, so a changelog file can be imported again.
// It returns how many entries were added.
func (s *Store) ImportChangelog(ctx context.Context, entries []ports.ChangelogEntry) (added int, err error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	for i, entry := range entries {
		if strings.TrimSpace(entry.Version) == "" || strings.TrimSpace(entry.Text) == "" {
			return 0, fmt.Errorf("changelog entry %d: version and text are required", i)
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin changelog import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, entry := range entries {
		releasedOn := entry.ReleasedOn
		if releasedOn.IsZero() {
			releasedOn = time.Now()
		}
		var res sql.Result
		res, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO changelog (version, text, released_on) VALUES (?, ?, ?)`,
			strings.TrimSpace(entry.Version), entry.Text, releasedOn.UTC().Format(dateLayout),
		)
		if err != nil {
			return 0, fmt.Errorf("insert changelog entry: %w", err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit changelog import: %w", err)
	}
	return added, nil
}

// Changelog returns the entries added after the last entry of version since,
// plus the version of the newest entry.
func (s *Store) Changelog(ctx context.Context, since string) ([]ports.ChangelogEntry, string, error) {
	if err := s.check(ctx); err != nil {
		return nil, "", err
	}
	var current string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT version FROM changelog ORDER BY id DESC LIMIT 1`).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("query current version: %w", err)
	}
	if since == "" {
		return nil, current, nil
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT version, text, released_on FROM changelog
		 WHERE id > (SELECT MAX(id) FROM changelog WHERE version = ?)
		 ORDER BY id`,
		since,
	)
	if err != nil {
		return nil, "", fmt.Errorf("query changelog: %w", err)
	}
	defer rows.Close()

	var entries []ports.ChangelogEntry
	for rows.Next() {
		var (
			entry      ports.ChangelogEntry
			releasedOn string
		)
		if err := rows.Scan(&entry.Version, &entry.Text, &releasedOn); err != nil {
			return nil, "", fmt.Errorf("scan changelog entry: %w", err)
		}
		if entry.ReleasedOn, err = time.Parse(dateLayout, releasedOn); err != nil {
			return nil, "", fmt.Errorf("decode changelog date %q: %w", releasedOn, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate changelog: %w", err)
	}
	return entries, current, nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
