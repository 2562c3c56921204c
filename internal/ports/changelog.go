package ports

import (
	"context"
	"time"
)

// ChangelogEntry is one line of release notes.
type ChangelogEntry struct {
	Version    string
	Text       string
	ReleasedOn time.Time // date only
}

// ChangelogSource serves release notes to clients.
type ChangelogSource interface {
	// Changelog returns the entries added after the last entry of version
	// since, oldest first, together with the latest known version. An empty
	// or unknown since yields no entries.
	Changelog(ctx context.Context, since string) ([]ChangelogEntry, string, error)
}
