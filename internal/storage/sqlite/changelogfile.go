package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"cardsagainst/internal/ports"
)

type changelogFile []struct {
	Version string `json:"version"`
	Text    string `json:"text"`
	Date    string `json:"date"`
}

// ParseChangelogFile decodes a JSON list of release notes, oldest first.
func ParseChangelogFile(data []byte) ([]ports.ChangelogEntry, error) {
	var f changelogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode changelog file: %w", err)
	}
	entries := make([]ports.ChangelogEntry, 0, len(f))
	for i, e := range f {
		if e.Version == "" || e.Text == "" {
			return nil, fmt.Errorf("changelog entry %d: version and text are required", i)
		}
		releasedOn, err := time.Parse(dateLayout, e.Date)
		if err != nil {
			return nil, fmt.Errorf("changelog entry %d: bad date %q", i, e.Date)
		}
		entries = append(entries, ports.ChangelogEntry{Version: e.Version, Text: e.Text, ReleasedOn: releasedOn})
	}
	return entries, nil
}
