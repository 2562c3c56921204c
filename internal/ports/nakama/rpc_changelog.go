package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"
)

type changelogRequest struct {
	Version string `json:"version"`
}

type changelogEntry struct {
	Version string `json:"version"`
	Text    string `json:"text"`
	Date    string `json:"date"` // YYYY-MM-DD
}

// ChangelogResponse lists what changed since the client's version.
type ChangelogResponse struct {
	Changelog      []changelogEntry `json:"changelog"`
	CurrentVersion string           `json:"currentVersion"`
}

// rpcChangelog returns the release notes added after the caller's version.
// An empty payload only reports the current version.
func (d *runtimeDeps) rpcChangelog(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req changelogRequest
	if strings.TrimSpace(payload) != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("Invalid payload", codeInvalidArgument)
		}
	}
	if d.changelog == nil {
		return "", runtime.NewError("Changelog is not configured", codeInternal)
	}

	entries, current, err := d.changelog.Changelog(ctx, strings.TrimSpace(req.Version))
	if err != nil {
		logger.Error("Changelog query error: %v", err)
		return "", runtime.NewError("Internal error", codeInternal)
	}
	resp := ChangelogResponse{Changelog: make([]changelogEntry, 0, len(entries)), CurrentVersion: current}
	for _, e := range entries {
		resp.Changelog = append(resp.Changelog, changelogEntry{
			Version: e.Version,
			Text:    e.Text,
			Date:    e.ReleasedOn.Format("2006-01-02"),
		})
	}
	b, _ := json.Marshal(resp)
	return string(b), nil
}
