package viewer

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jensholdgaard/player-auction/internal/model"
)

// TeamCache persists a viewer's last-known team wallets and rosters to a
// local JSON file so a reload does not blank the dashboard while the
// canonical state is re-fetched. The cache is merged field-by-field with
// the configured defaults; it is never trusted wholesale.
type TeamCache struct {
	path   string
	logger *slog.Logger
}

// NewTeamCache returns a cache at the given path.
func NewTeamCache(path string, logger *slog.Logger) *TeamCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &TeamCache{path: path, logger: logger}
}

type cachedTeam struct {
	ID     string         `json:"id"`
	Funds  *model.Money   `json:"funds,omitempty"`
	Roster []model.Player `json:"roster,omitempty"`
}

// Load merges cached wallet/roster values into the configured team
// defaults, keyed by team id. Identity fields (name, code, color, initial
// purse) always come from the defaults. Any read or decode failure falls
// back to the defaults.
func (c *TeamCache) Load(defaults []model.Team) []model.Team {
	out := make([]model.Team, len(defaults))
	for i, t := range defaults {
		out[i] = t.Clone()
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("reading team cache failed", slog.Any("error", err))
		}
		return out
	}

	var cached []cachedTeam
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("decoding team cache failed", slog.Any("error", err))
		return out
	}

	byID := make(map[string]cachedTeam, len(cached))
	for _, ct := range cached {
		if ct.ID != "" {
			byID[ct.ID] = ct
		}
	}

	for i := range out {
		ct, ok := byID[out[i].ID]
		if !ok {
			continue
		}
		if ct.Funds != nil {
			out[i].Funds = *ct.Funds
		}
		if ct.Roster != nil {
			out[i].Roster = ct.Roster
		}
	}
	return out
}

// Save writes the current team state to disk.
func (c *TeamCache) Save(teams []model.Team) error {
	cached := make([]cachedTeam, len(teams))
	for i, t := range teams {
		funds := t.Funds
		cached[i] = cachedTeam{ID: t.ID, Funds: &funds, Roster: t.Roster}
	}
	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}

// Clear removes the cache file; a reset calls this so stale wallets do not
// resurface.
func (c *TeamCache) Clear() error {
	err := os.Remove(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
