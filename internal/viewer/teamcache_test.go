package viewer_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jensholdgaard/player-auction/internal/model"
	"github.com/jensholdgaard/player-auction/internal/viewer"
)

func newTestCache(t *testing.T) *viewer.TeamCache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "teams-cache.json")
	return viewer.NewTeamCache(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTeamCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	defaults := testTeams()

	live := testTeams()
	live[0].Funds = 9550
	live[0].Roster = []model.Player{{ID: "p1", Name: "V Sharma"}}

	if err := cache.Save(live); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := cache.Load(defaults)
	if got[0].Funds != 9550 {
		t.Errorf("funds = %d, want cached 9550", got[0].Funds)
	}
	if len(got[0].Roster) != 1 || got[0].Roster[0].ID != "p1" {
		t.Errorf("roster = %+v", got[0].Roster)
	}
	// Identity fields always come from the defaults.
	if got[0].Name != "Mumbai Mavericks" || got[0].InitialFunds != 10000 {
		t.Errorf("identity fields overridden: %+v", got[0])
	}
	// Teams absent from the cache keep their defaults.
	if got[1].Funds != 5000 {
		t.Errorf("uncached team funds = %d, want 5000", got[1].Funds)
	}
}

func TestTeamCacheMissingFile(t *testing.T) {
	cache := newTestCache(t)
	got := cache.Load(testTeams())
	if len(got) != 2 || got[0].Funds != 10000 {
		t.Errorf("missing cache must fall back to defaults, got %+v", got)
	}
}

func TestTeamCacheCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teams-cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	cache := viewer.NewTeamCache(path, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got := cache.Load(testTeams())
	if len(got) != 2 || got[0].Funds != 10000 {
		t.Errorf("corrupt cache must fall back to defaults, got %+v", got)
	}
}

func TestTeamCacheClear(t *testing.T) {
	cache := newTestCache(t)
	if err := cache.Save(testTeams()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	// Clearing twice is fine.
	if err := cache.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}
