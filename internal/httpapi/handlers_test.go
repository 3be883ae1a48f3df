package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jensholdgaard/player-auction/internal/auction"
	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/health"
	"github.com/jensholdgaard/player-auction/internal/httpapi"
	"github.com/jensholdgaard/player-auction/internal/hub"
	"github.com/jensholdgaard/player-auction/internal/model"
	"github.com/jensholdgaard/player-auction/internal/store"
)

// memRepo is an in-memory implementation of the repository interfaces for
// handler tests.
type memRepo struct {
	players []model.Player
	teams   []model.Team
	logs    []model.LogEntry
}

func (m *memRepo) List(_ context.Context) ([]model.Player, error) { return m.players, nil }

func (m *memRepo) Get(_ context.Context, id string) (*model.Player, error) {
	for i := range m.players {
		if m.players[i].ID == id {
			p := m.players[i].Clone()
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memRepo) UpdateAuction(_ context.Context, id string, u store.AuctionUpdate) (*model.Player, error) {
	for i := range m.players {
		if m.players[i].ID != id {
			continue
		}
		p := &m.players[i]
		if u.CurrentBid != nil {
			if *u.CurrentBid < 0 {
				return nil, store.ErrInvalidField
			}
			p.CurrentBid = *u.CurrentBid
		}
		if u.HighestBidder != nil {
			p.HighestBidder = *u.HighestBidder
		}
		if u.SoldStatus != nil {
			p.SoldStatus = *u.SoldStatus
		}
		cp := p.Clone()
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *memRepo) ResetAll(_ context.Context) ([]model.Player, error) {
	for i := range m.players {
		m.players[i].ClearSale()
		m.players[i].CurrentBid = 0
		m.players[i].HighestBidder = ""
	}
	return m.players, nil
}

func (m *memRepo) Seed(_ context.Context, players []model.Player) error {
	m.players = players
	return nil
}

type memTeamRepo struct {
	mem *memRepo
}

func (m *memTeamRepo) List(_ context.Context) ([]model.Team, error) { return m.mem.teams, nil }
func (m *memTeamRepo) Get(_ context.Context, id string) (*model.Team, error) {
	for i := range m.mem.teams {
		if m.mem.teams[i].ID == id {
			t := m.mem.teams[i].Clone()
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memTeamRepo) Sell(_ context.Context, tx store.SellTx) error {
	for i := range m.mem.teams {
		if m.mem.teams[i].ID != tx.TeamID {
			continue
		}
		team := &m.mem.teams[i]
		if team.Funds < tx.Price {
			return store.ErrInsufficientPurse
		}
		if team.PlayerCount() >= model.DefaultRosterCap {
			return store.ErrRosterFull
		}
		team.Funds -= tx.Price
		team.Roster = append(team.Roster, model.Player{ID: tx.PlayerID, SoldPrice: &tx.Price})
		for j := range m.mem.players {
			if m.mem.players[j].ID == tx.PlayerID {
				m.mem.players[j].SoldStatus = model.StatusSold
				m.mem.players[j].SoldTo = tx.TeamID
				price := tx.Price
				m.mem.players[j].SoldPrice = &price
			}
		}
		return nil
	}
	return store.ErrNotFound
}

func (m *memTeamRepo) UndoSell(_ context.Context, tx store.SellTx) error {
	for i := range m.mem.teams {
		if m.mem.teams[i].ID != tx.TeamID {
			continue
		}
		team := &m.mem.teams[i]
		found := false
		roster := team.Roster[:0]
		for _, p := range team.Roster {
			if p.ID == tx.PlayerID {
				found = true
				continue
			}
			roster = append(roster, p)
		}
		if !found {
			return store.ErrNotSold
		}
		team.Roster = roster
		team.Funds += tx.Price
		for j := range m.mem.players {
			if m.mem.players[j].ID == tx.PlayerID {
				m.mem.players[j].ClearSale()
			}
		}
		return nil
	}
	return store.ErrNotFound
}

func (m *memTeamRepo) ResetAll(_ context.Context) error {
	for i := range m.mem.teams {
		m.mem.teams[i].Funds = m.mem.teams[i].InitialFunds
		m.mem.teams[i].Roster = nil
	}
	return nil
}

func (m *memTeamRepo) Seed(_ context.Context, teams []model.Team) error {
	m.mem.teams = teams
	return nil
}

type memLogRepo struct {
	mem *memRepo
}

func (m *memLogRepo) Append(_ context.Context, e model.LogEntry) error {
	m.mem.logs = append(m.mem.logs, e)
	return nil
}

func (m *memLogRepo) ListRecent(_ context.Context, _ int) ([]model.LogEntry, error) {
	return m.mem.logs, nil
}

func (m *memLogRepo) DeleteAll(_ context.Context) error {
	m.mem.logs = nil
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memRepo) {
	t.Helper()
	mem := &memRepo{
		players: []model.Player{
			{ID: "p1", Name: "V Sharma", Category: "Star_Indian_Batter", BasePrice: 200},
			{ID: "p2", Name: "A Kumar", Category: "Star_Indian_Batter", BasePrice: 100},
		},
		teams: []model.Team{
			{ID: "MUM", Code: "MUM", Name: "Mumbai Mavericks", Funds: 10000, InitialFunds: 10000},
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := &store.Repositories{
		Players: mem,
		Teams:   &memTeamRepo{mem: mem},
		Logs:    &memLogRepo{mem: mem},
	}

	api := httpapi.NewAPI(repos, logger)
	auctionStore := auction.New(auction.NewState(nil, nil), auction.Options{Logger: logger})
	h := hub.New(context.Background(), auctionStore, clock.Real{}, logger)
	t.Cleanup(func() { h.Inbox() <- hub.Shutdown{} })
	healthHandler := health.NewHandler(clock.Real{})

	srv := httptest.NewServer(httpapi.SetupRoutes(api, h, healthHandler))
	t.Cleanup(srv.Close)
	return srv, mem
}

func TestListPlayers(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/players")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var players []model.Player
	if err := json.NewDecoder(resp.Body).Decode(&players); err != nil {
		t.Fatal(err)
	}
	if len(players) != 2 || players[0].ID != "p1" {
		t.Errorf("players = %+v", players)
	}
}

func TestPatchPlayerAuction(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		body       string
		wantStatus int
	}{
		{name: "valid bid update", id: "p1", body: `{"currentBid": 220, "highestBidder": "MUM"}`, wantStatus: http.StatusOK},
		{name: "unknown player", id: "nope", body: `{"currentBid": 220}`, wantStatus: http.StatusNotFound},
		{name: "negative bid", id: "p1", body: `{"currentBid": -5}`, wantStatus: http.StatusBadRequest},
		{name: "negative sold price", id: "p1", body: `{"soldPrice": -1}`, wantStatus: http.StatusBadRequest},
		{name: "malformed body", id: "p1", body: `{not json`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			req, err := http.NewRequest(http.MethodPatch,
				srv.URL+"/api/players/"+tt.id+"/auction", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestSellEndpoint(t *testing.T) {
	srv, mem := newTestServer(t)

	body := `{"playerId": "p1", "teamId": "MUM", "soldPrice": 450}`
	resp, err := http.Post(srv.URL+"/api/auction/sell", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if mem.teams[0].Funds != 10000-450 {
		t.Errorf("funds = %d, want %d", mem.teams[0].Funds, 10000-450)
	}
	if len(mem.teams[0].Roster) != 1 {
		t.Errorf("roster = %+v", mem.teams[0].Roster)
	}

	t.Run("insufficient purse", func(t *testing.T) {
		body := `{"playerId": "p2", "teamId": "MUM", "soldPrice": 99999}`
		resp, err := http.Post(srv.URL+"/api/auction/sell", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/auction/sell", "application/json", strings.NewReader(`{}`))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestUndoEndpoint(t *testing.T) {
	srv, mem := newTestServer(t)

	// Sell first so there is something to undo.
	sell := `{"playerId": "p1", "teamId": "MUM", "soldPrice": 450}`
	resp, err := http.Post(srv.URL+"/api/auction/sell", "application/json", strings.NewReader(sell))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/api/auction/undo", "application/json",
		strings.NewReader(`{"playerId": "p1"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if mem.teams[0].Funds != 10000 {
		t.Errorf("funds = %d, want refunded 10000", mem.teams[0].Funds)
	}

	t.Run("undo of unsold player", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/auction/undo", "application/json",
			strings.NewReader(`{"playerId": "p2"}`))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}
