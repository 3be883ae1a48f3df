package auction_test

import (
	"context"
	"sync"

	"github.com/jensholdgaard/player-auction/internal/model"
	"github.com/jensholdgaard/player-auction/internal/store"
)

// mockPlayerRepo is an in-memory store.PlayerRepository that records calls
// and can be forced to fail.
type mockPlayerRepo struct {
	mu       sync.Mutex
	players  []model.Player
	updates  []string // player ids passed to UpdateAuction
	failWith error
}

func newMockPlayerRepo(players []model.Player) *mockPlayerRepo {
	cp := make([]model.Player, len(players))
	for i, p := range players {
		cp[i] = p.Clone()
	}
	return &mockPlayerRepo{players: cp}
}

func (m *mockPlayerRepo) List(_ context.Context) ([]model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]model.Player, len(m.players))
	for i, p := range m.players {
		out[i] = p.Clone()
	}
	return out, nil
}

func (m *mockPlayerRepo) Get(_ context.Context, id string) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for i := range m.players {
		if m.players[i].ID == id {
			p := m.players[i].Clone()
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockPlayerRepo) UpdateAuction(_ context.Context, id string, u store.AuctionUpdate) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.updates = append(m.updates, id)
	for i := range m.players {
		if m.players[i].ID != id {
			continue
		}
		p := &m.players[i]
		if u.CurrentBid != nil {
			p.CurrentBid = *u.CurrentBid
		}
		if u.HighestBidder != nil {
			p.HighestBidder = *u.HighestBidder
		}
		if u.SoldStatus != nil {
			p.SoldStatus = *u.SoldStatus
		}
		if u.SoldTo != nil {
			p.SoldTo = *u.SoldTo
		}
		if u.SoldPrice != nil {
			v := *u.SoldPrice
			p.SoldPrice = &v
		}
		if u.SoldAt != nil {
			t := *u.SoldAt
			p.SoldAt = &t
		}
		if u.AssignedCard != nil {
			p.AssignedCard = u.AssignedCard.Clone()
		}
		if u.Closed != nil {
			p.Closed = *u.Closed
		}
		if u.BidHistory != nil {
			p.BidHistory = append([]model.Bid(nil), *u.BidHistory...)
		}
		if p.SoldStatus != model.StatusSold {
			p.SoldTo = ""
			p.SoldPrice = nil
			p.SoldAt = nil
			p.AssignedCard = nil
		}
		cp := p.Clone()
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockPlayerRepo) ResetAll(_ context.Context) ([]model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for i := range m.players {
		p := &m.players[i]
		p.ClearSale()
		p.CurrentBid = 0
		p.HighestBidder = ""
		p.BidHistory = nil
	}
	out := make([]model.Player, len(m.players))
	for i, p := range m.players {
		out[i] = p.Clone()
	}
	return out, nil
}

func (m *mockPlayerRepo) Seed(_ context.Context, players []model.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.players = make([]model.Player, len(players))
	for i, p := range players {
		m.players[i] = p.Clone()
	}
	return nil
}

// mockTeamRepo records Sell/UndoSell calls.
type mockTeamRepo struct {
	mu       sync.Mutex
	sells    []store.SellTx
	undos    []store.SellTx
	resets   int
	failWith error
}

func (m *mockTeamRepo) List(_ context.Context) ([]model.Team, error) { return nil, nil }
func (m *mockTeamRepo) Get(_ context.Context, _ string) (*model.Team, error) {
	return nil, store.ErrNotFound
}

func (m *mockTeamRepo) Sell(_ context.Context, tx store.SellTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sells = append(m.sells, tx)
	return nil
}

func (m *mockTeamRepo) UndoSell(_ context.Context, tx store.SellTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.undos = append(m.undos, tx)
	return nil
}

func (m *mockTeamRepo) ResetAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.resets++
	return nil
}

func (m *mockTeamRepo) Seed(_ context.Context, _ []model.Team) error { return nil }

// mockLogRepo collects appended entries.
type mockLogRepo struct {
	mu      sync.Mutex
	entries []model.LogEntry
	deletes int
}

func (m *mockLogRepo) Append(_ context.Context, e model.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockLogRepo) ListRecent(_ context.Context, limit int) ([]model.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.LogEntry, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *mockLogRepo) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.deletes++
	return nil
}
