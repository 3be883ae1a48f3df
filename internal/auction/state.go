package auction

import (
	"time"

	"github.com/jensholdgaard/player-auction/internal/model"
)

// Break is a wall-clock anchored auction pause. Remaining time is always
// recomputed from EndsAt so a client that missed ticks cannot drift.
type Break struct {
	DurationSeconds int64     `json:"durationSeconds"`
	EndsAt          time.Time `json:"breakEndsAt"`
}

// Remaining returns the time left until the break ends at the given instant.
func (b *Break) Remaining(now time.Time) time.Duration {
	if b == nil {
		return 0
	}
	d := b.EndsAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// State is the full auction session state: the player pool, the category
// filter, the active pointer, the franchises, the live bid and the log.
// It is a value type; Clone produces structurally independent copies for
// snapshots.
type State struct {
	Players          []model.Player   `json:"playerPool"`
	SelectedCategory string           `json:"selectedCategory"`
	ActiveIndex      int              `json:"activePlayerIndex"`
	Teams            []model.Team     `json:"teams"`
	HighestBidder    string           `json:"highestBidder,omitempty"`
	BidHistory       []model.Bid      `json:"bidHistory"`
	Logs             []model.LogEntry `json:"auctionLogs"`
	Break            *Break           `json:"break,omitempty"`
}

// NewState builds the initial session state from a persisted pool and the
// configured franchises. The active pointer anchors to the first player of
// the first category present in the pool.
func NewState(players []model.Player, teams []model.Team) State {
	s := State{
		Players:          players,
		SelectedCategory: model.CategoryAll,
		Teams:            teams,
		BidHistory:       []model.Bid{},
		Logs:             []model.LogEntry{},
	}
	if cats := model.Categories(players); len(cats) > 0 {
		s.SelectedCategory = cats[0]
	}
	if idx := s.categoryIndices(); len(idx) > 0 {
		s.ActiveIndex = idx[0]
		active := &players[idx[0]]
		s.HighestBidder = active.HighestBidder
		if active.Open() && len(active.BidHistory) > 0 {
			s.BidHistory = append(s.BidHistory, active.BidHistory...)
		}
	}
	return s
}

// Clone returns a deep, structurally complete copy. Mutating the live state
// afterwards never alters the copy.
func (s State) Clone() State {
	cp := s
	cp.Players = make([]model.Player, len(s.Players))
	for i, p := range s.Players {
		cp.Players[i] = p.Clone()
	}
	cp.Teams = make([]model.Team, len(s.Teams))
	for i, t := range s.Teams {
		cp.Teams[i] = t.Clone()
	}
	cp.BidHistory = make([]model.Bid, len(s.BidHistory))
	copy(cp.BidHistory, s.BidHistory)
	cp.Logs = make([]model.LogEntry, len(s.Logs))
	for i, e := range s.Logs {
		cp.Logs[i] = e.Clone()
	}
	if s.Break != nil {
		b := *s.Break
		cp.Break = &b
	}
	return cp
}

// Normalize defaults absent fields after deserializing a snapshot that may
// be partial: nil slices become empty, the active pointer is clamped into
// range and the category falls back to ALL. Malformed snapshots degrade,
// they do not crash.
func (s *State) Normalize() {
	if s.Players == nil {
		s.Players = []model.Player{}
	}
	if s.Teams == nil {
		s.Teams = []model.Team{}
	}
	if s.BidHistory == nil {
		s.BidHistory = []model.Bid{}
	}
	if s.Logs == nil {
		s.Logs = []model.LogEntry{}
	}
	if s.SelectedCategory == "" {
		s.SelectedCategory = model.CategoryAll
	}
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Players) {
		s.ActiveIndex = 0
	}
	for i := range s.Teams {
		if s.Teams[i].Roster == nil {
			s.Teams[i].Roster = []model.Player{}
		}
	}
}

// ActivePlayer returns the player under the hammer, or nil when the pool is
// empty or the pointer is out of range.
func (s *State) ActivePlayer() *model.Player {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Players) {
		return nil
	}
	return &s.Players[s.ActiveIndex]
}

// TeamByID returns the franchise with the given id, or nil.
func (s *State) TeamByID(id string) *model.Team {
	for i := range s.Teams {
		if s.Teams[i].ID == id {
			return &s.Teams[i]
		}
	}
	return nil
}

// categoryIndices returns the pool indices matching the current filter, in
// pool (ingestion) order.
func (s *State) categoryIndices() []int {
	var out []int
	for i := range s.Players {
		if model.MatchesCategory(s.Players[i].Category, s.SelectedCategory) {
			out = append(out, i)
		}
	}
	return out
}

// Summary tallies sale outcomes for the current category filter.
func (s *State) Summary() model.Summary {
	return model.Summarize(s.Players, s.SelectedCategory)
}

// Categories lists the distinct categories present in the pool, falling
// back to ALL for an empty pool.
func (s *State) Categories() []string {
	cats := model.Categories(s.Players)
	if len(cats) == 0 {
		return []string{model.CategoryAll}
	}
	return cats
}

// clearBidding resets the transient bid state for the active player slot.
func (s *State) clearBidding() {
	s.HighestBidder = ""
	s.BidHistory = s.BidHistory[:0]
}
