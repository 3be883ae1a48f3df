package model

import "time"

// DefaultRosterCap is the maximum number of players a team may acquire.
const DefaultRosterCap = 6

// Team is one franchise participating in the auction. Funds only move
// through sell and reopen transitions, so at any point
// InitialFunds - Funds equals the sum of roster sale prices.
type Team struct {
	ID           string   `json:"id" db:"id"`
	Code         string   `json:"code" db:"code"`
	Name         string   `json:"name" db:"name"`
	Color        string   `json:"color" db:"color"`
	Funds        Money    `json:"funds" db:"purse_balance"`
	InitialFunds Money    `json:"initialFunds" db:"initial_purse"`
	Roster       []Player `json:"roster"`
}

// PlayerCount returns the current roster size.
func (t *Team) PlayerCount() int { return len(t.Roster) }

// Clone returns a structurally independent copy of the team, including
// roster sale snapshots.
func (t Team) Clone() Team {
	cp := t
	cp.Roster = make([]Player, len(t.Roster))
	for i, p := range t.Roster {
		cp.Roster[i] = p.Clone()
	}
	return cp
}

// Bid is one entry in the active player's bid history.
type Bid struct {
	TeamID    string    `json:"teamId"`
	TeamName  string    `json:"teamName,omitempty"`
	Amount    Money     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// LogType tags a completed moderator action in the auction log.
type LogType string

const (
	LogSold   LogType = "SOLD"
	LogUnsold LogType = "UNSOLD"
	LogReopen LogType = "REOPEN"
)

// LogEntry is an immutable record of one completed moderator action.
// Entries are kept newest-first and are never mutated after creation.
type LogEntry struct {
	ID           string    `json:"id" db:"id"`
	Type         LogType   `json:"type" db:"type"`
	PlayerID     string    `json:"playerId" db:"player_id"`
	PlayerName   string    `json:"playerName" db:"player_name"`
	Amount       Money     `json:"amount" db:"amount"`
	TeamID       string    `json:"teamId,omitempty" db:"team_id"`
	TeamName     string    `json:"teamName,omitempty" db:"team_name"`
	WalletBefore *Money    `json:"walletBefore,omitempty" db:"wallet_before"`
	WalletAfter  *Money    `json:"walletAfter,omitempty" db:"wallet_after"`
	AdminName    string    `json:"adminName" db:"admin_name"`
	CardLabel    string    `json:"cardAssigned,omitempty" db:"card_label"`
	CardID       string    `json:"cardId,omitempty" db:"card_id"`
	Timestamp    time.Time `json:"timestamp" db:"created_at"`
}

// Clone returns an independent copy of the entry.
func (e LogEntry) Clone() LogEntry {
	cp := e
	if e.WalletBefore != nil {
		v := *e.WalletBefore
		cp.WalletBefore = &v
	}
	if e.WalletAfter != nil {
		v := *e.WalletAfter
		cp.WalletAfter = &v
	}
	return cp
}

// Summary tallies sale outcomes for a set of players.
type Summary struct {
	Total  int `json:"total"`
	Sold   int `json:"sold"`
	Unsold int `json:"unsold"`
	Open   int `json:"open"`
}

// Summarize tallies the players matching the given category filter.
func Summarize(players []Player, category string) Summary {
	var s Summary
	for i := range players {
		if !MatchesCategory(players[i].Category, category) {
			continue
		}
		s.Total++
		switch players[i].SoldStatus {
		case StatusSold:
			s.Sold++
		case StatusUnsold:
			s.Unsold++
		default:
			s.Open++
		}
	}
	return s
}

// Categories returns the distinct categories present in the pool,
// preserving first-seen (ingestion) order.
func Categories(players []Player) []string {
	seen := make(map[string]struct{}, len(players))
	var out []string
	for i := range players {
		c := NormalizeCategory(players[i].Category)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// CardOptions builds the selectable sale-card variants for a team.
func CardOptions(t *Team) []Card {
	if t == nil {
		return nil
	}
	return []Card{
		{
			ID:    t.ID + "-classic",
			Label: t.Code + " Classic",
			Style: map[string]string{"background": "#fafafa", "border": t.Color, "color": "#111111"},
		},
		{
			ID:    t.ID + "-gradient",
			Label: t.Code + " Gradient",
			Style: map[string]string{"background": t.Color + "22", "border": t.Color, "color": "#111111"},
		},
		{
			ID:    t.ID + "-dark",
			Label: t.Code + " Night",
			Style: map[string]string{"background": "#111111", "border": t.Color, "color": "#ffffff"},
		},
	}
}
