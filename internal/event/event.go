package event

import (
	"time"

	"github.com/jensholdgaard/player-auction/internal/auction"
	"github.com/jensholdgaard/player-auction/internal/model"
)

// Type identifies a replicated auction event.
type Type string

const (
	TypeBid             Type = "BID"
	TypeSold            Type = "SOLD"
	TypeUnsold          Type = "UNSOLD"
	TypeReopen          Type = "REDO_SOLD_TO_UNSOLD"
	TypeNextPlayer      Type = "NEXT_PLAYER"
	TypePreviousPlayer  Type = "PREVIOUS_PLAYER"
	TypeCategoryChanged Type = "CATEGORY_CHANGED"
	TypeBreakStart      Type = "BREAK_START"
	TypeBreakEnd        Type = "BREAK_END"
	TypeUndo            Type = "UNDO"
	TypeRedo            Type = "REDO"
	TypeReset           Type = "RESET_AUCTION"

	// TypeStateSync carries a full snapshot to a late-joining or desynced
	// viewer. It is a transport-level recovery message, not a moderator
	// action.
	TypeStateSync Type = "STATE_SYNC"

	// TypeDashboardConnected is informational only; it never mutates state.
	TypeDashboardConnected Type = "DASHBOARD_CONNECTED"
)

// Event is one replicated moderator action. Delta events carry the minimum
// payload a viewer needs to reapply the same transition locally; UNDO, REDO
// and RESET_AUCTION carry a full snapshot because they are not safely
// re-derivable from a delta.
type Event struct {
	Type       Type      `json:"type"`
	AdminName  string    `json:"adminName,omitempty"`
	PlayerID   string    `json:"playerId,omitempty"`
	PlayerName string    `json:"playerName,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	TeamID   string `json:"teamId,omitempty"`
	TeamName string `json:"teamName,omitempty"`

	BidAmount  model.Money `json:"bidAmount,omitempty"`
	SoldAmount model.Money `json:"soldAmount,omitempty"`

	AssignedCard *model.Card `json:"assignedCard,omitempty"`
	Category     string      `json:"category,omitempty"`

	DurationSeconds int64      `json:"durationSeconds,omitempty"`
	BreakEndsAt     *time.Time `json:"breakEndsAt,omitempty"`

	StateSnapshot *auction.State `json:"stateSnapshot,omitempty"`
}
