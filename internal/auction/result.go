package auction

import "github.com/jensholdgaard/player-auction/internal/model"

// Reason is a coded explanation for a rejected operation. The UI branches
// on these to render a specific message; the core never throws for a
// business rejection.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNoActivePlayer    Reason = "NO_ACTIVE_PLAYER"
	ReasonNoBidder          Reason = "NO_BIDDER"
	ReasonPlayerClosed      Reason = "PLAYER_CLOSED"
	ReasonInvalidTeam       Reason = "INVALID_TEAM"
	ReasonInsufficientFunds Reason = "INSUFFICIENT_FUNDS"
	ReasonTeamFull          Reason = "TEAM_FULL"
)

// Result reports the outcome of one state transition.
type Result struct {
	OK     bool   `json:"success"`
	Reason Reason `json:"reason,omitempty"`

	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	TeamID     string `json:"teamId,omitempty"`
	TeamName   string `json:"teamName,omitempty"`

	Amount       model.Money `json:"amount,omitempty"`
	WalletBefore model.Money `json:"walletBefore,omitempty"`
	WalletAfter  model.Money `json:"walletAfter,omitempty"`
	// Required is set with INSUFFICIENT_FUNDS so the UI can show required
	// versus available.
	Required model.Money `json:"required,omitempty"`

	// PersistErr carries a failed optimistic write-through. The local state
	// stands; the caller decides how loudly to surface it.
	PersistErr error `json:"-"`
}

func reject(r Reason) Result {
	return Result{Reason: r}
}
