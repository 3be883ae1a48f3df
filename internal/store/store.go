package store

import (
	"context"
	"errors"
	"time"

	"github.com/jensholdgaard/player-auction/internal/model"
)

// Errors returned by repositories.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidField      = errors.New("invalid field value")
	ErrInsufficientPurse = errors.New("insufficient purse balance")
	ErrRosterFull        = errors.New("team roster is full")
	ErrNotSold           = errors.New("player is not sold")
)

// AuctionUpdate is a sparse set of auction fields to apply to one player.
// Nil pointer fields are left untouched. An empty string in HighestBidder
// or SoldTo clears the column. Setting SoldStatus to anything other than
// SOLD nulls the sale fields server-side, keeping the OPEN invariant.
type AuctionUpdate struct {
	CurrentBid    *model.Money
	HighestBidder *string
	SoldStatus    *model.SoldStatus
	SoldTo        *string
	SoldPrice     *model.Money
	SoldAt        *time.Time
	AssignedCard  *model.Card
	Closed        *bool
	// BidHistory replaces the stored bid trail wholesale when set.
	BidHistory *[]model.Bid
}

// SellTx describes one side-complete sale or its reversal: the wallet
// movement and the roster mutation are applied in a single transaction so a
// crash cannot leave them inconsistent.
type SellTx struct {
	PlayerID string
	TeamID   string
	Price    model.Money
}

// PlayerRepository defines player persistence operations. List order is
// ingestion order and is load-bearing: the client-side active index is
// defined relative to it.
type PlayerRepository interface {
	List(ctx context.Context) ([]model.Player, error)
	Get(ctx context.Context, id string) (*model.Player, error)
	UpdateAuction(ctx context.Context, id string, u AuctionUpdate) (*model.Player, error)
	// ResetAll restores every player to OPEN/untouched and returns the
	// refreshed pool.
	ResetAll(ctx context.Context) ([]model.Player, error)
	Seed(ctx context.Context, players []model.Player) error
}

// TeamRepository defines franchise persistence operations.
type TeamRepository interface {
	List(ctx context.Context) ([]model.Team, error)
	Get(ctx context.Context, id string) (*model.Team, error)
	// Sell debits the purse and appends the player to the roster atomically.
	Sell(ctx context.Context, tx SellTx) error
	// UndoSell refunds the purse and removes the player atomically.
	UndoSell(ctx context.Context, tx SellTx) error
	// ResetAll restores every team to its initial purse with an empty roster.
	ResetAll(ctx context.Context) error
	Seed(ctx context.Context, teams []model.Team) error
}

// LogRepository persists the append-only auction log.
type LogRepository interface {
	Append(ctx context.Context, e model.LogEntry) error
	// ListRecent returns entries newest-first.
	ListRecent(ctx context.Context, limit int) ([]model.LogEntry, error)
	// DeleteAll clears the log; only an explicit reset calls this.
	DeleteAll(ctx context.Context) error
}
