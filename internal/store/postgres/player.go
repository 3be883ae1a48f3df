package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/model"
	"github.com/jensholdgaard/player-auction/internal/store"
)

// PlayerRepo implements store.PlayerRepository against Postgres.
type PlayerRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewPlayerRepo creates the repository.
func NewPlayerRepo(db *sqlx.DB, clk clock.Clock) *PlayerRepo {
	if clk == nil {
		clk = clock.Real{}
	}
	return &PlayerRepo{db: db, clock: clk}
}

// playerRow mirrors the players table. assigned_card is JSONB and needs an
// explicit decode step, so model.Player is not scanned directly.
type playerRow struct {
	ID            string        `db:"id"`
	Name          string        `db:"name"`
	Country       string        `db:"country"`
	Image         string        `db:"image"`
	Rating        int           `db:"rating"`
	Category      string        `db:"category"`
	BasePrice     model.Money   `db:"base_price"`
	CurrentBid    model.Money   `db:"current_bid"`
	SoldStatus    string        `db:"sold_status"`
	SoldTo        string        `db:"sold_to"`
	SoldPrice     sql.NullInt64 `db:"sold_price"`
	SoldAt        sql.NullTime  `db:"sold_at"`
	HighestBidder string        `db:"highest_bidder"`
	Closed        bool          `db:"is_closed"`
	AssignedCard  []byte        `db:"assigned_card"`
	BidHistory    []byte        `db:"bid_history"`
}

const playerColumns = `id, name, country, image, rating, category,
	base_price, current_bid, sold_status, sold_to, sold_price, sold_at,
	highest_bidder, is_closed, assigned_card, bid_history`

// prefixedPlayerColumns qualifies the player column list with a table alias
// for use in joins.
func prefixedPlayerColumns(alias string) string {
	cols := strings.Split(playerColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func (r playerRow) toModel() (model.Player, error) {
	p := model.Player{
		ID:            r.ID,
		Name:          r.Name,
		Country:       r.Country,
		Image:         r.Image,
		Rating:        r.Rating,
		Category:      r.Category,
		BasePrice:     r.BasePrice,
		CurrentBid:    r.CurrentBid,
		SoldStatus:    model.NormalizeSoldStatus(r.SoldStatus),
		SoldTo:        r.SoldTo,
		HighestBidder: r.HighestBidder,
		Closed:        r.Closed,
	}
	if r.SoldPrice.Valid {
		v := model.Money(r.SoldPrice.Int64)
		p.SoldPrice = &v
	}
	if r.SoldAt.Valid {
		t := r.SoldAt.Time
		p.SoldAt = &t
	}
	if len(r.AssignedCard) > 0 {
		var card model.Card
		if err := json.Unmarshal(r.AssignedCard, &card); err != nil {
			return model.Player{}, fmt.Errorf("decoding assigned card for player %s: %w", r.ID, err)
		}
		p.AssignedCard = &card
	}
	if len(r.BidHistory) > 0 {
		if err := json.Unmarshal(r.BidHistory, &p.BidHistory); err != nil {
			return model.Player{}, fmt.Errorf("decoding bid history for player %s: %w", r.ID, err)
		}
	}
	return p, nil
}

// List returns all players in ingestion order.
func (r *PlayerRepo) List(ctx context.Context) ([]model.Player, error) {
	var rows []playerRow
	q := `SELECT ` + playerColumns + ` FROM players ORDER BY seq`
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	players := make([]model.Player, 0, len(rows))
	for _, row := range rows {
		p, err := row.toModel()
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

// Get returns one player by id.
func (r *PlayerRepo) Get(ctx context.Context, id string) (*model.Player, error) {
	var row playerRow
	q := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("loading player %s: %w", id, err)
	}
	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateAuction applies a sparse field update inside one transaction. The
// row is locked, the patch is merged in memory, and the full auction-field
// set is written back.
func (r *PlayerRepo) UpdateAuction(ctx context.Context, id string, u store.AuctionUpdate) (*model.Player, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning auction update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var row playerRow
	q := `SELECT ` + playerColumns + ` FROM players WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("locking player %s: %w", id, err)
	}
	p, err := row.toModel()
	if err != nil {
		return nil, err
	}

	if u.CurrentBid != nil {
		if *u.CurrentBid < 0 {
			return nil, fmt.Errorf("%w: currentBid %d", store.ErrInvalidField, *u.CurrentBid)
		}
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
		if *u.SoldPrice < 0 {
			return nil, fmt.Errorf("%w: soldPrice %d", store.ErrInvalidField, *u.SoldPrice)
		}
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
		p.BidHistory = *u.BidHistory
	}

	// Anything other than SOLD clears the sale outcome so a player cannot
	// carry a stale buyer after being reopened.
	if p.SoldStatus != model.StatusSold {
		p.SoldTo = ""
		p.SoldPrice = nil
		p.SoldAt = nil
		p.AssignedCard = nil
	} else if p.SoldAt == nil {
		now := r.clock.Now().UTC()
		p.SoldAt = &now
	}

	if err := writeAuctionFields(ctx, tx, &p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing auction update: %w", err)
	}
	return &p, nil
}

func writeAuctionFields(ctx context.Context, tx *sqlx.Tx, p *model.Player) error {
	var card []byte
	if p.AssignedCard != nil {
		b, err := json.Marshal(p.AssignedCard)
		if err != nil {
			return fmt.Errorf("encoding assigned card: %w", err)
		}
		card = b
	}
	var soldPrice *int64
	if p.SoldPrice != nil {
		v := int64(*p.SoldPrice)
		soldPrice = &v
	}
	var soldAt *time.Time
	if p.SoldAt != nil {
		t := *p.SoldAt
		soldAt = &t
	}
	var trail []byte
	if len(p.BidHistory) > 0 {
		b, err := json.Marshal(p.BidHistory)
		if err != nil {
			return fmt.Errorf("encoding bid history: %w", err)
		}
		trail = b
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE players SET
			current_bid = $2,
			highest_bidder = $3,
			sold_status = $4,
			sold_to = $5,
			sold_price = $6,
			sold_at = $7,
			assigned_card = $8,
			is_closed = $9,
			bid_history = $10
		WHERE id = $1`,
		p.ID, int64(p.CurrentBid), p.HighestBidder, string(p.SoldStatus),
		p.SoldTo, soldPrice, soldAt, card, p.Closed, trail,
	)
	if err != nil {
		return fmt.Errorf("writing auction fields for %s: %w", p.ID, err)
	}
	return nil
}

// ResetAll restores every player to OPEN with no bids and returns the
// refreshed pool.
func (r *PlayerRepo) ResetAll(ctx context.Context) ([]model.Player, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE players SET
			current_bid = 0,
			highest_bidder = '',
			sold_status = 'OPEN',
			sold_to = '',
			sold_price = NULL,
			sold_at = NULL,
			assigned_card = NULL,
			is_closed = FALSE,
			bid_history = NULL`)
	if err != nil {
		return nil, fmt.Errorf("resetting players: %w", err)
	}
	return r.List(ctx)
}

// Seed replaces the pool. Insert order defines List order.
func (r *PlayerRepo) Seed(ctx context.Context, players []model.Player) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM players`); err != nil {
		return fmt.Errorf("clearing players: %w", err)
	}
	for i := range players {
		p := &players[i]
		var card []byte
		if p.AssignedCard != nil {
			b, err := json.Marshal(p.AssignedCard)
			if err != nil {
				return fmt.Errorf("encoding assigned card: %w", err)
			}
			card = b
		}
		var soldPrice *int64
		if p.SoldPrice != nil {
			v := int64(*p.SoldPrice)
			soldPrice = &v
		}
		var trail []byte
		if len(p.BidHistory) > 0 {
			b, err := json.Marshal(p.BidHistory)
			if err != nil {
				return fmt.Errorf("encoding bid history: %w", err)
			}
			trail = b
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO players (
				id, name, country, image, rating, category,
				base_price, current_bid, sold_status, sold_to,
				sold_price, sold_at, highest_bidder, is_closed, assigned_card,
				bid_history
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			p.ID, p.Name, p.Country, p.Image, p.Rating, p.Category,
			int64(p.BasePrice), int64(p.CurrentBid), string(p.SoldStatus), p.SoldTo,
			soldPrice, p.SoldAt, p.HighestBidder, p.Closed, card, trail,
		)
		if err != nil {
			return fmt.Errorf("seeding player %s: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}
	return nil
}
