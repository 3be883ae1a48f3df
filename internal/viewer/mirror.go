// Package viewer maintains a non-authoritative mirror of the auction state
// on dashboard and projector clients. Incoming events are applied through
// the same transition functions the moderator uses, with persistence
// write-through suppressed: the moderator already persisted.
package viewer

import (
	"context"
	"log/slog"

	"github.com/jensholdgaard/player-auction/internal/auction"
	"github.com/jensholdgaard/player-auction/internal/event"
	"github.com/jensholdgaard/player-auction/internal/model"
	"github.com/jensholdgaard/player-auction/internal/store"
)

// Mirror is a viewer-local copy of the auction state.
type Mirror struct {
	store   *auction.Store
	players store.PlayerRepository // reconciliation reads only; may be nil
	logger  *slog.Logger
}

// NewMirror builds a mirror around an initial state. opts.Players,
// opts.Teams and opts.Logs are ignored: a mirror never writes through.
func NewMirror(initial auction.State, players store.PlayerRepository, opts auction.Options) *Mirror {
	opts.Players = nil
	opts.Teams = nil
	opts.Logs = nil
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Mirror{
		store:   auction.New(initial, opts),
		players: players,
		logger:  opts.Logger,
	}
}

// Store exposes the underlying mirror store for reads.
func (m *Mirror) Store() *auction.Store { return m.store }

// State returns the mirror's live state.
func (m *Mirror) State() *auction.State { return m.store.State() }

// ApplyEvent applies one replicated event against the local mirror. The
// transition guards make duplicate delivery non-corrupting: reapplying a
// SOLD event to an already-closed player is rejected, a repeated BID
// overwrites with identical values.
func (m *Mirror) ApplyEvent(ctx context.Context, e event.Event) {
	switch e.Type {
	case event.TypeBid:
		m.store.PlaceBid(ctx, e.TeamID, e.BidAmount)

	case event.TypeSold:
		// A dropped BID event would leave the mirror without a bidder;
		// reconstruct the bid from the SOLD payload before closing.
		if m.store.State().HighestBidder == "" && e.TeamID != "" {
			m.store.PlaceBid(ctx, e.TeamID, e.SoldAmount)
		}
		m.store.SellPlayer(ctx, auction.SellRequest{AssignedCard: e.AssignedCard, AdminName: e.AdminName})

	case event.TypeUnsold:
		m.store.MarkUnsold(ctx, auction.UnsoldRequest{AdminName: e.AdminName})

	case event.TypeReopen:
		m.store.ReopenPlayer(ctx, auction.ReopenRequest{AdminName: e.AdminName})

	case event.TypeNextPlayer:
		m.store.Advance(ctx, auction.DirectionNext)

	case event.TypePreviousPlayer:
		m.store.Advance(ctx, auction.DirectionPrevious)

	case event.TypeCategoryChanged:
		m.store.SetCategory(ctx, e.Category, false)

	case event.TypeBreakStart:
		if e.BreakEndsAt != nil {
			m.store.ApplyBreak(&auction.Break{
				DurationSeconds: e.DurationSeconds,
				EndsAt:          *e.BreakEndsAt,
			})
		}

	case event.TypeBreakEnd:
		m.store.EndBreak()

	case event.TypeUndo, event.TypeRedo, event.TypeReset, event.TypeStateSync:
		if e.StateSnapshot != nil {
			m.store.Apply(e.StateSnapshot.Clone())
		}

	case event.TypeDashboardConnected:
		// Informational only.

	default:
		m.logger.WarnContext(ctx, "ignoring unknown event type", slog.String("type", string(e.Type)))
	}
}

// Reconcile pulls the canonical player pool from persistence and merges it
// into the mirror, preserving locally-known transient fields the server
// copy might not carry. Any viewer may call this independently after a
// suspected divergence.
func (m *Mirror) Reconcile(ctx context.Context) error {
	if m.players == nil {
		return nil
	}
	pool, err := m.players.List(ctx)
	if err != nil {
		return err
	}

	local := m.store.State().Players
	localByID := make(map[string]*model.Player, len(local))
	for i := range local {
		localByID[local[i].ID] = &local[i]
	}

	merged := make([]model.Player, len(pool))
	for i, sp := range pool {
		prev, ok := localByID[sp.ID]
		if !ok {
			merged[i] = sp
			continue
		}
		out := sp
		if out.CurrentBid == 0 {
			out.CurrentBid = prev.CurrentBid
		}
		if out.HighestBidder == "" {
			out.HighestBidder = prev.HighestBidder
		}
		if out.BidHistory == nil && prev.BidHistory != nil {
			out.BidHistory = append([]model.Bid(nil), prev.BidHistory...)
		}
		if out.AssignedCard == nil {
			out.AssignedCard = prev.AssignedCard.Clone()
		}
		if out.SoldPrice == nil {
			out.SoldPrice = prev.SoldPrice
		}
		if out.SoldTo == "" {
			out.SoldTo = prev.SoldTo
		}
		merged[i] = out
	}

	m.store.ReplacePool(merged)
	m.logger.InfoContext(ctx, "mirror reconciled", slog.Int("pool_size", len(merged)))
	return nil
}
