package auction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/config"
	"github.com/jensholdgaard/player-auction/internal/model"
	"github.com/jensholdgaard/player-auction/internal/store"
)

// Direction selects which neighbour Advance moves to.
type Direction int

const (
	DirectionNext Direction = iota
	DirectionPrevious
)

// Options configures a Store. Repositories may all be nil, which suppresses
// write-through entirely; viewer mirrors run in that mode because the
// moderator already persisted.
type Options struct {
	Players store.PlayerRepository
	Teams   store.TeamRepository
	Logs    store.LogRepository

	Clock          clock.Clock
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider

	RosterCap    int
	UndoDepth    int
	BidSteps     []config.BidStep
	FinalStep    int64
	InitialTeams []model.Team
}

// Store holds the single source of truth for one auction session and
// exposes atomic, validated state transitions. It is not safe for
// concurrent use; the replication hub serializes access by owning it on a
// single goroutine.
type Store struct {
	state   State
	history *History

	players store.PlayerRepository
	teams   store.TeamRepository
	logs    store.LogRepository

	clock  clock.Clock
	logger *slog.Logger
	tracer trace.Tracer

	rosterCap    int
	steps        incrementTable
	initialTeams []model.Team
}

// New builds a Store around an initial state.
func New(initial State, opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = noop.NewTracerProvider()
	}
	if opts.RosterCap <= 0 {
		opts.RosterCap = model.DefaultRosterCap
	}
	if opts.FinalStep <= 0 {
		opts.FinalStep = 100
	}
	if opts.InitialTeams == nil {
		opts.InitialTeams = initial.Teams
	}
	initial.Normalize()

	return &Store{
		state:        initial,
		history:      NewHistory(opts.UndoDepth),
		players:      opts.Players,
		teams:        opts.Teams,
		logs:         opts.Logs,
		clock:        opts.Clock,
		logger:       opts.Logger,
		tracer:       opts.TracerProvider.Tracer("github.com/jensholdgaard/player-auction/internal/auction"),
		rosterCap:    opts.RosterCap,
		steps:        newIncrementTable(opts.BidSteps, opts.FinalStep),
		initialTeams: cloneTeams(opts.InitialTeams),
	}
}

func cloneTeams(teams []model.Team) []model.Team {
	out := make([]model.Team, len(teams))
	for i, t := range teams {
		out[i] = t.Clone()
	}
	return out
}

// State returns a read-only view of the live state. Callers on the owning
// goroutine may inspect it; anything crossing a goroutine boundary must use
// Snapshot.
func (s *Store) State() *State { return &s.state }

// Snapshot returns a deep copy of the live state for replication or
// reconciliation.
func (s *Store) Snapshot() State { return s.state.Clone() }

// CurrentPlayer returns a copy of the player under the hammer, or nil.
func (s *Store) CurrentPlayer() *model.Player {
	p := s.state.ActivePlayer()
	if p == nil {
		return nil
	}
	cp := p.Clone()
	return &cp
}

// CanUndo reports whether an undo snapshot is available.
func (s *Store) CanUndo() bool { return s.history.CanUndo() }

// CanRedo reports whether a redo snapshot is available.
func (s *Store) CanRedo() bool { return s.history.CanRedo() }

// NextBidAmount returns the amount the next bid would carry: the current
// bid stepped up by the increment table, or zero with no active player.
func (s *Store) NextBidAmount() model.Money {
	p := s.state.ActivePlayer()
	if p == nil {
		return 0
	}
	bid := p.CurrentBid
	if bid == 0 {
		bid = p.BasePrice
	}
	return bid + s.steps.next(bid)
}

// PlaceBid records a bid by the given team on the active player. The local
// update is optimistic: a failed write-through is surfaced in PersistErr
// but never rolled back.
func (s *Store) PlaceBid(ctx context.Context, teamID string, amount model.Money) Result {
	ctx, span := s.tracer.Start(ctx, "Store.PlaceBid",
		trace.WithAttributes(
			attribute.String("team.id", teamID),
			attribute.Int64("bid.amount", amount.Lakhs()),
		),
	)
	defer span.End()

	p := s.state.ActivePlayer()
	if p == nil {
		return reject(ReasonNoActivePlayer)
	}
	if !p.Open() {
		return reject(ReasonPlayerClosed)
	}
	team := s.state.TeamByID(teamID)
	if team == nil {
		return reject(ReasonInvalidTeam)
	}
	if team.Funds < amount {
		return Result{
			Reason:       ReasonInsufficientFunds,
			TeamID:       teamID,
			TeamName:     team.Name,
			WalletBefore: team.Funds,
			Required:     amount,
		}
	}

	s.history.Push(s.state)

	bid := model.Bid{
		TeamID:    teamID,
		TeamName:  team.Name,
		Amount:    amount,
		Timestamp: s.clock.Now().UTC(),
	}
	p.CurrentBid = amount
	p.HighestBidder = teamID
	p.BidHistory = append(p.BidHistory, bid)
	s.state.HighestBidder = teamID
	s.state.BidHistory = append(s.state.BidHistory, bid)

	res := Result{
		OK:         true,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		TeamID:     teamID,
		TeamName:   team.Name,
		Amount:     amount,
	}

	if s.players != nil {
		current := amount
		bidder := teamID
		trail := make([]model.Bid, len(p.BidHistory))
		copy(trail, p.BidHistory)
		if _, err := s.players.UpdateAuction(ctx, p.ID, store.AuctionUpdate{
			CurrentBid:    &current,
			HighestBidder: &bidder,
			BidHistory:    &trail,
		}); err != nil {
			s.logger.ErrorContext(ctx, "bid write-through failed",
				slog.String("player_id", p.ID), slog.Any("error", err))
			res.PersistErr = fmt.Errorf("persisting bid: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "bid placed",
		slog.String("player_id", p.ID),
		slog.String("team_id", teamID),
		slog.Int64("amount", amount.Lakhs()),
	)
	return res
}

// SellRequest carries the moderator inputs for closing a sale.
type SellRequest struct {
	AssignedCard *model.Card
	AdminName    string
}

// SellPlayer closes the active player's sale to the highest bidder. Wallet
// debit, roster append and status flip happen together as one
// undo-indivisible unit.
func (s *Store) SellPlayer(ctx context.Context, req SellRequest) Result {
	ctx, span := s.tracer.Start(ctx, "Store.SellPlayer",
		trace.WithAttributes(attribute.String("admin", req.AdminName)),
	)
	defer span.End()

	p := s.state.ActivePlayer()
	if p == nil {
		return reject(ReasonNoActivePlayer)
	}
	if s.state.HighestBidder == "" {
		return reject(ReasonNoBidder)
	}
	if !p.Open() {
		return reject(ReasonPlayerClosed)
	}
	team := s.state.TeamByID(s.state.HighestBidder)
	if team == nil {
		return reject(ReasonInvalidTeam)
	}

	bid := p.CurrentBid
	walletBefore := team.Funds
	if walletBefore < bid {
		return Result{
			Reason:       ReasonInsufficientFunds,
			TeamID:       team.ID,
			TeamName:     team.Name,
			WalletBefore: walletBefore,
			Required:     bid,
		}
	}
	if team.PlayerCount() >= s.rosterCap {
		return Result{Reason: ReasonTeamFull, TeamID: team.ID, TeamName: team.Name}
	}

	s.history.Push(s.state)

	now := s.clock.Now().UTC()
	walletAfter := walletBefore - bid
	price := bid

	// Immutable sale snapshot for the roster.
	sold := p.Clone()
	sold.CurrentBid = bid
	sold.SoldStatus = model.StatusSold
	sold.SoldTo = team.ID
	sold.SoldPrice = &price
	sold.SoldAt = &now
	sold.AssignedCard = req.AssignedCard.Clone()
	sold.HighestBidder = ""
	sold.Closed = true

	team.Funds = walletAfter
	team.Roster = append(team.Roster, sold)

	p.SoldStatus = model.StatusSold
	p.SoldTo = team.ID
	p.SoldPrice = &price
	p.SoldAt = &now
	p.AssignedCard = req.AssignedCard.Clone()
	p.HighestBidder = ""
	p.Closed = true

	s.state.clearBidding()

	entry := model.LogEntry{
		ID:           uuid.NewString(),
		Type:         model.LogSold,
		PlayerID:     p.ID,
		PlayerName:   p.Name,
		Amount:       bid,
		TeamID:       team.ID,
		TeamName:     team.Name,
		WalletBefore: &walletBefore,
		WalletAfter:  &walletAfter,
		AdminName:    req.AdminName,
		Timestamp:    now,
	}
	if req.AssignedCard != nil {
		entry.CardLabel = req.AssignedCard.Label
		entry.CardID = req.AssignedCard.ID
	}
	s.prependLog(entry)

	res := Result{
		OK:           true,
		PlayerID:     p.ID,
		PlayerName:   p.Name,
		TeamID:       team.ID,
		TeamName:     team.Name,
		Amount:       bid,
		WalletBefore: walletBefore,
		WalletAfter:  walletAfter,
	}
	res.PersistErr = s.persistSale(ctx, p, team.ID, bid, entry)

	s.logger.InfoContext(ctx, "player sold",
		slog.String("player_id", p.ID),
		slog.String("team_id", team.ID),
		slog.Int64("amount", bid.Lakhs()),
		slog.Int64("wallet_after", walletAfter.Lakhs()),
	)
	return res
}

func (s *Store) persistSale(ctx context.Context, p *model.Player, teamID string, bid model.Money, entry model.LogEntry) error {
	if s.players == nil {
		return nil
	}
	var first error
	status := model.StatusSold
	soldTo := teamID
	price := bid
	closed := true
	cleared := ""
	if _, err := s.players.UpdateAuction(ctx, p.ID, store.AuctionUpdate{
		CurrentBid:    &bid,
		HighestBidder: &cleared,
		SoldStatus:    &status,
		SoldTo:        &soldTo,
		SoldPrice:     &price,
		SoldAt:        p.SoldAt,
		AssignedCard:  p.AssignedCard,
		Closed:        &closed,
	}); err != nil {
		first = fmt.Errorf("persisting sale: %w", err)
		s.logger.ErrorContext(ctx, "sale write-through failed",
			slog.String("player_id", p.ID), slog.Any("error", err))
	}
	if s.teams != nil {
		if err := s.teams.Sell(ctx, store.SellTx{PlayerID: p.ID, TeamID: teamID, Price: bid}); err != nil {
			if first == nil {
				first = fmt.Errorf("persisting team sale: %w", err)
			}
			s.logger.ErrorContext(ctx, "team sale write-through failed",
				slog.String("team_id", teamID), slog.Any("error", err))
		}
	}
	if s.logs != nil {
		if err := s.logs.Append(ctx, entry); err != nil {
			if first == nil {
				first = fmt.Errorf("persisting log entry: %w", err)
			}
			s.logger.ErrorContext(ctx, "log write-through failed", slog.Any("error", err))
		}
	}
	return first
}

// UnsoldRequest carries the moderator inputs for marking a player unsold.
type UnsoldRequest struct {
	AdminName string
}

// MarkUnsold closes the active player without a sale.
func (s *Store) MarkUnsold(ctx context.Context, req UnsoldRequest) Result {
	ctx, span := s.tracer.Start(ctx, "Store.MarkUnsold")
	defer span.End()

	p := s.state.ActivePlayer()
	if p == nil {
		return reject(ReasonNoActivePlayer)
	}
	if !p.Open() {
		return reject(ReasonPlayerClosed)
	}

	s.history.Push(s.state)

	now := s.clock.Now().UTC()
	p.ClearSale()
	p.SoldStatus = model.StatusUnsold
	p.Closed = true
	p.HighestBidder = ""
	s.state.clearBidding()

	entry := model.LogEntry{
		ID:         uuid.NewString(),
		Type:       model.LogUnsold,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		AdminName:  req.AdminName,
		Timestamp:  now,
	}
	s.prependLog(entry)

	res := Result{OK: true, PlayerID: p.ID, PlayerName: p.Name}
	if s.players != nil {
		status := model.StatusUnsold
		closed := true
		cleared := ""
		if _, err := s.players.UpdateAuction(ctx, p.ID, store.AuctionUpdate{
			HighestBidder: &cleared,
			SoldStatus:    &status,
			Closed:        &closed,
		}); err != nil {
			res.PersistErr = fmt.Errorf("persisting unsold: %w", err)
			s.logger.ErrorContext(ctx, "unsold write-through failed",
				slog.String("player_id", p.ID), slog.Any("error", err))
		}
		if s.logs != nil {
			if err := s.logs.Append(ctx, entry); err != nil && res.PersistErr == nil {
				res.PersistErr = fmt.Errorf("persisting log entry: %w", err)
			}
		}
	}

	s.logger.InfoContext(ctx, "player unsold", slog.String("player_id", p.ID))
	return res
}

// ReopenRequest carries the moderator inputs for reversing a terminal
// outcome.
type ReopenRequest struct {
	AdminName string
}

// ReopenPlayer reverses a SOLD or UNSOLD outcome back to OPEN. A SOLD
// reversal refunds the owning team by the recorded sale price; reopening an
// already-OPEN player is a no-op.
func (s *Store) ReopenPlayer(ctx context.Context, req ReopenRequest) Result {
	ctx, span := s.tracer.Start(ctx, "Store.ReopenPlayer")
	defer span.End()

	p := s.state.ActivePlayer()
	if p == nil {
		return reject(ReasonNoActivePlayer)
	}
	if p.Open() {
		// Idempotent: nothing to reverse, no log entry.
		return Result{Reason: ReasonNone, PlayerID: p.ID}
	}

	s.history.Push(s.state)

	now := s.clock.Now().UTC()
	wasSold := p.SoldStatus == model.StatusSold
	soldTeamID := p.SoldTo
	var refund model.Money
	if p.SoldPrice != nil {
		refund = *p.SoldPrice
	}

	if wasSold && soldTeamID != "" {
		if team := s.state.TeamByID(soldTeamID); team != nil {
			team.Funds += refund
			roster := team.Roster[:0]
			for _, rp := range team.Roster {
				if rp.ID != p.ID {
					roster = append(roster, rp)
				}
			}
			team.Roster = roster
		}
	}

	p.ClearSale()
	p.HighestBidder = ""
	s.state.clearBidding()

	entry := model.LogEntry{
		ID:         uuid.NewString(),
		Type:       model.LogReopen,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		AdminName:  req.AdminName,
		Timestamp:  now,
	}
	s.prependLog(entry)

	res := Result{
		OK:         true,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		TeamID:     soldTeamID,
		Amount:     refund,
	}
	if s.players != nil {
		status := model.StatusOpen
		closed := false
		cleared := ""
		if _, err := s.players.UpdateAuction(ctx, p.ID, store.AuctionUpdate{
			HighestBidder: &cleared,
			SoldStatus:    &status,
			SoldTo:        &cleared,
			Closed:        &closed,
		}); err != nil {
			res.PersistErr = fmt.Errorf("persisting reopen: %w", err)
			s.logger.ErrorContext(ctx, "reopen write-through failed",
				slog.String("player_id", p.ID), slog.Any("error", err))
		}
		if wasSold && soldTeamID != "" && s.teams != nil {
			if err := s.teams.UndoSell(ctx, store.SellTx{PlayerID: p.ID, TeamID: soldTeamID, Price: refund}); err != nil {
				if res.PersistErr == nil {
					res.PersistErr = fmt.Errorf("persisting team refund: %w", err)
				}
				s.logger.ErrorContext(ctx, "team refund write-through failed",
					slog.String("team_id", soldTeamID), slog.Any("error", err))
			}
		}
		if s.logs != nil {
			if err := s.logs.Append(ctx, entry); err != nil && res.PersistErr == nil {
				res.PersistErr = fmt.Errorf("persisting log entry: %w", err)
			}
		}
	}

	s.logger.InfoContext(ctx, "player reopened",
		slog.String("player_id", p.ID),
		slog.Bool("was_sold", wasSold),
		slog.Int64("refund", refund.Lakhs()),
	)
	return res
}

// Advance moves the active pointer to the circular next or previous player
// within the current category filter, clearing transient bid state. With an
// empty filtered set it defensively clears and reports no active player.
func (s *Store) Advance(ctx context.Context, dir Direction) Result {
	_, span := s.tracer.Start(ctx, "Store.Advance",
		trace.WithAttributes(attribute.Bool("forward", dir == DirectionNext)),
	)
	defer span.End()

	s.history.Push(s.state)

	indices := s.state.categoryIndices()
	if len(indices) == 0 {
		s.state.clearBidding()
		return reject(ReasonNoActivePlayer)
	}

	pos := -1
	for i, idx := range indices {
		if idx == s.state.ActiveIndex {
			pos = i
			break
		}
	}

	var next int
	switch {
	case pos == -1:
		next = indices[0]
	case dir == DirectionNext:
		next = indices[(pos+1)%len(indices)]
	default:
		next = indices[(pos-1+len(indices))%len(indices)]
	}

	s.state.ActiveIndex = next
	s.state.clearBidding()

	p := s.state.ActivePlayer()
	return Result{OK: true, PlayerID: p.ID, PlayerName: p.Name}
}

// SetCategory switches the active filter and re-anchors the pointer to the
// first matching player. The transition itself is undo-able only when
// withHistory is requested.
func (s *Store) SetCategory(ctx context.Context, category string, withHistory bool) Result {
	_, span := s.tracer.Start(ctx, "Store.SetCategory",
		trace.WithAttributes(attribute.String("category", category)),
	)
	defer span.End()

	next := model.CategoryAll
	for _, c := range s.state.Categories() {
		if c == category {
			next = category
			break
		}
	}

	if withHistory {
		s.history.Push(s.state)
	}

	s.state.SelectedCategory = next
	indices := s.state.categoryIndices()
	if len(indices) == 0 {
		s.state.ActiveIndex = 0
	} else {
		s.state.ActiveIndex = indices[0]
	}
	s.state.clearBidding()

	res := Result{OK: true}
	if p := s.state.ActivePlayer(); p != nil {
		res.PlayerID = p.ID
		res.PlayerName = p.Name
	}
	return res
}

// Undo restores the previous snapshot and returns a copy of the restored
// state for replication, or nil when the undo stack is empty.
func (s *Store) Undo(ctx context.Context) *State {
	_, span := s.tracer.Start(ctx, "Store.Undo")
	defer span.End()

	prev, ok := s.history.Undo(s.state)
	if !ok {
		return nil
	}
	s.state = prev
	snap := s.state.Clone()
	return &snap
}

// Redo restores the most recently undone snapshot, or nil when the redo
// stack is empty.
func (s *Store) Redo(ctx context.Context) *State {
	_, span := s.tracer.Start(ctx, "Store.Redo")
	defer span.End()

	next, ok := s.history.Redo(s.state)
	if !ok {
		return nil
	}
	s.state = next
	snap := s.state.Clone()
	return &snap
}

// StartBreak pauses the auction until now+duration. The deadline is an
// absolute timestamp so clients recompute remaining time instead of
// counting down.
func (s *Store) StartBreak(duration int64) *Break {
	b := &Break{
		DurationSeconds: duration,
		EndsAt:          s.clock.Now().UTC().Add(time.Duration(duration) * time.Second),
	}
	s.state.Break = b
	return b
}

// EndBreak resumes the auction.
func (s *Store) EndBreak() {
	s.state.Break = nil
}

// Reset re-fetches the canonical pool, restores every team to its starting
// wallet and clears logs and both history stacks. This is the only
// operation that discards undo/redo history.
func (s *Store) Reset(ctx context.Context) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "Store.Reset")
	defer span.End()

	players := []model.Player{}
	if s.players != nil {
		pool, err := s.players.ResetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("resetting player pool: %w", err)
		}
		players = pool
		if s.teams != nil {
			if err := s.teams.ResetAll(ctx); err != nil {
				return nil, fmt.Errorf("resetting teams: %w", err)
			}
		}
		if s.logs != nil {
			if err := s.logs.DeleteAll(ctx); err != nil {
				s.logger.ErrorContext(ctx, "clearing auction log failed", slog.Any("error", err))
			}
		}
	}

	s.state = NewState(players, cloneTeams(s.initialTeams))
	s.history.Clear()

	s.logger.InfoContext(ctx, "auction reset", slog.Int("pool_size", len(players)))
	snap := s.state.Clone()
	return &snap, nil
}

// ApplyBreak installs a break received over the wire. The absolute deadline
// from the event is used as-is so every client agrees on the end instant.
func (s *Store) ApplyBreak(b *Break) {
	s.state.Break = b
}

// ReplacePool swaps in a reconciled player pool, keeping the category
// filter and clamping the active pointer into range.
func (s *Store) ReplacePool(players []model.Player) {
	s.state.Players = players
	if s.state.ActiveIndex < 0 || s.state.ActiveIndex >= len(players) {
		s.state.ActiveIndex = 0
	}
}

// Apply replaces the live state wholesale with a received snapshot. Viewer
// mirrors use this for UNDO/REDO/RESET events, which are not safely
// re-derivable from a delta.
func (s *Store) Apply(snapshot State) {
	snapshot.Normalize()
	s.state = snapshot
}

// prependLog inserts newest-first.
func (s *Store) prependLog(e model.LogEntry) {
	s.state.Logs = append([]model.LogEntry{e}, s.state.Logs...)
}
