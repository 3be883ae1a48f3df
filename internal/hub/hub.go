// Package hub serializes every moderator action onto one goroutine that
// owns the authoritative auction store, and fans the resulting events out
// to connected viewers. The single-writer discipline of the protocol is
// enforced here rather than by a lock.
package hub

import (
	"context"
	"log/slog"

	"github.com/jensholdgaard/player-auction/internal/auction"
	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/event"
	"github.com/jensholdgaard/player-auction/internal/model"
)

// Msg is a message processed by the hub loop.
type Msg interface{ isHubMsg() }

// PlaceBid asks the store to record a bid on the active player.
type PlaceBid struct {
	TeamID    string
	Amount    model.Money
	AdminName string
	Reply     chan auction.Result
}

// Sell closes the active player's sale to the highest bidder.
type Sell struct {
	Card      *model.Card
	AdminName string
	Reply     chan auction.Result
}

// Unsold closes the active player without a sale.
type Unsold struct {
	AdminName string
	Reply     chan auction.Result
}

// Reopen reverses a terminal outcome back to OPEN.
type Reopen struct {
	AdminName string
	Reply     chan auction.Result
}

// Advance moves the active pointer.
type Advance struct {
	Direction auction.Direction
	AdminName string
	Reply     chan auction.Result
}

// SetCategory switches the category filter.
type SetCategory struct {
	Category    string
	WithHistory bool
	AdminName   string
	Reply       chan auction.Result
}

// Undo restores the previous snapshot.
type Undo struct {
	AdminName string
	Reply     chan bool
}

// Redo restores the most recently undone snapshot.
type Redo struct {
	AdminName string
	Reply     chan bool
}

// Reset restores the auction to its pristine state from persistence.
type Reset struct {
	AdminName string
	Reply     chan error
}

// BreakStart pauses the auction for the given number of seconds.
type BreakStart struct {
	DurationSeconds int64
	AdminName       string
	Reply           chan *auction.Break
}

// BreakEnd resumes the auction.
type BreakEnd struct {
	AdminName string
}

// DashboardConnected is an informational signal from a viewer; it is
// rebroadcast but never touches the state machine.
type DashboardConnected struct {
	TeamID   string
	TeamName string
}

// Attach registers a viewer outbox. The current snapshot is delivered
// immediately so late joiners recover without protocol replay.
type Attach struct {
	ID     string
	Outbox chan event.Event
}

// Detach removes a viewer.
type Detach struct{ ID string }

// ClaimAdmin reserves the single moderator seat. The reply is false when
// another moderator session is already attached.
type ClaimAdmin struct {
	ID    string
	Reply chan bool
}

// ReleaseAdmin frees the moderator seat.
type ReleaseAdmin struct{ ID string }

// GetView exposes internal state for tests without data races.
type GetView struct{ Reply chan View }

// Shutdown stops the hub loop and closes all viewer outboxes.
type Shutdown struct{}

func (PlaceBid) isHubMsg()           {}
func (Sell) isHubMsg()               {}
func (Unsold) isHubMsg()             {}
func (Reopen) isHubMsg()             {}
func (Advance) isHubMsg()            {}
func (SetCategory) isHubMsg()        {}
func (Undo) isHubMsg()               {}
func (Redo) isHubMsg()               {}
func (Reset) isHubMsg()              {}
func (BreakStart) isHubMsg()         {}
func (BreakEnd) isHubMsg()           {}
func (DashboardConnected) isHubMsg() {}
func (Attach) isHubMsg()             {}
func (Detach) isHubMsg()             {}
func (ClaimAdmin) isHubMsg()         {}
func (ReleaseAdmin) isHubMsg()       {}
func (GetView) isHubMsg()            {}
func (Shutdown) isHubMsg()           {}

// View is a test-only reflection of hub internals.
type View struct {
	State      auction.State
	NumViewers int
	CanUndo    bool
	CanRedo    bool
	AdminID    string
}

// Hub owns the moderator store and the viewer registry.
type Hub struct {
	inbox   chan Msg
	store   *auction.Store
	viewers map[string]chan event.Event
	adminID string

	clock  clock.Clock
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New starts a hub around the given store.
func New(parent context.Context, store *auction.Store, clk clock.Clock, logger *slog.Logger) *Hub {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan Msg, 64),
		store:   store,
		viewers: make(map[string]chan event.Event),
		clock:   clk,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

// Inbox exposes the message channel for the transport layer and tests.
func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return
		case m := <-h.inbox:
			if h.handle(m) {
				return
			}
		}
	}
}

// handle processes one message; it reports true when the loop should stop.
func (h *Hub) handle(m Msg) bool {
	switch msg := m.(type) {
	case PlaceBid:
		res := h.store.PlaceBid(h.ctx, msg.TeamID, msg.Amount)
		if res.OK {
			h.broadcast(event.Event{
				Type:       event.TypeBid,
				AdminName:  msg.AdminName,
				PlayerID:   res.PlayerID,
				PlayerName: res.PlayerName,
				TeamID:     res.TeamID,
				BidAmount:  res.Amount,
				Timestamp:  h.clock.Now().UTC(),
			})
		}
		reply(msg.Reply, res)

	case Sell:
		res := h.store.SellPlayer(h.ctx, auction.SellRequest{AssignedCard: msg.Card, AdminName: msg.AdminName})
		if res.OK {
			h.broadcast(event.Event{
				Type:         event.TypeSold,
				AdminName:    msg.AdminName,
				PlayerID:     res.PlayerID,
				PlayerName:   res.PlayerName,
				TeamID:       res.TeamID,
				TeamName:     res.TeamName,
				SoldAmount:   res.Amount,
				AssignedCard: msg.Card,
				Timestamp:    h.clock.Now().UTC(),
			})
		}
		reply(msg.Reply, res)

	case Unsold:
		res := h.store.MarkUnsold(h.ctx, auction.UnsoldRequest{AdminName: msg.AdminName})
		if res.OK {
			h.broadcast(event.Event{
				Type:       event.TypeUnsold,
				AdminName:  msg.AdminName,
				PlayerID:   res.PlayerID,
				PlayerName: res.PlayerName,
				Timestamp:  h.clock.Now().UTC(),
			})
		}
		reply(msg.Reply, res)

	case Reopen:
		res := h.store.ReopenPlayer(h.ctx, auction.ReopenRequest{AdminName: msg.AdminName})
		if res.OK {
			h.broadcast(event.Event{
				Type:       event.TypeReopen,
				AdminName:  msg.AdminName,
				PlayerID:   res.PlayerID,
				PlayerName: res.PlayerName,
				Timestamp:  h.clock.Now().UTC(),
			})
		}
		reply(msg.Reply, res)

	case Advance:
		res := h.store.Advance(h.ctx, msg.Direction)
		if res.OK {
			t := event.TypeNextPlayer
			if msg.Direction == auction.DirectionPrevious {
				t = event.TypePreviousPlayer
			}
			h.broadcast(event.Event{
				Type:       t,
				AdminName:  msg.AdminName,
				PlayerID:   res.PlayerID,
				PlayerName: res.PlayerName,
				Timestamp:  h.clock.Now().UTC(),
			})
		}
		reply(msg.Reply, res)

	case SetCategory:
		res := h.store.SetCategory(h.ctx, msg.Category, msg.WithHistory)
		if res.OK {
			h.broadcast(event.Event{
				Type:      event.TypeCategoryChanged,
				AdminName: msg.AdminName,
				Category:  h.store.State().SelectedCategory,
				Timestamp: h.clock.Now().UTC(),
			})
		}
		reply(msg.Reply, res)

	case Undo:
		snap := h.store.Undo(h.ctx)
		if snap != nil {
			h.broadcast(event.Event{
				Type:          event.TypeUndo,
				AdminName:     msg.AdminName,
				StateSnapshot: snap,
				Timestamp:     h.clock.Now().UTC(),
			})
		}
		reply(msg.Reply, snap != nil)

	case Redo:
		snap := h.store.Redo(h.ctx)
		if snap != nil {
			h.broadcast(event.Event{
				Type:          event.TypeRedo,
				AdminName:     msg.AdminName,
				StateSnapshot: snap,
				Timestamp:     h.clock.Now().UTC(),
			})
		}
		reply(msg.Reply, snap != nil)

	case Reset:
		snap, err := h.store.Reset(h.ctx)
		if err == nil {
			h.broadcast(event.Event{
				Type:          event.TypeReset,
				AdminName:     msg.AdminName,
				StateSnapshot: snap,
				Timestamp:     h.clock.Now().UTC(),
			})
		}
		reply(msg.Reply, err)

	case BreakStart:
		b := h.store.StartBreak(msg.DurationSeconds)
		ends := b.EndsAt
		h.broadcast(event.Event{
			Type:            event.TypeBreakStart,
			AdminName:       msg.AdminName,
			DurationSeconds: b.DurationSeconds,
			BreakEndsAt:     &ends,
			Timestamp:       h.clock.Now().UTC(),
		})
		reply(msg.Reply, b)

	case BreakEnd:
		h.store.EndBreak()
		h.broadcast(event.Event{
			Type:      event.TypeBreakEnd,
			AdminName: msg.AdminName,
			Timestamp: h.clock.Now().UTC(),
		})

	case DashboardConnected:
		h.broadcast(event.Event{
			Type:      event.TypeDashboardConnected,
			TeamID:    msg.TeamID,
			TeamName:  msg.TeamName,
			Timestamp: h.clock.Now().UTC(),
		})

	case Attach:
		h.viewers[msg.ID] = msg.Outbox
		snap := h.store.Snapshot()
		msg.Outbox <- event.Event{
			Type:          event.TypeStateSync,
			StateSnapshot: &snap,
			Timestamp:     h.clock.Now().UTC(),
		}

	case Detach:
		if ch, ok := h.viewers[msg.ID]; ok {
			close(ch)
			delete(h.viewers, msg.ID)
		}

	case ClaimAdmin:
		if h.adminID == "" || h.adminID == msg.ID {
			h.adminID = msg.ID
			reply(msg.Reply, true)
		} else {
			reply(msg.Reply, false)
		}

	case ReleaseAdmin:
		if h.adminID == msg.ID {
			h.adminID = ""
		}

	case GetView:
		reply(msg.Reply, View{
			State:      h.store.Snapshot(),
			NumViewers: len(h.viewers),
			CanUndo:    h.store.CanUndo(),
			CanRedo:    h.store.CanRedo(),
			AdminID:    h.adminID,
		})

	case Shutdown:
		h.shutdown()
		return true
	}
	return false
}

func (h *Hub) shutdown() {
	for id, ch := range h.viewers {
		close(ch)
		delete(h.viewers, id)
	}
	h.cancel()
}

// broadcast delivers an event to every viewer. A viewer whose outbox is
// full is dropped rather than allowed to stall the auction; it can rejoin
// and recover from the join snapshot.
func (h *Hub) broadcast(e event.Event) {
	for id, ch := range h.viewers {
		select {
		case ch <- e:
		default:
			h.logger.Warn("dropping slow viewer", slog.String("viewer_id", id))
			close(ch)
			delete(h.viewers, id)
		}
	}
}

func reply[T any](ch chan T, v T) {
	if ch != nil {
		ch <- v
	}
}
