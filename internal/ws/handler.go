// Package ws exposes the replication channel over websockets: a viewer
// endpoint streaming events, and a moderator endpoint that additionally
// accepts commands.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/jensholdgaard/player-auction/internal/auction"
	"github.com/jensholdgaard/player-auction/internal/event"
	"github.com/jensholdgaard/player-auction/internal/hub"
	"github.com/jensholdgaard/player-auction/internal/model"
)

const writeTimeout = 3 * time.Second

// ClientCommand is one inbound message from a connected client.
type ClientCommand struct {
	Action          string      `json:"action"`
	AdminName       string      `json:"adminName,omitempty"`
	TeamID          string      `json:"teamId,omitempty"`
	TeamName        string      `json:"teamName,omitempty"`
	BidAmount       model.Money `json:"bidAmount,omitempty"`
	Category        string      `json:"category,omitempty"`
	WithHistory     bool        `json:"withHistory,omitempty"`
	DurationSeconds int64       `json:"durationSeconds,omitempty"`
	AssignedCard    *model.Card `json:"assignedCard,omitempty"`
}

type resultMessage struct {
	Type string `json:"type"`
	auction.Result
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ViewerHandler attaches a read-mostly client (dashboard, projector) to the
// event stream. The only inbound messages honoured are informational.
func ViewerHandler(h *hub.Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		out := make(chan event.Event, 16)
		h.Inbox() <- hub.Attach{ID: clientID, Outbox: out}
		defer func() { h.Inbox() <- hub.Detach{ID: clientID} }()

		go writeEvents(r.Context(), conn, out)

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			var cmd ClientCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				continue
			}
			switch cmd.Action {
			case "DASHBOARD_CONNECTED":
				h.Inbox() <- hub.DashboardConnected{TeamID: cmd.TeamID, TeamName: cmd.TeamName}
			case "SKIP":
				// A dashboard suggestion, never authoritative.
				logger.Info("viewer skip request", slog.String("team_id", cmd.TeamID))
			}
		}
	}
}

// AdminHandler attaches the moderator console. Exactly one moderator
// session may hold the seat at a time; a second connection is refused.
func AdminHandler(h *hub.Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := uuid.NewString()

		claimed := make(chan bool, 1)
		h.Inbox() <- hub.ClaimAdmin{ID: clientID, Reply: claimed}
		if !<-claimed {
			http.Error(w, "another moderator session is active", http.StatusConflict)
			return
		}
		defer func() { h.Inbox() <- hub.ReleaseAdmin{ID: clientID} }()

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan event.Event, 16)
		h.Inbox() <- hub.Attach{ID: clientID, Outbox: out}
		defer func() { h.Inbox() <- hub.Detach{ID: clientID} }()

		go writeEvents(r.Context(), conn, out)

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					logger.Debug("admin socket closed", slog.Any("error", err))
				}
				return
			}

			var cmd ClientCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				writeJSON(r.Context(), conn, errorMessage{Type: "Error", Error: "bad json"})
				continue
			}
			dispatch(r.Context(), conn, h, cmd)
		}
	}
}

func dispatch(ctx context.Context, conn *websocket.Conn, h *hub.Hub, cmd ClientCommand) {
	res := make(chan auction.Result, 1)

	switch cmd.Action {
	case "BID":
		h.Inbox() <- hub.PlaceBid{TeamID: cmd.TeamID, Amount: cmd.BidAmount, AdminName: cmd.AdminName, Reply: res}
	case "SELL":
		h.Inbox() <- hub.Sell{Card: cmd.AssignedCard, AdminName: cmd.AdminName, Reply: res}
	case "UNSOLD":
		h.Inbox() <- hub.Unsold{AdminName: cmd.AdminName, Reply: res}
	case "REOPEN":
		h.Inbox() <- hub.Reopen{AdminName: cmd.AdminName, Reply: res}
	case "NEXT_PLAYER":
		h.Inbox() <- hub.Advance{Direction: auction.DirectionNext, AdminName: cmd.AdminName, Reply: res}
	case "PREVIOUS_PLAYER":
		h.Inbox() <- hub.Advance{Direction: auction.DirectionPrevious, AdminName: cmd.AdminName, Reply: res}
	case "SET_CATEGORY":
		h.Inbox() <- hub.SetCategory{Category: cmd.Category, WithHistory: cmd.WithHistory, AdminName: cmd.AdminName, Reply: res}
	case "UNDO":
		ok := make(chan bool, 1)
		h.Inbox() <- hub.Undo{AdminName: cmd.AdminName, Reply: ok}
		writeJSON(ctx, conn, resultMessage{Type: "Result", Result: auction.Result{OK: <-ok}})
		return
	case "REDO":
		ok := make(chan bool, 1)
		h.Inbox() <- hub.Redo{AdminName: cmd.AdminName, Reply: ok}
		writeJSON(ctx, conn, resultMessage{Type: "Result", Result: auction.Result{OK: <-ok}})
		return
	case "RESET":
		errCh := make(chan error, 1)
		h.Inbox() <- hub.Reset{AdminName: cmd.AdminName, Reply: errCh}
		if err := <-errCh; err != nil {
			writeJSON(ctx, conn, errorMessage{Type: "Error", Error: err.Error()})
		} else {
			writeJSON(ctx, conn, resultMessage{Type: "Result", Result: auction.Result{OK: true}})
		}
		return
	case "BREAK_START":
		b := make(chan *auction.Break, 1)
		h.Inbox() <- hub.BreakStart{DurationSeconds: cmd.DurationSeconds, AdminName: cmd.AdminName, Reply: b}
		<-b
		writeJSON(ctx, conn, resultMessage{Type: "Result", Result: auction.Result{OK: true}})
		return
	case "BREAK_END":
		h.Inbox() <- hub.BreakEnd{AdminName: cmd.AdminName}
		writeJSON(ctx, conn, resultMessage{Type: "Result", Result: auction.Result{OK: true}})
		return
	default:
		writeJSON(ctx, conn, errorMessage{Type: "Error", Error: "unknown action"})
		return
	}

	writeJSON(ctx, conn, resultMessage{Type: "Result", Result: <-res})
}

func writeEvents(ctx context.Context, conn *websocket.Conn, out <-chan event.Event) {
	for e := range out {
		payload, err := json.Marshal(e)
		if err != nil {
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		_ = conn.Write(wctx, websocket.MessageText, payload)
		cancel()
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
