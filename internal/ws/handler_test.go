package ws_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/jensholdgaard/player-auction/internal/auction"
	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/event"
	"github.com/jensholdgaard/player-auction/internal/hub"
	"github.com/jensholdgaard/player-auction/internal/model"
	"github.com/jensholdgaard/player-auction/internal/ws"
)

func newTestEndpoints(t *testing.T) (viewerURL, adminURL string) {
	t.Helper()
	players := []model.Player{
		{ID: "p1", Name: "V Sharma", Category: "Star_Indian_Batter", BasePrice: 200},
	}
	teams := []model.Team{
		{ID: "MUM", Code: "MUM", Name: "Mumbai Mavericks", Funds: 10000, InitialFunds: 10000},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := auction.New(auction.NewState(players, teams), auction.Options{Logger: logger})
	h := hub.New(context.Background(), store, clock.Real{}, logger)
	t.Cleanup(func() { h.Inbox() <- hub.Shutdown{} })

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.ViewerHandler(h, logger))
	mux.HandleFunc("/ws/admin", ws.AdminHandler(h, logger))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	base := "ws" + srv.URL[len("http"):]
	return base + "/ws", base + "/ws/admin"
}

func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn) event.Event {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("reading event: %v", err)
	}
	var e event.Event
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	return e
}

func TestViewerReceivesJoinSnapshot(t *testing.T) {
	viewerURL, _ := newTestEndpoints(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, viewerURL, nil)
	if err != nil {
		t.Fatalf("dialing viewer endpoint: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	e := readEvent(ctx, t, conn)
	if e.Type != event.TypeStateSync {
		t.Fatalf("first event = %q, want STATE_SYNC", e.Type)
	}
	if e.StateSnapshot == nil || len(e.StateSnapshot.Players) != 1 {
		t.Errorf("snapshot = %+v", e.StateSnapshot)
	}
}

func TestAdminCommandsReachViewers(t *testing.T) {
	viewerURL, adminURL := newTestEndpoints(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	viewerConn, _, err := websocket.Dial(ctx, viewerURL, nil)
	if err != nil {
		t.Fatalf("dialing viewer endpoint: %v", err)
	}
	defer viewerConn.Close(websocket.StatusNormalClosure, "done")
	readEvent(ctx, t, viewerConn) // join snapshot

	adminConn, _, err := websocket.Dial(ctx, adminURL, nil)
	if err != nil {
		t.Fatalf("dialing admin endpoint: %v", err)
	}
	defer adminConn.Close(websocket.StatusNormalClosure, "done")
	readEvent(ctx, t, adminConn) // admin also gets the join snapshot

	cmd, _ := json.Marshal(ws.ClientCommand{Action: "BID", TeamID: "MUM", BidAmount: 220, AdminName: "mod"})
	if err := adminConn.Write(ctx, websocket.MessageText, cmd); err != nil {
		t.Fatalf("writing command: %v", err)
	}

	// The viewer sees the replicated BID event.
	e := readEvent(ctx, t, viewerConn)
	if e.Type != event.TypeBid || e.TeamID != "MUM" || e.BidAmount != 220 {
		t.Errorf("replicated event = %+v", e)
	}
}

func TestSecondModeratorRefused(t *testing.T) {
	_, adminURL := newTestEndpoints(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, _, err := websocket.Dial(ctx, adminURL, nil)
	if err != nil {
		t.Fatalf("dialing admin endpoint: %v", err)
	}
	defer first.Close(websocket.StatusNormalClosure, "done")

	_, resp, err := websocket.Dial(ctx, adminURL, nil)
	if err == nil {
		t.Fatal("second moderator connection succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Errorf("second connection response = %+v, want 409", resp)
	}
}
