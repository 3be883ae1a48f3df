package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jensholdgaard/player-auction/internal/model"
	"github.com/jensholdgaard/player-auction/internal/store"
)

// API bundles the repository-backed HTTP handlers: the persistence
// read/write contract consumed by moderator and viewers.
type API struct {
	players store.PlayerRepository
	teams   store.TeamRepository
	logs    store.LogRepository
	logger  *slog.Logger
}

// NewAPI returns the handler set.
func NewAPI(repos *store.Repositories, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		players: repos.Players,
		teams:   repos.Teams,
		logs:    repos.Logs,
		logger:  logger,
	}
}

// ListPlayers returns the full pool in ingestion order.
func (a *API) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := a.players.List(r.Context())
	if err != nil {
		a.serverError(w, r, "listing players", err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// patchRequest is the sparse auction-field update body.
type patchRequest struct {
	CurrentBid    *model.Money `json:"currentBid"`
	HighestBidder *string      `json:"highestBidder"`
	SoldStatus    *string      `json:"soldStatus"`
	SoldTo        *string      `json:"soldTo"`
	SoldPrice     *model.Money `json:"soldPrice"`
	AssignedCard  *model.Card  `json:"assignedCard"`
	Closed        *bool        `json:"isClosed"`
}

// PatchPlayerAuction applies a sparse update of auction-relevant fields.
func (a *API) PatchPlayerAuction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httpError(w, http.StatusBadRequest, "missing player id")
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentBid != nil && *req.CurrentBid < 0 {
		httpError(w, http.StatusBadRequest, "currentBid must not be negative")
		return
	}
	if req.SoldPrice != nil && *req.SoldPrice < 0 {
		httpError(w, http.StatusBadRequest, "soldPrice must not be negative")
		return
	}

	u := store.AuctionUpdate{
		CurrentBid:    req.CurrentBid,
		HighestBidder: req.HighestBidder,
		SoldTo:        req.SoldTo,
		SoldPrice:     req.SoldPrice,
		AssignedCard:  req.AssignedCard,
		Closed:        req.Closed,
	}
	if req.SoldStatus != nil {
		status := model.NormalizeSoldStatus(*req.SoldStatus)
		u.SoldStatus = &status
		if status == model.StatusSold {
			now := time.Now().UTC()
			u.SoldAt = &now
		}
	}

	player, err := a.players.UpdateAuction(r.Context(), id, u)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpError(w, http.StatusNotFound, "player not found")
		case errors.Is(err, store.ErrInvalidField):
			httpError(w, http.StatusBadRequest, err.Error())
		default:
			a.serverError(w, r, "updating player auction fields", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// ResetPlayers restores every player to OPEN and every team to its initial
// purse, returning the refreshed pool.
func (a *API) ResetPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := a.players.ResetAll(r.Context())
	if err != nil {
		a.serverError(w, r, "resetting players", err)
		return
	}
	if err := a.teams.ResetAll(r.Context()); err != nil {
		a.serverError(w, r, "resetting teams", err)
		return
	}
	if err := a.logs.DeleteAll(r.Context()); err != nil {
		a.logger.ErrorContext(r.Context(), "clearing auction log failed", slog.Any("error", err))
	}
	writeJSON(w, http.StatusOK, struct {
		Players []model.Player `json:"players"`
	}{Players: players})
}

// ListTeams returns the franchises with wallets and rosters.
func (a *API) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := a.teams.List(r.Context())
	if err != nil {
		a.serverError(w, r, "listing teams", err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// ListLogs returns recent auction log entries, newest first.
func (a *API) ListLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := a.logs.ListRecent(r.Context(), 200)
	if err != nil {
		a.serverError(w, r, "listing logs", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type sellRequest struct {
	PlayerID  string      `json:"playerId"`
	TeamID    string      `json:"teamId"`
	SoldPrice model.Money `json:"soldPrice"`
}

// SellPlayer applies the two-sided sale transaction: purse debit and roster
// append happen in one collaborator operation so a crash cannot split them.
func (a *API) SellPlayer(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlayerID == "" || req.TeamID == "" {
		httpError(w, http.StatusBadRequest, "playerId and teamId are required")
		return
	}
	if req.SoldPrice < 0 {
		httpError(w, http.StatusBadRequest, "soldPrice must not be negative")
		return
	}

	err := a.teams.Sell(r.Context(), store.SellTx{
		PlayerID: req.PlayerID,
		TeamID:   req.TeamID,
		Price:    req.SoldPrice,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, store.ErrInsufficientPurse), errors.Is(err, store.ErrRosterFull):
			httpError(w, http.StatusBadRequest, err.Error())
		default:
			a.serverError(w, r, "selling player", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "player sold"})
}

type undoRequest struct {
	PlayerID string `json:"playerId"`
}

// UndoSell reverses a persisted sale: purse refund and roster removal in
// one transaction.
func (a *API) UndoSell(w http.ResponseWriter, r *http.Request) {
	var req undoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlayerID == "" {
		httpError(w, http.StatusBadRequest, "playerId is required")
		return
	}

	player, err := a.players.Get(r.Context(), req.PlayerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "player not found")
			return
		}
		a.serverError(w, r, "loading player", err)
		return
	}
	if player.SoldStatus != model.StatusSold || player.SoldTo == "" {
		httpError(w, http.StatusBadRequest, "undo is only allowed for sold players")
		return
	}

	var price model.Money
	if player.SoldPrice != nil {
		price = *player.SoldPrice
	}
	err = a.teams.UndoSell(r.Context(), store.SellTx{
		PlayerID: player.ID,
		TeamID:   player.SoldTo,
		Price:    price,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrNotSold):
			httpError(w, http.StatusBadRequest, err.Error())
		default:
			a.serverError(w, r, "undoing sale", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "sale undone"})
}

func (a *API) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	a.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
	httpError(w, http.StatusInternalServerError, "internal error")
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
