package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jensholdgaard/player-auction/internal/health"
	"github.com/jensholdgaard/player-auction/internal/hub"
	"github.com/jensholdgaard/player-auction/internal/ws"
)

// SetupRoutes builds the router with the hub and repositories injected.
func SetupRoutes(api *API, h *hub.Hub, healthHandler *health.Handler) http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/players", api.ListPlayers)
		r.Patch("/players/{id}/auction", api.PatchPlayerAuction)
		r.Post("/players/reset", api.ResetPlayers)
		r.Get("/teams", api.ListTeams)
		r.Get("/logs", api.ListLogs)
		r.Post("/auction/sell", api.SellPlayer)
		r.Post("/auction/undo", api.UndoSell)
	})

	r.Get("/ws", ws.ViewerHandler(h, api.logger))
	r.Get("/ws/admin", ws.AdminHandler(h, api.logger))

	r.Get("/healthz", healthHandler.LivenessHandler())
	r.Get("/readyz", healthHandler.ReadinessHandler())

	return r
}
