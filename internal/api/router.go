package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/zawomons/battle-server/internal/api/handlers"
	"github.com/zawomons/battle-server/internal/api/middleware"
	"github.com/zawomons/battle-server/internal/service"
	"github.com/zawomons/battle-server/internal/websocket"
)

func NewRouter(services *service.Services, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	battleHandler := handlers.NewBattleHandler(services.Battle)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth)

	r.Route("/api/v1", func(r chi.Router) {
		// Battle history (replay/audit)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))

			r.Route("/battles", func(r chi.Router) {
				r.Get("/{id}", battleHandler.Get)
				r.Get("/{id}/actions", battleHandler.GetActions)
			})
		})

		// WebSocket endpoint (token via query parameter)
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
