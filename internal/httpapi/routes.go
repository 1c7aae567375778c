package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/asken-backend/internal/hub"
	"github.com/DoyleJ11/asken-backend/internal/store"
	"github.com/DoyleJ11/asken-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, st store.Store, opts ws.Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	log := opts.Logger.Named("http")

	// Public routes
	r.Get("/healthz", Healthz(h, st, log))
	r.Get("/rooms/{code}", GetRoom(st, log))
	r.Get("/ws", ws.Handler(h, opts))
	return r
}
