package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/asken-backend/internal/hub"
	"github.com/DoyleJ11/asken-backend/internal/store"
)

type roomInfo struct {
	Code    string `json:"code"`
	State   string `json:"state"`
	Players int    `json:"players"`
}

// GetRoom lets a client check a code before opening a socket.
func GetRoom(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := hub.NormalizeCode(chi.URLParam(r, "code"))
		s, err := st.Get(r.Context(), code)
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
			return
		}
		if err != nil {
			log.Error("room lookup failed", zap.String("room", code), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
			return
		}
		writeJSON(w, http.StatusOK, roomInfo{Code: s.Code, State: string(s.Phase), Players: len(s.Players)})
	}
}

type health struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
	Stored int    `json:"stored"`
}

// Healthz reports liveness along with live and stored room counts.
func Healthz(h *hub.Hub, st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stored, err := st.Count(r.Context())
		if err != nil {
			log.Warn("room count failed", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, health{Status: "ok", Rooms: h.RoomCount(r.Context()), Stored: stored})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
