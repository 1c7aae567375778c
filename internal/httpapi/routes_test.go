package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/asken-backend/internal/engine"
	"github.com/DoyleJ11/asken-backend/internal/hub"
	"github.com/DoyleJ11/asken-backend/internal/store"
	"github.com/DoyleJ11/asken-backend/internal/ws"
)

func newRouter(t *testing.T) (http.Handler, store.Store, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	st := store.NewCached(nil, nil)
	h := hub.NewHub(ctx, hub.Config{Store: st})
	return SetupRoutes(h, st, ws.Options{}), st, h
}

func TestHealthz(t *testing.T) {
	router, st, h := newRouter(t)

	get := func() health {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body health
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}
	assert.Equal(t, health{Status: "ok"}, get())

	s := engine.NewRoom("QRST", engine.Rules{DisconnectGrace: time.Hour}, time.Now(), engine.Seat{ID: "id-ann", Name: "Ann"})
	require.NoError(t, st.Set(context.Background(), s))
	_, err := h.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health{Status: "ok", Rooms: 1, Stored: 1}, get())
}

func TestGetRoom(t *testing.T) {
	router, st, _ := newRouter(t)
	s := engine.NewRoom("QRST", engine.Rules{}, time.Now(),
		engine.Seat{ID: "id-ann", Name: "Ann"}, engine.Seat{ID: "id-bob", Name: "Bob"})
	require.NoError(t, st.Set(context.Background(), s))

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"exact code", "/rooms/QRST", http.StatusOK},
		{"lower case", "/rooms/qrst", http.StatusOK},
		{"unknown", "/rooms/NOPE", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("GET %s: want %d, got %d", tt.path, tt.status, rec.Code)
			}
			if tt.status != http.StatusOK {
				return
			}
			var info roomInfo
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
			assert.Equal(t, roomInfo{Code: "QRST", State: "lobby", Players: 2}, info)
		})
	}
}
