package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/asken-backend/internal/hub"
	"github.com/DoyleJ11/asken-backend/pkg/types"
)

const (
	outboxSize   = 64
	writeTimeout = 5 * time.Second
	readLimit    = 64 << 10
)

type Options struct {
	Logger       *zap.Logger
	ReadTimeout  time.Duration
	PingInterval time.Duration
	// OriginPatterns is passed to websocket.Accept. Empty means same-origin only.
	OriginPatterns []string
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 2 * time.Minute
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = opts.ReadTimeout / 2
	}
	log := opts.Logger.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		conn.SetReadLimit(readLimit)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s := &session{
			id:  uuid.NewString(),
			out: make(chan types.ServerMessage, outboxSize),
			hub: h,
		}
		s.log = log.With(zap.String("session", s.id))
		s.log.Debug("connected")
		defer s.close()

		go writePump(ctx, cancel, conn, s.out, opts.PingInterval, s.log)

		// Reader loop
		for {
			readCtx, readCancel := context.WithTimeout(ctx, opts.ReadTimeout)
			_, data, err := conn.Read(readCtx)
			readCancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					s.log.Debug("closed by client")
				default:
					s.log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				s.reply(types.ErrorMessage("bad json"))
				continue
			}
			s.dispatch(ctx, cm)
		}
	}
}

// writePump is the only writer on conn. It also pings the peer so dead
// connections are noticed even when no game traffic flows.
func writePump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan types.ServerMessage, every time.Duration, log *zap.Logger) {
	defer cancel()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case m := <-out:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, m)
			wcancel()
			if err != nil {
				log.Debug("write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				log.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}
