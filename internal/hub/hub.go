package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/asken-backend/internal/engine"
	"github.com/DoyleJ11/asken-backend/internal/matchmaking"
	"github.com/DoyleJ11/asken-backend/internal/room"
	"github.com/DoyleJ11/asken-backend/internal/store"
	"github.com/DoyleJ11/asken-backend/pkg/types"
)

var ErrNoCode = errors.New("could not allocate a room code")
var ErrHubClosed = errors.New("hub closed")

const codeAttempts = 10

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Host   engine.Seat
	Outbox chan<- types.ServerMessage
	Reply  chan CreateResult
}

type CreateResult struct {
	Room *room.Room
	Err  error
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Room *room.Room
}

// JoinQueue enters matchmaking. Bind is called with the new room when the
// entrant is moved into a game.
type JoinQueue struct {
	ID     string
	Name   string
	Outbox chan<- types.ServerMessage
	Bind   func(*room.Room)
}

type LeaveQueue struct {
	ID string
}

type StartMatch struct {
	ID       string
	Selected []string
}

type CountRooms struct {
	Reply chan int
}

// RestoreRooms starts actors for stored rooms that are not live yet.
type RestoreRooms struct {
	States []engine.State
	Reply  chan int
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()   {}
func (GetRoom) isHubMsg()      {}
func (RemoveRoom) isHubMsg()   {}
func (JoinQueue) isHubMsg()    {}
func (LeaveQueue) isHubMsg()   {}
func (StartMatch) isHubMsg()   {}
func (CountRooms) isHubMsg()   {}
func (RestoreRooms) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

type Config struct {
	Store         store.Store
	Logger        *zap.Logger
	Rules         engine.Rules
	BotDelay      func() time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

type queued struct {
	outbox chan<- types.ServerMessage
	bind   func(*room.Room)
}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	queue  matchmaking.Queue
	queued map[string]queued
	cfg    Config
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		queued: make(map[string]queued),
		cfg:    cfg,
		log:    cfg.Logger.Named("hub"),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) send(ctx context.Context, m HubMsg) bool {
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

// CreateRoom opens a lobby hosted by host. The host is attached with
// outbox and receives room-created.
func (h *Hub) CreateRoom(ctx context.Context, host engine.Seat, outbox chan<- types.ServerMessage) (*room.Room, error) {
	reply := make(chan CreateResult, 1)
	if !h.send(ctx, CreateRoom{Host: host, Outbox: outbox, Reply: reply}) {
		return nil, ErrHubClosed
	}
	select {
	case res := <-reply:
		return res.Room, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetRoom returns the live room for code, loading it from the store if
// needed. It returns nil when there is no such room.
func (h *Hub) GetRoom(ctx context.Context, code string) *room.Room {
	reply := make(chan *room.Room, 1)
	if !h.send(ctx, GetRoom{Code: code, Reply: reply}) {
		return nil
	}
	select {
	case r := <-reply:
		return r
	case <-ctx.Done():
		return nil
	}
}

func (h *Hub) JoinQueue(ctx context.Context, msg JoinQueue) { h.send(ctx, msg) }

func (h *Hub) LeaveQueue(ctx context.Context, id string) { h.send(ctx, LeaveQueue{ID: id}) }

func (h *Hub) StartMatch(ctx context.Context, id string, selected []string) {
	h.send(ctx, StartMatch{ID: id, Selected: selected})
}

// RoomCount reports how many rooms are live. It returns 0 once the hub stops.
func (h *Hub) RoomCount(ctx context.Context) int {
	reply := make(chan int, 1)
	if !h.send(ctx, CountRooms{Reply: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-ctx.Done():
		return 0
	}
}

// Restore brings every stored room back to life, so disconnect grace and bot
// timers keep running after a restart. It returns how many rooms were started.
func (h *Hub) Restore(ctx context.Context) (int, error) {
	if h.cfg.Store == nil {
		return 0, nil
	}
	states, err := h.cfg.Store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list rooms: %w", err)
	}
	reply := make(chan int, 1)
	if !h.send(ctx, RestoreRooms{States: states, Reply: reply}) {
		return 0, ErrHubClosed
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (h *Hub) loop() {
	var sweep <-chan time.Time
	if h.cfg.SweepInterval > 0 {
		t := time.NewTicker(h.cfg.SweepInterval)
		defer t.Stop()
		sweep = t.C
	}

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case <-sweep:
			h.sweep()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				r, err := h.createRoom(msg)
				msg.Reply <- CreateResult{Room: r, Err: err}

			case GetRoom:
				msg.Reply <- h.getRoom(NormalizeCode(msg.Code)) // May be nil

			case RemoveRoom:
				if h.rooms[msg.Room.Code()] == msg.Room {
					delete(h.rooms, msg.Room.Code())
				}

			case JoinQueue:
				h.joinQueue(msg)

			case LeaveQueue:
				if h.queue.Leave(msg.ID) {
					delete(h.queued, msg.ID)
					h.broadcastQueue()
				}

			case StartMatch:
				h.startMatch(msg)

			case CountRooms:
				msg.Reply <- len(h.rooms)

			case RestoreRooms:
				started := 0
				for _, st := range msg.States {
					if r := h.rooms[st.Code]; r != nil && !r.Closed() {
						continue
					}
					h.start(st)
					started++
				}
				if started > 0 {
					h.log.Info("rooms restored from store", zap.Int("rooms", started))
				}
				msg.Reply <- started

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, r := range h.rooms {
		select {
		case r.Inbox() <- room.Shutdown{}:
		default:
		}
	}
	clear(h.rooms)
	h.cancel()
}

func (h *Hub) createRoom(msg CreateRoom) (*room.Room, error) {
	code, err := h.allocateCode()
	if err != nil {
		return nil, err
	}
	r := h.start(engine.NewRoom(code, h.cfg.Rules, h.cfg.Now(), msg.Host))
	r.Inbox() <- room.Attach{
		ClientID: msg.Host.ID,
		Outbox:   msg.Outbox,
		Notice:   types.ServerMessage{Type: types.MsgRoomCreated, Code: code, Name: msg.Host.Name},
	}
	h.log.Info("room created", zap.String("room", code), zap.String("host", msg.Host.Name))
	return r, nil
}

func (h *Hub) getRoom(code string) *room.Room {
	if r := h.rooms[code]; r != nil {
		if !r.Closed() {
			return r
		}
		delete(h.rooms, code)
	}
	if h.cfg.Store == nil {
		return nil
	}
	s, err := h.cfg.Store.Get(h.ctx, code)
	if err != nil {
		return nil
	}
	h.log.Info("room restored from store", zap.String("room", code))
	return h.start(s)
}

func (h *Hub) start(s engine.State) *room.Room {
	r := room.New(h.ctx, s, room.Config{
		Store:    h.cfg.Store,
		Logger:   h.cfg.Logger,
		BotDelay: h.cfg.BotDelay,
		Now:      h.cfg.Now,
		OnClose: func(r *room.Room) {
			go h.send(context.Background(), RemoveRoom{Room: r})
		},
	})
	h.rooms[s.Code] = r
	return r
}

func (h *Hub) allocateCode() (string, error) {
	for range codeAttempts {
		code, err := GenerateCode()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoCode, err)
		}
		if _, taken := h.rooms[code]; taken {
			continue
		}
		if h.cfg.Store != nil {
			if _, err := h.cfg.Store.Get(h.ctx, code); !errors.Is(err, store.ErrNotFound) {
				continue
			}
		}
		return code, nil
	}
	return "", ErrNoCode
}

func (h *Hub) joinQueue(msg JoinQueue) {
	if err := h.queue.Join(msg.ID, msg.Name, h.cfg.Now()); err != nil {
		trySend(msg.Outbox, types.ErrorMessage(err.Error()))
		return
	}
	h.queued[msg.ID] = queued{outbox: msg.Outbox, bind: msg.Bind}
	h.broadcastQueue()
}

func (h *Hub) startMatch(msg StartMatch) {
	starter, ok := h.queued[msg.ID]
	if !ok {
		return
	}
	group, err := h.queue.Take(msg.ID, msg.Selected, engine.MaxPlayers)
	if err != nil {
		trySend(starter.outbox, types.ErrorMessage(err.Error()))
		return
	}

	code, err := h.allocateCode()
	if err != nil {
		// Requeue the group in its original order.
		h.log.Error("matchmaking start failed", zap.Error(err))
		for _, e := range group {
			_ = h.queue.Join(e.ID, e.Name, e.JoinedAt)
		}
		trySend(starter.outbox, types.ErrorMessage(err.Error()))
		h.broadcastQueue()
		return
	}

	seats := make([]engine.Seat, len(group))
	for i, e := range group {
		seats[i] = engine.Seat{ID: e.ID, Name: e.Name}
	}
	r := h.start(engine.NewRoom(code, h.cfg.Rules, h.cfg.Now(), seats...))
	for _, e := range group {
		q := h.queued[e.ID]
		delete(h.queued, e.ID)
		if q.bind != nil {
			q.bind(r)
		}
		r.Inbox() <- room.Attach{
			ClientID: e.ID,
			Outbox:   q.outbox,
			Notice:   types.ServerMessage{Type: types.MsgMatchmakingStarted, Code: code, Name: e.Name},
		}
	}
	h.log.Info("matchmaking room started", zap.String("room", code), zap.Int("players", len(group)))
	h.broadcastQueue()
}

func (h *Hub) broadcastQueue() {
	for _, e := range h.queue.Entries() {
		snap := h.queue.Snapshot(e.ID)
		trySend(h.queued[e.ID].outbox, types.ServerMessage{Type: types.MsgMatchmakingUpdate, Matchmaking: &snap})
	}
}

// sweep asks every room to close itself if it has been idle too long.
func (h *Hub) sweep() {
	for code, r := range h.rooms {
		select {
		case r.Inbox() <- room.FromClient{Cmd: engine.Command{Type: engine.CmdExpire}}:
		default:
			h.log.Debug("room busy, skipping sweep", zap.String("room", code))
		}
	}
}

func trySend(ch chan<- types.ServerMessage, m types.ServerMessage) {
	if ch == nil {
		return
	}
	select {
	case ch <- m:
	default:
	}
}
