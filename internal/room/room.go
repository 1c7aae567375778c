package room

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/DoyleJ11/asken-backend/internal/engine"
	"github.com/DoyleJ11/asken-backend/internal/store"
	"github.com/DoyleJ11/asken-backend/internal/view"
	"github.com/DoyleJ11/asken-backend/pkg/types"
)

var ErrClosed = errors.New("room closed")

type Msg interface{ isRoomMsg() }

// FromClient carries an engine command. Outbox, when set, is where the
// sender receives replies and snapshots. Reply, when set, receives the
// command's result exactly once.
type FromClient struct {
	ClientID string
	Outbox   chan<- types.ServerMessage
	Cmd      engine.Command
	Reply    chan error
}

func (FromClient) isRoomMsg() {}

// Attach registers a seated player's outbox and sends them Notice followed by
// a snapshot. Used when the hub seats players itself.
type Attach struct {
	ClientID string
	Outbox   chan<- types.ServerMessage
	Notice   types.ServerMessage
}

func (Attach) isRoomMsg() {}

type Chat struct {
	ClientID string
	Text     string
}

func (Chat) isRoomMsg() {}

type SelectCards struct {
	ClientID string
	CardIDs  []string
}

func (SelectCards) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type View struct {
	NumClients int
	State      engine.State
}

type Config struct {
	Store    store.Store
	Logger   *zap.Logger
	BotDelay func() time.Duration
	Now      func() time.Time
	// OnClose runs on the actor goroutine after the room has been deleted.
	OnClose func(r *Room)
}

type Room struct {
	code    string
	inbox   chan Msg
	state   engine.State
	clients map[string]chan<- types.ServerMessage
	cfg     Config
	log     *zap.Logger

	botTimer *time.Timer
	botSeq   int
	grace    map[string]*time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, initial engine.State, cfg Config) *Room {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BotDelay == nil {
		cfg.BotDelay = func() time.Duration { return time.Second }
	}

	r := &Room{
		code:    initial.Code,
		inbox:   make(chan Msg, 64),
		state:   initial,
		clients: make(map[string]chan<- types.ServerMessage),
		cfg:     cfg,
		log:     cfg.Logger.With(zap.String("room", initial.Code)),
		botSeq:  -1,
		grace:   make(map[string]*time.Timer),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Room) Code() string { return r.code }

func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the actor has stopped.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Send delivers msg unless the room has stopped or ctx ends first.
func (r *Room) Send(ctx context.Context, msg Msg) bool {
	select {
	case r.inbox <- msg:
		return true
	case <-r.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Do sends a command and waits for its result.
func (r *Room) Do(ctx context.Context, msg FromClient) error {
	msg.Reply = make(chan error, 1)
	if !r.Send(ctx, msg) {
		return ErrClosed
	}
	select {
	case err := <-msg.Reply:
		return err
	case <-r.done:
		select {
		case err := <-msg.Reply:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) loop() {
	defer close(r.done)

	r.persist()
	r.restoreTimers()
	r.scheduleBot()

	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case FromClient:
				closed := r.handle(msg)
				if closed {
					r.shutdown()
					return
				}

			case Attach:
				if r.state.IndexOf(msg.ClientID) < 0 {
					break
				}
				r.clients[msg.ClientID] = msg.Outbox
				if msg.Notice.Type != "" {
					r.sendTo(msg.ClientID, msg.Notice)
				}
				r.sendTo(msg.ClientID, r.snapshotFor(msg.ClientID))

			case Chat:
				r.chat(msg)

			case SelectCards:
				if p, ok := r.state.Current(); ok && p.ID == msg.ClientID {
					r.sendTo(msg.ClientID, types.ServerMessage{Type: types.MsgCardsSelected, CardIDs: msg.CardIDs})
				}

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{NumClients: len(r.clients), State: r.state.Clone()}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

// handle applies one command and reports whether the room closed.
func (r *Room) handle(msg FromClient) bool {
	cmd := msg.Cmd
	cmd.PlayerID = msg.ClientID
	if cmd.At.IsZero() {
		cmd.At = r.cfg.Now()
	}

	if msg.Outbox != nil && cmd.Type != engine.CmdDisconnect && r.state.IndexOf(msg.ClientID) >= 0 {
		r.clients[msg.ClientID] = msg.Outbox
	}

	events, next, err := engine.Apply(r.state, cmd)
	if err != nil {
		r.reject(msg, err)
		reply(msg, err)
		return false
	}
	r.state = next

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtPlayerJoined:
			r.attach(ev.PlayerID, msg)
			notice := types.MsgRoomJoined
			if cmd.Type == engine.CmdRejoin {
				notice = types.MsgRejoinSuccess
			}
			r.sendTo(ev.PlayerID, types.ServerMessage{Type: notice, Code: r.code, Name: ev.Name})
			r.log.Info("player joined", zap.String("player", ev.Name))

		case engine.EvtPlayerRejoined:
			r.stopGrace(ev.PrevID)
			delete(r.clients, ev.PrevID)
			r.attach(ev.PlayerID, msg)
			r.sendTo(ev.PlayerID, types.ServerMessage{Type: types.MsgRejoinSuccess, Code: r.code, Name: ev.Name})
			r.log.Info("player rejoined", zap.String("player", ev.Name))

		case engine.EvtPlayerReconnected:
			r.stopGrace(ev.PlayerID)

		case engine.EvtPlayerDisconnected:
			delete(r.clients, ev.PlayerID)
			r.startGrace(ev.PlayerID, r.state.Rules.DisconnectGrace)
			r.log.Info("player disconnected", zap.String("player", ev.Name))

		case engine.EvtPlayerLeft:
			r.stopGrace(ev.PlayerID)
			delete(r.clients, ev.PlayerID)
			r.log.Info("player left", zap.String("player", ev.Name), zap.String("reason", ev.Reason))

		case engine.EvtModalClosed:
			r.broadcast(types.ServerMessage{Type: types.MsgCloseModal})

		case engine.EvtGameStarted:
			r.log.Info("game started", zap.String("mode", string(r.state.Mode)), zap.Int("players", len(r.state.Players)))

		case engine.EvtCardsPlayed, engine.EvtPassed:
			if p, ok := r.state.Player(ev.PlayerID); ok && p.IsBot {
				r.log.Debug("bot moved", zap.String("bot", p.Name), zap.Strings("cards", ev.CardIDs))
			}

		case engine.EvtRoundEnded:
			r.log.Info("round ended", zap.Int("round", r.state.RoundNumber), zap.Strings("winners", r.state.RoundWinners))

		case engine.EvtRoomClosed:
			if cmd.Type == engine.CmdRejoin {
				// Expired seats were purged before the name was looked up.
				r.sendOut(msg, types.ServerMessage{Type: types.MsgRejoinFailed, Code: r.code, Reason: ErrClosed.Error()})
				reply(msg, engine.ErrRejoinRejected)
			} else {
				reply(msg, nil)
			}
			r.close(ev)
			return true
		}
	}

	if cmd.Type == engine.CmdPing {
		r.sendTo(msg.ClientID, types.ServerMessage{Type: types.MsgPong})
	}

	r.persist()
	if len(events) > 0 {
		r.broadcastState()
	}
	r.scheduleBot()
	reply(msg, nil)
	return false
}

func reply(msg FromClient, err error) {
	if msg.Reply != nil {
		msg.Reply <- err
	}
}

// reject reports a failed command to its sender only.
func (r *Room) reject(msg FromClient, err error) {
	var illegal *engine.IllegalMoveError
	switch {
	case errors.Is(err, engine.ErrStale):
		r.log.Debug("stale command ignored", zap.String("cmd", string(msg.Cmd.Type)))
		return
	case errors.As(err, &illegal):
		if illegal.Detailed {
			r.sendOut(msg, types.ServerMessage{Type: types.MsgInvalidMove, Error: illegal.Explanation})
		} else {
			r.sendOut(msg, types.ErrorMessage("Invalid move"))
		}
	case errors.Is(err, engine.ErrMustPlay) && !r.state.HelpMode:
		r.sendOut(msg, types.ServerMessage{Type: types.MsgInvalidMove, Error: err.Error()})
	case msg.Cmd.Type == engine.CmdRejoin:
		r.sendOut(msg, types.ServerMessage{Type: types.MsgRejoinFailed, Code: r.code, Reason: err.Error()})
	case msg.Cmd.Type == engine.CmdBotTurn:
		r.log.Error("bot turn failed", zap.Error(err))
	default:
		r.sendOut(msg, types.ErrorMessage(err.Error()))
	}
}

func (r *Room) attach(id string, msg FromClient) {
	if msg.Outbox != nil && msg.ClientID == id {
		r.clients[id] = msg.Outbox
	}
}

func (r *Room) chat(msg Chat) {
	p, ok := r.state.Player(msg.ClientID)
	if !ok {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if utf8.RuneCountInString(text) > types.MaxChatLength {
		text = string([]rune(text)[:types.MaxChatLength])
	}
	r.broadcast(types.ServerMessage{
		Type: types.MsgChat,
		Chat: &types.ChatMessage{PlayerID: p.ID, Name: p.Name, Text: text, At: r.cfg.Now()},
	})
}

// close announces why the room is going away and removes it from the store.
func (r *Room) close(ev engine.Event) {
	for id := range r.clients {
		if id == ev.PlayerID {
			continue
		}
		switch ev.Reason {
		case engine.ReasonHostEnded:
			r.sendTo(id, types.ServerMessage{Type: types.MsgHostEndedGame})
		case engine.ReasonLeft, engine.ReasonDisconnected:
			r.sendTo(id, types.ServerMessage{Type: types.MsgGameEnded, PlayerName: ev.Name, Reason: ev.Reason})
		default:
			r.sendTo(id, types.ServerMessage{Type: types.MsgRoomClosed, Reason: ev.Reason})
		}
	}
	if ev.Reason == engine.ReasonHostEnded {
		r.sendTo(ev.PlayerID, types.ServerMessage{Type: types.MsgRoomClosed, Reason: ev.Reason})
	}

	if r.cfg.Store != nil {
		if err := r.cfg.Store.Delete(r.ctx, r.code); err != nil {
			r.log.Warn("delete room failed", zap.Error(err))
		}
	}
	r.log.Info("room closed", zap.String("reason", ev.Reason), zap.String("player", ev.Name))
	if r.cfg.OnClose != nil {
		r.cfg.OnClose(r)
	}
}

func (r *Room) shutdown() {
	if r.botTimer != nil {
		r.botTimer.Stop()
	}
	for id, t := range r.grace {
		t.Stop()
		delete(r.grace, id)
	}
	clear(r.clients)
	r.cancel()
}

func (r *Room) persist() {
	if r.cfg.Store == nil {
		return
	}
	if err := r.cfg.Store.Set(r.ctx, r.state); err != nil {
		r.log.Warn("persist room failed", zap.Error(err))
	}
}

func (r *Room) snapshotFor(id string) types.ServerMessage {
	gs := view.Build(r.state, id)
	return types.ServerMessage{Type: types.MsgGameState, Code: r.code, State: &gs}
}

func (r *Room) broadcastState() {
	for id := range r.clients {
		r.sendTo(id, r.snapshotFor(id))
	}
}

func (r *Room) broadcast(m types.ServerMessage) {
	for id := range r.clients {
		r.sendTo(id, m)
	}
}

// sendTo never blocks. A client whose outbox is full is detached; it is
// reattached the next time it sends anything.
func (r *Room) sendTo(id string, m types.ServerMessage) {
	ch, ok := r.clients[id]
	if !ok {
		return
	}
	select {
	case ch <- m:
	default:
		r.log.Warn("client outbox full, detaching", zap.String("client", id))
		delete(r.clients, id)
	}
}

// sendOut replies to the sender of msg even if it is not seated here.
func (r *Room) sendOut(msg FromClient, m types.ServerMessage) {
	if msg.Outbox == nil {
		return
	}
	select {
	case msg.Outbox <- m:
	default:
	}
}

// post feeds a timer callback back into the actor.
func (r *Room) post(msg Msg) {
	select {
	case r.inbox <- msg:
	case <-r.ctx.Done():
	}
}

// scheduleBot queues a delayed move when a bot is to act. The move carries
// the turn sequence it was scheduled for and is dropped by the engine if
// the game has moved on.
func (r *Room) scheduleBot() {
	if !r.state.BotToMove() || r.botSeq == r.state.TurnSeq {
		return
	}
	seq := r.state.TurnSeq
	r.botSeq = seq
	if r.botTimer != nil {
		r.botTimer.Stop()
	}
	r.botTimer = time.AfterFunc(r.cfg.BotDelay(), func() {
		r.post(FromClient{Cmd: engine.Command{Type: engine.CmdBotTurn, TurnSeq: seq}})
	})
}

func (r *Room) startGrace(id string, d time.Duration) {
	r.stopGrace(id)
	r.grace[id] = time.AfterFunc(d, func() {
		r.post(FromClient{ClientID: id, Cmd: engine.Command{Type: engine.CmdEvict}})
	})
}

func (r *Room) stopGrace(id string) {
	if t, ok := r.grace[id]; ok {
		t.Stop()
		delete(r.grace, id)
	}
}

// restoreTimers re-arms grace periods for a room loaded from the store.
func (r *Room) restoreTimers() {
	now := r.cfg.Now()
	for _, p := range r.state.Players {
		if p.IsBot || p.Connected || p.DisconnectedAt.IsZero() {
			continue
		}
		r.startGrace(p.ID, max(r.state.Rules.DisconnectGrace-now.Sub(p.DisconnectedAt), 0))
	}
}
