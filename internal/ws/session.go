package ws

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/asken-backend/internal/engine"
	"github.com/DoyleJ11/asken-backend/internal/hub"
	"github.com/DoyleJ11/asken-backend/internal/room"
	"github.com/DoyleJ11/asken-backend/pkg/types"
)

const (
	msgNotInRoom    = "You are not in a room"
	msgRoomNotFound = "Room not found"
	msgUnknownType  = "unknown message type"
)

// session is one websocket connection. Its id doubles as the player id in
// whichever room it is bound to.
type session struct {
	id  string
	out chan types.ServerMessage
	hub *hub.Hub
	log *zap.Logger

	mu   sync.Mutex
	room *room.Room
}

func (s *session) current() *room.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room != nil && s.room.Closed() {
		s.room = nil
	}
	return s.room
}

// bind is also called from the hub goroutine when matchmaking seats us.
func (s *session) bind(r *room.Room) {
	s.mu.Lock()
	s.room = r
	s.mu.Unlock()
}

func (s *session) unbind(r *room.Room) {
	s.mu.Lock()
	if s.room == r {
		s.room = nil
	}
	s.mu.Unlock()
}

// reply never blocks the reader; the outbox is large and drained continuously.
func (s *session) reply(m types.ServerMessage) {
	select {
	case s.out <- m:
	default:
		s.log.Warn("outbox full, dropping reply", zap.String("type", m.Type))
	}
}

func (s *session) dispatch(ctx context.Context, cm types.ClientMessage) {
	switch cm.Type {
	case types.MsgCreateRoom:
		s.createRoom(ctx, cm)
	case types.MsgJoinRoom:
		s.enterRoom(ctx, cm, engine.CmdJoin)
	case types.MsgRejoinRoom:
		s.enterRoom(ctx, cm, engine.CmdRejoin)

	case types.MsgKeepalivePing:
		if r := s.current(); r == nil || !r.Send(ctx, s.fromClient(engine.Command{Type: engine.CmdPing})) {
			s.reply(types.ServerMessage{Type: types.MsgPong})
		}

	case types.MsgAddBot:
		s.command(ctx, engine.Command{Type: engine.CmdAddBot})
	case types.MsgRemoveBot:
		s.command(ctx, engine.Command{Type: engine.CmdRemoveBot, TargetID: cm.BotID})
	case types.MsgSetBotDifficulty:
		s.command(ctx, engine.Command{Type: engine.CmdSetBotDifficulty, Difficulty: cm.Difficulty})
	case types.MsgSetHelpMode:
		if cm.HelpMode == nil {
			s.reply(types.ErrorMessage("helpMode is required"))
			return
		}
		s.command(ctx, engine.Command{Type: engine.CmdSetHelpMode, HelpMode: *cm.HelpMode})
	case types.MsgStartGame:
		s.command(ctx, engine.Command{Type: engine.CmdStartGame, Mode: engine.Mode(cm.Mode)})
	case types.MsgPlayCards:
		s.command(ctx, engine.Command{Type: engine.CmdPlayCards, CardIDs: cm.CardIDs})
	case types.MsgPass:
		s.command(ctx, engine.Command{Type: engine.CmdPass})
	case types.MsgNextRound:
		s.command(ctx, engine.Command{Type: engine.CmdNextRound})
	case types.MsgNewGame:
		s.command(ctx, engine.Command{Type: engine.CmdNewGame})
	case types.MsgHostEndGame:
		s.command(ctx, engine.Command{Type: engine.CmdEndGame})

	case types.MsgLeaveRoom:
		if r := s.current(); r != nil {
			_ = r.Do(ctx, s.fromClient(engine.Command{Type: engine.CmdLeave}))
			s.unbind(r)
		}

	case types.MsgSelectCards:
		if r := s.current(); r != nil {
			r.Send(ctx, room.SelectCards{ClientID: s.id, CardIDs: cm.CardIDs})
		}
	case types.MsgChat:
		if r := s.current(); r != nil {
			r.Send(ctx, room.Chat{ClientID: s.id, Text: cm.Text})
		}

	case types.MsgJoinMatchmaking:
		s.leaveCurrent(ctx)
		s.hub.JoinQueue(ctx, hub.JoinQueue{ID: s.id, Name: cm.Name, Outbox: s.out, Bind: s.bind})
	case types.MsgLeaveMatchmaking:
		s.hub.LeaveQueue(ctx, s.id)
	case types.MsgStartMatchmaking:
		s.hub.StartMatch(ctx, s.id, cm.Selected)

	default:
		s.reply(types.ErrorMessage(msgUnknownType))
	}
}

func (s *session) fromClient(cmd engine.Command) room.FromClient {
	return room.FromClient{ClientID: s.id, Outbox: s.out, Cmd: cmd}
}

// command forwards cmd to the bound room. The room reports failures to us
// itself, so only a vanished room needs handling here.
func (s *session) command(ctx context.Context, cmd engine.Command) {
	r := s.current()
	if r == nil {
		s.reply(types.ErrorMessage(msgNotInRoom))
		return
	}
	if err := r.Do(ctx, s.fromClient(cmd)); errors.Is(err, room.ErrClosed) {
		s.unbind(r)
		s.reply(types.ErrorMessage(msgRoomNotFound))
	}
}

func (s *session) createRoom(ctx context.Context, cm types.ClientMessage) {
	name := strings.TrimSpace(cm.Name)
	if name == "" {
		s.reply(types.ErrorMessage(engine.ErrNameRequired.Error()))
		return
	}
	s.leaveCurrent(ctx)
	r, err := s.hub.CreateRoom(ctx, engine.Seat{ID: s.id, Name: name}, s.out)
	if err != nil {
		s.log.Error("create room failed", zap.Error(err))
		s.reply(types.ErrorMessage("Could not create a room"))
		return
	}
	s.bind(r)
}

func (s *session) enterRoom(ctx context.Context, cm types.ClientMessage, typ engine.CommandType) {
	code := hub.NormalizeCode(cm.Code)
	r := s.hub.GetRoom(ctx, code)
	if r == nil {
		s.notFound(code, typ)
		return
	}
	if r != s.current() {
		s.leaveCurrent(ctx)
	}

	err := r.Do(ctx, s.fromClient(engine.Command{Type: typ, Name: cm.Name}))
	switch {
	case err == nil:
		s.bind(r)
	case errors.Is(err, room.ErrClosed):
		s.notFound(code, typ)
	}
}

func (s *session) notFound(code string, typ engine.CommandType) {
	if typ == engine.CmdRejoin {
		s.reply(types.ServerMessage{Type: types.MsgRejoinFailed, Code: code, Reason: msgRoomNotFound})
		return
	}
	s.reply(types.ErrorMessage(msgRoomNotFound))
}

// leaveCurrent gives up the seat held in another room before taking a new one.
func (s *session) leaveCurrent(ctx context.Context) {
	if r := s.current(); r != nil {
		_ = r.Do(ctx, s.fromClient(engine.Command{Type: engine.CmdLeave}))
		s.unbind(r)
	}
}

// close runs when the connection ends. The seat is kept for the grace
// period so the player can rejoin by name.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if r := s.current(); r != nil {
		r.Send(ctx, room.FromClient{ClientID: s.id, Cmd: engine.Command{Type: engine.CmdDisconnect}})
	}
	s.hub.LeaveQueue(ctx, s.id)
	s.log.Debug("disconnected")
}
