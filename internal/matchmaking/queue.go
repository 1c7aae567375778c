package matchmaking

import (
	"errors"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/DoyleJ11/asken-backend/pkg/types"
)

var ErrNameRequired = errors.New("a name is required")
var ErrNameTaken = errors.New("that name is already in the queue")
var ErrNotQueued = errors.New("you are not in the matchmaking queue")
var ErrTooFew = errors.New("at least 2 players are needed to start")

// MinPlayers is the smallest group that can be started from the queue.
const MinPlayers = 2

type Entry struct {
	ID       string
	Name     string
	JoinedAt time.Time
}

// Queue is a FIFO of players waiting for a game. The earliest entrant acts as
// host. It is not safe for concurrent use; the hub loop owns it.
type Queue struct {
	entries []Entry
}

func (q *Queue) Len() int { return len(q.entries) }

func (q *Queue) Entries() []Entry { return slices.Clone(q.entries) }

func (q *Queue) Position(id string) int {
	return slices.IndexFunc(q.entries, func(e Entry) bool { return e.ID == id })
}

// Join adds a player, or renames one already queued without losing their place.
func (q *Queue) Join(id, name string, at time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	fold := cases.Fold()
	for _, e := range q.entries {
		if e.ID != id && fold.String(e.Name) == fold.String(name) {
			return ErrNameTaken
		}
	}
	if i := q.Position(id); i >= 0 {
		q.entries[i].Name = name
		return nil
	}
	q.entries = append(q.entries, Entry{ID: id, Name: name, JoinedAt: at})
	return nil
}

func (q *Queue) Leave(id string) bool {
	i := q.Position(id)
	if i < 0 {
		return false
	}
	q.entries = slices.Delete(q.entries, i, i+1)
	return true
}

// Take removes a group led by starter. With no selection the group is filled
// in queue order; otherwise only selected ids that are still queued join.
func (q *Queue) Take(starter string, selected []string, limit int) ([]Entry, error) {
	si := q.Position(starter)
	if si < 0 {
		return nil, ErrNotQueued
	}
	if len(q.entries) < MinPlayers {
		return nil, ErrTooFew
	}

	group := []Entry{q.entries[si]}
	for _, e := range q.entries {
		if len(group) >= limit {
			break
		}
		if e.ID == starter {
			continue
		}
		if len(selected) > 0 && !slices.Contains(selected, e.ID) {
			continue
		}
		group = append(group, e)
	}
	if len(group) < MinPlayers {
		return nil, ErrTooFew
	}

	q.entries = slices.DeleteFunc(q.entries, func(e Entry) bool {
		return slices.ContainsFunc(group, func(g Entry) bool { return g.ID == e.ID })
	})
	return group, nil
}

// Snapshot is the queue as shown to one queued player.
func (q *Queue) Snapshot(id string) types.MatchmakingState {
	out := types.MatchmakingState{
		Count:    len(q.entries),
		Entries:  make([]types.MatchmakingEntry, len(q.entries)),
		Position: q.Position(id),
	}
	for i, e := range q.entries {
		out.Entries[i] = types.MatchmakingEntry{ID: e.ID, Name: e.Name, JoinedAt: e.JoinedAt}
	}
	out.IsHost = out.Position == 0
	return out
}
