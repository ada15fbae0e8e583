package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"linkup-realtime/internal/store"
)

type presenceRecord struct {
	connections int
	online      bool
	lastSeenAt  time.Time
}

// Presence derives per-user online state from active-connection
// reference counts. A user is online iff at least one connection is
// live; intermediate connects and disconnects with other devices still
// attached do not change state.
type Presence struct {
	store store.Store

	mu    sync.Mutex
	users map[string]*presenceRecord
}

func NewPresence(st store.Store) *Presence {
	return &Presence{
		store: st,
		users: make(map[string]*presenceRecord),
	}
}

// Connect counts one connection up, flipping the user online on the
// 0 -> 1 transition.
func (p *Presence) Connect(ctx context.Context, userID string) {
	p.mu.Lock()
	rec, ok := p.users[userID]
	if !ok {
		rec = &presenceRecord{}
		p.users[userID] = rec
	}
	rec.connections++
	first := rec.connections == 1
	if first {
		rec.online = true
	}
	count := rec.connections
	p.mu.Unlock()

	slog.Debug("[PRESENCE] Connection added", "user", userID, "connections", count)

	if first {
		go p.touch(ctx, userID, true)
	}
}

// Disconnect counts one connection down, flipping the user offline on
// the 1 -> 0 transition and stamping lastSeenAt. The count never goes
// negative.
func (p *Presence) Disconnect(ctx context.Context, userID string) {
	p.mu.Lock()
	rec, ok := p.users[userID]
	if !ok || rec.connections == 0 {
		p.mu.Unlock()
		slog.Warn("[PRESENCE] Disconnect for user with no tracked connections", "user", userID)
		return
	}
	rec.connections--
	last := rec.connections == 0
	if last {
		rec.online = false
		rec.lastSeenAt = time.Now()
	}
	count := rec.connections
	p.mu.Unlock()

	slog.Debug("[PRESENCE] Connection removed", "user", userID, "connections", count)

	if last {
		go p.touch(ctx, userID, false)
	}
}

// touch writes the presence change to the external store. Best-effort
// and asynchronous: a failure or a slow store is logged and never
// blocks the connect/disconnect path.
func (p *Presence) touch(ctx context.Context, userID string, online bool) {
	if err := p.store.TouchPresence(ctx, userID, online); err != nil {
		slog.Warn("[PRESENCE] Failed to persist presence", "user", userID, "online", online, "error", err)
	}
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.users[userID]
	return ok && rec.online
}

// LastSeen reports when the user last went offline. The second return
// is false while the user is online or was never seen.
func (p *Presence) LastSeen(userID string) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.users[userID]
	if !ok || rec.online || rec.lastSeenAt.IsZero() {
		return time.Time{}, false
	}
	return rec.lastSeenAt, true
}
