// Package table runs multiplayer game rooms: a registry of room codes, one
// serialized goroutine per room, seat bookkeeping and deferred actions.
package table

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// CodeLength is the length of a room code.
	CodeLength = 4
	// CodeAlphabet avoids characters that are easy to misread.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Factory builds the game for a new room.
type Factory func(code string) Game

type Options struct {
	// IdleTimeout reclaims rooms with no sessions after this long without
	// activity. Zero disables reclaiming.
	IdleTimeout time.Duration
	Publisher   Publisher
	Logger      zerolog.Logger
	Clock       func() time.Time
}

func (o Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// Registry maps room codes to live rooms. It only holds room handles; all
// game state stays inside each room.
type Registry struct {
	factory Factory
	opts    Options

	mu    sync.Mutex
	rooms map[string]*Room

	quit      chan struct{}
	closeOnce sync.Once
}

func NewRegistry(factory Factory, opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	g := &Registry{
		factory: factory,
		opts:    opts,
		rooms:   make(map[string]*Room),
		quit:    make(chan struct{}),
	}
	if opts.IdleTimeout > 0 {
		go g.reaperLoop()
	}
	return g
}

// NormalizeCode upper-cases code and checks its format.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != CodeLength {
		return "", Reject(ErrInvalidCode, "room codes are %d characters", CodeLength)
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", Reject(ErrInvalidCode, "room codes are letters and digits")
		}
	}
	return code, nil
}

// NewCode returns a crypto-random code not used by a live room.
func (g *Registry) NewCode() string {
	for {
		buf := make([]byte, CodeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, CodeLength)
		for i := range out {
			out[i] = CodeAlphabet[int(buf[i])%len(CodeAlphabet)]
		}
		code := string(out)

		g.mu.Lock()
		_, exists := g.rooms[code]
		g.mu.Unlock()

		if !exists {
			return code
		}
	}
}

// Open returns the room for code, creating it when the code is unused.
func (g *Registry) Open(code string) (*Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.openLocked(code)
}

func (g *Registry) openLocked(code string) (*Room, error) {
	select {
	case <-g.quit:
		return nil, ErrClosed
	default:
	}

	if room, ok := g.rooms[code]; ok {
		return room, nil
	}

	room := newRoom(code, g.factory(code), g.opts)
	g.rooms[code] = room
	g.opts.Logger.Info().Str("room", code).Msg("GAMES: Created room")
	return room, nil
}

// Lookup returns the live room for code.
func (g *Registry) Lookup(code string) (*Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[code]
	if !ok {
		return nil, Reject(ErrNotFound, "no room %s", code)
	}
	return room, nil
}

// Len is the number of live rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// Join seats device in room code, creating the room on first join.
func (g *Registry) Join(ctx context.Context, code, device, name string) (int, error) {
	room, err := g.Open(code)
	if err != nil {
		return -1, err
	}
	return room.Submit(ctx, Action{Kind: Join, Device: device, Name: name})
}

// Leave releases seat in room code.
func (g *Registry) Leave(ctx context.Context, code string, seat int) error {
	room, err := g.Lookup(code)
	if err != nil {
		return err
	}
	_, err = room.Submit(ctx, Action{Kind: Leave, Seat: seat})
	return err
}

// Reconnect returns the seat device holds in room code.
func (g *Registry) Reconnect(ctx context.Context, code, device string) (int, error) {
	room, err := g.Lookup(code)
	if err != nil {
		return -1, err
	}
	return room.Submit(ctx, Action{Kind: Reconnect, Device: device})
}

// Disconnect reports that every connection bound to seat has gone.
func (g *Registry) Disconnect(ctx context.Context, code string, seat int) error {
	room, err := g.Lookup(code)
	if err != nil {
		return err
	}
	_, err = room.Submit(ctx, Action{Kind: Disconnect, Origin: FromRoom, Seat: seat})
	return err
}

// Apply submits a player action to room code.
func (g *Registry) Apply(ctx context.Context, code string, a Action) (int, error) {
	room, err := g.Lookup(code)
	if err != nil {
		return -1, err
	}
	return room.Submit(ctx, a)
}

// Attach counts a new session on room code, creating the room if needed,
// and hands fn the current view on the room goroutine.
func (g *Registry) Attach(ctx context.Context, code string, fn func(Update)) (*Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	room, err := g.openLocked(code)
	if err == nil {
		room.sessions.Add(1)
	}
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	room.touch()
	if err := room.Sync(ctx, fn); err != nil {
		room.sessions.Add(-1)
		return nil, err
	}
	return room, nil
}

// Detach drops a session from room.
func (g *Registry) Detach(room *Room) {
	room.sessions.Add(-1)
	room.touch()
}

// Reap reclaims rooms without sessions that have been idle since before
// now minus the idle timeout.
func (g *Registry) Reap(now time.Time) int {
	cutoff := now.Add(-g.opts.IdleTimeout)

	g.mu.Lock()
	var reclaimed []*Room
	for code, room := range g.rooms {
		if room.Sessions() > 0 || !room.LastActive().Before(cutoff) {
			continue
		}
		delete(g.rooms, code)
		reclaimed = append(reclaimed, room)
	}
	g.mu.Unlock()

	for _, room := range reclaimed {
		room.close()
		if g.opts.Publisher != nil {
			g.opts.Publisher.Closed(room.code)
		}
		g.opts.Logger.Info().Str("room", room.code).Msg("GAMES: Reclaimed idle room")
	}
	return len(reclaimed)
}

func (g *Registry) reaperLoop() {
	ticker := time.NewTicker(g.opts.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Reap(g.opts.now())
		case <-g.quit:
			return
		}
	}
}

// Close stops the reaper and every room.
func (g *Registry) Close() {
	g.closeOnce.Do(func() {
		close(g.quit)

		g.mu.Lock()
		defer g.mu.Unlock()

		for code, room := range g.rooms {
			room.close()
			delete(g.rooms, code)
		}
	})
}
