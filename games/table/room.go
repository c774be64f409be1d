package table

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Update is one published view of a room. Seq increases by one for every
// update a room publishes.
type Update struct {
	Room    string
	Phase   string
	Seq     uint64
	Public  any
	Private map[int]any

	// Holders maps each live seat to the device holding it. It is nil
	// when the game does not expose its seats.
	Holders map[int]string
}

// Publisher fans room updates out to connected sessions. Publish is called
// from the room goroutine, in apply order.
type Publisher interface {
	Publish(u Update)
	Closed(code string)
}

// Aborter is implemented by games that can abandon a round after a defect.
// Abort returns the timers the abandoned round owned; any others, such as
// reconnect grace periods, keep running.
type Aborter interface {
	Abort(reason error) []string
}

// Seated is implemented by games that keep a table.Seats.
type Seated interface {
	Seats() *Seats
}

type request struct {
	action Action
	sync   func(Update)
	reply  chan result
}

type result struct {
	out Outcome
	err error
}

type pendingTimer struct {
	id    uint64
	timer *time.Timer
}

// Room serializes every mutation of one game on its own goroutine.
type Room struct {
	code  string
	game  Game
	pub   Publisher
	log   zerolog.Logger
	clock func() time.Time

	inbox     chan request
	done      chan struct{}
	closeOnce sync.Once

	timers  map[string]pendingTimer
	timerID uint64
	seq     uint64

	createdAt  time.Time
	lastActive atomic.Int64
	sessions   atomic.Int32
}

func newRoom(code string, game Game, opts Options) *Room {
	now := opts.now()
	r := &Room{
		code:      code,
		game:      game,
		pub:       opts.Publisher,
		log:       opts.Logger.With().Str("room", code).Logger(),
		clock:     opts.now,
		inbox:     make(chan request, 64),
		done:      make(chan struct{}),
		timers:    make(map[string]pendingTimer),
		createdAt: now,
	}
	r.lastActive.Store(now.UnixNano())
	go r.run()
	return r
}

func (r *Room) Code() string {
	return r.code
}

func (r *Room) CreatedAt() time.Time {
	return r.createdAt
}

func (r *Room) LastActive() time.Time {
	return time.Unix(0, r.lastActive.Load())
}

// Sessions is the number of attached connections.
func (r *Room) Sessions() int {
	return int(r.sessions.Load())
}

func (r *Room) touch() {
	r.lastActive.Store(r.clock().UnixNano())
}

// Submit applies a on the room goroutine and waits for the verdict. It
// returns the seat the action resolved to.
func (r *Room) Submit(ctx context.Context, a Action) (int, error) {
	if a.Origin == FromPlayer && !PlayerKind(a.Kind) {
		return -1, Reject(ErrInvalidPayload, "unknown action %q", a.Kind)
	}
	r.touch()

	res, err := r.call(ctx, request{action: a})
	if err != nil {
		return -1, err
	}
	return res.out.Seat, res.err
}

// Sync runs fn on the room goroutine with the current view. Updates
// published afterwards are ordered after it.
func (r *Room) Sync(ctx context.Context, fn func(Update)) error {
	_, err := r.call(ctx, request{sync: fn})
	return err
}

func (r *Room) call(ctx context.Context, req request) (result, error) {
	req.reply = make(chan result, 1)

	select {
	case r.inbox <- req:
	case <-r.done:
		return result{}, ErrClosed
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res, nil
	case <-r.done:
		return result{}, ErrClosed
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (r *Room) enqueue(a Action) {
	select {
	case r.inbox <- request{action: a}:
	case <-r.done:
	}
}

func (r *Room) close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

func (r *Room) run() {
	defer r.stopTimers()

	for {
		select {
		case req := <-r.inbox:
			r.handle(req)
		case <-r.done:
			return
		}
	}
}

func (r *Room) handle(req request) {
	if req.sync != nil {
		req.sync(r.update(false))
		req.reply <- result{}
		return
	}

	a := req.action
	if a.Kind == Timeout && !r.claimTimer(a) {
		r.log.Debug().Str("timer", a.Timer).Msg("GAMES: Dropped cancelled timer")
		return
	}

	out, err := r.apply(a)

	switch {
	case err == nil:
		r.stop(out.Cancel...)
		for _, t := range out.Schedule {
			r.schedule(t)
		}
		if !out.Quiet {
			r.publish()
		}
		r.log.Debug().
			Str("action", string(a.Kind)).
			Int("seat", out.Seat).
			Str("timer", a.Timer).
			Msg("GAMES: Applied")
	case errors.Is(err, ErrStale):
		err = nil
		r.log.Debug().Str("timer", a.Timer).Msg("GAMES: Ignored stale timer")
	case errors.Is(err, ErrInvariant):
		r.stop(out.Cancel...)
		for _, t := range out.Schedule {
			r.schedule(t)
		}
		r.publish()
		r.log.Error().Err(err).Str("action", string(a.Kind)).Msg("GAMES: Round aborted")
	default:
		r.log.Debug().
			Err(err).
			Str("action", string(a.Kind)).
			Int("seat", a.Seat).
			Msg("GAMES: Rejected")
	}

	if req.reply != nil {
		req.reply <- result{out: out, err: err}
	}
}

func (r *Room) apply(a Action) (out Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic applying %s: %v", ErrInvariant, a.Kind, p)
			out = Outcome{Seat: a.Seat}
			if ab, ok := r.game.(Aborter); ok {
				out.Stop(ab.Abort(err)...)
			} else {
				r.stopTimers()
			}
		}
	}()

	return r.game.Apply(r.clock(), a)
}

// claimTimer reports whether a is the live firing of its named timer.
func (r *Room) claimTimer(a Action) bool {
	p, ok := r.timers[a.Timer]
	if !ok || p.id != a.timerID {
		return false
	}
	delete(r.timers, a.Timer)
	return true
}

func (r *Room) schedule(t Timer) {
	r.stop(t.Name)

	r.timerID++
	a := t.Action
	a.Timer = t.Name
	a.timerID = r.timerID

	r.timers[t.Name] = pendingTimer{
		id: r.timerID,
		timer: time.AfterFunc(t.After, func() {
			r.enqueue(a)
		}),
	}
}

func (r *Room) stop(names ...string) {
	for _, name := range names {
		if p, ok := r.timers[name]; ok {
			p.timer.Stop()
			delete(r.timers, name)
		}
	}
}

func (r *Room) stopTimers() {
	for name, p := range r.timers {
		p.timer.Stop()
		delete(r.timers, name)
	}
}

// Pending lists the names of scheduled timers. It must only be called
// from inside Sync.
func (r *Room) Pending() []string {
	names := make([]string, 0, len(r.timers))
	for name := range r.timers {
		names = append(names, name)
	}
	return names
}

func (r *Room) update(next bool) Update {
	if next {
		r.seq++
	}
	v := r.game.View()
	u := Update{
		Room:    r.code,
		Phase:   v.Phase,
		Seq:     r.seq,
		Public:  v.Public,
		Private: v.Private,
	}
	if s, ok := r.game.(Seated); ok {
		u.Holders = s.Seats().Holders()
	}
	return u
}

func (r *Room) publish() {
	u := r.update(true)
	if r.pub != nil {
		r.pub.Publish(u)
	}
}
