package table

import (
	"slices"
	"time"
)

// ActionKind names an inbound request.
type ActionKind string

const (
	Join          ActionKind = "join"
	Leave         ActionKind = "leave"
	Reconnect     ActionKind = "reconnect"
	StartRound    ActionKind = "startRound"
	Bet           ActionKind = "bet"
	Hit           ActionKind = "hit"
	Stand         ActionKind = "stand"
	Double        ActionKind = "double"
	Split         ActionKind = "split"
	Surrender     ActionKind = "surrender"
	Insurance     ActionKind = "insurance"
	RollDice      ActionKind = "rollDice"
	HoldDie       ActionKind = "holdDie"
	ScoreCategory ActionKind = "scoreCategory"

	// Internal kinds, only ever produced by the room itself.
	Disconnect ActionKind = "disconnect"
	Timeout    ActionKind = "timeout"
)

var playerKinds = []ActionKind{
	Join, Leave, Reconnect, StartRound, Bet, Hit, Stand, Double, Split,
	Surrender, Insurance, RollDice, HoldDie, ScoreCategory,
}

// PlayerKind reports whether clients may submit k.
func PlayerKind(k ActionKind) bool {
	return slices.Contains(playerKinds, k)
}

// Origin tags who issued an action.
type Origin uint8

const (
	FromPlayer Origin = iota
	FromDealer
	FromTimer
	FromRoom
)

// Action is one request against a room.
type Action struct {
	Kind   ActionKind
	Origin Origin
	Seat   int
	Device string
	Name   string

	Amount   int
	Buy      bool
	Hold     []int
	Category string

	// Timer and Epoch identify deferred actions. An engine rejects a
	// deferred action whose epoch no longer matches with ErrStale.
	Timer   string
	Epoch   uint64
	timerID uint64
}

// Timer is a deferred action scheduled by an engine.
type Timer struct {
	Name   string
	After  time.Duration
	Action Action
}

// Outcome is what an accepted action produced beyond the new state.
type Outcome struct {
	Seat     int
	Schedule []Timer
	Cancel   []string

	// Quiet suppresses the broadcast when nothing visible changed.
	Quiet bool
}

// After schedules a as a deferred action. a.Timer names the timer; a
// timer scheduled under an existing name replaces it.
func (o *Outcome) After(d time.Duration, a Action) {
	a.Kind = Timeout
	o.Schedule = append(o.Schedule, Timer{Name: a.Timer, After: d, Action: a})
}

// Stop cancels the named timers, including any scheduled earlier in the
// same outcome.
func (o *Outcome) Stop(names ...string) {
	o.Schedule = slices.DeleteFunc(o.Schedule, func(t Timer) bool {
		return slices.Contains(names, t.Name)
	})
	o.Cancel = append(o.Cancel, names...)
}

// View is the state published after every accepted action.
type View struct {
	Phase   string
	Public  any
	Private map[int]any
}

// Game is a per-room state machine. Rooms call it from a single goroutine.
type Game interface {
	Apply(now time.Time, a Action) (Outcome, error)
	View() View
}
