// Package yahtzee is the dice table engine: rotating turns of up to three
// rolls, held dice and a thirteen-box scorecard per player.
package yahtzee

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/tabletop/games/cards"
	"github.com/Seednode/tabletop/games/score"
	"github.com/Seednode/tabletop/games/table"
)

type Phase string

const (
	Lobby    Phase = "lobby"
	Rolling  Phase = "rolling"
	Scoring  Phase = "scoring"
	Finished Phase = "finished"
)

// MaxRolls is the number of rolls in one turn.
const MaxRolls = 3

const (
	timerTurn   = "turn"
	gracePrefix = "grace:"
)

func graceTimer(seat int) string {
	return gracePrefix + strconv.Itoa(seat)
}

type Rules struct {
	Seats       int
	TurnTimeout time.Duration
	GracePeriod time.Duration
}

func DefaultRules() Rules {
	return Rules{
		Seats:       8,
		TurnTimeout: 30 * time.Second,
		GracePeriod: 30 * time.Second,
	}
}

type Player struct {
	Card *Scorecard
}

// Standing is one line of the final results.
type Standing struct {
	Seat  int    `json:"seat"`
	Name  string `json:"name"`
	Total int    `json:"total"`
	Rank  int    `json:"rank"`
}

// Game is one dice table. A table.Room serializes every call.
type Game struct {
	rules   Rules
	src     cards.Source
	seats   *table.Seats
	players map[int]*Player

	phase Phase
	epoch uint64
	round int
	order []int
	turn  int

	dice  []int
	held  []bool
	rolls int

	standings []Standing
}

func New(rules Rules, src cards.Source) *Game {
	return &Game{
		rules:   rules,
		src:     src,
		seats:   table.NewSeats(rules.Seats),
		players: make(map[int]*Player),
		phase:   Lobby,
		turn:    table.None,
	}
}

func (g *Game) Phase() Phase {
	return g.phase
}

func (g *Game) Player(i int) *Player {
	return g.players[i]
}

func (g *Game) Seats() *table.Seats {
	return g.seats
}

// Dice returns the current dice, nil before the first roll of a turn.
func (g *Game) Dice() []int {
	return slices.Clone(g.dice)
}

func (g *Game) Standings() []Standing {
	return g.standings
}

// NextActor returns the seat whose turn it is, or table.None.
func (g *Game) NextActor() int {
	if g.playing() {
		return g.turn
	}
	return table.None
}

func (g *Game) playing() bool {
	return g.phase == Rolling || g.phase == Scoring
}

func (g *Game) Apply(now time.Time, a table.Action) (table.Outcome, error) {
	out := table.Outcome{Seat: a.Seat}
	switch a.Kind {
	case table.Join:
		return g.join(now, a)
	case table.Reconnect:
		return g.reconnect(a)
	case table.Leave:
		if _, err := g.seats.Require(a.Seat); err != nil {
			return out, err
		}
		out.Stop(graceTimer(a.Seat))
		g.vacate(a.Seat, &out)
		return out, nil
	case table.Disconnect:
		return g.disconnect(now, a.Seat)
	case table.StartRound:
		return g.start(a.Seat)
	case table.RollDice:
		return g.roll(a.Seat)
	case table.HoldDie:
		return g.hold(a.Seat, a.Hold)
	case table.ScoreCategory:
		return g.scoreCategory(a.Seat, a.Category)
	case table.Timeout:
		return g.timeout(a)
	}
	return out, table.Reject(table.ErrInvalidPayload, "yahtzee has no %q action", a.Kind)
}

func (g *Game) join(now time.Time, a table.Action) (table.Outcome, error) {
	i, err := g.seats.Join(now, a.Device, a.Name)
	if err != nil {
		return table.Outcome{}, err
	}
	g.players[i] = &Player{Card: NewScorecard()}
	if g.playing() {
		g.order = append(g.order, i)
		slices.Sort(g.order)
	}
	return table.Outcome{Seat: i}, nil
}

func (g *Game) reconnect(a table.Action) (table.Outcome, error) {
	seat := g.seats.ByDevice(a.Device)
	if seat == nil {
		return table.Outcome{}, table.Reject(table.ErrNotFound, "no seat for this device")
	}
	out := table.Outcome{Seat: seat.Index, Quiet: seat.Connected}
	if _, err := g.seats.Reconnect(a.Device); err != nil {
		return table.Outcome{}, err
	}
	out.Stop(graceTimer(seat.Index))
	return out, nil
}

func (g *Game) disconnect(now time.Time, i int) (table.Outcome, error) {
	out := table.Outcome{Seat: i}
	if err := g.seats.Disconnect(now, i); err != nil {
		return out, err
	}
	if g.rules.GracePeriod == 0 {
		g.vacate(i, &out)
		return out, nil
	}
	out.After(g.rules.GracePeriod, table.Action{Origin: table.FromRoom, Timer: graceTimer(i), Seat: i})
	return out, nil
}

// vacate releases seat i outside a game. During a game the seat is marked
// leaving, passes on each of its turns and is released when the game ends.
func (g *Game) vacate(i int, out *table.Outcome) {
	seat := g.seats.Get(i)
	if seat == nil {
		return
	}
	if !g.playing() || !slices.Contains(g.order, i) {
		delete(g.players, i)
		_ = g.seats.Release(i)
		return
	}
	seat.Leaving = true
	if g.turn == i {
		g.autoPass(out)
	}
}

func (g *Game) start(i int) (table.Outcome, error) {
	out := table.Outcome{Seat: i}
	if _, err := g.seats.Require(i); err != nil {
		return out, err
	}
	if g.playing() {
		return out, table.Reject(table.ErrWrongPhase, "a game is already running")
	}

	g.order = g.seats.Occupied()
	for _, s := range g.order {
		g.players[s] = &Player{Card: NewScorecard()}
	}
	g.standings = nil
	g.round++
	g.beginTurn(g.order[0], &out)
	return out, nil
}

func (g *Game) beginTurn(seat int, out *table.Outcome) {
	g.phase = Rolling
	g.turn = seat
	g.dice = nil
	g.held = make([]bool, score.DiceCount)
	g.rolls = 0
	g.epoch++
	out.Stop(timerTurn)

	if s := g.seats.Get(seat); s == nil || s.Leaving {
		g.autoPass(out)
		return
	}
	if g.rules.TurnTimeout > 0 {
		out.After(g.rules.TurnTimeout, table.Action{Origin: table.FromTimer, Timer: timerTurn, Epoch: g.epoch, Seat: seat})
	}
}

// active checks that seat i may act on the current turn.
func (g *Game) active(i int) error {
	if _, err := g.seats.Require(i); err != nil {
		return err
	}
	if !g.playing() {
		return table.Reject(table.ErrWrongPhase, "no game is running")
	}
	if i != g.turn {
		return table.Reject(table.ErrNotYourTurn, "seat %d is playing", g.turn)
	}
	return nil
}

func (g *Game) roll(i int) (table.Outcome, error) {
	out := table.Outcome{Seat: i}
	if err := g.active(i); err != nil {
		return out, err
	}
	if g.phase != Rolling {
		return out, table.Reject(table.ErrWrongPhase, "no rolls left, pick a box")
	}
	g.rollOnce()
	return out, nil
}

func (g *Game) rollOnce() {
	if g.rolls == 0 {
		g.dice = cards.RollDice(g.src, score.DiceCount)
	} else {
		cards.Reroll(g.src, g.dice, g.held)
	}
	g.rolls++
	if g.rolls == MaxRolls || score.IsYahtzee(g.dice) {
		g.phase = Scoring
	}
}

func (g *Game) hold(i int, indexes []int) (table.Outcome, error) {
	out := table.Outcome{Seat: i}
	if err := g.active(i); err != nil {
		return out, err
	}
	if g.phase != Rolling {
		return out, table.Reject(table.ErrWrongPhase, "no rolls left, pick a box")
	}
	if g.rolls == 0 {
		return out, table.Reject(table.ErrIllegalAction, "roll before holding dice")
	}

	held := make([]bool, score.DiceCount)
	for _, n := range indexes {
		if n < 0 || n >= score.DiceCount || held[n] {
			return out, table.Reject(table.ErrInvalidPayload, "bad die index %d", n)
		}
		held[n] = true
	}
	g.held = held
	return out, nil
}

func (g *Game) scoreCategory(i int, name string) (table.Outcome, error) {
	out := table.Outcome{Seat: i}
	if err := g.active(i); err != nil {
		return out, err
	}
	if g.rolls == 0 {
		return out, table.Reject(table.ErrIllegalAction, "roll before scoring")
	}
	c, ok := score.ParseCategory(strings.TrimSpace(name))
	if !ok {
		return out, table.Reject(table.ErrInvalidPayload, "unknown category %q", name)
	}
	if _, err := g.players[i].Card.Fill(g.dice, c); err != nil {
		return out, err
	}
	g.advance(&out)
	return out, nil
}

// autoPass plays the active seat's turn for it: one roll if it has not
// rolled, then the best open box.
func (g *Game) autoPass(out *table.Outcome) {
	if g.rolls == 0 {
		g.rollOnce()
	}
	card := g.players[g.turn].Card
	if c, ok := card.Best(g.dice); ok {
		_, _ = card.Fill(g.dice, c)
	}
	g.advance(out)
}

func (g *Game) advance(out *table.Outcome) {
	open := func(seat int) bool {
		p := g.players[seat]
		return p != nil && !p.Card.Full()
	}
	next := table.NextSeatWrapped(g.order, g.turn, open)
	if next == table.None {
		g.finish(out)
		return
	}
	g.beginTurn(next, out)
}

func (g *Game) finish(out *table.Outcome) {
	g.phase = Finished
	g.turn = table.None
	g.epoch++
	out.Stop(timerTurn)

	g.standings = g.standings[:0]
	for _, i := range g.order {
		seat, p := g.seats.Get(i), g.players[i]
		if seat == nil || p == nil {
			continue
		}
		g.standings = append(g.standings, Standing{Seat: i, Name: seat.Name, Total: p.Card.Total()})
	}
	slices.SortStableFunc(g.standings, func(a, b Standing) int {
		return cmp.Compare(b.Total, a.Total)
	})
	for n := range g.standings {
		g.standings[n].Rank = n + 1
		if n > 0 && g.standings[n].Total == g.standings[n-1].Total {
			g.standings[n].Rank = g.standings[n-1].Rank
		}
	}

	for _, i := range g.seats.Occupied() {
		if g.seats.Get(i).Leaving {
			delete(g.players, i)
			_ = g.seats.Release(i)
		}
	}
	g.order = nil
}

func (g *Game) timeout(a table.Action) (table.Outcome, error) {
	out := table.Outcome{Seat: a.Seat}
	if seat, ok := strings.CutPrefix(a.Timer, gracePrefix); ok {
		n, err := strconv.Atoi(seat)
		if err != nil {
			return out, table.ErrStale
		}
		if s := g.seats.Get(n); s == nil || s.Connected {
			return out, table.ErrStale
		}
		g.vacate(n, &out)
		return out, nil
	}
	if a.Timer != timerTurn || a.Epoch != g.epoch || !g.playing() {
		return out, table.ErrStale
	}
	g.autoPass(&out)
	return out, nil
}
