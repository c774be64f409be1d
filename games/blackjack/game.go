// Package blackjack is the blackjack table engine: betting, dealing,
// insurance, player decisions, the automated dealer and settlement.
package blackjack

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/tabletop/games/cards"
	"github.com/Seednode/tabletop/games/score"
	"github.com/Seednode/tabletop/games/table"
)

type Phase string

const (
	Lobby       Phase = "lobby"
	Betting     Phase = "betting"
	Dealing     Phase = "dealing"
	Insuring    Phase = "insurance"
	PlayerTurns Phase = "player_turns"
	DealerTurn  Phase = "dealer"
	Settlement  Phase = "settlement"
)

const (
	timerBetting = "betting"
	timerTurn    = "turn"
	timerDealer  = "dealer"
	timerSettle  = "settle"
	gracePrefix  = "grace:"
)

var phaseTimers = []string{timerBetting, timerTurn, timerDealer, timerSettle}

func graceTimer(seat int) string {
	return gracePrefix + strconv.Itoa(seat)
}

// Hand is one of a seat's hands in the current round.
type Hand struct {
	Cards       []cards.Card
	Bet         int
	Doubled     bool
	Split       bool
	Surrendered bool
	Acted       bool
	Done        bool
}

func (h *Hand) value() score.Value {
	return score.BlackjackValue(h.Cards)
}

// natural reports an unsplit two-card 21.
func (h *Hand) natural() bool {
	return !h.Split && h.value().Natural
}

// Result is the settled outcome of one hand.
type Result struct {
	Outcome score.Outcome `json:"outcome"`
	Bet     int           `json:"bet"`
	Payout  int           `json:"payout"`
	Total   int           `json:"total"`
}

// Player is the chip ledger of one seat. It lives as long as the seat.
type Player struct {
	Chips      int
	Bet        int
	SittingOut bool
	InRound    bool
	Hands      []*Hand

	Insurance        int
	InsuranceDecided bool

	// Staked is what the seat has put on the table this round and not
	// yet had settled.
	Staked int

	Results []Result
	Net     int
}

func (p *Player) resetRound() {
	p.Bet = 0
	p.SittingOut = false
	p.InRound = false
	p.Hands = nil
	p.Insurance = 0
	p.InsuranceDecided = false
	p.Staked = 0
}

// Game is one blackjack table. It is not safe for concurrent use; a
// table.Room serializes every call.
type Game struct {
	rules   Rules
	shoe    *cards.Shoe
	seats   *table.Seats
	players map[int]*Player

	phase Phase
	epoch uint64
	turn  table.Cursor
	round int

	dealer   []cards.Card
	revealed bool

	house  int
	fault  error
	notice string
}

// New returns a table with a freshly shuffled shoe.
func New(rules Rules, src cards.Source) *Game {
	return NewWithShoe(rules, cards.NewShoe(rules.Decks, src))
}

// NewWithShoe returns a table dealing from shoe.
func NewWithShoe(rules Rules, shoe *cards.Shoe) *Game {
	return &Game{
		rules:   rules,
		shoe:    shoe,
		seats:   table.NewSeats(rules.Seats),
		players: make(map[int]*Player),
		phase:   Lobby,
		turn:    table.Idle,
	}
}

func (g *Game) Phase() Phase {
	return g.phase
}

// House is the house's net result over the table's lifetime.
func (g *Game) House() int {
	return g.house
}

// Player returns the ledger of seat i, or nil.
func (g *Game) Player(i int) *Player {
	return g.players[i]
}

func (g *Game) Seats() *table.Seats {
	return g.seats
}

// NextActor returns the seat expected to act next, table.Dealer while
// the dealer plays, or table.None.
func (g *Game) NextActor() int {
	switch g.phase {
	case PlayerTurns:
		return g.turn.Seat
	case Dealing, DealerTurn:
		return table.Dealer
	}
	return table.None
}

// Apply runs one action against the table.
func (g *Game) Apply(now time.Time, a table.Action) (table.Outcome, error) {
	out, err := g.dispatch(now, a)
	if g.fault != nil {
		fault := g.fault
		g.fault = nil
		out = table.Outcome{Seat: a.Seat}
		out.Stop(g.Abort(fault)...)
		return out, fmt.Errorf("%w: %w", table.ErrInvariant, fault)
	}
	return out, err
}

func (g *Game) dispatch(now time.Time, a table.Action) (table.Outcome, error) {
	switch a.Kind {
	case table.Join:
		return g.join(now, a)
	case table.Reconnect:
		return g.reconnect(a)
	case table.Leave:
		return g.leave(a.Seat)
	case table.Disconnect:
		return g.disconnect(now, a.Seat)
	case table.StartRound:
		return g.startRound(a.Seat)
	case table.Bet:
		return g.bet(a.Seat, a.Amount)
	case table.Insurance:
		return g.insure(a.Seat, a.Buy)
	case table.Hit, table.Stand, table.Double, table.Split, table.Surrender:
		return g.play(a)
	case table.Timeout:
		return g.timeout(a)
	}
	return table.Outcome{}, table.Reject(table.ErrInvalidPayload, "blackjack has no %q action", a.Kind)
}

// Abort cancels the round in progress and refunds everything staked. It
// returns the round timers to cancel.
func (g *Game) Abort(reason error) []string {
	for _, p := range g.players {
		if p.Staked > 0 {
			g.credit(p, p.Staked)
		}
		p.resetRound()
	}
	g.dealer = nil
	g.revealed = false
	g.releaseLeaving()
	g.phase = Lobby
	g.turn = table.Idle
	g.epoch++
	g.notice = "round aborted: " + reason.Error()
	return phaseTimers
}

func (g *Game) timeout(a table.Action) (table.Outcome, error) {
	var out table.Outcome

	if seat, ok := strings.CutPrefix(a.Timer, gracePrefix); ok {
		n, err := strconv.Atoi(seat)
		if err != nil {
			return out, table.ErrStale
		}
		return g.graceExpired(n)
	}

	if a.Epoch != g.epoch {
		return out, table.ErrStale
	}

	switch {
	case a.Timer == timerBetting && g.phase == Betting:
		g.closeBetting(&out)
	case a.Timer == timerDealer && g.phase == Dealing:
		g.afterDeal(&out)
	case a.Timer == timerTurn && g.phase == Insuring:
		for _, i := range g.inRound() {
			g.players[i].InsuranceDecided = true
		}
		g.resolveInsurance(&out)
	case a.Timer == timerTurn && g.phase == PlayerTurns:
		g.standAll(g.turn.Seat)
		g.advance(&out)
	case a.Timer == timerDealer && g.phase == DealerTurn:
		g.dealerStep(&out)
	case a.Timer == timerSettle && g.phase == Settlement:
		g.finishRound(&out)
	default:
		return out, table.ErrStale
	}
	return out, nil
}

// draw deals the next card. An empty shoe records a fault that aborts the
// round once the current action returns, and callers must not use the
// card when ok is false.
func (g *Game) draw() (c cards.Card, ok bool) {
	c, err := g.shoe.Draw()
	if err != nil {
		if g.fault == nil {
			g.fault = err
		}
		return cards.Card{}, false
	}
	return c, true
}

func (g *Game) debit(p *Player, n int) {
	p.Chips -= n
	p.Staked += n
	g.house += n
}

func (g *Game) credit(p *Player, n int) {
	p.Chips += n
	g.house -= n
}

// enter moves to phase and invalidates every timer of the previous one.
func (g *Game) enter(phase Phase, out *table.Outcome) {
	g.phase = phase
	g.epoch++
	out.Stop(phaseTimers...)
}

func (g *Game) after(out *table.Outcome, d time.Duration, name string, origin table.Origin) {
	out.After(d, table.Action{Origin: origin, Timer: name, Epoch: g.epoch, Seat: g.turn.Seat})
}

// inRound returns the seats dealt into the current round, in seat order.
func (g *Game) inRound() []int {
	var out []int
	for _, i := range g.seats.Occupied() {
		if p := g.players[i]; p != nil && p.InRound {
			out = append(out, i)
		}
	}
	return out
}

func (g *Game) seated(i int) (*table.Seat, *Player, error) {
	seat, err := g.seats.Require(i)
	if err != nil {
		return nil, nil, err
	}
	p := g.players[i]
	if p == nil {
		return nil, nil, table.ErrSeatEmpty
	}
	return seat, p, nil
}
