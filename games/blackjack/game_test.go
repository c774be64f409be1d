package blackjack

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Seednode/tabletop/games/cards"
	"github.com/Seednode/tabletop/games/score"
	"github.com/Seednode/tabletop/games/table"
)

func card(r cards.Rank) cards.Card {
	return cards.Card{Rank: r, Suit: cards.Spades}
}

func stacked(ranks ...cards.Rank) *cards.Shoe {
	return stackedDecks(1, ranks...)
}

// stackedDecks deals ranks in order and rebuilds decks full decks when
// the shoe is reshuffled.
func stackedDecks(decks int, ranks ...cards.Rank) *cards.Shoe {
	seq := make([]cards.Card, len(ranks))
	for i, r := range ranks {
		seq[i] = card(r)
	}
	return cards.NewShoeFrom(seq, decks, rand.New(rand.NewPCG(1, 2)))
}

func testRules() Rules {
	r := DefaultRules()
	r.ReshuffleAt = 0
	return r
}

// harness applies actions the way a room does and keeps the timers an
// engine has scheduled so tests can fire them by name.
type harness struct {
	t       *testing.T
	g       *Game
	now     time.Time
	pending map[string]table.Action
}

func newHarness(t *testing.T, g *Game) *harness {
	t.Helper()
	return &harness{t: t, g: g, now: time.Unix(1700000000, 0), pending: make(map[string]table.Action)}
}

func (h *harness) apply(a table.Action) (table.Outcome, error) {
	out, err := h.g.Apply(h.now, a)
	if err == nil || errors.Is(err, table.ErrInvariant) {
		for _, name := range out.Cancel {
			delete(h.pending, name)
		}
		for _, timer := range out.Schedule {
			h.pending[timer.Name] = timer.Action
		}
	}
	return out, err
}

func (h *harness) must(a table.Action) table.Outcome {
	h.t.Helper()
	out, err := h.apply(a)
	if err != nil {
		h.t.Fatalf("%s by seat %d: %v", a.Kind, a.Seat, err)
	}
	return out
}

func (h *harness) fire(name string) {
	h.t.Helper()
	a, ok := h.pending[name]
	if !ok {
		h.t.Fatalf("no %q timer pending (phase %s)", name, h.g.Phase())
	}
	delete(h.pending, name)
	h.must(a)
}

func (h *harness) join(device string) int {
	h.t.Helper()
	return h.must(table.Action{Kind: table.Join, Device: device, Name: device}).Seat
}

func (h *harness) act(kind table.ActionKind, seat int) {
	h.t.Helper()
	h.must(table.Action{Kind: kind, Seat: seat})
}

func (h *harness) bet(seat, amount int) {
	h.t.Helper()
	h.must(table.Action{Kind: table.Bet, Seat: seat, Amount: amount})
}

func (h *harness) expectPhase(want Phase) {
	h.t.Helper()
	if got := h.g.Phase(); got != want {
		h.t.Fatalf("phase = %s, want %s", got, want)
	}
}

func snapshot(t *testing.T, g *Game) []byte {
	t.Helper()
	b, err := json.Marshal(g.View())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func expectCode(t *testing.T, err error, want *table.Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %s", err, want.Code)
	}
}

func chipTotal(g *Game) int {
	total := 0
	for _, i := range g.Seats().Occupied() {
		total += g.Player(i).Chips
	}
	return total
}

func TestRulesValidate(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("default rules: %v", err)
	}

	broken := []func(*Rules){
		func(r *Rules) { r.MinBet = 0 },
		func(r *Rules) { r.MaxBet = 1 },
		func(r *Rules) { r.Decks = 9 },
		func(r *Rules) { r.ReshuffleAt = 6 * cards.DeckSize },
		func(r *Rules) { r.StartingChips = 1 },
		func(r *Rules) { r.Seats = 0 },
		func(r *Rules) { r.TurnTimeout = -time.Second },
	}
	for i, mutate := range broken {
		r := DefaultRules()
		mutate(&r)
		if r.Validate() == nil {
			t.Errorf("case %d: expected an error", i)
		}
	}
}

func TestSplitAndDouble(t *testing.T) {
	shoe := stacked(
		10, 8, 6, // first pass: seat 0, seat 1, dealer up-card
		9, 8, 10, // second pass: seat 0, seat 1, dealer hole card
		2, 5, // one card to each split half
		7, // the double
		9, // dealer hits 16 and busts
	)
	h := newHarness(t, NewWithShoe(testRules(), shoe))
	a, b := h.join("a"), h.join("b")

	h.act(table.StartRound, a)
	h.expectPhase(Betting)
	h.bet(a, 10)
	h.bet(b, 20)
	h.expectPhase(Dealing)

	h.fire(timerDealer)
	h.expectPhase(PlayerTurns)
	if got := h.g.NextActor(); got != a {
		t.Fatalf("next actor = %d, want %d", got, a)
	}

	h.act(table.Stand, a)
	h.act(table.Split, b)

	hands := h.g.Player(b).Hands
	if len(hands) != 2 {
		t.Fatalf("split produced %d hands", len(hands))
	}
	if v := score.BlackjackValue(hands[0].Cards); v.Total != 10 {
		t.Fatalf("first split hand = %d, want 10", v.Total)
	}
	if v := score.BlackjackValue(hands[1].Cards); v.Total != 13 {
		t.Fatalf("second split hand = %d, want 13", v.Total)
	}

	h.act(table.Double, b)
	first := hands[0]
	if len(first.Cards) != 3 || !first.Doubled || !first.Done || first.Bet != 40 {
		t.Fatalf("doubled hand = %+v", first)
	}
	if h.g.turn != (table.Cursor{Seat: b, Hand: 1}) {
		t.Fatalf("turn = %+v, want second split hand", h.g.turn)
	}

	h.act(table.Stand, b)
	if len(first.Cards) != 3 {
		t.Fatalf("doubled hand drew again: %v", first.Cards)
	}
	h.expectPhase(DealerTurn)

	h.fire(timerDealer) // reveal 16
	h.fire(timerDealer) // draw 9, bust
	h.expectPhase(Settlement)

	if got := h.g.Player(a).Chips; got != 1010 {
		t.Errorf("seat a chips = %d, want 1010", got)
	}
	if got := h.g.Player(b).Chips; got != 1060 {
		t.Errorf("seat b chips = %d, want 1060", got)
	}
	if got := h.g.House(); got != -70 {
		t.Errorf("house = %d, want -70", got)
	}
	if got := h.g.Player(b).Net; got != 60 {
		t.Errorf("seat b net = %d, want 60", got)
	}

	h.fire(timerSettle)
	h.expectPhase(Lobby)
	if res := h.g.Player(b).Results; len(res) != 2 {
		t.Fatalf("results cleared before the next deal: %v", res)
	}
}

func TestInsurancePaysTwoToOne(t *testing.T) {
	h := newHarness(t, NewWithShoe(testRules(), stacked(9, cards.Ace, 8, cards.King)))
	s := h.join("a")

	h.act(table.StartRound, s)
	h.bet(s, 10)
	h.fire(timerDealer)
	h.expectPhase(Insuring)

	view := h.g.View().Public.(TableView)
	if view.Dealer.Hidden != 1 || len(view.Dealer.Cards) != 1 {
		t.Fatalf("hole card visible before reveal: %+v", view.Dealer)
	}

	h.must(table.Action{Kind: table.Insurance, Seat: s, Buy: true})
	if got := h.g.Player(s).Insurance; got != 5 {
		t.Fatalf("insurance = %d, want 5", got)
	}
	h.expectPhase(DealerTurn)

	h.fire(timerDealer)
	h.expectPhase(Settlement)

	p := h.g.Player(s)
	if p.Chips != 1000 || p.Net != 0 {
		t.Fatalf("chips = %d net = %d, want the insurance to cover the lost bet", p.Chips, p.Net)
	}
	if p.Results[0].Outcome != score.Lose {
		t.Fatalf("outcome = %s, want lose", p.Results[0].Outcome)
	}
	if h.g.House() != 0 {
		t.Fatalf("house = %d", h.g.House())
	}
}

func TestBettingTimeoutSitsOutNonBettors(t *testing.T) {
	g := New(testRules(), rand.New(rand.NewPCG(7, 7)))
	h := newHarness(t, g)
	a, b := h.join("a"), h.join("b")

	h.act(table.StartRound, a)
	h.bet(a, 25)
	h.expectPhase(Betting)

	h.fire(timerBetting)
	h.expectPhase(Dealing)

	if !g.Player(b).SittingOut || g.Player(b).InRound || len(g.Player(b).Hands) != 0 {
		t.Fatalf("seat b = %+v, want sitting out", g.Player(b))
	}
	if !g.Player(a).InRound || len(g.Player(a).Hands[0].Cards) != 2 {
		t.Fatalf("seat a was not dealt in: %+v", g.Player(a))
	}
}

func TestBettingTimeoutWithoutBetsReturnsToLobby(t *testing.T) {
	h := newHarness(t, New(testRules(), rand.New(rand.NewPCG(1, 1))))
	h.act(table.StartRound, h.join("a"))
	h.fire(timerBetting)
	h.expectPhase(Lobby)
}

func TestActionFromInactiveSeatLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, NewWithShoe(testRules(), stacked(10, 9, 6, 7, 5, 10, 4, 4, 4)))
	a, b := h.join("a"), h.join("b")
	h.act(table.StartRound, a)
	h.bet(a, 10)
	h.bet(b, 10)
	h.fire(timerDealer)
	h.expectPhase(PlayerTurns)

	before := snapshot(t, h.g)
	for _, kind := range []table.ActionKind{table.Hit, table.Stand, table.Double, table.Split, table.Surrender} {
		_, err := h.apply(table.Action{Kind: kind, Seat: b})
		e, ok := table.AsError(err)
		if !ok || e.Kind != table.IllegalAction {
			t.Fatalf("%s from seat b: err = %v, want an illegal action", kind, err)
		}
	}
	if after := snapshot(t, h.g); !bytes.Equal(before, after) {
		t.Fatalf("state changed after rejections:\n%s\n%s", before, after)
	}
}

func TestBetValidation(t *testing.T) {
	h := newHarness(t, New(testRules(), rand.New(rand.NewPCG(1, 1))))
	a, b := h.join("a"), h.join("b")

	_, err := h.apply(table.Action{Kind: table.Bet, Seat: a, Amount: 10})
	expectCode(t, err, table.ErrWrongPhase)

	h.act(table.StartRound, a)
	_, err = h.apply(table.Action{Kind: table.StartRound, Seat: a})
	expectCode(t, err, table.ErrWrongPhase)

	_, err = h.apply(table.Action{Kind: table.Bet, Seat: a, Amount: 4})
	expectCode(t, err, table.ErrInvalidPayload)
	_, err = h.apply(table.Action{Kind: table.Bet, Seat: a, Amount: 501})
	expectCode(t, err, table.ErrInvalidPayload)
	_, err = h.apply(table.Action{Kind: table.Bet, Seat: 5, Amount: 10})
	expectCode(t, err, table.ErrSeatEmpty)

	h.g.Player(a).Chips = 20
	_, err = h.apply(table.Action{Kind: table.Bet, Seat: a, Amount: 30})
	expectCode(t, err, table.ErrInsufficientChips)

	h.bet(a, 15)
	h.bet(a, 20)
	if p := h.g.Player(a); p.Bet != 20 || p.Chips != 0 {
		t.Fatalf("replacing a bet: bet = %d chips = %d", p.Bet, p.Chips)
	}
	h.expectPhase(Betting)
	h.bet(b, 10)
	h.expectPhase(Dealing)
}

func TestSurrenderRefundsHalf(t *testing.T) {
	h := newHarness(t, NewWithShoe(testRules(), stacked(10, 9, 6, 7)))
	s := h.join("a")
	h.act(table.StartRound, s)
	h.bet(s, 15)
	h.fire(timerDealer)

	h.act(table.Surrender, s)
	h.expectPhase(DealerTurn)
	h.fire(timerDealer)
	h.expectPhase(Settlement)

	p := h.g.Player(s)
	if p.Chips != 992 || p.Net != -8 {
		t.Fatalf("chips = %d net = %d, want 992 and -8", p.Chips, p.Net)
	}
	if p.Results[0].Outcome != score.Surrender {
		t.Fatalf("outcome = %s", p.Results[0].Outcome)
	}
}

func TestSurrenderOnlyAsFirstDecision(t *testing.T) {
	h := newHarness(t, NewWithShoe(testRules(), stacked(5, 9, 4, 7, 2)))
	s := h.join("a")
	h.act(table.StartRound, s)
	h.bet(s, 10)
	h.fire(timerDealer)

	h.act(table.Hit, s)
	_, err := h.apply(table.Action{Kind: table.Surrender, Seat: s})
	expectCode(t, err, table.ErrIllegalAction)
	_, err = h.apply(table.Action{Kind: table.Double, Seat: s})
	expectCode(t, err, table.ErrIllegalAction)
	_, err = h.apply(table.Action{Kind: table.Split, Seat: s})
	expectCode(t, err, table.ErrIllegalAction)
}

func TestNaturalPaysThreeToTwo(t *testing.T) {
	h := newHarness(t, NewWithShoe(testRules(), stacked(cards.Ace, 9, cards.King, 8)))
	s := h.join("a")
	h.act(table.StartRound, s)
	h.bet(s, 15)

	h.fire(timerDealer)
	h.expectPhase(DealerTurn)
	h.fire(timerDealer)
	h.expectPhase(Settlement)

	p := h.g.Player(s)
	if p.Results[0].Outcome != score.Natural || p.Results[0].Payout != 15+22 {
		t.Fatalf("result = %+v, want a natural paying 37", p.Results[0])
	}
	if p.Chips != 1022 {
		t.Fatalf("chips = %d, want 1022", p.Chips)
	}
}

func TestDealerPeeksOnTenValueUpCard(t *testing.T) {
	h := newHarness(t, NewWithShoe(testRules(), stacked(10, cards.Queen, 9, cards.Ace)))
	s := h.join("a")
	h.act(table.StartRound, s)
	h.bet(s, 10)

	h.fire(timerDealer)
	h.expectPhase(DealerTurn)
	h.fire(timerDealer)
	h.expectPhase(Settlement)
	if got := h.g.Player(s).Chips; got != 990 {
		t.Fatalf("chips = %d, want 990", got)
	}
}

func TestHitToTwentyOneStandsAutomatically(t *testing.T) {
	h := newHarness(t, NewWithShoe(testRules(), stacked(5, 9, 6, 7, 10, 8)))
	s := h.join("a")
	h.act(table.StartRound, s)
	h.bet(s, 10)
	h.fire(timerDealer)

	h.act(table.Hit, s)
	if !h.g.Player(s).Hands[0].Done {
		t.Fatal("hand at 21 is still open")
	}
	h.expectPhase(DealerTurn)
}

func TestTurnTimeoutStandsActiveSeat(t *testing.T) {
	h := newHarness(t, NewWithShoe(testRules(), stacked(10, 10, 6, 7, 9, 10, 5)))
	a, b := h.join("a"), h.join("b")
	h.act(table.StartRound, a)
	h.bet(a, 10)
	h.bet(b, 10)
	h.fire(timerDealer)

	stale := h.pending[timerTurn]
	h.fire(timerTurn)
	if h.g.NextActor() != b {
		t.Fatalf("next actor = %d, want %d", h.g.NextActor(), b)
	}
	if !h.g.Player(a).Hands[0].Done {
		t.Fatal("timed out hand still open")
	}

	if _, err := h.apply(stale); !errors.Is(err, table.ErrStale) {
		t.Fatalf("replayed timer: err = %v, want stale", err)
	}
}

func TestDisconnectGrace(t *testing.T) {
	h := newHarness(t, NewWithShoe(testRules(), stacked(10, 10, 6, 7, 9, 10, 5)))
	a, b := h.join("a"), h.join("b")

	h.must(table.Action{Kind: table.Disconnect, Origin: table.FromRoom, Seat: b})
	out := h.must(table.Action{Kind: table.Reconnect, Device: "b"})
	if out.Seat != b {
		t.Fatalf("reconnect seat = %d", out.Seat)
	}
	if _, ok := h.pending[graceTimer(b)]; ok {
		t.Fatal("reconnect left the grace timer running")
	}
	if out := h.must(table.Action{Kind: table.Reconnect, Device: "b"}); !out.Quiet {
		t.Fatal("reconnecting a connected seat should change nothing")
	}

	h.act(table.StartRound, a)
	h.bet(a, 10)
	h.bet(b, 10)
	h.fire(timerDealer)
	h.expectPhase(PlayerTurns)

	// Seat a loses its connection on its own turn.
	h.must(table.Action{Kind: table.Disconnect, Origin: table.FromRoom, Seat: a})
	h.fire(graceTimer(a))
	if !h.g.Seats().Get(a).Leaving {
		t.Fatal("expired seat in a round should be leaving")
	}
	if _, err := h.apply(table.Action{Kind: table.Reconnect, Device: "a"}); !errors.Is(err, table.ErrNotFound) {
		t.Fatalf("reconnect to a leaving seat: %v", err)
	}
	if h.g.NextActor() != b {
		t.Fatalf("turn did not pass to seat b: %d", h.g.NextActor())
	}

	h.act(table.Stand, b)
	h.fire(timerDealer)
	for h.g.Phase() == DealerTurn {
		h.fire(timerDealer)
	}
	h.fire(timerSettle)
	if h.g.Seats().Get(a) != nil {
		t.Fatal("leaving seat was not released at round end")
	}
	if _, err := h.apply(table.Action{Kind: table.Reconnect, Device: "a"}); !errors.Is(err, table.ErrNotFound) {
		t.Fatalf("reconnect to a released seat: %v", err)
	}
	if h.g.Seats().Get(b) == nil {
		t.Fatal("seat b lost its index")
	}
}

func TestLeaveDuringBettingRefundsAndDeals(t *testing.T) {
	h := newHarness(t, New(testRules(), rand.New(rand.NewPCG(3, 3))))
	a, b := h.join("a"), h.join("b")
	h.act(table.StartRound, a)
	h.bet(b, 50)
	h.act(table.Leave, b)
	if h.g.Seats().Get(b) != nil || h.g.House() != 0 {
		t.Fatalf("leave during betting: seat %v house %d", h.g.Seats().Get(b), h.g.House())
	}
	h.expectPhase(Betting)
	h.bet(a, 10)
	h.expectPhase(Dealing)
}

func TestExhaustedShoeAbortsRound(t *testing.T) {
	h := newHarness(t, NewWithShoe(testRules(), stacked(10, 9, 8)))
	s := h.join("a")
	h.act(table.StartRound, s)

	_, err := h.apply(table.Action{Kind: table.Bet, Seat: s, Amount: 50})
	if !errors.Is(err, table.ErrInvariant) || !errors.Is(err, cards.ErrExhausted) {
		t.Fatalf("err = %v, want an invariant violation", err)
	}
	h.expectPhase(Lobby)
	if p := h.g.Player(s); p.Chips != 1000 || p.InRound {
		t.Fatalf("bet not refunded: %+v", p)
	}
	if h.g.House() != 0 || len(h.pending) != 0 {
		t.Fatalf("house %d pending %v", h.g.House(), h.pending)
	}
	if v := h.g.View().Public.(TableView); v.Notice == "" {
		t.Fatal("abort left no notice")
	}
}

func TestExhaustedShoeMidHandDealsNoBlankCard(t *testing.T) {
	h := newHarness(t, NewWithShoe(testRules(), stacked(10, 9, 6, 7)))
	s := h.join("a")
	h.act(table.StartRound, s)
	h.bet(s, 50)
	h.fire(timerDealer)
	h.expectPhase(PlayerTurns)

	hand := h.g.Player(s).Hands[0]
	_, err := h.apply(table.Action{Kind: table.Double, Seat: s})
	if !errors.Is(err, table.ErrInvariant) || !errors.Is(err, cards.ErrExhausted) {
		t.Fatalf("err = %v, want an invariant violation", err)
	}
	if len(hand.Cards) != 2 || hand.Doubled {
		t.Fatalf("double on an empty shoe changed the hand: %+v", hand)
	}
	h.expectPhase(Lobby)
	if p := h.g.Player(s); p.Chips != 1000 || p.Staked != 0 {
		t.Fatalf("stake not refunded: %+v", p)
	}

	c, ok := h.g.draw()
	if ok || c != (cards.Card{}) || h.g.fault == nil {
		t.Fatalf("draw from an empty shoe = %v, %v", c, ok)
	}
	h.g.fault = nil
}

func TestReshuffleAtRoundStart(t *testing.T) {
	rules := testRules()
	rules.Decks = 2
	rules.ReshuffleAt = 20
	h := newHarness(t, NewWithShoe(rules, stackedDecks(rules.Decks, 10, 9, 8, 7, 6)))
	s := h.join("a")
	h.act(table.StartRound, s)
	h.bet(s, 10)
	if got := h.g.shoe.Remaining(); got != rules.Decks*cards.DeckSize-4 {
		t.Fatalf("remaining = %d, want a fresh shoe minus the deal", got)
	}
}

func TestLegalActions(t *testing.T) {
	h := newHarness(t, NewWithShoe(testRules(), stacked(8, 9, 8, 7)))
	s := h.join("a")

	priv := h.g.View().Private[s].(PrivateView)
	if len(priv.Actions) != 2 || priv.Actions[1] != table.StartRound {
		t.Fatalf("lobby actions = %v", priv.Actions)
	}

	h.act(table.StartRound, s)
	h.bet(s, 10)
	h.fire(timerDealer)

	got := h.g.Legal(s)
	want := []table.ActionKind{table.Leave, table.Hit, table.Stand, table.Double, table.Split, table.Surrender}
	if len(got) != len(want) {
		t.Fatalf("legal = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("legal = %v, want %v", got, want)
		}
	}
}

// TestChipConservation plays many random rounds and checks that chips only
// move between seats and the house, and that every natural pays exactly
// floor(bet×1.5) on top of the stake.
func TestChipConservation(t *testing.T) {
	rules := testRules()
	rules.ReshuffleAt = cards.DeckSize
	rules.MaxBet = 37
	rules.StartingChips = 5000
	g := New(rules, rand.New(rand.NewPCG(42, 24)))
	h := newHarness(t, g)
	bot := rand.New(rand.NewPCG(9, 9))

	for _, d := range []string{"a", "b", "c"} {
		h.join(d)
	}
	start := chipTotal(g)

	rounds, naturals := 0, 0
	for step := 0; rounds < 300 && step < 100000; step++ {
		switch g.Phase() {
		case Lobby:
			h.act(table.StartRound, g.Seats().Occupied()[0])
		case Betting:
			placed := false
			for _, i := range g.Seats().Occupied() {
				if g.Phase() != Betting || g.Player(i).Bet > 0 || !g.canBet(i) {
					continue
				}
				amount := rules.MinBet + bot.IntN(rules.MaxBet-rules.MinBet+1)
				amount = min(amount, g.Player(i).Chips)
				h.bet(i, amount)
				placed = true
			}
			if !placed && g.Phase() == Betting {
				h.fire(timerBetting)
			}
		case Insuring:
			for _, i := range g.inRound() {
				if g.Phase() == Insuring && !g.Player(i).InsuranceDecided {
					h.must(table.Action{Kind: table.Insurance, Seat: i, Buy: bot.IntN(2) == 0})
				}
			}
		case PlayerTurns:
			seat := g.NextActor()
			acts := g.Legal(seat)[1:]
			h.act(acts[bot.IntN(len(acts))], seat)
		case Settlement:
			for _, i := range g.inRound() {
				for _, r := range g.Player(i).Results {
					if r.Outcome == score.Natural {
						naturals++
						if r.Payout != r.Bet+r.Bet*3/2 {
							t.Fatalf("natural on %d paid %d", r.Bet, r.Payout)
						}
					}
				}
			}
			h.fire(timerSettle)
			rounds++
		default:
			h.fire(timerDealer)
		}

		if got := chipTotal(g) + g.House(); got != start {
			t.Fatalf("round %d, phase %s: chips + house = %d, want %d", rounds, g.Phase(), got, start)
		}
	}

	if rounds < 300 {
		t.Fatalf("only %d rounds completed", rounds)
	}
	if naturals == 0 {
		t.Fatal("no naturals dealt; the run did not exercise 3:2 payouts")
	}
}
