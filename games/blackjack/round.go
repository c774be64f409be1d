package blackjack

import (
	"github.com/Seednode/tabletop/games/cards"
	"github.com/Seednode/tabletop/games/score"
	"github.com/Seednode/tabletop/games/table"
)

func (g *Game) startRound(i int) (table.Outcome, error) {
	out := table.Outcome{Seat: i}
	if _, _, err := g.seated(i); err != nil {
		return out, err
	}
	if g.phase != Lobby {
		return out, table.Reject(table.ErrWrongPhase, "a round is already running")
	}
	g.toBetting(&out)
	return out, nil
}

func (g *Game) toLobby(out *table.Outcome) {
	g.enter(Lobby, out)
	g.turn = table.Idle
}

func (g *Game) toBetting(out *table.Outcome) {
	for _, p := range g.players {
		p.resetRound()
	}
	g.dealer = nil
	g.revealed = false
	g.notice = ""
	g.round++
	g.enter(Betting, out)
	g.turn = table.Idle
	if g.rules.BettingTimeout > 0 {
		g.after(out, g.rules.BettingTimeout, timerBetting, table.FromTimer)
	}
}

func (g *Game) bet(i, amount int) (table.Outcome, error) {
	out := table.Outcome{Seat: i}
	seat, p, err := g.seated(i)
	if err != nil {
		return out, err
	}
	if g.phase != Betting {
		return out, table.Reject(table.ErrWrongPhase, "bets are only taken while betting is open")
	}
	if seat.Leaving {
		return out, table.Reject(table.ErrIllegalAction, "seat is leaving the table")
	}
	if amount < g.rules.MinBet || amount > g.rules.MaxBet {
		return out, table.Reject(table.ErrInvalidPayload, "bet must be between %d and %d", g.rules.MinBet, g.rules.MaxBet)
	}
	if amount > p.Chips+p.Bet {
		return out, table.Reject(table.ErrInsufficientChips, "bet %d exceeds %d chips", amount, p.Chips+p.Bet)
	}

	if p.Bet > 0 {
		p.Staked -= p.Bet
		g.credit(p, p.Bet)
	}
	g.debit(p, amount)
	p.Bet = amount

	if g.allBet() {
		g.deal(&out)
	}
	return out, nil
}

// canBet reports whether seat i is expected to place a bet this round.
func (g *Game) canBet(i int) bool {
	seat := g.seats.Get(i)
	p := g.players[i]
	return seat != nil && p != nil && !seat.Leaving && !p.SittingOut && p.Chips+p.Bet >= g.rules.MinBet
}

func (g *Game) allBet() bool {
	placed := false
	for _, i := range g.seats.Occupied() {
		p := g.players[i]
		if p != nil && p.Bet > 0 {
			placed = true
			continue
		}
		if g.canBet(i) {
			return false
		}
	}
	return placed
}

func (g *Game) closeBetting(out *table.Outcome) {
	placed := false
	for _, i := range g.seats.Occupied() {
		p := g.players[i]
		if p == nil {
			continue
		}
		if p.Bet == 0 {
			p.SittingOut = true
			continue
		}
		placed = true
	}
	if !placed {
		g.toLobby(out)
		return
	}
	g.deal(out)
}

func (g *Game) deal(out *table.Outcome) {
	g.enter(Dealing, out)
	g.turn = table.Cursor{Seat: table.Dealer}

	if g.shoe.NeedsReshuffle(g.rules.ReshuffleAt) {
		g.shoe.Reshuffle()
	}

	var order []int
	for _, i := range g.seats.Occupied() {
		p := g.players[i]
		if p == nil || p.Bet == 0 {
			continue
		}
		p.InRound = true
		p.Results = nil
		p.Net = 0
		p.Hands = []*Hand{{Bet: p.Bet}}
		order = append(order, i)
	}

	g.dealer = nil
	g.revealed = false
	for range 2 {
		for _, i := range order {
			c, ok := g.draw()
			if !ok {
				return
			}
			h := g.players[i].Hands[0]
			h.Cards = append(h.Cards, c)
		}
		c, ok := g.draw()
		if !ok {
			return
		}
		g.dealer = append(g.dealer, c)
	}
	for _, i := range order {
		if h := g.players[i].Hands[0]; h.natural() {
			h.Done = true
		}
	}

	g.after(out, g.rules.DealerDelay, timerDealer, table.FromDealer)
}

func (g *Game) dealerNatural() bool {
	return score.BlackjackValue(g.dealer).Natural
}

func (g *Game) afterDeal(out *table.Outcome) {
	up := g.dealer[0]
	switch {
	case up.Rank == cards.Ace:
		g.offerInsurance(out)
	case score.TenValue(up) && g.dealerNatural():
		g.toDealer(out)
	default:
		g.toTurns(out)
	}
}

func (g *Game) offerInsurance(out *table.Outcome) {
	g.enter(Insuring, out)
	g.turn = table.Idle
	for _, i := range g.inRound() {
		p := g.players[i]
		cost := p.Hands[0].Bet / 2
		p.InsuranceDecided = cost == 0 || cost > p.Chips || g.seats.Get(i).Leaving
	}
	if g.insuranceDecided() {
		g.resolveInsurance(out)
		return
	}
	if g.rules.TurnTimeout > 0 {
		g.after(out, g.rules.TurnTimeout, timerTurn, table.FromTimer)
	}
}

func (g *Game) insure(i int, buy bool) (table.Outcome, error) {
	out := table.Outcome{Seat: i}
	_, p, err := g.seated(i)
	if err != nil {
		return out, err
	}
	if g.phase != Insuring {
		return out, table.Reject(table.ErrWrongPhase, "insurance is not on offer")
	}
	if !p.InRound || p.InsuranceDecided {
		return out, table.Reject(table.ErrIllegalAction, "seat has no insurance decision to make")
	}
	if buy {
		cost := p.Hands[0].Bet / 2
		if cost > p.Chips {
			return out, table.Reject(table.ErrInsufficientChips, "insurance costs %d", cost)
		}
		g.debit(p, cost)
		p.Insurance = cost
	}
	p.InsuranceDecided = true

	if g.insuranceDecided() {
		g.resolveInsurance(&out)
	}
	return out, nil
}

func (g *Game) insuranceDecided() bool {
	for _, i := range g.inRound() {
		if !g.players[i].InsuranceDecided {
			return false
		}
	}
	return true
}

func (g *Game) resolveInsurance(out *table.Outcome) {
	if g.dealerNatural() {
		g.toDealer(out)
		return
	}
	g.toTurns(out)
}

func (g *Game) toDealer(out *table.Outcome) {
	g.enter(DealerTurn, out)
	g.turn = table.Cursor{Seat: table.Dealer}
	g.after(out, g.rules.DealerDelay, timerDealer, table.FromDealer)
}

// liveHands reports whether any hand still depends on the dealer's total.
func (g *Game) liveHands() bool {
	for _, i := range g.inRound() {
		for _, h := range g.players[i].Hands {
			if !h.Surrendered && !h.value().Bust && !h.natural() {
				return true
			}
		}
	}
	return false
}

// dealerStep makes one visible dealer move: the reveal, then one draw at a
// time until the dealer stands.
func (g *Game) dealerStep(out *table.Outcome) {
	switch {
	case !g.revealed:
		g.revealed = true
	case g.liveHands() && !g.dealerNatural() &&
		score.DealerShouldHit(score.BlackjackValue(g.dealer), g.rules.HitSoft17):
		c, ok := g.draw()
		if !ok {
			return
		}
		g.dealer = append(g.dealer, c)
	}

	v := score.BlackjackValue(g.dealer)
	if g.liveHands() && !v.Natural && score.DealerShouldHit(v, g.rules.HitSoft17) {
		g.epoch++
		g.after(out, g.rules.DealerDelay, timerDealer, table.FromDealer)
		return
	}
	g.settle(out)
}

func (g *Game) settle(out *table.Outcome) {
	g.enter(Settlement, out)
	g.turn = table.Idle
	g.revealed = true

	dealer := score.BlackjackValue(g.dealer)
	for _, i := range g.inRound() {
		p := g.players[i]
		before := p.Chips
		staked := p.Staked

		for _, h := range p.Hands {
			v := h.value()
			r := Result{Bet: h.Bet, Total: v.Total}
			if h.Surrendered {
				r.Outcome = score.Surrender
				r.Payout = h.Bet / 2
			} else {
				r.Outcome = score.Compare(v, h.natural(), dealer)
				r.Payout = score.Payout(r.Outcome, h.Bet)
				g.credit(p, r.Payout)
			}
			p.Results = append(p.Results, r)
		}
		if p.Insurance > 0 && dealer.Natural {
			g.credit(p, 3*p.Insurance)
		}

		p.Net = p.Chips - before - staked
		p.Staked = 0
	}

	g.after(out, g.rules.DealerDelay, timerSettle, table.FromDealer)
}

func (g *Game) finishRound(out *table.Outcome) {
	g.releaseLeaving()
	for _, p := range g.players {
		results, net := p.Results, p.Net
		p.resetRound()
		p.Results, p.Net = results, net
	}
	g.dealer = nil
	g.revealed = false

	if g.rules.AutoRestart && g.seats.Count() > 0 {
		g.toBetting(out)
		return
	}
	g.toLobby(out)
}
