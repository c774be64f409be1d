package blackjack

import (
	"github.com/Seednode/tabletop/games/cards"
	"github.com/Seednode/tabletop/games/table"
)

func (g *Game) play(a table.Action) (table.Outcome, error) {
	out := table.Outcome{Seat: a.Seat}
	if g.phase != PlayerTurns {
		return out, table.Reject(table.ErrWrongPhase, "no player decisions during %s", g.phase)
	}
	if a.Seat != g.turn.Seat {
		return out, table.Reject(table.ErrNotYourTurn, "seat %d is acting", g.turn.Seat)
	}
	p := g.players[g.turn.Seat]
	h := p.Hands[g.turn.Hand]

	switch a.Kind {
	case table.Hit:
		c, ok := g.draw()
		if !ok {
			return out, nil
		}
		h.Cards = append(h.Cards, c)
		h.Acted = true
		if v := h.value(); v.Bust || v.Total == 21 {
			h.Done = true
		}
	case table.Stand:
		h.Acted = true
		h.Done = true
	case table.Double:
		if !canDouble(h) {
			return out, table.Reject(table.ErrIllegalAction, "double needs an untouched two-card hand")
		}
		if p.Chips < h.Bet {
			return out, table.Reject(table.ErrInsufficientChips, "doubling costs %d", h.Bet)
		}
		c, ok := g.draw()
		if !ok {
			return out, nil
		}
		g.debit(p, h.Bet)
		h.Bet *= 2
		h.Doubled = true
		h.Cards = append(h.Cards, c)
		h.Acted = true
		h.Done = true
	case table.Split:
		if !canSplit(p) {
			return out, table.Reject(table.ErrIllegalAction, "split needs a single pair")
		}
		if p.Chips < h.Bet {
			return out, table.Reject(table.ErrInsufficientChips, "splitting costs %d", h.Bet)
		}
		var next [2]cards.Card
		for k := range next {
			c, ok := g.draw()
			if !ok {
				return out, nil
			}
			next[k] = c
		}
		g.debit(p, h.Bet)
		second := &Hand{Cards: h.Cards[1:2:2], Bet: h.Bet, Split: true}
		h.Cards = h.Cards[:1:1]
		h.Split = true
		p.Hands = append(p.Hands, second)
		for k, half := range p.Hands {
			half.Cards = append(half.Cards, next[k])
			if half.value().Total == 21 {
				half.Done = true
			}
		}
	case table.Surrender:
		if !canSurrender(p) {
			return out, table.Reject(table.ErrIllegalAction, "surrender is only allowed as the first decision")
		}
		refund := h.Bet / 2
		p.Staked -= refund
		g.credit(p, refund)
		h.Surrendered = true
		h.Acted = true
		h.Done = true
	}

	if h.Done {
		g.advance(&out)
	}
	return out, nil
}

func canDouble(h *Hand) bool {
	return len(h.Cards) == 2 && !h.Acted && !h.Done
}

func canSplit(p *Player) bool {
	if len(p.Hands) != 1 {
		return false
	}
	h := p.Hands[0]
	return len(h.Cards) == 2 && !h.Acted && !h.Done && h.Cards[0].Rank == h.Cards[1].Rank
}

func canSurrender(p *Player) bool {
	return len(p.Hands) == 1 && !p.Hands[0].Split && canDouble(p.Hands[0])
}

// waiting reports whether seat i still has a hand to play.
func (g *Game) waiting(i int) bool {
	p := g.players[i]
	if p == nil || !p.InRound {
		return false
	}
	for _, h := range p.Hands {
		if !h.Done {
			return true
		}
	}
	return false
}

func (g *Game) toTurns(out *table.Outcome) {
	g.phase = PlayerTurns
	out.Stop(phaseTimers...)
	g.turn = table.Cursor{Seat: table.None}
	g.advance(out)
}

// advance moves the cursor to the next unfinished hand, first within the
// active seat and then seat by seat. With none left the dealer plays.
func (g *Game) advance(out *table.Outcome) {
	if p := g.players[g.turn.Seat]; p != nil && g.phase == PlayerTurns {
		for n, h := range p.Hands {
			if !h.Done {
				g.turnTo(table.Cursor{Seat: g.turn.Seat, Hand: n}, out)
				return
			}
		}
	}

	from := g.turn.Seat
	if from < 0 {
		from = -1
	}
	next := table.NextSeat(g.seats.Occupied(), from, g.waiting)
	if next == table.None {
		g.toDealer(out)
		return
	}
	for n, h := range g.players[next].Hands {
		if !h.Done {
			g.turnTo(table.Cursor{Seat: next, Hand: n}, out)
			return
		}
	}
}

func (g *Game) turnTo(c table.Cursor, out *table.Outcome) {
	g.turn = c
	g.epoch++
	if g.rules.TurnTimeout > 0 {
		g.after(out, g.rules.TurnTimeout, timerTurn, table.FromTimer)
	}
}

// standAll finishes every open hand of seat i.
func (g *Game) standAll(i int) {
	p := g.players[i]
	if p == nil {
		return
	}
	for _, h := range p.Hands {
		h.Done = true
	}
}
