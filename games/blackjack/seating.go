package blackjack

import (
	"time"

	"github.com/Seednode/tabletop/games/table"
)

func (g *Game) join(now time.Time, a table.Action) (table.Outcome, error) {
	i, err := g.seats.Join(now, a.Device, a.Name)
	if err != nil {
		return table.Outcome{}, err
	}
	g.players[i] = &Player{Chips: g.rules.StartingChips}
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

func (g *Game) graceExpired(i int) (table.Outcome, error) {
	out := table.Outcome{Seat: i}
	seat := g.seats.Get(i)
	if seat == nil || seat.Connected {
		return out, table.ErrStale
	}
	g.vacate(i, &out)
	return out, nil
}

func (g *Game) leave(i int) (table.Outcome, error) {
	out := table.Outcome{Seat: i}
	if _, _, err := g.seated(i); err != nil {
		return out, err
	}
	out.Stop(graceTimer(i))
	g.vacate(i, &out)
	return out, nil
}

// vacate frees seat i now, or marks it leaving when it holds cards in the
// round in progress. A leaving seat stands on every hand and is released
// once the round ends.
func (g *Game) vacate(i int, out *table.Outcome) {
	seat, p, err := g.seated(i)
	if err != nil {
		return
	}

	if !p.InRound {
		if p.Bet > 0 {
			g.credit(p, p.Bet)
		}
		delete(g.players, i)
		_ = g.seats.Release(i)

		switch {
		case g.phase == Betting && g.seats.Count() == 0:
			g.toLobby(out)
		case g.phase == Betting && g.allBet():
			g.deal(out)
		}
		return
	}

	seat.Leaving = true
	g.standAll(i)

	switch g.phase {
	case Insuring:
		p.InsuranceDecided = true
		if g.insuranceDecided() {
			g.resolveInsurance(out)
		}
	case PlayerTurns:
		if g.turn.Seat == i {
			g.advance(out)
		}
	}
}

// releaseLeaving frees every seat marked leaving and any seat that lost
// its ledger.
func (g *Game) releaseLeaving() {
	for _, i := range g.seats.Occupied() {
		if g.seats.Get(i).Leaving || g.players[i] == nil {
			delete(g.players, i)
			_ = g.seats.Release(i)
		}
	}
}
