package yahtzee

import (
	"github.com/Seednode/tabletop/games/score"
	"github.com/Seednode/tabletop/games/table"
)

type TableView struct {
	Phase     Phase      `json:"phase"`
	Round     int        `json:"round"`
	Turn      int        `json:"turn"`
	Dice      []int      `json:"dice"`
	Held      []bool     `json:"held"`
	Rolls     int        `json:"rolls"`
	RollsLeft int        `json:"rollsLeft"`
	Capacity  int        `json:"capacity"`
	Seats     []SeatView `json:"seats"`
	Standings []Standing `json:"standings,omitempty"`
}

type SeatView struct {
	table.Seat
	Card       *Scorecard `json:"card"`
	UpperTotal int        `json:"upperTotal"`
	UpperBonus int        `json:"upperBonus"`
	Total      int        `json:"total"`
	Playing    bool       `json:"playing"`
}

type PrivateView struct {
	Seat    int                    `json:"seat"`
	Actions []table.ActionKind     `json:"actions"`
	Options map[score.Category]int `json:"options,omitempty"`
}

func (g *Game) View() table.View {
	pub := TableView{
		Phase:    g.phase,
		Round:    g.round,
		Turn:     g.NextActor(),
		Dice:     g.Dice(),
		Held:     append([]bool(nil), g.held...),
		Rolls:    g.rolls,
		Capacity: g.seats.Capacity(),
		Seats:    []SeatView{},
	}
	if g.playing() {
		pub.RollsLeft = MaxRolls - g.rolls
		if g.phase == Scoring {
			pub.RollsLeft = 0
		}
	}
	if len(g.standings) > 0 {
		pub.Standings = g.standings
	}

	playing := make(map[int]bool, len(g.order))
	for _, i := range g.order {
		playing[i] = true
	}

	private := make(map[int]any)
	for _, i := range g.seats.Occupied() {
		p := g.players[i]
		if p == nil {
			continue
		}
		pub.Seats = append(pub.Seats, SeatView{
			Seat:       *g.seats.Get(i),
			Card:       p.Card,
			UpperTotal: p.Card.UpperTotal(),
			UpperBonus: p.Card.UpperBonus(),
			Total:      p.Card.Total(),
			Playing:    playing[i],
		})

		priv := PrivateView{Seat: i, Actions: g.Legal(i)}
		if g.playing() && g.turn == i && g.rolls > 0 {
			priv.Options = p.Card.Options(g.dice)
		}
		private[i] = priv
	}

	return table.View{Phase: string(g.phase), Public: pub, Private: private}
}

// Legal lists the actions seat i could submit right now.
func (g *Game) Legal(i int) []table.ActionKind {
	if g.seats.Get(i) == nil {
		return nil
	}
	acts := []table.ActionKind{table.Leave}
	switch {
	case !g.playing():
		acts = append(acts, table.StartRound)
	case g.turn != i:
	case g.phase == Rolling && g.rolls == 0:
		acts = append(acts, table.RollDice)
	case g.phase == Rolling:
		acts = append(acts, table.RollDice, table.HoldDie, table.ScoreCategory)
	default:
		acts = append(acts, table.ScoreCategory)
	}
	return acts
}
