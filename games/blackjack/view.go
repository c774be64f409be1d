package blackjack

import (
	"github.com/Seednode/tabletop/games/cards"
	"github.com/Seednode/tabletop/games/score"
	"github.com/Seednode/tabletop/games/table"
)

// TableView is the public state every viewer receives.
type TableView struct {
	Phase    Phase        `json:"phase"`
	Round    int          `json:"round"`
	Turn     table.Cursor `json:"turn"`
	MinBet   int          `json:"minBet"`
	MaxBet   int          `json:"maxBet"`
	Shoe     int          `json:"shoe"`
	Capacity int          `json:"capacity"`
	Dealer   DealerView   `json:"dealer"`
	Seats    []SeatView   `json:"seats"`
	House    int          `json:"house"`
	Notice   string       `json:"notice,omitempty"`
}

type DealerView struct {
	Cards  []cards.Card `json:"cards"`
	Hidden int          `json:"hidden"`
	Total  int          `json:"total"`
	Soft   bool         `json:"soft"`
}

type HandView struct {
	Cards       []cards.Card `json:"cards"`
	Bet         int          `json:"bet"`
	Total       int          `json:"total"`
	Soft        bool         `json:"soft"`
	Bust        bool         `json:"bust"`
	Natural     bool         `json:"natural"`
	Doubled     bool         `json:"doubled,omitempty"`
	Split       bool         `json:"split,omitempty"`
	Surrendered bool         `json:"surrendered,omitempty"`
	Done        bool         `json:"done"`
}

type SeatView struct {
	table.Seat
	Chips      int        `json:"chips"`
	Bet        int        `json:"bet"`
	SittingOut bool       `json:"sittingOut,omitempty"`
	InRound    bool       `json:"inRound"`
	Insurance  int        `json:"insurance,omitempty"`
	Hands      []HandView `json:"hands"`
	Results    []Result   `json:"results,omitempty"`
	Net        int        `json:"net"`
}

// PrivateView goes only to the sessions of one seat.
type PrivateView struct {
	Seat    int                `json:"seat"`
	Actions []table.ActionKind `json:"actions"`
}

func (g *Game) View() table.View {
	pub := TableView{
		Phase:    g.phase,
		Round:    g.round,
		Turn:     g.turn,
		MinBet:   g.rules.MinBet,
		MaxBet:   g.rules.MaxBet,
		Shoe:     g.shoe.Remaining(),
		Capacity: g.seats.Capacity(),
		Dealer:   g.dealerView(),
		Seats:    []SeatView{},
		House:    g.house,
		Notice:   g.notice,
	}

	private := make(map[int]any)
	for _, i := range g.seats.Occupied() {
		p := g.players[i]
		if p == nil {
			continue
		}
		sv := SeatView{
			Seat:       *g.seats.Get(i),
			Chips:      p.Chips,
			Bet:        p.Bet,
			SittingOut: p.SittingOut,
			InRound:    p.InRound,
			Insurance:  p.Insurance,
			Hands:      []HandView{},
			Results:    p.Results,
			Net:        p.Net,
		}
		for _, h := range p.Hands {
			v := h.value()
			sv.Hands = append(sv.Hands, HandView{
				Cards:       h.Cards,
				Bet:         h.Bet,
				Total:       v.Total,
				Soft:        v.Soft,
				Bust:        v.Bust,
				Natural:     h.natural(),
				Doubled:     h.Doubled,
				Split:       h.Split,
				Surrendered: h.Surrendered,
				Done:        h.Done,
			})
		}
		pub.Seats = append(pub.Seats, sv)
		private[i] = PrivateView{Seat: i, Actions: g.Legal(i)}
	}

	return table.View{Phase: string(g.phase), Public: pub, Private: private}
}

func (g *Game) dealerView() DealerView {
	shown := g.dealer
	hidden := 0
	if !g.revealed && len(shown) > 1 {
		shown = shown[:1]
		hidden = len(g.dealer) - 1
	}
	v := score.BlackjackValue(shown)
	return DealerView{Cards: shown, Hidden: hidden, Total: v.Total, Soft: v.Soft}
}

// Legal lists the actions seat i could submit right now.
func (g *Game) Legal(i int) []table.ActionKind {
	seat, p, err := g.seated(i)
	if err != nil {
		return nil
	}
	acts := []table.ActionKind{table.Leave}

	switch g.phase {
	case Lobby:
		acts = append(acts, table.StartRound)
	case Betting:
		if !seat.Leaving && p.Chips+p.Bet >= g.rules.MinBet {
			acts = append(acts, table.Bet)
		}
	case Insuring:
		if p.InRound && !p.InsuranceDecided {
			acts = append(acts, table.Insurance)
		}
	case PlayerTurns:
		if g.turn.Seat != i {
			break
		}
		h := p.Hands[g.turn.Hand]
		acts = append(acts, table.Hit, table.Stand)
		if canDouble(h) && p.Chips >= h.Bet {
			acts = append(acts, table.Double)
		}
		if canSplit(p) && p.Chips >= h.Bet {
			acts = append(acts, table.Split)
		}
		if canSurrender(p) {
			acts = append(acts, table.Surrender)
		}
	}
	return acts
}
