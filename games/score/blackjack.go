// Package score holds the pure hand and scorecard arithmetic for the
// blackjack and yahtzee tables.
package score

import "github.com/Seednode/tabletop/games/cards"

const (
	// Blackjack is the best possible hand total.
	Blackjack = 21
	// DealerStand is the total at which the dealer stops drawing.
	DealerStand = 17
)

// Value is the evaluation of a blackjack hand.
type Value struct {
	Total   int  `json:"total"`
	Soft    bool `json:"soft"`
	Bust    bool `json:"bust"`
	Natural bool `json:"natural"`
}

// CardPoints is the hard value of a single card, with aces as 1.
func CardPoints(c cards.Card) int {
	switch {
	case c.Rank == cards.Ace:
		return 1
	case c.Rank >= 10:
		return 10
	}
	return int(c.Rank)
}

// TenValue reports whether the card counts as ten.
func TenValue(c cards.Card) bool {
	return c.Rank >= 10
}

// BlackjackValue totals a hand. Each ace counts 11 unless that would bust
// the hand, in which case it counts 1. An empty hand is worth 0.
func BlackjackValue(hand []cards.Card) Value {
	total, aces := 0, 0
	for _, c := range hand {
		if c.Rank == cards.Ace {
			aces++
			total += 11
			continue
		}
		total += CardPoints(c)
	}
	for total > Blackjack && aces > 0 {
		total -= 10
		aces--
	}

	return Value{
		Total:   total,
		Soft:    aces > 0,
		Bust:    total > Blackjack,
		Natural: len(hand) == 2 && total == Blackjack,
	}
}

// DealerShouldHit applies the fixed dealer policy.
func DealerShouldHit(v Value, hitSoft17 bool) bool {
	if v.Total < DealerStand {
		return true
	}
	return hitSoft17 && v.Total == DealerStand && v.Soft
}

// Outcome of a settled hand against the dealer.
type Outcome string

const (
	Win       Outcome = "win"
	Natural   Outcome = "blackjack"
	Push      Outcome = "push"
	Lose      Outcome = "lose"
	Bust      Outcome = "bust"
	Surrender Outcome = "surrender"
)

// Compare settles a player hand against the dealer hand. natural must be
// false for hands created by a split.
func Compare(player Value, natural bool, dealer Value) Outcome {
	dealerNatural := dealer.Natural
	switch {
	case player.Bust:
		return Bust
	case natural && dealerNatural:
		return Push
	case natural:
		return Natural
	case dealerNatural:
		return Lose
	case dealer.Bust || player.Total > dealer.Total:
		return Win
	case player.Total == dealer.Total:
		return Push
	}
	return Lose
}

// Payout is the amount credited back for a settled bet, stake included.
// The natural premium is floor(bet×3/2).
func Payout(o Outcome, bet int) int {
	switch o {
	case Natural:
		return bet + bet*3/2
	case Win:
		return 2 * bet
	case Push:
		return bet
	}
	return 0
}
