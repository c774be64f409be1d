package score

import (
	"testing"

	"github.com/Seednode/tabletop/games/cards"
)

func hand(ranks ...cards.Rank) []cards.Card {
	out := make([]cards.Card, len(ranks))
	for i, r := range ranks {
		out[i] = cards.Card{Rank: r, Suit: cards.Suit(i % 4)}
	}
	return out
}

func TestBlackjackValue(t *testing.T) {
	tests := []struct {
		name  string
		hand  []cards.Card
		total int
		soft  bool
		bust  bool
		nat   bool
	}{
		{"empty", nil, 0, false, false, false},
		{"natural", hand(cards.Ace, cards.King), 21, true, false, true},
		{"ten ace", hand(10, cards.Ace), 21, true, false, true},
		{"three card 21", hand(7, 7, 7), 21, false, false, false},
		{"soft 17", hand(cards.Ace, 6), 17, true, false, false},
		{"ace demoted", hand(cards.Ace, 6, 9), 16, false, false, false},
		{"two aces", hand(cards.Ace, cards.Ace), 12, true, false, false},
		{"four aces", hand(cards.Ace, cards.Ace, cards.Ace, cards.Ace), 14, true, false, false},
		{"bust", hand(cards.King, cards.Queen, 5), 25, false, true, false},
		{"aces then bust", hand(cards.Ace, cards.Ace, cards.King, cards.Queen), 22, false, true, false},
		{"pair of eights", hand(8, 8), 16, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := BlackjackValue(tt.hand)
			if v.Total != tt.total || v.Soft != tt.soft || v.Bust != tt.bust || v.Natural != tt.nat {
				t.Fatalf("BlackjackValue = %+v, want total=%d soft=%v bust=%v natural=%v",
					v, tt.total, tt.soft, tt.bust, tt.nat)
			}
		})
	}
}

// Every card sequence must report the largest total not above 21.
func TestBlackjackValueNeverSoftWhenHardFits(t *testing.T) {
	ranks := []cards.Rank{cards.Ace, 2, 3, 4, 5, 6, 7, 8, 9, 10, cards.King}
	var walk func(prefix []cards.Rank, depth int)
	walk = func(prefix []cards.Rank, depth int) {
		if len(prefix) > 0 {
			v := BlackjackValue(hand(prefix...))

			hard, aces := 0, 0
			for _, r := range prefix {
				hard += CardPoints(cards.Card{Rank: r})
				if r == cards.Ace {
					aces++
				}
			}
			best := hard
			if aces > 0 && hard+10 <= Blackjack {
				best = hard + 10
			}

			if v.Total != best {
				t.Fatalf("hand %v total %d, want %d", prefix, v.Total, best)
			}
			if v.Soft && v.Total > Blackjack {
				t.Fatalf("hand %v reports soft total above 21", prefix)
			}
		}
		if depth == 0 {
			return
		}
		for _, r := range ranks {
			walk(append(append([]cards.Rank{}, prefix...), r), depth-1)
		}
	}
	walk(nil, 4)
}

func TestDealerShouldHit(t *testing.T) {
	soft17 := BlackjackValue(hand(cards.Ace, 6))
	hard17 := BlackjackValue(hand(10, 7))
	sixteen := BlackjackValue(hand(10, 6))

	if !DealerShouldHit(sixteen, false) {
		t.Fatalf("dealer must hit 16")
	}
	if DealerShouldHit(hard17, true) {
		t.Fatalf("dealer must stand on hard 17")
	}
	if !DealerShouldHit(soft17, true) {
		t.Fatalf("dealer must hit soft 17 when configured")
	}
	if DealerShouldHit(soft17, false) {
		t.Fatalf("dealer must stand on soft 17 when configured")
	}
}

func TestCompareAndPayout(t *testing.T) {
	nat := BlackjackValue(hand(cards.Ace, cards.King))
	twenty := BlackjackValue(hand(10, 10))
	nineteen := BlackjackValue(hand(10, 9))
	bust := BlackjackValue(hand(10, 9, 5))
	split21 := BlackjackValue(hand(cards.Ace, 10))

	tests := []struct {
		name    string
		player  Value
		natural bool
		dealer  Value
		want    Outcome
		payout  int
	}{
		{"natural pays 3:2", nat, true, twenty, Natural, 25},
		{"natural push", nat, true, nat, Push, 10},
		{"split 21 is not natural", split21, false, twenty, Win, 20},
		{"dealer natural beats 21", split21, false, nat, Lose, 0},
		{"win", twenty, false, nineteen, Win, 20},
		{"push", nineteen, false, nineteen, Push, 10},
		{"lose", nineteen, false, twenty, Lose, 0},
		{"bust loses even when dealer busts", bust, false, bust, Bust, 0},
		{"dealer bust", nineteen, false, bust, Win, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.player, tt.natural, tt.dealer)
			if got != tt.want {
				t.Fatalf("Compare = %s, want %s", got, tt.want)
			}
			if p := Payout(got, 10); p != tt.payout {
				t.Fatalf("Payout = %d, want %d", p, tt.payout)
			}
		})
	}
}

func TestNaturalPayoutFloors(t *testing.T) {
	for _, bet := range []int{5, 7, 11, 25} {
		want := bet + bet*3/2
		if got := Payout(Natural, bet); got != want {
			t.Fatalf("bet %d natural payout = %d, want %d", bet, got, want)
		}
	}
	if Payout(Natural, 5) != 12 {
		t.Fatalf("5 chip natural should credit 12")
	}
}
