// Package cards deals shuffled shoes of standard playing cards and rolls dice.
package cards

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Source is the randomness used for shuffles and rolls. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// ErrExhausted is returned when drawing from an empty pool.
var ErrExhausted = errors.New("draw from exhausted pool")

type Suit uint8

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// Rank runs from Ace (1) to King (13).
type Rank uint8

const (
	Ace   Rank = 1
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
)

// DeckSize is the number of cards in one standard deck.
const DeckSize = 52

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	}
	return "?"
}

func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	return fmt.Sprintf("%d", r)
}

func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Red reports whether the card is a heart or diamond.
func (c Card) Red() bool {
	return c.Suit == Hearts || c.Suit == Diamonds
}

// NewSource returns a time-seeded PCG source.
func NewSource() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewDeck returns one ordered 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for s := Spades; s <= Clubs; s++ {
		for r := Ace; r <= King; r++ {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// Shuffle permutes cards in place with Fisher-Yates.
func Shuffle(src Source, cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Draw takes the next card off the front of pool.
func Draw(pool []Card) (Card, []Card, error) {
	if len(pool) == 0 {
		return Card{}, pool, ErrExhausted
	}
	return pool[0], pool[1:], nil
}
