package blackjack

import (
	"errors"
	"fmt"
	"time"

	"github.com/Seednode/tabletop/games/cards"
)

// Rules configures a blackjack table.
type Rules struct {
	MinBet        int
	MaxBet        int
	Decks         int
	HitSoft17     bool
	ReshuffleAt   int
	StartingChips int
	Seats         int

	BettingTimeout time.Duration
	TurnTimeout    time.Duration
	DealerDelay    time.Duration
	GracePeriod    time.Duration

	// AutoRestart reopens betting after settlement instead of returning
	// to the lobby.
	AutoRestart bool
}

func DefaultRules() Rules {
	return Rules{
		MinBet:         5,
		MaxBet:         500,
		Decks:          6,
		HitSoft17:      true,
		ReshuffleAt:    cards.DeckSize,
		StartingChips:  1000,
		Seats:          6,
		BettingTimeout: 30 * time.Second,
		TurnTimeout:    30 * time.Second,
		DealerDelay:    900 * time.Millisecond,
		GracePeriod:    30 * time.Second,
	}
}

func (r Rules) Validate() error {
	switch {
	case r.MinBet < 1:
		return errors.New("minimum bet must be at least 1")
	case r.MaxBet < r.MinBet:
		return fmt.Errorf("maximum bet %d is below minimum bet %d", r.MaxBet, r.MinBet)
	case r.Decks < 1 || r.Decks > 8:
		return fmt.Errorf("deck count must be between 1-8 inclusive: %d", r.Decks)
	case r.ReshuffleAt < 0 || r.ReshuffleAt >= r.Decks*cards.DeckSize:
		return fmt.Errorf("reshuffle threshold must be below shoe size %d: %d", r.Decks*cards.DeckSize, r.ReshuffleAt)
	case r.StartingChips < r.MinBet:
		return errors.New("starting chips must cover the minimum bet")
	case r.Seats < 1:
		return errors.New("a table needs at least one seat")
	case r.BettingTimeout < 0 || r.TurnTimeout < 0 || r.DealerDelay < 0 || r.GracePeriod < 0:
		return errors.New("durations must not be negative")
	}
	return nil
}
