/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand/v2"
	"testing"

	"github.com/Seednode/tabletop/games/blackjack"
	"github.com/Seednode/tabletop/games/cards"
	"github.com/Seednode/tabletop/games/table"
	"github.com/pterm/pterm"
)

func TestSimulationConservesChips(t *testing.T) {
	pterm.DisableOutput()
	defer pterm.EnableOutput()

	rules := blackjack.DefaultRules()
	sim, err := newSimulation(rules, rand.New(rand.NewPCG(7, 7)), 4, 25)
	if err != nil {
		t.Fatal(err)
	}

	played := 0
	for range 40 {
		report, ok, err := sim.round()
		if err != nil {
			t.Fatalf("round %d: %v", played+1, err)
		}
		if !ok {
			break
		}
		played++

		if report.Round != played {
			t.Fatalf("report round = %d, want %d", report.Round, played)
		}
		if err := renderRound(report); err != nil {
			t.Fatal(err)
		}

		total := sim.game.House()
		for _, i := range sim.seats {
			total += sim.game.Player(i).Chips
		}
		if want := len(sim.seats) * rules.StartingChips; total != want {
			t.Fatalf("after round %d chips + house = %d, want %d", played, total, want)
		}
	}

	if played == 0 {
		t.Fatal("no rounds played")
	}
	if sim.game.Phase() != blackjack.Lobby {
		t.Fatalf("phase = %s, want lobby between rounds", sim.game.Phase())
	}
}

func TestNewSimulationValidatesArguments(t *testing.T) {
	rules := blackjack.DefaultRules()
	src := cards.NewSource()

	if _, err := newSimulation(rules, src, 0, 10); err == nil {
		t.Error("zero players accepted")
	}
	if _, err := newSimulation(rules, src, rules.Seats+1, 10); err == nil {
		t.Error("more players than seats accepted")
	}
	if _, err := newSimulation(rules, src, 2, rules.MaxBet+1); err == nil {
		t.Error("bet above the table maximum accepted")
	}
}

func TestChooseFollowsBasicStrategy(t *testing.T) {
	all := []table.ActionKind{table.Hit, table.Stand, table.Double, table.Split, table.Surrender}

	for _, tc := range []struct {
		name string
		hand blackjack.HandView
		want table.ActionKind
	}{
		{"split aces", blackjack.HandView{Cards: []cards.Card{{Rank: cards.Ace}, {Rank: cards.Ace}}, Total: 12, Soft: true}, table.Split},
		{"double eleven", blackjack.HandView{Cards: []cards.Card{{Rank: 5}, {Rank: 6}}, Total: 11}, table.Double},
		{"surrender sixteen", blackjack.HandView{Cards: []cards.Card{{Rank: 10}, {Rank: 6}}, Total: 16}, table.Surrender},
		{"hit soft seventeen", blackjack.HandView{Cards: []cards.Card{{Rank: cards.Ace}, {Rank: 6}}, Total: 17, Soft: true}, table.Hit},
		{"stand eighteen", blackjack.HandView{Cards: []cards.Card{{Rank: 10}, {Rank: 8}}, Total: 18}, table.Stand},
		{"ace eight is not a pair", blackjack.HandView{Cards: []cards.Card{{Rank: cards.Ace}, {Rank: 8}}, Total: 19, Soft: true}, table.Stand},
		{"ten and king never split", blackjack.HandView{Cards: []cards.Card{{Rank: 10}, {Rank: cards.King}}, Total: 20}, table.Stand},
	} {
		if got := choose(tc.hand, all); got != tc.want {
			t.Errorf("%s: chose %s, want %s", tc.name, got, tc.want)
		}
	}

	hand := blackjack.HandView{Cards: []cards.Card{{Rank: 5}, {Rank: 6}}, Total: 11}
	if got := choose(hand, []table.ActionKind{table.Hit, table.Stand}); got != table.Hit {
		t.Errorf("double not legal: chose %s, want hit", got)
	}
}
