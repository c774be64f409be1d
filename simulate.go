/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/tabletop/games/blackjack"
	"github.com/Seednode/tabletop/games/cards"
	"github.com/Seednode/tabletop/games/score"
	"github.com/Seednode/tabletop/games/table"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// simulation plays blackjack rounds against a bare engine, firing its
// deferred actions immediately instead of waiting on timers.
type simulation struct {
	game    *blackjack.Game
	now     time.Time
	pending map[string]table.Action
	seats   []int
	bet     int
}

type roundReport struct {
	Round  int
	Dealer blackjack.DealerView
	Seats  []blackjack.SeatView
	House  int
}

func newSimulation(rules blackjack.Rules, src cards.Source, players, bet int) (*simulation, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if players < 1 || players > rules.Seats {
		return nil, fmt.Errorf("players must be between 1 and %d", rules.Seats)
	}
	if bet < rules.MinBet || bet > rules.MaxBet {
		return nil, fmt.Errorf("bet must be between %d and %d", rules.MinBet, rules.MaxBet)
	}

	s := &simulation{
		game:    blackjack.New(rules, src),
		now:     time.Unix(0, 0),
		pending: make(map[string]table.Action),
		bet:     bet,
	}

	for i := range players {
		name := "Player " + strconv.Itoa(i+1)
		out, err := s.apply(table.Action{Kind: table.Join, Device: "simulate-" + strconv.Itoa(i), Name: name})
		if err != nil {
			return nil, err
		}
		s.seats = append(s.seats, out.Seat)
	}

	return s, nil
}

func (s *simulation) apply(a table.Action) (table.Outcome, error) {
	s.now = s.now.Add(time.Second)

	out, err := s.game.Apply(s.now, a)
	if err == nil || errors.Is(err, table.ErrInvariant) {
		for _, name := range out.Cancel {
			delete(s.pending, name)
		}
		for _, t := range out.Schedule {
			s.pending[t.Name] = t.Action
		}
	}
	return out, err
}

func (s *simulation) fire(names ...string) (bool, error) {
	for _, name := range names {
		if a, ok := s.pending[name]; ok {
			delete(s.pending, name)
			_, err := s.apply(a)
			return true, err
		}
	}
	return false, nil
}

// choose plays a simplified basic strategy.
func choose(hand blackjack.HandView, legal []table.ActionKind) table.ActionKind {
	can := func(k table.ActionKind) bool { return slices.Contains(legal, k) }

	if can(table.Split) && len(hand.Cards) == 2 && hand.Cards[0].Rank == hand.Cards[1].Rank {
		if r := hand.Cards[0].Rank; r == cards.Ace || r == 8 {
			return table.Split
		}
	}
	if can(table.Double) && !hand.Soft && (hand.Total == 10 || hand.Total == 11) {
		return table.Double
	}
	if can(table.Surrender) && !hand.Soft && hand.Total == 16 {
		return table.Surrender
	}
	if hand.Total < 17 || (hand.Soft && hand.Total == 17) {
		return table.Hit
	}
	return table.Stand
}

// round plays one round to settlement. It reports false when nobody at the
// table could afford to bet.
func (s *simulation) round() (roundReport, bool, error) {
	if _, err := s.apply(table.Action{Kind: table.StartRound, Seat: s.seats[0]}); err != nil {
		return roundReport{}, false, err
	}

	for _, i := range s.seats {
		if !slices.Contains(s.game.Legal(i), table.Bet) {
			continue
		}
		p := s.game.Player(i)
		amount := min(s.bet, p.Chips)
		if _, err := s.apply(table.Action{Kind: table.Bet, Seat: i, Amount: amount}); err != nil {
			return roundReport{}, false, err
		}
	}

	for step := 0; step < 10000; step++ {
		switch s.game.Phase() {
		case blackjack.Lobby:
			return roundReport{}, false, nil

		case blackjack.Betting:
			if _, err := s.fire("betting"); err != nil {
				return roundReport{}, false, err
			}

		case blackjack.Insuring:
			for _, i := range s.seats {
				if slices.Contains(s.game.Legal(i), table.Insurance) {
					if _, err := s.apply(table.Action{Kind: table.Insurance, Seat: i, Buy: false}); err != nil {
						return roundReport{}, false, err
					}
				}
			}

		case blackjack.PlayerTurns:
			i := s.game.NextActor()
			view := s.game.View().Public.(blackjack.TableView)
			at := slices.IndexFunc(view.Seats, func(sv blackjack.SeatView) bool { return sv.Index == i })
			if at < 0 {
				return roundReport{}, false, fmt.Errorf("seat %d missing from view", i)
			}
			kind := choose(view.Seats[at].Hands[view.Turn.Hand], s.game.Legal(i))
			if _, err := s.apply(table.Action{Kind: kind, Seat: i}); err != nil {
				return roundReport{}, false, err
			}

		case blackjack.Settlement:
			view := s.game.View().Public.(blackjack.TableView)
			report := roundReport{
				Round:  view.Round,
				Dealer: view.Dealer,
				House:  view.House,
			}
			report.Seats = view.Seats
			if _, err := s.fire("settle"); err != nil {
				return roundReport{}, false, err
			}
			return report, true, nil

		default:
			fired, err := s.fire("dealer")
			if err != nil {
				return roundReport{}, false, err
			}
			if !fired {
				return roundReport{}, false, fmt.Errorf("round stuck in phase %s", s.game.Phase())
			}
		}
	}

	return roundReport{}, false, errors.New("round did not finish")
}

func formatCards(cs []cards.Card) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func renderRound(r roundReport) error {
	pterm.DefaultSection.Printfln("Round %d", r.Round)
	pterm.Info.Printfln("Dealer: %s (%d)", formatCards(r.Dealer.Cards), r.Dealer.Total)

	data := pterm.TableData{{"Seat", "Hand", "Total", "Outcome", "Bet", "Payout", "Chips"}}
	for _, sv := range r.Seats {
		if len(sv.Results) == 0 {
			data = append(data, []string{sv.Name, "-", "-", "sat out", "-", "-", strconv.Itoa(sv.Chips)})
			continue
		}
		for h, res := range sv.Results {
			cardsText := ""
			if h < len(sv.Hands) {
				cardsText = formatCards(sv.Hands[h].Cards)
			}
			outcome := string(res.Outcome)
			switch res.Outcome {
			case score.Win, score.Natural:
				outcome = pterm.LightGreen(outcome)
			case score.Lose, score.Bust:
				outcome = pterm.LightRed(outcome)
			}
			data = append(data, []string{
				sv.Name,
				cardsText,
				strconv.Itoa(res.Total),
				outcome,
				strconv.Itoa(res.Bet),
				strconv.Itoa(res.Payout),
				strconv.Itoa(sv.Chips),
			})
		}
	}

	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func newSimulateCmd() *cobra.Command {
	var (
		rounds  int
		players int
		bet     int
		decks   int
		seed    uint64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play automated blackjack rounds in the terminal.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := blackjack.DefaultRules()
			rules.Decks = decks
			rules.ReshuffleAt = min(rules.ReshuffleAt, decks*cards.DeckSize-1)

			var src cards.Source = cards.NewSource()
			if seed != 0 {
				src = rand.New(rand.NewPCG(seed, seed))
			}

			sim, err := newSimulation(rules, src, players, bet)
			if err != nil {
				return err
			}

			for range rounds {
				report, ok, err := sim.round()
				if err != nil {
					return err
				}
				if !ok {
					pterm.Warning.Println("Nobody can cover the minimum bet")
					break
				}
				if err := renderRound(report); err != nil {
					return err
				}
			}

			pterm.DefaultBox.WithTitle(pterm.LightYellow("|HOUSE|")).WithTitleTopCenter().Printfln("House result: %d", sim.game.House())

			return nil
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&rounds, "rounds", 5, "rounds to play")
	fs.IntVar(&players, "players", 3, "seats to fill")
	fs.IntVar(&bet, "bet", 10, "bet each seat places")
	fs.IntVar(&decks, "decks", 6, "decks in the shoe")
	fs.Uint64Var(&seed, "seed", 0, "shuffle seed, 0 for random")

	return cmd
}
