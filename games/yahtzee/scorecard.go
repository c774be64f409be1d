package yahtzee

import (
	"github.com/Seednode/tabletop/games/score"
	"github.com/Seednode/tabletop/games/table"
)

// Scorecard holds the filled boxes of one player. A filled box never
// changes.
type Scorecard struct {
	Filled         map[score.Category]int `json:"filled"`
	YahtzeeBonuses int                    `json:"yahtzeeBonuses"`
}

func NewScorecard() *Scorecard {
	return &Scorecard{Filled: make(map[score.Category]int, len(score.Categories))}
}

func (s *Scorecard) Open(c score.Category) bool {
	_, filled := s.Filled[c]
	return !filled
}

func (s *Scorecard) Full() bool {
	return len(s.Filled) == len(score.Categories)
}

func (s *Scorecard) UpperTotal() int {
	total := 0
	for c, pts := range s.Filled {
		if c.Upper() {
			total += pts
		}
	}
	return total
}

func (s *Scorecard) UpperBonus() int {
	if score.UpperBonusEligible(s.UpperTotal()) {
		return score.UpperBonus
	}
	return 0
}

func (s *Scorecard) Total() int {
	total := s.UpperBonus() + s.YahtzeeBonuses*score.YahtzeeBonus
	for _, pts := range s.Filled {
		total += pts
	}
	return total
}

// joker reports whether dice must be played under the joker rule.
func (s *Scorecard) joker(dice []int) bool {
	return score.IsYahtzee(dice) && !s.Open(score.Yahtzee)
}

// Options returns every box dice may be scored in, with the points each
// would earn. A joker must take its matching upper box when open, then
// any open lower box at full value, and only then an open upper box for 0.
func (s *Scorecard) Options(dice []int) map[score.Category]int {
	opts := make(map[score.Category]int)
	if !s.joker(dice) {
		for _, c := range score.Categories {
			if s.Open(c) {
				opts[c] = score.CategoryScore(dice, c)
			}
		}
		return opts
	}

	if up := score.UpperFor(dice[0]); s.Open(up) {
		opts[up] = score.CategoryScore(dice, up)
		return opts
	}
	for _, c := range score.Categories {
		if !c.Upper() && s.Open(c) {
			opts[c] = score.JokerScore(dice, c)
		}
	}
	if len(opts) > 0 {
		return opts
	}
	for _, c := range score.Categories {
		if c.Upper() && s.Open(c) {
			opts[c] = 0
		}
	}
	return opts
}

// Best is the highest scoring option, earliest box first on ties.
func (s *Scorecard) Best(dice []int) (score.Category, bool) {
	opts := s.Options(dice)
	best, found := score.Category(""), false
	for _, c := range score.Categories {
		pts, ok := opts[c]
		if !ok {
			continue
		}
		if !found || pts > opts[best] {
			best, found = c, true
		}
	}
	return best, found
}

// Fill scores dice in c and returns the points, bonuses excluded.
func (s *Scorecard) Fill(dice []int, c score.Category) (int, error) {
	if !s.Open(c) {
		return 0, table.Reject(table.ErrIllegalAction, "%s is already filled", c)
	}
	pts, ok := s.Options(dice)[c]
	if !ok {
		return 0, table.Reject(table.ErrIllegalAction, "the joker rule requires another box than %s", c)
	}
	if score.IsYahtzee(dice) && s.Filled[score.Yahtzee] == score.YahtzeePoints {
		s.YahtzeeBonuses++
	}
	s.Filled[c] = pts
	return pts, nil
}
