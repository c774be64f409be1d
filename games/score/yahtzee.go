package score

import "slices"

type Category string

const (
	Ones          Category = "ones"
	Twos          Category = "twos"
	Threes        Category = "threes"
	Fours         Category = "fours"
	Fives         Category = "fives"
	Sixes         Category = "sixes"
	ThreeOfAKind  Category = "three_kind"
	FourOfAKind   Category = "four_kind"
	FullHouse     Category = "full_house"
	SmallStraight Category = "small_straight"
	LargeStraight Category = "large_straight"
	Yahtzee       Category = "yahtzee"
	Chance        Category = "chance"
)

// Categories lists every scorecard box in display order.
var Categories = []Category{
	Ones, Twos, Threes, Fours, Fives, Sixes,
	ThreeOfAKind, FourOfAKind, FullHouse, SmallStraight, LargeStraight, Yahtzee, Chance,
}

const (
	DiceCount = 5

	FullHousePoints     = 25
	SmallStraightPoints = 30
	LargeStraightPoints = 40
	YahtzeePoints       = 50

	UpperBonusThreshold = 63
	UpperBonus          = 35
	YahtzeeBonus        = 100
)

// ParseCategory returns the category named s.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, slices.Contains(Categories, c)
}

// Upper reports whether c is in the upper section.
func (c Category) Upper() bool {
	_, ok := upperFace(c)
	return ok
}

func upperFace(c Category) (int, bool) {
	switch c {
	case Ones:
		return 1, true
	case Twos:
		return 2, true
	case Threes:
		return 3, true
	case Fours:
		return 4, true
	case Fives:
		return 5, true
	case Sixes:
		return 6, true
	}
	return 0, false
}

// UpperFor returns the upper-section box counting face.
func UpperFor(face int) Category {
	return Categories[face-1]
}

func validDice(dice []int) bool {
	if len(dice) != DiceCount {
		return false
	}
	for _, d := range dice {
		if d < 1 || d > 6 {
			return false
		}
	}
	return true
}

func faceCounts(dice []int) [7]int {
	var counts [7]int
	for _, d := range dice {
		counts[d]++
	}
	return counts
}

func sum(dice []int) int {
	total := 0
	for _, d := range dice {
		total += d
	}
	return total
}

func hasRun(counts [7]int, length int) bool {
	run := 0
	for face := 1; face <= 6; face++ {
		if counts[face] == 0 {
			run = 0
			continue
		}
		run++
		if run >= length {
			return true
		}
	}
	return false
}

// IsYahtzee reports five of a kind.
func IsYahtzee(dice []int) bool {
	if !validDice(dice) {
		return false
	}
	return faceCounts(dice)[dice[0]] == DiceCount
}

// CategoryScore is the points dice earn in c. Unmet combinations and
// invalid dice score 0.
func CategoryScore(dice []int, c Category) int {
	if !validDice(dice) {
		return 0
	}
	counts := faceCounts(dice)
	maxCount := slices.Max(counts[1:])

	if face, ok := upperFace(c); ok {
		return face * counts[face]
	}

	switch c {
	case ThreeOfAKind:
		if maxCount >= 3 {
			return sum(dice)
		}
	case FourOfAKind:
		if maxCount >= 4 {
			return sum(dice)
		}
	case FullHouse:
		if maxCount == 5 || (slices.Contains(counts[1:], 3) && slices.Contains(counts[1:], 2)) {
			return FullHousePoints
		}
	case SmallStraight:
		if hasRun(counts, 4) {
			return SmallStraightPoints
		}
	case LargeStraight:
		if hasRun(counts, 5) {
			return LargeStraightPoints
		}
	case Yahtzee:
		if maxCount == 5 {
			return YahtzeePoints
		}
	case Chance:
		return sum(dice)
	}
	return 0
}

// JokerScore is the score for a five-of-a-kind used as a joker: the fixed
// lower-section values apply regardless of the dice pattern.
func JokerScore(dice []int, c Category) int {
	switch c {
	case FullHouse:
		return FullHousePoints
	case SmallStraight:
		return SmallStraightPoints
	case LargeStraight:
		return LargeStraightPoints
	}
	return CategoryScore(dice, c)
}

// UpperBonusEligible reports whether an upper-section total earns the bonus.
func UpperBonusEligible(upperTotal int) bool {
	return upperTotal >= UpperBonusThreshold
}
