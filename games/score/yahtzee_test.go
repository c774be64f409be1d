package score

import "testing"

func TestCategoryScore(t *testing.T) {
	tests := []struct {
		dice []int
		cat  Category
		want int
	}{
		{[]int{2, 2, 2, 5, 6}, ThreeOfAKind, 17},
		{[]int{2, 2, 2, 5, 6}, FourOfAKind, 0},
		{[]int{2, 2, 2, 5, 6}, Twos, 6},
		{[]int{2, 2, 2, 5, 6}, Sixes, 6},
		{[]int{2, 2, 2, 5, 6}, Ones, 0},
		{[]int{2, 2, 2, 5, 6}, Chance, 17},
		{[]int{3, 3, 3, 3, 1}, FourOfAKind, 13},
		{[]int{3, 3, 5, 5, 5}, FullHouse, 25},
		{[]int{3, 3, 5, 5, 6}, FullHouse, 0},
		{[]int{4, 4, 4, 4, 4}, FullHouse, 25},
		{[]int{1, 2, 3, 4, 6}, SmallStraight, 30},
		{[]int{3, 4, 5, 6, 6}, SmallStraight, 30},
		{[]int{1, 2, 3, 5, 6}, SmallStraight, 0},
		{[]int{1, 2, 3, 4, 5}, LargeStraight, 40},
		{[]int{2, 3, 4, 5, 6}, LargeStraight, 40},
		{[]int{1, 2, 3, 4, 6}, LargeStraight, 0},
		{[]int{6, 6, 6, 6, 6}, Yahtzee, 50},
		{[]int{6, 6, 6, 6, 5}, Yahtzee, 0},
		{[]int{6, 6, 6, 6, 0}, Chance, 0},
		{[]int{1, 2}, Chance, 0},
	}

	for _, tt := range tests {
		if got := CategoryScore(tt.dice, tt.cat); got != tt.want {
			t.Fatalf("CategoryScore(%v, %s) = %d, want %d", tt.dice, tt.cat, got, tt.want)
		}
	}
}

// Every legal roll scores every category without failing.
func TestCategoryScoreTotal(t *testing.T) {
	dice := make([]int, DiceCount)
	var walk func(i int)
	walk = func(i int) {
		if i == DiceCount {
			for _, c := range Categories {
				if s := CategoryScore(dice, c); s < 0 || s > 50 {
					t.Fatalf("CategoryScore(%v, %s) = %d out of range", dice, c, s)
				}
			}
			return
		}
		for face := 1; face <= 6; face++ {
			dice[i] = face
			walk(i + 1)
		}
	}
	walk(0)
}

func TestJokerScore(t *testing.T) {
	five := []int{3, 3, 3, 3, 3}
	if JokerScore(five, LargeStraight) != 40 || JokerScore(five, SmallStraight) != 30 || JokerScore(five, FullHouse) != 25 {
		t.Fatalf("joker lower boxes should score fixed values")
	}
	if JokerScore(five, Threes) != 15 || JokerScore(five, Fours) != 0 {
		t.Fatalf("joker upper boxes score face totals")
	}
	if JokerScore(five, Chance) != 15 {
		t.Fatalf("joker chance = %d", JokerScore(five, Chance))
	}
}

func TestUpperBonusEligible(t *testing.T) {
	if UpperBonusEligible(62) || !UpperBonusEligible(63) || !UpperBonusEligible(80) {
		t.Fatalf("upper bonus threshold is 63")
	}
}

func TestParseCategory(t *testing.T) {
	if c, ok := ParseCategory("full_house"); !ok || c != FullHouse {
		t.Fatalf("ParseCategory(full_house) = %s, %v", c, ok)
	}
	if _, ok := ParseCategory("bonus"); ok {
		t.Fatalf("unknown category accepted")
	}
	if !Sixes.Upper() || Chance.Upper() || UpperFor(4) != Fours {
		t.Fatalf("upper section helpers wrong")
	}
}
