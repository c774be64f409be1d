package daily

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
)

// Arithmetic generates sets locally. The same date always yields the same
// set.
type Arithmetic struct{}

// ArithmeticModel is recorded as the model name of generated sets.
const ArithmeticModel = "local-arithmetic"

func (Arithmetic) Generate(ctx context.Context, date string) (Result, error) {
	if !ValidDate(date) {
		return Result{}, ErrInvalidDate
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	h := fnv.New64a()
	h.Write([]byte(date))
	src := rand.New(rand.NewPCG(h.Sum64(), 0x7461626c65746f70))

	set := Set{
		Date:   date,
		Level1: questions(src, MinLevel1, level1),
		Level2: questions(src, MinLevel2, level2),
		Level3: questions(src, MinLevel3, level3),
	}
	return Result{Set: set, Model: ArithmeticModel}, nil
}

func questions(src *rand.Rand, n int, next func(*rand.Rand) Item) []Item {
	items := make([]Item, 0, n)
	seen := make(map[string]bool, n)
	for len(items) < n {
		item := next(src)
		if seen[item.Question] {
			continue
		}
		seen[item.Question] = true
		items = append(items, item)
	}
	return items
}

func between(src *rand.Rand, lo, hi int) int {
	return lo + src.IntN(hi-lo+1)
}

// level1 is single-digit to two-digit addition and subtraction.
func level1(src *rand.Rand) Item {
	a, b := between(src, 1, 50), between(src, 1, 50)
	if src.IntN(2) == 0 {
		return item(fmt.Sprintf("%d + %d", a, b), a+b)
	}
	if a < b {
		a, b = b, a
	}
	return item(fmt.Sprintf("%d - %d", a, b), a-b)
}

// level2 is times tables and exact division.
func level2(src *rand.Rand) Item {
	a, b := between(src, 2, 12), between(src, 2, 12)
	if src.IntN(2) == 0 {
		return item(fmt.Sprintf("%d × %d", a, b), a*b)
	}
	return item(fmt.Sprintf("%d ÷ %d", a*b, a), b)
}

// level3 mixes two operations.
func level3(src *rand.Rand) Item {
	a, b, c := between(src, 2, 12), between(src, 2, 12), between(src, 1, 30)
	switch src.IntN(3) {
	case 0:
		return item(fmt.Sprintf("%d × %d + %d", a, b, c), a*b+c)
	case 1:
		return item(fmt.Sprintf("(%d + %d) × %d", c, a, b), (c+a)*b)
	}
	return item(fmt.Sprintf("%d × %d - %d", a, b, min(c, a*b)), a*b-min(c, a*b))
}

func item(q string, answer int) Item {
	return Item{Question: q + " = ?", Answer: strconv.Itoa(answer)}
}
