package cards

// DieFaces is the number of faces on each die.
const DieFaces = 6

// RollDice returns n uniform values in [1,6].
func RollDice(src Source, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = src.IntN(DieFaces) + 1
	}
	return out
}

// Reroll replaces every die whose held flag is unset. held may be shorter
// than dice; missing entries count as not held.
func Reroll(src Source, dice []int, held []bool) {
	for i := range dice {
		if i < len(held) && held[i] {
			continue
		}
		dice[i] = src.IntN(DieFaces) + 1
	}
}
