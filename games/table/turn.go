package table

const (
	// Dealer is the actor index of the automated dealer.
	Dealer = -1
	// None means nobody may act.
	None = -2
)

// NextSeat returns the first seat after from, in seat order, for which
// eligible holds. Pass from = -1 to start at the lowest seat. It returns
// None when no later seat qualifies.
func NextSeat(order []int, from int, eligible func(int) bool) int {
	for _, seat := range order {
		if seat <= from {
			continue
		}
		if eligible(seat) {
			return seat
		}
	}
	return None
}

// NextSeatWrapped is NextSeat continuing from the lowest seat once the end
// of the order is reached. from itself is considered last.
func NextSeatWrapped(order []int, from int, eligible func(int) bool) int {
	if next := NextSeat(order, from, eligible); next != None {
		return next
	}
	return NextSeat(order, -1, func(seat int) bool {
		return seat <= from && eligible(seat)
	})
}

// Cursor is the actor a round is waiting on.
type Cursor struct {
	Seat int `json:"seat"`
	Hand int `json:"hand"`
}

// Idle is the cursor of a round nobody may act in.
var Idle = Cursor{Seat: None}

func (c Cursor) Dealer() bool {
	return c.Seat == Dealer
}
