package table

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxNameLength bounds display names, in runes.
	MaxNameLength = 20
	defaultName   = "Player"
)

// Seat binds one participant to a stable index.
type Seat struct {
	Index          int       `json:"index"`
	Name           string    `json:"name"`
	Device         string    `json:"-"`
	Connected      bool      `json:"connected"`
	Leaving        bool      `json:"leaving,omitempty"`
	JoinedAt       time.Time `json:"-"`
	DisconnectedAt time.Time `json:"-"`
}

// Seats is the seat table of one room. Capacity 0 means unbounded.
type Seats struct {
	capacity int
	seats    []*Seat
}

func NewSeats(capacity int) *Seats {
	return &Seats{capacity: capacity}
}

func (s *Seats) Capacity() int {
	return s.capacity
}

// Get returns the occupant of seat i, or nil.
func (s *Seats) Get(i int) *Seat {
	if i < 0 || i >= len(s.seats) {
		return nil
	}
	return s.seats[i]
}

// Occupied returns seated indexes in seat order.
func (s *Seats) Occupied() []int {
	out := make([]int, 0, len(s.seats))
	for i, seat := range s.seats {
		if seat != nil {
			out = append(out, i)
		}
	}
	return out
}

func (s *Seats) Count() int {
	return len(s.Occupied())
}

// Len is one past the highest seat index ever used.
func (s *Seats) Len() int {
	return len(s.seats)
}

// ByDevice returns the seat held by device, or nil.
func (s *Seats) ByDevice(device string) *Seat {
	if device == "" {
		return nil
	}
	for _, seat := range s.seats {
		if seat != nil && seat.Device == device {
			return seat
		}
	}
	return nil
}

// Join seats a new participant in the lowest free index.
func (s *Seats) Join(now time.Time, device, name string) (int, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return -1, Reject(ErrInvalidPayload, "missing device fingerprint")
	}
	if s.ByDevice(device) != nil {
		return -1, ErrDuplicateDevice
	}

	idx := -1
	for i, seat := range s.seats {
		if seat == nil {
			idx = i
			break
		}
	}
	if idx == -1 {
		if s.capacity > 0 && len(s.seats) >= s.capacity {
			return -1, ErrRoomFull
		}
		idx = len(s.seats)
		s.seats = append(s.seats, nil)
	}

	s.seats[idx] = &Seat{
		Index:     idx,
		Name:      s.uniqueName(cleanName(name)),
		Device:    device,
		Connected: true,
		JoinedAt:  now,
	}
	return idx, nil
}

// Reconnect rebinds device to the seat it holds. Reconnecting a seat that
// is already connected changes nothing. A seat marked Leaving is waiting
// to be released and cannot be reclaimed.
func (s *Seats) Reconnect(device string) (int, error) {
	seat := s.ByDevice(strings.TrimSpace(device))
	if seat == nil {
		return -1, Reject(ErrNotFound, "no seat for this device")
	}
	if seat.Leaving {
		return -1, Reject(ErrNotFound, "seat %d is being released", seat.Index)
	}
	if !seat.Connected {
		seat.Connected = true
		seat.DisconnectedAt = time.Time{}
	}
	return seat.Index, nil
}

// Disconnect marks seat i as having lost its connection.
func (s *Seats) Disconnect(now time.Time, i int) error {
	seat := s.Get(i)
	if seat == nil {
		return ErrSeatEmpty
	}
	if seat.Connected {
		seat.Connected = false
		seat.DisconnectedAt = now
	}
	return nil
}

// Release frees seat i. Other seats keep their indexes.
func (s *Seats) Release(i int) error {
	if s.Get(i) == nil {
		return ErrSeatEmpty
	}
	s.seats[i] = nil
	for len(s.seats) > 0 && s.seats[len(s.seats)-1] == nil {
		s.seats = s.seats[:len(s.seats)-1]
	}
	return nil
}

// Holders maps every seat that is not being released to its device.
func (s *Seats) Holders() map[int]string {
	out := make(map[int]string, len(s.seats))
	for i, seat := range s.seats {
		if seat != nil && !seat.Leaving {
			out[i] = seat.Device
		}
	}
	return out
}

// Require returns seat i or ErrSeatEmpty.
func (s *Seats) Require(i int) (*Seat, error) {
	seat := s.Get(i)
	if seat == nil {
		return nil, ErrSeatEmpty
	}
	return seat, nil
}

func (s *Seats) uniqueName(base string) string {
	taken := make(map[string]bool, len(s.seats))
	for _, seat := range s.seats {
		if seat != nil {
			taken[seat.Name] = true
		}
	}
	name := base
	for n := 2; taken[name]; n++ {
		name = fmt.Sprintf("%s %d", base, n)
	}
	return name
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	if name == "" {
		return defaultName
	}
	return name
}
