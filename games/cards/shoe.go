package cards

// Shoe is the combined, shuffled set of decks a table deals from.
type Shoe struct {
	decks int
	src   Source
	cards []Card
	dealt int
}

// NewShoe returns a freshly shuffled shoe of decks×52 cards.
func NewShoe(decks int, src Source) *Shoe {
	if decks < 1 {
		decks = 1
	}
	s := &Shoe{decks: decks, src: src}
	s.Reshuffle()
	return s
}

// NewShoeFrom returns a shoe that deals seq in order. Reshuffling it
// replaces the sequence with a regular shuffled shoe.
func NewShoeFrom(seq []Card, decks int, src Source) *Shoe {
	if decks < 1 {
		decks = 1
	}
	return &Shoe{
		decks: decks,
		src:   src,
		cards: append([]Card(nil), seq...),
	}
}

// Reshuffle discards whatever is left and builds a full shoe.
func (s *Shoe) Reshuffle() {
	cards := make([]Card, 0, s.decks*DeckSize)
	for range s.decks {
		cards = append(cards, NewDeck()...)
	}
	Shuffle(s.src, cards)
	s.cards = cards
	s.dealt = 0
}

func (s *Shoe) Draw() (Card, error) {
	c, rest, err := Draw(s.cards)
	if err != nil {
		return Card{}, err
	}
	s.cards = rest
	s.dealt++
	return c, nil
}

func (s *Shoe) Remaining() int {
	return len(s.cards)
}

func (s *Shoe) Decks() int {
	return s.decks
}

// NeedsReshuffle reports whether fewer than threshold cards remain.
func (s *Shoe) NeedsReshuffle(threshold int) bool {
	return len(s.cards) < threshold
}

// Dealt is the number of cards drawn since the last reshuffle.
func (s *Shoe) Dealt() int {
	return s.dealt
}
