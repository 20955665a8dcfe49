package game

import "math/rand/v2"

// Deck is the shared court deck. Order carries no meaning outside Draw;
// every return reshuffles so returned cards land at unpredictable positions.
type Deck struct {
	cards []Role
	rng   *rand.Rand
}

// NewDeck builds CopiesPerRole of each role and shuffles them.
func NewDeck(roles []Role, rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	for _, r := range roles {
		for range CopiesPerRole {
			d.cards = append(d.cards, r)
		}
	}
	d.Shuffle()
	return d
}

func (d *Deck) Len() int { return len(d.cards) }

// Shuffle is an index-based Fisher-Yates pass over the deck.
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Role, bool) {
	n := len(d.cards)
	if n == 0 {
		return "", false
	}
	r := d.cards[n-1]
	d.cards = d.cards[:n-1]
	return r, true
}

// Return puts r back and reshuffles.
func (d *Deck) Return(r Role) {
	d.cards = append(d.cards, r)
	d.Shuffle()
}

// ReturnMany puts every role back and reshuffles once.
func (d *Deck) ReturnMany(rs []Role) {
	if len(rs) == 0 {
		return
	}
	d.cards = append(d.cards, rs...)
	d.Shuffle()
}

// Count returns how many copies of r are in the deck.
func (d *Deck) Count(r Role) int {
	n := 0
	for _, c := range d.cards {
		if c == r {
			n++
		}
	}
	return n
}
