package models

import (
	"fmt"
	"math/rand"
)

type Suit string
type Rank string

const (
	Hearts   Suit = "h"
	Diamonds Suit = "d"
	Clubs    Suit = "c"
	Spades   Suit = "s"
)

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "T"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

var (
	AllSuits = []Suit{Spades, Hearts, Diamonds, Clubs}
	AllRanks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}
)

// DeckSize is the number of cards in a standard deck without jokers.
const DeckSize = 52

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// Value is the poker value of the card, ace high (2..14).
func (c Card) Value() int {
	switch c.Rank {
	case Two:
		return 2
	case Three:
		return 3
	case Four:
		return 4
	case Five:
		return 5
	case Six:
		return 6
	case Seven:
		return 7
	case Eight:
		return 8
	case Nine:
		return 9
	case Ten:
		return 10
	case Jack:
		return 11
	case Queen:
		return 12
	case King:
		return 13
	case Ace:
		return 14
	}
	return 0
}

// IsFace reports whether the card is a jack, queen or king.
func (c Card) IsFace() bool {
	return c.Rank == Jack || c.Rank == Queen || c.Rank == King
}

// ParseCard parses the String form of a card, e.g. "Ts" or "Ah".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	c := Card{Rank: Rank(s[:1]), Suit: Suit(s[1:])}
	if c.Value() == 0 {
		return Card{}, fmt.Errorf("invalid rank in card %q", s)
	}
	switch c.Suit {
	case Hearts, Diamonds, Clubs, Spades:
	default:
		return Card{}, fmt.Errorf("invalid suit in card %q", s)
	}
	return c, nil
}

// MustParseCards parses a space separated list of cards and panics on error.
// Intended for tests and fixtures.
func MustParseCards(s string) []Card {
	var cards []Card
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				c, err := ParseCard(s[start:i])
				if err != nil {
					panic(err)
				}
				cards = append(cards, c)
			}
			start = i + 1
		}
	}
	return cards
}

// NewOrderedDeck returns the 52 cards in suit-major order, unshuffled.
func NewOrderedDeck() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, suit := range AllSuits {
		for _, rank := range AllRanks {
			cards = append(cards, Card{Rank: rank, Suit: suit})
		}
	}
	return cards
}

type Deck struct {
	cards []Card
	rng   *rand.Rand
	// refill starts a fresh shuffled deck when the current one runs out.
	refill bool
}

// NewDeck returns a freshly shuffled deck driven by rng. Callers own rng and
// must not share it across goroutines.
func NewDeck(rng *rand.Rand) *Deck {
	deck := &Deck{rng: rng}
	deck.Reset()
	return deck
}

// NewShoe is a deck that never runs dry: when it is too short for a deal a
// fresh 52 is shuffled in. Tables have no seat cap, so games that deal a
// hand per player draw from a shoe.
func NewShoe(rng *rand.Rand) *Deck {
	deck := NewDeck(rng)
	deck.refill = true
	return deck
}

func (d *Deck) Reset() {
	d.cards = NewOrderedDeck()
	d.Shuffle()
}

// Shuffle permutes the remaining cards in place. rand.Shuffle is a
// Fisher-Yates shuffle, so every permutation is equally likely.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

func (d *Deck) Deal() (Card, error) {
	if len(d.cards) == 0 && d.refill {
		d.Reset()
	}
	if len(d.cards) == 0 {
		return Card{}, fmt.Errorf("deck is empty - no more cards to deal")
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

func (d *Deck) DealMultiple(n int) ([]Card, error) {
	if len(d.cards) < n && d.refill && n <= DeckSize {
		// A hand never straddles two decks; the short remainder is burned.
		d.Reset()
	}
	if len(d.cards) < n {
		return nil, fmt.Errorf("not enough cards in deck: requested %d, available %d", n, len(d.cards))
	}
	cards := make([]Card, n)
	for i := 0; i < n; i++ {
		card, err := d.Deal()
		if err != nil {
			return nil, err
		}
		cards[i] = card
	}
	return cards, nil
}

func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}

// Cards returns a copy of the undealt cards in deal order.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
