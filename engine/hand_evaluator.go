package engine

import (
	"fmt"
	"sort"

	"casino-engine/models"
)

// BlackjackCardValue counts aces as 11 and face cards as 10.
func BlackjackCardValue(c models.Card) int {
	switch {
	case c.Rank == models.Ace:
		return 11
	case c.IsFace():
		return 10
	}
	return c.Value()
}

// BlackjackValue totals a hand, demoting aces from 11 to 1 one at a time
// while the total is over 21.
func BlackjackValue(cards []models.Card) int {
	total := 0
	aces := 0
	for _, c := range cards {
		if c.Rank == models.Ace {
			aces++
		}
		total += BlackjackCardValue(c)
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsBlackjackNatural reports a two-card 21.
func IsBlackjackNatural(cards []models.Card) bool {
	return len(cards) == 2 && BlackjackValue(cards) == 21
}

func IsBust(cards []models.Card) bool {
	return BlackjackValue(cards) > 21
}

// DealerShouldHit is true while the dealer total is below 17. A soft 17 stands.
func DealerShouldHit(cards []models.Card) bool {
	return BlackjackValue(cards) < 17
}

// BaccaratCardValue: face cards and tens are 0, ace is 1.
func BaccaratCardValue(c models.Card) int {
	switch {
	case c.Rank == models.Ace:
		return 1
	case c.IsFace(), c.Rank == models.Ten:
		return 0
	}
	return c.Value()
}

func BaccaratValue(cards []models.Card) int {
	total := 0
	for _, c := range cards {
		total += BaccaratCardValue(c)
	}
	return total % 10
}

// IsBaccaratNatural reports an 8 or 9 on the first two cards.
func IsBaccaratNatural(cards []models.Card) bool {
	return len(cards) == 2 && BaccaratValue(cards) >= 8
}

type ThreeCardRank int

const (
	ThreeCardHighCard ThreeCardRank = iota
	ThreeCardPair
	ThreeCardFlush
	ThreeCardStraight
	ThreeCardThreeOfAKind
	ThreeCardStraightFlush
)

func (r ThreeCardRank) String() string {
	names := []string{"high-card", "pair", "flush", "straight", "three-of-a-kind", "straight-flush"}
	if r < 0 || int(r) >= len(names) {
		return "unknown"
	}
	return names[r]
}

// ThreeCardHand is an evaluated three card poker hand. Value breaks ties
// within a rank: the high card, or the paired rank for a pair.
type ThreeCardHand struct {
	Rank  ThreeCardRank
	Value int
}

// EvaluateThreeCardHand ranks exactly three cards. A-2-3 is the lowest
// straight and is valued 3.
func EvaluateThreeCardHand(cards []models.Card) (ThreeCardHand, error) {
	if len(cards) != 3 {
		return ThreeCardHand{}, fmt.Errorf("three card hand needs 3 cards, got %d", len(cards))
	}

	values := []int{cards[0].Value(), cards[1].Value(), cards[2].Value()}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	flush := cards[0].Suit == cards[1].Suit && cards[1].Suit == cards[2].Suit
	wheel := values[0] == 14 && values[1] == 3 && values[2] == 2
	straight := wheel || (values[0]-values[1] == 1 && values[1]-values[2] == 1)

	high := values[0]
	if wheel {
		high = 3
	}

	switch {
	case flush && straight:
		return ThreeCardHand{Rank: ThreeCardStraightFlush, Value: high}, nil
	case values[0] == values[2]:
		return ThreeCardHand{Rank: ThreeCardThreeOfAKind, Value: values[0]}, nil
	case straight:
		return ThreeCardHand{Rank: ThreeCardStraight, Value: high}, nil
	case flush:
		return ThreeCardHand{Rank: ThreeCardFlush, Value: high}, nil
	case values[0] == values[1]:
		return ThreeCardHand{Rank: ThreeCardPair, Value: values[0]}, nil
	case values[1] == values[2]:
		return ThreeCardHand{Rank: ThreeCardPair, Value: values[1]}, nil
	}
	return ThreeCardHand{Rank: ThreeCardHighCard, Value: high}, nil
}

// CompareThreeCardHands returns 1 if a beats b, -1 if b beats a, 0 on a push.
func CompareThreeCardHands(a, b ThreeCardHand) int {
	switch {
	case a.Rank > b.Rank:
		return 1
	case a.Rank < b.Rank:
		return -1
	case a.Value > b.Value:
		return 1
	case a.Value < b.Value:
		return -1
	}
	return 0
}

// DealerQualifies is true for queen-high or better.
func DealerQualifies(h ThreeCardHand) bool {
	return h.Rank > ThreeCardHighCard || h.Value >= 12
}
