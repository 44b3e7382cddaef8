package deck

import (
	"slices"

	"github.com/lox/doudizhu/internal/randutil"
)

// Size is the number of cards in a landlord deck: 13 ranks across 4 suits
// plus both jokers.
const Size = 54

var suits = []Suit{Clubs, Diamonds, Hearts, Spades}

var ranks = []Rank{
	Three, Four, Five, Six, Seven, Eight, Nine, Ten,
	Jack, Queen, King, Ace, Two,
}

// Standard returns the canonical 54-card deck in its fixed order: suits
// C, D, H, S each running 3..2, followed by the black then red joker.
func Standard() []Card {
	deck := make([]Card, 0, Size)
	for _, suit := range suits {
		for _, rank := range ranks {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}
	deck = append(deck, Card{Rank: BlackJoker, Suit: Joker})
	deck = append(deck, Card{Rank: RedJoker, Suit: Joker})
	return deck
}

// Shuffled returns the standard deck shuffled by a deterministic source
// seeded from the given value.
func Shuffled(seed uint64) []Card {
	deck := Standard()
	rng := randutil.New(seed)
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// Deal shuffles with the given seed and deals the first 51 cards round-robin
// to three seats, returning the hands and the 3-card bottom. Hands are in
// deal order; callers sort them for display.
func Deal(seed uint64) (hands [3][]Card, bottom []Card) {
	deck := Shuffled(seed)
	for i := range 3 {
		hands[i] = make([]Card, 0, 17)
	}
	for i := range 51 {
		hands[i%3] = append(hands[i%3], deck[i])
	}
	bottom = deck[51:]
	return hands, bottom
}

// SortHand orders a hand ascending by rank, breaking ties by suit order.
func SortHand(hand []Card) {
	slices.SortFunc(hand, func(a, b Card) int {
		if a.Rank != b.Rank {
			return int(a.Rank) - int(b.Rank)
		}
		return a.Suit.Order() - b.Suit.Order()
	})
}
