package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardDeckIntegrity(t *testing.T) {
	t.Parallel()
	deck := Standard()
	require.Len(t, deck, Size)

	seen := make(map[Card]int)
	for _, card := range deck {
		seen[card]++
	}
	assert.Len(t, seen, Size, "every card should be distinct")
	assert.Equal(t, 1, seen[Card{Rank: BlackJoker, Suit: Joker}])
	assert.Equal(t, 1, seen[Card{Rank: RedJoker, Suit: Joker}])
}

func TestShuffledIsPermutation(t *testing.T) {
	t.Parallel()
	shuffled := Shuffled(7)
	require.Len(t, shuffled, Size)
	seen := make(map[Card]bool)
	for _, card := range shuffled {
		assert.False(t, seen[card], "duplicate card %s", card)
		seen[card] = true
	}
}

func TestDealShape(t *testing.T) {
	t.Parallel()
	hands, bottom := Deal(42)
	assert.Len(t, hands[0], 17)
	assert.Len(t, hands[1], 17)
	assert.Len(t, hands[2], 17)
	assert.Len(t, bottom, 3)
}

func TestDealIsDeterministic(t *testing.T) {
	t.Parallel()
	handsA, bottomA := Deal(99)
	handsB, bottomB := Deal(99)
	assert.Equal(t, handsA, handsB)
	assert.Equal(t, bottomA, bottomB)
}

func TestSortHand(t *testing.T) {
	t.Parallel()
	hand := []Card{
		{Rank: RedJoker, Suit: Joker},
		{Rank: Three, Suit: Spades},
		{Rank: Three, Suit: Clubs},
		{Rank: Two, Suit: Hearts},
		{Rank: Ace, Suit: Diamonds},
	}
	SortHand(hand)
	assert.Equal(t, []Card{
		{Rank: Three, Suit: Clubs},
		{Rank: Three, Suit: Spades},
		{Rank: Ace, Suit: Diamonds},
		{Rank: Two, Suit: Hearts},
		{Rank: RedJoker, Suit: Joker},
	}, hand)
}
