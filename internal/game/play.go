package game

import (
	"slices"

	"github.com/lox/doudizhu/internal/deck"
)

// PlayKind is the closed set of legal play categories.
type PlayKind int

const (
	Single PlayKind = iota
	Pair
	Triple
	TripleSingle
	TriplePair
	Straight
	DoubleStraight
	Airplane
	Bomb
	Rocket
	FourTwoSingle
	FourTwoPair
)

var playKindNames = [...]string{
	"Single", "Pair", "Triple", "TripleSingle", "TriplePair",
	"Straight", "DoubleStraight", "Airplane", "Bomb", "Rocket",
	"FourTwoSingle", "FourTwoPair",
}

func (k PlayKind) String() string {
	if k < 0 || int(k) >= len(playKindNames) {
		return "Unknown"
	}
	return playKindNames[k]
}

// Play is a categorized move. MainRank is the rank compared against a
// previous play of the same kind; Size gates same-length comparison for
// sequences (cards for Straight, distinct pairs for DoubleStraight,
// distinct triples for Airplane, card count otherwise).
type Play struct {
	Kind     PlayKind
	MainRank deck.Rank
	Size     int
}

// Classify categorizes a multiset of cards into a Play, or reports false if
// the cards form no legal category. Classification works on rank
// multiplicities only; suits are ignored. The check order is fixed: Rocket
// before any pair test so the jokers are never mistaken for an invalid
// pair, and Bomb before Single.
func Classify(cards []deck.Card) (Play, bool) {
	if len(cards) == 0 {
		return Play{}, false
	}
	ranks := make([]deck.Rank, len(cards))
	counts := make(map[deck.Rank]int, len(cards))
	for i, card := range cards {
		ranks[i] = card.Rank
		counts[card.Rank]++
	}
	slices.Sort(ranks)
	n := len(cards)
	unique := len(counts)

	if n == 2 && counts[deck.BlackJoker] > 0 && counts[deck.RedJoker] > 0 {
		return Play{Kind: Rocket, MainRank: deck.RedJoker, Size: 2}, true
	}
	if n == 4 && unique == 1 {
		return Play{Kind: Bomb, MainRank: ranks[0], Size: 4}, true
	}
	if n == 1 {
		return Play{Kind: Single, MainRank: ranks[0], Size: 1}, true
	}
	if n == 2 && unique == 1 {
		return Play{Kind: Pair, MainRank: ranks[0], Size: 2}, true
	}
	if n == 3 && unique == 1 {
		return Play{Kind: Triple, MainRank: ranks[0], Size: 3}, true
	}
	if n == 4 && unique == 2 {
		if rank, ok := rankWithCount(counts, 3); ok {
			return Play{Kind: TripleSingle, MainRank: rank, Size: 4}, true
		}
	}
	if n == 5 && unique == 2 {
		if rank, ok := rankWithCount(counts, 3); ok {
			return Play{Kind: TriplePair, MainRank: rank, Size: 5}, true
		}
	}
	if n == 6 && unique == 3 {
		if rank, ok := rankWithCount(counts, 4); ok {
			return Play{Kind: FourTwoSingle, MainRank: rank, Size: 6}, true
		}
	}
	if n == 8 && unique == 3 {
		if rank, ok := rankWithCount(counts, 4); ok && countsWith(counts, 2) == 2 {
			return Play{Kind: FourTwoPair, MainRank: rank, Size: 8}, true
		}
	}
	if n >= 5 && allCountsAre(counts, 1) && straightable(ranks) && consecutive(ranks) {
		return Play{Kind: Straight, MainRank: ranks[n-1], Size: n}, true
	}
	if n >= 6 && n%2 == 0 && allCountsAre(counts, 2) {
		pairRanks := distinctRanks(counts)
		if straightable(pairRanks) && consecutive(pairRanks) {
			return Play{Kind: DoubleStraight, MainRank: pairRanks[len(pairRanks)-1], Size: len(pairRanks)}, true
		}
	}
	if n >= 6 && n%3 == 0 && allCountsAre(counts, 3) {
		tripleRanks := distinctRanks(counts)
		if straightable(tripleRanks) && consecutive(tripleRanks) {
			return Play{Kind: Airplane, MainRank: tripleRanks[len(tripleRanks)-1], Size: len(tripleRanks)}, true
		}
	}
	return Play{}, false
}

// CanBeat reports whether next legally beats prev. Rocket beats anything
// and nothing beats it; a lone Bomb beats every non-bomb; otherwise the
// kinds must match, sequences must additionally match in size, and the main
// ranks decide.
func CanBeat(prev, next Play) bool {
	if prev.Kind == Rocket {
		return false
	}
	if next.Kind == Rocket {
		return true
	}
	if next.Kind == Bomb && prev.Kind != Bomb {
		return true
	}
	if prev.Kind == Bomb && next.Kind != Bomb {
		return false
	}
	if prev.Kind != next.Kind {
		return false
	}
	switch prev.Kind {
	case Straight, DoubleStraight, Airplane:
		return prev.Size == next.Size && next.MainRank > prev.MainRank
	default:
		return next.MainRank > prev.MainRank
	}
}

func rankWithCount(counts map[deck.Rank]int, want int) (deck.Rank, bool) {
	for rank, count := range counts {
		if count == want {
			return rank, true
		}
	}
	return 0, false
}

func countsWith(counts map[deck.Rank]int, want int) int {
	total := 0
	for _, count := range counts {
		if count == want {
			total++
		}
	}
	return total
}

func allCountsAre(counts map[deck.Rank]int, want int) bool {
	for _, count := range counts {
		if count != want {
			return false
		}
	}
	return true
}

func distinctRanks(counts map[deck.Rank]int) []deck.Rank {
	ranks := make([]deck.Rank, 0, len(counts))
	for rank := range counts {
		ranks = append(ranks, rank)
	}
	slices.Sort(ranks)
	return ranks
}

func straightable(ranks []deck.Rank) bool {
	for _, rank := range ranks {
		if !rank.Straightable() {
			return false
		}
	}
	return true
}

func consecutive(ranks []deck.Rank) bool {
	for i := 1; i < len(ranks); i++ {
		if ranks[i] != ranks[i-1]+1 {
			return false
		}
	}
	return true
}
