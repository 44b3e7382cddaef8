package deck

import "fmt"

// Suit represents a card suit. Jokers carry the distinguished Joker suit.
type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
	Joker
)

// Order returns the tie-break weight used when sorting a hand for display.
// Suit never affects play strength.
func (s Suit) Order() int {
	return int(s) + 1
}

// Char returns the suit letter used in card codes.
func (s Suit) Char() byte {
	switch s {
	case Clubs:
		return 'C'
	case Diamonds:
		return 'D'
	case Hearts:
		return 'H'
	case Spades:
		return 'S'
	default:
		return 'J'
	}
}

// SuitFromChar parses a suit letter from a card code. Jokers have no suit
// letter and are handled by ParseCard directly.
func SuitFromChar(ch byte) (Suit, bool) {
	switch ch {
	case 'C':
		return Clubs, true
	case 'D':
		return Diamonds, true
	case 'H':
		return Hearts, true
	case 'S':
		return Spades, true
	default:
		return 0, false
	}
}

// Rank represents a card rank, ordered by play strength. The numeric values
// leave a gap between Ace and Two so that consecutive ranks differ by
// exactly one only within the straightable range 3..A.
type Rank int

const (
	Three Rank = iota + 3
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const (
	Two        Rank = 16
	BlackJoker Rank = 17
	RedJoker   Rank = 18
)

var rankTokens = map[Rank]string{
	Three: "3", Four: "4", Five: "5", Six: "6", Seven: "7",
	Eight: "8", Nine: "9", Ten: "10", Jack: "J", Queen: "Q",
	King: "K", Ace: "A", Two: "2", BlackJoker: "BJ", RedJoker: "RJ",
}

var rankNames = map[Rank]string{
	Three: "Three", Four: "Four", Five: "Five", Six: "Six", Seven: "Seven",
	Eight: "Eight", Nine: "Nine", Ten: "Ten", Jack: "Jack", Queen: "Queen",
	King: "King", Ace: "Ace", Two: "Two", BlackJoker: "BlackJoker", RedJoker: "RedJoker",
}

// Token returns the rank token used in card codes ("3".."10", "J".."A", "2",
// "BJ", "RJ").
func (r Rank) Token() string {
	if tok, ok := rankTokens[r]; ok {
		return tok
	}
	return "?"
}

// String returns the rank name used in play views (e.g. "Queen",
// "RedJoker").
func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return "?"
}

// RankFromToken parses a rank token from a card code.
func RankFromToken(token string) (Rank, bool) {
	for rank, tok := range rankTokens {
		if tok == token {
			return rank, true
		}
	}
	return 0, false
}

// IsJoker reports whether the rank is one of the two jokers.
func (r Rank) IsJoker() bool {
	return r == BlackJoker || r == RedJoker
}

// Straightable reports whether the rank may appear in a straight, double
// straight, or airplane. Sequences never include 2 or the jokers.
func (r Rank) Straightable() bool {
	return r != Two && !r.IsJoker()
}

// Card is a playing card identified by rank and suit.
type Card struct {
	Rank Rank
	Suit Suit
}

// Code returns the compact textual code for the card: one suit letter
// followed by the rank token, or the literal "BJ"/"RJ" for jokers.
func (c Card) Code() string {
	if c.Rank.IsJoker() {
		return c.Rank.Token()
	}
	return fmt.Sprintf("%c%s", c.Suit.Char(), c.Rank.Token())
}

// String returns the card code.
func (c Card) String() string {
	return c.Code()
}

// ParseCard parses a card code. It is the exact inverse of Code: every card
// in the deck round-trips, and any other string fails.
func ParseCard(code string) (Card, bool) {
	switch code {
	case "BJ":
		return Card{Rank: BlackJoker, Suit: Joker}, true
	case "RJ":
		return Card{Rank: RedJoker, Suit: Joker}, true
	}
	if len(code) < 2 {
		return Card{}, false
	}
	suit, ok := SuitFromChar(code[0])
	if !ok {
		return Card{}, false
	}
	rank, ok := RankFromToken(code[1:])
	if !ok || rank.IsJoker() {
		return Card{}, false
	}
	return Card{Rank: rank, Suit: suit}, true
}

// ParseCards parses a list of card codes, failing on the first invalid code.
func ParseCards(codes []string) ([]Card, error) {
	cards := make([]Card, 0, len(codes))
	for _, code := range codes {
		card, ok := ParseCard(code)
		if !ok {
			return nil, fmt.Errorf("invalid card code %q", code)
		}
		cards = append(cards, card)
	}
	return cards, nil
}
