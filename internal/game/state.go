package game

import (
	"errors"

	"github.com/lox/doudizhu/internal/deck"
	"github.com/lox/doudizhu/internal/randutil"
)

// Engine errors. The room layer maps these onto its own taxonomy.
var (
	ErrNotYourTurn      = errors.New("not your turn")
	ErrCardsNotOwned    = errors.New("cards not owned")
	ErrInvalidPlay      = errors.New("invalid play")
	ErrMustBeatPrevious = errors.New("must beat previous play")
	ErrGameOver         = errors.New("game over")
	ErrCannotPass       = errors.New("cannot pass")
)

// landlordSeedMask decorrelates the landlord draw from the deal shuffle:
// both derive from the same seed but through independent streams.
const landlordSeedMask = 0x9e3779b97f4a7c15

// NoSeat marks the absence of a seat index (no standing play, no winner).
const NoSeat = -1

// PlayerState is one seat in an active game.
type PlayerState struct {
	ID   uint64
	Hand []deck.Card
	Out  bool
}

// State is the authoritative state of one deal. It is a pure state machine:
// no I/O, no clocks, deterministic given the seed.
type State struct {
	Players    [3]PlayerState
	Landlord   int
	Turn       int
	LastPlay   *Play
	LastPlayer int
	PassCount  int
	DeckSeed   uint64
}

// PlayOutcome reports the result of an accepted play.
type PlayOutcome struct {
	Play     Play
	NextTurn int
	// Winner is the seat that just emptied its hand, or NoSeat.
	Winner int
}

// NewState deals a fresh game. The landlord seat is drawn from a source
// seeded independently of the shuffle, receives the 3-card bottom, and
// leads. Same seed, same deal, same landlord.
func NewState(playerIDs [3]uint64, seed uint64) *State {
	hands, bottom := deck.Deal(seed)
	landlord := int(randutil.New(seed ^ landlordSeedMask).Uint64() % 3)
	hands[landlord] = append(hands[landlord], bottom...)
	for i := range hands {
		deck.SortHand(hands[i])
	}
	state := &State{
		Landlord:   landlord,
		Turn:       landlord,
		LastPlayer: NoSeat,
		DeckSeed:   seed,
	}
	for i := range state.Players {
		state.Players[i] = PlayerState{ID: playerIDs[i], Hand: hands[i]}
	}
	return state
}

// PlayerIndex returns the seat of the given player id.
func (s *State) PlayerIndex(playerID uint64) (int, bool) {
	for i, player := range s.Players {
		if player.ID == playerID {
			return i, true
		}
	}
	return 0, false
}

// Finished reports whether any seat has gone out. A finished game rejects
// all further plays and passes until the room restarts it.
func (s *State) Finished() bool {
	for _, player := range s.Players {
		if player.Out {
			return true
		}
	}
	return false
}

// ApplyPlay validates and applies a play by the given seat: the seat must
// hold the turn, the cards must classify, beat the standing play unless the
// seat led it, and be owned with sufficient multiplicity. On success the
// cards leave the hand, the play becomes the standing play, and the turn
// advances.
func (s *State) ApplyPlay(seat int, cards []deck.Card) (PlayOutcome, error) {
	if s.Finished() {
		return PlayOutcome{}, ErrGameOver
	}
	if seat != s.Turn {
		return PlayOutcome{}, ErrNotYourTurn
	}
	play, ok := Classify(cards)
	if !ok {
		return PlayOutcome{}, ErrInvalidPlay
	}
	// The beat constraint is skipped when the standing play belongs to this
	// seat: both opponents passed and the seat leads a new trick.
	if s.LastPlay != nil && s.LastPlayer != NoSeat && s.LastPlayer != seat {
		if !CanBeat(*s.LastPlay, play) {
			return PlayOutcome{}, ErrMustBeatPrevious
		}
	}
	hand := s.Players[seat].Hand
	needed := make(map[deck.Card]int, len(cards))
	for _, card := range cards {
		needed[card]++
	}
	for card, count := range needed {
		owned := 0
		for _, held := range hand {
			if held == card {
				owned++
			}
		}
		if owned < count {
			return PlayOutcome{}, ErrCardsNotOwned
		}
	}
	for _, card := range cards {
		for i, held := range hand {
			if held == card {
				hand = append(hand[:i], hand[i+1:]...)
				break
			}
		}
	}
	s.Players[seat].Hand = hand
	s.LastPlay = &play
	s.LastPlayer = seat
	s.PassCount = 0
	nextTurn := (seat + 1) % 3
	s.Turn = nextTurn
	outcome := PlayOutcome{Play: play, NextTurn: nextTurn, Winner: NoSeat}
	if len(hand) == 0 {
		s.Players[seat].Out = true
		outcome.Winner = seat
	}
	return outcome, nil
}

// Pass records a pass by the given seat and returns the new turn. Passing
// is illegal on a free lead or on the seat's own standing play. The second
// consecutive pass resets the trick: the standing play clears and the next
// seat leads freely.
func (s *State) Pass(seat int) (int, error) {
	if s.Finished() {
		return 0, ErrGameOver
	}
	if seat != s.Turn {
		return 0, ErrNotYourTurn
	}
	if s.LastPlay == nil || s.LastPlayer == seat {
		return 0, ErrCannotPass
	}
	if s.PassCount < 2 {
		s.PassCount++
	}
	if s.PassCount >= 2 {
		s.LastPlay = nil
		s.LastPlayer = NoSeat
		s.PassCount = 0
	}
	s.Turn = (s.Turn + 1) % 3
	return s.Turn, nil
}
