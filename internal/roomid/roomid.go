// Package roomid generates the 6-character room codes players type to join
// a room.
package roomid

// Room codes draw from uppercase letters and digits.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length of every room code.
const Length = 6

// RandSource supplies randomness, injectable so tests and the room manager
// can seed id generation deterministically. *math/rand/v2.Rand satisfies it.
type RandSource interface {
	IntN(n int) int
}

// Generator produces room codes from a RandSource.
type Generator struct {
	src RandSource
}

// NewGenerator creates a generator over the given source.
func NewGenerator(src RandSource) *Generator {
	return &Generator{src: src}
}

// Generate returns a fresh 6-character code. Uniqueness is the caller's
// concern; the room manager re-draws on collision.
func (g *Generator) Generate() string {
	code := make([]byte, Length)
	for i := range code {
		code[i] = alphabet[g.src.IntN(len(alphabet))]
	}
	return string(code)
}

// Valid reports whether id has the shape of a room code.
func Valid(id string) bool {
	if len(id) != Length {
		return false
	}
	for i := 0; i < len(id); i++ {
		ch := id[i]
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return false
		}
	}
	return true
}
