package server

import (
	"fmt"
	"math/bits"
)

var nameAdjectives = []string{
	"Brave", "Calm", "Swift", "Mighty", "Lucky", "Clever", "Silent",
	"Fierce", "Nimble", "Rapid", "Steady", "Bold", "Witty", "Sunny",
	"Vivid", "Lively", "Cosmic", "Iron", "Silver", "Golden",
}

var nameNouns = []string{
	"Panda", "Tiger", "Falcon", "Wolf", "Dragon", "Fox", "Lion",
	"Eagle", "Shark", "Otter", "Hawk", "Bear", "Leopard", "Raven",
	"Phoenix", "Panther", "Dolphin", "Rhino", "Viper", "Cobra",
}

// DisplayName derives a stable human-readable name from a user id. The noun
// index rotates the id so adjective and noun do not move in lockstep.
func DisplayName(userID uint64) string {
	adjective := nameAdjectives[userID%uint64(len(nameAdjectives))]
	noun := nameNouns[bits.RotateLeft64(userID, 17)%uint64(len(nameNouns))]
	return fmt.Sprintf("%s_%s", adjective, noun)
}
