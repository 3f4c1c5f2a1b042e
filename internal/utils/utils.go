package utils

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/scythe504/mafia-backend/internal"
)

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// Alphabet excludes ambiguous characters: 0, O, 1, I, L
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateRoomCode returns a short human-typable room code.
func GenerateRoomCode() (string, error) {
	code := make([]byte, internal.RoomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// NormalizeRoomCode upper-cases and trims a code typed by a user.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateToken returns an unguessable reconnection token.
func GenerateToken() string {
	return uuid.NewString()
}

// GenerateID returns a public identifier for a player or connection.
func GenerateID() string {
	return uuid.NewString()
}
