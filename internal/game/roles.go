package game

import (
	"math/rand"

	"github.com/scythe504/mafia-backend/internal"
)

// MafiaCount returns how many Mafia a table of n players gets.
func MafiaCount(n int) int {
	switch {
	case n >= 13:
		return 4
	case n >= 9:
		return 3
	default:
		return 2
	}
}

// RoleDeck builds the unshuffled roles for n players: the Mafia, one Doctor,
// one Detective and Town for the rest.
func RoleDeck(n int) []internal.Role {
	deck := make([]internal.Role, 0, n)
	for i := 0; i < MafiaCount(n); i++ {
		deck = append(deck, internal.RoleMafia)
	}
	deck = append(deck, internal.RoleDoctor, internal.RoleDetective)
	for len(deck) < n {
		deck = append(deck, internal.RoleTown)
	}
	return deck
}

// ShuffleRoles is a Fisher-Yates shuffle in place.
func ShuffleRoles(rng *rand.Rand, roles []internal.Role) {
	for i := len(roles) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		roles[i], roles[j] = roles[j], roles[i]
	}
}

// AssignRoles deals a shuffled deck to players in list order and marks all alive.
// Callers guarantee at least MinPlayersToStart players.
func AssignRoles(rng *rand.Rand, players []*internal.Player) {
	deck := RoleDeck(len(players))
	ShuffleRoles(rng, deck)
	for i, p := range players {
		p.Role = deck[i]
		p.IsAlive = true
	}
}

func (r *Registry) assignRoles(room *internal.Room) {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	AssignRoles(r.rng, room.Players)
}

func roleLabel(role internal.Role) string {
	switch role {
	case internal.RoleMafia:
		return "a member of the Mafia"
	case internal.RoleDoctor:
		return "the Doctor"
	case internal.RoleDetective:
		return "the Detective"
	default:
		return "a Townsperson"
	}
}
