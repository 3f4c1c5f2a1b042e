package game

import "github.com/scythe504/mafia-backend/internal"

// EvaluateWinner returns the winning faction, or FactionNone while the game goes on.
func EvaluateWinner(players []*internal.Player) internal.Faction {
	mafia, others := 0, 0
	for _, p := range players {
		if !p.IsAlive {
			continue
		}
		if p.IsMafia() {
			mafia++
		} else {
			others++
		}
	}
	switch {
	case mafia == 0:
		return internal.FactionTown
	case mafia >= others:
		return internal.FactionMafia
	default:
		return internal.FactionNone
	}
}
