package internal

// PublicPlayer is what every participant may see about a player.
type PublicPlayer struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IsAlive     bool   `json:"is_alive"`
	IsConnected bool   `json:"is_connected"`
	Role        Role   `json:"role,omitempty"` // only once dead
}

// FinalPlayer is a fully revealed player, sent at game over.
type FinalPlayer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	IsAlive  bool   `json:"is_alive"`
}

func (p *Player) IsMafia() bool {
	return p.Role == RoleMafia
}

func (p *Player) Faction() Faction {
	if p.Role == "" {
		return FactionNone
	}
	if p.IsMafia() {
		return FactionMafia
	}
	return FactionTown
}

func (p *Player) ToPublicPlayer() PublicPlayer {
	pub := PublicPlayer{
		ID:          p.Id,
		Username:    p.Username,
		IsAlive:     p.IsAlive,
		IsConnected: p.IsConnected,
	}
	if !p.IsAlive {
		pub.Role = p.Role
	}
	return pub
}

func (p *Player) ToFinalPlayer() FinalPlayer {
	return FinalPlayer{
		ID:       p.Id,
		Username: p.Username,
		Role:     p.Role,
		IsAlive:  p.IsAlive,
	}
}
