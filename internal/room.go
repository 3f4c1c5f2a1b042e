package internal

import "strings"

// Methods (Room Struct). Callers hold room.Mu.

func (r *Room) GetPlayer(id string) *Player {
	for _, p := range r.Players {
		if p.Id == id {
			return p
		}
	}
	return nil
}

func (r *Room) GetPlayerByToken(token string) *Player {
	for _, p := range r.Players {
		if p.Token == token {
			return p
		}
	}
	return nil
}

func (r *Room) HasPlayerNamed(name string) bool {
	for _, p := range r.Players {
		if strings.EqualFold(p.Username, name) {
			return true
		}
	}
	return false
}

func (r *Room) RemovePlayer(id string) *Player {
	for i, p := range r.Players {
		if p.Id == id {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return p
		}
	}
	return nil
}

func (r *Room) IsAlive(id string) bool {
	p := r.GetPlayer(id)
	return p != nil && p.IsAlive
}

func (r *Room) IsAliveMafia(id string) bool {
	p := r.GetPlayer(id)
	return p != nil && p.IsAlive && p.IsMafia()
}

func (r *Room) AlivePlayer(role Role) *Player {
	for _, p := range r.Players {
		if p.IsAlive && p.Role == role {
			return p
		}
	}
	return nil
}

func (r *Room) MafiaMembers() []*Player {
	members := make([]*Player, 0, 4)
	for _, p := range r.Players {
		if p.IsMafia() {
			members = append(members, p)
		}
	}
	return members
}

func (r *Room) HostPresent() bool {
	return r.Host != nil && r.Host.ConnID != ""
}

// HasConnections reports whether anyone, host or player, is still attached.
func (r *Room) HasConnections() bool {
	if r.HostPresent() {
		return true
	}
	for _, p := range r.Players {
		if p.IsConnected {
			return true
		}
	}
	return false
}

func (r *Room) Tokens() []string {
	tokens := make([]string, 0, len(r.Players)+1)
	if r.Host != nil {
		tokens = append(tokens, r.Host.Token)
	}
	for _, p := range r.Players {
		tokens = append(tokens, p.Token)
	}
	return tokens
}
