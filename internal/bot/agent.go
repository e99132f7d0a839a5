package bot

import (
	"mahjong/internal/domain"
)

// Agent represents an autonomous bot player bound to a seat by its user ID.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// SeatIn resolves the agent's seat in the given game, or -1 when it is not
// seated.
func (a *Agent) SeatIn(g *domain.Game) int {
	for _, p := range g.Players {
		if p != nil && p.UserID == a.ID {
			return p.Seat
		}
	}
	return -1
}

// PickDiscard chooses the tile to throw on the agent's turn.
func (a *Agent) PickDiscard(g *domain.Game) int {
	seat := a.SeatIn(g)
	if seat < 0 {
		return 0
	}
	return a.Strategy.DecideDiscard(g, seat)
}

// RespondToClaim answers a claim offer for the agent's seat.
func (a *Agent) RespondToClaim(g *domain.Game, offered []domain.ActionKind) domain.ActionKind {
	seat := a.SeatIn(g)
	if seat < 0 {
		return domain.ActionPass
	}
	return a.Strategy.DecideClaim(g, seat, offered)
}

// WantsSelfDrawWin reports whether the agent takes an offered self-draw win.
func (a *Agent) WantsSelfDrawWin(g *domain.Game) bool {
	seat := a.SeatIn(g)
	if seat < 0 {
		return false
	}
	return a.Strategy.TakeSelfDrawWin(g, seat)
}
