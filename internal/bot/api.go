package bot

import (
	"mahjong/internal/domain"
)

// Brain is the interface all bot strategies implement. Implementations read
// the game but never mutate it; the match loop applies the returned decision
// through the service layer.
type Brain interface {
	// DecideDiscard picks the hand index to throw when the seat holds the turn.
	DecideDiscard(g *domain.Game, seat int) int
	// DecideClaim answers an outstanding claim offer with one of the offered
	// actions or a pass.
	DecideClaim(g *domain.Game, seat int, offered []domain.ActionKind) domain.ActionKind
	// TakeSelfDrawWin reports whether the seat declares an offered self-draw win.
	TakeSelfDrawWin(g *domain.Game, seat int) bool
}
