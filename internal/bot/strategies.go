package bot

import (
	"math/rand"

	"mahjong/internal/domain"
)

// EasyBot throws random tiles and only ever claims a win.
type EasyBot struct {
	Rng *rand.Rand
}

func (b *EasyBot) DecideDiscard(g *domain.Game, seat int) int {
	hand := g.Player(seat).Hand
	if len(hand) == 0 {
		return 0
	}
	return b.Rng.Intn(len(hand))
}

func (b *EasyBot) DecideClaim(g *domain.Game, seat int, offered []domain.ActionKind) domain.ActionKind {
	for _, a := range offered {
		if a == domain.ActionHu {
			return a
		}
	}
	return domain.ActionPass
}

func (b *EasyBot) TakeSelfDrawWin(g *domain.Game, seat int) bool {
	return true
}

// StandardBot scores each hand tile's set-building potential and sheds the
// weakest one: lone honors go first, then stranded terminals. It claims wins
// and kongs but leaves pongs and chows alone.
type StandardBot struct {
	Rng *rand.Rand
	// WinRate is the probability of declaring an offered self-draw win; a
	// value outside (0,1] means always declare.
	WinRate float64
}

func (b *StandardBot) DecideDiscard(g *domain.Game, seat int) int {
	hand := g.Player(seat).Hand
	if len(hand) == 0 {
		return 0
	}
	worst, worstScore := 0, tileUsefulness(hand, 0, DefaultTuning)
	for i := 1; i < len(hand); i++ {
		if score := tileUsefulness(hand, i, DefaultTuning); score < worstScore {
			worst, worstScore = i, score
		}
	}
	return worst
}

func (b *StandardBot) DecideClaim(g *domain.Game, seat int, offered []domain.ActionKind) domain.ActionKind {
	for _, a := range offered {
		if a == domain.ActionHu {
			return a
		}
	}
	for _, a := range offered {
		if a == domain.ActionKong {
			return a
		}
	}
	return domain.ActionPass
}

func (b *StandardBot) TakeSelfDrawWin(g *domain.Game, seat int) bool {
	if b.WinRate <= 0 || b.WinRate > 1 {
		return true
	}
	return b.Rng.Float64() < b.WinRate
}

// SharpBot plays like the standard brain but also takes every meld it is
// offered, trading hand flexibility for tempo.
type SharpBot struct {
	StandardBot
}

func (b *SharpBot) DecideClaim(g *domain.Game, seat int, offered []domain.ActionKind) domain.ActionKind {
	order := []domain.ActionKind{domain.ActionHu, domain.ActionKong, domain.ActionPong, domain.ActionChow}
	for _, want := range order {
		for _, a := range offered {
			if a == want {
				return a
			}
		}
	}
	return domain.ActionPass
}

// tileUsefulness rates the hand tile at i: copies already in hand, nearby run
// material for numeric suits, penalties for lone honors and terminals.
func tileUsefulness(hand []domain.Tile, i int, w DiscardWeights) float64 {
	t := hand[i]
	copies := 0
	score := 0.0
	for j, other := range hand {
		if j == i {
			continue
		}
		if other.Kind == t.Kind {
			copies++
			continue
		}
		if t.Suit.IsNumeric() && other.Suit == t.Suit {
			gap := other.Value - t.Value
			if gap < 0 {
				gap = -gap
			}
			if gap == 1 {
				score += w.NeighborBonus + w.AdjacentBonus
			} else if gap == 2 {
				score += w.NeighborBonus
			}
		}
	}
	score += float64(copies) * w.PairBonus

	if t.Suit.IsHonor() && copies == 0 {
		score -= w.IsolatedHonorPenalty
	}
	if t.Suit.IsNumeric() && (t.Value == 1 || t.Value == 9) {
		score -= w.TerminalPenalty
	}
	return score
}
