package app

import "mahjong/internal/domain"

// ScoreTable converts a hand result into per-seat score deltas and applies
// them to the players' cumulative scores.
type ScoreTable interface {
	Settle(g *domain.Game, result *domain.HandResult)
}

// DefaultScoreTable pays a flat unit per fan. A self-draw collects from all
// three opponents; a win off a discard collects from the discarder alone. A
// drawn hand moves nothing.
type DefaultScoreTable struct {
	Unit int64
}

func (t DefaultScoreTable) Settle(g *domain.Game, result *domain.HandResult) {
	unit := t.Unit
	if unit <= 0 {
		unit = 1
	}

	switch result.WinType {
	case domain.WinZimo:
		base := unit * int64(result.Fan)
		for seat := range result.Deltas {
			if seat == result.WinnerSeat {
				result.Deltas[seat] = 3 * base
			} else {
				result.Deltas[seat] = -base
			}
		}
	case domain.WinRon:
		base := unit * int64(result.Fan)
		result.Deltas[result.WinnerSeat] = base
		result.Deltas[result.LoserSeat] = -base
	case domain.WinNone:
		// Exhausted wall: no movement.
	}

	for seat, delta := range result.Deltas {
		g.Player(seat).Score += delta
	}
}
