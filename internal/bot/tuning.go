package bot

// DiscardWeights scores how much a hand tile contributes to future sets. The
// standard brain throws the lowest-scoring tile.
type DiscardWeights struct {
	// PairBonus rewards each extra copy of the tile already in hand.
	PairBonus float64
	// NeighborBonus rewards numeric tiles within run distance of the tile.
	NeighborBonus float64
	// AdjacentBonus rewards directly adjacent numeric tiles over gapped ones.
	AdjacentBonus float64
	// IsolatedHonorPenalty punishes a lone wind or dragon.
	IsolatedHonorPenalty float64
	// TerminalPenalty punishes ones and nines, which join fewer runs.
	TerminalPenalty float64
}

// DefaultTuning keeps pairs and run material, sheds lone honors first and
// terminals next.
var DefaultTuning = DiscardWeights{
	PairBonus:            3.0,
	NeighborBonus:        1.0,
	AdjacentBonus:        0.5,
	IsolatedHonorPenalty: 5.0,
	TerminalPenalty:      0.5,
}
