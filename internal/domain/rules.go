package domain

import "fmt"

// suitRanges delimits each suit's slice of the kind histogram. The honor
// suits (winds, dragons) never form sequences.
var suitRanges = []struct {
	start, end int // [start, end) into the 34-slot histogram
	sequences  bool
}{
	{0, 9, true},    // dots
	{9, 18, true},   // bamboo
	{18, 27, true},  // characters
	{27, 31, false}, // winds
	{31, 34, false}, // dragons
}

// assert panics on a broken caller contract. Rule-engine inputs come from the
// engine's own bookkeeping, so a violation here is a bug, not a user error.
func assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// histogram counts the structural kinds in a hand, ignoring flowers.
func histogram(tiles []Tile, extra ...Kind) ([KindCount]int, int) {
	var counts [KindCount]int
	total := 0
	for _, t := range tiles {
		if t.IsFlower() {
			continue
		}
		counts[t.Index()]++
		total++
	}
	for _, k := range extra {
		assert(!k.IsFlower(), "flower kind %v cannot complete a hand", k)
		counts[k.Index()]++
		total++
	}
	return counts, total
}

// CheckWin reports whether the hand (plus an optional extra tile kind, e.g. a
// claimed discard) partitions into triplets/sequences and exactly one pair.
// Flowers are excluded from structural counting.
func CheckWin(tiles []Tile, extra ...Kind) bool {
	counts, total := histogram(tiles, extra...)
	if total%3 != 2 {
		return false
	}

	// Exactly one suit group may carry the pair. A remainder of 1 in any
	// group, or a second remainder-2 group, can never decompose.
	pairGroup := -1
	for g, r := range suitRanges {
		sum := 0
		for i := r.start; i < r.end; i++ {
			sum += counts[i]
		}
		switch sum % 3 {
		case 1:
			return false
		case 2:
			if pairGroup >= 0 {
				return false
			}
			pairGroup = g
		}
	}
	if pairGroup < 0 {
		return false
	}

	for g, r := range suitRanges {
		group := counts[r.start:r.end]
		if !decompose(group, g == pairGroup, r.sequences) {
			return false
		}
	}
	return true
}

// decompose runs the backtracking search over one suit's count array. When a
// pair is still owed it tries every value holding at least two tiles as the
// pair, then reduces the remainder greedily: triplet off the first occupied
// value, else a sequence starting there.
func decompose(counts []int, needPair bool, sequences bool) bool {
	if needPair {
		for v := range counts {
			if counts[v] < 2 {
				continue
			}
			counts[v] -= 2
			ok := decompose(counts, false, sequences)
			counts[v] += 2
			if ok {
				return true
			}
		}
		return false
	}

	v := 0
	for v < len(counts) && counts[v] == 0 {
		v++
	}
	if v == len(counts) {
		return true
	}

	if counts[v] >= 3 {
		counts[v] -= 3
		ok := decompose(counts, false, sequences)
		counts[v] += 3
		if ok {
			return true
		}
	}
	if sequences && v+2 < len(counts) && counts[v+1] > 0 && counts[v+2] > 0 {
		counts[v]--
		counts[v+1]--
		counts[v+2]--
		ok := decompose(counts, false, sequences)
		counts[v]++
		counts[v+1]++
		counts[v+2]++
		if ok {
			return true
		}
	}
	return false
}

// TenpaiWaits enumerates every kind that would complete the hand. Valid only
// for a hand about to draw (non-flower count ≡ 1 mod 3); flowers are never
// waits.
func TenpaiWaits(tiles []Tile) []Kind {
	_, total := histogram(tiles)
	assert(total%3 == 1, "tenpai check on hand of structural size %d", total)

	var waits []Kind
	for index := 0; index < KindCount; index++ {
		k := KindAt(index)
		if CheckWin(tiles, k) {
			waits = append(waits, k)
		}
	}
	return waits
}

// countKind returns how many hand tiles match the given kind.
func countKind(tiles []Tile, k Kind) int {
	n := 0
	for _, t := range tiles {
		if t.Kind == k {
			n++
		}
	}
	return n
}

// CanPong reports whether the hand holds at least two tiles matching the
// discard.
func CanPong(tiles []Tile, k Kind) bool {
	return countKind(tiles, k) >= 2
}

// CanKong reports whether the hand holds exactly three tiles matching the
// discard, so the discard completes an exposed kong.
func CanKong(tiles []Tile, k Kind) bool {
	return countKind(tiles, k) == 3
}

// chowPatterns lists the two-tile runs adjacent to a discarded value, in the
// fixed priority order the combination extractor must honor.
var chowPatterns = [3][2]int{{-2, -1}, {-1, 1}, {1, 2}}

// CanChow reports whether the hand can extend the discard into a run. Only
// numeric suits form runs.
func CanChow(tiles []Tile, k Kind) bool {
	return ChowCombination(tiles, k) != nil
}

// ChowCombination returns the two hand tiles forming the lowest-valued
// eligible run with the discard, checking {v-2,v-1}, {v-1,v+1}, {v+1,v+2} in
// that order. The fixed order keeps claim execution deterministic. Returns
// nil when no run exists.
func ChowCombination(tiles []Tile, k Kind) []Tile {
	if !k.Suit.IsNumeric() {
		return nil
	}
	for _, pattern := range chowPatterns {
		a := findKind(tiles, Kind{Suit: k.Suit, Value: k.Value + pattern[0]}, -1)
		if a < 0 {
			continue
		}
		b := findKind(tiles, Kind{Suit: k.Suit, Value: k.Value + pattern[1]}, a)
		if b < 0 {
			continue
		}
		return []Tile{tiles[a], tiles[b]}
	}
	return nil
}

// findKind returns the index of a hand tile of the given kind, skipping the
// excluded index, or -1. Out-of-range values simply never match.
func findKind(tiles []Tile, k Kind, exclude int) int {
	if k.Value < 1 || k.Value > 9 {
		return -1
	}
	for i, t := range tiles {
		if i != exclude && t.Kind == k {
			return i
		}
	}
	return -1
}
