package domain

import "fmt"

// Suit identifies a tile family in the Taiwanese 16-tile set.
type Suit int

const (
	SuitDots Suit = iota
	SuitBamboo
	SuitCharacters
	SuitWinds
	SuitDragons
	SuitFlowers
)

var suitNames = [...]string{"dots", "bamboo", "characters", "winds", "dragons", "flowers"}

func (s Suit) String() string {
	if s < 0 || int(s) >= len(suitNames) {
		return fmt.Sprintf("suit(%d)", int(s))
	}
	return suitNames[s]
}

// IsHonor reports whether the suit forms triplets only (no sequences).
func (s Suit) IsHonor() bool {
	return s == SuitWinds || s == SuitDragons
}

// IsNumeric reports whether the suit allows consecutive-value sequences.
func (s Suit) IsNumeric() bool {
	return s == SuitDots || s == SuitBamboo || s == SuitCharacters
}

// Kind is the structural identity of a tile: suit plus face value.
// Many physical tiles share a kind; rule checks care only about kinds.
type Kind struct {
	Suit  Suit `json:"suit"`
	Value int  `json:"value"` // 1-9 simples, 1-4 winds, 1-3 dragons, 1-8 flowers
}

// KindCount is the number of structural (non-flower) kinds a hand can hold.
const KindCount = 34

// Index maps a non-flower kind onto a dense 0..33 histogram slot:
// dots 0-8, bamboo 9-17, characters 18-26, winds 27-30, dragons 31-33.
func (k Kind) Index() int {
	switch k.Suit {
	case SuitDots:
		return k.Value - 1
	case SuitBamboo:
		return 9 + k.Value - 1
	case SuitCharacters:
		return 18 + k.Value - 1
	case SuitWinds:
		return 27 + k.Value - 1
	case SuitDragons:
		return 31 + k.Value - 1
	}
	panic(fmt.Sprintf("no histogram index for %v", k))
}

// KindAt is the inverse of Kind.Index.
func KindAt(index int) Kind {
	switch {
	case index < 9:
		return Kind{Suit: SuitDots, Value: index + 1}
	case index < 18:
		return Kind{Suit: SuitBamboo, Value: index - 9 + 1}
	case index < 27:
		return Kind{Suit: SuitCharacters, Value: index - 18 + 1}
	case index < 31:
		return Kind{Suit: SuitWinds, Value: index - 27 + 1}
	case index < 34:
		return Kind{Suit: SuitDragons, Value: index - 31 + 1}
	}
	panic(fmt.Sprintf("no kind at index %d", index))
}

func (k Kind) IsFlower() bool {
	return k.Suit == SuitFlowers
}

func (k Kind) String() string {
	return fmt.Sprintf("%d-%s", k.Value, k.Suit)
}

// Tile is one physical tile. ID is unique per tile instance within a wall
// even though four tiles share each non-flower kind.
type Tile struct {
	ID int `json:"id"`
	Kind
}

// Wind is a seat wind assigned during dealer determination.
type Wind int

const (
	WindEast Wind = iota
	WindSouth
	WindWest
	WindNorth
)

var windNames = [...]string{"east", "south", "west", "north"}

func (w Wind) String() string {
	if w < 0 || int(w) >= len(windNames) {
		return fmt.Sprintf("wind(%d)", int(w))
	}
	return windNames[w]
}

// NewTileSet returns the full 144-tile set in canonical order: four copies of
// each of the 34 structural kinds plus the eight unique flowers.
func NewTileSet() []Tile {
	tiles := make([]Tile, 0, 144)
	id := 0
	for index := 0; index < KindCount; index++ {
		for copyN := 0; copyN < 4; copyN++ {
			tiles = append(tiles, Tile{ID: id, Kind: KindAt(index)})
			id++
		}
	}
	for value := 1; value <= 8; value++ {
		tiles = append(tiles, Tile{ID: id, Kind: Kind{Suit: SuitFlowers, Value: value}})
		id++
	}
	return tiles
}

// Wall is the shuffled draw pile. Normal draws consume the front; flower and
// kong replacements consume the tail. A drawn tile never returns.
type Wall struct {
	tiles []Tile
	head  int
	tail  int
}

// NewWall wraps an already-shuffled tile sequence.
func NewWall(tiles []Tile) *Wall {
	return &Wall{tiles: tiles, head: 0, tail: len(tiles)}
}

// Remaining reports how many tiles are still drawable.
func (w *Wall) Remaining() int {
	return w.tail - w.head
}

// Draw pops the next tile from the front of the wall.
func (w *Wall) Draw() (Tile, bool) {
	if w.head >= w.tail {
		return Tile{}, false
	}
	t := w.tiles[w.head]
	w.head++
	return t, true
}

// DrawTail pops a replacement tile from the back of the wall.
func (w *Wall) DrawTail() (Tile, bool) {
	if w.head >= w.tail {
		return Tile{}, false
	}
	w.tail--
	return w.tiles[w.tail], true
}
