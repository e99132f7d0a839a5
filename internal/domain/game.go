package domain

// Phase is the top-level lifecycle stage of a hand.
type Phase string

const (
	// PhaseInit covers dealer determination and the deal.
	PhaseInit Phase = "init"
	// PhaseFlowers is the pre-play flower replacement sweep.
	PhaseFlowers Phase = "flowers"
	// PhasePlaying is the draw/discard/claim loop.
	PhasePlaying Phase = "playing"
	// PhaseEnded is terminal for the hand.
	PhaseEnded Phase = "ended"
)

// Step is the sub-state within PhasePlaying.
type Step string

const (
	// StepNone applies outside the playing phase.
	StepNone Step = ""
	// StepAwaitDiscard means the turn seat holds an extra tile and must discard.
	StepAwaitDiscard Step = "await_discard"
	// StepAwaitClaims means a discard is on the table and claim responses are
	// being collected.
	StepAwaitClaims Step = "await_claims"
)

// MeldType distinguishes exposed sets.
type MeldType string

const (
	MeldPong MeldType = "pong"
	MeldKong MeldType = "kong"
	MeldChow MeldType = "chow"
)

// Meld is an exposed set owned by one seat, immutable once formed.
type Meld struct {
	Type     MeldType `json:"type"`
	Tiles    []Tile   `json:"tiles"`
	FromSeat int      `json:"from_seat"` // seat whose discard completed the set
}

// Player holds one seat's state for the current hand.
type Player struct {
	UserID       string
	Seat         int
	Hand         []Tile
	Discards     []Tile
	Melds        []Meld
	FlowerCount  int
	IsDealer     bool
	IsRiichi     bool
	RiichiMarker int // index into Discards of the locking discard, -1 until set
	LastDrawn    int // index into Hand of the most recent draw, -1 if none
	Score        int64
}

// NewPlayer returns a fresh seat state carrying over only the cumulative score.
func NewPlayer(userID string, seat int, score int64) *Player {
	return &Player{
		UserID:       userID,
		Seat:         seat,
		RiichiMarker: -1,
		LastDrawn:    -1,
		Score:        score,
	}
}

// AddTile appends a drawn tile and records it as the latest draw.
func (p *Player) AddTile(t Tile) {
	p.Hand = append(p.Hand, t)
	p.LastDrawn = len(p.Hand) - 1
}

// RemoveTileAt removes and returns the hand tile at the given index.
func (p *Player) RemoveTileAt(i int) Tile {
	assert(i >= 0 && i < len(p.Hand), "seat %d: remove index %d out of range %d", p.Seat, i, len(p.Hand))
	t := p.Hand[i]
	p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
	if p.LastDrawn == i {
		p.LastDrawn = -1
	} else if p.LastDrawn > i {
		p.LastDrawn--
	}
	return t
}

// RemoveKindTiles extracts n tiles of the given kind for meld formation.
func (p *Player) RemoveKindTiles(k Kind, n int) []Tile {
	taken := make([]Tile, 0, n)
	for i := len(p.Hand) - 1; i >= 0 && len(taken) < n; i-- {
		if p.Hand[i].Kind == k {
			taken = append(taken, p.RemoveTileAt(i))
		}
	}
	assert(len(taken) == n, "seat %d: wanted %d of %v, found %d", p.Seat, n, k, len(taken))
	return taken
}

// PopFlowers strips every flower from the hand in one pass.
func (p *Player) PopFlowers() []Tile {
	var flowers []Tile
	kept := p.Hand[:0]
	for _, t := range p.Hand {
		if t.IsFlower() {
			flowers = append(flowers, t)
		} else {
			kept = append(kept, t)
		}
	}
	p.Hand = kept
	if len(flowers) > 0 {
		p.LastDrawn = -1
	}
	return flowers
}

// Discard is the single outstanding discarded tile awaiting claims.
type Discard struct {
	Tile Tile `json:"tile"`
	Seat int  `json:"seat"`
}

// WinType distinguishes how a hand ended.
type WinType string

const (
	WinZimo WinType = "zimo" // self-draw
	WinRon  WinType = "ron"  // won off a discard
	WinNone WinType = "draw" // wall exhaustion
)

// HandResult is the terminal outcome of one hand.
type HandResult struct {
	WinnerSeat  int      `json:"winner_seat"` // -1 on wall exhaustion
	WinType     WinType  `json:"win_type"`
	WinningTile *Tile    `json:"winning_tile,omitempty"`
	LoserSeat   int      `json:"loser_seat"` // discarder on a ron, -1 otherwise
	Fan         int      `json:"fan"`
	Deltas      [4]int64 `json:"deltas"`
}

// ActionKind is an operation a seat may currently take.
type ActionKind string

const (
	ActionPong   ActionKind = "PONG"
	ActionKong   ActionKind = "KONG"
	ActionChow   ActionKind = "CHOW"
	ActionHu     ActionKind = "HU"
	ActionPass   ActionKind = "PASS"
	ActionRichii ActionKind = "RICHII"
)

// Game is the authoritative aggregate for one hand. It is owned by a single
// goroutine (the match loop); rule functions receive snapshots and return
// verdicts without retaining references.
type Game struct {
	Phase Phase
	Step  Step

	Wall    *Wall
	Players [4]*Player
	Dealer  int
	Turn    int
	Dice    [2]int

	LastDiscard *Discard
	Reactions   map[int]*Reaction
	Offers      map[int][]ActionKind // turn-seat self offers (HU, RICHII)

	Result *HandResult
}

// NextSeat returns the seat after s in turn order.
func NextSeat(s int) int {
	return (s + 1) % 4
}

// SeatDistance is the clockwise distance from seat `from` to seat `to`.
func SeatDistance(from, to int) int {
	return (to - from + 4) % 4
}

// SeatWind derives a seat's wind from the dealer seat (dealer is east).
func (g *Game) SeatWind(seat int) Wind {
	return Wind(SeatDistance(g.Dealer, seat))
}

// Player returns the seat's state.
func (g *Game) Player(seat int) *Player {
	assert(seat >= 0 && seat < 4, "seat %d out of range", seat)
	return g.Players[seat]
}

// OfferedTo reports whether the action is currently offered to the seat,
// either as a turn-seat offer or within a claim reaction.
func (g *Game) OfferedTo(seat int, action ActionKind) bool {
	for _, a := range g.Offers[seat] {
		if a == action {
			return true
		}
	}
	if r, ok := g.Reactions[seat]; ok {
		if action == ActionPass {
			return !r.Responded
		}
		for _, c := range r.Claims {
			if !r.Responded && c.Type.Action() == action {
				return true
			}
		}
	}
	return false
}

// ClearOffers drops all pending turn-seat offers.
func (g *Game) ClearOffers() {
	g.Offers = nil
}
