package domain

// ClaimType orders the claims a discard can trigger.
type ClaimType int

const (
	ClaimChow ClaimType = iota
	ClaimPong
	ClaimKong
	ClaimHu
)

// Claim priorities. Kong and Pong share a band because a seat can only ever
// present one of the two for a given discard (three matching tiles means
// kong, two means pong).
const (
	PriorityHu   = 100
	PriorityKong = 50
	PriorityPong = 50
	PriorityChow = 10
)

var claimPriorities = map[ClaimType]int{
	ClaimHu:   PriorityHu,
	ClaimKong: PriorityKong,
	ClaimPong: PriorityPong,
	ClaimChow: PriorityChow,
}

var claimActions = map[ClaimType]ActionKind{
	ClaimHu:   ActionHu,
	ClaimKong: ActionKong,
	ClaimPong: ActionPong,
	ClaimChow: ActionChow,
}

// Priority returns the claim's numeric rank for arbitration.
func (t ClaimType) Priority() int {
	return claimPriorities[t]
}

// Action maps the claim to the operation offered to the seat.
func (t ClaimType) Action() ActionKind {
	return claimActions[t]
}

// Claim is an ephemeral claim candidate, created when a discard is evaluated
// and consumed within the same resolution cycle.
type Claim struct {
	Seat     int
	Type     ClaimType
	Priority int
}

// Reaction tracks one seat's pending response to an outstanding discard.
type Reaction struct {
	Claims    []Claim // offered, highest priority first
	Chosen    *Claim  // nil means pass
	Responded bool
}

// CollectClaims evaluates the three seats opposing the discarder and returns
// each seat's eligible claims, highest priority first. Chow is only ever
// offered to the seat immediately after the discarder. Riichi-locked seats
// forfeit reactive melding but are still checked for Hu.
func CollectClaims(g *Game, d Discard) map[int]*Reaction {
	reactions := make(map[int]*Reaction)
	for offset := 1; offset < 4; offset++ {
		seat := (d.Seat + offset) % 4
		p := g.Player(seat)

		var claims []Claim
		if CheckWin(p.Hand, d.Tile.Kind) {
			claims = append(claims, Claim{Seat: seat, Type: ClaimHu, Priority: PriorityHu})
		}
		if !p.IsRiichi {
			switch {
			case CanKong(p.Hand, d.Tile.Kind):
				claims = append(claims, Claim{Seat: seat, Type: ClaimKong, Priority: PriorityKong})
			case CanPong(p.Hand, d.Tile.Kind):
				claims = append(claims, Claim{Seat: seat, Type: ClaimPong, Priority: PriorityPong})
			}
			if offset == 1 && CanChow(p.Hand, d.Tile.Kind) {
				claims = append(claims, Claim{Seat: seat, Type: ClaimChow, Priority: PriorityChow})
			}
		}
		if len(claims) > 0 {
			reactions[seat] = &Reaction{Claims: claims}
		}
	}
	return reactions
}

// AllResponded reports whether every offered seat has answered.
func AllResponded(reactions map[int]*Reaction) bool {
	for _, r := range reactions {
		if !r.Responded {
			return false
		}
	}
	return true
}

// BestResponse arbitrates the chosen claims: highest priority wins; ties go
// to the seat closest to the discarder in turn order. Returns nil when every
// seat passed.
func BestResponse(reactions map[int]*Reaction, discarder int) *Claim {
	var best *Claim
	for _, r := range reactions {
		c := r.Chosen
		if c == nil {
			continue
		}
		if best == nil ||
			c.Priority > best.Priority ||
			(c.Priority == best.Priority && SeatDistance(discarder, c.Seat) < SeatDistance(discarder, best.Seat)) {
			best = c
		}
	}
	return best
}
