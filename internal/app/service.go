package app

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"mahjong/internal/domain"
)

// Service contains the table use-cases operating on domain state. Methods
// mutate the passed game and return the events to dispatch, in order.
type Service struct {
	rng    *rand.Rand
	scores ScoreTable
}

// NewService constructs a Service with the provided rng and score table, or
// time-seeded/default ones.
func NewService(rng *rand.Rand, scores ScoreTable) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if scores == nil {
		scores = DefaultScoreTable{}
	}
	return &Service{rng: rng, scores: scores}
}

var (
	ErrNotPlaying       = errors.New("hand not in playing phase")
	ErrNotYourTurn      = errors.New("actor does not hold the turn")
	ErrWrongStep        = errors.New("operation does not match the current step")
	ErrBadTileIndex     = errors.New("tile index out of range")
	ErrSeatUnfilled     = errors.New("cannot start a hand with an empty seat")
	ErrActionNotOffered = errors.New("action not offered to this seat")
	ErrRiichiLocked     = errors.New("riichi seat must discard the drawn tile")
	ErrNotTenpai        = errors.New("riichi discard must leave a ready hand")
)

// SeatAssignment binds a user to a seat for the next hand, carrying the
// cumulative score forward.
type SeatAssignment struct {
	UserID string
	Score  int64
}

// StartHand builds a fresh hand: dice, wall, deal, flower replacement sweep.
// A negative dealer means the dice pick the dealer; otherwise the dice only
// flavor the deal and the given seat deals. The returned game is in the
// playing phase with the dealer holding seventeen tiles and the discard
// pending.
func (s *Service) StartHand(assignments [4]SeatAssignment, dealer int) (*domain.Game, []Event, error) {
	for _, a := range assignments {
		if a.UserID == "" {
			return nil, nil, ErrSeatUnfilled
		}
	}

	g := &domain.Game{
		Phase: domain.PhaseInit,
		Dice:  [2]int{s.rng.Intn(6) + 1, s.rng.Intn(6) + 1},
	}
	if dealer < 0 {
		dealer = (g.Dice[0] + g.Dice[1] - 1) % 4
	}
	g.Dealer = dealer
	for seat, a := range assignments {
		g.Players[seat] = domain.NewPlayer(a.UserID, seat, a.Score)
	}

	tiles := domain.NewTileSet()
	s.rng.Shuffle(len(tiles), func(i, j int) { tiles[i], tiles[j] = tiles[j], tiles[i] })
	g.Wall = domain.NewWall(tiles)

	// Four rounds of four tiles per seat, dealer first, then the dealer's
	// seventeenth.
	for round := 0; round < 4; round++ {
		for offset := 0; offset < 4; offset++ {
			p := g.Player((dealer + offset) % 4)
			for n := 0; n < 4; n++ {
				t, _ := g.Wall.Draw()
				p.Hand = append(p.Hand, t)
			}
		}
	}
	extra, _ := g.Wall.Draw()
	g.Player(dealer).AddTile(extra)

	events := []Event{{
		Kind:    EventDealerDetermined,
		Payload: DealerDeterminedPayload{Dice: g.Dice, Dealer: dealer},
	}}

	// Pre-play flower sweep, dealer first. Tail replacements can expose
	// further flowers, so each seat loops until clean.
	g.Phase = domain.PhaseFlowers
	for offset := 0; offset < 4; offset++ {
		p := g.Player((dealer + offset) % 4)
		var exposed []domain.Tile
		for {
			flowers := p.PopFlowers()
			if len(flowers) == 0 {
				break
			}
			exposed = append(exposed, flowers...)
			p.FlowerCount += len(flowers)
			for range flowers {
				if t, ok := g.Wall.DrawTail(); ok {
					p.Hand = append(p.Hand, t)
				}
			}
		}
		if len(exposed) > 0 {
			events = append(events, Event{
				Kind:    EventFlowersExposed,
				Payload: FlowersExposedPayload{Seat: p.Seat, Flowers: exposed},
			})
		}
	}

	for _, p := range g.Players {
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{Seat: p.Seat, Hand: p.Hand},
			Recipients: []string{p.UserID},
		})
	}

	g.Phase = domain.PhasePlaying
	g.Step = domain.StepAwaitDiscard
	g.Turn = dealer
	g.Player(dealer).IsDealer = true
	events = append(events, Event{Kind: EventTurnStarted, Payload: TurnStartedPayload{Seat: dealer}})
	events = append(events, s.offerSelfActions(g, dealer)...)

	return g, events, nil
}

// Discard plays the tile at tileIndex from the turn seat's hand and collects
// claim reactions from the other seats.
func (s *Service) Discard(g *domain.Game, seat, tileIndex int) ([]Event, error) {
	if g.Phase != domain.PhasePlaying {
		return nil, ErrNotPlaying
	}
	if g.Step != domain.StepAwaitDiscard {
		return nil, ErrWrongStep
	}
	if g.Turn != seat {
		return nil, ErrNotYourTurn
	}
	p := g.Player(seat)
	if tileIndex < 0 || tileIndex >= len(p.Hand) {
		return nil, ErrBadTileIndex
	}
	if p.IsRiichi {
		if p.RiichiMarker >= 0 {
			if tileIndex != p.LastDrawn {
				return nil, ErrRiichiLocked
			}
		} else if !leavesTenpai(p.Hand, tileIndex) {
			return nil, ErrNotTenpai
		}
	}

	t := p.RemoveTileAt(tileIndex)
	p.Discards = append(p.Discards, t)
	if p.IsRiichi && p.RiichiMarker < 0 {
		p.RiichiMarker = len(p.Discards) - 1
	}
	g.ClearOffers()
	d := domain.Discard{Tile: t, Seat: seat}
	g.LastDiscard = &d

	events := []Event{{
		Kind:    EventTileDiscarded,
		Payload: TileDiscardedPayload{Seat: seat, Tile: t},
	}}

	reactions := domain.CollectClaims(g, d)
	if len(reactions) == 0 {
		return append(events, s.beginTurn(g, domain.NextSeat(seat))...), nil
	}

	g.Step = domain.StepAwaitClaims
	g.Reactions = reactions
	for _, claimSeat := range seatsInOrder(reactions, seat) {
		actions := make([]domain.ActionKind, 0, len(reactions[claimSeat].Claims)+1)
		for _, c := range reactions[claimSeat].Claims {
			actions = append(actions, c.Type.Action())
		}
		actions = append(actions, domain.ActionPass)
		events = append(events, Event{
			Kind:       EventActionsOffered,
			Payload:    ActionsOfferedPayload{Seat: claimSeat, Actions: actions},
			Recipients: []string{g.Player(claimSeat).UserID},
		})
	}
	return events, nil
}

// Operate applies a seat's chosen action: a claim response on an outstanding
// discard, or a turn-seat declaration (self-draw win, riichi, or declining).
func (s *Service) Operate(g *domain.Game, seat int, action domain.ActionKind) ([]Event, error) {
	if g.Phase != domain.PhasePlaying {
		return nil, ErrNotPlaying
	}

	if r, ok := g.Reactions[seat]; ok && !r.Responded {
		return s.respondToClaim(g, seat, r, action)
	}

	if !g.OfferedTo(seat, action) && action != domain.ActionPass {
		return nil, ErrActionNotOffered
	}

	switch action {
	case domain.ActionHu:
		p := g.Player(seat)
		win := p.Hand[len(p.Hand)-1]
		if p.LastDrawn >= 0 {
			win = p.Hand[p.LastDrawn]
		}
		return s.endWithWin(g, seat, domain.WinZimo, win, -1), nil
	case domain.ActionRichii:
		p := g.Player(seat)
		p.IsRiichi = true
		dropOffer(g, seat, domain.ActionRichii)
		return []Event{{Kind: EventRiichiDeclared, Payload: RiichiDeclaredPayload{Seat: seat}}}, nil
	case domain.ActionPass:
		// Declining self offers keeps the discard pending.
		delete(g.Offers, seat)
		return nil, nil
	}
	return nil, ErrActionNotOffered
}

func (s *Service) respondToClaim(g *domain.Game, seat int, r *domain.Reaction, action domain.ActionKind) ([]Event, error) {
	if action == domain.ActionPass {
		r.Responded = true
		r.Chosen = nil
	} else {
		chosen := -1
		for i, c := range r.Claims {
			if c.Type.Action() == action {
				chosen = i
				break
			}
		}
		if chosen < 0 {
			return nil, ErrActionNotOffered
		}
		r.Responded = true
		r.Chosen = &r.Claims[chosen]
	}
	if !domain.AllResponded(g.Reactions) {
		return nil, nil
	}
	return s.resolveClaims(g), nil
}

// AutoDiscard plays the default tile for a seat that ran out of time: the
// most recent draw when one exists, otherwise the rightmost tile. A seat that
// declared riichi but has not placed the locking discard yet gets the first
// tile whose discard keeps the hand ready, so the timeout default can never
// violate the declaration.
func (s *Service) AutoDiscard(g *domain.Game, seat int) ([]Event, error) {
	p := g.Player(seat)
	i := p.LastDrawn
	if i < 0 {
		i = len(p.Hand) - 1
	}
	if p.IsRiichi && p.RiichiMarker < 0 && !leavesTenpai(p.Hand, i) {
		for j := range p.Hand {
			if leavesTenpai(p.Hand, j) {
				i = j
				break
			}
		}
	}
	return s.Discard(g, seat, i)
}

// AutoPass answers an unresolved claim offer with a pass.
func (s *Service) AutoPass(g *domain.Game, seat int) ([]Event, error) {
	return s.Operate(g, seat, domain.ActionPass)
}

// NextDealer keeps the deal on a dealer win or a drawn hand, and rotates
// otherwise.
func NextDealer(g *domain.Game) int {
	if g.Result == nil || g.Result.WinnerSeat == g.Dealer || g.Result.WinType == domain.WinNone {
		return g.Dealer
	}
	return domain.NextSeat(g.Dealer)
}

// beginTurn hands the turn to seat and draws, replacing flowers from the tail
// until a structural tile lands. Wall exhaustion ends the hand in a draw.
func (s *Service) beginTurn(g *domain.Game, seat int) []Event {
	g.Turn = seat
	g.Step = domain.StepAwaitDiscard
	g.LastDiscard = nil
	g.Reactions = nil
	g.ClearOffers()

	events := []Event{{Kind: EventTurnStarted, Payload: TurnStartedPayload{Seat: seat}}}
	p := g.Player(seat)

	t, ok := g.Wall.Draw()
	if !ok {
		return append(events, s.endInDraw(g)...)
	}
	replacement := false
	for t.IsFlower() {
		p.FlowerCount++
		events = append(events, Event{
			Kind:    EventFlowersExposed,
			Payload: FlowersExposedPayload{Seat: seat, Flowers: []domain.Tile{t}},
		})
		replacement = true
		if t, ok = g.Wall.DrawTail(); !ok {
			return append(events, s.endInDraw(g)...)
		}
	}
	p.AddTile(t)
	events = append(events, Event{
		Kind:       EventTileDrawn,
		Payload:    TileDrawnPayload{Seat: seat, Tile: t, Replacement: replacement},
		Recipients: []string{p.UserID},
	})
	return append(events, s.offerSelfActions(g, seat)...)
}

// offerSelfActions computes the turn seat's declarations after it gains a
// tile: a self-draw win, and riichi when some discard leaves the hand ready.
func (s *Service) offerSelfActions(g *domain.Game, seat int) []Event {
	p := g.Player(seat)
	var actions []domain.ActionKind
	if domain.CheckWin(p.Hand) {
		actions = append(actions, domain.ActionHu)
	}
	if !p.IsRiichi && canReachTenpai(p.Hand) {
		actions = append(actions, domain.ActionRichii)
	}
	if len(actions) == 0 {
		return nil
	}
	if g.Offers == nil {
		g.Offers = make(map[int][]domain.ActionKind)
	}
	g.Offers[seat] = actions
	return []Event{{
		Kind:       EventActionsOffered,
		Payload:    ActionsOfferedPayload{Seat: seat, Actions: actions},
		Recipients: []string{p.UserID},
	}}
}

// resolveClaims arbitrates the collected responses once every offered seat
// has answered.
func (s *Service) resolveClaims(g *domain.Game) []Event {
	d := *g.LastDiscard
	best := domain.BestResponse(g.Reactions, d.Seat)
	g.Reactions = nil

	if best == nil {
		return s.beginTurn(g, domain.NextSeat(d.Seat))
	}
	if best.Type == domain.ClaimHu {
		return s.endWithWin(g, best.Seat, domain.WinRon, d.Tile, d.Seat)
	}

	// The claimed tile leaves the discarder's pile and joins the meld.
	discarder := g.Player(d.Seat)
	discarder.Discards = discarder.Discards[:len(discarder.Discards)-1]
	claimant := g.Player(best.Seat)

	var tiles []domain.Tile
	meldType := domain.MeldPong
	switch best.Type {
	case domain.ClaimPong:
		tiles = claimant.RemoveKindTiles(d.Tile.Kind, 2)
	case domain.ClaimKong:
		meldType = domain.MeldKong
		tiles = claimant.RemoveKindTiles(d.Tile.Kind, 3)
	case domain.ClaimChow:
		meldType = domain.MeldChow
		for _, c := range domain.ChowCombination(claimant.Hand, d.Tile.Kind) {
			tiles = append(tiles, removeTileByID(claimant, c.ID))
		}
	}
	tiles = append(tiles, d.Tile)
	meld := domain.Meld{Type: meldType, Tiles: tiles, FromSeat: d.Seat}
	claimant.Melds = append(claimant.Melds, meld)
	claimant.LastDrawn = -1

	g.LastDiscard = nil
	g.Turn = best.Seat
	g.Step = domain.StepAwaitDiscard

	events := []Event{
		{Kind: EventMeldFormed, Payload: MeldFormedPayload{Seat: best.Seat, Meld: meld}},
		{Kind: EventTurnStarted, Payload: TurnStartedPayload{Seat: best.Seat}},
	}

	if best.Type == domain.ClaimKong {
		// A kong consumes a replacement tile from the tail, flowers included.
		t, ok := g.Wall.DrawTail()
		if !ok {
			return append(events, s.endInDraw(g)...)
		}
		for t.IsFlower() {
			claimant.FlowerCount++
			events = append(events, Event{
				Kind:    EventFlowersExposed,
				Payload: FlowersExposedPayload{Seat: best.Seat, Flowers: []domain.Tile{t}},
			})
			if t, ok = g.Wall.DrawTail(); !ok {
				return append(events, s.endInDraw(g)...)
			}
		}
		claimant.AddTile(t)
		events = append(events, Event{
			Kind:       EventTileDrawn,
			Payload:    TileDrawnPayload{Seat: best.Seat, Tile: t, Replacement: true},
			Recipients: []string{claimant.UserID},
		})
		events = append(events, s.offerSelfActions(g, best.Seat)...)
	}
	return events
}

func (s *Service) endWithWin(g *domain.Game, winner int, winType domain.WinType, winningTile domain.Tile, loser int) []Event {
	result := &domain.HandResult{
		WinnerSeat:  winner,
		WinType:     winType,
		WinningTile: &winningTile,
		LoserSeat:   loser,
		Fan:         s.countFan(g, winner),
	}
	return s.finish(g, result)
}

func (s *Service) endInDraw(g *domain.Game) []Event {
	return s.finish(g, &domain.HandResult{
		WinnerSeat: -1,
		WinType:    domain.WinNone,
		LoserSeat:  -1,
	})
}

func (s *Service) finish(g *domain.Game, result *domain.HandResult) []Event {
	s.scores.Settle(g, result)
	g.Phase = domain.PhaseEnded
	g.Step = domain.StepNone
	g.Reactions = nil
	g.ClearOffers()
	g.LastDiscard = nil
	g.Result = result

	var scores [4]int64
	for i, p := range g.Players {
		scores[i] = p.Score
	}
	return []Event{{
		Kind:    EventHandEnded,
		Payload: HandEndedPayload{Result: *result, Scores: scores},
	}}
}

// countFan is a flat tally: one base point plus one per exposed flower, plus
// one for a standing riichi.
func (s *Service) countFan(g *domain.Game, winner int) int {
	p := g.Player(winner)
	fan := 1 + p.FlowerCount
	if p.IsRiichi {
		fan++
	}
	return fan
}

// leavesTenpai simulates removing the hand tile at i and checks readiness.
func leavesTenpai(hand []domain.Tile, i int) bool {
	rest := make([]domain.Tile, 0, len(hand)-1)
	rest = append(rest, hand[:i]...)
	rest = append(rest, hand[i+1:]...)
	return len(domain.TenpaiWaits(rest)) > 0
}

// canReachTenpai reports whether any single discard leaves the hand ready.
// Hands that are not one discard away from a legal shape never qualify.
// Duplicate kinds are only simulated once.
func canReachTenpai(hand []domain.Tile) bool {
	if len(hand)%3 != 2 {
		return false
	}
	tried := make(map[domain.Kind]bool, len(hand))
	for i, t := range hand {
		if tried[t.Kind] {
			continue
		}
		tried[t.Kind] = true
		if leavesTenpai(hand, i) {
			return true
		}
	}
	return false
}

func removeTileByID(p *domain.Player, id int) domain.Tile {
	for i, t := range p.Hand {
		if t.ID == id {
			return p.RemoveTileAt(i)
		}
	}
	panic("tile vanished from hand during meld formation")
}

func dropOffer(g *domain.Game, seat int, action domain.ActionKind) {
	kept := g.Offers[seat][:0]
	for _, a := range g.Offers[seat] {
		if a != action {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		delete(g.Offers, seat)
	} else {
		g.Offers[seat] = kept
	}
}

// seatsInOrder lists the reacting seats by clockwise distance from the
// discarder so event emission stays deterministic.
func seatsInOrder(reactions map[int]*domain.Reaction, discarder int) []int {
	seats := make([]int, 0, len(reactions))
	for seat := range reactions {
		seats = append(seats, seat)
	}
	sort.Slice(seats, func(i, j int) bool {
		return domain.SeatDistance(discarder, seats[i]) < domain.SeatDistance(discarder, seats[j])
	})
	return seats
}
