package app

import (
	"fmt"
	"math/rand"
	"testing"

	"mahjong/internal/domain"
)

func kd(v int) domain.Kind { return domain.Kind{Suit: domain.SuitDots, Value: v} }
func kb(v int) domain.Kind { return domain.Kind{Suit: domain.SuitBamboo, Value: v} }
func kc(v int) domain.Kind { return domain.Kind{Suit: domain.SuitCharacters, Value: v} }
func kw(v int) domain.Kind { return domain.Kind{Suit: domain.SuitWinds, Value: v} }
func kf(v int) domain.Kind { return domain.Kind{Suit: domain.SuitFlowers, Value: v} }

// testGame builds a playing-phase game with fixed hands and wall order. Hand
// sizes are whatever the scenario needs; the service never recounts them.
func testGame(hands [4][]domain.Kind, wall []domain.Kind, turn int) *domain.Game {
	g := &domain.Game{
		Phase:  domain.PhasePlaying,
		Step:   domain.StepAwaitDiscard,
		Turn:   turn,
		Dealer: 0,
	}
	id := 0
	for seat := 0; seat < 4; seat++ {
		p := domain.NewPlayer(fmt.Sprintf("u%d", seat), seat, 100)
		for _, k := range hands[seat] {
			p.Hand = append(p.Hand, domain.Tile{ID: id, Kind: k})
			id++
		}
		g.Players[seat] = p
	}
	tiles := make([]domain.Tile, 0, len(wall))
	for i, k := range wall {
		tiles = append(tiles, domain.Tile{ID: 1000 + i, Kind: k})
	}
	g.Wall = domain.NewWall(tiles)
	return g
}

func newTestService(seed int64) *Service {
	return NewService(rand.New(rand.NewSource(seed)), nil)
}

func eventKinds(events []Event) []EventKind {
	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func TestStartHandDealsAndSweepsFlowers(t *testing.T) {
	svc := newTestService(42)
	assignments := [4]SeatAssignment{
		{UserID: "u0", Score: StartingScore},
		{UserID: "u1", Score: StartingScore},
		{UserID: "u2", Score: StartingScore},
		{UserID: "u3", Score: StartingScore},
	}

	g, events, err := svc.StartHand(assignments, -1)
	if err != nil {
		t.Fatalf("start hand error: %v", err)
	}
	if g.Phase != domain.PhasePlaying || g.Step != domain.StepAwaitDiscard {
		t.Fatalf("phase/step = %s/%s, want playing/await_discard", g.Phase, g.Step)
	}
	if g.Turn != g.Dealer {
		t.Fatalf("turn = %d, want dealer %d", g.Turn, g.Dealer)
	}
	if g.Dealer < 0 || g.Dealer > 3 {
		t.Fatalf("dealer = %d out of range", g.Dealer)
	}
	if events[0].Kind != EventDealerDetermined {
		t.Fatalf("first event = %s, want dealer_determined", events[0].Kind)
	}

	handTiles, flowers := 0, 0
	for seat, p := range g.Players {
		want := HandSize
		if seat == g.Dealer {
			want = HandSize + 1
		}
		if len(p.Hand) != want {
			t.Errorf("seat %d hand size = %d, want %d", seat, len(p.Hand), want)
		}
		for _, tile := range p.Hand {
			if tile.IsFlower() {
				t.Errorf("seat %d still holds flower %v after the sweep", seat, tile)
			}
		}
		handTiles += len(p.Hand)
		flowers += p.FlowerCount
	}
	if total := handTiles + flowers + g.Wall.Remaining(); total != 144 {
		t.Fatalf("tile conservation broken: %d accounted for", total)
	}

	dealt := 0
	for _, ev := range events {
		if ev.Kind == EventHandDealt {
			dealt++
			if len(ev.Recipients) != 1 {
				t.Errorf("hand_dealt must be targeted, got recipients %v", ev.Recipients)
			}
		}
	}
	if dealt != 4 {
		t.Fatalf("hand_dealt events = %d, want 4", dealt)
	}
}

func TestStartHandRejectsEmptySeat(t *testing.T) {
	svc := newTestService(1)
	assignments := [4]SeatAssignment{{UserID: "u0"}, {UserID: "u1"}, {}, {UserID: "u3"}}
	if _, _, err := svc.StartHand(assignments, -1); err != ErrSeatUnfilled {
		t.Fatalf("err = %v, want ErrSeatUnfilled", err)
	}
}

func TestDiscardValidation(t *testing.T) {
	svc := newTestService(1)
	g := testGame([4][]domain.Kind{0: {kd(1), kd(2)}}, []domain.Kind{kc(9)}, 0)

	if _, err := svc.Discard(g, 1, 0); err != ErrNotYourTurn {
		t.Errorf("wrong seat err = %v, want ErrNotYourTurn", err)
	}
	if _, err := svc.Discard(g, 0, 5); err != ErrBadTileIndex {
		t.Errorf("bad index err = %v, want ErrBadTileIndex", err)
	}
	g.Step = domain.StepAwaitClaims
	if _, err := svc.Discard(g, 0, 0); err != ErrWrongStep {
		t.Errorf("wrong step err = %v, want ErrWrongStep", err)
	}
	g.Phase = domain.PhaseEnded
	if _, err := svc.Discard(g, 0, 0); err != ErrNotPlaying {
		t.Errorf("ended phase err = %v, want ErrNotPlaying", err)
	}
}

func TestDiscardWithoutClaimsAdvancesTurn(t *testing.T) {
	svc := newTestService(1)
	hands := [4][]domain.Kind{
		0: {kw(1), kd(1)},
		1: {kd(9)},
		2: {kd(9)},
		3: {kd(9)},
	}
	g := testGame(hands, []domain.Kind{kc(3)}, 0)

	events, err := svc.Discard(g, 0, 0)
	if err != nil {
		t.Fatalf("discard error: %v", err)
	}
	kinds := eventKinds(events)
	if kinds[0] != EventTileDiscarded || kinds[1] != EventTurnStarted || kinds[2] != EventTileDrawn {
		t.Fatalf("event kinds = %v", kinds)
	}
	if g.Turn != 1 || g.Step != domain.StepAwaitDiscard {
		t.Fatalf("turn/step = %d/%s, want 1/await_discard", g.Turn, g.Step)
	}
	if len(g.Player(1).Hand) != 2 {
		t.Fatalf("seat 1 should have drawn, hand = %d", len(g.Player(1).Hand))
	}
	if len(g.Player(0).Discards) != 1 {
		t.Fatalf("seat 0 discard pile = %d, want 1", len(g.Player(0).Discards))
	}
}

func TestClaimResolutionWaitsForEverySeat(t *testing.T) {
	svc := newTestService(1)
	hands := [4][]domain.Kind{
		0: {kb(5), kd(1)},
		1: {kb(4), kb(6)}, // chow
		2: {kd(9)},
		3: {kb(5), kb(5), kd(9)}, // pong
	}
	g := testGame(hands, []domain.Kind{kc(3)}, 0)

	events, err := svc.Discard(g, 0, 0)
	if err != nil {
		t.Fatalf("discard error: %v", err)
	}
	offered := 0
	for _, ev := range events {
		if ev.Kind == EventActionsOffered {
			offered++
		}
	}
	if offered != 2 || g.Step != domain.StepAwaitClaims {
		t.Fatalf("offers = %d step = %s, want 2 offers in await_claims", offered, g.Step)
	}

	// The pong answer alone must not resolve anything.
	events, err = svc.Operate(g, 3, domain.ActionPong)
	if err != nil {
		t.Fatalf("pong error: %v", err)
	}
	if len(events) != 0 || g.Step != domain.StepAwaitClaims {
		t.Fatalf("resolution ran before all seats answered")
	}

	// Chow answer arrives second; pong still outranks it.
	events, err = svc.Operate(g, 1, domain.ActionChow)
	if err != nil {
		t.Fatalf("chow error: %v", err)
	}
	kinds := eventKinds(events)
	if kinds[0] != EventMeldFormed || kinds[1] != EventTurnStarted {
		t.Fatalf("event kinds = %v", kinds)
	}
	meld := events[0].Payload.(MeldFormedPayload).Meld
	if meld.Type != domain.MeldPong || len(meld.Tiles) != 3 || meld.FromSeat != 0 {
		t.Fatalf("meld = %+v, want pong of three from seat 0", meld)
	}
	if g.Turn != 3 || g.Step != domain.StepAwaitDiscard {
		t.Fatalf("turn/step = %d/%s, want 3/await_discard", g.Turn, g.Step)
	}
	if len(g.Player(3).Hand) != 1 {
		t.Fatalf("seat 3 hand = %d, want 1 (no draw after pong)", len(g.Player(3).Hand))
	}
	if len(g.Player(0).Discards) != 0 {
		t.Fatalf("claimed tile must leave the discard pile")
	}
}

func TestAllPassResumesNextSeat(t *testing.T) {
	svc := newTestService(1)
	hands := [4][]domain.Kind{
		0: {kb(5), kd(1)},
		1: {kb(4), kb(6)},
		2: {kd(9)},
		3: {kb(5), kb(5), kd(9)},
	}
	g := testGame(hands, []domain.Kind{kc(3)}, 0)

	if _, err := svc.Discard(g, 0, 0); err != nil {
		t.Fatalf("discard error: %v", err)
	}
	if _, err := svc.AutoPass(g, 1); err != nil {
		t.Fatalf("pass error: %v", err)
	}
	events, err := svc.AutoPass(g, 3)
	if err != nil {
		t.Fatalf("pass error: %v", err)
	}
	if kinds := eventKinds(events); kinds[0] != EventTurnStarted {
		t.Fatalf("event kinds = %v, want turn handed to seat 1", kinds)
	}
	if g.Turn != 1 || len(g.Player(0).Discards) != 1 {
		t.Fatalf("turn = %d discards = %d, want 1/1", g.Turn, len(g.Player(0).Discards))
	}
	// Seat 1's short fixture hand must never attract self offers.
	for _, ev := range events {
		if ev.Kind == EventActionsOffered {
			t.Fatalf("unexpected self offer: %+v", ev.Payload)
		}
	}
}

func TestAutoDiscardKeepsRiichiPledge(t *testing.T) {
	svc := newTestService(1)
	// The junk wind sits at index 0; every other tile is load-bearing, so the
	// rightmost default would break the declared hand.
	hand := []domain.Kind{
		kw(4), kb(5), kb(5), kb(3), kb(4), kd(1), kd(2), kd(3),
		kc(7), kc(8), kc(9), kw(1), kw(1), kw(1),
	}
	hands := [4][]domain.Kind{0: hand, 1: {kd(9)}, 2: {kd(9)}, 3: {kd(9)}}
	g := testGame(hands, []domain.Kind{kc(3)}, 0)
	g.Offers = map[int][]domain.ActionKind{0: {domain.ActionRichii}}

	if _, err := svc.Operate(g, 0, domain.ActionRichii); err != nil {
		t.Fatalf("riichi error: %v", err)
	}

	events, err := svc.AutoDiscard(g, 0)
	if err != nil {
		t.Fatalf("auto discard error: %v", err)
	}
	if events[0].Kind != EventTileDiscarded {
		t.Fatalf("event kinds = %v", eventKinds(events))
	}
	if tile := events[0].Payload.(TileDiscardedPayload).Tile; tile.Kind != kw(4) {
		t.Fatalf("discarded %v, want the junk wind", tile.Kind)
	}
	if g.Player(0).RiichiMarker != 0 {
		t.Fatalf("riichi marker = %d, want 0", g.Player(0).RiichiMarker)
	}
	if g.Step != domain.StepAwaitDiscard || g.Turn != 1 {
		t.Fatalf("turn/step = %d/%s, want 1/await_discard", g.Turn, g.Step)
	}
}

func TestKongDrawsReplacementThroughFlowers(t *testing.T) {
	svc := newTestService(1)
	hands := [4][]domain.Kind{
		0: {kb(5), kd(1)},
		1: {kd(9)},
		2: {kd(9)},
		3: {kb(5), kb(5), kb(5), kd(9)},
	}
	// Tail order: f1 first, then f2, then the real replacement c2.
	g := testGame(hands, []domain.Kind{kc(1), kc(2), kf(2), kf(1)}, 0)

	if _, err := svc.Discard(g, 0, 0); err != nil {
		t.Fatalf("discard error: %v", err)
	}
	events, err := svc.Operate(g, 3, domain.ActionKong)
	if err != nil {
		t.Fatalf("kong error: %v", err)
	}

	p := g.Player(3)
	if len(p.Melds) != 1 || p.Melds[0].Type != domain.MeldKong || len(p.Melds[0].Tiles) != 4 {
		t.Fatalf("melds = %+v, want one kong of four", p.Melds)
	}
	if p.FlowerCount != 2 {
		t.Fatalf("flower count = %d, want 2", p.FlowerCount)
	}
	if len(p.Hand) != 2 || p.Hand[len(p.Hand)-1].Kind != kc(2) {
		t.Fatalf("hand = %+v, want the c2 replacement appended", p.Hand)
	}
	drawn := false
	for _, ev := range events {
		if ev.Kind == EventTileDrawn {
			drawn = true
			if !ev.Payload.(TileDrawnPayload).Replacement {
				t.Errorf("kong draw must be flagged as a replacement")
			}
		}
	}
	if !drawn || g.Turn != 3 || g.Step != domain.StepAwaitDiscard {
		t.Fatalf("drawn=%v turn=%d step=%s", drawn, g.Turn, g.Step)
	}
}

func TestRonSettlesAgainstDiscarder(t *testing.T) {
	svc := newTestService(1)
	waiting := []domain.Kind{
		kb(5), kb(5), kb(3), kb(4), kd(1), kd(2), kd(3),
		kc(7), kc(8), kc(9), kw(1), kw(1), kw(1),
	}
	hands := [4][]domain.Kind{
		0: {kb(5), kd(9)},
		1: {kd(9)},
		2: waiting,
		3: {kd(9)},
	}
	g := testGame(hands, []domain.Kind{kc(3)}, 0)

	if _, err := svc.Discard(g, 0, 0); err != nil {
		t.Fatalf("discard error: %v", err)
	}
	events, err := svc.Operate(g, 2, domain.ActionHu)
	if err != nil {
		t.Fatalf("hu error: %v", err)
	}
	if kinds := eventKinds(events); kinds[len(kinds)-1] != EventHandEnded {
		t.Fatalf("event kinds = %v", kinds)
	}
	r := g.Result
	if r == nil || r.WinType != domain.WinRon || r.WinnerSeat != 2 || r.LoserSeat != 0 {
		t.Fatalf("result = %+v", r)
	}
	if r.Deltas != [4]int64{-1, 0, 1, 0} {
		t.Fatalf("deltas = %v", r.Deltas)
	}
	if g.Player(2).Score != 101 || g.Player(0).Score != 99 {
		t.Fatalf("scores not applied: %d / %d", g.Player(2).Score, g.Player(0).Score)
	}
	if g.Phase != domain.PhaseEnded {
		t.Fatalf("phase = %s, want ended", g.Phase)
	}
}

func TestSelfDrawWinPaysThreeWays(t *testing.T) {
	svc := newTestService(1)
	waiting := []domain.Kind{
		kb(5), kb(5), kb(3), kb(4), kd(1), kd(2), kd(3),
		kc(7), kc(8), kc(9), kw(1), kw(1), kw(1),
	}
	hands := [4][]domain.Kind{
		0: {kd(9), kd(9)},
		1: waiting,
		2: {kd(9)},
		3: {kd(9)},
	}
	// Seat 1 draws the winning 5-bamboo.
	g := testGame(hands, []domain.Kind{kb(5)}, 0)

	events, err := svc.Discard(g, 0, 0)
	if err != nil {
		t.Fatalf("discard error: %v", err)
	}
	sawOffer := false
	for _, ev := range events {
		if ev.Kind == EventActionsOffered {
			sawOffer = true
			payload := ev.Payload.(ActionsOfferedPayload)
			if payload.Seat != 1 || payload.Actions[0] != domain.ActionHu {
				t.Fatalf("offer = %+v, want hu for seat 1", payload)
			}
		}
	}
	if !sawOffer {
		t.Fatalf("self-draw win was not offered")
	}

	if _, err := svc.Operate(g, 1, domain.ActionHu); err != nil {
		t.Fatalf("hu error: %v", err)
	}
	r := g.Result
	if r == nil || r.WinType != domain.WinZimo || r.WinnerSeat != 1 || r.LoserSeat != -1 {
		t.Fatalf("result = %+v", r)
	}
	if r.Deltas != [4]int64{-1, 3, -1, -1} {
		t.Fatalf("deltas = %v", r.Deltas)
	}
}

func TestWallExhaustionEndsInDraw(t *testing.T) {
	svc := newTestService(1)
	hands := [4][]domain.Kind{
		0: {kw(1), kd(1)},
		1: {kd(9)},
		2: {kd(9)},
		3: {kd(9)},
	}
	g := testGame(hands, nil, 0)

	events, err := svc.Discard(g, 0, 0)
	if err != nil {
		t.Fatalf("discard error: %v", err)
	}
	if kinds := eventKinds(events); kinds[len(kinds)-1] != EventHandEnded {
		t.Fatalf("event kinds = %v", kinds)
	}
	r := g.Result
	if r == nil || r.WinType != domain.WinNone || r.WinnerSeat != -1 {
		t.Fatalf("result = %+v", r)
	}
	if r.Deltas != [4]int64{} {
		t.Fatalf("drawn hand moved points: %v", r.Deltas)
	}
	if g.Phase != domain.PhaseEnded {
		t.Fatalf("phase = %s, want ended", g.Phase)
	}
}

func TestRiichiDeclarationAndLock(t *testing.T) {
	svc := newTestService(1)
	// Thirteen ready tiles plus a junk wind; dropping the junk keeps tenpai.
	hand := []domain.Kind{
		kb(5), kb(5), kb(3), kb(4), kd(1), kd(2), kd(3),
		kc(7), kc(8), kc(9), kw(1), kw(1), kw(1), kw(4),
	}
	hands := [4][]domain.Kind{0: hand, 1: {kd(9)}, 2: {kd(9)}, 3: {kd(9)}}
	g := testGame(hands, []domain.Kind{kc(3), kc(4), kc(5), kc(6)}, 0)
	g.Offers = map[int][]domain.ActionKind{0: {domain.ActionRichii}}

	events, err := svc.Operate(g, 0, domain.ActionRichii)
	if err != nil {
		t.Fatalf("riichi error: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventRiichiDeclared {
		t.Fatalf("events = %v", eventKinds(events))
	}
	if !g.Player(0).IsRiichi {
		t.Fatalf("seat 0 should be locked in riichi")
	}

	// The declaring discard must keep the hand ready.
	if _, err := svc.Discard(g, 0, 4); err != ErrNotTenpai {
		t.Fatalf("breaking discard err = %v, want ErrNotTenpai", err)
	}
	if _, err := svc.Discard(g, 0, 13); err != nil {
		t.Fatalf("declaring discard error: %v", err)
	}
	if g.Player(0).RiichiMarker != 0 {
		t.Fatalf("riichi marker = %d, want 0", g.Player(0).RiichiMarker)
	}

	// Later turns must throw back exactly the drawn tile.
	for g.Turn != 0 {
		if _, err := svc.AutoDiscard(g, g.Turn); err != nil {
			t.Fatalf("advance error: %v", err)
		}
		if g.Phase != domain.PhasePlaying {
			t.Fatalf("hand ended while advancing")
		}
	}
	p := g.Player(0)
	wrong := (p.LastDrawn + 1) % len(p.Hand)
	if _, err := svc.Discard(g, 0, wrong); err != ErrRiichiLocked {
		t.Fatalf("locked discard err = %v, want ErrRiichiLocked", err)
	}
	if _, err := svc.Discard(g, 0, p.LastDrawn); err != nil {
		t.Fatalf("drawn-tile discard error: %v", err)
	}
}

func TestNextDealer(t *testing.T) {
	g := &domain.Game{Dealer: 2}

	g.Result = &domain.HandResult{WinnerSeat: 2, WinType: domain.WinZimo}
	if got := NextDealer(g); got != 2 {
		t.Errorf("dealer win: next = %d, want 2", got)
	}
	g.Result = &domain.HandResult{WinnerSeat: -1, WinType: domain.WinNone}
	if got := NextDealer(g); got != 2 {
		t.Errorf("drawn hand: next = %d, want 2", got)
	}
	g.Result = &domain.HandResult{WinnerSeat: 0, WinType: domain.WinRon}
	if got := NextDealer(g); got != 3 {
		t.Errorf("other win: next = %d, want 3", got)
	}
}
