package domain

import "testing"

func gameWithHands(hands [4][]Kind) *Game {
	g := &Game{Phase: PhasePlaying, Step: StepAwaitClaims}
	id := 0
	for seat := 0; seat < 4; seat++ {
		p := NewPlayer("", seat, 0)
		for _, k := range hands[seat] {
			p.Hand = append(p.Hand, Tile{ID: id, Kind: k})
			id++
		}
		g.Players[seat] = p
	}
	return g
}

func TestCollectClaims(t *testing.T) {
	discard := Discard{Tile: Tile{ID: 200, Kind: b(5)}, Seat: 0}

	t.Run("chow only for the next seat", func(t *testing.T) {
		hands := [4][]Kind{
			0: {d(1)},
			1: {b(4), b(6)},
			2: {b(4), b(6)},
			3: {b(3), b(4)},
		}
		reactions := CollectClaims(gameWithHands(hands), discard)
		if r := reactions[1]; r == nil || len(r.Claims) != 1 || r.Claims[0].Type != ClaimChow {
			t.Errorf("seat 1 reactions = %+v, want single chow", r)
		}
		if _, ok := reactions[2]; ok {
			t.Errorf("seat 2 must not be offered a chow")
		}
		if _, ok := reactions[3]; ok {
			t.Errorf("seat 3 must not be offered a chow")
		}
	})

	t.Run("kong subsumes pong", func(t *testing.T) {
		hands := [4][]Kind{
			0: {d(1)},
			1: {d(1)},
			2: {b(5), b(5), b(5), d(1)},
			3: {b(5), b(5), d(1)},
		}
		reactions := CollectClaims(gameWithHands(hands), discard)
		if r := reactions[2]; r == nil || len(r.Claims) != 1 || r.Claims[0].Type != ClaimKong {
			t.Errorf("seat 2 reactions = %+v, want single kong", r)
		}
		if r := reactions[3]; r == nil || len(r.Claims) != 1 || r.Claims[0].Type != ClaimPong {
			t.Errorf("seat 3 reactions = %+v, want single pong", r)
		}
	})

	t.Run("riichi seat keeps hu loses melds", func(t *testing.T) {
		// Seat 2 waits on the 5-bamboo and also holds a pong pair for it.
		winning := []Kind{
			b(5), b(5), b(3), b(4), d(1), d(2), d(3),
			c(7), c(8), c(9), w(1), w(1), w(1),
		}
		hands := [4][]Kind{
			0: {d(9)},
			1: {d(9)},
			2: winning,
			3: {d(9)},
		}
		g := gameWithHands(hands)
		g.Player(2).IsRiichi = true
		reactions := CollectClaims(g, discard)
		r := reactions[2]
		if r == nil || len(r.Claims) != 1 || r.Claims[0].Type != ClaimHu {
			t.Fatalf("seat 2 reactions = %+v, want hu only", r)
		}

		g.Player(2).IsRiichi = false
		r = CollectClaims(g, discard)[2]
		if r == nil || len(r.Claims) != 2 || r.Claims[0].Type != ClaimHu || r.Claims[1].Type != ClaimPong {
			t.Fatalf("seat 2 reactions = %+v, want hu then pong", r)
		}
	})

	t.Run("no eligible seats", func(t *testing.T) {
		hands := [4][]Kind{
			0: {d(1)},
			1: {d(1)},
			2: {d(1)},
			3: {d(1)},
		}
		if reactions := CollectClaims(gameWithHands(hands), discard); len(reactions) != 0 {
			t.Errorf("reactions = %+v, want none", reactions)
		}
	})
}

func TestAllResponded(t *testing.T) {
	reactions := map[int]*Reaction{
		1: {Claims: []Claim{{Seat: 1, Type: ClaimChow, Priority: PriorityChow}}},
		3: {Claims: []Claim{{Seat: 3, Type: ClaimPong, Priority: PriorityPong}}},
	}
	if AllResponded(reactions) {
		t.Fatalf("nothing answered yet")
	}
	reactions[1].Responded = true
	if AllResponded(reactions) {
		t.Fatalf("seat 3 still pending")
	}
	reactions[3].Responded = true
	reactions[3].Chosen = &reactions[3].Claims[0]
	if !AllResponded(reactions) {
		t.Fatalf("every seat answered")
	}
}

func TestBestResponse(t *testing.T) {
	claim := func(seat int, t ClaimType) *Claim {
		return &Claim{Seat: seat, Type: t, Priority: t.Priority()}
	}

	tests := []struct {
		name      string
		discarder int
		chosen    map[int]*Claim
		wantSeat  int // -1 means nil
		wantType  ClaimType
	}{
		{
			name:      "hu beats meld claims",
			discarder: 0,
			chosen:    map[int]*Claim{1: claim(1, ClaimChow), 2: claim(2, ClaimKong), 3: claim(3, ClaimHu)},
			wantSeat:  3,
			wantType:  ClaimHu,
		},
		{
			name:      "pong beats chow",
			discarder: 0,
			chosen:    map[int]*Claim{1: claim(1, ClaimChow), 3: claim(3, ClaimPong)},
			wantSeat:  3,
			wantType:  ClaimPong,
		},
		{
			name:      "hu tie goes to the closer seat",
			discarder: 2,
			chosen:    map[int]*Claim{1: claim(1, ClaimHu), 3: claim(3, ClaimHu)},
			wantSeat:  3,
			wantType:  ClaimHu,
		},
		{
			name:      "tie wraps around seat zero",
			discarder: 3,
			chosen:    map[int]*Claim{0: claim(0, ClaimHu), 2: claim(2, ClaimHu)},
			wantSeat:  0,
			wantType:  ClaimHu,
		},
		{
			name:      "all passed",
			discarder: 0,
			chosen:    map[int]*Claim{1: nil, 2: nil},
			wantSeat:  -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reactions := make(map[int]*Reaction)
			for seat, c := range tt.chosen {
				reactions[seat] = &Reaction{Chosen: c, Responded: true}
			}
			got := BestResponse(reactions, tt.discarder)
			if tt.wantSeat < 0 {
				if got != nil {
					t.Fatalf("best = %+v, want nil", got)
				}
				return
			}
			if got == nil || got.Seat != tt.wantSeat || got.Type != tt.wantType {
				t.Fatalf("best = %+v, want seat %d type %v", got, tt.wantSeat, tt.wantType)
			}
		})
	}
}
