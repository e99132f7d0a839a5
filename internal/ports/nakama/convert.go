package nakama

import (
	"encoding/json"

	"mahjong/internal/domain"
)

// MatchLabel is the JSON document published for matchmaker label queries.
type MatchLabel struct {
	Open  int    `json:"open"`
	Game  string `json:"game"`
	State string `json:"state"`
}

// DiscardRequest is the OpDiscard client payload.
type DiscardRequest struct {
	TileIndex int `json:"tile_index"`
}

// OperateRequest is the OpOperate client payload.
type OperateRequest struct {
	Action domain.ActionKind `json:"action"`
}

// GameErrorEvent is sent privately when a client request is rejected.
type GameErrorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// PlayerState is the public view of one seat inside a snapshot.
type PlayerState struct {
	UserID         string        `json:"user_id"`
	Seat           int           `json:"seat"`
	DisplayName    string        `json:"display_name"`
	IsOwner        bool          `json:"is_owner"`
	IsBot          bool          `json:"is_bot"`
	TilesRemaining int           `json:"tiles_remaining"`
	Discards       []domain.Tile `json:"discards"`
	Melds          []domain.Meld `json:"melds"`
	FlowerCount    int           `json:"flower_count"`
	IsRiichi       bool          `json:"is_riichi"`
	Score          int64         `json:"score"`
	Wind           string        `json:"wind,omitempty"`
}

// MatchStateSnapshot is the per-seat view of the whole table. Hand carries
// only the recipient's own tiles; everyone else appears as a count.
type MatchStateSnapshot struct {
	Seats            []string      `json:"seats"`
	OwnerSeat        int           `json:"owner_seat"`
	Tick             int64         `json:"tick"`
	Phase            domain.Phase  `json:"phase"`
	Step             domain.Step   `json:"step"`
	Turn             int           `json:"turn"`
	Dealer           int           `json:"dealer"`
	Dice             [2]int        `json:"dice"`
	WallRemaining    int           `json:"wall_remaining"`
	SecondsRemaining int64         `json:"seconds_remaining"`
	Players          []PlayerState `json:"players"`
	YourSeat         int           `json:"your_seat"`
	Hand             []domain.Tile `json:"hand,omitempty"`

	// LastDiscard is the tile currently open to claims, if any. Offers lists
	// the actions pending for the recipient seat so a reconnecting client can
	// resume a claim window it never saw.
	LastDiscard *domain.Discard     `json:"last_discard,omitempty"`
	Offers      []domain.ActionKind `json:"offers,omitempty"`
}

// buildSnapshot assembles the table view for one recipient seat. A negative
// forSeat produces the spectator view with no hand.
func buildSnapshot(state *MatchState, forSeat int, displayName func(string) string) *MatchStateSnapshot {
	snapshot := &MatchStateSnapshot{
		Seats:     state.Seats[:],
		OwnerSeat: state.OwnerSeat,
		Tick:      state.Tick,
		Turn:      -1,
		Dealer:    -1,
		YourSeat:  forSeat,
	}

	for seat, userID := range state.Seats {
		if userID == "" {
			continue
		}
		ps := PlayerState{
			UserID:      userID,
			Seat:        seat,
			DisplayName: displayName(userID),
			IsOwner:     seat == state.OwnerSeat,
			IsBot:       isBotUserId(userID),
		}
		if g := state.Game; g != nil {
			p := g.Player(seat)
			ps.TilesRemaining = len(p.Hand)
			ps.Discards = p.Discards
			ps.Melds = p.Melds
			ps.FlowerCount = p.FlowerCount
			ps.IsRiichi = p.IsRiichi
			ps.Score = p.Score
			ps.Wind = g.SeatWind(seat).String()
		}
		snapshot.Players = append(snapshot.Players, ps)
	}

	if g := state.Game; g != nil {
		snapshot.Phase = g.Phase
		snapshot.Step = g.Step
		snapshot.Turn = g.Turn
		snapshot.Dealer = g.Dealer
		snapshot.Dice = g.Dice
		snapshot.WallRemaining = g.Wall.Remaining()
		snapshot.SecondsRemaining = state.secondsRemaining()
		snapshot.LastDiscard = g.LastDiscard
		if forSeat >= 0 && forSeat < 4 {
			snapshot.Hand = g.Player(forSeat).Hand
			snapshot.Offers = offeredActions(g, forSeat)
		}
	}
	return snapshot
}

// offeredActions lists what the seat may currently do: pending turn-seat
// declarations, or the claim choices plus pass on an outstanding discard.
func offeredActions(g *domain.Game, seat int) []domain.ActionKind {
	actions := append([]domain.ActionKind(nil), g.Offers[seat]...)
	if r, ok := g.Reactions[seat]; ok && !r.Responded {
		for _, c := range r.Claims {
			actions = append(actions, c.Type.Action())
		}
		actions = append(actions, domain.ActionPass)
	}
	return actions
}

func marshalLabel(label MatchLabel) (string, error) {
	b, err := json.Marshal(label)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
