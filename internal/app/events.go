package app

import "mahjong/internal/domain"

// EventKind identifies emitted domain events for Nakama dispatch.
type EventKind string

const (
	EventDealerDetermined EventKind = "dealer_determined"
	EventHandDealt        EventKind = "hand_dealt"
	EventFlowersExposed   EventKind = "flowers_exposed"
	EventTileDrawn        EventKind = "tile_drawn"
	EventTurnStarted      EventKind = "turn_started"
	EventActionsOffered   EventKind = "actions_offered"
	EventTileDiscarded    EventKind = "tile_discarded"
	EventMeldFormed       EventKind = "meld_formed"
	EventRiichiDeclared   EventKind = "riichi_declared"
	EventHandEnded        EventKind = "hand_ended"
)

// Event is a domain/app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type DealerDeterminedPayload struct {
	Dice   [2]int `json:"dice"`
	Dealer int    `json:"dealer"`
}

// HandDealtPayload is targeted: each seat sees its own tiles only.
type HandDealtPayload struct {
	Seat int           `json:"seat"`
	Hand []domain.Tile `json:"hand"`
}

type FlowersExposedPayload struct {
	Seat    int           `json:"seat"`
	Flowers []domain.Tile `json:"flowers"`
}

// TileDrawnPayload is targeted to the drawing seat. Other seats learn the
// wall count from snapshots.
type TileDrawnPayload struct {
	Seat        int         `json:"seat"`
	Tile        domain.Tile `json:"tile"`
	Replacement bool        `json:"replacement"` // drawn from the tail after a flower or kong
}

type TurnStartedPayload struct {
	Seat int `json:"seat"`
}

// ActionsOfferedPayload is targeted to the offered seat.
type ActionsOfferedPayload struct {
	Seat    int                 `json:"seat"`
	Actions []domain.ActionKind `json:"actions"`
}

type TileDiscardedPayload struct {
	Seat int         `json:"seat"`
	Tile domain.Tile `json:"tile"`
}

type MeldFormedPayload struct {
	Seat int         `json:"seat"`
	Meld domain.Meld `json:"meld"`
}

type RiichiDeclaredPayload struct {
	Seat int `json:"seat"`
}

type HandEndedPayload struct {
	Result domain.HandResult `json:"result"`
	Scores [4]int64          `json:"scores"`
}
