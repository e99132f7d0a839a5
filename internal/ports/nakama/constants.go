package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"

	// RpcVivoxToken is the Nakama RPC id clients call to sign voice-chat tokens.
	RpcVivoxToken = "vivox_token"

	// MatchNameMahjong is the authoritative match handler name registered with Nakama.
	MatchNameMahjong = "mahjong_match"

	// MatchLabelKeyOpenSeats is the label key carrying the open seat count for matchmaker queries.
	MatchLabelKeyOpenSeats = "open"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartHand      int64 = 1
	OpDiscard        int64 = 2
	OpOperate        int64 = 3
	OpRequestNewHand int64 = 4

	// Server -> Client events
	OpMatchState       int64 = 101 // per-seat snapshot, sent privately
	OpDealerDetermined int64 = 102
	OpHandDealt        int64 = 103 // sent privately
	OpFlowersExposed   int64 = 104
	OpTileDrawn        int64 = 105 // sent privately
	OpTurnStarted      int64 = 106
	OpActionsOffered   int64 = 107 // sent privately
	OpTileDiscarded    int64 = 108
	OpMeldFormed       int64 = 109
	OpRiichiDeclared   int64 = 110
	OpHandEnded        int64 = 111
	OpGameError        int64 = 112
)
