package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"strings"

	"mahjong/internal/app"
	"mahjong/internal/bot"
	"mahjong/internal/config"
	"mahjong/internal/domain"
	"mahjong/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Seats          [4]string                   `json:"seats"`            // user IDs, empty string means seat is empty
	OwnerSeat      int                         `json:"owner_seat"`       // seat index of the match owner
	NextDealerSeat int                         `json:"next_dealer_seat"` // dealer for the next hand, -1 before the first
	Tick           int64                       `json:"tick"`             // current tick for countdown logic
	Presences      map[string]runtime.Presence `json:"-"`                // user ID -> presence for targeted messaging
	App            *app.Service                `json:"-"`                // table use-cases
	Game           *domain.Game                `json:"-"`                // current hand, nil while in the lobby

	BotsEnabled          bool                  `json:"bots_enabled"`
	BotMinDelay          int                   `json:"bot_min_delay"`           // min seconds a bot waits before acting
	BotMaxDelay          int                   `json:"bot_max_delay"`           // max seconds a bot waits before acting
	BotAutoFillDelay     int                   `json:"bot_auto_fill_delay"`     // seconds before a solo lobby is filled with bots
	BotWaitUntil         int64                 `json:"bot_wait_until"`          // tick when pending bot decisions fire
	LastSinglePlayerTick int64                 `json:"last_single_player_tick"` // tick when a single human started waiting
	Bots                 map[string]*bot.Agent `json:"-"`

	// Countdown deadlines in absolute ticks; zero means inactive.
	TurnDeadlineTick  int64 `json:"turn_deadline_tick"`
	ClaimDeadlineTick int64 `json:"claim_deadline_tick"`
	deadlineTurn      int
	deadlineStep      domain.Step

	Economy ports.EconomyPort `json:"-"`
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" && !isBotUserId(seat) {
			count++
		}
	}
	return count
}

// secondsRemaining reports the active countdown at one tick per second.
func (ms *MatchState) secondsRemaining() int64 {
	deadline := ms.TurnDeadlineTick
	if ms.ClaimDeadlineTick > 0 {
		deadline = ms.ClaimDeadlineTick
	}
	if deadline == 0 || deadline <= ms.Tick {
		return 0
	}
	return deadline - ms.Tick
}

// isBotUserId reports whether the given user id represents a bot seat. The
// prefix check covers the fallback identities used when no pool is loaded.
func isBotUserId(userId string) bool {
	return bot.IsBot(userId) || strings.HasPrefix(userId, "bot-")
}

// isHumanSeat reports whether the seat index belongs to a human player.
func isHumanSeat(seats []string, seatIndex int) bool {
	if seatIndex < 0 || seatIndex >= len(seats) {
		return false
	}
	userId := seats[seatIndex]
	return userId != "" && !isBotUserId(userId)
}

// findFirstHumanSeat returns the first seat index with a human occupant or -1 if none exist.
func findFirstHumanSeat(seats []string) int {
	for i, userId := range seats {
		if userId != "" && !isBotUserId(userId) {
			return i
		}
	}
	return -1
}

// shouldTerminateNoHumans returns true when there are no humans in the match.
func shouldTerminateNoHumans(seats []string) bool {
	return findFirstHumanSeat(seats) == -1
}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := bot.LoadIdentities("data/bot_identities.json"); err != nil {
		logger.Warn("MatchInit: Could not load bot identities: %v", err)
	}
	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	botMinDelay, botMaxDelay := config.GetBotDelayBoundsSeconds()
	scores := app.DefaultScoreTable{Unit: config.GetScoreUnit("")}
	state := &MatchState{
		OwnerSeat:        -1,
		NextDealerSeat:   -1,
		Presences:        make(map[string]runtime.Presence),
		App:              app.NewService(nil, scores),
		Bots:             make(map[string]*bot.Agent),
		Economy:          NewNakamaEconomyAdapter(nk),
		BotsEnabled:      true,
		BotMinDelay:      botMinDelay,
		BotMaxDelay:      botMaxDelay,
		BotAutoFillDelay: config.GetBotAutoFillDelaySeconds(),
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if val, ok := env["mahjong_bots_enabled"]; ok {
		state.BotsEnabled = val != "false"
	}
	if val, ok := env["mahjong_bot_min_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil && i > 0 {
			state.BotMinDelay = i
		}
	}
	if val, ok := env["mahjong_bot_max_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil && i >= state.BotMinDelay {
			state.BotMaxDelay = i
		}
	}
	if val, ok := env["mahjong_bot_auto_fill_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil && i > 0 {
			state.BotAutoFillDelay = i
		}
	}

	label, err := marshalLabel(MatchLabel{Open: state.GetOpenSeatsCount(), Game: "mahjong", State: "lobby"})
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1 // one tick per second drives every countdown
	return state, tickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Allow join if there is an empty seat OR a bot to replace while no hand runs.
	if matchState.GetOpenSeatsCount() <= 0 {
		hasBot := false
		if matchState.Game == nil || matchState.Game.Phase == domain.PhaseEnded {
			for _, seat := range matchState.Seats {
				if isBotUserId(seat) {
					hasBot = true
					break
				}
			}
		}
		if !hasBot {
			return state, false, "Match full"
		}
	}

	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		assigned := false
		for i, seatUserId := range matchState.Seats {
			if seatUserId == "" {
				matchState.Seats[i] = p.GetUserId()
				assigned = true
				break
			}
		}

		if !assigned && (matchState.Game == nil || matchState.Game.Phase == domain.PhaseEnded) {
			for i, seatUserId := range matchState.Seats {
				if isBotUserId(seatUserId) {
					logger.Info("MatchJoin: Replacing bot %s with human %s in seat %d", seatUserId, p.GetUserId(), i)
					delete(matchState.Bots, seatUserId)
					matchState.Seats[i] = p.GetUserId()
					assigned = true
					break
				}
			}
		}

		if !assigned {
			logger.Warn("MatchJoin: User %s joined but no seat (empty or bot) was available.", p.GetUserId())
			continue
		}
	}

	// Ensure owner seat is assigned to a human player only.
	if !isHumanSeat(matchState.Seats[:], matchState.OwnerSeat) {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats[:])
		if matchState.OwnerSeat >= 0 {
			logger.Debug("MatchJoin: Owner set to human seat %d.", matchState.OwnerSeat)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger)

	return matchState
}

// MatchLeave frees seats in the lobby. During an active hand the seat is
// handed to a bot so the table keeps playing.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	handRunning := matchState.Game != nil && matchState.Game.Phase != domain.PhaseEnded

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		for i, seatUserId := range matchState.Seats {
			if seatUserId != p.GetUserId() {
				continue
			}
			if handRunning && matchState.BotsEnabled {
				botID := mh.unusedBotID(matchState)
				logger.Info("MatchLeave: Seat %d handed to bot %s after %s left mid-hand.", i, botID, p.GetUserId())
				matchState.Seats[i] = botID
				matchState.Game.Player(i).UserID = botID
				mh.agentFor(matchState, botID, logger)
			} else {
				matchState.Seats[i] = ""
				logger.Debug("MatchLeave: User %s left, seat %d freed.", p.GetUserId(), i)
			}
			break
		}
	}

	newOwnerSeat := findFirstHumanSeat(matchState.Seats[:])
	if newOwnerSeat != matchState.OwnerSeat {
		matchState.OwnerSeat = newOwnerSeat
		if newOwnerSeat >= 0 {
			logger.Debug("MatchLeave: Owner set to human seat %d.", newOwnerSeat)
		}
	}

	if shouldTerminateNoHumans(matchState.Seats[:]) {
		logger.Info("MatchLeave: Terminating match with no humans.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartHand:
			mh.handleStartHand(ctx, matchState, dispatcher, logger, msg, false)
		case OpRequestNewHand:
			mh.handleStartHand(ctx, matchState, dispatcher, logger, msg, true)
		case OpDiscard:
			mh.handleDiscard(ctx, matchState, dispatcher, logger, msg)
		case OpOperate:
			mh.handleOperate(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	mh.processRiichiAutoPlay(ctx, matchState, dispatcher, logger)
	mh.processTimeouts(ctx, matchState, dispatcher, logger)
	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	return matchState
}

// processRiichiAutoPlay throws the drawn tile for riichi-locked seats that
// have nothing to decide, without burning the turn countdown.
func (mh *matchHandler) processRiichiAutoPlay(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	g := state.Game
	if g == nil || g.Phase != domain.PhasePlaying || g.Step != domain.StepAwaitDiscard {
		return
	}
	p := g.Player(g.Turn)
	if !p.IsRiichi || p.RiichiMarker < 0 || p.LastDrawn < 0 {
		return
	}
	if g.OfferedTo(g.Turn, domain.ActionHu) {
		return // the win declaration stays with the player
	}
	events, err := state.App.AutoDiscard(g, g.Turn)
	if err != nil {
		logger.Error("processRiichiAutoPlay: seat %d: %v", g.Turn, err)
		return
	}
	mh.applyEvents(ctx, state, dispatcher, logger, events)
}

// processTimeouts applies the default action when a countdown expires: the
// drawn tile is discarded, or outstanding claim offers pass.
func (mh *matchHandler) processTimeouts(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	g := state.Game
	if g == nil || g.Phase != domain.PhasePlaying {
		return
	}

	switch g.Step {
	case domain.StepAwaitDiscard:
		if state.TurnDeadlineTick == 0 || state.Tick < state.TurnDeadlineTick {
			return
		}
		seat := g.Turn
		events, err := state.App.AutoDiscard(g, seat)
		if err != nil {
			logger.Error("processTimeouts: auto discard for seat %d: %v", seat, err)
			return
		}
		logger.Debug("processTimeouts: Seat %d timed out, default discard applied.", seat)
		mh.applyEvents(ctx, state, dispatcher, logger, events)

	case domain.StepAwaitClaims:
		if state.ClaimDeadlineTick == 0 || state.Tick < state.ClaimDeadlineTick {
			return
		}
		for seat := 0; seat < 4; seat++ {
			r, ok := g.Reactions[seat]
			if !ok || r.Responded {
				continue
			}
			events, err := state.App.AutoPass(g, seat)
			if err != nil {
				logger.Error("processTimeouts: auto pass for seat %d: %v", seat, err)
				continue
			}
			mh.applyEvents(ctx, state, dispatcher, logger, events)
			if state.Game == nil || g.Reactions == nil {
				break // resolution ran
			}
		}
	}
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// Fill a solo human's lobby with bots after a grace delay.
	if state.Game == nil || state.Game.Phase == domain.PhaseEnded {
		humanCount := state.GetHumanPlayerCount()
		if humanCount == 1 {
			if state.LastSinglePlayerTick == 0 {
				state.LastSinglePlayerTick = state.Tick
				logger.Debug("processBots: Single player detected, starting auto-fill timer.")
			}

			if state.Tick-state.LastSinglePlayerTick >= int64(state.BotAutoFillDelay) {
				added := false
				for i, seat := range state.Seats {
					if seat == "" {
						botID := mh.unusedBotID(state)
						state.Seats[i] = botID
						mh.agentFor(state, botID, logger)
						logger.Info("processBots: Added bot %s to seat %d", botID, i)
						added = true
					}
				}
				if added {
					mh.updateLabel(state, dispatcher, logger)
					mh.broadcastMatchState(state, dispatcher, logger)
				}
				state.LastSinglePlayerTick = 0
			}
		} else {
			state.LastSinglePlayerTick = 0
		}
		return
	}

	g := state.Game
	if g.Phase != domain.PhasePlaying {
		state.BotWaitUntil = 0
		return
	}

	// Does any bot have a pending decision?
	pending := false
	if g.Step == domain.StepAwaitDiscard && isBotUserId(state.Seats[g.Turn]) {
		pending = true
	}
	if g.Step == domain.StepAwaitClaims {
		for seat, r := range g.Reactions {
			if !r.Responded && isBotUserId(state.Seats[seat]) {
				pending = true
			}
		}
	}
	if !pending {
		state.BotWaitUntil = 0
		return
	}

	if state.BotWaitUntil == 0 {
		delay := rand.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay)
		return
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0

	if g.Step == domain.StepAwaitDiscard {
		mh.botTakeTurn(ctx, state, dispatcher, logger)
		return
	}
	for seat := 0; seat < 4; seat++ {
		r, ok := g.Reactions[seat]
		if !ok || r.Responded || !isBotUserId(state.Seats[seat]) {
			continue
		}
		mh.botRespondToClaim(ctx, state, dispatcher, logger, seat, r)
		if state.Game == nil || g.Reactions == nil {
			return // resolution ran
		}
	}
}

func (mh *matchHandler) botTakeTurn(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	g := state.Game
	seat := g.Turn
	agent := mh.agentFor(state, state.Seats[seat], logger)

	// A riichi seat has committed to the win; the probability seam only
	// applies to open hands.
	wantsWin := g.Player(seat).IsRiichi || agent.WantsSelfDrawWin(g)
	if g.OfferedTo(seat, domain.ActionHu) && wantsWin {
		events, err := state.App.Operate(g, seat, domain.ActionHu)
		if err != nil {
			logger.Error("botTakeTurn: seat %d win declaration: %v", seat, err)
			return
		}
		mh.applyEvents(ctx, state, dispatcher, logger, events)
		return
	}

	events, err := state.App.Discard(g, seat, agent.PickDiscard(g))
	if err != nil {
		// The brain picked an illegal tile (e.g. a riichi lock); fall back.
		events, err = state.App.AutoDiscard(g, seat)
		if err != nil {
			logger.Error("botTakeTurn: seat %d cannot discard: %v", seat, err)
			return
		}
	}
	mh.applyEvents(ctx, state, dispatcher, logger, events)
}

func (mh *matchHandler) botRespondToClaim(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, seat int, r *domain.Reaction) {
	g := state.Game
	agent := mh.agentFor(state, state.Seats[seat], logger)

	offered := make([]domain.ActionKind, 0, len(r.Claims)+1)
	for _, c := range r.Claims {
		offered = append(offered, c.Type.Action())
	}
	offered = append(offered, domain.ActionPass)

	events, err := state.App.Operate(g, seat, agent.RespondToClaim(g, offered))
	if err != nil {
		logger.Error("botRespondToClaim: seat %d: %v", seat, err)
		return
	}
	mh.applyEvents(ctx, state, dispatcher, logger, events)
}

// agentFor returns the cached agent for a bot user, creating one from its
// provisioned difficulty when missing.
func (mh *matchHandler) agentFor(state *MatchState, userID string, logger runtime.Logger) *bot.Agent {
	if a, ok := state.Bots[userID]; ok {
		return a
	}
	level := bot.BotLevelStandard
	if cfg, ok := bot.GetBotConfig(userID); ok {
		level = bot.LevelForDifficulty(cfg.Difficulty)
	}
	brain, err := bot.NewBrain(level, nil, config.GetBotSelfDrawWinRate())
	if err != nil {
		logger.Error("agentFor: %v", err)
		brain = &bot.StandardBot{Rng: rand.New(rand.NewSource(rand.Int63()))}
	}
	a := &bot.Agent{ID: userID, Name: bot.GetBotDisplayName(userID), Strategy: brain}
	state.Bots[userID] = a
	return a
}

// unusedBotID picks a provisioned bot identity that is not already seated.
func (mh *matchHandler) unusedBotID(state *MatchState) string {
	for i := 0; i < 8; i++ {
		id := bot.GetBotIdentity(i).UserID
		seated := false
		for _, seat := range state.Seats {
			if seat == id {
				seated = true
				break
			}
		}
		if !seated {
			return id
		}
	}
	return bot.GetBotIdentity(0).UserID
}

// handleStartHand starts the next hand. With restart set it also abandons a
// running hand, dropping every pending countdown and bot deadline so nothing
// from the superseded hand can fire into the new one.
func (mh *matchHandler) handleStartHand(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData, restart bool) {
	senderID := msg.GetUserId()
	senderSeat := mh.seatOf(state, senderID)

	if senderSeat != state.OwnerSeat {
		logger.Warn("StartHand: User %s tried to start but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		mh.sendError(state, dispatcher, logger, senderID, 403, "only the table owner can start a hand")
		return
	}
	if state.Game != nil && state.Game.Phase != domain.PhaseEnded {
		if !restart {
			logger.Warn("StartHand: Hand already in progress.")
			mh.sendError(state, dispatcher, logger, senderID, 409, "hand already in progress")
			return
		}
		logger.Info("StartHand: Owner restarted, abandoning the running hand.")
		state.TurnDeadlineTick = 0
		state.ClaimDeadlineTick = 0
		state.BotWaitUntil = 0
		state.deadlineStep = domain.StepNone
	}

	// Seat bots in any empty chairs so the table is full.
	if state.BotsEnabled {
		for i, seat := range state.Seats {
			if seat == "" {
				botID := mh.unusedBotID(state)
				state.Seats[i] = botID
				mh.agentFor(state, botID, logger)
				logger.Info("StartHand: Seated bot %s at %d", botID, i)
			}
		}
	}
	if state.GetOpenSeatsCount() > 0 {
		logger.Warn("StartHand: Cannot start with open seats and bots disabled.")
		mh.sendError(state, dispatcher, logger, senderID, 400, "table is not full")
		return
	}

	var assignments [4]app.SeatAssignment
	for i, userID := range state.Seats {
		score := app.StartingScore
		// Carry the running score only while the seat keeps its occupant.
		if state.Game != nil && state.Game.Player(i).UserID == userID {
			score = state.Game.Player(i).Score
		}
		assignments[i] = app.SeatAssignment{UserID: userID, Score: score}
	}

	game, events, err := state.App.StartHand(assignments, state.NextDealerSeat)
	if err != nil {
		logger.Error("StartHand: Failed to start hand: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, 500, err.Error())
		return
	}
	state.Game = game
	state.BotWaitUntil = 0

	mh.updateLabel(state, dispatcher, logger)
	mh.applyEvents(ctx, state, dispatcher, logger, events)
	mh.broadcastMatchState(state, dispatcher, logger)

	logger.Info("StartHand: Hand started, dealer seat %d.", game.Dealer)
}

func (mh *matchHandler) handleDiscard(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := mh.seatOf(state, senderID)

	if state.Game == nil {
		logger.Warn("handleDiscard: No hand in progress.")
		return
	}
	if senderSeat < 0 {
		logger.Warn("handleDiscard: User %s is not seated.", senderID)
		return
	}

	var request DiscardRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Warn("handleDiscard: Invalid payload from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "invalid discard payload")
		return
	}

	events, err := state.App.Discard(state.Game, senderSeat, request.TileIndex)
	if err != nil {
		logger.Warn("handleDiscard: User %s (seat %d) rejected: %v", senderID, senderSeat, err)
		if !isStaleEventErr(err) {
			mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		}
		return
	}
	mh.applyEvents(ctx, state, dispatcher, logger, events)
}

// isStaleEventErr covers routine out-of-phase races: a discard or claim that
// arrives after the window it targeted has closed. These are dropped with a
// Warn log and never surfaced to the client.
func isStaleEventErr(err error) bool {
	return errors.Is(err, app.ErrNotPlaying) ||
		errors.Is(err, app.ErrNotYourTurn) ||
		errors.Is(err, app.ErrWrongStep) ||
		errors.Is(err, app.ErrActionNotOffered)
}

func (mh *matchHandler) handleOperate(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := mh.seatOf(state, senderID)

	if state.Game == nil {
		logger.Warn("handleOperate: No hand in progress.")
		return
	}
	if senderSeat < 0 {
		logger.Warn("handleOperate: User %s is not seated.", senderID)
		return
	}

	var request OperateRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Warn("handleOperate: Invalid payload from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "invalid operate payload")
		return
	}

	events, err := state.App.Operate(state.Game, senderSeat, request.Action)
	if err != nil {
		logger.Warn("handleOperate: User %s (seat %d) action %s rejected: %v", senderID, senderSeat, request.Action, err)
		if !isStaleEventErr(err) {
			mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		}
		return
	}
	mh.applyEvents(ctx, state, dispatcher, logger, events)
}

// applyEvents dispatches service events and keeps countdowns, label, and
// settlement in sync with the resulting state.
func (mh *matchHandler) applyEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
	mh.syncDeadlines(state)
	mh.broadcastMatchState(state, dispatcher, logger)
}

// syncDeadlines restarts the countdown whenever the turn or step changed.
func (mh *matchHandler) syncDeadlines(state *MatchState) {
	g := state.Game
	if g == nil || g.Phase != domain.PhasePlaying {
		state.TurnDeadlineTick = 0
		state.ClaimDeadlineTick = 0
		state.deadlineStep = domain.StepNone
		return
	}

	switch g.Step {
	case domain.StepAwaitDiscard:
		if state.deadlineStep != domain.StepAwaitDiscard || state.deadlineTurn != g.Turn {
			state.TurnDeadlineTick = state.Tick + int64(config.GetTurnDurationSeconds())
		}
		state.ClaimDeadlineTick = 0
	case domain.StepAwaitClaims:
		if state.deadlineStep != domain.StepAwaitClaims {
			state.ClaimDeadlineTick = state.Tick + int64(config.GetClaimDurationSeconds())
		}
		state.TurnDeadlineTick = 0
	}
	state.deadlineStep = g.Step
	state.deadlineTurn = g.Turn
}

// broadcastEvent converts an app event to its opcode and dispatches it.
func (mh *matchHandler) broadcastEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	var opCode int64
	switch ev.Kind {
	case app.EventDealerDetermined:
		opCode = OpDealerDetermined
	case app.EventHandDealt:
		opCode = OpHandDealt
	case app.EventFlowersExposed:
		opCode = OpFlowersExposed
	case app.EventTileDrawn:
		opCode = OpTileDrawn
	case app.EventTurnStarted:
		opCode = OpTurnStarted
	case app.EventActionsOffered:
		opCode = OpActionsOffered
	case app.EventTileDiscarded:
		opCode = OpTileDiscarded
	case app.EventMeldFormed:
		opCode = OpMeldFormed
	case app.EventRiichiDeclared:
		opCode = OpRiichiDeclared
	case app.EventHandEnded:
		opCode = OpHandEnded
		mh.settleHand(ctx, state, dispatcher, logger, ev.Payload.(app.HandEndedPayload))
	default:
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	bytes, err := json.Marshal(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Targeted events go only to connected recipients. Bots have no
	// presence; if nobody is connected the event must not leak to others.
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true)
}

// settleHand pushes the score deltas into Nakama wallets and records the next
// dealer. Bot seats never touch real wallets.
func (mh *matchHandler) settleHand(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, payload app.HandEndedPayload) {
	g := state.Game
	if g == nil {
		return
	}
	state.NextDealerSeat = app.NextDealer(g)
	state.TurnDeadlineTick = 0
	state.ClaimDeadlineTick = 0
	state.BotWaitUntil = 0

	if state.Economy == nil {
		mh.updateLabel(state, dispatcher, logger)
		return
	}
	updates := make([]ports.WalletUpdate, 0, 4)
	for seat, delta := range payload.Result.Deltas {
		userID := state.Seats[seat]
		if delta == 0 || userID == "" || isBotUserId(userID) {
			continue
		}
		updates = append(updates, ports.WalletUpdate{
			UserID: userID,
			Amount: delta,
			Metadata: map[string]interface{}{
				"match_id": ctx.Value(runtime.RUNTIME_CTX_MATCH_ID),
				"reason":   "hand_settlement",
			},
		})
	}
	if len(updates) > 0 {
		if err := state.Economy.UpdateBalances(ctx, updates); err != nil {
			logger.Error("settleHand: Failed to update balances: %v", err)
		}
	}

	mh.updateLabel(state, dispatcher, logger)
}

// broadcastMatchState sends each connected human a private snapshot holding
// only that seat's tiles.
func (mh *matchHandler) broadcastMatchState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	displayName := func(userID string) string {
		if p, exists := state.Presences[userID]; exists {
			return p.GetUsername()
		}
		if name := bot.GetBotDisplayName(userID); name != "" {
			return name
		}
		return userID
	}

	for userID, presence := range state.Presences {
		snapshot := buildSnapshot(state, mh.seatOf(state, userID), displayName)
		bytes, err := json.Marshal(snapshot)
		if err != nil {
			logger.Error("broadcastMatchState: marshal failed: %v", err)
			return
		}
		dispatcher.BroadcastMessage(OpMatchState, bytes, []runtime.Presence{presence}, nil, true)
	}
}

// sendError sends a GameErrorEvent to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	bytes, err := json.Marshal(GameErrorEvent{Code: code, Message: message})
	if err != nil {
		logger.Error("Failed to marshal GameErrorEvent: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) seatOf(state *MatchState, userID string) int {
	for i, seatUserId := range state.Seats {
		if seatUserId == userID && userID != "" {
			return i
		}
	}
	return -1
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelState := "lobby"
	if state.Game != nil && state.Game.Phase != domain.PhaseEnded {
		labelState = "playing"
	}

	label, err := marshalLabel(MatchLabel{Open: state.GetOpenSeatsCount(), Game: "mahjong", State: labelState})
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
