package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"mahjong/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// vivoxService signs voice tokens for seated players. Nil when the Vivox
// environment is not configured; the RPC then reports an error.
var vivoxService *app.VivoxService

// QuickMatchResponse is the payload returned to clients when requesting a lobby-capable match.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// VivoxTokenRequest asks for a signed voice token. Action "login" signs a
// login token; "join" needs the match id of the table to join.
type VivoxTokenRequest struct {
	Action  string `json:"action"`
	MatchID string `json:"match_id,omitempty"`
}

type VivoxTokenResponse struct {
	Token string `json:"token"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcVivoxToken, rpcVivoxToken)
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	// Find any open table in the lobby state.
	query := fmt.Sprintf("+label.%s:>=1 label.game:mahjong label.state:lobby", MatchLabelKeyOpenSeats)

	limit := 10
	authoritative := true

	minSize := 1
	maxSize := 3 // ensure < 4 players

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		resp := QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	// Create new match; seat/owner assignment happens in MatchJoin (server-authoritative).
	matchID, err := nk.MatchCreate(ctx, MatchNameMahjong, map[string]interface{}{})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	resp := QuickMatchResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

func rpcVivoxToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	if vivoxService == nil {
		return "", runtime.NewError("voice chat is not configured", 12) // UNIMPLEMENTED
	}

	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", runtime.NewError("no user id in context", 16) // UNAUTHENTICATED
	}

	var request VivoxTokenRequest
	if err := json.Unmarshal([]byte(payload), &request); err != nil {
		return "", runtime.NewError("invalid payload", 3) // INVALID_ARGUMENT
	}

	var token string
	var err error
	switch request.Action {
	case app.VivoxTokenActionLogin:
		token, err = vivoxService.GenerateToken(userID, app.VivoxTokenActionLogin, "")
	case app.VivoxTokenActionJoin:
		token, err = vivoxService.TableJoinToken(userID, request.MatchID)
	default:
		return "", runtime.NewError("unsupported action", 3) // INVALID_ARGUMENT
	}
	if err != nil {
		logger.Error("rpcVivoxToken [User:%s]: %v", userID, err)
		return "", runtime.NewError("failed to sign token", 13) // INTERNAL
	}

	b, _ := json.Marshal(VivoxTokenResponse{Token: token})
	return string(b), nil
}

// initVivoxFromEnv builds the token signer from runtime environment variables.
func initVivoxFromEnv(env map[string]string) *app.VivoxService {
	secret := env["vivox_secret"]
	issuer := env["vivox_issuer"]
	domain := env["vivox_domain"]
	if secret == "" {
		secret = os.Getenv("VIVOX_SECRET")
	}
	if issuer == "" {
		issuer = os.Getenv("VIVOX_ISSUER")
	}
	if domain == "" {
		domain = os.Getenv("VIVOX_DOMAIN")
	}
	if secret == "" || issuer == "" || domain == "" {
		return nil
	}
	return app.NewVivoxService(secret, issuer, domain)
}
