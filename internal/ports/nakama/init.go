package nakama

import (
	"context"
	"database/sql"

	"mahjong/internal/bot"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs, hooks, and match handlers for the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameMahjong, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(), nil
	}); err != nil {
		return err
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	vivoxService = initVivoxFromEnv(env)
	if vivoxService == nil {
		logger.Warn("Vivox environment incomplete, voice token RPC disabled.")
	}

	if err := bot.LoadIdentities("data/bot_identities.json"); err != nil {
		logger.Warn("Could not load bot identities: %v", err)
	} else if err := bot.ProvisionBots(ctx, nk, logger); err != nil {
		logger.Warn("Bot provisioning incomplete: %v", err)
	}

	logger.Info("Mahjong Go module loaded.")
	return nil
}
