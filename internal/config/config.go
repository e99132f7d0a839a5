package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type ScoreTier struct {
	ID        string `json:"id"`
	ScoreUnit int64  `json:"score_unit"`
}

type GameConfig struct {
	DefaultTier string      `json:"default_tier"`
	Tiers       []ScoreTier `json:"tiers"`

	// TurnDurationSeconds bounds how long a seat may hold the discard step.
	TurnDurationSeconds int `json:"turn_duration_seconds"`
	// ClaimDurationSeconds bounds how long claim offers stay open after a discard.
	ClaimDurationSeconds int `json:"claim_duration_seconds"`

	// BotAutoFillDelaySeconds configures how many seconds to wait before
	// seating bots at a table short of humans.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
	// BotMinDelaySeconds/BotMaxDelaySeconds bracket the artificial thinking
	// time before a bot acts.
	BotMinDelaySeconds int `json:"bot_min_delay_seconds"`
	BotMaxDelaySeconds int `json:"bot_max_delay_seconds"`
	// BotSelfDrawWinRate is the probability a bot declares a self-draw win
	// it is offered, in [0,1].
	BotSelfDrawWinRate float64 `json:"bot_self_draw_win_rate"`
}

const (
	defaultTurnDuration    = 10
	defaultClaimDuration   = 8
	defaultBotAutoFill     = 5
	defaultBotMinDelay     = 1
	defaultBotMaxDelay     = 3
	defaultBotSelfDrawRate = 1.0
	defaultScoreUnit       = 1
)

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetTurnDurationSeconds returns the discard countdown, with a safe default.
func GetTurnDurationSeconds() int {
	if cfg == nil || cfg.TurnDurationSeconds <= 0 {
		return defaultTurnDuration
	}
	return cfg.TurnDurationSeconds
}

// GetClaimDurationSeconds returns the claim countdown, with a safe default.
func GetClaimDurationSeconds() int {
	if cfg == nil || cfg.ClaimDurationSeconds <= 0 {
		return defaultClaimDuration
	}
	return cfg.ClaimDurationSeconds
}

// GetBotAutoFillDelaySeconds returns the solo-lobby bot fill delay.
func GetBotAutoFillDelaySeconds() int {
	if cfg == nil || cfg.BotAutoFillDelaySeconds <= 0 {
		return defaultBotAutoFill
	}
	return cfg.BotAutoFillDelaySeconds
}

// GetBotDelayBoundsSeconds returns the bot thinking-time bracket.
func GetBotDelayBoundsSeconds() (int, int) {
	min, max := defaultBotMinDelay, defaultBotMaxDelay
	if cfg != nil && cfg.BotMinDelaySeconds > 0 {
		min = cfg.BotMinDelaySeconds
	}
	if cfg != nil && cfg.BotMaxDelaySeconds >= min {
		max = cfg.BotMaxDelaySeconds
	}
	if max < min {
		max = min
	}
	return min, max
}

// GetBotSelfDrawWinRate returns the probability a bot takes an offered
// self-draw win.
func GetBotSelfDrawWinRate() float64 {
	if cfg == nil || cfg.BotSelfDrawWinRate < 0 || cfg.BotSelfDrawWinRate > 1 {
		return defaultBotSelfDrawRate
	}
	return cfg.BotSelfDrawWinRate
}

// GetScoreUnit returns the score unit for a given tier ID, or the default if
// not found.
func GetScoreUnit(tierID string) int64 {
	if cfg == nil {
		return defaultScoreUnit
	}

	target := tierID
	if target == "" {
		target = cfg.DefaultTier
	}

	for _, tier := range cfg.Tiers {
		if tier.ID == target {
			return tier.ScoreUnit
		}
	}

	for _, tier := range cfg.Tiers {
		if tier.ID == cfg.DefaultTier {
			return tier.ScoreUnit
		}
	}

	return defaultScoreUnit
}
