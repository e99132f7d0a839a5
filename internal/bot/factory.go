package bot

import (
	"fmt"
	"math/rand"
)

// BotLevel selects a strategy strength.
type BotLevel int

const (
	BotLevelEasy BotLevel = iota
	BotLevelStandard
	BotLevelSharp
)

// NewBrain creates a new AI brain for the specified level. A nil rng falls
// back to the shared global source.
func NewBrain(level BotLevel, rng *rand.Rand, winRate float64) (Brain, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	switch level {
	case BotLevelEasy:
		return &EasyBot{Rng: rng}, nil
	case BotLevelStandard:
		return &StandardBot{Rng: rng, WinRate: winRate}, nil
	case BotLevelSharp:
		return &SharpBot{StandardBot{Rng: rng, WinRate: winRate}}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}

// LevelForDifficulty maps a bot identity's difficulty string to a level.
func LevelForDifficulty(difficulty string) BotLevel {
	switch difficulty {
	case "easy":
		return BotLevelEasy
	case "hard":
		return BotLevelSharp
	default:
		return BotLevelStandard
	}
}
