package app

const (
	// HandSize is the tile count every seat holds between turns.
	HandSize = 16

	// StartingScore seeds each seat's cumulative score at table creation.
	// Keep this centralized so tests or local runs can adjust the rule
	// without touching multiple call sites.
	StartingScore int64 = 1000
)
