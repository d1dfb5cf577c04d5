// Package engine wires the board, evaluator, inference scheduler, and
// search engine into the single configuration object and top-level
// facade an external caller drives (spec.md §6 "Interfaces the core
// exposes").
package engine

// Config is the snapshot of configurable options named in spec.md §6. It
// is constructed once by the caller and passed by value into long-running
// operations; per §5/§9 it must not be mutated while a search is active.
type Config struct {
	BatchSize    int
	CacheSize    int
	NumThreads   int
	PrintPeriodMs int
	Verbose      bool

	SearchVisits   int
	SearchTimeMs   int64

	AllowBikjang             bool
	FlipDisplay              bool
	BoardBasedRepetitiveMove bool
	JangMoveIsIllegal        bool
	ScoreBasedBiasRate       float64

	NumSchedulerThreads int
	ModelPath           string
	SharedLibPath       string
}

// DefaultConfig mirrors original_source/src/libgmgm/globals.cpp's default
// values.
func DefaultConfig() Config {
	return Config{
		BatchSize:           1,
		CacheSize:           20000,
		NumThreads:          1,
		PrintPeriodMs:       0,
		Verbose:             true,
		SearchVisits:        800,
		SearchTimeMs:        5000,
		AllowBikjang:        false,
		BoardBasedRepetitiveMove: false,
		JangMoveIsIllegal:   false,
		ScoreBasedBiasRate:  0,
		NumSchedulerThreads: 0,
	}
}
