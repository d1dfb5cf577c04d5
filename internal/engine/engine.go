package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"janggi/internal/accel"
	"janggi/internal/accel/scheduler"
	"janggi/internal/board"
	"janggi/internal/eval"
	"janggi/internal/obs"
	"janggi/internal/search"
	"janggi/internal/weights"
)

var (
	ErrWeightsUnavailable = errors.New("engine: no weight file loaded")
)

// Engine bundles a Board factory, Evaluator, and Search engine behind the
// public surface of spec.md §6: Board(...), Evaluator.initialize/evaluate,
// Search.search(...).
type Engine struct {
	Config Config
	Log    *slog.Logger

	Evaluator *eval.Evaluator
	Search    *search.Engine

	sched   *scheduler.Scheduler
	devices []accel.ForwardPipe
}

// New constructs an Engine with the heuristic (no neural net) evaluator
// wired in; call LoadWeights to attach an accelerator pipeline.
func New(cfg Config) *Engine {
	log := obs.NewLogger(cfg.Verbose)
	ev := eval.New(cfg.CacheSize, nil)
	e := &Engine{
		Config:    cfg,
		Log:       log,
		Evaluator: ev,
		Search: search.NewEngine(log, ev, search.Params{
			NumThreads:         cfg.NumThreads,
			PrintPeriodMs:      cfg.PrintPeriodMs,
			ScoreBasedBiasRate: cfg.ScoreBasedBiasRate,
		}),
	}
	return e
}

// LoadWeights reads a weight file (spec.md §6 "Weight loader"), builds the
// ONNX device pipe plus a CPU reference pipe for self-check, and starts
// the inference scheduler. On any error the Engine keeps running with the
// heuristic evaluator (spec.md §7 "Weight-load errors").
func (e *Engine) LoadWeights(path string) error {
	f, err := os.Open(path)
	if err != nil {
		e.Log.Warn("engine: weight file open failed, using heuristic evaluator", "err", err)
		return fmt.Errorf("engine: open weights: %w", err)
	}
	defer f.Close()

	bundle, err := weights.Load(f)
	if err != nil {
		e.Log.Warn("engine: weight load failed, using heuristic evaluator", "err", err)
		return fmt.Errorf("engine: load weights: %w", err)
	}

	refPipe := accel.NewCPUReferencePipe()
	if err := refPipe.Initialize(bundle.Channels); err != nil {
		return fmt.Errorf("engine: reference pipe init: %w", err)
	}
	if err := refPipe.PushWeights(3, bundle.Channels, 0, bundle); err != nil {
		return fmt.Errorf("engine: reference pipe weights: %w", err)
	}

	onnx := accel.NewONNXPipe(e.Log, e.Config.ModelPath, e.Config.SharedLibPath, e.Config.BatchSize)
	if err := onnx.Initialize(bundle.Channels); err != nil {
		e.Log.Warn("engine: onnx device init failed, using heuristic evaluator", "err", err)
		return fmt.Errorf("engine: onnx init: %w", err)
	}

	e.devices = []accel.ForwardPipe{onnx}
	e.sched = scheduler.New(e.Log, e.devices, refPipe, e.Config.NumSchedulerThreads, e.Config.BatchSize)
	e.sched.Start()
	e.Evaluator = eval.New(e.Config.CacheSize, e.sched)
	e.Search = search.NewEngine(e.Log, e.Evaluator, search.Params{
		NumThreads:         e.Config.NumThreads,
		PrintPeriodMs:      e.Config.PrintPeriodMs,
		ScoreBasedBiasRate: e.Config.ScoreBasedBiasRate,
	})
	return nil
}

func (e *Engine) Close() {
	if e.sched != nil {
		e.sched.Stop()
	}
}

// NewBoard applies the engine's configuration flags to a freshly built
// board (spec.md §6 "Board(cho_start, han_start)").
func (e *Engine) NewBoard(choStart, hanStart board.StartingLayout) *board.Board {
	b := board.NewBoard(choStart, hanStart)
	b.AllowBikjang = e.Config.AllowBikjang
	b.BoardBasedRepetition = e.Config.BoardBasedRepetitiveMove
	b.JangMoveIsIllegal = e.Config.JangMoveIsIllegal
	b.ScoreBasedBiasRate = e.Config.ScoreBasedBiasRate
	return b
}

// Think runs Search.search with the configured visit cap and deadline
// (spec.md §6 "search_num, search_time_ms").
func (e *Engine) Think(ctx context.Context, b *board.Board) ([]search.Result, error) {
	deadline := time.Now().Add(time.Duration(e.Config.SearchTimeMs) * time.Millisecond)
	return e.Search.Search(ctx, b, e.Config.SearchVisits, deadline)
}
