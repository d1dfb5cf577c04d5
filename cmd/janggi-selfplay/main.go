// Command janggi-selfplay plays games between the engine and itself,
// emitting one JSON training record per position (spec.md §4.6 "Output
// policy/value targets").
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"janggi/internal/board"
	"janggi/internal/encoding"
	"janggi/internal/engine"
)

type trainingRecord struct {
	Input  []float32 `json:"input"`
	Policy []float32 `json:"policy"`
	Value  float32   `json:"value"`
}

func main() {
	modelPath := flag.String("model", "", "path to ONNX model file")
	weightsPath := flag.String("weights", "", "path to a weight bundle")
	visits := flag.Int("visits", 400, "search visits per move")
	maxMoves := flag.Int("maxmoves", 300, "max moves per game before adjudication")
	numGames := flag.Int("games", 1, "number of self-play games")
	out := flag.String("out", "selfplay.jsonl", "output JSONL path")
	pprofAddr := flag.String("pprof", "", "optional pprof listen address")
	flag.Parse()

	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", *pprofAddr)
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				log.Printf("pprof failed: %v", err)
			}
		}()
	}

	cfg := engine.DefaultConfig()
	cfg.SearchVisits = *visits
	cfg.ModelPath = *modelPath
	eng := engine.New(cfg)
	defer eng.Close()
	if *weightsPath != "" {
		if err := eng.LoadWeights(*weightsPath); err != nil {
			log.Printf("continuing with heuristic evaluator: %v", err)
		}
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)

	for g := 0; g < *numGames; g++ {
		playGame(eng, *maxMoves, enc)
	}
}

type positionSnapshot struct {
	input  []float32
	visits []encoding.SearchVisit
	toMove board.Side
}

func playGame(eng *engine.Engine, maxMoves int, enc *json.Encoder) {
	b := eng.NewBoard(board.LayoutSangMaSangMa, board.LayoutSangMaSangMa)
	var snapshots []positionSnapshot

	for i := 0; i < maxMoves; i++ {
		if w := b.Winner(); w != board.NoSide {
			break
		}

		start := time.Now()
		results, err := eng.Think(context.Background(), b)
		if err != nil {
			log.Printf("search failed: %v", err)
			break
		}
		if len(results) == 0 {
			break
		}

		visits := make([]encoding.SearchVisit, len(results))
		best := results[0]
		for i, r := range results {
			visits[i] = encoding.SearchVisit{Move: r.Move, Visits: r.Visits}
			if r.Visits > best.Visits {
				best = r
			}
		}
		snapshots = append(snapshots, positionSnapshot{
			input:  encoding.EncodeInput(b),
			visits: visits,
			toMove: b.ToMove(),
		})

		log.Printf("move %d: %s visits=%d winrate=%.3f elapsed=%s",
			i+1, board.MoveText(best.Move), best.Visits, best.Winrate, time.Since(start))
		b.Make(best.Move)
	}

	winner := b.Winner()
	finalMovenum := b.Movenum()
	for _, snap := range snapshots {
		out := encodePosition(snap, winner, finalMovenum)
		_ = enc.Encode(trainingRecord{Input: snap.input, Policy: out.Policy, Value: out.Value})
	}
}

func encodePosition(snap positionSnapshot, winner board.Side, finalMovenum int) encoding.OutputFeatures {
	dummy := &board.Board{SideToMove: snap.toMove}
	return encoding.EncodeOutput(dummy, snap.visits, winner, finalMovenum)
}
