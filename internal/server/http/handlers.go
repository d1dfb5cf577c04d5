// Package httpserver exposes the demo HTTP API layered over internal/engine
// and internal/server/game (SPEC_FULL.md §6 demo surface):
// POST /api/games, POST /api/games/{id}/moves, GET /api/games/{id},
// POST /api/games/{id}/think.
package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"janggi/internal/board"
	"janggi/internal/engine"
	"janggi/internal/search"
	"janggi/internal/server/game"
)

// Handler implements http.Handler for the demo API.
type Handler struct {
	log     *slog.Logger
	engine  *engine.Engine
	manager *game.Manager
	mux     *http.ServeMux
}

func NewHandler(log *slog.Logger, eng *engine.Engine) *Handler {
	h := &Handler{log: log, engine: eng, manager: game.NewManager()}

	h.mux = http.NewServeMux()
	h.mux.HandleFunc("POST /api/games", h.handleNewGame)
	h.mux.HandleFunc("POST /api/games/{id}/moves", h.handlePlay)
	h.mux.HandleFunc("GET /api/games/{id}", h.handleState)
	h.mux.HandleFunc("POST /api/games/{id}/think", h.handleThink)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req NewGameRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	choLayout, ok := board.ParseStartingLayout(req.ChoLayout)
	if !ok {
		choLayout = board.LayoutSangMaSangMa
	}
	hanLayout, ok := board.ParseStartingLayout(req.HanLayout)
	if !ok {
		hanLayout = board.LayoutSangMaSangMa
	}

	g := h.manager.New(choLayout, hanLayout)
	g.Board.AllowBikjang = h.engine.Config.AllowBikjang
	g.Board.BoardBasedRepetition = h.engine.Config.BoardBasedRepetitiveMove
	g.Board.JangMoveIsIllegal = h.engine.Config.JangMoveIsIllegal

	writeJSON(w, NewGameResponse{
		GameID:     g.ID,
		Board:      g.Board.EncodeText(),
		ToMove:     sideToInt(g.Board.ToMove()),
		LegalMoves: movesToDTO(g.Board.GenerateLegalMoves()),
	})
}

func (h *Handler) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	g, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	legal := g.Board.GenerateLegalMoves()
	var found *board.Move
	for i := range legal {
		if legal[i].From == req.Move.From && legal[i].To == req.Move.To {
			found = &legal[i]
			break
		}
	}
	if found == nil {
		http.Error(w, "illegal move", http.StatusBadRequest)
		return
	}

	g.Board.Make(*found)
	_ = h.manager.Touch(g.ID)

	winner := g.Board.Winner()
	writeJSON(w, PlayResponse{
		Board:      g.Board.EncodeText(),
		ToMove:     sideToInt(g.Board.ToMove()),
		LegalMoves: movesToDTO(g.Board.GenerateLegalMoves()),
		Status:     statusFor(winner),
		Winner:     sideToInt(winner),
	})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	g, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	writeJSON(w, StateResponse{
		Board:      g.Board.EncodeText(),
		ToMove:     sideToInt(g.Board.ToMove()),
		LegalMoves: movesToDTO(g.Board.GenerateLegalMoves()),
		Status:     statusFor(g.Board.Winner()),
	})
}

func (h *Handler) handleThink(w http.ResponseWriter, r *http.Request) {
	g, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.engine.Config.SearchTimeMs+1000)*time.Millisecond)
	defer cancel()

	results, err := h.engine.Think(ctx, g.Board)
	if err != nil {
		h.log.Error("think failed", "err", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	best := bestResult(results)
	writeJSON(w, ThinkResponse{
		BestMove: moveToDTO(best.Move),
		Visits:   best.Visits,
		Winrate:  best.Winrate,
	})
}

func bestResult(results []search.Result) search.Result {
	var best search.Result
	bestVisits := -1
	for _, r := range results {
		if r.Visits > bestVisits {
			bestVisits = r.Visits
			best = r
		}
	}
	return best
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}
