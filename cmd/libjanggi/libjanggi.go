// Command libjanggi builds a C shared library exposing the core rules
// engine to a native mobile host (spec.md §6 supplemented "demo surface",
// adapting the teacher's mobile/bridge cgo surface to the 9x10 board).
package main

/*
#include <stdbool.h>
#include <stdint.h>
*/
import "C"

import (
	"net/http"
	"time"
	"unsafe"

	"janggi/internal/board"
	"janggi/internal/engine"
	httpserver "janggi/internal/server/http"
)

var sharedEngine *engine.Engine

func ensureEngine() *engine.Engine {
	if sharedEngine == nil {
		sharedEngine = engine.New(engine.DefaultConfig())
	}
	return sharedEngine
}

func cToGoBoard(ptr *C.int8_t, squares C.int) *board.Board {
	raw := (*[board.NumSquares]C.int8_t)(unsafe.Pointer(ptr))
	b := &board.Board{}
	n := int(squares)
	if n > board.NumSquares {
		n = board.NumSquares
	}
	for i := 0; i < n; i++ {
		b.Squares[i] = board.Piece(raw[i])
	}
	return b
}

func cToGoSide(pla C.int8_t) board.Side {
	if pla == 1 {
		return board.Han
	}
	return board.Cho
}

//export IsLegal
func IsLegal(boardPtr *C.int8_t, pla C.int8_t, from, to C.int) C.bool {
	b := cToGoBoard(boardPtr, board.NumSquares)
	b.SideToMove = cToGoSide(pla)
	for _, m := range b.GenerateLegalMoves() {
		if int(from) == m.From && int(to) == m.To {
			return C.bool(true)
		}
	}
	return C.bool(false)
}

//export GetLegalBitmask
func GetLegalBitmask(boardPtr *C.int8_t, pla C.int8_t, from C.int, maskOut *C.int8_t) {
	b := cToGoBoard(boardPtr, board.NumSquares)
	b.SideToMove = cToGoSide(pla)

	mask := (*[board.NumSquares]C.int8_t)(unsafe.Pointer(maskOut))
	for i := range mask {
		mask[i] = 0
	}
	for _, m := range b.GenerateLegalMoves() {
		if m.From == int(from) {
			mask[m.To] = 1
		}
	}
}

//export CheckWinner
func CheckWinner(boardPtr *C.int8_t, pla C.int8_t) C.int8_t {
	b := cToGoBoard(boardPtr, board.NumSquares)
	b.SideToMove = cToGoSide(pla)
	switch b.Winner() {
	case board.Cho:
		return C.int8_t(0)
	case board.Han:
		return C.int8_t(1)
	default:
		return C.int8_t(-1)
	}
}

//export StartServer
func StartServer(webDirC *C.char, modelPathC *C.char, weightsPathC *C.char, portC *C.char) {
	webDir := C.GoString(webDirC)
	modelPath := C.GoString(modelPathC)
	weightsPath := C.GoString(weightsPathC)
	port := C.GoString(portC)

	eng := ensureEngine()
	eng.Config.ModelPath = modelPath
	if weightsPath != "" {
		_ = eng.LoadWeights(weightsPath)
	}

	mux := http.NewServeMux()
	handler := httpserver.NewHandler(eng.Log, eng)
	mux.Handle("/api/", handler)
	mux.Handle("/", http.FileServer(http.Dir(webDir)))

	go func() {
		srv := &http.Server{Addr: "127.0.0.1:" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		_ = srv.ListenAndServe()
	}()
}

func main() {}
