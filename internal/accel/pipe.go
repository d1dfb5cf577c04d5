// Package accel defines the accelerator backend contract (spec.md §4.3,
// §6) and ships two implementations: a pure-Go reference pipe used for the
// self-check comparator and as a dependency-free fallback, and an ONNX
// Runtime-backed pipe used as the default device.
package accel

import "janggi/internal/weights"

const (
	InputChannels = 66
	BoardSquares  = 9 * 10

	// OutputsPolicy = 16 planes * 90 squares (spec.md §4.6 output policy).
	OutputsPolicy = 16 * BoardSquares
	OutputsValue  = 256
)

// ForwardPipe is the pluggable accelerator backend contract (spec.md §4.3
// "Accelerator pipeline contract"; ported from ForwardPipe.h).
type ForwardPipe interface {
	Initialize(channels int) error
	NeedsAutodetect() bool
	PushWeights(filterSize, channels, outputs int, w *weights.Bundle) error
	Forward(input []float32, outputPolicy, outputValue []float32, batchSize int) error
}
