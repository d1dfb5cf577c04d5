// Package weights loads accelerator weight bundles from the text weight
// format described in spec.md §6. Byte-level parsing/decompression and the
// Winograd pre-transform are the out-of-scope numerical internals; this
// package only validates structure and exposes the tensors as plain
// float32 slices for a ForwardPipe implementation to consume as it sees
// fit.
package weights

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	ErrUnknownVersion  = errors.New("weights: unknown format version")
	ErrLineCountMismatch = errors.New("weights: inconsistent number of weight lines")
)

const (
	formatPlainResidual = 1
	formatResidualSE    = 5

	// Fixed overhead: 1 format line + 4 input-convolution lines + 14
	// lines covering policy/value head weights, folding bias into the
	// following batchnorm mean as the loader reads each pair.
	fixedOverheadLines = 19
	linesPerBlockV1    = 8
	linesPerBlockV5    = 10
)

// Bundle mirrors ForwardPipeWeights from original_source's ForwardPipe.h:
// per-layer tensors for the residual tower, optional squeeze-excitation,
// and the policy/value heads.
type Bundle struct {
	Version int

	ConvWeights      [][]float32
	ConvBiases       [][]float32 // folded into BatchnormMeans after load
	BatchnormMeans   [][]float32
	BatchnormStddevs [][]float32

	Squeeze1 [][]float32 // empty slices overall when SE is unused
	Squeeze2 [][]float32

	ConvPolW, ConvPolB   []float32
	BnPolW1, BnPolW2     []float32
	IPPolW, IPPolB       []float32

	ConvValW, ConvValB []float32
	BnValW1, BnValW2   []float32
	IPValW, IPValB     []float32
	IP2ValW, IP2ValB   []float32

	Channels       int
	ResidualBlocks int
}

// Load reads a weight-file stream: the first line is the integer format
// discriminator (1 = plain residual, 5 = residual+SE); everything after is
// a flat sequence of whitespace-separated float32 values, one tensor per
// line, cycled per residual block per the line-count formulas in spec.md
// §6 and SPEC_FULL.md §8.
func Load(r io.Reader) (*Bundle, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<20), 1<<24)

	lines := make([]string, 0, 256)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("weights: read: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("weights: empty file")
	}

	version, err := strconv.Atoi(lines[0])
	if err != nil {
		return nil, fmt.Errorf("weights: parse version: %w", err)
	}
	if !isSupportedVersion(version) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}

	linesPerBlock := linesPerBlockV1
	if version == formatResidualSE {
		linesPerBlock = linesPerBlockV5
	}

	rest := len(lines) - fixedOverheadLines
	if rest < 0 || rest%linesPerBlock != 0 {
		return nil, fmt.Errorf("%w: %d data lines after %d-line header, not divisible by %d",
			ErrLineCountMismatch, rest, fixedOverheadLines, linesPerBlock)
	}
	blocks := rest / linesPerBlock

	b := &Bundle{Version: version, ResidualBlocks: blocks}
	idx := 1
	next := func() ([]float32, error) {
		v, err := parseFloatLine(lines[idx])
		idx++
		return v, err
	}

	// The input convolution is its own (weight,bias,mean,stddev) quartet,
	// counted in fixedOverheadLines rather than the per-block cycle below
	// (original_source's plain_conv_layers = 1 + residual_blocks*2).
	inW, err := next()
	if err != nil {
		return nil, err
	}
	inBias, err := next()
	if err != nil {
		return nil, err
	}
	inMean, err := next()
	if err != nil {
		return nil, err
	}
	inStddev, err := next()
	if err != nil {
		return nil, err
	}
	foldBiasIntoMean(inBias, inMean)
	b.ConvWeights = append(b.ConvWeights, inW)
	b.ConvBiases = append(b.ConvBiases, inBias)
	b.BatchnormMeans = append(b.BatchnormMeans, inMean)
	b.BatchnormStddevs = append(b.BatchnormStddevs, inStddev)
	b.Channels = len(inMean)

	for i := 0; i < blocks; i++ {
		w, err := next()
		if err != nil {
			return nil, err
		}
		bias, err := next()
		if err != nil {
			return nil, err
		}
		mean, err := next()
		if err != nil {
			return nil, err
		}
		stddev, err := next()
		if err != nil {
			return nil, err
		}
		foldBiasIntoMean(bias, mean)
		b.ConvWeights = append(b.ConvWeights, w)
		b.ConvBiases = append(b.ConvBiases, bias)
		b.BatchnormMeans = append(b.BatchnormMeans, mean)
		b.BatchnormStddevs = append(b.BatchnormStddevs, stddev)

		w2, err := next()
		if err != nil {
			return nil, err
		}
		bias2, err := next()
		if err != nil {
			return nil, err
		}
		mean2, err := next()
		if err != nil {
			return nil, err
		}
		stddev2, err := next()
		if err != nil {
			return nil, err
		}
		foldBiasIntoMean(bias2, mean2)
		b.ConvWeights = append(b.ConvWeights, w2)
		b.ConvBiases = append(b.ConvBiases, bias2)
		b.BatchnormMeans = append(b.BatchnormMeans, mean2)
		b.BatchnormStddevs = append(b.BatchnormStddevs, stddev2)

		if version == formatResidualSE {
			s1, err := next()
			if err != nil {
				return nil, err
			}
			s2, err := next()
			if err != nil {
				return nil, err
			}
			b.Squeeze1 = append(b.Squeeze1, s1)
			b.Squeeze2 = append(b.Squeeze2, s2)
		}
	}

	fields := []*[]float32{
		&b.ConvPolW, &b.ConvPolB, &b.BnPolW1, &b.BnPolW2, &b.IPPolW, &b.IPPolB,
		&b.ConvValW, &b.ConvValB, &b.BnValW1, &b.BnValW2, &b.IPValW, &b.IPValB,
		&b.IP2ValW, &b.IP2ValB,
	}
	for _, f := range fields {
		v, err := next()
		if err != nil {
			return nil, err
		}
		*f = v
	}
	return b, nil
}

func isSupportedVersion(v int) bool {
	tag := fmt.Sprintf("v%d.0.0", v)
	if !semver.IsValid(tag) {
		return false
	}
	return semver.Compare(tag, "v1.0.0") == 0 || semver.Compare(tag, "v5.0.0") == 0
}

func parseFloatLine(line string) ([]float32, error) {
	fields := strings.Fields(line)
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("weights: parse tensor value %q: %w", f, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// foldBiasIntoMean folds a convolution bias into the following batchnorm
// mean so that the forward pass can skip a separate bias-add (spec.md §6
// "bias vectors are folded into the following batchnorm means").
func foldBiasIntoMean(bias, mean []float32) {
	n := len(bias)
	if len(mean) < n {
		n = len(mean)
	}
	for i := 0; i < n; i++ {
		mean[i] -= bias[i]
	}
}
