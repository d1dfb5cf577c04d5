package accel

import (
	"fmt"
	"math"

	"janggi/internal/weights"
)

// CPUReferencePipe is a direct (non-Winograd) convolution implementation
// of ForwardPipe. It exists for two reasons (spec.md §4.2, §4.3): it is
// the deterministic reference path the self-check comparator runs
// against, and it is the zero-dependency fallback when no accelerator
// device is configured. The Winograd/GEMM formulation used by a real
// accelerator pipe is explicitly out of scope (spec.md §1); this type
// only has to agree with it numerically within the self-check tolerance,
// not implement the same algorithm.
type CPUReferencePipe struct {
	channels int
	weights  *weights.Bundle
}

func NewCPUReferencePipe() *CPUReferencePipe { return &CPUReferencePipe{} }

func (p *CPUReferencePipe) Initialize(channels int) error {
	p.channels = channels
	return nil
}

func (p *CPUReferencePipe) NeedsAutodetect() bool { return false }

func (p *CPUReferencePipe) PushWeights(filterSize, channels, outputs int, w *weights.Bundle) error {
	if filterSize != 3 {
		return fmt.Errorf("accel: CPUReferencePipe only supports 3x3 filters, got %d", filterSize)
	}
	p.channels = channels
	p.weights = w
	return nil
}

// Forward runs the residual tower + policy/value heads directly against
// the 9x10 board, batch element by batch element.
func (p *CPUReferencePipe) Forward(input []float32, outputPolicy, outputValue []float32, batchSize int) error {
	if p.weights == nil {
		return fmt.Errorf("accel: CPUReferencePipe.Forward called before PushWeights")
	}
	const h, w = 10, 9
	inStride := InputChannels * BoardSquares
	polStride := OutputsPolicy
	valStride := OutputsValue

	for b := 0; b < batchSize; b++ {
		in := input[b*inStride : (b+1)*inStride]
		x := toPlanes(in, InputChannels, h, w)

		cur := conv3x3BNReLU(x, InputChannels, p.channels,
			p.weights.ConvWeights[0], p.weights.BatchnormMeans[0], p.weights.BatchnormStddevs[0], h, w, true)
		curChannels := p.channels
		for blk := 0; blk < p.weights.ResidualBlocks; blk++ {
			cur, curChannels = p.residualBlock(cur, curChannels, blk, h, w)
		}

		pol := p.policyHead(cur, curChannels, h, w)
		copy(outputPolicy[b*polStride:(b+1)*polStride], pol)

		val := p.valueHead(cur, curChannels, h, w)
		copy(outputValue[b*valStride:(b+1)*valStride], val)
	}
	return nil
}

func toPlanes(flat []float32, channels, h, w int) [][]float32 {
	planes := make([][]float32, channels)
	sz := h * w
	for c := 0; c < channels; c++ {
		planes[c] = flat[c*sz : (c+1)*sz]
	}
	return planes
}

func (p *CPUReferencePipe) residualBlock(in [][]float32, inChannels, blk, h, w int) ([][]float32, int) {
	first := 1 + blk*2
	mid := conv3x3BNReLU(in, inChannels, p.channels,
		p.weights.ConvWeights[first], p.weights.BatchnormMeans[first], p.weights.BatchnormStddevs[first], h, w, true)
	out := conv3x3BNReLU(mid, p.channels, p.channels,
		p.weights.ConvWeights[first+1], p.weights.BatchnormMeans[first+1], p.weights.BatchnormStddevs[first+1], h, w, false)

	if blk < len(p.weights.Squeeze1) {
		out = applySqueezeExcitation(out, p.channels, h, w, p.weights.Squeeze1[blk], p.weights.Squeeze2[blk])
	}

	for c := 0; c < p.channels && c < inChannels; c++ {
		for i := range out[c] {
			out[c][i] += in[c][i]
			if out[c][i] < 0 {
				out[c][i] = 0
			}
		}
	}
	return out, p.channels
}

func conv3x3BNReLU(in [][]float32, inChannels, outChannels int, weight, bnMean, bnStddev []float32, h, w int, relu bool) [][]float32 {
	out := make([][]float32, outChannels)
	sz := h * w
	for oc := 0; oc < outChannels; oc++ {
		plane := make([]float32, sz)
		for ic := 0; ic < inChannels; ic++ {
			wbase := (oc*inChannels + ic) * 9
			if wbase+9 > len(weight) {
				continue
			}
			convolve3x3Into(plane, in[ic], weight[wbase:wbase+9], h, w)
		}
		scale := float32(1)
		if oc < len(bnStddev) {
			scale = bnStddev[oc]
		}
		mean := float32(0)
		if oc < len(bnMean) {
			mean = bnMean[oc]
		}
		for i := range plane {
			v := (plane[i] - mean) * scale
			if relu && v < 0 {
				v = 0
			}
			plane[i] = v
		}
		out[oc] = plane
	}
	return out
}

func convolve3x3Into(dst, src []float32, kernel []float32, h, w int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float32
			k := 0
			for dy := -1; dy <= 1; dy++ {
				sy := y + dy
				for dx := -1; dx <= 1; dx++ {
					sx := x + dx
					if sy >= 0 && sy < h && sx >= 0 && sx < w {
						acc += src[sy*w+sx] * kernel[k]
					}
					k++
				}
			}
			dst[y*w+x] += acc
		}
	}
}

func applySqueezeExcitation(planes [][]float32, channels, h, w int, squeeze1, squeeze2 []float32) [][]float32 {
	sz := h * w
	avg := make([]float32, channels)
	for c := 0; c < channels; c++ {
		var sum float32
		for _, v := range planes[c] {
			sum += v
		}
		avg[c] = sum / float32(sz)
	}
	bottleneck := len(squeeze2) / (2 * channels)
	if bottleneck <= 0 {
		return planes
	}
	hidden := make([]float32, bottleneck)
	for j := 0; j < bottleneck; j++ {
		var acc float32
		for c := 0; c < channels; c++ {
			acc += avg[c] * squeeze1[j*channels+c]
		}
		if acc < 0 {
			acc = 0
		}
		hidden[j] = acc
	}
	gate := make([]float32, 2*channels)
	for c := 0; c < 2*channels; c++ {
		var acc float32
		for j := 0; j < bottleneck; j++ {
			acc += hidden[j] * squeeze2[c*bottleneck+j]
		}
		gate[c] = acc
	}
	for c := 0; c < channels; c++ {
		scale := sigmoid(gate[c])
		bias := gate[channels+c]
		for i := range planes[c] {
			planes[c][i] = planes[c][i]*scale + bias
		}
	}
	return planes
}

func sigmoid(x float32) float32 { return float32(1 / (1 + math.Exp(-float64(x)))) }

func (p *CPUReferencePipe) policyHead(in [][]float32, inChannels, h, w int) []float32 {
	conv := conv1x1(in, inChannels, p.weights.ConvPolW, p.weights.ConvPolB, h, w)
	return innerProduct(flatten(conv), p.weights.IPPolW, p.weights.IPPolB, OutputsPolicy)
}

func (p *CPUReferencePipe) valueHead(in [][]float32, inChannels, h, w int) []float32 {
	conv := conv1x1(in, inChannels, p.weights.ConvValW, p.weights.ConvValB, h, w)
	hidden := innerProduct(flatten(conv), p.weights.IPValW, p.weights.IPValB, OutputsValue)
	for i := range hidden {
		if hidden[i] < 0 {
			hidden[i] = 0
		}
	}
	// Final tanh is left to the caller (eval.Evaluator.evaluateRaw), which
	// applies it once over whichever pipe produced rawValue.
	out := innerProduct(hidden, p.weights.IP2ValW, p.weights.IP2ValB, 1)
	return []float32{out[0]}
}

func conv1x1(in [][]float32, inChannels int, weight, bias []float32, h, w int) [][]float32 {
	sz := h * w
	outChannels := len(bias)
	out := make([][]float32, outChannels)
	for oc := 0; oc < outChannels; oc++ {
		plane := make([]float32, sz)
		for ic := 0; ic < inChannels; ic++ {
			wi := oc*inChannels + ic
			if wi >= len(weight) {
				continue
			}
			wv := weight[wi]
			for i := 0; i < sz; i++ {
				plane[i] += in[ic][i] * wv
			}
		}
		b := float32(0)
		if oc < len(bias) {
			b = bias[oc]
		}
		for i := range plane {
			plane[i] += b
		}
		out[oc] = plane
	}
	return out
}

func flatten(planes [][]float32) []float32 {
	var total int
	for _, p := range planes {
		total += len(p)
	}
	out := make([]float32, 0, total)
	for _, p := range planes {
		out = append(out, p...)
	}
	return out
}

func innerProduct(in, weight, bias []float32, outLen int) []float32 {
	inLen := len(in)
	out := make([]float32, outLen)
	for o := 0; o < outLen; o++ {
		var acc float32
		base := o * inLen
		for i := 0; i < inLen && base+i < len(weight); i++ {
			acc += in[i] * weight[base+i]
		}
		if o < len(bias) {
			acc += bias[o]
		}
		out[o] = acc
	}
	return out
}
