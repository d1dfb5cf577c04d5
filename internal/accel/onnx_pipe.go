package accel

import (
	"fmt"
	"log/slog"

	ort "github.com/yalue/onnxruntime_go"

	"janggi/internal/weights"
)

// ONNXPipe is the default accelerator device pipe, backed by ONNX Runtime.
// It expects a pre-exported ONNX graph matching the residual tower +
// policy/value head contract of spec.md §4.3 — the weight bundle loaded by
// internal/weights is used only to size tensors and drive the CPU
// reference pipe's self-check comparator, not to hand-assemble an ONNX
// graph at runtime. Provider selection follows the teacher's fallback
// chain (TensorRT -> CUDA -> DirectML -> CPU).
type ONNXPipe struct {
	log          *slog.Logger
	modelPath    string
	sharedLibPath string
	batchSize    int
	channels     int

	session *ort.AdvancedSession
	input   ort.Value
	policy  ort.Value
	value   ort.Value

	inputData []float32
	polData   []float32
	valData   []float32
}

func NewONNXPipe(log *slog.Logger, modelPath, sharedLibPath string, batchSize int) *ONNXPipe {
	return &ONNXPipe{log: log, modelPath: modelPath, sharedLibPath: sharedLibPath, batchSize: batchSize}
}

func (p *ONNXPipe) Initialize(channels int) error {
	p.channels = channels
	if !ort.IsInitialized() {
		if p.sharedLibPath != "" {
			ort.SetSharedLibraryPath(p.sharedLibPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("accel: onnxruntime init: %w", err)
		}
	}

	inShape := ort.NewShape(int64(p.batchSize), int64(InputChannels), 10, 9)
	polShape := ort.NewShape(int64(p.batchSize), int64(OutputsPolicy))
	valShape := ort.NewShape(int64(p.batchSize), int64(OutputsValue))

	inputData := make([]float32, p.batchSize*InputChannels*BoardSquares)
	polData := make([]float32, p.batchSize*OutputsPolicy)
	valData := make([]float32, p.batchSize*OutputsValue)

	in, err := ort.NewTensor(inShape, inputData)
	if err != nil {
		return fmt.Errorf("accel: input tensor: %w", err)
	}
	pol, err := ort.NewTensor(polShape, polData)
	if err != nil {
		return fmt.Errorf("accel: policy tensor: %w", err)
	}
	val, err := ort.NewTensor(valShape, valData)
	if err != nil {
		return fmt.Errorf("accel: value tensor: %w", err)
	}
	p.input, p.policy, p.value = in, pol, val
	p.inputData, p.polData, p.valData = inputData, polData, valData

	type provider struct {
		name  string
		setup func(*ort.SessionOptions) error
	}
	providers := []provider{
		{"TensorRT", func(so *ort.SessionOptions) error {
			o, err := ort.NewTensorRTProviderOptions()
			if err != nil {
				return err
			}
			defer o.Destroy()
			return so.AppendExecutionProviderTensorRT(o)
		}},
		{"CUDA", func(so *ort.SessionOptions) error {
			o, err := ort.NewCUDAProviderOptions()
			if err != nil {
				return err
			}
			defer o.Destroy()
			return so.AppendExecutionProviderCUDA(o)
		}},
		{"DirectML", func(so *ort.SessionOptions) error {
			return so.AppendExecutionProviderDirectML(0)
		}},
		{"CPU", func(so *ort.SessionOptions) error { return nil }},
	}

	var lastErr error
	for _, prov := range providers {
		so, err := ort.NewSessionOptions()
		if err != nil {
			lastErr = err
			continue
		}
		if err := prov.setup(so); err != nil {
			p.log.Debug("accel: provider setup failed", "provider", prov.name, "err", err)
			so.Destroy()
			lastErr = err
			continue
		}
		sess, err := ort.NewAdvancedSession(p.modelPath,
			[]string{"input"}, []string{"policy", "value"},
			[]ort.Value{p.input}, []ort.Value{p.policy, p.value}, so)
		so.Destroy()
		if err != nil {
			p.log.Debug("accel: session creation failed", "provider", prov.name, "err", err)
			lastErr = err
			continue
		}
		p.session = sess
		p.log.Info("accel: onnx runtime session initialized", "provider", prov.name)
		return nil
	}
	return fmt.Errorf("accel: no execution provider succeeded: %w", lastErr)
}

func (p *ONNXPipe) NeedsAutodetect() bool { return false }

// PushWeights is a no-op for ONNXPipe: the graph's own weights are baked
// into the .onnx file at export time, out of scope for this module.
func (p *ONNXPipe) PushWeights(filterSize, channels, outputs int, w *weights.Bundle) error {
	return nil
}

func (p *ONNXPipe) Forward(input []float32, outputPolicy, outputValue []float32, batchSize int) error {
	if p.session == nil {
		return fmt.Errorf("accel: ONNXPipe.Forward called before Initialize")
	}
	copy(p.inputData, input)
	if err := p.session.Run(); err != nil {
		return fmt.Errorf("accel: onnx run: %w", err)
	}
	copy(outputPolicy, p.polData[:batchSize*OutputsPolicy])
	copy(outputValue, p.valData[:batchSize*OutputsValue])
	return nil
}

func (p *ONNXPipe) Close() error {
	if p.session != nil {
		p.session.Destroy()
	}
	return nil
}
