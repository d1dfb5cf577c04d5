package scheduler

import (
	"sync"
	"testing"

	"janggi/internal/accel"
	"janggi/internal/obs"
	"janggi/internal/weights"
)

// testPipe is a minimal accel.ForwardPipe stub: it records the largest
// batch size it was asked to forward, and when mismatched is set its
// Forward output deliberately diverges from the zero baseline so the
// self-check comparator trips.
type testPipe struct {
	mu         sync.Mutex
	maxBatch   int
	mismatched bool
}

func (p *testPipe) Initialize(int) error  { return nil }
func (p *testPipe) NeedsAutodetect() bool { return false }
func (p *testPipe) PushWeights(int, int, int, *weights.Bundle) error { return nil }

func (p *testPipe) Forward(input, outPolicy, outValue []float32, batchSize int) error {
	p.mu.Lock()
	if batchSize > p.maxBatch {
		p.maxBatch = batchSize
	}
	p.mu.Unlock()
	val := float32(0)
	if p.mismatched {
		val = 10
	}
	for i := range outPolicy {
		outPolicy[i] = val
	}
	for i := range outValue {
		outValue[i] = val
	}
	return nil
}

func TestSchedulerBatchesConcurrentRequests(t *testing.T) {
	dev := &testPipe{}
	log := obs.NewLogger(false)
	s := New(log, []accel.ForwardPipe{dev}, nil, 4, 4)
	s.Start()
	defer s.Stop()

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			in := make([]float32, 4)
			pol := make([]float32, 4)
			val := make([]float32, 4)
			if err := s.Forward(in, pol, val); err != nil {
				t.Errorf("Forward: %v", err)
			}
		}()
	}
	wg.Wait()

	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.maxBatch < 2 {
		t.Fatalf("got max batch %d, want at least one batch of size > 1 under concurrent load", dev.maxBatch)
	}
}

func TestBumpWaitTimeStaysWithinBounds(t *testing.T) {
	log := obs.NewLogger(false)
	s := New(log, nil, nil, 1, 1)
	for i := 0; i < 1000; i++ {
		s.bumpWaitTime(-1)
	}
	if got := s.waitTimeMs.Load(); got != minWaitTimeMs {
		t.Fatalf("got waitTimeMs=%d, want floor %d", got, minWaitTimeMs)
	}
	for i := 0; i < 1000; i++ {
		s.bumpWaitTime(+1)
	}
	if got := s.waitTimeMs.Load(); got != maxWaitTimeMs {
		t.Fatalf("got waitTimeMs=%d, want ceiling %d", got, maxWaitTimeMs)
	}
}

func TestSelfCheckBreachCounterFiresFatalAfterThreshold(t *testing.T) {
	log := obs.NewLogger(false)
	ref := &testPipe{mismatched: true}
	s := New(log, nil, ref, 1, 1)

	e := &entry{input: []float32{1}, outPolicy: make([]float32, 1), outValue: make([]float32, 1), done: make(chan error, 1)}
	var lastErr error
	for i := 0; i < selfCheckMaxConsecutiveBreaches+2; i++ {
		lastErr = s.selfCheck(e, []float32{0}, []float32{0})
	}
	if lastErr != ErrSelfCheckFatal {
		t.Fatalf("got %v, want ErrSelfCheckFatal after %d consecutive breaches", lastErr, selfCheckMaxConsecutiveBreaches)
	}
}

func TestSelfCheckSuccessDecrementsBreachCounter(t *testing.T) {
	log := obs.NewLogger(false)
	ref := &testPipe{}
	s := New(log, nil, ref, 1, 1)
	s.breachCount.Store(5)

	e := &entry{input: []float32{1}, outPolicy: make([]float32, 1), outValue: make([]float32, 1), done: make(chan error, 1)}
	if err := s.selfCheck(e, []float32{0}, []float32{0}); err != nil {
		t.Fatalf("selfCheck: %v", err)
	}
	if got := s.breachCount.Load(); got != 4 {
		t.Fatalf("got breachCount=%d, want 4", got)
	}
}
