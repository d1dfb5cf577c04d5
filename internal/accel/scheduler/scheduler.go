// Package scheduler implements the inference scheduler of spec.md §4.3:
// it multiplexes many concurrent evaluation requests onto a small number
// of accelerator device pipes, forming batches under an adaptive latency
// budget, with an optional low-probability self-check against a reference
// pipe.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"janggi/internal/accel"
)

var ErrSelfCheckFatal = errors.New("scheduler: self-check mismatch exceeded breach threshold")

const (
	selfCheckProbabilityDenominator = 10000
	selfCheckL2Threshold            = 0.05
	selfCheckMaxConsecutiveBreaches = 10
	initialWaitTimeMs               = 5
	minWaitTimeMs                   = 1
	maxWaitTimeMs                   = 100
)

type entry struct {
	input       []float32
	outPolicy   []float32
	outValue    []float32
	done        chan error
}

// Scheduler owns one worker pool per device and a shared pending-request
// queue (spec.md §4.3 "Queue & workers").
type Scheduler struct {
	log       *slog.Logger
	devices   []accel.ForwardPipe
	refPipe   accel.ForwardPipe // self-check comparator; nil disables self-check
	batchSize int

	mu    sync.Mutex
	queue []*entry
	wake  chan struct{}

	waitTimeMs           atomic.Int64
	singleEvalInProgress atomic.Bool
	breachCount          atomic.Int32
	running              atomic.Bool

	workersPerDevice int
	group            *errgroup.Group
}

// New builds a Scheduler. numSchedulerThreads and batchSize drive the
// per-device worker count via the formula ported from
// OpenCLScheduler.cpp::initialize: workers = threads/batchSize/(devices+1)+1.
func New(log *slog.Logger, devices []accel.ForwardPipe, refPipe accel.ForwardPipe, numSchedulerThreads, batchSize int) *Scheduler {
	if batchSize < 1 {
		batchSize = 1
	}
	workers := numSchedulerThreads/batchSize/(len(devices)+1) + 1
	s := &Scheduler{
		log:              log,
		devices:          devices,
		refPipe:          refPipe,
		batchSize:        batchSize,
		wake:             make(chan struct{}, 1),
		workersPerDevice: workers,
	}
	s.waitTimeMs.Store(initialWaitTimeMs)
	return s
}

// Start launches workersPerDevice goroutines per device.
func (s *Scheduler) Start() {
	s.running.Store(true)
	g := new(errgroup.Group)
	s.group = g
	for devIdx, dev := range s.devices {
		for w := 0; w < s.workersPerDevice; w++ {
			d := dev
			idx := devIdx
			g.Go(func() error {
				s.batchWorker(idx, d)
				return nil
			})
		}
	}
}

// Stop drains the queue (failing any waiters) and stops all workers.
func (s *Scheduler) Stop() {
	s.running.Store(false)
	s.poke()
	if s.group != nil {
		_ = s.group.Wait()
	}
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Forward submits one evaluation request and blocks until a worker's
// batch dispatch completes it (spec.md §4.3 "Dispatch").
func (s *Scheduler) Forward(input, outPolicy, outValue []float32) error {
	e := &entry{input: input, outPolicy: outPolicy, outValue: outValue, done: make(chan error, 1)}
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	s.poke()
	return <-e.done
}

// batchWorker implements the adaptive batching heuristic of spec.md §4.3.
func (s *Scheduler) batchWorker(deviceIdx int, dev accel.ForwardPipe) {
	for {
		batch, wasSingleEval, queueGrewDuring := s.pickupTask()
		if batch == nil {
			return
		}
		s.dispatch(deviceIdx, dev, batch)
		if wasSingleEval {
			s.singleEvalInProgress.Store(false)
			if queueGrewDuring() {
				s.bumpWaitTime(+1)
			}
		}
	}
}

func (s *Scheduler) pickupTask() (batch []*entry, wasSingleEval bool, queueGrewDuring func() bool) {
	for {
		if !s.running.Load() {
			return nil, false, nil
		}
		s.mu.Lock()
		if len(s.queue) >= s.batchSize {
			b := s.queue[:s.batchSize]
			s.queue = s.queue[s.batchSize:]
			s.mu.Unlock()
			return b, false, nil
		}
		s.mu.Unlock()

		wait := time.Duration(s.waitTimeMs.Load()) * time.Millisecond
		select {
		case <-s.wake:
			continue
		case <-time.After(wait):
			s.mu.Lock()
			if len(s.queue) >= s.batchSize {
				b := s.queue[:s.batchSize]
				s.queue = s.queue[s.batchSize:]
				s.mu.Unlock()
				return b, false, nil
			}
			if len(s.queue) > 0 && s.singleEvalInProgress.CompareAndSwap(false, true) {
				b := s.queue[:1]
				s.queue = s.queue[1:]
				lenAtClaim := len(s.queue)
				s.mu.Unlock()
				s.bumpWaitTime(-1)
				grew := func() bool {
					s.mu.Lock()
					defer s.mu.Unlock()
					return len(s.queue) > lenAtClaim
				}
				return b, true, grew
			}
			s.mu.Unlock()
			if !s.running.Load() {
				return nil, false, nil
			}
		}
	}
}

func (s *Scheduler) bumpWaitTime(delta int64) {
	for {
		cur := s.waitTimeMs.Load()
		next := cur + delta
		if next < minWaitTimeMs {
			next = minWaitTimeMs
		}
		if next > maxWaitTimeMs {
			next = maxWaitTimeMs
		}
		if s.waitTimeMs.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (s *Scheduler) dispatch(deviceIdx int, dev accel.ForwardPipe, batch []*entry) {
	n := len(batch)
	inLen := len(batch[0].input)
	polLen := len(batch[0].outPolicy)
	valLen := len(batch[0].outValue)

	flatIn := make([]float32, n*inLen)
	flatPol := make([]float32, n*polLen)
	flatVal := make([]float32, n*valLen)
	for i, e := range batch {
		copy(flatIn[i*inLen:(i+1)*inLen], e.input)
	}

	err := dev.Forward(flatIn, flatPol, flatVal, n)
	if err != nil {
		for _, e := range batch {
			e.done <- fmt.Errorf("scheduler: device %d forward: %w", deviceIdx, err)
		}
		return
	}

	for i, e := range batch {
		copy(e.outPolicy, flatPol[i*polLen:(i+1)*polLen])
		copy(e.outValue, flatVal[i*valLen:(i+1)*valLen])
	}

	if s.refPipe != nil && rand.Intn(selfCheckProbabilityDenominator) == 0 {
		if err := s.selfCheck(batch[0], flatPol[:polLen], flatVal[:valLen]); err != nil {
			for _, e := range batch {
				select {
				case e.done <- err:
				default:
				}
			}
			return
		}
	}

	for _, e := range batch {
		e.done <- nil
	}
}

// selfCheck re-evaluates one request on the reference pipe and compares by
// L2 norm (spec.md §4.3 "Self-check (optional)").
func (s *Scheduler) selfCheck(e *entry, devicePolicy, deviceValue []float32) error {
	refPolicy := make([]float32, len(devicePolicy))
	refValue := make([]float32, len(deviceValue))
	if err := s.refPipe.Forward(e.input, refPolicy, refValue, 1); err != nil {
		return fmt.Errorf("scheduler: self-check reference forward: %w", err)
	}

	errNorm := l2Distance(devicePolicy, refPolicy) + l2Distance(deviceValue, refValue)
	if errNorm > selfCheckL2Threshold || math.IsNaN(errNorm) {
		breaches := s.breachCount.Add(1)
		s.log.Warn("scheduler: self-check mismatch", "l2_error", errNorm, "consecutive_breaches", breaches)
		if breaches > selfCheckMaxConsecutiveBreaches {
			return ErrSelfCheckFatal
		}
		return nil
	}
	s.decrementBreachCount()
	return nil
}

func (s *Scheduler) decrementBreachCount() {
	for {
		cur := s.breachCount.Load()
		if cur <= 0 {
			return
		}
		if s.breachCount.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
