// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package devices

import (
	"reflect"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opkernels/internal/workerspool"
	"github.com/gomlx/opkernels/pkg/support/xsync"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// StreamDeviceName to be used in OPKERNELS_DEVICE to specify the asynchronous stream device.
//
// Its configuration is the maximum parallelism used for large copies: "stream:4".
// "stream:0" copies sequentially (still asynchronously), and the default is runtime.NumCPU().
const StreamDeviceName = "stream"

func init() {
	Register(StreamDeviceName, NewStream)
}

// StreamChunkSize is the number of elements above which a copy is split in chunks copied in parallel.
var StreamChunkSize = 1 << 16

// streamQueueSize is the number of operations that can be enqueued before Copy blocks.
const streamQueueSize = 64

var streamIDs atomic.Int32

// StreamContext executes copies asynchronously and in order, in a dedicated goroutine.
// Errors of the asynchronous operations are reported by Wait.
type StreamContext struct {
	place Place
	pool  *workerspool.Pool

	queue   chan func() error
	pending *xsync.DynamicWaitGroup
	stopped *xsync.Latch

	muErr sync.Mutex
	err   error

	muFinalize sync.Mutex
	finalized  atomic.Bool
}

// Compile-time check that StreamContext implements Context.
var _ Context = (*StreamContext)(nil)

// NewStream constructs an asynchronous stream device context.
// The optional config is the maximum parallelism used to split large copies.
func NewStream(config string) (Context, error) {
	parallelism := runtime.NumCPU()
	if config != "" {
		var err error
		parallelism, err = strconv.Atoi(config)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid stream parallelism %q", config)
		}
	}
	s := &StreamContext{
		place:   Place{Kind: Stream, ID: int(streamIDs.Add(1) - 1)},
		pool:    workerspool.NewWithParallelism(parallelism),
		queue:   make(chan func() error, streamQueueSize),
		pending: xsync.NewDynamicWaitGroup(),
		stopped: xsync.NewLatch(),
	}
	go s.run()
	return s, nil
}

// run executes the enqueued operations in order, until the queue is closed.
func (s *StreamContext) run() {
	defer s.stopped.Trigger()
	for op := range s.queue {
		if err := s.execute(op); err != nil {
			s.setError(err)
		}
		s.pending.Done()
	}
}

// execute op, converting panics to errors, so one bad operation doesn't bring down the stream.
func (s *StreamContext) execute(op func() error) (err error) {
	exception := exceptions.Try(func() { err = op() })
	if exception != nil {
		if excErr, ok := exception.(error); ok {
			return errors.WithMessagef(excErr, "device %s: panic during asynchronous operation", s.place)
		}
		return errors.Errorf("device %s: panic during asynchronous operation: %v", s.place, exception)
	}
	return err
}

func (s *StreamContext) setError(err error) {
	s.muErr.Lock()
	defer s.muErr.Unlock()
	if s.err == nil {
		s.err = err
	} else {
		klog.Warningf("device %s: dropping error after the first one: %v", s.place, err)
	}
}

// Place implements Context.
func (s *StreamContext) Place() Place { return s.place }

// Parallelism returns the maximum parallelism used for large copies.
func (s *StreamContext) Parallelism() int { return s.pool.MaxParallelism() }

// Copy implements Context. It validates the arguments immediately, and enqueues the copy.
func (s *StreamContext) Copy(dst, src any) error {
	if err := CheckCopy(dst, src); err != nil {
		return err
	}
	numElements := lenOf(src)
	return s.enqueue(func() error {
		s.pool.ParallelFor(numElements, StreamChunkSize, func(start, end int) {
			copyRange(dst, src, start, end)
		})
		return nil
	})
}

// Launch enqueues an arbitrary operation, executed in order with the copies.
// Its error (or panic) is reported by the next Wait.
func (s *StreamContext) Launch(op func() error) error {
	return s.enqueue(op)
}

// enqueue an operation to be executed in order.
func (s *StreamContext) enqueue(op func() error) error {
	s.muFinalize.Lock()
	defer s.muFinalize.Unlock()
	if s.finalized.Load() {
		return ErrFinalized
	}
	s.pending.Add(1)
	s.queue <- op
	return nil
}

// Wait implements Context: it blocks until all enqueued operations are finished and returns (and clears)
// the first error since the last Wait.
func (s *StreamContext) Wait() error {
	s.pending.Wait()
	s.muErr.Lock()
	defer s.muErr.Unlock()
	err := s.err
	s.err = nil
	if err == nil && s.finalized.Load() {
		return ErrFinalized
	}
	return err
}

// Finalize implements Context. It waits for the pending operations and stops the stream goroutine.
func (s *StreamContext) Finalize() {
	s.muFinalize.Lock()
	if s.finalized.Load() {
		s.muFinalize.Unlock()
		return
	}
	s.finalized.Store(true)
	close(s.queue)
	s.muFinalize.Unlock()
	s.stopped.Wait()
}

// lenOf returns the length of a slice given as any.
func lenOf(slice any) int {
	return reflect.ValueOf(slice).Len()
}
