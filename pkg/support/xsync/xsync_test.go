// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xsync

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatch(t *testing.T) {
	latch := NewLatch()
	require.False(t, latch.Test())
	go latch.Trigger()
	select {
	case <-latch.WaitChan():
	case <-time.After(time.Second):
		t.Fatal("latch was never triggered")
	}
	latch.Wait()
	require.True(t, latch.Test())
	latch.Trigger() // No-op.
}

func TestDynamicWaitGroup(t *testing.T) {
	wg := NewDynamicWaitGroup()
	wg.Wait() // Nothing pending.

	var done atomic.Int32
	wg.Add(2)
	assert.Equal(t, 2, wg.Count())
	for range 2 {
		go func() {
			time.Sleep(10 * time.Millisecond)
			done.Add(1)
			wg.Done()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(2), done.Load())
	assert.Equal(t, 0, wg.Count())
	assert.Panics(t, func() { wg.Done() })
}
