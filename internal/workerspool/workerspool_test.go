// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ParallelFor(t *testing.T) {
	for _, parallelism := range []int{-1, 0, 1, 3} {
		pool := NewWithParallelism(parallelism)
		const numItems = 1000
		seen := make([]int32, numItems)
		var mu sync.Mutex
		var numChunks int
		pool.ParallelFor(numItems, 64, func(start, end int) {
			mu.Lock()
			numChunks++
			mu.Unlock()
			for ii := start; ii < end; ii++ {
				atomic.AddInt32(&seen[ii], 1)
			}
		})
		for ii, count := range seen {
			require.Equalf(t, int32(1), count, "item %d visited %d times with parallelism %d", ii, count, parallelism)
		}
		if parallelism == 0 {
			assert.Equal(t, 1, numChunks)
		} else {
			assert.Equal(t, 16, numChunks) // ceil(1000/64)
		}
	}
}

func TestPool_WaitToStart(t *testing.T) {
	pool := NewWithParallelism(2)
	assert.True(t, pool.IsEnabled())
	assert.False(t, pool.IsUnlimited())
	var wg sync.WaitGroup
	var maxRunning, running atomic.Int32
	for range 10 {
		wg.Add(1)
		pool.WaitToStart(func() {
			defer wg.Done()
			current := running.Add(1)
			for {
				prev := maxRunning.Load()
				if current <= prev || maxRunning.CompareAndSwap(prev, current) {
					break
				}
			}
			running.Add(-1)
		})
	}
	wg.Wait()
	assert.LessOrEqual(t, int(maxRunning.Load()), 2)

	pool.SetMaxParallelism(0)
	ran := false
	pool.WaitToStart(func() { ran = true })
	assert.True(t, ran, "with parallelism disabled the task runs inline")
}
