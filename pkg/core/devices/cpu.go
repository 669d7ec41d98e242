// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package devices

import (
	"strconv"
	"sync/atomic"

	"github.com/pkg/errors"
)

// CPUDeviceName to be used in OPKERNELS_DEVICE to specify the synchronous CPU device.
const CPUDeviceName = "cpu"

func init() {
	Register(CPUDeviceName, NewCPU)
}

// CPUContext executes copies synchronously: when Copy returns, the data is in place.
type CPUContext struct {
	place     Place
	finalized atomic.Bool
}

// Compile-time check that CPUContext implements Context.
var _ Context = (*CPUContext)(nil)

// NewCPU constructs a synchronous CPU device context.
// The optional config is the device id.
func NewCPU(config string) (Context, error) {
	id := 0
	if config != "" {
		var err error
		id, err = strconv.Atoi(config)
		if err != nil || id < 0 {
			return nil, errors.Errorf("invalid cpu device id %q", config)
		}
	}
	return &CPUContext{place: Place{Kind: CPU, ID: id}}, nil
}

// Place implements Context.
func (c *CPUContext) Place() Place { return c.place }

// Copy implements Context. It is synchronous.
func (c *CPUContext) Copy(dst, src any) error {
	if c.finalized.Load() {
		return ErrFinalized
	}
	if err := CheckCopy(dst, src); err != nil {
		return err
	}
	copyRange(dst, src, 0, lenOf(src))
	return nil
}

// Wait implements Context. Since copies are synchronous, there is nothing to wait for.
func (c *CPUContext) Wait() error {
	if c.finalized.Load() {
		return ErrFinalized
	}
	return nil
}

// Finalize implements Context.
func (c *CPUContext) Finalize() {
	c.finalized.Store(true)
}
