// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"github.com/gomlx/opkernels/pkg/core/devices"
	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/gomlx/opkernels/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CopyFromVector resizes dst to a vector of len(values) elements of T, allocates new storage for it
// at devCtx's place, and copies values into it using devCtx.
//
// Any previous content and dimensions of dst are replaced. If devCtx is asynchronous, the data is only
// in place after devCtx.Wait() returns, and values must not be changed until then.
//
// On error dst is left unchanged.
func CopyFromVector[T dtypes.Supported](values []T, devCtx devices.Context, dst *Tensor) error {
	if dst == nil {
		return errors.New("CopyFromVector: destination tensor is nil")
	}
	if devCtx == nil {
		return errors.New("CopyFromVector: device context is nil")
	}
	dtype := dtypes.FromGenericsType[T]()
	if _, isInt := any(values).([]int); isInt {
		return errors.New("CopyFromVector: Go's int is not portable, use int32 or int64 values")
	}
	storage := make([]T, len(values))
	if err := devCtx.Copy(storage, values); err != nil {
		return errors.WithMessagef(err, "CopyFromVector: failed to copy %d values of %s to %s",
			len(values), dtype, devCtx.Place())
	}

	dst.mu.Lock()
	defer dst.mu.Unlock()
	if dst.finalized {
		return errors.New("CopyFromVector: destination tensor has been finalized")
	}
	if dst.shape.DType.IsValid() && dst.shape.DType != dtype {
		klog.V(2).Infof("CopyFromVector: tensor dtype changed from %s to %s", dst.shape.DType, dtype)
	}
	dst.shape = shapes.Shape{DType: dtype, Dimensions: []int{len(values)}}
	dst.flat = storage
	dst.place = devCtx.Place()
	return nil
}
