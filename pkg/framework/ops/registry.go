// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

var (
	// ErrUnknownOp is returned when looking up an operator type that was not registered.
	ErrUnknownOp = errors.New("operator not registered")

	// ErrNoKernel is returned when an operator has no kernel registered for the requested KernelKey.
	ErrNoKernel = errors.New("no kernel registered")
)

var (
	registryMu sync.RWMutex

	// registeredOps should be populated during initialization (`init` functions) of the kernel packages.
	registeredOps = make(map[string]*OpInfo)

	// registeredKernels per operator type.
	registeredKernels = make(map[string]map[KernelKey]Kernel)
)

// RegisterOp registers the operator type described by info.
//
// It panics if the operator is already registered, or if info is missing required fields.
// Call it during the initialization of a package.
func RegisterOp(info *OpInfo) {
	if info == nil || info.Type == "" {
		exceptions.Panicf("ops.RegisterOp: operator type must be given")
	}
	if info.ExpectedKernelDType == nil {
		exceptions.Panicf("ops.RegisterOp(%q): ExpectedKernelDType must be given", info.Type)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, found := registeredOps[info.Type]; found {
		exceptions.Panicf("ops.RegisterOp(%q): operator registered twice", info.Type)
	}
	registeredOps[info.Type] = info
}

// RegisterKernel registers the kernel for the operator type and key.
//
// It panics if a kernel is already registered for the same operator type and key.
// The operator itself may be registered before or after its kernels.
func RegisterKernel(opType string, key KernelKey, kernel Kernel) {
	if kernel == nil {
		exceptions.Panicf("ops.RegisterKernel(%q, %s): nil kernel", opType, key)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	kernels := registeredKernels[opType]
	if kernels == nil {
		kernels = make(map[KernelKey]Kernel)
		registeredKernels[opType] = kernels
	}
	if _, found := kernels[key]; found {
		exceptions.Panicf("ops.RegisterKernel(%q, %s): kernel registered twice", opType, key)
	}
	kernels[key] = kernel
}

// LookupOp returns the OpInfo of the operator type.
func LookupOp(opType string) (*OpInfo, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, found := registeredOps[opType]
	if !found {
		return nil, errors.Wrapf(ErrUnknownOp, "%q (registered: %v)", opType, lockedRegisteredOps())
	}
	return info, nil
}

// LookupKernel returns the kernel of the operator type for the key.
func LookupKernel(opType string, key KernelKey) (Kernel, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kernel, found := registeredKernels[opType][key]
	if !found {
		return nil, errors.Wrapf(ErrNoKernel, "operator %q, key %s (available: %v)", opType, key, lockedKernelKeys(opType))
	}
	return kernel, nil
}

// RegisteredOps returns the sorted list of registered operator types.
func RegisteredOps() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return lockedRegisteredOps()
}

// KernelKeys returns the keys for which the operator type has kernels registered, sorted.
func KernelKeys(opType string) []KernelKey {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return lockedKernelKeys(opType)
}

func lockedRegisteredOps() []string {
	return sortedKeys(registeredOps)
}

func lockedKernelKeys(opType string) []KernelKey {
	keys := make([]KernelKey, 0, len(registeredKernels[opType]))
	for key := range registeredKernels[opType] {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b KernelKey) int {
		if a.DType != b.DType {
			return int(a.DType) - int(b.DType)
		}
		return int(a.Kind) - int(b.Kind)
	})
	return keys
}
