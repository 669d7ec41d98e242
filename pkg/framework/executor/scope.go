// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package executor

import (
	"maps"
	"slices"
	"sync"

	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/gomlx/opkernels/pkg/core/tensors"
)

// Scope holds the named variables of a program execution: each variable is a tensor, created
// uninitialized the first time it is referenced.
//
// It is safe for concurrent use. The tensors it holds are owned by the Scope.
type Scope struct {
	mu   sync.Mutex
	vars map[string]*tensors.Tensor
}

// NewScope returns an empty Scope.
func NewScope() *Scope {
	return &Scope{vars: make(map[string]*tensors.Tensor)}
}

// Var returns the variable with the given name, creating an uninitialized tensor if it doesn't exist yet.
func (s *Scope) Var(name string) *tensors.Tensor {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, found := s.vars[name]
	if !found {
		t = tensors.New(dtypes.InvalidDType)
		s.vars[name] = t
	}
	return t
}

// FindVar returns the variable with the given name, or nil if it doesn't exist.
func (s *Scope) FindVar(name string) *tensors.Tensor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vars[name]
}

// Names returns the sorted names of the variables in the scope.
func (s *Scope) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.vars))
}

// Finalize frees the storage of all variables and empties the scope.
func (s *Scope) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.vars {
		t.FinalizeAll()
	}
	clear(s.vars)
}
