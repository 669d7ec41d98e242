// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package executor

import (
	"strings"

	"github.com/gomlx/opkernels/pkg/framework/ops"
)

// Program is an ordered list of operators, executed one after another by an Executor.
type Program struct {
	Ops []*ops.OpDesc
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{}
}

// AppendOp appends the operator to the program and returns it.
func (p *Program) AppendOp(op *ops.OpDesc) *ops.OpDesc {
	p.Ops = append(p.Ops, op)
	return op
}

// NumOps returns the number of operators in the program.
func (p *Program) NumOps() int { return len(p.Ops) }

// String lists the operators of the program, one per line.
func (p *Program) String() string {
	var sb strings.Builder
	for ii, op := range p.Ops {
		if ii > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(op.String())
	}
	return sb.String()
}
