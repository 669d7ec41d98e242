// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"testing"

	"github.com/gomlx/opkernels/pkg/core/devices"
	"github.com/gomlx/opkernels/pkg/framework/executor"
	"github.com/gomlx/opkernels/pkg/kernels/assignvalue"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProgram(t *testing.T) {
	program, name, err := buildProgram("2,2", "int32", "1,2,3,4", "out")
	require.NoError(t, err)
	require.Equal(t, 1, program.NumOps())
	assert.Equal(t, "out", name)
	scope := executor.NewScope()
	executor.New(must.M1(devices.NewWithConfig("cpu"))).MustRun(context.Background(), program, scope)
	assert.Equal(t, [][]int32{{1, 2}, {3, 4}}, scope.FindVar(name).Value())

	// Numeric tag for FP32, a scalar, and a generated name.
	program, name, err = buildProgram("", "5", "2.5", "")
	require.NoError(t, err)
	require.NotEmpty(t, name)
	scope = executor.NewScope()
	executor.New(must.M1(devices.NewWithConfig("stream"))).MustRun(context.Background(), program, scope)
	require.NotNil(t, scope.FindVar(name))
	assert.Equal(t, float32(2.5), scope.FindVar(name).Value())

	_, _, err = buildProgram("2", "fp64", "1,2", "out")
	assert.ErrorIs(t, err, assignvalue.ErrUnsupportedDType)
	_, _, err = buildProgram("2", "99", "1,2", "out")
	require.Error(t, err)
	assert.Equal(t, "Unsupported dtype for assign_value_op: 99", err.Error())

	// 1<<32 + 2 must not be truncated to INT32.
	_, _, err = buildProgram("2", "4294967298", "1,2", "out")
	require.Error(t, err)
	assert.ErrorIs(t, err, assignvalue.ErrUnsupportedDType)

	_, _, err = buildProgram("2", "float128", "1,2", "out")
	assert.Error(t, err)
	_, _, err = buildProgram("2,x", "int32", "1,2", "out")
	assert.Error(t, err)
	_, _, err = buildProgram("2", "int32", "1.5,2", "out")
	assert.Error(t, err)
}

func TestTable(t *testing.T) {
	table := newPlainTable()
	table.Row("dtype", "Int32")
	table.Row("shape", "[2 2]")
	rendered := table.Render()
	assert.Contains(t, rendered, "dtype")
	assert.Contains(t, rendered, "[2 2]")
}
