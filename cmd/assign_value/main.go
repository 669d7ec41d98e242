// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// assign_value fills a tensor with the given constant values using the "assign_value" operator, and
// prints a summary of the result.
//
// Example:
//
//	assign_value -shape=2,2 -dtype=int32 -values=1,2,3,4 -device=stream:4
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/opkernels/pkg/core/devices"
	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/gomlx/opkernels/pkg/framework/executor"
	"github.com/gomlx/opkernels/pkg/kernels/assignvalue"
	"github.com/gomlx/opkernels/pkg/layers"
	"github.com/gomlx/opkernels/ui/commandline"
	"github.com/muesli/termenv"
	"k8s.io/klog/v2"
)

var (
	flagShape  = flag.String("shape", "", "Comma-separated dimensions of the output, e.g. \"2,3\". Empty for a scalar.")
	flagDType  = flag.String("dtype", "fp32", "Data type of the values: \"int32\", \"fp32\" or a numeric dtype tag.")
	flagValues = flag.String("values", "", "Comma-separated values, in row-major order.")
	flagDevice = flag.String("device", "",
		fmt.Sprintf("Device configuration, e.g. \"cpu\" or \"stream:4\". If empty, $%s is used, and then the first registered device.",
			devices.ConfigEnvVar))
	flagRepeat    = flag.Int("repeat", 1, "Number of times to run the program. A progress bar is displayed if > 1.")
	flagPrecision = flag.Int("precision", 6, "Number of significant digits used when printing float values.")
	flagPlain     = flag.Bool("plain", false, "Plain output: no colors or cursor movements.")
	flagName      = flag.String("name", "out", "Name of the output variable.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if len(flag.Args()) > 0 {
		klog.Exitf("Unexpected arguments %q. See 'assign_value -help'.", flag.Args())
	}
	if *flagRepeat < 1 {
		klog.Exitf("-repeat must be >= 1, got %d", *flagRepeat)
	}
	if *flagPlain {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	program, outName, err := buildProgram(*flagShape, *flagDType, *flagValues, *flagName)
	if err != nil {
		klog.Exitf("Failed to build program: %v", err)
	}
	klog.V(1).Infof("Program:\n%s", program)

	var device devices.Context
	if *flagDevice == "" {
		device, err = devices.New()
	} else {
		device, err = devices.NewWithConfig(*flagDevice)
	}
	if err != nil {
		klog.Exitf("Failed to create device: %v", err)
	}
	defer device.Finalize()

	scope := executor.NewScope()
	defer scope.Finalize()
	exec := executor.New(device)
	var pBar *commandline.ProgressBar
	if *flagRepeat > 1 {
		pBar = commandline.NewProgressBar(*flagRepeat, *flagPlain, func() (string, string) {
			return "Device", device.Place().String()
		})
	}
	var elapsed time.Duration
	for range *flagRepeat {
		start := time.Now()
		if err := exec.Run(context.Background(), program, scope); err != nil {
			if pBar != nil {
				pBar.Done()
			}
			klog.Exitf("Failed to assign values: %v", err)
		}
		elapsed = time.Since(start)
		if pBar != nil {
			pBar.Step(elapsed)
		}
	}
	if pBar != nil {
		pBar.Done()
		elapsed = pBar.MedianDuration()
	}

	out := scope.FindVar(outName)
	table := newPlainTable()
	table.Row("dtype", out.DType().String())
	table.Row("shape", fmt.Sprintf("%v", out.Shape().Dimensions))
	table.Row("size", humanize.Comma(int64(out.Size())))
	table.Row("memory", humanize.Bytes(uint64(out.Memory())))
	table.Row("device", out.Place().String())
	table.Row("duration", commandline.FormatDuration(elapsed))
	table.Row("value", out.Summary(*flagPrecision))
	fmt.Println(table.Render())
	klog.Flush()
}

// buildProgram with one "assign_value" operator, from the flag values. It returns the program and the name
// of the output variable: a unique one is generated if name is empty.
func buildProgram(shapeFlag, dtypeFlag, valuesFlag, name string) (*executor.Program, string, error) {
	dims, err := commandline.ParseInts(shapeFlag)
	if err != nil {
		return nil, "", err
	}
	dtype, err := dtypes.FromName(dtypeFlag)
	if err != nil {
		// Unknown numeric tags are passed through, and reported by the operator.
		tag, errTag := strconv.Atoi(dtypeFlag)
		if errTag != nil {
			return nil, "", err
		}
		dtype = dtypes.DType(tag)
		if int(dtype) != tag {
			return nil, "", &assignvalue.UnsupportedDTypeError{DType: tag}
		}
	}
	var values any
	switch dtype {
	case dtypes.INT32:
		values, err = commandline.ParseInt32s(valuesFlag)
	case dtypes.FP32:
		values, err = commandline.ParseFloat32s(valuesFlag)
	}
	if err != nil {
		return nil, "", err
	}
	program := executor.NewProgram()
	outName, err := layers.AssignValue(program, dtype, dims, values, name)
	if err != nil {
		return nil, "", err
	}
	return program, outName, nil
}

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: assign_value [flags]\n\nFlags:\n")
		flag.PrintDefaults()
	}
}
