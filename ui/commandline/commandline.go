// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline contains convenience UI tools for command-line programs: parsing of list flags
// and a progress bar for repeated program runs.
package commandline

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseList parses a comma-separated list, using parseFn for each element. Spaces around elements are ignored.
// An empty (or all-blank) string returns an empty list.
func ParseList[T any](list string, parseFn func(string) (T, error)) ([]T, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return []T{}, nil
	}
	parts := strings.Split(list, ",")
	values := make([]T, 0, len(parts))
	for ii, part := range parts {
		value, err := parseFn(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.WithMessagef(err, "element #%d (%q) of list %q", ii, part, list)
		}
		values = append(values, value)
	}
	return values, nil
}

// ParseInts parses a comma-separated list of ints, e.g. "2,3".
func ParseInts(list string) ([]int, error) {
	return ParseList(list, strconv.Atoi)
}

// ParseInt32s parses a comma-separated list of int32 values.
func ParseInt32s(list string) ([]int32, error) {
	return ParseList(list, func(s string) (int32, error) {
		v, err := strconv.ParseInt(s, 10, 32)
		return int32(v), err
	})
}

// ParseFloat32s parses a comma-separated list of float32 values.
func ParseFloat32s(list string) ([]float32, error) {
	return ParseList(list, func(s string) (float32, error) {
		v, err := strconv.ParseFloat(s, 32)
		return float32(v), err
	})
}
