// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package attributes

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opkernels/pkg/support/sets"
	"github.com/pkg/errors"
)

var (
	// ErrMissingRequired is returned by Checker.Check when a required attribute is not set.
	ErrMissingRequired = errors.New("required attribute missing")

	// ErrUnknown is returned by Checker.Check when an attribute was not declared by the operator.
	ErrUnknown = errors.New("unknown attribute")

	// ErrInvalidValue is returned by Checker.Check when an attribute fails its validation.
	ErrInvalidValue = errors.New("invalid attribute value")
)

// Checker holds the attribute declarations of an operator type. It is built once, when the operator is
// registered, and afterwards it is safe for concurrent use.
//
// Example:
//
//	checker := attributes.NewChecker()
//	checker.Add("shape").Required()
//	checker.Add("dtype").Default(int(dtypes.Float32)).InSet(int(dtypes.Int32), int(dtypes.Float32))
type Checker struct {
	decls []*Decl
}

// Decl is the declaration of one attribute.
type Decl struct {
	name         string
	required     bool
	defaultValue any
	hasDefault   bool
	allowed      []any
	validators   []func(value any) error
	comment      string
}

// NewChecker returns an empty Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Add declares a new attribute and returns its declaration to be configured.
//
// It panics if name was already declared.
func (c *Checker) Add(name string) *Decl {
	if c.Find(name) != nil {
		exceptions.Panicf("attribute %q declared twice", name)
	}
	decl := &Decl{name: name}
	c.decls = append(c.decls, decl)
	return decl
}

// Find returns the declaration of the attribute, or nil if it was not declared.
func (c *Checker) Find(name string) *Decl {
	for _, decl := range c.decls {
		if decl.name == name {
			return decl
		}
	}
	return nil
}

// Names of the declared attributes, in declaration order.
func (c *Checker) Names() []string {
	names := make([]string, 0, len(c.decls))
	for _, decl := range c.decls {
		names = append(names, decl.name)
	}
	return names
}

// Name of the attribute.
func (d *Decl) Name() string { return d.name }

// Comment sets a description of the attribute, used by Checker.String.
func (d *Decl) Comment(comment string) *Decl {
	d.comment = comment
	return d
}

// Required marks the attribute as required: Checker.Check fails if it is not set.
func (d *Decl) Required() *Decl {
	d.required = true
	return d
}

// Default sets the value used when the attribute is not set.
func (d *Decl) Default(value any) *Decl {
	d.defaultValue = value
	d.hasDefault = true
	return d
}

// InSet restricts the values the attribute can take. Values are compared after converting them to the type
// of the attribute value.
func (d *Decl) InSet(values ...any) *Decl {
	d.allowed = append(d.allowed, values...)
	return d
}

// Validate adds an arbitrary validation function. An error returned by fn is reported with an error that
// matches both ErrInvalidValue and the error returned by fn.
func (d *Decl) Validate(fn func(value any) error) *Decl {
	d.validators = append(d.validators, fn)
	return d
}

// check validates the value of the attribute.
func (d *Decl) check(value any) error {
	if len(d.allowed) > 0 {
		found := slices.ContainsFunc(d.allowed, func(allowed any) bool {
			converted, err := convertTo(allowed, value)
			return err == nil && reflect.DeepEqual(converted, value)
		})
		if !found {
			return errors.Wrapf(ErrInvalidValue, "attribute %q value %v not in the allowed set %v", d.name, value, d.allowed)
		}
	}
	for _, fn := range d.validators {
		if err := fn(value); err != nil {
			return &invalidValueError{name: d.name, value: value, cause: err}
		}
	}
	return nil
}

// invalidValueError is returned when a validation function fails. It matches ErrInvalidValue and
// also the error returned by the validation function.
type invalidValueError struct {
	name  string
	value any
	cause error
}

func (e *invalidValueError) Error() string {
	return fmt.Sprintf("%v: attribute %q value %v: %v", ErrInvalidValue, e.name, e.value, e.cause)
}

func (e *invalidValueError) Is(target error) bool { return target == ErrInvalidValue }

func (e *invalidValueError) Unwrap() error { return e.cause }

// convertTo converts value to the type of the reference value.
func convertTo(value, reference any) (any, error) {
	if value == nil || reference == nil {
		return value, nil
	}
	return convert(value, reflect.TypeOf(reference))
}

// Check validates attrs against the declarations and returns a new Map with the defaults filled in.
// The given attrs is not modified.
//
// It fails if an attribute is not declared (ErrUnknown), if a required attribute is missing (ErrMissingRequired)
// or if a value fails validation (ErrInvalidValue).
func (c *Checker) Check(attrs Map) (Map, error) {
	if unknown := sets.FromKeys(attrs).Sub(sets.MakeWith(c.Names()...)); len(unknown) > 0 {
		return nil, errors.Wrapf(ErrUnknown, "%q (declared attributes: %v)", sets.Sorted(unknown), c.Names())
	}
	checked := attrs.Clone()
	for _, decl := range c.decls {
		value, found := checked[decl.name]
		if !found {
			if decl.required {
				return nil, errors.Wrapf(ErrMissingRequired, "%q", decl.name)
			}
			if !decl.hasDefault {
				continue
			}
			value = decl.defaultValue
			checked[decl.name] = value
		}
		if err := decl.check(value); err != nil {
			return nil, err
		}
	}
	return checked, nil
}

// String lists the declared attributes.
func (c *Checker) String() string {
	var sb strings.Builder
	for ii, decl := range c.decls {
		if ii > 0 {
			sb.WriteString("\n")
		}
		_, _ = fmt.Fprintf(&sb, "%s", decl.name)
		switch {
		case decl.required:
			sb.WriteString(" (required)")
		case decl.hasDefault:
			_, _ = fmt.Fprintf(&sb, " (default %v)", decl.defaultValue)
		}
		if decl.comment != "" {
			_, _ = fmt.Fprintf(&sb, ": %s", decl.comment)
		}
	}
	return sb.String()
}
