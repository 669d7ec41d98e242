// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package devices defines the device context kernels use to move data into a tensor's storage.
//
// A device Context abstracts over the compute device and its execution stream. Copies may be
// synchronous (the "cpu" device) or asynchronous (the "stream" device): in the latter case they
// are ordered (FIFO) and only guaranteed to be finished, and their errors reported, after Context.Wait.
//
// Devices are created from a configuration string "<device_name>[:<device_configuration>]",
// see NewWithConfig.
package devices

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Kind of device.
type Kind int

const (
	// CPU device executes copies synchronously in the caller's goroutine.
	CPU Kind = iota

	// Stream device executes copies asynchronously, in order, in its own goroutine.
	Stream
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case Stream:
		return "stream"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Place identifies where a tensor's storage lives.
type Place struct {
	Kind Kind
	ID   int
}

// String implements fmt.Stringer, e.g. "cpu:0".
func (p Place) String() string {
	return fmt.Sprintf("%s:%d", p.Kind, p.ID)
}

// Context is the device context used by kernels to copy data into tensor storage.
type Context interface {
	// Place where data copied by this context lives.
	Place() Place

	// Copy the contents of the flat slice src into the flat slice dst.
	// Both must be slices of the same type and length.
	//
	// For asynchronous devices the copy is only enqueued: src must not be modified and dst must not
	// be read until Wait returns.
	Copy(dst, src any) error

	// Wait blocks until all enqueued work is finished, and returns the first error that happened
	// since the last call to Wait.
	Wait() error

	// Finalize releases the resources associated with the context. It waits for pending work.
	Finalize()
}

var (
	// ErrFinalized is returned when using a device context that was finalized.
	ErrFinalized = errors.New("device context already finalized")

	// ErrCopyMismatch is returned when Copy is given slices of different types or lengths.
	ErrCopyMismatch = errors.New("copy source and destination don't match")
)

// CheckCopy returns an error if dst and src are not slices of the same type and length.
func CheckCopy(dst, src any) error {
	dstV, srcV := reflect.ValueOf(dst), reflect.ValueOf(src)
	if dstV.Kind() != reflect.Slice || srcV.Kind() != reflect.Slice {
		return errors.Wrapf(ErrCopyMismatch, "Copy requires slices, got dst=%T and src=%T", dst, src)
	}
	if dstV.Type() != srcV.Type() {
		return errors.Wrapf(ErrCopyMismatch, "dst is %s and src is %s", dstV.Type(), srcV.Type())
	}
	if dstV.Len() != srcV.Len() {
		return errors.Wrapf(ErrCopyMismatch, "dst has %d elements and src has %d", dstV.Len(), srcV.Len())
	}
	return nil
}

// copyRange copies src[start:end] into dst[start:end]. Both must have passed CheckCopy.
func copyRange(dst, src any, start, end int) {
	dstV, srcV := reflect.ValueOf(dst), reflect.ValueOf(src)
	reflect.Copy(dstV.Slice(start, end), srcV.Slice(start, end))
}

// Constructor takes a config string (optionally empty) and returns a device Context.
type Constructor func(config string) (Context, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register device with the given name, and a constructor that takes as input a configuration string.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// Registered returns the names of the registered devices.
func Registered() []string {
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	return names
}

// DefaultConfig is the device configuration used by New if the environment variable isn't set.
var DefaultConfig string

// ConfigEnvVar is the environment variable with the default device configuration to use.
//
// The format of config is "<device_name>[:<device_configuration>]", e.g. "cpu" or "stream:4".
const ConfigEnvVar = "OPKERNELS_DEVICE"

// New returns a new default device Context.
//
// The default is:
//
// 1. The environment OPKERNELS_DEVICE is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered device is used with an empty configuration.
func New() (Context, error) {
	config, found := os.LookupEnv(ConfigEnvVar)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// MustNew returns a new default device Context, see New. It panics on error.
func MustNew() Context {
	ctx, err := New()
	if err != nil {
		panic(err)
	}
	return ctx
}

// NewWithConfig takes a configuration string formatted as "<device_name>[:<device_configuration>]".
// The "<device_name>" is the name of a registered device (e.g.: "cpu") and "<device_configuration>" is
// device specific (e.g.: for the "stream" device, the number of parallel workers used for large copies).
func NewWithConfig(config string) (Context, error) {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf("no registered devices")
	}
	deviceName := firstRegistered
	deviceConfig := ""
	if config != "" {
		deviceName = config
		if idx := strings.Index(config, ":"); idx != -1 {
			deviceName = config[:idx]
			deviceConfig = config[idx+1:]
		}
	}
	constructor, found := registeredConstructors[deviceName]
	if !found {
		return nil, errors.Errorf("can't find device %q for configuration %q given, registered devices: %v",
			deviceName, config, Registered())
	}
	ctx, err := constructor(deviceConfig)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create device %q", deviceName)
	}
	klog.V(1).Infof("created device context %s (config %q)", ctx.Place(), config)
	return ctx, nil
}
