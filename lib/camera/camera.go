// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package camera is the shared access point for the webcam. The gate
// and the video worker both need it, but never at the same time: a
// Lease hands out at most one open Stream.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
)

// ErrBusy is returned by Acquire while another holder has the camera.
var ErrBusy = errors.New("camera in use")

// ErrUnavailable wraps device open failures.
var ErrUnavailable = errors.New("camera unavailable")

// Stream is an open camera.
type Stream interface {
	// ReadFrame blocks until the next frame is available.
	ReadFrame(ctx context.Context) (*image.Gray, error)

	// Size returns the frame dimensions.
	Size() (width, height int)

	// Close releases the device.
	Close() error
}

// Device opens camera streams.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Lease serializes access to a Device.
type Lease struct {
	device Device

	mu     sync.Mutex
	holder string
	stream Stream
}

// NewLease wraps device.
func NewLease(device Device) *Lease {
	return &Lease{device: device}
}

// Acquire opens the device for holder. Returns ErrBusy if someone else
// holds it; errors opening the device wrap ErrUnavailable.
func (l *Lease) Acquire(ctx context.Context, holder string) (Stream, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stream != nil {
		return nil, fmt.Errorf("%w (held by %s)", ErrBusy, l.holder)
	}
	stream, err := l.device.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	l.holder = holder
	l.stream = stream
	return stream, nil
}

// Release closes the stream if holder still has it. Releasing a lease
// that was already force-released is a no-op.
func (l *Lease) Release(holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stream == nil || l.holder != holder {
		return nil
	}
	return l.closeLocked()
}

// ForceRelease closes the stream regardless of holder. Returns the
// holder that lost the camera, or "" if it was free.
func (l *Lease) ForceRelease() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stream == nil {
		return "", nil
	}
	holder := l.holder
	return holder, l.closeLocked()
}

// Holder returns the current holder, or "" when free.
func (l *Lease) Holder() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holder
}

func (l *Lease) closeLocked() error {
	err := l.stream.Close()
	l.stream = nil
	l.holder = ""
	if err != nil {
		return fmt.Errorf("closing camera: %w", err)
	}
	return nil
}
