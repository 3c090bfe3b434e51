// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package camera

import (
	"context"
	"errors"
	"image"
	"sync"
)

// ErrStreamClosed is returned by a FakeStream read after Close.
var ErrStreamClosed = errors.New("stream closed")

// FakeDevice serves scripted frames. Used by tests of the gate, the
// video worker and the session controller.
type FakeDevice struct {
	// Frames is returned in order by each stream's ReadFrame; once
	// exhausted the last frame repeats. Empty means blank 640x480
	// frames.
	Frames []*image.Gray

	// OpenErr, when set, fails every Open.
	OpenErr error

	// ReadErr, when set, fails every ReadFrame.
	ReadErr error

	mu     sync.Mutex
	opens  int
	open   int
	closes int
}

// Open returns a new FakeStream.
func (d *FakeDevice) Open(ctx context.Context) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.opens++
	d.open++
	return &FakeStream{device: d}, nil
}

// SetReadErr changes ReadErr while streams are open.
func (d *FakeDevice) SetReadErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ReadErr = err
}

// Opens returns the number of successful Open calls.
func (d *FakeDevice) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// OpenStreams returns how many streams are open right now.
func (d *FakeDevice) OpenStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// FakeStream is a stream from a FakeDevice.
type FakeStream struct {
	device *FakeDevice
	next   int
	closed bool
}

// ReadFrame returns the next scripted frame.
func (s *FakeStream) ReadFrame(ctx context.Context) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := s.device
	d.mu.Lock()
	defer d.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	if d.ReadErr != nil {
		return nil, d.ReadErr
	}
	if len(d.Frames) == 0 {
		return image.NewGray(image.Rect(0, 0, 640, 480)), nil
	}
	index := s.next
	if index >= len(d.Frames) {
		index = len(d.Frames) - 1
	}
	s.next++
	return d.Frames[index], nil
}

// Size reports the dimensions of the first scripted frame.
func (s *FakeStream) Size() (int, int) {
	d := s.device
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Frames) == 0 {
		return 640, 480
	}
	bounds := d.Frames[0].Bounds()
	return bounds.Dx(), bounds.Dy()
}

// Close marks the stream closed.
func (s *FakeStream) Close() error {
	d := s.device
	d.mu.Lock()
	defer d.mu.Unlock()
	if !s.closed {
		s.closed = true
		d.open--
		d.closes++
	}
	return nil
}
