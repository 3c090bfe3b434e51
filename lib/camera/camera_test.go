// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package camera

import (
	"context"
	"errors"
	"testing"
)

func TestLeaseExclusive(t *testing.T) {
	device := &FakeDevice{}
	lease := NewLease(device)
	ctx := context.Background()

	if _, err := lease.Acquire(ctx, "gate"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := lease.Acquire(ctx, "video"); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Acquire: err = %v, want ErrBusy", err)
	}
	if got := lease.Holder(); got != "gate" {
		t.Errorf("Holder() = %q, want %q", got, "gate")
	}
	if device.OpenStreams() != 1 {
		t.Errorf("OpenStreams() = %d, want 1", device.OpenStreams())
	}

	// A stale holder cannot release someone else's camera.
	if err := lease.Release("video"); err != nil {
		t.Fatalf("Release(video): %v", err)
	}
	if device.OpenStreams() != 1 {
		t.Fatal("Release by non-holder closed the stream")
	}

	if err := lease.Release("gate"); err != nil {
		t.Fatalf("Release(gate): %v", err)
	}
	if device.OpenStreams() != 0 {
		t.Errorf("OpenStreams() = %d after release, want 0", device.OpenStreams())
	}
	if _, err := lease.Acquire(ctx, "video"); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestLeaseForceRelease(t *testing.T) {
	device := &FakeDevice{}
	lease := NewLease(device)

	stream, err := lease.Acquire(context.Background(), "video")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	holder, err := lease.ForceRelease()
	if err != nil {
		t.Fatalf("ForceRelease: %v", err)
	}
	if holder != "video" {
		t.Errorf("ForceRelease holder = %q, want %q", holder, "video")
	}
	if _, err := stream.ReadFrame(context.Background()); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("read after force release: err = %v, want ErrStreamClosed", err)
	}
	// The original holder's deferred Release is harmless.
	if err := lease.Release("video"); err != nil {
		t.Errorf("Release after ForceRelease: %v", err)
	}
	if holder, _ := lease.ForceRelease(); holder != "" {
		t.Errorf("ForceRelease on free lease returned %q", holder)
	}
}

func TestLeaseOpenFailure(t *testing.T) {
	device := &FakeDevice{OpenErr: errors.New("no such device")}
	lease := NewLease(device)

	_, err := lease.Acquire(context.Background(), "gate")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if lease.Holder() != "" {
		t.Errorf("failed Acquire left holder %q", lease.Holder())
	}
}
