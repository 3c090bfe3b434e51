// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package accessgate

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"
	"time"

	"github.com/bureau-foundation/anveksha/lib/biometric"
	"github.com/bureau-foundation/anveksha/lib/camera"
	"github.com/bureau-foundation/anveksha/lib/clock"
)

// fixedDetector reports the same regions for every frame.
type fixedDetector struct {
	regions []image.Rectangle
	calls   int
}

func (d *fixedDetector) DetectFaces(*image.Gray) []image.Rectangle {
	d.calls++
	return d.regions
}

var faceRegion = image.Rect(100, 100, 300, 300)

func grayFrame(value uint8) *image.Gray {
	frame := image.NewGray(image.Rect(0, 0, 640, 480))
	for i := range frame.Pix {
		frame.Pix[i] = value
	}
	return frame
}

// offsetTemplate returns a template whose MSE against a uniform patch
// of base is exactly offset².
func offsetTemplate(base uint8, offset float64) biometric.Template {
	template := make(biometric.Template, biometric.TemplateLength)
	for i := range template {
		template[i] = float32(float64(base)/255 + offset)
	}
	return template
}

func openStream(t *testing.T, device *camera.FakeDevice) camera.Stream {
	t.Helper()
	stream, err := device.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { stream.Close() })
	return stream
}

func newGate(t *testing.T, store biometric.Store, detector FaceDetector) *Gate {
	t.Helper()
	gate, err := New(Config{
		Store:    store,
		Detector: detector,
		Clock:    clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return gate
}

func TestEnrollNoFaceKeepsExistingSet(t *testing.T) {
	store := biometric.NewMemoryStore()
	existing := biometric.TemplateSet{Templates: []biometric.Template{offsetTemplate(10, 0)}}
	if err := store.SaveTemplates(existing); err != nil {
		t.Fatal(err)
	}

	detector := &fixedDetector{}
	gate := newGate(t, store, detector)
	stream := openStream(t, &camera.FakeDevice{})

	result, err := gate.Enroll(context.Background(), stream)
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Fatalf("Enroll err = %v, want ErrNoFaceDetected", err)
	}
	if result.Frames != DefaultEnrollFrames {
		t.Errorf("Frames = %d, want %d", result.Frames, DefaultEnrollFrames)
	}
	if store.Saves() != 1 {
		t.Errorf("store saved %d times, want only the initial save", store.Saves())
	}
	loaded, err := store.LoadTemplates()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 1 || loaded.Templates[0][0] != existing.Templates[0][0] {
		t.Error("existing TemplateSet was modified")
	}
}

func TestEnrollThenVerifySameFrames(t *testing.T) {
	store := biometric.NewMemoryStore()
	detector := &fixedDetector{regions: []image.Rectangle{faceRegion}}
	gate := newGate(t, store, detector)
	device := &camera.FakeDevice{Frames: []*image.Gray{grayFrame(120)}}

	enrolled, err := gate.Enroll(context.Background(), openStream(t, device))
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if enrolled.Templates != DefaultEnrollFrames {
		t.Errorf("Templates = %d, want one per frame (%d)", enrolled.Templates, DefaultEnrollFrames)
	}

	verified, err := gate.Verify(context.Background(), openStream(t, device))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !verified.Authorized {
		t.Error("Verify did not authorize the enrolled face")
	}
	if verified.Frames != 1 {
		t.Errorf("Frames = %d, want 1 (first frame matches)", verified.Frames)
	}
	if verified.Enrolled {
		t.Error("Enrolled set although templates existed")
	}
}

func TestVerifyWithoutTemplatesEnrollsFirst(t *testing.T) {
	store := biometric.NewMemoryStore()
	gate := newGate(t, store, &fixedDetector{regions: []image.Rectangle{faceRegion}})
	device := &camera.FakeDevice{Frames: []*image.Gray{grayFrame(200)}}

	result, err := gate.Verify(context.Background(), openStream(t, device))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Enrolled {
		t.Error("Enrolled = false, want implicit enrollment")
	}
	if !result.Authorized {
		t.Error("Authorized = false after implicit enrollment")
	}
	if _, err := store.LoadTemplates(); err != nil {
		t.Errorf("LoadTemplates after implicit enrollment: %v", err)
	}
}

func TestVerifyWithoutTemplatesAndNoFace(t *testing.T) {
	gate := newGate(t, biometric.NewMemoryStore(), &fixedDetector{})
	_, err := gate.Verify(context.Background(), openStream(t, &camera.FakeDevice{}))
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Fatalf("err = %v, want ErrNoFaceDetected", err)
	}
}

func TestVerifyDistanceThreshold(t *testing.T) {
	tests := []struct {
		name       string
		distance   float64
		authorized bool
	}{
		{name: "close", distance: 5, authorized: true},
		{name: "far", distance: 50, authorized: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			const pixel = 100
			offset := math.Sqrt(test.distance / DistanceScale)
			store := biometric.NewMemoryStore()
			if err := store.SaveTemplates(biometric.TemplateSet{
				Templates: []biometric.Template{offsetTemplate(pixel, offset)},
			}); err != nil {
				t.Fatal(err)
			}
			gate := newGate(t, store, &fixedDetector{regions: []image.Rectangle{faceRegion}})
			device := &camera.FakeDevice{Frames: []*image.Gray{grayFrame(pixel)}}

			result, err := gate.Verify(context.Background(), openStream(t, device))
			if math.Abs(result.BestDistance-test.distance) > 0.01 {
				t.Errorf("BestDistance = %v, want %v", result.BestDistance, test.distance)
			}
			if test.authorized {
				if err != nil || !result.Authorized {
					t.Fatalf("Verify = (%+v, %v), want authorized", result, err)
				}
				if result.Frames != 1 {
					t.Errorf("Frames = %d, want 1", result.Frames)
				}
				return
			}
			if !errors.Is(err, ErrDenied) {
				t.Fatalf("err = %v, want ErrDenied", err)
			}
			if result.Authorized {
				t.Error("Authorized = true on denial")
			}
			if result.Frames != DefaultVerifyFrames {
				t.Errorf("Frames = %d, want full budget %d", result.Frames, DefaultVerifyFrames)
			}
		})
	}
}

func TestVerifyReadErrorsConsumeBudget(t *testing.T) {
	store := biometric.NewMemoryStore()
	if err := store.SaveTemplates(biometric.TemplateSet{
		Templates: []biometric.Template{offsetTemplate(0, 0)},
	}); err != nil {
		t.Fatal(err)
	}
	detector := &fixedDetector{regions: []image.Rectangle{faceRegion}}
	gate := newGate(t, store, detector)
	device := &camera.FakeDevice{ReadErr: errors.New("timeout")}

	result, err := gate.Verify(context.Background(), openStream(t, device))
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("err = %v, want ErrDenied", err)
	}
	if result.Frames != DefaultVerifyFrames {
		t.Errorf("Frames = %d, want %d", result.Frames, DefaultVerifyFrames)
	}
	if detector.calls != 0 {
		t.Errorf("detector ran %d times on failed reads", detector.calls)
	}
}

func TestNilStreamIsDeviceUnavailable(t *testing.T) {
	gate := newGate(t, biometric.NewMemoryStore(), &fixedDetector{})
	if _, err := gate.Verify(context.Background(), nil); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Verify err = %v, want ErrDeviceUnavailable", err)
	}
	if _, err := gate.Enroll(context.Background(), nil); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Enroll err = %v, want ErrDeviceUnavailable", err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Config{Detector: &fixedDetector{}}); err == nil {
		t.Error("New accepted a nil Store")
	}
	if _, err := New(Config{Store: biometric.NewMemoryStore()}); err == nil {
		t.Error("New accepted a nil Detector")
	}
}
