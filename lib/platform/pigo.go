// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// Detection tuning for webcam frames of a person at the desk.
const (
	DefaultMinFaceSize   = 60
	DefaultMaxFaceSize   = 1000
	DefaultShiftFactor   = 0.1
	DefaultScaleFactor   = 1.1
	DefaultIoUThreshold  = 0.2
	DefaultMinConfidence = 5.0
)

// PigoDetector finds frontal faces with a pigo cascade.
type PigoDetector struct {
	classifier *pigo.Pigo

	MinSize       int
	MaxSize       int
	MinConfidence float32
}

// LoadPigoDetector reads and unpacks the cascade file at path (the
// "facefinder" cascade distributed with pigo).
func LoadPigoDetector(path string) (*PigoDetector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading face cascade: %w", err)
	}
	return NewPigoDetector(data)
}

// NewPigoDetector unpacks a cascade.
func NewPigoDetector(cascade []byte) (*PigoDetector, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpacking face cascade: %w", err)
	}
	return &PigoDetector{
		classifier:    classifier,
		MinSize:       DefaultMinFaceSize,
		MaxSize:       DefaultMaxFaceSize,
		MinConfidence: DefaultMinConfidence,
	}, nil
}

// DetectFaces implements accessgate.FaceDetector. Regions are squares
// clipped to the frame, in detection order.
func (d *PigoDetector) DetectFaces(frame *image.Gray) []image.Rectangle {
	bounds := frame.Bounds()
	if bounds.Min != (image.Point{}) {
		shifted := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		for y := 0; y < bounds.Dy(); y++ {
			copy(shifted.Pix[y*shifted.Stride:(y+1)*shifted.Stride],
				frame.Pix[frame.PixOffset(bounds.Min.X, bounds.Min.Y+y):])
		}
		frame = shifted
		bounds = frame.Bounds()
	}

	params := pigo.CascadeParams{
		MinSize:     d.MinSize,
		MaxSize:     d.MaxSize,
		ShiftFactor: DefaultShiftFactor,
		ScaleFactor: DefaultScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: frame.Pix,
			Rows:   bounds.Dy(),
			Cols:   bounds.Dx(),
			Dim:    frame.Stride,
		},
	}
	detections := d.classifier.RunCascade(params, 0)
	detections = d.classifier.ClusterDetections(detections, DefaultIoUThreshold)

	var regions []image.Rectangle
	for _, detection := range detections {
		if detection.Q < d.MinConfidence {
			continue
		}
		half := detection.Scale / 2
		region := image.Rect(
			detection.Col-half, detection.Row-half,
			detection.Col+half, detection.Row+half,
		).Intersect(bounds)
		if !region.Empty() {
			regions = append(regions, region)
		}
	}
	return regions
}
