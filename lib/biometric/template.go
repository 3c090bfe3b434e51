// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package biometric

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// PatchSize is the side length of a normalized face patch.
const PatchSize = 100

// TemplateLength is the number of values in every Template.
const TemplateLength = PatchSize * PatchSize

// ErrEmptyRegion is returned by ExtractPatch when the region does not
// overlap the frame.
var ErrEmptyRegion = errors.New("face region outside frame")

// Template is a flattened, normalized face patch.
type Template []float32

// TemplateSet is the full collection of templates from one enrollment.
type TemplateSet struct {
	Templates []Template
	CreatedAt time.Time
}

// Len returns the number of templates in the set.
func (s TemplateSet) Len() int { return len(s.Templates) }

// Validate checks that the set is non-empty and every template has
// TemplateLength values.
func (s TemplateSet) Validate() error {
	if len(s.Templates) == 0 {
		return ErrNoTemplates
	}
	for i, template := range s.Templates {
		if len(template) != TemplateLength {
			return fmt.Errorf("template %d has %d values, want %d", i, len(template), TemplateLength)
		}
	}
	return nil
}

// ExtractPatch crops region from frame (clipped to the frame bounds),
// resizes it to PatchSize×PatchSize with bilinear interpolation and
// returns it scaled to [0,1].
func ExtractPatch(frame *image.Gray, region image.Rectangle) (Template, error) {
	region = region.Intersect(frame.Bounds())
	if region.Empty() {
		return nil, ErrEmptyRegion
	}

	width := region.Dx()
	height := region.Dy()
	scaleX := float64(width) / PatchSize
	scaleY := float64(height) / PatchSize

	patch := make(Template, TemplateLength)
	for y := 0; y < PatchSize; y++ {
		// Pixel-center mapping, so a same-size resize is the identity.
		sourceY := clampCoordinate((float64(y)+0.5)*scaleY-0.5, height)
		y0 := int(sourceY)
		y1 := minInt(y0+1, height-1)
		fy := sourceY - float64(y0)

		for x := 0; x < PatchSize; x++ {
			sourceX := clampCoordinate((float64(x)+0.5)*scaleX-0.5, width)
			x0 := int(sourceX)
			x1 := minInt(x0+1, width-1)
			fx := sourceX - float64(x0)

			topLeft := float64(grayAt(frame, region, x0, y0))
			topRight := float64(grayAt(frame, region, x1, y0))
			bottomLeft := float64(grayAt(frame, region, x0, y1))
			bottomRight := float64(grayAt(frame, region, x1, y1))

			top := topLeft + (topRight-topLeft)*fx
			bottom := bottomLeft + (bottomRight-bottomLeft)*fx
			value := top + (bottom-top)*fy

			patch[y*PatchSize+x] = float32(value / 255.0)
		}
	}
	return patch, nil
}

// MSE returns the mean squared difference between a and b.
func MSE(a, b Template) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("template length mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty template")
	}
	var sum float64
	for i := range a {
		difference := float64(a[i]) - float64(b[i])
		sum += difference * difference
	}
	return sum / float64(len(a)), nil
}

func grayAt(frame *image.Gray, region image.Rectangle, x, y int) uint8 {
	return frame.GrayAt(region.Min.X+x, region.Min.Y+y).Y
}

func clampCoordinate(value float64, size int) float64 {
	if value < 0 {
		return 0
	}
	if maximum := float64(size - 1); value > maximum {
		return maximum
	}
	return value
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
