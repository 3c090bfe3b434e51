// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package accessgate decides whether the person in front of the camera
// is the enrolled operator.
//
// Enrollment captures a handful of frames, cuts every detected face
// down to a normalized [biometric.Template] and replaces the stored
// [biometric.TemplateSet]. Verification compares faces from up to
// VerifyFrames frames against every stored template and authorizes on
// the first one closer than the threshold. The distance is a mean
// squared error scaled by [DistanceScale]: a lightweight similarity
// proxy, not a security boundary.
//
// The gate never opens the camera itself. Callers hand it an open
// [camera.Stream] so that ownership of the device stays with whoever
// holds the [camera.Lease].
package accessgate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/bureau-foundation/anveksha/lib/biometric"
	"github.com/bureau-foundation/anveksha/lib/camera"
	"github.com/bureau-foundation/anveksha/lib/clock"
)

var (
	// ErrDeviceUnavailable means the camera could not be used at all.
	// Distinct from ErrDenied: nothing was checked.
	ErrDeviceUnavailable = errors.New("camera unavailable")

	// ErrNoFaceDetected means enrollment found no usable sample.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrDenied means verification ran its full frame budget without
	// a match.
	ErrDenied = errors.New("face not recognized")
)

// DistanceScale converts an MSE over [0,1] patches into the units the
// threshold is expressed in.
const DistanceScale = 1000

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultEnrollFrames = 10
	DefaultVerifyFrames = 20
	DefaultThreshold    = 30
)

// FaceDetector finds face regions in a grayscale frame.
type FaceDetector interface {
	DetectFaces(frame *image.Gray) []image.Rectangle
}

// Config holds the gate's collaborators and tuning.
type Config struct {
	Store    biometric.Store
	Detector FaceDetector

	// Clock stamps new template sets. Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// EnrollFrames is the frame budget for Enroll.
	EnrollFrames int

	// VerifyFrames is the frame budget for Verify.
	VerifyFrames int

	// Threshold is the scaled distance below which a face matches.
	Threshold float64
}

// EnrollResult describes a successful enrollment.
type EnrollResult struct {
	// Templates is the size of the new TemplateSet.
	Templates int
	// Frames is how many frames were read.
	Frames int
}

// VerifyResult describes a completed verification.
type VerifyResult struct {
	Authorized bool

	// BestDistance is the smallest scaled distance seen, or +Inf when
	// no face was compared.
	BestDistance float64

	// Frames is how many frames were consumed.
	Frames int

	// Enrolled is set when no templates existed and Verify enrolled
	// the operator first. Enrollment then holds what it produced.
	Enrolled   bool
	Enrollment EnrollResult
}

// Gate runs enrollment and verification.
type Gate struct {
	store     biometric.Store
	detector  FaceDetector
	clock     clock.Clock
	logger    *slog.Logger
	enroll    int
	verify    int
	threshold float64
}

// New validates config and returns a Gate.
func New(config Config) (*Gate, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("accessgate: Store is required")
	}
	if config.Detector == nil {
		return nil, fmt.Errorf("accessgate: Detector is required")
	}
	gate := &Gate{
		store:     config.Store,
		detector:  config.Detector,
		clock:     config.Clock,
		logger:    config.Logger,
		enroll:    config.EnrollFrames,
		verify:    config.VerifyFrames,
		threshold: config.Threshold,
	}
	if gate.clock == nil {
		gate.clock = clock.Real()
	}
	if gate.logger == nil {
		gate.logger = slog.New(slog.DiscardHandler)
	}
	if gate.enroll <= 0 {
		gate.enroll = DefaultEnrollFrames
	}
	if gate.verify <= 0 {
		gate.verify = DefaultVerifyFrames
	}
	if gate.threshold <= 0 {
		gate.threshold = DefaultThreshold
	}
	return gate, nil
}

// Threshold returns the effective match threshold.
func (g *Gate) Threshold() float64 { return g.threshold }

// Enroll reads up to EnrollFrames frames from stream and replaces the
// stored TemplateSet with every face found. When no face is found the
// existing set is left alone and ErrNoFaceDetected is returned.
func (g *Gate) Enroll(ctx context.Context, stream camera.Stream) (EnrollResult, error) {
	if stream == nil {
		return EnrollResult{}, ErrDeviceUnavailable
	}

	var candidates []biometric.Template
	frames := 0
	for frames < g.enroll {
		frame, err := g.readFrame(ctx, stream)
		frames++
		if err != nil {
			if ctx.Err() != nil {
				return EnrollResult{}, ctx.Err()
			}
			continue
		}
		candidates = append(candidates, g.templatesFrom(frame)...)
	}

	if len(candidates) == 0 {
		g.logger.Warn("enrollment found no faces", "frames", frames)
		return EnrollResult{Frames: frames}, ErrNoFaceDetected
	}

	set := biometric.TemplateSet{
		Templates: candidates,
		CreatedAt: g.clock.Now(),
	}
	if err := g.store.SaveTemplates(set); err != nil {
		return EnrollResult{}, fmt.Errorf("saving templates: %w", err)
	}
	g.logger.Info("operator enrolled",
		"templates", len(candidates),
		"frames", frames,
	)
	return EnrollResult{Templates: len(candidates), Frames: frames}, nil
}

// Verify checks the face in front of the camera against the stored
// templates. An absent TemplateSet triggers Enroll on the same stream
// first. Returns ErrDenied (with the populated result) when the frame
// budget runs out without a match.
func (g *Gate) Verify(ctx context.Context, stream camera.Stream) (VerifyResult, error) {
	if stream == nil {
		return VerifyResult{}, ErrDeviceUnavailable
	}

	result := VerifyResult{BestDistance: math.Inf(1)}

	set, err := g.store.LoadTemplates()
	if errors.Is(err, biometric.ErrNoTemplates) {
		g.logger.Info("no enrolled operator, enrolling before verification")
		enrollment, err := g.Enroll(ctx, stream)
		if err != nil {
			return result, fmt.Errorf("implicit enrollment: %w", err)
		}
		result.Enrolled = true
		result.Enrollment = enrollment
		set, err = g.store.LoadTemplates()
	}
	if err != nil {
		return result, fmt.Errorf("loading templates: %w", err)
	}

	for result.Frames < g.verify {
		frame, err := g.readFrame(ctx, stream)
		result.Frames++
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			g.logger.Debug("verification frame read failed", "error", err)
			continue
		}

		for _, candidate := range g.templatesFrom(frame) {
			for _, reference := range set.Templates {
				mse, err := biometric.MSE(candidate, reference)
				if err != nil {
					return result, fmt.Errorf("comparing templates: %w", err)
				}
				distance := mse * DistanceScale
				if distance < result.BestDistance {
					result.BestDistance = distance
				}
				if distance < g.threshold {
					result.Authorized = true
					g.logger.Info("operator verified",
						"distance", distance,
						"frame", result.Frames,
					)
					return result, nil
				}
			}
		}
	}

	g.logger.Warn("verification denied",
		"frames", result.Frames,
		"best_distance", result.BestDistance,
	)
	return result, ErrDenied
}

func (g *Gate) readFrame(ctx context.Context, stream camera.Stream) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return stream.ReadFrame(ctx)
}

// templatesFrom extracts one template per detected face.
func (g *Gate) templatesFrom(frame *image.Gray) []biometric.Template {
	var templates []biometric.Template
	for _, region := range g.detector.DetectFaces(frame) {
		template, err := biometric.ExtractPatch(frame, region)
		if err != nil {
			continue
		}
		templates = append(templates, template)
	}
	return templates
}
