// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker defines what the session controller runs.
//
// Every worker observes the session's cancellation token and returns
// from Run once it sees it set. Cancellation is cooperative: each
// worker checks the token at fixed points and documents the resulting
// shutdown latency. The context passed to Run is not the cancellation
// signal. It scopes blocking I/O and is cancelled only after the
// controller has given up waiting, so a worker finalizing its output
// after seeing the token is not interrupted mid-write.
package worker

import (
	"context"
	"time"

	"github.com/bureau-foundation/anveksha/lib/cancellation"
	"github.com/bureau-foundation/anveksha/lib/catalog"
)

// Worker is one independently running capture unit.
type Worker interface {
	// Name identifies the worker in logs and stop reports.
	Name() string

	// Run captures until observer reports cancellation. A non-nil
	// error means the worker gave up early; per-item failures are
	// logged and skipped, never returned.
	Run(ctx context.Context, observer cancellation.Observer) error
}

// Recorder registers produced files. *catalog.Store implements it.
type Recorder interface {
	RecordArtifact(ctx context.Context, artifact catalog.Artifact) (int64, error)
}

// Discard is a Recorder that records nothing.
var Discard Recorder = discard{}

type discard struct{}

func (discard) RecordArtifact(context.Context, catalog.Artifact) (int64, error) { return 0, nil }

// OrDiscard returns recorder, or Discard when it is nil.
func OrDiscard(recorder Recorder) Recorder {
	if recorder == nil {
		return Discard
	}
	return recorder
}

// PollInterval is how often workers that sleep between steps check the
// token. It bounds their shutdown latency.
const PollInterval = time.Second
