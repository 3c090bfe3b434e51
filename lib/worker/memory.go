// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"sync"

	"github.com/bureau-foundation/anveksha/lib/catalog"
)

// MemoryRecorder keeps recorded artifacts in memory. Worker tests use
// it in place of a catalog.
type MemoryRecorder struct {
	mu        sync.Mutex
	artifacts []catalog.Artifact
}

// RecordArtifact appends artifact and returns its 1-based position.
func (r *MemoryRecorder) RecordArtifact(_ context.Context, artifact catalog.Artifact) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts = append(r.artifacts, artifact)
	return int64(len(r.artifacts)), nil
}

// Artifacts returns a copy of everything recorded.
func (r *MemoryRecorder) Artifacts() []catalog.Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]catalog.Artifact(nil), r.artifacts...)
}

// Paths returns the paths recorded with kind, in order.
func (r *MemoryRecorder) Paths(kind catalog.Kind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var paths []string
	for _, artifact := range r.artifacts {
		if artifact.Kind == kind {
			paths = append(paths, artifact.Path)
		}
	}
	return paths
}
