// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ProcFS lists process names from /proc/<pid>/comm.
type ProcFS struct {
	// Root defaults to /proc.
	Root string
}

// ProcessNames returns the distinct names of running processes,
// sorted. Processes that exit during the scan are skipped.
func (p *ProcFS) ProcessNames(ctx context.Context) ([]string, error) {
	root := p.Root
	if root == "" {
		root = "/proc"
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := strconv.Atoi(entry.Name()); err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, entry.Name(), "comm"))
		if err != nil {
			continue
		}
		if name := strings.TrimSpace(string(data)); name != "" {
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
