// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic replaces path with data through a uniquely named
// sibling file and a rename, so a crash leaves either the previous
// content or the new content. The parent directory must exist.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	directory, base := filepath.Split(path)
	if directory == "" {
		directory = "."
	}
	staging, err := os.CreateTemp(directory, "."+base+".*")
	if err != nil {
		return fmt.Errorf("staging %s: %w", base, err)
	}
	stagingPath := staging.Name()
	defer func() {
		if err != nil {
			os.Remove(stagingPath)
		}
	}()

	_, writeErr := staging.Write(data)
	if writeErr == nil {
		writeErr = staging.Chmod(perm)
	}
	if writeErr == nil {
		writeErr = staging.Sync()
	}
	if closeErr := staging.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return fmt.Errorf("staging %s: %w", base, writeErr)
	}

	if err := os.Rename(stagingPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", base, err)
	}
	return syncDirectory(directory)
}

// syncDirectory flushes the rename. Filesystems that refuse to fsync a
// directory are tolerated.
func syncDirectory(directory string) error {
	handle, err := os.Open(directory)
	if err != nil {
		return nil
	}
	defer handle.Close()
	if err := handle.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("syncing %s: %w", directory, err)
	}
	return nil
}
