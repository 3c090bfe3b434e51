// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package instancelock keeps two agents from monitoring into the same
// data root. The lock is an flock(2) on a file under the root, so it is
// released by the kernel if the process dies.
package instancelock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("another agent is running")

// Lock is a held instance lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive, non-blocking lock on path and records
// the current PID in it.
func Acquire(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		holder := readPID(file)
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			if holder > 0 {
				return nil, fmt.Errorf("%w (pid %d)", ErrLocked, holder)
			}
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	if err := file.Truncate(0); err == nil {
		file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	return &Lock{file: file, path: path}, nil
}

// Release drops the lock. The file is left in place; removing it would
// race with a concurrent Acquire.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, err)
	}
	return closeErr
}

func readPID(file *os.File) int {
	buffer := make([]byte, 32)
	n, _ := file.ReadAt(buffer, 0)
	pid, err := strconv.Atoi(strings.TrimSpace(string(buffer[:n])))
	if err != nil {
		return 0
	}
	return pid
}
