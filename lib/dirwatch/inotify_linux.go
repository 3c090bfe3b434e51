// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirwatch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

const watchMask = unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO

// Watch reports files in directory that finish writing or are moved
// in. Subdirectories are ignored.
func Watch(directory string) (*Watcher, error) {
	inotify, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("dirwatch: inotify_init1: %w", err)
	}
	if _, err := unix.InotifyAddWatch(inotify, directory, watchMask); err != nil {
		unix.Close(inotify)
		return nil, fmt.Errorf("dirwatch: watching %s: %w", directory, err)
	}
	wake, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(inotify)
		return nil, fmt.Errorf("dirwatch: eventfd: %w", err)
	}

	watcher := &Watcher{events: make(chan struct{}, 1)}
	exited := make(chan struct{})
	var closing sync.Once
	watcher.stop = func() {
		closing.Do(func() {
			var one [8]byte
			binary.NativeEndian.PutUint64(one[:], 1)
			unix.Write(wake, one[:])
			<-exited
		})
	}

	go func() {
		defer close(exited)
		defer unix.Close(inotify)
		defer unix.Close(wake)
		watcher.drain(inotify, wake)
	}()
	return watcher, nil
}

// drain blocks in poll until inotify has events or wake is signalled.
func (w *Watcher) drain(inotify, wake int) {
	descriptors := []unix.PollFd{
		{Fd: int32(inotify), Events: unix.POLLIN},
		{Fd: int32(wake), Events: unix.POLLIN},
	}
	buffer := make([]byte, 16*(unix.SizeofInotifyEvent+256))
	for {
		if _, err := unix.Poll(descriptors, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return
		}
		if descriptors[1].Revents != 0 {
			return
		}
		if descriptors[0].Revents == 0 {
			continue
		}

		n, err := unix.Read(inotify, buffer)
		switch {
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return
		}
		if containsFileEvent(buffer[:n]) {
			w.notify()
		}
	}
}

// containsFileEvent walks the packed inotify_event records in data.
func containsFileEvent(data []byte) bool {
	for len(data) >= unix.SizeofInotifyEvent {
		mask := binary.NativeEndian.Uint32(data[4:8])
		nameLength := binary.NativeEndian.Uint32(data[12:16])
		if mask&unix.IN_ISDIR == 0 && mask&watchMask != 0 {
			return true
		}
		next := unix.SizeofInotifyEvent + int(nameLength)
		if next > len(data) {
			break
		}
		data = data[next:]
	}
	return false
}
