// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/bureau-foundation/anveksha/lib/worker/keylog"
)

// terminalPollMillis bounds how long Close waits for the reader.
const terminalPollMillis = 100

// TerminalKeys listens for keys typed into a terminal. Each Listen
// switches it to raw mode until that listener is closed.
type TerminalKeys struct {
	file *os.File
}

// NewTerminalKeys checks that file (normally os.Stdin) is a terminal.
func NewTerminalKeys(file *os.File) (*TerminalKeys, error) {
	if !term.IsTerminal(int(file.Fd())) {
		return nil, fmt.Errorf("%s is not a terminal", file.Name())
	}
	return &TerminalKeys{file: file}, nil
}

// Listen implements keylog.KeySource.
func (t *TerminalKeys) Listen() (keylog.Listener, error) {
	fd := int(t.file.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("entering raw mode: %w", err)
	}
	// Keep Ctrl-C and Ctrl-\ as signals so the session can be stopped.
	if termios, err := unix.IoctlGetTermios(fd, unix.TCGETS); err == nil {
		termios.Lflag |= unix.ISIG
		if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
			term.Restore(fd, state)
			return nil, fmt.Errorf("re-enabling terminal signals: %w", err)
		}
	}
	keys := &terminalListener{
		file:    t.file,
		restore: state,
		events:  make(chan keylog.KeyEvent, 64),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go keys.read(fd)
	return keys, nil
}

// terminalListener reads one session's keys and restores the
// terminal on Close.
type terminalListener struct {
	file     *os.File
	restore  *term.State
	events   chan keylog.KeyEvent
	stop     chan struct{}
	done     chan struct{}
	closeErr error
	once     sync.Once
}

// read polls so Close never waits on a blocked read.
func (k *terminalListener) read(fd int) {
	defer close(k.done)
	defer close(k.events)

	buffer := make([]byte, 256)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		select {
		case <-k.stop:
			return
		default:
		}
		ready, err := unix.Poll(fds, terminalPollMillis)
		if errors.Is(err, unix.EINTR) || ready == 0 {
			continue
		}
		if err != nil || fds[0].Revents&(unix.POLLHUP|unix.POLLERR) != 0 {
			return
		}
		n, err := unix.Read(fd, buffer)
		if err != nil || n == 0 {
			return
		}
		for _, event := range decodeKeys(buffer[:n]) {
			select {
			case k.events <- event:
			case <-k.stop:
				return
			}
		}
	}
}

// Events implements keylog.Listener.
func (k *terminalListener) Events() <-chan keylog.KeyEvent { return k.events }

// Close stops reading and restores the terminal. Safe to call more
// than once.
func (k *terminalListener) Close() error {
	k.once.Do(func() {
		close(k.stop)
		<-k.done
		if err := term.Restore(int(k.file.Fd()), k.restore); err != nil {
			k.closeErr = fmt.Errorf("restoring terminal: %w", err)
		}
	})
	return k.closeErr
}
