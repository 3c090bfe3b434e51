// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keylog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/anveksha/lib/cancellation"
	"github.com/bureau-foundation/anveksha/lib/catalog"
	"github.com/bureau-foundation/anveksha/lib/clock"
	"github.com/bureau-foundation/anveksha/lib/testutil"
	"github.com/bureau-foundation/anveksha/lib/worker"
)

// fakeSource hands out a fresh listener per Listen. Closing a
// listener closes its Events channel, as the terminal listener does.
type fakeSource struct {
	mu        sync.Mutex
	listeners []*fakeListener
}

func newFakeSource() *fakeSource { return &fakeSource{} }

func (s *fakeSource) Listen() (Listener, error) {
	listener := &fakeListener{events: make(chan KeyEvent)}
	s.mu.Lock()
	s.listeners = append(s.listeners, listener)
	s.mu.Unlock()
	return listener, nil
}

// latest returns the most recent listener. Call it once Run has
// registered its ticker, which happens after Listen.
func (s *fakeSource) latest(t *testing.T) *fakeListener {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listeners) == 0 {
		t.Fatal("no listener opened")
	}
	return s.listeners[len(s.listeners)-1]
}

type fakeListener struct {
	events chan KeyEvent
	mu     sync.Mutex
	closed bool
}

func (l *fakeListener) Events() <-chan KeyEvent { return l.events }

func (l *fakeListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.events)
	}
	return nil
}

func (l *fakeListener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *fakeListener) press(t *testing.T, events ...KeyEvent) {
	t.Helper()
	for _, event := range events {
		testutil.RequireSend(t, l.events, event, 5*time.Second, "sending key")
	}
}

// failingSource cannot start a listener.
type failingSource struct{}

func (failingSource) Listen() (Listener, error) { return nil, errors.New("no terminal") }

// countingToken counts successful Cancel transitions.
type countingToken struct {
	*cancellation.Token
	mu          sync.Mutex
	transitions int
}

func (c *countingToken) Cancel() bool {
	changed := c.Token.Cancel()
	if changed {
		c.mu.Lock()
		c.transitions++
		c.mu.Unlock()
	}
	return changed
}

func TestFormat(t *testing.T) {
	tests := []struct {
		event KeyEvent
		want  string
	}{
		{KeyEvent{Name: KeySpace}, " "},
		{KeyEvent{Name: "enter"}, "[enter]"},
		{KeyEvent{Name: KeyEscape}, "[esc]"},
		{KeyEvent{Char: 'a'}, "a"},
		{KeyEvent{Char: 'Z'}, "Z"},
		{KeyEvent{Char: '7'}, "7"},
		{KeyEvent{Char: '!'}, "(!)"},
		{KeyEvent{Char: '"'}, `(")`},
		{KeyEvent{Char: '/'}, "(/)"},
		{KeyEvent{Char: '|'}, "|"},
		{KeyEvent{Char: 'é'}, "é"},
	}
	for _, test := range tests {
		if got := Format(test.event); got != test.want {
			t.Errorf("Format(%+v) = %q, want %q", test.event, got, test.want)
		}
	}
}

type harness struct {
	source   *fakeSource
	token    *countingToken
	clock    *clock.FakeClock
	path     string
	recorder *worker.MemoryRecorder
	done     chan error
}

func start(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		source:   newFakeSource(),
		token:    &countingToken{Token: cancellation.New()},
		clock:    clock.Fake(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)),
		path:     filepath.Join(t.TempDir(), "Logs", "log.txt"),
		recorder: &worker.MemoryRecorder{},
		done:     make(chan error, 1),
	}
	w, err := New(Config{
		Path:     h.path,
		Source:   h.source,
		Trigger:  h.token,
		Recorder: h.recorder,
		Clock:    h.clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	go func() { h.done <- w.Run(context.Background(), h.token) }()
	h.clock.WaitForTimers(1)
	return h
}

func (h *harness) press(t *testing.T, events ...KeyEvent) {
	t.Helper()
	h.source.latest(t).press(t, events...)
}

func TestEscapeEndsSession(t *testing.T) {
	h := start(t)

	h.press(t,
		KeyEvent{Char: 'h'}, KeyEvent{Char: 'i'}, KeyEvent{Name: KeySpace},
		KeyEvent{Char: '?'}, KeyEvent{Name: KeyEscape},
	)
	if err := testutil.RequireReceive(t, h.done, 5*time.Second, "worker exit"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got, want := testutil.ReadFile(t, h.path), "hi (?)[esc]"; got != want {
		t.Errorf("key log = %q, want %q", got, want)
	}
	if !h.token.Cancelled() {
		t.Error("escape did not set the token")
	}
	if h.token.transitions != 1 {
		t.Errorf("token set %d times, want exactly once", h.token.transitions)
	}
	if !h.source.latest(t).isClosed() {
		t.Error("listener not stopped after escape")
	}
	if paths := h.recorder.Paths(catalog.KindKeyLog); len(paths) != 1 || paths[0] != h.path {
		t.Errorf("recorded key logs = %v, want [%s]", paths, h.path)
	}
}

func TestSpaceIsLiteral(t *testing.T) {
	h := start(t)
	h.press(t, KeyEvent{Name: KeySpace})

	h.token.Cancel()
	h.clock.Advance(time.Second)
	if err := testutil.RequireReceive(t, h.done, 5*time.Second, "worker exit"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := testutil.ReadFile(t, h.path); got != " " {
		t.Errorf("key log = %q, want a single space", got)
	}
}

func TestControllerCancellationStopsListener(t *testing.T) {
	h := start(t)

	if !h.token.Cancel() {
		t.Fatal("Cancel returned false on a fresh token")
	}
	h.clock.Advance(time.Second)
	if err := testutil.RequireReceive(t, h.done, 5*time.Second, "worker exit"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !h.source.latest(t).isClosed() {
		t.Error("listener not closed on controller cancellation")
	}
}

func TestWorkerRunsAgainAfterEscape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	source := newFakeSource()
	token := cancellation.New()
	fake := clock.Fake(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	w, err := New(Config{Path: path, Source: source, Trigger: token, Clock: fake})
	if err != nil {
		t.Fatal(err)
	}

	for session, char := range []rune{'a', 'b'} {
		token.Reset()
		done := make(chan error, 1)
		go func() { done <- w.Run(context.Background(), token) }()
		fake.WaitForTimers(1)

		listener := source.latest(t)
		listener.press(t, KeyEvent{Char: char}, KeyEvent{Name: KeyEscape})
		if err := testutil.RequireReceive(t, done, 5*time.Second, "session %d exit", session+1); err != nil {
			t.Fatalf("session %d Run: %v", session+1, err)
		}
		if !token.Cancelled() {
			t.Errorf("session %d: escape did not set the token", session+1)
		}
		if !listener.isClosed() {
			t.Errorf("session %d: listener left open", session+1)
		}
	}

	if got := testutil.ReadFile(t, path); got != "a[esc]b[esc]" {
		t.Errorf("key log = %q, want both sessions appended", got)
	}
	if count := len(source.listeners); count != 2 {
		t.Errorf("opened %d listeners, want one per session", count)
	}
}

func TestListenFailure(t *testing.T) {
	token := cancellation.New()
	w, err := New(Config{Path: filepath.Join(t.TempDir(), "log.txt"), Source: failingSource{}, Trigger: token})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Run(context.Background(), token); err == nil {
		t.Error("Run succeeded without a listener")
	}
}
