// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"unicode/utf8"

	"github.com/bureau-foundation/anveksha/lib/worker/keylog"
)

// escapeSequences maps the CSI/SS3 sequences terminals send for
// navigation keys to key names.
var escapeSequences = map[string]string{
	"[A": "up", "[B": "down", "[C": "right", "[D": "left",
	"OA": "up", "OB": "down", "OC": "right", "OD": "left",
	"[H": "home", "[F": "end", "OH": "home", "OF": "end",
	"[2~": "insert", "[3~": "delete", "[5~": "page_up", "[6~": "page_down",
	"OP": "f1", "OQ": "f2", "OR": "f3", "OS": "f4",
}

// controlKeys names the control bytes a raw terminal delivers.
var controlKeys = map[byte]string{
	'\r': "enter", '\n': "enter", '\t': "tab", 0x7f: "backspace", 0x08: "backspace",
}

// decodeKeys turns one read from a raw-mode terminal into key events.
// A lone ESC byte is the escape key; ESC followed by a known sequence
// is that navigation key; unknown sequences are dropped.
func decodeKeys(input []byte) []keylog.KeyEvent {
	var events []keylog.KeyEvent
	for len(input) > 0 {
		b := input[0]
		switch {
		case b == 0x1b:
			if len(input) == 1 {
				events = append(events, keylog.KeyEvent{Name: keylog.KeyEscape})
				return events
			}
			consumed, name := matchSequence(input[1:])
			if name != "" {
				events = append(events, keylog.KeyEvent{Name: name})
			} else if consumed == 0 {
				events = append(events, keylog.KeyEvent{Name: keylog.KeyEscape})
			}
			input = input[1+consumed:]
		case b == ' ':
			events = append(events, keylog.KeyEvent{Name: keylog.KeySpace})
			input = input[1:]
		case controlKeys[b] != "":
			events = append(events, keylog.KeyEvent{Name: controlKeys[b]})
			input = input[1:]
		case b < 0x20:
			events = append(events, keylog.KeyEvent{Name: controlName(b)})
			input = input[1:]
		default:
			r, size := utf8.DecodeRune(input)
			events = append(events, keylog.KeyEvent{Char: r})
			input = input[size:]
		}
	}
	return events
}

// controlName names a C0 control byte by the key pressed with Ctrl:
// 0x01-0x1a are letters, 0x00 is Ctrl-Space and 0x1c-0x1f are the
// punctuation keys that follow '[' in ASCII.
func controlName(b byte) string {
	switch {
	case b == 0x00:
		return "ctrl_space"
	case b <= 0x1a:
		return "ctrl_" + string(rune('a'+b-1))
	default:
		return "ctrl_" + string(rune('@'+b))
	}
}

// matchSequence looks for a known escape sequence at the start of
// rest. It returns how many bytes belong to the sequence, known or
// not, and the key name when known.
func matchSequence(rest []byte) (int, string) {
	if rest[0] != '[' && rest[0] != 'O' {
		return 0, ""
	}
	for end := 2; end <= len(rest) && end <= 4; end++ {
		if name, ok := escapeSequences[string(rest[:end])]; ok {
			return end, name
		}
	}
	// Skip an unknown CSI sequence up to its final byte.
	for i := 1; i < len(rest); i++ {
		if rest[i] >= 0x40 && rest[i] <= 0x7e {
			return i + 1, ""
		}
	}
	return len(rest), ""
}
