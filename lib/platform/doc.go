// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package platform adapts operating system facilities to the capture
// interfaces the workers and the access gate consume.
//
// Every adapter is thin. External programs do the device work
// (ffmpeg for the webcam and video files, an X11 screenshot tool,
// xdotool, tesseract) and are configured as argument lists with
// placeholders, so a deployment swaps a program without code changes.
// Face detection runs in process with pigo. The key source reads the
// agent's controlling terminal; a system-wide keyboard hook is outside
// this package.
package platform
