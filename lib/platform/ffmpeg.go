// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/bureau-foundation/anveksha/lib/camera"
	"github.com/bureau-foundation/anveksha/lib/worker/video"
)

// FFmpegCamera reads raw grayscale frames from a V4L2 device through
// an ffmpeg child process.
type FFmpegCamera struct {
	Binary string
	Device string
	Width  int
	Height int
}

func (c *FFmpegCamera) arguments() []string {
	size := fmt.Sprintf("%dx%d", c.Width, c.Height)
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2", "-video_size", size, "-i", c.Device,
		"-f", "rawvideo", "-pix_fmt", "gray", "-s", size, "-",
	}
}

// Open starts ffmpeg. The process is not bound to ctx: the stream
// lives until Close, past the call that opened it.
func (c *FFmpegCamera) Open(ctx context.Context) (camera.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(c.Binary, c.arguments()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stream := &ffmpegStream{cmd: cmd, stdout: stdout, width: c.Width, height: c.Height}
	cmd.Stderr = &stream.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", c.Binary, err)
	}
	return stream, nil
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr lockedBuffer

	width, height int

	closeOnce sync.Once
	closeErr  error
}

// ReadFrame blocks for at most one frame interval while the device is
// delivering.
func (s *ffmpegStream) ReadFrame(ctx context.Context) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame := image.NewGray(image.Rect(0, 0, s.width, s.height))
	if _, err := io.ReadFull(s.stdout, frame.Pix); err != nil {
		return nil, fmt.Errorf("reading frame: %w (ffmpeg: %s)", err, strings.TrimSpace(s.stderr.String()))
	}
	return frame, nil
}

func (s *ffmpegStream) Size() (int, int) { return s.width, s.height }

func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		err := s.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			s.closeErr = fmt.Errorf("stopping ffmpeg: %w", err)
		}
	})
	return s.closeErr
}

// FFmpegEncoder writes grayscale frames into MJPEG AVI files through
// an ffmpeg child process per file.
type FFmpegEncoder struct {
	Binary string
}

func (e *FFmpegEncoder) arguments(path string, width, height, fps int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "gray",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(fps),
		"-i", "-",
		"-c:v", "mjpeg", "-q:v", "5",
		path,
	}
}

// Create starts an encoder for path.
func (e *FFmpegEncoder) Create(path string, width, height, fps int) (video.Writer, error) {
	writer, err := e.start(e.arguments(path, width, height, fps), path, width, height)
	if err != nil {
		return nil, err
	}
	return writer, nil
}

func (e *FFmpegEncoder) start(arguments []string, path string, width, height int) (*ffmpegWriter, error) {
	cmd := exec.Command(e.Binary, arguments...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	writer := &ffmpegWriter{cmd: cmd, stdin: stdin, width: width, height: height, path: path}
	cmd.Stderr = &writer.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", e.Binary, err)
	}
	return writer, nil
}

type ffmpegWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr lockedBuffer

	width, height int
	path          string
}

// WriteFrame writes frame, cropped or padded row by row to the
// encoder's size.
func (w *ffmpegWriter) WriteFrame(frame *image.Gray) error {
	row := make([]byte, w.width)
	bounds := frame.Bounds()
	for y := 0; y < w.height; y++ {
		clear(row)
		if y < bounds.Dy() {
			offset := y * frame.Stride
			copy(row, frame.Pix[offset:offset+min(bounds.Dx(), w.width)])
		}
		if _, err := w.stdin.Write(row); err != nil {
			return fmt.Errorf("writing frame to %s: %w", w.path, err)
		}
	}
	return nil
}

// Close ends the input and waits for ffmpeg to finalize the file.
func (w *ffmpegWriter) Close() error {
	w.stdin.Close()
	if err := w.cmd.Wait(); err != nil {
		return fmt.Errorf("finalizing %s: %w (ffmpeg: %s)", w.path, err, strings.TrimSpace(w.stderr.String()))
	}
	return nil
}

// lockedBuffer collects a child's stderr while other goroutines may
// read it for error messages.
type lockedBuffer struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}
