package transform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"hlspiped/internal/logger"
)

// FFmpegEngine remuxes segments through an external ffmpeg process,
// reading the raw segment on stdin and writing the converted segment
// to stdout. Each invocation is an isolated process.
type FFmpegEngine struct {
	binary string
	args   []string
	logger logger.Logger
}

// defaultFFmpegArgs remux to fragmented MP4 without re-encoding.
var defaultFFmpegArgs = []string{
	"-c", "copy",
	"-f", "mp4",
	"-movflags", "frag_keyframe+empty_moov",
}

// NewFFmpegEngine creates an engine invoking the given binary. Nil or
// empty args select a copy remux to fragmented MP4.
func NewFFmpegEngine(log logger.Logger, binary string, args []string) *FFmpegEngine {
	if len(args) == 0 {
		args = defaultFFmpegArgs
	}
	return &FFmpegEngine{binary: binary, args: args, logger: log}
}

// Initialize verifies the ffmpeg binary is present and executable.
func (e *FFmpegEngine) Initialize(ctx context.Context) error {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return fmt.Errorf("transform engine unavailable: %w", err)
	}
	e.logger.Infof("Transform engine initialized: %s", path)
	return nil
}

// Run converts one segment through ffmpeg.
func (e *FFmpegEngine) Run(ctx context.Context, raw []byte) ([]byte, error) {
	args := append([]string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0"}, e.args...)
	args = append(args, "pipe:1")

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdin = bytes.NewReader(raw)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, detail)
		}
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}
	return stdout.Bytes(), nil
}

// PassthroughEngine returns segments unchanged. Used when the stream is
// already in a playable format, and in tests.
type PassthroughEngine struct{}

// Initialize is a no-op.
func (PassthroughEngine) Initialize(ctx context.Context) error { return nil }

// Run returns the raw bytes unchanged.
func (PassthroughEngine) Run(ctx context.Context, raw []byte) ([]byte, error) {
	return raw, nil
}
