package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"presenter-studio/internal/metrics"
)

// stderrTail is how much ffmpeg output is kept in errors.
const stderrTail = 4096

// Runner executes operations.
type Runner interface {
	Run(ctx context.Context, op Operation) error
}

// Prober inspects media files.
type Prober interface {
	Probe(ctx context.Context, path string) (*Info, error)
}

// Info is what the pipeline needs to know about a media file.
type Info struct {
	Duration float64
	Width    int
	Height   int
	HasVideo bool
	HasAudio bool
}

// ExecError is a failed ffmpeg or ffprobe run.
type ExecError struct {
	Op     string
	Err    error
	Stderr string
}

func (e *ExecError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Stderr)
}

func (e *ExecError) Unwrap() error { return e.Err }

// FFmpeg runs operations with the ffmpeg binary.
type FFmpeg struct {
	bin    string
	logger *zap.Logger
}

// NewFFmpeg creates a runner. An empty bin means "ffmpeg" from PATH.
func NewFFmpeg(bin string, logger *zap.Logger) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin, logger: logger.Named("ffmpeg")}
}

// Command returns the full argument list passed to the binary.
func Command(op Operation) []string {
	return append([]string{"-y", "-nostdin", "-hide_banner", "-loglevel", "error"}, op.Args()...)
}

func (f *FFmpeg) Run(ctx context.Context, op Operation) (err error) {
	defer func() { metrics.MediaOperation(op.Name(), err) }()

	if dir := filepath.Dir(op.Output()); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &ExecError{Op: op.Name(), Err: err}
		}
	}

	args := Command(op)
	start := time.Now()
	cmd := exec.CommandContext(ctx, f.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.logger.Debug("Running ffmpeg", zap.String("op", op.Name()), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ExecError{Op: op.Name(), Err: err, Stderr: tail(stderr.String())}
	}
	f.logger.Info("ffmpeg operation finished",
		zap.String("op", op.Name()),
		zap.String("output", op.Output()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		return s[len(s)-stderrTail:]
	}
	return s
}

// FFprobe probes files with the ffprobe binary.
type FFprobe struct {
	bin string
}

// NewFFprobe creates a prober. An empty bin means "ffprobe" from PATH.
func NewFFprobe(bin string) *FFprobe {
	if bin == "" {
		bin = "ffprobe"
	}
	return &FFprobe{bin: bin}
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (p *FFprobe) Probe(ctx context.Context, path string) (*Info, error) {
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ExecError{Op: "probe", Err: err, Stderr: tail(stderr.String())}
	}
	return parseProbe(stdout.Bytes())
}

func parseProbe(data []byte) (*Info, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode ffprobe output: %w", err)
	}
	if out.Format.Duration == "" {
		return nil, fmt.Errorf("ffprobe reported no duration")
	}
	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration %q: %w", out.Format.Duration, err)
	}

	info := &Info{Duration: duration}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if !info.HasVideo {
				info.HasVideo = true
				info.Width, info.Height = s.Width, s.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}
