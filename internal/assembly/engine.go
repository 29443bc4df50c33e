// Package assembly joins the clips of a session and the outro into the base
// video.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"presenter-studio/internal/media"
	"presenter-studio/internal/models"
)

// FinalName is the file name of the base video inside a session directory.
const FinalName = "final.mp4"

// Options configures an Engine.
type Options struct {
	Encoding      media.Encoding
	FlashDuration time.Duration
	Tolerance     time.Duration
}

// Request is one assembly of a session.
type Request struct {
	SessionDir   string
	SegmentPaths []string
	// OutroPath is appended after the last segment when set.
	OutroPath string
	Flashes   bool
}

// Result is the assembled base video.
type Result struct {
	Path   string
	Record models.AssemblyRecord
}

// Engine runs the normalize, concat and flash passes.
type Engine struct {
	runner media.Runner
	prober media.Prober
	opts   Options
	logger *zap.Logger
}

func New(runner media.Runner, prober media.Prober, opts Options, logger *zap.Logger) *Engine {
	if opts.Encoding == (media.Encoding{}) {
		opts.Encoding = media.DefaultEncoding
	}
	if opts.FlashDuration <= 0 {
		opts.FlashDuration = 40 * time.Millisecond
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 250 * time.Millisecond
	}
	return &Engine{runner: runner, prober: prober, opts: opts, logger: logger.Named("assembly")}
}

// Assemble writes FinalName into the session directory. Intermediate files
// live in a work directory that is removed on success and kept on failure.
func (e *Engine) Assemble(ctx context.Context, req Request) (*Result, error) {
	if len(req.SegmentPaths) == 0 {
		return nil, fmt.Errorf("%w: no segments to assemble", models.ErrAssembly)
	}
	inputs := append([]string(nil), req.SegmentPaths...)
	if req.OutroPath != "" {
		inputs = append(inputs, req.OutroPath)
	}
	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			return nil, fmt.Errorf("%w: input missing: %v", models.ErrAssembly, err)
		}
	}

	workDir, err := os.MkdirTemp(req.SessionDir, "assembly-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	log := e.logger.With(zap.String("work_dir", workDir), zap.Int("segments", len(req.SegmentPaths)))

	res, err := e.assemble(ctx, req, inputs, workDir, log)
	if err != nil {
		log.Error("Assembly failed, keeping work directory", zap.Error(err))
		return nil, err
	}
	if err := os.RemoveAll(workDir); err != nil {
		log.Warn("Failed to remove work directory", zap.Error(err))
	}
	log.Info("Assembly finished", zap.String("path", res.Path), zap.Float64("duration", res.Record.Duration))
	return res, nil
}

func (e *Engine) assemble(ctx context.Context, req Request, inputs []string, workDir string, log *zap.Logger) (*Result, error) {
	durations := make([]float64, len(inputs))
	normalized := make([]string, len(inputs))
	for i, in := range inputs {
		info, err := e.prober.Probe(ctx, in)
		if err != nil {
			return nil, wrap(fmt.Sprintf("probe input %d", i), err)
		}
		durations[i] = info.Duration
		normalized[i] = filepath.Join(workDir, fmt.Sprintf("norm-%02d.mp4", i))

		op := media.Normalize{Input: in, Out: normalized[i], Encoding: e.opts.Encoding, HasAudio: info.HasAudio}
		if err := e.runner.Run(ctx, op); err != nil {
			return nil, wrap(fmt.Sprintf("normalize input %d", i), err)
		}
		log.Debug("Input normalized", zap.Int("input", i), zap.Bool("had_audio", info.HasAudio))
	}

	list := filepath.Join(workDir, "concat.txt")
	if err := media.WriteConcatList(list, normalized); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	out := filepath.Join(workDir, "concat.mp4")
	if err := e.runner.Run(ctx, media.Concat{ListFile: list, Out: out}); err != nil {
		return nil, wrap("concat", err)
	}

	rec := models.AssemblyRecord{}
	if req.OutroPath != "" {
		rec.SegmentDurations = durations[:len(durations)-1]
		rec.OutroDuration = durations[len(durations)-1]
	} else {
		rec.SegmentDurations = durations
	}
	rec.Boundaries = Boundaries(rec.SegmentDurations, req.OutroPath != "")

	if req.Flashes && len(rec.Boundaries) > 0 {
		flashed := filepath.Join(workDir, "flashed.mp4")
		op := media.BlackFlash{
			Input:    out,
			Out:      flashed,
			At:       rec.Boundaries,
			Duration: e.opts.FlashDuration.Seconds(),
			Encoding: e.opts.Encoding,
		}
		if err := e.runner.Run(ctx, op); err != nil {
			return nil, wrap("black flashes", err)
		}
		out = flashed
		rec.FlashesApplied = true
	}

	info, err := e.prober.Probe(ctx, out)
	if err != nil {
		return nil, wrap("probe output", err)
	}
	expected := rec.OutroDuration
	for _, d := range rec.SegmentDurations {
		expected += d
	}
	if diff := math.Abs(info.Duration - expected); diff > e.opts.Tolerance.Seconds() {
		return nil, fmt.Errorf("%w: output lasts %.3fs, expected %.3fs (tolerance %s)",
			models.ErrAssembly, info.Duration, expected, e.opts.Tolerance)
	}
	rec.Duration = info.Duration

	final := filepath.Join(req.SessionDir, FinalName)
	if err := os.Rename(out, final); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return &Result{Path: final, Record: rec}, nil
}

// Boundaries returns the cut points between consecutive segments and, when an
// outro follows, between the last segment and the outro.
func Boundaries(segmentDurations []float64, withOutro bool) []float64 {
	n := len(segmentDurations)
	if !withOutro {
		n--
	}
	var (
		cuts []float64
		at   float64
	)
	for i := 0; i < n; i++ {
		at += segmentDurations[i]
		cuts = append(cuts, at)
	}
	return cuts
}

func wrap(step string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", models.ErrAssembly, step, err)
}
