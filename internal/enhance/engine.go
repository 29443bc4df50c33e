// Package enhance applies optional post passes to an assembled base video.
//
// Passes run in a fixed order (black flashes, player card, subtitles), each
// on the output of the last pass that succeeded. A failing pass is reported
// and skipped; it never stops the passes after it.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"presenter-studio/internal/media"
	"presenter-studio/internal/metrics"
	"presenter-studio/internal/models"
	"presenter-studio/internal/retry"
)

// Options configures an Engine.
type Options struct {
	Encoding      media.Encoding
	FlashDuration time.Duration
	Subtitles     media.SubtitleStyle
	CardFontFile  string
	PhraseWords   int
	Clock         retry.Clock
}

// Request is one enhancement of a finalized session.
type Request struct {
	SessionDir string
	BasePath   string
	Assembly   *models.AssemblyRecord
	Script     models.Script
	Spec       models.EnhancementSpec
}

// Engine runs enhancement passes.
type Engine struct {
	runner media.Runner
	opts   Options
	logger *zap.Logger
}

func New(runner media.Runner, opts Options, logger *zap.Logger) *Engine {
	if opts.Encoding == (media.Encoding{}) {
		opts.Encoding = media.DefaultEncoding
	}
	if opts.FlashDuration <= 0 {
		opts.FlashDuration = 40 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = retry.RealClock()
	}
	return &Engine{runner: runner, opts: opts, logger: logger.Named("enhance")}
}

// stage is one pass. run renders input into out.
type stage struct {
	name string
	run  func(ctx context.Context, input, out, workDir string) error
}

// errAlreadyApplied marks a pass whose effect is already in the base video.
var errAlreadyApplied = errors.New("already applied at assembly")

// Apply runs the requested passes. The returned error is only about the
// request itself; pass failures are in the report. The derived video is
// written as enhanced-<unix>.mp4 next to the base and the base is left as is.
func (e *Engine) Apply(ctx context.Context, req Request) (*models.EnhancementReport, error) {
	if _, err := os.Stat(req.BasePath); err != nil {
		return nil, fmt.Errorf("%w: base video: %v", models.ErrStorage, err)
	}
	stages := e.plan(req)
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: no enhancement requested", models.ErrValidation)
	}

	workDir, err := os.MkdirTemp(req.SessionDir, "enhance-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	defer os.RemoveAll(workDir)

	report := &models.EnhancementReport{BaseVideoPath: req.BasePath}
	current := req.BasePath
	for i, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := e.logger.With(zap.String("stage", st.name))
		out := filepath.Join(workDir, fmt.Sprintf("%d-%s.mp4", i, st.name))

		err := st.run(ctx, current, out, workDir)
		switch {
		case err == nil:
			current = out
			report.Stages = append(report.Stages, models.StageReport{Name: st.name, Applied: true})
			metrics.EnhancementStage(st.name, "applied")
			log.Info("Enhancement applied")
		case errors.Is(err, errAlreadyApplied):
			report.Stages = append(report.Stages, models.StageReport{Name: st.name, Skipped: true, Note: err.Error()})
			metrics.EnhancementStage(st.name, "skipped")
			log.Info("Enhancement skipped", zap.String("reason", err.Error()))
		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			report.Stages = append(report.Stages, models.StageReport{Name: st.name, Error: err.Error()})
			metrics.EnhancementStage(st.name, "failed")
			log.Warn("Enhancement failed, continuing", zap.Error(err))
		}
	}

	if current == req.BasePath {
		return report, nil
	}
	target, err := e.derivedPath(req.SessionDir)
	if err != nil {
		return nil, err
	}
	if err := os.Rename(current, target); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	report.EnhancedVideoPath = target
	return report, nil
}

func (e *Engine) derivedPath(dir string) (string, error) {
	base := fmt.Sprintf("enhanced-%d", e.opts.Clock.Now().Unix())
	name := filepath.Join(dir, base+".mp4")
	for n := 2; ; n++ {
		_, err := os.Stat(name)
		if errors.Is(err, os.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", models.ErrStorage, err)
		}
		name = filepath.Join(dir, fmt.Sprintf("%s-%d.mp4", base, n))
	}
}

func (e *Engine) plan(req Request) []stage {
	var stages []stage
	spec := req.Spec
	if spec.BlackFlashes {
		stages = append(stages, stage{name: models.EnhancementBlackFlashes, run: func(ctx context.Context, in, out, _ string) error {
			return e.flashes(ctx, req.Assembly, in, out)
		}})
	}
	if spec.PlayerCard != nil {
		card := *spec.PlayerCard
		stages = append(stages, stage{name: models.EnhancementPlayerCard, run: func(ctx context.Context, in, out, _ string) error {
			return e.card(ctx, card, req.Assembly, in, out)
		}})
	}
	if spec.ViralSubtitles != nil {
		subs := *spec.ViralSubtitles
		stages = append(stages, stage{name: models.EnhancementViralSubtitles, run: func(ctx context.Context, in, out, workDir string) error {
			return e.subtitles(ctx, subs, req, in, out, workDir)
		}})
	}
	return stages
}

func (e *Engine) flashes(ctx context.Context, rec *models.AssemblyRecord, in, out string) error {
	if rec == nil {
		return errors.New("no assembly timing recorded")
	}
	if rec.FlashesApplied {
		return errAlreadyApplied
	}
	if len(rec.Boundaries) == 0 {
		return errors.New("video has no segment boundaries")
	}
	return e.runner.Run(ctx, media.BlackFlash{
		Input:    in,
		Out:      out,
		At:       rec.Boundaries,
		Duration: e.opts.FlashDuration.Seconds(),
		Encoding: e.opts.Encoding,
	})
}

func (e *Engine) card(ctx context.Context, card models.CardSpec, rec *models.AssemblyRecord, in, out string) error {
	if card.DurationSeconds <= 0 || card.StartSeconds < 0 {
		return fmt.Errorf("invalid card window %.2fs+%.2fs", card.StartSeconds, card.DurationSeconds)
	}
	if rec != nil && rec.Duration > 0 && card.StartSeconds >= rec.Duration {
		return fmt.Errorf("card starts at %.2fs after the video ends at %.2fs", card.StartSeconds, rec.Duration)
	}
	window := media.Window{Start: card.StartSeconds, Duration: card.DurationSeconds}

	switch {
	case card.ImagePath != "":
		if _, err := os.Stat(card.ImagePath); err != nil {
			return fmt.Errorf("card image: %w", err)
		}
		return e.runner.Run(ctx, media.ImageCardOverlay{
			Input: in, Image: card.ImagePath, Out: out, Window: window, Encoding: e.opts.Encoding,
		})
	case card.Title != "":
		return e.runner.Run(ctx, media.TextCardOverlay{
			Input: in, Out: out, Title: card.Title, Lines: card.Lines,
			FontFile: e.opts.CardFontFile, Window: window, Encoding: e.opts.Encoding,
		})
	default:
		return errors.New("card needs an image or a title")
	}
}

func (e *Engine) subtitles(ctx context.Context, spec models.SubtitleSpec, req Request, in, out, workDir string) error {
	var durations []float64
	if req.Assembly != nil {
		durations = req.Assembly.SegmentDurations
	}
	cues, err := resolveCues(spec, req.Script, durations, e.opts.PhraseWords)
	if err != nil {
		return err
	}
	srt := filepath.Join(workDir, "subtitles.srt")
	if err := media.WriteSRT(srt, cues); err != nil {
		return err
	}
	return e.runner.Run(ctx, media.BurnSubtitles{
		Input: in, SRTPath: srt, Out: out, Style: e.opts.Subtitles, Encoding: e.opts.Encoding,
	})
}
