// Package segment generates one video clip per script segment.
//
// A job moves through submit, poll and download. Each step can be resumed from
// what a previous attempt recorded: a stored task id is polled instead of
// resubmitted and a stored result URL is only downloaded again.
package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"presenter-studio/internal/metrics"
	"presenter-studio/internal/models"
	"presenter-studio/internal/provider"
	"presenter-studio/internal/retry"
)

// Provider is the video-generation task API.
type Provider interface {
	SubmitVideo(ctx context.Context, req provider.VideoRequest) (string, error)
	VideoStatus(ctx context.Context, taskID string) (provider.TaskStatus, error)
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Options configures a Generator.
type Options struct {
	Poll            retry.Policy
	Throttle        retry.Policy
	Download        retry.Policy
	AspectRatio     string
	DescriptorWords int
	Clock           retry.Clock
}

// Job is one segment to produce, plus whatever an earlier attempt left behind.
type Job struct {
	SessionID         string
	SessionDir        string
	Index             int
	Spec              models.SegmentSpec
	Presenter         models.PresenterProfile
	ReferenceImageURL string

	TaskID      string
	RemoteURL   string
	SubmittedAt *time.Time

	// OnSubmitted runs as soon as the provider accepts a task, before polling
	// starts, so the id survives a crash.
	OnSubmitted func(taskID string, at time.Time) error
}

// Result carries the progress of a job. It is returned even on failure so
// the caller can persist a task id or result URL that is still usable.
type Result struct {
	Index         int
	TaskID        string
	RemoteURL     string
	LocalFilePath string
	SubmittedAt   *time.Time
	DownloadedAt  *time.Time
	Bytes         int64
	Submitted     bool
}

// Generator runs segment jobs against a video provider.
type Generator struct {
	provider Provider
	opts     Options
	logger   *zap.Logger
}

// New creates a Generator.
func New(p Provider, opts Options, logger *zap.Logger) *Generator {
	if opts.Clock == nil {
		opts.Clock = retry.RealClock()
	}
	if opts.AspectRatio == "" {
		opts.AspectRatio = "9:16"
	}
	return &Generator{provider: p, opts: opts, logger: logger.Named("segment")}
}

// FileName is the deterministic clip name of a segment.
func FileName(index int, role models.SegmentRole, submittedAt time.Time) string {
	return fmt.Sprintf("segment-%d-%s-%d.mp4", index, role, submittedAt.Unix())
}

// Generate runs the job to a downloaded clip. Errors are *models.SegmentError.
func (g *Generator) Generate(ctx context.Context, job Job) (*Result, error) {
	res := &Result{
		Index:       job.Index,
		TaskID:      job.TaskID,
		RemoteURL:   job.RemoteURL,
		SubmittedAt: job.SubmittedAt,
	}
	log := g.logger.With(
		zap.String("session_id", job.SessionID),
		zap.Int("segment_index", job.Index),
		zap.String("role", string(job.Spec.Role)),
	)
	fail := func(err error) (*Result, error) {
		log.Error("Segment generation failed", zap.Error(err))
		return res, &models.SegmentError{Index: job.Index, Err: err}
	}

	if res.RemoteURL == "" {
		if res.TaskID == "" {
			if err := g.submit(ctx, job, res, log); err != nil {
				return fail(err)
			}
		} else {
			log.Info("Resuming segment task", zap.String("task_id", res.TaskID))
		}

		url, err := g.await(ctx, res.TaskID, log)
		if err != nil {
			var dead *taskFailedError
			switch {
			case errors.Is(err, retry.ErrCeilingExceeded):
				// The task may still finish; the next attempt polls it again.
				err = fmt.Errorf("%w: video task %s: %v", models.ErrTimeout, res.TaskID, err)
			case errors.As(err, &dead):
				// Only a task the provider reported as failed is resubmitted.
				res.TaskID = ""
				res.SubmittedAt = nil
			}
			return fail(err)
		}
		res.RemoteURL = url
	} else {
		log.Info("Re-downloading finished segment", zap.String("remote_url", res.RemoteURL))
	}

	if res.SubmittedAt == nil {
		now := g.opts.Clock.Now()
		res.SubmittedAt = &now
	}
	if err := g.download(ctx, job, res, log); err != nil {
		return fail(err)
	}
	return res, nil
}

func (g *Generator) submit(ctx context.Context, job Job, res *Result, log *zap.Logger) error {
	req := provider.VideoRequest{
		Prompt:            BuildPrompt(job.Presenter, job.Spec, g.opts.DescriptorWords),
		ReferenceImageURL: job.ReferenceImageURL,
		Seed:              job.Presenter.FixedSeed,
		AspectRatio:       g.opts.AspectRatio,
		DurationSeconds:   job.Spec.TargetDurationSeconds,
	}
	log.Debug("Video prompt", zap.String("prompt", req.Prompt))

	err := retry.Do(ctx, g.opts.Clock, g.opts.Throttle, isThrottled, func(ctx context.Context, attempt int) error {
		id, err := g.provider.SubmitVideo(ctx, req)
		if err != nil {
			log.Warn("Video submission failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		res.TaskID = id
		return nil
	})
	if err != nil {
		return err
	}

	now := g.opts.Clock.Now()
	res.SubmittedAt = &now
	res.Submitted = true
	log.Info("Segment submitted", zap.String("task_id", res.TaskID))
	if job.OnSubmitted != nil {
		if err := job.OnSubmitted(res.TaskID, now); err != nil {
			return fmt.Errorf("failed to record task %s: %w", res.TaskID, err)
		}
	}
	return nil
}

// await polls a task until it finishes and returns its result URL.
func (g *Generator) await(ctx context.Context, taskID string, log *zap.Logger) (string, error) {
	start := g.opts.Clock.Now()
	var status provider.TaskStatus
	err := retry.Poll(ctx, g.opts.Clock, g.opts.Poll, func(ctx context.Context) (bool, error) {
		st, err := g.provider.VideoStatus(ctx, taskID)
		if err != nil {
			if provider.Transient(err) {
				log.Warn("Video status unavailable, polling again", zap.Error(err))
				return false, nil
			}
			return false, err
		}
		status = st
		return st.Done(), nil
	})
	if err == nil {
		if taskErr := status.Err(); taskErr != nil {
			err = &taskFailedError{err: taskErr}
		}
	}
	metrics.TaskWait("video", g.opts.Clock.Now().Sub(start), err)
	if err != nil {
		return "", err
	}
	return status.ResultURL, nil
}

func (g *Generator) download(ctx context.Context, job Job, res *Result, log *zap.Logger) error {
	if err := os.MkdirAll(job.SessionDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	target := filepath.Join(job.SessionDir, FileName(job.Index, job.Spec.Role, *res.SubmittedAt))

	err := retry.Do(ctx, g.opts.Clock, g.opts.Download, isDownloadFailure, func(ctx context.Context, attempt int) error {
		n, err := g.downloadOnce(ctx, res.RemoteURL, target)
		if err != nil {
			log.Warn("Segment download failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		res.Bytes = n
		return nil
	})
	if err != nil {
		return err
	}

	now := g.opts.Clock.Now()
	res.LocalFilePath = target
	res.DownloadedAt = &now
	log.Info("Segment downloaded", zap.String("path", target), zap.Int64("size_bytes", res.Bytes))
	return nil
}

// downloadOnce writes into a temp file and renames it over target, so a
// failed attempt never leaves a partial clip under the final name.
func (g *Generator) downloadOnce(ctx context.Context, url, target string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := g.provider.Download(ctx, url, tmp)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return n, nil
}

// taskFailedError is a final task state reported by the provider, as opposed
// to a status request that did not get an answer.
type taskFailedError struct {
	err error
}

func (e *taskFailedError) Error() string { return e.err.Error() }
func (e *taskFailedError) Unwrap() error { return e.err }

func isThrottled(err error) bool {
	return errors.Is(err, models.ErrThrottled)
}

func isDownloadFailure(err error) bool {
	return errors.Is(err, models.ErrDownloadFailed)
}
