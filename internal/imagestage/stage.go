// Package imagestage generates the per-segment presenter reference frames.
//
// Every job is conditioned on the presenter's complete reference image set and
// always carries the presenter's fixed seed. A different seed between frames of
// the same session shows up on screen as a different person.
package imagestage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"presenter-studio/internal/metrics"
	"presenter-studio/internal/models"
	"presenter-studio/internal/provider"
	"presenter-studio/internal/retry"
	"presenter-studio/internal/storage"
)

// Provider is the image-generation task API.
type Provider interface {
	SubmitImage(ctx context.Context, req provider.ImageRequest) (string, error)
	ImageStatus(ctx context.Context, taskID string) (provider.TaskStatus, error)
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Options configures a Stage.
type Options struct {
	Poll        retry.Policy
	Throttle    retry.Policy
	AspectRatio string
	Clock       retry.Clock
}

// Stage runs image jobs and publishes their output to object storage.
type Stage struct {
	provider Provider
	store    storage.ObjectStorage
	opts     Options
	logger   *zap.Logger
}

// New creates an image stage.
func New(p Provider, store storage.ObjectStorage, opts Options, logger *zap.Logger) *Stage {
	if opts.Clock == nil {
		opts.Clock = retry.RealClock()
	}
	if opts.AspectRatio == "" {
		opts.AspectRatio = "9:16"
	}
	return &Stage{provider: p, store: store, opts: opts, logger: logger.Named("imagestage")}
}

// Request describes one reference frame.
type Request struct {
	Profile   models.PresenterProfile
	SessionID string
	Index     int
	Style     string
}

// Result is the outcome of one reference frame. Err is a *models.SegmentError
// when the frame could not be produced.
type Result struct {
	Index   int
	Framing Framing
	TaskID  string
	URL     string
	Seed    int64
	Err     error
}

// GenerateReferenceSet produces count frames for the session. All jobs are
// submitted up front and polled concurrently. The returned slice always has
// count entries; the error joins every per-index failure.
func (s *Stage) GenerateReferenceSet(ctx context.Context, profile models.PresenterProfile, sessionID string, count int, style string) ([]Result, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: reference count must be positive", models.ErrValidation)
	}
	results := make([]Result, count)

	var g errgroup.Group
	for i := 0; i < count; i++ {
		g.Go(func() error {
			results[i] = s.GenerateReference(ctx, Request{
				Profile:   profile,
				SessionID: sessionID,
				Index:     i,
				Style:     style,
			})
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}

// GenerateReference produces a single frame. A failed frame is not retried
// here; the caller decides whether to ask again for that index only.
func (s *Stage) GenerateReference(ctx context.Context, req Request) Result {
	framing := FramingFor(req.Style, req.Index)
	res := Result{Index: req.Index, Framing: framing, Seed: req.Profile.FixedSeed}
	log := s.logger.With(
		zap.String("session_id", req.SessionID),
		zap.String("presenter", req.Profile.Name),
		zap.Int("index", req.Index),
		zap.String("framing", string(framing)),
	)

	fail := func(err error) Result {
		log.Error("Reference image failed", zap.Error(err))
		res.Err = &models.SegmentError{Index: req.Index, Err: err}
		return res
	}

	imgReq := provider.ImageRequest{
		Prompt:          BuildPrompt(req.Profile, framing),
		ReferenceImages: req.Profile.ReferenceURLs(),
		Seed:            req.Profile.FixedSeed,
		AspectRatio:     s.opts.AspectRatio,
	}

	err := retry.Do(ctx, s.opts.Clock, s.opts.Throttle, isThrottled, func(ctx context.Context, attempt int) error {
		id, err := s.provider.SubmitImage(ctx, imgReq)
		if err != nil {
			log.Warn("Image submission failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		res.TaskID = id
		return nil
	})
	if err != nil {
		return fail(err)
	}
	log = log.With(zap.String("task_id", res.TaskID))
	log.Info("Reference image submitted")

	submitted := s.opts.Clock.Now()
	var status provider.TaskStatus
	err = retry.Poll(ctx, s.opts.Clock, s.opts.Poll, func(ctx context.Context) (bool, error) {
		st, err := s.provider.ImageStatus(ctx, res.TaskID)
		if err != nil {
			if provider.Transient(err) {
				log.Warn("Image status unavailable, polling again", zap.Error(err))
				return false, nil
			}
			return false, err
		}
		status = st
		return st.Done(), nil
	})
	if errors.Is(err, retry.ErrCeilingExceeded) {
		err = fmt.Errorf("%w: image task %s: %v", models.ErrTimeout, res.TaskID, err)
	}
	if err == nil {
		err = status.Err()
	}
	metrics.TaskWait("image", s.opts.Clock.Now().Sub(submitted), err)
	if err != nil {
		return fail(err)
	}

	var buf bytes.Buffer
	if _, err := s.provider.Download(ctx, status.ResultURL, &buf); err != nil {
		return fail(err)
	}
	url, err := s.store.Upload(ctx, ReferenceKey(req.Profile.Name, req.SessionID, req.Index), buf.Bytes(), "image/png")
	if err != nil {
		return fail(err)
	}
	res.URL = url
	log.Info("Reference image stored", zap.String("url", url), zap.Int("size_bytes", buf.Len()))
	return res
}

func isThrottled(err error) bool {
	return errors.Is(err, models.ErrThrottled)
}

// BuildPrompt conditions an image job on the presenter description and framing.
func BuildPrompt(profile models.PresenterProfile, framing Framing) string {
	parts := []string{
		strings.TrimSpace(profile.CharacterDescription),
		framing.hint(),
		"same person as in the reference images, identical face, hair and outfit",
		"sports studio presenter, vertical 9:16 composition, photorealistic",
	}
	return strings.Join(parts, ", ")
}
