package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"presenter-studio/internal/assembly"
	"presenter-studio/internal/enhance"
	"presenter-studio/internal/metrics"
	"presenter-studio/internal/models"
	"presenter-studio/internal/segment"
)

// GenerateSegment makes sure the clip of one segment is on disk. A clip that
// already exists is returned without calling the provider.
func (m *Manager) GenerateSegment(ctx context.Context, id string, index int) (rec *models.SegmentRecord, err error) {
	release, err := m.deps.Locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := m.deps.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(sess.Segments) {
		return nil, fmt.Errorf("%w: segment %d of %d", models.ErrIndexOutOfRange, index, len(sess.Segments))
	}
	if m.cached(sess, index) {
		metrics.SegmentCacheHit()
		// The last missing clip may have been written by a run that never got
		// to settle the session.
		if sess.AllSegmentsDownloaded() && sess.Status != models.StatusSegmentsComplete && canGenerate(sess) == nil {
			if err := m.settle(ctx, m.track(sess), nil); err != nil {
				return nil, err
			}
			m.publish(ctx, sess, models.PhaseGenerate, &index)
		}
		seg := sess.Segments[index]
		return &seg, nil
	}
	if err := canGenerate(sess); err != nil {
		return nil, err
	}

	start := m.deps.Clock.Now()
	defer func() { metrics.Phase(string(models.PhaseGenerate), m.deps.Clock.Now().Sub(start), err) }()

	t := m.track(sess)
	if err := m.begin(ctx, t); err != nil {
		return nil, err
	}
	genErr := m.generateOne(ctx, t, index)
	settleErr := m.settle(ctx, t, genErr)
	m.publish(ctx, sess, models.PhaseGenerate, &index)

	seg := sess.Segments[index]
	if genErr != nil {
		return &seg, genErr
	}
	return &seg, settleErr
}

// GenerateAll generates every missing clip, SegmentConcurrency at a time. A
// failing segment does not stop the others; the returned error joins every
// failure.
func (m *Manager) GenerateAll(ctx context.Context, id string) (sess *models.Session, err error) {
	release, err := m.deps.Locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err = m.deps.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	var missing []int
	for i := range sess.Segments {
		if m.cached(sess, i) {
			metrics.SegmentCacheHit()
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 && (sess.Status == models.StatusSegmentsComplete ||
		sess.Status == models.StatusFinalized || failedIn(sess, models.PhaseFinalize)) {
		return sess, nil
	}
	if err := canGenerate(sess); err != nil {
		return nil, err
	}

	start := m.deps.Clock.Now()
	defer func() { metrics.Phase(string(models.PhaseGenerate), m.deps.Clock.Now().Sub(start), err) }()

	t := m.track(sess)
	if len(missing) == 0 {
		return sess, m.settle(ctx, t, nil)
	}
	if err := m.begin(ctx, t); err != nil {
		return nil, err
	}

	errs := make([]error, len(missing))
	var g errgroup.Group
	g.SetLimit(m.cfg.SegmentConcurrency)
	for k, idx := range missing {
		g.Go(func() error {
			errs[k] = m.generateOne(ctx, t, idx)
			return nil
		})
	}
	_ = g.Wait()

	genErr := errors.Join(errs...)
	settleErr := m.settle(ctx, t, genErr)
	m.publish(ctx, sess, models.PhaseGenerate, nil)
	if genErr != nil {
		return sess, genErr
	}
	return sess, settleErr
}

// cached reports whether the clip of index is on disk. A record whose file
// has gone is reset so the clip is downloaded again.
func (m *Manager) cached(s *models.Session, index int) bool {
	seg := &s.Segments[index]
	if !seg.Done() {
		return false
	}
	if fileExists(seg.LocalFilePath) {
		return true
	}
	m.logger.Warn("Segment clip missing on disk",
		zap.String("session_id", s.ID),
		zap.Int("segment_index", index),
		zap.String("path", seg.LocalFilePath),
	)
	seg.LocalFilePath = ""
	seg.DownloadedAt = nil
	return false
}

func canGenerate(s *models.Session) error {
	switch {
	case s.Status == models.StatusPrepared,
		s.Status == models.StatusGenerating,
		s.Status == models.StatusSegmentsComplete,
		failedIn(s, models.PhaseGenerate):
	default:
		return fmt.Errorf("%w: session %s is %s", models.ErrInvalidState, s.ID, s.Status)
	}
	if !s.AllReferencesReady() {
		return fmt.Errorf("%w: session %s is missing reference images", models.ErrInvalidState, s.ID)
	}
	return nil
}

func (m *Manager) begin(ctx context.Context, t *tracker) error {
	changed := false
	err := t.update(ctx, func(s *models.Session) {
		changed = s.Status != models.StatusGenerating
		m.transition(s, models.StatusGenerating)
		s.Failure = nil
	})
	if err == nil && changed {
		m.publish(ctx, t.sess, models.PhaseGenerate, nil)
	}
	return err
}

// generateOne runs one segment job and records its outcome.
func (m *Manager) generateOne(ctx context.Context, t *tracker, index int) error {
	var job segment.Job
	t.view(func(s *models.Session) {
		seg := s.Segments[index]
		job = segment.Job{
			SessionID:         s.ID,
			SessionDir:        m.deps.Store.Dir(s.ID),
			Index:             index,
			Spec:              s.Script.Segments[index],
			Presenter:         s.Presenter,
			ReferenceImageURL: seg.ReferenceImageURL,
			TaskID:            seg.TaskID,
			RemoteURL:         seg.RemoteURL,
			SubmittedAt:       seg.SubmittedAt,
		}
	})

	if job.TaskID == "" && job.RemoteURL == "" {
		if err := m.cool(ctx, t); err != nil {
			return &models.SegmentError{Index: index, Err: err}
		}
	}
	job.OnSubmitted = func(taskID string, at time.Time) error {
		return t.update(ctx, func(s *models.Session) {
			rec := &s.Segments[index]
			rec.TaskID = taskID
			rec.SubmittedAt = &at
			rec.RemoteURL = ""
			touch(s, at)
		})
	}

	res, genErr := m.deps.Segments.Generate(ctx, job)
	saveErr := t.update(ctx, func(s *models.Session) {
		rec := &s.Segments[index]
		rec.Attempts++
		if res != nil {
			rec.TaskID = res.TaskID
			rec.RemoteURL = res.RemoteURL
			rec.SubmittedAt = res.SubmittedAt
			rec.LocalFilePath = res.LocalFilePath
			rec.DownloadedAt = res.DownloadedAt
		}
		if genErr != nil {
			rec.LastError = genErr.Error()
			rec.LastErrorKind = models.KindOf(genErr)
		} else {
			rec.LastError = ""
			rec.LastErrorKind = ""
		}
		touch(s, m.deps.Clock.Now())
	})
	if genErr != nil {
		return genErr
	}
	return saveErr
}

// settle moves the session to the status its segments imply.
func (m *Manager) settle(ctx context.Context, t *tracker, genErr error) error {
	return t.update(ctx, func(s *models.Session) {
		switch {
		case s.AllSegmentsDownloaded():
			m.transition(s, models.StatusSegmentsComplete)
			s.Failure = nil
		case genErr != nil && !isContextErr(genErr):
			m.fail(s, models.PhaseGenerate, genErr)
		default:
			m.transition(s, models.StatusGenerating)
		}
	})
}

// Finalize assembles the base video. A finalized session is returned as is.
// When assembly fails the session is marked failed and its clips are kept, so
// Finalize can simply be called again.
func (m *Manager) Finalize(ctx context.Context, id string) (sess *models.Session, err error) {
	release, err := m.deps.Locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err = m.deps.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status == models.StatusFinalized && fileExists(sess.FinalVideoPath) {
		return sess, nil
	}
	if !(sess.Status == models.StatusSegmentsComplete || sess.Status == models.StatusFinalized || failedIn(sess, models.PhaseFinalize)) {
		return nil, fmt.Errorf("%w: session %s is %s", models.ErrInvalidState, id, sess.Status)
	}
	for i, seg := range sess.Segments {
		if !fileExists(seg.LocalFilePath) {
			return nil, fmt.Errorf("%w: clip of segment %d is missing", models.ErrInvalidState, i)
		}
	}

	start := m.deps.Clock.Now()
	defer func() { metrics.Phase(string(models.PhaseFinalize), m.deps.Clock.Now().Sub(start), err) }()
	log := m.logger.With(zap.String("session_id", id))

	res, asmErr := m.deps.Assembler.Assemble(ctx, assembly.Request{
		SessionDir:   m.deps.Store.Dir(id),
		SegmentPaths: sess.SegmentPaths(),
		OutroPath:    m.cfg.OutroPath,
		Flashes:      m.cfg.InsertFlashes,
	})
	if asmErr != nil && isContextErr(asmErr) {
		return nil, asmErr
	}

	t := m.track(sess)
	saveErr := t.update(ctx, func(s *models.Session) {
		if asmErr != nil {
			m.fail(s, models.PhaseFinalize, asmErr)
			return
		}
		rec := res.Record
		s.Assembly = &rec
		s.FinalVideoPath = res.Path
		s.Failure = nil
		m.transition(s, models.StatusFinalized)
	})
	m.publish(ctx, sess, models.PhaseFinalize, nil)
	if asmErr != nil {
		log.Error("Finalize failed, segments kept", zap.Error(asmErr))
		return sess, asmErr
	}
	log.Info("Session finalized", zap.String("final_video_path", res.Path))
	return sess, saveErr
}

// Enhance applies post passes to the base video of a finalized session. Pass
// failures are only reported; they never change the session status.
func (m *Manager) Enhance(ctx context.Context, id string, spec models.EnhancementSpec) (report *models.EnhancementReport, err error) {
	release, err := m.deps.Locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := m.deps.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.StatusFinalized {
		return nil, fmt.Errorf("%w: session %s is %s, not finalized", models.ErrInvalidState, id, sess.Status)
	}

	start := m.deps.Clock.Now()
	defer func() { metrics.Phase(string(models.PhaseEnhance), m.deps.Clock.Now().Sub(start), err) }()

	report, err = m.deps.Enhancer.Apply(ctx, enhance.Request{
		SessionDir: m.deps.Store.Dir(id),
		BasePath:   sess.FinalVideoPath,
		Assembly:   sess.Assembly,
		Script:     sess.Script,
		Spec:       spec,
	})
	if err != nil {
		return nil, err
	}

	t := m.track(sess)
	if err := t.update(ctx, func(s *models.Session) {
		s.Enhancements = append(s.Enhancements, models.EnhancementRecord{
			Path:      report.EnhancedVideoPath,
			Report:    *report,
			CreatedAt: m.deps.Clock.Now(),
		})
	}); err != nil {
		return report, err
	}
	m.publish(ctx, sess, models.PhaseEnhance, nil)
	m.logger.Info("Enhancements applied",
		zap.String("session_id", id),
		zap.String("enhanced_video_path", report.EnhancedVideoPath),
		zap.Bool("partial", report.Failed()),
	)
	return report, nil
}
