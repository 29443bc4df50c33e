// Package session drives a video through its phases: prepare, generate,
// finalize and enhance.
//
// The session record on disk is the only state. Every phase reloads it, holds
// the session lease while it works and writes progress back as soon as there
// is something worth keeping, so any phase can be called again after a crash
// or a failure and picks up where the last call stopped.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"presenter-studio/internal/assembly"
	"presenter-studio/internal/enhance"
	"presenter-studio/internal/events"
	"presenter-studio/internal/imagestage"
	"presenter-studio/internal/metrics"
	"presenter-studio/internal/models"
	"presenter-studio/internal/retry"
	"presenter-studio/internal/script"
	"presenter-studio/internal/segment"
)

// Presenters resolves presenter profiles.
type Presenters interface {
	Get(name string) (models.PresenterProfile, error)
	Version() string
}

// ReferenceGenerator produces presenter reference frames.
type ReferenceGenerator interface {
	GenerateReferenceSet(ctx context.Context, profile models.PresenterProfile, sessionID string, count int, style string) ([]imagestage.Result, error)
	GenerateReference(ctx context.Context, req imagestage.Request) imagestage.Result
}

// SegmentGenerator produces one clip.
type SegmentGenerator interface {
	Generate(ctx context.Context, job segment.Job) (*segment.Result, error)
}

// Assembler builds the base video.
type Assembler interface {
	Assemble(ctx context.Context, req assembly.Request) (*assembly.Result, error)
}

// Enhancer applies post passes to the base video.
type Enhancer interface {
	Apply(ctx context.Context, req enhance.Request) (*models.EnhancementReport, error)
}

// Config holds the pipeline settings a Manager applies to every session.
type Config struct {
	Script             script.Options
	DefaultStyle       string
	OutroPath          string
	InsertFlashes      bool
	CoolingPeriod      time.Duration
	SegmentConcurrency int
}

// Dependencies are the collaborators of a Manager. Publisher and Clock are
// optional.
type Dependencies struct {
	Presenters Presenters
	References ReferenceGenerator
	Segments   SegmentGenerator
	Assembler  Assembler
	Enhancer   Enhancer
	Store      Store
	Locker     Locker
	Publisher  events.Publisher
	Clock      retry.Clock
}

// PrepareRequest starts a session.
type PrepareRequest struct {
	Presenter        string        `json:"presenter" binding:"required"`
	Preset           string        `json:"preset" binding:"required"`
	Script           models.Script `json:"script"`
	ProgressionStyle string        `json:"progression_style,omitempty"`
}

// Manager runs session phases.
type Manager struct {
	cfg    Config
	deps   Dependencies
	gate   CoolingGate
	logger *zap.Logger
}

func NewManager(cfg Config, deps Dependencies, logger *zap.Logger) *Manager {
	if deps.Clock == nil {
		deps.Clock = retry.RealClock()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if cfg.DefaultStyle == "" {
		cfg.DefaultStyle = imagestage.StyleCinematic
	}
	if cfg.SegmentConcurrency < 1 {
		cfg.SegmentConcurrency = 1
	}
	return &Manager{
		cfg:    cfg,
		deps:   deps,
		gate:   CoolingGate{Period: cfg.CoolingPeriod, Clock: deps.Clock},
		logger: logger.Named("session"),
	}
}

// Get loads a session.
func (m *Manager) Get(ctx context.Context, id string) (*models.Session, error) {
	return m.deps.Store.Load(ctx, id)
}

// List loads all sessions, newest first.
func (m *Manager) List(ctx context.Context) ([]*models.Session, error) {
	return m.deps.Store.List(ctx)
}

// Prepare validates the script, creates the session and generates one
// reference frame per segment. The session is returned even when reference
// generation fails, so the caller can retry single frames.
func (m *Manager) Prepare(ctx context.Context, req PrepareRequest) (sess *models.Session, err error) {
	start := m.deps.Clock.Now()
	defer func() { metrics.Phase(string(models.PhasePrepare), m.deps.Clock.Now().Sub(start), err) }()

	profile, err := m.deps.Presenters.Get(req.Presenter)
	if err != nil {
		return nil, err
	}
	preset, ok := models.PresetByName(req.Preset)
	if !ok {
		return nil, &script.ValidationError{
			Reason:       script.ReasonInvalidPreset,
			SegmentIndex: -1,
			Message:      fmt.Sprintf("unknown preset %q", req.Preset),
		}
	}
	style := req.ProgressionStyle
	if style == "" {
		style = m.cfg.DefaultStyle
	}
	if !imagestage.ValidStyle(style) {
		return nil, fmt.Errorf("%w: unknown progression style %q", models.ErrValidation, style)
	}
	validated, err := script.Validate(req.Script, preset, m.cfg.Script)
	if err != nil {
		return nil, err
	}

	now := m.deps.Clock.Now()
	sess = &models.Session{
		ID:               uuid.NewString(),
		Presenter:        profile,
		CatalogueVersion: m.deps.Presenters.Version(),
		Preset:           preset,
		Script:           validated.Script,
		ProgressionStyle: style,
		Status:           models.StatusPrepared,
		References:       make([]models.ReferenceRecord, preset.SegmentCount),
		Segments:         make([]models.SegmentRecord, preset.SegmentCount),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for i, spec := range validated.Script.Segments {
		sess.References[i] = models.ReferenceRecord{
			Index:   i,
			Framing: string(imagestage.FramingFor(style, i)),
			Seed:    profile.FixedSeed,
		}
		sess.Segments[i] = models.SegmentRecord{Index: i, Role: spec.Role}
	}

	release, err := m.deps.Locker.Acquire(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := m.deps.Store.Create(ctx, sess); err != nil {
		return nil, err
	}
	log := m.logger.With(zap.String("session_id", sess.ID), zap.String("presenter", profile.Name))
	log.Info("Session created", zap.String("preset", preset.Name), zap.String("style", style))

	t := m.track(sess)
	results, refErr := m.deps.References.GenerateReferenceSet(ctx, profile, sess.ID, preset.SegmentCount, style)
	saveErr := t.update(ctx, func(s *models.Session) {
		for _, r := range results {
			if r.Index >= 0 && r.Index < len(s.References) {
				applyReference(s, r, m.deps.Clock.Now())
			}
		}
		touch(s, m.deps.Clock.Now())
		if refErr != nil && !isContextErr(refErr) {
			m.fail(s, models.PhasePrepare, refErr)
		}
	})
	if refErr != nil {
		log.Error("Reference generation failed", zap.Error(refErr))
		m.publish(ctx, sess, models.PhasePrepare, nil)
		return sess, refErr
	}
	if saveErr != nil {
		return sess, saveErr
	}
	m.publish(ctx, sess, models.PhasePrepare, nil)
	log.Info("Session prepared")
	return sess, nil
}

// RetryReference regenerates one missing reference frame. Once every frame
// exists the session is prepared again.
func (m *Manager) RetryReference(ctx context.Context, id string, index int) (sess *models.Session, err error) {
	release, err := m.deps.Locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err = m.deps.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(sess.References) {
		return nil, fmt.Errorf("%w: reference %d of %d", models.ErrIndexOutOfRange, index, len(sess.References))
	}
	if sess.References[index].Ready() {
		return sess, nil
	}
	if !(sess.Status == models.StatusPrepared || failedIn(sess, models.PhasePrepare)) {
		return nil, fmt.Errorf("%w: session %s is %s", models.ErrInvalidState, id, sess.Status)
	}

	start := m.deps.Clock.Now()
	defer func() { metrics.Phase(string(models.PhasePrepare), m.deps.Clock.Now().Sub(start), err) }()

	t := m.track(sess)
	if err := m.cool(ctx, t); err != nil {
		return nil, err
	}
	r := m.deps.References.GenerateReference(ctx, imagestage.Request{
		Profile:   sess.Presenter,
		SessionID: sess.ID,
		Index:     index,
		Style:     sess.ProgressionStyle,
	})
	if r.Err != nil && isContextErr(r.Err) {
		return nil, r.Err
	}
	saveErr := t.update(ctx, func(s *models.Session) {
		applyReference(s, r, m.deps.Clock.Now())
		touch(s, m.deps.Clock.Now())
		switch {
		case r.Err != nil:
			m.fail(s, models.PhasePrepare, r.Err)
		case s.AllReferencesReady():
			m.transition(s, models.StatusPrepared)
			s.Failure = nil
		}
	})
	m.publish(ctx, sess, models.PhasePrepare, &index)
	if r.Err != nil {
		return sess, r.Err
	}
	return sess, saveErr
}

func applyReference(s *models.Session, r imagestage.Result, at time.Time) {
	ref := &s.References[r.Index]
	ref.Framing = string(r.Framing)
	ref.Seed = r.Seed
	ref.TaskID = r.TaskID
	if r.Err != nil {
		ref.LastError = r.Err.Error()
		return
	}
	ref.URL = r.URL
	ref.LastError = ""
	ref.CompletedAt = &at
	if r.Index < len(s.Segments) {
		s.Segments[r.Index].ReferenceImageURL = r.URL
	}
}

// tracker serializes updates of one loaded session. Segment workers running
// in parallel share it.
type tracker struct {
	mu    sync.Mutex
	sess  *models.Session
	store Store
	clock retry.Clock
}

func (m *Manager) track(sess *models.Session) *tracker {
	return &tracker{sess: sess, store: m.deps.Store, clock: m.deps.Clock}
}

// update applies fn and saves the record. Saving ignores cancellation so
// progress made before a cancel is kept.
func (t *tracker) update(ctx context.Context, fn func(s *models.Session)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.sess)
	t.sess.UpdatedAt = t.clock.Now()
	return t.store.Save(context.WithoutCancel(ctx), t.sess)
}

func (t *tracker) view(fn func(s *models.Session)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.sess)
}

// cool waits out the cooling period before a provider submission. The slot is
// reserved before sleeping so parallel workers queue up one period apart.
func (m *Manager) cool(ctx context.Context, t *tracker) error {
	var wait time.Duration
	t.view(func(s *models.Session) {
		wait = m.gate.Remaining(s.LastProviderActivityAt)
		slot := m.deps.Clock.Now().Add(wait)
		s.LastProviderActivityAt = &slot
	})
	if wait <= 0 {
		return ctx.Err()
	}
	m.logger.Info("Cooling down before provider submission",
		zap.String("session_id", t.sess.ID),
		zap.Duration("wait", wait),
	)
	metrics.CoolingWait(wait)
	return m.deps.Clock.Sleep(ctx, wait)
}

// touch records provider activity, keeping the latest time.
func touch(s *models.Session, at time.Time) {
	if s.LastProviderActivityAt == nil || at.After(*s.LastProviderActivityAt) {
		s.LastProviderActivityAt = &at
	}
}

func (m *Manager) transition(s *models.Session, status models.SessionStatus) {
	if s.Status != status {
		s.Status = status
		metrics.SessionTransition(string(status))
	}
}

func (m *Manager) fail(s *models.Session, phase models.Phase, err error) {
	f := &models.Failure{
		Phase:     phase,
		Kind:      models.KindOf(err),
		Message:   err.Error(),
		Retryable: models.IsRetryable(err),
		At:        m.deps.Clock.Now(),
	}
	var segErr *models.SegmentError
	if errors.As(err, &segErr) {
		idx := segErr.Index
		f.SegmentIndex = &idx
	}
	s.Failure = f
	m.transition(s, models.StatusFailed)
}

func failedIn(s *models.Session, phase models.Phase) bool {
	return s.Status == models.StatusFailed && s.Failure != nil && s.Failure.Phase == phase
}

func (m *Manager) publish(ctx context.Context, s *models.Session, phase models.Phase, index *int) {
	event := events.SessionEvent{
		EventID:        uuid.NewString(),
		SessionID:      s.ID,
		Presenter:      s.Presenter.Name,
		Phase:          string(phase),
		Status:         s.Status,
		SegmentIndex:   index,
		FinalVideoPath: s.FinalVideoPath,
		Failure:        s.Failure,
		At:             m.deps.Clock.Now(),
	}
	if phase == models.PhaseEnhance && len(s.Enhancements) > 0 {
		event.EnhancedVideoPath = s.Enhancements[len(s.Enhancements)-1].Path
	}
	if err := m.deps.Publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		m.logger.Warn("Failed to publish session event", zap.String("session_id", s.ID), zap.Error(err))
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
