package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"presenter-studio/internal/assembly"
	"presenter-studio/internal/enhance"
	"presenter-studio/internal/events"
	"presenter-studio/internal/imagestage"
	"presenter-studio/internal/media"
	"presenter-studio/internal/mocks"
	"presenter-studio/internal/models"
	"presenter-studio/internal/presenter"
	"presenter-studio/internal/provider"
	"presenter-studio/internal/retry"
	"presenter-studio/internal/script"
	"presenter-studio/internal/segment"
	"presenter-studio/internal/session"
)

const seed = 1337

var marco = models.PresenterProfile{
	Name:                 "Marco",
	FixedSeed:            seed,
	CharacterDescription: "man in his forties, grey beard, club scarf",
	ReferenceImages: []models.ReferenceImage{
		{URL: "https://cdn/marco/front.png", Role: "front"},
		{URL: "https://cdn/marco/side.png", Role: "profile"},
	},
}

var twoSegmentScript = models.Script{Segments: []models.SegmentSpec{
	{Role: models.RoleHook, Dialogue: "91 goals in one calendar year, and nobody has come close since.", TargetDurationSeconds: 7},
	{Role: models.RoleCTA, Dialogue: "Follow for the next record breaker.", TargetDurationSeconds: 7},
}}

type recorder struct {
	mu     sync.Mutex
	events []events.SessionEvent
}

func (r *recorder) Publish(_ context.Context, e events.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) statuses() []models.SessionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.SessionStatus, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Status)
	}
	return out
}

type harness struct {
	clock   *retry.FakeClock
	images  *mocks.MockImageProvider
	objects *mocks.MockObjectStorage
	videos  *mocks.MockVideoProvider
	runner  *mocks.MockRunner
	prober  *mocks.MockProber
	events  *recorder
	locker  *session.LocalLocker
	store   *session.FileStore
	outro   string
	manager *session.Manager
}

func newHarness(t *testing.T, cooling time.Duration) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		clock:   retry.NewFakeClock(time.Unix(1_700_000_000, 0)),
		images:  mocks.NewMockImageProvider(t),
		objects: mocks.NewMockObjectStorage(t),
		videos:  mocks.NewMockVideoProvider(t),
		runner:  mocks.NewMockRunner(t),
		prober:  mocks.NewMockProber(t),
		events:  &recorder{},
		locker:  session.NewLocalLocker(),
		outro:   filepath.Join(root, "outro.mp4"),
	}
	require.NoError(t, os.WriteFile(h.outro, []byte("outro"), 0o644))

	registry, err := presenter.New("2024-06", []models.PresenterProfile{marco})
	require.NoError(t, err)
	h.store, err = session.NewFileStore(filepath.Join(root, "sessions"))
	require.NoError(t, err)

	nop := zap.NewNop()
	stage := imagestage.New(h.images, h.objects, imagestage.Options{
		Poll:     retry.Policy{Interval: 5 * time.Second, Timeout: time.Minute},
		Throttle: retry.Policy{MaxAttempts: 2, Interval: time.Second},
		Clock:    h.clock,
	}, nop)
	generator := segment.New(h.videos, segment.Options{
		Poll:     retry.Policy{Interval: 5 * time.Second, Timeout: 10 * time.Second},
		Throttle: retry.Policy{MaxAttempts: 4, Interval: 30 * time.Second},
		Download: retry.Policy{MaxAttempts: 3, Interval: time.Second},
		Clock:    h.clock,
	}, nop)

	h.manager = session.NewManager(session.Config{
		Script:        script.Options{Locale: "en"},
		OutroPath:     h.outro,
		CoolingPeriod: cooling,
	}, session.Dependencies{
		Presenters: registry,
		References: stage,
		Segments:   generator,
		Assembler:  assembly.New(h.runner, h.prober, assembly.Options{}, nop),
		Enhancer:   enhance.New(h.runner, enhance.Options{Clock: h.clock}, nop),
		Store:      h.store,
		Locker:     h.locker,
		Publisher:  h.events,
		Clock:      h.clock,
	}, nop)
	return h
}

func withSeed(r provider.ImageRequest) bool { return r.Seed == seed }

func videoWithSeed(r provider.VideoRequest) bool {
	return r.Seed == seed && strings.HasPrefix(r.ReferenceImageURL, "https://storage/presenters/marco/")
}

func storageURL(_ context.Context, key string, _ []byte, _ string) string {
	return "https://storage/" + key
}

// expectReferences makes every image job succeed.
func (h *harness) expectReferences(n int) {
	h.images.On("SubmitImage", mock.Anything, mock.MatchedBy(withSeed)).Return("img", nil).Times(n)
	h.images.On("ImageStatus", mock.Anything, "img").
		Return(provider.TaskStatus{TaskID: "img", State: provider.StateSucceeded, ResultURL: "https://provider/img.png"}, nil).Times(n)
	h.images.On("Download", mock.Anything, "https://provider/img.png", mock.Anything).Return(mocks.WriteBody("png"), nil).Times(n)
	h.objects.On("Upload", mock.Anything, mock.Anything, []byte("png"), "image/png").Return(storageURL, nil).Times(n)
}

// expectSegment makes one video job succeed on its first poll.
func (h *harness) expectSegment(taskID string) {
	url := "https://provider/" + taskID + ".mp4"
	h.videos.On("SubmitVideo", mock.Anything, mock.MatchedBy(videoWithSeed)).Return(taskID, nil).Once()
	h.videos.On("VideoStatus", mock.Anything, taskID).
		Return(provider.TaskStatus{TaskID: taskID, State: provider.StateSucceeded, ResultURL: url}, nil).Once()
	h.videos.On("Download", mock.Anything, url, mock.Anything).Return(mocks.WriteBody("clip-"+taskID), nil).Once()
}

// expectAssembly makes the media tools report the given output duration.
func (h *harness) expectAssembly(segments int, clip, outro, output float64) {
	h.prober.On("Probe", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(filepath.Base(p), "segment-")
	})).Return(&media.Info{Duration: clip, HasVideo: true, HasAudio: true}, nil).Times(segments)
	h.prober.On("Probe", mock.Anything, h.outro).Return(&media.Info{Duration: outro, HasVideo: true}, nil).Once()
	h.prober.On("Probe", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "assembly-")
	})).Return(&media.Info{Duration: output, HasVideo: true, HasAudio: true}, nil).Once()
	h.runner.On("Run", mock.Anything, mocks.OpNamed("normalize")).Return(mocks.TouchOutput).Times(segments + 1)
	h.runner.On("Run", mock.Anything, mocks.OpNamed("concat")).Return(mocks.TouchOutput).Once()
}

func (h *harness) prepare(t *testing.T) *models.Session {
	t.Helper()
	h.expectReferences(2)
	sess, err := h.manager.Prepare(context.Background(), session.PrepareRequest{
		Presenter: "marco",
		Preset:    "2x7",
		Script:    twoSegmentScript,
	})
	require.NoError(t, err)
	return sess
}

func clipsOf(t *testing.T, dir string, index int) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "segment-"+string(rune('0'+index))+"-*"))
	require.NoError(t, err)
	return matches
}

func TestScenarioTwoSegmentsToFinalVideo(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	sess := h.prepare(t)
	assert.Equal(t, models.StatusPrepared, sess.Status)
	assert.Equal(t, "2024-06", sess.CatalogueVersion)
	assert.Contains(t, sess.Script.Segments[0].Dialogue, "ninety-one goals")
	for i, ref := range sess.References {
		assert.Equal(t, "https://storage/"+imagestage.ReferenceKey("Marco", sess.ID, i), ref.URL)
		assert.Equal(t, int64(seed), ref.Seed)
	}

	h.expectSegment("vid-a")
	h.expectSegment("vid-b")
	sess, err := h.manager.GenerateAll(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSegmentsComplete, sess.Status)
	for _, seg := range sess.Segments {
		assert.FileExists(t, seg.LocalFilePath)
		assert.Equal(t, 1, seg.Attempts)
	}

	h.expectAssembly(2, 7.0, 3.0, 17.04)
	sess, err = h.manager.Finalize(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinalized, sess.Status)
	assert.FileExists(t, sess.FinalVideoPath)
	require.NotNil(t, sess.Assembly)
	assert.InDelta(t, 14+sess.Assembly.OutroDuration, sess.Assembly.Duration, 0.25)

	stored, err := h.manager.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.FinalVideoPath, stored.FinalVideoPath)

	statuses := h.events.statuses()
	assert.Equal(t, models.StatusPrepared, statuses[0])
	assert.Contains(t, statuses, models.StatusSegmentsComplete)
	assert.Equal(t, models.StatusFinalized, statuses[len(statuses)-1])

	again, err := h.manager.Finalize(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.FinalVideoPath, again.FinalVideoPath)
}

func TestScenarioTimeoutsThenSuccessKeepOneClip(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sess := h.prepare(t)

	h.expectSegment("vid-a")
	_, err := h.manager.GenerateSegment(ctx, sess.ID, 0)
	require.NoError(t, err)

	running := provider.TaskStatus{TaskID: "vid-slow", State: provider.StateRunning}
	h.videos.On("SubmitVideo", mock.Anything, mock.MatchedBy(videoWithSeed)).Return("vid-slow", nil).Once()
	// Three polls fit in each ten second ceiling.
	h.videos.On("VideoStatus", mock.Anything, "vid-slow").Return(running, nil).Times(6)
	h.videos.On("VideoStatus", mock.Anything, "vid-slow").
		Return(provider.TaskStatus{TaskID: "vid-slow", State: provider.StateSucceeded, ResultURL: "https://provider/slow.mp4"}, nil).Once()
	h.videos.On("Download", mock.Anything, "https://provider/slow.mp4", mock.Anything).Return(mocks.WriteBody("clip"), nil).Once()

	for attempt := 1; attempt <= 2; attempt++ {
		rec, err := h.manager.GenerateSegment(ctx, sess.ID, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrTimeout)
		assert.Equal(t, "vid-slow", rec.TaskID)
		assert.Equal(t, attempt, rec.Attempts)

		stored, err := h.manager.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, stored.Status)
		require.NotNil(t, stored.Failure)
		assert.Equal(t, models.PhaseGenerate, stored.Failure.Phase)
		assert.True(t, stored.Failure.Retryable)
		require.NotNil(t, stored.Failure.SegmentIndex)
		assert.Equal(t, 1, *stored.Failure.SegmentIndex)
	}

	rec, err := h.manager.GenerateSegment(ctx, sess.ID, 1)
	require.NoError(t, err)
	assert.FileExists(t, rec.LocalFilePath)

	stored, err := h.manager.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSegmentsComplete, stored.Status)
	assert.Nil(t, stored.Failure)
	assert.Len(t, clipsOf(t, h.store.Dir(sess.ID), 1), 1, "exactly one clip for the segment")
	h.videos.AssertNumberOfCalls(t, "SubmitVideo", 2)
}

func TestGenerateSegmentCachedClipMakesNoProviderCalls(t *testing.T) {
	h := newHarness(t, 45*time.Second)
	ctx := context.Background()
	sess := h.prepare(t)

	h.expectSegment("vid-a")
	first, err := h.manager.GenerateSegment(ctx, sess.ID, 0)
	require.NoError(t, err)
	sleeps := h.clock.Sleeps()

	for i := 0; i < 3; i++ {
		rec, err := h.manager.GenerateSegment(ctx, sess.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, first.LocalFilePath, rec.LocalFilePath)
	}
	h.videos.AssertNumberOfCalls(t, "SubmitVideo", 1)
	h.videos.AssertNumberOfCalls(t, "VideoStatus", 1)
	h.videos.AssertNumberOfCalls(t, "Download", 1)
	assert.Equal(t, sleeps, h.clock.Sleeps(), "cached calls never wait")
}

func TestGenerateSegmentCachedLastClipSettlesSession(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sess := h.prepare(t)

	h.expectSegment("vid-a")
	h.expectSegment("vid-b")
	_, err := h.manager.GenerateAll(ctx, sess.ID)
	require.NoError(t, err)

	interrupted := []func(s *models.Session){
		func(s *models.Session) { s.Status = models.StatusGenerating },
		func(s *models.Session) {
			s.Status = models.StatusFailed
			s.Failure = &models.Failure{Phase: models.PhaseGenerate, Kind: models.KindTimeout, Retryable: true}
		},
	}
	for _, reset := range interrupted {
		stored, err := h.store.Load(ctx, sess.ID)
		require.NoError(t, err)
		reset(stored)
		require.NoError(t, h.store.Save(ctx, stored))

		_, err = h.manager.GenerateSegment(ctx, sess.ID, 1)
		require.NoError(t, err)

		got, err := h.manager.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSegmentsComplete, got.Status)
		assert.Nil(t, got.Failure)
	}
	h.videos.AssertNumberOfCalls(t, "SubmitVideo", 2)

	h.expectAssembly(2, 7, 3, 17)
	final, err := h.manager.Finalize(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinalized, final.Status)
}

func TestGenerateAllWaitsOutCoolingPeriod(t *testing.T) {
	h := newHarness(t, 45*time.Second)
	sess := h.prepare(t)

	h.expectSegment("vid-a")
	h.expectSegment("vid-b")
	_, err := h.manager.GenerateAll(context.Background(), sess.ID)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{45 * time.Second, 45 * time.Second}, h.clock.Sleeps())
	stored, err := h.manager.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastProviderActivityAt)
	assert.True(t, stored.LastProviderActivityAt.Equal(time.Unix(1_700_000_090, 0)))
}

func TestEverySubmissionCarriesFixedSeed(t *testing.T) {
	h := newHarness(t, 0)
	sess := h.prepare(t)
	h.expectSegment("vid-a")
	h.expectSegment("vid-b")
	_, err := h.manager.GenerateAll(context.Background(), sess.ID)
	require.NoError(t, err)

	for _, call := range h.images.Calls {
		if call.Method == "SubmitImage" {
			assert.Equal(t, int64(seed), call.Arguments.Get(1).(provider.ImageRequest).Seed)
		}
	}
	for _, call := range h.videos.Calls {
		if call.Method == "SubmitVideo" {
			assert.Equal(t, int64(seed), call.Arguments.Get(1).(provider.VideoRequest).Seed)
		}
	}
}

func TestFinalizeFailureKeepsSegments(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sess := h.prepare(t)
	h.expectSegment("vid-a")
	h.expectSegment("vid-b")
	sess, err := h.manager.GenerateAll(ctx, sess.ID)
	require.NoError(t, err)

	h.prober.On("Probe", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(filepath.Base(p), "segment-")
	})).Return(&media.Info{Duration: 7, HasVideo: true, HasAudio: true}, nil).Times(2)
	h.prober.On("Probe", mock.Anything, h.outro).Return(&media.Info{Duration: 3, HasVideo: true}, nil).Once()
	h.runner.On("Run", mock.Anything, mocks.OpNamed("normalize")).Return(mocks.TouchOutput).Times(3)
	h.runner.On("Run", mock.Anything, mocks.OpNamed("concat")).Return(errors.New("exit status 1")).Once()

	_, err = h.manager.Finalize(ctx, sess.ID)
	require.ErrorIs(t, err, models.ErrAssembly)

	stored, err := h.manager.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Equal(t, models.PhaseFinalize, stored.Failure.Phase)
	assert.True(t, stored.Failure.Retryable)
	assert.Empty(t, stored.FinalVideoPath)
	for _, seg := range stored.Segments {
		assert.FileExists(t, seg.LocalFilePath)
	}

	_, err = h.manager.GenerateSegment(ctx, sess.ID, 0)
	require.NoError(t, err, "cached clips stay readable after a failed finalize")

	h.expectAssembly(2, 7, 3, 17)
	sess, err = h.manager.Finalize(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinalized, sess.Status)
	assert.Nil(t, sess.Failure)
}

func TestPhasesEnforceOrder(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sess := h.prepare(t)

	_, err := h.manager.Finalize(ctx, sess.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = h.manager.Enhance(ctx, sess.ID, models.EnhancementSpec{BlackFlashes: true})
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = h.manager.GenerateSegment(ctx, sess.ID, 2)
	assert.ErrorIs(t, err, models.ErrIndexOutOfRange)

	_, err = h.manager.GenerateSegment(ctx, "missing", 0)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestConcurrentPhaseCallIsRejected(t *testing.T) {
	h := newHarness(t, 0)
	sess := h.prepare(t)

	release, err := h.locker.Acquire(context.Background(), sess.ID)
	require.NoError(t, err)
	defer release()

	_, err = h.manager.GenerateSegment(context.Background(), sess.ID, 0)
	assert.ErrorIs(t, err, models.ErrSessionBusy)
	assert.Equal(t, models.KindState, models.KindOf(err))
}

func TestPrepareRejectsInvalidInput(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	_, err := h.manager.Prepare(ctx, session.PrepareRequest{Presenter: "nobody", Preset: "2x7", Script: twoSegmentScript})
	assert.ErrorIs(t, err, models.ErrPresenterNotFound)

	_, err = h.manager.Prepare(ctx, session.PrepareRequest{Presenter: "Marco", Preset: "9x9", Script: twoSegmentScript})
	assert.ErrorIs(t, err, models.ErrValidation)

	long := twoSegmentScript
	long.Segments = append([]models.SegmentSpec(nil), twoSegmentScript.Segments...)
	long.Segments[1].Dialogue = strings.Repeat("word ", 20)
	_, err = h.manager.Prepare(ctx, session.PrepareRequest{Presenter: "Marco", Preset: "2x7", Script: long})
	var vErr *script.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, script.ReasonWordBudget, vErr.Reason)
	assert.Equal(t, 1, vErr.SegmentIndex)

	list, err := h.manager.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "rejected requests create no session")
}

func TestRetryReferenceRecoversFailedPrepare(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	isWide := func(r provider.ImageRequest) bool { return withSeed(r) && strings.Contains(r.Prompt, "wide") }
	isMedium := func(r provider.ImageRequest) bool { return withSeed(r) && strings.Contains(r.Prompt, "medium") }
	h.images.On("SubmitImage", mock.Anything, mock.MatchedBy(isWide)).Return("img-wide", nil).Once()
	h.images.On("SubmitImage", mock.Anything, mock.MatchedBy(isMedium)).Return("img-medium", nil).Once()
	h.images.On("ImageStatus", mock.Anything, "img-wide").
		Return(provider.TaskStatus{State: provider.StateSucceeded, ResultURL: "https://provider/wide.png"}, nil).Once()
	h.images.On("ImageStatus", mock.Anything, "img-medium").
		Return(provider.TaskStatus{State: provider.StateFailed, ErrorCode: "content_policy", Error: "blocked"}, nil).Once()
	h.images.On("Download", mock.Anything, "https://provider/wide.png", mock.Anything).Return(mocks.WriteBody("png"), nil).Once()
	h.objects.On("Upload", mock.Anything, mock.Anything, []byte("png"), "image/png").Return(storageURL, nil).Once()

	sess, err := h.manager.Prepare(ctx, session.PrepareRequest{Presenter: "Marco", Preset: "2x7", Script: twoSegmentScript})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRejected)
	require.NotNil(t, sess)
	assert.Equal(t, models.StatusFailed, sess.Status)
	assert.True(t, sess.References[0].Ready())
	assert.False(t, sess.References[1].Ready())
	assert.NotEmpty(t, sess.References[1].LastError)

	_, err = h.manager.GenerateSegment(ctx, sess.ID, 0)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	h.images.On("SubmitImage", mock.Anything, mock.MatchedBy(isMedium)).Return("img-medium-2", nil).Once()
	h.images.On("ImageStatus", mock.Anything, "img-medium-2").
		Return(provider.TaskStatus{State: provider.StateSucceeded, ResultURL: "https://provider/medium.png"}, nil).Once()
	h.images.On("Download", mock.Anything, "https://provider/medium.png", mock.Anything).Return(mocks.WriteBody("png"), nil).Once()
	h.objects.On("Upload", mock.Anything, mock.Anything, []byte("png"), "image/png").Return(storageURL, nil).Once()

	sess, err = h.manager.RetryReference(ctx, sess.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPrepared, sess.Status)
	assert.Nil(t, sess.Failure)
	assert.Equal(t, sess.References[1].URL, sess.Segments[1].ReferenceImageURL)

	again, err := h.manager.RetryReference(ctx, sess.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, sess.References[1].URL, again.References[1].URL)
	h.images.AssertNumberOfCalls(t, "SubmitImage", 3)
}

func TestEnhanceRecordsPartialSuccess(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sess := h.prepare(t)
	h.expectSegment("vid-a")
	h.expectSegment("vid-b")
	_, err := h.manager.GenerateAll(ctx, sess.ID)
	require.NoError(t, err)
	h.expectAssembly(2, 7, 3, 17)
	_, err = h.manager.Finalize(ctx, sess.ID)
	require.NoError(t, err)

	h.runner.On("Run", mock.Anything, mocks.OpNamed("black_flash")).Return(mocks.TouchOutput).Once()
	h.runner.On("Run", mock.Anything, mocks.OpNamed("text_card")).Return(mocks.TouchOutput).Once()

	report, err := h.manager.Enhance(ctx, sess.ID, models.EnhancementSpec{
		BlackFlashes: true,
		PlayerCard:   &models.CardSpec{Title: "Record year", Lines: []string{"91 goals"}, StartSeconds: 1, DurationSeconds: 4},
		ViralSubtitles: &models.SubtitleSpec{Cues: []models.Cue{
			{Start: 2, End: 1, Text: "backwards"},
		}},
	})
	require.NoError(t, err)
	assert.True(t, report.Failed())
	subs, _ := report.Stage(models.EnhancementViralSubtitles)
	assert.NotEmpty(t, subs.Error)

	stored, err := h.manager.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinalized, stored.Status, "enhancement failures never fail the session")
	require.Len(t, stored.Enhancements, 1)
	assert.FileExists(t, stored.Enhancements[0].Path)
	assert.FileExists(t, stored.FinalVideoPath)
}
