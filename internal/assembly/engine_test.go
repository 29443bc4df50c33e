package assembly_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"presenter-studio/internal/assembly"
	"presenter-studio/internal/media"
	"presenter-studio/internal/mocks"
	"presenter-studio/internal/models"
)

type fixture struct {
	dir      string
	segments []string
	outro    string
	runner   *mocks.MockRunner
	prober   *mocks.MockProber
	engine   *assembly.Engine
}

func newFixture(t *testing.T, durations []float64, outro float64) *fixture {
	t.Helper()
	f := &fixture{
		dir:    t.TempDir(),
		runner: mocks.NewMockRunner(t),
		prober: mocks.NewMockProber(t),
	}
	for i, d := range durations {
		p := filepath.Join(f.dir, fmt.Sprintf("segment-%d-hook-1.mp4", i))
		require.NoError(t, os.WriteFile(p, []byte("clip"), 0o644))
		f.segments = append(f.segments, p)
		// Odd clips come without an audio track.
		f.prober.On("Probe", mock.Anything, p).Return(&media.Info{Duration: d, HasVideo: true, HasAudio: i%2 == 0}, nil).Once()
	}
	f.outro = filepath.Join(f.dir, "outro.mp4")
	require.NoError(t, os.WriteFile(f.outro, []byte("outro"), 0o644))
	f.prober.On("Probe", mock.Anything, f.outro).Return(&media.Info{Duration: outro, HasVideo: true, HasAudio: true}, nil).Once()

	f.engine = assembly.New(f.runner, f.prober, assembly.Options{
		FlashDuration: 40 * time.Millisecond,
		Tolerance:     250 * time.Millisecond,
	}, zap.NewNop())
	return f
}

func (f *fixture) expectOutput(duration float64) {
	f.prober.On("Probe", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "assembly-")
	})).Return(&media.Info{Duration: duration, HasVideo: true, HasAudio: true}, nil).Once()
}

func workDirs(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "assembly-*"))
	require.NoError(t, err)
	return matches
}

func TestAssembleDurationMatchesInputs(t *testing.T) {
	cases := [][]float64{
		{7.02, 6.97},
		{8, 8.05, 7.96},
		{8, 8, 8, 8.1},
	}
	for _, durations := range cases {
		t.Run(fmt.Sprintf("%d segments", len(durations)), func(t *testing.T) {
			f := newFixture(t, durations, 3)
			expected := 3.0
			for _, d := range durations {
				expected += d
			}

			var normalized []media.Normalize
			f.runner.On("Run", mock.Anything, mocks.OpNamed("normalize")).Return(mocks.TouchOutput).
				Run(func(args mock.Arguments) { normalized = append(normalized, args.Get(1).(media.Normalize)) }).
				Times(len(durations) + 1)
			f.runner.On("Run", mock.Anything, mocks.OpNamed("concat")).Return(mocks.TouchOutput).Once()
			f.expectOutput(expected + 0.1)

			res, err := f.engine.Assemble(context.Background(), assembly.Request{
				SessionDir:   f.dir,
				SegmentPaths: f.segments,
				OutroPath:    f.outro,
			})
			require.NoError(t, err)

			assert.Equal(t, filepath.Join(f.dir, assembly.FinalName), res.Path)
			assert.FileExists(t, res.Path)
			assert.InDelta(t, expected+0.1, res.Record.Duration, 1e-9)
			assert.Equal(t, durations, res.Record.SegmentDurations)
			assert.Equal(t, 3.0, res.Record.OutroDuration)
			assert.Len(t, res.Record.Boundaries, len(durations))
			assert.False(t, res.Record.FlashesApplied)
			assert.Empty(t, workDirs(t, f.dir), "work directory removed on success")

			require.Len(t, normalized, len(durations)+1)
			for i, op := range normalized[:len(durations)] {
				assert.Equal(t, f.segments[i], op.Input, "concat order follows segment order")
				assert.Equal(t, i%2 == 0, op.HasAudio)
			}
			assert.Equal(t, f.outro, normalized[len(durations)].Input, "outro is last")
		})
	}
}

func TestAssembleInsertsFlashesAtBoundaries(t *testing.T) {
	f := newFixture(t, []float64{7, 7}, 2.5)
	f.runner.On("Run", mock.Anything, mocks.OpNamed("normalize")).Return(mocks.TouchOutput).Times(3)
	f.runner.On("Run", mock.Anything, mocks.OpNamed("concat")).Return(mocks.TouchOutput).Once()
	f.runner.On("Run", mock.Anything, mock.MatchedBy(func(op media.Operation) bool {
		flash, ok := op.(media.BlackFlash)
		return ok && assert.ObjectsAreEqual([]float64{7, 14}, flash.At) && flash.Duration == 0.04
	})).Return(mocks.TouchOutput).Once()
	f.expectOutput(16.5)

	res, err := f.engine.Assemble(context.Background(), assembly.Request{
		SessionDir:   f.dir,
		SegmentPaths: f.segments,
		OutroPath:    f.outro,
		Flashes:      true,
	})
	require.NoError(t, err)
	assert.True(t, res.Record.FlashesApplied)
	assert.Equal(t, []float64{7, 14}, res.Record.Boundaries)
}

func TestAssembleRejectsDurationDrift(t *testing.T) {
	f := newFixture(t, []float64{7, 7}, 3)
	f.runner.On("Run", mock.Anything, mocks.OpNamed("normalize")).Return(mocks.TouchOutput).Times(3)
	f.runner.On("Run", mock.Anything, mocks.OpNamed("concat")).Return(mocks.TouchOutput).Once()
	f.expectOutput(14)

	_, err := f.engine.Assemble(context.Background(), assembly.Request{
		SessionDir: f.dir, SegmentPaths: f.segments, OutroPath: f.outro,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAssembly)
	assert.NoFileExists(t, filepath.Join(f.dir, assembly.FinalName))

	dirs := workDirs(t, f.dir)
	require.Len(t, dirs, 1, "work directory kept for diagnosis")
	assert.FileExists(t, filepath.Join(dirs[0], "concat.txt"))
	for _, seg := range f.segments {
		assert.FileExists(t, seg)
	}
}

func TestAssembleRunnerFailure(t *testing.T) {
	f := newFixture(t, []float64{8, 8, 8}, 3)
	f.runner.On("Run", mock.Anything, mocks.OpNamed("normalize")).Return(mocks.TouchOutput).Times(4)
	f.runner.On("Run", mock.Anything, mocks.OpNamed("concat")).
		Return(&media.ExecError{Op: "concat", Err: errors.New("exit status 1"), Stderr: "Non-monotonous DTS"}).Once()

	_, err := f.engine.Assemble(context.Background(), assembly.Request{
		SessionDir: f.dir, SegmentPaths: f.segments, OutroPath: f.outro,
	})
	assert.ErrorIs(t, err, models.ErrAssembly)
	assert.Contains(t, err.Error(), "Non-monotonous DTS")
	assert.Len(t, workDirs(t, f.dir), 1)
}

func TestAssembleMissingInput(t *testing.T) {
	e := assembly.New(mocks.NewMockRunner(t), mocks.NewMockProber(t), assembly.Options{}, zap.NewNop())
	dir := t.TempDir()
	_, err := e.Assemble(context.Background(), assembly.Request{
		SessionDir:   dir,
		SegmentPaths: []string{filepath.Join(dir, "gone.mp4")},
	})
	assert.ErrorIs(t, err, models.ErrAssembly)
	assert.Empty(t, workDirs(t, dir))
}

func TestBoundaries(t *testing.T) {
	assert.Equal(t, []float64{8, 16}, assembly.Boundaries([]float64{8, 8, 8}, false))
	assert.Equal(t, []float64{8, 16, 24}, assembly.Boundaries([]float64{8, 8, 8}, true))
	assert.Nil(t, assembly.Boundaries([]float64{8}, false))
}
