package mocks

import (
	"context"
	"os"
	"path/filepath"

	"github.com/stretchr/testify/mock"

	"presenter-studio/internal/media"
)

// MockRunner is a mock type for media.Runner
type MockRunner struct {
	mock.Mock
}

// Run provides a mock function with given fields: ctx, op
func (_m *MockRunner) Run(ctx context.Context, op media.Operation) error {
	ret := _m.Called(ctx, op)

	if rf, ok := ret.Get(0).(func(context.Context, media.Operation) error); ok {
		return rf(ctx, op)
	}
	return ret.Error(0)
}

// NewMockRunner creates a new instance of MockRunner. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockRunner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRunner {
	m := &MockRunner{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// TouchOutput is a Run return value that creates the operation's output file.
func TouchOutput(_ context.Context, op media.Operation) error {
	if err := os.MkdirAll(filepath.Dir(op.Output()), 0o755); err != nil {
		return err
	}
	return os.WriteFile(op.Output(), []byte(op.Name()), 0o644)
}

// OpNamed matches an operation by name.
func OpNamed(name string) interface{} {
	return mock.MatchedBy(func(op media.Operation) bool { return op.Name() == name })
}

// MockProber is a mock type for media.Prober
type MockProber struct {
	mock.Mock
}

// Probe provides a mock function with given fields: ctx, path
func (_m *MockProber) Probe(ctx context.Context, path string) (*media.Info, error) {
	ret := _m.Called(ctx, path)

	var r0 *media.Info
	if rf, ok := ret.Get(0).(func(context.Context, string) *media.Info); ok {
		r0 = rf(ctx, path)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*media.Info)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, path)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// NewMockProber creates a new instance of MockProber. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockProber(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProber {
	m := &MockProber{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var (
	_ media.Runner = (*MockRunner)(nil)
	_ media.Prober = (*MockProber)(nil)
)
