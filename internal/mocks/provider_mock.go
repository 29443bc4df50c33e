package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"presenter-studio/internal/imagestage"
	"presenter-studio/internal/provider"
	"presenter-studio/internal/segment"
)

// MockImageProvider is a mock type for imagestage.Provider
type MockImageProvider struct {
	mock.Mock
}

// SubmitImage provides a mock function with given fields: ctx, req
func (_m *MockImageProvider) SubmitImage(ctx context.Context, req provider.ImageRequest) (string, error) {
	ret := _m.Called(ctx, req)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, provider.ImageRequest) string); ok {
		r0 = rf(ctx, req)
	} else {
		r0 = ret.String(0)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, provider.ImageRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// ImageStatus provides a mock function with given fields: ctx, taskID
func (_m *MockImageProvider) ImageStatus(ctx context.Context, taskID string) (provider.TaskStatus, error) {
	ret := _m.Called(ctx, taskID)
	return taskStatusReturn(ret, ctx, taskID)
}

// Download provides a mock function with given fields: ctx, url, w
func (_m *MockImageProvider) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	return downloadReturn(_m.Called(ctx, url, w), ctx, url, w)
}

// NewMockImageProvider creates a new instance of MockImageProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockImageProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockImageProvider {
	m := &MockImageProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockVideoProvider is a mock type for segment.Provider
type MockVideoProvider struct {
	mock.Mock
}

// SubmitVideo provides a mock function with given fields: ctx, req
func (_m *MockVideoProvider) SubmitVideo(ctx context.Context, req provider.VideoRequest) (string, error) {
	ret := _m.Called(ctx, req)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, provider.VideoRequest) string); ok {
		r0 = rf(ctx, req)
	} else {
		r0 = ret.String(0)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, provider.VideoRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// VideoStatus provides a mock function with given fields: ctx, taskID
func (_m *MockVideoProvider) VideoStatus(ctx context.Context, taskID string) (provider.TaskStatus, error) {
	ret := _m.Called(ctx, taskID)
	return taskStatusReturn(ret, ctx, taskID)
}

// Download provides a mock function with given fields: ctx, url, w
func (_m *MockVideoProvider) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	return downloadReturn(_m.Called(ctx, url, w), ctx, url, w)
}

// NewMockVideoProvider creates a new instance of MockVideoProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockVideoProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockVideoProvider {
	m := &MockVideoProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func taskStatusReturn(ret mock.Arguments, ctx context.Context, taskID string) (provider.TaskStatus, error) {
	var r0 provider.TaskStatus
	if rf, ok := ret.Get(0).(func(context.Context, string) provider.TaskStatus); ok {
		r0 = rf(ctx, taskID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(provider.TaskStatus)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, taskID)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// WriteBody returns a Download implementation that writes body to the writer.
func WriteBody(body string) func(context.Context, string, io.Writer) (int64, error) {
	return func(_ context.Context, _ string, w io.Writer) (int64, error) {
		n, err := io.WriteString(w, body)
		return int64(n), err
	}
}

func downloadReturn(ret mock.Arguments, ctx context.Context, url string, w io.Writer) (int64, error) {
	if rf, ok := ret.Get(0).(func(context.Context, string, io.Writer) (int64, error)); ok {
		return rf(ctx, url, w)
	}

	var r0 int64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(int64)
	}
	return r0, ret.Error(1)
}

var (
	_ imagestage.Provider = (*MockImageProvider)(nil)
	_ segment.Provider    = (*MockVideoProvider)(nil)
	_ imagestage.Provider = (*provider.Client)(nil)
	_ segment.Provider    = (*provider.Client)(nil)
)
