package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"presenter-studio/internal/models"
	"presenter-studio/internal/session"
)

// MockSessionService is a mock type for the session phases served over HTTP.
type MockSessionService struct {
	mock.Mock
}

func sessionResult(ret mock.Arguments) (*models.Session, error) {
	var s *models.Session
	if v := ret.Get(0); v != nil {
		s = v.(*models.Session)
	}
	return s, ret.Error(1)
}

// Prepare provides a mock function with given fields: ctx, req
func (_m *MockSessionService) Prepare(ctx context.Context, req session.PrepareRequest) (*models.Session, error) {
	return sessionResult(_m.Called(ctx, req))
}

// RetryReference provides a mock function with given fields: ctx, id, index
func (_m *MockSessionService) RetryReference(ctx context.Context, id string, index int) (*models.Session, error) {
	return sessionResult(_m.Called(ctx, id, index))
}

// GenerateSegment provides a mock function with given fields: ctx, id, index
func (_m *MockSessionService) GenerateSegment(ctx context.Context, id string, index int) (*models.SegmentRecord, error) {
	ret := _m.Called(ctx, id, index)

	var r0 *models.SegmentRecord
	if v := ret.Get(0); v != nil {
		r0 = v.(*models.SegmentRecord)
	}
	return r0, ret.Error(1)
}

// GenerateAll provides a mock function with given fields: ctx, id
func (_m *MockSessionService) GenerateAll(ctx context.Context, id string) (*models.Session, error) {
	return sessionResult(_m.Called(ctx, id))
}

// Finalize provides a mock function with given fields: ctx, id
func (_m *MockSessionService) Finalize(ctx context.Context, id string) (*models.Session, error) {
	return sessionResult(_m.Called(ctx, id))
}

// Enhance provides a mock function with given fields: ctx, id, spec
func (_m *MockSessionService) Enhance(ctx context.Context, id string, spec models.EnhancementSpec) (*models.EnhancementReport, error) {
	ret := _m.Called(ctx, id, spec)

	var r0 *models.EnhancementReport
	if v := ret.Get(0); v != nil {
		r0 = v.(*models.EnhancementReport)
	}
	return r0, ret.Error(1)
}

// Get provides a mock function with given fields: ctx, id
func (_m *MockSessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	return sessionResult(_m.Called(ctx, id))
}

// List provides a mock function with given fields: ctx
func (_m *MockSessionService) List(ctx context.Context) ([]*models.Session, error) {
	ret := _m.Called(ctx)

	var r0 []*models.Session
	if v := ret.Get(0); v != nil {
		r0 = v.([]*models.Session)
	}
	return r0, ret.Error(1)
}

// NewMockSessionService creates a new instance of MockSessionService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockSessionService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionService {
	m := &MockSessionService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
