package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"presenter-studio/internal/storage"
)

// MockObjectStorage is a mock type for storage.ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

// Upload provides a mock function with given fields: ctx, key, data, contentType
func (_m *MockObjectStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ret := _m.Called(ctx, key, data, contentType)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, []byte, string) string); ok {
		r0 = rf(ctx, key, data, contentType)
	} else {
		r0 = ret.String(0)
	}
	return r0, ret.Error(1)
}

// NewMockObjectStorage creates a new instance of MockObjectStorage. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockObjectStorage(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockObjectStorage {
	m := &MockObjectStorage{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ storage.ObjectStorage = (*MockObjectStorage)(nil)
