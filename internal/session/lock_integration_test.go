//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"presenter-studio/internal/models"
	"presenter-studio/internal/session"
)

type RedisLockerSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcredis.RedisContainer
	client    *redis.Client
}

func (s *RedisLockerSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.container, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	uri, err := s.container.ConnectionString(s.ctx)
	require.NoError(s.T(), err)
	opts, err := redis.ParseURL(uri)
	require.NoError(s.T(), err)
	s.client = redis.NewClient(opts)
	require.NoError(s.T(), s.client.Ping(s.ctx).Err())
}

func (s *RedisLockerSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RedisLockerSuite) TestLeaseIsExclusive() {
	l := session.NewRedisLocker(s.client, time.Minute, zap.NewNop())

	release, err := l.Acquire(s.ctx, "sess-1")
	s.Require().NoError(err)

	_, err = l.Acquire(s.ctx, "sess-1")
	s.ErrorIs(err, models.ErrSessionBusy)

	release()
	again, err := l.Acquire(s.ctx, "sess-1")
	s.Require().NoError(err)
	again()
}

func (s *RedisLockerSuite) TestStaleReleaseKeepsNewLease() {
	l := session.NewRedisLocker(s.client, 200*time.Millisecond, zap.NewNop())

	stale, err := l.Acquire(s.ctx, "sess-2")
	s.Require().NoError(err)
	time.Sleep(400 * time.Millisecond)

	current, err := l.Acquire(s.ctx, "sess-2")
	s.Require().NoError(err, "expired lease can be taken over")
	defer current()

	stale()
	_, err = l.Acquire(s.ctx, "sess-2")
	s.ErrorIs(err, models.ErrSessionBusy, "a stale holder must not release the new lease")
}

func TestRedisLockerSuite(t *testing.T) {
	suite.Run(t, new(RedisLockerSuite))
}
