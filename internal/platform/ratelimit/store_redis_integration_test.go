//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"flightsurety/internal/platform/ratelimit"
	"flightsurety/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ratelimit.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = ratelimit.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.ClearKeyspace(context.Background()))
}

func (s *RedisStoreSuite) TestSlidingWindow() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := s.store.Allow(ctx, "ip:read:10.0.0.1", 3, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := s.store.Allow(ctx, "ip:read:10.0.0.1", 3, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Positive(res.RetryAfter)
	s.LessOrEqual(res.RetryAfter, 60)

	other, err := s.store.Allow(ctx, "ip:read:10.0.0.2", 3, time.Minute)
	s.Require().NoError(err)
	s.True(other.Allowed)

	keys, err := s.redis.Keys(ctx, "ratelimit:")
	s.Require().NoError(err)
	s.ElementsMatch([]string{
		"flightsurety:ratelimit:ip:read:10.0.0.1",
		"flightsurety:ratelimit:ip:read:10.0.0.2",
	}, keys)
}

func (s *RedisStoreSuite) TestWindowExpires() {
	ctx := context.Background()
	window := 200 * time.Millisecond
	for iter := 0; iter < 2; iter++ {
		_, err := s.store.Allow(ctx, "caller:write:x", 2, window)
		s.Require().NoError(err)
	}
	res, err := s.store.Allow(ctx, "caller:write:x", 2, window)
	s.Require().NoError(err)
	s.False(res.Allowed)

	s.Eventually(func() bool {
		res, err := s.store.Allow(ctx, "caller:write:x", 2, window)
		return err == nil && res.Allowed
	}, 2*time.Second, 50*time.Millisecond)
}
