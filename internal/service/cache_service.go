package service

import (
	"context"
	"time"

	"github.com/Payphone-Digital/accounts/internal/constants"
	"github.com/Payphone-Digital/accounts/internal/dto"
	"github.com/Payphone-Digital/accounts/pkg/logger"
	"github.com/Payphone-Digital/accounts/pkg/metrics"
	"github.com/Payphone-Digital/accounts/pkg/redis"
)

// CacheService is a best-effort read-through cache of public user profiles.
// Redis failures are logged and degrade to a miss; they never fail a request.
type CacheService struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

func NewCacheService(client *redis.Client, ttl time.Duration, m *metrics.Metrics) *CacheService {
	return &CacheService{client: client, ttl: ttl, metrics: m}
}

func profileKey(userID string) string {
	return constants.CacheKeyProfile + userID
}

func (s *CacheService) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, bool) {
	var profile dto.UserResponse
	found, err := s.client.GetJSON(ctx, profileKey(userID), &profile)
	if err != nil {
		s.metrics.CacheLookup("error")
		logger.WarnWithContext(ctx, "Profile cache read failed").
			String("user_id", userID).
			Err(err).
			Log()
		return nil, false
	}
	if !found {
		s.metrics.CacheLookup("miss")
		return nil, false
	}

	s.metrics.CacheLookup("hit")
	return &profile, true
}

func (s *CacheService) SetProfile(ctx context.Context, profile *dto.UserResponse) {
	if profile == nil {
		return
	}
	if err := s.client.SetJSON(ctx, profileKey(profile.ID), profile, s.ttl); err != nil {
		logger.WarnWithContext(ctx, "Profile cache write failed").
			String("user_id", profile.ID).
			Err(err).
			Log()
	}
}

func (s *CacheService) InvalidateProfile(ctx context.Context, userID string) {
	if err := s.client.Delete(ctx, profileKey(userID)); err != nil {
		logger.WarnWithContext(ctx, "Profile cache invalidation failed").
			String("user_id", userID).
			Err(err).
			Log()
	}
}
