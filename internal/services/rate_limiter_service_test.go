package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/config"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/utils"
)

type fakeRateLimitRepo struct {
	counts map[string]int
	keys   []string
}

func newFakeRateLimitRepo() *fakeRateLimitRepo {
	return &fakeRateLimitRepo{counts: make(map[string]int)}
}

func (f *fakeRateLimitRepo) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.counts[key]++
	f.keys = append(f.keys, key)
	return f.counts[key] <= limit, nil
}

func (f *fakeRateLimitRepo) CleanupExpired(ctx context.Context) error { return nil }

func rateLimiterHarness() (RateLimiterService, *fakeRateLimitRepo) {
	repo := newFakeRateLimitRepo()
	cfg := &config.Config{
		GlobalSMSLimitPerHour:     config.DefaultGlobalSMSLimitPerHour,
		SMSLimitPerIPPerHour:      config.DefaultSMSLimitPerIPPerHour,
		SMSLimitPerNumberPerHour:  config.DefaultSMSLimitPerNumberPerHour,
		GlobalEmailLimitPerHour:   config.DefaultGlobalEmailLimitPerHour,
		EmailLimitPerIPPerHour:    config.DefaultEmailLimitPerIPPerHour,
		EmailLimitPerEmailPerHour: config.DefaultEmailLimitPerEmailPerHour,
		RateLimitWindow:           config.DefaultRateLimitWindow,
	}
	return NewRateLimiterService(repo, cfg), repo
}

func TestCheckSMSRateLimits_ChecksAllThreeTiers(t *testing.T) {
	svc, repo := rateLimiterHarness()

	require.NoError(t, svc.CheckSMSRateLimits(context.Background(), "1.2.3.4", "+15125551234"))

	assert.Equal(t, []string{
		"sms:global",
		"sms:ip:1.2.3.4",
		"sms:phone:+15125551234",
	}, repo.keys)
}

func TestCheckSMSRateLimits_PerNumberLimit(t *testing.T) {
	svc, _ := rateLimiterHarness()
	ctx := context.Background()

	for i := 0; i < config.DefaultSMSLimitPerNumberPerHour; i++ {
		require.NoError(t, svc.CheckSMSRateLimits(ctx, "1.2.3.4", "+15125551234"))
	}
	assert.ErrorIs(t, svc.CheckSMSRateLimits(ctx, "1.2.3.4", "+15125551234"),
		utils.ErrRateLimitExceeded)

	// A different destination from the same IP is still fine.
	assert.NoError(t, svc.CheckSMSRateLimits(ctx, "1.2.3.4", "+15125559999"))
}

func TestCheckSMSRateLimits_PerIPLimit(t *testing.T) {
	svc, repo := rateLimiterHarness()
	repo.counts["sms:ip:1.2.3.4"] = config.DefaultSMSLimitPerIPPerHour

	err := svc.CheckSMSRateLimits(context.Background(), "1.2.3.4", "+15125551234")
	assert.ErrorIs(t, err, utils.ErrRateLimitExceeded)
	assert.Zero(t, repo.counts["sms:phone:+15125551234"],
		"per-destination tier is not reached once an earlier tier trips")
}

func TestCheckEmailRateLimits_ChecksAllThreeTiers(t *testing.T) {
	svc, repo := rateLimiterHarness()

	require.NoError(t, svc.CheckEmailRateLimits(context.Background(), "1.2.3.4", "jane@example.com"))

	assert.Equal(t, []string{
		"email:global",
		"email:ip:1.2.3.4",
		"email:address:jane@example.com",
	}, repo.keys)
}

func TestCheckEmailRateLimits_GlobalLimit(t *testing.T) {
	svc, repo := rateLimiterHarness()
	repo.counts["email:global"] = config.DefaultGlobalEmailLimitPerHour

	err := svc.CheckEmailRateLimits(context.Background(), "1.2.3.4", "jane@example.com")
	assert.ErrorIs(t, err, utils.ErrRateLimitExceeded)
}
