package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michalprusek/spheroseg-sub010/internal/auth/domain"
	"github.com/michalprusek/spheroseg-sub010/internal/auth/service"
	autherror "github.com/michalprusek/spheroseg-sub010/internal/errors"
	"github.com/michalprusek/spheroseg-sub010/internal/mocks"
)

// issueForRotationDirect mints a refresh token against the mock store and
// returns it together with the record the service persisted.
func issueForRotationDirect(t *testing.T, ts *service.TokenService, store *mocks.MockRefreshTokenStore) (string, *domain.RefreshTokenRecord) {
	t.Helper()

	var inserted *domain.RefreshTokenRecord
	store.EXPECT().Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *domain.RefreshTokenRecord) error {
			inserted = rec
			return nil
		})

	token, _, err := ts.IssueRefreshToken(context.Background(), "user-123", "test@example.com", 0, service.RefreshTokenInput{
		UserAgent: "Mozilla/5.0",
		IPAddress: "203.0.113.7",
	})
	require.NoError(t, err)
	require.NotNil(t, inserted)

	return token, inserted
}

func TestVerifyRefreshToken_HappyPath(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts, store := newTokenService(t, testConfig(), clock)

	token, record := issueForRotationDirect(t, ts, store)

	store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(record, nil)
	store.EXPECT().CountActiveInFamily(gomock.Any(), record.FamilyID, gomock.Any()).Return(1, nil)

	verified, err := ts.VerifyRefreshToken(context.Background(), token, service.RefreshVerifyOptions{})
	require.NoError(t, err)

	assert.Equal(t, record.TokenID, verified.Claims.ID)
	assert.Equal(t, record.FamilyID, verified.Record.FamilyID)
	assert.Equal(t, "user-123", verified.Claims.UserID)
}

func TestVerifyRefreshToken_NotFound(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts, store := newTokenService(t, testConfig(), clock)

	token, record := issueForRotationDirect(t, ts, store)

	store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(nil, nil)

	_, err := ts.VerifyRefreshToken(context.Background(), token, service.RefreshVerifyOptions{})
	assert.ErrorIs(t, err, autherror.ErrRefreshTokenNotFound)
}

func TestVerifyRefreshToken_Revoked(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts, store := newTokenService(t, testConfig(), clock)

	token, record := issueForRotationDirect(t, ts, store)

	revokedAt := clock.now
	revoked := *record
	revoked.Revoked = true
	revoked.RevokedAt = &revokedAt

	store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(&revoked, nil)

	_, err := ts.VerifyRefreshToken(context.Background(), token, service.RefreshVerifyOptions{})
	assert.ErrorIs(t, err, autherror.ErrRefreshTokenRevoked)
}

func TestVerifyRefreshToken_UserMismatch(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts, store := newTokenService(t, testConfig(), clock)

	token, record := issueForRotationDirect(t, ts, store)

	tampered := *record
	tampered.UserID = "someone-else"

	store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(&tampered, nil)

	_, err := ts.VerifyRefreshToken(context.Background(), token, service.RefreshVerifyOptions{})
	assert.ErrorIs(t, err, autherror.ErrUserMismatch)
}

func TestVerifyRefreshToken_FamilyMismatch(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts, store := newTokenService(t, testConfig(), clock)

	token, record := issueForRotationDirect(t, ts, store)

	tampered := *record
	tampered.FamilyID = "another-family"

	store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(&tampered, nil)

	_, err := ts.VerifyRefreshToken(context.Background(), token, service.RefreshVerifyOptions{})
	assert.ErrorIs(t, err, autherror.ErrFamilyMismatch)
}

func TestVerifyRefreshToken_StrictDeviceCheck(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts, store := newTokenService(t, testConfig(), clock)

	token, record := issueForRotationDirect(t, ts, store)

	t.Run("same client passes", func(t *testing.T) {
		store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(record, nil)
		store.EXPECT().CountActiveInFamily(gomock.Any(), record.FamilyID, gomock.Any()).Return(1, nil)

		_, err := ts.VerifyRefreshToken(context.Background(), token, service.RefreshVerifyOptions{
			UserAgent:         "Mozilla/5.0",
			IPAddress:         "203.0.113.7",
			StrictDeviceCheck: true,
		})
		assert.NoError(t, err)
	})

	t.Run("different client rejected", func(t *testing.T) {
		store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(record, nil)

		_, err := ts.VerifyRefreshToken(context.Background(), token, service.RefreshVerifyOptions{
			UserAgent:         "curl/8.0",
			IPAddress:         "198.51.100.99",
			StrictDeviceCheck: true,
		})
		assert.ErrorIs(t, err, autherror.ErrDeviceMismatch)
	})
}

func TestVerifyRefreshToken_LargeFamilyWarnsButSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockRefreshTokenStore(ctrl)
	clock := &fakeClock{now: time.Now()}
	log, hook := logrustest.NewNullLogger()
	ts := service.NewTokenService(testConfig(), store, clock, log)

	token, record := issueForRotationDirect(t, ts, store)

	// One over the soft threshold of 10: a monitoring signal, not a
	// hard stop.
	store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(record, nil)
	store.EXPECT().CountActiveInFamily(gomock.Any(), record.FamilyID, gomock.Any()).Return(11, nil)

	verified, err := ts.VerifyRefreshToken(context.Background(), token, service.RefreshVerifyOptions{})
	require.NoError(t, err)
	require.NotNil(t, verified)

	var warned *logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = entry
		}
	}
	require.NotNil(t, warned, "oversized family must log a warning")
	assert.Equal(t, record.FamilyID, warned.Data["family_id"])
	assert.Equal(t, 11, warned.Data["active"])
}

func TestVerifyRefreshToken_FamilyAtThresholdDoesNotWarn(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockRefreshTokenStore(ctrl)
	clock := &fakeClock{now: time.Now()}
	log, hook := logrustest.NewNullLogger()
	ts := service.NewTokenService(testConfig(), store, clock, log)

	token, record := issueForRotationDirect(t, ts, store)

	store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(record, nil)
	store.EXPECT().CountActiveInFamily(gomock.Any(), record.FamilyID, gomock.Any()).Return(10, nil)

	_, err := ts.VerifyRefreshToken(context.Background(), token, service.RefreshVerifyOptions{})
	require.NoError(t, err)

	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, entry.Level)
	}
}

func TestRotateRefreshToken_PreservesLineage(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts, store := newTokenService(t, testConfig(), clock)

	token, record := issueForRotationDirect(t, ts, store)

	var rotated *domain.RefreshTokenRecord
	gomock.InOrder(
		store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(record, nil),
		store.EXPECT().CountActiveInFamily(gomock.Any(), record.FamilyID, gomock.Any()).Return(1, nil),
		store.EXPECT().ConditionalRevoke(gomock.Any(), record.TokenID, gomock.Any()).Return(true, nil),
		store.EXPECT().CountActiveInFamily(gomock.Any(), record.FamilyID, gomock.Any()).Return(1, nil),
		store.EXPECT().Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, rec *domain.RefreshTokenRecord) error {
				rotated = rec
				return nil
			}),
	)

	resp, err := ts.RotateRefreshToken(context.Background(), token, service.RefreshTokenInput{
		UserAgent: "Mozilla/5.0",
		IPAddress: "203.0.113.7",
	})
	require.NoError(t, err)
	require.NotNil(t, rotated)

	// New identity, same lineage.
	assert.Equal(t, record.FamilyID, rotated.FamilyID)
	assert.NotEqual(t, record.TokenID, rotated.TokenID)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := ts.DecodeRefreshClaims(resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, record.FamilyID, claims.FamilyID)
}

func TestRotateRefreshToken_ConcurrentRotationLoses(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts, store := newTokenService(t, testConfig(), clock)

	token, record := issueForRotationDirect(t, ts, store)

	store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(record, nil)
	store.EXPECT().CountActiveInFamily(gomock.Any(), record.FamilyID, gomock.Any()).Return(1, nil)
	// A concurrent caller already revoked this record: the CAS reports no
	// rows affected.
	store.EXPECT().ConditionalRevoke(gomock.Any(), record.TokenID, gomock.Any()).Return(false, nil)

	_, err := ts.RotateRefreshToken(context.Background(), token, service.RefreshTokenInput{})
	assert.ErrorIs(t, err, autherror.ErrConcurrentRotation)
}

func TestRotateRefreshToken_ConcurrentRace_SingleWinner(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts, store := newTokenService(t, testConfig(), clock)

	token, record := issueForRotationDirect(t, ts, store)

	// The in-memory equivalent of the conditional UPDATE: first caller in
	// wins, everyone else sees zero rows affected.
	var mu sync.Mutex
	revoked := false

	store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(record, nil).AnyTimes()
	store.EXPECT().CountActiveInFamily(gomock.Any(), record.FamilyID, gomock.Any()).Return(1, nil).AnyTimes()
	store.EXPECT().ConditionalRevoke(gomock.Any(), record.TokenID, gomock.Any()).
		DoAndReturn(func(context.Context, string, time.Time) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			if revoked {
				return false, nil
			}
			revoked = true
			return true, nil
		}).AnyTimes()
	store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := ts.RotateRefreshToken(context.Background(), token, service.RefreshTokenInput{})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, autherror.ErrConcurrentRotation):
			losses++
		}
	}

	assert.Equal(t, 1, wins, "exactly one rotation must win")
	assert.Equal(t, n-1, losses)
}

func TestRotateRefreshToken_TheftDetectionStartsNewFamily(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTokensPerFamily = 2
	clock := &fakeClock{now: time.Now()}
	ts, store := newTokenService(t, cfg, clock)

	token, record := issueForRotationDirect(t, ts, store)

	var replacement *domain.RefreshTokenRecord
	gomock.InOrder(
		store.EXPECT().FindActiveByTokenID(gomock.Any(), record.TokenID, gomock.Any()).Return(record, nil),
		store.EXPECT().CountActiveInFamily(gomock.Any(), record.FamilyID, gomock.Any()).Return(3, nil),
		store.EXPECT().ConditionalRevoke(gomock.Any(), record.TokenID, gomock.Any()).Return(true, nil),
		// Still at/over the cap after revoking the presented token:
		// somebody has been minting tokens in this lineage.
		store.EXPECT().CountActiveInFamily(gomock.Any(), record.FamilyID, gomock.Any()).Return(2, nil),
		store.EXPECT().RevokeFamily(gomock.Any(), record.FamilyID, gomock.Any()).Return(nil),
		store.EXPECT().Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, rec *domain.RefreshTokenRecord) error {
				replacement = rec
				return nil
			}),
	)

	resp, err := ts.RotateRefreshToken(context.Background(), token, service.RefreshTokenInput{})
	require.NoError(t, err)
	require.NotNil(t, replacement)

	assert.NotEqual(t, record.FamilyID, replacement.FamilyID, "replacement must start a new family")

	claims, err := ts.DecodeRefreshClaims(resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, replacement.FamilyID, claims.FamilyID)
}

func TestRotateRefreshToken_ExpiredSignature(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts, store := newTokenService(t, testConfig(), clock)

	token, _ := issueForRotationDirect(t, ts, store)

	clock.Advance(testConfig().RefreshTokenTTL() + time.Minute)

	_, err := ts.RotateRefreshToken(context.Background(), token, service.RefreshTokenInput{})
	assert.ErrorIs(t, err, autherror.ErrTokenExpired)
}
