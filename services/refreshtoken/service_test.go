package refreshtoken

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authsession/services/identity"
	"github.com/tech-arch1tect/authsession/services/jwt"
	"github.com/tech-arch1tect/authsession/services/metrics"
	"github.com/tech-arch1tect/authsession/services/revocation"
	"github.com/tech-arch1tect/authsession/services/tokenpolicy"
	"github.com/tech-arch1tect/authsession/testutils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var t0 = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

const firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"

type fixture struct {
	db       *gorm.DB
	dir      *identity.Directory
	access   *jwt.Service
	service  *Service
	clock    *testutils.Clock
	policies tokenpolicy.Policies
}

func setupService(t *testing.T) *fixture {
	t.Helper()

	cfg := testutils.GetTestConfig()
	db := testutils.SetupTestDB(t, &identity.User{}, &RefreshToken{})
	dir := identity.NewDirectory(db, bcrypt.MinCost, nil)
	_, err := dir.CreateUser(context.Background(), testutils.TestUsers.Alice.Username, testutils.TestUsers.Alice.Password,
		identity.Profile{Email: testutils.TestUsers.Alice.Email})
	require.NoError(t, err)

	policies := tokenpolicy.New(cfg)
	clock := testutils.NewClock(t0)

	access := jwt.NewService(jwt.NewCodec(cfg.JWT.SecretKey, cfg.JWT.Issuer), policies.Access, dir, revocation.NewMemoryStore(), nil, nil)
	access.SetClock(clock.Now)

	service := NewService(NewGormStore(db), policies, access, dir, cfg.RefreshToken.TokenLength, nil, metrics.New())
	service.SetClock(clock.Now)

	return &fixture{db: db, dir: dir, access: access, service: service, clock: clock, policies: policies}
}

func TestService_CreateRefreshToken(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	issued, err := f.service.CreateRefreshToken(ctx, "alice", SessionInfo{UserAgent: firefoxUA, IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	assert.NotEmpty(t, issued.Value)
	assert.NotContains(t, issued.Value, "=")
	assert.Equal(t, "alice", issued.Record.Owner)
	assert.Equal(t, HashToken(issued.Value), issued.Record.TokenHash)
	assert.True(t, issued.Record.ExpiresAt.Equal(t0.Add(24*time.Hour)))

	var stored RefreshToken
	require.NoError(t, f.db.Where("id = ?", issued.Record.ID).First(&stored).Error)
	assert.NotEqual(t, issued.Value, stored.TokenHash)
	assert.Contains(t, stored.DeviceInfo, "Firefox")
	assert.Contains(t, stored.DeviceInfo, "10.0.0.1")

	t.Run("values are unique", func(t *testing.T) {
		other, err := f.service.CreateRefreshToken(ctx, "alice", SessionInfo{})
		require.NoError(t, err)
		assert.NotEqual(t, issued.Value, other.Value)
		assert.NotEqual(t, issued.Record.ID, other.Record.ID)
	})

	t.Run("one owner many sessions", func(t *testing.T) {
		records, err := f.service.FindByOwner(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
}

func TestService_FindByToken(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	issued, err := f.service.CreateRefreshToken(ctx, "alice", SessionInfo{})
	require.NoError(t, err)

	record, err := f.service.FindByToken(ctx, issued.Value)
	require.NoError(t, err)
	assert.Equal(t, issued.Record.ID, record.ID)

	_, err = f.service.FindByToken(ctx, "unknown")
	testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)

	_, err = f.service.FindByToken(ctx, "")
	testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)
}

func TestService_VerifyExpiration(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	issued, err := f.service.CreateRefreshToken(ctx, "alice", SessionInfo{})
	require.NoError(t, err)

	f.clock.Set(issued.Record.ExpiresAt)
	record, err := f.service.VerifyExpiration(ctx, issued.Record)
	require.NoError(t, err)
	assert.Equal(t, issued.Record, record)

	f.clock.Advance(time.Second)
	record, err = f.service.VerifyExpiration(ctx, issued.Record)
	assert.Nil(t, record)
	testutils.AssertErrorType(t, ErrRefreshTokenExpired, err)

	_, err = f.service.FindByToken(ctx, issued.Value)
	testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)
}

func TestService_RefreshRotation(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	r1, err := f.service.CreateRefreshToken(ctx, "alice", SessionInfo{})
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	result, err := f.service.Refresh(ctx, r1.Value, "tab1", SessionInfo{UserAgent: firefoxUA})
	require.NoError(t, err)

	assert.NotEqual(t, r1.Value, result.RefreshToken)
	assert.Equal(t, "alice", result.Identity.Username)
	assert.True(t, result.AccessTokenExpiresAt.Equal(t0.Add(10*time.Minute+time.Hour)))
	assert.True(t, result.RefreshTokenExpiresAt.Equal(t0.Add(10*time.Minute+24*time.Hour)))

	ok, err := f.access.Validate(ctx, result.AccessToken, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, result.Cookies, 2)
	assert.Equal(t, "accessTokentab1", result.Cookies[0].Name)
	assert.Equal(t, result.AccessToken, result.Cookies[0].Value)
	assert.Equal(t, "refreshTokentab1", result.Cookies[1].Name)
	assert.Equal(t, result.RefreshToken, result.Cookies[1].Value)
	assert.Equal(t, f.policies.Refresh.Path, result.Cookies[1].Path)

	_, err = f.service.Refresh(ctx, r1.Value, "tab1", SessionInfo{})
	testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)

	second, err := f.service.Refresh(ctx, result.RefreshToken, "tab1", SessionInfo{})
	require.NoError(t, err)
	assert.NotEqual(t, result.RefreshToken, second.RefreshToken)

	records, err := f.service.FindByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestService_Refresh_NoValue(t *testing.T) {
	f := setupService(t)

	result, err := f.service.Refresh(context.Background(), "", "", SessionInfo{})
	assert.Nil(t, result)
	testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)
}

func TestService_Refresh_Expired(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	issued, err := f.service.CreateRefreshToken(ctx, "alice", SessionInfo{})
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	_, err = f.service.Refresh(ctx, issued.Value, "", SessionInfo{})
	testutils.AssertErrorType(t, ErrRefreshTokenExpired, err)

	var count int64
	require.NoError(t, f.db.Model(&RefreshToken{}).Count(&count).Error)
	assert.Zero(t, count, "expired record is retired even though refresh failed")

	_, err = f.service.Refresh(ctx, issued.Value, "", SessionInfo{})
	testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)
}

func TestService_Refresh_UserNotFound(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	issued, err := f.service.CreateRefreshToken(ctx, "alice", SessionInfo{})
	require.NoError(t, err)
	require.NoError(t, f.dir.DeleteUser(ctx, "alice"))

	_, err = f.service.Refresh(ctx, issued.Value, "", SessionInfo{})
	testutils.AssertErrorType(t, ErrUserNotFound, err)
	assert.ErrorIs(t, err, identity.ErrIdentityNotFound)
}

func TestService_Refresh_ConcurrentSameToken(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	issued, err := f.service.CreateRefreshToken(ctx, "alice", SessionInfo{})
	require.NoError(t, err)

	const racers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)

	start := make(chan struct{})
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.service.Refresh(ctx, issued.Value, "", SessionInfo{})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				failures = append(failures, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range failures {
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	}

	records, err := f.service.FindByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestService_InvalidateToken(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	issued, err := f.service.CreateRefreshToken(ctx, "alice", SessionInfo{})
	require.NoError(t, err)

	require.NoError(t, f.service.InvalidateToken(ctx, issued.Value))
	_, err = f.service.FindByToken(ctx, issued.Value)
	testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)

	assert.NoError(t, f.service.InvalidateToken(ctx, issued.Value), "double logout is not an error")
	assert.NoError(t, f.service.InvalidateToken(ctx, ""))

	_, err = f.service.Refresh(ctx, issued.Value, "", SessionInfo{})
	testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)
}

func TestService_RevokeAllForOwner(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	for range 3 {
		_, err := f.service.CreateRefreshToken(ctx, "alice", SessionInfo{})
		require.NoError(t, err)
	}
	_, err := f.service.CreateRefreshToken(ctx, "bob", SessionInfo{})
	require.NoError(t, err)

	deleted, err := f.service.RevokeAllForOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	records, err := f.service.FindByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestService_PurgeExpired(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	old, err := f.service.CreateRefreshToken(ctx, "alice", SessionInfo{})
	require.NoError(t, err)

	f.clock.Advance(12 * time.Hour)
	fresh, err := f.service.CreateRefreshToken(ctx, "alice", SessionInfo{})
	require.NoError(t, err)

	purged, err := f.service.PurgeExpired(ctx, old.Record.ExpiresAt)
	require.NoError(t, err)
	assert.Zero(t, purged, "boundary is exclusive")

	purged, err = f.service.PurgeExpired(ctx, old.Record.ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = f.service.FindByToken(ctx, fresh.Value)
	assert.NoError(t, err)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, record *RefreshToken) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockStore) FindByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RefreshToken), args.Error(1)
}

func (m *mockStore) FindByOwner(ctx context.Context, owner string) ([]RefreshToken, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).([]RefreshToken), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) DeleteByHash(ctx context.Context, hash string) (int64, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) DeleteByOwner(ctx context.Context, owner string) (int64, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func TestService_StorageFailures(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	storageErr := errors.Join(ErrStorage, errors.New("disk I/O error"))

	t.Run("lookup failure", func(t *testing.T) {
		store := &mockStore{}
		store.On("FindByHash", mock.Anything, HashToken("value")).Return(nil, storageErr)
		svc := NewService(store, f.policies, f.access, f.dir, 32, nil, nil)

		_, err := svc.Refresh(ctx, "value", "", SessionInfo{})
		testutils.AssertErrorType(t, ErrStorage, err)
		assert.NotErrorIs(t, err, ErrInvalidRefreshToken)
		store.AssertExpectations(t)
	})

	t.Run("delete failure aborts rotation", func(t *testing.T) {
		record := &RefreshToken{ID: "id-1", Owner: "alice", TokenHash: HashToken("value"), ExpiresAt: t0.Add(time.Hour)}
		store := &mockStore{}
		store.On("FindByHash", mock.Anything, HashToken("value")).Return(record, nil)
		store.On("Delete", mock.Anything, "id-1").Return(int64(0), storageErr)
		svc := NewService(store, f.policies, f.access, f.dir, 32, nil, nil)
		svc.SetClock(f.clock.Now)

		_, err := svc.Refresh(ctx, "value", "", SessionInfo{})
		testutils.AssertErrorType(t, ErrStorage, err)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalidate failure", func(t *testing.T) {
		store := &mockStore{}
		store.On("DeleteByHash", mock.Anything, HashToken("value")).Return(int64(0), storageErr)
		svc := NewService(store, f.policies, f.access, f.dir, 32, nil, nil)

		err := svc.InvalidateToken(ctx, "value")
		testutils.AssertErrorType(t, ErrStorage, err)
	})
}
