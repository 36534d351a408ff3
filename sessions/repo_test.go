package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apperrors "github.com/jrsteele09/aqua-control/internal/errors"
	"github.com/jrsteele09/aqua-control/sessions"
	"github.com/stretchr/testify/require"
)

func exerciseRepo(t *testing.T, repo sessions.Repo) {
	t.Helper()
	ctx := context.Background()

	s := newSession("u1", 1)
	s.ExpiresAt = time.Now().Add(time.Hour)
	require.NoError(t, repo.Upsert(ctx, s))

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "u1", got.User.ID)
	require.Equal(t, s.AccessToken(), got.AccessToken())

	// Mutating either the stored input or the returned copy must not touch the stored session
	s.User.Roles[0].ID = 99
	s.Token.AccessToken = "changed"
	got.User.Name = "changed"
	got.User = nil
	again, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, again.User)
	require.Equal(t, 1, again.User.Roles[0].ID)
	require.Equal(t, "Ana Torres", again.User.Name)
	require.Equal(t, "opaque-token", again.AccessToken())

	require.NoError(t, repo.Delete(ctx, s.ID))
	_, err = repo.Get(ctx, s.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	_, err = repo.Get(ctx, "")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	require.Error(t, repo.Upsert(ctx, &sessions.Session{}))
}

func TestInMemoryRepo(t *testing.T) {
	exerciseRepo(t, sessions.NewInMemoryRepo())
}

func TestInMemoryRepoExpiry(t *testing.T) {
	repo := sessions.NewInMemoryRepo()
	s := newSession("u1", 1)
	s.ExpiresAt = time.Now().Add(time.Minute)
	require.NoError(t, repo.Upsert(context.Background(), s))

	sessions.NowTimeFunc = func() time.Time { return time.Now().Add(2 * time.Minute) }
	defer func() { sessions.NowTimeFunc = time.Now }()

	_, err := repo.Get(context.Background(), s.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func setupRedisRepo(t *testing.T) (*sessions.RedisRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	repo, err := sessions.NewRedisRepo(context.Background(), "redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, mr
}

func TestRedisRepo(t *testing.T) {
	repo, _ := setupRedisRepo(t)
	exerciseRepo(t, repo)
}

func TestRedisRepoTTL(t *testing.T) {
	repo, mr := setupRedisRepo(t)
	ctx := context.Background()

	s := newSession("u1", 1)
	s.ExpiresAt = time.Now().Add(30 * time.Minute)
	require.NoError(t, repo.Upsert(ctx, s))
	require.Greater(t, mr.TTL("aqua:session:"+s.ID), 29*time.Minute)

	mr.FastForward(31 * time.Minute)
	_, err := repo.Get(ctx, s.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	s.ExpiresAt = time.Now().Add(-time.Second)
	require.ErrorIs(t, repo.Upsert(ctx, s), apperrors.ErrSessionExpired)
}

func TestRedisRepoCorruptEntry(t *testing.T) {
	repo, mr := setupRedisRepo(t)
	require.NoError(t, mr.Set("aqua:session:broken", "{not json"))

	_, err := repo.Get(context.Background(), "broken")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	require.False(t, mr.Exists("aqua:session:broken"))
}

func TestNewRedisRepoBadURL(t *testing.T) {
	_, err := sessions.NewRedisRepo(context.Background(), "not a url", time.Hour)
	require.Error(t, err)
}

func TestRedisRepoPing(t *testing.T) {
	repo, mr := setupRedisRepo(t)
	require.NoError(t, repo.Ping(context.Background()))

	mr.Close()
	require.Error(t, repo.Ping(context.Background()))
}
