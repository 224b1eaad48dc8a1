package directory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
)

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), "redis://"+s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, s
}

func TestRedis_PublishAndFetch(t *testing.T) {
	r, _ := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, model.UserDetails{Login: "alice", DisplayName: "Alice", Entity: "DIGIT"}, 0))

	d, err := r.FetchDetails(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, "Alice", d.DisplayName)
	require.Equal(t, "DIGIT", d.Entity)
}

func TestRedis_UnknownLogin(t *testing.T) {
	r, _ := setupRedis(t)

	d, err := r.FetchDetails(context.Background(), "ghost")
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestRedis_ExpiredProfile(t *testing.T) {
	r, s := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, model.UserDetails{Login: "bob"}, time.Second))
	s.FastForward(2 * time.Second)

	d, err := r.FetchDetails(ctx, "bob")
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestRedis_CorruptValue(t *testing.T) {
	r, s := setupRedis(t)
	require.NoError(t, s.Set(defaultPrefix+"carol", "{not json"))

	_, err := r.FetchDetails(context.Background(), "carol")
	require.Error(t, err)
}

func TestRedis_LoginDefaultsToKey(t *testing.T) {
	r, s := setupRedis(t)
	require.NoError(t, s.Set(defaultPrefix+"dave", `{"display_name":"Dave"}`))

	d, err := r.FetchDetails(context.Background(), "dave")
	require.NoError(t, err)
	require.Equal(t, "dave", d.Login)
}

func TestRedis_PublishValidation(t *testing.T) {
	r, _ := setupRedis(t)
	require.ErrorIs(t, r.Publish(context.Background(), model.UserDetails{}, 0), errs.ErrValidation)
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "://nope")
	require.Error(t, err)
}
