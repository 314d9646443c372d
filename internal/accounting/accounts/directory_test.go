package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

type stubRepo struct {
	settings map[int64]map[string]string
	accounts map[int64]Account
	loads    int
}

func (r *stubRepo) Settings(ctx context.Context, companyID int64) (map[string]string, error) {
	r.loads++
	out := make(map[string]string)
	for k, v := range r.settings[companyID] {
		out[k] = v
	}
	return out, nil
}

func (r *stubRepo) AccountByID(ctx context.Context, companyID, id int64) (Account, error) {
	a, ok := r.accounts[id]
	if !ok || a.CompanyID != companyID {
		return Account{}, shared.NotFound("account", id)
	}
	return a, nil
}

func (r *stubRepo) List(ctx context.Context, companyID int64) ([]Account, error) {
	return nil, nil
}

func TestDirectoryFallsBackToDefaults(t *testing.T) {
	repo := &stubRepo{settings: map[int64]map[string]string{
		1: {KeyAR: "1210", KeyAP: "  "},
	}}
	dir := NewDirectory(repo, nil, nil)
	ctx := context.Background()

	code, err := dir.Get(ctx, 1, KeyAR)
	require.NoError(t, err)
	require.Equal(t, "1210", code)

	code, err = dir.Get(ctx, 1, KeyAP)
	require.NoError(t, err)
	require.Equal(t, "2110", code, "blank override uses the default")

	code, err = dir.Get(ctx, 2, KeyVATOutput)
	require.NoError(t, err)
	require.Equal(t, "2120", code)

	_, err = dir.Get(ctx, 1, "unmapped_role")
	require.ErrorIs(t, err, shared.ErrMappingNotFound)

	code, err = dir.GetOrDefault(ctx, 1, "rounding_account", "7999")
	require.NoError(t, err)
	require.Equal(t, "7999", code)
}

func TestDirectoryGetByIDIsTenantScoped(t *testing.T) {
	repo := &stubRepo{accounts: map[int64]Account{
		10: {ID: 10, CompanyID: 1, Code: "1020", IsActive: true},
		11: {ID: 11, CompanyID: 1, Code: "1030", IsActive: false},
		12: {ID: 12, CompanyID: 2, Code: "1040", IsActive: true},
	}}
	dir := NewDirectory(repo, nil, nil)
	ctx := context.Background()

	code, err := dir.GetByID(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, "1020", code)

	for _, id := range []int64{11, 12, 99, 0} {
		_, err := dir.GetByID(ctx, 1, id)
		require.ErrorIs(t, err, shared.ErrMappingNotFound, "account %d", id)
	}
}

func TestDirectoryCachesSettingsInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &stubRepo{settings: map[int64]map[string]string{1: {KeyBank: "1011"}}}
	dir := NewDirectory(repo, NewSettingsCache(client, time.Minute), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		code, err := dir.Get(ctx, 1, KeyBank)
		require.NoError(t, err)
		require.Equal(t, "1011", code)
	}
	require.Equal(t, 1, repo.loads)

	repo.settings[1][KeyBank] = "1012"
	dir.Invalidate(ctx, 1)
	code, err := dir.Get(ctx, 1, KeyBank)
	require.NoError(t, err)
	require.Equal(t, "1012", code)
	require.Equal(t, 2, repo.loads)
}

func TestDirectoryCachesCompaniesWithoutOverrides(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &stubRepo{}
	dir := NewDirectory(repo, NewSettingsCache(client, time.Minute), nil)
	ctx := context.Background()

	_, err := dir.Get(ctx, 5, KeyAR)
	require.NoError(t, err)
	_, err = dir.Get(ctx, 5, KeyAP)
	require.NoError(t, err)
	require.Equal(t, 1, repo.loads)
}

func TestDirectoryDegradesWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	repo := &stubRepo{settings: map[int64]map[string]string{1: {KeyAR: "1201"}}}
	dir := NewDirectory(repo, NewSettingsCache(client, time.Minute), nil)

	code, err := dir.Get(context.Background(), 1, KeyAR)
	require.NoError(t, err)
	require.Equal(t, "1201", code)
}
