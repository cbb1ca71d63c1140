package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpledger/erpledger/internal/apperr"
	"github.com/erpledger/erpledger/internal/metrics"
	"github.com/erpledger/erpledger/internal/model"
	"github.com/erpledger/erpledger/internal/store/storetest"
)

const tenant = "acme"

func newRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	return NewRegistry(storetest.New(t), opts...)
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)

	acct, err := reg.Create(ctx, tenant, CreateParams{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset})
	require.NoError(t, err)
	assert.True(t, acct.Active)
	assert.Equal(t, tenant, acct.TenantID)

	got, err := reg.Get(ctx, tenant, "1000")
	require.NoError(t, err)
	assert.Equal(t, "Assets", got.Name)
	assert.Equal(t, model.AccountTypeAsset, got.Type)
	assert.Empty(t, got.ParentCode)

	_, err = reg.Get(ctx, tenant, "9999")
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)
	assert.True(t, apperr.IsNotFound(err))
}

func TestCreateWithParent(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)

	_, err := reg.Create(ctx, tenant, CreateParams{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset})
	require.NoError(t, err)

	child, err := reg.Create(ctx, tenant, CreateParams{Code: "1100", Name: "Current", Type: model.AccountTypeAsset, ParentCode: "1000"})
	require.NoError(t, err)
	assert.Equal(t, "1000", child.ParentCode)

	_, err = reg.Create(ctx, tenant, CreateParams{Code: "1200", Name: "Orphan", Type: model.AccountTypeAsset, ParentCode: "1999"})
	assert.ErrorIs(t, err, apperr.ErrParentNotFound)
}

func TestCreateRejects(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)

	_, err := reg.Create(ctx, tenant, CreateParams{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset})
	require.NoError(t, err)

	tests := []struct {
		name   string
		params CreateParams
		want   error
	}{
		{"duplicate", CreateParams{Code: "1000", Name: "Again", Type: model.AccountTypeAsset}, apperr.ErrDuplicateCode},
		{"bad type", CreateParams{Code: "1001", Name: "X", Type: "Revenue"}, apperr.ErrInvalidAccountType},
		{"missing name", CreateParams{Code: "1002", Type: model.AccountTypeAsset}, apperr.ErrInvalidInput},
		{"missing code", CreateParams{Name: "X", Type: model.AccountTypeAsset}, apperr.ErrInvalidInput},
		{"own parent", CreateParams{Code: "1003", Name: "Loop", Type: model.AccountTypeAsset, ParentCode: "1003"}, apperr.ErrCycleDetected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Create(ctx, tenant, tt.params)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, apperr.IsValidation(err))
		})
	}
}

func TestCodesAreScopedByTenant(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)

	_, err := reg.Create(ctx, "a", CreateParams{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset})
	require.NoError(t, err)
	_, err = reg.Create(ctx, "b", CreateParams{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset})
	require.NoError(t, err)

	listA, err := reg.List(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, listA, 1)

	_, err = reg.Create(ctx, "b", CreateParams{Code: "1100", Name: "X", Type: model.AccountTypeAsset, ParentCode: "1000"})
	require.NoError(t, err)
	_, err = reg.Create(ctx, "c", CreateParams{Code: "1100", Name: "X", Type: model.AccountTypeAsset, ParentCode: "1000"})
	assert.ErrorIs(t, err, apperr.ErrParentNotFound)
}

func TestSeedAndByType(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)

	n, err := reg.Seed(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultChart()), n)

	// Seeding twice skips existing codes.
	n, err = reg.Seed(ctx, tenant)
	require.NoError(t, err)
	assert.Zero(t, n)

	expenses, err := reg.ByType(ctx, tenant, model.AccountTypeExpense)
	require.NoError(t, err)
	assert.Len(t, expenses, 4)
	for _, a := range expenses {
		assert.Equal(t, model.AccountTypeExpense, a.Type)
	}

	all, err := reg.List(ctx, tenant)
	require.NoError(t, err)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Code, all[i].Code)
	}
}

func TestImportOrdersParentsFirst(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)

	n, err := reg.Import(ctx, tenant, []model.Account{
		{Code: "1110", Name: "Cash", Type: model.AccountTypeAsset, ParentCode: "1100", Active: true},
		{Code: "1100", Name: "Current", Type: model.AccountTypeAsset, ParentCode: "1000", Active: true},
		{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset, Active: true},
		{Code: "1999", Name: "Old", Type: model.AccountTypeAsset, ParentCode: "1000", Active: false},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	old, err := reg.Get(ctx, tenant, "1999")
	require.NoError(t, err)
	assert.False(t, old.Active)
}

func TestImportMissingParentRollsBack(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)

	_, err := reg.Import(ctx, tenant, []model.Account{
		{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset, Active: true},
		{Code: "1110", Name: "Cash", Type: model.AccountTypeAsset, ParentCode: "1100", Active: true},
	})
	assert.ErrorIs(t, err, apperr.ErrParentNotFound)

	all, err := reg.List(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTree(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	_, err := reg.Seed(ctx, tenant)
	require.NoError(t, err)

	roots, err := reg.Tree(ctx, tenant)
	require.NoError(t, err)

	var codes []string
	for _, r := range roots {
		codes = append(codes, r.Code)
	}
	assert.Equal(t, []string{"1000", "2000", "3000", "4000", "5000"}, codes)

	count := 0
	Walk(roots, func(*Node, int) { count++ })
	assert.Equal(t, len(DefaultChart()), count)
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	_, err := reg.Seed(ctx, tenant)
	require.NoError(t, err)

	moved, err := reg.Move(ctx, tenant, "1130", "1000")
	require.NoError(t, err)
	assert.Equal(t, "1000", moved.ParentCode)

	got, err := reg.Get(ctx, tenant, "1130")
	require.NoError(t, err)
	assert.Equal(t, "1000", got.ParentCode)

	moved, err = reg.Move(ctx, tenant, "1130", "")
	require.NoError(t, err)
	assert.Empty(t, moved.ParentCode)
}

func TestMoveRejectsCycles(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	_, err := reg.Seed(ctx, tenant)
	require.NoError(t, err)

	_, err = reg.Move(ctx, tenant, "1000", "1110")
	assert.ErrorIs(t, err, apperr.ErrCycleDetected)

	_, err = reg.Move(ctx, tenant, "1100", "1100")
	assert.ErrorIs(t, err, apperr.ErrCycleDetected)

	_, err = reg.Move(ctx, tenant, "1100", "8888")
	assert.ErrorIs(t, err, apperr.ErrParentNotFound)

	_, err = reg.Move(ctx, tenant, "8888", "1000")
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)

	roots, err := reg.Tree(ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, roots, 5)
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	_, err := reg.Create(ctx, tenant, CreateParams{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset})
	require.NoError(t, err)

	require.NoError(t, reg.Deactivate(ctx, tenant, "1000"))
	got, err := reg.Get(ctx, tenant, "1000")
	require.NoError(t, err)
	assert.False(t, got.Active)

	assert.ErrorIs(t, reg.Deactivate(ctx, tenant, "9999"), apperr.ErrAccountNotFound)
}

func TestTreeCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	reg := newRegistry(t, WithTreeCache(NewTreeCache(8, time.Minute)), WithMetrics(m))

	_, err := reg.Create(ctx, tenant, CreateParams{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset})
	require.NoError(t, err)

	roots, err := reg.Tree(ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, roots, 1)

	_, err = reg.Tree(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TreeCacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TreeCacheMisses))

	_, err = reg.Create(ctx, tenant, CreateParams{Code: "2000", Name: "Liabilities", Type: model.AccountTypeLiability})
	require.NoError(t, err)

	roots, err = reg.Tree(ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, roots, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TreeCacheMisses))
}

func TestTreeCacheDropsSnapshotLoadedBeforeInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewTreeCache(8, time.Minute)
	reg := newRegistry(t, WithTreeCache(cache))

	_, err := reg.Create(ctx, tenant, CreateParams{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset})
	require.NoError(t, err)

	// A reader takes the generation and loads the accounts.
	gen := cache.Generation(tenant)
	accts, err := reg.List(ctx, tenant)
	require.NoError(t, err)
	stale := NewChart(accts)

	// A writer commits and invalidates before the reader stores its snapshot.
	_, err = reg.Create(ctx, tenant, CreateParams{Code: "2000", Name: "Liabilities", Type: model.AccountTypeLiability})
	require.NoError(t, err)

	assert.False(t, cache.Set(tenant, gen, stale))
	_, ok := cache.Get(tenant)
	assert.False(t, ok)

	roots, err := reg.Tree(ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, roots, 2)
	cached, ok := cache.Get(tenant)
	require.True(t, ok)
	assert.NotSame(t, stale, cached)

	var none *TreeCache
	assert.False(t, none.Set(tenant, none.Generation(tenant), stale))
}
