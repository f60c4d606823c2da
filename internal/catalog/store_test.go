package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()
	db, err := OpenDB(ctx, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))
	return Store{DB: db}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, Entry{Name: "PLA Basic", DensityGPerCm3: 1.24, PricePerKg: 19.99}))
	require.NoError(t, store.Upsert(ctx, Entry{Name: "Nylon", DensityGPerCm3: 1.14}))
	require.NoError(t, store.Upsert(ctx, Entry{Name: "PLA Basic", DensityGPerCm3: 1.24, PricePerKg: 21.50}))

	c, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	spec, err := c.Lookup("PLA Basic")
	require.NoError(t, err)
	require.Equal(t, 21.50, spec.PricePerKg)

	_, err = c.Lookup("Nylon")
	require.ErrorIs(t, err, ErrIncompleteMaterial)
}

func TestStoreDeactivate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, Entry{Name: "ABS", DensityGPerCm3: 1.04, PricePerKg: 19.99}))
	require.NoError(t, store.Deactivate(ctx, "ABS"))

	c, err := store.Load(ctx)
	require.NoError(t, err)
	_, err = c.Lookup("ABS")
	require.ErrorIs(t, err, ErrUnknownMaterial)
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, Migrate(context.Background(), store.DB))
}

func TestStoreUpsertRequiresName(t *testing.T) {
	store := newTestStore(t)
	require.Error(t, store.Upsert(context.Background(), Entry{Name: "  "}))
}
