package docstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupSQLiteStore(t *testing.T) *SQLStore {
	dsn := filepath.Join(t.TempDir(), "documents.db")
	store, err := OpenSQLStore(DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, store.RunMigrations())
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenSQLStore_UnsupportedDriver(t *testing.T) {
	_, err := OpenSQLStore("mysql", "whatever")
	assert.ErrorContains(t, err, "unsupported sql driver")
}

func TestSQLStore_MigrationsAreRepeatable(t *testing.T) {
	store := setupSQLiteStore(t)
	assert.NoError(t, store.RunMigrations())
}

func TestSQLStore_CRUD(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, "AllToys", Fields{"title": "Robot", "price": 199.0, "quantity": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, store.Update(ctx, "AllToys", id, Fields{"price": 149.0}))

	docs, err := store.List(ctx, "AllToys")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0].ID)
	assert.Equal(t, "Robot", docs[0].Fields["title"])
	assert.Equal(t, 149.0, docs[0].Fields["price"])
	// JSON round trip turns every number into float64
	assert.Equal(t, 3.0, docs[0].Fields["quantity"])

	require.NoError(t, store.Delete(ctx, "AllToys", id))
	require.NoError(t, store.Delete(ctx, "AllToys", id))

	docs, err = store.List(ctx, "AllToys")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSQLStore_ListKeepsInsertionOrderPerCollection(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	first, err := store.Add(ctx, "ExtraToys", Fields{"title": "first"})
	require.NoError(t, err)
	_, err = store.Add(ctx, "AllToys", Fields{"title": "other"})
	require.NoError(t, err)
	second, err := store.Add(ctx, "ExtraToys", Fields{"title": "second"})
	require.NoError(t, err)

	docs, err := store.List(ctx, "ExtraToys")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, first, docs[0].ID)
	assert.Equal(t, second, docs[1].ID)
}

func TestSQLStore_UpdateNotFound(t *testing.T) {
	store := setupSQLiteStore(t)

	err := store.Update(context.Background(), "AllToys", "missing", Fields{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_Subscribe(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	rec := &snapshotRecorder{}
	unsubscribe, err := store.Subscribe(ctx, "Kundvagn", rec.record)
	require.NoError(t, err)
	defer unsubscribe()
	waitForDocs(t, rec, 0)

	_, err = store.Add(ctx, "Kundvagn", Fields{"title": "Boll"})
	require.NoError(t, err)
	snap := waitForDocs(t, rec, 1)
	assert.Equal(t, "Boll", snap.Documents[0].Fields["title"])
}

func TestSQLStore_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres container test skipped in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}()

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := OpenSQLStore(DriverPostgres, dsn)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.RunMigrations())

	id, err := store.Add(ctx, "produkter", Fields{"namn": "Boll", "pris": 49.0})
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, "produkter", id, Fields{"pris": 59.0}))

	docs, err := store.List(ctx, "produkter")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 59.0, docs[0].Fields["pris"])
}
