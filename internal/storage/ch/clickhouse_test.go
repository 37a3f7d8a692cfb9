package ch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clickhouseTC "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"readingtracker/internal/models"
	"readingtracker/internal/storage"
	"readingtracker/internal/storage/storagetest"
)

// setupTestDB creates a test ClickHouse instance using testcontainers
func setupTestDB(t *testing.T) *ClickHouseDB {
	if testing.Short() {
		t.Skip("skipping ClickHouse integration test in short mode")
	}
	ctx := context.Background()

	// Start ClickHouse container
	clickhouseContainer, err := clickhouseTC.Run(ctx,
		"clickhouse/clickhouse-server:24.3.3.102-alpine",
		clickhouseTC.WithUsername("default"),
		clickhouseTC.WithPassword(""),
		clickhouseTC.WithDatabase("default"),
	)
	require.NoError(t, err, "Failed to start ClickHouse container")
	t.Cleanup(func() { _ = clickhouseContainer.Terminate(ctx) })

	// Get connection details
	host, err := clickhouseContainer.Host(ctx)
	require.NoError(t, err)

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	db, err := NewClickHouseDB(host, port.Int(), "default", "default", "", false)
	require.NoError(t, err, "Failed to connect to ClickHouse")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Initialize(ctx), "Failed to run migrations")
	return db
}

// truncate empties every table so subtests share one container
func truncate(t *testing.T, db *ClickHouseDB) {
	ctx := context.Background()
	for _, table := range []string{"reading_records", "book_status", "books"} {
		require.NoError(t, db.conn.Exec(ctx, "TRUNCATE TABLE "+table))
	}
}

func TestClickHouseDB_Contract(t *testing.T) {
	db := setupTestDB(t)

	storagetest.Run(t, func(t *testing.T) storage.Storage {
		truncate(t, db)
		return db
	})
}

func TestClickHouseDB_InitializeIsRepeatable(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Initialize(context.Background()))
}

func TestClickHouseDB_UpdateKeepsLatestVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateBook(ctx, storagetest.Book("b-1", "Book")))
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.InsertRecords(ctx, []models.DailyReadingRecord{
		storagetest.Record("r-1", "b-1", "sub", day, 0, 10),
	}))

	for end := 11; end <= 15; end++ {
		r := storagetest.Record("r-1", "b-1", "sub", day, 0, end)
		require.NoError(t, db.UpdateRecord(ctx, r))
	}

	records, err := db.ListRecords(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 15, records[0].EndPage)
}

func TestClickHouseDB_InsertRecordsUnknownBook(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.InsertRecords(ctx, []models.DailyReadingRecord{
		storagetest.Record("r-1", "missing", "sub", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 0, 10),
	})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClickHouseDB_NextVersionIncreases(t *testing.T) {
	db := &ClickHouseDB{}
	prev := db.nextVersion()
	for i := 0; i < 1000; i++ {
		v := db.nextVersion()
		require.Greater(t, v, prev)
		prev = v
	}
}
