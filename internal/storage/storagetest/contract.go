// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readingtracker/internal/models"
	"readingtracker/internal/storage"
)

// Factory returns an empty, initialized store. Cleanup is registered on t.
type Factory func(t *testing.T) storage.Storage

// Run executes the contract suite against the stores produced by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("Books", func(t *testing.T) { testBooks(t, newStore(t)) })
	t.Run("DeleteBookCascades", func(t *testing.T) { testDeleteBookCascades(t, newStore(t)) })
	t.Run("Records", func(t *testing.T) { testRecords(t, newStore(t)) })
	t.Run("RecordUpdateAndDelete", func(t *testing.T) { testRecordUpdateAndDelete(t, newStore(t)) })
	t.Run("Status", func(t *testing.T) { testStatus(t, newStore(t)) })
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Book returns a fixture book
func Book(id, title string) models.Book {
	goal := day(2024, 12, 31)
	return models.Book{
		ID:         id,
		Title:      title,
		TotalPages: 300,
		Category:   "Romance",
		Kind:       models.CategoryGeneral,
		GoalDate:   &goal,
		CreatedAt:  time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
	}
}

// Record returns a fixture record on date
func Record(id, bookID, submissionID string, date time.Time, start, end int) models.DailyReadingRecord {
	r := models.DailyReadingRecord{
		ID:           id,
		BookID:       bookID,
		SubmissionID: submissionID,
		Origin:       models.OriginSingle,
		StartPage:    start,
		EndPage:      end,
		PagesRead:    end - start,
		TimeSpent:    models.TimeSpent(25*60 + 30),
		CreatedAt:    time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC),
	}
	r.SetDate(date)
	return r
}

func testBooks(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.GetBook(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)

	zeta := Book("b-2", "Zeta")
	alpha := Book("b-1", "Alpha")
	alpha.GoalDate = nil
	bible := Book("b-3", "Bíblia de Estudo")
	bible.Category = "Bíblia"
	bible.Kind = models.CategoryBible

	for _, b := range []models.Book{zeta, alpha, bible} {
		require.NoError(t, s.CreateBook(ctx, b))
	}

	got, err := s.GetBook(ctx, "b-2")
	require.NoError(t, err)
	assert.Equal(t, zeta, got)

	got, err = s.GetBook(ctx, "b-1")
	require.NoError(t, err)
	assert.Nil(t, got.GoalDate)

	books, err = s.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Alpha", books[0].Title)
	assert.Equal(t, "Bíblia de Estudo", books[1].Title)
	assert.Equal(t, models.CategoryBible, books[1].Kind)
	assert.Equal(t, "Zeta", books[2].Title)
}

func testDeleteBookCascades(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	require.ErrorIs(t, s.DeleteBook(ctx, "missing"), storage.ErrNotFound)

	require.NoError(t, s.CreateBook(ctx, Book("keep", "Keep")))
	require.NoError(t, s.CreateBook(ctx, Book("drop", "Drop")))
	require.NoError(t, s.InsertRecords(ctx, []models.DailyReadingRecord{
		Record("r-1", "drop", "sub-1", day(2024, 2, 1), 0, 10),
		Record("r-2", "keep", "sub-2", day(2024, 2, 1), 0, 20),
	}))
	require.NoError(t, s.UpsertStatus(ctx, models.BookStatusSnapshot{BookID: "drop", PagesRead: 10, Status: models.StatusReading}))

	require.NoError(t, s.DeleteBook(ctx, "drop"))

	_, err := s.GetBook(ctx, "drop")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetRecord(ctx, "r-1")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetStatus(ctx, "drop")
	require.ErrorIs(t, err, storage.ErrNotFound)

	records, err := s.ListRecords(ctx, "keep")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r-2", records[0].ID)
}

func testRecords(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateBook(ctx, Book("b-1", "Book")))

	first := Record("r-c", "b-1", "sub-1", day(2024, 3, 5), 0, 10)
	second := Record("r-a", "b-1", "sub-1", day(2024, 3, 1), 10, 20)
	start, end := day(2024, 3, 1), day(2024, 3, 1)
	second.Origin = models.OriginPeriod
	second.PagesRead = 11
	second.StartDate, second.EndDate = &start, &end
	second.Bible = &models.BibleReference{Book: "João", Chapter: 3, VerseStart: 16, VerseEnd: 18}
	third := Record("r-b", "b-1", "sub-2", day(2023, 12, 31), 20, 20)
	third.TimeSpent = 0

	require.NoError(t, s.InsertRecords(ctx, []models.DailyReadingRecord{first, second}))
	require.NoError(t, s.InsertRecords(ctx, []models.DailyReadingRecord{third}))
	require.NoError(t, s.InsertRecords(ctx, nil))

	records, err := s.ListRecords(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []models.DailyReadingRecord{first, second, third}, records, "insertion order with every field intact")

	got, err := s.GetRecord(ctx, "r-a")
	require.NoError(t, err)
	assert.Equal(t, second, got)

	n, err := s.CountRecordsBySubmission(ctx, "b-1", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.CountRecordsBySubmission(ctx, "b-1", "sub-9")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	empty, err := s.ListRecords(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testRecordUpdateAndDelete(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateBook(ctx, Book("b-1", "Book")))
	require.NoError(t, s.InsertRecords(ctx, []models.DailyReadingRecord{
		Record("r-1", "b-1", "sub-1", day(2024, 3, 1), 0, 10),
		Record("r-2", "b-1", "sub-2", day(2024, 3, 2), 10, 20),
	}))

	updated := Record("r-1", "b-1", "sub-1", day(2024, 3, 3), 0, 40)
	updated.TimeSpent = models.TimeSpent(61 * 60)
	require.NoError(t, s.UpdateRecord(ctx, updated))

	got, err := s.GetRecord(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	records, err := s.ListRecords(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "r-1", records[0].ID, "an update keeps the original position")

	require.ErrorIs(t, s.UpdateRecord(ctx, Record("missing", "b-1", "", day(2024, 3, 1), 0, 1)), storage.ErrNotFound)

	require.NoError(t, s.DeleteRecord(ctx, "r-1"))
	_, err = s.GetRecord(ctx, "r-1")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorIs(t, s.DeleteRecord(ctx, "r-1"), storage.ErrNotFound)

	records, err = s.ListRecords(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r-2", records[0].ID)
}

func testStatus(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateBook(ctx, Book("b-1", "Book")))

	_, err := s.GetStatus(ctx, "b-1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	first := models.BookStatusSnapshot{
		BookID:           "b-1",
		PagesRead:        142,
		Status:           models.StatusReading,
		LastSubmissionID: "sub-1",
		UpdatedAt:        time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.UpsertStatus(ctx, first))

	got, err := s.GetStatus(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := first
	second.PagesRead = 300
	second.Status = models.StatusCompleted
	second.LastSubmissionID = "sub-2"
	second.UpdatedAt = first.UpdatedAt.Add(time.Hour)
	require.NoError(t, s.UpsertStatus(ctx, second))

	got, err = s.GetStatus(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, second, got)
}
