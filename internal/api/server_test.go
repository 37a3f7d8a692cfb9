package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"readingtracker/internal/models"
	"readingtracker/internal/progress"
	"readingtracker/internal/storage/stubs"
	"readingtracker/internal/tracker"
)

// test wiring: router + real service over the in-memory store
func newServer(t *testing.T) (http.Handler, *tracker.Service) {
	t.Helper()
	db := stubs.NewMockDB()
	clock := func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) }
	svc := tracker.New(db, progress.DefaultProfiles(), zap.NewNop(), tracker.WithClock(clock))
	return NewServer(svc, zap.NewNop()).Router(), svc
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHealth(t *testing.T) {
	h, _ := newServer(t)
	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestCreateBook_201_and_400(t *testing.T) {
	h, _ := newServer(t)

	w := do(t, h, http.MethodPost, "/api/books", map[string]any{
		"title": "Dom Casmurro", "total_pages": 300, "category": "Romance", "goal_date": "2024-02-01",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var book models.Book
	require.NoError(t, json.NewDecoder(w.Body).Decode(&book))
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, "/api/books/"+book.ID, w.Header().Get("Location"))
	require.NotNil(t, book.GoalDate)

	w = do(t, h, http.MethodPost, "/api/books", map[string]any{"title": "", "total_pages": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/books", map[string]any{"title": "x", "total_pages": 10, "goal_date": "01/02/2024"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/books", map[string]any{"title": "x", "pages": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown fields are rejected")
}

func TestGetBook_200_and_404(t *testing.T) {
	h, svc := newServer(t)
	book, err := svc.CreateBook(context.Background(), models.CreateBookInput{Title: "Seed", TotalPages: 10})
	require.NoError(t, err)

	w := do(t, h, http.MethodGet, "/api/books/"+book.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/books/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var e errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
	assert.Contains(t, e.Error, "book not found")

	w = do(t, h, http.MethodGet, "/api/books", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var books []models.Book
	require.NoError(t, json.NewDecoder(w.Body).Decode(&books))
	assert.Len(t, books, 1)
}

func TestSubmitPeriod_StatsAndDays(t *testing.T) {
	h, svc := newServer(t)
	book, err := svc.CreateBook(context.Background(), models.CreateBookInput{Title: "Romance", TotalPages: 300, Category: "Romance"})
	require.NoError(t, err)

	w := do(t, h, http.MethodPost, "/api/books/"+book.ID+"/readings", map[string]any{
		"start_page": 1, "end_page": 142, "start_date": "2024-01-01", "end_date": "2024-01-10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sub tracker.Submission
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sub))
	assert.Len(t, sub.Records, 10)
	assert.Equal(t, "24:51", sub.Records[0].TimeSpent.String())
	assert.Equal(t, 142, sub.Status.PagesRead)

	w = do(t, h, http.MethodGet, "/api/books/"+book.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report models.BookReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.InDelta(t, 14.2, report.Stats.AvgPagesPerDay, 1e-9)
	assert.True(t, report.Projection.CanShow)

	w = do(t, h, http.MethodGet, "/api/books/"+book.ID+"/days", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var days []models.ReadingDay
	require.NoError(t, json.NewDecoder(w.Body).Decode(&days))
	assert.Len(t, days, 10)
}

func TestSubmit_IdempotencyKeyHeader(t *testing.T) {
	h, svc := newServer(t)
	book, err := svc.CreateBook(context.Background(), models.CreateBookInput{Title: "Book", TotalPages: 100})
	require.NoError(t, err)

	body := map[string]any{"start_page": 0, "end_page": 20}
	path := "/api/books/" + book.ID + "/readings"
	w := do(t, h, http.MethodPost, path, body, "Idempotency-Key", "retry-1")
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, h, http.MethodPost, path, body, "Idempotency-Key", "retry-1")
	require.Equal(t, http.StatusOK, w.Code)

	var sub tracker.Submission
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sub))
	assert.True(t, sub.Replayed)
	assert.Equal(t, 20, sub.Status.PagesRead)
}

func TestSubmit_Errors(t *testing.T) {
	h, svc := newServer(t)
	book, err := svc.CreateBook(context.Background(), models.CreateBookInput{Title: "Bible", TotalPages: 1000, Category: "Bíblia"})
	require.NoError(t, err)
	path := "/api/books/" + book.ID + "/readings"

	testCases := []struct {
		name     string
		path     string
		body     map[string]any
		expected int
	}{
		{"inverted pages", path, map[string]any{"start_page": 10, "end_page": 1}, http.StatusBadRequest},
		{"inverted period", path, map[string]any{"start_page": 1, "end_page": 10, "start_date": "2024-01-05", "end_date": "2024-01-01"}, http.StatusBadRequest},
		{"bad passage", path, map[string]any{"start_page": 1, "end_page": 10, "bible": "???"}, http.StatusBadRequest},
		{"unknown book", "/api/books/missing/readings", map[string]any{"start_page": 1, "end_page": 10}, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.expected, w.Code, w.Body.String())
		})
	}

	w := do(t, h, http.MethodPost, path, map[string]any{"start_page": 1, "end_page": 3, "bible": "João 3:16-18", "total_minutes": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestEditDeleteAndReconcile(t *testing.T) {
	h, svc := newServer(t)
	ctx := context.Background()
	book, err := svc.CreateBook(ctx, models.CreateBookInput{Title: "Book", TotalPages: 100})
	require.NoError(t, err)
	sub, err := svc.Submit(ctx, models.ReadingInput{BookID: book.ID, StartPage: 0, EndPage: 40})
	require.NoError(t, err)
	recordID := sub.Records[0].ID

	w := do(t, h, http.MethodPut, "/api/readings/"+recordID, map[string]any{"start_page": 0, "end_page": 25, "date": "2024-01-09"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var record models.DailyReadingRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&record))
	assert.Equal(t, 25, record.PagesRead)

	w = do(t, h, http.MethodPost, "/api/books/"+book.ID+"/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot models.BookStatusSnapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snapshot))
	assert.Equal(t, 25, snapshot.PagesRead)

	w = do(t, h, http.MethodGet, "/api/books/"+book.ID+"/readings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodDelete, "/api/readings/"+recordID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodDelete, "/api/readings/"+recordID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodDelete, "/api/books/"+book.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodGet, "/api/books/"+book.ID+"/stats", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
