package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"readingtracker/internal/models"
)

func TestApply(t *testing.T) {
	book := romanceBook()
	testCases := []struct {
		name           string
		prev           models.BookStatusSnapshot
		mode           Mode
		in             models.ReadingInput
		expectedPages  int
		expectedStatus models.Status
	}{
		{
			name:           "accumulate adds the pages of the entry",
			prev:           models.BookStatusSnapshot{PagesRead: 100, Status: models.StatusReading},
			mode:           ModeAccumulate,
			in:             models.ReadingInput{StartPage: 100, EndPage: 130},
			expectedPages:  130,
			expectedStatus: models.StatusReading,
		},
		{
			name:           "accumulate ignores where the entry sits in the book",
			prev:           models.BookStatusSnapshot{PagesRead: 100},
			mode:           ModeAccumulate,
			in:             models.ReadingInput{StartPage: 10, EndPage: 20},
			expectedPages:  110,
			expectedStatus: models.StatusReading,
		},
		{
			name:           "retroactive sets the end page",
			prev:           models.BookStatusSnapshot{PagesRead: 142, Status: models.StatusReading},
			mode:           ModeRetroactive,
			in:             models.ReadingInput{StartPage: 142, EndPage: 300, Retroactive: true},
			expectedPages:  300,
			expectedStatus: models.StatusCompleted,
		},
		{
			name:           "absolute after a period",
			prev:           models.BookStatusSnapshot{PagesRead: 250},
			mode:           ModeAbsolute,
			in:             models.ReadingInput{StartPage: 1, EndPage: 142},
			expectedPages:  142,
			expectedStatus: models.StatusReading,
		},
		{
			name:           "accumulating past the total completes the book",
			prev:           models.BookStatusSnapshot{PagesRead: 290},
			mode:           ModeAccumulate,
			in:             models.ReadingInput{StartPage: 290, EndPage: 320},
			expectedPages:  300,
			expectedStatus: models.StatusCompleted,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Apply(book, tc.prev, tc.mode, tc.in)
			assert.Equal(t, book.ID, got.BookID)
			assert.Equal(t, tc.expectedPages, got.PagesRead)
			assert.Equal(t, tc.expectedStatus, got.Status)
		})
	}
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, ModeAccumulate, ModeFor(models.ReadingInput{}))
	assert.Equal(t, ModeRetroactive, ModeFor(models.ReadingInput{Retroactive: true}))
	assert.Equal(t, ModeAbsolute, ModeFor(models.ReadingInput{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 3), Retroactive: true}))
}

func TestRecompute(t *testing.T) {
	book := romanceBook()
	testCases := []struct {
		name           string
		records        []models.DailyReadingRecord
		expectedPages  int
		expectedStatus models.Status
	}{
		{
			name:           "no records",
			expectedPages:  0,
			expectedStatus: models.StatusNotStarted,
		},
		{
			name: "highest end page wins regardless of order",
			records: []models.DailyReadingRecord{
				{StartPage: 50, EndPage: 80},
				{StartPage: 1, EndPage: 50},
				{StartPage: 60, EndPage: 70},
			},
			expectedPages:  80,
			expectedStatus: models.StatusReading,
		},
		{
			name:           "clamped to total pages",
			records:        []models.DailyReadingRecord{{StartPage: 290, EndPage: 340}},
			expectedPages:  300,
			expectedStatus: models.StatusCompleted,
		},
		{
			name:           "only page zero",
			records:        []models.DailyReadingRecord{{StartPage: 0, EndPage: 0}},
			expectedPages:  0,
			expectedStatus: models.StatusNotStarted,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			first := Recompute(book, tc.records)
			second := Recompute(book, tc.records)
			assert.Equal(t, first, second, "recompute must be idempotent")
			assert.Equal(t, tc.expectedPages, first.PagesRead)
			assert.Equal(t, tc.expectedStatus, first.Status)
		})
	}
}

func TestRecompute_HealsDriftFromApply(t *testing.T) {
	book := romanceBook()
	records, err := Distribute(book, models.ReadingInput{
		StartPage: 1, EndPage: 142, StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 10),
	}, DefaultProfiles())
	if err != nil {
		t.Fatalf("Distribute(): %v", err)
	}

	drifted := models.BookStatusSnapshot{BookID: book.ID, PagesRead: 17, Status: models.StatusReading}
	healed := Recompute(book, records)
	assert.NotEqual(t, drifted.PagesRead, healed.PagesRead)
	assert.Equal(t, 142, healed.PagesRead)
	assert.Equal(t, models.StatusReading, healed.Status)
}
