package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readingtracker/internal/models"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func minutes(v float64) *float64 {
	return &v
}

func romanceBook() models.Book {
	return models.Book{ID: "book-1", Title: "Dom Casmurro", TotalPages: 300, Category: "Romance", Kind: models.CategoryGeneral}
}

func TestDistribute_TenDayRomancePeriod(t *testing.T) {
	in := models.ReadingInput{
		BookID:    "book-1",
		StartPage: 1,
		EndPage:   142,
		StartDate: date(2024, 1, 1),
		EndDate:   date(2024, 1, 10),
	}

	records, err := Distribute(romanceBook(), in, DefaultProfiles())
	require.NoError(t, err)
	require.Len(t, records, 10)

	sum := 0
	for i, r := range records {
		sum += r.PagesRead
		expectedDay := time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, expectedDay, r.Date)
		require.NotNil(t, r.StartDate)
		require.NotNil(t, r.EndDate)
		assert.Equal(t, expectedDay, *r.StartDate)
		assert.Equal(t, expectedDay, *r.EndDate)
		assert.Equal(t, models.OriginPeriod, r.Origin)
		assert.Equal(t, "janeiro", r.MonthLabel)
		// romance is 1.75 min/page, 14.2 pages a day
		assert.Equal(t, "24:51", r.TimeSpent.String())
	}
	assert.Equal(t, 142, sum)
	assert.Equal(t, 1, records[0].StartPage)
	assert.Equal(t, 14, records[0].EndPage)
	assert.Equal(t, 15, records[1].StartPage)
	assert.Equal(t, 142, records[9].EndPage)
}

func TestDistribute_PagesAlwaysAddUp(t *testing.T) {
	book := romanceBook()
	for startPage := 0; startPage <= 12; startPage += 3 {
		for length := 0; length <= 61; length += 7 {
			for days := 1; days <= 40; days += 3 {
				endPage := startPage + length
				start := date(2023, 12, 20)
				end := start.AddDate(0, 0, days-1)
				in := models.ReadingInput{StartPage: startPage, EndPage: endPage, StartDate: start, EndDate: &end}

				records, err := Distribute(book, in, DefaultProfiles())
				require.NoError(t, err)
				require.Len(t, records, days, "start=%d end=%d days=%d", startPage, endPage, days)

				sum := 0
				for i, r := range records {
					assert.GreaterOrEqual(t, r.EndPage, r.StartPage)
					assert.GreaterOrEqual(t, r.PagesRead, 0)
					if i > 0 && r.PagesRead > 0 {
						assert.Equal(t, records[i-1].StartPage+records[i-1].PagesRead, r.StartPage)
					}
					sum += r.PagesRead
				}
				assert.Equal(t, endPage-startPage+1, sum, "start=%d end=%d days=%d", startPage, endPage, days)
				assert.Equal(t, endPage, records[len(records)-1].EndPage)
			}
		}
	}
}

func TestDistribute_SuppliedTimeIsSpreadEvenly(t *testing.T) {
	in := models.ReadingInput{
		StartPage:    10,
		EndPage:      40,
		TotalMinutes: minutes(100),
		StartDate:    date(2024, 2, 27),
		EndDate:      date(2024, 2, 29),
	}

	records, err := Distribute(romanceBook(), in, DefaultProfiles())
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, "33:20", r.TimeSpent.String())
	}
	assert.Equal(t, 29, records[2].Day)
}

func TestDistribute_CarriesBibleReference(t *testing.T) {
	ref := &models.BibleReference{Book: "Gênesis", Chapter: 1}
	in := models.ReadingInput{
		StartPage: 1,
		EndPage:   20,
		StartDate: date(2024, 12, 31),
		EndDate:   date(2025, 1, 2),
		Bible:     ref,
	}

	records, err := Distribute(models.Book{TotalPages: 1500, Category: "Bíblia", Kind: models.CategoryBible}, in, DefaultProfiles())
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		require.NotNil(t, r.Bible)
		assert.Equal(t, *ref, *r.Bible)
	}
	records[0].Bible.Chapter = 99
	assert.Equal(t, 1, records[1].Bible.Chapter, "each record owns its reference")
	assert.Equal(t, 1, ref.Chapter)
}

func TestDistribute_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		in      models.ReadingInput
		wantErr error
	}{
		{
			name:    "end date before start date",
			in:      models.ReadingInput{StartPage: 1, EndPage: 5, StartDate: date(2024, 1, 10), EndDate: date(2024, 1, 1)},
			wantErr: ErrInvalidPeriod,
		},
		{
			name:    "missing end date",
			in:      models.ReadingInput{StartPage: 1, EndPage: 5, StartDate: date(2024, 1, 10)},
			wantErr: ErrInvalidPeriod,
		},
		{
			name:    "inverted pages",
			in:      models.ReadingInput{StartPage: 9, EndPage: 5, StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 2)},
			wantErr: ErrInvalidPageRange,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := Distribute(romanceBook(), tc.in, DefaultProfiles())
			require.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, records)
		})
	}
}

func TestSingleRecord(t *testing.T) {
	day := time.Date(2024, 5, 3, 18, 30, 0, 0, time.UTC)
	in := models.ReadingInput{StartPage: 142, EndPage: 160, TotalMinutes: minutes(25.5)}

	r, err := SingleRecord(romanceBook(), in, day)
	require.NoError(t, err)
	assert.Equal(t, models.OriginSingle, r.Origin)
	assert.Equal(t, 18, r.PagesRead)
	assert.Equal(t, "25:30", r.TimeSpent.String())
	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), r.Date)
	assert.Nil(t, r.StartDate)

	_, err = SingleRecord(romanceBook(), models.ReadingInput{StartPage: 10, EndPage: 9}, day)
	require.ErrorIs(t, err, ErrInvalidPageRange)
}

func TestIsPeriod(t *testing.T) {
	assert.False(t, IsPeriod(models.ReadingInput{}))
	assert.False(t, IsPeriod(models.ReadingInput{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 1)}))
	assert.False(t, IsPeriod(models.ReadingInput{StartDate: date(2024, 1, 1)}))
	assert.True(t, IsPeriod(models.ReadingInput{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 2)}))
}

func TestPagesFor(t *testing.T) {
	assert.Equal(t, 11, PagesFor(models.OriginPeriod, 10, 20))
	assert.Equal(t, 10, PagesFor(models.OriginSingle, 10, 20))
}
