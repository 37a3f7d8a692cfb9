package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readingtracker/internal/models"
)

func record(id string, day time.Time, start, end, pages int, spent models.TimeSpent, ref *models.BibleReference) models.DailyReadingRecord {
	r := models.DailyReadingRecord{ID: id, StartPage: start, EndPage: end, PagesRead: pages, TimeSpent: spent, Bible: ref}
	r.SetDate(day)
	return r
}

func TestGroupDays_NonBibleReversesInsertionOrder(t *testing.T) {
	records := []models.DailyReadingRecord{
		record("a", *date(2024, 3, 1), 0, 10, 10, 600, nil),
		record("b", *date(2024, 3, 1), 10, 25, 15, 900, nil),
		record("c", *date(2024, 2, 28), 25, 30, 5, 300, nil),
	}

	days := GroupDays(records, models.CategoryGeneral)
	require.Len(t, days, 3)
	assert.Equal(t, []string{"c"}, days[0].RecordIDs)
	assert.Equal(t, []string{"b"}, days[1].RecordIDs)
	assert.Equal(t, []string{"a"}, days[2].RecordIDs)
	assert.Equal(t, 15, days[1].PagesRead)
}

func TestGroupDays_BibleMergesSameDay(t *testing.T) {
	gen1 := &models.BibleReference{Book: "Gênesis", Chapter: 1}
	gen2 := &models.BibleReference{Book: "Gênesis", Chapter: 2}
	psalm := &models.BibleReference{Book: "Salmos", Chapter: 23}

	records := []models.DailyReadingRecord{
		record("a", *date(2024, 3, 1), 1, 3, 2, 300, gen1),
		record("b", *date(2024, 3, 2), 9, 10, 1, 120, psalm),
		record("c", *date(2024, 3, 1), 3, 5, 2, 180, gen2),
	}

	days := GroupDays(records, models.CategoryBible)
	require.Len(t, days, 2)

	assert.Equal(t, 2, days[0].Day, "newest date first")
	assert.Equal(t, []string{"b"}, days[0].RecordIDs)

	merged := days[1]
	assert.Equal(t, 1, merged.StartPage)
	assert.Equal(t, 5, merged.EndPage)
	assert.Equal(t, 4, merged.PagesRead)
	assert.Equal(t, models.TimeSpent(300), merged.TimeSpent, "time is the max of the day, not the sum")
	assert.Equal(t, []models.BibleReference{*gen1, *gen2}, merged.Passages)
	assert.Equal(t, []string{"a", "c"}, merged.RecordIDs)
}

func TestGroupDays_BibleSortsAcrossYears(t *testing.T) {
	records := []models.DailyReadingRecord{
		record("dec", *date(2023, 12, 31), 1, 2, 1, 60, nil),
		record("jan", *date(2024, 1, 1), 2, 3, 1, 60, nil),
		record("nov", *date(2024, 11, 5), 3, 4, 1, 60, nil),
	}

	days := GroupDays(records, models.CategoryBible)
	require.Len(t, days, 3)
	assert.Equal(t, "nov", days[0].RecordIDs[0])
	assert.Equal(t, "jan", days[1].RecordIDs[0])
	assert.Equal(t, "dec", days[2].RecordIDs[0])
}

func TestGroupDays_Empty(t *testing.T) {
	assert.Empty(t, GroupDays(nil, models.CategoryGeneral))
	assert.Empty(t, GroupDays(nil, models.CategoryBible))
}
