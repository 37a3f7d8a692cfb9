package progress

import (
	"sort"

	"readingtracker/internal/models"
)

// GroupDays consolidates a book's records into display entries.
//
// Non-Bible books get one entry per record, newest insertion first. Bible
// books get one entry per calendar date: lowest start page, highest end page,
// summed pages, the highest time of the day and every passage read that day.
// Bible entries are sorted by date, newest first.
func GroupDays(records []models.DailyReadingRecord, kind models.CategoryKind) []models.ReadingDay {
	if kind != models.CategoryBible {
		days := make([]models.ReadingDay, 0, len(records))
		for i := len(records) - 1; i >= 0; i-- {
			days = append(days, dayFromRecord(records[i]))
		}
		return days
	}

	index := make(map[string]int)
	var days []models.ReadingDay
	for _, r := range records {
		key := r.Date.Format("2006-01-02")
		pos, ok := index[key]
		if !ok {
			index[key] = len(days)
			days = append(days, dayFromRecord(r))
			continue
		}

		d := &days[pos]
		d.StartPage = min(d.StartPage, r.StartPage)
		d.EndPage = max(d.EndPage, r.EndPage)
		d.PagesRead += r.PagesRead
		d.TimeSpent = max(d.TimeSpent, r.TimeSpent)
		if r.Bible != nil {
			d.Passages = append(d.Passages, *r.Bible)
		}
		d.RecordIDs = append(d.RecordIDs, r.ID)
	}

	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})
	return days
}

func dayFromRecord(r models.DailyReadingRecord) models.ReadingDay {
	d := models.ReadingDay{
		Date:       r.Date,
		Day:        r.Day,
		MonthLabel: r.MonthLabel,
		StartPage:  r.StartPage,
		EndPage:    r.EndPage,
		PagesRead:  r.PagesRead,
		TimeSpent:  r.TimeSpent,
		RecordIDs:  []string{r.ID},
	}
	if r.Bible != nil {
		d.Passages = []models.BibleReference{*r.Bible}
	}
	return d
}
