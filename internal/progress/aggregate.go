package progress

import "readingtracker/internal/models"

// Aggregate computes a book's statistics from its records.
//
// For Bible books each calendar date counts once, with the highest time
// recorded that day; other books count every record as one reading day and
// sum all times. Total pages is the highest end page, or the snapshot's
// value when there are no records yet.
func Aggregate(kind models.CategoryKind, snapshot models.BookStatusSnapshot, records []models.DailyReadingRecord) models.AggregatedStats {
	var stats models.AggregatedStats

	if kind == models.CategoryBible {
		perDay := make(map[string]models.TimeSpent)
		for _, r := range records {
			key := r.Date.Format("2006-01-02")
			if current, ok := perDay[key]; !ok || r.TimeSpent > current {
				perDay[key] = r.TimeSpent
			}
		}
		for _, t := range perDay {
			stats.TotalTimeSeconds += t.Seconds()
		}
		stats.ReadingDays = len(perDay)
	} else {
		for _, r := range records {
			stats.TotalTimeSeconds += r.TimeSpent.Seconds()
		}
		stats.ReadingDays = len(records)
	}

	if len(records) == 0 {
		stats.TotalPagesRead = snapshot.PagesRead
	} else {
		for _, r := range records {
			stats.TotalPagesRead = max(stats.TotalPagesRead, r.EndPage)
		}
	}

	if stats.ReadingDays > 0 {
		stats.AvgPagesPerDay = float64(stats.TotalPagesRead) / float64(stats.ReadingDays)
	}
	if stats.TotalTimeSeconds > 0 {
		stats.PagesPerMinute = float64(stats.TotalPagesRead) / (float64(stats.TotalTimeSeconds) / 60)
	}
	return stats
}
