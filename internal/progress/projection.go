package progress

import (
	"math"
	"time"

	"readingtracker/internal/models"
)

// Estimator projects a completion date from a book's reading history
type Estimator interface {
	Estimate(book models.Book, snapshot models.BookStatusSnapshot, records []models.DailyReadingRecord) models.Projection
}

// PaceEstimator extrapolates the average pages per reading day
type PaceEstimator struct {
	now func() time.Time
}

// NewPaceEstimator creates an estimator; a nil clock means time.Now
func NewPaceEstimator(now func() time.Time) *PaceEstimator {
	if now == nil {
		now = time.Now
	}
	return &PaceEstimator{now: now}
}

// Estimate implements Estimator
func (e *PaceEstimator) Estimate(book models.Book, snapshot models.BookStatusSnapshot, records []models.DailyReadingRecord) models.Projection {
	stats := Aggregate(book.Kind, snapshot, records)
	projection := models.Projection{
		PagesPerDay: stats.AvgPagesPerDay,
		ReadingDays: stats.ReadingDays,
	}

	pagesRead := clampPages(max(snapshot.PagesRead, stats.TotalPagesRead), book.TotalPages)
	remaining := book.TotalPages - pagesRead
	if snapshot.Status == models.StatusCompleted || remaining <= 0 {
		return projection
	}
	if stats.ReadingDays == 0 || stats.AvgPagesPerDay <= 0 {
		return projection
	}

	projection.CanShow = true
	projection.DaysRemaining = int(math.Ceil(float64(remaining) / stats.AvgPagesPerDay))
	estimated := models.CalendarDay(e.now()).AddDate(0, 0, projection.DaysRemaining)
	projection.EstimatedDate = &estimated

	if book.GoalDate != nil {
		if delay := models.DaysBetween(estimated, *book.GoalDate); delay > 0 {
			projection.IsDelayed = true
			projection.DelayDays = delay
		}
	}
	return projection
}
