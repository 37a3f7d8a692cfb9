package progress

import (
	"errors"
	"fmt"
	"math"
	"time"

	"readingtracker/internal/models"
)

var (
	ErrInvalidPeriod    = errors.New("invalid reading period")
	ErrInvalidPageRange = errors.New("invalid page range")
)

// IsPeriod reports whether in spans more than one calendar day.
// Equal or absent dates are a single-day entry.
func IsPeriod(in models.ReadingInput) bool {
	return in.StartDate != nil && in.EndDate != nil && !models.SameDay(*in.StartDate, *in.EndDate)
}

// ValidatePages checks the record invariant before anything is written
func ValidatePages(startPage, endPage int) error {
	if startPage < 0 {
		return fmt.Errorf("%w: start page %d is negative", ErrInvalidPageRange, startPage)
	}
	if endPage < startPage {
		return fmt.Errorf("%w: end page %d is before start page %d", ErrInvalidPageRange, endPage, startPage)
	}
	return nil
}

// Distribute expands a period submission into one record per calendar day.
//
// Pages are split evenly (pagesPerDay is not rounded) and day i covers
// floor(start+ppd*i) .. floor(start+ppd*(i+1))-1; the last day always ends on
// in.EndPage. Period page counts include the starting page. Time is the
// supplied total spread evenly, or an estimate from the category profile.
func Distribute(book models.Book, in models.ReadingInput, profiles TimeProfiles) ([]models.DailyReadingRecord, error) {
	if in.StartDate == nil || in.EndDate == nil {
		return nil, fmt.Errorf("%w: start and end dates are required", ErrInvalidPeriod)
	}
	if err := ValidatePages(in.StartPage, in.EndPage); err != nil {
		return nil, err
	}

	totalDays := models.DaysBetween(*in.EndDate, *in.StartDate) + 1
	if totalDays < 1 {
		return nil, fmt.Errorf("%w: end date %s is before start date %s",
			ErrInvalidPeriod, in.EndDate.Format(time.DateOnly), in.StartDate.Format(time.DateOnly))
	}

	totalPagesInPeriod := in.EndPage - in.StartPage + 1
	pagesPerDay := float64(totalPagesInPeriod) / float64(totalDays)

	var minutesPerDay float64
	if in.TotalMinutes != nil && *in.TotalMinutes > 0 {
		minutesPerDay = *in.TotalMinutes / float64(totalDays)
	} else {
		minutesPerDay = pagesPerDay * profiles.AverageMinutesPerPage(book.Category)
	}
	timePerDay := models.TimeFromMinutes(minutesPerDay)

	// bounds[k] is the first page of day k
	bounds := make([]int, totalDays+1)
	for k := 0; k < totalDays; k++ {
		bounds[k] = int(math.Floor(float64(in.StartPage) + pagesPerDay*float64(k)))
	}
	bounds[totalDays] = in.EndPage + 1

	firstDay := models.CalendarDay(*in.StartDate)
	records := make([]models.DailyReadingRecord, 0, totalDays)
	for i := 0; i < totalDays; i++ {
		startPage := bounds[i]
		endPage := min(bounds[i+1]-1, in.EndPage)
		if i == totalDays-1 {
			endPage = in.EndPage
		}
		pagesRead := endPage - startPage + 1
		if endPage < startPage {
			// less than one page per day leaves some days empty
			endPage, pagesRead = startPage, 0
		}

		day := firstDay.AddDate(0, 0, i)
		startDate, endDate := day, day
		record := models.DailyReadingRecord{
			BookID:    book.ID,
			Origin:    models.OriginPeriod,
			StartPage: startPage,
			EndPage:   endPage,
			PagesRead: pagesRead,
			TimeSpent: timePerDay,
			StartDate: &startDate,
			EndDate:   &endDate,
			Bible:     copyBible(in.Bible),
		}
		record.SetDate(day)
		records = append(records, record)
	}
	return records, nil
}

// SingleRecord converts a single-day submission into its record.
// Single-day page counts exclude the starting page (end - start).
func SingleRecord(book models.Book, in models.ReadingInput, day time.Time) (models.DailyReadingRecord, error) {
	if err := ValidatePages(in.StartPage, in.EndPage); err != nil {
		return models.DailyReadingRecord{}, err
	}

	var spent models.TimeSpent
	if in.TotalMinutes != nil {
		spent = models.TimeFromMinutes(*in.TotalMinutes)
	}

	record := models.DailyReadingRecord{
		BookID:    book.ID,
		Origin:    models.OriginSingle,
		StartPage: in.StartPage,
		EndPage:   in.EndPage,
		PagesRead: in.EndPage - in.StartPage,
		TimeSpent: spent,
		Bible:     copyBible(in.Bible),
	}
	if in.StartDate != nil {
		d := models.CalendarDay(*in.StartDate)
		record.StartDate = &d
		end := d
		record.EndDate = &end
	}
	record.SetDate(day)
	return record, nil
}

// PagesFor recomputes a record's page count with the rule of its origin
func PagesFor(origin models.Origin, startPage, endPage int) int {
	if origin == models.OriginPeriod {
		return endPage - startPage + 1
	}
	return endPage - startPage
}

func copyBible(ref *models.BibleReference) *models.BibleReference {
	if ref == nil {
		return nil
	}
	c := *ref
	return &c
}
