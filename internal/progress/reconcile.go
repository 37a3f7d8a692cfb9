package progress

import "readingtracker/internal/models"

// Mode selects how a new entry moves a book's pages-read counter
type Mode int

const (
	// ModeAccumulate adds the entry's pages to the previous value
	ModeAccumulate Mode = iota
	// ModeRetroactive sets pages read to the entry's end page
	ModeRetroactive
	// ModeAbsolute is used after a period is distributed; the whole range up to the end page is covered
	ModeAbsolute
)

func (m Mode) String() string {
	switch m {
	case ModeRetroactive:
		return "retroactive"
	case ModeAbsolute:
		return "absolute"
	default:
		return "accumulate"
	}
}

// ModeFor picks the update mode of a submission
func ModeFor(in models.ReadingInput) Mode {
	switch {
	case IsPeriod(in):
		return ModeAbsolute
	case in.Retroactive:
		return ModeRetroactive
	default:
		return ModeAccumulate
	}
}

// Apply updates prev with one new entry. The result is Completed once pages
// read reach the book's total and Reading otherwise.
func Apply(book models.Book, prev models.BookStatusSnapshot, mode Mode, in models.ReadingInput) models.BookStatusSnapshot {
	var pagesRead int
	switch mode {
	case ModeAccumulate:
		pagesRead = prev.PagesRead + (in.EndPage - in.StartPage)
	default:
		pagesRead = in.EndPage
	}
	pagesRead = clampPages(pagesRead, book.TotalPages)

	next := prev
	next.BookID = book.ID
	next.PagesRead = pagesRead
	if pagesRead >= book.TotalPages {
		next.Status = models.StatusCompleted
	} else {
		next.Status = models.StatusReading
	}
	return next
}

// Recompute derives the snapshot from a book's complete record history.
// It is the authoritative path and returns the same result for the same records.
func Recompute(book models.Book, records []models.DailyReadingRecord) models.BookStatusSnapshot {
	maxEnd := 0
	for _, r := range records {
		if r.EndPage > maxEnd {
			maxEnd = r.EndPage
		}
	}
	pagesRead := clampPages(maxEnd, book.TotalPages)

	snapshot := models.BookStatusSnapshot{BookID: book.ID, PagesRead: pagesRead}
	switch {
	case pagesRead == 0:
		snapshot.Status = models.StatusNotStarted
	case pagesRead >= book.TotalPages:
		snapshot.Status = models.StatusCompleted
	default:
		snapshot.Status = models.StatusReading
	}
	return snapshot
}

func clampPages(pages, total int) int {
	if pages < 0 {
		return 0
	}
	if total > 0 && pages > total {
		return total
	}
	return pages
}
