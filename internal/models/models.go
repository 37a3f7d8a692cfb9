package models

import "time"

// Book represents a book in the library
type Book struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	TotalPages int          `json:"total_pages"`
	Category   string       `json:"category"`
	Kind       CategoryKind `json:"kind"`
	GoalDate   *time.Time   `json:"goal_date,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// IsBible reports whether the book follows the per-day merge rules of Bible readings
func (b Book) IsBible() bool {
	return b.Kind == CategoryBible
}

// CreateBookInput is what a user provides when registering a book
type CreateBookInput struct {
	Title      string     `json:"title"`
	TotalPages int        `json:"total_pages"`
	Category   string     `json:"category"`
	GoalDate   *time.Time `json:"goal_date,omitempty"`
}

// ReadingInput is a raw reading submission. It is never stored as-is.
type ReadingInput struct {
	BookID       string          `json:"book_id"`
	StartPage    int             `json:"start_page"`
	EndPage      int             `json:"end_page"`
	TotalMinutes *float64        `json:"total_minutes,omitempty"`
	StartDate    *time.Time      `json:"start_date,omitempty"`
	EndDate      *time.Time      `json:"end_date,omitempty"`
	Bible        *BibleReference `json:"bible,omitempty"`
	Retroactive  bool            `json:"retroactive"`
	SubmissionID string          `json:"submission_id,omitempty"`
}

// Origin tells which write path produced a record
type Origin string

const (
	OriginSingle Origin = "single"
	OriginPeriod Origin = "period"
)

// DailyReadingRecord is the persisted unit: one book, one calendar day.
// EndPage is never lower than StartPage.
type DailyReadingRecord struct {
	ID           string          `json:"id"`
	BookID       string          `json:"book_id"`
	SubmissionID string          `json:"submission_id"`
	Origin       Origin          `json:"origin"`
	Date         time.Time       `json:"date"`
	Day          int             `json:"day"`
	MonthLabel   string          `json:"month_label"`
	StartPage    int             `json:"start_page"`
	EndPage      int             `json:"end_page"`
	PagesRead    int             `json:"pages_read"`
	TimeSpent    TimeSpent       `json:"time_spent"`
	StartDate    *time.Time      `json:"start_date,omitempty"`
	EndDate      *time.Time      `json:"end_date,omitempty"`
	Bible        *BibleReference `json:"bible,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RecordUpdate carries the editable fields of an existing record
type RecordUpdate struct {
	StartPage    int             `json:"start_page"`
	EndPage      int             `json:"end_page"`
	TotalMinutes *float64        `json:"total_minutes,omitempty"`
	Date         *time.Time      `json:"date,omitempty"`
	Bible        *BibleReference `json:"bible,omitempty"`
}

// Status is the lifecycle state of a book
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusReading    Status = "reading"
	StatusCompleted  Status = "completed"
)

// BookStatusSnapshot is the single cumulative status row of a book
type BookStatusSnapshot struct {
	BookID           string    `json:"book_id"`
	PagesRead        int       `json:"pages_read"`
	Status           Status    `json:"status"`
	LastSubmissionID string    `json:"last_submission_id,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AggregatedStats is derived from the record set on every read and never persisted
type AggregatedStats struct {
	TotalPagesRead   int     `json:"total_pages_read"`
	TotalTimeSeconds int     `json:"total_time_seconds"`
	ReadingDays      int     `json:"reading_days"`
	AvgPagesPerDay   float64 `json:"avg_pages_per_day"`
	PagesPerMinute   float64 `json:"pages_per_minute"`
}

// ReadingDay is one display entry produced by grouping records
type ReadingDay struct {
	Date       time.Time        `json:"date"`
	Day        int              `json:"day"`
	MonthLabel string           `json:"month_label"`
	StartPage  int              `json:"start_page"`
	EndPage    int              `json:"end_page"`
	PagesRead  int              `json:"pages_read"`
	TimeSpent  TimeSpent        `json:"time_spent"`
	Passages   []BibleReference `json:"passages,omitempty"`
	RecordIDs  []string         `json:"record_ids"`
}

// Projection is the estimated completion of a book
type Projection struct {
	CanShow       bool       `json:"can_show"`
	PagesPerDay   float64    `json:"pages_per_day"`
	DaysRemaining int        `json:"days_remaining"`
	EstimatedDate *time.Time `json:"estimated_date,omitempty"`
	IsDelayed     bool       `json:"is_delayed"`
	DelayDays     int        `json:"delay_days"`
	ReadingDays   int        `json:"reading_days"`
}

// BookReport bundles everything shown for a book's progress
type BookReport struct {
	Book       Book               `json:"book"`
	Status     BookStatusSnapshot `json:"status"`
	Stats      AggregatedStats    `json:"stats"`
	Projection Projection         `json:"projection"`
}
