package storage

import (
	"context"
	"errors"

	"readingtracker/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// BookStore persists the book catalogue
type BookStore interface {
	CreateBook(ctx context.Context, book models.Book) error
	GetBook(ctx context.Context, id string) (models.Book, error)
	// ListBooks returns all books ordered by title
	ListBooks(ctx context.Context) ([]models.Book, error)
	// DeleteBook removes the book together with its records and status
	DeleteBook(ctx context.Context, id string) error
}

// RecordStore persists daily reading records
type RecordStore interface {
	// InsertRecords stores a batch of records; either all of them are written or none
	InsertRecords(ctx context.Context, records []models.DailyReadingRecord) error
	GetRecord(ctx context.Context, id string) (models.DailyReadingRecord, error)
	UpdateRecord(ctx context.Context, record models.DailyReadingRecord) error
	DeleteRecord(ctx context.Context, id string) error
	// ListRecords returns the records of a book in insertion order
	ListRecords(ctx context.Context, bookID string) ([]models.DailyReadingRecord, error)
	// CountRecordsBySubmission returns how many records a submission has already produced
	CountRecordsBySubmission(ctx context.Context, bookID, submissionID string) (int, error)
}

// StatusStore persists the cumulative status snapshot of each book
type StatusStore interface {
	GetStatus(ctx context.Context, bookID string) (models.BookStatusSnapshot, error)
	UpsertStatus(ctx context.Context, snapshot models.BookStatusSnapshot) error
}

// Storage defines the interface for data storage operations
type Storage interface {
	BookStore
	RecordStore
	StatusStore

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
