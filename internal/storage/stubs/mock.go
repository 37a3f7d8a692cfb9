package stubs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"readingtracker/internal/models"
	"readingtracker/internal/storage"
)

// MockDB is an in-memory implementation of storage.Storage for testing
type MockDB struct {
	mu       sync.RWMutex
	books    map[string]models.Book
	records  map[string]models.DailyReadingRecord
	statuses map[string]models.BookStatusSnapshot
	// seq preserves insertion order of records
	seq   map[string]int
	nextN int

	// FailInsert, when set, is returned by InsertRecords
	FailInsert error
	// FailUpsert, when set, is returned by UpsertStatus
	FailUpsert error
}

var _ storage.Storage = (*MockDB)(nil)

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		books:    make(map[string]models.Book),
		records:  make(map[string]models.DailyReadingRecord),
		statuses: make(map[string]models.BookStatusSnapshot),
		seq:      make(map[string]int),
	}
}

// Initialize does nothing for mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// CreateBook stores a new book
func (m *MockDB) CreateBook(ctx context.Context, book models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.books[book.ID]; exists {
		return fmt.Errorf("book %s already exists", book.ID)
	}
	m.books[book.ID] = book
	return nil
}

// GetBook returns a book by id
func (m *MockDB) GetBook(ctx context.Context, id string) (models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	book, ok := m.books[id]
	if !ok {
		return models.Book{}, storage.ErrNotFound
	}
	return book, nil
}

// ListBooks returns all books sorted by title
func (m *MockDB) ListBooks(ctx context.Context) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	books := make([]models.Book, 0, len(m.books))
	for _, book := range m.books {
		books = append(books, book)
	}

	sort.Slice(books, func(i, j int) bool {
		if books[i].Title != books[j].Title {
			return books[i].Title < books[j].Title
		}
		return books[i].ID < books[j].ID
	})

	return books, nil
}

// DeleteBook removes a book with its records and status
func (m *MockDB) DeleteBook(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.books, id)
	delete(m.statuses, id)
	for rid, r := range m.records {
		if r.BookID == id {
			delete(m.records, rid)
			delete(m.seq, rid)
		}
	}
	return nil
}

// InsertRecords stores the whole batch or nothing
func (m *MockDB) InsertRecords(ctx context.Context, records []models.DailyReadingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailInsert != nil {
		return m.FailInsert
	}
	for _, r := range records {
		if _, ok := m.books[r.BookID]; !ok {
			return fmt.Errorf("record %s: %w", r.ID, storage.ErrNotFound)
		}
		if _, exists := m.records[r.ID]; exists {
			return fmt.Errorf("record %s already exists", r.ID)
		}
	}
	for _, r := range records {
		m.records[r.ID] = r
		m.seq[r.ID] = m.nextN
		m.nextN++
	}
	return nil
}

// GetRecord returns a record by id
func (m *MockDB) GetRecord(ctx context.Context, id string) (models.DailyReadingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return models.DailyReadingRecord{}, storage.ErrNotFound
	}
	return r, nil
}

// UpdateRecord replaces an existing record, keeping its position
func (m *MockDB) UpdateRecord(ctx context.Context, record models.DailyReadingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[record.ID]; !ok {
		return storage.ErrNotFound
	}
	m.records[record.ID] = record
	return nil
}

// DeleteRecord removes a record
func (m *MockDB) DeleteRecord(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.records, id)
	delete(m.seq, id)
	return nil
}

// ListRecords returns a book's records in insertion order
func (m *MockDB) ListRecords(ctx context.Context, bookID string) ([]models.DailyReadingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []models.DailyReadingRecord
	for _, r := range m.records {
		if r.BookID == bookID {
			records = append(records, r)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return m.seq[records[i].ID] < m.seq[records[j].ID]
	})

	return records, nil
}

// CountRecordsBySubmission counts records written by one submission
func (m *MockDB) CountRecordsBySubmission(ctx context.Context, bookID, submissionID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, r := range m.records {
		if r.BookID == bookID && r.SubmissionID == submissionID {
			count++
		}
	}
	return count, nil
}

// GetStatus returns the status snapshot of a book
func (m *MockDB) GetStatus(ctx context.Context, bookID string) (models.BookStatusSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.statuses[bookID]
	if !ok {
		return models.BookStatusSnapshot{}, storage.ErrNotFound
	}
	return s, nil
}

// UpsertStatus creates or replaces the status snapshot of a book
func (m *MockDB) UpsertStatus(ctx context.Context, snapshot models.BookStatusSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUpsert != nil {
		return m.FailUpsert
	}
	if _, ok := m.books[snapshot.BookID]; !ok {
		return storage.ErrNotFound
	}
	m.statuses[snapshot.BookID] = snapshot
	return nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
