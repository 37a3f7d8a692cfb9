package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"readingtracker/internal/models"
	"readingtracker/internal/storage"
	"readingtracker/migrations"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pressly/goose/v3"
)

// ClickHouseDB stores rows in ReplacingMergeTree tables. Updates and deletes
// insert a newer version of the row; every read uses FINAL.
type ClickHouseDB struct {
	conn    clickhouse.Conn
	options *clickhouse.Options

	mu          sync.Mutex
	lastVersion uint64
}

var _ storage.Storage = (*ClickHouseDB)(nil)

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
		DialTimeout: 10 * time.Second,
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn, options: options}, nil
}

// Initialize applies the embedded goose migrations over a database/sql handle
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	fsys, err := migrations.Dir("clickhouse")
	if err != nil {
		return err
	}

	sqlDB := clickhouse.OpenDB(db.options)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectClickHouse, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// nextVersion returns a strictly increasing row version
func (db *ClickHouseDB) nextVersion() uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()

	v := uint64(time.Now().UnixNano())
	if v <= db.lastVersion {
		v = db.lastVersion + 1
	}
	db.lastVersion = v
	return v
}

// CreateBook inserts a new book
func (db *ClickHouseDB) CreateBook(ctx context.Context, book models.Book) error {
	err := db.conn.Exec(ctx,
		`INSERT INTO books (id, title, total_pages, category, kind, goal_date, created_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID, book.Title, int32(book.TotalPages), book.Category, string(book.Kind),
		book.GoalDate, book.CreatedAt.UTC(), db.nextVersion())
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

const bookColumns = `id, title, total_pages, category, kind, goal_date, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (models.Book, error) {
	var (
		book       models.Book
		totalPages int32
		kind       string
	)
	if err := row.Scan(&book.ID, &book.Title, &totalPages, &book.Category, &kind, &book.GoalDate, &book.CreatedAt); err != nil {
		return models.Book{}, err
	}
	book.TotalPages = int(totalPages)
	book.Kind = models.CategoryKind(kind)
	book.GoalDate = utcDate(book.GoalDate)
	book.CreatedAt = book.CreatedAt.UTC()
	return book, nil
}

// GetBook returns one book by id
func (db *ClickHouseDB) GetBook(ctx context.Context, id string) (models.Book, error) {
	rows, err := db.conn.Query(ctx, `SELECT `+bookColumns+` FROM books FINAL WHERE id = ? AND is_deleted = 0`, id)
	if err != nil {
		return models.Book{}, fmt.Errorf("failed to get book: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.Book{}, fmt.Errorf("failed to get book: %w", err)
		}
		return models.Book{}, storage.ErrNotFound
	}
	book, err := scanBook(rows)
	if err != nil {
		return models.Book{}, fmt.Errorf("failed to scan book: %w", err)
	}
	return book, nil
}

// ListBooks returns all books ordered by title
func (db *ClickHouseDB) ListBooks(ctx context.Context) ([]models.Book, error) {
	rows, err := db.conn.Query(ctx, `SELECT `+bookColumns+` FROM books FINAL WHERE is_deleted = 0 ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// DeleteBook writes tombstones for the book, its records and its status
func (db *ClickHouseDB) DeleteBook(ctx context.Context, id string) error {
	if _, err := db.GetBook(ctx, id); err != nil {
		return err
	}

	version := db.nextVersion()
	err := db.conn.Exec(ctx,
		`INSERT INTO reading_records (id, book_id, version, is_deleted)
		 SELECT id, book_id, ?, 1 FROM reading_records FINAL WHERE book_id = ? AND is_deleted = 0`,
		version, id)
	if err != nil {
		return fmt.Errorf("failed to delete records of book: %w", err)
	}
	if err := db.conn.Exec(ctx, `INSERT INTO book_status (book_id, version, is_deleted) VALUES (?, ?, 1)`, id, version); err != nil {
		return fmt.Errorf("failed to delete book status: %w", err)
	}
	if err := db.conn.Exec(ctx, `INSERT INTO books (id, version, is_deleted) VALUES (?, ?, 1)`, id, version); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}

const recordColumns = `id, book_id, seq, submission_id, origin, date, start_page, end_page, pages_read,
	time_spent, start_date, end_date, bible_book, bible_chapter, bible_verse_start, bible_verse_end, created_at`

// InsertRecords sends the batch as a single insert block
func (db *ClickHouseDB) InsertRecords(ctx context.Context, records []models.DailyReadingRecord) error {
	if len(records) == 0 {
		return nil
	}

	checked := make(map[string]bool)
	for _, r := range records {
		if checked[r.BookID] {
			continue
		}
		if _, err := db.GetBook(ctx, r.BookID); err != nil {
			return fmt.Errorf("record %s for book %s: %w", r.ID, r.BookID, err)
		}
		checked[r.BookID] = true
	}

	batch, err := db.conn.PrepareBatch(ctx, `INSERT INTO reading_records (`+recordColumns+`, version)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record batch: %w", err)
	}
	defer batch.Abort()

	for _, r := range records {
		version := db.nextVersion()
		if err := appendRecord(batch, r, version, version); err != nil {
			return fmt.Errorf("failed to append record %s: %w", r.ID, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send record batch: %w", err)
	}
	return nil
}

type appender interface {
	Append(v ...any) error
}

func appendRecord(batch appender, r models.DailyReadingRecord, seq, version uint64) error {
	ref := bibleColumnsOf(r.Bible)
	return batch.Append(
		r.ID, r.BookID, seq, r.SubmissionID, string(r.Origin), r.Date,
		int32(r.StartPage), int32(r.EndPage), int32(r.PagesRead), r.TimeSpent.String(),
		r.StartDate, r.EndDate,
		ref.book, ref.chapter, ref.verseStart, ref.verseEnd,
		r.CreatedAt.UTC(), version,
	)
}

type storedRecord struct {
	models.DailyReadingRecord
	seq uint64
}

func scanRecord(row scanner) (storedRecord, error) {
	var (
		r                             storedRecord
		origin, spent                 string
		startPage, endPage, pagesRead int32
		date                          time.Time
		ref                           bibleColumns
	)
	if err := row.Scan(&r.ID, &r.BookID, &r.seq, &r.SubmissionID, &origin, &date, &startPage, &endPage, &pagesRead,
		&spent, &r.StartDate, &r.EndDate, &ref.book, &ref.chapter, &ref.verseStart, &ref.verseEnd, &r.CreatedAt); err != nil {
		return storedRecord{}, err
	}

	timeSpent, err := models.ParseTimeSpent(spent)
	if err != nil {
		return storedRecord{}, err
	}
	r.SetDate(date)
	r.Origin = models.Origin(origin)
	r.StartPage, r.EndPage, r.PagesRead = int(startPage), int(endPage), int(pagesRead)
	r.TimeSpent = timeSpent
	r.StartDate = utcDate(r.StartDate)
	r.EndDate = utcDate(r.EndDate)
	r.Bible = ref.reference()
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (db *ClickHouseDB) getRecord(ctx context.Context, id string) (storedRecord, error) {
	rows, err := db.conn.Query(ctx, `SELECT `+recordColumns+` FROM reading_records FINAL WHERE id = ? AND is_deleted = 0`, id)
	if err != nil {
		return storedRecord{}, fmt.Errorf("failed to get record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return storedRecord{}, fmt.Errorf("failed to get record: %w", err)
		}
		return storedRecord{}, storage.ErrNotFound
	}
	r, err := scanRecord(rows)
	if err != nil {
		return storedRecord{}, fmt.Errorf("failed to scan record: %w", err)
	}
	return r, nil
}

// GetRecord returns one record by id
func (db *ClickHouseDB) GetRecord(ctx context.Context, id string) (models.DailyReadingRecord, error) {
	r, err := db.getRecord(ctx, id)
	if err != nil {
		return models.DailyReadingRecord{}, err
	}
	return r.DailyReadingRecord, nil
}

// UpdateRecord inserts a newer version of the record in its original position
func (db *ClickHouseDB) UpdateRecord(ctx context.Context, record models.DailyReadingRecord) error {
	existing, err := db.getRecord(ctx, record.ID)
	if err != nil {
		return err
	}
	record.BookID = existing.BookID

	batch, err := db.conn.PrepareBatch(ctx, `INSERT INTO reading_records (`+recordColumns+`, version)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record update: %w", err)
	}
	defer batch.Abort()

	if err := appendRecord(batch, record, existing.seq, db.nextVersion()); err != nil {
		return fmt.Errorf("failed to append record %s: %w", record.ID, err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return nil
}

// DeleteRecord writes a tombstone for the record
func (db *ClickHouseDB) DeleteRecord(ctx context.Context, id string) error {
	existing, err := db.getRecord(ctx, id)
	if err != nil {
		return err
	}
	err = db.conn.Exec(ctx, `INSERT INTO reading_records (id, book_id, version, is_deleted) VALUES (?, ?, ?, 1)`,
		id, existing.BookID, db.nextVersion())
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// ListRecords returns a book's records in insertion order
func (db *ClickHouseDB) ListRecords(ctx context.Context, bookID string) ([]models.DailyReadingRecord, error) {
	rows, err := db.conn.Query(ctx,
		`SELECT `+recordColumns+` FROM reading_records FINAL WHERE book_id = ? AND is_deleted = 0 ORDER BY seq`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []models.DailyReadingRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r.DailyReadingRecord)
	}
	return records, rows.Err()
}

// CountRecordsBySubmission counts the records a submission already wrote
func (db *ClickHouseDB) CountRecordsBySubmission(ctx context.Context, bookID, submissionID string) (int, error) {
	var n uint64
	err := db.conn.QueryRow(ctx,
		`SELECT count() FROM reading_records FINAL WHERE book_id = ? AND submission_id = ? AND is_deleted = 0`,
		bookID, submissionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int(n), nil
}

// GetStatus returns the status snapshot of a book
func (db *ClickHouseDB) GetStatus(ctx context.Context, bookID string) (models.BookStatusSnapshot, error) {
	rows, err := db.conn.Query(ctx,
		`SELECT book_id, pages_read, status, last_submission_id, updated_at
		 FROM book_status FINAL WHERE book_id = ? AND is_deleted = 0`, bookID)
	if err != nil {
		return models.BookStatusSnapshot{}, fmt.Errorf("failed to get status: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.BookStatusSnapshot{}, fmt.Errorf("failed to get status: %w", err)
		}
		return models.BookStatusSnapshot{}, storage.ErrNotFound
	}

	var (
		snapshot  models.BookStatusSnapshot
		pagesRead int32
		status    string
	)
	if err := rows.Scan(&snapshot.BookID, &pagesRead, &status, &snapshot.LastSubmissionID, &snapshot.UpdatedAt); err != nil {
		return models.BookStatusSnapshot{}, fmt.Errorf("failed to scan status: %w", err)
	}
	snapshot.PagesRead = int(pagesRead)
	snapshot.Status = models.Status(status)
	snapshot.UpdatedAt = snapshot.UpdatedAt.UTC()
	return snapshot, nil
}

// UpsertStatus writes a newer version of the status row
func (db *ClickHouseDB) UpsertStatus(ctx context.Context, snapshot models.BookStatusSnapshot) error {
	if _, err := db.GetBook(ctx, snapshot.BookID); err != nil {
		return fmt.Errorf("status for book %s: %w", snapshot.BookID, err)
	}
	err := db.conn.Exec(ctx,
		`INSERT INTO book_status (book_id, pages_read, status, last_submission_id, updated_at, version)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snapshot.BookID, int32(snapshot.PagesRead), string(snapshot.Status), snapshot.LastSubmissionID,
		snapshot.UpdatedAt.UTC(), db.nextVersion())
	if err != nil {
		return fmt.Errorf("failed to upsert status: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func utcDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := models.CalendarDay(*t)
	return &d
}

type bibleColumns struct {
	book       string
	chapter    int32
	verseStart int32
	verseEnd   int32
}

func bibleColumnsOf(ref *models.BibleReference) bibleColumns {
	if ref == nil {
		return bibleColumns{}
	}
	return bibleColumns{
		book:       ref.Book,
		chapter:    int32(ref.Chapter),
		verseStart: int32(ref.VerseStart),
		verseEnd:   int32(ref.VerseEnd),
	}
}

func (c bibleColumns) reference() *models.BibleReference {
	if c.book == "" {
		return nil
	}
	return &models.BibleReference{
		Book:       c.book,
		Chapter:    int(c.chapter),
		VerseStart: int(c.verseStart),
		VerseEnd:   int(c.verseEnd),
	}
}
