// Package sqlite provides a SQLite-backed storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"readingtracker/internal/models"
	"readingtracker/internal/storage"
	"readingtracker/migrations"
)

const dateLayout = time.DateOnly

// ErrAlreadyExists is returned when a primary key is reused
var ErrAlreadyExists = errors.New("already exists")

// Store persists books, records and status snapshots in SQLite
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Storage = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database file at path. Migrations run in Initialize.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer keeps batch transactions from hitting SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Initialize applies the embedded goose migrations
func (s *Store) Initialize(ctx context.Context) error {
	fsys, err := migrations.Dir("sqlite")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateBook inserts one book
func (s *Store) CreateBook(ctx context.Context, book models.Book) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO books (id, title, total_pages, category, kind, goal_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		book.ID, book.Title, book.TotalPages, book.Category, string(book.Kind),
		formatDate(book.GoalDate), toMillis(book.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("book %s: %w", book.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

const bookColumns = `id, title, total_pages, category, kind, goal_date, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (models.Book, error) {
	var (
		book      models.Book
		kind      string
		goalDate  sql.NullString
		createdAt int64
	)
	if err := row.Scan(&book.ID, &book.Title, &book.TotalPages, &book.Category, &kind, &goalDate, &createdAt); err != nil {
		return models.Book{}, err
	}
	book.Kind = models.CategoryKind(kind)
	book.CreatedAt = fromMillis(createdAt)
	goal, err := parseDate(goalDate)
	if err != nil {
		return models.Book{}, err
	}
	book.GoalDate = goal
	return book, nil
}

// GetBook returns one book by id
func (s *Store) GetBook(ctx context.Context, id string) (models.Book, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Book{}, storage.ErrNotFound
		}
		return models.Book{}, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// ListBooks returns every book ordered by title
func (s *Store) ListBooks(ctx context.Context) ([]models.Book, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

// DeleteBook removes a book; records and status go with it through foreign keys
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return expectOneRow(res)
}

const recordColumns = `id, book_id, submission_id, origin, date, start_page, end_page, pages_read,
	time_spent, start_date, end_date, bible_book, bible_chapter, bible_verse_start, bible_verse_end, created_at`

// InsertRecords writes the batch in a single transaction
func (s *Store) InsertRecords(ctx context.Context, records []models.DailyReadingRecord) (err error) {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert records: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reading_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert records: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		ref := bibleColumnsOf(r.Bible)
		_, err = stmt.ExecContext(ctx,
			r.ID, r.BookID, r.SubmissionID, string(r.Origin), r.Date.Format(dateLayout),
			r.StartPage, r.EndPage, r.PagesRead, r.TimeSpent.String(),
			formatDate(r.StartDate), formatDate(r.EndDate),
			ref.book, ref.chapter, ref.verseStart, ref.verseEnd,
			toMillis(r.CreatedAt),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("record %s for book %s: %w", r.ID, r.BookID, storage.ErrNotFound)
			}
			if isUniqueViolation(err) {
				return fmt.Errorf("record %s: %w", r.ID, ErrAlreadyExists)
			}
			return fmt.Errorf("insert record %s: %w", r.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit insert records: %w", err)
	}
	return nil
}

func scanRecord(row scanner) (models.DailyReadingRecord, error) {
	var (
		r                  models.DailyReadingRecord
		origin, date       string
		spent              string
		startDate, endDate sql.NullString
		ref                bibleColumns
		createdAt          int64
	)
	if err := row.Scan(&r.ID, &r.BookID, &r.SubmissionID, &origin, &date, &r.StartPage, &r.EndPage, &r.PagesRead,
		&spent, &startDate, &endDate, &ref.book, &ref.chapter, &ref.verseStart, &ref.verseEnd, &createdAt); err != nil {
		return models.DailyReadingRecord{}, err
	}

	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return models.DailyReadingRecord{}, fmt.Errorf("parse record date %q: %w", date, err)
	}
	r.SetDate(day)
	r.Origin = models.Origin(origin)
	if r.TimeSpent, err = models.ParseTimeSpent(spent); err != nil {
		return models.DailyReadingRecord{}, err
	}
	if r.StartDate, err = parseDate(startDate); err != nil {
		return models.DailyReadingRecord{}, err
	}
	if r.EndDate, err = parseDate(endDate); err != nil {
		return models.DailyReadingRecord{}, err
	}
	r.Bible = ref.reference()
	r.CreatedAt = fromMillis(createdAt)
	return r, nil
}

// GetRecord returns one record by id
func (s *Store) GetRecord(ctx context.Context, id string) (models.DailyReadingRecord, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM reading_records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DailyReadingRecord{}, storage.ErrNotFound
		}
		return models.DailyReadingRecord{}, fmt.Errorf("get record: %w", err)
	}
	return r, nil
}

// UpdateRecord rewrites the editable columns of a record
func (s *Store) UpdateRecord(ctx context.Context, r models.DailyReadingRecord) error {
	ref := bibleColumnsOf(r.Bible)
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE reading_records SET
		   date = ?, start_page = ?, end_page = ?, pages_read = ?, time_spent = ?,
		   start_date = ?, end_date = ?,
		   bible_book = ?, bible_chapter = ?, bible_verse_start = ?, bible_verse_end = ?
		 WHERE id = ?`,
		r.Date.Format(dateLayout), r.StartPage, r.EndPage, r.PagesRead, r.TimeSpent.String(),
		formatDate(r.StartDate), formatDate(r.EndDate),
		ref.book, ref.chapter, ref.verseStart, ref.verseEnd,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return expectOneRow(res)
}

// DeleteRecord removes one record
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM reading_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return expectOneRow(res)
}

// ListRecords returns a book's records in insertion order
func (s *Store) ListRecords(ctx context.Context, bookID string) ([]models.DailyReadingRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM reading_records WHERE book_id = ? ORDER BY seq`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []models.DailyReadingRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// CountRecordsBySubmission counts the records a submission already wrote
func (s *Store) CountRecordsBySubmission(ctx context.Context, bookID, submissionID string) (int, error) {
	var n int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reading_records WHERE book_id = ? AND submission_id = ?`,
		bookID, submissionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// GetStatus returns the status snapshot of a book
func (s *Store) GetStatus(ctx context.Context, bookID string) (models.BookStatusSnapshot, error) {
	var (
		snapshot  models.BookStatusSnapshot
		status    string
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT book_id, pages_read, status, last_submission_id, updated_at FROM book_status WHERE book_id = ?`,
		bookID,
	).Scan(&snapshot.BookID, &snapshot.PagesRead, &status, &snapshot.LastSubmissionID, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.BookStatusSnapshot{}, storage.ErrNotFound
		}
		return models.BookStatusSnapshot{}, fmt.Errorf("get status: %w", err)
	}
	snapshot.Status = models.Status(status)
	snapshot.UpdatedAt = fromMillis(updatedAt)
	return snapshot, nil
}

// UpsertStatus creates or replaces the status snapshot of a book
func (s *Store) UpsertStatus(ctx context.Context, snapshot models.BookStatusSnapshot) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO book_status (book_id, pages_read, status, last_submission_id, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (book_id) DO UPDATE SET
		   pages_read = excluded.pages_read,
		   status = excluded.status,
		   last_submission_id = excluded.last_submission_id,
		   updated_at = excluded.updated_at`,
		snapshot.BookID, snapshot.PagesRead, string(snapshot.Status), snapshot.LastSubmissionID, toMillis(snapshot.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("status for book %s: %w", snapshot.BookID, storage.ErrNotFound)
		}
		return fmt.Errorf("upsert status: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDate(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v.String)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", v.String, err)
	}
	return &t, nil
}

type bibleColumns struct {
	book       string
	chapter    int
	verseStart int
	verseEnd   int
}

func bibleColumnsOf(ref *models.BibleReference) bibleColumns {
	if ref == nil {
		return bibleColumns{}
	}
	return bibleColumns{book: ref.Book, chapter: ref.Chapter, verseStart: ref.VerseStart, verseEnd: ref.VerseEnd}
}

func (c bibleColumns) reference() *models.BibleReference {
	if c.book == "" {
		return nil
	}
	return &models.BibleReference{Book: c.book, Chapter: c.chapter, VerseStart: c.verseStart, VerseEnd: c.verseEnd}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
