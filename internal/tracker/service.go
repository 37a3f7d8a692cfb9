// Package tracker runs the write and read paths of reading progress on top of
// a storage backend: validation, period or single-day dispatch, status updates
// and the derived reports.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"readingtracker/internal/models"
	"readingtracker/internal/progress"
	"readingtracker/internal/storage"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrRecordNotFound = errors.New("reading record not found")
	ErrValidation     = errors.New("validation failed")

	ErrInvalidPageRange = progress.ErrInvalidPageRange
	ErrInvalidPeriod    = progress.ErrInvalidPeriod
)

// Service coordinates books, reading records and status snapshots
type Service struct {
	store     storage.Storage
	profiles  progress.TimeProfiles
	estimator progress.Estimator
	logger    *zap.Logger
	now       func() time.Time

	locksMu sync.Mutex
	locks   map[string]*bookLock
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithEstimator replaces the default pace estimator
func WithEstimator(e progress.Estimator) Option {
	return func(s *Service) {
		s.estimator = e
	}
}

// New creates a Service
func New(store storage.Storage, profiles progress.TimeProfiles, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		profiles: profiles,
		logger:   logger,
		now:      time.Now,
		locks:    make(map[string]*bookLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.estimator == nil {
		s.estimator = progress.NewPaceEstimator(s.now)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// bookLock is dropped from the map once nobody holds or waits for it
type bookLock struct {
	mu   sync.Mutex
	refs int
}

// lockBook serializes writes for one book and returns the unlock func
func (s *Service) lockBook(bookID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[bookID]
	if !ok {
		l = &bookLock{}
		s.locks[bookID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, bookID)
		}
		s.locksMu.Unlock()
	}
}

// CreateBook registers a book with an initial not-started status
func (s *Service) CreateBook(ctx context.Context, in models.CreateBookInput) (models.Book, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Book{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.TotalPages <= 0 {
		return models.Book{}, fmt.Errorf("%w: total pages must be greater than zero", ErrValidation)
	}

	category := strings.TrimSpace(in.Category)
	book := models.Book{
		ID:         uuid.NewString(),
		Title:      title,
		TotalPages: in.TotalPages,
		Category:   category,
		Kind:       models.ResolveCategory(category),
		CreatedAt:  s.now().UTC(),
	}
	if in.GoalDate != nil {
		goal := models.CalendarDay(*in.GoalDate)
		book.GoalDate = &goal
	}

	if err := s.store.CreateBook(ctx, book); err != nil {
		return models.Book{}, fmt.Errorf("failed to create book: %w", err)
	}
	initial := models.BookStatusSnapshot{BookID: book.ID, Status: models.StatusNotStarted, UpdatedAt: book.CreatedAt}
	if err := s.store.UpsertStatus(ctx, initial); err != nil {
		return models.Book{}, fmt.Errorf("failed to store initial status: %w", err)
	}

	s.logger.Info("Book created",
		zap.String("book_id", book.ID),
		zap.String("title", book.Title),
		zap.Int("total_pages", book.TotalPages),
		zap.String("kind", string(book.Kind)))
	return book, nil
}

// GetBook returns one book
func (s *Service) GetBook(ctx context.Context, id string) (models.Book, error) {
	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Book{}, fmt.Errorf("%w: %s", ErrBookNotFound, id)
		}
		return models.Book{}, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// ListBooks returns every book ordered by title
func (s *Service) ListBooks(ctx context.Context) ([]models.Book, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// DeleteBook removes a book with its history
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	unlock := s.lockBook(id)
	defer unlock()

	if err := s.store.DeleteBook(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrBookNotFound, id)
		}
		return fmt.Errorf("failed to delete book: %w", err)
	}
	s.logger.Info("Book deleted", zap.String("book_id", id))
	return nil
}

// Submission is the outcome of one reading submission
type Submission struct {
	SubmissionID string                      `json:"submission_id"`
	Mode         string                      `json:"mode"`
	Records      []models.DailyReadingRecord `json:"records"`
	Status       models.BookStatusSnapshot   `json:"status"`
	// Replayed is true when the submission had already been applied
	Replayed bool `json:"replayed"`
}

func validateMinutes(minutes *float64) error {
	if minutes == nil {
		return nil
	}
	if math.IsNaN(*minutes) || math.IsInf(*minutes, 0) || *minutes < 0 {
		return fmt.Errorf("%w: time spent must be a non-negative number of minutes", ErrValidation)
	}
	return nil
}

func validateReading(in models.ReadingInput) error {
	if err := progress.ValidatePages(in.StartPage, in.EndPage); err != nil {
		return err
	}
	if err := validateMinutes(in.TotalMinutes); err != nil {
		return err
	}
	if in.StartDate != nil && in.EndDate != nil && models.DaysBetween(*in.EndDate, *in.StartDate) < 0 {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidPeriod,
			in.EndDate.Format(time.DateOnly), in.StartDate.Format(time.DateOnly))
	}
	return nil
}

// Submit stores a reading entry and moves the book's status.
//
// A period is distributed into one record per day and sets pages read to its
// end page. A single-day entry is one record; it sets pages read when
// retroactive and adds its pages otherwise. Resubmitting the same
// SubmissionID completes a partially applied submission and is a no-op once
// it has been fully applied.
func (s *Service) Submit(ctx context.Context, in models.ReadingInput) (Submission, error) {
	if err := validateReading(in); err != nil {
		return Submission{}, err
	}

	unlock := s.lockBook(in.BookID)
	defer unlock()

	book, err := s.GetBook(ctx, in.BookID)
	if err != nil {
		return Submission{}, err
	}

	if in.SubmissionID == "" {
		in.SubmissionID = uuid.NewString()
	}
	mode := progress.ModeFor(in)
	result := Submission{SubmissionID: in.SubmissionID, Mode: mode.String()}

	records, err := s.buildRecords(book, in)
	if err != nil {
		return Submission{}, err
	}

	existing, err := s.store.CountRecordsBySubmission(ctx, book.ID, in.SubmissionID)
	if err != nil {
		return Submission{}, fmt.Errorf("failed to check submission: %w", err)
	}
	if existing == 0 {
		if err := s.store.InsertRecords(ctx, records); err != nil {
			return Submission{}, fmt.Errorf("failed to store reading records: %w", err)
		}
		result.Records = records
	}

	prev, err := s.currentStatus(ctx, book.ID)
	if err != nil {
		return Submission{}, err
	}

	if existing > 0 {
		stored, newest, err := s.storedSubmission(ctx, book.ID, in.SubmissionID)
		if err != nil {
			return Submission{}, err
		}
		result.Records = stored
		result.Replayed = true
		if !samePayload(in, records, stored) {
			s.logger.Warn("Submission id reused with a different payload, keeping the stored records",
				zap.String("book_id", book.ID),
				zap.String("submission_id", in.SubmissionID),
				zap.Int("stored_records", len(stored)),
				zap.Int("submitted_records", len(records)))
		}

		// The status is still owed only when these are the book's latest
		// records and the snapshot has not been written since they were stored.
		pending := newest && len(stored) > 0 && !prev.UpdatedAt.After(stored[0].CreatedAt)
		if prev.LastSubmissionID == in.SubmissionID || !pending {
			result.Status = prev
			s.logger.Info("Submission already applied",
				zap.String("book_id", book.ID),
				zap.String("submission_id", in.SubmissionID),
				zap.String("last_submission_id", prev.LastSubmissionID))
			return result, nil
		}
	}

	next := progress.Apply(book, prev, mode, in)
	next.LastSubmissionID = in.SubmissionID
	next.UpdatedAt = s.now().UTC()
	if err := s.store.UpsertStatus(ctx, next); err != nil {
		return Submission{}, fmt.Errorf("failed to update book status: %w", err)
	}
	// a status applied on a retry does not make the submission a replay
	result.Replayed = false
	result.Status = next

	s.logger.Info("Reading submitted",
		zap.String("book_id", book.ID),
		zap.String("submission_id", in.SubmissionID),
		zap.String("mode", mode.String()),
		zap.Int("records", len(result.Records)),
		zap.Int("pages_read", next.PagesRead),
		zap.String("status", string(next.Status)))
	return result, nil
}

func (s *Service) buildRecords(book models.Book, in models.ReadingInput) ([]models.DailyReadingRecord, error) {
	var records []models.DailyReadingRecord
	if progress.IsPeriod(in) {
		distributed, err := progress.Distribute(book, in, s.profiles)
		if err != nil {
			return nil, err
		}
		records = distributed
	} else {
		day := s.now()
		switch {
		case in.StartDate != nil:
			day = *in.StartDate
		case in.EndDate != nil:
			day = *in.EndDate
		}
		record, err := progress.SingleRecord(book, in, day)
		if err != nil {
			return nil, err
		}
		records = []models.DailyReadingRecord{record}
	}

	createdAt := s.now().UTC()
	for i := range records {
		records[i].ID = uuid.NewString()
		records[i].SubmissionID = in.SubmissionID
		records[i].CreatedAt = createdAt
	}
	return records, nil
}

// storedSubmission returns the records of a submission and whether the
// book's most recently inserted record belongs to it
func (s *Service) storedSubmission(ctx context.Context, bookID, submissionID string) ([]models.DailyReadingRecord, bool, error) {
	all, err := s.store.ListRecords(ctx, bookID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list reading records: %w", err)
	}
	var records []models.DailyReadingRecord
	for _, r := range all {
		if r.SubmissionID == submissionID {
			records = append(records, r)
		}
	}
	newest := len(all) > 0 && all[len(all)-1].SubmissionID == submissionID
	return records, newest, nil
}

// samePayload reports whether rebuilt records match the stored ones.
// Dates are only compared when the submission carried them; otherwise they follow the clock.
func samePayload(in models.ReadingInput, rebuilt, stored []models.DailyReadingRecord) bool {
	if len(rebuilt) != len(stored) {
		return false
	}
	datesGiven := in.StartDate != nil || in.EndDate != nil
	for i := range rebuilt {
		a, b := rebuilt[i], stored[i]
		if a.StartPage != b.StartPage || a.EndPage != b.EndPage || a.PagesRead != b.PagesRead || a.TimeSpent != b.TimeSpent {
			return false
		}
		if datesGiven && !a.Date.Equal(b.Date) {
			return false
		}
		if (a.Bible == nil) != (b.Bible == nil) || (a.Bible != nil && *a.Bible != *b.Bible) {
			return false
		}
	}
	return true
}

// currentStatus returns the stored snapshot or a not-started one
func (s *Service) currentStatus(ctx context.Context, bookID string) (models.BookStatusSnapshot, error) {
	snapshot, err := s.store.GetStatus(ctx, bookID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.BookStatusSnapshot{BookID: bookID, Status: models.StatusNotStarted}, nil
		}
		return models.BookStatusSnapshot{}, fmt.Errorf("failed to get book status: %w", err)
	}
	return snapshot, nil
}

func (s *Service) getRecord(ctx context.Context, id string) (models.DailyReadingRecord, error) {
	record, err := s.store.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.DailyReadingRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return models.DailyReadingRecord{}, fmt.Errorf("failed to get reading record: %w", err)
	}
	return record, nil
}

// EditRecord changes one record and recomputes the book's status from history
func (s *Service) EditRecord(ctx context.Context, id string, upd models.RecordUpdate) (models.DailyReadingRecord, error) {
	if err := progress.ValidatePages(upd.StartPage, upd.EndPage); err != nil {
		return models.DailyReadingRecord{}, err
	}
	if err := validateMinutes(upd.TotalMinutes); err != nil {
		return models.DailyReadingRecord{}, err
	}

	record, err := s.getRecord(ctx, id)
	if err != nil {
		return models.DailyReadingRecord{}, err
	}
	unlock := s.lockBook(record.BookID)
	defer unlock()

	// re-read under the lock
	if record, err = s.getRecord(ctx, id); err != nil {
		return models.DailyReadingRecord{}, err
	}
	book, err := s.GetBook(ctx, record.BookID)
	if err != nil {
		return models.DailyReadingRecord{}, err
	}

	record.StartPage = upd.StartPage
	record.EndPage = upd.EndPage
	record.PagesRead = progress.PagesFor(record.Origin, upd.StartPage, upd.EndPage)
	if upd.TotalMinutes != nil {
		record.TimeSpent = models.TimeFromMinutes(*upd.TotalMinutes)
	}
	if upd.Date != nil {
		record.SetDate(*upd.Date)
		if record.StartDate != nil {
			d := record.Date
			record.StartDate = &d
		}
		if record.EndDate != nil {
			d := record.Date
			record.EndDate = &d
		}
	}
	if upd.Bible != nil {
		ref := *upd.Bible
		record.Bible = &ref
	}

	if err := s.store.UpdateRecord(ctx, record); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.DailyReadingRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return models.DailyReadingRecord{}, fmt.Errorf("failed to update reading record: %w", err)
	}
	if _, err := s.recompute(ctx, book); err != nil {
		return models.DailyReadingRecord{}, err
	}

	s.logger.Info("Reading record edited",
		zap.String("book_id", book.ID),
		zap.String("record_id", id),
		zap.Int("start_page", record.StartPage),
		zap.Int("end_page", record.EndPage))
	return record, nil
}

// DeleteRecord removes one record and recomputes the book's status from history
func (s *Service) DeleteRecord(ctx context.Context, id string) error {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}
	unlock := s.lockBook(record.BookID)
	defer unlock()

	book, err := s.GetBook(ctx, record.BookID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRecord(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return fmt.Errorf("failed to delete reading record: %w", err)
	}
	if _, err := s.recompute(ctx, book); err != nil {
		return err
	}

	s.logger.Info("Reading record deleted", zap.String("book_id", book.ID), zap.String("record_id", id))
	return nil
}

// recompute rebuilds the snapshot from the stored records. Callers hold the book lock.
func (s *Service) recompute(ctx context.Context, book models.Book) (models.BookStatusSnapshot, error) {
	records, err := s.store.ListRecords(ctx, book.ID)
	if err != nil {
		return models.BookStatusSnapshot{}, fmt.Errorf("failed to list reading records: %w", err)
	}
	prev, err := s.currentStatus(ctx, book.ID)
	if err != nil {
		return models.BookStatusSnapshot{}, err
	}

	next := progress.Recompute(book, records)
	next.LastSubmissionID = prev.LastSubmissionID
	if next.PagesRead == prev.PagesRead && next.Status == prev.Status && !prev.UpdatedAt.IsZero() {
		return prev, nil
	}

	next.UpdatedAt = s.now().UTC()
	if err := s.store.UpsertStatus(ctx, next); err != nil {
		return models.BookStatusSnapshot{}, fmt.Errorf("failed to update book status: %w", err)
	}
	if prev.PagesRead != next.PagesRead || prev.Status != next.Status {
		s.logger.Info("Book status recomputed",
			zap.String("book_id", book.ID),
			zap.Int("previous_pages_read", prev.PagesRead),
			zap.Int("pages_read", next.PagesRead),
			zap.String("status", string(next.Status)))
	}
	return next, nil
}

// Reconcile recomputes one book's status from its full record history
func (s *Service) Reconcile(ctx context.Context, bookID string) (models.BookStatusSnapshot, error) {
	unlock := s.lockBook(bookID)
	defer unlock()

	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return models.BookStatusSnapshot{}, err
	}
	return s.recompute(ctx, book)
}

// ReconcileAll reconciles every book and returns how many succeeded.
// A failing book does not stop the others.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	books, err := s.ListBooks(ctx)
	if err != nil {
		return 0, err
	}

	var (
		errs []error
		done int
	)
	for _, book := range books {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Reconcile(ctx, book.ID); err != nil {
			s.logger.Error("Failed to reconcile book", zap.String("book_id", book.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("book %s: %w", book.ID, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// Records returns the records of a book in insertion order
func (s *Service) Records(ctx context.Context, bookID string) ([]models.DailyReadingRecord, error) {
	if _, err := s.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	records, err := s.store.ListRecords(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reading records: %w", err)
	}
	return records, nil
}

// Days returns the display groups of a book's records
func (s *Service) Days(ctx context.Context, bookID string) ([]models.ReadingDay, error) {
	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListRecords(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reading records: %w", err)
	}
	return progress.GroupDays(records, book.Kind), nil
}

// Stats returns the status, aggregated stats and projection of a book
func (s *Service) Stats(ctx context.Context, bookID string) (models.BookReport, error) {
	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return models.BookReport{}, err
	}
	records, err := s.store.ListRecords(ctx, bookID)
	if err != nil {
		return models.BookReport{}, fmt.Errorf("failed to list reading records: %w", err)
	}
	snapshot, err := s.currentStatus(ctx, bookID)
	if err != nil {
		return models.BookReport{}, err
	}

	return models.BookReport{
		Book:       book,
		Status:     snapshot,
		Stats:      progress.Aggregate(book.Kind, snapshot, records),
		Projection: s.estimator.Estimate(book, snapshot, records),
	}, nil
}
