// Package api exposes the reading tracker as a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"readingtracker/internal/models"
	"readingtracker/internal/tracker"
)

// Tracker is the part of tracker.Service the API uses
type Tracker interface {
	CreateBook(ctx context.Context, in models.CreateBookInput) (models.Book, error)
	GetBook(ctx context.Context, id string) (models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	DeleteBook(ctx context.Context, id string) error
	Submit(ctx context.Context, in models.ReadingInput) (tracker.Submission, error)
	EditRecord(ctx context.Context, id string, upd models.RecordUpdate) (models.DailyReadingRecord, error)
	DeleteRecord(ctx context.Context, id string) error
	Reconcile(ctx context.Context, bookID string) (models.BookStatusSnapshot, error)
	Records(ctx context.Context, bookID string) ([]models.DailyReadingRecord, error)
	Days(ctx context.Context, bookID string) ([]models.ReadingDay, error)
	Stats(ctx context.Context, bookID string) (models.BookReport, error)
}

// Server handles the JSON API requests
type Server struct {
	tracker Tracker
	logger  *zap.Logger
}

// NewServer creates a new API server
func NewServer(t Tracker, logger *zap.Logger) *Server {
	return &Server{tracker: t, logger: logger}
}

// Router returns a chi router with the API and health routes mounted
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})
	r.Route("/api", s.RegisterRoutes)
	return r
}

// RegisterRoutes registers the API routes on r
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/books", func(r chi.Router) {
		r.Get("/", s.handleListBooks)
		r.Post("/", s.handleCreateBook)
		r.Route("/{bookID}", func(r chi.Router) {
			r.Get("/", s.handleGetBook)
			r.Delete("/", s.handleDeleteBook)
			r.Get("/readings", s.handleListReadings)
			r.Post("/readings", s.handleSubmit)
			r.Get("/days", s.handleDays)
			r.Get("/stats", s.handleStats)
			r.Post("/reconcile", s.handleReconcile)
		})
	})
	r.Put("/readings/{recordID}", s.handleEditReading)
	r.Delete("/readings/{recordID}", s.handleDeleteReading)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// fail maps tracker errors to HTTP statuses
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tracker.ErrBookNotFound), errors.Is(err, tracker.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tracker.ErrValidation),
		errors.Is(err, tracker.ErrInvalidPageRange),
		errors.Is(err, tracker.ErrInvalidPeriod),
		errors.Is(err, models.ErrInvalidBibleReference),
		errors.Is(err, models.ErrInvalidTimeSpent):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", tracker.ErrValidation, err)
	}
	return nil
}

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", tracker.ErrValidation, field)
	}
	return &t, nil
}

func parseBible(value string) (*models.BibleReference, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	ref, err := models.ParseBibleReference(value)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// CreateBookRequest is the body of POST /api/books
type CreateBookRequest struct {
	Title      string `json:"title"`
	TotalPages int    `json:"total_pages"`
	Category   string `json:"category"`
	GoalDate   string `json:"goal_date"`
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	goal, err := parseDate("goal_date", req.GoalDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	book, err := s.tracker.CreateBook(r.Context(), models.CreateBookInput{
		Title:      req.Title,
		TotalPages: req.TotalPages,
		Category:   req.Category,
		GoalDate:   goal,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/books/"+book.ID)
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.tracker.ListBooks(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if books == nil {
		books = []models.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.tracker.GetBook(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteBook(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitRequest is the body of POST /api/books/{bookID}/readings.
// The Idempotency-Key header is used as submission id when the body has none.
type SubmitRequest struct {
	StartPage    int      `json:"start_page"`
	EndPage      int      `json:"end_page"`
	TotalMinutes *float64 `json:"total_minutes"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Bible        string   `json:"bible"`
	Retroactive  bool     `json:"retroactive"`
	SubmissionID string   `json:"submission_id"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	in := models.ReadingInput{
		BookID:       chi.URLParam(r, "bookID"),
		StartPage:    req.StartPage,
		EndPage:      req.EndPage,
		TotalMinutes: req.TotalMinutes,
		Retroactive:  req.Retroactive,
		SubmissionID: req.SubmissionID,
	}
	if in.SubmissionID == "" {
		in.SubmissionID = r.Header.Get("Idempotency-Key")
	}

	var err error
	if in.StartDate, err = parseDate("start_date", req.StartDate); err != nil {
		s.fail(w, r, err)
		return
	}
	if in.EndDate, err = parseDate("end_date", req.EndDate); err != nil {
		s.fail(w, r, err)
		return
	}
	if in.Bible, err = parseBible(req.Bible); err != nil {
		s.fail(w, r, err)
		return
	}

	sub, err := s.tracker.Submit(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusCreated
	if sub.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, sub)
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	records, err := s.tracker.Records(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if records == nil {
		records = []models.DailyReadingRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	days, err := s.tracker.Days(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if days == nil {
		days = []models.ReadingDay{}
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	report, err := s.tracker.Stats(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.tracker.Reconcile(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// EditReadingRequest is the body of PUT /api/readings/{recordID}
type EditReadingRequest struct {
	StartPage    int      `json:"start_page"`
	EndPage      int      `json:"end_page"`
	TotalMinutes *float64 `json:"total_minutes"`
	Date         string   `json:"date"`
	Bible        string   `json:"bible"`
}

func (s *Server) handleEditReading(w http.ResponseWriter, r *http.Request) {
	var req EditReadingRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	upd := models.RecordUpdate{StartPage: req.StartPage, EndPage: req.EndPage, TotalMinutes: req.TotalMinutes}
	var err error
	if upd.Date, err = parseDate("date", req.Date); err != nil {
		s.fail(w, r, err)
		return
	}
	if upd.Bible, err = parseBible(req.Bible); err != nil {
		s.fail(w, r, err)
		return
	}

	record, err := s.tracker.EditRecord(r.Context(), chi.URLParam(r, "recordID"), upd)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteReading(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteRecord(r.Context(), chi.URLParam(r, "recordID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
