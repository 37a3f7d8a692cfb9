package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"readingtracker/internal/models"
	"readingtracker/internal/tracker"
)

// Tracker is the part of tracker.Service the bot talks to
type Tracker interface {
	CreateBook(ctx context.Context, in models.CreateBookInput) (models.Book, error)
	GetBook(ctx context.Context, id string) (models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	Submit(ctx context.Context, in models.ReadingInput) (tracker.Submission, error)
	Days(ctx context.Context, bookID string) ([]models.ReadingDay, error)
	Stats(ctx context.Context, bookID string) (models.BookReport, error)
	ReconcileAll(ctx context.Context) (int, error)
}

// sender is the subset of the Telegram API used to reply
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api      *tgbotapi.BotAPI
	out      sender
	tracker  Tracker
	states   map[int64]*ConversationState
	statesMu sync.Mutex
	logger   *zap.Logger
}

// ConversationState tracks the state of multi-step commands
type ConversationState struct {
	mu      sync.Mutex
	Command string
	Step    int
	Data    map[string]any
}

// Conversation steps. stepDone marks a finished conversation.
const (
	stepDone = -1

	stepTitle = iota
	stepTotalPages
	stepCategory

	stepSelectBook
	stepPages
	stepMinutes
	stepDate
	stepPassage
)

// Data keys
const (
	keyBook      = "book"
	keyTitle     = "title"
	keyPages     = "total_pages"
	keyStartPage = "start_page"
	keyEndPage   = "end_page"
	keyMinutes   = "minutes"
	keyStartDate = "start_date"
	keyEndDate   = "end_date"
)
