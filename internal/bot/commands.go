package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleStart shows welcome message and available commands
func (b *Bot) handleStart(message *tgbotapi.Message) {
	text := `Welcome to the Reading Tracker! 📚

Available commands:
/new_book - Register a new book
/read - Record today's or a past period's reading
/retro - Record reading done before you started tracking
/stats - Progress and finish estimate of a book
/days - Last reading days of a book
/reconcile - Rebuild every book status from its records
/cancel - Abort the current command`

	b.reply(message.Chat.ID, text)
}

// handleNewBookStart initiates the new book conversation
func (b *Bot) handleNewBookStart(message *tgbotapi.Message) {
	b.setState(message.From.ID, "new_book", stepTitle)
	b.reply(message.Chat.ID, "Please enter the book title:")
}

// handleSelectBookStart opens a conversation that begins by picking a book
func (b *Bot) handleSelectBookStart(ctx context.Context, message *tgbotapi.Message, command string) {
	books, err := b.tracker.ListBooks(ctx)
	if err != nil {
		b.logger.Error("Failed to list books", zap.Error(err), zap.String("command", command))
		b.reply(message.Chat.ID, fmt.Sprintf("Error: %v", err))
		return
	}
	if len(books) == 0 {
		b.reply(message.Chat.ID, "No books registered yet. Please add one with /new_book")
		return
	}

	b.setState(message.From.ID, command, stepSelectBook)

	msg := tgbotapi.NewMessage(message.Chat.ID, "📚 Select a book:")
	msg.ReplyMarkup = bookKeyboard(books)
	b.sendMessage(msg)
}

// handleReconcile rebuilds every status snapshot from the records
func (b *Bot) handleReconcile(ctx context.Context, message *tgbotapi.Message) {
	n, err := b.tracker.ReconcileAll(ctx)
	if err != nil {
		b.logger.Error("Reconcile from bot failed", zap.Error(err), zap.Int("books", n))
		b.reply(message.Chat.ID, fmt.Sprintf("Reconciled %d books with errors: %v", n, err))
		return
	}
	b.reply(message.Chat.ID, fmt.Sprintf("✅ Reconciled %d books.", n))
}
