package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleBookCallback processes book selection from inline keyboard
func (b *Bot) handleBookCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState) {
	if state.Step != stepSelectBook {
		return
	}
	chatID := query.Message.Chat.ID

	book, err := b.tracker.GetBook(ctx, strings.TrimPrefix(query.Data, "book:"))
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		state.Step = stepDone
		return
	}

	switch state.Command {
	case "read", "retro":
		state.Data[keyBook] = book
		state.Step = stepPages
		b.reply(chatID, fmt.Sprintf("📚 %s (%d pages)\n\nEnter the pages read as A-B, e.g. 10-25:", book.Title, book.TotalPages))
		return

	case "stats":
		report, err := b.tracker.Stats(ctx, book.ID)
		if err != nil {
			b.logger.Error("Failed to build stats report", zap.Error(err), zap.String("book_id", book.ID))
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
		} else {
			b.reply(chatID, formatReport(report))
		}

	case "days":
		days, err := b.tracker.Days(ctx, book.ID)
		switch {
		case err != nil:
			b.logger.Error("Failed to group reading days", zap.Error(err), zap.String("book_id", book.ID))
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
		case len(days) == 0:
			b.reply(chatID, "No readings recorded yet for this book.")
		default:
			b.reply(chatID, formatDays(book.Title, days, 10))
		}
	}
	state.Step = stepDone
}

// handleCategoryCallback processes category selection while creating a book
func (b *Bot) handleCategoryCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState) {
	if state.Command != "new_book" || state.Step != stepCategory {
		return
	}
	b.createBook(ctx, query.Message.Chat.ID, state, strings.TrimPrefix(query.Data, "category:"))
}
