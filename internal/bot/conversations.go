package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"readingtracker/internal/models"
	"readingtracker/internal/tracker"
)

// categoryOptions are offered as buttons; any other text is accepted too
var categoryOptions = []string{"Romance", "Ficção", "Fantasia", "Biografia", "História", "Filosofia", "Ciência", "Bíblia"}

// handleConversation processes multi-step conversations
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	state.mu.Lock()
	defer state.mu.Unlock()

	switch state.Command {
	case "new_book":
		b.handleNewBookConversation(ctx, message, state)
	case "read", "retro":
		b.handleReadConversation(ctx, message, state)
	default:
		b.reply(message.Chat.ID, "Please pick a book from the list above, or /cancel.")
	}

	if state.Step == stepDone {
		b.clearState(message.From.ID, state)
	}
}

// handleNewBookConversation handles the new book multi-step process
func (b *Bot) handleNewBookConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	text := strings.TrimSpace(message.Text)

	switch state.Step {
	case stepTitle:
		if text == "" {
			b.reply(message.Chat.ID, "The title cannot be empty. Please enter the book title:")
			return
		}
		state.Data[keyTitle] = text
		state.Step = stepTotalPages
		b.reply(message.Chat.ID, "How many pages does the book have?")

	case stepTotalPages:
		pages, err := strconv.Atoi(text)
		if err != nil || pages <= 0 {
			b.reply(message.Chat.ID, "❌ Please enter a positive number of pages:")
			return
		}
		state.Data[keyPages] = pages
		state.Step = stepCategory

		var rows [][]tgbotapi.InlineKeyboardButton
		for i := 0; i < len(categoryOptions); i += 2 {
			row := []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData(categoryOptions[i], "category:"+categoryOptions[i])}
			if i+1 < len(categoryOptions) {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(categoryOptions[i+1], "category:"+categoryOptions[i+1]))
			}
			rows = append(rows, row)
		}
		msg := tgbotapi.NewMessage(message.Chat.ID, "🏷 Select a category, type your own, or send skip:")
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		b.sendMessage(msg)

	case stepCategory:
		category := text
		if isSkip(text) {
			category = ""
		}
		b.createBook(ctx, message.Chat.ID, state, category)
	}
}

func (b *Bot) createBook(ctx context.Context, chatID int64, state *ConversationState, category string) {
	title, _ := state.Data[keyTitle].(string)
	pages, _ := state.Data[keyPages].(int)

	book, err := b.tracker.CreateBook(ctx, models.CreateBookInput{Title: title, TotalPages: pages, Category: category})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error creating book: %v", err))
	} else {
		text := fmt.Sprintf("✅ Book created!\n\n📚 %s\n📖 %d pages", book.Title, book.TotalPages)
		if book.Category != "" {
			text += fmt.Sprintf("\n🏷 %s", book.Category)
		}
		b.reply(chatID, text)
	}
	state.Step = stepDone
}

// handleReadConversation handles the reading submission multi-step process
func (b *Bot) handleReadConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	chatID := message.Chat.ID

	switch state.Step {
	case stepSelectBook:
		b.reply(chatID, "Please pick a book from the list above, or /cancel.")

	case stepPages:
		start, end, err := parsePageRange(message.Text)
		if err != nil {
			b.reply(chatID, fmt.Sprintf("❌ %v\n\nPlease enter the pages as A-B, e.g. 10-25", err))
			return
		}
		state.Data[keyStartPage] = start
		state.Data[keyEndPage] = end
		state.Step = stepMinutes
		b.reply(chatID, "⏱ How many minutes did you read? Send skip if you did not time it; periods are then estimated from the book category.")

	case stepMinutes:
		minutes, err := parseMinutes(message.Text)
		switch {
		case errors.Is(err, errSkipped):
		case err != nil:
			b.reply(chatID, "❌ Please enter the minutes as a number, or skip:")
			return
		default:
			state.Data[keyMinutes] = minutes
		}
		state.Step = stepDate
		b.reply(chatID, "📅 When did you read? Send today, a date (YYYY-MM-DD) or a period (YYYY-MM-DD YYYY-MM-DD)")

	case stepDate:
		startDate, endDate, err := parseDates(message.Text)
		if err != nil {
			b.reply(chatID, fmt.Sprintf("❌ %v\n\nExample: 2024-01-15 or 2024-01-01 2024-01-10", err))
			return
		}
		if startDate != nil {
			state.Data[keyStartDate] = *startDate
		}
		if endDate != nil {
			state.Data[keyEndDate] = *endDate
		}

		book, _ := state.Data[keyBook].(models.Book)
		if book.IsBible() {
			state.Step = stepPassage
			b.reply(chatID, "✝️ Which passage? e.g. João 3:16-18, or skip")
			return
		}
		b.submitReading(ctx, message, state, nil)

	case stepPassage:
		if isSkip(message.Text) {
			b.submitReading(ctx, message, state, nil)
			return
		}
		ref, err := models.ParseBibleReference(message.Text)
		if err != nil {
			b.reply(chatID, "❌ Invalid passage. Use <book> <chapter>[:<verse>[-<verse>]], e.g. João 3:16-18, or skip")
			return
		}
		b.submitReading(ctx, message, state, &ref)
	}
}

// readingInput assembles the submission from the conversation data
func readingInput(state *ConversationState, bible *models.BibleReference, submissionID string) models.ReadingInput {
	book, _ := state.Data[keyBook].(models.Book)
	in := models.ReadingInput{
		BookID:       book.ID,
		Bible:        bible,
		Retroactive:  state.Command == "retro",
		SubmissionID: submissionID,
	}
	in.StartPage, _ = state.Data[keyStartPage].(int)
	in.EndPage, _ = state.Data[keyEndPage].(int)
	if minutes, ok := state.Data[keyMinutes].(float64); ok {
		in.TotalMinutes = &minutes
	}
	if d, ok := state.Data[keyStartDate].(time.Time); ok {
		in.StartDate = &d
	}
	if d, ok := state.Data[keyEndDate].(time.Time); ok {
		in.EndDate = &d
	}
	return in
}

func (b *Bot) submitReading(ctx context.Context, message *tgbotapi.Message, state *ConversationState, bible *models.BibleReference) {
	state.Step = stepDone

	// A redelivered update carries the same message, so this id makes the retry a replay
	submissionID := fmt.Sprintf("tg-%d-%d", message.Chat.ID, message.MessageID)
	in := readingInput(state, bible, submissionID)

	sub, err := b.tracker.Submit(ctx, in)
	if err != nil {
		if !errors.Is(err, tracker.ErrValidation) && !errors.Is(err, tracker.ErrInvalidPageRange) &&
			!errors.Is(err, tracker.ErrInvalidPeriod) && !errors.Is(err, tracker.ErrBookNotFound) {
			b.logger.Error("Failed to submit reading from bot",
				zap.Error(err),
				zap.String("book_id", in.BookID),
				zap.Int64("chat_id", message.Chat.ID))
		}
		b.reply(message.Chat.ID, fmt.Sprintf("Error recording reading: %v", err))
		return
	}

	book, _ := state.Data[keyBook].(models.Book)
	if sub.Replayed {
		b.reply(message.Chat.ID, "This reading was already recorded.")
		return
	}
	b.reply(message.Chat.ID, fmt.Sprintf("✅ Reading recorded!\n\n📚 Book: %s\n📅 Days: %d\n📖 Progress: %d / %d (%s)",
		book.Title, len(sub.Records), sub.Status.PagesRead, book.TotalPages, statusLabel(sub.Status.Status)))
}
