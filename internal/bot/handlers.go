package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) getState(userID int64) (*ConversationState, bool) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	state, ok := b.states[userID]
	return state, ok
}

func (b *Bot) setState(userID int64, command string, step int) *ConversationState {
	state := &ConversationState{Command: command, Step: step, Data: make(map[string]any)}
	b.statesMu.Lock()
	b.states[userID] = state
	b.statesMu.Unlock()
	return state
}

// clearState drops the conversation if it is still the current one
func (b *Bot) clearState(userID int64, state *ConversationState) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	if b.states[userID] == state {
		delete(b.states, userID)
	}
}

// handleMessage processes a single message
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage",
				zap.Any("panic", r),
				zap.Int64("chat_id", message.Chat.ID))
			b.reply(message.Chat.ID, "An error occurred while processing your request. Please try again.")
		}
	}()

	userID := message.From.ID

	if state, ok := b.getState(userID); ok {
		if !message.IsCommand() {
			b.handleConversation(ctx, message, state)
			return
		}
		// Any command cancels the ongoing conversation
		b.clearState(userID, state)
	}

	if !message.IsCommand() {
		return
	}

	switch message.Command() {
	case "start", "help":
		b.handleStart(message)
	case "new_book":
		b.handleNewBookStart(message)
	case "read":
		b.handleSelectBookStart(ctx, message, "read")
	case "retro":
		b.handleSelectBookStart(ctx, message, "retro")
	case "stats":
		b.handleSelectBookStart(ctx, message, "stats")
	case "days":
		b.handleSelectBookStart(ctx, message, "days")
	case "reconcile":
		b.handleReconcile(ctx, message)
	case "cancel":
		b.reply(message.Chat.ID, "Cancelled.")
	default:
		b.reply(message.Chat.ID, "Unknown command. Use /start to see available commands.")
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery",
				zap.Any("panic", r),
				zap.String("callback_data", query.Data))
		}
	}()

	// Answer the callback query to remove loading state
	if b.out != nil {
		if _, err := b.out.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			b.logger.Debug("Failed to answer callback", zap.Error(err))
		}
	}

	userID := query.From.ID
	state, ok := b.getState(userID)
	if !ok {
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	switch {
	case strings.HasPrefix(query.Data, "book:"):
		b.handleBookCallback(ctx, query, state)
	case strings.HasPrefix(query.Data, "category:"):
		b.handleCategoryCallback(ctx, query, state)
	}

	if state.Step == stepDone {
		b.clearState(userID, state)
	}
}
