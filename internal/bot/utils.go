package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"readingtracker/internal/models"
	"readingtracker/internal/progress"
)

var errSkipped = errors.New("skipped")

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if b.out == nil {
		return
	}
	if _, err := b.out.Send(msg); err != nil {
		b.logger.Warn("Failed to send message", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// bookKeyboard lays books out two per row
func bookKeyboard(books []models.Book) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var currentRow []tgbotapi.InlineKeyboardButton
	for i, book := range books {
		currentRow = append(currentRow, tgbotapi.NewInlineKeyboardButtonData(book.Title, "book:"+book.ID))
		if len(currentRow) == 2 || i == len(books)-1 {
			rows = append(rows, currentRow)
			currentRow = nil
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func isSkip(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "skip")
}

// parsePageRange parses "A-B"
func parsePageRange(text string) (int, int, error) {
	left, right, ok := strings.Cut(strings.TrimSpace(text), "-")
	if !ok {
		return 0, 0, fmt.Errorf("expected A-B, got %q", text)
	}
	start, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, fmt.Errorf("bad start page %q", left)
	}
	end, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return 0, 0, fmt.Errorf("bad end page %q", right)
	}
	if err := progress.ValidatePages(start, end); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseMinutes accepts "25", "12.5" or "12,5"; "skip" returns errSkipped
func parseMinutes(text string) (float64, error) {
	if isSkip(text) {
		return 0, errSkipped
	}
	minutes, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(text), ",", "."), 64)
	if err != nil || minutes < 0 {
		return 0, fmt.Errorf("bad minutes %q", text)
	}
	return minutes, nil
}

// parseDates accepts "today", one date or a "start end" period.
// Nil dates mean today.
func parseDates(text string) (*time.Time, *time.Time, error) {
	fields := strings.Fields(text)
	if len(fields) == 1 && strings.EqualFold(fields[0], "today") {
		return nil, nil, nil
	}
	if len(fields) < 1 || len(fields) > 2 {
		return nil, nil, fmt.Errorf("expected today, YYYY-MM-DD or YYYY-MM-DD YYYY-MM-DD")
	}

	dates := make([]time.Time, len(fields))
	for i, f := range fields {
		d, err := time.Parse(time.DateOnly, f)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD", f)
		}
		dates[i] = d
	}
	if len(dates) == 1 {
		return &dates[0], nil, nil
	}
	if dates[1].Before(dates[0]) {
		return nil, nil, progress.ErrInvalidPeriod
	}
	return &dates[0], &dates[1], nil
}

func formatReport(r models.BookReport) string {
	var text strings.Builder
	fmt.Fprintf(&text, "📊 %s\n\n", r.Book.Title)
	fmt.Fprintf(&text, "📖 Pages: %d / %d (%s)\n", r.Status.PagesRead, r.Book.TotalPages, statusLabel(r.Status.Status))
	fmt.Fprintf(&text, "📅 Reading days: %d\n", r.Stats.ReadingDays)
	fmt.Fprintf(&text, "⏱ Time: %s\n", models.TimeSpent(r.Stats.TotalTimeSeconds))
	fmt.Fprintf(&text, "📈 Pages per day: %.1f\n", r.Stats.AvgPagesPerDay)
	if r.Stats.PagesPerMinute > 0 {
		fmt.Fprintf(&text, "⚡ Pages per minute: %.2f\n", r.Stats.PagesPerMinute)
	}

	p := r.Projection
	if !p.CanShow || p.EstimatedDate == nil {
		return text.String()
	}
	fmt.Fprintf(&text, "\n🏁 Estimated finish: %s (%d days left)\n", p.EstimatedDate.Format(time.DateOnly), p.DaysRemaining)
	if r.Book.GoalDate != nil {
		if p.IsDelayed {
			fmt.Fprintf(&text, "⚠️ %d days behind the goal %s\n", p.DelayDays, r.Book.GoalDate.Format(time.DateOnly))
		} else {
			fmt.Fprintf(&text, "✅ On track for %s\n", r.Book.GoalDate.Format(time.DateOnly))
		}
	}
	return text.String()
}

func formatDays(title string, days []models.ReadingDay, limit int) string {
	// days come newest first
	if len(days) > limit {
		days = days[:limit]
	}
	var text strings.Builder
	fmt.Fprintf(&text, "📚 %s, last reading days:\n\n", title)
	for _, d := range days {
		fmt.Fprintf(&text, "%d de %s: p. %d-%d (%d pages, %s)", d.Day, d.MonthLabel, d.StartPage, d.EndPage, d.PagesRead, d.TimeSpent)
		if len(d.Passages) > 0 {
			passages := make([]string, len(d.Passages))
			for i, p := range d.Passages {
				passages[i] = p.String()
			}
			fmt.Fprintf(&text, " %s", strings.Join(passages, "; "))
		}
		text.WriteString("\n")
	}
	return text.String()
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusReading:
		return "reading"
	case models.StatusCompleted:
		return "completed"
	default:
		return "not started"
	}
}
