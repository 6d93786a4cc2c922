package services

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// CompletionNotifier is told when a sync marks a workshop as completed.
type CompletionNotifier interface {
	NotifyWorkshopCompleted(ctx context.Context, user *models.User, workshop models.WorkshopType) error
}

type NopNotifier struct{}

func (NopNotifier) NotifyWorkshopCompleted(context.Context, *models.User, models.WorkshopType) error {
	return nil
}

// messageSender is the subset of *bot.Bot the notifier uses.
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// TelegramCompletionNotifier posts completion notices to an admin chat.
type TelegramCompletionNotifier struct {
	sender messageSender
	chatID int64
}

func NewTelegramCompletionNotifier(sender messageSender, chatID int64) *TelegramCompletionNotifier {
	return &TelegramCompletionNotifier{sender: sender, chatID: chatID}
}

func (n *TelegramCompletionNotifier) NotifyWorkshopCompleted(ctx context.Context, user *models.User, workshop models.WorkshopType) error {
	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      FormatCompletionMessage(user, workshop),
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func FormatCompletionMessage(user *models.User, workshop models.WorkshopType) string {
	msg := fmt.Sprintf("🏆 %s completed the %s workshop", formatBold(user.DisplayName()), formatBold(workshop.DisplayName()))
	if at := user.WorkshopCompletedAt(workshop); at != nil {
		msg += "\n" + formatCode(at.UTC().Format(time.RFC3339))
	}
	return msg
}

func formatBold(text string) string {
	return fmt.Sprintf("<b>%s</b>", html.EscapeString(text))
}

func formatCode(text string) string {
	return fmt.Sprintf("<pre>%s</pre>", html.EscapeString(text))
}
