package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"rss2x/internal/config"
)

const telegramMessageMaxLength = 4096

// TelegramPublisher posts entries to a Telegram channel through the Bot API.
type TelegramPublisher struct {
	bot    *bot.Bot
	chatID string
	log    *slog.Logger
}

func NewTelegramPublisher(creds config.Credentials, log *slog.Logger) (*TelegramPublisher, error) {
	b, err := bot.New(strings.TrimSpace(creds.BotToken), bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramPublisher{
		bot:    b,
		chatID: strings.TrimSpace(creds.ChatID),
		log:    log,
	}, nil
}

func (p *TelegramPublisher) Publish(ctx context.Context, post Post) error {
	text := messageText(post)

	if post.ImageURL != "" {
		_, err := p.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:  p.chatID,
			Photo:   &models.InputFileString{Data: post.ImageURL},
			Caption: text,
		})
		if err == nil {
			return nil
		}

		p.log.WarnContext(ctx, "Failed to send photo, falling back to text",
			"error", err,
			"imageURL", post.ImageURL,
			"link", post.Link)
	}

	if _, err := p.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: p.chatID,
		Text:   text,
	}); err != nil {
		return &Error{
			Kind: classifyTelegramError(err),
			Err:  fmt.Errorf("send message: %w", err),
		}
	}

	return nil
}

func messageText(post Post) string {
	title := strings.TrimSpace(post.Title)
	link := strings.TrimSpace(post.Link)

	if title == "" {
		return link
	}

	text := title + "\n" + link
	if len(text) <= telegramMessageMaxLength {
		return text
	}

	return link
}

func classifyTelegramError(err error) Kind {
	switch {
	case errors.Is(err, bot.ErrorUnauthorized), errors.Is(err, bot.ErrorForbidden):
		return KindAuth
	case errors.Is(err, bot.ErrorTooManyRequests):
		return KindRateLimit
	default:
		return KindTransient
	}
}
