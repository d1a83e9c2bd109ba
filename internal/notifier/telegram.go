package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// TelegramChannel sends messages to a single chat via the Telegram Bot API.
type TelegramChannel struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	Retries int
}

// NewTelegramChannel creates a channel with optional proxy support.
func NewTelegramChannel(botToken string, chatID int64, proxyURL string) (*TelegramChannel, error) {
	return newTelegramChannel(botToken, chatID, proxyURL, tgbotapi.APIEndpoint)
}

func newTelegramChannel(botToken string, chatID int64, proxyURL, endpoint string) (*TelegramChannel, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{Timeout: 35 * time.Second, Transport: transport}

	api, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("telegram bot initialized")
	return &TelegramChannel{api: api, chatID: chatID, Retries: 3}, nil
}

func (t *TelegramChannel) Name() string { return "telegram" }

// Send posts the subject and message, retrying with exponential backoff.
func (t *TelegramChannel) Send(ctx context.Context, subject, msg string) error {
	return t.sendWithRetry(ctx, subject+"\n\n"+msg)
}

// Reply sends text to the chat without a subject line.
func (t *TelegramChannel) Reply(ctx context.Context, text string) error {
	return t.sendWithRetry(ctx, text)
}

func (t *TelegramChannel) send(text string) error {
	if _, err := t.api.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (t *TelegramChannel) sendWithRetry(ctx context.Context, text string) error {
	var lastErr error
	for i := 0; i <= t.Retries; i++ {
		if err := t.send(text); err != nil {
			lastErr = err
			if i == t.Retries {
				log.Warn().Err(err).Int("attempt", i+1).Msg("telegram send failed")
				break
			}
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Warn().Err(err).Int("attempt", i+1).Dur("backoff", backoff).Msg("telegram send failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", t.Retries+1, lastErr)
}
