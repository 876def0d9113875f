// Package bot bridges Telegram updates into pipeline executions. It is
// the system's only transport boundary: long polling in, Markdown replies
// out, with link previews suppressed.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/jaredsrobertson/steam-telegram-bot/internal/util"
)

const (
	// Budget for one whole pipeline execution, LLM call included.
	messageBudget = 2 * time.Minute

	typingRefreshInterval = 4 * time.Second
	sendAttempts          = 3
)

// Handler is the per-message pipeline. The second return is false when
// the message warrants no reply.
type Handler interface {
	HandleMessage(ctx context.Context, text string) (string, bool)
}

type Bot struct {
	bot      *telego.Bot
	pipeline Handler
	grace    time.Duration
	log      *slog.Logger
}

func New(token string, pipeline Handler, grace time.Duration) (*Bot, error) {
	b, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}
	return &Bot{
		bot:      b,
		pipeline: pipeline,
		grace:    grace,
		log:      slog.Default().With("component", "bot"),
	}, nil
}

// Run long-polls until ctx is cancelled. Each qualifying message is
// handled in its own goroutine on a context detached from the polling
// one, so shutdown stops intake while in-flight pipelines get a grace
// period to finish; abandoned ones send nothing.
func (b *Bot) Run(ctx context.Context) error {
	updates, err := b.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}
	b.log.Info("Bot is listening for messages")

	var inflight sync.WaitGroup
	base := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return b.drain(&inflight)
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return b.drain(&inflight)
				}
				return errors.New("telegram updates channel closed")
			}

			message := update.Message
			if message == nil || message.Text == "" {
				continue
			}
			// Only messages carrying a store link are acted on; everything
			// else is silently ignored without a pipeline run.
			if _, ok := util.ExtractAppID(message.Text); !ok {
				continue
			}

			inflight.Add(1)
			go func(msg *telego.Message) {
				defer inflight.Done()
				msgCtx, cancel := context.WithTimeout(base, messageBudget)
				defer cancel()
				b.handleMessage(msgCtx, msg)
			}(message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telego.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Panic while handling message", "chat_id", msg.Chat.ID, "panic", r)
		}
	}()

	stopTyping := b.startTypingIndicator(ctx, msg.Chat.ID)
	reply, ok := b.pipeline.HandleMessage(ctx, msg.Text)
	stopTyping()
	if !ok || reply == "" {
		return
	}

	params := tu.Message(tu.ID(msg.Chat.ID), reply).
		WithParseMode(telego.ModeMarkdown).
		WithLinkPreviewOptions(&telego.LinkPreviewOptions{IsDisabled: true}).
		WithReplyParameters(&telego.ReplyParameters{MessageID: msg.MessageID})

	err := util.Retry(ctx, sendAttempts, time.Second, func() error {
		_, err := b.bot.SendMessage(ctx, params)
		return err
	})
	if err != nil {
		b.log.Error("Failed to send reply", "chat_id", msg.Chat.ID, "error", err)
	}
}

// startTypingIndicator shows the typing action while the pipeline runs,
// refreshing it until the returned stop function is called.
func (b *Bot) startTypingIndicator(ctx context.Context, chatID int64) context.CancelFunc {
	typingCtx, cancel := context.WithCancel(ctx)

	sendTyping := func() {
		err := b.bot.SendChatAction(typingCtx, tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping))
		if err != nil && typingCtx.Err() == nil {
			b.log.Debug("Failed to send typing indicator", "chat_id", chatID, "error", err)
		}
	}
	sendTyping()

	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-typingCtx.Done():
				return
			case <-ticker.C:
				sendTyping()
			}
		}
	}()

	return cancel
}

// drain waits for in-flight pipelines up to the configured grace period.
func (b *Bot) drain(inflight *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("All in-flight messages finished")
		return nil
	case <-time.After(b.grace):
		b.log.Warn("Grace period elapsed, abandoning in-flight messages", "grace", b.grace)
		return nil
	}
}
