// Package telegram runs the bot front end over long polling.
package telegram

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Greeting is sent in reply to /start.
const Greeting = "Привет! Я помощник абитуриента ИТМО.\n\n" +
	"Я отвечаю на вопросы о магистерских программах «Искусственный интеллект» и " +
	"«Управление ИИ-продуктами», сравниваю их и подбираю дисциплины под ваш бэкграунд.\n\n" +
	"Просто задайте вопрос текстом."

// Responder produces an answer for one incoming message.
type Responder interface {
	Route(ctx context.Context, message string) string
}

// Bot polls Telegram for updates and replies through the responder.
type Bot struct {
	api         *tgbotapi.BotAPI
	responder   Responder
	timeout     time.Duration
	pollTimeout int
	log         *slog.Logger
}

// Options configures a Bot.
type Options struct {
	// AnswerTimeout bounds how long a single message may take to answer.
	AnswerTimeout time.Duration
	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout int
	Log         *slog.Logger
}

// New connects to the Telegram API with the given token.
func New(token string, responder Responder, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if opts.AnswerTimeout <= 0 {
		opts.AnswerTimeout = 2 * time.Minute
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Bot{api: api, responder: responder, timeout: opts.AnswerTimeout, pollTimeout: opts.PollTimeout, log: log}, nil
}

// Run polls for updates until ctx is cancelled. Each message is answered in
// its own goroutine so one slow generation does not stall the queue.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info("telegram bot started", "username", b.api.Self.UserName)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			go b.handle(ctx, update.Message)
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var text string
	if msg.IsCommand() {
		text = b.handleCommand(msg.Command())
	} else {
		text = b.responder.Route(ctx, msg.Text)
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(reply); err != nil {
		b.log.Error("failed to send reply", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) handleCommand(cmd string) string {
	switch cmd {
	case "start", "help":
		return Greeting
	default:
		return "Неизвестная команда. Задайте вопрос текстом или отправьте /start."
	}
}
