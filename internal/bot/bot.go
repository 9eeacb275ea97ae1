// Package bot connects the command handler to the Telegram Bot API.
package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/starford/devtally/internal/parser"
)

// Client is the part of *tgbotapi.BotAPI the bot relies on.
type Client interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Handler executes a parsed command and returns its reply.
type Handler interface {
	Handle(ctx context.Context, cmd parser.Command) (reply string, ok bool, err error)
}

// Bot long-polls for updates and handles them one at a time.
type Bot struct {
	client      Client
	handler     Handler
	logger      *slog.Logger
	username    string
	pollTimeout int
}

// Dial authenticates against the Bot API with token.
func Dial(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return api, nil
}

// New creates a Bot. username is the bot's own handle, used to ignore
// commands addressed to other bots in group chats.
func New(client Client, handler Handler, logger *slog.Logger, username string, pollTimeout int) *Bot {
	return &Bot{
		client:      client,
		handler:     handler,
		logger:      logger,
		username:    username,
		pollTimeout: pollTimeout,
	}
}

// Run receives updates until ctx is cancelled or the update channel closes.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.client.GetUpdatesChan(u)
	defer b.client.StopReceivingUpdates()

	b.logger.Info("bot: polling started", slog.String("username", b.username))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot: polling stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate processes a single update to completion.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	cmd, ok := parser.Parse(msg.Text)
	if !ok || !cmd.For(b.username) {
		return
	}

	log := b.logger.With(
		slog.String("command", cmd.Name),
		slog.Int64("chat_id", msg.Chat.ID),
		slog.Int("update_id", upd.UpdateID),
	)

	reply, handled, err := b.handler.Handle(ctx, cmd)
	if err != nil {
		log.Error("bot: command failed", slog.String("error", err.Error()))
		return
	}
	if !handled {
		log.Debug("bot: unknown command ignored")
		return
	}

	if _, err := b.client.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
		log.Error("bot: send reply failed", slog.String("error", err.Error()))
		return
	}
	log.Debug("bot: command handled")
}
