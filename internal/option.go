package internal

import (
	"io"

	"github.com/starford/devtally/internal/bot"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config      *Config
	botClient   bot.Client
	botUsername string
	logOutput   io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithBotClient uses client instead of dialing the Bot API with the
// configured token. username is the bot's own handle.
func WithBotClient(client bot.Client, username string) Option {
	return func(a *application) {
		a.botClient = client
		a.botUsername = username
	}
}

// WithLogOutput sets where the JSON logger writes. Defaults to stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
