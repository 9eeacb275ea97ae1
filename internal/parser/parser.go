// Package parser splits chat messages into bot commands and arguments.
package parser

import (
	"strings"
	"unicode"
)

// Command is a parsed "/name arg..." message.
type Command struct {
	Name string
	Args []string
	// Mention is the bot username from "/name@bot", without the "@".
	Mention string
}

// Parse extracts a command from text. It returns false when text does not
// start with a "/" command token. The name is lowercased; arguments are the
// remaining whitespace-separated fields.
func Parse(text string) (Command, bool) {
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}
	fields := strings.FieldsFunc(text, unicode.IsSpace)
	head := strings.TrimPrefix(fields[0], "/")

	var mention string
	if i := strings.Index(head, "@"); i >= 0 {
		head, mention = head[:i], head[i+1:]
	}
	if head == "" {
		return Command{}, false
	}
	return Command{
		Name:    strings.ToLower(head),
		Args:    fields[1:],
		Mention: mention,
	}, true
}

// For reports whether the command is addressed to botName, either by
// mention or because it carries no mention at all.
func (c Command) For(botName string) bool {
	return c.Mention == "" || strings.EqualFold(c.Mention, botName)
}

// Rest joins the arguments from index i onward with single spaces.
func (c Command) Rest(i int) string {
	if i >= len(c.Args) {
		return ""
	}
	return strings.Join(c.Args[i:], " ")
}
