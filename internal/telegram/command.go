package telegram

import (
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Command is a parsed bot command.
type Command struct {
	// Name is the lower-cased command without the leading slash.
	Name string
	// Args are the whitespace separated tokens after the command.
	Args []string
	// Payload is the raw text after the command, trimmed.
	Payload string
}

// ParseCommand parses "/name[@bot] args..." from text. Commands addressed
// to another bot are rejected.
func ParseCommand(text, botUsername string) (Command, bool) {
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	head, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		rest = head[i:] + " " + rest
		head = head[:i]
	}

	name, mention, hasMention := strings.Cut(head, "@")
	if name == "" {
		return Command{}, false
	}
	if hasMention && (botUsername == "" || !strings.EqualFold(mention, botUsername)) {
		return Command{}, false
	}

	payload := strings.TrimSpace(rest)
	return Command{
		Name:    strings.ToLower(name),
		Args:    strings.Fields(payload),
		Payload: payload,
	}, true
}

// CommandFromUpdate parses the command of a message update.
func CommandFromUpdate(update *models.Update, botUsername string) (Command, bool) {
	if update == nil || update.Message == nil {
		return Command{}, false
	}
	return ParseCommand(update.Message.Text, botUsername)
}

// MatchCommand matches message updates carrying the command name.
func MatchCommand(name, botUsername string) bot.MatchFunc {
	name = strings.ToLower(name)
	return func(update *models.Update) bool {
		cmd, ok := CommandFromUpdate(update, botUsername)
		return ok && cmd.Name == name
	}
}
