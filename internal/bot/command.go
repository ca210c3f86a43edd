package bot

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// CommandPrefix starts every chat command.
const CommandPrefix = "!"

// ErrNotCommand is returned by Handle for messages that are not addressed to the bot.
var ErrNotCommand = errors.New("message is not a weather command")

// Message is one inbound chat message.
type Message struct {
	Sender string `json:"sender"`
	Body   string `json:"body" validate:"required"`
}

// ParseCommand splits "!alias some place" into the alias and the raw
// argument text. ok is false unless the alias is one of names.
func ParseCommand(body string, names []string) (cmd, args string, ok bool) {
	body = strings.TrimLeftFunc(body, unicode.IsSpace)
	if !strings.HasPrefix(body, CommandPrefix) {
		return "", "", false
	}
	rest := body[len(CommandPrefix):]

	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end < 0 {
		cmd, args = rest, ""
	} else {
		cmd, args = rest[:end], strings.TrimSpace(rest[end:])
	}

	for _, name := range names {
		if name == cmd {
			return cmd, args, true
		}
	}
	return "", "", false
}

// Usage is the reply to a command without a location.
func Usage(names []string) string {
	name := "weather"
	if len(names) > 0 {
		name = names[0]
	}
	return fmt.Sprintf("usage: %s%s <location>", CommandPrefix, name)
}
