// Package commands holds the metadata a bot command is registered with.
package commands

import tele "gopkg.in/telebot.v4"

// Command is a slash command. Description is shown in the Telegram menu
// unless the command is Hidden or AdminOnly. Aliases route to the same
// handler but are never listed.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Listed reports whether the command belongs in the public menu.
func (c Command) Listed() bool { return !c.Hidden && !c.AdminOnly }
