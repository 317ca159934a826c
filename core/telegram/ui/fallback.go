package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider supplies the replies for updates no registered handler
// accepts, and for admin commands sent by anyone else.
type FallbackProvider interface {
	UnknownCommand() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
	AdminRejected() tele.HandlerFunc
}
