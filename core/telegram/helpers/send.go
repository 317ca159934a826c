package helpers

import (
	"github.com/m3rciful/achibot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// MaxMessageRunes keeps outgoing text under the Bot API limit of 4096
// characters with room for markup.
const MaxMessageRunes = 4000

const answeredKey = "cb_answered"

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	if len(opts) > 0 && opts[0] != nil {
		return c.Send(text, opts[0])
	}
	return c.Send(text)
}

// EditOrSend edits the callback's message or sends a new one when there is
// nothing to edit. Identical content is not an error.
func EditOrSend(c tele.Context, text string, opts *tele.SendOptions) error {
	var err error
	if opts != nil {
		err = c.EditOrSend(text, opts)
	} else {
		err = c.EditOrSend(text)
	}
	if netutil.NotModified(err) {
		return nil
	}
	return err
}

// Answer responds to the current callback query, optionally with a toast.
// Later calls in the same update are no-ops.
func Answer(c tele.Context, text string) error {
	if c.Callback() == nil || Answered(c) {
		return nil
	}
	c.Set(answeredKey, true)
	if text == "" {
		return c.Respond()
	}
	return c.Respond(&tele.CallbackResponse{Text: text})
}

// Answered reports whether the callback was already answered.
func Answered(c tele.Context) bool {
	v, _ := c.Get(answeredKey).(bool)
	return v
}
