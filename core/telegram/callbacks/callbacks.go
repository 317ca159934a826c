// Package callbacks decodes inline button data.
package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData splits telebot's "\f<unique>|<payload>" encoding. A
// callback telebot already matched carries Unique and Data separately.
func ParseCallbackData(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	unique, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(unique), payload
}

// Payload returns the payload of the current callback.
func Payload(c tele.Context) string {
	_, p := ParseCallbackData(c.Callback())
	return p
}

// SplitPair splits s once at sep. Both halves must be non-empty.
func SplitPair(s, sep string) (string, string, error) {
	a, b, ok := strings.Cut(s, sep)
	if !ok || a == "" || b == "" {
		return "", "", strconv.ErrSyntax
	}
	return a, b, nil
}
