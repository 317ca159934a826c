package callbacks

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cb      *tele.Callback
		key     string
		payload string
	}{
		{name: "nil", cb: nil},
		{name: "unique set", cb: &tele.Callback{Unique: "nav", Data: "2:1"}, key: "nav", payload: "2:1"},
		{name: "raw encoding", cb: &tele.Callback{Data: "\fpin|achi:39000-00"}, key: "pin", payload: "achi:39000-00"},
		{name: "payload keeps separators", cb: &tele.Callback{Data: "\fx|a|b"}, key: "x", payload: "a|b"},
		{name: "no payload", cb: &tele.Callback{Data: "\frestart"}, key: "restart"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			key, payload := ParseCallbackData(tt.cb)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.payload, payload)
		})
	}
}

func TestSplitPair(t *testing.T) {
	t.Parallel()

	a, b, err := SplitPair("mkh10:A00.1", ":")
	require.NoError(t, err)
	assert.Equal(t, "mkh10", a)
	assert.Equal(t, "A00.1", b)

	for _, in := range []string{"", "mkh10", ":A00", "mkh10:"} {
		_, _, err := SplitPair(in, ":")
		assert.ErrorIs(t, err, strconv.ErrSyntax, in)
	}
}

type cbContext struct {
	tele.Context
	cb *tele.Callback
}

func (c cbContext) Callback() *tele.Callback { return c.cb }

func TestPayload(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "achi", Payload(cbContext{cb: &tele.Callback{Data: "\frestart|achi"}}))
	assert.Empty(t, Payload(cbContext{}))
}
