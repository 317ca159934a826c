package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func btns(n int) []InlineBtn {
	out := make([]InlineBtn, n)
	for i := range out {
		out[i] = InlineBtn{Text: string(rune('a' + i)), Unique: "nav", Data: string(rune('0' + i))}
	}
	return out
}

func TestChunk(t *testing.T) {
	t.Parallel()

	rows := Chunk(btns(7), 3)
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 3)
	assert.Len(t, rows[2], 1)
	assert.Len(t, Chunk(btns(2), 0), 2, "n below one means one per row")
	assert.Empty(t, Chunk(nil, 3))
}

func TestInlineButtonsRows(t *testing.T) {
	t.Parallel()

	m := InlineButtonsRows(btns(2), nil, btns(1))
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 2, "empty rows are dropped")
	assert.Equal(t, "a", m.InlineKeyboard[0][0].Text)
	assert.Equal(t, "nav", m.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "1", m.InlineKeyboard[0][1].Data)

	assert.Nil(t, InlineButtonsRows())
	assert.Len(t, InlineButtons(btns(3)).InlineKeyboard, 3)
	assert.Len(t, InlineButtonsNPerRow(btns(4), 3).InlineKeyboard, 2)
}
