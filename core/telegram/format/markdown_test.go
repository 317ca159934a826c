package format

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkdown(t *testing.T) {
	t.Parallel()

	v1, err := EscapeMarkdown("a_b*c`d[e]", MarkdownV1)
	require.NoError(t, err)
	assert.Equal(t, "a\\_b\\*c\\`d\\[e]", v1)

	v2, err := EscapeMarkdown("A00.1 (x-y)!", MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, "A00\\.1 \\(x\\-y\\)\\!", v2)

	_, err = EscapeMarkdown("x", 3)
	require.Error(t, err)
	assert.Equal(t, "Код\\_1", MD("Код_1"))
}

func TestEscapeMarkdownV2Characters(t *testing.T) {
	t.Parallel()

	for _, r := range mdV2Specials + `\` {
		got, err := EscapeMarkdown(string(r), MarkdownV2)
		require.NoError(t, err)
		assert.Equal(t, `\`+string(r), got)
	}

	plain := "0123456789,/:;<?@ABCxyz Код"
	got, err := EscapeMarkdown(plain, MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestSplit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"short"}, Split("short", 10))

	block := strings.Repeat("я", 8)
	text := strings.Join([]string{block, block, block}, "\n\n")
	chunks := Split(text, 12)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 12)
		assert.Equal(t, block, c)
	}

	long := strings.Repeat("x", 25)
	chunks = Split(long, 10)
	assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"}, chunks)
}
