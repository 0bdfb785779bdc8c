package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "short", truncateUTF8("short", 10))
	assert.Equal(t, "abc", truncateUTF8("abcdef", 3))

	// "é" is two bytes; cutting after its first byte backs off to the rune start
	s := strings.Repeat("a", 4) + "é" + "z"
	got := truncateUTF8(s, 5)
	assert.Equal(t, "aaaa", got)
	assert.True(t, utf8.ValidString(got))

	long := strings.Repeat("日本語", 20000)
	got = truncateUTF8(long, maxEmbedBytes)
	assert.LessOrEqual(t, len(got), maxEmbedBytes)
	assert.True(t, utf8.ValidString(got))
}
