package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTextDecoder_Decode(t *testing.T) {
	d := NewTextDecoder()
	word := []byte("你好")

	assert.Equal(t, "", d.Decode(word[:2], false))
	assert.Equal(t, 2, d.Pending())
	assert.Equal(t, "你", d.Decode(word[2:4], false))
	assert.Equal(t, "好", d.Decode(word[4:], false))
	assert.Equal(t, 0, d.Pending())
	assert.Equal(t, "�", d.Decode([]byte{0xff}, false))
	// EOF 时残缺字符替换掉
	assert.Equal(t, "�", d.Decode(word[:1], true))
	assert.Equal(t, "", d.Decode(nil, true))
}

func TestTextDecoder_ChunkSizes(t *testing.T) {
	input := []byte(strings.Repeat("é€😀a", 200))
	for _, size := range []int{1, 2, 3, 5, 1024} {
		d := NewTextDecoder()
		var sb strings.Builder
		for i := 0; i < len(input); i += size {
			end := i + size
			if end > len(input) {
				end = len(input)
			}
			text := d.Decode(input[i:end], false)
			assert.True(t, utf8.ValidString(text), "size %d offset %d", size, i)
			sb.WriteString(text)
		}
		sb.WriteString(d.Decode(nil, true))
		assert.Equal(t, string(input), sb.String(), "size %d", size)
	}
}
