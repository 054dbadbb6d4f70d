package utils

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// TextDecoder 把字节流切成合法的 utf-8 文本。
// 末尾不完整的字符留到下一次 Decode，非法字节替换为 U+FFFD。非并发安全。
type TextDecoder struct {
	decoder transform.Transformer
	pending []byte
}

func NewTextDecoder() *TextDecoder {
	return &TextDecoder{
		decoder: unicode.UTF8.NewDecoder(),
	}
}

// Decode atEOF 为 true 时不再等待后续字节，残缺字符直接替换
func (d *TextDecoder) Decode(src []byte, atEOF bool) string {
	d.pending = append(d.pending, src...)
	if len(d.pending) == 0 {
		return ""
	}
	// 单字节替换成 U+FFFD 最多膨胀 3 倍
	dst := make([]byte, len(d.pending)*3)
	nDst, nSrc, _ := d.decoder.Transform(dst, d.pending, atEOF)
	d.pending = append(d.pending[:0], d.pending[nSrc:]...)
	return string(dst[:nDst])
}

// Pending 还没凑成完整字符的字节数
func (d *TextDecoder) Pending() int {
	return len(d.pending)
}
