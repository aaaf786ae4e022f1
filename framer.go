package pdm

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// maxLineLength bounds the framing buffer; a longer unterminated run is
// emitted as a line of its own
const maxLineLength = 4096

// lineFramer splits a byte stream into trimmed, non-empty text lines.
// It is owned by a single reader goroutine.
type lineFramer struct {
	buf     []byte
	decoder *encoding.Decoder
}

func newLineFramer() *lineFramer {
	return &lineFramer{
		buf:     make([]byte, 0, 256),
		decoder: unicode.UTF8.NewDecoder(),
	}
}

// feed appends chunk and returns every line it completed. Bytes after the
// last terminator stay buffered for the next call.
func (f *lineFramer) feed(chunk []byte) []string {
	var lines []string
	for _, b := range chunk {
		if b == '\r' || b == '\n' {
			lines = f.flush(lines)
			continue
		}
		f.buf = append(f.buf, b)
		if len(f.buf) >= maxLineLength {
			lines = f.flushOverflow(lines)
		}
	}
	return lines
}

// flushOverflow emits the buffer up to its last whole rune and keeps the
// bytes of a rune still being received
func (f *lineFramer) flushOverflow(lines []string) []string {
	cut := runeBoundary(f.buf)
	tail := append([]byte(nil), f.buf[cut:]...)
	f.buf = f.buf[:cut]
	lines = f.flush(lines)
	f.buf = append(f.buf, tail...)
	return lines
}

// runeBoundary returns the length of b without a trailing incomplete rune
func runeBoundary(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) || i == 0 {
			return len(b)
		}
		return i
	}
	return len(b)
}

func (f *lineFramer) flush(lines []string) []string {
	if len(f.buf) == 0 {
		return lines
	}
	line := strings.TrimSpace(f.decode(f.buf))
	f.buf = f.buf[:0]
	if line == "" {
		return lines
	}
	return append(lines, line)
}

// decode replaces invalid UTF-8 with U+FFFD
func (f *lineFramer) decode(b []byte) string {
	out, err := f.decoder.Bytes(b)
	if err != nil || !utf8.Valid(out) {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return string(out)
}
