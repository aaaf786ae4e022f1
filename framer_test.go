package pdm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLineFramer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		chunks []string
		want   []string
	}{
		{
			name:   "crlf lines",
			chunks: []string{"Battery Voltage: 12.34 V\r\nSystem Uptime: 5 seconds\r\n"},
			want:   []string{"Battery Voltage: 12.34 V", "System Uptime: 5 seconds"},
		},
		{
			name:   "bare lf and bare cr",
			chunks: []string{"a\nb\rc\n"},
			want:   []string{"a", "b", "c"},
		},
		{
			name:   "line split across reads",
			chunks: []string{"Board Tempera", "ture: 42", ".5 °C\r", "\n"},
			want:   []string{"Board Temperature: 42.5 °C"},
		},
		{
			name:   "empty and blank lines dropped",
			chunks: []string{"\r\n\r\n   \r\nOK: done\r\n\r\n"},
			want:   []string{"OK: done"},
		},
		{
			name:   "whitespace trimmed",
			chunks: []string{"  1  |   ON   | 2.50 A |  L  |   1   |   GREEN  \r\n"},
			want:   []string{"1  |   ON   | 2.50 A |  L  |   1   |   GREEN"},
		},
		{
			name:   "unterminated tail is held",
			chunks: []string{"OK: one\r\nOK: tw"},
			want:   []string{"OK: one"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newLineFramer()
			var got []string
			for _, chunk := range tt.chunks {
				got = append(got, f.feed([]byte(chunk))...)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLineFramerMultiByteRuneSplit(t *testing.T) {
	t.Parallel()

	degree := []byte("°") // 0xC2 0xB0
	f := newLineFramer()

	assert.Empty(t, f.feed(append([]byte("42.5 "), degree[0])))
	got := f.feed(append([]byte{degree[1]}, "C\n"...))

	assert.Equal(t, []string{"42.5 °C"}, got)
}

func TestLineFramerInvalidUTF8(t *testing.T) {
	t.Parallel()

	f := newLineFramer()
	got := f.feed([]byte("noise \xff\xfe here\r\n"))

	if assert.Len(t, got, 1) {
		assert.True(t, utf8.ValidString(got[0]))
		assert.Contains(t, got[0], string(utf8.RuneError))
		assert.True(t, strings.HasPrefix(got[0], "noise "))
		assert.True(t, strings.HasSuffix(got[0], " here"))
	}
}

func TestLineFramerLongLineFlushed(t *testing.T) {
	t.Parallel()

	f := newLineFramer()
	got := f.feed([]byte(strings.Repeat("x", maxLineLength+10)))

	if assert.Len(t, got, 1) {
		assert.Len(t, got[0], maxLineLength)
	}
	assert.Equal(t, []string{strings.Repeat("x", 10)}, f.feed([]byte("\n")))
}

func TestLineFramerLongLineKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	for _, r := range []string{"é", "€", "😀"} {
		t.Run(r, func(t *testing.T) {
			t.Parallel()

			f := newLineFramer()
			line := "x" + strings.Repeat(r, maxLineLength)
			got := f.feed([]byte(line))
			got = append(got, f.feed([]byte("\n"))...)

			for _, part := range got {
				assert.True(t, utf8.ValidString(part))
				assert.NotContains(t, part, string(utf8.RuneError))
				assert.LessOrEqual(t, len(part), maxLineLength)
			}
			assert.Equal(t, line, strings.Join(got, ""))
		})
	}
}

func TestLineFramerReassemblesAnyChunking(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.StringMatching(`[ A-Za-z0-9:|.°]{0,40}`), 1, 20).Draw(t, "lines")
		terms := []string{"\n", "\r\n", "\r"}

		var stream strings.Builder
		var want []string
		for _, line := range raw {
			stream.WriteString(line)
			stream.WriteString(rapid.SampledFrom(terms).Draw(t, "term"))
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				want = append(want, trimmed)
			}
		}

		data := []byte(stream.String())
		f := newLineFramer()
		var got []string
		for len(data) > 0 {
			n := rapid.IntRange(1, len(data)).Draw(t, "chunk")
			got = append(got, f.feed(data[:n])...)
			data = data[n:]
		}

		if len(want) == 0 {
			if len(got) != 0 {
				t.Fatalf("expected no lines, got %q", got)
			}
			return
		}
		if strings.Join(got, "\n") != strings.Join(want, "\n") || len(got) != len(want) {
			t.Fatalf("got %q, want %q", got, want)
		}
	})
}
