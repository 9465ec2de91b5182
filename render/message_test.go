package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "hello", want: "hello"},
		{name: "keeps newlines and tabs", in: "a\n\tb", want: "a\n\tb"},
		{name: "csi", in: "\x1b[2Jcleared", want: "cleared"},
		{name: "osc title", in: "\x1b]0;pwned\x07text", want: "text"},
		{name: "bell and backspace", in: "a\x07b\x08c", want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestMessage_PlainTextUntouched(t *testing.T) {
	in := "SELECT * FROM students WHERE age > 15; -- uses * and _underscores_"
	assert.Equal(t, in, Message(in))
}

func TestMessage_HTMLBecomesMarkdown(t *testing.T) {
	out := Message(`<p>Found <b>2</b> tables</p><script>alert(1)</script>`)

	assert.NotContains(t, out, "<p>")
	assert.NotContains(t, out, "<b>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "Found")
	assert.Contains(t, out, "tables")
}
