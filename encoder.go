package fluid

import (
	"io"
	"strings"

	"github.com/kaqq/fluid/value"
)

// Encoder transforms rendered text on its way to the output sink.
type Encoder = value.Encoder

// NullEncoder writes text through unchanged.
type NullEncoder struct{}

func (NullEncoder) Encode(w io.Writer, text string) error {
	_, err := io.WriteString(w, text)
	return err
}

// HTMLEncoder escapes text for HTML output.
type HTMLEncoder struct{}

func (HTMLEncoder) Encode(w io.Writer, text string) error {
	_, err := io.WriteString(w, escapeHTML(text))
	return err
}

// escapeHTML escapes <, >, &, ", and ' for HTML.
func escapeHTML(s string) string {
	if !strings.ContainsAny(s, `<>&"'`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#x27;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// flusher is implemented by sinks that buffer output, e.g. bufio.Writer.
type flusher interface {
	Flush() error
}

// flushSink flushes the sink if it buffers. Called on normal completion of
// both execution modes.
func flushSink(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
