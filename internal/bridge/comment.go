// ABOUTME: Renders a chat message as an HTML block for the task description.
// ABOUTME: Plain text is escaped line by line; markdown goes through goldmark.

package bridge

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"
)

const commentTimeLayout = "02.01.2006 15:04 MST"

// formatComment returns the header and body appended for one message.
func (e *Engine) formatComment(author string, at time.Time, text string) (string, error) {
	if at.IsZero() {
		at = e.now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<p><b>Комментарий от %s (%s):</b></p>",
		html.EscapeString(author), at.In(e.cfg.Location).Format(commentTimeLayout))

	if e.cfg.Markdown {
		var buf bytes.Buffer
		if err := e.md.Convert([]byte(text), &buf); err != nil {
			return "", fmt.Errorf("rendering markdown: %w", err)
		}
		b.Write(bytes.TrimSpace(buf.Bytes()))
		return b.String(), nil
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = html.EscapeString(line)
	}
	b.WriteString("<p>" + strings.Join(lines, "<br>") + "</p>")
	return b.String(), nil
}
