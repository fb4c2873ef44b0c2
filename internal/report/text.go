package report

import (
	"fmt"
	"strings"
)

// Text builds a plain-text report with ruled section headings
type Text struct {
	b     strings.Builder
	width int
}

func NewText(title string) *Text {
	t := &Text{width: 70}
	t.Rule("=")
	t.Line("%s", title)
	t.Rule("=")
	return t
}

func (t *Text) Rule(ch string) { t.b.WriteString(strings.Repeat(ch, t.width) + "\n") }

func (t *Text) Line(format string, args ...interface{}) {
	t.b.WriteString(fmt.Sprintf(format, args...) + "\n")
}

// Section starts a new heading
func (t *Text) Section(title string) {
	t.b.WriteString("\n")
	t.Line("%s", title)
	t.Rule("-")
}

// Bullet writes an indented list item
func (t *Text) Bullet(format string, args ...interface{}) {
	t.Line("  • "+format, args...)
}

// Block appends preformatted text as-is
func (t *Text) Block(s string) {
	t.b.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		t.b.WriteString("\n")
	}
}

func (t *Text) String() string { return t.b.String() }
