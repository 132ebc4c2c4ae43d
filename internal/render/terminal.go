package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Terminal renders a view for a text terminal: prose through glamour, code
// blocks highlighted and numbered so they can be copied by index.
func (r *Renderer) Terminal(v View, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(string(r.Theme())),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}

	var sb strings.Builder
	if v.ModelLabel != "" {
		fmt.Fprintf(&sb, "[%s]\n", v.ModelLabel)
	}
	style := r.style()
	code := 0
	for _, b := range v.Blocks {
		switch b.Kind {
		case BlockProse:
			out, err := md.Render(b.Text)
			if err != nil {
				sb.WriteString(b.Text)
				continue
			}
			sb.WriteString(out)
		case BlockCode:
			code++
			fmt.Fprintf(&sb, "--- #%d %s (%s)", code, b.Language, b.Filename)
			if b.Unterminated {
				sb.WriteString(" [unterminated]")
			}
			sb.WriteString("\n")
			sb.WriteString(highlightTerminal(b.Language, b.Text, style))
			sb.WriteString("\n---\n")
		}
	}
	return sb.String(), nil
}

// CodeBlocks returns the code blocks of v in document order.
func CodeBlocks(v View) []Block {
	var out []Block
	for _, b := range v.Blocks {
		if b.Kind == BlockCode {
			out = append(out, b)
		}
	}
	return out
}
