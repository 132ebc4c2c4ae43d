package render

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/comigor/halilintar-go/internal/logger"
)

var htmlFormatter = html.New(html.WithClasses(false), html.TabWidth(2))

func lexerFor(language, code string) chroma.Lexer {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

func styleFor(name string) *chroma.Style {
	style := chromaStyles.Get(name)
	if style == nil {
		style = chromaStyles.Fallback
	}
	return style
}

// highlightHTML renders code as an inline-styled <pre> block. On failure it
// falls back to the escaped source.
func highlightHTML(language, code, styleName string) template.HTML {
	iterator, err := lexerFor(language, code).Tokenise(nil, code)
	if err != nil {
		logger.L.Debug("tokenise failed", "language", language, "error", err)
		return plainPre(code)
	}
	var buf bytes.Buffer
	if err := htmlFormatter.Format(&buf, styleFor(styleName), iterator); err != nil {
		logger.L.Debug("html format failed", "language", language, "error", err)
		return plainPre(code)
	}
	return template.HTML(buf.String())
}

// highlightTerminal renders code with 256-colour escapes.
func highlightTerminal(language, code, styleName string) string {
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	iterator, err := lexerFor(language, code).Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, styleFor(styleName), iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

func plainPre(code string) template.HTML {
	return template.HTML("<pre>" + template.HTMLEscapeString(code) + "</pre>")
}
