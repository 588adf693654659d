package ui

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// SyntaxHighlighter colors code blocks for the terminal
type SyntaxHighlighter struct {
	style     *chroma.Style
	formatter chroma.Formatter
	lexers    map[string]chroma.Lexer
}

// NewSyntaxHighlighter picks a chroma style matching the theme
func NewSyntaxHighlighter(theme string) *SyntaxHighlighter {
	name := "monokai"
	if theme == "light" {
		name = "github"
	}
	style := styles.Get(name)
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	return &SyntaxHighlighter{
		style:     style,
		formatter: formatter,
		lexers:    make(map[string]chroma.Lexer),
	}
}

// lexer returns a coalesced lexer for language, or nil if chroma has none
func (sh *SyntaxHighlighter) lexer(language string) chroma.Lexer {
	language = strings.ToLower(language)
	if lexer, ok := sh.lexers[language]; ok {
		return lexer
	}

	lexer := lexers.Get(language)
	if lexer != nil {
		lexer = chroma.Coalesce(lexer)
	}
	sh.lexers[language] = lexer
	return lexer
}

// Highlight returns code with ANSI colors. It returns code unchanged when
// the language is unknown or highlighting fails. The result always has as
// many lines as code.
func (sh *SyntaxHighlighter) Highlight(code, language string) string {
	code = strings.TrimRight(code, "\n")
	if code == "" || language == "" {
		return code
	}

	lexer := sh.lexer(language)
	if lexer == nil {
		return code
	}

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf bytes.Buffer
	if err := sh.formatter.Format(&buf, sh.style, it); err != nil {
		return code
	}

	// the lexer may add a final newline; only escape codes may follow it
	want := strings.Count(code, "\n") + 1
	lines := strings.Split(buf.String(), "\n")
	if len(lines) < want {
		return code
	}
	for _, extra := range lines[want:] {
		if lipgloss.Width(extra) != 0 {
			return code
		}
	}
	return strings.Join(lines[:want], "\n") + strings.Join(lines[want:], "")
}
