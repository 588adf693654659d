package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"vlist-tui/pkg/types"
)

// ItemRenderer turns list items into terminal blocks. Item height follows
// from the content and the width, so it is only known after rendering.
type ItemRenderer struct {
	highlighter *SyntaxHighlighter

	even, odd   lipgloss.Color
	title       lipgloss.Style
	body        lipgloss.Style
	note        lipgloss.Style
	placeholder lipgloss.Style
}

// NewItemRenderer creates a renderer for the dark or light theme
func NewItemRenderer(theme string) *ItemRenderer {
	r := &ItemRenderer{
		highlighter: NewSyntaxHighlighter(theme),
		even:        lipgloss.Color("33"),
		odd:         lipgloss.Color("196"),
		title:       lipgloss.NewStyle().Bold(true),
		body:        lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		note:        lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244")),
		placeholder: lipgloss.NewStyle().Faint(true),
	}
	if theme == "light" {
		r.body = r.body.Foreground(lipgloss.Color("236"))
	}
	return r
}

// box frames content with a left bar colored by item parity
func (r *ItemRenderer) box(index, width int) lipgloss.Style {
	color := r.odd
	if index%2 == 0 {
		color = r.even
	}
	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(color).
		PaddingLeft(1).
		Width(max(1, width-1))
}

// inner is the text width left inside the box
func inner(width int) int {
	return max(1, width-2)
}

// Render renders a loaded item
func (r *ItemRenderer) Render(item types.ListItem, width int) string {
	parts := []string{r.title.Render(item.Title)}

	switch item.Kind {
	case types.ItemNote:
		parts[0] = lipgloss.JoinHorizontal(lipgloss.Top, parts[0], " ", r.note.Render(item.Body))
	case types.ItemCode:
		if item.Body != "" {
			parts = append(parts, r.body.Render(item.Body))
		}
		code := r.highlighter.Highlight(item.Code, item.Language)
		parts = append(parts, lipgloss.NewStyle().MaxWidth(inner(width)).Render(code))
	default:
		if item.Body != "" {
			parts = append(parts, r.body.Render(item.Body))
		}
	}

	return r.box(item.Index, width).Render(strings.Join(parts, "\n"))
}

// Placeholder renders an item whose content has not arrived yet
func (r *ItemRenderer) Placeholder(index, width int) string {
	text := fmt.Sprintf("Item Number: %d  loading…", index)
	return r.box(index, width).Render(r.placeholder.Render(text))
}
