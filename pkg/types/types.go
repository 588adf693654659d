package types

import "context"

// Common types shared by the list, the item source and the RPC layer

// ItemKind describes what a list item carries
type ItemKind int

const (
	ItemText ItemKind = iota
	ItemCode
	ItemNote
)

// String returns the string representation of an ItemKind
func (k ItemKind) String() string {
	switch k {
	case ItemText:
		return "text"
	case ItemCode:
		return "code"
	case ItemNote:
		return "note"
	default:
		return "unknown"
	}
}

// ListItem is the content of one list row. Its rendered height depends on
// the body length, the terminal width and the code block, so it is only
// known after rendering.
type ListItem struct {
	Index    int      `json:"index"`
	Kind     ItemKind `json:"kind"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Language string   `json:"language,omitempty"`
	Code     string   `json:"code,omitempty"`
}

// ItemSource provides list content by index range. FetchItems covers
// [start, end) and returns fewer items past the end of the list.
type ItemSource interface {
	Count(ctx context.Context) (int, error)
	FetchItems(ctx context.Context, start, end int) ([]ListItem, error)
}
