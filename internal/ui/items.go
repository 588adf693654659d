package ui

import (
	"context"
	"fmt"
	"strings"

	"vlist-tui/pkg/types"
)

var loremWords = strings.Fields(`lorem ipsum dolor sit amet consectetur adipiscing
elit sed do eiusmod tempor incididunt ut labore et dolore magna aliqua ut enim ad
minim veniam quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea
commodo consequat`)

var snippets = []struct {
	language string
	code     string
}{
	{"go", "func (t *OffsetTable) End(i int) float64 {\n\treturn t.offsets[i]\n}"},
	{"python", "def locate(offsets, target):\n    lo, hi = 0, len(offsets) - 1\n    while lo < hi:\n        mid = (lo + hi) // 2\n        if target < offsets[mid]:\n            hi = mid\n        else:\n            lo = mid + 1\n    return lo"},
	{"json", "{\n  \"start\": 12,\n  \"end\": 44\n}"},
	{"bash", "vlist -items 100000 -gap 1"},
}

// DemoSource generates a deterministic list of variable-height items. Even
// items carry about twice as much text as odd ones, every fifth item holds a
// code snippet and every seventh a short note.
type DemoSource struct {
	count int
}

var _ types.ItemSource = (*DemoSource)(nil)

// NewDemoSource creates a source of count items
func NewDemoSource(count int) *DemoSource {
	return &DemoSource{count: max(0, count)}
}

// Count implements the item source interface
func (s *DemoSource) Count(ctx context.Context) (int, error) {
	return s.count, nil
}

// FetchItems implements the item source interface for [start, end)
func (s *DemoSource) FetchItems(ctx context.Context, start, end int) ([]types.ListItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = max(0, start)
	end = min(end, s.count)
	if start >= end {
		return []types.ListItem{}, nil
	}

	items := make([]types.ListItem, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, DemoItem(i))
	}
	return items, nil
}

// DemoItem builds item index
func DemoItem(index int) types.ListItem {
	item := types.ListItem{
		Index: index,
		Kind:  types.ItemText,
		Title: fmt.Sprintf("Item Number: %d", index),
	}

	switch {
	case index%5 == 4:
		snippet := snippets[(index/5)%len(snippets)]
		item.Kind = types.ItemCode
		item.Body = fmt.Sprintf("A %s snippet.", snippet.language)
		item.Language = snippet.language
		item.Code = snippet.code
	case index%7 == 6:
		item.Kind = types.ItemNote
		item.Body = "note"
	default:
		words := 12 + (index*7919)%24
		if index%2 == 0 {
			words *= 2
		}
		item.Body = lorem(index, words)
	}
	return item
}

func lorem(seed, words int) string {
	out := make([]string, words)
	for i := range out {
		out[i] = loremWords[(seed+i*3)%len(loremWords)]
	}
	return strings.Join(out, " ")
}
