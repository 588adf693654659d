package virtual

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWindowClampsScrollState(t *testing.T) {
	table, err := NewOffsetTable(1000, 144, 0)
	require.NoError(t, err)

	top := ResolveWindow(table, 0, 576, 2)
	assert.Equal(t, Window{Start: 0, End: 4, PaddedStart: 0, PaddedEnd: 6}, top)

	tests := []struct {
		name      string
		scrollTop float64
		viewport  float64
		overscan  int
		want      Window
	}{
		{"negative scroll", -50, 576, 2, top},
		{"NaN scroll", math.NaN(), 576, 2, top},
		{"negative infinite scroll", math.Inf(-1), 576, 2, top},
		{"negative viewport", 0, -10, 2, ResolveWindow(table, 0, 0, 2)},
		{"NaN viewport", 0, math.NaN(), 2, ResolveWindow(table, 0, 0, 2)},
		{"negative overscan", 0, 576, -3, ResolveWindow(table, 0, 576, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveWindow(table, tt.scrollTop, tt.viewport, tt.overscan))
		})
	}
}

func TestResolveWindowEmptyTable(t *testing.T) {
	table, err := NewOffsetTable(0, 10, 0)
	require.NoError(t, err)

	w := ResolveWindow(table, -50, 100, 2)
	assert.Equal(t, 0, w.Len())
	assert.Empty(t, table.Items(w))
}
