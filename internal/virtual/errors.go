package virtual

import "errors"

// Configuration errors returned by New and NewOffsetTable. They are always
// wrapped, so compare with errors.Is.
var (
	ErrInvalidItemCount = errors.New("item count must be >= 0")
	ErrInvalidItemSize  = errors.New("estimated item size must be > 0")
	ErrInvalidGap       = errors.New("gap must be >= 0")
	ErrInvalidOverscan  = errors.New("overscan must be >= 0")
)
