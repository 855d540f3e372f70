package ffmpeg

import (
	"fmt"
	"strings"
)

// VideoFilterChain builds video filter chains.
type VideoFilterChain struct {
	filters []string
}

// NewVideoFilterChain creates a new empty filter chain.
func NewVideoFilterChain() *VideoFilterChain {
	return &VideoFilterChain{}
}

// AddMaxWidth caps the width at maxWidth while keeping the aspect ratio with
// an even height. A zero width adds nothing.
func (c *VideoFilterChain) AddMaxWidth(maxWidth uint32) *VideoFilterChain {
	if maxWidth > 0 {
		c.filters = append(c.filters, fmt.Sprintf("scale='min(%d,iw)':-2", maxWidth))
	}
	return c
}

// Build builds the filter chain into a single filter string.
// Returns empty string if no filters are present.
func (c *VideoFilterChain) Build() string {
	if len(c.filters) == 0 {
		return ""
	}
	return strings.Join(c.filters, ",")
}
