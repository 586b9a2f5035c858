// File: internal/screen/bounds.go
package screen

import (
	"fmt"
	"regexp"
	"strconv"
)

// boundsPattern matches the uiautomator rectangle notation "[x1,y1][x2,y2]".
var boundsPattern = regexp.MustCompile(`^\s*\[\s*(-?\d+)\s*,\s*(-?\d+)\s*\]\s*\[\s*(-?\d+)\s*,\s*(-?\d+)\s*\]\s*$`)

// Bounds is an element rectangle in device pixels. Right and Bottom are exclusive.
type Bounds struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// ParseBounds parses "[x1,y1][x2,y2]". A rectangle with negative extent is an error.
func ParseBounds(s string) (Bounds, error) {
	m := boundsPattern.FindStringSubmatch(s)
	if m == nil {
		return Bounds{}, fmt.Errorf("malformed bounds %q: expected [x1,y1][x2,y2]", s)
	}
	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Bounds{}, fmt.Errorf("malformed bounds %q: %w", s, err)
		}
		v[i] = n
	}
	b := Bounds{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}
	if b.Right < b.Left || b.Bottom < b.Top {
		return Bounds{}, fmt.Errorf("malformed bounds %q: inverted rectangle", s)
	}
	return b, nil
}

// String renders the bounds in uiautomator notation.
func (b Bounds) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", b.Left, b.Top, b.Right, b.Bottom)
}

// Center returns the midpoint, rounded down.
func (b Bounds) Center() (x, y int) {
	return (b.Left + b.Right) / 2, (b.Top + b.Bottom) / 2
}

// Empty reports whether the rectangle has no area.
func (b Bounds) Empty() bool {
	return b.Right <= b.Left || b.Bottom <= b.Top
}

// Size is the physical display size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Known reports whether both dimensions were discovered.
func (s Size) Known() bool {
	return s.Width > 0 && s.Height > 0
}

// Contains reports whether the point lies on screen. An unknown size
// contains every non-negative point.
func (s Size) Contains(x, y int) bool {
	if x < 0 || y < 0 {
		return false
	}
	if !s.Known() {
		return true
	}
	return x < s.Width && y < s.Height
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}
