package normalize

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a display color in "#rrggbb" form.
type Color string

// RGBA converts the color for raster and vector renderers.
// An unparseable color renders as mid gray.
func (c Color) RGBA() color.RGBA {
	cc, err := colorful.Hex(string(c))
	if err != nil {
		return color.RGBA{0x99, 0x99, 0x99, 0xff}
	}
	r, g, b := cc.RGB255()
	return color.RGBA{r, g, b, 0xff}
}

// Luminance reports the perceived lightness in [0,1], used to pick a
// readable text color on top of a fill.
func (c Color) Luminance() float64 {
	cc, err := colorful.Hex(string(c))
	if err != nil {
		return 0.5
	}
	l, _, _ := cc.Lab()
	return l
}

// Palette is a fixed, finite list of colors handed out in order.
type Palette []Color

// DefaultPalette is a 12 color qualitative palette.
var DefaultPalette = Palette{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2",
	"#59a14f", "#edc948", "#b07aa1", "#ff9da7",
	"#9c755f", "#bab0ac", "#86bcb6", "#d37295",
}

// ParsePalette validates hex color strings and normalizes them to lower case
// "#rrggbb". An empty input yields DefaultPalette.
func ParsePalette(hex []string) (Palette, error) {
	if len(hex) == 0 {
		return DefaultPalette, nil
	}
	p := make(Palette, 0, len(hex))
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("palette entry %d (%q): %w", i, h, err)
		}
		p = append(p, Color(c.Hex()))
	}
	return p, nil
}

// At returns the color for palette index i, cycling once the palette is
// exhausted.
func (p Palette) At(i int) Color {
	if len(p) == 0 {
		return DefaultPalette.At(i)
	}
	return p[i%len(p)]
}

// Assignment is one category to color entry of a TypeColorMap.
type Assignment struct {
	Type  string `json:"type"`
	Color Color  `json:"color"`
}

// TypeColorMap assigns palette colors to categories in first-seen order.
// Category N gets palette[N mod len(palette)]. Entries are never removed or
// reassigned. A map belongs to one load session; it is not safe for
// concurrent use.
type TypeColorMap struct {
	palette Palette
	index   map[string]int
	order   []Assignment
}

// NewTypeColorMap returns an empty map drawing from p (DefaultPalette when
// p is empty).
func NewTypeColorMap(p Palette) *TypeColorMap {
	if len(p) == 0 {
		p = DefaultPalette
	}
	return &TypeColorMap{
		palette: p,
		index:   make(map[string]int),
	}
}

// Assign returns the color of category t, assigning the next palette color
// on first encounter.
func (m *TypeColorMap) Assign(t string) Color {
	if i, ok := m.index[t]; ok {
		return m.order[i].Color
	}
	c := m.palette.At(len(m.order))
	m.index[t] = len(m.order)
	m.order = append(m.order, Assignment{Type: t, Color: c})
	return c
}

// Lookup returns the color of t without assigning one.
func (m *TypeColorMap) Lookup(t string) (Color, bool) {
	i, ok := m.index[t]
	if !ok {
		return "", false
	}
	return m.order[i].Color, true
}

// Entries returns a copy of the assignments in first-seen order.
func (m *TypeColorMap) Entries() []Assignment {
	out := make([]Assignment, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of assigned categories.
func (m *TypeColorMap) Len() int {
	return len(m.order)
}

// Palette returns the palette the map draws from.
func (m *TypeColorMap) Palette() Palette {
	return m.palette
}
