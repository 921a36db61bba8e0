package css

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/image/colornames"
)

// Color is a non-premultiplied RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// Colorful returns RGB part of the color.
func (c Color) Colorful() colorful.Color {
	return colorful.Color{R: c.R, G: c.G, B: c.B}
}

// RGBA255 returns 8-bit components.
func (c Color) RGBA255() (r, g, b, a uint8) {
	r, g, b = c.Colorful().Clamped().RGB255()
	return r, g, b, uint8(math.Round(clamp01(c.A) * 255))
}

func (c Color) String() string {
	if c.A >= 1 {
		return c.Colorful().Clamped().Hex()
	}
	r, g, b, _ := c.RGBA255()
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, formatFloat(math.Round(c.A*1000)/1000))
}

// LookupColor resolves a color keyword: named colors and "transparent".
func LookupColor(name string) (Color, bool) {
	name = strings.ToLower(name)
	if name == "transparent" {
		return Color{}, true
	}
	rgba, ok := colornames.Map[name]
	if !ok {
		return Color{}, false
	}
	return Color{
		R: float64(rgba.R) / 255,
		G: float64(rgba.G) / 255,
		B: float64(rgba.B) / 255,
		A: float64(rgba.A) / 255,
	}, true
}

// parseHexColor accepts #rgb, #rgba, #rrggbb and #rrggbbaa.
func parseHexColor(s string) (Expr, error) {
	hex := strings.TrimPrefix(s, "#")
	alpha := 1.0
	switch len(hex) {
	case 3, 6:
	case 4, 8:
		n := len(hex) / 4
		a, err := strconv.ParseUint(hex[len(hex)-n:], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad color %q: %w", s, err)
		}
		if n == 1 {
			a *= 17
		}
		alpha = float64(a) / 255
		hex = hex[:len(hex)-n]
	default:
		return nil, fmt.Errorf("bad color %q", s)
	}
	c, err := colorful.Hex("#" + strings.ToLower(hex))
	if err != nil {
		return nil, fmt.Errorf("bad color %q: %w", s, err)
	}
	return Color{R: c.R, G: c.G, B: c.B, A: alpha}, nil
}

// parseRGB parses arguments of rgb() and rgba(). Channels are numbers in
// [0, 255] or percentages. Alpha is a fraction or a percentage, values above
// one are taken as 8-bit alpha.
func parseRGB(toks []token) (Expr, error) {
	var args []token
	for _, t := range toks {
		switch {
		case t.isSpace(), t.tt == css.CommaToken, t.isDelim("/"):
		case t.tt == css.NumberToken || t.tt == css.PercentageToken:
			args = append(args, t)
		default:
			return nil, fmt.Errorf("unexpected token %q in rgb()", t.data)
		}
	}
	if len(args) != 3 && len(args) != 4 {
		return nil, fmt.Errorf("rgb() requires 3 or 4 components, got %d", len(args))
	}

	comp := make([]float64, 4)
	comp[3] = 1
	for i, t := range args {
		pct := t.tt == css.PercentageToken
		v, err := strconv.ParseFloat(strings.TrimSuffix(t.data, "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("bad rgb() component %q: %w", t.data, err)
		}
		switch {
		case pct:
			v /= 100
		case i < 3 || v > 1:
			v /= 255
		}
		comp[i] = clamp01(v)
	}
	return Color{R: comp[0], G: comp[1], B: comp[2], A: comp[3]}, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
