package rmask

import (
	"fmt"
	"image/color"
	"math"
	"math/bits"
	"strconv"
)

// Layer identity colors are generated at fixed saturation and value so
// that every layer reads with the same weight over a reference image.
const (
	identitySaturation = 0.5
	identityValue      = 0.5

	// tintAlpha is 10% opacity rounded to the nearest byte.
	tintAlpha = 26

	borderDarken = 30
)

// Identity is the deterministic color identity of a layer position.
//
// The color is the only thing that identifies a layer once the layers
// have been flattened into a clean mask, so LayerColor must produce
// bit-identical results for every caller, in this process or any other
// generator of the same palette.
type Identity struct {
	Index  int
	Hex    string   // "#rrggbb"
	RGB    [3]uint8 // opaque fill color
	Tint   color.NRGBA
	Border [3]uint8
	Name   string
}

// LayerColor returns the identity of the layer at position index.
//
// Hues are spread by binary subdivision: index 0 is hue 0, then 1/2,
// then 1/4 and 3/4, then 1/8, 3/8, 5/8, 7/8 and so on, so each new
// layer lands in the middle of the widest remaining gap.
func LayerColor(index int) Identity {
	if index < 0 {
		index = 0
	}
	rgb := hsvToRGB(hueDegrees(index), identitySaturation, identityValue)
	return Identity{
		Index: index,
		Hex:   hexString(rgb),
		RGB:   rgb,
		Tint:  color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: tintAlpha},
		Border: [3]uint8{
			darken(rgb[0], borderDarken),
			darken(rgb[1], borderDarken),
			darken(rgb[2], borderDarken),
		},
		Name: "Layer " + strconv.Itoa(index+1),
	}
}

// Hue returns the identity hue in degrees [0, 360).
func (id Identity) Hue() float64 {
	return hueDegrees(id.Index)
}

// Color returns the opaque fill color.
func (id Identity) Color() color.NRGBA {
	return color.NRGBA{R: id.RGB[0], G: id.RGB[1], B: id.RGB[2], A: 255}
}

// TintCSS returns the background tint as a CSS color string.
func (id Identity) TintCSS() string {
	return fmt.Sprintf("rgba(%d, %d, %d, 0.1)", id.RGB[0], id.RGB[1], id.RGB[2])
}

// hueFraction returns the subdivided hue of index in [0, 1).
func hueFraction(index int) float64 {
	if index <= 0 {
		return 0
	}
	// ceil(log2(index+1)) == bit length of index for index >= 1.
	cycle := bits.Len(uint(index))
	delta := 1 / float64(uint64(1)<<cycle)
	pos := index - 1<<(cycle-1)
	return delta + 2*delta*float64(pos)
}

func hueDegrees(index int) float64 {
	return hueFraction(index) * 360
}

// hsvToRGB converts HSV to 8-bit RGB using the six-sector hexagonal
// formula. h is in degrees, s and v in [0, 1].
func hsvToRGB(h, s, v float64) [3]uint8 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	h6 := h / 60
	sector := int(math.Floor(h6)) % 6
	f := h6 - math.Floor(h6)

	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64
	switch sector {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return [3]uint8{to8(r), to8(g), to8(b)}
}

// to8 scales a [0, 1] component to a byte, rounding and clamping.
func to8(x float64) uint8 {
	v := math.Round(x * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func darken(c uint8, by int) uint8 {
	v := int(c) - by
	if v < 0 {
		return 0
	}
	return uint8(v)
}

func hexString(rgb [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}

// ParseHex parses "#rrggbb", "rrggbb", "#rgb" or "rgb".
func ParseHex(hex string) ([3]uint8, bool) {
	if hex != "" && hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b uint32
	switch len(hex) {
	case 3:
		if !parseHex(hex[0:1], &r) || !parseHex(hex[1:2], &g) || !parseHex(hex[2:3], &b) {
			return [3]uint8{}, false
		}
		r, g, b = r*17, g*17, b*17
	case 6:
		if !parseHex(hex[0:2], &r) || !parseHex(hex[2:4], &g) || !parseHex(hex[4:6], &b) {
			return [3]uint8{}, false
		}
	default:
		return [3]uint8{}, false
	}
	return [3]uint8{uint8(r), uint8(g), uint8(b)}, true
}

// parseHex is a helper for hex parsing
func parseHex(s string, val *uint32) bool {
	*val = 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		*val *= 16
		switch {
		case '0' <= c && c <= '9':
			*val += uint32(c - '0')
		case 'a' <= c && c <= 'f':
			*val += uint32(c - 'a' + 10)
		case 'A' <= c && c <= 'F':
			*val += uint32(c - 'A' + 10)
		default:
			return false
		}
	}
	return true
}

// WithinTolerance reports whether every channel of a and b differs by at
// most tol. Layer recoloring and mask reconstruction both match colors
// this way.
func WithinTolerance(a, b [3]uint8, tol int) bool {
	for i := 0; i < 3; i++ {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		if d > tol {
			return false
		}
	}
	return true
}
