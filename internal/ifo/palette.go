package ifo

import "fmt"

// RGB is one display-ready palette entry.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex renders the entry as a #rrggbb string for metadata artifacts.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ycbcrToRGB converts a palette entry from the IFO's native color space
// using the BT.601 studio-range coefficients DVDs are authored with.
func ycbcrToRGB(y, cb, cr uint8) RGB {
	yf := 1.164 * (float64(y) - 16)
	cbf := float64(cb) - 128
	crf := float64(cr) - 128

	r := yf + 1.596*crf
	g := yf - 0.392*cbf - 0.813*crf
	b := yf + 2.017*cbf

	return RGB{R: clampByte(r), G: clampByte(g), B: clampByte(b)}
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
