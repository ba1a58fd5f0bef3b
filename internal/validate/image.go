package validate

import "image"

// spreadThreshold is the minimum per-channel max-min spread (8-bit scale) for
// an artifact to count as non-uniform. Grey and black frames sit well below it.
const spreadThreshold = 10

// Degenerate reports whether the image is (near-)uniform: the cheap structural
// check behind a degenerate verdict.
func Degenerate(img image.Image) bool {
	b := img.Bounds()
	if b.Empty() {
		return true
	}
	var minR, minG, minB uint32 = 0xffff, 0xffff, 0xffff
	var maxR, maxG, maxB uint32
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r < minR {
				minR = r
			}
			if r > maxR {
				maxR = r
			}
			if g < minG {
				minG = g
			}
			if g > maxG {
				maxG = g
			}
			if bl < minB {
				minB = bl
			}
			if bl > maxB {
				maxB = bl
			}
		}
	}
	// RGBA returns 16-bit channels; compare on the 8-bit scale.
	spread := func(lo, hi uint32) uint32 { return (hi - lo) >> 8 }
	return spread(minR, maxR) < spreadThreshold &&
		spread(minG, maxG) < spreadThreshold &&
		spread(minB, maxB) < spreadThreshold
}
