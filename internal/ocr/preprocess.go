// SPDX-License-Identifier: MIT

package ocr

// Line detection and tensor preparation for the recognition model. The
// heavy lifting happens on plain byte slices; nothing here suspends.

// textThreshold marks a grayscale value as text ink. Subtitle bitmaps are
// composited over white first, so anything darker than this is glyph.
const textThreshold = 200

// regionPadding is the number of pixels added around each detected line.
const regionPadding = 5

// minRegionWidth drops regions that are too narrow to hold a glyph.
const minRegionWidth = 5

// recHeight is the fixed input height of the recognition model.
const recHeight = 48

// maxRecWidth caps the resized region width.
const maxRecWidth = 1920

// region is one candidate text line in image coordinates.
type region struct {
	x0, y0, x1, y1 int // half-open
}

func (r region) width() int  { return r.x1 - r.x0 }
func (r region) height() int { return r.y1 - r.y0 }

// compositeOverWhite flattens an RGBA buffer onto a white background and
// returns a per-pixel grayscale byte buffer: g = (R+G+B)/3 after
// c' = c*a + 255*(1-a).
func compositeOverWhite(rgba []byte, w, h int) []byte {
	gray := make([]byte, w*h)
	for i := 0; i < w*h; i++ {
		r, g, b, a := rgba[4*i], rgba[4*i+1], rgba[4*i+2], rgba[4*i+3]
		alpha := int(a)
		rr := (int(r)*alpha + 255*(255-alpha)) / 255
		gg := (int(g)*alpha + 255*(255-alpha)) / 255
		bb := (int(b)*alpha + 255*(255-alpha)) / 255
		gray[i] = byte((rr + gg + bb) / 3)
	}
	return gray
}

// detectRegions finds maximal contiguous runs of rows containing text,
// pads them vertically, trims each horizontally and pads again. Regions
// narrower than minRegionWidth are dropped.
func detectRegions(gray []byte, w, h int) []region {
	rowHasText := make([]bool, h)
	for y := 0; y < h; y++ {
		row := gray[y*w : (y+1)*w]
		for _, g := range row {
			if g < textThreshold {
				rowHasText[y] = true
				break
			}
		}
	}

	var out []region
	y := 0
	for y < h {
		if !rowHasText[y] {
			y++
			continue
		}
		start := y
		for y < h && rowHasText[y] {
			y++
		}
		r := region{
			x0: 0,
			x1: w,
			y0: max(0, start-regionPadding),
			y1: min(h, y+regionPadding),
		}
		if trimmed, ok := trimHorizontal(gray, w, r); ok {
			out = append(out, trimmed)
		}
	}
	return out
}

// trimHorizontal narrows a region to the columns that contain text, with
// padding. Returns false when the trimmed region is too narrow.
func trimHorizontal(gray []byte, w int, r region) (region, bool) {
	left, right := -1, -1
	for x := 0; x < w; x++ {
		for y := r.y0; y < r.y1; y++ {
			if gray[y*w+x] < textThreshold {
				if left < 0 {
					left = x
				}
				right = x + 1
				break
			}
		}
	}
	if left < 0 || right-left < minRegionWidth {
		return region{}, false
	}
	r.x0 = max(0, left-regionPadding)
	r.x1 = min(w, right+regionPadding)
	return r, true
}

// resizeRegion extracts a region from the composited image and scales it to
// recHeight using nearest-neighbour sampling, preserving aspect ratio. The
// output width is clamped to [1, maxRecWidth]. The result is RGB, row-major.
func resizeRegion(rgba []byte, w int, r region) ([]byte, int) {
	outW := r.width() * recHeight / r.height()
	if outW < 1 {
		outW = 1
	}
	if outW > maxRecWidth {
		outW = maxRecWidth
	}
	out := make([]byte, outW*recHeight*3)
	for oy := 0; oy < recHeight; oy++ {
		sy := r.y0 + oy*r.height()/recHeight
		for ox := 0; ox < outW; ox++ {
			sx := r.x0 + ox*r.width()/outW
			si := 4 * (sy*w + sx)
			a := int(rgba[si+3])
			di := 3 * (oy*outW + ox)
			out[di] = byte((int(rgba[si])*a + 255*(255-a)) / 255)
			out[di+1] = byte((int(rgba[si+1])*a + 255*(255-a)) / 255)
			out[di+2] = byte((int(rgba[si+2])*a + 255*(255-a)) / 255)
		}
	}
	return out, outW
}

// chwTensor lays an RGB buffer out as a [1,3,recHeight,w] tensor with
// values normalised to v/127.5 - 1.
func chwTensor(rgb []byte, w int) []float32 {
	out := make([]float32, 3*recHeight*w)
	plane := recHeight * w
	for i := 0; i < plane; i++ {
		out[i] = float32(rgb[3*i])/127.5 - 1
		out[plane+i] = float32(rgb[3*i+1])/127.5 - 1
		out[2*plane+i] = float32(rgb[3*i+2])/127.5 - 1
	}
	return out
}
