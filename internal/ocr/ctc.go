// SPDX-License-Identifier: MIT

package ocr

import (
	"math"
	"strings"
)

// ctcDecode greedily decodes a [T, C] logits tensor. Class 0 is the CTC
// blank; consecutive duplicate classes collapse. Class i maps to dict[i-1],
// and class len(dict)+1 maps to a space. Confidence per emitted glyph is the
// stable softmax probability of the argmax; the overall confidence is their
// mean, or zero when nothing was emitted.
func ctcDecode(logits []float32, steps, classes int, dict []string) (string, float64) {
	var sb strings.Builder
	var confSum float64
	emitted := 0
	prev := -1

	for t := 0; t < steps; t++ {
		row := logits[t*classes : (t+1)*classes]
		best := 0
		for c := 1; c < classes; c++ {
			if row[c] > row[best] {
				best = c
			}
		}
		if best == 0 || best == prev {
			prev = best
			continue
		}
		prev = best

		switch {
		case best == len(dict)+1:
			sb.WriteString(" ")
		case best-1 < len(dict):
			sb.WriteString(dict[best-1])
		default:
			continue
		}

		// stable softmax of the argmax: 1 / sum(exp(x - max))
		var denom float64
		maxVal := float64(row[best])
		for _, v := range row {
			denom += math.Exp(float64(v) - maxVal)
		}
		confSum += 1 / denom
		emitted++
	}

	if emitted == 0 {
		return "", 0
	}
	return sb.String(), confSum / float64(emitted)
}
