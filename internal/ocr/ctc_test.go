// SPDX-License-Identifier: MIT

package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// logitsRow builds one timestep with the given argmax class boosted.
func logitsRow(classes, best int) []float32 {
	row := make([]float32, classes)
	row[best] = 10
	return row
}

func TestCtcDecode_CollapsesDuplicates(t *testing.T) {
	dict := []string{"a", "b", "c"}
	classes := len(dict) + 2
	var logits []float32
	// a a blank a b b -> "aab"
	for _, best := range []int{1, 1, 0, 1, 2, 2} {
		logits = append(logits, logitsRow(classes, best)...)
	}

	text, conf := ctcDecode(logits, 6, classes, dict)
	assert.Equal(t, "aab", text)
	assert.Greater(t, conf, 0.9)
}

func TestCtcDecode_SpaceClass(t *testing.T) {
	dict := []string{"x", "y"}
	classes := len(dict) + 2
	var logits []float32
	for _, best := range []int{1, 3, 2} { // x <space> y
		logits = append(logits, logitsRow(classes, best)...)
	}

	text, _ := ctcDecode(logits, 3, classes, dict)
	assert.Equal(t, "x y", text)
}

func TestCtcDecode_AllBlank(t *testing.T) {
	dict := []string{"a"}
	classes := len(dict) + 2
	var logits []float32
	for i := 0; i < 4; i++ {
		logits = append(logits, logitsRow(classes, 0)...)
	}

	text, conf := ctcDecode(logits, 4, classes, dict)
	assert.Empty(t, text)
	assert.Zero(t, conf)
}

func TestCtcDecode_NoConsecutiveDuplicatesWithoutBlank(t *testing.T) {
	dict := []string{"z"}
	classes := len(dict) + 2
	var logits []float32
	for _, best := range []int{1, 1, 1, 1} {
		logits = append(logits, logitsRow(classes, best)...)
	}

	text, _ := ctcDecode(logits, 4, classes, dict)
	assert.Equal(t, "z", text)
}

func TestCtcDecode_ConfidenceIsStableSoftmax(t *testing.T) {
	dict := []string{"a"}
	classes := len(dict) + 2
	// near-uniform logits with class 1 nudged up: probability well below 1
	logits := []float32{1, 1.1, 1}

	text, conf := ctcDecode(logits, 1, classes, dict)
	assert.Equal(t, "a", text)
	assert.Greater(t, conf, 0.2)
	assert.Less(t, conf, 0.5)
}
