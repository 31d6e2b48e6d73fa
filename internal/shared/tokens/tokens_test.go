package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "whitespace only", text: " \n\t ", want: 0},
		{name: "one word", text: "return", want: 2},
		{name: "ten words", text: "a b c d e f g h i j", want: 13},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Estimate(tc.text))
		})
	}
}

func TestEstimateIsMonotonic(t *testing.T) {
	short := "function a(x) { return x; }"
	long := short + "\nconst y = a(1);"
	assert.Greater(t, Estimate(long), Estimate(short))
}

func TestSymbolCostIncludesOverhead(t *testing.T) {
	assert.Equal(t, SymbolOverhead, SymbolCost("", ""))
	assert.Equal(t, Estimate("f()\nreturn 1")+SymbolOverhead, SymbolCost("f()", "return 1"))
}

func TestForWordsRoundsOnce(t *testing.T) {
	parts := []string{"a", "b", "c"}
	words := 0
	for _, p := range parts {
		words += Words(p)
	}
	assert.Equal(t, 3, words)
	assert.Equal(t, 4, ForWords(words))
	assert.Equal(t, 6, EstimateAll(parts...))
	assert.Equal(t, 0, ForWords(-1))
}
