package readability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEmptyYieldsZeroConfidenceFallback(t *testing.T) {
	ext, err := Extract(`<html><body><nav>menu only</nav></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "", ext.Text)
	assert.Equal(t, 0.0, ext.Confidence)
	assert.Equal(t, MethodFallback, ext.Method)
}

func TestExtractDropsShortParagraphs(t *testing.T) {
	html := `<html><body><article>
		<p>Ok</p>
		<p>` + strings.Repeat("word ", 50) + `</p>
	</article></body></html>`
	ext, err := Extract(html)
	require.NoError(t, err)
	assert.NotContains(t, ext.Text, "Ok")
	assert.True(t, ext.WordCount >= 50)
}

func TestComputeConfidenceMonotonicAndClamped(t *testing.T) {
	c1 := computeConfidence(50, 300, 1000)
	c2 := computeConfidence(150, 900, 1000)
	c3 := computeConfidence(900, 5000, 6000)
	assert.True(t, c1 < c2)
	assert.True(t, c2 < c3)
	for _, c := range []float64{c1, c2, c3} {
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
}

func TestComputeConfidenceRatioAdjustment(t *testing.T) {
	dense := computeConfidence(400, 900, 1000)  // ratio 0.9 > 0.3 => +0.1
	sparse := computeConfidence(400, 50, 1000)  // ratio 0.05 < 0.1 => -0.1
	assert.True(t, dense > sparse)
}
