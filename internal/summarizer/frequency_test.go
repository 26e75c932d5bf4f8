package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeKeepsOriginalOrder(t *testing.T) {
	text := "Copyright protects original works. The weather was nice. " +
		"Copyright owners hold exclusive rights to original works. Lunch was late."
	got, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Copyright protects original works. Copyright owners hold exclusive rights to original works.", got)
}

func TestSummarizeWithoutSentences(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("  just a fragment  ", 3)
	require.NoError(t, err)
	assert.Equal(t, "just a fragment", got)
}

func TestSummarizeStopwordsOnly(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("It is. Or not.", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestSummarizeCollapsesWhitespace(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("Line one\nwraps here.", 1)
	require.NoError(t, err)
	assert.Equal(t, "Line one wraps here.", got)
}

func TestSummarizeBoundsInput(t *testing.T) {
	text := strings.Repeat("Sentence about law. ", maxInput/10)
	got, err := NewFrequencySummarizer().Summarize(text, 1)
	require.NoError(t, err)
	assert.Equal(t, "Sentence about law.", got)
}

func TestNew(t *testing.T) {
	s, err := New("none")
	require.NoError(t, err)
	got, err := s.Summarize("Anything.", 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = New("abstractive")
	assert.Error(t, err)
}
