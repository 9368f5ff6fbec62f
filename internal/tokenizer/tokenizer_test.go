package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	assert.Equal(t, 0, Estimate{}.Count(""))
	assert.Equal(t, 1, Estimate{}.Count("abc"))
	assert.Equal(t, 2, Estimate{}.Count("abcdefgh"))
}

func TestWords(t *testing.T) {
	assert.Equal(t, 3, Words{}.Count("  one two\nthree "))
	assert.Equal(t, 4, CountAll(Words{}, []string{"a b", "c d"}))
}

func TestNew(t *testing.T) {
	c, err := New("", "")
	require.NoError(t, err)
	assert.IsType(t, Estimate{}, c)

	c, err = New("words", "")
	require.NoError(t, err)
	assert.IsType(t, Words{}, c)

	_, err = New("bogus", "")
	assert.Error(t, err)
}
