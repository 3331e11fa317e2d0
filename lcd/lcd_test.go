package lcd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFit(t *testing.T) {
	assert.Equal(t, "Vol    ", Fit("Vol", 7))
	assert.Equal(t, "Reverb ", Fit("Reverb", 7))
	assert.Equal(t, "Distort", Fit("Distortion", 7))
	assert.Equal(t, "", Fit("x", 0))
}

func TestCenter(t *testing.T) {
	assert.Equal(t, "  ab  ", Center("ab", 6))
	assert.Equal(t, " abc  ", Center("abc", 6))
	assert.Equal(t, "abcdef", Center("abcdefgh", 6))
}

func TestASCII(t *testing.T) {
	assert.Equal(t, "Resonance", ASCII("Résonance"))
	assert.Equal(t, "Uber", ASCII("Über"))
	assert.Equal(t, "a?b", ASCII("a\tb"))
	assert.Equal(t, "?", ASCII("♪"))
}

func TestBytes(t *testing.T) {
	assert.Equal(t, []byte("Cafe  "), Bytes("Café", 6))
}
