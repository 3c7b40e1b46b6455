package cellname

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidAcceptsLetterPlusDigits(t *testing.T) {
	assert.True(t, Valid("A0"))
	assert.True(t, Valid("Z9"))
	assert.True(t, Valid("B123"))
}

func TestValidRejectsMalformed(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("1A"))
	assert.False(t, Valid("AA1"))
	assert.False(t, Valid("a1"))
	assert.False(t, Valid("A"))
	assert.False(t, Valid("A1A"))
	assert.False(t, Valid(" A1"))
}
