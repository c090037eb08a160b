package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("line 3 'abc'", From("line %d '%v'", 3, "abc"))

	assert.NoError(SetLanguage("en-US"))
	assert.Equal("ticks 1,234,567", From("ticks %d", 1234567))

	assert.Error(SetLanguage("not a language!"))
	assert.Equal("ticks 12", From("ticks %d", 12))
}
