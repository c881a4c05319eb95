package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	SetLanguage(language.English)

	assert.Equal("line 3 'HALT' done", From("line %d '%v' %v", 3, "HALT", "done"))
	assert.Equal("x3000", From("x%04X", 0x3000))
	assert.Equal("1,234,567", From("%d", 1234567))
}
