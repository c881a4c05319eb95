package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	a := map[string]string{"PC_START": "0x3000"}
	b := map[string]string{"KBSR": "0xfe00", "DDR": "0xfe06"}

	all := maps.Collect(IterSeq2Concat(maps.All(a), maps.All(b)))
	assert.Equal(map[string]string{
		"PC_START": "0x3000",
		"KBSR":     "0xfe00",
		"DDR":      "0xfe06",
	}, all)

	count := 0
	for range IterSeq2Concat(maps.All(a), maps.All(b)) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(2, count)
}
