package io

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImage(t *testing.T) {
	assert := assert.New(t)

	buff := &bytes.Buffer{}
	err := WriteImage(buff, 0x3000, []uint16{0xe002, 0xf022, 0xf025})
	assert.NoError(err)
	assert.Equal([]byte{0x30, 0x00, 0xe0, 0x02, 0xf0, 0x22, 0xf0, 0x25}, buff.Bytes())

	origin, words, err := ReadImage(buff)
	assert.NoError(err)
	assert.Equal(uint16(0x3000), origin)
	assert.Equal([]uint16{0xe002, 0xf022, 0xf025}, words)
}

func TestImage_OriginOnly(t *testing.T) {
	assert := assert.New(t)

	origin, words, err := ReadImage(bytes.NewReader([]byte{0x40, 0x00}))
	assert.NoError(err)
	assert.Equal(uint16(0x4000), origin)
	assert.Empty(words)
}

func TestImage_Errors(t *testing.T) {
	assert := assert.New(t)

	_, _, err := ReadImage(bytes.NewReader(nil))
	assert.ErrorIs(err, ErrImageShort)

	_, _, err = ReadImage(bytes.NewReader([]byte{0x30}))
	assert.ErrorIs(err, ErrImageShort)

	_, _, err = ReadImage(bytes.NewReader([]byte{0x30, 0x00, 0x12}))
	assert.ErrorIs(err, ErrImageOdd)

	_, _, err = ReadImage(bytes.NewReader(make([]byte, 2*(MEMORY_WORDS+2))))
	assert.ErrorIs(err, ErrImageTooLarge)

	err = WriteImage(&bytes.Buffer{}, 0, make([]uint16, MEMORY_WORDS+1))
	assert.ErrorIs(err, ErrImageTooLarge)
}

func TestDumpMemory(t *testing.T) {
	assert := assert.New(t)

	memory := make([]uint16, MEMORY_WORDS)
	memory[0] = 0x1234
	memory[MEMORY_WORDS-1] = 0xabcd

	buff := &bytes.Buffer{}
	assert.NoError(DumpMemory(buff, memory))

	data := buff.Bytes()
	assert.Equal(2*MEMORY_WORDS, len(data))
	assert.Equal([]byte{0x12, 0x34}, data[:2])
	assert.Equal([]byte{0xab, 0xcd}, data[len(data)-2:])
}
