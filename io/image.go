package io

import (
	"encoding/binary"
	"io"
)

const (
	MEMORY_WORDS = 1 << 16 // Words in a full memory image.
)

// ReadImage reads a big-endian object image. The first word of the image
// is the load origin, and the remaining words are loaded from there.
func ReadImage(r io.Reader) (origin uint16, words []uint16, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return
	}

	switch {
	case len(data) < 2:
		err = ErrImageShort
		return
	case (len(data) & 1) != 0:
		err = ErrImageOdd
		return
	case len(data) > 2*(MEMORY_WORDS+1):
		err = ErrImageTooLarge
		return
	}

	origin = binary.BigEndian.Uint16(data)
	data = data[2:]

	words = make([]uint16, len(data)/2)
	for n := range words {
		words[n] = binary.BigEndian.Uint16(data[2*n:])
	}

	return
}

// WriteImage writes a big-endian object image, origin first.
func WriteImage(w io.Writer, origin uint16, words []uint16) (err error) {
	if len(words) > MEMORY_WORDS {
		err = ErrImageTooLarge
		return
	}

	err = binary.Write(w, binary.BigEndian, origin)
	if err != nil {
		return
	}

	err = binary.Write(w, binary.BigEndian, words)
	return
}

// DumpMemory writes every memory cell as a big-endian word, from address 0.
func DumpMemory(w io.Writer, memory []uint16) (err error) {
	return binary.Write(w, binary.BigEndian, memory)
}
