package io

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConsole_GetChar(t *testing.T) {
	assert := assert.New(t)

	con := &Console{Input: strings.NewReader("ab")}

	ch, err := con.GetChar()
	assert.NoError(err)
	assert.Equal(byte('a'), ch)

	ch, err = con.GetChar()
	assert.NoError(err)
	assert.Equal(byte('b'), ch)

	_, err = con.GetChar()
	assert.ErrorIs(err, io.EOF)

	// Stays exhausted.
	_, err = con.GetChar()
	assert.ErrorIs(err, io.EOF)
}

type failReader struct{}

var errFail = errors.New("keyboard on fire")

func (failReader) Read(p []byte) (int, error) {
	return 0, errFail
}

func TestConsole_GetChar_Error(t *testing.T) {
	assert := assert.New(t)

	con := &Console{Input: failReader{}}
	_, err := con.GetChar()
	assert.ErrorIs(err, errFail)

	con = &Console{}
	_, err = con.GetChar()
	assert.ErrorIs(err, io.EOF)
	assert.False(con.Poll())
}

func TestConsole_Raw(t *testing.T) {
	assert := assert.New(t)

	output := &bytes.Buffer{}
	con := &Console{
		Input:  strings.NewReader("x\r\x7f"),
		Output: output,
		Raw:    true,
	}

	for _, expect := range []byte{'x', '\n', 0x08} {
		ch, err := con.GetChar()
		assert.NoError(err)
		assert.Equal(expect, ch)
	}

	assert.NoError(con.PutChar('a'))
	assert.NoError(con.PutChar('\n'))
	assert.Equal("a\r\n", output.String())

	con.Raw = false
	output.Reset()
	assert.NoError(con.PutChar('\n'))
	assert.Equal("\n", output.String())
}

func TestConsole_NoOutput(t *testing.T) {
	assert := assert.New(t)

	con := &Console{}
	assert.NoError(con.PutChar('z'))

	ok, err := con.Store(DDR, 'z')
	assert.True(ok)
	assert.NoError(err)
}

func TestConsole_Registers(t *testing.T) {
	assert := assert.New(t)

	output := &bytes.Buffer{}
	con := &Console{
		Input:  strings.NewReader("QR"),
		Output: output,
	}

	assert.Eventually(func() bool {
		value, ok := con.Load(KBSR)
		return ok && value == STATUS_READY
	}, time.Second, time.Millisecond)

	// Status is sticky until the data is read.
	value, ok := con.Load(KBSR)
	assert.True(ok)
	assert.Equal(uint16(STATUS_READY), value)

	value, ok = con.Load(KBDR)
	assert.True(ok)
	assert.Equal(uint16('Q'), value)

	// The next key, once it arrives.
	assert.Eventually(func() bool {
		value, _ := con.Load(KBSR)
		return value == STATUS_READY
	}, time.Second, time.Millisecond)

	// A polled key is dropped by Rewind.
	con.Rewind()
	value, ok = con.Load(KBDR)
	assert.True(ok)
	assert.Equal(uint16(0), value)

	value, ok = con.Load(DSR)
	assert.True(ok)
	assert.Equal(uint16(STATUS_READY), value)

	value, ok = con.Load(DDR)
	assert.True(ok)
	assert.Equal(uint16(0), value)

	ok, err := con.Store(DDR, 0x4142)
	assert.True(ok)
	assert.NoError(err)
	assert.Equal("B", output.String())
}

func TestConsole_Undecoded(t *testing.T) {
	assert := assert.New(t)

	con := &Console{}

	for _, addr := range []uint16{0x0000, 0x3000, KBSR - 1, KBSR + 1, DDR + 1, 0xFFFE} {
		_, ok := con.Load(addr)
		assert.False(ok)

		ok, err := con.Store(addr, 0x1234)
		assert.False(ok)
		assert.NoError(err)
	}

	// Writes to the status and keyboard registers are ignored by the device.
	for _, addr := range []uint16{KBSR, KBDR, DSR} {
		ok, err := con.Store(addr, 0x1234)
		assert.False(ok)
		assert.NoError(err)
	}
}

func TestConsole_Defines(t *testing.T) {
	assert := assert.New(t)

	con := &Console{}

	defines := map[string]string{}
	for key, value := range con.Defines() {
		defines[key] = value
	}

	assert.Equal("0xfe00", defines["KBSR"])
	assert.Equal("0xfe02", defines["KBDR"])
	assert.Equal("0xfe04", defines["DSR"])
	assert.Equal("0xfe06", defines["DDR"])
}
