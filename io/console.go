package io

import (
	"io"
	"iter"
	"maps"
	"sync"
)

const (
	CONSOLE_BUFFER = 64 // Keystrokes buffered ahead of the program.
)

// Console provides the keyboard and display of the machine.
// It wraps an io.Reader for keyboard input and an io.Writer for the
// display, and decodes the KBSR, KBDR, DSR and DDR device registers.
//
// Input is read by a background goroutine, so that Poll never blocks.
type Console struct {
	Input  io.Reader
	Output io.Writer
	Raw    bool // Translate CR to LF on input, and LF to CRLF on output.

	start   sync.Once
	keys    chan byte
	readErr error

	hasKey bool
	key    byte
}

var _ Device = (*Console)(nil)

// Defines returns an iter of defines for the console.
func (con *Console) Defines() iter.Seq2[string, string] {
	return maps.All(_device_defines)
}

// Rewind drops any key read by Poll but not yet consumed.
func (con *Console) Rewind() {
	con.hasKey = false
	con.key = 0
}

// reader starts the keyboard goroutine, once.
func (con *Console) reader() chan byte {
	con.start.Do(func() {
		con.keys = make(chan byte, CONSOLE_BUFFER)
		if con.Input == nil {
			con.readErr = io.EOF
			close(con.keys)
			return
		}
		go func() {
			defer close(con.keys)
			var one [1]byte
			for {
				n, err := con.Input.Read(one[:])
				if n == 1 {
					con.keys <- one[0]
				}
				if err != nil {
					con.readErr = err
					return
				}
			}
		}()
	})

	return con.keys
}

func (con *Console) cook(key byte) byte {
	if con.Raw {
		switch key {
		case '\r':
			key = '\n'
		case 0x7f:
			key = 0x08
		}
	}
	return key
}

// Poll returns true if a key is waiting. It never blocks.
func (con *Console) Poll() bool {
	if con.hasKey {
		return true
	}

	select {
	case key, ok := <-con.reader():
		if ok {
			con.key = key
			con.hasKey = true
		}
	default:
	}

	return con.hasKey
}

// GetChar blocks until a key is available, and returns it.
// Returns io.EOF (or the input's error) when the input is exhausted.
func (con *Console) GetChar() (ch byte, err error) {
	if con.hasKey {
		con.hasKey = false
		ch = con.cook(con.key)
		return
	}

	key, ok := <-con.reader()
	if !ok {
		err = con.readErr
		if err == nil {
			err = io.EOF
		}
		return
	}

	ch = con.cook(key)
	return
}

// PutChar writes a character to the display.
func (con *Console) PutChar(ch byte) (err error) {
	if con.Output == nil {
		return
	}

	if con.Raw && ch == '\n' {
		_, err = con.Output.Write([]byte{'\r', '\n'})
		return
	}

	_, err = con.Output.Write([]byte{ch})
	return
}

// Load decodes reads of the keyboard and display registers.
func (con *Console) Load(addr uint16) (value uint16, ok bool) {
	switch addr {
	case KBSR:
		if con.Poll() {
			value = STATUS_READY
		}
	case KBDR:
		if con.Poll() {
			con.hasKey = false
			value = uint16(con.cook(con.key))
		}
	case DSR:
		value = STATUS_READY
	case DDR:
		value = 0
	default:
		return
	}

	ok = true
	return
}

// Store decodes writes to the display data register.
func (con *Console) Store(addr uint16, value uint16) (ok bool, err error) {
	if addr != DDR {
		return
	}

	ok = true
	err = con.PutChar(byte(value))
	return
}
