package io

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Image errors
	ErrImageShort    = errors.New(f("image missing origin"))
	ErrImageOdd      = errors.New(f("image has odd length"))
	ErrImageTooLarge = errors.New(f("image exceeds memory"))
)
