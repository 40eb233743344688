package io

import (
	"errors"

	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	// Device errors
	ErrTapeWrite = errors.New(f("tape write"))
)
