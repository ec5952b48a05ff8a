package app

import (
	"errors"
)

var (
	ErrUnknownResource = errors.New("unknown resource")
	ErrInvalidDate     = errors.New("invalid date")
)
