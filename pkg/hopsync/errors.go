package hopsync

import "errors"

var (
	ErrTooManyStations  = errors.New("too many stations")
	ErrDuplicateStation = errors.New("duplicate station id")
	ErrInvalidStation   = errors.New("invalid station id")
	ErrInvalidRepeater  = errors.New("invalid repeater id")
	ErrInvalidTiming    = errors.New("invalid timing")
)
