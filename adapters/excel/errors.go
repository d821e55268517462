package excel

import "errors"

var (
	// ErrLastSheet is returned when removing the only sheet of a workbook
	ErrLastSheet = errors.New("cannot remove the only sheet of a workbook")
)
