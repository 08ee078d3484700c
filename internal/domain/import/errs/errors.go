// Package errs holds the error taxonomy shared by the strategy import packages.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("format not supported")
	ErrInvalidOptions    = errors.New("invalid import options")
	ErrUnknownModule     = errors.New("strategy module not found")
	ErrNoExtractableRows = errors.New("no recognizable rows")
	ErrMalformedInput    = errors.New("could not read the file")
	ErrFileTooLarge      = errors.New("file exceeds the upload size limit")

	// Spreadsheet module: no pass produced a usable row.
	ErrNoSheetRows = fmt.Errorf("%w: could not extract asset/percentage rows", ErrNoExtractableRows)
	// PDF module: neither the requested page nor the marker page exists.
	ErrPageNotFound = fmt.Errorf("%w: table page not found", ErrNoExtractableRows)
	// PDF module: the selected page carries no ticker.
	ErrNoTickers = fmt.Errorf("%w: no tickers found on the selected page", ErrNoExtractableRows)
)
