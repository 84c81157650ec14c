package hand

import "errors"

// Error kinds surfaced by the pipeline. Packages wrap these with context, so
// callers should compare with errors.Is.
var (
	// ErrInvalidArgument reports structural misuse: mismatched array lengths,
	// too few interpolation anchors, a movement that does not belong to a finger.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUncalibrated reports a sensor channel whose range is degenerate.
	ErrUncalibrated = errors.New("uncalibrated")

	// ErrNoData reports that a pose was requested before any frame arrived.
	ErrNoData = errors.New("no data")

	// ErrInsufficientData reports a calibration step that has not collected
	// enough samples to complete.
	ErrInsufficientData = errors.New("insufficient data")
)
