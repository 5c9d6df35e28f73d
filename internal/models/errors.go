package models

import "errors"

// Engine error taxonomy. DataUnavailable and CalibrationDataInsufficient
// are recoverable: the prediction path falls back to defaults, the
// backtest path retains the previous config.
var (
	ErrNotFound                    = errors.New("record not found")
	ErrDuplicateKey                = errors.New("duplicate key violation")
	ErrDataUnavailable             = errors.New("upstream data unavailable")
	ErrSubModelFailure             = errors.New("sub-model failure")
	ErrCalibrationDataInsufficient = errors.New("insufficient samples for calibration update")
	ErrBacktestInProgress          = errors.New("backtest run already in progress")
	ErrInvalidProbability          = errors.New("invalid probability")
	ErrInvalidWeightConfig         = errors.New("invalid weight configuration")
)
