package forecast

import "errors"

var (
	// ErrInsufficientData is returned when there is too little history to forecast
	ErrInsufficientData = errors.New("insufficient historical data for forecasting")
	// ErrNoHistory is returned when a forecast is requested without any aggregates
	ErrNoHistory = errors.New("no historical aggregates")
	// ErrInvalidHorizon is returned for a horizon outside [1, max horizon]
	ErrInvalidHorizon = errors.New("invalid forecast horizon")
	// ErrNotEnoughRows is returned when impact regression has too few observations
	ErrNotEnoughRows = errors.New("not enough rows for impact regression")
	// ErrSingularDesign is returned when impact regression cannot be solved
	ErrSingularDesign = errors.New("impact regression design matrix is singular")
	// ErrDuplicateDates is returned when two observations share a date
	ErrDuplicateDates = errors.New("duplicate dates found, each date must be unique")
)
