package models

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientData    = errors.New("insufficient data for windowing")
	ErrNoHistoricalData    = errors.New("no historical data")
	ErrPortfolioNotFound   = errors.New("portfolio not found")
	ErrNoHoldings          = errors.New("no holdings found for portfolio")
	ErrNoTransactions      = errors.New("no transactions found for portfolio")
	ErrZeroValuation       = errors.New("no valid current values available")
	ErrAssetNotInPortfolio = errors.New("asset not found in portfolio")
	ErrForecastTimeout     = errors.New("forecast training timed out")
	ErrInvalidHorizon      = errors.New("invalid forecast horizon")
	ErrInvalidSymbol       = errors.New("invalid symbol")
)

// ComputationError is a training or inference failure for one symbol.
type ComputationError struct {
	Symbol string
	Op     string
	Err    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// NewComputationError wraps err unless it is already a ComputationError.
func NewComputationError(symbol, op string, err error) error {
	var ce *ComputationError
	if errors.As(err, &ce) {
		return err
	}
	return &ComputationError{Symbol: symbol, Op: op, Err: err}
}
