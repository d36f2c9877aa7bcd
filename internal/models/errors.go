package models

import "errors"

// Sentinel errors for trade rejections and price lookups. Handlers use
// IsRejection to map these to 4xx responses; everything else is a server error.
var (
	ErrInvalidSymbol        = errors.New("symbol is required")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrInvalidPrice         = errors.New("price must be positive")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrPriceUnavailable     = errors.New("price unavailable")
	ErrDuplicateSymbol      = errors.New("stock already exists")
)

// IsRejection reports whether err is a business rejection rather than an
// internal failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidSymbol,
		ErrInvalidQuantity,
		ErrInvalidPrice,
		ErrInsufficientFunds,
		ErrInsufficientHoldings,
		ErrPriceUnavailable,
		ErrDuplicateSymbol,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
