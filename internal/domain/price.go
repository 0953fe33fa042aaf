package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrPriceRequired    = errors.New("price is required")
	ErrInvalidPrice     = errors.New("price is not a number")
	ErrNegativePrice    = fmt.Errorf("%w: price is negative", ErrInvalidPrice)
	ErrInvalidQuantity  = errors.New("quantity is not a whole number")
	ErrNegativeQuantity = fmt.Errorf("%w: quantity is negative", ErrInvalidQuantity)
)

// ParsePrice parses user-entered price text into a finite non-negative number.
func ParsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrPriceRequired
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	if d.IsNegative() {
		return 0, ErrNegativePrice
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidPrice, raw)
	}
	return f, nil
}

// ParseQuantity parses user-entered stock text into a non-negative integer.
func ParseQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	if n < 0 {
		return 0, ErrNegativeQuantity
	}
	return n, nil
}
