package catalog

import (
	"errors"
	"math"
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrItemNotFound    = errors.New("item not found")
	ErrPriceOverflow   = errors.New("price overflow")
)

func addPrice(price, delta int64) (int64, error) {
	if (delta > 0 && price > math.MaxInt64-delta) || (delta < 0 && price < math.MinInt64-delta) {
		return 0, ErrPriceOverflow
	}
	return price + delta, nil
}
