package signals

import (
	"math"
	"strconv"
	"strings"
)

// FormatPrice rounds a price to a precision appropriate for its magnitude.
// Large prices keep few decimals; sub-unit prices keep more, scaled by how
// many leading zeros follow the decimal point. Non-positive or non-finite
// values collapse to zero.
func FormatPrice(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	var decimals int
	if v >= 1 {
		if v > 100 {
			decimals = 2
		} else {
			decimals = 4
		}
	} else {
		zeros := leadingFractionZeros(v)
		switch {
		case zeros == 0:
			decimals = 4
		case zeros <= 2:
			decimals = 5
		case zeros == 3:
			decimals = 6
		case zeros == 4:
			decimals = 7
		default:
			decimals = 8
		}
	}

	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// leadingFractionZeros counts zeros between the decimal point and the first
// significant digit of a value in (0, 1).
func leadingFractionZeros(v float64) int {
	s := strconv.FormatFloat(v, 'f', 20, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	zeros := 0
	for _, c := range s[dot+1:] {
		if c != '0' {
			break
		}
		zeros++
	}
	return zeros
}
