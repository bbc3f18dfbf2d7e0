package simulator

import "github.com/shopspring/decimal"

// Round rounds half away from zero to places fractional digits.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// RoundUp rounds toward positive infinity to places fractional digits.
func RoundUp(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).RoundCeil(places).InexactFloat64()
}

// RoundDown rounds toward negative infinity to places fractional digits.
func RoundDown(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).RoundFloor(places).InexactFloat64()
}

// RoundPrice is Round for strictly positive prices. A price that would round
// to zero or below is returned unrounded.
func RoundPrice(v float64, places int32) float64 {
	f := Round(v, places)
	if f <= 0 && v > 0 {
		return v
	}
	return f
}

// Change returns end-start rounded to places and the percent change rounded
// to two digits. Both are computed in decimal so they agree with the rounded
// prices a reader sees.
func Change(start, end float64, places int32) (float64, float64) {
	s := decimal.NewFromFloat(start)
	diff := decimal.NewFromFloat(end).Sub(s)
	abs, _ := diff.Round(places).Float64()
	if s.IsZero() {
		return abs, 0
	}
	pct, _ := diff.Div(s).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return abs, pct
}
