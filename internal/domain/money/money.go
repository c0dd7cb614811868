// Package money provides integer arithmetic on monetary amounts expressed in
// minor currency units (cents). Percentages are basis points stored ×100, so
// 1050 means 10.50%. All division truncates toward zero; nothing in the
// settlement path touches floating point.
package money

// BasisPoints applies a ×100 basis-point percentage to an amount, truncating
// toward zero. BasisPoints(10_000, 1050) == 1050.
func BasisPoints(amount, bps int64) int64 {
	return amount * bps / 10_000
}

// ClampZero floors a computed amount at zero. Totals must never go negative.
func ClampZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// Min returns the smaller of two amounts.
func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
