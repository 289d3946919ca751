package utils

import "math"

// RoundMoney rounds an amount to the local minor unit (two decimals).
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
