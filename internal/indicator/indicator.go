// Package indicator wraps go-talib with guarded, input-aligned series.
//
// Every series returned has the same length as its input. Positions before
// the indicator's warm-up period are zero.
package indicator

import (
	talib "github.com/markcheno/go-talib"
)

// SMA calculates Simple Moving Average
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return make([]float64, len(prices))
	}
	return talib.Sma(prices, period)
}

// EMA calculates Exponential Moving Average, seeded with the first SMA.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return make([]float64, len(prices))
	}
	return talib.Ema(prices, period)
}

// rsiFlat is the threshold below which talib treats a window as having no
// movement at all.
const rsiFlat = 1e-8

// RSI calculates Wilder's Relative Strength Index. A window with neither
// gains nor losses reads 50 rather than talib's 0.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) <= period {
		return make([]float64, len(prices))
	}
	out := talib.Rsi(prices, period)

	p := float64(period)
	var gain, loss float64
	for i := 1; i < len(prices); i++ {
		up, down := 0.0, 0.0
		if d := prices[i] - prices[i-1]; d > 0 {
			up = d
		} else {
			down = -d
		}
		if i <= period {
			gain += up / p
			loss += down / p
			if i < period {
				continue
			}
		} else {
			gain = (gain*(p-1) + up) / p
			loss = (loss*(p-1) + down) / p
		}
		if gain+loss < rsiFlat {
			out[i] = 50
		}
	}
	return out
}

// MACD returns the MACD line, its signal line and the histogram.
func MACD(prices []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(prices) < slow+signal-1 {
		n := len(prices)
		return make([]float64, n), make([]float64, n), make([]float64, n)
	}
	return talib.Macd(prices, fast, slow, signal)
}

// Bollinger returns upper, middle and lower bands of a k-sigma envelope
// around the SMA.
func Bollinger(prices []float64, period int, k float64) (upper, middle, lower []float64) {
	if period <= 1 || len(prices) < period {
		n := len(prices)
		return make([]float64, n), make([]float64, n), make([]float64, n)
	}
	return talib.BBands(prices, period, k, k, talib.SMA)
}

// ADX returns the Average Directional Index with its +DI and -DI lines.
func ADX(highs, lows, closes []float64, period int) (adx, plusDI, minusDI []float64) {
	n := len(closes)
	if period <= 0 || len(highs) != n || len(lows) != n || n < 2*period+1 {
		return make([]float64, n), make([]float64, n), make([]float64, n)
	}
	return talib.Adx(highs, lows, closes, period),
		talib.PlusDI(highs, lows, closes, period),
		talib.MinusDI(highs, lows, closes, period)
}

// Last returns the final value of a series, or 0 when empty.
func Last(series []float64) float64 {
	return Prev(series, 0)
}

// Prev returns the value n bars before the last one, or 0 when out of range.
func Prev(series []float64, n int) float64 {
	i := len(series) - 1 - n
	if n < 0 || i < 0 {
		return 0
	}
	return series[i]
}

// Highest returns the maximum of values.
func Highest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	hi := values[0]
	for _, v := range values[1:] {
		if v > hi {
			hi = v
		}
	}
	return hi
}

// Lowest returns the minimum of values.
func Lowest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	lo := values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
	}
	return lo
}
