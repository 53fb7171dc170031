// Package ta computes the technical indicators backing the analysis recipes:
// RSI-14, MACD(12,26,9) and the 50/200-day simple moving averages.
package ta

import (
	"math"

	"github.com/markcheno/go-talib"

	"llm-trading-agent/internal/errs"
	"llm-trading-agent/internal/types"
)

// MinRows is the warm-up floor: below this many candles the indicator set is
// meaningless and analysis refuses to run.
const MinRows = 50

const (
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	smaShort   = 50
	smaLong    = 200
)

// Analysis is the indicator snapshot for one symbol, taken at the newest
// candle. Trend is "up", "down" or "unknown"; MACDBias is "bullish",
// "bearish" or "neutral".
type Analysis struct {
	LastClose  float64 `json:"last_close"`
	RSI14      float64 `json:"rsi_14"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDBias   string  `json:"macd_bias"`
	SMA50      float64 `json:"sma_50"`
	SMA200     float64 `json:"sma_200"`
	Trend      string  `json:"trend"`
	Rows       int     `json:"rows"`
}

// Analyze computes the indicator snapshot over daily candles, oldest first.
// Fewer than MinRows rows is a DataInsufficiencyError. SMA-200 and the trend
// stay unknown until enough history exists.
func Analyze(symbol string, candles []types.Candle) (Analysis, error) {
	n := len(candles)
	if n < MinRows {
		return Analysis{}, &errs.DataInsufficiencyError{Symbol: symbol, Rows: n, Min: MinRows}
	}

	closes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
	}

	out := Analysis{
		LastClose: closes[n-1],
		Rows:      n,
		Trend:     "unknown",
		MACDBias:  "neutral",
	}

	out.RSI14 = lastValid(talib.Rsi(closes, rsiPeriod))

	macd, signal, _ := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	out.MACD = lastValid(macd)
	out.MACDSignal = lastValid(signal)
	switch {
	case out.MACD > out.MACDSignal:
		out.MACDBias = "bullish"
	case out.MACD < out.MACDSignal:
		out.MACDBias = "bearish"
	}

	out.SMA50 = lastValid(talib.Sma(closes, smaShort))
	if n >= smaLong {
		out.SMA200 = lastValid(talib.Sma(closes, smaLong))
		switch {
		case out.SMA50 > out.SMA200:
			out.Trend = "up"
		case out.SMA50 < out.SMA200:
			out.Trend = "down"
		}
	}

	return out, nil
}

// lastValid returns the newest value of an indicator series. The series is
// aligned with the input, so with enough rows the last slot is past warm-up.
func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) {
			return series[i]
		}
	}
	return 0
}
