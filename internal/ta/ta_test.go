package ta

import (
	"errors"
	"math"
	"testing"

	"llm-trading-agent/internal/errs"
	"llm-trading-agent/internal/types"
)

func trendingCandles(n int, step float64) []types.Candle {
	candles := make([]types.Candle, n)
	price := 100.0
	for i := range candles {
		price += step
		candles[i] = types.Candle{
			Ts:    int64(1700000000 + i*86400),
			Open:  price - 1,
			High:  price + 1,
			Low:   price - 2,
			Close: price,
			Vol:   50000,
		}
	}
	return candles
}

func TestAnalyzeRejectsThinHistory(t *testing.T) {
	_, err := Analyze("INFY-EQ", trendingCandles(MinRows-1, 0.5))

	var insufficient *errs.DataInsufficiencyError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected DataInsufficiencyError, got %v", err)
	}
	if insufficient.Rows != MinRows-1 || insufficient.Min != MinRows {
		t.Errorf("error should carry row counts, got %+v", insufficient)
	}
}

func TestAnalyzeUptrend(t *testing.T) {
	a, err := Analyze("RELIANCE-EQ", trendingCandles(260, 1.0))
	if err != nil {
		t.Fatal(err)
	}

	if a.Trend != "up" {
		t.Errorf("steadily rising closes should trend up, got %s", a.Trend)
	}
	if a.MACDBias != "bullish" {
		t.Errorf("rising series should be bullish, got %s", a.MACDBias)
	}
	if a.RSI14 <= 50 {
		t.Errorf("rising series should have RSI above 50, got %f", a.RSI14)
	}
	if a.SMA50 <= a.SMA200 {
		t.Errorf("SMA50 should sit above SMA200 in an uptrend: %f vs %f", a.SMA50, a.SMA200)
	}
	if a.Rows != 260 {
		t.Errorf("expected 260 rows, got %d", a.Rows)
	}
}

func TestAnalyzeDowntrend(t *testing.T) {
	a, err := Analyze("INFY-EQ", trendingCandles(260, -0.2))
	if err != nil {
		t.Fatal(err)
	}

	if a.Trend != "down" {
		t.Errorf("falling closes should trend down, got %s", a.Trend)
	}
	if a.MACDBias != "bearish" {
		t.Errorf("falling series should be bearish, got %s", a.MACDBias)
	}
}

func TestAnalyzeShortHistoryLeavesTrendUnknown(t *testing.T) {
	// Enough for RSI and SMA50 but not for the 200-day average.
	a, err := Analyze("SBIN-EQ", trendingCandles(120, 0.5))
	if err != nil {
		t.Fatal(err)
	}

	if a.Trend != "unknown" {
		t.Errorf("trend needs 200 rows, got %s", a.Trend)
	}
	if a.SMA200 != 0 {
		t.Errorf("SMA200 should stay zero below 200 rows, got %f", a.SMA200)
	}
	if a.SMA50 == 0 || math.IsNaN(a.SMA50) {
		t.Errorf("SMA50 should be computed at 120 rows, got %f", a.SMA50)
	}
}

func TestAnalyzeReportsLastClose(t *testing.T) {
	candles := trendingCandles(60, 0.5)
	a, err := Analyze("TCS-EQ", candles)
	if err != nil {
		t.Fatal(err)
	}
	if a.LastClose != candles[len(candles)-1].Close {
		t.Errorf("expected last close %f, got %f", candles[len(candles)-1].Close, a.LastClose)
	}
}
