package engine

import (
	"testing"

	"llm-trading-agent/internal/types"
)

func TestMergeOrderNormalizesAndOverwrites(t *testing.T) {
	user := map[string]any{
		"tradingsymbol":   "infy",
		"transactiontype": "buy",
		"quantity":        float64(5),
		"exchange":        "bse", // must lose to the resolved exchange
		"symboltoken":     "999", // must lose to the resolved token
	}
	det := types.SymbolDetails{
		Exchange:      "NSE",
		TradingSymbol: "INFY-EQ",
		SymbolToken:   "1594",
	}

	order := MergeOrder(user, det)

	if order.TradingSymbol != "INFY-EQ" {
		t.Errorf("expected canonical tradingsymbol INFY-EQ, got %s", order.TradingSymbol)
	}
	if order.TransactionType != "BUY" {
		t.Errorf("expected BUY, got %s", order.TransactionType)
	}
	if order.Quantity != "5" {
		t.Errorf("expected quantity as string \"5\", got %q", order.Quantity)
	}
	if order.Variety != "NORMAL" {
		t.Errorf("expected default variety NORMAL, got %s", order.Variety)
	}
	if order.Duration != "DAY" {
		t.Errorf("expected default duration DAY, got %s", order.Duration)
	}
	if order.Exchange != "NSE" {
		t.Errorf("resolved exchange must win, got %s", order.Exchange)
	}
	if order.SymbolToken != "1594" {
		t.Errorf("resolved symboltoken must win, got %s", order.SymbolToken)
	}
}

func TestMergeOrderKeepsUserSymbolWhenUnresolved(t *testing.T) {
	user := map[string]any{
		"tradingsymbol":   "tcs",
		"transactiontype": "SELL",
		"quantity":        "2",
		"ordertype":       "limit",
		"price":           "3500",
	}

	order := MergeOrder(user, types.SymbolDetails{})

	if order.TradingSymbol != "TCS" {
		t.Errorf("expected uppercased user symbol, got %s", order.TradingSymbol)
	}
	if order.OrderType != "LIMIT" {
		t.Errorf("expected LIMIT, got %s", order.OrderType)
	}
	if order.Price != "3500" {
		t.Errorf("expected price 3500, got %s", order.Price)
	}
}

func TestMergeOrderDefaults(t *testing.T) {
	order := MergeOrder(map[string]any{"quantity": 10}, types.SymbolDetails{
		Exchange: "NSE", TradingSymbol: "SBIN-EQ", SymbolToken: "3045",
	})

	if order.OrderType != "MARKET" {
		t.Errorf("expected default ordertype MARKET, got %s", order.OrderType)
	}
	if order.ProductType != "DELIVERY" {
		t.Errorf("expected default producttype DELIVERY, got %s", order.ProductType)
	}
	if order.Quantity != "10" {
		t.Errorf("expected quantity \"10\", got %q", order.Quantity)
	}
}
