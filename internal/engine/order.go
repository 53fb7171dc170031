package engine

import (
	"strings"

	"llm-trading-agent/internal/broker"
	"llm-trading-agent/internal/types"
)

// MergeOrder combines user-supplied order fields with resolved instrument
// details into the normalized broker payload. The resolved exchange and
// symboltoken always win over anything the user typed; the canonical
// tradingsymbol is preferred when present. Enum fields are uppercased and
// quantity is coerced to text, which is what the broker wants.
func MergeOrder(user map[string]any, det types.SymbolDetails) types.OrderParams {
	order := types.OrderParams{
		Variety:         upperOr(user, "variety", "NORMAL"),
		TransactionType: upperOr(user, "transactiontype", ""),
		OrderType:       upperOr(user, "ordertype", "MARKET"),
		ProductType:     upperOr(user, "producttype", "DELIVERY"),
		Duration:        upperOr(user, "duration", "DAY"),
		Price:           str(user, "price"),
		TriggerPrice:    str(user, "triggerprice"),
	}

	if q, ok := user["quantity"]; ok {
		order.Quantity = broker.QuantityString(q)
	}

	order.Exchange = det.Exchange
	order.SymbolToken = det.SymbolToken
	order.TradingSymbol = det.TradingSymbol
	if order.TradingSymbol == "" {
		order.TradingSymbol = strings.ToUpper(str(user, "tradingsymbol"))
	}

	return order
}

func str(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
		return broker.QuantityString(v)
	}
	return ""
}

func upperOr(m map[string]any, key, fallback string) string {
	s := strings.ToUpper(str(m, key))
	if s == "" {
		return fallback
	}
	return s
}
