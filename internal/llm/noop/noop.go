// Package noop is a deterministic offline completion backend. It pattern
// matches the prompts the agent actually sends, so the full pipeline can run
// in tests and dry runs without a model.
package noop

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

type Client struct{}

func New() *Client { return &Client{} }

var orderIDRe = regexp.MustCompile(`\b\d{3,}\b`)

// Complete answers classification prompts with keyword-matched intent JSON
// and everything else with a short canned summary.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if strings.Contains(system, "intent classifier") {
		return classify(user), nil
	}
	if strings.Contains(system, "order extraction") {
		return `{"tradingsymbol": "", "transactiontype": "BUY", "quantity": "1"}`, nil
	}
	return "Summary unavailable in offline mode.", nil
}

func classify(msg string) string {
	m := strings.ToLower(msg)
	sym := lastWord(m)
	switch {
	case strings.Contains(m, "cancel"):
		id := orderIDRe.FindString(m)
		return fmt.Sprintf(`{"intent": "cancel_order", "order_id": %q}`, id)
	case strings.Contains(m, "buy") || strings.Contains(m, "sell"):
		return fmt.Sprintf(`{"intent": "place_order", "tradingsymbol": %q}`, sym)
	case strings.Contains(m, "analyze") || strings.Contains(m, "analysis"):
		if strings.Contains(m, "portfolio") {
			return `{"intent": "analyze_portfolio"}`
		}
		return fmt.Sprintf(`{"intent": "analyze_stock", "tradingsymbol": %q}`, sym)
	case strings.Contains(m, "portfolio") || strings.Contains(m, "holdings") || strings.Contains(m, "positions"):
		return `{"intent": "get_portfolio"}`
	case strings.Contains(m, "gainers") || strings.Contains(m, "movers"):
		return `{"intent": "get_market_movers"}`
	case strings.Contains(m, "ohlc") || strings.Contains(m, "candle") || strings.Contains(m, "history"):
		return fmt.Sprintf(`{"intent": "get_ohlc", "tradingsymbol": %q}`, sym)
	case strings.Contains(m, "price") || strings.Contains(m, "ltp") || strings.Contains(m, "quote"):
		return fmt.Sprintf(`{"intent": "get_ltp", "tradingsymbol": %q}`, sym)
	default:
		return `{"intent": "general_query"}`
	}
}

func lastWord(m string) string {
	m = strings.TrimRight(strings.TrimSpace(m), "?!.")
	fields := strings.Fields(m)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[len(fields)-1])
}
