package llm

import (
	"context"

	"llm-trading-agent/internal/trace"
)

const extractSystem = `You are an order extraction engine for a stock trading assistant.
From the user's message, extract order parameters and respond ONLY with compact JSON.
Fields: "tradingsymbol", "transactiontype" (BUY or SELL), "quantity", and when stated "ordertype", "price", "producttype", "exchange".
Do not invent values the user did not give.
Example: {"tradingsymbol": "INFY", "transactiontype": "BUY", "quantity": "5"}`

// ExtractOrder pulls order parameters out of a user message. The result is a
// raw map; the engine's normalizer owns defaults, casing and the canonical
// symbol fields.
func ExtractOrder(ctx context.Context, p Provider, message string) (map[string]any, error) {
	ctx, span := trace.StartSpan(ctx, "llm.ExtractOrder")
	defer span.End()

	raw, err := p.Complete(ctx, extractSystem, message)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := UnmarshalObject(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
