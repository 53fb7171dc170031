package llm

import (
	"context"
	"errors"
	"strings"

	"llm-trading-agent/internal/errs"
	"llm-trading-agent/internal/logger"
	"llm-trading-agent/internal/trace"
	"llm-trading-agent/internal/types"
)

const classifySystem = `You are an intent classifier for a stock trading assistant.
Classify the user's message into exactly one intent and respond ONLY with compact JSON.
Intents: get_ltp, get_ohlc, analyze_stock, get_portfolio, analyze_portfolio, place_order, cancel_order, get_market_movers, general_query.
Fields: "intent" (required), "tradingsymbol" (ticker or company name if one is mentioned), "order_id" (for cancel_order), "interval", "fromdate", "todate" (for get_ohlc when the user gives a range).
Example: {"intent": "get_ltp", "tradingsymbol": "RELIANCE"}`

// Classify maps one user message to a structured intent. An unreadable model
// response is a ClassificationError; a readable response with an unknown tag
// is coerced to general_query.
func Classify(ctx context.Context, p Provider, message string) (types.Intent, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Classify")
	defer span.End()

	raw, err := p.Complete(ctx, classifySystem, message)
	if err != nil {
		return types.Intent{}, &errs.ClassificationError{Reason: "completion failed", Err: err}
	}

	var intent types.Intent
	if err := UnmarshalObject(raw, &intent); err != nil {
		var malformed *errs.MalformedUpstreamError
		if errors.As(err, &malformed) {
			return types.Intent{}, &errs.ClassificationError{Reason: "unreadable model output", Err: err}
		}
		return types.Intent{}, &errs.ClassificationError{Reason: "bad intent payload", Err: err}
	}

	intent.Tag = strings.ToLower(strings.TrimSpace(intent.Tag))
	if !types.ValidIntent(intent.Tag) {
		logger.Warn(ctx, "Unknown intent tag, treating as general query", "tag", intent.Tag)
		intent = types.Intent{Tag: types.IntentGeneralQuery}
	}
	logger.Intent(ctx, intent.Tag, intent.TradingSymbol, intent.OrderID)
	return intent, nil
}
