package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"llm-trading-agent/internal/errs"
	"llm-trading-agent/internal/types"
)

// Tool names the plan builder may reference.
const (
	toolResolveSymbol = "resolve_symbol"
	toolGetLTP        = "get_ltp"
	toolGetOHLC       = "get_ohlc"
	toolGetPositions  = "get_positions"
	toolGetHoldings   = "get_holdings"
	toolPlaceOrder    = "place_order"
	toolCancelOrder   = "cancel_order"
	toolMarketMovers  = "market_movers"
)

// toolset binds the engine's dependencies and one turn's session into a
// plan.Invoker. Built fresh per turn; the session never outlives it.
type toolset struct {
	e    *Engine
	sess types.Session
}

func (t *toolset) Invoke(ctx context.Context, tool string, args map[string]any) (any, error) {
	switch tool {
	case toolResolveSymbol:
		return t.e.resolver.Resolve(ctx, argStr(args, "symbol"))

	case toolGetLTP:
		return t.e.gw.LTP(ctx, t.sess,
			argStr(args, "exchange"),
			argStr(args, "tradingsymbol"),
			argStr(args, "symboltoken"))

	case toolGetOHLC:
		return t.e.gw.Candles(ctx, t.sess,
			argStr(args, "exchange"),
			argStr(args, "symboltoken"),
			argStr(args, "interval"),
			argStr(args, "fromdate"),
			argStr(args, "todate"))

	case toolGetPositions:
		return t.e.gw.Positions(ctx, t.sess)

	case toolGetHoldings:
		return t.e.gw.Holdings(ctx, t.sess)

	case toolPlaceOrder:
		order, err := orderFromArgs(args)
		if err != nil {
			return nil, err
		}
		return t.e.gw.PlaceOrder(ctx, t.sess, order)

	case toolCancelOrder:
		return t.e.gw.CancelOrder(ctx, t.sess,
			argStr(args, "order_id"),
			argStr(args, "variety"))

	case toolMarketMovers:
		return t.e.movers.TopGainers(ctx)

	default:
		return nil, &errs.ToolCallError{Tool: tool, Message: "unknown tool"}
	}
}

func argStr(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if s, ok := args[key].(string); ok {
		return s
	}
	if v, ok := args[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// orderFromArgs rebuilds the normalized order from resolved step arguments.
// The payload round-trips through JSON because plan values may arrive either
// as a whole merged order under "order" or as flat gjson-extracted fields.
func orderFromArgs(args map[string]any) (types.OrderParams, error) {
	var src any = args
	if o, ok := args["order"]; ok {
		src = o
	}
	b, err := json.Marshal(src)
	if err != nil {
		return types.OrderParams{}, err
	}
	var order types.OrderParams
	if err := json.Unmarshal(b, &order); err != nil {
		return types.OrderParams{}, err
	}
	if order.TradingSymbol == "" || order.Quantity == "" || order.TransactionType == "" {
		return types.OrderParams{}, &errs.ToolCallError{Tool: toolPlaceOrder, Message: "order is missing tradingsymbol, quantity or transactiontype"}
	}
	return order, nil
}
