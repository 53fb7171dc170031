package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"llm-trading-agent/internal/plan"
	"llm-trading-agent/internal/ta"
	"llm-trading-agent/internal/types"
)

const (
	defaultInterval = "ONE_DAY"
	// Daily analysis window. 250 calendar days comfortably covers the 200
	// trading sessions the long moving average needs.
	analysisLookbackDays = 250
	ohlcLookbackDays     = 30

	brokerDateLayout = "2006-01-02 15:04"

	disclaimer = "This is an automated technical summary, not financial advice."
)

// recipe pairs a built plan with how its outputs map onto the envelope:
// which step's output becomes Data, what render type to use, and whether the
// analysis disclaimer is appended to the content.
type recipe struct {
	plan       *plan.Plan
	data       plan.Handle
	typ        string
	disclaimer bool
}

func symbolFields(h plan.Handle) (exchange, tradingsymbol, symboltoken plan.Value) {
	return plan.Field(h, "exchange"), plan.Field(h, "tradingsymbol"), plan.Field(h, "symboltoken")
}

func ltpRecipe(symbol string) (recipe, error) {
	b := plan.NewBuilder("get-ltp")
	res := b.InvokeTool("resolve-symbol", toolResolveSymbol, map[string]plan.Value{
		"symbol": plan.Lit(symbol),
	})
	exch, tsym, token := symbolFields(res)
	quote := b.InvokeTool("fetch-quote", toolGetLTP, map[string]plan.Value{
		"exchange":      exch,
		"tradingsymbol": tsym,
		"symboltoken":   token,
	})
	final := b.Summarize("summarize-quote",
		fmt.Sprintf("State the last traded price of %s with its day change if present.", symbol),
		map[string]plan.Value{"quote": plan.Out(quote)})
	p, err := b.Build(final)
	return recipe{plan: p, data: quote, typ: types.TypeText}, err
}

func ohlcRecipe(intent types.Intent) (recipe, error) {
	interval := intent.Interval
	if interval == "" {
		interval = defaultInterval
	}
	from, to := intent.FromDate, intent.ToDate
	if from == "" || to == "" {
		from, to = dateWindow(ohlcLookbackDays)
	}

	b := plan.NewBuilder("get-ohlc")
	res := b.InvokeTool("resolve-symbol", toolResolveSymbol, map[string]plan.Value{
		"symbol": plan.Lit(intent.TradingSymbol),
	})
	candles := b.InvokeTool("fetch-candles", toolGetOHLC, map[string]plan.Value{
		"exchange":    plan.Field(res, "exchange"),
		"symboltoken": plan.Field(res, "symboltoken"),
		"interval":    plan.Lit(interval),
		"fromdate":    plan.Lit(from),
		"todate":      plan.Lit(to),
	})
	rows := b.Transform("tabulate-candles", candleRows, map[string]plan.Value{
		"candles": plan.Out(candles),
	})
	final := b.Summarize("summarize-candles",
		fmt.Sprintf("Briefly describe the recent price action of %s from these OHLC rows.", intent.TradingSymbol),
		map[string]plan.Value{"rows": plan.Out(rows)})
	p, err := b.Build(final)
	return recipe{plan: p, data: rows, typ: types.TypeDataFrame}, err
}

func analyzeRecipe(symbol string) (recipe, error) {
	from, to := dateWindow(analysisLookbackDays)

	b := plan.NewBuilder("analyze-stock")
	res := b.InvokeTool("resolve-symbol", toolResolveSymbol, map[string]plan.Value{
		"symbol": plan.Lit(symbol),
	})
	candles := b.InvokeTool("fetch-candles", toolGetOHLC, map[string]plan.Value{
		"exchange":    plan.Field(res, "exchange"),
		"symboltoken": plan.Field(res, "symboltoken"),
		"interval":    plan.Lit(defaultInterval),
		"fromdate":    plan.Lit(from),
		"todate":      plan.Lit(to),
	})
	analysis := b.Transform("compute-indicators", indicatorTransform(symbol), map[string]plan.Value{
		"candles": plan.Out(candles),
	})
	final := b.Summarize("summarize-analysis",
		fmt.Sprintf("Summarize the technical picture for %s: trend, RSI reading, MACD bias and the moving averages.", symbol),
		map[string]plan.Value{"analysis": plan.Out(analysis)})
	p, err := b.Build(final)
	return recipe{plan: p, data: analysis, typ: types.TypeJSON, disclaimer: true}, err
}

func portfolioRecipe() (recipe, error) {
	b := plan.NewBuilder("get-portfolio")
	book := b.InvokeToolPair("fetch-book", toolGetHoldings, toolGetPositions)
	final := b.Summarize("summarize-portfolio",
		"Summarize this portfolio: holdings with quantity and P&L, and any open positions.",
		map[string]plan.Value{"book": plan.Out(book)})
	p, err := b.Build(final)
	return recipe{plan: p, data: book, typ: types.TypeJSON}, err
}

func cancelRecipe(orderID string) (recipe, error) {
	b := plan.NewBuilder("cancel-order")
	cancel := b.InvokeTool("cancel-order", toolCancelOrder, map[string]plan.Value{
		"order_id": plan.Lit(orderID),
		"variety":  plan.Lit("NORMAL"),
	})
	final := b.Summarize("summarize-cancel",
		fmt.Sprintf("Confirm to the user that order %s was cancelled.", orderID),
		map[string]plan.Value{"result": plan.Out(cancel)})
	p, err := b.Build(final)
	return recipe{plan: p, data: cancel, typ: types.TypeText}, err
}

func moversRecipe() (recipe, error) {
	b := plan.NewBuilder("market-movers")
	movers := b.InvokeTool("fetch-gainers", toolMarketMovers, nil)
	final := b.Summarize("summarize-gainers",
		"List today's top NSE gainers with price and percent change.",
		map[string]plan.Value{"gainers": plan.Out(movers)})
	p, err := b.Build(final)
	return recipe{plan: p, data: movers, typ: types.TypeDataFrame}, err
}

// orderExecRecipe resolves the symbol fresh, merges the user's fields with
// the canonical details and places the order. Used by the execution endpoint,
// never by chat directly.
func orderExecRecipe(user map[string]any, symbol string) (recipe, error) {
	b := plan.NewBuilder("execute-order")
	res := b.InvokeTool("resolve-symbol", toolResolveSymbol, map[string]plan.Value{
		"symbol": plan.Lit(symbol),
	})
	merged := b.Transform("normalize-order", mergeTransform(user), map[string]plan.Value{
		"details": plan.Out(res),
	})
	placed := b.InvokeTool("place-order", toolPlaceOrder, map[string]plan.Value{
		"order": plan.Out(merged),
	})
	final := b.Summarize("summarize-order",
		"Confirm the order placement to the user, quoting the order id.",
		map[string]plan.Value{"result": plan.Out(placed)})
	p, err := b.Build(final)
	return recipe{plan: p, data: placed, typ: types.TypeExecutionResult}, err
}

// dateWindow returns a [now-days, now] range in the broker's date format.
func dateWindow(days int) (from, to string) {
	now := time.Now()
	return now.AddDate(0, 0, -days).Format(brokerDateLayout), now.Format(brokerDateLayout)
}

// candleRows reshapes candles into row maps for tabular rendering.
func candleRows(args map[string]any) (any, error) {
	candles, err := coerceCandles(args["candles"])
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, map[string]any{
			"date":   time.Unix(c.Ts, 0).Format("2006-01-02"),
			"open":   c.Open,
			"high":   c.High,
			"low":    c.Low,
			"close":  c.Close,
			"volume": c.Vol,
		})
	}
	return rows, nil
}

func indicatorTransform(symbol string) plan.TransformFunc {
	return func(args map[string]any) (any, error) {
		candles, err := coerceCandles(args["candles"])
		if err != nil {
			return nil, err
		}
		return ta.Analyze(symbol, candles)
	}
}

func mergeTransform(user map[string]any) plan.TransformFunc {
	return func(args map[string]any) (any, error) {
		det, err := coerceDetails(args["details"])
		if err != nil {
			return nil, err
		}
		return MergeOrder(user, det), nil
	}
}

// coerceCandles accepts candles either as the gateway's typed slice or as any
// JSON-shaped equivalent that came through a field reference.
func coerceCandles(v any) ([]types.Candle, error) {
	if candles, ok := v.([]types.Candle); ok {
		return candles, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var candles []types.Candle
	if err := json.Unmarshal(b, &candles); err != nil {
		return nil, fmt.Errorf("candle data has unexpected shape: %w", err)
	}
	return candles, nil
}

func coerceDetails(v any) (types.SymbolDetails, error) {
	if det, ok := v.(types.SymbolDetails); ok {
		return det, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return types.SymbolDetails{}, err
	}
	var det types.SymbolDetails
	if err := json.Unmarshal(b, &det); err != nil {
		return types.SymbolDetails{}, fmt.Errorf("symbol details have unexpected shape: %w", err)
	}
	return det, nil
}
