// Package engine owns one chat turn end to end: classify the message, build
// the plan for the intent, execute it against the broker tools and normalize
// the outcome into the response envelope.
package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pquerna/otp/totp"

	"llm-trading-agent/internal/broker"
	"llm-trading-agent/internal/errs"
	"llm-trading-agent/internal/interfaces"
	"llm-trading-agent/internal/llm"
	"llm-trading-agent/internal/logger"
	"llm-trading-agent/internal/plan"
	"llm-trading-agent/internal/store"
	"llm-trading-agent/internal/trace"
	"llm-trading-agent/internal/types"
)

const totpSecretEnv = "ANGEL_TOTP_SECRET"

const capabilities = "I can fetch live prices, pull OHLC history, run technical analysis on a stock or your whole portfolio, show your holdings and positions, list today's top gainers, and place or cancel orders."

// Engine wires the classifier, the plan recipes and the broker tools.
type Engine struct {
	cfg      *store.Config
	gw       interfaces.Gateway
	resolver interfaces.Resolver
	movers   interfaces.Movers
	llm      llm.Provider
}

// New assembles an engine from its dependencies.
func New(cfg *store.Config, gw interfaces.Gateway, resolver interfaces.Resolver, movers interfaces.Movers, provider llm.Provider) *Engine {
	return &Engine{cfg: cfg, gw: gw, resolver: resolver, movers: movers, llm: provider}
}

// HasSession reports whether a persisted broker session exists.
func (e *Engine) HasSession() bool {
	return broker.HasSession(e.cfg.Broker.SessionFile)
}

// Login authenticates with the broker and persists the session. The one-time
// code is generated from the server-held TOTP secret; callers never supply it.
func (e *Engine) Login(ctx context.Context, clientCode, password string) error {
	ctx, span := trace.StartSpan(ctx, "engine.Login")
	defer span.End()

	secret := os.Getenv(totpSecretEnv)
	if secret == "" {
		return fmt.Errorf("%s not set", totpSecretEnv)
	}
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		return fmt.Errorf("generate totp: %w", err)
	}

	sess, err := e.gw.Login(ctx, clientCode, password, code)
	if err != nil {
		return err
	}
	if err := broker.SaveSession(e.cfg.Broker.SessionFile, sess); err != nil {
		return err
	}
	logger.Info(ctx, "Broker login succeeded", "client_code", clientCode)
	return nil
}

// Chat handles one conversational turn. All failures come back as error
// envelopes; Chat never returns a Go error to the transport layer.
func (e *Engine) Chat(ctx context.Context, message string) types.Envelope {
	ctx, span := trace.StartSpan(ctx, "engine.Chat")
	defer span.End()

	sess, err := broker.LoadSession(e.cfg.Broker.SessionFile)
	if err != nil {
		return Normalize(err)
	}

	intent, err := llm.Classify(ctx, e.llm, message)
	if err != nil {
		return Normalize(err)
	}

	switch intent.Tag {
	case types.IntentGetLTP:
		if intent.TradingSymbol == "" {
			return askForSymbol("a price quote")
		}
		r, err := ltpRecipe(intent.TradingSymbol)
		if err != nil {
			return Normalize(err)
		}
		return e.run(ctx, sess, r)

	case types.IntentGetOHLC:
		if intent.TradingSymbol == "" {
			return askForSymbol("price history")
		}
		r, err := ohlcRecipe(intent)
		if err != nil {
			return Normalize(err)
		}
		return e.run(ctx, sess, r)

	case types.IntentAnalyzeStock:
		if intent.TradingSymbol == "" {
			return askForSymbol("an analysis")
		}
		r, err := analyzeRecipe(intent.TradingSymbol)
		if err != nil {
			return Normalize(err)
		}
		return e.run(ctx, sess, r)

	case types.IntentGetPortfolio:
		r, err := portfolioRecipe()
		if err != nil {
			return Normalize(err)
		}
		return e.run(ctx, sess, r)

	case types.IntentAnalyzePortfolio:
		return e.analyzePortfolio(ctx, sess)

	case types.IntentPlaceOrder:
		return e.prepareOrder(ctx, message, intent)

	case types.IntentCancelOrder:
		if intent.OrderID == "" {
			return types.Envelope{
				Status:  types.StatusError,
				Content: "Which order should I cancel? Please give me the order id.",
				Type:    types.TypeError,
			}
		}
		r, err := cancelRecipe(intent.OrderID)
		if err != nil {
			return Normalize(err)
		}
		return e.run(ctx, sess, r)

	case types.IntentMarketMovers:
		r, err := moversRecipe()
		if err != nil {
			return Normalize(err)
		}
		return e.run(ctx, sess, r)

	default:
		return types.Envelope{
			Status:  types.StatusSuccess,
			Content: capabilities,
			Type:    types.TypeText,
		}
	}
}

// run executes one recipe and maps the result onto the envelope.
func (e *Engine) run(ctx context.Context, sess types.Session, r recipe) types.Envelope {
	inv := &toolset{e: e, sess: sess}
	res := plan.Execute(ctx, r.plan, inv, summarizer{e.llm})
	if res.State != plan.StateComplete {
		return Normalize(res.Err)
	}

	content, _ := res.Final().(string)
	if r.disclaimer {
		content += "\n\n" + disclaimer
	}
	return types.Envelope{
		Status:  types.StatusSuccess,
		Content: content,
		Data:    res.Outputs[r.data],
		Type:    r.typ,
	}
}

// prepareOrder extracts and normalizes an order from the message but never
// places it. Placement happens only through ExecuteOrder after the user
// confirms.
func (e *Engine) prepareOrder(ctx context.Context, message string, intent types.Intent) types.Envelope {
	user, err := llm.ExtractOrder(ctx, e.llm, message)
	if err != nil {
		return Normalize(err)
	}

	symbol := str(user, "tradingsymbol")
	if symbol == "" {
		symbol = intent.TradingSymbol
	}
	if symbol == "" {
		return askForSymbol("an order")
	}

	det, err := e.resolver.Resolve(ctx, symbol)
	if err != nil {
		return Normalize(err)
	}

	order := MergeOrder(user, det)
	if order.Quantity == "" {
		return types.Envelope{
			Status:  types.StatusError,
			Content: fmt.Sprintf("How many shares of %s?", order.TradingSymbol),
			Type:    types.TypeError,
		}
	}

	return types.Envelope{
		Status:  types.StatusPendingConfirmation,
		Content: fmt.Sprintf("Please confirm: %s %s x %s on %s (%s).", order.TransactionType, order.TradingSymbol, order.Quantity, order.Exchange, order.OrderType),
		Data:    order,
		Type:    types.TypeConfirmation,
	}
}

// ExecuteOrder places a previously confirmed order. The symbol is re-resolved
// so a stale token in the confirmed payload cannot reach the broker.
func (e *Engine) ExecuteOrder(ctx context.Context, params map[string]any) types.Envelope {
	ctx, span := trace.StartSpan(ctx, "engine.ExecuteOrder")
	defer span.End()

	sess, err := broker.LoadSession(e.cfg.Broker.SessionFile)
	if err != nil {
		return Normalize(err)
	}

	symbol := str(params, "tradingsymbol")
	if symbol == "" {
		return Normalize(&errs.ToolCallError{Tool: toolPlaceOrder, Message: "order has no tradingsymbol"})
	}

	r, err := orderExecRecipe(params, symbol)
	if err != nil {
		return Normalize(err)
	}
	return e.run(ctx, sess, r)
}

// analyzePortfolio fetches holdings and runs the stock analysis recipe per
// holding, pausing the courtesy delay between symbols so consecutive history
// calls don't hammer the broker.
func (e *Engine) analyzePortfolio(ctx context.Context, sess types.Session) types.Envelope {
	holdings, err := e.gw.Holdings(ctx, sess)
	if err != nil {
		return Normalize(err)
	}
	if len(holdings) == 0 {
		return types.Envelope{
			Status:  types.StatusSuccess,
			Content: "Your portfolio has no holdings to analyze.",
			Type:    types.TypeText,
		}
	}

	delay := time.Duration(e.cfg.QuoteDelayMs) * time.Millisecond
	results := make([]map[string]any, 0, len(holdings))
	for i, holding := range holdings {
		symbol := str(holding, "tradingsymbol")
		if symbol == "" {
			continue
		}
		if i > 0 {
			time.Sleep(delay)
		}

		entry := map[string]any{"symbol": symbol}
		r, err := analyzeRecipe(symbol)
		if err != nil {
			entry["error"] = err.Error()
			results = append(results, entry)
			continue
		}
		res := plan.Execute(ctx, r.plan, &toolset{e: e, sess: sess}, summarizer{e.llm})
		if res.State != plan.StateComplete {
			// One bad symbol doesn't sink the batch; record and move on.
			entry["error"] = res.Err.Error()
			logger.Warn(ctx, "Holding analysis failed", "symbol", symbol, "reason", res.FailureReason)
		} else {
			entry["analysis"] = res.Outputs[r.data]
		}
		results = append(results, entry)
	}

	content, err := llm.Summarize(ctx, e.llm,
		"Summarize the technical health of this portfolio, calling out the strongest and weakest holdings.",
		results)
	if err != nil {
		return Normalize(err)
	}
	return types.Envelope{
		Status:  types.StatusSuccess,
		Content: content + "\n\n" + disclaimer,
		Data:    results,
		Type:    types.TypeJSON,
	}
}

// summarizer adapts the provider to the plan executor's Summarizer.
type summarizer struct {
	p llm.Provider
}

func (s summarizer) Summarize(ctx context.Context, task string, inputs any) (string, error) {
	return llm.Summarize(ctx, s.p, task, inputs)
}

func askForSymbol(what string) types.Envelope {
	return types.Envelope{
		Status:  types.StatusError,
		Content: fmt.Sprintf("Which stock would you like %s for?", what),
		Type:    types.TypeError,
	}
}
