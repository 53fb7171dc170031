package engine

import (
	"context"
	"path/filepath"
	"testing"

	"llm-trading-agent/internal/broker"
	"llm-trading-agent/internal/errs"
	"llm-trading-agent/internal/llm/noop"
	"llm-trading-agent/internal/store"
	"llm-trading-agent/internal/types"
)

type mockGateway struct {
	ltp       map[string]any
	candles   []types.Candle
	holdings  []map[string]any
	positions []map[string]any

	placedOrders   []types.OrderParams
	cancelledIDs   []string
	ltpCalls       int
	candleRequests []string
}

func (m *mockGateway) Login(ctx context.Context, clientCode, password, totp string) (types.Session, error) {
	return types.Session{AccessToken: "jwt"}, nil
}

func (m *mockGateway) LTP(ctx context.Context, sess types.Session, exchange, tradingsymbol, symboltoken string) (map[string]any, error) {
	m.ltpCalls++
	if sess.AccessToken == "" {
		return nil, errs.ErrUnauthenticated
	}
	return m.ltp, nil
}

func (m *mockGateway) Candles(ctx context.Context, sess types.Session, exchange, symboltoken, interval, fromdate, todate string) ([]types.Candle, error) {
	m.candleRequests = append(m.candleRequests, symboltoken)
	return m.candles, nil
}

func (m *mockGateway) Positions(ctx context.Context, sess types.Session) ([]map[string]any, error) {
	return m.positions, nil
}

func (m *mockGateway) Holdings(ctx context.Context, sess types.Session) ([]map[string]any, error) {
	return m.holdings, nil
}

func (m *mockGateway) PlaceOrder(ctx context.Context, sess types.Session, order types.OrderParams) (map[string]any, error) {
	m.placedOrders = append(m.placedOrders, order)
	return map[string]any{"order_id": "240815000001"}, nil
}

func (m *mockGateway) CancelOrder(ctx context.Context, sess types.Session, orderID, variety string) (map[string]any, error) {
	m.cancelledIDs = append(m.cancelledIDs, orderID)
	return map[string]any{"order_id": orderID}, nil
}

type mockResolver struct {
	known map[string]types.SymbolDetails
}

func (m *mockResolver) Resolve(ctx context.Context, raw string) (types.SymbolDetails, error) {
	if det, ok := m.known[raw]; ok {
		return det, nil
	}
	return types.SymbolDetails{}, &errs.SymbolNotFoundError{Symbol: raw}
}

type mockMovers struct {
	movers []types.Mover
}

func (m *mockMovers) TopGainers(ctx context.Context) ([]types.Mover, error) {
	return m.movers, nil
}

func newTestEngine(t *testing.T, gw *mockGateway, loggedIn bool) *Engine {
	t.Helper()
	cfg := &store.Config{}
	cfg.Broker.SessionFile = filepath.Join(t.TempDir(), "session.json")
	if loggedIn {
		if err := broker.SaveSession(cfg.Broker.SessionFile, types.Session{AccessToken: "jwt"}); err != nil {
			t.Fatal(err)
		}
	}

	resolver := &mockResolver{known: map[string]types.SymbolDetails{
		"RELIANCE": {Exchange: "NSE", TradingSymbol: "RELIANCE-EQ", SymbolToken: "2885"},
		"INFY":     {Exchange: "NSE", TradingSymbol: "INFY-EQ", SymbolToken: "1594"},
		"INFY-EQ":  {Exchange: "NSE", TradingSymbol: "INFY-EQ", SymbolToken: "1594"},
	}}

	return New(cfg, gw, resolver, &mockMovers{}, noop.New())
}

func TestChatWithoutSession(t *testing.T) {
	eng := newTestEngine(t, &mockGateway{}, false)

	env := eng.Chat(context.Background(), "what is the price of reliance?")

	if env.Status != types.StatusError {
		t.Fatalf("expected error status, got %s", env.Status)
	}
	if env.Content != "Please log in first." {
		t.Errorf("unexpected content: %q", env.Content)
	}
	if env.Type != types.TypeError {
		t.Errorf("expected error type, got %s", env.Type)
	}
}

func TestChatPriceQuery(t *testing.T) {
	gw := &mockGateway{ltp: map[string]any{"tradingsymbol": "RELIANCE-EQ", "ltp": 2950.4}}
	eng := newTestEngine(t, gw, true)

	env := eng.Chat(context.Background(), "what is the price of reliance?")

	if env.Status != types.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", env.Status, env.Content)
	}
	if env.Type != types.TypeText {
		t.Errorf("price quotes render as conversational text, got %s", env.Type)
	}
	if env.Content == "" {
		t.Error("price quote must carry conversational content")
	}
	if gw.ltpCalls != 1 {
		t.Errorf("expected one LTP call, got %d", gw.ltpCalls)
	}
	data, ok := env.Data.(map[string]any)
	if !ok || data["ltp"] != 2950.4 {
		t.Errorf("expected quote data in envelope, got %#v", env.Data)
	}
}

func TestChatUnknownSymbol(t *testing.T) {
	eng := newTestEngine(t, &mockGateway{}, true)

	env := eng.Chat(context.Background(), "what is the price of zzzz?")

	if env.Status != types.StatusError {
		t.Fatalf("expected error status, got %s", env.Status)
	}
	if env.Type != types.TypeError {
		t.Errorf("expected error type, got %s", env.Type)
	}
}

func TestChatCancelOrder(t *testing.T) {
	gw := &mockGateway{}
	eng := newTestEngine(t, gw, true)

	env := eng.Chat(context.Background(), "cancel my order 240815000042")

	if env.Status != types.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", env.Status, env.Content)
	}
	if env.Type != types.TypeText {
		t.Errorf("chat-path cancels render as text, got %s", env.Type)
	}
	if len(gw.cancelledIDs) != 1 || gw.cancelledIDs[0] != "240815000042" {
		t.Errorf("expected cancel of 240815000042, got %v", gw.cancelledIDs)
	}
}

func TestChatPlaceOrderReturnsConfirmation(t *testing.T) {
	gw := &mockGateway{}
	eng := newTestEngine(t, gw, true)

	env := eng.Chat(context.Background(), "buy 1 share of infy")

	if env.Status != types.StatusPendingConfirmation {
		t.Fatalf("expected pending_confirmation, got %s (%s)", env.Status, env.Content)
	}
	if env.Type != types.TypeConfirmation {
		t.Errorf("expected confirmation type, got %s", env.Type)
	}
	if len(gw.placedOrders) != 0 {
		t.Fatal("chat must never place an order directly")
	}
	order, ok := env.Data.(types.OrderParams)
	if !ok {
		t.Fatalf("expected normalized order in data, got %#v", env.Data)
	}
	if order.TradingSymbol != "INFY-EQ" || order.SymbolToken != "1594" {
		t.Errorf("expected resolved symbol fields, got %+v", order)
	}
}

func TestExecuteOrderPlacesAndReResolves(t *testing.T) {
	gw := &mockGateway{}
	eng := newTestEngine(t, gw, true)

	env := eng.ExecuteOrder(context.Background(), map[string]any{
		"tradingsymbol":   "INFY-EQ",
		"transactiontype": "BUY",
		"quantity":        "5",
		"symboltoken":     "stale-token",
	})

	if env.Status != types.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", env.Status, env.Content)
	}
	if len(gw.placedOrders) != 1 {
		t.Fatalf("expected one placed order, got %d", len(gw.placedOrders))
	}
	order := gw.placedOrders[0]
	if order.SymbolToken != "1594" {
		t.Errorf("stale token must be replaced by the resolved one, got %s", order.SymbolToken)
	}
	if order.Quantity != "5" || order.TransactionType != "BUY" {
		t.Errorf("unexpected order payload: %+v", order)
	}
}

func TestChatPortfolio(t *testing.T) {
	gw := &mockGateway{
		holdings:  []map[string]any{{"tradingsymbol": "INFY-EQ", "quantity": 10}},
		positions: []map[string]any{},
	}
	eng := newTestEngine(t, gw, true)

	env := eng.Chat(context.Background(), "show my portfolio")

	if env.Status != types.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", env.Status, env.Content)
	}
	book, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected paired book in data, got %#v", env.Data)
	}
	if _, ok := book["get_holdings"]; !ok {
		t.Error("missing holdings in portfolio data")
	}
	if _, ok := book["get_positions"]; !ok {
		t.Error("missing positions in portfolio data")
	}
}

func TestAnalyzeStockInsufficientHistory(t *testing.T) {
	gw := &mockGateway{candles: makeCandles(10)}
	eng := newTestEngine(t, gw, true)

	env := eng.Chat(context.Background(), "analyze reliance")

	if env.Status != types.StatusError {
		t.Fatalf("expected error for thin history, got %s", env.Status)
	}
}

func TestAnalyzePortfolioSkipsBadHoldings(t *testing.T) {
	gw := &mockGateway{
		holdings: []map[string]any{
			{"tradingsymbol": "INFY-EQ"},
			{"tradingsymbol": "UNKNOWN-XX"},
		},
		candles: makeCandles(220),
	}
	eng := newTestEngine(t, gw, true)

	env := eng.Chat(context.Background(), "analyze my portfolio")

	if env.Status != types.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", env.Status, env.Content)
	}
	results, ok := env.Data.([]map[string]any)
	if !ok || len(results) != 2 {
		t.Fatalf("expected two result entries, got %#v", env.Data)
	}
	if _, ok := results[0]["analysis"]; !ok {
		t.Errorf("expected analysis for known holding, got %#v", results[0])
	}
	if _, ok := results[1]["error"]; !ok {
		t.Errorf("expected error entry for unknown holding, got %#v", results[1])
	}
}

func makeCandles(n int) []types.Candle {
	candles := make([]types.Candle, n)
	price := 100.0
	for i := range candles {
		price += 0.5
		candles[i] = types.Candle{
			Ts:    int64(1700000000 + i*86400),
			Open:  price - 1,
			High:  price + 2,
			Low:   price - 2,
			Close: price,
			Vol:   100000,
		}
	}
	return candles
}
