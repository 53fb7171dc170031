// Package broker is the tool gateway to the Angel One SmartAPI trading
// endpoints. Every operation takes the session explicitly; authentication
// state is never cached inside the client. Broker responses missing a `data`
// key (or carrying a null one) are failures, not empty successes. The only
// exceptions are positions and holdings, where an empty list is valid data.
//
// The gateway never retries; failures propagate to the plan executor as step
// failures.
package broker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"llm-trading-agent/internal/api"
	"llm-trading-agent/internal/errs"
	"llm-trading-agent/internal/logger"
	"llm-trading-agent/internal/trace"
	"llm-trading-agent/internal/types"
)

const (
	pathLogin       = "/rest/auth/angelbroking/user/v1/loginByPassword"
	pathLTP         = "/rest/secure/angelbroking/order/v1/getLtpData"
	pathCandles     = "/rest/secure/angelbroking/historical/v1/getCandleData"
	pathPositions   = "/rest/secure/angelbroking/order/v1/getPosition"
	pathHoldings    = "/rest/secure/angelbroking/portfolio/v1/getAllHolding"
	pathPlaceOrder  = "/rest/secure/angelbroking/order/v1/placeOrder"
	pathCancelOrder = "/rest/secure/angelbroking/order/v1/cancelOrder"
)

// Params configures the SmartAPI client.
type Params struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client speaks the SmartAPI wire contract.
type Client struct {
	http   *api.Client
	apiKey string
}

// NewClient creates a SmartAPI client.
func NewClient(p Params) *Client {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: api.NewClient(
			api.WithBaseURL(p.BaseURL),
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
		apiKey: p.APIKey,
	}
}

func (c *Client) headers(accessToken string) map[string]string {
	h := map[string]string{
		"Accept":           "application/json",
		"X-UserType":       "USER",
		"X-SourceID":       "WEB",
		"X-ClientLocalIP":  "127.0.0.1",
		"X-ClientPublicIP": "127.0.0.1",
		"X-MACAddress":     "00:00:00:00:00:00",
		"X-PrivateKey":     c.apiKey,
	}
	if accessToken != "" {
		h["Authorization"] = "Bearer " + accessToken
	}
	return h
}

// call posts to a broker endpoint and applies the universal failure rule:
// a response without a usable `data` key is a failure. allowNullData relaxes
// that for positions/holdings, where null stands for an empty list.
func (c *Client) call(ctx context.Context, tool, method, path string, sess types.Session, body any, allowNullData bool) (gjson.Result, error) {
	if path != pathLogin && sess.AccessToken == "" {
		return gjson.Result{}, errs.ErrUnauthenticated
	}

	ctx, span := trace.StartSpan(ctx, "broker."+tool)
	defer span.End()

	var resp *api.Response
	var err error
	if method == "GET" {
		resp, err = c.http.GET(ctx, path, c.headers(sess.AccessToken))
	} else {
		resp, err = c.http.POST(ctx, path, body, c.headers(sess.AccessToken))
	}
	if err != nil {
		return gjson.Result{}, &errs.ToolCallError{Tool: tool, Err: err}
	}

	res := gjson.ParseBytes(resp.Body)
	data := res.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		if allowNullData {
			return data, nil
		}
		msg := res.Get("message").String()
		if msg == "" {
			msg = "broker response missing data"
		}
		logger.Warn(ctx, "Broker call returned failure shape", "tool", tool, "message", msg)
		return gjson.Result{}, &errs.ToolCallError{Tool: tool, Message: msg}
	}
	return data, nil
}

// Login generates a broker session. The one-time code comes from the server's
// stored secret, never from the caller.
func (c *Client) Login(ctx context.Context, clientCode, password, totp string) (types.Session, error) {
	body := map[string]string{
		"clientcode": clientCode,
		"password":   password,
		"totp":       totp,
	}
	data, err := c.call(ctx, "login", "POST", pathLogin, types.Session{}, body, false)
	if err != nil {
		return types.Session{}, err
	}

	sess := types.Session{
		AccessToken:  data.Get("jwtToken").String(),
		RefreshToken: data.Get("refreshToken").String(),
		FeedToken:    data.Get("feedToken").String(),
	}
	if sess.AccessToken == "" {
		return types.Session{}, &errs.ToolCallError{Tool: "login", Message: "broker returned no access token"}
	}
	return sess, nil
}

// LTP fetches the last traded price and related quote fields for one symbol.
func (c *Client) LTP(ctx context.Context, sess types.Session, exchange, tradingsymbol, symboltoken string) (map[string]any, error) {
	body := map[string]string{
		"exchange":      exchange,
		"tradingsymbol": tradingsymbol,
		"symboltoken":   symboltoken,
	}
	data, err := c.call(ctx, "get_ltp", "POST", pathLTP, sess, body, false)
	if err != nil {
		return nil, err
	}
	out, _ := data.Value().(map[string]any)
	if out == nil {
		return nil, &errs.ToolCallError{Tool: "get_ltp", Message: "unexpected quote shape: " + data.Raw}
	}
	return out, nil
}

// Candles fetches historical OHLC rows for one symbol.
func (c *Client) Candles(ctx context.Context, sess types.Session, exchange, symboltoken, interval, fromdate, todate string) ([]types.Candle, error) {
	body := map[string]string{
		"exchange":    exchange,
		"symboltoken": symboltoken,
		"interval":    interval,
		"fromdate":    fromdate,
		"todate":      todate,
	}
	data, err := c.call(ctx, "get_ohlc", "POST", pathCandles, sess, body, false)
	if err != nil {
		return nil, err
	}
	return parseCandles(data)
}

// parseCandles converts the broker's row-array format
// [timestamp, open, high, low, close, volume] into typed candles.
func parseCandles(data gjson.Result) ([]types.Candle, error) {
	if !data.IsArray() {
		return nil, &errs.ToolCallError{Tool: "get_ohlc", Message: "candle data is not an array"}
	}
	rows := data.Array()
	out := make([]types.Candle, 0, len(rows))
	for _, row := range rows {
		cols := row.Array()
		if len(cols) < 6 {
			return nil, &errs.ToolCallError{Tool: "get_ohlc", Message: fmt.Sprintf("candle row has %d columns, want 6", len(cols))}
		}
		ts, err := parseCandleTs(cols[0])
		if err != nil {
			return nil, &errs.ToolCallError{Tool: "get_ohlc", Message: "bad candle timestamp", Err: err}
		}
		out = append(out, types.Candle{
			Ts:    ts,
			Open:  cols[1].Float(),
			High:  cols[2].Float(),
			Low:   cols[3].Float(),
			Close: cols[4].Float(),
			Vol:   cols[5].Float(),
		})
	}
	return out, nil
}

func parseCandleTs(col gjson.Result) (int64, error) {
	if col.Type == gjson.Number {
		return int64(col.Float()), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, col.String()); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unparseable timestamp %q", col.String())
}

// Positions returns the open intraday positions. An empty list is valid.
func (c *Client) Positions(ctx context.Context, sess types.Session) ([]map[string]any, error) {
	data, err := c.call(ctx, "get_positions", "GET", pathPositions, sess, nil, true)
	if err != nil {
		return nil, err
	}
	return rowMaps(data), nil
}

// Holdings returns the long-term demat holdings. An empty list is valid.
func (c *Client) Holdings(ctx context.Context, sess types.Session) ([]map[string]any, error) {
	data, err := c.call(ctx, "get_holdings", "GET", pathHoldings, sess, nil, true)
	if err != nil {
		return nil, err
	}
	// getAllHolding nests the rows under "holdings"; fall back to a bare array.
	if h := data.Get("holdings"); h.Exists() {
		return rowMaps(h), nil
	}
	return rowMaps(data), nil
}

func rowMaps(data gjson.Result) []map[string]any {
	if !data.IsArray() {
		return []map[string]any{}
	}
	rows := data.Array()
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if m, ok := row.Value().(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// PlaceOrder submits an order and returns the broker's order id and status.
func (c *Client) PlaceOrder(ctx context.Context, sess types.Session, order types.OrderParams) (map[string]any, error) {
	data, err := c.call(ctx, "place_order", "POST", pathPlaceOrder, sess, order, false)
	if err != nil {
		return nil, err
	}
	orderID := data.Get("orderid").String()
	logger.Trade(ctx, order.TradingSymbol, order.TransactionType, order.Quantity, orderID)
	return map[string]any{
		"broker_response": data.Value(),
		"order_id":        orderID,
	}, nil
}

// CancelOrder cancels a pending order by id.
func (c *Client) CancelOrder(ctx context.Context, sess types.Session, orderID, variety string) (map[string]any, error) {
	if variety == "" {
		variety = "NORMAL"
	}
	body := map[string]string{
		"variety": variety,
		"orderid": orderID,
	}
	data, err := c.call(ctx, "cancel_order", "POST", pathCancelOrder, sess, body, false)
	if err != nil {
		return nil, err
	}
	logger.Trade(ctx, "", "CANCEL", "", orderID)
	return map[string]any{
		"broker_response": data.Value(),
		"order_id":        data.Get("orderid").String(),
	}, nil
}

// Quantity strings: the broker rejects numeric quantity, so coerce here for
// callers that carry it as a number.
func QuantityString(v any) string {
	switch q := v.(type) {
	case string:
		return q
	case float64:
		return strconv.FormatInt(int64(q), 10)
	case int:
		return strconv.Itoa(q)
	default:
		return fmt.Sprintf("%v", v)
	}
}
