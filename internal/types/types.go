package types

// Intent tags the classifier may emit. Anything else is coerced to
// IntentGeneralQuery before it reaches the plan builder.
const (
	IntentGetLTP           = "get_ltp"
	IntentGetOHLC          = "get_ohlc"
	IntentAnalyzeStock     = "analyze_stock"
	IntentGetPortfolio     = "get_portfolio"
	IntentAnalyzePortfolio = "analyze_portfolio"
	IntentPlaceOrder       = "place_order"
	IntentCancelOrder      = "cancel_order"
	IntentMarketMovers     = "get_market_movers"
	IntentGeneralQuery     = "general_query"
)

// ValidIntent reports whether tag is a member of the closed intent enum.
func ValidIntent(tag string) bool {
	switch tag {
	case IntentGetLTP, IntentGetOHLC, IntentAnalyzeStock, IntentGetPortfolio,
		IntentAnalyzePortfolio, IntentPlaceOrder, IntentCancelOrder,
		IntentMarketMovers, IntentGeneralQuery:
		return true
	}
	return false
}

// Intent is the classifier's output for one chat turn. Immutable once produced.
type Intent struct {
	Tag           string `json:"intent"`
	TradingSymbol string `json:"tradingsymbol,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
	Interval      string `json:"interval,omitempty"`
	FromDate      string `json:"fromdate,omitempty"`
	ToDate        string `json:"todate,omitempty"`
}

// SymbolDetails is the canonical exchange/symbol/token triple for one
// instrument. Resolved fresh on every plan run; broker tokens can change.
type SymbolDetails struct {
	Exchange      string `json:"exchange"`
	TradingSymbol string `json:"tradingsymbol"`
	SymbolToken   string `json:"symboltoken"`
}

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Session holds the broker tokens persisted to the session file.
// Written only by login; loaded once per turn.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	FeedToken    string `json:"feed_token"`
}

// OrderParams is the normalized broker order payload. The broker API wants
// quantity and price as text, not numbers.
type OrderParams struct {
	Variety         string `json:"variety"`
	TradingSymbol   string `json:"tradingsymbol"`
	SymbolToken     string `json:"symboltoken"`
	TransactionType string `json:"transactiontype"`
	Exchange        string `json:"exchange"`
	OrderType       string `json:"ordertype"`
	ProductType     string `json:"producttype"`
	Duration        string `json:"duration"`
	Price           string `json:"price,omitempty"`
	TriggerPrice    string `json:"triggerprice,omitempty"`
	Quantity        string `json:"quantity"`
}

// Envelope statuses.
const (
	StatusSuccess             = "success"
	StatusError               = "error"
	StatusPendingConfirmation = "pending_confirmation"
)

// Envelope render hints consumed by the chat client.
const (
	TypeText            = "text"
	TypeJSON            = "json"
	TypeDataFrame       = "dataframe"
	TypeConfirmation    = "confirmation"
	TypeError           = "error"
	TypeExecutionResult = "execution_result"
)

// Envelope is the sole contract exposed to the presentation layer.
type Envelope struct {
	Status  string `json:"status"`
	Content string `json:"content,omitempty"`
	Data    any    `json:"data,omitempty"`
	Type    string `json:"type"`
}

// Mover is one row of the top-gainers feed. A malformed feed row carries its
// problem in Error instead of failing the whole scrape.
type Mover struct {
	Symbol        string  `json:"symbol"`
	LTP           float64 `json:"ltp"`
	ChangePercent float64 `json:"change_percent"`
	Error         string  `json:"error,omitempty"`
}
