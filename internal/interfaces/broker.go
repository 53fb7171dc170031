package interfaces

import (
	"context"

	"llm-trading-agent/internal/types"
)

// Gateway is the broker tool surface the engine executes plans against.
// Every call takes the session explicitly; the gateway holds no auth state.
type Gateway interface {
	Login(ctx context.Context, clientCode, password, totp string) (types.Session, error)
	LTP(ctx context.Context, sess types.Session, exchange, tradingsymbol, symboltoken string) (map[string]any, error)
	Candles(ctx context.Context, sess types.Session, exchange, symboltoken, interval, fromdate, todate string) ([]types.Candle, error)
	Positions(ctx context.Context, sess types.Session) ([]map[string]any, error)
	Holdings(ctx context.Context, sess types.Session) ([]map[string]any, error)
	PlaceOrder(ctx context.Context, sess types.Session, order types.OrderParams) (map[string]any, error)
	CancelOrder(ctx context.Context, sess types.Session, orderID, variety string) (map[string]any, error)
}
