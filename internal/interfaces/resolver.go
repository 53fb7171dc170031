package interfaces

import (
	"context"

	"llm-trading-agent/internal/types"
)

// Resolver maps user-typed tickers to the broker's canonical symbol triple.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (types.SymbolDetails, error)
}
