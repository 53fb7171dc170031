package interfaces

import (
	"context"

	"llm-trading-agent/internal/types"
)

// Movers is the market-movers feed.
type Movers interface {
	TopGainers(ctx context.Context) ([]types.Mover, error)
}
