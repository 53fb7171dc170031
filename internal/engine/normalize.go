package engine

import (
	"errors"
	"fmt"

	"llm-trading-agent/internal/errs"
	"llm-trading-agent/internal/types"
)

// Normalize maps any turn failure onto the response envelope. Every error the
// pipeline can produce lands in exactly one branch; nothing leaks a stack
// trace to the chat client.
func Normalize(err error) types.Envelope {
	var classification *errs.ClassificationError
	var notFound *errs.SymbolNotFoundError
	var tool *errs.ToolCallError
	var insufficient *errs.DataInsufficiencyError
	var malformed *errs.MalformedUpstreamError

	switch {
	case errors.Is(err, errs.ErrUnauthenticated):
		return types.Envelope{
			Status:  types.StatusError,
			Content: "Please log in first.",
			Type:    types.TypeError,
		}

	case errors.As(err, &classification):
		return types.Envelope{
			Status:  types.StatusError,
			Content: "I didn't understand that. You can ask for a price, an analysis, your portfolio, top gainers, or place or cancel an order.",
			Type:    types.TypeError,
		}

	case errors.As(err, &notFound):
		return types.Envelope{
			Status:  types.StatusError,
			Content: fmt.Sprintf("I couldn't find %q in the instrument list. Could you check the symbol?", notFound.Symbol),
			Type:    types.TypeError,
		}

	case errors.As(err, &insufficient):
		return types.Envelope{
			Status:  types.StatusError,
			Content: fmt.Sprintf("Not enough price history for %s to run an analysis (got %d days, need %d).", insufficient.Symbol, insufficient.Rows, insufficient.Min),
			Type:    types.TypeError,
		}

	case errors.As(err, &malformed):
		return types.Envelope{
			Status:  types.StatusError,
			Content: "Something went wrong reading the model's response. Please try again.",
			Type:    types.TypeError,
		}

	case errors.As(err, &tool):
		// Surface the broker's own message verbatim; it is the most useful
		// thing the user can act on.
		return types.Envelope{
			Status:  types.StatusError,
			Content: tool.Error(),
			Type:    types.TypeError,
		}

	default:
		return types.Envelope{
			Status:  types.StatusError,
			Content: "Something went wrong handling that request.",
			Type:    types.TypeError,
		}
	}
}
