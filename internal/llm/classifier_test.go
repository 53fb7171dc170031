package llm

import (
	"context"
	"errors"
	"testing"

	"llm-trading-agent/internal/errs"
	"llm-trading-agent/internal/types"
)

// cannedProvider returns a fixed completion, or an error.
type cannedProvider struct {
	reply string
	err   error
}

func (c *cannedProvider) Complete(ctx context.Context, system, user string) (string, error) {
	return c.reply, c.err
}

func TestClassifyWellFormedIntent(t *testing.T) {
	p := &cannedProvider{reply: `{"intent": "get_ltp", "tradingsymbol": "RELIANCE"}`}

	intent, err := Classify(context.Background(), p, "price of reliance?")
	if err != nil {
		t.Fatal(err)
	}
	if intent.Tag != types.IntentGetLTP {
		t.Errorf("expected get_ltp, got %s", intent.Tag)
	}
	if intent.TradingSymbol != "RELIANCE" {
		t.Errorf("expected RELIANCE, got %s", intent.TradingSymbol)
	}
}

func TestClassifyTrimsAndLowercasesTag(t *testing.T) {
	p := &cannedProvider{reply: `{"intent": " Get_Portfolio "}`}

	intent, err := Classify(context.Background(), p, "show my stuff")
	if err != nil {
		t.Fatal(err)
	}
	if intent.Tag != types.IntentGetPortfolio {
		t.Errorf("expected get_portfolio, got %s", intent.Tag)
	}
}

func TestClassifyCoercesUnknownTag(t *testing.T) {
	p := &cannedProvider{reply: `{"intent": "do_a_backflip"}`}

	intent, err := Classify(context.Background(), p, "do a backflip")
	if err != nil {
		t.Fatal(err)
	}
	if intent.Tag != types.IntentGeneralQuery {
		t.Errorf("unknown tag must coerce to general_query, got %s", intent.Tag)
	}
}

func TestClassifySurvivesFencesAndProse(t *testing.T) {
	p := &cannedProvider{reply: "The intent is:\n```json\n{\"intent\": \"cancel_order\", \"order_id\": \"12345\"}\n```"}

	intent, err := Classify(context.Background(), p, "cancel my order 12345")
	if err != nil {
		t.Fatal(err)
	}
	if intent.Tag != types.IntentCancelOrder || intent.OrderID != "12345" {
		t.Errorf("unexpected intent: %+v", intent)
	}
}

func TestClassifyCompletionFailure(t *testing.T) {
	p := &cannedProvider{err: errors.New("model unreachable")}

	_, err := Classify(context.Background(), p, "anything")
	var classification *errs.ClassificationError
	if !errors.As(err, &classification) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
}

func TestClassifyGarbageOutput(t *testing.T) {
	p := &cannedProvider{reply: "I am sorry, I cannot help with that."}

	_, err := Classify(context.Background(), p, "price of infy")
	var classification *errs.ClassificationError
	if !errors.As(err, &classification) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
}

func TestExtractOrder(t *testing.T) {
	p := &cannedProvider{reply: `{"tradingsymbol": "INFY", "transactiontype": "buy", "quantity": 5}`}

	order, err := ExtractOrder(context.Background(), p, "buy 5 infy")
	if err != nil {
		t.Fatal(err)
	}
	if order["tradingsymbol"] != "INFY" {
		t.Errorf("unexpected extraction: %#v", order)
	}
	if order["quantity"] != float64(5) {
		t.Errorf("numeric quantity should survive as a number here, got %#v", order["quantity"])
	}
}
