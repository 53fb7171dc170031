package instruments

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"llm-trading-agent/internal/errs"
)

func testDB(t *testing.T) *Resolver {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "instruments.db"))
	if err != nil {
		t.Fatal(err)
	}

	records := []Instrument{
		{TradingSymbol: "RELIANCE-EQ", SymbolToken: "2885", Exchange: "NSE", Name: "RELIANCE INDUSTRIES"},
		{TradingSymbol: "INFY-EQ", SymbolToken: "1594", Exchange: "NSE", Name: "INFOSYS"},
		{TradingSymbol: "TATAMOTORS-EQ", SymbolToken: "3456", Exchange: "NSE", Name: "TATA MOTORS"},
		{TradingSymbol: "TATAPOWER-EQ", SymbolToken: "3426", Exchange: "NSE", Name: "TATA POWER"},
		{TradingSymbol: "NIFTY24AUGFUT", SymbolToken: "55555", Exchange: "NFO", Name: "NIFTY"},
	}
	if err := BuildIndex(context.Background(), db, records); err != nil {
		t.Fatal(err)
	}
	return NewResolver(db)
}

func TestResolveExactMatch(t *testing.T) {
	r := testDB(t)

	det, err := r.Resolve(context.Background(), "RELIANCE-EQ")
	if err != nil {
		t.Fatal(err)
	}
	if det.SymbolToken != "2885" || det.Exchange != "NSE" {
		t.Errorf("unexpected details: %+v", det)
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	r := testDB(t)

	det, err := r.Resolve(context.Background(), "  reliance-eq ")
	if err != nil {
		t.Fatal(err)
	}
	if det.TradingSymbol != "RELIANCE-EQ" {
		t.Errorf("expected canonical symbol, got %s", det.TradingSymbol)
	}
}

func TestResolveAppendsEquitySuffix(t *testing.T) {
	r := testDB(t)

	det, err := r.Resolve(context.Background(), "infy")
	if err != nil {
		t.Fatal(err)
	}
	if det.TradingSymbol != "INFY-EQ" || det.SymbolToken != "1594" {
		t.Errorf("unexpected details: %+v", det)
	}
}

func TestResolveNameSubstringTieBreak(t *testing.T) {
	r := testDB(t)

	// Both TATA names match; the shorter name wins deterministically.
	det, err := r.Resolve(context.Background(), "tata")
	if err != nil {
		t.Fatal(err)
	}
	if det.TradingSymbol != "TATAPOWER-EQ" {
		t.Errorf("expected TATAPOWER-EQ (shortest name, then symbol order), got %s", det.TradingSymbol)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := testDB(t)

	_, err := r.Resolve(context.Background(), "NOSUCHSTOCK")
	var notFound *errs.SymbolNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected SymbolNotFoundError, got %v", err)
	}
	if notFound.Symbol != "NOSUCHSTOCK" {
		t.Errorf("error should carry the raw query, got %s", notFound.Symbol)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	r := testDB(t)

	_, err := r.Resolve(context.Background(), "   ")
	var notFound *errs.SymbolNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected SymbolNotFoundError for blank input, got %v", err)
	}
}

func TestBuildIndexUppercasesSymbols(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "instruments.db"))
	if err != nil {
		t.Fatal(err)
	}

	// The exact tiers compare the stored column directly, so a master row
	// that arrives mixed-case must still be found after a rebuild.
	records := []Instrument{{TradingSymbol: "Infy-eq", SymbolToken: "1594", Exchange: "NSE", Name: "INFOSYS"}}
	if err := BuildIndex(context.Background(), db, records); err != nil {
		t.Fatal(err)
	}

	det, err := NewResolver(db).Resolve(context.Background(), "infy")
	if err != nil {
		t.Fatal(err)
	}
	if det.TradingSymbol != "INFY-EQ" {
		t.Errorf("expected uppercased stored symbol, got %s", det.TradingSymbol)
	}
}

func TestBuildIndexReplacesExistingRows(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "instruments.db"))
	if err != nil {
		t.Fatal(err)
	}

	first := []Instrument{{TradingSymbol: "OLD-EQ", SymbolToken: "1", Exchange: "NSE", Name: "OLD"}}
	if err := BuildIndex(context.Background(), db, first); err != nil {
		t.Fatal(err)
	}
	second := []Instrument{{TradingSymbol: "NEW-EQ", SymbolToken: "2", Exchange: "NSE", Name: "NEW"}}
	if err := BuildIndex(context.Background(), db, second); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(db)
	if _, err := r.Resolve(context.Background(), "OLD-EQ"); err == nil {
		t.Error("old rows must be gone after a rebuild")
	}
	if _, err := r.Resolve(context.Background(), "NEW-EQ"); err != nil {
		t.Errorf("new rows must be present after a rebuild: %v", err)
	}
}
