package instruments

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"llm-trading-agent/internal/errs"
	"llm-trading-agent/internal/logger"
	"llm-trading-agent/internal/trace"
	"llm-trading-agent/internal/types"
)

const equitySuffix = "-EQ"

// Resolver maps a user-typed ticker to the canonical symbol triple.
// Read-only at request time.
type Resolver struct {
	db *gorm.DB
}

// NewResolver wraps an open instrument database.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve looks up raw against the index in three tiers, case-insensitive:
// exact match, exact match with the -EQ equity suffix appended, and finally a
// substring match against the display name. The substring tier breaks ties
// deterministically: shortest display name first, then tradingsymbol.
func (r *Resolver) Resolve(ctx context.Context, raw string) (types.SymbolDetails, error) {
	ctx, span := trace.StartSpan(ctx, "instruments.Resolve")
	defer span.End()

	sym := strings.ToUpper(strings.TrimSpace(raw))
	if sym == "" {
		return types.SymbolDetails{}, &errs.SymbolNotFoundError{Symbol: raw}
	}

	if det, err := r.exact(ctx, sym); err == nil {
		return det, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return types.SymbolDetails{}, err
	}

	if !strings.HasSuffix(sym, equitySuffix) {
		if det, err := r.exact(ctx, sym+equitySuffix); err == nil {
			return det, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return types.SymbolDetails{}, err
		}
	}

	var inst Instrument
	err := r.db.WithContext(ctx).
		Where("upper(name) LIKE ?", "%"+sym+"%").
		Order("length(name) ASC, tradingsymbol ASC").
		First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Debug(ctx, "Symbol not found in any tier", "symbol", raw)
		return types.SymbolDetails{}, &errs.SymbolNotFoundError{Symbol: raw}
	}
	if err != nil {
		return types.SymbolDetails{}, err
	}
	return details(inst), nil
}

// exact compares the column directly so SQLite can serve the lookup from
// idx_tradingsymbol. Symbols are stored uppercase by the index builder and
// sym arrives uppercased, so no per-row case folding is needed.
func (r *Resolver) exact(ctx context.Context, sym string) (types.SymbolDetails, error) {
	var inst Instrument
	err := r.db.WithContext(ctx).
		Where("tradingsymbol = ?", sym).
		First(&inst).Error
	if err != nil {
		return types.SymbolDetails{}, err
	}
	return details(inst), nil
}

func details(inst Instrument) types.SymbolDetails {
	return types.SymbolDetails{
		Exchange:      inst.Exchange,
		TradingSymbol: inst.TradingSymbol,
		SymbolToken:   inst.SymbolToken,
	}
}
