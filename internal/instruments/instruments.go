// Package instruments provides the symbol index: a read-only, indexed SQLite
// lookup from a user-typed ticker to the broker's canonical
// exchange/tradingsymbol/symboltoken triple. The index is rebuilt out-of-band
// by cmd/instruments from the broker's scrip master file.
package instruments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"llm-trading-agent/internal/api"
)

// Instrument is one row of the instrument master, projected to the columns
// the resolver needs.
type Instrument struct {
	TradingSymbol string `gorm:"column:tradingsymbol;index:idx_tradingsymbol"`
	SymbolToken   string `gorm:"column:symboltoken"`
	Exchange      string `gorm:"column:exchange"`
	Name          string `gorm:"column:name"`
}

func (Instrument) TableName() string { return "instruments" }

// masterRecord mirrors one entry of the broker's OpenAPIScripMaster.json.
type masterRecord struct {
	Symbol  string `json:"symbol"`
	Token   string `json:"token"`
	ExchSeg string `json:"exch_seg"`
	Name    string `json:"name"`
}

// Open opens the instrument database for resolver use.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open instrument db %s: %w", path, err)
	}
	return db, nil
}

// DownloadMaster fetches the full instrument master file from the broker.
func DownloadMaster(ctx context.Context, client *api.Client, url string) ([]Instrument, error) {
	resp, err := client.GET(ctx, url, api.BrowserHeaders())
	if err != nil {
		return nil, fmt.Errorf("download instrument master: %w", err)
	}

	var records []masterRecord
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return nil, fmt.Errorf("parse instrument master: %w", err)
	}

	out := make([]Instrument, 0, len(records))
	for _, r := range records {
		out = append(out, Instrument{
			TradingSymbol: r.Symbol,
			SymbolToken:   r.Token,
			Exchange:      r.ExchSeg,
			Name:          r.Name,
		})
	}
	return out, nil
}

// BuildIndex replaces the instruments table with the given records and
// (re)creates the tradingsymbol index. Symbols are stored uppercase; the
// resolver relies on that to keep its exact lookup on the index instead of
// case-folding every row. Runs out-of-band; the resolver never writes at
// request time.
func BuildIndex(ctx context.Context, db *gorm.DB, records []Instrument) error {
	if err := db.WithContext(ctx).AutoMigrate(&Instrument{}); err != nil {
		return fmt.Errorf("migrate instruments table: %w", err)
	}
	if err := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Instrument{}).Error; err != nil {
		return fmt.Errorf("clear instruments table: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	rows := make([]Instrument, len(records))
	for i, r := range records {
		r.TradingSymbol = strings.ToUpper(r.TradingSymbol)
		rows[i] = r
	}
	if err := db.WithContext(ctx).CreateInBatches(rows, 1000).Error; err != nil {
		return fmt.Errorf("insert instruments: %w", err)
	}
	return nil
}
