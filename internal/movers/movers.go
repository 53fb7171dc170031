// Package movers scrapes the day's top NSE gainers from the public
// MoneyControl table. Rows that fail to parse are reported as structured
// error rows rather than failing the whole scrape.
package movers

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"llm-trading-agent/internal/errs"
	"llm-trading-agent/internal/logger"
	"llm-trading-agent/internal/trace"
	"llm-trading-agent/internal/types"
)

// Scraper fetches and parses the gainers page.
type Scraper struct {
	url     string
	topN    int
	timeout time.Duration
}

// NewScraper creates a scraper for the given gainers URL, keeping the top n rows.
func NewScraper(gainersURL string, topN int) *Scraper {
	return &Scraper{url: gainersURL, topN: topN, timeout: 20 * time.Second}
}

// TopGainers fetches the page and returns the top rows.
func (s *Scraper) TopGainers(ctx context.Context) ([]types.Mover, error) {
	ctx, span := trace.StartSpan(ctx, "movers.TopGainers")
	defer span.End()

	c := colly.NewCollector(
		colly.AllowedDomains(hostOf(s.url)),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	var movers []types.Mover
	var parseErr error
	c.OnResponse(func(r *colly.Response) {
		movers, parseErr = ParseGainers(strings.NewReader(string(r.Body)), s.topN)
	})

	if err := c.Visit(s.url); err != nil {
		return nil, &errs.ToolCallError{Tool: "market_movers", Err: err}
	}
	c.Wait()

	if parseErr != nil {
		return nil, &errs.ToolCallError{Tool: "market_movers", Err: parseErr}
	}
	logger.Info(ctx, "Gainers scrape completed", "rows", len(movers))
	return movers, nil
}

// ParseGainers extracts mover rows from the gainers table HTML. Expects the
// symbol in the first cell, last price and percent change in later cells.
func ParseGainers(r io.Reader, topN int) ([]types.Mover, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse gainers page: %w", err)
	}

	movers := []types.Mover{}
	doc.Find("table tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if len(movers) >= topN {
			return false
		}
		m, ok := parseRow(row)
		if !ok {
			return true
		}
		movers = append(movers, m)
		return true
	})

	if len(movers) == 0 {
		// A page with no recognizable table still yields a row, so the rest
		// of the turn can run and report the problem instead of failing.
		return []types.Mover{{Error: "no gainer rows found in feed"}}, nil
	}
	return movers, nil
}

func parseRow(row *goquery.Selection) (types.Mover, bool) {
	cells := row.Find("td")
	if cells.Length() < 3 {
		return types.Mover{}, false
	}

	symbol := strings.TrimSpace(cells.Eq(0).Find("a").First().Text())
	if symbol == "" {
		symbol = firstLine(cells.Eq(0).Text())
	}
	if symbol == "" {
		return types.Mover{}, false
	}

	m := types.Mover{Symbol: symbol}

	ltp, err := parseNumberCell(cells.Eq(1).Text())
	if err != nil {
		m.Error = "unreadable price: " + strings.TrimSpace(cells.Eq(1).Text())
		return m, true
	}
	m.LTP = ltp

	// Percent change is usually the last cell.
	pct, err := parseNumberCell(cells.Eq(cells.Length() - 1).Text())
	if err != nil {
		m.Error = "unreadable change: " + strings.TrimSpace(cells.Eq(cells.Length()-1).Text())
		return m, true
	}
	m.ChangePercent = pct
	return m, true
}

func parseNumberCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	return strconv.ParseFloat(s, 64)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\n\r"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
