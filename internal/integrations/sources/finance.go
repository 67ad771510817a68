package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"chat-gateway/internal/domain"
)

const defaultFinanceBaseURL = "https://query1.finance.yahoo.com"

var (
	dollarSymbolPattern = regexp.MustCompile(`\$([A-Za-z]{1,5}(?:[.-][A-Za-z]{1,3})?)\b`)
	capsSymbolPattern   = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
)

// Tokens that look like tickers but are not.
var symbolStoplist = map[string]bool{
	"USD": true, "INR": true, "EUR": true, "CEO": true, "CFO": true, "IPO": true,
	"AI": true, "NYSE": true, "ETF": true, "GDP": true, "USA": true, "UK": true,
	"EPS": true, "PE": true, "API": true, "SP": true, "US": true, "WHAT": true,
	"IS": true, "THE": true, "OF": true, "NSE": true, "BSE": true,
}

// Finance quotes market prices from the Yahoo Finance chart API. Company
// names are turned into symbols through a static alias table.
type Finance struct {
	base
	aliases []tickerAlias
}

type tickerAlias struct {
	name   string
	symbol string
}

// NewFinance creates a finance source. tickers maps lower-case company names
// to exchange symbols.
func NewFinance(tickers map[string]string, opts ...Option) *Finance {
	aliases := make([]tickerAlias, 0, len(tickers))
	for name, symbol := range tickers {
		aliases = append(aliases, tickerAlias{
			name:   " " + strings.ToLower(strings.TrimSpace(name)) + " ",
			symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		})
	}
	// Longest names first so "bank of america" wins over "america".
	sort.Slice(aliases, func(i, j int) bool {
		if len(aliases[i].name) != len(aliases[j].name) {
			return len(aliases[i].name) > len(aliases[j].name)
		}
		return aliases[i].name < aliases[j].name
	})
	return &Finance{
		base:    newBase("yahoo-finance", defaultFinanceBaseURL, opts),
		aliases: aliases,
	}
}

// Symbol picks the ticker a query is about: a "$TSLA" style symbol first,
// then a known company name, then a bare upper-case ticker.
func (f *Finance) Symbol(query string) (string, bool) {
	if m := dollarSymbolPattern.FindStringSubmatch(query); m != nil {
		return strings.ToUpper(m[1]), true
	}

	padded := " " + strings.Join(strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '&' && r != '-'
	}), " ") + " "
	for _, a := range f.aliases {
		if strings.Contains(padded, a.name) {
			return a.symbol, true
		}
	}

	for _, tok := range capsSymbolPattern.FindAllString(query, -1) {
		if !symbolStoplist[tok] {
			return tok, true
		}
	}
	return "", false
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	ExchangeName       string  `json:"exchangeName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	ChartPreviousClose float64 `json:"chartPreviousClose"`
	PreviousClose      float64 `json:"previousClose"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
}

// Fetch returns a quote block for the symbol named in query.
func (f *Finance) Fetch(ctx context.Context, query string) (string, error) {
	symbol, ok := f.Symbol(query)
	if !ok {
		return "", domain.ErrNoData
	}

	var payload chartResponse
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", "5d")
	if err := f.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q, nil, &payload); err != nil {
		if isNotFound(err) {
			return "", domain.ErrNoData
		}
		return "", err
	}
	if payload.Chart.Error != nil {
		return "", fmt.Errorf("sources: %s: %s: %s", f.name, payload.Chart.Error.Code, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 || payload.Chart.Result[0].Meta.RegularMarketPrice == 0 {
		return "", domain.ErrNoData
	}

	return formatQuote(payload.Chart.Result[0].Meta, symbol), nil
}

func formatQuote(m chartMeta, requested string) string {
	symbol := m.Symbol
	if symbol == "" {
		symbol = requested
	}
	prev := m.PreviousClose
	if prev == 0 {
		prev = m.ChartPreviousClose
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stock quote for %s", symbol)
	if m.ExchangeName != "" {
		fmt.Fprintf(&b, " (%s)", m.ExchangeName)
	}
	fmt.Fprintf(&b, "\nPrice: %.2f %s", m.RegularMarketPrice, m.Currency)
	if prev > 0 {
		change := m.RegularMarketPrice - prev
		fmt.Fprintf(&b, "\nPrevious close: %.2f %s", prev, m.Currency)
		fmt.Fprintf(&b, "\nChange: %+.2f (%+.2f%%)", change, change/prev*100)
	}
	if m.RegularMarketTime > 0 {
		fmt.Fprintf(&b, "\nAs of: %s", time.Unix(m.RegularMarketTime, 0).UTC().Format(time.RFC3339))
	}
	return b.String()
}
