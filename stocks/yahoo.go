package stocks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultYahooURL is the chart API YahooProvider queries.
const DefaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooProvider fetches a month of daily closes from the Yahoo Finance chart
// API.
type YahooProvider struct {
	// BaseURL defaults to DefaultYahooURL.
	BaseURL string
	// Client defaults to a client with a 10s timeout.
	Client *http.Client
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				ShortName          string  `json:"shortName"`
				LongName           string  `json:"longName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				PreviousClose      float64 `json:"previousClose"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

var defaultClient = &http.Client{Timeout: 10 * time.Second}

// Quote implements Provider.
func (y *YahooProvider) Quote(ctx context.Context, symbol string) (Quote, error) {
	base := y.BaseURL
	if base == "" {
		base = DefaultYahooURL
	}
	client := y.Client
	if client == nil {
		client = defaultClient
	}

	u := base + url.PathEscape(symbol) + "?" + url.Values{"range": {"1mo"}, "interval": {"1d"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("User-Agent", "inkdisplay")
	resp, err := client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("stocks: %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	var cr chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Quote{}, fmt.Errorf("stocks: %s: %s: %w", symbol, resp.Status, err)
	}
	if e := cr.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return Quote{}, fmt.Errorf("%w %q: %s", ErrUnknownSymbol, symbol, e.Description)
		}
		return Quote{}, fmt.Errorf("stocks: %s: %s: %s", symbol, e.Code, e.Description)
	}
	if resp.StatusCode != http.StatusOK || len(cr.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("stocks: %s: no data (%s)", symbol, resp.Status)
	}

	r := cr.Chart.Result[0]
	q := Quote{
		Symbol:        r.Meta.Symbol,
		Name:          r.Meta.ShortName,
		Currency:      r.Meta.Currency,
		Price:         r.Meta.RegularMarketPrice,
		PreviousClose: r.Meta.PreviousClose,
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	if q.Name == "" {
		q.Name = r.Meta.LongName
	}
	if len(r.Indicators.Quote) > 0 {
		for _, c := range r.Indicators.Quote[0].Close {
			if c != nil {
				q.History = append(q.History, *c)
			}
		}
	}
	// Daily charts only carry the close before the range.
	if q.PreviousClose == 0 {
		if n := len(q.History); n >= 2 {
			q.PreviousClose = q.History[n-2]
		} else {
			q.PreviousClose = r.Meta.ChartPreviousClose
		}
	}
	return q, nil
}
