package stocks

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownSymbol is returned by a Provider that has no data for a symbol.
var ErrUnknownSymbol = errors.New("stocks: unknown symbol")

// Quote is the market data shown for one ticker.
type Quote struct {
	Symbol        string
	Name          string
	Currency      string
	Price         float64
	PreviousClose float64
	History       []float64 // recent closing prices, oldest first
}

// Change is the difference to the previous close.
func (q Quote) Change() float64 {
	return q.Price - q.PreviousClose
}

// ChangePercent is Change relative to the previous close, in percent.
func (q Quote) ChangePercent() float64 {
	if q.PreviousClose == 0 {
		return 0
	}
	return q.Change() / q.PreviousClose * 100
}

// Provider fetches quotes.
type Provider interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// StaticProvider serves quotes from a fixed map.
type StaticProvider map[string]Quote

// Quote implements Provider.
func (s StaticProvider) Quote(ctx context.Context, symbol string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	q, ok := s[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("%w %q", ErrUnknownSymbol, symbol)
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	return q, nil
}
