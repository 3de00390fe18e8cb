// Package stocks renders a stock ticker widget: one row per symbol with the
// last price and the change since the previous close.
package stocks

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Config is the widget configuration, keyed like the settings file.
type Config struct {
	Size     [2]int   `yaml:"size"`
	Tickers  []string `yaml:"tickers"`
	PaddingX int      `yaml:"padding_x"`
	PaddingY int      `yaml:"padding_y"`
	FontSize int      `yaml:"fontsize"`
	Language string   `yaml:"language"`
}

// Widget draws quotes from a Provider.
type Widget struct {
	cfg      Config
	provider Provider
	log      *slog.Logger
	face     font.Face
	printer  *message.Printer
}

// Option configures a Widget.
type Option func(*Widget)

// WithLogger sets the logger; by default messages are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) {
		if l != nil {
			w.log = l
		}
	}
}

var regular *truetype.Font

func init() {
	var err error
	if regular, err = truetype.Parse(goregular.TTF); err != nil {
		panic(err)
	}
}

// New returns a widget drawing cfg.Size pixels.
func New(cfg Config, p Provider, opts ...Option) (*Widget, error) {
	if cfg.Size[0] <= 0 || cfg.Size[1] <= 0 {
		return nil, fmt.Errorf("stocks: invalid size %dx%d", cfg.Size[0], cfg.Size[1])
	}
	if p == nil {
		return nil, errors.New("stocks: nil provider")
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = 12
	}
	if cfg.PaddingX < 0 || cfg.PaddingY < 0 {
		return nil, fmt.Errorf("stocks: negative padding %dx%d", cfg.PaddingX, cfg.PaddingY)
	}

	w := &Widget{
		cfg:      cfg,
		provider: p,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		face:     truetype.NewFace(regular, &truetype.Options{Size: float64(cfg.FontSize), DPI: 72}),
	}
	for _, opt := range opts {
		opt(w)
	}

	tag := language.English
	if cfg.Language != "" {
		t, err := language.Parse(cfg.Language)
		if err != nil {
			w.log.Warn("unknown language, using English", "language", cfg.Language, "err", err)
		} else {
			tag = t
		}
	}
	w.printer = message.NewPrinter(tag)
	return w, nil
}

// GenerateImage draws the widget. black holds everything drawn in black,
// colour the falling tickers; both are white where nothing is drawn.
//
// A ticker that cannot be fetched is shown as unavailable; only a cancelled
// ctx makes GenerateImage fail.
func (w *Widget) GenerateImage(ctx context.Context) (black, colour image.Image, err error) {
	width, height := w.cfg.Size[0], w.cfg.Size[1]
	bc := newCanvas(width, height, w.face)
	cc := newCanvas(width, height, w.face)

	left := float64(w.cfg.PaddingX)
	right := float64(width - w.cfg.PaddingX)
	top := float64(w.cfg.PaddingY)
	innerH := float64(height - 2*w.cfg.PaddingY)

	line := math.Ceil(bc.FontHeight() * 1.5)
	rows := 0
	if innerH > 0 {
		rows = int(innerH / line)
	}
	tickers := w.cfg.Tickers
	if len(tickers) > rows {
		w.log.Warn("not enough space for all tickers", "tickers", len(tickers), "rows", rows)
		tickers = tickers[:rows]
	}
	if len(tickers) == 0 {
		return bc.Image(), cc.Image(), nil
	}

	rowH := math.Min(innerH/float64(len(tickers)), 3*line)
	for i, symbol := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		y := top + float64(i)*rowH

		q, err := w.provider.Quote(ctx, symbol)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			w.log.Warn("could not fetch quote", "symbol", symbol, "err", err)
			bc.DrawStringAnchored(symbol, left, y+line/2, 0, 0.5)
			bc.DrawStringAnchored("unavailable", right, y+line/2, 1, 0.5)
			continue
		}
		w.log.Debug("quote", "symbol", q.Symbol, "price", q.Price, "change", q.Change())

		dc := bc
		if q.Change() < 0 {
			dc = cc
		}
		name := q.Symbol
		if q.Name != "" && rowH >= 2*line {
			name = q.Symbol + " " + q.Name
		}
		bc.DrawStringAnchored(name, left, y+line/2, 0, 0.5)
		dc.DrawStringAnchored(w.printer.Sprintf("%.2f %s  %+.2f (%+.2f%%)", q.Price, q.Currency, q.Change(), q.ChangePercent()),
			right, y+line/2, 1, 0.5)

		if rowH >= 2*line && len(q.History) >= 2 {
			drawSparkline(dc, q.History, left, y+line, right-left, rowH-line-2)
		}
	}
	return bc.Image(), cc.Image(), nil
}

func newCanvas(width, height int, face font.Face) *gg.Context {
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)
	dc.SetFontFace(face)
	dc.SetLineWidth(1)
	return dc
}

// drawSparkline draws values scaled to the box at x, y of size w x h.
func drawSparkline(dc *gg.Context, values []float64, x, y, w, h float64) {
	if h < 2 {
		return
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	step := w / float64(len(values)-1)
	for i, v := range values {
		py := y + h/2
		if span > 0 {
			py = y + h - (v-lo)/span*h
		}
		px := x + float64(i)*step
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
	dc.Stroke()
}
