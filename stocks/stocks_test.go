package stocks

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var testQuotes = StaticProvider{
	"TSLA": {Name: "Tesla, Inc.", Currency: "USD", Price: 251.12, PreviousClose: 240.50, History: []float64{230, 235, 240.5, 251.12}},
	"AMD":  {Name: "Advanced Micro Devices", Currency: "USD", Price: 101.3, PreviousClose: 104.9, History: []float64{110, 108, 104.9, 101.3}},
	"NVDA": {Name: "NVIDIA Corporation", Currency: "USD", Price: 450.05, PreviousClose: 450.05},
	"^DJI": {Name: "Dow Jones Industrial Average", Currency: "USD", Price: 33984.54, PreviousClose: 34100.20},
	// BTC-USD and EURUSD=X are missing on purpose.
}

var sixTickers = []string{"TSLA", "AMD", "NVDA", "^DJI", "BTC-USD", "EURUSD=X"}

func TestGenerateImage(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  Config
	}{
		{
			name: "400x100",
			cfg:  Config{Size: [2]int{400, 100}, Tickers: sixTickers, PaddingX: 10, PaddingY: 10, FontSize: 12, Language: "en"},
		},
		{
			name: "400x200 no tickers",
			cfg:  Config{Size: [2]int{400, 200}, Tickers: []string{}, PaddingX: 10, PaddingY: 10, FontSize: 12, Language: "en"},
		},
		{
			name: "400x300",
			cfg:  Config{Size: [2]int{400, 300}, Tickers: sixTickers, PaddingX: 10, PaddingY: 10, FontSize: 12, Language: "en"},
		},
		{
			name: "400x400",
			cfg:  Config{Size: [2]int{400, 400}, Tickers: sixTickers, PaddingX: 10, PaddingY: 10, FontSize: 12, Language: "en"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w, err := New(tc.cfg, testQuotes)
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			black, colour, err := w.GenerateImage(context.Background())
			if err != nil {
				t.Fatalf("GenerateImage() failed: %v", err)
			}
			want := image.Rect(0, 0, tc.cfg.Size[0], tc.cfg.Size[1])
			if diff := cmp.Diff(black.Bounds(), want); diff != "" {
				t.Errorf("black.Bounds() difference (-got +want):\n%s", diff)
			}
			if diff := cmp.Diff(colour.Bounds(), want); diff != "" {
				t.Errorf("colour.Bounds() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func inked(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y < 0x80 {
				n++
			}
		}
	}
	return n
}

func TestFallingTickersUseColourPlane(t *testing.T) {
	for _, tc := range []struct {
		ticker     string
		wantColour bool
	}{
		{"TSLA", false},
		{"AMD", true},
	} {
		t.Run(tc.ticker, func(t *testing.T) {
			w, err := New(Config{Size: [2]int{300, 60}, Tickers: []string{tc.ticker}, FontSize: 12}, testQuotes)
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			black, colour, err := w.GenerateImage(context.Background())
			if err != nil {
				t.Fatalf("GenerateImage() failed: %v", err)
			}
			if inked(black) == 0 {
				t.Error("nothing drawn on the black plane")
			}
			if got := inked(colour) > 0; got != tc.wantColour {
				t.Errorf("colour plane drawn = %v, want %v", got, tc.wantColour)
			}
		})
	}
}

func TestEmptyTickersIsBlank(t *testing.T) {
	w, err := New(Config{Size: [2]int{100, 50}}, testQuotes)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	black, colour, err := w.GenerateImage(context.Background())
	if err != nil {
		t.Fatalf("GenerateImage() failed: %v", err)
	}
	if n := inked(black) + inked(colour); n != 0 {
		t.Errorf("blank widget has %d inked pixels", n)
	}
}

func TestUnavailableTickerIsDrawn(t *testing.T) {
	w, err := New(Config{Size: [2]int{200, 40}, Tickers: []string{"BTC-USD"}}, testQuotes)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	black, _, err := w.GenerateImage(context.Background())
	if err != nil {
		t.Fatalf("GenerateImage() failed: %v", err)
	}
	if inked(black) == 0 {
		t.Error("unavailable ticker was not drawn")
	}
}

func TestGenerateImageCancelled(t *testing.T) {
	w, err := New(Config{Size: [2]int{200, 100}, Tickers: []string{"TSLA"}}, testQuotes)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := w.GenerateImage(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("GenerateImage() = %v, want %v", err, context.Canceled)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  Config
		p    Provider
	}{
		{"no size", Config{}, testQuotes},
		{"negative padding", Config{Size: [2]int{10, 10}, PaddingX: -1}, testQuotes},
		{"no provider", Config{Size: [2]int{10, 10}}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg, tc.p); err == nil {
				t.Error("New() succeeded")
			}
		})
	}
}

func TestQuoteChange(t *testing.T) {
	q := Quote{Price: 110, PreviousClose: 100}
	if got := q.Change(); got != 10 {
		t.Errorf("Change() = %v, want 10", got)
	}
	if got := q.ChangePercent(); got != 10 {
		t.Errorf("ChangePercent() = %v, want 10", got)
	}
	if got := (Quote{Price: 1}).ChangePercent(); got != 0 {
		t.Errorf("ChangePercent() without previous close = %v, want 0", got)
	}
}

func TestStaticProvider(t *testing.T) {
	q, err := testQuotes.Quote(context.Background(), "TSLA")
	if err != nil {
		t.Fatalf("Quote() failed: %v", err)
	}
	if q.Symbol != "TSLA" {
		t.Errorf("Symbol = %q, want TSLA", q.Symbol)
	}
	if _, err := testQuotes.Quote(context.Background(), "XXX"); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("Quote(XXX) = %v, want %v", err, ErrUnknownSymbol)
	}
}
