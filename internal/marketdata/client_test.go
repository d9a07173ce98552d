package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Candles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1h" || q.Get("limit") != "2" {
			t.Errorf("unexpected query: %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			[1717200000000, "68000.1", "68500.0", "67900.5", "68400.0", "1234.5", 1717203599999, "0", 0, "0", "0", "0"],
			[1717203600000, "68400.0", "68700.0", "68300.0", "68650.2", "987.6", 1717207199999, "0", 0, "0", "0", "0"]
		]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	candles, err := c.Candles(context.Background(), "BTCUSDT", "1h", 2)
	if err != nil {
		t.Fatalf("candles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}

	first := candles[0]
	if first.Time != 1717200000000 {
		t.Errorf("open time: got %d", first.Time)
	}
	if first.Open != 68000.1 || first.High != 68500.0 || first.Low != 67900.5 ||
		first.Close != 68400.0 || first.Volume != 1234.5 {
		t.Errorf("OHLCV mismatch: %+v", first)
	}
	if candles[1].Time <= candles[0].Time {
		t.Error("candles must stay oldest to newest")
	}
}

func TestClient_CandlesMalformedRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1717200000000, "68000.1", "not-a-number", "1", "2", "3"]]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.Candles(context.Background(), "BTCUSDT", "1h", 1); err == nil {
		t.Fatal("expected parse error for malformed kline")
	}
}

func TestClient_CandlesShortRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1717200000000, "1", "2"]]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.Candles(context.Background(), "BTCUSDT", "1h", 1); err == nil {
		t.Fatal("expected error for truncated kline row")
	}
}

func TestClient_Price(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"3456.78"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	price, err := c.Price(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price != 3456.78 {
		t.Errorf("expected 3456.78, got %v", price)
	}
}

func TestClient_HTTPErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.Price(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected error for HTTP 400")
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Price(ctx, "BTCUSDT"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
