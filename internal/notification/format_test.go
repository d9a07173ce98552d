package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signal-analyzer/internal/analysis"
	"signal-analyzer/internal/forecast"
	"signal-analyzer/internal/model"
)

func TestFormatSignal(t *testing.T) {
	res := analysis.Result{
		Signal:       model.SignalBuy,
		Confidence:   82,
		Score:        0.64,
		Explanations: []string{"RSI 28.4 - oversold", "MACD above signal, bullish"},
		Volatility:   1.25,
		Price:        68400.5,
		Profile:      "balanced",
	}

	alert := FormatSignal("BTCUSDT", res, 4*time.Hour)

	if alert.Level != AlertInfo {
		t.Errorf("expected INFO level, got %s", alert.Level)
	}
	if alert.Title != "BTCUSDT signal: BUY" {
		t.Errorf("unexpected title %q", alert.Title)
	}
	for _, want := range []string{"BUY BTCUSDT @ 68400.5", "Confidence: 82%", "Evaluation in 4h", "RSI 28.4"} {
		if !strings.Contains(alert.Message, want) {
			t.Errorf("message missing %q:\n%s", want, alert.Message)
		}
	}
	if alert.Fields["symbol"] != "BTCUSDT" || alert.Fields["signal"] != "BUY" || alert.Fields["confidence"] != "82" {
		t.Errorf("structured fields mismatch: %v", alert.Fields)
	}
}

func TestFormatEvaluation(t *testing.T) {
	f := model.Forecast{
		Symbol:      "ETHUSDT",
		Signal:      model.SignalBuy,
		EntryPrice:  100,
		ExitPrice:   97,
		ReturnPct:   -3,
		Outcome:     model.OutcomeWrong,
		StopLossHit: true,
		PnL:         -15,
		Status:      model.StatusEvaluated,
	}

	alert := FormatEvaluation(f)

	if alert.Level != AlertWarning {
		t.Errorf("WRONG outcome should warn, got %s", alert.Level)
	}
	for _, want := range []string{"Entry 100 → Exit 97", "-3.00%", "stop loss hit", "P&L: -15.00"} {
		if !strings.Contains(alert.Message, want) {
			t.Errorf("message missing %q:\n%s", want, alert.Message)
		}
	}
	if alert.Fields["outcome"] != "WRONG" || alert.Fields["return_pct"] != "-3.00" {
		t.Errorf("structured fields mismatch: %v", alert.Fields)
	}
}

func TestFormatReport(t *testing.T) {
	alert := FormatReport(forecast.Stats{
		Count: 10, Correct: 6, Wrong: 3, Neutral: 1,
		HitRate: 200.0 / 3.0, AvgReturn: 0.8, TotalPnL: 42.5,
	}, 24*time.Hour)

	for _, want := range []string{"last 24h", "Evaluated: 10", "Hit rate: 66.7%", "Total P&L: +42.50"} {
		if !strings.Contains(alert.Message, want) {
			t.Errorf("report missing %q:\n%s", want, alert.Message)
		}
	}

	empty := FormatReport(forecast.Stats{}, 24*time.Hour)
	if !strings.Contains(empty.Message, "n/a") {
		t.Errorf("empty window should report n/a hit rate:\n%s", empty.Message)
	}
}

func TestFormatPrice(t *testing.T) {
	cases := map[float64]string{
		68400.5:    "68400.5",
		100:        "100",
		0.00004321: "0.00004321",
	}
	for in, want := range cases {
		if got := formatPrice(in); got != want {
			t.Errorf("formatPrice(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestMulti_SwallowsFailures(t *testing.T) {
	failing := NewTelegramNotifier("token", "chat").WithBaseURL("http://127.0.0.1:1")

	var received []Alert
	recorder := notifierFunc(func(_ context.Context, a Alert) error {
		received = append(received, a)
		return nil
	})

	m := NewMulti(failing, recorder)
	if err := m.Send(context.Background(), Alert{Level: AlertInfo, Title: "t", Message: "m"}); err != nil {
		t.Fatalf("multi must not propagate failures: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("second backend must still receive the alert")
	}
}

type notifierFunc func(context.Context, Alert) error

func (f notifierFunc) Send(ctx context.Context, a Alert) error { return f(ctx, a) }

func TestTelegramNotifier_Send(t *testing.T) {
	var gotPath string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("test-token", "42").WithBaseURL(srv.URL)
	err := n.Send(context.Background(), Alert{Level: AlertCritical, Title: "down", Message: "detail"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotBody, `"chat_id":"42"`) {
		t.Errorf("body missing chat id: %s", gotBody)
	}
	if !strings.Contains(gotBody, "🚨") {
		t.Errorf("critical alert should carry the siren emoji: %s", gotBody)
	}
}

func TestTelegramNotifier_APIRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("test-token", "42").WithBaseURL(srv.URL)
	err := n.Send(context.Background(), Alert{Level: AlertInfo, Title: "t", Message: "m"})
	if err == nil {
		t.Fatal("expected error for rejected message")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("error should carry the api description, got %v", err)
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	var gotType string
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	alert := Alert{
		Level:   AlertInfo,
		Title:   "BTCUSDT signal: BUY",
		Message: "detail",
		Fields:  map[string]string{"symbol": "BTCUSDT", "signal": "BUY", "confidence": "82"},
	}
	if err := n.Send(context.Background(), alert); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotType != "application/json" {
		t.Errorf("expected JSON content type, got %q", gotType)
	}
	if got.Level != "INFO" || got.Title != "BTCUSDT signal: BUY" {
		t.Errorf("payload mismatch: %+v", got)
	}
	if got.Fields["symbol"] != "BTCUSDT" || got.Fields["confidence"] != "82" {
		t.Errorf("payload must carry the structured fields: %v", got.Fields)
	}
	if got.SentAt.IsZero() {
		t.Error("payload missing sent_at timestamp")
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), Alert{Level: AlertInfo, Title: "t"}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
