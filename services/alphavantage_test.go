package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockfolio/models"

	"github.com/shopspring/decimal"
)

func TestNewAlphaVantageService(t *testing.T) {
	service := NewAlphaVantageService("test-api-key", ProviderOptions{})
	if service.apiKey != "test-api-key" {
		t.Errorf("apiKey = %v, want 'test-api-key'", service.apiKey)
	}
	if service.httpClient == nil {
		t.Error("httpClient should not be nil")
	}
	if service.baseURL != "https://www.alphavantage.co/query" {
		t.Errorf("baseURL = %v, want 'https://www.alphavantage.co/query'", service.baseURL)
	}
	if NewAlphaVantageService("demo", ProviderOptions{}).Configured() {
		t.Error("demo key should be treated as unconfigured")
	}
}

func alphaVantageServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "key" {
			t.Errorf("missing apikey")
		}
		w.Write([]byte(body))
	}))
}

func TestAlphaVantageService_Quote(t *testing.T) {
	server := alphaVantageServer(t, `{"Global Quote": {
		"01. symbol": "IBM",
		"02. open": "",
		"03. high": "172.50",
		"04. low": "169.80",
		"05. price": "171.25",
		"06. volume": "3456789",
		"07. latest trading day": "2024-03-15",
		"08. previous close": "",
		"09. change": "1.25",
		"10. change percent": "0.7353%"
	}}`)
	defer server.Close()

	svc := NewAlphaVantageService("key", testProviderOptions(server.URL))
	q, err := svc.Quote(context.Background(), "IBM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !q.Price.Equal(decimal.RequireFromString("171.25")) {
		t.Errorf("Price = %s", q.Price)
	}
	if q.ChangePercent != 0.7353 {
		t.Errorf("ChangePercent = %v, want 0.7353", q.ChangePercent)
	}
	if !q.Open.Equal(q.Price) {
		t.Errorf("missing open should default to price, got %s", q.Open)
	}
	if !q.PreviousClose.Equal(decimal.RequireFromString("170")) {
		t.Errorf("missing previous close should be price-change, got %s", q.PreviousClose)
	}
	if q.Volume != 3456789 {
		t.Errorf("Volume = %d", q.Volume)
	}
	if q.SourceProvider != models.ProviderAlphaVantage {
		t.Errorf("SourceProvider = %s", q.SourceProvider)
	}
	if q.Timestamp.Format("2006-01-02") != "2024-03-15" {
		t.Errorf("Timestamp = %v", q.Timestamp)
	}
}

func TestAlphaVantageService_Quote_Signals(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"error message is not found", `{"Error Message": "Invalid API call."}`, ErrSymbolNotFound},
		{"empty global quote is not found", `{"Global Quote": {}}`, ErrSymbolNotFound},
		{"note is throttling", `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 25 requests per day."}`, ErrProviderUnavailable},
		{"information is throttling", `{"Information": "rate limit"}`, ErrProviderUnavailable},
		{"placeholder price is not found", `{"Global Quote": {"01. symbol": "XYZ", "05. price": "None"}}`, ErrSymbolNotFound},
		{"zero price is not found", `{"Global Quote": {"01. symbol": "XYZ", "05. price": "0.0000"}}`, ErrSymbolNotFound},
		{"garbled price is unavailable", `{"Global Quote": {"01. symbol": "XYZ", "05. price": "N/A!"}}`, ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := alphaVantageServer(t, tt.body)
			defer server.Close()

			svc := NewAlphaVantageService("key", testProviderOptions(server.URL))
			_, err := svc.Quote(context.Background(), "XYZ")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == ErrProviderUnavailable && errors.Is(err, ErrSymbolNotFound) {
				t.Errorf("unavailable answer must not read as not found: %v", err)
			}
		})
	}
}

func TestAlphaVantageService_Search(t *testing.T) {
	server := alphaVantageServer(t, `{"bestMatches": [
		{"1. symbol": "TSCO.LON", "2. name": "Tesco PLC", "3. type": "Equity", "4. region": "United Kingdom", "8. currency": "GBX"},
		{"1. symbol": "TSCDF", "2. name": "Tesco plc", "3. type": "Equity", "4. region": "United States", "8. currency": ""}
	]}`)
	defer server.Close()

	svc := NewAlphaVantageService("key", testProviderOptions(server.URL))
	results, err := svc.Search(context.Background(), "tesco")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Symbol != "TSCO.LON" || results[0].Region != "United Kingdom" || results[0].Currency != "GBX" {
		t.Errorf("unexpected first result %+v", results[0])
	}
	if results[1].Currency != "USD" {
		t.Errorf("missing currency should default to USD, got %s", results[1].Currency)
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want string
	}{
		{"12.50", true, "12.5"},
		{" 3 ", true, "3"},
		{"", false, "0"},
		{"None", false, "0"},
		{"abc", false, "0"},
	}
	for _, tt := range tests {
		got, ok := parseDecimal(tt.in)
		if ok != tt.ok || !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("parseDecimal(%q) = %s,%v want %s,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
