// Package mocks provides HTTP mock servers for the market data vendors used in E2E tests.
package mocks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Path prefixes under which each vendor is served.
const (
	FinnhubPrefix      = "/finnhub"
	AlphaVantagePrefix = "/alphavantage/query"
	BrandfetchPrefix   = "/brandfetch"
)

// MockServer provides configurable mock responses for all external APIs.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	// Response configurations
	finnhubQuotes map[string]FinnhubQuote
	finnhubSearch []FinnhubSearchItem
	avQuotes      map[string]AlphaVantageQuote
	avSearch      []AlphaVantageMatch
	logos         map[string]bool
	logoDelay     time.Duration

	// Error injection: a non-zero status is returned for every request
	finnhubStatus    int
	avStatus         int
	avThrottled      bool
	brandfetchStatus int

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Method string
	Path   string
	Query  string
}

// NewMockServer creates a new mock server with default responses.
func NewMockServer() *MockServer {
	m := &MockServer{
		finnhubQuotes: make(map[string]FinnhubQuote),
		avQuotes:      make(map[string]AlphaVantageQuote),
		logos:         make(map[string]bool),
		requestLog:    make([]RequestLog, 0),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP implements http.Handler to route requests to appropriate mock handlers.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
	})
	m.mu.Unlock()

	path := r.URL.Path

	// Route to appropriate handler based on path
	switch {
	case path == FinnhubPrefix+"/quote":
		m.handleFinnhubQuote(w, r)
	case path == FinnhubPrefix+"/search":
		m.handleFinnhubSearch(w, r)
	case path == AlphaVantagePrefix:
		m.handleAlphaVantage(w, r)
	case strings.HasPrefix(path, BrandfetchPrefix+"/"):
		m.handleBrandfetch(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// RequestCount returns how many logged requests had a path starting with prefix.
func (m *MockServer) RequestCount(prefix string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, req := range m.requestLog {
		if strings.HasPrefix(req.Path, prefix) {
			n++
		}
	}
	return n
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = make([]RequestLog, 0)
}

// SetFinnhubQuote configures the Finnhub quote for symbol.
func (m *MockServer) SetFinnhubQuote(symbol string, q FinnhubQuote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finnhubQuotes[symbol] = q
}

// SetFinnhubSearch configures the Finnhub search universe.
func (m *MockServer) SetFinnhubSearch(items []FinnhubSearchItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finnhubSearch = items
}

// SetAlphaVantageQuote configures the Alpha Vantage quote for symbol.
func (m *MockServer) SetAlphaVantageQuote(symbol string, q AlphaVantageQuote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avQuotes[symbol] = q
}

// SetAlphaVantageSearch configures the Alpha Vantage search universe.
func (m *MockServer) SetAlphaVantageSearch(matches []AlphaVantageMatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avSearch = matches
}

// SetLogo marks a logo as present or absent for ticker.
func (m *MockServer) SetLogo(ticker string, present bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logos[ticker] = present
}

// SetLogoDelay delays every logo response.
func (m *MockServer) SetLogoDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoDelay = d
}

// SetFinnhubStatus makes Finnhub answer every request with status. Zero restores normal behavior.
func (m *MockServer) SetFinnhubStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finnhubStatus = status
}

// SetAlphaVantageStatus makes Alpha Vantage answer every request with status.
func (m *MockServer) SetAlphaVantageStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avStatus = status
}

// SetAlphaVantageThrottled makes Alpha Vantage answer with its in-band rate limit note.
func (m *MockServer) SetAlphaVantageThrottled(throttled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avThrottled = throttled
}

// SetBrandfetchStatus makes Brandfetch answer every request with status.
func (m *MockServer) SetBrandfetchStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brandfetchStatus = status
}

// Reset restores default responses and clears injected errors.
func (m *MockServer) Reset() {
	m.mu.Lock()
	m.finnhubQuotes = make(map[string]FinnhubQuote)
	m.avQuotes = make(map[string]AlphaVantageQuote)
	m.logos = make(map[string]bool)
	m.finnhubSearch = nil
	m.avSearch = nil
	m.logoDelay = 0
	m.finnhubStatus = 0
	m.avStatus = 0
	m.avThrottled = false
	m.brandfetchStatus = 0
	m.requestLog = make([]RequestLog, 0)
	m.mu.Unlock()
	m.setDefaults()
}

func (m *MockServer) setDefaults() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().Unix()
	m.finnhubQuotes["AMZN"] = FinnhubQuote{Current: 178.20, Change: 0.90, ChangePercent: 0.51, High: 179.5, Low: 176.1, Open: 177.0, PreviousClose: 177.30, Timestamp: now}
	m.finnhubQuotes["AAPL"] = FinnhubQuote{Current: 230.50, Change: 3.25, ChangePercent: 1.43, High: 231.0, Low: 226.4, Open: 227.0, PreviousClose: 227.25, Timestamp: now}
	m.finnhubQuotes["CMG"] = FinnhubQuote{Current: 62.80, Change: 1.15, ChangePercent: 1.87, High: 63.1, Low: 61.2, Open: 61.5, PreviousClose: 61.65, Timestamp: now}

	m.finnhubSearch = []FinnhubSearchItem{
		{Description: "APPLE INC", DisplaySymbol: "AAPL", Symbol: "AAPL", Type: "Common Stock"},
		{Description: "AMAZON.COM INC", DisplaySymbol: "AMZN", Symbol: "AMZN", Type: "Common Stock"},
		{Description: "CHIPOTLE MEXICAN GRILL INC", DisplaySymbol: "CMG", Symbol: "CMG", Type: "Common Stock"},
		{Description: "APPLE INC", DisplaySymbol: "APC.DE", Symbol: "APC.DE", Type: "Common Stock"},
	}

	m.avQuotes["AMZN"] = AlphaVantageQuote{Symbol: "AMZN", Open: "177.0000", High: "179.5000", Low: "176.1000", Price: "178.2000", Volume: "41000000", LatestDay: time.Now().Format("2006-01-02"), PrevClose: "177.3000", Change: "0.9000", ChangePercent: "0.5076%"}
	m.avQuotes["AAPL"] = AlphaVantageQuote{Symbol: "AAPL", Open: "227.0000", High: "231.0000", Low: "226.4000", Price: "230.5000", Volume: "52000000", LatestDay: time.Now().Format("2006-01-02"), PrevClose: "227.2500", Change: "3.2500", ChangePercent: "1.4301%"}

	m.avSearch = []AlphaVantageMatch{
		{Symbol: "AAPL", Name: "Apple Inc", Type: "Equity", Region: "United States", Currency: "USD"},
	}

	m.logos["AAPL"] = true
	m.logos["AMZN"] = true
}

func (m *MockServer) handleFinnhubQuote(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	status := m.finnhubStatus
	q, ok := m.finnhubQuotes[r.URL.Query().Get("symbol")]
	m.mu.RUnlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if !ok {
		// Finnhub answers unknown symbols with a zeroed payload
		q = FinnhubQuote{}
	}
	writeJSON(w, q)
}

func (m *MockServer) handleFinnhubSearch(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	status := m.finnhubStatus
	items := m.finnhubSearch
	m.mu.RUnlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	q := strings.ToUpper(r.URL.Query().Get("q"))
	result := []FinnhubSearchItem{}
	for _, it := range items {
		if strings.Contains(it.Symbol, q) || strings.Contains(it.Description, q) {
			result = append(result, it)
		}
	}
	writeJSON(w, map[string]any{"count": len(result), "result": result})
}

func (m *MockServer) handleAlphaVantage(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	status := m.avStatus
	throttled := m.avThrottled
	quotes := m.avQuotes
	matches := m.avSearch
	m.mu.RUnlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if throttled {
		writeJSON(w, map[string]string{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 25 requests per day."})
		return
	}

	params := r.URL.Query()
	switch params.Get("function") {
	case "GLOBAL_QUOTE":
		q, ok := quotes[params.Get("symbol")]
		if !ok {
			writeJSON(w, map[string]any{"Global Quote": map[string]string{}})
			return
		}
		writeJSON(w, map[string]any{"Global Quote": q})
	case "SYMBOL_SEARCH":
		kw := strings.ToUpper(params.Get("keywords"))
		result := []AlphaVantageMatch{}
		for _, mt := range matches {
			if strings.Contains(strings.ToUpper(mt.Symbol), kw) || strings.Contains(strings.ToUpper(mt.Name), kw) {
				result = append(result, mt)
			}
		}
		writeJSON(w, map[string]any{"bestMatches": result})
	default:
		writeJSON(w, map[string]string{"Error Message": "Invalid API call."})
	}
}

func (m *MockServer) handleBrandfetch(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	status := m.brandfetchStatus
	delay := m.logoDelay
	ticker := strings.TrimPrefix(r.URL.Path, BrandfetchPrefix+"/")
	present := m.logos[ticker]
	m.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if r.URL.Query().Get("c") == "" {
		http.Error(w, "missing client id", http.StatusUnauthorized)
		return
	}
	if !present {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write([]byte{0x89, 'P', 'N', 'G'})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
