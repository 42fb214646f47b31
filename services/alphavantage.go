package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockfolio/models"

	"github.com/shopspring/decimal"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageService is the secondary market data provider.
type AlphaVantageService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	breakers   *CircuitBreakerRegistry
}

// NewAlphaVantageService creates a new AlphaVantageService instance
func NewAlphaVantageService(apiKey string, opts ProviderOptions) *AlphaVantageService {
	opts = opts.withDefaults(alphaVantageBaseURL)
	return &AlphaVantageService{
		apiKey:     apiKey,
		httpClient: newHTTPClient(opts.Timeout),
		baseURL:    opts.BaseURL,
		breakers:   opts.Breakers,
	}
}

func (s *AlphaVantageService) Name() string { return models.ProviderAlphaVantage }

// Configured reports whether a real API key is set; the public "demo" key does not count.
func (s *AlphaVantageService) Configured() bool {
	return s.apiKey != "" && s.apiKey != "demo"
}

// avStatus carries the in-band error signals Alpha Vantage returns with HTTP 200.
type avStatus struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

// QuoteResponse represents the GLOBAL_QUOTE response from Alpha Vantage
type QuoteResponse struct {
	avStatus
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Open          string `json:"02. open"`
		High          string `json:"03. high"`
		Low           string `json:"04. low"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		LatestDay     string `json:"07. latest trading day"`
		PrevClose     string `json:"08. previous close"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
}

// SymbolSearchResponse represents the SYMBOL_SEARCH response
type SymbolSearchResponse struct {
	avStatus
	BestMatches []struct {
		Symbol   string `json:"1. symbol"`
		Name     string `json:"2. name"`
		Type     string `json:"3. type"`
		Region   string `json:"4. region"`
		Currency string `json:"8. currency"`
	} `json:"bestMatches"`
}

func (s *AlphaVantageService) query(ctx context.Context, params url.Values, out any) error {
	params.Set("apikey", s.apiKey)
	return getJSON(ctx, s.httpClient, s.Name(), s.baseURL+"?"+params.Encode(), out)
}

// throttled reports the "Note"/"Information" rate-limit messages.
func (st avStatus) throttled() bool {
	return st.Note != "" || st.Information != ""
}

// Quote returns the latest quote for symbol
func (s *AlphaVantageService) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if !s.Configured() {
		return nil, ErrProviderNotConfigured
	}

	return withBreaker(ctx, s.breakers, s.Name(), func() (*models.Quote, error) {
		params := url.Values{}
		params.Set("function", "GLOBAL_QUOTE")
		params.Set("symbol", symbol)

		var resp QuoteResponse
		if err := s.query(ctx, params, &resp); err != nil {
			return nil, err
		}

		if resp.throttled() {
			return nil, unavailablef(s.Name(), "rate limited: %s", resp.Note+resp.Information)
		}
		if resp.ErrorMessage != "" {
			return nil, notFound(s.Name(), symbol)
		}

		return resp.toQuote(symbol)
	})
}

func (r *QuoteResponse) toQuote(symbol string) (*models.Quote, error) {
	gq := r.GlobalQuote
	if isBlank(gq.Price) {
		return nil, notFound(models.ProviderAlphaVantage, symbol)
	}
	price, ok := parseDecimal(gq.Price)
	if !ok {
		return nil, unavailablef(models.ProviderAlphaVantage, "malformed price %q", gq.Price)
	}
	if price.IsZero() {
		return nil, notFound(models.ProviderAlphaVantage, symbol)
	}

	change, _ := parseDecimal(gq.Change)
	prevClose, ok := parseDecimal(gq.PrevClose)
	if !ok {
		prevClose = price.Sub(change)
	}

	var changePercent float64
	if pct := strings.TrimSuffix(strings.TrimSpace(gq.ChangePercent), "%"); pct != "" {
		if v, err := strconv.ParseFloat(pct, 64); err == nil {
			changePercent = v
		}
	} else {
		changePercent = percentOf(change, prevClose)
	}

	volume, _ := strconv.ParseInt(gq.Volume, 10, 64)
	if volume < 0 {
		volume = 0
	}

	ts := time.Now().UTC()
	if day, err := time.Parse("2006-01-02", gq.LatestDay); err == nil {
		ts = day
	}

	if gq.Symbol != "" {
		symbol = strings.ToUpper(gq.Symbol)
	}

	return &models.Quote{
		Symbol:         symbol,
		Price:          price,
		Change:         change,
		ChangePercent:  changePercent,
		High:           decimalOr(gq.High, price),
		Low:            decimalOr(gq.Low, price),
		Open:           decimalOr(gq.Open, price),
		PreviousClose:  prevClose,
		Volume:         volume,
		Currency:       models.DefaultCurrency,
		Timestamp:      ts,
		SourceProvider: models.ProviderAlphaVantage,
	}, nil
}

// Search finds symbols matching keywords
func (s *AlphaVantageService) Search(ctx context.Context, keywords string) ([]models.SearchResult, error) {
	if !s.Configured() {
		return nil, ErrProviderNotConfigured
	}

	return withBreaker(ctx, s.breakers, s.Name(), func() ([]models.SearchResult, error) {
		params := url.Values{}
		params.Set("function", "SYMBOL_SEARCH")
		params.Set("keywords", keywords)

		var resp SymbolSearchResponse
		if err := s.query(ctx, params, &resp); err != nil {
			return nil, err
		}
		if resp.throttled() {
			return nil, unavailablef(s.Name(), "rate limited: %s", resp.Note+resp.Information)
		}
		if resp.ErrorMessage != "" {
			return nil, unavailablef(s.Name(), "%s", resp.ErrorMessage)
		}

		results := make([]models.SearchResult, 0, len(resp.BestMatches))
		for _, m := range resp.BestMatches {
			currency := m.Currency
			if currency == "" {
				currency = models.DefaultCurrency
			}
			results = append(results, models.SearchResult{
				Symbol:   m.Symbol,
				Name:     m.Name,
				Type:     m.Type,
				Region:   m.Region,
				Currency: currency,
			})
		}
		return models.TruncateSearchResults(results), nil
	})
}

// isBlank reports the placeholders the vendor uses for a missing value.
func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "None" || s == "-"
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	if isBlank(s) {
		return decimal.Zero, false
	}
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func decimalOr(s string, fallback decimal.Decimal) decimal.Decimal {
	if d, ok := parseDecimal(s); ok {
		return d
	}
	return fallback
}
