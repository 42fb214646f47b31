package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockfolio/models"

	"github.com/shopspring/decimal"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubService is the primary market data provider.
type FinnhubService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	breakers   *CircuitBreakerRegistry
}

// NewFinnhubService creates a new FinnhubService instance
func NewFinnhubService(apiKey string, opts ProviderOptions) *FinnhubService {
	opts = opts.withDefaults(finnhubBaseURL)
	return &FinnhubService{
		apiKey:     apiKey,
		httpClient: newHTTPClient(opts.Timeout),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		breakers:   opts.Breakers,
	}
}

func (s *FinnhubService) Name() string { return models.ProviderFinnhub }

// Configured reports whether a real API key is set.
func (s *FinnhubService) Configured() bool {
	return s.apiKey != "" && s.apiKey != "your_finnhub_api_key_here"
}

// FinnhubQuoteResponse is the /quote payload. Unknown symbols come back
// with every field zeroed.
type FinnhubQuoteResponse struct {
	Current       decimal.Decimal `json:"c"`
	High          decimal.Decimal `json:"h"`
	Low           decimal.Decimal `json:"l"`
	Open          decimal.Decimal `json:"o"`
	PreviousClose decimal.Decimal `json:"pc"`
	Timestamp     int64           `json:"t"`
	Volume        int64           `json:"v"`
}

// FinnhubSearchResponse is the /search payload.
type FinnhubSearchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
}

// Quote returns the latest quote for symbol
func (s *FinnhubService) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if !s.Configured() {
		return nil, ErrProviderNotConfigured
	}

	return withBreaker(ctx, s.breakers, s.Name(), func() (*models.Quote, error) {
		params := url.Values{}
		params.Set("symbol", symbol)
		params.Set("token", s.apiKey)

		var resp FinnhubQuoteResponse
		if err := getJSON(ctx, s.httpClient, s.Name(), s.baseURL+"/quote?"+params.Encode(), &resp); err != nil {
			return nil, err
		}

		if resp.Current.IsZero() && resp.Timestamp == 0 {
			return nil, notFound(s.Name(), symbol)
		}

		return resp.toQuote(symbol), nil
	})
}

func (r FinnhubQuoteResponse) toQuote(symbol string) *models.Quote {
	price := r.Current
	change := decimal.Zero
	if !r.PreviousClose.IsZero() {
		change = price.Sub(r.PreviousClose)
	}

	ts := time.Now().UTC()
	if r.Timestamp > 0 {
		ts = time.Unix(r.Timestamp, 0).UTC()
	}

	prevClose := r.PreviousClose
	if prevClose.IsZero() {
		prevClose = price
	}

	return &models.Quote{
		Symbol:         symbol,
		Price:          price,
		Change:         change,
		ChangePercent:  percentOf(change, r.PreviousClose),
		High:           orPrice(r.High, price),
		Low:            orPrice(r.Low, price),
		Open:           orPrice(r.Open, price),
		PreviousClose:  prevClose,
		Volume:         r.Volume,
		Currency:       models.DefaultCurrency,
		Timestamp:      ts,
		SourceProvider: models.ProviderFinnhub,
	}
}

// Search finds symbols matching keywords
func (s *FinnhubService) Search(ctx context.Context, keywords string) ([]models.SearchResult, error) {
	if !s.Configured() {
		return nil, ErrProviderNotConfigured
	}

	return withBreaker(ctx, s.breakers, s.Name(), func() ([]models.SearchResult, error) {
		params := url.Values{}
		params.Set("q", keywords)
		params.Set("token", s.apiKey)

		var resp FinnhubSearchResponse
		if err := getJSON(ctx, s.httpClient, s.Name(), s.baseURL+"/search?"+params.Encode(), &resp); err != nil {
			return nil, err
		}

		results := make([]models.SearchResult, 0, len(resp.Result))
		for _, item := range resp.Result {
			region := "US"
			if i := strings.LastIndex(item.DisplaySymbol, "."); i >= 0 && i < len(item.DisplaySymbol)-1 {
				region = item.DisplaySymbol[i+1:]
			}
			results = append(results, models.SearchResult{
				Symbol:   item.Symbol,
				Name:     item.Description,
				Type:     item.Type,
				Region:   region,
				Currency: models.DefaultCurrency,
			})
			if len(results) == models.MaxSearchResults {
				break
			}
		}
		return results, nil
	})
}

// orPrice substitutes price for a missing (zero) field.
func orPrice(v, price decimal.Decimal) decimal.Decimal {
	if v.IsZero() {
		return price
	}
	return v
}

// percentOf returns change/base*100 rounded to two places, 0 when base is not positive.
func percentOf(change, base decimal.Decimal) float64 {
	if !base.IsPositive() {
		return 0
	}
	return change.Div(base).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
