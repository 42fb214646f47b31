package services

import (
	"context"
	"fmt"
	"time"

	"stockfolio/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// snapshotClient is the subset of marketdata.Client used for quotes.
type snapshotClient interface {
	GetSnapshot(symbol string, req marketdata.GetSnapshotRequest) (*marketdata.Snapshot, error)
}

// AlpacaService is an optional quote-only provider backed by Alpaca market data snapshots.
type AlpacaService struct {
	dataClient snapshotClient
	configured bool
	breakers   *CircuitBreakerRegistry
}

// NewAlpacaService creates a new AlpacaService instance. dataURL may be
// empty to use the Alpaca default.
func NewAlpacaService(apiKey, apiSecret, dataURL string, breakers *CircuitBreakerRegistry) *AlpacaService {
	if breakers == nil {
		breakers = GetGlobalRegistry()
	}
	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   dataURL,
	})

	return &AlpacaService{
		dataClient: dataClient,
		configured: apiKey != "" && apiSecret != "",
		breakers:   breakers,
	}
}

func (s *AlpacaService) Name() string { return models.ProviderAlpaca }

func (s *AlpacaService) Configured() bool { return s.configured }

// Quote builds a quote from the symbol's latest trade and daily bars.
func (s *AlpacaService) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if !s.Configured() {
		return nil, ErrProviderNotConfigured
	}

	return withBreaker(ctx, s.breakers, s.Name(), func() (*models.Quote, error) {
		type result struct {
			snap *marketdata.Snapshot
			err  error
		}
		// The SDK call takes no context; abandon it when ctx ends.
		done := make(chan result, 1)
		go func() {
			snap, err := s.dataClient.GetSnapshot(symbol, marketdata.GetSnapshotRequest{})
			done <- result{snap, err}
		}()

		select {
		case <-ctx.Done():
			return nil, unavailable(s.Name(), ctx.Err())
		case r := <-done:
			if r.err != nil {
				return nil, unavailable(s.Name(), fmt.Errorf("failed to get snapshot for %s: %w", symbol, r.err))
			}
			return snapshotToQuote(symbol, r.snap)
		}
	})
}

func snapshotToQuote(symbol string, snap *marketdata.Snapshot) (*models.Quote, error) {
	if snap == nil || (snap.LatestTrade == nil && snap.DailyBar == nil) {
		return nil, notFound(models.ProviderAlpaca, symbol)
	}

	var price decimal.Decimal
	ts := time.Now().UTC()
	if snap.LatestTrade != nil {
		price = decimal.NewFromFloat(snap.LatestTrade.Price)
		ts = snap.LatestTrade.Timestamp
	} else {
		price = decimal.NewFromFloat(snap.DailyBar.Close)
		ts = snap.DailyBar.Timestamp
	}
	if price.IsZero() {
		return nil, notFound(models.ProviderAlpaca, symbol)
	}

	high, low, open := price, price, price
	var volume int64
	if bar := snap.DailyBar; bar != nil {
		high = orPrice(decimal.NewFromFloat(bar.High), price)
		low = orPrice(decimal.NewFromFloat(bar.Low), price)
		open = orPrice(decimal.NewFromFloat(bar.Open), price)
		volume = int64(bar.Volume)
	}

	prevClose := price
	if bar := snap.PrevDailyBar; bar != nil && bar.Close > 0 {
		prevClose = decimal.NewFromFloat(bar.Close)
	}
	change := price.Sub(prevClose)

	return &models.Quote{
		Symbol:         symbol,
		Price:          price,
		Change:         change,
		ChangePercent:  percentOf(change, prevClose),
		High:           high,
		Low:            low,
		Open:           open,
		PreviousClose:  prevClose,
		Volume:         volume,
		Currency:       models.DefaultCurrency,
		Timestamp:      ts,
		SourceProvider: models.ProviderAlpaca,
	}, nil
}
