package quotes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stockfolio/models"
	"stockfolio/observability"
)

// ErrBatchTooLarge is returned before any fetch when a batch holds more
// distinct symbols than the configured maximum.
var ErrBatchTooLarge = errors.New("batch too large")

const (
	DefaultMaxBatchSize  = 20
	DefaultMaxConcurrent = 10
)

// QuoteSource resolves a single quote.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// BatchConfig wires a BatchFetcher. Zero values take defaults; Timeout
// defaults to twice the services' request timeout.
type BatchConfig struct {
	MaxBatchSize  int
	MaxConcurrent int
	Timeout       time.Duration
	Metrics       *observability.Metrics
}

// BatchFetcher fans a list of symbols out to a QuoteSource concurrently.
type BatchFetcher struct {
	source        QuoteSource
	maxBatchSize  int
	maxConcurrent int
	timeout       time.Duration
	metrics       *observability.Metrics
}

func NewBatchFetcher(source QuoteSource, cfg BatchConfig) *BatchFetcher {
	b := &BatchFetcher{
		source:        source,
		maxBatchSize:  cfg.MaxBatchSize,
		maxConcurrent: cfg.MaxConcurrent,
		timeout:       cfg.Timeout,
		metrics:       cfg.Metrics,
	}
	if b.maxBatchSize <= 0 {
		b.maxBatchSize = DefaultMaxBatchSize
	}
	if b.maxConcurrent <= 0 {
		b.maxConcurrent = DefaultMaxConcurrent
	}
	if b.timeout <= 0 {
		b.timeout = 20 * time.Second
	}
	if b.metrics == nil {
		b.metrics = observability.GetMetrics()
	}
	return b
}

// MaxBatchSize returns the largest accepted batch.
func (b *BatchFetcher) MaxBatchSize() int {
	return b.maxBatchSize
}

// DedupSymbols upper-cases symbols, drops blanks and removes duplicates,
// keeping first-seen order.
func DedupSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = models.SymbolKey(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// FetchAll returns one entry per distinct symbol. A symbol whose fetch
// failed, was not found, or was still pending at the batch deadline maps
// to nil. Only ErrBatchTooLarge is returned as an error.
func (b *BatchFetcher) FetchAll(ctx context.Context, symbols []string) (map[string]*models.Quote, error) {
	unique := DedupSymbols(symbols)
	if len(unique) > b.maxBatchSize {
		return nil, fmt.Errorf("%w: %d symbols, maximum is %d", ErrBatchTooLarge, len(unique), b.maxBatchSize)
	}

	out := make(map[string]*models.Quote, len(unique))
	for _, s := range unique {
		out[s] = nil
	}
	if len(unique) == 0 {
		return out, nil
	}

	start := time.Now()
	batchCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type fetchResult struct {
		symbol string
		quote  *models.Quote
		err    error
	}

	// buffered so late senders never block after the collector has left
	results := make(chan fetchResult, len(unique))
	sem := make(chan struct{}, b.maxConcurrent)
	var wg sync.WaitGroup

	for _, symbol := range unique {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-batchCtx.Done():
				results <- fetchResult{symbol: sym, err: batchCtx.Err()}
				return
			}

			q, err := b.source.Quote(batchCtx, sym)
			results <- fetchResult{symbol: sym, quote: q, err: err}
		}(symbol)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	timedOut := false
	received := 0
collect:
	for received < len(unique) {
		select {
		case r, ok := <-results:
			if !ok {
				break collect
			}
			received++
			if r.err != nil {
				observability.Debug("batch symbol fetch failed", "symbol", r.symbol, "error", r.err)
				continue
			}
			out[r.symbol] = r.quote
		case <-batchCtx.Done():
			timedOut = ctx.Err() == nil
			// keep results that were already delivered
			for {
				select {
				case r, ok := <-results:
					if !ok {
						break collect
					}
					if r.err == nil {
						out[r.symbol] = r.quote
					}
				default:
					break collect
				}
			}
		}
	}

	missing := 0
	for _, q := range out {
		if q == nil {
			missing++
		}
	}
	if timedOut {
		observability.Warn("batch fetch deadline reached",
			"symbols", len(unique),
			"missing", missing,
			"timeout", b.timeout)
	}
	b.metrics.RecordBatch(len(unique), missing, timedOut, time.Since(start))

	return out, nil
}
