package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"stockfolio/models"
	"stockfolio/observability"
)

const (
	brandfetchBaseURL = "https://cdn.brandfetch.io"
	brandfetchName    = "brandfetch"
)

// ErrLogoTimeout is returned when the logo CDN does not answer in time.
var ErrLogoTimeout = errors.New("logo service timeout")

// BrandfetchService resolves company logos from the Brandfetch CDN.
type BrandfetchService struct {
	clientID    string
	httpClient  *http.Client
	baseURL     string
	retryConfig RetryConfig
	breakers    *CircuitBreakerRegistry
}

func NewBrandfetchService(clientID string, opts ProviderOptions) *BrandfetchService {
	opts = opts.withDefaults(brandfetchBaseURL)
	return &BrandfetchService{
		clientID:    clientID,
		httpClient:  newHTTPClient(opts.Timeout),
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		retryConfig: DefaultRetryConfig,
		breakers:    opts.Breakers,
	}
}

func (s *BrandfetchService) Configured() bool { return s.clientID != "" }

func (s *BrandfetchService) logoURL(ticker string) string {
	return fmt.Sprintf("%s/%s?c=%s", s.baseURL, url.PathEscape(ticker), url.QueryEscape(s.clientID))
}

// GetLogo checks that a logo exists for ticker. A missing logo or an
// unexpected status is reported in the result, not as an error.
func (s *BrandfetchService) GetLogo(ctx context.Context, ticker string) (*models.Logo, error) {
	if !s.Configured() {
		return nil, ErrProviderNotConfigured
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	logoURL := s.logoURL(ticker)

	logo, err := withBreaker(ctx, s.breakers, brandfetchName, func() (*models.Logo, error) {
		return s.probe(ctx, ticker, logoURL)
	})

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			observability.Error("logo lookup timed out", "ticker", ticker, "error", err)
			return nil, ErrLogoTimeout
		}
		observability.Warn("logo lookup failed", "ticker", ticker, "error", err)
		return &models.Logo{Ticker: ticker, Message: fmt.Sprintf("Error retrieving logo: %v", err)}, nil
	}

	if !logo.Available {
		observability.Debug("logo not available", "ticker", ticker, "message", logo.Message)
	}
	return logo, nil
}

// probe fetches logoURL, retrying server errors. 404 and other client
// statuses end the loop with an unavailable logo.
func (s *BrandfetchService) probe(ctx context.Context, ticker, logoURL string) (*models.Logo, error) {
	var logo *models.Logo
	err := WithRetry(ctx, s.retryConfig, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoURL, nil)
		if err != nil {
			return Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

		switch {
		case resp.StatusCode == http.StatusOK:
			contentType := resp.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "image/png"
			}
			logo = &models.Logo{Ticker: ticker, LogoURL: logoURL, Available: true, ContentType: contentType}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			logo = &models.Logo{Ticker: ticker, Message: fmt.Sprintf("Logo not available for %s", ticker)}
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("unexpected status code %d", resp.StatusCode)
		default:
			logo = &models.Logo{Ticker: ticker, Message: fmt.Sprintf("Error retrieving logo: HTTP %d", resp.StatusCode)}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return logo, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
