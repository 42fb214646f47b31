package services

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable covers transport failures, timeouts, vendor
	// throttling, open circuits and malformed responses. Callers may try
	// another provider.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrSymbolNotFound is an authoritative negative answer from a provider.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrProviderNotConfigured is returned when credentials are missing.
	ErrProviderNotConfigured = fmt.Errorf("%w: not configured", ErrProviderUnavailable)
)

func unavailable(provider string, err error) error {
	return fmt.Errorf("%s: %w: %w", provider, ErrProviderUnavailable, err)
}

func unavailablef(provider, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", provider, ErrProviderUnavailable, fmt.Sprintf(format, args...))
}

func notFound(provider, symbol string) error {
	return fmt.Errorf("%s: %w: %s", provider, ErrSymbolNotFound, symbol)
}
