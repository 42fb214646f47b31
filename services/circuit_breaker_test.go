package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastTripConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     1 * time.Second,
		MinRequests: 3,
	}
}

func TestCircuitBreakerRegistry_GetBreaker(t *testing.T) {
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)

	breaker1 := registry.GetBreaker("finnhub")
	if breaker1 == nil {
		t.Fatal("expected breaker to be created")
	}
	if breaker2 := registry.GetBreaker("finnhub"); breaker1 != breaker2 {
		t.Error("expected same breaker instance")
	}
	if breaker3 := registry.GetBreaker("alphavantage"); breaker1 == breaker3 {
		t.Error("expected different breaker for different provider")
	}
}

func TestCircuitBreakerRegistry_Execute(t *testing.T) {
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	ctx := context.Background()

	result, err := registry.Execute(ctx, "finnhub", func() (any, error) {
		return "ok", nil
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected 'ok', got %v", result)
	}

	expectedErr := errors.New("boom")
	result, err = registry.Execute(ctx, "finnhub", func() (any, error) {
		return nil, expectedErr
	})
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected wrapped boom error, got %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result, got %v", result)
	}
}

func TestCircuitBreakerRegistry_Execute_ContextCanceled(t *testing.T) {
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := registry.Execute(ctx, "finnhub", func() (any, error) {
		called = true
		return nil, nil
	})
	if err == nil {
		t.Error("expected error due to cancelled context")
	}
	if called {
		t.Error("fn should not run with a cancelled context")
	}
}

func TestCircuitBreakerRegistry_TripsAfterFailures(t *testing.T) {
	registry := NewCircuitBreakerRegistry(fastTripConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = registry.Execute(ctx, "alphavantage", func() (any, error) {
			return nil, unavailablef("alphavantage", "status 500")
		})
	}

	if !registry.IsOpen("alphavantage") {
		t.Fatalf("expected breaker to be open, got %s", registry.State("alphavantage"))
	}

	called := false
	_, err := registry.Execute(ctx, "alphavantage", func() (any, error) {
		called = true
		return "should not execute", nil
	})
	if called {
		t.Error("open breaker should not run fn")
	}
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestCircuitBreakerRegistry_NotFoundDoesNotTrip(t *testing.T) {
	registry := NewCircuitBreakerRegistry(fastTripConfig())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := registry.Execute(ctx, "finnhub", func() (any, error) {
			return nil, notFound("finnhub", "ZZZZ")
		})
		if !errors.Is(err, ErrSymbolNotFound) {
			t.Fatalf("expected ErrSymbolNotFound, got %v", err)
		}
	}

	if registry.IsOpen("finnhub") {
		t.Error("not-found answers should not open the breaker")
	}
	if got := registry.Status()["finnhub"].TotalFailures; got != 0 {
		t.Errorf("expected 0 failures, got %d", got)
	}
}

func TestCircuitBreakerRegistry_State_Unknown(t *testing.T) {
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	if got := registry.State("never-used"); got != "closed" {
		t.Errorf("State() = %q, want closed", got)
	}
	if len(registry.Status()) != 0 {
		t.Error("State should not create breakers")
	}
}

func TestWithBreaker_TypedResult(t *testing.T) {
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)

	type payload struct{ Value int }
	result, err := withBreaker(context.Background(), registry, "typed", func() (*payload, error) {
		return &payload{Value: 42}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Value != 42 {
		t.Errorf("unexpected result: %+v", result)
	}

	_, err = withBreaker(context.Background(), registry, "typed", func() (*payload, error) {
		return nil, errors.New("fail")
	})
	if err == nil {
		t.Error("expected error")
	}
}

func TestGetGlobalRegistry(t *testing.T) {
	registry := GetGlobalRegistry()
	if registry == nil {
		t.Fatal("expected global registry to be created")
	}
	if registry != GetGlobalRegistry() {
		t.Error("expected same global registry instance")
	}
}
