package models

import "time"

// ProviderStatus is the diagnostic view of one market data provider.
type ProviderStatus struct {
	Name          string `json:"name"`
	Configured    bool   `json:"configured"`
	Available     bool   `json:"available"`
	CallsInWindow int    `json:"calls_in_window"`
	Limit         int    `json:"limit"`
	Remaining     int    `json:"remaining"`
	Window        string `json:"window"`
	CircuitState  string `json:"circuit_state"`
}

// APIStatus is returned by the api-status endpoint.
type APIStatus struct {
	Providers []ProviderStatus `json:"providers"`
	Timestamp time.Time        `json:"timestamp"`
}
