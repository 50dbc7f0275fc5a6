package checkout

import (
	"sync"

	"github.com/greencart/storefront/core"
)

// Metrics are the in-memory dashboard counters advanced on the
// confirmed-checkout fallback path. They reset with the process.
type Metrics struct {
	mu sync.Mutex
	m  core.DashboardMetrics
}

// NewMetrics creates zeroed metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordOrder advances the counters for a confirmed order.
func (m *Metrics) RecordOrder(order *core.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m.Orders++
	m.m.CO2 += float64(order.TotalImpactCO2G) / 1000
	m.m.Savings += float64(order.TotalAmountCents) / 100
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() core.DashboardMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m
}
