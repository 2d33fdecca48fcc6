package models

import "time"

// SystemMetrics is a JSON friendly summary of the Prometheus instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	AllotmentRuns            uint64    `json:"allotment_runs"`
	RequestsAssigned         uint64    `json:"requests_assigned"`
	RequestsUnassigned       uint64    `json:"requests_unassigned"`
	LedgerBookings           int       `json:"ledger_bookings"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
