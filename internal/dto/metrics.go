package dto

import "time"

// MetricsSnapshot summarises in-process counters for operators.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	StageTransitions         uint64    `json:"stage_transitions"`
	SlotBookings             uint64    `json:"slot_bookings"`
	BestEffortFailures       uint64    `json:"best_effort_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
