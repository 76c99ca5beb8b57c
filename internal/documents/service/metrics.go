package service

import (
	"sync/atomic"
	"time"
)

// Metrics tracks service call metrics
type Metrics struct {
	UpstreamCalls   int64 `json:"upstream_calls"`
	UpstreamErrors  int64 `json:"upstream_errors"`
	UpstreamLatency int64 `json:"upstream_latency_ns"`
	GenerateCalls   int64 `json:"generate_calls"`
	RefineCalls     int64 `json:"refine_calls"`
	ExportCalls     int64 `json:"export_calls"`
	SectionSaves    int64 `json:"section_saves"`
}

var globalMetrics = &Metrics{}

// GetMetrics returns the current metrics snapshot
func GetMetrics() Metrics {
	return Metrics{
		UpstreamCalls:   atomic.LoadInt64(&globalMetrics.UpstreamCalls),
		UpstreamErrors:  atomic.LoadInt64(&globalMetrics.UpstreamErrors),
		UpstreamLatency: atomic.LoadInt64(&globalMetrics.UpstreamLatency),
		GenerateCalls:   atomic.LoadInt64(&globalMetrics.GenerateCalls),
		RefineCalls:     atomic.LoadInt64(&globalMetrics.RefineCalls),
		ExportCalls:     atomic.LoadInt64(&globalMetrics.ExportCalls),
		SectionSaves:    atomic.LoadInt64(&globalMetrics.SectionSaves),
	}
}

// ResetMetrics resets all metrics (useful for testing)
func ResetMetrics() {
	atomic.StoreInt64(&globalMetrics.UpstreamCalls, 0)
	atomic.StoreInt64(&globalMetrics.UpstreamErrors, 0)
	atomic.StoreInt64(&globalMetrics.UpstreamLatency, 0)
	atomic.StoreInt64(&globalMetrics.GenerateCalls, 0)
	atomic.StoreInt64(&globalMetrics.RefineCalls, 0)
	atomic.StoreInt64(&globalMetrics.ExportCalls, 0)
	atomic.StoreInt64(&globalMetrics.SectionSaves, 0)
}

// RecordUpstreamCall records one request to the generation service.
func RecordUpstreamCall(duration time.Duration, err error) {
	atomic.AddInt64(&globalMetrics.UpstreamCalls, 1)
	atomic.AddInt64(&globalMetrics.UpstreamLatency, duration.Nanoseconds())
	if err != nil {
		atomic.AddInt64(&globalMetrics.UpstreamErrors, 1)
	}
}

func recordGenerateCall() {
	atomic.AddInt64(&globalMetrics.GenerateCalls, 1)
}

func recordRefineCall() {
	atomic.AddInt64(&globalMetrics.RefineCalls, 1)
}

func recordExportCall() {
	atomic.AddInt64(&globalMetrics.ExportCalls, 1)
}

func recordSectionSave() {
	atomic.AddInt64(&globalMetrics.SectionSaves, 1)
}

// AverageUpstreamLatency returns the average latency in milliseconds
func (m Metrics) AverageUpstreamLatency() float64 {
	if m.UpstreamCalls == 0 {
		return 0
	}
	avgNs := float64(m.UpstreamLatency) / float64(m.UpstreamCalls)
	return avgNs / 1e6
}

// UpstreamErrorRate returns the error rate as a percentage
func (m Metrics) UpstreamErrorRate() float64 {
	if m.UpstreamCalls == 0 {
		return 0
	}
	return float64(m.UpstreamErrors) / float64(m.UpstreamCalls) * 100
}
