package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-allotment-api/internal/models"
)

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveAllotment(1, 1, time.Millisecond)
	m.ObserveLedgerOp("book", models.OutcomeSuccess, 1)
	m.RecordCacheOperation(true, time.Millisecond)
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())
}

func TestMetricsServiceLedgerSizeGauge(t *testing.T) {
	m := NewMetricsService()
	m.ObserveLedgerOp("book", models.OutcomeSuccess, 3)
	m.ObserveLedgerOp("book", models.OutcomeConflict, -1)

	assert.Equal(t, 3, m.Snapshot().LedgerBookings)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		switch f.GetName() {
		case "ledger_bookings":
			assert.Equal(t, float64(3), f.GetMetric()[0].GetGauge().GetValue())
		case "ledger_operations_total":
			assert.Len(t, f.GetMetric(), 2)
		}
	}
}

func TestMetricsServiceCacheRatioAndRegistry(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveAllotment(4, 1, 2*time.Millisecond)
	m.ObserveExportJob("csv", models.ExportStatusFinished)

	snap := m.Snapshot()
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 1e-9)
	assert.EqualValues(t, 4, snap.RequestsAssigned)
	assert.EqualValues(t, 1, snap.RequestsUnassigned)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["allotment_requests_total"])
	assert.True(t, names["schedule_export_jobs_total"])
	assert.True(t, names["cache_hit_ratio"])
}
