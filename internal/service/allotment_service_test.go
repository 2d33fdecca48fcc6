package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/smart-allotment-api/internal/allotment"
	"github.com/noah-isme/smart-allotment-api/internal/dto"
	"github.com/noah-isme/smart-allotment-api/internal/models"
	appErrors "github.com/noah-isme/smart-allotment-api/pkg/errors"
)

type memoryCacheRepo struct {
	store  map[string][]byte
	sets   int
	purged []string
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.sets++
	m.store[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.purged = append(m.purged, pattern)
	m.store = nil
	return nil
}

type brokenCacheRepo struct {
	memoryCacheRepo
}

func (b *brokenCacheRepo) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("redis unavailable")
}

func twoRoomPayload() dto.RunAllotmentRequest {
	return dto.RunAllotmentRequest{
		Rooms: []models.Room{
			{ID: "R1", Type: "classroom", Capacity: 2},
			{ID: "R2", Type: "classroom", Capacity: 10},
		},
		Requests: []models.AllotmentRequest{
			{ID: "Q2", Date: "2025-03-10", Start: "09:00", End: "10:00", Attendees: 1, UserType: "student"},
			{ID: "Q1", Date: "2025-03-10", Start: "09:00", End: "10:00", Attendees: 8, UserType: "faculty"},
		},
		Constraints: dto.AllotmentConstraints{Weights: map[string]int{"faculty": 100, "student": 50}},
	}
}

func TestAllotmentServiceRun(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewAllotmentService(AllotmentServiceParams{Metrics: metrics})

	result, hit, err := svc.Run(context.Background(), twoRoomPayload())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []models.Assignment{{ReqID: "Q1", RoomID: "R2"}, {ReqID: "Q2", RoomID: "R1"}}, result.Assignments)
	assert.Empty(t, result.Unassigned)

	snap := metrics.Snapshot()
	assert.EqualValues(t, 1, snap.AllotmentRuns)
	assert.EqualValues(t, 2, snap.RequestsAssigned)
}

func TestAllotmentServiceAppliesConstraintDefaults(t *testing.T) {
	svc := NewAllotmentService(AllotmentServiceParams{Config: AllotmentServiceConfig{DefaultMinGap: 15}})

	req := dto.RunAllotmentRequest{
		Rooms: []models.Room{{ID: "R1", Type: "classroom", Capacity: 10}},
		Requests: []models.AllotmentRequest{
			{ID: "A", Date: "2025-03-10", Start: "09:00", End: "10:00", Attendees: 5, UserType: "faculty"},
			{ID: "B", Date: "2025-03-10", Start: "10:10", End: "11:00", Attendees: 5, UserType: "student"},
		},
	}
	result, _, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, "B", result.Unassigned[0].ReqID)
	assert.Equal(t, allotment.ReasonTimeConflict, result.Unassigned[0].Reason)

	zero := 0
	req.Constraints.MinGap = &zero
	result, _, err = svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.Assignments, 2, "explicit zero gap overrides the default")
}

func TestAllotmentServiceRejectsBadPayload(t *testing.T) {
	svc := NewAllotmentService(AllotmentServiceParams{Config: AllotmentServiceConfig{MaxRequests: 1}})
	ctx := context.Background()

	_, _, err := svc.Run(ctx, dto.RunAllotmentRequest{Requests: []models.AllotmentRequest{}})
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)

	_, _, err = svc.Run(ctx, twoRoomPayload())
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)

	negative := -5
	payload := twoRoomPayload()
	payload.Requests = payload.Requests[:1]
	payload.Constraints.MinGap = &negative
	_, _, err = svc.Run(ctx, payload)
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)
}

func TestAllotmentServiceRejectsInvalidCatalog(t *testing.T) {
	svc := NewAllotmentService(AllotmentServiceParams{})

	tests := []struct {
		name   string
		mutate func(*dto.RunAllotmentRequest)
	}{
		{name: "zero capacity room", mutate: func(p *dto.RunAllotmentRequest) { p.Rooms[0].Capacity = 0 }},
		{name: "zero attendees", mutate: func(p *dto.RunAllotmentRequest) { p.Requests[0].Attendees = 0 }},
		{name: "duplicate room id", mutate: func(p *dto.RunAllotmentRequest) { p.Rooms[1].ID = p.Rooms[0].ID }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload := twoRoomPayload()
			tc.mutate(&payload)
			result, _, err := svc.Run(context.Background(), payload)
			assert.ErrorIs(t, err, appErrors.ErrInvalidInput)
			assert.Nil(t, result)
		})
	}
}

func TestAllotmentServiceCachesDeterministicResults(t *testing.T) {
	repo := &memoryCacheRepo{}
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	svc := NewAllotmentService(AllotmentServiceParams{Cache: cache})
	ctx := context.Background()

	first, hit, err := svc.Run(ctx, twoRoomPayload())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, repo.sets)
	for key := range repo.store {
		assert.True(t, strings.HasPrefix(key, allotmentCachePrefix))
	}

	second, hit, err := svc.Run(ctx, twoRoomPayload())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)

	changed := twoRoomPayload()
	changed.Constraints.AllowOver = true
	_, hit, err = svc.Run(ctx, changed)
	require.NoError(t, err)
	assert.False(t, hit, "different constraints must not share a cache entry")
	assert.Equal(t, 2, repo.sets)
}

func TestAllotmentServiceRecordsCachedRuns(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, nil, true)
	svc := NewAllotmentService(AllotmentServiceParams{Cache: cache, Metrics: metrics})
	ctx := context.Background()

	_, hit, err := svc.Run(ctx, twoRoomPayload())
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = svc.Run(ctx, twoRoomPayload())
	require.NoError(t, err)
	assert.True(t, hit)

	snap := metrics.Snapshot()
	assert.EqualValues(t, 2, snap.AllotmentRuns)
	assert.EqualValues(t, 4, snap.RequestsAssigned)
}

func TestAllotmentServiceToleratesCacheWriteFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)
	cache := NewCacheService(&brokenCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewAllotmentService(AllotmentServiceParams{Cache: cache, Logger: logger})

	result, hit, err := svc.Run(context.Background(), twoRoomPayload())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, result.Assignments, 2)
	assert.Equal(t, 1, logs.FilterMessage("cache allotment result").Len())
}

func TestAllotmentServiceLogsUnassignedAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc := NewAllotmentService(AllotmentServiceParams{Logger: zap.New(core)})

	payload := twoRoomPayload()
	payload.Rooms = payload.Rooms[:1]
	result, _, err := svc.Run(context.Background(), payload)
	require.NoError(t, err)
	require.Len(t, result.Unassigned, 1)

	entries := logs.FilterMessage("request unassigned").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Q1", entries[0].ContextMap()["req_id"])
	assert.Equal(t, allotment.ReasonCapacity, entries[0].ContextMap()["reason"])
}

func TestAllotmentServicePurgeCache(t *testing.T) {
	repo := &memoryCacheRepo{}
	svc := NewAllotmentService(AllotmentServiceParams{Cache: NewCacheService(repo, nil, time.Minute, nil, true)})
	ctx := context.Background()

	_, _, err := svc.Run(ctx, twoRoomPayload())
	require.NoError(t, err)
	require.NoError(t, svc.PurgeCache(ctx))
	assert.Equal(t, []string{allotmentCachePrefix + "*"}, repo.purged)

	_, hit, err := svc.Run(ctx, twoRoomPayload())
	require.NoError(t, err)
	assert.False(t, hit)

	disabled := NewAllotmentService(AllotmentServiceParams{})
	assert.NoError(t, disabled.PurgeCache(ctx))
}
