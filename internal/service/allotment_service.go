package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-allotment-api/internal/allotment"
	"github.com/noah-isme/smart-allotment-api/internal/dto"
	"github.com/noah-isme/smart-allotment-api/internal/models"
	appErrors "github.com/noah-isme/smart-allotment-api/pkg/errors"
)

const allotmentCachePrefix = "allotment:"

// AllotmentServiceConfig holds the defaults applied when a payload leaves a
// constraint out.
type AllotmentServiceConfig struct {
	DefaultWeights    map[string]int
	DefaultMinGap     int
	GenderScopedTypes []string
	Location          *time.Location
	CacheTTL          time.Duration
	MaxRequests       int
}

// AllotmentServiceParams groups constructor dependencies.
type AllotmentServiceParams struct {
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    AllotmentServiceConfig
}

// AllotmentService runs bulk allotment passes. It keeps no state between
// calls; results may be served from cache since a pass is deterministic.
type AllotmentService struct {
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AllotmentServiceConfig
}

// NewAllotmentService constructs the service with defaults filled in.
func NewAllotmentService(params AllotmentServiceParams) *AllotmentService {
	cfg := params.Config
	if len(cfg.DefaultWeights) == 0 {
		cfg.DefaultWeights = map[string]int{"admin": 100, "faculty": 80, "student": 50}
	}
	if cfg.DefaultMinGap < 0 {
		cfg.DefaultMinGap = 0
	}
	if cfg.GenderScopedTypes == nil {
		cfg.GenderScopedTypes = allotment.DefaultGenderScopedTypes
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllotmentService{
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run validates the payload, resolves constraints and executes one pass. The
// boolean reports whether the result came from cache.
func (s *AllotmentService) Run(ctx context.Context, req dto.RunAllotmentRequest) (*models.AllotmentResult, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "rooms and requests are required")
	}
	if s.cfg.MaxRequests > 0 && len(req.Requests) > s.cfg.MaxRequests {
		return nil, false, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("at most %d requests per call", s.cfg.MaxRequests))
	}

	opts := s.options(req.Constraints)
	key, err := cacheKey(req, opts)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash payload")
	}

	start := time.Now()
	var cached models.AllotmentResult
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		s.metrics.ObserveAllotment(len(cached.Assignments), len(cached.Unassigned), time.Since(start))
		return &cached, true, nil
	}

	opts.OnUnassigned = func(r models.AllotmentRequest, reason string, rejections []allotment.Rejection) {
		if ce := s.logger.Check(zap.DebugLevel, "request unassigned"); ce != nil {
			ce.Write(zap.String("req_id", r.ID), zap.String("reason", reason), zap.Any("rejections", rejections))
		}
	}

	result := allotment.Run(req.Rooms, req.Requests, opts)
	s.metrics.ObserveAllotment(len(result.Assignments), len(result.Unassigned), time.Since(start))
	s.logger.Info("allotment completed",
		zap.Int("rooms", len(req.Rooms)),
		zap.Int("requests", len(req.Requests)),
		zap.Int("assigned", len(result.Assignments)),
		zap.Int("unassigned", len(result.Unassigned)))

	if err := s.cache.Set(ctx, key, result, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("cache allotment result", zap.String("key", key), zap.Error(err))
	}
	return &result, false, nil
}

// PurgeCache drops every cached allotment result.
func (s *AllotmentService) PurgeCache(ctx context.Context) error {
	if !s.cache.Enabled() {
		return nil
	}
	if err := s.cache.Invalidate(ctx, allotmentCachePrefix+"*"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge allotment cache")
	}
	s.logger.Info("allotment cache purged")
	return nil
}

func (s *AllotmentService) options(c dto.AllotmentConstraints) allotment.Options {
	opts := allotment.Options{
		MinGapMinutes:     s.cfg.DefaultMinGap,
		AllowOverCapacity: bool(c.AllowOver),
		Weights:           s.cfg.DefaultWeights,
		GenderScopedTypes: s.cfg.GenderScopedTypes,
		Location:          s.cfg.Location,
	}
	if c.MinGap != nil {
		opts.MinGapMinutes = *c.MinGap
	}
	if c.Weights != nil {
		opts.Weights = c.Weights
	}
	return opts
}

// cacheKey hashes everything that influences a pass. encoding/json sorts map
// keys, so equal inputs always hash the same.
func cacheKey(req dto.RunAllotmentRequest, opts allotment.Options) (string, error) {
	payload, err := json.Marshal(struct {
		Rooms        []models.Room             `json:"rooms"`
		Requests     []models.AllotmentRequest `json:"requests"`
		MinGap       int                       `json:"minGap"`
		AllowOver    bool                      `json:"allowOver"`
		Weights      map[string]int            `json:"weights"`
		GenderScoped string                    `json:"genderScoped"`
		Location     string                    `json:"location"`
	}{
		Rooms:        req.Rooms,
		Requests:     req.Requests,
		MinGap:       opts.MinGapMinutes,
		AllowOver:    opts.AllowOverCapacity,
		Weights:      opts.Weights,
		GenderScoped: strings.Join(opts.GenderScopedTypes, ","),
		Location:     opts.Location.String(),
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return allotmentCachePrefix + hex.EncodeToString(sum[:]), nil
}
