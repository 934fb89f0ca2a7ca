package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/persistence"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// DatabaseProbe reports database server statistics.
type DatabaseProbe interface {
	Stats(ctx context.Context) (persistence.DatabaseStats, error)
}

// CacheProbe reports cache connectivity.
type CacheProbe interface {
	Enabled() bool
	Ping(ctx context.Context) error
}

// Status is the payload of the status endpoint.
type Status struct {
	UpdatedAt         time.Time
	DBVersion         string
	MaxConnections    int
	ActiveConnections int
	Cache             string
}

// StatusService gathers dependency health for the status endpoint.
type StatusService struct {
	db     DatabaseProbe
	cache  CacheProbe
	logger *zap.Logger
	now    func() time.Time
}

// NewStatusService builds the service. cache may be nil.
func NewStatusService(db DatabaseProbe, cache CacheProbe, logger *zap.Logger) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{db: db, cache: cache, logger: logger, now: time.Now}
}

// Status queries the database; a failure surfaces as a service error.
func (s *StatusService) Status(ctx context.Context) (*Status, error) {
	stats, err := s.db.Stats(ctx)
	if err != nil {
		s.logger.Error("database error", zap.Error(err))
		return nil, apperrors.NewServiceError("An error occurred while accessing the database or executing a query.", err)
	}

	return &Status{
		UpdatedAt:         s.now(),
		DBVersion:         stats.Version,
		MaxConnections:    stats.MaxConnections,
		ActiveConnections: stats.ActiveConnections,
		Cache:             s.cacheState(ctx),
	}, nil
}

func (s *StatusService) cacheState(ctx context.Context) string {
	if s.cache == nil || !s.cache.Enabled() {
		return "disabled"
	}
	if err := s.cache.Ping(ctx); err != nil {
		s.logger.Warn("cache unreachable", zap.Error(err))
		return "unavailable"
	}
	return "ok"
}
