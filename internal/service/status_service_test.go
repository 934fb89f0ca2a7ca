package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/persistence"
)

type stubDB struct {
	stats persistence.DatabaseStats
	err   error
}

func (s stubDB) Stats(context.Context) (persistence.DatabaseStats, error) { return s.stats, s.err }

type stubCache struct {
	enabled bool
	err     error
}

func (s stubCache) Enabled() bool { return s.enabled }
func (s stubCache) Ping(context.Context) error { return s.err }

func TestStatusReportsDatabaseStats(t *testing.T) {
	db := stubDB{stats: persistence.DatabaseStats{Version: "PostgreSQL 16.2", MaxConnections: 100, ActiveConnections: 7}}
	svc := NewStatusService(db, stubCache{enabled: true}, nil)

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL 16.2", st.DBVersion)
	assert.Equal(t, 100, st.MaxConnections)
	assert.Equal(t, 7, st.ActiveConnections)
	assert.Equal(t, "ok", st.Cache)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestStatusCacheStates(t *testing.T) {
	db := stubDB{stats: persistence.DatabaseStats{Version: "PostgreSQL 16"}}

	st, err := NewStatusService(db, nil, nil).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "disabled", st.Cache)

	st, err = NewStatusService(db, stubCache{enabled: true, err: errors.New("down")}, nil).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unavailable", st.Cache)
}

func TestStatusDatabaseFailure(t *testing.T) {
	svc := NewStatusService(stubDB{err: errors.New("connection refused")}, nil, nil)

	_, err := svc.Status(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, err))
}
