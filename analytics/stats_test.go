// api/analytics/stats_test.go
package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/api/models"
	"portfolio/api/store"
)

var errStoreDown = errors.New("store unreachable")

// failingStore simulates a completely unreachable backend.
type failingStore struct{}

func (failingStore) CreateSession(context.Context, *models.VisitorSession) error {
	return errStoreDown
}
func (failingStore) GetSession(context.Context, string) (*models.VisitorSession, error) {
	return nil, errStoreDown
}
func (failingStore) AppendPageVisit(context.Context, string, string, int64) error {
	return errStoreDown
}
func (failingStore) EndSession(context.Context, string, time.Time) error { return errStoreDown }
func (failingStore) UpsertPageView(context.Context, *models.PageView) error {
	return errStoreDown
}
func (failingStore) CreateAlert(context.Context, *models.DevToolsAlert) error { return errStoreDown }
func (failingStore) CountSessions(context.Context) (int64, error)             { return 0, errStoreDown }
func (failingStore) CountDistinctVisitors(context.Context) (int64, error)     { return 0, errStoreDown }
func (failingStore) CountActiveSessions(context.Context, time.Time) (int64, error) {
	return 0, errStoreDown
}
func (failingStore) CountPageViews(context.Context) (int64, error)    { return 0, errStoreDown }
func (failingStore) AvgSessionDuration(context.Context) (float64, error) { return 0, errStoreDown }
func (failingStore) TopPages(context.Context, int) ([]models.PageStat, error) {
	return nil, errStoreDown
}
func (failingStore) TopCountries(context.Context, int) ([]models.CountryStat, error) {
	return nil, errStoreDown
}
func (failingStore) RecentSessions(context.Context, time.Time, int) ([]models.VisitorSession, error) {
	return nil, errStoreDown
}
func (failingStore) CountAlertsSince(context.Context, time.Time) (int64, error) {
	return 0, errStoreDown
}

// flakyStore fails exactly one sub-query to exercise partial degradation.
type flakyStore struct {
	store.SessionStore
}

func (flakyStore) CountPageViews(context.Context) (int64, error) { return 0, errStoreDown }

func seedStore(t *testing.T, now time.Time) *store.MemorySessionStore {
	t.Helper()
	s := store.NewMemorySessionStore()
	ctx := context.Background()

	sessions := []struct {
		id, visitor, country string
		start                time.Time
		duration             int64
		closed               bool
	}{
		{"s1", "v1", "Germany", now.Add(-10 * time.Minute), 10, true},
		{"s2", "v1", "Germany", now.Add(-2 * time.Hour), 21, true},
		{"s3", "v2", "France", now.Add(-5 * time.Minute), 0, false},
		{"s4", "v3", "Unknown", now.Add(-40 * time.Minute), 0, false},
	}
	for _, sess := range sessions {
		require.NoError(t, s.CreateSession(ctx, &models.VisitorSession{
			ID:           sess.id,
			VisitorID:    sess.visitor,
			Country:      sess.country,
			City:         "City",
			Browser:      "Chrome 91",
			SessionStart: sess.start,
			PagesVisited: []string{},
		}))
		if sess.duration > 0 {
			require.NoError(t, s.AppendPageVisit(ctx, sess.id, "", sess.duration))
		}
		if sess.closed {
			require.NoError(t, s.EndSession(ctx, sess.id, now))
		}
	}

	views := []struct {
		id, url   string
		timeSpent int64
	}{
		{"pv1", "/home", 10},
		{"pv2", "/home", 20},
		{"pv3", "/home", 30},
		{"pv4", "/blog", 5},
	}
	for _, v := range views {
		require.NoError(t, s.UpsertPageView(ctx, &models.PageView{
			ID: v.id, SessionID: "s1", VisitorID: "v1",
			PageURL: v.url, TimeSpent: v.timeSpent, Timestamp: now,
		}))
	}

	require.NoError(t, s.CreateAlert(ctx, &models.DevToolsAlert{ID: "a1", Timestamp: now.Add(-6 * 24 * time.Hour)}))
	require.NoError(t, s.CreateAlert(ctx, &models.DevToolsAlert{ID: "a2", Timestamp: now.Add(-8 * 24 * time.Hour)}))

	return s
}

func TestComputeRollup(t *testing.T) {
	now := time.Now().UTC()
	agg := NewAggregator(seedStore(t, now), zerolog.Nop())

	stats := agg.Compute(context.Background(), now)

	assert.Equal(t, int64(4), stats.TotalVisitors)
	assert.Equal(t, int64(4), stats.TotalSessions)
	assert.Equal(t, int64(3), stats.UniqueVisitors)
	// Only s3 is open and inside the 30 minute window; s4 is stale-open.
	assert.Equal(t, int64(1), stats.ActiveSessions)
	assert.Equal(t, int64(4), stats.TotalPageViews)
	// Closed sessions with positive duration: 10 and 21.
	assert.Equal(t, 15.5, stats.AvgSessionDuration)
	assert.Equal(t, int64(1), stats.DevToolsAlerts)

	require.NotEmpty(t, stats.MostVisitedPages)
	assert.Equal(t, "/home", stats.MostVisitedPages[0].Page)
	assert.Equal(t, int64(3), stats.MostVisitedPages[0].Views)
	assert.Equal(t, 20.0, stats.MostVisitedPages[0].AvgTimeSpent)

	require.Len(t, stats.VisitorCountries, 2)
	assert.Equal(t, "Germany", stats.VisitorCountries[0].Country)
	assert.Equal(t, int64(2), stats.VisitorCountries[0].Visitors)

	require.Len(t, stats.RecentVisitors, 4)
	assert.Equal(t, "v2", stats.RecentVisitors[0].VisitorID)
	assert.Equal(t, "France", stats.RecentVisitors[0].Country)
}

func TestComputeIsIdempotent(t *testing.T) {
	now := time.Now().UTC()
	agg := NewAggregator(seedStore(t, now), zerolog.Nop())

	first := agg.Compute(context.Background(), now)
	second := agg.Compute(context.Background(), now)
	assert.Equal(t, first, second)
}

func TestComputeDegradesToEmptySnapshot(t *testing.T) {
	agg := NewAggregator(failingStore{}, zerolog.Nop())

	stats := agg.Compute(context.Background(), time.Now().UTC())

	assert.Equal(t, models.EmptyStats(), stats)
	// The dashboard serializes these; they must be empty, not absent.
	assert.NotNil(t, stats.MostVisitedPages)
	assert.NotNil(t, stats.VisitorCountries)
	assert.NotNil(t, stats.RecentVisitors)
}

func TestComputePartialDegradation(t *testing.T) {
	now := time.Now().UTC()
	agg := NewAggregator(flakyStore{seedStore(t, now)}, zerolog.Nop())

	stats := agg.Compute(context.Background(), now)

	// The failing metric zeroes out; everything else still computes.
	assert.Zero(t, stats.TotalPageViews)
	assert.Equal(t, int64(4), stats.TotalVisitors)
	assert.Equal(t, 15.5, stats.AvgSessionDuration)
	assert.NotEmpty(t, stats.MostVisitedPages)
}
