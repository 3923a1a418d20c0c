// api/store/session_store.go
package store

import (
	"context"
	"errors"
	"time"

	"portfolio/api/models"
)

// ErrNotFound is returned when a lookup by id matches nothing. It is a
// first-class result, distinct from a store failure, so callers can treat
// "missing" differently from "broken".
var ErrNotFound = errors.New("record not found")

// SessionStore persists visitor sessions, page views and devtools alerts and
// answers the aggregate queries the stats rollup needs. Implementations own
// their concurrency; callers never coordinate writes.
//
// Time-window arguments are computed by the caller so that results are a
// deterministic function of store contents and the caller's "now".
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.VisitorSession) error
	GetSession(ctx context.Context, sessionID string) (*models.VisitorSession, error)
	// AppendPageVisit appends a page URL to the session's visited list and
	// adds timeSpent seconds to its running total. An empty pageURL adds only
	// the time; leave-page updates use this so the URL is not listed twice.
	AppendPageVisit(ctx context.Context, sessionID, pageURL string, timeSpent int64) error
	EndSession(ctx context.Context, sessionID string, endedAt time.Time) error

	// UpsertPageView inserts the page view, or updates time_spent and
	// scroll_depth when a view with the same id already exists.
	UpsertPageView(ctx context.Context, view *models.PageView) error
	CreateAlert(ctx context.Context, alert *models.DevToolsAlert) error

	CountSessions(ctx context.Context) (int64, error)
	CountDistinctVisitors(ctx context.Context) (int64, error)
	// CountActiveSessions counts sessions started at or after the cutoff that
	// have no end marker yet.
	CountActiveSessions(ctx context.Context, startedAfter time.Time) (int64, error)
	CountPageViews(ctx context.Context) (int64, error)
	// AvgSessionDuration averages total_time_spent over closed sessions with
	// a positive total; zero-duration sessions would bias the mean toward
	// zero and are excluded. Returns 0 when no session qualifies.
	AvgSessionDuration(ctx context.Context) (float64, error)
	TopPages(ctx context.Context, limit int) ([]models.PageStat, error)
	TopCountries(ctx context.Context, limit int) ([]models.CountryStat, error)
	RecentSessions(ctx context.Context, startedAfter time.Time, limit int) ([]models.VisitorSession, error)
	CountAlertsSince(ctx context.Context, since time.Time) (int64, error)
}
