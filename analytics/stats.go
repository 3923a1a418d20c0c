// api/analytics/stats.go
package analytics

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"portfolio/api/enrich"
	"portfolio/api/models"
	"portfolio/api/store"
)

// Rollup windows. The aggregator owns the "active" definition: a session is
// active when it started inside the window and has no end marker. An open
// session older than the window is stale, not active.
const (
	activeWindow = 30 * time.Minute
	recentWindow = 24 * time.Hour
	alertWindow  = 7 * 24 * time.Hour

	topPagesLimit       = 10
	topCountriesLimit   = 10
	recentVisitorsLimit = 20
)

// Aggregator computes the dashboard rollup. Compute is deterministic given
// store contents and now, and never fails: each metric degrades to its zero
// value independently so one bad sub-query cannot blank the whole dashboard.
type Aggregator struct {
	store store.SessionStore
	log   zerolog.Logger
}

func NewAggregator(st store.SessionStore, log zerolog.Logger) *Aggregator {
	return &Aggregator{store: st, log: log}
}

// Compute rebuilds the AnalyticsStats snapshot from stored records.
func (a *Aggregator) Compute(ctx context.Context, now time.Time) models.AnalyticsStats {
	stats := models.EmptyStats()

	if n, err := a.store.CountSessions(ctx); err != nil {
		a.degrade("total_visitors", err)
	} else {
		// Sessions and session-creation events are 1:1.
		stats.TotalVisitors = n
		stats.TotalSessions = n
	}

	if n, err := a.store.CountDistinctVisitors(ctx); err != nil {
		a.degrade("unique_visitors", err)
	} else {
		stats.UniqueVisitors = n
	}

	if n, err := a.store.CountActiveSessions(ctx, now.Add(-activeWindow)); err != nil {
		a.degrade("active_sessions", err)
	} else {
		stats.ActiveSessions = n
	}

	if n, err := a.store.CountPageViews(ctx); err != nil {
		a.degrade("total_page_views", err)
	} else {
		stats.TotalPageViews = n
	}

	if avg, err := a.store.AvgSessionDuration(ctx); err != nil {
		a.degrade("avg_session_duration", err)
	} else {
		stats.AvgSessionDuration = round2(avg)
	}

	if pages, err := a.store.TopPages(ctx, topPagesLimit); err != nil {
		a.degrade("most_visited_pages", err)
	} else {
		for idx := range pages {
			pages[idx].AvgTimeSpent = round2(pages[idx].AvgTimeSpent)
		}
		stats.MostVisitedPages = pages
	}

	if countries, err := a.store.TopCountries(ctx, topCountriesLimit); err != nil {
		a.degrade("visitor_countries", err)
	} else {
		stats.VisitorCountries = countries
	}

	if sessions, err := a.store.RecentSessions(ctx, now.Add(-recentWindow), recentVisitorsLimit); err != nil {
		a.degrade("recent_visitors", err)
	} else {
		stats.RecentVisitors = recentVisitors(sessions)
	}

	if n, err := a.store.CountAlertsSince(ctx, now.Add(-alertWindow)); err != nil {
		a.degrade("dev_tools_alerts", err)
	} else {
		stats.DevToolsAlerts = n
	}

	return stats
}

func (a *Aggregator) degrade(metric string, err error) {
	a.log.Warn().Err(err).Str("metric", metric).Msg("stats sub-query failed, degrading to zero value")
}

func recentVisitors(sessions []models.VisitorSession) []models.RecentVisitor {
	visitors := make([]models.RecentVisitor, 0, len(sessions))
	for _, s := range sessions {
		visitors = append(visitors, models.RecentVisitor{
			VisitorID: s.VisitorID,
			Country:   orUnknown(s.Country),
			City:      orUnknown(s.City),
			Browser:   orUnknown(s.Browser),
			TimeSpent: s.TotalTimeSpent,
			Timestamp: s.SessionStart,
		})
	}
	return visitors
}

func orUnknown(s string) string {
	if s == "" {
		return enrich.Unknown
	}
	return s
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
