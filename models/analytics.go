// api/models/analytics.go
package models

import "time"

const AlertTypeDevTools = "dev_tools_opened"

// VisitorSession is one browsing session for one visitor. Enrichment fields
// (geo + browser/device) are filled once at creation and never recomputed.
type VisitorSession struct {
	ID             string     `json:"id" bson:"id"`
	VisitorID      string     `json:"visitor_id" bson:"visitor_id"`
	SessionStart   time.Time  `json:"session_start" bson:"session_start"`
	SessionEnd     *time.Time `json:"session_end,omitempty" bson:"session_end"`
	IPAddress      string     `json:"ip_address" bson:"ip_address"`
	UserAgent      string     `json:"user_agent" bson:"user_agent"`
	Country        string     `json:"country" bson:"country"`
	City           string     `json:"city" bson:"city"`
	Region         string     `json:"region" bson:"region"`
	Latitude       *float64   `json:"latitude,omitempty" bson:"latitude"`
	Longitude      *float64   `json:"longitude,omitempty" bson:"longitude"`
	Browser        string     `json:"browser" bson:"browser"`
	Device         string     `json:"device" bson:"device"`
	PagesVisited   []string   `json:"pages_visited" bson:"pages_visited"`
	TotalTimeSpent int64      `json:"total_time_spent" bson:"total_time_spent"` // seconds
	Referrer       string     `json:"referrer,omitempty" bson:"referrer"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
}

// PageView is one page visit within a session. A later "leave page" event
// carrying the same id updates time_spent; everything else is immutable.
type PageView struct {
	ID          string    `json:"id" bson:"id"`
	VisitorID   string    `json:"visitor_id" bson:"visitor_id"`
	SessionID   string    `json:"session_id" bson:"session_id"`
	PageURL     string    `json:"page_url" bson:"page_url"`
	PageTitle   string    `json:"page_title" bson:"page_title"`
	TimeSpent   int64     `json:"time_spent" bson:"time_spent"` // seconds
	ScrollDepth *int      `json:"scroll_depth,omitempty" bson:"scroll_depth"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}

// DevToolsAlert is a flagged security-relevant client event.
type DevToolsAlert struct {
	ID        string    `json:"id" bson:"id"`
	VisitorID string    `json:"visitor_id" bson:"visitor_id"`
	SessionID string    `json:"session_id" bson:"session_id"`
	IPAddress string    `json:"ip_address" bson:"ip_address"`
	UserAgent string    `json:"user_agent" bson:"user_agent"`
	PageURL   string    `json:"page_url" bson:"page_url"`
	AlertType string    `json:"alert_type" bson:"alert_type"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Resolved  bool      `json:"resolved" bson:"resolved"`
}

// PageStat is one entry of the most-visited-pages rollup.
type PageStat struct {
	Page         string  `json:"page" bson:"_id"`
	Views        int64   `json:"views" bson:"views"`
	AvgTimeSpent float64 `json:"avg_time_spent" bson:"avg_time_spent"`
}

// CountryStat is one entry of the visitor-countries rollup.
type CountryStat struct {
	Country  string `json:"country" bson:"_id"`
	Visitors int64  `json:"visitors" bson:"visitors"`
}

// RecentVisitor is the dashboard projection of a recent session.
type RecentVisitor struct {
	VisitorID string    `json:"visitor_id"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	Browser   string    `json:"browser"`
	TimeSpent int64     `json:"time_spent"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalyticsStats is the recomputed rollup snapshot. It is never persisted;
// every dashboard request rebuilds it from the raw records.
type AnalyticsStats struct {
	TotalVisitors      int64           `json:"total_visitors"`
	UniqueVisitors     int64           `json:"unique_visitors"`
	TotalSessions      int64           `json:"total_sessions"`
	AvgSessionDuration float64         `json:"avg_session_duration"`
	TotalPageViews     int64           `json:"total_page_views"`
	MostVisitedPages   []PageStat      `json:"most_visited_pages"`
	VisitorCountries   []CountryStat   `json:"visitor_countries"`
	RecentVisitors     []RecentVisitor `json:"recent_visitors"`
	DevToolsAlerts     int64           `json:"dev_tools_alerts"`
	ActiveSessions     int64           `json:"active_sessions"`
}

// EmptyStats is the all-zero snapshot returned when the store is unreachable.
// The dashboard must always render, so slices are empty rather than nil.
func EmptyStats() AnalyticsStats {
	return AnalyticsStats{
		MostVisitedPages: []PageStat{},
		VisitorCountries: []CountryStat{},
		RecentVisitors:   []RecentVisitor{},
	}
}

// Request payloads. Shape validation happens at binding time; everything past
// binding is best-effort and must not fail the request.

type SessionStartRequest struct {
	VisitorID string `json:"visitor_id" binding:"required"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Referrer  string `json:"referrer"`
}

type SessionEndRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type PageViewRequest struct {
	ID          string `json:"id"`
	VisitorID   string `json:"visitor_id" binding:"required"`
	SessionID   string `json:"session_id" binding:"required"`
	PageURL     string `json:"page_url" binding:"required"`
	PageTitle   string `json:"page_title"`
	TimeSpent   int64  `json:"time_spent" binding:"gte=0"`
	ScrollDepth *int   `json:"scroll_depth" binding:"omitempty,gte=0,lte=100"`
}

type DevToolsAlertRequest struct {
	VisitorID string `json:"visitor_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	PageURL   string `json:"page_url"`
}
