// api/store/memory_session_store.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"portfolio/api/models"
)

// MemorySessionStore is an in-memory SessionStore. It backs the test suite
// and deployments that run without MongoDB; data does not survive a restart.
type MemorySessionStore struct {
	mu           sync.RWMutex
	sessions     map[string]*models.VisitorSession
	sessionOrder []string
	pageViews    map[string]*models.PageView
	viewOrder    []string
	alerts       []*models.DevToolsAlert
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions:  make(map[string]*models.VisitorSession),
		pageViews: make(map[string]*models.PageView),
	}
}

func (s *MemorySessionStore) CreateSession(_ context.Context, session *models.VisitorSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *session
	if _, exists := s.sessions[cp.ID]; !exists {
		s.sessionOrder = append(s.sessionOrder, cp.ID)
	}
	s.sessions[cp.ID] = &cp
	return nil
}

func (s *MemorySessionStore) GetSession(_ context.Context, sessionID string) (*models.VisitorSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *MemorySessionStore) AppendPageVisit(_ context.Context, sessionID, pageURL string, timeSpent int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if pageURL != "" {
		session.PagesVisited = append(session.PagesVisited, pageURL)
	}
	session.TotalTimeSpent += timeSpent
	return nil
}

func (s *MemorySessionStore) EndSession(_ context.Context, sessionID string, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	end := endedAt
	session.SessionEnd = &end
	return nil
}

func (s *MemorySessionStore) UpsertPageView(_ context.Context, view *models.PageView) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.pageViews[view.ID]; ok {
		existing.TimeSpent = view.TimeSpent
		existing.ScrollDepth = view.ScrollDepth
		return nil
	}
	cp := *view
	s.pageViews[cp.ID] = &cp
	s.viewOrder = append(s.viewOrder, cp.ID)
	return nil
}

func (s *MemorySessionStore) CreateAlert(_ context.Context, alert *models.DevToolsAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *alert
	s.alerts = append(s.alerts, &cp)
	return nil
}

func (s *MemorySessionStore) CountSessions(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.sessions)), nil
}

func (s *MemorySessionStore) CountDistinctVisitors(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visitors := make(map[string]struct{}, len(s.sessions))
	for _, session := range s.sessions {
		visitors[session.VisitorID] = struct{}{}
	}
	return int64(len(visitors)), nil
}

func (s *MemorySessionStore) CountActiveSessions(_ context.Context, startedAfter time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, session := range s.sessions {
		if session.SessionEnd == nil && !session.SessionStart.Before(startedAfter) {
			n++
		}
	}
	return n, nil
}

func (s *MemorySessionStore) CountPageViews(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.pageViews)), nil
}

func (s *MemorySessionStore) AvgSessionDuration(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum, count int64
	for _, session := range s.sessions {
		if session.SessionEnd != nil && session.TotalTimeSpent > 0 {
			sum += session.TotalTimeSpent
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return float64(sum) / float64(count), nil
}

func (s *MemorySessionStore) TopPages(_ context.Context, limit int) ([]models.PageStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type pageAgg struct {
		views     int64
		timeSpent int64
	}
	aggs := make(map[string]*pageAgg)
	var order []string // first-seen order keeps count ties stable

	for _, id := range s.viewOrder {
		view := s.pageViews[id]
		agg, ok := aggs[view.PageURL]
		if !ok {
			agg = &pageAgg{}
			aggs[view.PageURL] = agg
			order = append(order, view.PageURL)
		}
		agg.views++
		agg.timeSpent += view.TimeSpent
	}

	stats := make([]models.PageStat, 0, len(order))
	for _, url := range order {
		agg := aggs[url]
		stats = append(stats, models.PageStat{
			Page:         url,
			Views:        agg.views,
			AvgTimeSpent: float64(agg.timeSpent) / float64(agg.views),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Views > stats[j].Views })

	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}

func (s *MemorySessionStore) TopCountries(_ context.Context, limit int) ([]models.CountryStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	var order []string

	for _, id := range s.sessionOrder {
		session := s.sessions[id]
		country := session.Country
		if country == "" || country == "Unknown" {
			continue
		}
		if _, ok := counts[country]; !ok {
			order = append(order, country)
		}
		counts[country]++
	}

	stats := make([]models.CountryStat, 0, len(order))
	for _, country := range order {
		stats = append(stats, models.CountryStat{Country: country, Visitors: counts[country]})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Visitors > stats[j].Visitors })

	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}

func (s *MemorySessionStore) RecentSessions(_ context.Context, startedAfter time.Time, limit int) ([]models.VisitorSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recent := []models.VisitorSession{}
	for _, id := range s.sessionOrder {
		session := s.sessions[id]
		if !session.SessionStart.Before(startedAfter) {
			recent = append(recent, *session)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].SessionStart.After(recent[j].SessionStart)
	})

	if len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}

func (s *MemorySessionStore) CountAlertsSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, alert := range s.alerts {
		if !alert.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}
