// api/analytics/ingest.go

// Package analytics holds the core pipeline: event ingestion with enrichment,
// and the stats rollup read by the dashboard.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"portfolio/api/enrich"
	"portfolio/api/models"
	"portfolio/api/store"
	"portfolio/api/utils"
)

// Ingestor accepts raw visit events, enriches them through the geo and
// user-agent resolvers and writes normalized records to the store. Enrichment
// failures never surface to callers; only invalid input and store write
// failures do.
type Ingestor struct {
	store      store.SessionStore
	geo        enrich.GeoResolver
	agents     enrich.AgentParser
	geoTimeout time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

func NewIngestor(st store.SessionStore, geo enrich.GeoResolver, agents enrich.AgentParser, geoTimeout time.Duration, log zerolog.Logger) *Ingestor {
	if geoTimeout <= 0 {
		geoTimeout = 5 * time.Second
	}
	return &Ingestor{
		store:      st,
		geo:        geo,
		agents:     agents,
		geoTimeout: geoTimeout,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// StartSession creates an enriched VisitorSession. The geo lookup runs under
// its own deadline so a slow backend cannot stall ingestion.
func (i *Ingestor) StartSession(ctx context.Context, req models.SessionStartRequest) (*models.VisitorSession, error) {
	now := i.now()

	geoCtx, cancel := context.WithTimeout(ctx, i.geoTimeout)
	loc := i.geo.Resolve(geoCtx, req.IPAddress)
	cancel()

	agent := i.agents.Parse(req.UserAgent)

	session := &models.VisitorSession{
		ID:           uuid.New().String(),
		VisitorID:    req.VisitorID,
		SessionStart: now,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
		Country:      loc.Country,
		City:         loc.City,
		Region:       loc.Region,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		Browser:      agent.Browser,
		Device:       agent.Device,
		PagesVisited: []string{},
		Referrer:     req.Referrer,
		CreatedAt:    now,
	}

	if err := i.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	i.log.Info().
		Str("session_id", session.ID).
		Str("visitor_id", session.VisitorID).
		Str("country", session.Country).
		Str("browser", session.Browser).
		Msg("session started")
	return session, nil
}

// EndSession marks the session closed. Closing an already-closed session just
// moves its end marker, which is harmless for retried requests.
func (i *Ingestor) EndSession(ctx context.Context, sessionID string) error {
	if err := i.store.EndSession(ctx, sessionID, i.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// RecordPageView records a page view and folds it into the session. A view
// referencing an unknown session is a data-quality warning, not a failure:
// the view is still recorded for forensic completeness. A request carrying an
// existing view id is a leave-page update and upserts time_spent in place.
func (i *Ingestor) RecordPageView(ctx context.Context, req models.PageViewRequest) (*models.PageView, error) {
	pageURL := utils.NormalizePageURL(req.PageURL)

	// Session totals only ever grow; a client clock running backwards must not
	// pull them negative.
	timeSpent := req.TimeSpent
	if timeSpent < 0 {
		i.log.Warn().
			Str("session_id", req.SessionID).
			Int64("time_spent", timeSpent).
			Msg("negative time_spent clamped to zero")
		timeSpent = 0
	}

	if _, err := i.store.GetSession(ctx, req.SessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			i.log.Warn().
				Str("session_id", req.SessionID).
				Str("page_url", pageURL).
				Msg("page view references unknown session, recording anyway")
		} else {
			i.log.Warn().Err(err).Str("session_id", req.SessionID).Msg("session lookup failed during page view")
		}
	}

	isUpdate := req.ID != ""
	view := &models.PageView{
		ID:          req.ID,
		VisitorID:   req.VisitorID,
		SessionID:   req.SessionID,
		PageURL:     pageURL,
		PageTitle:   req.PageTitle,
		TimeSpent:   timeSpent,
		ScrollDepth: req.ScrollDepth,
		Timestamp:   i.now(),
	}
	if !isUpdate {
		view.ID = uuid.New().String()
	}

	if err := i.store.UpsertPageView(ctx, view); err != nil {
		return nil, fmt.Errorf("failed to persist page view: %w", err)
	}

	// Session bookkeeping is best-effort: the page view itself is already
	// durable. Updates add their time without re-listing the URL.
	visitedURL := pageURL
	if isUpdate {
		visitedURL = ""
	}
	if err := i.store.AppendPageVisit(ctx, req.SessionID, visitedURL, timeSpent); err != nil && !errors.Is(err, store.ErrNotFound) {
		i.log.Warn().Err(err).Str("session_id", req.SessionID).Msg("failed to update session page list")
	}

	return view, nil
}

// RecordDevToolsAlert persists a devtools-opened detection event.
func (i *Ingestor) RecordDevToolsAlert(ctx context.Context, req models.DevToolsAlertRequest) (*models.DevToolsAlert, error) {
	alert := &models.DevToolsAlert{
		ID:        uuid.New().String(),
		VisitorID: req.VisitorID,
		SessionID: req.SessionID,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		PageURL:   utils.NormalizePageURL(req.PageURL),
		AlertType: models.AlertTypeDevTools,
		Timestamp: i.now(),
		Resolved:  false,
	}

	if err := i.store.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to persist devtools alert: %w", err)
	}

	i.log.Info().
		Str("visitor_id", alert.VisitorID).
		Str("page_url", alert.PageURL).
		Msg("devtools alert recorded")
	return alert, nil
}
