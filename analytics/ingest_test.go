// api/analytics/ingest_test.go
package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/api/enrich"
	"portfolio/api/models"
	"portfolio/api/store"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

func newTestIngestor(st store.SessionStore) *Ingestor {
	geo := enrich.StaticResolver{Loc: enrich.Location{Country: "Germany", City: "Berlin", Region: "BE"}}
	return NewIngestor(st, geo, enrich.NewUAParser(), time.Second, zerolog.Nop())
}

func TestStartSessionEnrichesLocalVisitor(t *testing.T) {
	st := store.NewMemorySessionStore()
	ing := newTestIngestor(st)
	ctx := context.Background()

	session, err := ing.StartSession(ctx, models.SessionStartRequest{
		VisitorID: "v1",
		IPAddress: "127.0.0.1",
		UserAgent: chromeUA,
		Referrer:  "https://news.ycombinator.com",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "v1", session.VisitorID)
	assert.Equal(t, "Local", session.Country)
	assert.Contains(t, session.Browser, "Chrome")
	assert.NotEqual(t, enrich.Unknown, session.Browser)
	assert.Nil(t, session.SessionEnd)
	assert.NotNil(t, session.PagesVisited)

	stored, err := st.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, stored.ID)
}

func TestStartSessionRemoteVisitor(t *testing.T) {
	ing := newTestIngestor(store.NewMemorySessionStore())

	session, err := ing.StartSession(context.Background(), models.SessionStartRequest{
		VisitorID: "v1",
		IPAddress: "93.184.216.34",
		UserAgent: chromeUA,
	})
	require.NoError(t, err)
	assert.Equal(t, "Germany", session.Country)
	assert.Equal(t, "Berlin", session.City)
}

func TestEndSession(t *testing.T) {
	st := store.NewMemorySessionStore()
	ing := newTestIngestor(st)
	ctx := context.Background()

	session, err := ing.StartSession(ctx, models.SessionStartRequest{VisitorID: "v1", IPAddress: "127.0.0.1"})
	require.NoError(t, err)

	require.NoError(t, ing.EndSession(ctx, session.ID))

	stored, err := st.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SessionEnd)
	assert.False(t, stored.SessionEnd.Before(stored.SessionStart))

	assert.ErrorIs(t, ing.EndSession(ctx, "no-such-session"), store.ErrNotFound)
}

func TestRecordPageViewUpdatesSession(t *testing.T) {
	st := store.NewMemorySessionStore()
	ing := newTestIngestor(st)
	ctx := context.Background()

	session, err := ing.StartSession(ctx, models.SessionStartRequest{VisitorID: "v1", IPAddress: "127.0.0.1"})
	require.NoError(t, err)

	view, err := ing.RecordPageView(ctx, models.PageViewRequest{
		VisitorID: "v1",
		SessionID: session.ID,
		PageURL:   "/blog/?utm_source=twitter",
		PageTitle: "Blog",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "/blog", view.PageURL, "URL should be normalized before grouping")

	stored, err := st.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"/blog"}, stored.PagesVisited)
}

func TestRecordPageViewLeaveUpdate(t *testing.T) {
	st := store.NewMemorySessionStore()
	ing := newTestIngestor(st)
	ctx := context.Background()

	session, err := ing.StartSession(ctx, models.SessionStartRequest{VisitorID: "v1", IPAddress: "127.0.0.1"})
	require.NoError(t, err)

	view, err := ing.RecordPageView(ctx, models.PageViewRequest{
		VisitorID: "v1", SessionID: session.ID, PageURL: "/", PageTitle: "Home",
	})
	require.NoError(t, err)

	// The leave-page event reuses the view id and carries the final time.
	_, err = ing.RecordPageView(ctx, models.PageViewRequest{
		ID:        view.ID,
		VisitorID: "v1", SessionID: session.ID, PageURL: "/", PageTitle: "Home",
		TimeSpent: 30,
	})
	require.NoError(t, err)

	n, err := st.CountPageViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "leave update must not create a second view")

	stored, err := st.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"/"}, stored.PagesVisited, "leave update must not re-list the page")
	assert.Equal(t, int64(30), stored.TotalTimeSpent)
}

func TestRecordPageViewNegativeTimeClamped(t *testing.T) {
	st := store.NewMemorySessionStore()
	ing := newTestIngestor(st)
	ctx := context.Background()

	session, err := ing.StartSession(ctx, models.SessionStartRequest{VisitorID: "v1", IPAddress: "127.0.0.1"})
	require.NoError(t, err)

	view, err := ing.RecordPageView(ctx, models.PageViewRequest{
		VisitorID: "v1",
		SessionID: session.ID,
		PageURL:   "/",
		TimeSpent: -300,
	})
	require.NoError(t, err)
	assert.Zero(t, view.TimeSpent)

	stored, err := st.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stored.TotalTimeSpent, int64(0))
	assert.Zero(t, stored.TotalTimeSpent)
}

func TestRecordPageViewUnknownSessionStillRecorded(t *testing.T) {
	st := store.NewMemorySessionStore()
	ing := newTestIngestor(st)
	ctx := context.Background()

	view, err := ing.RecordPageView(ctx, models.PageViewRequest{
		VisitorID: "v1",
		SessionID: "ghost-session",
		PageURL:   "/",
	})
	require.NoError(t, err, "missing session is a data-quality warning, not a failure")
	assert.NotEmpty(t, view.ID)

	n, err := st.CountPageViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRecordDevToolsAlert(t *testing.T) {
	st := store.NewMemorySessionStore()
	ing := newTestIngestor(st)
	ctx := context.Background()

	alert, err := ing.RecordDevToolsAlert(ctx, models.DevToolsAlertRequest{
		VisitorID: "v1",
		SessionID: "s1",
		IPAddress: "93.184.216.34",
		UserAgent: chromeUA,
		PageURL:   "/admin",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AlertTypeDevTools, alert.AlertType)
	assert.False(t, alert.Resolved)

	n, err := st.CountAlertsSince(ctx, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// End to end: start a session, view the home page, and the rollup reflects
// both.
func TestIngestToRollup(t *testing.T) {
	st := store.NewMemorySessionStore()
	ing := newTestIngestor(st)
	agg := NewAggregator(st, zerolog.Nop())
	ctx := context.Background()

	session, err := ing.StartSession(ctx, models.SessionStartRequest{
		VisitorID: "v1",
		IPAddress: "127.0.0.1",
		UserAgent: chromeUA,
	})
	require.NoError(t, err)

	_, err = ing.RecordPageView(ctx, models.PageViewRequest{
		VisitorID: "v1",
		SessionID: session.ID,
		PageURL:   "/",
		PageTitle: "Home",
	})
	require.NoError(t, err)

	stats := agg.Compute(ctx, time.Now().UTC())
	assert.Equal(t, int64(1), stats.TotalVisitors)
	assert.Equal(t, int64(1), stats.UniqueVisitors)
	assert.Equal(t, int64(1), stats.TotalPageViews)
	assert.Equal(t, int64(1), stats.ActiveSessions)
	require.Len(t, stats.MostVisitedPages, 1)
	assert.Equal(t, "/", stats.MostVisitedPages[0].Page)
	assert.Equal(t, int64(1), stats.MostVisitedPages[0].Views)
}
