// api/store/mongo_session_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"portfolio/api/database"
	"portfolio/api/models"
)

// Collection names match the original MongoDB deployment so an existing
// database keeps working after a migration to this service.
const (
	sessionsCollection  = "visitor_sessions"
	pageViewsCollection = "page_views"
	alertsCollection    = "dev_tools_alerts"
)

// MongoSessionStore is the MongoDB-backed SessionStore. Every operation runs
// under opTimeout so a hung node cannot hold a request past the store's own
// deadline.
type MongoSessionStore struct {
	sessions  *mongo.Collection
	pageViews *mongo.Collection
	alerts    *mongo.Collection
	opTimeout time.Duration
}

func NewMongoSessionStore(client *database.MongoClient, opTimeout time.Duration) *MongoSessionStore {
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	s := &MongoSessionStore{
		sessions:  client.Collection(sessionsCollection),
		pageViews: client.Collection(pageViewsCollection),
		alerts:    client.Collection(alertsCollection),
		opTimeout: opTimeout,
	}

	// Index creation is best-effort; the queries work without them.
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, _ = s.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "visitor_id", Value: 1}}},
		{Keys: bson.D{{Key: "session_start", Value: -1}}},
	})
	_, _ = s.pageViews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "page_url", Value: 1}}},
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	_, _ = s.alerts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	})

	return s
}

// opCtx bounds a single store operation. The caller's deadline still applies
// when it is shorter.
func (s *MongoSessionStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *MongoSessionStore) CreateSession(ctx context.Context, session *models.VisitorSession) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.sessions.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to insert visitor session: %w", err)
	}
	return nil
}

func (s *MongoSessionStore) GetSession(ctx context.Context, sessionID string) (*models.VisitorSession, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var session models.VisitorSession
	err := s.sessions.FindOne(ctx, bson.M{"id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (s *MongoSessionStore) AppendPageVisit(ctx context.Context, sessionID, pageURL string, timeSpent int64) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	update := bson.M{"$inc": bson.M{"total_time_spent": timeSpent}}
	if pageURL != "" {
		update["$push"] = bson.M{"pages_visited": pageURL}
	}
	res, err := s.sessions.UpdateOne(ctx, bson.M{"id": sessionID}, update)
	if err != nil {
		return fmt.Errorf("failed to update session pages: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoSessionStore) EndSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.sessions.UpdateOne(ctx, bson.M{"id": sessionID}, bson.M{
		"$set": bson.M{"session_end": endedAt},
	})
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoSessionStore) UpsertPageView(ctx context.Context, view *models.PageView) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"time_spent":   view.TimeSpent,
			"scroll_depth": view.ScrollDepth,
		},
		"$setOnInsert": bson.M{
			"id":         view.ID,
			"visitor_id": view.VisitorID,
			"session_id": view.SessionID,
			"page_url":   view.PageURL,
			"page_title": view.PageTitle,
			"timestamp":  view.Timestamp,
		},
	}
	opts := options.UpdateOne().SetUpsert(true)
	if _, err := s.pageViews.UpdateOne(ctx, bson.M{"id": view.ID}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert page view: %w", err)
	}
	return nil
}

func (s *MongoSessionStore) CreateAlert(ctx context.Context, alert *models.DevToolsAlert) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.alerts.InsertOne(ctx, alert); err != nil {
		return fmt.Errorf("failed to insert devtools alert: %w", err)
	}
	return nil
}

func (s *MongoSessionStore) CountSessions(ctx context.Context) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	n, err := s.sessions.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

func (s *MongoSessionStore) CountDistinctVisitors(ctx context.Context) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res := s.sessions.Distinct(ctx, "visitor_id", bson.M{})
	if err := res.Err(); err != nil {
		return 0, fmt.Errorf("failed to get distinct visitors: %w", err)
	}
	var visitorIDs []string
	if err := res.Decode(&visitorIDs); err != nil {
		return 0, fmt.Errorf("failed to decode distinct visitors: %w", err)
	}
	return int64(len(visitorIDs)), nil
}

func (s *MongoSessionStore) CountActiveSessions(ctx context.Context, startedAfter time.Time) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	n, err := s.sessions.CountDocuments(ctx, bson.M{
		"session_start": bson.M{"$gte": startedAfter},
		"session_end":   nil,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return n, nil
}

func (s *MongoSessionStore) CountPageViews(ctx context.Context) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	n, err := s.pageViews.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count page views: %w", err)
	}
	return n, nil
}

func (s *MongoSessionStore) AvgSessionDuration(ctx context.Context) (float64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	pipeline := []bson.M{
		{"$match": bson.M{
			"session_end":      bson.M{"$ne": nil},
			"total_time_spent": bson.M{"$gt": 0},
		}},
		{"$group": bson.M{
			"_id":          nil,
			"avg_duration": bson.M{"$avg": "$total_time_spent"},
		}},
	}

	cursor, err := s.sessions.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate session durations: %w", err)
	}
	defer cursor.Close(ctx)

	var result struct {
		AvgDuration float64 `bson:"avg_duration"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return 0, fmt.Errorf("failed to decode average session duration: %w", err)
		}
	}
	return result.AvgDuration, nil
}

func (s *MongoSessionStore) TopPages(ctx context.Context, limit int) ([]models.PageStat, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":            "$page_url",
			"views":          bson.M{"$sum": 1},
			"avg_time_spent": bson.M{"$avg": "$time_spent"},
		}},
		{"$sort": bson.M{"views": -1}},
		{"$limit": limit},
	}

	cursor, err := s.pageViews.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top pages: %w", err)
	}
	defer cursor.Close(ctx)

	pages := []models.PageStat{}
	if err := cursor.All(ctx, &pages); err != nil {
		return nil, fmt.Errorf("failed to decode top pages: %w", err)
	}
	return pages, nil
}

func (s *MongoSessionStore) TopCountries(ctx context.Context, limit int) ([]models.CountryStat, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	pipeline := []bson.M{
		{"$match": bson.M{
			"country": bson.M{"$nin": bson.A{nil, "", "Unknown"}},
		}},
		{"$group": bson.M{
			"_id":      "$country",
			"visitors": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"visitors": -1}},
		{"$limit": limit},
	}

	cursor, err := s.sessions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate visitor countries: %w", err)
	}
	defer cursor.Close(ctx)

	countries := []models.CountryStat{}
	if err := cursor.All(ctx, &countries); err != nil {
		return nil, fmt.Errorf("failed to decode visitor countries: %w", err)
	}
	return countries, nil
}

func (s *MongoSessionStore) RecentSessions(ctx context.Context, startedAfter time.Time, limit int) ([]models.VisitorSession, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "session_start", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.sessions.Find(ctx, bson.M{
		"session_start": bson.M{"$gte": startedAfter},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []models.VisitorSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode recent sessions: %w", err)
	}
	return sessions, nil
}

func (s *MongoSessionStore) CountAlertsSince(ctx context.Context, since time.Time) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	n, err := s.alerts.CountDocuments(ctx, bson.M{
		"timestamp": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count devtools alerts: %w", err)
	}
	return n, nil
}
