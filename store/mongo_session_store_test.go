// api/store/mongo_session_store_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpCtxAppliesStoreTimeout(t *testing.T) {
	s := &MongoSessionStore{opTimeout: 250 * time.Millisecond}

	ctx, cancel := s.opCtx(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok, "store operations must carry a deadline")
	assert.WithinDuration(t, time.Now().Add(250*time.Millisecond), deadline, 100*time.Millisecond)
}

func TestOpCtxKeepsShorterCallerDeadline(t *testing.T) {
	s := &MongoSessionStore{opTimeout: time.Hour}

	parent, parentCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer parentCancel()

	ctx, cancel := s.opCtx(parent)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 25*time.Millisecond)
}
