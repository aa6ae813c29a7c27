package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLogAppendAndForRound(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, log.Append(ctx, Record{RoundID: 1, Operation: OpIngest, Status: StatusStarted, Timestamp: now}))
	require.NoError(t, log.Append(ctx, Record{RoundID: 1, Operation: OpIngest, Status: StatusCompleted, Timestamp: now.Add(time.Second)}))
	require.NoError(t, log.Append(ctx, Record{RoundID: 2, Operation: OpIngest, Status: StatusStarted, Timestamp: now}))

	recs, err := log.ForRound(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, StatusStarted, recs[0].Status)
	assert.Equal(t, StatusCompleted, recs[1].Status)
}

func TestMemoryLogCleanupHonorsHorizon(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()
	require.NoError(t, log.Append(ctx, Record{RoundID: 1, Operation: OpIngest, Status: StatusCompleted, Timestamp: old}))
	require.NoError(t, log.Append(ctx, Record{RoundID: 1, Operation: OpCommit, Status: StatusCompleted, Timestamp: recent}))

	horizon := time.Now().Add(-24 * time.Hour)
	removed, err := log.Cleanup(ctx, horizon)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	all, err := log.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, OpCommit, all[0].Operation)
}
