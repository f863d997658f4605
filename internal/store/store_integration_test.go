package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires TEST_DB_CONN_STRING pointing at a disposable PostgreSQL database.
func TestStore_Integration(t *testing.T) {
	connStr := os.Getenv("TEST_DB_CONN_STRING")
	if connStr == "" {
		t.Skip("TEST_DB_CONN_STRING not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := NewStore(connStr)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.InitDB(ctx))

	run := Run{
		RunID:     uuid.NewString(),
		Kind:      QuarterlyRun,
		Period:    "Q1",
		Status:    RunRunning,
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.CreateRun(ctx, run))

	require.NoError(t, s.RecordSummary(ctx, run.RunID, []SummaryRow{
		{Module: "Coalitions", Update: "UPDATES", Entries: 1, Notification: "Submit a Coalition Survey."},
		{Module: "Coalitions", Update: "Total", Entries: 1},
	}))
	require.NoError(t, s.RecordFailures(ctx, run.RunID, []DeliveryFailure{
		{Recipient: "Jane Doe", Email: "jdoe@illinois.edu", Subject: "Coalition Survey Entry Q1, Jane Doe", Error: "550", FailedAt: time.Now().UTC()},
	}))

	finished := time.Now().UTC().Truncate(time.Second)
	run.Status, run.FinishedAt, run.Corrections, run.Sent = RunSucceeded, &finished, 1, 0
	require.NoError(t, s.FinishRun(ctx, run))

	runs, err := s.ListRuns(ctx, 50)
	require.NoError(t, err)
	var found *Run
	for i := range runs {
		if runs[i].RunID == run.RunID {
			found = &runs[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, RunSucceeded, found.Status)
	assert.Equal(t, 1, found.Corrections)

	summary, err := s.GetRunSummary(ctx, run.RunID)
	require.NoError(t, err)
	assert.Len(t, summary, 2)

	failures, err := s.GetRunFailures(ctx, run.RunID)
	require.NoError(t, err)
	assert.Len(t, failures, 1)
}
