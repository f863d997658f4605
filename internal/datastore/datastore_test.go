package datastore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pears-cleaning/internal/store"
)

func TestNewDataStore_UnsupportedType(t *testing.T) {
	_, err := NewDataStore(Config{Type: "mongo"})
	var unsupported *UnsupportedStoreTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "unsupported store type: mongo", err.Error())
}

func TestMemoryStore(t *testing.T) {
	ds, err := NewDataStore(Config{Type: MemoryStore})
	require.NoError(t, err)
	defer ds.Close()
	ctx := context.Background()
	require.NoError(t, ds.InitDB(ctx))

	t1 := time.Date(2022, time.September, 12, 6, 0, 0, 0, time.UTC)
	t2 := t1.AddDate(0, 1, 0)
	require.NoError(t, ds.CreateRun(ctx, store.Run{RunID: "a", Kind: store.MonthlyRun, Period: "2022-08", Status: store.RunRunning, StartedAt: t1}))
	require.NoError(t, ds.CreateRun(ctx, store.Run{RunID: "b", Kind: store.MonthlyRun, Period: "2022-09", Status: store.RunRunning, StartedAt: t2}))

	done := t2.Add(time.Minute)
	require.NoError(t, ds.FinishRun(ctx, store.Run{RunID: "b", Status: store.RunSucceeded, FinishedAt: &done, Corrections: 4, Sent: 2}))

	var notFound *store.RunNotFoundError
	assert.True(t, errors.As(ds.FinishRun(ctx, store.Run{RunID: "zzz"}), &notFound))

	runs, err := ds.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].RunID)
	assert.Equal(t, store.RunSucceeded, runs[0].Status)
	assert.Equal(t, "2022-09", runs[0].Period, "finish keeps the start fields")
	assert.Equal(t, 4, runs[0].Corrections)

	runs, err = ds.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	require.NoError(t, ds.RecordSummary(ctx, "b", []store.SummaryRow{
		{Module: "Partnerships", Update: "GI UPDATE1", Entries: 4},
		{Module: "Partnerships", Update: "Total", Entries: 4},
	}))
	summary, err := ds.GetRunSummary(ctx, "b")
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, 1, summary[1].Position)
	assert.Equal(t, "b", summary[1].RunID)

	require.NoError(t, ds.RecordFailures(ctx, "b", []store.DeliveryFailure{{Email: "jdoe@illinois.edu", Error: "550"}}))
	require.NoError(t, ds.RecordFailures(ctx, "b", []store.DeliveryFailure{{Email: "alee@illinois.edu", Error: "421"}}))
	failures, err := ds.GetRunFailures(ctx, "b")
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "b", failures[0].RunID)
	assert.Equal(t, []int{0, 1}, []int{failures[0].Position, failures[1].Position})
	assert.Equal(t, "alee@illinois.edu", failures[1].Email)
}
