package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pears-cleaning/internal/datastore"
	"pears-cleaning/internal/store"
)

// captureStdout returns what fn prints.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fnErr := fn()
	w.Close()
	return <-done, fnErr
}

func seedLedger(t *testing.T) datastore.DataStore {
	t.Helper()
	ctx := context.Background()
	ds := datastore.NewMemoryStore()

	started := time.Date(2022, time.October, 12, 6, 0, 0, 0, time.UTC)
	finished := started.Add(3 * time.Minute)
	msg := "Partnerships: missing sheet"

	require.NoError(t, ds.CreateRun(ctx, store.Run{
		RunID: "run-1", Kind: store.MonthlyRun, Period: "2022-09", Status: store.RunRunning, StartedAt: started,
	}))
	require.NoError(t, ds.FinishRun(ctx, store.Run{
		RunID: "run-1", Status: store.RunPartial, FinishedAt: &finished, Corrections: 14, Sent: 6,
		FailedModules: []string{"Partnerships"}, Error: &msg,
	}))
	require.NoError(t, ds.RecordSummary(ctx, "run-1", []store.SummaryRow{
		{Module: "Coalitions", Update: "Missing Coalition Members", Entries: 4},
		{Module: "Partnerships", Update: "ERROR", Entries: 0},
	}))
	require.NoError(t, ds.RecordFailures(ctx, "run-1", []store.DeliveryFailure{
		{Recipient: "Jane Doe", Email: "jdoe@illinois.edu", Subject: "PEARS Entries Updates Sep-2022", Error: "550 mailbox unavailable", FailedAt: finished},
	}))
	return ds
}

func TestRunHistory_PrintsRuns(t *testing.T) {
	ds := seedLedger(t)
	defer ds.Close()

	out, err := captureStdout(t, func() error {
		return RunHistory(context.Background(), ds, 10, "")
	})
	if err != nil {
		t.Fatalf("RunHistory returned error: %v", err)
	}

	if !regexp.MustCompile(`Found\s+1\s+runs`).MatchString(out) {
		t.Errorf("output did not report runs count: %s", out)
	}
	if !regexp.MustCompile(`monthly 2022-09 \| Status:\s+PARTIAL`).MatchString(out) {
		t.Errorf("output missing run status: %s", out)
	}
	if !regexp.MustCompile(`Failed Modules: \[Partnerships\]`).MatchString(out) {
		t.Errorf("output missing failed modules: %s", out)
	}
}

func TestRunHistory_PrintsRunSummary(t *testing.T) {
	ds := seedLedger(t)
	defer ds.Close()

	out, err := captureStdout(t, func() error {
		return RunHistory(context.Background(), ds, 10, "run-1")
	})
	if err != nil {
		t.Fatalf("RunHistory returned error: %v", err)
	}

	if !regexp.MustCompile(`Found\s+2\s+summary rows`).MatchString(out) {
		t.Errorf("output did not report summary rows: %s", out)
	}
	if !regexp.MustCompile(`Missing Coalition Members\s+4`).MatchString(out) {
		t.Errorf("output missing summary entry: %s", out)
	}
	if !regexp.MustCompile(`Failed deliveries: 1`).MatchString(out) {
		t.Errorf("output missing failed deliveries: %s", out)
	}
}

func TestRunHistory_Empty(t *testing.T) {
	ds := datastore.NewMemoryStore()
	defer ds.Close()

	out, err := captureStdout(t, func() error {
		return RunHistory(context.Background(), ds, 10, "")
	})
	require.NoError(t, err)
	if !regexp.MustCompile(`Found\s+0\s+runs`).MatchString(out) {
		t.Errorf("output did not report zero runs: %s", out)
	}
}
