package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"pears-cleaning/internal/config"
	"pears-cleaning/internal/datastore"
	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/fiscal"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/mail"
	"pears-cleaning/internal/metrics"
	"pears-cleaning/internal/modules"
	"pears-cleaning/internal/notify"
	"pears-cleaning/internal/pears"
	"pears-cleaning/internal/records"
	"pears-cleaning/internal/store"
	"pears-cleaning/internal/workbook"
)

var now = time.Date(2022, time.October, 12, 6, 0, 0, 0, time.UTC)

type fakeCleaner struct {
	name string
	res  *engine.Result
	err  error
}

func (f *fakeCleaner) Name() string  { return f.name }
func (f *fakeCleaner) Sheet() string { return f.name }
func (f *fakeCleaner) Clean(*lookup.Reference, time.Time) (*engine.Result, error) {
	return f.res, f.err
}

var columns = []string{"partnership_id", engine.ColReportedBy, engine.ColReportedByEmail, engine.ColUnit, "GENERAL INFORMATION TAB UPDATES"}

func correction(id, name, email, update string) engine.Row {
	return engine.Row{
		ParentID: id,
		Owner:    engine.Owner{Name: name, Email: email, Unit: "17"},
		Cells:    []any{id, name, email, "17", update},
		Fired:    []string{"GI UPDATE1"},
	}
}

func result(module string, rows ...engine.Row) *engine.Result {
	res := &engine.Result{
		Module:  module,
		Sheet:   module,
		Columns: columns,
		Formats: make([]engine.Format, len(columns)),
		Rows:    rows,
	}
	if len(rows) > 0 {
		res.Summary = append(res.Summary, engine.SummaryRow{Module: module, Update: "GI UPDATE1", Entries: len(rows), Notification: "Add an action plan."})
	}
	res.Summary = append(res.Summary, engine.SummaryRow{Module: module, Update: engine.TotalUpdate, Entries: len(rows)})
	return res
}

func registry(t *testing.T, cs ...modules.Cleaner) *modules.Registry {
	t.Helper()
	reg := modules.NewRegistry()
	for _, c := range cs {
		require.NoError(t, reg.Register(c))
	}
	return reg
}

func reference(t *testing.T) *lookup.Reference {
	t.Helper()
	staff, err := lookup.BuildDirectory(map[string]*records.Table{
		lookup.SheetSNAPEdStaff: records.NewTable(lookup.SheetSNAPEdStaff, []string{"NAME", "E-MAIL"}, [][]string{
			{"Doe, Jane", "jdoe@illinois.edu"},
		}),
	}, "@illinois.edu")
	require.NoError(t, err)
	return &lookup.Reference{
		Staff: staff,
		Contacts: lookup.NewRegionalContacts(map[string]lookup.Contact{
			"17": {Name: "Rhonda Ellis", Email: "rellis@illinois.edu"},
		}),
	}
}

var missingColumn = &records.SchemaError{Sheet: "Coalition Data", Missing: []string{"action_plan_name"}}

func TestEvaluate_KeepsGoingPastFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := registry(t,
		&fakeCleaner{name: "Coalitions", err: missingColumn},
		&fakeCleaner{name: "Partnerships", res: result("Partnerships", correction("1", "Jane Doe", "jdoe@illinois.edu", "a"))},
		&fakeCleaner{name: "Program Activities", res: result("Program Activities")},
	)

	ev := Evaluate(context.Background(), reg, reference(t), now)

	require.Len(t, ev.Results, 3)
	assert.Nil(t, ev.Results[0])
	assert.Equal(t, "Partnerships", ev.Results[1].Module)
	assert.Equal(t, []string{"Coalitions"}, ev.Failed())
	assert.Len(t, ev.Succeeded(), 2)

	err := ev.Err()
	var modErr *ModuleError
	require.True(t, errors.As(err, &modErr))
	assert.Equal(t, "Coalitions", modErr.Module)
	var schemaErr *records.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"action_plan_name"}, schemaErr.Missing)

	want := []engine.SummaryRow{
		{Module: "Coalitions", Update: ErrorUpdate, Notification: missingColumn.Error()},
		{Module: "Partnerships", Update: "GI UPDATE1", Entries: 1, Notification: "Add an action plan."},
		{Module: "Partnerships", Update: engine.TotalUpdate, Entries: 1},
		{Module: "Program Activities", Update: engine.TotalUpdate, Entries: 0},
	}
	if diff := cmp.Diff(want, ev.Summary()); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_AllSucceed(t *testing.T) {
	defer goleak.VerifyNone(t)

	ev := Evaluate(context.Background(), registry(t, &fakeCleaner{name: "Partnerships", res: result("Partnerships")}), reference(t), now)
	assert.NoError(t, ev.Err())
	assert.Empty(t, ev.Failed())
}

func TestEvaluate_Canceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev := Evaluate(ctx, registry(t, &fakeCleaner{name: "Partnerships", res: result("Partnerships")}), reference(t), now)
	assert.ErrorIs(t, ev.Err(), context.Canceled)
}

func TestSheets(t *testing.T) {
	ev := Evaluate(context.Background(), registry(t,
		&fakeCleaner{name: "Partnerships", res: result("Partnerships", correction("1", "Jane Doe", "jdoe@illinois.edu", "a"))},
	), reference(t), now)

	sheets := ev.Sheets()
	require.Len(t, sheets, 2)
	assert.Equal(t, SummarySheet, sheets[0].Name)
	assert.Equal(t, SummaryColumns, sheets[0].Columns)
	assert.Equal(t, []any{"Partnerships", engine.TotalUpdate, 1, ""}, sheets[0].Rows[1])
	assert.Equal(t, "Partnerships", sheets[1].Name)
	assert.Len(t, sheets[1].Rows, 1)
}

type fakeMailer struct {
	mu   sync.Mutex
	fail string
	sent []mail.Message
}

func (f *fakeMailer) Send(_ context.Context, m mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(m.To) > 0 && m.To[0] == f.fail {
		return errors.New("550 mailbox unavailable")
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeMailer) subjects() []string {
	var out []string
	for _, m := range f.sent {
		out = append(out, m.Subject)
	}
	return out
}

func newRunner(t *testing.T, mailer notify.Mailer) (*Runner, datastore.DataStore) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Report.OutputDir = t.TempDir()
	cfg.Report.SendEmails = true
	cfg.Report.Recipients = []string{"lead@illinois.edu"}
	cfg.Report.AdminRecipients = []string{"admin@illinois.edu"}
	cfg.Report.FormerStaffRecipients = []string{"former@illinois.edu"}
	cfg.Report.BaseCC = "lead@illinois.edu"

	ds := datastore.NewMemoryStore()
	return &Runner{
		Config:    cfg,
		Reference: reference(t),
		Mailer:    mailer,
		Store:     ds,
		Metrics:   metrics.NewRecorder(),
		Log:       zap.NewNop(),
		Now:       func() time.Time { return now },
	}, ds
}

func monthlyJob(reg *modules.Registry) Job {
	job := MonthlyJob(now, pears.ExportsIn("unused"), config.DefaultConfig().Report)
	job.Registry = reg
	return job
}

func TestRunner_Monthly(t *testing.T) {
	defer goleak.VerifyNone(t)

	mailer := &fakeMailer{fail: "lead@illinois.edu"}
	runner, ds := newRunner(t, mailer)
	job := monthlyJob(registry(t,
		&fakeCleaner{name: "Partnerships", res: result("Partnerships",
			correction("1", "Jane Doe", "jdoe@illinois.edu", "Add an action plan."),
			correction("2", "Gone Person", "gone@illinois.edu", "Add an action plan."),
		)},
		&fakeCleaner{name: "Coalitions", res: result("Coalitions")},
	))

	out, err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, store.RunSucceeded, out.Status)

	assert.Equal(t, filepath.Join(runner.Config.Report.OutputDir, "Monthly PEARS Corrections 2022-09.xlsx"), out.Workbook)
	book, err := workbook.Open(out.Workbook)
	require.NoError(t, err)
	assert.Equal(t, []string{SummarySheet, "Partnerships", "Coalitions"}, book.Sheets())
	require.NoError(t, book.Close())

	require.NotEmpty(t, out.FormerWorkbook)
	_, err = os.Stat(out.FormerWorkbook)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"PEARS Entries Updates Sep-2022, Unit 17, Jane Doe",
		"Former Staff PEARS Updates 2022-09",
		"Monthly PEARS Corrections Sep-2022 Failure Notice",
	}, mailer.subjects())

	notice := mailer.sent[0]
	assert.Equal(t, []string{"jdoe@illinois.edu"}, notice.To)
	assert.Equal(t, []string{"lead@illinois.edu", "rellis@illinois.edu"}, notice.CC)
	assert.Contains(t, notice.HTML, "Rhonda Ellis")
	assert.NotContains(t, notice.HTML, "gone@illinois.edu")
	assert.Equal(t, []string{out.FormerWorkbook}, mailer.sent[1].Attachments)
	assert.Contains(t, mailer.sent[2].HTML, "Report recipients")

	assert.Equal(t, 2, out.Sent)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, "Monthly PEARS Corrections Sep-2022", out.Failures[0].Subject)

	runs, err := ds.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunSucceeded, runs[0].Status)
	assert.Equal(t, "2022-09", runs[0].Period)
	assert.Equal(t, 2, runs[0].Corrections)
	assert.Equal(t, 2, runs[0].Sent)

	summary, err := ds.GetRunSummary(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.Len(t, summary, 3)
	failures, err := ds.GetRunFailures(context.Background(), out.RunID)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.False(t, failures[0].FailedAt.IsZero(), "failures carry the time they happened")
}

func TestRunner_FailedModuleWritesNothing(t *testing.T) {
	defer goleak.VerifyNone(t)

	mailer := &fakeMailer{}
	runner, ds := newRunner(t, mailer)
	job := monthlyJob(registry(t,
		&fakeCleaner{name: "Coalitions", err: missingColumn},
		&fakeCleaner{name: "Partnerships", res: result("Partnerships", correction("1", "Jane Doe", "jdoe@illinois.edu", "a"))},
	))

	out, err := runner.Run(context.Background(), job)
	var modErr *ModuleError
	require.True(t, errors.As(err, &modErr))
	assert.Equal(t, store.RunFailed, out.Status)
	assert.Empty(t, out.Workbook)
	assert.Empty(t, mailer.sent)

	entries, err := os.ReadDir(runner.Config.Report.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	runs, err := ds.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunFailed, runs[0].Status)
	assert.Equal(t, []string{"Coalitions"}, []string(runs[0].FailedModules))
	require.NotNil(t, runs[0].Error)
}

func TestRunner_AllowPartial(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner, _ := newRunner(t, &fakeMailer{})
	runner.Config.Report.AllowPartial = true
	runner.Config.Report.SendEmails = false
	job := monthlyJob(registry(t,
		&fakeCleaner{name: "Coalitions", err: missingColumn},
		&fakeCleaner{name: "Partnerships", res: result("Partnerships", correction("1", "Jane Doe", "jdoe@illinois.edu", "a"))},
	))

	out, err := runner.Run(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, store.RunPartial, out.Status)

	book, err := workbook.Open(out.Workbook)
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{SummarySheet, "Partnerships"}, book.Sheets())

	summary, err := book.Table(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, "Coalitions", summary.Cell(0, "Module"))
	assert.Equal(t, ErrorUpdate, summary.Cell(0, "Update"))
}

func TestMonthlyJob(t *testing.T) {
	job := MonthlyJob(now, pears.ExportsIn("pears"), config.DefaultConfig().Report)
	assert.Equal(t, "2022-09", job.Period)
	assert.Equal(t, "Monthly PEARS Corrections 2022-09.xlsx", job.Workbook)
	assert.Equal(t, time.Date(2022, time.October, 19, 17, 0, 0, 0, time.UTC), job.Deadline)
	assert.Equal(t, []string{
		modules.ModuleCoalitions, modules.ModuleIndirectActivities, modules.ModulePartnerships,
		modules.ModuleProgramActivities, modules.ModuleSiteActivities,
	}, job.Registry.Names())
}

func TestQuarterlyJob(t *testing.T) {
	job, err := QuarterlyJob(time.Date(2023, time.January, 12, 0, 0, 0, 0, time.UTC), "Coalition_Export.xlsx", "pears", config.DefaultConfig().Report)
	require.NoError(t, err)
	assert.Equal(t, "Q1", job.Period)
	assert.Equal(t, "Quarterly Coalition Survey Entry Q1.xlsx", job.Workbook)
	assert.Equal(t, "Coalition Survey Entry Q1, Jane Doe", job.NoticeSubject(notify.Notice{Staff: lookup.StaffMember{FullName: "Jane Doe"}}))

	_, err = QuarterlyJob(time.Date(2022, time.November, 12, 0, 0, 0, 0, time.UTC), "Coalition_Export.xlsx", "pears", config.DefaultConfig().Report)
	var qErr *fiscal.QuarterError
	require.True(t, errors.As(err, &qErr))
	assert.Equal(t, time.October, qErr.Month)
}
