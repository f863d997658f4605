package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pears-cleaning/internal/config"
	"pears-cleaning/internal/datastore"
	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/mail"
	"pears-cleaning/internal/metrics"
	"pears-cleaning/internal/notify"
	"pears-cleaning/internal/store"
	"pears-cleaning/internal/workbook"
)

// SuccessNotice is the admin notice body when every delivery went through.
const SuccessNotice = "Data cleaning notifications sent successfully."

// Runner executes report jobs.
type Runner struct {
	Config    *config.Config
	Reference *lookup.Reference
	// Mailer is only used when the configuration sends emails.
	Mailer  notify.Mailer
	Store   datastore.DataStore
	Metrics *metrics.Recorder
	Log     *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Outcome describes a finished run.
type Outcome struct {
	RunID          string
	Status         store.RunStatus
	Evaluation     *Evaluation
	Workbook       string
	FormerWorkbook string
	Sent           int
	Failures       []notify.Failure
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run evaluates the job's modules, writes its workbooks and, when enabled,
// mails the notifications. Module failures are returned as a joined error;
// unless partial output is allowed no workbook is written then.
func (r *Runner) Run(ctx context.Context, job Job) (*Outcome, error) {
	cfg := r.Config.Report
	started := r.now()
	out := &Outcome{RunID: uuid.NewString(), Status: store.RunRunning}
	log := r.Log.With(zap.String("run_id", out.RunID), zap.String("kind", string(job.RunKind)), zap.String("period", job.Period))

	r.ledger(log, "create run", func() error {
		return r.Store.CreateRun(ctx, store.Run{
			RunID: out.RunID, Kind: job.RunKind, Period: job.Period, Status: store.RunRunning, StartedAt: started,
		})
	})

	fmt.Printf("🧹 Cleaning %d modules for %s...\n", len(job.Registry.Names()), job.Period)
	ev := Evaluate(ctx, job.Registry, r.Reference, started)
	out.Evaluation = ev
	moduleErr := ev.Err()
	for _, e := range ev.Errors {
		log.Error("module failed", zap.String("module", e.Module), zap.Error(e.Err))
		r.Metrics.ModuleFailed(string(job.RunKind), e.Module)
	}
	results := ev.Succeeded()
	for _, res := range results {
		r.Metrics.ObserveModule(string(job.RunKind), res)
		log.Info("module cleaned", zap.String("module", res.Module), zap.Int("corrections", len(res.Rows)))
	}

	if moduleErr != nil && !cfg.AllowPartial {
		out.Status = store.RunFailed
		r.finish(ctx, log, job, out, started, ev, moduleErr)
		return out, moduleErr
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		out.Status = store.RunFailed
		r.finish(ctx, log, job, out, started, ev, err)
		return out, fmt.Errorf("failed to create output directory: %w", err)
	}
	out.Workbook = filepath.Join(cfg.OutputDir, job.Workbook)
	if err := workbook.Write(out.Workbook, ev.Sheets(), workbook.ReportOptions); err != nil {
		out.Status = store.RunFailed
		r.finish(ctx, log, job, out, started, ev, err)
		return out, err
	}
	fmt.Printf("📊 Corrections workbook written: %s\n", out.Workbook)

	part := notify.Split(results, r.Reference.Staff)
	if part.HasFormer() {
		out.FormerWorkbook = filepath.Join(cfg.OutputDir, job.FormerWorkbook)
		if err := workbook.Write(out.FormerWorkbook, FormerSheets(part.Former), workbook.ReportOptions); err != nil {
			out.Status = store.RunFailed
			r.finish(ctx, log, job, out, started, ev, err)
			return out, err
		}
		fmt.Printf("📁 Former staff workbook written: %s\n", out.FormerWorkbook)
	}

	if cfg.SendEmails {
		if err := r.deliver(ctx, log, job, part, out); err != nil {
			out.Status = store.RunFailed
			r.finish(ctx, log, job, out, started, ev, err)
			return out, err
		}
	}

	out.Status = store.RunSucceeded
	if moduleErr != nil {
		out.Status = store.RunPartial
	}
	r.finish(ctx, log, job, out, started, ev, moduleErr)
	return out, moduleErr
}

// deliver mails every notice, the former staff workbook, the report and
// the admin notice. Only a rendering failure stops it.
func (r *Runner) deliver(ctx context.Context, log *zap.Logger, job Job, part *notify.Partition, out *Outcome) error {
	cfg := r.Config.Report
	renderer := &notify.Renderer{
		Team:  notify.Team{Name: cfg.TeamName, Email: cfg.TeamEmail},
		Links: notify.Links{CheatSheets: cfg.CheatSheets, SurveyForm: cfg.SurveyForm},
	}
	routing := notify.Routing{
		Contacts:      r.Reference.Contacts,
		Staff:         r.Reference.Staff,
		CentralSheets: cfg.CentralSheets,
		CentralDomain: cfg.CentralDomain,
		BaseCC:        cfg.BaseCC,
	}
	d := notify.NewDispatcher(r.Mailer, log)

	for _, n := range part.Current {
		route := routing.Route(n.Recipient)
		body, err := renderer.Notice(job.Kind, n, route, job.Deadline)
		if err != nil {
			return err
		}
		d.Deliver(ctx, n.Staff.FullName, mail.Message{
			To:      []string{n.Recipient.Email},
			CC:      mail.Addresses(route.CC),
			Subject: job.NoticeSubject(n),
			HTML:    body,
		})
	}

	if out.FormerWorkbook != "" && len(cfg.FormerStaffRecipients) > 0 {
		body, err := renderer.FormerStaff(job.Kind, part.Former, job.Deadline)
		if err != nil {
			return err
		}
		d.Deliver(ctx, "Former staff", mail.Message{
			To:          cfg.FormerStaffRecipients,
			Subject:     job.FormerSubject,
			HTML:        body,
			Attachments: []string{out.FormerWorkbook},
		})
	}

	if len(cfg.Recipients) > 0 {
		body, err := renderer.Report(job.Kind)
		if err != nil {
			return err
		}
		d.Deliver(ctx, "Report recipients", mail.Message{
			To:          cfg.Recipients,
			Subject:     job.ReportSubject,
			HTML:        body,
			Attachments: []string{out.Workbook},
		})
	}

	out.Sent = d.Sent()
	out.Failures = d.Failures()
	fmt.Printf("📨 %d notifications sent, %d failed\n", out.Sent, len(out.Failures))

	if len(cfg.AdminRecipients) > 0 {
		if err := d.NotifyAdmin(ctx, renderer, cfg.AdminRecipients, job.ReportSubject+" Failure Notice", SuccessNotice); err != nil {
			log.Error("admin notice not delivered", zap.Error(err))
		}
	}
	return nil
}

// finish writes the run outcome to the ledger and the metrics.
func (r *Runner) finish(ctx context.Context, log *zap.Logger, job Job, out *Outcome, started time.Time, ev *Evaluation, runErr error) {
	finished := r.now()
	kind := string(job.RunKind)

	run := store.Run{
		RunID:         out.RunID,
		Status:        out.Status,
		FinishedAt:    &finished,
		Corrections:   Corrections(ev.Succeeded()),
		Sent:          out.Sent,
		FailedModules: ev.Failed(),
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Error = &msg
	}

	r.ledger(log, "record summary", func() error {
		return r.Store.RecordSummary(ctx, out.RunID, summaryRows(ev.Summary()))
	})
	r.ledger(log, "record failures", func() error {
		failures := make([]store.DeliveryFailure, len(out.Failures))
		for i, f := range out.Failures {
			failures[i] = store.DeliveryFailure{
				Recipient: f.Name, Email: f.Email, Subject: f.Subject, Error: f.Err, FailedAt: f.At,
			}
			if f.At.IsZero() {
				failures[i].FailedAt = finished
			}
		}
		return r.Store.RecordFailures(ctx, out.RunID, failures)
	})
	r.ledger(log, "finish run", func() error {
		return r.Store.FinishRun(ctx, run)
	})

	r.Metrics.ObserveDeliveries(kind, out.Sent, len(out.Failures))
	r.Metrics.ObserveRun(kind, finished.Sub(started), out.Status == store.RunSucceeded, finished)
	if err := r.Metrics.Push(ctx, r.Config.Metrics.PushgatewayURL, r.Config.Metrics.Job); err != nil {
		log.Warn("metrics not pushed", zap.Error(err))
	}

	log.Info("run finished",
		zap.String("status", string(out.Status)),
		zap.Int("corrections", run.Corrections),
		zap.Int("sent", out.Sent),
		zap.Int("failed_deliveries", len(out.Failures)),
		zap.Duration("elapsed", finished.Sub(started)))
}

// ledger runs a ledger write. The ledger observes runs, so a write that
// fails is logged and the run carries on.
func (r *Runner) ledger(log *zap.Logger, what string, write func() error) {
	if err := write(); err != nil {
		log.Warn("run ledger write failed", zap.String("op", what), zap.Error(err))
	}
}

func summaryRows(rows []engine.SummaryRow) []store.SummaryRow {
	out := make([]store.SummaryRow, len(rows))
	for i, s := range rows {
		out[i] = store.SummaryRow{Module: s.Module, Update: s.Update, Entries: s.Entries, Notification: s.Notification}
	}
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
