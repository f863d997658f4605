package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/mail"
	"pears-cleaning/internal/records"
)

func directory(t *testing.T) *lookup.Directory {
	t.Helper()
	d, err := lookup.BuildDirectory(map[string]*records.Table{
		lookup.SheetSNAPEdStaff: records.NewTable(lookup.SheetSNAPEdStaff, []string{"NAME", "E-MAIL"}, [][]string{
			{"Doe, Jane", "jdoe@illinois.edu"},
			{"Roe, Rick", "rroe@uic.edu"},
		}),
		lookup.SheetStateOffice: records.NewTable(lookup.SheetStateOffice, []string{"NAME", "E-MAIL"}, [][]string{
			{"Lee, Ann", "alee@illinois.edu"},
		}),
	}, "@illinois.edu")
	require.NoError(t, err)
	return d
}

func row(id, name, email, unit, update string) engine.Row {
	return engine.Row{
		ParentID: id,
		Owner:    engine.Owner{Name: name, Email: email, Unit: unit},
		Cells:    []any{id, name, email, unit, update},
	}
}

func result(module string, rows ...engine.Row) *engine.Result {
	cols := []string{"program_id", engine.ColReportedBy, engine.ColReportedByEmail, engine.ColUnit, "GENERAL INFORMATION TAB UPDATES"}
	return &engine.Result{
		Module:  module,
		Sheet:   module,
		Columns: cols,
		Formats: make([]engine.Format, len(cols)),
		Rows:    rows,
	}
}

func TestRecipients_SortedAndUnique(t *testing.T) {
	got := Recipients([]*engine.Result{
		result("Program Activities",
			row("1", "Doe, Jane", "jdoe@illinois.edu", "17", "x"),
			row("2", "Ann Lee", "alee@illinois.edu", "9", "x"),
		),
		result("Partnerships",
			row("3", "Doe, Jane", "JDoe@illinois.edu ", "12", "x"),
			row("4", "Doe, Jane", "jdoe@illinois.edu", "05", "x"),
		),
	})

	want := []Recipient{
		{Name: "Ann Lee", Email: "alee@illinois.edu", Unit: "9"},
		{Name: "Doe, Jane", Email: "jdoe@illinois.edu", Unit: "05"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Recipients() mismatch (-want +got):\n%s", diff)
	}
}

func TestSplit_EveryRowLandsOnce(t *testing.T) {
	staff := directory(t)
	results := []*engine.Result{
		result("Program Activities",
			row("1", "Jane Doe", "jdoe@illinois.edu", "17", "a"),
			row("2", "Gone Person", "gone@illinois.edu", "17", "b"),
		),
		result("Partnerships",
			row("3", "Ann Lee", "alee@illinois.edu", "9", "c"),
		),
	}

	p := Split(results, staff)

	require.Len(t, p.Current, 2)
	assert.Equal(t, "alee@illinois.edu", p.Current[0].Recipient.Email)
	assert.Equal(t, "Ann", p.Current[0].Staff.FirstName)

	jane := p.Current[1]
	require.Len(t, jane.Tables, 2, "one table per module")
	assert.Len(t, jane.Tables[0].Rows, 1)
	assert.True(t, jane.Tables[1].Empty())
	for _, tbl := range jane.Tables {
		assert.NotContains(t, tbl.Columns, engine.ColReportedBy)
		assert.NotContains(t, tbl.Columns, engine.ColReportedByEmail)
		assert.NotContains(t, tbl.Columns, engine.ColUnit)
	}
	assert.Equal(t, []any{"1", "a"}, jane.Tables[0].Rows[0])

	require.True(t, p.HasFormer())
	require.Len(t, p.Former, 2)
	assert.Equal(t, [][]any{{"2", "Gone Person", "gone@illinois.edu", "17", "b"}}, p.Former[0].Rows)
	assert.True(t, p.Former[1].Empty())

	total := len(p.Former[0].Rows) + len(p.Former[1].Rows)
	for _, n := range p.Current {
		for _, tbl := range n.Tables {
			total += len(tbl.Rows)
		}
	}
	assert.Equal(t, 3, total)
}

func TestSplit_EmailColumnsLimitProjection(t *testing.T) {
	res := result("Coalitions", row("1", "Jane Doe", "jdoe@illinois.edu", "17", "a"))
	res.EmailColumns = []string{"program_id", engine.ColReportedByEmail, "GENERAL INFORMATION TAB UPDATES"}

	p := Split([]*engine.Result{res}, directory(t))
	require.Len(t, p.Current, 1)
	assert.Equal(t, []string{"program_id", "GENERAL INFORMATION TAB UPDATES"}, p.Current[0].Tables[0].Columns)
	assert.Equal(t, res.EmailColumns, p.Former[0].Columns)
	assert.False(t, p.HasFormer())
}

func TestRoute(t *testing.T) {
	routing := Routing{
		Contacts: lookup.NewRegionalContacts(map[string]lookup.Contact{
			"17": {Name: "Rhonda Ellis", Email: "rellis@illinois.edu"},
		}),
		Staff:         directory(t),
		CentralSheets: []string{lookup.SheetStateOffice},
		BaseCC:        "lead@illinois.edu",
	}

	tests := []struct {
		name        string
		rec         Recipient
		wantContact bool
		wantCC      string
	}{
		{"regional", Recipient{Email: "jdoe@illinois.edu", Unit: "17"}, true, "lead@illinois.edu, rellis@illinois.edu"},
		{"no contact for unit", Recipient{Email: "jdoe@illinois.edu", Unit: "9"}, false, "lead@illinois.edu"},
		{"state office", Recipient{Email: "alee@illinois.edu", Unit: "17"}, false, "lead@illinois.edu"},
		{"central domain", Recipient{Email: "rroe@uic.edu", Unit: "17"}, false, "lead@illinois.edu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := routing.Route(tt.rec)
			assert.Equal(t, tt.wantContact, got.Contact != nil)
			assert.Equal(t, tt.wantCC, got.CC)
			assert.Equal(t, got, routing.Route(tt.rec), "routing is deterministic")
		})
	}

	routing.BaseCC = ""
	assert.Equal(t, "rellis@illinois.edu", routing.Route(Recipient{Email: "jdoe@illinois.edu", Unit: "17"}).CC)
}

func TestRenderNotice_RegionalFooter(t *testing.T) {
	r := &Renderer{Team: Team{Name: "FCS Evaluation Team", Email: "pears@illinois.edu"}}
	n := Notice{
		Staff: lookup.StaffMember{FirstName: "Jane"},
		Tables: []Table{
			{Module: "Program Activities", Columns: []string{"program_id", "UPDATES"}, Formats: make([]engine.Format, 2),
				Rows: [][]any{{"1", "Add a site.\nAdd sessions."}}},
			{Module: "Partnerships"},
		},
	}
	route := Route{Contact: &lookup.Contact{Name: "Rhonda Ellis", Email: "rellis@illinois.edu"}}
	deadline := time.Date(2022, time.October, 19, 17, 0, 0, 0, time.UTC)

	body, err := r.Notice(Monthly, n, route, deadline)
	require.NoError(t, err)

	assert.Contains(t, body, "Hello Jane,")
	assert.Contains(t, body, "5:00pm Wednesday Oct 19, 2022")
	assert.Contains(t, body, "<b>Rhonda Ellis</b>")
	assert.Contains(t, body, `href="mailto:rellis@illinois.edu"`)
	assert.Contains(t, body, "Add a site.<br>Add sessions.")
	assert.Contains(t, body, "<h1> Program Activities </h1>")
	assert.NotContains(t, body, "Partnerships", "empty tables are skipped")
	assert.NotContains(t, body, "FCS Evaluation Team")

	body, err = r.Notice(Monthly, n, Route{}, deadline)
	require.NoError(t, err)
	assert.Contains(t, body, "a member of the FCS Evaluation Team will reach out soon")
	assert.Contains(t, body, "mailto:pears@illinois.edu")
}

func TestRenderNotice_Quarterly(t *testing.T) {
	r := &Renderer{Links: Links{SurveyForm: "https://example.org/survey"}}
	body, err := r.Notice(Quarterly, Notice{Staff: lookup.StaffMember{FirstName: "Jane"}}, Route{}, time.Now())
	require.NoError(t, err)
	assert.Contains(t, body, "Coordination, Coalition, or Collaboration")
	assert.Contains(t, body, "https://example.org/survey")
}

func TestFormatCell(t *testing.T) {
	at := time.Date(2022, time.September, 3, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, []string{"2022-09-03"}, FormatCell(at, engine.FormatDate))
	assert.Equal(t, []string{"2022-09-03 14:05:00"}, FormatCell(at, engine.FormatDateTime))
	assert.Equal(t, []string{"2.5"}, FormatCell(2.5, engine.FormatText))
	assert.Equal(t, []string{"12"}, FormatCell(int64(12), engine.FormatText))
	assert.Nil(t, FormatCell(nil, engine.FormatText))
}

type fakeMailer struct {
	fail map[string]bool
	sent []mail.Message
}

func (f *fakeMailer) Send(_ context.Context, m mail.Message) error {
	if len(m.To) > 0 && f.fail[m.To[0]] {
		return errors.New("550 mailbox unavailable")
	}
	f.sent = append(f.sent, m)
	return nil
}

func TestDispatcher(t *testing.T) {
	fm := &fakeMailer{fail: map[string]bool{"gone@illinois.edu": true}}
	d := NewDispatcher(fm, zap.NewNop())
	at := time.Date(2022, time.October, 12, 6, 4, 0, 0, time.UTC)
	d.now = func() time.Time { return at }
	ctx := context.Background()

	assert.True(t, d.Deliver(ctx, "Jane Doe", mail.Message{To: []string{"jdoe@illinois.edu"}, Subject: "one"}))
	assert.False(t, d.Deliver(ctx, "Gone Person", mail.Message{To: []string{"gone@illinois.edu"}, Subject: "two"}))
	assert.True(t, d.Deliver(ctx, "Ann Lee", mail.Message{To: []string{"alee@illinois.edu"}, Subject: "three"}))

	assert.Equal(t, 2, d.Sent())
	assert.Equal(t, []Failure{{Name: "Gone Person", Email: "gone@illinois.edu", Subject: "two", Err: "550 mailbox unavailable", At: at}}, d.Failures())

	r := &Renderer{}
	require.NoError(t, d.NotifyAdmin(ctx, r, []string{"admin@illinois.edu"}, "Failure Notice", "Data cleaning notifications sent successfully."))
	notice := fm.sent[len(fm.sent)-1]
	assert.Equal(t, "Failure Notice", notice.Subject)
	assert.Contains(t, notice.HTML, "Gone Person")
	assert.Contains(t, notice.HTML, "550 mailbox unavailable")
	assert.Len(t, d.Failures(), 1)
}

func TestFailureNotice_Success(t *testing.T) {
	body, err := (&Renderer{}).FailureNotice(nil, "Data cleaning notifications sent successfully.")
	require.NoError(t, err)
	assert.True(t, strings.Contains(body, "sent successfully"))
	assert.NotContains(t, body, "<table")
}
