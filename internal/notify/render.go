package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/fiscal"
	"pears-cleaning/internal/lookup"
)

// Kind selects the wording of a notification.
type Kind int

const (
	Monthly Kind = iota
	Quarterly
)

// Team is the central evaluation team named in footers.
type Team struct {
	Name  string
	Email string
}

// Links are the resources notifications point staff to.
type Links struct {
	CheatSheets string
	SurveyForm  string
}

// Renderer fills the notification templates.
type Renderer struct {
	Team  Team
	Links Links
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// FormatCell renders a corrections cell as display lines. Annotations keep
// one line per message.
func FormatCell(v any, f engine.Format) []string {
	var s string
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		s = v
	case time.Time:
		if f == engine.FormatDate {
			s = v.Format(dateLayout)
		} else {
			s = v.Format(dateTimeLayout)
		}
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		s = fmt.Sprint(v)
	}
	return strings.Split(s, "\n")
}

type htmlTable struct {
	Heading string
	Columns []string
	Rows    [][][]string
}

func htmlTables(tables []Table) []htmlTable {
	var out []htmlTable
	for _, t := range tables {
		if t.Empty() {
			continue
		}
		ht := htmlTable{Heading: t.Module, Columns: t.Columns}
		for _, row := range t.Rows {
			cells := make([][]string, len(row))
			for i, v := range row {
				cells[i] = FormatCell(v, t.Formats[i])
			}
			ht.Rows = append(ht.Rows, cells)
		}
		out = append(out, ht)
	}
	return out
}

type noticeData struct {
	Kind      Kind
	FirstName string
	Deadline  string
	Tables    []htmlTable
	Contact   *lookup.Contact
	Team      Team
	Links     Links
}

// Notice renders the body sent to one current staff member.
func (r *Renderer) Notice(kind Kind, n Notice, route Route, deadline time.Time) (string, error) {
	return render("notice", noticeData{
		Kind:      kind,
		FirstName: n.Staff.FirstName,
		Deadline:  deadline.Format(fiscal.DeadlineLayout),
		Tables:    htmlTables(n.Tables),
		Contact:   route.Contact,
		Team:      r.Team,
		Links:     r.Links,
	})
}

// FormerStaff renders the body sent with the former staff workbook.
func (r *Renderer) FormerStaff(kind Kind, tables []Table, deadline time.Time) (string, error) {
	return render("former", noticeData{
		Kind:     kind,
		Deadline: deadline.Format(fiscal.DeadlineLayout),
		Tables:   htmlTables(tables),
		Team:     r.Team,
		Links:    r.Links,
	})
}

// Report renders the body sent with the corrections workbook.
func (r *Renderer) Report(kind Kind) (string, error) {
	return render("report", noticeData{Kind: kind, Team: r.Team})
}

// FailureNotice lists failed deliveries, or reports success when there are
// none.
func (r *Renderer) FailureNotice(failures []Failure, success string) (string, error) {
	return render("failures", struct {
		Failures []Failure
		Success  string
	}{failures, success})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

var templates = template.Must(template.New("notify").Funcs(template.FuncMap{
	"quarterly": func(k Kind) bool { return k == Quarterly },
}).Parse(`
{{define "tables"}}{{range .}}<h1> {{.Heading}} </h1>
<table border="2" style="border-collapse: collapse">
<thead><tr style="text-align: center;">{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}
<tr>{{range .}}<td>{{range $i, $line := .}}{{if $i}}<br>{{end}}{{$line}}{{end}}</td>{{end}}</tr>{{end}}
</tbody>
</table>
{{end}}{{end}}

{{define "team"}}<br>Thanks and have a great day!<br>
<br> <b> {{.Name}} </b> <br>
<a href="mailto:{{.Email}}">{{.Email}}</a><br>{{end}}

{{define "notice"}}<html>
<head></head>
<body>
<p>
Hello {{.FirstName}},<br><br>
{{if quarterly .Kind}}You are receiving this email because you need to submit or update quarterly Coalition Surveys.
Please update the entries listed in the table(s) below by <b>5:00pm {{.Deadline}}</b>.
<ul>
<li>Coalition Surveys are required for any Coalition in the Coordination, Coalition, or Collaboration stage of development.</li>
<li>Use the following link to submit <b>new</b> Coalition Surveys for each Coalition listed below.
<a href="{{.Links.SurveyForm}}">{{.Links.SurveyForm}}</a></li>
{{else}}A few of your PEARS entries need edits. Please update the entries listed in the table(s) below by <b>5:00pm {{.Deadline}}</b>.
Records not corrected by then will continue to show up on monthly PEARS notifications until they are resolved.
<ul>
{{end}}<li>For each entry listed, please make the edit(s) written in the columns labeled <b>UPDATE</b> in the column heading.</li>
<li>You can locate entries in PEARS by entering their IDs into the search filter.</li>
{{if not (quarterly .Kind)}}<li>To edit a PEARS entry previously marked as "complete," you can mark the entry as "incomplete,"
edit the record, and then mark as "complete" again.</li>
{{end}}<li>As a friendly reminder, following the Cheat Sheets <a href="{{.Links.CheatSheets}}">[Located Here]</a>
will help to prevent future PEARS corrections.</li>
</ul>
{{template "tables" .Tables}}
{{with .Contact}}If you have any questions or need help please contact your Regional Specialist, <b>{{.Name}}</b> (<a href="mailto:{{.Email}}">{{.Email}}</a>).
{{else}}If you have any questions or need help please reply to this email and a member of the {{.Team.Name}} will reach out soon.
{{template "team" .Team}}{{end}}
</p>
</body>
</html>{{end}}

{{define "former"}}<html>
<head></head>
<body>
<p>
Hello,<br><br>
{{if quarterly .Kind}}The attached workbook compiles Coalition entries created by former staff that require Coalition Surveys and surveys that require updates.
{{else}}The attached workbook and the table(s) below compile PEARS entries created by former staff that require edits.
{{end}}Please complete the updates for each record by <b>5:00pm {{.Deadline}}</b>.
<ul>
{{if quarterly .Kind}}<li>Use the following link to submit <b>new</b> Coalition Surveys for each Coalition listed below.
<a href="{{.Links.SurveyForm}}">{{.Links.SurveyForm}}</a></li>
{{end}}<li>For each entry listed, please make the edit(s) written in the columns labeled <b>UPDATE</b> in the column heading.</li>
<li>You can locate entries in PEARS by entering their IDs into the search filter.</li>
</ul>
If you have any questions or need help please reply to this email and a member of the {{.Team.Name}} will reach out soon.
{{template "team" .Team}}
{{template "tables" .Tables}}
</p>
</body>
</html>{{end}}

{{define "report"}}<html>
<head></head>
<body>
<p>
Hello everyone,<br><br>
The attached report compiles the most recent round of {{if quarterly .Kind}}quarterly Coalition Survey entry{{else}}monthly PEARS corrections{{end}}.
If you have any questions, please reply to this email and a member of the {{.Team.Name}} will reach out soon.<br>
{{template "team" .Team}}
</p>
</body>
</html>{{end}}

{{define "failures"}}<html>
<head></head>
<body>
{{if .Failures}}<p>Failed to send the following notifications:</p>
<table border="2" style="border-collapse: collapse">
<thead><tr><th>Name</th><th>Email</th><th>Subject</th><th>Error</th></tr></thead>
<tbody>{{range .Failures}}
<tr><td>{{.Name}}</td><td>{{.Email}}</td><td>{{.Subject}}</td><td>{{.Err}}</td></tr>{{end}}
</tbody>
</table>
{{else}}<p>{{.Success}}</p>
{{end}}</body>
</html>{{end}}
`))
