package lookup

import (
	"fmt"
	"strings"

	"pears-cleaning/internal/records"
)

// Notification text sheets and variants.
const (
	SheetMonthlyTexts   = "Monthly Data Cleaning"
	SheetQuarterlyTexts = "Quarterly Data Cleaning"

	Notification1 = "Notification1"
	Notification2 = "Notification2"
	Notification  = "Notification"
)

// NotificationTextNotFoundError is returned when no row matches a
// (module, update) pair or the matching row has no text for the variant.
type NotificationTextNotFoundError struct {
	Module  string
	Update  string
	Variant string
}

func (e *NotificationTextNotFoundError) Error() string {
	return fmt.Sprintf("no %s text for module %q update %q", e.Variant, e.Module, e.Update)
}

// AmbiguousNotificationTextError is returned when more than one row
// matches a (module, update) pair.
type AmbiguousNotificationTextError struct {
	Module string
	Update string
	Count  int
}

func (e *AmbiguousNotificationTextError) Error() string {
	return fmt.Sprintf("%d notification rows for module %q update %q", e.Count, e.Module, e.Update)
}

type textKey struct {
	module string
	update string
}

// NotificationTexts is the (Module, Update) keyed table of human readable
// correction messages.
type NotificationTexts struct {
	rows map[textKey][]map[string]string
}

// LoadNotificationTexts reads a sheet with Module and Update columns and
// any number of Notification* columns.
func LoadNotificationTexts(t *records.Table) (*NotificationTexts, error) {
	schema := records.Schema{Sheet: t.Sheet, Fields: []records.FieldSpec{records.Text("Module"), records.Text("Update")}}
	if err := schema.Validate(t); err != nil {
		return nil, err
	}

	var variants []string
	for _, c := range t.Columns {
		if strings.HasPrefix(c, Notification) {
			variants = append(variants, c)
		}
	}

	nt := &NotificationTexts{rows: make(map[textKey][]map[string]string)}
	for i := 0; i < t.Len(); i++ {
		key := textKey{module: clean(t.Cell(i, "Module")), update: clean(t.Cell(i, "Update"))}
		if key.module == "" || key.update == "" {
			continue
		}
		texts := make(map[string]string, len(variants))
		for _, v := range variants {
			texts[v] = t.Cell(i, v)
		}
		nt.rows[key] = append(nt.rows[key], texts)
	}
	return nt, nil
}

// NewNotificationTexts builds a table from in-memory rows. Each entry maps
// variant names to text.
func NewNotificationTexts(rows map[[2]string]map[string]string) *NotificationTexts {
	nt := &NotificationTexts{rows: make(map[textKey][]map[string]string, len(rows))}
	for k, texts := range rows {
		key := textKey{module: k[0], update: k[1]}
		nt.rows[key] = append(nt.rows[key], texts)
	}
	return nt
}

// Lookup returns the text for (module, update, variant). Zero matching rows
// or an empty cell yields NotificationTextNotFoundError; several matching
// rows yield AmbiguousNotificationTextError.
func (nt *NotificationTexts) Lookup(module, update, variant string) (string, error) {
	matches := nt.rows[textKey{module: module, update: update}]
	switch len(matches) {
	case 0:
		return "", &NotificationTextNotFoundError{Module: module, Update: update, Variant: variant}
	case 1:
	default:
		return "", &AmbiguousNotificationTextError{Module: module, Update: update, Count: len(matches)}
	}
	text := strings.TrimSpace(matches[0][variant])
	if text == "" {
		return "", &NotificationTextNotFoundError{Module: module, Update: update, Variant: variant}
	}
	return text, nil
}

// Describe returns the first variant's text for summary display, or "" if
// the pair is not unique.
func (nt *NotificationTexts) Describe(module, update, variant string) string {
	text, err := nt.Lookup(module, update, variant)
	if err != nil {
		return ""
	}
	return text
}
