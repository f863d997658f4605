package records

import (
	"strings"
)

const customSuffix = "_custom_data"

// MultiSelectLabels are the custom fields the Platform exports as one
// indicator column per selected option.
var MultiSelectLabels = []string{
	"fcs_program_team",
	"snap_ed_grant_goals",
	"fcs_grant_goals",
	"fcs_special_projects",
	"snap_ed_special_projects",
}

// DecodeCustomFields rewrites the Platform's custom field layout in place.
// Indicator columns named "<label>_custom_data_<option>" are folded into a
// single "<label>" column holding the selected options joined with ", ".
// Any remaining "<name>_custom_data" column is renamed to "<name>".
func DecodeCustomFields(t *Table, labels []string) {
	type group struct {
		label   string
		columns []int
		options []string
	}

	groups := make([]*group, 0, len(labels))
	byLabel := make(map[string]*group, len(labels))
	for _, l := range labels {
		g := &group{label: l}
		groups = append(groups, g)
		byLabel[l] = g
	}

	drop := make(map[int]bool)
	for i, c := range t.Columns {
		for _, g := range groups {
			prefix := g.label + customSuffix + "_"
			if strings.HasPrefix(c, prefix) {
				g.columns = append(g.columns, i)
				g.options = append(g.options, strings.TrimPrefix(c, prefix))
				drop[i] = true
				break
			}
		}
	}

	columns := make([]string, 0, len(t.Columns)+len(groups))
	keep := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		if drop[i] {
			continue
		}
		if strings.HasSuffix(c, customSuffix) {
			c = strings.TrimSuffix(c, customSuffix)
			if g, ok := byLabel[c]; ok && len(g.columns) > 0 {
				continue
			}
		}
		columns = append(columns, c)
		keep = append(keep, i)
	}

	var folded []*group
	for _, g := range groups {
		if len(g.columns) > 0 {
			folded = append(folded, g)
			columns = append(columns, g.label)
		}
	}

	rows := make([][]string, len(t.Rows))
	for r, src := range t.Rows {
		row := make([]string, 0, len(columns))
		for _, i := range keep {
			row = append(row, cellAt(src, i))
		}
		for _, g := range folded {
			var selected []string
			for k, i := range g.columns {
				if selectedOption(cellAt(src, i)) {
					selected = append(selected, g.options[k])
				}
			}
			row = append(row, strings.Join(selected, ", "))
		}
		rows[r] = row
	}

	t.Columns = columns
	t.Rows = rows
	t.reindex()
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func selectedOption(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "0.0", "false", "no", "nan":
		return false
	}
	return true
}
