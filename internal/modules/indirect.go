package modules

import (
	"fmt"
	"regexp"
	"strings"

	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/pears"
	"pears-cleaning/internal/rules"
)

const (
	ModuleIndirectActivities = "Indirect Activities"
	TabChannels              = "INTERVENTION CHANNELS AND REACH TAB UPDATES"

	hardCopyMaterials = "Hard copy materials (e.g. flyers, pamphlets, activity books, posters, banners, postcards, " +
		"recipe cards, or newsletters for mailings)"
)

var (
	monthAbbreviations = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	dateLike           = regexp.MustCompile(`\d+/|-|.\d{2,4}`)
)

// IndirectActivityRow is an indirect activity joined with one of its
// intervention channels.
type IndirectActivityRow struct {
	pears.IndirectActivity
	// SharedType is set when the reporter has another activity of the
	// same type.
	SharedType bool
	Channel    *pears.InterventionChannel
}

// NewIndirectActivities cleans the indirect activity export at path.
func NewIndirectActivities(path string) Cleaner {
	return &cleaner[*pears.IndirectActivityData, IndirectActivityRow]{
		name:    ModuleIndirectActivities,
		sheet:   ModuleIndirectActivities,
		load:    func() (*pears.IndirectActivityData, error) { return pears.LoadIndirectActivities(path) },
		prepare: PrepareIndirectActivities,
		module:  IndirectActivitiesModule,
	}
}

// PrepareIndirectActivities keeps SNAP-Ed activities and left joins their
// channels.
func PrepareIndirectActivities(d *pears.IndirectActivityData, ref *lookup.Reference) engine.Input[IndirectActivityRow] {
	var activities []pears.IndirectActivity
	for _, a := range d.Activities {
		if !rules.Is(a.ProgramArea, pears.ProgramAreaSNAPEd) || isTestRecord(a.Title) {
			continue
		}
		a.Unit = ref.Units.Normalize(a.Unit)
		activities = append(activities, a)
	}

	typeKey := func(a pears.IndirectActivity) string {
		return lookup.EmailKey(a.Email()) + "\x00" + fmt.Sprint(engine.Value(a.Type))
	}
	shared := make(map[string]int)
	for _, a := range activities {
		shared[typeKey(a)]++
	}

	channels := make(map[int64][]pears.InterventionChannel)
	for _, c := range d.Channels {
		if isTestRecord(c.Activity) {
			continue
		}
		channels[c.ActivityID] = append(channels[c.ActivityID], c)
	}

	var rows []IndirectActivityRow
	for _, a := range activities {
		base := IndirectActivityRow{IndirectActivity: a, SharedType: shared[typeKey(a)] > 1}
		cs := channels[a.ID]
		if len(cs) == 0 {
			rows = append(rows, base)
			continue
		}
		for i := range cs {
			r := base
			r.Channel = &cs[i]
			rows = append(rows, r)
		}
	}
	return engine.Input[IndirectActivityRow]{Rows: rows, Columns: columns(d.Columns)}
}

// undatedDescription reports a channel description that names no month
// and carries nothing that looks like a date.
func undatedDescription(desc *string) bool {
	d := text(desc)
	for _, m := range monthAbbreviations {
		if strings.Contains(d, m) {
			return false
		}
	}
	return !dateLike.MatchString(d)
}

// IndirectActivitiesModule is the indirect activity rule table.
func IndirectActivitiesModule(_ *lookup.Reference) engine.Module[IndirectActivityRow] {
	row := rules.Row[IndirectActivityRow]
	channel := func(fn func(c *pears.InterventionChannel) bool) rules.Predicate[IndirectActivityRow] {
		return row(func(r IndirectActivityRow) bool { return r.Channel != nil && fn(r.Channel) })
	}
	channelValue := func(fn func(c *pears.InterventionChannel) any) func(IndirectActivityRow) any {
		return func(r IndirectActivityRow) any {
			if r.Channel == nil {
				return nil
			}
			return fn(r.Channel)
		}
	}

	return engine.Module[IndirectActivityRow]{
		Name:  ModuleIndirectActivities,
		Sheet: ModuleIndirectActivities,
		Rules: []rules.Rule[IndirectActivityRow]{
			{
				ID: TabCustomData, Tab: TabCustomData,
				Fields: rules.On(pears.SheetIndirectActivities, "type", "snap_ed_grant_goals"),
				Cases: []rules.Case[IndirectActivityRow]{
					{Variant: lookup.Notification1, When: row(func(r IndirectActivityRow) bool { return r.SharedType })},
					{Variant: lookup.Notification2, When: row(func(r IndirectActivityRow) bool { return r.SNAPEdGrantGoals == nil })},
				},
			},
			{
				ID: "IC UPDATE1", Tab: TabChannels, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetChannels, "description"),
				Cases: rules.When(channel(func(c *pears.InterventionChannel) bool {
					return undatedDescription(c.Description)
				})),
			},
			{
				ID: "IC UPDATE3", Tab: TabChannels, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetChannels, "newly_reached"),
				Cases: rules.When(channel(func(c *pears.InterventionChannel) bool {
					return rules.NonZero(c.NewlyReached)
				})),
			},
			{
				ID: "IC UPDATE4", Tab: TabChannels, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetChannels, "reach"),
				Cases: rules.When(row(func(r IndirectActivityRow) bool {
					return r.Channel == nil || rules.NullOrZero(r.Channel.Reach)
				})),
			},
			{
				ID: "IC UPDATE5", Tab: TabChannels, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetChannels, "activity_id", "description", "site_id"),
				Cases: rules.When(rules.Duplicated(func(r IndirectActivityRow) (string, bool) {
					if r.Channel == nil {
						return "", false
					}
					// A missing description matches an empty one.
					c := r.Channel
					description := ""
					if c.Description != nil {
						description = *c.Description
					}
					return fmt.Sprint(c.ActivityID, "\x00", description, "\x00", engine.Value(c.SiteID)), true
				})),
			},
			{
				ID: "IC UPDATE6", Tab: TabChannels, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetChannels, "channel"),
				Cases: rules.When(channel(func(c *pears.InterventionChannel) bool {
					return rules.Is(c.Channel, hardCopyMaterials)
				})),
			},
		},
		Columns: concat(
			[]engine.Column[IndirectActivityRow]{
				engine.Col("activity_id", func(r IndirectActivityRow) any { return r.ID }),
				engine.Col("title", func(r IndirectActivityRow) any { return engine.Value(r.Title) }),
			},
			identity(func(r IndirectActivityRow) pears.Meta { return r.Meta }, func(r IndirectActivityRow) *string { return r.Unit }),
			[]engine.Column[IndirectActivityRow]{
				engine.DateCol("start_date", func(r IndirectActivityRow) any { return engine.Value(r.StartDate) }),
				engine.DateCol("end_date", func(r IndirectActivityRow) any { return engine.Value(r.EndDate) }),
				engine.TabCol[IndirectActivityRow](TabCustomData),
				engine.Col("type", func(r IndirectActivityRow) any { return engine.Value(r.Type) }),
				engine.TabCol[IndirectActivityRow](TabChannels),
				engine.Col("channel_id", channelValue(func(c *pears.InterventionChannel) any { return c.ID })),
				engine.Col("channel", channelValue(func(c *pears.InterventionChannel) any { return engine.Value(c.Channel) })),
				engine.Col("description", channelValue(func(c *pears.InterventionChannel) any { return engine.Value(c.Description) })),
				engine.Col("site_id", channelValue(func(c *pears.InterventionChannel) any { return engine.Value(c.SiteID) })),
				engine.Col("site_name", channelValue(func(c *pears.InterventionChannel) any { return engine.Value(c.SiteName) })),
				engine.Col("newly_reached", channelValue(func(c *pears.InterventionChannel) any { return engine.Value(c.NewlyReached) })),
				engine.Col("reach", channelValue(func(c *pears.InterventionChannel) any { return engine.Value(c.Reach) })),
			},
		),
		EmailColumns: []string{
			"activity_id", "title", engine.ColReportedBy, engine.ColReportedByEmail, engine.ColUnit,
			TabCustomData, "type", TabChannels, "channel_id", "channel", "description", "site_name",
			"newly_reached", "reach",
		},
		ParentID: func(r IndirectActivityRow) string { return id(r.ID) },
		Owner:    func(r IndirectActivityRow) engine.Owner { return owner(r.Meta, r.Unit) },
	}
}
