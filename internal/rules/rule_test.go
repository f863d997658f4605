package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pears-cleaning/internal/lookup"
)

type item struct {
	ID    int
	Owner string
	Kind  *string
}

func str(s string) *string { return &s }

func texts() *lookup.NotificationTexts {
	return lookup.NewNotificationTexts(map[[2]string]map[string]string{
		{"Items", "KIND UPDATE"}: {lookup.Notification1: "Kind missing.", lookup.Notification2: "Kind duplicated."},
		{"Items", "DUP UPDATE"}:  {lookup.Notification1: "Possible duplicate."},
	})
}

func TestCompile_LastFiringCaseWins(t *testing.T) {
	rule := Rule[item]{
		ID:     "KIND UPDATE",
		Tab:    "GENERAL",
		Fields: On("Items", "kind"),
		Cases: []Case[item]{
			{Variant: lookup.Notification2, When: Row(func(r item) bool { return r.Owner == "a" })},
			{Variant: lookup.Notification1, When: Row(func(r item) bool { return r.Kind == nil })},
		},
	}
	cols := Columns{"Items": {"kind": true}}

	compiled, err := Compile("Items", lookup.Notification1, []Rule[item]{rule}, cols, texts())
	require.NoError(t, err)
	require.Len(t, compiled, 1)

	rows := []item{{ID: 1, Owner: "a"}, {ID: 2, Owner: "a", Kind: str("x")}, {ID: 3, Owner: "b", Kind: str("x")}}
	f := NewFrame(rows, time.Date(2022, time.October, 12, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, str("Kind missing."), compiled[0].Evaluate(f, rows[0]))
	assert.Equal(t, str("Kind duplicated."), compiled[0].Evaluate(f, rows[1]))
	assert.Nil(t, compiled[0].Evaluate(f, rows[2]))
	assert.Equal(t, 2022, f.FiscalYear)
}

func TestCompile_FailsFastOnMissingField(t *testing.T) {
	rule := Rule[item]{ID: "KIND UPDATE", Fields: On("Items", "kind", "program_area"), Cases: When(Row(func(item) bool { return true }))}

	_, err := Compile("Items", lookup.Notification1, []Rule[item]{rule}, Columns{"Items": {"kind": true}}, texts())
	require.Error(t, err)

	var mf *MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, "program_area", mf.Field.Column)
	assert.Equal(t, "KIND UPDATE", mf.Rule)
}

func TestCompile_FailsOnUnknownNotificationText(t *testing.T) {
	rule := Rule[item]{ID: "NEW UPDATE", Cases: When(Row(func(item) bool { return true }))}

	_, err := Compile("Items", lookup.Notification1, []Rule[item]{rule}, Columns{}, texts())

	var nf *lookup.NotificationTextNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "NEW UPDATE", nf.Update)
}

func TestDuplicated(t *testing.T) {
	byOwner := Duplicated(func(r item) (string, bool) {
		if r.Kind == nil {
			return "", false
		}
		return r.Owner + "|" + *r.Kind, true
	})
	rows := []item{
		{ID: 1, Owner: "a", Kind: str("x")},
		{ID: 2, Owner: "a", Kind: str("x")},
		{ID: 3, Owner: "a", Kind: str("y")},
		{ID: 4, Owner: "a"},
		{ID: 5, Owner: "a"},
	}
	f := NewFrame(rows, time.Now())

	var got []bool
	for _, r := range rows {
		got = append(got, byOwner(f, r))
	}
	assert.Equal(t, []bool{true, true, false, false, false}, got)
}

func TestValueHelpers(t *testing.T) {
	assert.True(t, Blank(nil))
	assert.True(t, Blank(str("  ")))
	assert.True(t, IsNot(nil, "SNAP-Ed"))
	assert.False(t, Is(nil, "SNAP-Ed"))
	assert.True(t, In(str("Coalition"), "Coalition", "Collaboration"))
	assert.True(t, Contains(str("Other places people eat"), "Other settings people", "Other places people"))

	zero, one := int64(0), int64(1)
	assert.True(t, NullOrZero(nil))
	assert.True(t, NullOrZero(&zero))
	assert.True(t, NonZero(&one))
	assert.False(t, IntIs(nil, 0))
}
