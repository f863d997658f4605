package notify

import (
	"strings"

	"pears-cleaning/internal/lookup"
)

// DefaultCentralDomain marks staff based at the central campus, who are
// supported by the evaluation team rather than a regional specialist.
const DefaultCentralDomain = "@uic.edu"

// Routing decides who a recipient is pointed to for help.
type Routing struct {
	Contacts *lookup.RegionalContacts
	Staff    *lookup.Directory
	// CentralSheets are staff list sheets whose members are always routed
	// to the evaluation team.
	CentralSheets []string
	CentralDomain string
	// BaseCC is the comma separated list copied on every notification.
	BaseCC string
}

// Route is the outcome of routing one recipient.
type Route struct {
	// Contact is nil when the evaluation team footer applies.
	Contact *lookup.Contact
	CC      string
}

// Route applies the regional contact when the recipient's unit has one,
// the recipient is not central staff and the email is not on the central
// domain. The contact is then copied as well.
func (r Routing) Route(rec Recipient) Route {
	route := Route{CC: r.BaseCC}

	c, ok := r.Contacts.ForUnit(rec.Unit)
	if !ok {
		return route
	}
	for _, sheet := range r.CentralSheets {
		if r.Staff.InSheet(sheet, rec.Email) {
			return route
		}
	}
	domain := r.CentralDomain
	if domain == "" {
		domain = DefaultCentralDomain
	}
	if strings.Contains(lookup.EmailKey(rec.Email), strings.ToLower(domain)) {
		return route
	}

	route.Contact = &c
	if r.BaseCC == "" {
		route.CC = c.Email
	} else {
		route.CC = r.BaseCC + ", " + c.Email
	}
	return route
}
