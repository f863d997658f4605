package lookup

import (
	"fmt"

	"pears-cleaning/internal/records"
	"pears-cleaning/internal/workbook"
)

// Reference bundles the lookup tables a run is enriched with.
type Reference struct {
	Units    *UnitCounties
	Staff    *Directory
	Contacts *RegionalContacts
	Texts    *NotificationTexts
	Names    *NameList
}

// Sources names the reference files of a run.
type Sources struct {
	StaffList           string
	UnitCounties        string
	UpdateNotifications string
	NotificationSheet   string
	NamesList           string
	FormerStaffDomain   string
}

// Load reads every reference input. The names list is optional.
func Load(src Sources) (*Reference, error) {
	ref := &Reference{}

	staffBook, err := workbook.Open(src.StaffList)
	if err != nil {
		return nil, err
	}
	defer staffBook.Close()

	present := make(map[string]bool)
	for _, s := range staffBook.Sheets() {
		present[s] = true
	}
	tables := make(map[string]*records.Table)
	for _, sheet := range StaffSheets {
		if !present[sheet] {
			continue
		}
		t, err := staffBook.Table(sheet)
		if err != nil {
			return nil, err
		}
		tables[sheet] = t
	}
	if ref.Staff, err = BuildDirectory(tables, src.FormerStaffDomain); err != nil {
		return nil, fmt.Errorf("staff list: %w", err)
	}

	reTable, err := staffBook.Table(SheetRegionalStaff)
	if err != nil {
		return nil, err
	}
	if ref.Contacts, err = LoadRegionalContacts(reTable); err != nil {
		return nil, fmt.Errorf("regional contacts: %w", err)
	}

	unitBook, err := workbook.Open(src.UnitCounties)
	if err != nil {
		return nil, err
	}
	defer unitBook.Close()
	unitTable, err := unitBook.FirstTable()
	if err != nil {
		return nil, err
	}
	if ref.Units, err = LoadUnitCounties(unitTable); err != nil {
		return nil, fmt.Errorf("unit counties: %w", err)
	}

	texts, err := workbook.ReadTables(src.UpdateNotifications, src.NotificationSheet)
	if err != nil {
		return nil, err
	}
	if ref.Texts, err = LoadNotificationTexts(texts[src.NotificationSheet]); err != nil {
		return nil, fmt.Errorf("update notifications: %w", err)
	}

	if src.NamesList != "" {
		if ref.Names, err = LoadNameList(src.NamesList); err != nil {
			return nil, err
		}
	} else {
		ref.Names = NewNameList()
	}

	return ref, nil
}
