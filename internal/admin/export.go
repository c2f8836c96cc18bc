package admin

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/evcraddock/fieldtrack/internal/crm"
)

// Sheet names used by WriteXLSX.
const (
	ClientsSheet      = "Clients"
	AttendanceSheet   = "Attendance"
	InteractionsSheet = "Interactions"
)

var (
	clientHeader      = []interface{}{"Client ID", "Employee ID", "Business Name", "Industry", "Contact Person", "Phone", "Email", "Location", "Status", "Description", "Updated At", "Latitude", "Longitude"}
	attendanceHeader  = []interface{}{"Date", "Employee ID", "Employee Name", "Check In", "Status"}
	interactionHeader = []interface{}{"Timestamp", "Employee", "Business", "Type", "Notes", "Latitude", "Longitude"}
)

// Export is the data written to a workbook. Nil slices still produce a
// sheet with only the header row.
type Export struct {
	Clients      []*crm.Client
	Attendance   []*AttendanceRow
	Interactions []*InteractionRow
}

// WriteXLSX writes e as a workbook with one sheet per list.
func WriteXLSX(w io.Writer, e Export) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), ClientsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	for _, name := range []string{AttendanceSheet, InteractionsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	clients := [][]interface{}{clientHeader}
	for _, c := range e.Clients {
		clients = append(clients, []interface{}{
			c.ClientID, c.EmployeeID, c.BusinessName, c.Industry, c.ContactPerson,
			c.Phone, c.Email, c.Location, string(c.Status), c.Description,
			formatTime(c.UpdatedAt), optional(c.Latitude), optional(c.Longitude),
		})
	}
	if err := writeRows(f, ClientsSheet, clients); err != nil {
		return err
	}

	attendance := [][]interface{}{attendanceHeader}
	for _, r := range e.Attendance {
		attendance = append(attendance, []interface{}{r.Date, r.EmployeeID, r.EmployeeName, r.CheckIn, string(r.Status)})
	}
	if err := writeRows(f, AttendanceSheet, attendance); err != nil {
		return err
	}

	interactions := [][]interface{}{interactionHeader}
	for _, r := range e.Interactions {
		interactions = append(interactions, []interface{}{
			formatTime(r.Timestamp), r.EmployeeName, r.BusinessName, string(r.InteractionType),
			r.Notes, r.Latitude, r.Longitude,
		})
	}
	if err := writeRows(f, InteractionsSheet, interactions); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func optional(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
