package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/evcraddock/fieldtrack/internal/admin"
	"github.com/evcraddock/fieldtrack/internal/attendance"
	"github.com/evcraddock/fieldtrack/internal/crm"
)

// printJSON marshals v as indented JSON and writes it to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printAttendance prints a submitted attendance record in text format.
func printAttendance(r *attendance.Result) {
	fmt.Printf("✓ %s\n", r.Message)
	fmt.Printf("  Date:     %s\n", r.Date)
	fmt.Printf("  Status:   %s\n", r.Status)
	fmt.Printf("  Check-in: %s\n", r.CheckIn)
	if r.Latitude != nil && r.Longitude != nil {
		fmt.Printf("  Location: %.6f,%.6f\n", *r.Latitude, *r.Longitude)
	}
}

// printClient prints a single client in text format.
func printClient(c *crm.Client) {
	fmt.Printf("Client %s\n", c.ClientID)
	fmt.Printf("  Business: %s\n", c.BusinessName)
	fmt.Printf("  Industry: %s\n", c.Industry)
	if c.ContactPerson != "" {
		fmt.Printf("  Contact:  %s\n", c.ContactPerson)
	}
	if c.Phone != "" {
		fmt.Printf("  Phone:    %s\n", c.Phone)
	}
	if c.Email != "" {
		fmt.Printf("  Email:    %s\n", c.Email)
	}
	fmt.Printf("  Location: %s\n", c.Location)
	fmt.Printf("  Status:   %s\n", c.Status)
	if c.Description != "" {
		fmt.Printf("  Notes:    %s\n", c.Description)
	}
	if c.HasGPS() {
		fmt.Printf("  GPS:      %.6f,%.6f\n", *c.Latitude, *c.Longitude)
	}
	if c.ImageURL != "" {
		fmt.Printf("  Image:    %s\n", c.ImageURL)
	}
	fmt.Printf("  Updated:  %s\n", formatTime(c.UpdatedAt))
}

// printClientTable prints a list of clients as a formatted table.
func printClientTable(w io.Writer, clients []*crm.Client, withOwner bool) error {
	if len(clients) == 0 {
		_, err := fmt.Fprintln(w, "No clients found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "ID\tBUSINESS\tINDUSTRY\tLOCATION\tSTATUS\tUPDATED"
	sep := "--\t--------\t--------\t--------\t------\t-------"
	if withOwner {
		header += "\tEMPLOYEE"
		sep += "\t--------"
	}
	if _, err := fmt.Fprintln(tw, header); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, sep); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, c := range clients {
		row := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s",
			c.ClientID, truncate(c.BusinessName, 30), c.Industry, truncate(c.Location, 24), c.Status, formatTime(c.UpdatedAt))
		if withOwner {
			row += "\t" + c.EmployeeID
		}
		if _, err := fmt.Fprintln(tw, row); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	_, err := fmt.Fprintf(w, "\nTotal: %d clients\n", len(clients))
	return err
}

// printStats prints the admin summary counts.
func printStats(w io.Writer, s admin.Stats) error {
	_, err := fmt.Fprintf(w, "Clients: %d  Converted: %d  Active: %d  Employees: %d\n\n",
		s.Total, s.Converted, s.Active, s.Employees)
	return err
}

// printAttendanceTable prints admin attendance rows.
func printAttendanceTable(w io.Writer, rows []*admin.AttendanceRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No attendance records.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "DATE\tEMPLOYEE\tNAME\tSTATUS\tCHECK-IN\tLOCATION"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, r := range rows {
		loc := "-"
		if r.Latitude != nil && r.Longitude != nil {
			loc = fmt.Sprintf("%.5f,%.5f", *r.Latitude, *r.Longitude)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Date, r.EmployeeID, r.EmployeeName, r.Status, r.CheckIn, loc); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return tw.Flush()
}

// printInteractions prints interactions in text format.
func printInteractions(w io.Writer, rows []*admin.InteractionRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No interactions recorded.")
		return err
	}

	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "[%s] %s at %s by %s\n",
			formatTime(r.Timestamp), r.InteractionType, r.BusinessName, r.EmployeeName); err != nil {
			return err
		}
		if r.Notes != "" {
			if _, err := fmt.Fprintf(w, "  %s\n", r.Notes); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
