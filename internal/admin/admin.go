// Package admin provides the read-only aggregate views available to
// administrators: attendance records, every client and the interaction log.
package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/evcraddock/fieldtrack/internal/attendance"
	"github.com/evcraddock/fieldtrack/internal/crm"
)

// AttendanceRow is an attendance record joined with the employee's name.
type AttendanceRow struct {
	attendance.Record
	EmployeeName string `json:"employeeName"`
}

// InteractionRow is an interaction joined with employee and client names.
type InteractionRow struct {
	crm.Interaction
	EmployeeName string `json:"employeeName"`
	BusinessName string `json:"businessName"`
}

// Source reads the aggregate lists. The admin's own ID is sent with every
// read; the system of record decides whether it is allowed.
type Source interface {
	AllAttendance(ctx context.Context, adminID string) ([]*AttendanceRow, error)
	AllClients(ctx context.Context, adminID string) ([]*crm.Client, error)
	AllInteractions(ctx context.Context, adminID string) ([]*InteractionRow, error)
}

// Filter narrows the client list. Empty fields match everything.
type Filter struct {
	Status     crm.Status
	EmployeeID string
	Search     string
}

// Match reports whether c passes every set field of f. Search matches the
// business name only, ignoring case.
func (f Filter) Match(c *crm.Client) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.EmployeeID != "" && c.EmployeeID != f.EmployeeID {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		if !strings.Contains(strings.ToLower(c.BusinessName), strings.ToLower(q)) {
			return false
		}
	}
	return true
}

// FilterClients returns the clients matching f in their original order.
func FilterClients(clients []*crm.Client, f Filter) []*crm.Client {
	var out []*crm.Client
	for _, c := range clients {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Stats summarizes a client list.
type Stats struct {
	Total     int `json:"total"`
	Converted int `json:"converted"`
	// Active counts every client not marked Not Interested.
	Active    int `json:"active"`
	Employees int `json:"employees"`
}

// ComputeStats counts clients by outcome and distinct owning employees.
func ComputeStats(clients []*crm.Client) Stats {
	var s Stats
	owners := make(map[string]struct{})
	for _, c := range clients {
		s.Total++
		if c.Status == crm.Converted {
			s.Converted++
		}
		if c.Status != crm.NotInterested {
			s.Active++
		}
		owners[c.EmployeeID] = struct{}{}
	}
	s.Employees = len(owners)
	return s
}

// AttendanceOn returns the rows for date (YYYY-MM-DD). An empty date returns
// every row.
func AttendanceOn(rows []*AttendanceRow, date string) []*AttendanceRow {
	if date == "" {
		return rows
	}
	var out []*AttendanceRow
	for _, r := range rows {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out
}

// Views reads the aggregate lists on behalf of one admin.
type Views struct {
	src     Source
	adminID string
}

// NewViews creates admin views for adminID.
func NewViews(src Source, adminID string) *Views {
	return &Views{src: src, adminID: adminID}
}

// Attendance returns attendance rows, newest date first, optionally limited
// to a single date.
func (v *Views) Attendance(ctx context.Context, date string) ([]*AttendanceRow, error) {
	rows, err := v.src.AllAttendance(ctx, v.adminID)
	if err != nil {
		return nil, fmt.Errorf("loading attendance: %w", err)
	}
	rows = AttendanceOn(rows, date)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date > rows[j].Date
	})
	return rows, nil
}

// Clients returns the clients matching f and stats computed over the
// unfiltered list.
func (v *Views) Clients(ctx context.Context, f Filter) ([]*crm.Client, Stats, error) {
	clients, err := v.src.AllClients(ctx, v.adminID)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("loading clients: %w", err)
	}
	return FilterClients(clients, f), ComputeStats(clients), nil
}

// Interactions returns the interaction log, newest first. A non-empty
// clientID limits it to one client.
func (v *Views) Interactions(ctx context.Context, clientID string) ([]*InteractionRow, error) {
	rows, err := v.src.AllInteractions(ctx, v.adminID)
	if err != nil {
		return nil, fmt.Errorf("loading interactions: %w", err)
	}
	if clientID != "" {
		var out []*InteractionRow
		for _, r := range rows {
			if r.ClientID == clientID {
				out = append(out, r)
			}
		}
		rows = out
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.After(rows[j].Timestamp)
	})
	return rows, nil
}
