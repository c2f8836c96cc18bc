package devgateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evcraddock/fieldtrack/internal/admin"
	"github.com/evcraddock/fieldtrack/internal/attendance"
	"github.com/evcraddock/fieldtrack/internal/crm"
	"github.com/evcraddock/fieldtrack/internal/gateway"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateAttendance = errors.New("attendance already marked for this date")
)

// Store persists the system-of-record entities in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a store on an open, migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// PutEmployee creates or replaces an employee.
func (s *Store) PutEmployee(ctx context.Context, id, name string, role gateway.Role) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("employee ID is required")
	}
	if role == "" {
		role = gateway.RoleEmployee
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO employees (id, name, role) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, role = excluded.role`,
		id, strings.TrimSpace(name), string(role),
	)
	if err != nil {
		return fmt.Errorf("saving employee: %w", err)
	}
	return nil
}

// Employee returns the employee with the given ID.
func (s *Store) Employee(ctx context.Context, id string) (*gateway.Identity, error) {
	var e gateway.Identity
	var role string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, role FROM employees WHERE id = ?", id,
	).Scan(&e.EmployeeID, &e.Name, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying employee: %w", err)
	}
	e.Role = gateway.Role(role)
	return &e, nil
}

// ListEmployees returns every employee ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]*gateway.Identity, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, role FROM employees ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	defer closeRows(rows)

	var out []*gateway.Identity
	for rows.Next() {
		var e gateway.Identity
		var role string
		if err := rows.Scan(&e.EmployeeID, &e.Name, &role); err != nil {
			return nil, fmt.Errorf("scanning employee: %w", err)
		}
		e.Role = gateway.Role(role)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// InsertAttendance stores a record. A second record for the same employee
// and date fails with ErrDuplicateAttendance.
func (s *Store) InsertAttendance(ctx context.Context, r *attendance.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance (employee_id, date, check_in, status, latitude, longitude, device_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.EmployeeID, r.Date, r.CheckIn, string(r.Status),
		nullFloat(r.Latitude), nullFloat(r.Longitude), r.DeviceID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrDuplicateAttendance
		}
		return fmt.Errorf("inserting attendance: %w", err)
	}
	return nil
}

// ListAttendance returns every record with the employee's name, newest
// date first.
func (s *Store) ListAttendance(ctx context.Context) ([]*admin.AttendanceRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.date, a.employee_id, COALESCE(e.name, ''), a.check_in, a.status,
		        a.latitude, a.longitude, a.device_id
		 FROM attendance a LEFT JOIN employees e ON e.id = a.employee_id
		 ORDER BY a.date DESC, a.check_in DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	defer closeRows(rows)

	var out []*admin.AttendanceRow
	for rows.Next() {
		var r admin.AttendanceRow
		var status string
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&r.Date, &r.EmployeeID, &r.EmployeeName, &r.CheckIn, &status, &lat, &lng, &r.DeviceID); err != nil {
			return nil, fmt.Errorf("scanning attendance: %w", err)
		}
		r.Status = attendance.Status(status)
		r.Latitude = floatPtr(lat)
		r.Longitude = floatPtr(lng)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// InsertClient stores a new client at LeadGenerated with updatedAt set to
// createdAt.
func (s *Store) InsertClient(ctx context.Context, id, employeeID string, nc crm.NewClient, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients
		 (id, employee_id, business_name, industry, contact_person, phone, email, location,
		  status, created_at, updated_at, latitude, longitude)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, employeeID, nc.BusinessName, nc.Industry, nc.ContactPerson, nc.Phone, nc.Email, nc.Location,
		string(crm.LeadGenerated), createdAt.UTC(), createdAt.UTC(),
		nullFloat(nc.Latitude), nullFloat(nc.Longitude),
	)
	if err != nil {
		return fmt.Errorf("inserting client: %w", err)
	}
	return nil
}

// UpdateClientStatus applies a status change. A nil description leaves the
// stored one unchanged.
func (s *Store) UpdateClientStatus(ctx context.Context, u crm.StatusUpdate) error {
	query := "UPDATE clients SET status = ?, updated_at = ?"
	args := []interface{}{string(u.Status), u.UpdatedAt.UTC()}
	if u.Description != nil {
		query += ", description = ?"
		args = append(args, *u.Description)
	}
	query += " WHERE id = ?"
	args = append(args, u.ClientID)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating client status: %w", err)
	}
	return requireRow(result)
}

const clientColumns = `id, employee_id, business_name, industry, contact_person, phone, email, location,
	status, description, image_url, updated_at, latitude, longitude`

// ListClients returns clients owned by employeeID, or every client when
// employeeID is empty, most recently updated first.
func (s *Store) ListClients(ctx context.Context, employeeID string) ([]*crm.Client, error) {
	query := "SELECT " + clientColumns + " FROM clients"
	var args []interface{}
	if employeeID != "" {
		query += " WHERE employee_id = ?"
		args = append(args, employeeID)
	}
	query += " ORDER BY updated_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	defer closeRows(rows)

	var out []*crm.Client
	for rows.Next() {
		var c crm.Client
		var status string
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&c.ClientID, &c.EmployeeID, &c.BusinessName, &c.Industry, &c.ContactPerson,
			&c.Phone, &c.Email, &c.Location, &status, &c.Description, &c.ImageURL, &c.UpdatedAt,
			&lat, &lng); err != nil {
			return nil, fmt.Errorf("scanning client: %w", err)
		}
		c.Status = crm.Status(status)
		c.Latitude = floatPtr(lat)
		c.Longitude = floatPtr(lng)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ClientOwner returns the employee that owns clientID.
func (s *Store) ClientOwner(ctx context.Context, clientID string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, "SELECT employee_id FROM clients WHERE id = ?", clientID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying client: %w", err)
	}
	return owner, nil
}

// InsertInteraction appends an interaction under id.
func (s *Store) InsertInteraction(ctx context.Context, id string, in *crm.Interaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client_interactions
		 (id, client_id, employee_id, interaction_type, notes, latitude, longitude, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.ClientID, in.EmployeeID, string(in.InteractionType), in.Notes,
		in.Latitude, in.Longitude, in.Timestamp.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return ErrNotFound
		}
		return fmt.Errorf("inserting interaction: %w", err)
	}
	return nil
}

// ListInteractions returns the interaction log joined with employee and
// client names, newest first.
func (s *Store) ListInteractions(ctx context.Context) ([]*admin.InteractionRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.client_id, i.employee_id, i.interaction_type, i.notes,
		        i.latitude, i.longitude, i.created_at,
		        COALESCE(e.name, ''), COALESCE(c.business_name, '')
		 FROM client_interactions i
		 LEFT JOIN employees e ON e.id = i.employee_id
		 LEFT JOIN clients c ON c.id = i.client_id
		 ORDER BY i.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	defer closeRows(rows)

	var out []*admin.InteractionRow
	for rows.Next() {
		var r admin.InteractionRow
		var typ string
		if err := rows.Scan(&r.InteractionID, &r.ClientID, &r.EmployeeID, &typ, &r.Notes,
			&r.Latitude, &r.Longitude, &r.Timestamp, &r.EmployeeName, &r.BusinessName); err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}
		r.InteractionType = crm.InteractionType(typ)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// PutImage stores the image for a client and records its URL on the client.
func (s *Store) PutImage(ctx context.Context, clientID, mime string, data []byte, url string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, "UPDATE clients SET image_url = ? WHERE id = ?", url, clientID)
	if err != nil {
		return fmt.Errorf("updating image url: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO client_images (client_id, mime, data, uploaded_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(client_id) DO UPDATE SET mime = excluded.mime, data = excluded.data, uploaded_at = excluded.uploaded_at`,
		clientID, mime, data,
	)
	if err != nil {
		return fmt.Errorf("storing image: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing image: %w", err)
	}
	return nil
}

// Image returns the stored image bytes and content type for a client.
func (s *Store) Image(ctx context.Context, clientID string) (string, []byte, error) {
	var mime string
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT mime, data FROM client_images WHERE client_id = ?", clientID,
	).Scan(&mime, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("querying image: %w", err)
	}
	return mime, data, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		slog.Warn("closing rows", "error", cerr)
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
