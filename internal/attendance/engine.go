package attendance

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/evcraddock/fieldtrack/internal/geo"
	"github.com/evcraddock/fieldtrack/internal/workflow"
)

// Submitter sends a record to the system of record and returns its message.
type Submitter interface {
	SubmitAttendance(ctx context.Context, r *Record) (string, error)
}

// Config holds the evidence sources for an Engine.
type Config struct {
	// Locator provides the fix required for Present. Nil means the device
	// has no location support.
	Locator geo.Locator

	// FixTimeout bounds the wait for a fix. Zero uses geo.DefaultTimeout.
	FixTimeout time.Duration

	// DeviceID returns the persisted device token. Optional.
	DeviceID func(ctx context.Context) (string, error)
}

// Result is a successfully submitted record and the remote message.
type Result struct {
	Record
	Message string
}

// Engine enforces one successful submission per session. The marked flag is
// session-local: it is never checked against prior records and resets only
// through Reset or a new Engine.
type Engine struct {
	submitter Submitter
	cfg       Config

	mu     sync.Mutex
	marked bool
}

// NewEngine creates an attendance engine.
func NewEngine(s Submitter, cfg Config) *Engine {
	return &Engine{submitter: s, cfg: cfg}
}

// Marked reports whether a submission has succeeded in this session.
func (e *Engine) Marked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.marked
}

// Reset clears the session guard, as a new day or page load would.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.marked = false
}

// Decide builds the record for employeeID's decision at now and submits it.
// Present requires a location fix; leave statuses never request one. Any
// failure leaves the engine unmarked so the action can be retried.
func (e *Engine) Decide(ctx context.Context, employeeID string, now time.Time, status Status) (*Result, error) {
	if e.Marked() {
		return nil, workflow.New(workflow.DuplicateSubmission, "Attendance already marked", nil)
	}

	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return nil, workflow.New(workflow.MissingRequiredField, "employee ID is required", nil)
	}
	if !status.IsValid() {
		return nil, workflow.New(workflow.InvalidStatus, "invalid attendance status: "+string(status), nil)
	}

	rec := &Record{
		Date:       DateOf(now),
		EmployeeID: employeeID,
		CheckIn:    NotApplicable,
		Status:     status,
	}

	if status.RequiresLocation() {
		fix, err := geo.Capture(ctx, e.cfg.Locator, e.cfg.FixTimeout)
		if err != nil {
			slog.Warn("location fix failed", "employee", employeeID, "error", err)
			return nil, workflow.New(workflow.LocationRequired,
				"Location permission is required to mark 'Present' attendance", err)
		}
		lat, lng := fix.Latitude, fix.Longitude
		rec.Latitude = &lat
		rec.Longitude = &lng
		rec.CheckIn = CheckInOf(now)
	}

	if e.cfg.DeviceID != nil {
		id, err := e.cfg.DeviceID(ctx)
		if err != nil {
			slog.Warn("device id unavailable", "error", err)
		} else {
			rec.DeviceID = id
		}
	}

	msg, err := e.submitter.SubmitAttendance(ctx, rec)
	if err != nil {
		if workflow.KindOf(err) == "" {
			err = workflow.New(workflow.TransportFailure, "Failed to mark attendance", err)
		}
		return nil, err
	}

	e.mu.Lock()
	e.marked = true
	e.mu.Unlock()

	slog.Info("attendance submitted",
		"employee", employeeID,
		"date", rec.Date,
		"status", string(rec.Status),
	)

	return &Result{Record: *rec, Message: msg}, nil
}
