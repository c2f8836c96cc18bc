package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evcraddock/fieldtrack/internal/geo"
	"github.com/evcraddock/fieldtrack/internal/workflow"
)

type fakeSubmitter struct {
	calls   int
	last    *Record
	message string
	err     error
}

func (f *fakeSubmitter) SubmitAttendance(ctx context.Context, r *Record) (string, error) {
	f.calls++
	copied := *r
	f.last = &copied
	if f.err != nil {
		return "", f.err
	}
	return f.message, nil
}

type countingLocator struct {
	calls int
	fix   geo.Coordinate
	err   error
}

func (l *countingLocator) Locate(ctx context.Context) (geo.Coordinate, error) {
	l.calls++
	return l.fix, l.err
}

var jan5 = time.Date(2024, 1, 5, 9, 30, 15, 0, time.Local)

func TestDecidePresentWithFix(t *testing.T) {
	sub := &fakeSubmitter{message: "Attendance marked"}
	loc := &countingLocator{fix: geo.Coordinate{Latitude: 28.61, Longitude: 77.20}}
	e := NewEngine(sub, Config{
		Locator:  loc,
		DeviceID: func(ctx context.Context) (string, error) { return "dev-1", nil },
	})

	res, err := e.Decide(context.Background(), "E1", jan5, Present)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if res.Date != "2024-01-05" {
		t.Errorf("date = %q, want 2024-01-05", res.Date)
	}
	if res.Status != Present {
		t.Errorf("status = %q", res.Status)
	}
	if res.CheckIn != "09:30:15" {
		t.Errorf("checkIn = %q, want 09:30:15", res.CheckIn)
	}
	if res.Latitude == nil || *res.Latitude != 28.61 {
		t.Errorf("latitude = %v, want 28.61", res.Latitude)
	}
	if res.Longitude == nil || *res.Longitude != 77.20 {
		t.Errorf("longitude = %v, want 77.20", res.Longitude)
	}
	if res.DeviceID != "dev-1" {
		t.Errorf("deviceId = %q", res.DeviceID)
	}
	if res.Message != "Attendance marked" {
		t.Errorf("message = %q", res.Message)
	}
	if loc.calls != 1 {
		t.Errorf("locator calls = %d, want 1", loc.calls)
	}
	if sub.calls != 1 {
		t.Errorf("submit calls = %d, want 1", sub.calls)
	}
	if !e.Marked() {
		t.Error("expected engine marked after success")
	}
}

func TestDecideLeaveSkipsLocation(t *testing.T) {
	for _, status := range []Status{CasualLeave, MedicalLeave} {
		t.Run(string(status), func(t *testing.T) {
			sub := &fakeSubmitter{}
			loc := &countingLocator{err: geo.ErrPermissionDenied}
			e := NewEngine(sub, Config{Locator: loc})

			res, err := e.Decide(context.Background(), "E1", jan5, status)
			if err != nil {
				t.Fatalf("decide: %v", err)
			}
			if loc.calls != 0 {
				t.Errorf("locator calls = %d, want 0", loc.calls)
			}
			if res.CheckIn != NotApplicable {
				t.Errorf("checkIn = %q, want %q", res.CheckIn, NotApplicable)
			}
			if res.Latitude != nil || res.Longitude != nil {
				t.Error("expected no coordinates for leave")
			}
			if sub.last.Status != status {
				t.Errorf("submitted status = %q", sub.last.Status)
			}
		})
	}
}

func TestDecidePresentLocationFailures(t *testing.T) {
	tests := []struct {
		name    string
		locator geo.Locator
	}{
		{"denied", &countingLocator{err: geo.ErrPermissionDenied}},
		{"unsupported", nil},
		{"timeout", geo.LocatorFunc(func(ctx context.Context) (geo.Coordinate, error) {
			<-ctx.Done()
			return geo.Coordinate{}, ctx.Err()
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			e := NewEngine(sub, Config{Locator: tt.locator, FixTimeout: 20 * time.Millisecond})

			res, err := e.Decide(context.Background(), "E1", jan5, Present)
			if !errors.Is(err, workflow.ErrLocationRequired) {
				t.Fatalf("err = %v, want LocationRequired", err)
			}
			if res != nil {
				t.Error("expected no record")
			}
			if sub.calls != 0 {
				t.Errorf("submit calls = %d, want 0", sub.calls)
			}
			if e.Marked() {
				t.Error("expected engine unmarked after failure")
			}
		})
	}
}

func TestDecideOncePerSession(t *testing.T) {
	sub := &fakeSubmitter{}
	e := NewEngine(sub, Config{})

	if _, err := e.Decide(context.Background(), "E1", jan5, CasualLeave); err != nil {
		t.Fatalf("first: %v", err)
	}

	_, err := e.Decide(context.Background(), "E1", jan5, CasualLeave)
	if !errors.Is(err, workflow.ErrDuplicateSubmission) {
		t.Fatalf("err = %v, want DuplicateSubmission", err)
	}
	if sub.calls != 1 {
		t.Errorf("submit calls = %d, want 1", sub.calls)
	}

	e.Reset()
	if _, err := e.Decide(context.Background(), "E1", jan5.AddDate(0, 0, 1), MedicalLeave); err != nil {
		t.Fatalf("after reset: %v", err)
	}
	if sub.calls != 2 {
		t.Errorf("submit calls = %d, want 2", sub.calls)
	}
}

func TestDecideInvalidStatus(t *testing.T) {
	sub := &fakeSubmitter{}
	e := NewEngine(sub, Config{})

	_, err := e.Decide(context.Background(), "E1", jan5, Status("Late"))
	if !errors.Is(err, workflow.ErrInvalidStatus) {
		t.Fatalf("err = %v, want InvalidStatus", err)
	}
	if sub.calls != 0 {
		t.Error("expected no submission")
	}
}

func TestDecideMissingEmployee(t *testing.T) {
	e := NewEngine(&fakeSubmitter{}, Config{})
	_, err := e.Decide(context.Background(), "  ", jan5, CasualLeave)
	if !errors.Is(err, workflow.ErrMissingRequiredField) {
		t.Fatalf("err = %v, want MissingRequiredField", err)
	}
}

func TestDecideTransportFailureLeavesUnmarked(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("connection refused")}
	e := NewEngine(sub, Config{})

	_, err := e.Decide(context.Background(), "E1", jan5, CasualLeave)
	if !errors.Is(err, workflow.ErrTransportFailure) {
		t.Fatalf("err = %v, want TransportFailure", err)
	}
	if e.Marked() {
		t.Error("expected unmarked after transport failure")
	}

	sub.err = nil
	if _, err := e.Decide(context.Background(), "E1", jan5, CasualLeave); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if sub.calls != 2 {
		t.Errorf("submit calls = %d, want 2", sub.calls)
	}
}

func TestDecideKeepsRemoteMessage(t *testing.T) {
	sub := &fakeSubmitter{err: workflow.New(workflow.TransportFailure, "Attendance already marked for today", nil)}
	e := NewEngine(sub, Config{})

	_, err := e.Decide(context.Background(), "E1", jan5, CasualLeave)
	if err == nil || err.Error() != "Attendance already marked for today" {
		t.Errorf("err = %v, want remote message", err)
	}
}

func TestDecideDeviceIDFailureIsNotFatal(t *testing.T) {
	sub := &fakeSubmitter{}
	e := NewEngine(sub, Config{
		DeviceID: func(ctx context.Context) (string, error) { return "", errors.New("disk full") },
	})

	res, err := e.Decide(context.Background(), "E1", jan5, CasualLeave)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if res.DeviceID != "" {
		t.Errorf("deviceId = %q, want empty", res.DeviceID)
	}
}

func TestDateFromCallerClock(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	late := time.Date(2024, 1, 5, 23, 50, 0, 0, ist)

	if got := DateOf(late); got != "2024-01-05" {
		t.Errorf("DateOf = %q, want local calendar date 2024-01-05", got)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"Present", Present, true},
		{"present", Present, true},
		{"Casual Leave", CasualLeave, true},
		{"casual", CasualLeave, true},
		{"medical-leave", MedicalLeave, true},
		{"late", Status("late"), false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
