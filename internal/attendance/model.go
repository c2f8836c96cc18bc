// Package attendance decides and submits the daily attendance record for an
// employee.
package attendance

import (
	"strings"
	"time"
)

// Status is the attendance decision for a day.
type Status string

const (
	Present      Status = "Present"
	CasualLeave  Status = "Casual Leave"
	MedicalLeave Status = "Medical Leave"
)

// ValidStatuses is the closed set of recognized statuses.
var ValidStatuses = []Status{Present, CasualLeave, MedicalLeave}

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// RequiresLocation reports whether a fix is mandatory for this status.
func (s Status) RequiresLocation() bool {
	return s == Present
}

// ParseStatus accepts the canonical value or a short alias
// (present, casual, medical) in any case.
func ParseStatus(s string) (Status, bool) {
	switch normalize(s) {
	case "present":
		return Present, true
	case "casual", "casualleave", "cl":
		return CasualLeave, true
	case "medical", "medicalleave", "ml", "sick":
		return MedicalLeave, true
	}
	return Status(s), false
}

var aliasReplacer = strings.NewReplacer(" ", "", "-", "", "_", "")

func normalize(s string) string {
	return aliasReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// NotApplicable is the checkIn value for statuses without a check-in time.
const NotApplicable = "--:--"

const (
	dateLayout    = "2006-01-02"
	checkInLayout = "15:04:05"
)

// Record is one employee's attendance decision for one calendar day.
// Latitude, Longitude and a time-valued CheckIn are set iff Status is Present.
type Record struct {
	Date       string   `json:"date"` // YYYY-MM-DD
	EmployeeID string   `json:"employeeId"`
	CheckIn    string   `json:"checkIn"`
	Status     Status   `json:"status"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	DeviceID   string   `json:"deviceId,omitempty"`
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) string {
	return t.Format(dateLayout)
}

// CheckInOf returns the local time-of-day of t.
func CheckInOf(t time.Time) string {
	return t.Format(checkInLayout)
}
