// Package crm owns the client status funnel and the interaction log for
// field employees' clients.
package crm

import (
	"strings"
	"time"
)

// Status is a client's position in the funnel or one of its side-states.
type Status string

const (
	LeadGenerated    Status = "Lead Generated"
	Contacted        Status = "Contacted"
	MeetingScheduled Status = "Meeting Scheduled"
	ProposalSent     Status = "Proposal Sent"
	Negotiation      Status = "Negotiation"
	Converted        Status = "Converted"
	FollowUpRequired Status = "Follow-up Required"
	NotInterested    Status = "Not Interested"
)

// Funnel is the advisory order of typical lead progression. It is a
// suggestion only: SetStatus accepts any status from any status.
var Funnel = []Status{LeadGenerated, Contacted, MeetingScheduled, ProposalSent, Negotiation, Converted}

// Statuses is the closed set of recognized statuses: the funnel followed by
// the side-states.
var Statuses = append(append([]Status{}, Funnel...), FollowUpRequired, NotInterested)

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsSideState reports whether s sits outside the ordered funnel.
func (s Status) IsSideState() bool {
	return s == FollowUpRequired || s == NotInterested
}

// ParseStatus matches s against the recognized statuses ignoring case and
// separators, so "meeting-scheduled" and "follow up required" both resolve.
func ParseStatus(s string) (Status, bool) {
	key := foldKey(s)
	for _, v := range Statuses {
		if foldKey(string(v)) == key {
			return v, true
		}
	}
	return Status(s), false
}

// InteractionType is how an employee engaged with a client.
type InteractionType string

const (
	Visit    InteractionType = "Visit"
	Call     InteractionType = "Call"
	Meeting  InteractionType = "Meeting"
	FollowUp InteractionType = "Follow-up"
	Demo     InteractionType = "Demo"
)

// InteractionTypes is the closed set of recognized interaction types.
var InteractionTypes = []InteractionType{Visit, Call, Meeting, FollowUp, Demo}

// IsValid checks if an interaction type is recognized.
func (t InteractionType) IsValid() bool {
	for _, v := range InteractionTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParseInteractionType matches s ignoring case and separators.
func ParseInteractionType(s string) (InteractionType, bool) {
	key := foldKey(s)
	for _, v := range InteractionTypes {
		if foldKey(string(v)) == key {
			return v, true
		}
	}
	return InteractionType(s), false
}

var separatorReplacer = strings.NewReplacer(" ", "", "-", "", "_", "")

func foldKey(s string) string {
	return separatorReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// Industries are the suggested industry values. Not enforced.
var Industries = []string{
	"Manufacturing",
	"Retail",
	"IT Services",
	"Healthcare",
	"Logistics",
	"Construction",
	"Finance",
	"Other",
}

// Client is a business lead owned by the employee who created it.
type Client struct {
	ClientID      string    `json:"clientId"`
	EmployeeID    string    `json:"employeeId"`
	BusinessName  string    `json:"businessName"`
	Industry      string    `json:"industry"`
	ContactPerson string    `json:"contactPerson,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Location      string    `json:"location"`
	Status        Status    `json:"status"`
	Description   string    `json:"description,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
}

// HasGPS reports whether the client carries creation coordinates.
func (c *Client) HasGPS() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// NewClient holds the fields an employee supplies when creating a client.
type NewClient struct {
	BusinessName  string   `json:"businessName"`
	Industry      string   `json:"industry"`
	ContactPerson string   `json:"contactPerson"`
	Phone         string   `json:"phone"`
	Email         string   `json:"email"`
	Location      string   `json:"location"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

// MissingFields returns the names of empty required fields.
func (n NewClient) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(n.BusinessName) == "" {
		missing = append(missing, "businessName")
	}
	if strings.TrimSpace(n.Industry) == "" {
		missing = append(missing, "industry")
	}
	if strings.TrimSpace(n.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(n.Location) == "" {
		missing = append(missing, "location")
	}
	return missing
}

// Trimmed returns a copy with surrounding whitespace removed from every text field.
func (n NewClient) Trimmed() NewClient {
	n.BusinessName = strings.TrimSpace(n.BusinessName)
	n.Industry = strings.TrimSpace(n.Industry)
	n.ContactPerson = strings.TrimSpace(n.ContactPerson)
	n.Phone = strings.TrimSpace(n.Phone)
	n.Email = strings.TrimSpace(n.Email)
	n.Location = strings.TrimSpace(n.Location)
	return n
}

// StatusUpdate is a status change, optionally carrying a new description.
type StatusUpdate struct {
	ClientID    string    `json:"clientId"`
	EmployeeID  string    `json:"employeeId"`
	Status      Status    `json:"status"`
	Description *string   `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Interaction is an append-only record of engagement with a client.
type Interaction struct {
	InteractionID   string          `json:"interactionId,omitempty"`
	ClientID        string          `json:"clientId"`
	EmployeeID      string          `json:"employeeId"`
	InteractionType InteractionType `json:"interactionType"`
	Notes           string          `json:"notes"`
	Latitude        float64         `json:"latitude"`
	Longitude       float64         `json:"longitude"`
	Timestamp       time.Time       `json:"timestamp"`
}
