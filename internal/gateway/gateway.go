// Package gateway provides an HTTP client for the remote system of record.
// Every operation is a POST to one endpoint with a JSON body whose "type"
// field selects the operation.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/evcraddock/fieldtrack/internal/admin"
	"github.com/evcraddock/fieldtrack/internal/attendance"
	"github.com/evcraddock/fieldtrack/internal/crm"
	"github.com/evcraddock/fieldtrack/internal/workflow"
)

// Request types.
const (
	TypeAttendance            = "Attendance"
	TypeGetMyClients          = "GET_MY_CLIENTS"
	TypeGetAllAttendanceAdmin = "GET_ALL_ATTENDANCE_ADMIN"
	TypeGetAllClientsAdmin    = "GET_ALL_CLIENTS_ADMIN"
	TypeGetClientInteractions = "GET_CLIENT_INTERACTIONS_ADMIN"
	TypeAddClient             = "ADD_CLIENT"
	TypeUpdateClientStatus    = "UPDATE_CLIENT_STATUS"
	TypeAddClientInteraction  = "ADD_CLIENT_INTERACTION"
	TypeUploadClientImage     = "UPLOAD_CLIENT_IMAGE"
	TypeDownloadClientsCSV    = "DOWNLOAD_CLIENTS_CSV"
	TypeWhoAmI                = "WHOAMI"
	TypeLogin                 = "LOGIN"
)

// Role is an employee's access level.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Identity is an employee as known to the system of record.
type Identity struct {
	EmployeeID string `json:"employeeId"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
}

// IsAdmin reports whether the identity may use the admin views.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Envelope is the status part every response carries.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Client is an HTTP client for the system of record.
type Client struct {
	url        string
	httpClient *http.Client
}

var (
	_ attendance.Submitter = (*Client)(nil)
	_ crm.Gateway          = (*Client)(nil)
	_ admin.Source         = (*Client)(nil)
)

// New creates a client posting to url. No timeout is set: callers bound
// requests through their context.
func New(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{},
	}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// SubmitAttendance sends an attendance record and returns the remote message.
func (c *Client) SubmitAttendance(ctx context.Context, r *attendance.Record) (string, error) {
	body := struct {
		Type string `json:"type"`
		*attendance.Record
	}{TypeAttendance, r}

	var resp Envelope
	if err := c.post(ctx, TypeAttendance, body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Login returns the identity for employeeID.
func (c *Client) Login(ctx context.Context, employeeID string) (*Identity, error) {
	return c.identity(ctx, TypeLogin, employeeID)
}

// WhoAmI returns the current name and role of employeeID.
func (c *Client) WhoAmI(ctx context.Context, employeeID string) (*Identity, error) {
	return c.identity(ctx, TypeWhoAmI, employeeID)
}

func (c *Client) identity(ctx context.Context, typ, employeeID string) (*Identity, error) {
	var resp struct {
		Name string `json:"name"`
		Role Role   `json:"role"`
	}
	if err := c.post(ctx, typ, employeeRequest{typ, employeeID}, &resp); err != nil {
		return nil, err
	}
	return &Identity{EmployeeID: employeeID, Name: resp.Name, Role: resp.Role}, nil
}

// GetMyClients returns the clients owned by employeeID.
func (c *Client) GetMyClients(ctx context.Context, employeeID string) ([]*crm.Client, error) {
	return c.clients(ctx, TypeGetMyClients, employeeID)
}

// AllClients returns every client. The caller must be an admin.
func (c *Client) AllClients(ctx context.Context, adminID string) ([]*crm.Client, error) {
	return c.clients(ctx, TypeGetAllClientsAdmin, adminID)
}

func (c *Client) clients(ctx context.Context, typ, employeeID string) ([]*crm.Client, error) {
	var resp struct {
		Clients []*crm.Client `json:"clients"`
	}
	if err := c.post(ctx, typ, employeeRequest{typ, employeeID}, &resp); err != nil {
		return nil, err
	}
	return resp.Clients, nil
}

// AllAttendance returns every attendance record. The caller must be an admin.
func (c *Client) AllAttendance(ctx context.Context, adminID string) ([]*admin.AttendanceRow, error) {
	var resp struct {
		Records []*admin.AttendanceRow `json:"records"`
	}
	if err := c.post(ctx, TypeGetAllAttendanceAdmin, employeeRequest{TypeGetAllAttendanceAdmin, adminID}, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// AllInteractions returns the full interaction log. The caller must be an admin.
func (c *Client) AllInteractions(ctx context.Context, adminID string) ([]*admin.InteractionRow, error) {
	var resp struct {
		Interactions []*admin.InteractionRow `json:"interactions"`
	}
	if err := c.post(ctx, TypeGetClientInteractions, employeeRequest{TypeGetClientInteractions, adminID}, &resp); err != nil {
		return nil, err
	}
	return resp.Interactions, nil
}

// AddClient creates a client and returns the ID the system of record assigned.
func (c *Client) AddClient(ctx context.Context, employeeID string, nc crm.NewClient, createdAt time.Time) (string, error) {
	body := struct {
		Type       string `json:"type"`
		EmployeeID string `json:"employeeId"`
		crm.NewClient
		CreatedAt time.Time `json:"createdAt"`
	}{TypeAddClient, employeeID, nc, createdAt}

	var resp struct {
		ClientID string `json:"clientId"`
	}
	if err := c.post(ctx, TypeAddClient, body, &resp); err != nil {
		return "", err
	}
	if resp.ClientID == "" {
		return "", errors.New("response missing clientId")
	}
	return resp.ClientID, nil
}

// UpdateClientStatus sends a status change and optional description.
func (c *Client) UpdateClientStatus(ctx context.Context, u crm.StatusUpdate) error {
	body := struct {
		Type string `json:"type"`
		crm.StatusUpdate
	}{TypeUpdateClientStatus, u}
	return c.post(ctx, TypeUpdateClientStatus, body, nil)
}

// AddClientInteraction appends an interaction and returns its ID, which may
// be empty when the system of record does not report one.
func (c *Client) AddClientInteraction(ctx context.Context, in *crm.Interaction) (string, error) {
	body := struct {
		Type string `json:"type"`
		*crm.Interaction
	}{TypeAddClientInteraction, in}

	var resp struct {
		InteractionID string `json:"interactionId"`
	}
	if err := c.post(ctx, TypeAddClientInteraction, body, &resp); err != nil {
		return "", err
	}
	return resp.InteractionID, nil
}

// UploadClientImage sends a base64 data URL and returns the stored image
// URL, which may be empty.
func (c *Client) UploadClientImage(ctx context.Context, clientID, employeeID, dataURL string) (string, error) {
	body := map[string]string{
		"type":       TypeUploadClientImage,
		"clientId":   clientID,
		"employeeId": employeeID,
		"base64":     dataURL,
	}

	var resp struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := c.post(ctx, TypeUploadClientImage, body, &resp); err != nil {
		return "", err
	}
	return resp.ImageURL, nil
}

// DownloadClientsCSV returns the raw CSV export of every client. The caller
// must be an admin.
func (c *Client) DownloadClientsCSV(ctx context.Context, adminID string) ([]byte, error) {
	data, err := c.send(ctx, TypeDownloadClientsCSV, employeeRequest{TypeDownloadClientsCSV, adminID})
	if err != nil {
		return nil, err
	}

	// Failures still come back as a JSON envelope.
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env Envelope
		if json.Unmarshal(trimmed, &env) == nil && !env.Success {
			return nil, rejected(env.Message)
		}
	}
	return data, nil
}

type employeeRequest struct {
	Type       string `json:"type"`
	EmployeeID string `json:"employeeId"`
}

// post sends body and decodes the envelope and result from the response.
func (c *Client) post(ctx context.Context, typ string, body interface{}, result interface{}) error {
	data, err := c.send(ctx, typ, body)
	if err != nil {
		return err
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !env.Success {
		return rejected(env.Message)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// send posts body and returns the raw response.
func (c *Client) send(ctx context.Context, typ string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	// text/plain keeps this a CORS simple request.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	slog.Debug("gateway request", "type", typ, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode >= 400 {
		var env Envelope
		if json.Unmarshal(respBody, &env) == nil && env.Message != "" {
			return nil, rejected(env.Message)
		}
		return nil, fmt.Errorf("server error: %s", http.StatusText(resp.StatusCode))
	}
	return respBody, nil
}

// rejected classifies a success=false response. Without a remote message the
// error stays unclassified so callers apply their own default message.
func rejected(message string) error {
	if message == "" {
		return errors.New("request rejected")
	}
	return workflow.New(workflow.TransportFailure, message, nil)
}
