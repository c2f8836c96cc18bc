package crm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/evcraddock/fieldtrack/internal/geo"
	"github.com/evcraddock/fieldtrack/internal/workflow"
)

// Gateway is the subset of the system of record the engine calls.
type Gateway interface {
	GetMyClients(ctx context.Context, employeeID string) ([]*Client, error)
	AddClient(ctx context.Context, employeeID string, nc NewClient, createdAt time.Time) (string, error)
	UpdateClientStatus(ctx context.Context, u StatusUpdate) error
	AddClientInteraction(ctx context.Context, in *Interaction) (string, error)
	UploadClientImage(ctx context.Context, clientID, employeeID, dataURL string) (string, error)
}

// Config holds the evidence sources and deployment options for an Engine.
type Config struct {
	Locator    geo.Locator
	FixTimeout time.Duration

	// RequireLocation makes Create demand a fix for the creating employee.
	RequireLocation bool

	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine runs the client lifecycle operations. It keeps no server-side
// state; the Snapshot is the client-held view results are applied to.
type Engine struct {
	gw       Gateway
	cfg      Config
	snapshot *Snapshot
}

// NewEngine creates a client lifecycle engine with an empty snapshot.
func NewEngine(gw Gateway, cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{gw: gw, cfg: cfg, snapshot: &Snapshot{}}
}

// Snapshot returns the locally held client list.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot
}

// Refresh reads the employee's clients and replaces the snapshot.
func (e *Engine) Refresh(ctx context.Context, employeeID string) ([]*Client, error) {
	clients, err := e.gw.GetMyClients(ctx, employeeID)
	if err != nil {
		return nil, transportError(err, "Failed to load clients")
	}
	e.snapshot.Replace(clients)
	return e.snapshot.List(), nil
}

// Create registers a new client owned by employeeID. The remote system
// assigns the client ID. The result starts at LeadGenerated with UpdatedAt
// set to the creation time.
func (e *Engine) Create(ctx context.Context, employeeID string, nc NewClient) (*Client, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return nil, workflow.New(workflow.MissingRequiredField, "employee ID is required", nil)
	}

	nc = nc.Trimmed()
	if missing := nc.MissingFields(); len(missing) > 0 {
		return nil, workflow.New(workflow.MissingRequiredField,
			"Please fill all required fields: "+strings.Join(missing, ", "), nil)
	}

	nc.Latitude, nc.Longitude = nil, nil
	if e.cfg.RequireLocation {
		fix, err := geo.Capture(ctx, e.cfg.Locator, e.cfg.FixTimeout)
		if err != nil {
			slog.Warn("location fix failed", "employee", employeeID, "op", "create", "error", err)
			return nil, workflow.New(workflow.LocationRequired, "Location permission is required to add a client", err)
		}
		lat, lng := fix.Latitude, fix.Longitude
		nc.Latitude, nc.Longitude = &lat, &lng
	}

	now := e.cfg.Now()
	clientID, err := e.gw.AddClient(ctx, employeeID, nc, now)
	if err != nil {
		return nil, transportError(err, "Failed to add client")
	}

	c := &Client{
		ClientID:      clientID,
		EmployeeID:    employeeID,
		BusinessName:  nc.BusinessName,
		Industry:      nc.Industry,
		ContactPerson: nc.ContactPerson,
		Phone:         nc.Phone,
		Email:         nc.Email,
		Location:      nc.Location,
		Status:        LeadGenerated,
		UpdatedAt:     now,
		Latitude:      nc.Latitude,
		Longitude:     nc.Longitude,
	}
	e.snapshot.Upsert(c)

	slog.Info("client created", "employee", employeeID, "client", clientID)
	return c, nil
}

// SetStatus moves a client to status. Any recognized status is accepted from
// any current status; the funnel is not enforced. A non-nil description is
// persisted in the same call.
func (e *Engine) SetStatus(ctx context.Context, clientID, employeeID string, status Status, description *string) (*Client, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(employeeID) == "" {
		return nil, workflow.New(workflow.MissingRequiredField, "client ID and employee ID are required", nil)
	}
	if !status.IsValid() {
		return nil, workflow.New(workflow.InvalidStatus, "invalid client status: "+string(status), nil)
	}

	u := StatusUpdate{
		ClientID:    clientID,
		EmployeeID:  employeeID,
		Status:      status,
		Description: description,
		UpdatedAt:   e.cfg.Now(),
	}
	if err := e.gw.UpdateClientStatus(ctx, u); err != nil {
		return nil, transportError(err, "Failed to update status")
	}

	slog.Info("client status updated", "client", clientID, "status", string(status))
	return e.snapshot.applyStatus(u), nil
}

// RecordInteraction appends an interaction. A location fix is always
// required; without one nothing is sent.
func (e *Engine) RecordInteraction(ctx context.Context, clientID, employeeID string, typ InteractionType, notes string) (*Interaction, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(employeeID) == "" {
		return nil, workflow.New(workflow.MissingRequiredField, "client ID and employee ID are required", nil)
	}
	if !typ.IsValid() {
		return nil, workflow.New(workflow.InvalidInteractionType, "invalid interaction type: "+string(typ), nil)
	}

	fix, err := geo.Capture(ctx, e.cfg.Locator, e.cfg.FixTimeout)
	if err != nil {
		slog.Warn("location fix failed", "employee", employeeID, "op", "interaction", "error", err)
		return nil, workflow.New(workflow.LocationRequired, "Location permission is required to record an interaction", err)
	}

	in := &Interaction{
		ClientID:        clientID,
		EmployeeID:      employeeID,
		InteractionType: typ,
		Notes:           notes,
		Latitude:        fix.Latitude,
		Longitude:       fix.Longitude,
		Timestamp:       e.cfg.Now(),
	}

	id, err := e.gw.AddClientInteraction(ctx, in)
	if err != nil {
		return nil, transportError(err, "Failed to record interaction")
	}
	in.InteractionID = id

	slog.Info("interaction recorded", "client", clientID, "type", string(typ))
	return in, nil
}

// AttachImage forwards an already-downscaled image for a client and returns
// its URL. When the response carries no URL the client list is re-read to
// find it.
func (e *Engine) AttachImage(ctx context.Context, clientID, employeeID string, image []byte, mime string) (string, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(employeeID) == "" {
		return "", workflow.New(workflow.MissingRequiredField, "client ID and employee ID are required", nil)
	}
	if len(image) == 0 {
		return "", workflow.New(workflow.MissingRequiredField, "image is empty", nil)
	}
	if mime == "" {
		mime = http.DetectContentType(image)
	}

	url, err := e.gw.UploadClientImage(ctx, clientID, employeeID, DataURL(mime, image))
	if err != nil {
		return "", transportError(err, "Failed to upload image")
	}

	// The upload has landed; a failed re-read only costs the URL.
	if url == "" {
		if _, err := e.Refresh(ctx, employeeID); err != nil {
			slog.Warn("reading image url after upload", "client", clientID, "error", err)
		} else if c, ok := e.snapshot.Get(clientID); ok {
			url = c.ImageURL
		}
	} else {
		e.snapshot.setImage(clientID, url)
	}

	slog.Info("client image uploaded", "client", clientID, "bytes", len(image))
	return url, nil
}

// DataURL encodes data as a base64 data URL.
func DataURL(mime string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
}

// transportError classifies an unclassified gateway error as a transport
// failure with a local default message.
func transportError(err error, fallback string) error {
	if workflow.KindOf(err) != "" {
		return err
	}
	return workflow.New(workflow.TransportFailure, fallback, err)
}
